package redis

import (
	"context"
	"time"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

func (r *repo) setVideoState(ctx context.Context, roomId string, state room.VideoState) error {
	videoKey := r.getVideoKey(roomId)
	if err := r.rc.HSet(ctx, videoKey, state).Err(); err != nil {
		return err
	}

	return r.rc.Expire(ctx, videoKey, r.expireDuration).Err()
}

func (r *repo) getVideoState(ctx context.Context, roomId string) (room.VideoState, error) {
	exists, err := r.roomExists(ctx, roomId)
	if err != nil {
		return room.VideoState{}, err
	}
	if !exists {
		return room.VideoState{}, room.ErrRoomNotFound
	}

	var state room.VideoState
	if err := r.rc.HGetAll(ctx, r.getVideoKey(roomId)).Scan(&state); err != nil {
		return room.VideoState{}, err
	}

	return state, nil
}

func (r *repo) GetVideoState(ctx context.Context, roomId string) (room.VideoState, error) {
	unlock := r.lockRoom(roomId)
	defer unlock()

	return r.getVideoState(ctx, roomId)
}

func (r *repo) SetVideo(ctx context.Context, params *room.SetVideoParams) (room.VideoState, error) {
	unlock := r.lockRoom(params.RoomId)
	defer unlock()

	state, err := r.getVideoState(ctx, params.RoomId)
	if err != nil {
		return room.VideoState{}, err
	}

	state = room.ApplySetVideo(state, params.VideoURL, time.Now())
	if err := r.setVideoState(ctx, params.RoomId, state); err != nil {
		return room.VideoState{}, err
	}

	return state, nil
}

func (r *repo) UpdateVideoState(ctx context.Context, params *room.UpdateVideoStateParams) (room.VideoState, error) {
	unlock := r.lockRoom(params.RoomId)
	defer unlock()

	state, err := r.getVideoState(ctx, params.RoomId)
	if err != nil {
		return room.VideoState{}, err
	}

	state, err = room.ApplyVideoUpdate(state, params, time.Now())
	if err != nil {
		return room.VideoState{}, err
	}

	if err := r.setVideoState(ctx, params.RoomId, state); err != nil {
		return room.VideoState{}, err
	}

	return state, nil
}

func (r *repo) SyncVideoState(ctx context.Context, roomId string) (room.VideoState, error) {
	unlock := r.lockRoom(roomId)
	defer unlock()

	state, err := r.getVideoState(ctx, roomId)
	if err != nil {
		return room.VideoState{}, err
	}

	state = room.ExtrapolateVideo(state, time.Now())
	if err := r.setVideoState(ctx, roomId, state); err != nil {
		return room.VideoState{}, err
	}

	return state, nil
}
