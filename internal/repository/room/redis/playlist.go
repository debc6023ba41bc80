package redis

import (
	"context"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

type playlistMeta struct {
	EventId      int `redis:"event_id"`
	CurrentIndex int `redis:"current_index"`
}

func (r *repo) setPlaylistMeta(ctx context.Context, roomId string, state room.PlaylistState) error {
	playlistKey := r.getPlaylistKey(roomId)
	meta := playlistMeta{
		EventId:      state.EventId,
		CurrentIndex: state.CurrentIndex,
	}
	if err := r.rc.HSet(ctx, playlistKey, meta).Err(); err != nil {
		return err
	}

	return r.rc.Expire(ctx, playlistKey, r.expireDuration).Err()
}

func (r *repo) appendPlaylistItem(ctx context.Context, roomId, videoURL string) error {
	itemsKey := r.getPlaylistItemsKey(roomId)
	if err := r.rc.RPush(ctx, itemsKey, videoURL).Err(); err != nil {
		return err
	}

	return r.rc.Expire(ctx, itemsKey, r.expireDuration).Err()
}

func (r *repo) getPlaylistState(ctx context.Context, roomId string) (room.PlaylistState, error) {
	exists, err := r.roomExists(ctx, roomId)
	if err != nil {
		return room.PlaylistState{}, err
	}
	if !exists {
		return room.PlaylistState{}, room.ErrRoomNotFound
	}

	var meta playlistMeta
	if err := r.rc.HGetAll(ctx, r.getPlaylistKey(roomId)).Scan(&meta); err != nil {
		return room.PlaylistState{}, err
	}

	items, err := r.rc.LRange(ctx, r.getPlaylistItemsKey(roomId), 0, -1).Result()
	if err != nil {
		return room.PlaylistState{}, err
	}

	return room.PlaylistState{
		EventId:      meta.EventId,
		Items:        items,
		CurrentIndex: meta.CurrentIndex,
	}, nil
}

func (r *repo) GetPlaylistState(ctx context.Context, roomId string) (room.PlaylistState, error) {
	unlock := r.lockRoom(roomId)
	defer unlock()

	return r.getPlaylistState(ctx, roomId)
}

func (r *repo) AddPlaylistVideo(ctx context.Context, params *room.AddPlaylistVideoParams) (room.PlaylistState, error) {
	unlock := r.lockRoom(params.RoomId)
	defer unlock()

	state, err := r.getPlaylistState(ctx, params.RoomId)
	if err != nil {
		return room.PlaylistState{}, err
	}

	state, err = room.ApplyPlaylistAdd(state, params.EventId, params.VideoURL, params.Limit)
	if err != nil {
		return room.PlaylistState{}, err
	}

	if err := r.appendPlaylistItem(ctx, params.RoomId, params.VideoURL); err != nil {
		return room.PlaylistState{}, err
	}
	if err := r.setPlaylistMeta(ctx, params.RoomId, state); err != nil {
		return room.PlaylistState{}, err
	}

	return state, nil
}

func (r *repo) AdvancePlaylist(ctx context.Context, params *room.AdvancePlaylistParams) (room.PlaylistState, error) {
	unlock := r.lockRoom(params.RoomId)
	defer unlock()

	state, err := r.getPlaylistState(ctx, params.RoomId)
	if err != nil {
		return room.PlaylistState{}, err
	}

	state, err = room.ApplyPlaylistAdvance(state, params.EventId)
	if err != nil {
		return room.PlaylistState{}, err
	}

	if err := r.setPlaylistMeta(ctx, params.RoomId, state); err != nil {
		return room.PlaylistState{}, err
	}

	return state, nil
}

func (r *repo) SelectPlaylistVideo(ctx context.Context, params *room.SelectPlaylistVideoParams) (room.PlaylistState, error) {
	unlock := r.lockRoom(params.RoomId)
	defer unlock()

	state, err := r.getPlaylistState(ctx, params.RoomId)
	if err != nil {
		return room.PlaylistState{}, err
	}

	state, err = room.ApplyPlaylistSelect(state, params.EventId, params.Index)
	if err != nil {
		return room.PlaylistState{}, err
	}

	if err := r.setPlaylistMeta(ctx, params.RoomId, state); err != nil {
		return room.PlaylistState{}, err
	}

	return state, nil
}
