package redis

import (
	"context"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

func (r *repo) AddParticipant(ctx context.Context, params *room.AddParticipantParams) error {
	unlock := r.lockRoom(params.RoomId)
	defer unlock()

	exists, err := r.roomExists(ctx, params.RoomId)
	if err != nil {
		return err
	}
	if !exists {
		return room.ErrRoomNotFound
	}

	participantsKey := r.getParticipantsKey(params.RoomId)
	added, err := r.rc.SAdd(ctx, participantsKey, params.ClientId).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return room.ErrParticipantExists
	}

	return r.rc.Expire(ctx, participantsKey, r.expireDuration).Err()
}

func (r *repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) (int, error) {
	unlock := r.lockRoom(params.RoomId)
	defer unlock()

	exists, err := r.roomExists(ctx, params.RoomId)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, room.ErrRoomNotFound
	}

	participantsKey := r.getParticipantsKey(params.RoomId)
	if err := r.rc.SRem(ctx, participantsKey, params.ClientId).Err(); err != nil {
		return 0, err
	}

	remaining, err := r.rc.SCard(ctx, participantsKey).Result()
	if err != nil {
		return 0, err
	}

	return int(remaining), nil
}

func (r *repo) GetParticipantIds(ctx context.Context, roomId string) ([]string, error) {
	unlock := r.lockRoom(roomId)
	defer unlock()

	exists, err := r.roomExists(ctx, roomId)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, room.ErrRoomNotFound
	}

	return r.rc.SMembers(ctx, r.getParticipantsKey(roomId)).Result()
}
