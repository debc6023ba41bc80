package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

const roomIdLength = 8

type CreateRoomResponse struct {
	RoomId string
}

func (s *service) CreateRoom(ctx context.Context) (CreateRoomResponse, error) {
	// opaque ids collide rarely, retry instead of widening them
	for attempt := 0; attempt < 5; attempt++ {
		roomId := s.generator.GenerateRandomString(roomIdLength)

		err := s.roomRepo.CreateRoom(ctx, roomId)
		if err == nil {
			s.logger.InfoContext(ctx, "room created", "room_id", roomId)
			return CreateRoomResponse{RoomId: roomId}, nil
		}
		if !errors.Is(err, room.ErrRoomAlreadyExists) {
			return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
		}
	}

	return CreateRoomResponse{}, errors.New("failed to generate unique room id")
}

// GetVideoState returns the stored playback state for the REST lookup. No
// extrapolation happens here; a client that wants a live position joins the
// room.
func (s *service) GetVideoState(ctx context.Context, roomId string) (VideoState, error) {
	state, err := s.roomRepo.GetVideoState(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return VideoState{}, ErrRoomNotFound
		}
		return VideoState{}, fmt.Errorf("failed to get video state: %w", err)
	}

	return videoStateFromRepo(state), nil
}
