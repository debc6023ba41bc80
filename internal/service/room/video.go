package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

type SetVideoParams struct {
	SenderId string
	RoomId   string
	VideoURL string
}

type SetVideoResponse struct {
	Video VideoState
	Conns []*websocket.Conn
}

// SetVideo loads a new video into the room. It is never gated by an event
// id claim: loading a video starts a new epoch for the room's timeline.
func (s *service) SetVideo(ctx context.Context, params *SetVideoParams) (SetVideoResponse, error) {
	state, err := s.roomRepo.SetVideo(ctx, &room.SetVideoParams{
		RoomId:   params.RoomId,
		VideoURL: params.VideoURL,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			s.logger.InfoContext(ctx, "set video for missing room dropped", "room_id", params.RoomId)
			return SetVideoResponse{}, ErrRoomNotFound
		}
		return SetVideoResponse{}, fmt.Errorf("failed to set video: %w", err)
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return SetVideoResponse{}, fmt.Errorf("failed to get conns by room id: %w", err)
	}

	return SetVideoResponse{
		Video: videoStateFromRepo(state),
		Conns: conns,
	}, nil
}

type UpdatePlaybackParams struct {
	SenderId     string
	RoomId       string
	EventId      int
	CurrentTime  float64
	PlaybackRate float64
}

type UpdatePlaybackResponse struct {
	Video VideoState
	Conns []*websocket.Conn
}

func (s *service) PlayVideo(ctx context.Context, params *UpdatePlaybackParams) (UpdatePlaybackResponse, error) {
	isPlaying := true
	return s.updatePlayback(ctx, params, &isPlaying)
}

func (s *service) PauseVideo(ctx context.Context, params *UpdatePlaybackParams) (UpdatePlaybackResponse, error) {
	isPlaying := false
	return s.updatePlayback(ctx, params, &isPlaying)
}

// SeekVideo and ChangePlaybackRate leave isPlaying untouched.
func (s *service) SeekVideo(ctx context.Context, params *UpdatePlaybackParams) (UpdatePlaybackResponse, error) {
	return s.updatePlayback(ctx, params, nil)
}

func (s *service) ChangePlaybackRate(ctx context.Context, params *UpdatePlaybackParams) (UpdatePlaybackResponse, error) {
	return s.updatePlayback(ctx, params, nil)
}

func (s *service) updatePlayback(ctx context.Context, params *UpdatePlaybackParams, isPlaying *bool) (UpdatePlaybackResponse, error) {
	state, err := s.roomRepo.UpdateVideoState(ctx, &room.UpdateVideoStateParams{
		RoomId:       params.RoomId,
		EventId:      params.EventId,
		CurrentTime:  params.CurrentTime,
		IsPlaying:    isPlaying,
		PlaybackRate: params.PlaybackRate,
	})
	if err != nil {
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			s.logger.InfoContext(ctx, "playback update for missing room dropped", "room_id", params.RoomId)
			return UpdatePlaybackResponse{}, ErrRoomNotFound
		case errors.Is(err, room.ErrStaleEvent):
			s.logger.DebugContext(ctx, "stale playback update dropped",
				"room_id", params.RoomId,
				"client_event_id", params.EventId,
			)
			return UpdatePlaybackResponse{}, ErrStaleEvent
		}
		return UpdatePlaybackResponse{}, fmt.Errorf("failed to update video state: %w", err)
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return UpdatePlaybackResponse{}, fmt.Errorf("failed to get conns by room id: %w", err)
	}

	return UpdatePlaybackResponse{
		Video: videoStateFromRepo(state),
		Conns: conns,
	}, nil
}
