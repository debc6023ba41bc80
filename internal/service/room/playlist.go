package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

type AddPlaylistVideoParams struct {
	SenderId string
	RoomId   string
	EventId  int
	VideoURL string
}

type PlaylistResponse struct {
	Playlist PlaylistState
	Conns    []*websocket.Conn
}

func (s *service) AddPlaylistVideo(ctx context.Context, params *AddPlaylistVideoParams) (PlaylistResponse, error) {
	// limit enforcement lives inside the store's room lock so racing adds
	// cannot both pass a len check and overshoot
	state, err := s.roomRepo.AddPlaylistVideo(ctx, &room.AddPlaylistVideoParams{
		RoomId:   params.RoomId,
		EventId:  params.EventId,
		VideoURL: params.VideoURL,
		Limit:    s.playlistLimit,
	})
	if err != nil {
		return PlaylistResponse{}, s.mapPlaylistErr(ctx, params.RoomId, err, "playlist add")
	}

	return s.playlistResponse(ctx, params.RoomId, state)
}

type AdvancePlaylistParams struct {
	SenderId string
	RoomId   string
	EventId  int
}

func (s *service) AdvancePlaylist(ctx context.Context, params *AdvancePlaylistParams) (PlaylistResponse, error) {
	state, err := s.roomRepo.AdvancePlaylist(ctx, &room.AdvancePlaylistParams{
		RoomId:  params.RoomId,
		EventId: params.EventId,
	})
	if err != nil {
		return PlaylistResponse{}, s.mapPlaylistErr(ctx, params.RoomId, err, "playlist advance")
	}

	return s.playlistResponse(ctx, params.RoomId, state)
}

type SelectPlaylistVideoParams struct {
	SenderId string
	RoomId   string
	EventId  int
	Index    int
}

func (s *service) SelectPlaylistVideo(ctx context.Context, params *SelectPlaylistVideoParams) (PlaylistResponse, error) {
	state, err := s.roomRepo.SelectPlaylistVideo(ctx, &room.SelectPlaylistVideoParams{
		RoomId:  params.RoomId,
		EventId: params.EventId,
		Index:   params.Index,
	})
	if err != nil {
		return PlaylistResponse{}, s.mapPlaylistErr(ctx, params.RoomId, err, "playlist select")
	}

	return s.playlistResponse(ctx, params.RoomId, state)
}

func (s *service) mapPlaylistErr(ctx context.Context, roomId string, err error, op string) error {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		s.logger.InfoContext(ctx, op+" for missing room dropped", "room_id", roomId)
		return ErrRoomNotFound
	case errors.Is(err, room.ErrStaleEvent):
		s.logger.DebugContext(ctx, "stale "+op+" dropped", "room_id", roomId)
		return ErrStaleEvent
	case errors.Is(err, room.ErrIndexOutOfRange):
		s.logger.DebugContext(ctx, op+" index out of range", "room_id", roomId)
		return ErrIndexOutOfRange
	case errors.Is(err, room.ErrPlaylistFull):
		s.logger.DebugContext(ctx, op+" rejected, playlist full", "room_id", roomId)
		return ErrPlaylistLimitReached
	}

	return fmt.Errorf("failed to apply %s: %w", op, err)
}

func (s *service) playlistResponse(ctx context.Context, roomId string, state room.PlaylistState) (PlaylistResponse, error) {
	conns, err := s.getConnsByRoomId(ctx, roomId)
	if err != nil {
		return PlaylistResponse{}, fmt.Errorf("failed to get conns by room id: %w", err)
	}

	return PlaylistResponse{
		Playlist: playlistStateFromRepo(state),
		Conns:    conns,
	}, nil
}
