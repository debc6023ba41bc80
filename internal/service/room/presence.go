package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

type ConnectClientParams struct {
	Conn     *websocket.Conn
	ClientId string
}

// ConnectClient registers a fresh websocket connection. Room membership is
// taken up separately via JoinRoom.
func (s *service) ConnectClient(ctx context.Context, params *ConnectClientParams) error {
	if err := s.connRepo.Add(params.Conn, params.ClientId); err != nil {
		s.logger.InfoContext(ctx, "failed to connect client", "error", err)
		return err
	}

	return nil
}

type JoinRoomParams struct {
	ClientId string
	RoomId   string
}

type JoinRoomResponse struct {
	Video         VideoState
	Playlist      PlaylistState
	SystemMessage ChatMessage
	Conns         []*websocket.Conn
}

// JoinRoom adds the client to the room's participant set, cancels any
// pending eviction and builds the reconciliation snapshot to push to the
// joiner. The extrapolated video position is persisted back into the room
// so the stored state also advances to now.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	if err := s.roomRepo.AddParticipant(ctx, &room.AddParticipantParams{
		RoomId:   params.RoomId,
		ClientId: params.ClientId,
	}); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			s.logger.InfoContext(ctx, "join for missing room dropped", "room_id", params.RoomId)
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		if !errors.Is(err, room.ErrParticipantExists) {
			return JoinRoomResponse{}, fmt.Errorf("failed to add participant: %w", err)
		}
	}

	s.cancelEviction(ctx, params.RoomId)

	if err := s.connRepo.AddRoom(params.ClientId, params.RoomId); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to track joined room: %w", err)
	}

	video, err := s.roomRepo.SyncVideoState(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to sync video state: %w", err)
	}

	playlist, err := s.roomRepo.GetPlaylistState(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get playlist state: %w", err)
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get conns by room id: %w", err)
	}

	s.logger.InfoContext(ctx, "client joined room", "client_id", params.ClientId, "room_id", params.RoomId)

	return JoinRoomResponse{
		Video:         videoStateFromRepo(video),
		Playlist:      playlistStateFromRepo(playlist),
		SystemMessage: s.systemMessage(fmt.Sprintf("%s has joined the room.", params.ClientId)),
		Conns:         conns,
	}, nil
}

type LeaveRoomParams struct {
	ClientId string
	RoomId   string
}

type LeaveRoomResponse struct {
	SystemMessage ChatMessage
	Conns         []*websocket.Conn
}

func (s *service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	if err := s.connRepo.RemoveRoom(params.ClientId, params.RoomId); err != nil {
		s.logger.DebugContext(ctx, "failed to untrack room", "error", err)
	}

	remaining, err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		RoomId:   params.RoomId,
		ClientId: params.ClientId,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			s.logger.InfoContext(ctx, "leave for missing room dropped", "room_id", params.RoomId)
			return LeaveRoomResponse{}, ErrRoomNotFound
		}
		return LeaveRoomResponse{}, fmt.Errorf("failed to remove participant: %w", err)
	}

	if remaining == 0 {
		s.scheduleEviction(ctx, params.RoomId)
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return LeaveRoomResponse{}, fmt.Errorf("failed to get conns by room id: %w", err)
	}

	s.logger.InfoContext(ctx, "client left room", "client_id", params.ClientId, "room_id", params.RoomId)

	return LeaveRoomResponse{
		SystemMessage: s.systemMessage(fmt.Sprintf("%s has left the room.", params.ClientId)),
		Conns:         conns,
	}, nil
}

type DisconnectClientParams struct {
	Conn *websocket.Conn
}

// RoomNotification is a system chat message addressed to one room's
// remaining participants.
type RoomNotification struct {
	RoomId  string
	Message ChatMessage
	Conns   []*websocket.Conn
}

type DisconnectClientResponse struct {
	Notifications []RoomNotification
}

// DisconnectClient removes the client from every room it had joined on this
// connection. Per-room failures degrade to logged no-ops so a half-evicted
// room never breaks the rest of the cleanup.
func (s *service) DisconnectClient(ctx context.Context, params *DisconnectClientParams) (DisconnectClientResponse, error) {
	clientId, err := s.connRepo.GetClientId(params.Conn)
	if err != nil {
		return DisconnectClientResponse{}, fmt.Errorf("failed to get client id: %w", err)
	}

	roomIds, err := s.connRepo.GetRoomIds(clientId)
	if err != nil {
		return DisconnectClientResponse{}, fmt.Errorf("failed to get joined rooms: %w", err)
	}

	notifications := make([]RoomNotification, 0, len(roomIds))
	for _, roomId := range roomIds {
		remaining, err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
			RoomId:   roomId,
			ClientId: clientId,
		})
		if err != nil {
			s.logger.InfoContext(ctx, "failed to remove participant on disconnect", "room_id", roomId, "error", err)
			continue
		}

		if remaining == 0 {
			s.scheduleEviction(ctx, roomId)
		}

		conns, err := s.getConnsByRoomId(ctx, roomId)
		if err != nil {
			s.logger.InfoContext(ctx, "failed to get conns on disconnect", "room_id", roomId, "error", err)
			continue
		}

		notifications = append(notifications, RoomNotification{
			RoomId:  roomId,
			Message: s.systemMessage(fmt.Sprintf("%s has disconnected from the room.", clientId)),
			Conns:   conns,
		})
	}

	if err := s.connRepo.RemoveByConn(params.Conn); err != nil {
		s.logger.DebugContext(ctx, "failed to remove connection", "error", err)
	}

	s.logger.InfoContext(ctx, "client disconnected", "client_id", clientId, "rooms", len(roomIds))

	return DisconnectClientResponse{Notifications: notifications}, nil
}

// scheduleEviction arms the deferred deletion of a vacated room. An already
// armed timer is reset, so the grace period restarts from the latest
// vacancy.
func (s *service) scheduleEviction(ctx context.Context, roomId string) {
	s.evictionsMu.Lock()
	defer s.evictionsMu.Unlock()

	if timer, ok := s.evictions[roomId]; ok {
		timer.Stop()
	}

	s.evictions[roomId] = time.AfterFunc(s.evictionGrace, func() {
		s.evictRoom(roomId)
	})

	s.logger.InfoContext(ctx, "room eviction scheduled", "room_id", roomId, "grace", s.evictionGrace)
}

// cancelEviction disarms a pending eviction when a room regains a
// participant before the grace period elapses.
func (s *service) cancelEviction(ctx context.Context, roomId string) {
	s.evictionsMu.Lock()
	defer s.evictionsMu.Unlock()

	if timer, ok := s.evictions[roomId]; ok {
		timer.Stop()
		delete(s.evictions, roomId)
		s.logger.InfoContext(ctx, "room eviction cancelled", "room_id", roomId)
	}
}

func (s *service) evictRoom(roomId string) {
	ctx := context.Background()

	s.evictionsMu.Lock()
	delete(s.evictions, roomId)
	s.evictionsMu.Unlock()

	// re-check occupancy: a join may have raced the timer
	participants, err := s.roomRepo.GetParticipantIds(ctx, roomId)
	if err != nil {
		if !errors.Is(err, room.ErrRoomNotFound) {
			s.logger.InfoContext(ctx, "failed to check room occupancy", "room_id", roomId, "error", err)
		}
		return
	}
	if len(participants) > 0 {
		s.logger.InfoContext(ctx, "room reoccupied, eviction skipped", "room_id", roomId)
		return
	}

	if err := s.roomRepo.RemoveRoom(ctx, roomId); err != nil {
		s.logger.InfoContext(ctx, "failed to evict room", "room_id", roomId, "error", err)
		return
	}

	s.logger.InfoContext(ctx, "room evicted", "room_id", roomId)
}
