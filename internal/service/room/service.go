package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jothamteshome/watch-together/internal/repository/room"
	"github.com/jothamteshome/watch-together/pkg/randstr"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrStaleEvent           = errors.New("stale event id")
	ErrIndexOutOfRange      = errors.New("playlist index out of range")
	ErrPlaylistLimitReached = errors.New("playlist limit reached")
)

// RoomRepo is the room storage surface. It is exported so the app wiring
// can choose between the in-memory and redis implementations.
type RoomRepo interface {
	CreateRoom(ctx context.Context, roomId string) error
	RemoveRoom(ctx context.Context, roomId string) error
	// video
	GetVideoState(ctx context.Context, roomId string) (room.VideoState, error)
	SetVideo(ctx context.Context, params *room.SetVideoParams) (room.VideoState, error)
	UpdateVideoState(ctx context.Context, params *room.UpdateVideoStateParams) (room.VideoState, error)
	SyncVideoState(ctx context.Context, roomId string) (room.VideoState, error)
	// playlist
	GetPlaylistState(ctx context.Context, roomId string) (room.PlaylistState, error)
	AddPlaylistVideo(ctx context.Context, params *room.AddPlaylistVideoParams) (room.PlaylistState, error)
	AdvancePlaylist(ctx context.Context, params *room.AdvancePlaylistParams) (room.PlaylistState, error)
	SelectPlaylistVideo(ctx context.Context, params *room.SelectPlaylistVideoParams) (room.PlaylistState, error)
	// participants
	AddParticipant(ctx context.Context, params *room.AddParticipantParams) error
	RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) (int, error)
	GetParticipantIds(ctx context.Context, roomId string) ([]string, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, clientId string) error
	RemoveByConn(conn *websocket.Conn) error
	GetClientId(conn *websocket.Conn) (string, error)
	GetConn(clientId string) (*websocket.Conn, error)
	AddRoom(clientId, roomId string) error
	RemoveRoom(clientId, roomId string) error
	GetRoomIds(clientId string) ([]string, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	EvictionGrace time.Duration
	PlaylistLimit int
}

type service struct {
	roomRepo      RoomRepo
	connRepo      iConnRepo
	generator     iGenerator
	logger        *slog.Logger
	evictionGrace time.Duration
	playlistLimit int

	evictionsMu sync.Mutex
	evictions   map[string]*time.Timer
}

func NewService(roomRepo RoomRepo, connRepo iConnRepo, logger *slog.Logger, cfg *Config) *service {
	s := service{
		roomRepo:      roomRepo,
		connRepo:      connRepo,
		logger:        logger,
		evictionGrace: cfg.EvictionGrace,
		playlistLimit: cfg.PlaylistLimit,
		evictions:     make(map[string]*time.Timer),
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}

// Close stops all pending eviction timers. Rooms are not deleted; the
// in-memory registry dies with the process anyway.
func (s *service) Close() {
	s.evictionsMu.Lock()
	defer s.evictionsMu.Unlock()

	for roomId, timer := range s.evictions {
		timer.Stop()
		delete(s.evictions, roomId)
	}
}

// getConnsByRoomId resolves the live connections of a room's participants.
// A participant without a connection is skipped, not an error: its
// disconnect cleanup may still be in flight.
func (s *service) getConnsByRoomId(ctx context.Context, roomId string) ([]*websocket.Conn, error) {
	clientIds, err := s.roomRepo.GetParticipantIds(ctx, roomId)
	if err != nil {
		return nil, err
	}

	conns := make([]*websocket.Conn, 0, len(clientIds))
	for _, clientId := range clientIds {
		conn, err := s.connRepo.GetConn(clientId)
		if err != nil {
			s.logger.DebugContext(ctx, "participant without connection", "client_id", clientId, "room_id", roomId)
			continue
		}

		conns = append(conns, conn)
	}

	return conns, nil
}
