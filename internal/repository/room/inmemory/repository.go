package inmemory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/maps"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

type roomState struct {
	mu           sync.Mutex
	video        room.VideoState
	playlist     room.PlaylistState
	participants map[string]struct{}
}

// repo is the default authoritative registry: one mutex per room serializes
// every read-modify-write for that room, different rooms never contend.
type repo struct {
	mu    sync.RWMutex
	rooms map[string]*roomState
}

func NewRepo() *repo {
	return &repo{
		rooms: make(map[string]*roomState),
	}
}

func (r *repo) getRoom(roomId string) (*roomState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.rooms[roomId]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	return rs, nil
}

func (r *repo) CreateRoom(ctx context.Context, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomId]; ok {
		return room.ErrRoomAlreadyExists
	}

	r.rooms[roomId] = &roomState{
		video:        room.NewVideoState(time.Now()),
		playlist:     room.NewPlaylistState(),
		participants: make(map[string]struct{}),
	}

	return nil
}

func (r *repo) RemoveRoom(ctx context.Context, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomId]; !ok {
		return room.ErrRoomNotFound
	}

	delete(r.rooms, roomId)
	return nil
}

func (r *repo) GetVideoState(ctx context.Context, roomId string) (room.VideoState, error) {
	rs, err := r.getRoom(roomId)
	if err != nil {
		return room.VideoState{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.video, nil
}

func (r *repo) SetVideo(ctx context.Context, params *room.SetVideoParams) (room.VideoState, error) {
	rs, err := r.getRoom(params.RoomId)
	if err != nil {
		return room.VideoState{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.video = room.ApplySetVideo(rs.video, params.VideoURL, time.Now())
	return rs.video, nil
}

func (r *repo) UpdateVideoState(ctx context.Context, params *room.UpdateVideoStateParams) (room.VideoState, error) {
	rs, err := r.getRoom(params.RoomId)
	if err != nil {
		return room.VideoState{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	updated, err := room.ApplyVideoUpdate(rs.video, params, time.Now())
	if err != nil {
		return room.VideoState{}, err
	}

	rs.video = updated
	return rs.video, nil
}

func (r *repo) SyncVideoState(ctx context.Context, roomId string) (room.VideoState, error) {
	rs, err := r.getRoom(roomId)
	if err != nil {
		return room.VideoState{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.video = room.ExtrapolateVideo(rs.video, time.Now())
	return rs.video, nil
}

func (r *repo) GetPlaylistState(ctx context.Context, roomId string) (room.PlaylistState, error) {
	rs, err := r.getRoom(roomId)
	if err != nil {
		return room.PlaylistState{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.playlist, nil
}

func (r *repo) AddPlaylistVideo(ctx context.Context, params *room.AddPlaylistVideoParams) (room.PlaylistState, error) {
	rs, err := r.getRoom(params.RoomId)
	if err != nil {
		return room.PlaylistState{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	updated, err := room.ApplyPlaylistAdd(rs.playlist, params.EventId, params.VideoURL, params.Limit)
	if err != nil {
		return room.PlaylistState{}, err
	}

	rs.playlist = updated
	return rs.playlist, nil
}

func (r *repo) AdvancePlaylist(ctx context.Context, params *room.AdvancePlaylistParams) (room.PlaylistState, error) {
	rs, err := r.getRoom(params.RoomId)
	if err != nil {
		return room.PlaylistState{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	updated, err := room.ApplyPlaylistAdvance(rs.playlist, params.EventId)
	if err != nil {
		return room.PlaylistState{}, err
	}

	rs.playlist = updated
	return rs.playlist, nil
}

func (r *repo) SelectPlaylistVideo(ctx context.Context, params *room.SelectPlaylistVideoParams) (room.PlaylistState, error) {
	rs, err := r.getRoom(params.RoomId)
	if err != nil {
		return room.PlaylistState{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	updated, err := room.ApplyPlaylistSelect(rs.playlist, params.EventId, params.Index)
	if err != nil {
		return room.PlaylistState{}, err
	}

	rs.playlist = updated
	return rs.playlist, nil
}

func (r *repo) AddParticipant(ctx context.Context, params *room.AddParticipantParams) error {
	rs, err := r.getRoom(params.RoomId)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.participants[params.ClientId]; ok {
		return room.ErrParticipantExists
	}

	rs.participants[params.ClientId] = struct{}{}
	return nil
}

func (r *repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) (int, error) {
	rs, err := r.getRoom(params.RoomId)
	if err != nil {
		return 0, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	delete(rs.participants, params.ClientId)
	return len(rs.participants), nil
}

func (r *repo) GetParticipantIds(ctx context.Context, roomId string) ([]string, error) {
	rs, err := r.getRoom(roomId)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	return maps.Keys(rs.participants), nil
}
