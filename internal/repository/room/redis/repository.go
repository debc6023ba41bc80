package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

// repo stores room state in redis hashes. Ordering guarantees are provided by
// an in-process lock per room id: this server is assumed to be the single
// authoritative process for its rooms. The TTL is a safety net against keys
// leaking when eviction timers are lost on restart.
type repo struct {
	rc             *redis.Client
	expireDuration time.Duration

	mu    sync.Mutex
	locks map[string]*roomLock
}

// roomLock is refcounted so its map entry lives only while someone holds or
// waits for it. Without the count, probing random room ids (REST lookups of
// rooms that never existed) would grow the map forever.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewRepo(rc *redis.Client, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		expireDuration: expireDuration,
		locks:          make(map[string]*roomLock),
	}
}

func (r *repo) lockRoom(roomId string) func() {
	r.mu.Lock()
	lock, ok := r.locks[roomId]
	if !ok {
		lock = &roomLock{}
		r.locks[roomId] = lock
	}
	lock.refs++
	r.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		r.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(r.locks, roomId)
		}
		r.mu.Unlock()
	}
}

func (r *repo) getVideoKey(roomId string) string {
	return "room:" + roomId + ":video"
}

func (r *repo) getPlaylistKey(roomId string) string {
	return "room:" + roomId + ":playlist"
}

func (r *repo) getPlaylistItemsKey(roomId string) string {
	return "room:" + roomId + ":playlist:items"
}

func (r *repo) getParticipantsKey(roomId string) string {
	return "room:" + roomId + ":participants"
}

func (r *repo) roomExists(ctx context.Context, roomId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getVideoKey(roomId)).Result()
	if err != nil {
		return false, err
	}

	return res > 0, nil
}

func (r *repo) CreateRoom(ctx context.Context, roomId string) error {
	unlock := r.lockRoom(roomId)
	defer unlock()

	exists, err := r.roomExists(ctx, roomId)
	if err != nil {
		return err
	}
	if exists {
		return room.ErrRoomAlreadyExists
	}

	if err := r.setVideoState(ctx, roomId, room.NewVideoState(time.Now())); err != nil {
		return err
	}

	return r.setPlaylistMeta(ctx, roomId, room.NewPlaylistState())
}

func (r *repo) RemoveRoom(ctx context.Context, roomId string) error {
	unlock := r.lockRoom(roomId)
	defer unlock()

	exists, err := r.roomExists(ctx, roomId)
	if err != nil {
		return err
	}
	if !exists {
		return room.ErrRoomNotFound
	}

	return r.rc.Del(ctx,
		r.getVideoKey(roomId),
		r.getPlaylistKey(roomId),
		r.getPlaylistItemsKey(roomId),
		r.getParticipantsKey(roomId),
	).Err()
}
