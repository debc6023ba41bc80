package room

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connmemory "github.com/jothamteshome/watch-together/internal/repository/connection/inmemory"
	roommemory "github.com/jothamteshome/watch-together/internal/repository/room/inmemory"
	roomredis "github.com/jothamteshome/watch-together/internal/repository/room/redis"
)

func newTestService(t *testing.T, cfg *Config) *service {
	t.Helper()

	s := NewService(roommemory.NewRepo(), connmemory.NewRepo(), slog.Default(), cfg)
	t.Cleanup(s.Close)
	return s
}

func TestRoomFlow(t *testing.T) {
	slog.SetLogLoggerLevel(slog.LevelDebug)
	service := newTestService(t, &Config{EvictionGrace: time.Hour, PlaylistLimit: 25})

	ctx := context.Background()

	// create room
	createRoomResp, err := service.CreateRoom(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, createRoomResp.RoomId, "room id is empty")

	// client 1 connects and joins
	conn1 := &websocket.Conn{}
	err = service.ConnectClient(ctx, &ConnectClientParams{Conn: conn1, ClientId: "client-1"})
	require.NoError(t, err)

	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)
	assert.Equal(t, 0, joinRoomResp.Video.EventId)
	assert.Equal(t, -1, joinRoomResp.Playlist.CurrentIndex)
	assert.Equal(t, systemAuthor, joinRoomResp.SystemMessage.Author)
	assert.Equal(t, 1, len(joinRoomResp.Conns), "conns must contain 1 conn")

	// client 2 connects and joins
	conn2 := &websocket.Conn{}
	err = service.ConnectClient(ctx, &ConnectClientParams{Conn: conn2, ClientId: "client-2"})
	require.NoError(t, err)

	joinRoomResp, err = service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-2", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)
	assert.Equal(t, 2, len(joinRoomResp.Conns), "conns must contain 2 conns")

	// client 1 sets a video
	setVideoResp, err := service.SetVideo(ctx, &SetVideoParams{
		SenderId: "client-1",
		RoomId:   createRoomResp.RoomId,
		VideoURL: "https://youtu.be/dQw4w9WgXcQ",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, setVideoResp.Video.EventId)
	assert.True(t, setVideoResp.Video.IsPlaying)
	assert.Equal(t, 2, len(setVideoResp.Conns))

	// client 2 pauses with the observed version
	pauseResp, err := service.PauseVideo(ctx, &UpdatePlaybackParams{
		SenderId:     "client-2",
		RoomId:       createRoomResp.RoomId,
		EventId:      setVideoResp.Video.EventId,
		CurrentTime:  5,
		PlaybackRate: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, pauseResp.Video.EventId)
	assert.False(t, pauseResp.Video.IsPlaying)

	// client 1 replays the stale version and is dropped
	_, err = service.PlayVideo(ctx, &UpdatePlaybackParams{
		SenderId:     "client-1",
		RoomId:       createRoomResp.RoomId,
		EventId:      setVideoResp.Video.EventId,
		CurrentTime:  0,
		PlaybackRate: 1,
	})
	require.ErrorIs(t, err, ErrStaleEvent)

	// chat relays to everyone
	chatResp, err := service.SendChatMessage(ctx, &SendChatMessageParams{
		SenderId: "client-1",
		RoomId:   createRoomResp.RoomId,
		Text:     "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "client-1", chatResp.Message.Author)
	assert.NotEmpty(t, chatResp.Message.Id)
	assert.Equal(t, 2, len(chatResp.Conns))
}

func TestJoinExtrapolatesPlayingVideo(t *testing.T) {
	service := newTestService(t, &Config{EvictionGrace: time.Hour, PlaylistLimit: 25})
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx)
	require.NoError(t, err)

	require.NoError(t, service.ConnectClient(ctx, &ConnectClientParams{Conn: &websocket.Conn{}, ClientId: "client-1"}))
	_, err = service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)

	_, err = service.SetVideo(ctx, &SetVideoParams{
		SenderId: "client-1",
		RoomId:   createRoomResp.RoomId,
		VideoURL: "video-a",
	})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, service.ConnectClient(ctx, &ConnectClientParams{Conn: &websocket.Conn{}, ClientId: "client-2"}))
	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-2", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)
	assert.Greater(t, joinRoomResp.Video.CurrentTime, 0.05, "late joiner must see the extrapolated position")
	assert.Less(t, joinRoomResp.Video.CurrentTime, 5.0)
}

func TestPlaylistLimit(t *testing.T) {
	service := newTestService(t, &Config{EvictionGrace: time.Hour, PlaylistLimit: 2})
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx)
	require.NoError(t, err)
	require.NoError(t, service.ConnectClient(ctx, &ConnectClientParams{Conn: &websocket.Conn{}, ClientId: "client-1"}))
	_, err = service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)

	addResp, err := service.AddPlaylistVideo(ctx, &AddPlaylistVideoParams{
		SenderId: "client-1",
		RoomId:   createRoomResp.RoomId,
		EventId:  0,
		VideoURL: "video-a",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, addResp.Playlist.CurrentIndex, "first add selects the appended item")

	addResp, err = service.AddPlaylistVideo(ctx, &AddPlaylistVideoParams{
		SenderId: "client-1",
		RoomId:   createRoomResp.RoomId,
		EventId:  addResp.Playlist.EventId,
		VideoURL: "video-b",
	})
	require.NoError(t, err)

	_, err = service.AddPlaylistVideo(ctx, &AddPlaylistVideoParams{
		SenderId: "client-1",
		RoomId:   createRoomResp.RoomId,
		EventId:  addResp.Playlist.EventId,
		VideoURL: "video-c",
	})
	require.ErrorIs(t, err, ErrPlaylistLimitReached)
}

func TestEvictionAfterGrace(t *testing.T) {
	service := newTestService(t, &Config{EvictionGrace: 50 * time.Millisecond, PlaylistLimit: 25})
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx)
	require.NoError(t, err)
	require.NoError(t, service.ConnectClient(ctx, &ConnectClientParams{Conn: &websocket.Conn{}, ClientId: "client-1"}))
	_, err = service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)

	_, err = service.LeaveRoom(ctx, &LeaveRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)

	// the empty room survives the grace period, then goes away
	_, err = service.GetVideoState(ctx, createRoomResp.RoomId)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := service.GetVideoState(ctx, createRoomResp.RoomId)
		return err != nil
	}, time.Second, 10*time.Millisecond, "empty room must be evicted after the grace period")
}

func TestRejoinCancelsEviction(t *testing.T) {
	service := newTestService(t, &Config{EvictionGrace: 100 * time.Millisecond, PlaylistLimit: 25})
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx)
	require.NoError(t, err)
	require.NoError(t, service.ConnectClient(ctx, &ConnectClientParams{Conn: &websocket.Conn{}, ClientId: "client-1"}))
	_, err = service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)

	_, err = service.LeaveRoom(ctx, &LeaveRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)

	// rejoin before the grace period elapses
	_, err = service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	_, err = service.GetVideoState(ctx, createRoomResp.RoomId)
	require.NoError(t, err, "rejoin must cancel the pending eviction")
}

func TestDisconnectCleansUpRooms(t *testing.T) {
	service := newTestService(t, &Config{EvictionGrace: time.Hour, PlaylistLimit: 25})
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx)
	require.NoError(t, err)

	conn1 := &websocket.Conn{}
	require.NoError(t, service.ConnectClient(ctx, &ConnectClientParams{Conn: conn1, ClientId: "client-1"}))
	_, err = service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)

	conn2 := &websocket.Conn{}
	require.NoError(t, service.ConnectClient(ctx, &ConnectClientParams{Conn: conn2, ClientId: "client-2"}))
	_, err = service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-2", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)

	disconnectResp, err := service.DisconnectClient(ctx, &DisconnectClientParams{Conn: conn1})
	require.NoError(t, err)
	require.Equal(t, 1, len(disconnectResp.Notifications))
	assert.Equal(t, createRoomResp.RoomId, disconnectResp.Notifications[0].RoomId)
	assert.Equal(t, 1, len(disconnectResp.Notifications[0].Conns), "only the remaining client is notified")

	// the disconnected connection is unknown now
	_, err = service.DisconnectClient(ctx, &DisconnectClientParams{Conn: conn1})
	require.Error(t, err)
}

func TestServiceWithRedisStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	service := NewService(roomredis.NewRepo(rc, 24*time.Hour), connmemory.NewRepo(), slog.Default(), &Config{
		EvictionGrace: time.Hour,
		PlaylistLimit: 25,
	})
	t.Cleanup(service.Close)

	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx)
	require.NoError(t, err)

	require.NoError(t, service.ConnectClient(ctx, &ConnectClientParams{Conn: &websocket.Conn{}, ClientId: "client-1"}))
	joinRoomResp, err := service.JoinRoom(ctx, &JoinRoomParams{ClientId: "client-1", RoomId: createRoomResp.RoomId})
	require.NoError(t, err)
	assert.Equal(t, 1, len(joinRoomResp.Conns))

	setVideoResp, err := service.SetVideo(ctx, &SetVideoParams{
		SenderId: "client-1",
		RoomId:   createRoomResp.RoomId,
		VideoURL: "video-a",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, setVideoResp.Video.EventId)
}
