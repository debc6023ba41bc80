package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jothamteshome/watch-together/internal/service/room"
	"github.com/jothamteshome/watch-together/pkg/validator"
	"github.com/jothamteshome/watch-together/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(ctx context.Context) (room.CreateRoomResponse, error)
	GetVideoState(ctx context.Context, roomId string) (room.VideoState, error)
	ConnectClient(ctx context.Context, params *room.ConnectClientParams) error
	DisconnectClient(ctx context.Context, params *room.DisconnectClientParams) (room.DisconnectClientResponse, error)
	JoinRoom(ctx context.Context, params *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(ctx context.Context, params *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	SetVideo(ctx context.Context, params *room.SetVideoParams) (room.SetVideoResponse, error)
	PlayVideo(ctx context.Context, params *room.UpdatePlaybackParams) (room.UpdatePlaybackResponse, error)
	PauseVideo(ctx context.Context, params *room.UpdatePlaybackParams) (room.UpdatePlaybackResponse, error)
	SeekVideo(ctx context.Context, params *room.UpdatePlaybackParams) (room.UpdatePlaybackResponse, error)
	ChangePlaybackRate(ctx context.Context, params *room.UpdatePlaybackParams) (room.UpdatePlaybackResponse, error)
	AddPlaylistVideo(ctx context.Context, params *room.AddPlaylistVideoParams) (room.PlaylistResponse, error)
	AdvancePlaylist(ctx context.Context, params *room.AdvancePlaylistParams) (room.PlaylistResponse, error)
	SelectPlaylistVideo(ctx context.Context, params *room.SelectPlaylistVideoParams) (room.PlaylistResponse, error)
	SendChatMessage(ctx context.Context, params *room.SendChatMessageParams) (room.SendChatMessageResponse, error)
}

type controller struct {
	roomService iRoomService
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	writeLocks  sync.Map
}

func NewController(roomService iRoomService, logger *slog.Logger) *controller {
	c := controller{
		roomService: roomService,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
	}
	c.wsmux = c.getWSRouter()

	return &c
}

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New(c.writeToConn)

	// presence
	mux.Handle("room:join", c.handleJoinRoom)
	mux.Handle("room:leave", c.handleLeaveRoom)

	// video
	mux.Handle("video:set", c.handleSetVideo)
	mux.Handle("video:play", c.handlePlayVideo)
	mux.Handle("video:pause", c.handlePauseVideo)
	mux.Handle("video:seek", c.handleSeekVideo)
	mux.Handle("video:playbackrate", c.handleChangePlaybackRate)

	// playlist
	mux.Handle("playlist:add", c.handlePlaylistAdd)
	mux.Handle("playlist:next", c.handlePlaylistNext)
	mux.Handle("playlist:select", c.handlePlaylistSelect)

	// chat
	mux.Handle("chat:message", c.handleChatMessage)

	return mux
}
