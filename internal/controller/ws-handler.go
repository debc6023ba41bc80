package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jothamteshome/watch-together/internal/service/room"
	"github.com/jothamteshome/watch-together/pkg/ctxlogger"
	"github.com/jothamteshome/watch-together/pkg/videoref"
)

// serveWS upgrades the connection and pumps messages until the client goes
// away, then runs disconnect cleanup for every room the client had joined.
func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	clientId := uuid.NewString()
	if err := c.roomService.ConnectClient(r.Context(), &room.ConnectClientParams{
		Conn:     conn,
		ClientId: clientId,
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect client", "error", err)
		return
	}
	defer c.disconnect(r.Context(), conn)

	if err := c.writeToConn(r.Context(), conn, &Output{
		Type:    "session",
		Payload: map[string]any{"client_id": clientId},
	}); err != nil {
		return
	}

	ctx := context.WithValue(r.Context(), clientIdCtxKey, clientId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("client_id", clientId))

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "websocket closed", "error", err)
	}
}

func (c *controller) disconnect(ctx context.Context, conn *websocket.Conn) {
	resp, err := c.roomService.DisconnectClient(ctx, &room.DisconnectClientParams{Conn: conn})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to disconnect client", "error", err)
	}

	for _, notification := range resp.Notifications {
		c.broadcast(ctx, notification.Conns, &Output{
			Type:    "chat:sync",
			Payload: notification.Message,
		})
	}

	c.releaseWriteLock(conn)
}

// unmarshalPayload decodes and validates an inbound payload. The returned
// error goes back to the sender only.
func (c *controller) unmarshalPayload(payload json.RawMessage, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		return fmt.Errorf("invalid payload: %s", validationErrors[0].Message)
	}

	return nil
}

// dropped reports whether an error is one the protocol swallows: stale
// claims and vanished rooms are no-ops, never surfaced to anyone.
func dropped(err error) bool {
	return errors.Is(err, room.ErrStaleEvent) || errors.Is(err, room.ErrRoomNotFound)
}

type JoinRoomInput struct {
	RoomId string `json:"room_id" validate:"required"`
}

func (c *controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input JoinRoomInput
	if err := c.unmarshalPayload(payload, &input); err != nil {
		return err
	}

	joinRoomResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		ClientId: c.getClientIdFromCtx(ctx),
		RoomId:   input.RoomId,
	})
	if err != nil {
		if dropped(err) {
			return nil
		}
		return fmt.Errorf("failed to join room: %w", err)
	}

	// reconciliation snapshot goes to the joiner only
	if err := c.writeToConn(ctx, conn, &Output{Type: "video:sync", Payload: joinRoomResp.Video}); err != nil {
		return nil
	}
	if err := c.writeToConn(ctx, conn, &Output{Type: "playlist:sync", Payload: joinRoomResp.Playlist}); err != nil {
		return nil
	}

	c.broadcast(ctx, joinRoomResp.Conns, &Output{Type: "chat:sync", Payload: joinRoomResp.SystemMessage})

	return nil
}

type LeaveRoomInput struct {
	RoomId string `json:"room_id" validate:"required"`
}

func (c *controller) handleLeaveRoom(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input LeaveRoomInput
	if err := c.unmarshalPayload(payload, &input); err != nil {
		return err
	}

	leaveRoomResp, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		ClientId: c.getClientIdFromCtx(ctx),
		RoomId:   input.RoomId,
	})
	if err != nil {
		if dropped(err) {
			return nil
		}
		return fmt.Errorf("failed to leave room: %w", err)
	}

	c.broadcast(ctx, leaveRoomResp.Conns, &Output{Type: "chat:sync", Payload: leaveRoomResp.SystemMessage})

	return nil
}

type SetVideoInput struct {
	RoomId   string `json:"room_id" validate:"required"`
	VideoURL string `json:"video_url" validate:"required"`
}

func (c *controller) handleSetVideo(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input SetVideoInput
	if err := c.unmarshalPayload(payload, &input); err != nil {
		return err
	}

	// invalid references bounce back to the sender, never to the room
	if _, err := videoref.Extract(input.VideoURL); err != nil {
		return err
	}

	setVideoResp, err := c.roomService.SetVideo(ctx, &room.SetVideoParams{
		SenderId: c.getClientIdFromCtx(ctx),
		RoomId:   input.RoomId,
		VideoURL: input.VideoURL,
	})
	if err != nil {
		if dropped(err) {
			return nil
		}
		return fmt.Errorf("failed to set video: %w", err)
	}

	c.broadcast(ctx, setVideoResp.Conns, &Output{Type: "video:sync", Payload: setVideoResp.Video})

	return nil
}

type UpdatePlaybackInput struct {
	RoomId       string  `json:"room_id" validate:"required"`
	Time         float64 `json:"time" validate:"gte=0"`
	PlaybackRate float64 `json:"playback_rate" validate:"gt=0"`
	EventId      int     `json:"event_id" validate:"gte=0"`
}

func (c *controller) handlePlayVideo(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	return c.handlePlayback(ctx, payload, c.roomService.PlayVideo)
}

func (c *controller) handlePauseVideo(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	return c.handlePlayback(ctx, payload, c.roomService.PauseVideo)
}

func (c *controller) handleSeekVideo(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	return c.handlePlayback(ctx, payload, c.roomService.SeekVideo)
}

func (c *controller) handleChangePlaybackRate(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	return c.handlePlayback(ctx, payload, c.roomService.ChangePlaybackRate)
}

func (c *controller) handlePlayback(
	ctx context.Context,
	payload json.RawMessage,
	op func(context.Context, *room.UpdatePlaybackParams) (room.UpdatePlaybackResponse, error),
) error {
	var input UpdatePlaybackInput
	if err := c.unmarshalPayload(payload, &input); err != nil {
		return err
	}

	resp, err := op(ctx, &room.UpdatePlaybackParams{
		SenderId:     c.getClientIdFromCtx(ctx),
		RoomId:       input.RoomId,
		EventId:      input.EventId,
		CurrentTime:  input.Time,
		PlaybackRate: input.PlaybackRate,
	})
	if err != nil {
		if dropped(err) {
			return nil
		}
		return fmt.Errorf("failed to update playback: %w", err)
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "video:sync", Payload: resp.Video})

	return nil
}

type PlaylistAddInput struct {
	RoomId   string `json:"room_id" validate:"required"`
	EventId  int    `json:"event_id" validate:"gte=0"`
	VideoURL string `json:"video_url" validate:"required"`
}

func (c *controller) handlePlaylistAdd(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input PlaylistAddInput
	if err := c.unmarshalPayload(payload, &input); err != nil {
		return err
	}

	if _, err := videoref.Extract(input.VideoURL); err != nil {
		return err
	}

	resp, err := c.roomService.AddPlaylistVideo(ctx, &room.AddPlaylistVideoParams{
		SenderId: c.getClientIdFromCtx(ctx),
		RoomId:   input.RoomId,
		EventId:  input.EventId,
		VideoURL: input.VideoURL,
	})
	if err != nil {
		if dropped(err) {
			return nil
		}
		if errors.Is(err, room.ErrPlaylistLimitReached) {
			return err
		}
		return fmt.Errorf("failed to add playlist video: %w", err)
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "playlist:sync", Payload: resp.Playlist})

	return nil
}

type PlaylistNextInput struct {
	RoomId  string `json:"room_id" validate:"required"`
	EventId int    `json:"event_id" validate:"gte=0"`
}

func (c *controller) handlePlaylistNext(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input PlaylistNextInput
	if err := c.unmarshalPayload(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.AdvancePlaylist(ctx, &room.AdvancePlaylistParams{
		SenderId: c.getClientIdFromCtx(ctx),
		RoomId:   input.RoomId,
		EventId:  input.EventId,
	})
	if err != nil {
		if dropped(err) {
			return nil
		}
		return fmt.Errorf("failed to advance playlist: %w", err)
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "playlist:sync", Payload: resp.Playlist})

	return nil
}

type PlaylistSelectInput struct {
	RoomId  string `json:"room_id" validate:"required"`
	EventId int    `json:"event_id" validate:"gte=0"`
	Index   int    `json:"index" validate:"gte=0"`
}

func (c *controller) handlePlaylistSelect(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input PlaylistSelectInput
	if err := c.unmarshalPayload(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.SelectPlaylistVideo(ctx, &room.SelectPlaylistVideoParams{
		SenderId: c.getClientIdFromCtx(ctx),
		RoomId:   input.RoomId,
		EventId:  input.EventId,
		Index:    input.Index,
	})
	if err != nil {
		if dropped(err) {
			return nil
		}
		if errors.Is(err, room.ErrIndexOutOfRange) {
			return err
		}
		return fmt.Errorf("failed to select playlist video: %w", err)
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "playlist:sync", Payload: resp.Playlist})

	return nil
}

type ChatMessageInput struct {
	RoomId string `json:"room_id" validate:"required"`
	Msg    string `json:"msg" validate:"required,max=2000"`
}

func (c *controller) handleChatMessage(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input ChatMessageInput
	if err := c.unmarshalPayload(payload, &input); err != nil {
		return err
	}

	resp, err := c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		SenderId: c.getClientIdFromCtx(ctx),
		RoomId:   input.RoomId,
		Text:     input.Msg,
	})
	if err != nil {
		if dropped(err) {
			return nil
		}
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "chat:sync", Payload: resp.Message})

	return nil
}
