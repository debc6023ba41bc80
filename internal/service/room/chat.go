package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jothamteshome/watch-together/internal/repository/room"
)

const systemAuthor = "[SYSTEM]"

type SendChatMessageParams struct {
	SenderId string
	RoomId   string
	Text     string
}

type SendChatMessageResponse struct {
	Message ChatMessage
	Conns   []*websocket.Conn
}

// SendChatMessage relays a chat message to the room. Chat carries no event
// ids: it is a plain unordered broadcast.
func (s *service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) (SendChatMessageResponse, error) {
	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			s.logger.InfoContext(ctx, "chat message for missing room dropped", "room_id", params.RoomId)
			return SendChatMessageResponse{}, ErrRoomNotFound
		}
		return SendChatMessageResponse{}, fmt.Errorf("failed to get conns by room id: %w", err)
	}

	return SendChatMessageResponse{
		Message: ChatMessage{
			Id:        uuid.NewString(),
			Author:    params.SenderId,
			Text:      params.Text,
			Timestamp: time.Now().UnixMilli(),
		},
		Conns: conns,
	}, nil
}

func (s *service) systemMessage(text string) ChatMessage {
	return ChatMessage{
		Id:        uuid.NewString(),
		Author:    systemAuthor,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
}
