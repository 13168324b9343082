package room

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/coview/server/internal/repository/connection"
	"github.com/coview/server/internal/repository/room"
)

type SendMessageParams struct {
	Conn    connection.Conn
	Content string
}

type SendMessageResponse struct {
	Message Message
}

// SendMessage appends a user message and broadcasts it to the whole room,
// sender included. The sender reconciles by append, there is no optimistic
// local echo.
func (s *service) SendMessage(ctx context.Context, params *SendMessageParams) (SendMessageResponse, error) {
	entry, err := s.registry.GetByConn(params.Conn)
	if err != nil {
		return SendMessageResponse{}, ErrNotInRoom
	}

	lock := s.roomLock(entry.RoomId)
	lock.Lock()
	defer lock.Unlock()

	messageId := ulid.Make().String()
	timestamp := time.Now().UnixMilli()

	if err := s.roomRepo.AddMessage(ctx, &room.AddMessageParams{
		MessageId: messageId,
		RoomId:    entry.RoomId,
		Username:  entry.Username,
		Content:   params.Content,
		Type:      room.MessageTypeUser,
		Timestamp: timestamp,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to add message", "error", err)
		return SendMessageResponse{}, err
	}

	message := Message{
		Id:        messageId,
		Username:  entry.Username,
		Content:   params.Content,
		Type:      room.MessageTypeUser,
		Timestamp: timestamp,
	}

	s.broadcastToRoom(ctx, entry.RoomId, &Output{
		Type:    "chat_message",
		Payload: message,
	}, "")

	return SendMessageResponse{Message: message}, nil
}
