package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/coview/server/internal/service/room"
	"github.com/coview/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Handle("join_room", wsrouter.Typed(c.handleJoinRoom))
	mux.Handle("leave_room", wsrouter.Typed(c.handleLeaveRoom))
	mux.Handle("chat_message", wsrouter.Typed(c.handleChatMessage))
	mux.Handle("video_state", wsrouter.Typed(c.handleVideoState))

	mux.OnError(func(ctx context.Context, conn *websocket.Conn, messageType string, err error) {
		c.logger.DebugContext(ctx, "handler failed", "message_type", messageType, "error", err)

		target := c.getConnFromCtx(ctx)
		if target == nil {
			target = conn
		}
		c.roomService.SendError(ctx, target, errorMessage(err))
	})

	return mux
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, room.ErrRoomFull):
		return "room is full"
	case errors.Is(err, room.ErrNotInRoom):
		return "not in a room"
	case errors.Is(err, room.ErrAlreadyInRoom):
		return "already in a room"
	case errors.Is(err, wsrouter.ErrMalformedPayload):
		return "malformed payload"
	default:
		return "internal error"
	}
}
