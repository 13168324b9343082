package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/coview/server/internal/repository/connection"
	"github.com/coview/server/internal/service/room"
	"github.com/coview/server/pkg/ctxlogger"
)

func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	// a single lock covers the registry writer and any direct write, the
	// wrapped conn is the connection's identity from here on
	syncConn := connection.NewSyncConn(conn)

	connId := uuid.NewString()
	ctx := context.WithValue(r.Context(), connIdCtxKey, connId)
	ctx = context.WithValue(ctx, connCtxKey, syncConn)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", connId))

	defer func() {
		// transport close runs the same cleanup as an explicit leave
		if _, err := c.roomService.Disconnect(context.WithoutCancel(ctx), &room.DisconnectParams{Conn: syncConn}); err != nil {
			c.logger.InfoContext(ctx, "failed to disconnect", "error", err)
		}
	}()

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}

type joinRoomInput struct {
	RoomId   string `json:"room_id"`
	Username string `json:"username"`
	PeerId   string `json:"peer_id"`
}

func (c *controller) handleJoinRoom(ctx context.Context, _ *websocket.Conn, input joinRoomInput) error {
	connId := c.getConnIdFromCtx(ctx)

	if _, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Conn:     c.getConnFromCtx(ctx),
		ConnId:   connId,
		RoomId:   input.RoomId,
		Username: input.Username,
		PeerId:   input.PeerId,
	}); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return nil
}

type leaveRoomInput struct {
	RoomId   string `json:"room_id"`
	Username string `json:"username"`
}

func (c *controller) handleLeaveRoom(ctx context.Context, _ *websocket.Conn, _ leaveRoomInput) error {
	if _, err := c.roomService.Disconnect(ctx, &room.DisconnectParams{Conn: c.getConnFromCtx(ctx)}); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

type chatMessageInput struct {
	RoomId   string `json:"room_id"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

func (c *controller) handleChatMessage(ctx context.Context, _ *websocket.Conn, input chatMessageInput) error {
	if _, err := c.roomService.SendMessage(ctx, &room.SendMessageParams{
		Conn:    c.getConnFromCtx(ctx),
		Content: input.Content,
	}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

type videoStateInput struct {
	RoomId      string `json:"room_id"`
	IsPlaying   bool   `json:"is_playing"`
	CurrentTime int    `json:"current_time"`
}

func (c *controller) handleVideoState(ctx context.Context, _ *websocket.Conn, input videoStateInput) error {
	if _, err := c.roomService.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		Conn:        c.getConnFromCtx(ctx),
		IsPlaying:   input.IsPlaying,
		CurrentTime: input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to update playback: %w", err)
	}

	return nil
}
