package controller

import (
	"context"

	"github.com/coview/server/internal/repository/connection"
)

type contextKey int

const (
	connIdCtxKey contextKey = iota
	connCtxKey
)

func (c *controller) getConnIdFromCtx(ctx context.Context) string {
	connId, ok := ctx.Value(connIdCtxKey).(string)
	if !ok {
		return ""
	}

	return connId
}

// getConnFromCtx returns the write-serialized conn established at upgrade
// time. All service calls must use it instead of the raw websocket.
func (c *controller) getConnFromCtx(ctx context.Context) connection.Conn {
	conn, ok := ctx.Value(connCtxKey).(connection.Conn)
	if !ok {
		return nil
	}

	return conn
}
