package connection

import (
	"errors"
	"sync"
)

var (
	ErrNotFound = errors.New("connection not found")
)

// Conn is the writable side of a registered connection. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// SyncConn serializes writes to the underlying connection. gorilla only
// allows one concurrent writer, and after an entry is removed its writer
// may still be draining buffered frames while another caller writes the
// same conn directly. Wrapping the conn once at the transport boundary
// puts both writers behind the same lock.
type SyncConn struct {
	mu   sync.Mutex
	conn Conn
}

func NewSyncConn(conn Conn) *SyncConn {
	return &SyncConn{conn: conn}
}

func (c *SyncConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteMessage(messageType, data)
}

func (c *SyncConn) Close() error {
	return c.conn.Close()
}

// Entry is the bookkeeping record for one live connection. It is never
// persisted.
type Entry struct {
	ConnId        string
	RoomId        string
	Username      string
	ParticipantId string
}
