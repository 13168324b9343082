package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/coview/server/internal/repository/connection"
)

type entry struct {
	connection.Entry
	conn connection.Conn
	send chan []byte
}

type repo struct {
	logger     *slog.Logger
	sendBuffer int
	mu         sync.RWMutex
	byConn     map[connection.Conn]*entry
	byConnId   map[string]*entry
	byRoom     map[string]map[string]*entry
}

func NewRepo(sendBuffer int, logger *slog.Logger) *repo {
	return &repo{
		logger:     logger,
		sendBuffer: sendBuffer,
		byConn:     make(map[connection.Conn]*entry),
		byConnId:   make(map[string]*entry),
		byRoom:     make(map[string]map[string]*entry),
	}
}

// Add registers the connection and starts its writer. A previous entry for
// the same connId is replaced, last write wins.
func (r *repo) Add(conn connection.Conn, e connection.Entry) {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "conn_id", e.ConnId, "room_id", e.RoomId, "username", e.Username)
	if old, ok := r.byConnId[e.ConnId]; ok {
		r.removeLocked(old)
	}

	newEntry := &entry{
		Entry: e,
		conn:  conn,
		send:  make(chan []byte, r.sendBuffer),
	}
	r.byConn[conn] = newEntry
	r.byConnId[e.ConnId] = newEntry
	roomConns, ok := r.byRoom[e.RoomId]
	if !ok {
		roomConns = make(map[string]*entry)
		r.byRoom[e.RoomId] = roomConns
	}
	roomConns[e.ConnId] = newEntry

	go r.writePump(newEntry)
}

// writePump drains the entry's send buffer into the websocket. After a
// write failure it keeps draining until the channel is closed so that
// broadcasters never block on a dead peer.
func (r *repo) writePump(e *entry) {
	for payload := range e.send {
		if err := e.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			r.logger.Debug("connection.inmemory.writePump", "conn_id", e.ConnId, "error", err)
			for range e.send {
			}
			return
		}
	}
}

// removeLocked unlinks the entry and closes its send channel. Callers must
// hold the write lock.
func (r *repo) removeLocked(e *entry) {
	delete(r.byConn, e.conn)
	delete(r.byConnId, e.ConnId)
	if roomConns, ok := r.byRoom[e.RoomId]; ok {
		delete(roomConns, e.ConnId)
		if len(roomConns) == 0 {
			delete(r.byRoom, e.RoomId)
		}
	}
	close(e.send)
}

func (r *repo) RemoveByConn(conn connection.Conn) (connection.Entry, error) {
	funcName := "connection.inmemory.RemoveByConn"
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byConn[conn]
	if !ok {
		return connection.Entry{}, connection.ErrNotFound
	}
	r.removeLocked(e)

	r.logger.Debug(funcName, "conn_id", e.ConnId)
	return e.Entry, nil
}

func (r *repo) RemoveByConnId(connId string) (connection.Entry, error) {
	funcName := "connection.inmemory.RemoveByConnId"
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byConnId[connId]
	if !ok {
		return connection.Entry{}, connection.ErrNotFound
	}
	r.removeLocked(e)

	r.logger.Debug(funcName, "conn_id", connId)
	return e.Entry, nil
}

func (r *repo) GetByConn(conn connection.Conn) (connection.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byConn[conn]
	if !ok {
		return connection.Entry{}, connection.ErrNotFound
	}

	return e.Entry, nil
}

// Broadcast enqueues the payload for every connection in the room except
// excludeConnId. A full buffer drops the payload for that recipient only.
func (r *repo) Broadcast(roomId string, payload []byte, excludeConnId string) {
	funcName := "connection.inmemory.Broadcast"
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connId, e := range r.byRoom[roomId] {
		if connId == excludeConnId {
			continue
		}
		r.enqueue(funcName, e, payload)
	}
}

func (r *repo) Send(connId string, payload []byte) error {
	funcName := "connection.inmemory.Send"
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byConnId[connId]
	if !ok {
		return connection.ErrNotFound
	}
	r.enqueue(funcName, e, payload)

	return nil
}

func (r *repo) CountByRoom(roomId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byRoom[roomId])
}

func (r *repo) enqueue(funcName string, e *entry, payload []byte) {
	select {
	case e.send <- payload:
	default:
		r.logger.Debug(funcName, "conn_id", e.ConnId, "error", "send buffer full, dropping")
	}
}
