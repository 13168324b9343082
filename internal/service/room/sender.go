package room

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/coview/server/internal/repository/connection"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type newPeerPayload struct {
	PeerId   string `json:"peer_id"`
	Username string `json:"username"`
}

type peerLeftPayload struct {
	Username string `json:"username"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinRoomSuccessPayload struct {
	Room         Room          `json:"room"`
	Participants []Participant `json:"participants"`
	Messages     []Message     `json:"messages"`
}

func (s *service) marshalOutput(ctx context.Context, output *Output) ([]byte, bool) {
	payload, err := json.Marshal(output)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to marshal output", "type", output.Type, "error", err)
		return nil, false
	}

	return payload, true
}

func (s *service) sendToConnId(ctx context.Context, connId string, output *Output) {
	payload, ok := s.marshalOutput(ctx, output)
	if !ok {
		return
	}

	if err := s.registry.Send(connId, payload); err != nil {
		s.logger.DebugContext(ctx, "failed to send", "conn_id", connId, "type", output.Type, "error", err)
	}
}

func (s *service) broadcastToRoom(ctx context.Context, roomId string, output *Output, excludeConnId string) {
	payload, ok := s.marshalOutput(ctx, output)
	if !ok {
		return
	}

	s.registry.Broadcast(roomId, payload, excludeConnId)
}

// SendError reports an error to a single connection. Registered connections
// receive it through their writer. The direct write requires a conn whose
// writes are serialized (connection.SyncConn): a removed entry's writer may
// still be draining frames to the same transport.
func (s *service) SendError(ctx context.Context, conn connection.Conn, message string) {
	output := Output{Type: "error", Payload: errorPayload{Message: message}}

	entry, err := s.registry.GetByConn(conn)
	if err == nil {
		s.sendToConnId(ctx, entry.ConnId, &output)
		return
	}

	payload, ok := s.marshalOutput(ctx, &output)
	if !ok {
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.DebugContext(ctx, "failed to write error", "error", err)
	}
}
