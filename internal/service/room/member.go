package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/coview/server/internal/repository/connection"
	"github.com/coview/server/internal/repository/room"
)

type JoinRoomParams struct {
	Conn     connection.Conn
	ConnId   string
	RoomId   string
	Username string
	PeerId   string
}

type JoinRoomResponse struct {
	ParticipantId string
	Room          Room
	Participants  []Participant
	Messages      []Message
}

// JoinRoom runs the whole join sequence under the room lock: register the
// connection, insert the participant row, append the system message, then
// deliver the four join events in protocol order. A store failure after
// registration unregisters the connection before returning.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	if _, err := s.registry.GetByConn(params.Conn); err == nil {
		return JoinRoomResponse{}, ErrAlreadyInRoom
	}

	lock := s.roomLock(params.RoomId)
	lock.Lock()
	defer lock.Unlock()

	roomModel, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		s.logger.InfoContext(ctx, "failed to get room", "error", err)
		return JoinRoomResponse{}, err
	}

	participantIds, err := s.roomRepo.GetParticipantIds(ctx, params.RoomId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get participant ids", "error", err)
		return JoinRoomResponse{}, err
	}
	if len(participantIds) >= s.membersLimit {
		return JoinRoomResponse{}, ErrRoomFull
	}

	participantId := uuid.NewString()
	s.registry.Add(params.Conn, connection.Entry{
		ConnId:        params.ConnId,
		RoomId:        params.RoomId,
		Username:      params.Username,
		ParticipantId: participantId,
	})

	now := time.Now().UnixMilli()
	if err := s.roomRepo.SetParticipant(ctx, &room.SetParticipantParams{
		ParticipantId: participantId,
		RoomId:        params.RoomId,
		Username:      params.Username,
		JoinedAt:      now,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set participant", "error", err)
		s.registry.RemoveByConnId(params.ConnId)
		return JoinRoomResponse{}, err
	}

	joinedMessage, err := s.appendSystemMessage(ctx, params.RoomId, params.Username, fmt.Sprintf("%s joined the room", params.Username))
	if err != nil {
		s.logger.InfoContext(ctx, "failed to add system message", "error", err)
		s.registry.RemoveByConnId(params.ConnId)
		return JoinRoomResponse{}, err
	}

	playback, err := s.roomRepo.GetPlayback(ctx, params.RoomId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get playback", "error", err)
		s.registry.RemoveByConnId(params.ConnId)
		return JoinRoomResponse{}, err
	}

	// the joiner gets the current playback before anything else
	s.sendToConnId(ctx, params.ConnId, &Output{
		Type: "video_state",
		Payload: Playback{
			IsPlaying:   playback.IsPlaying,
			CurrentTime: playback.CurrentTime,
			UpdatedAt:   playback.UpdatedAt,
		},
	})

	// the join announcement must precede the peer introduction
	s.broadcastToRoom(ctx, params.RoomId, &Output{
		Type:    "chat_message",
		Payload: joinedMessage,
	}, "")

	s.broadcastToRoom(ctx, params.RoomId, &Output{
		Type: "new_peer",
		Payload: newPeerPayload{
			PeerId:   params.PeerId,
			Username: params.Username,
		},
	}, params.ConnId)

	participants, err := s.getParticipants(ctx, params.RoomId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get participants", "error", err)
		s.registry.RemoveByConnId(params.ConnId)
		return JoinRoomResponse{}, err
	}

	messages, err := s.getMessages(ctx, params.RoomId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get messages", "error", err)
		s.registry.RemoveByConnId(params.ConnId)
		return JoinRoomResponse{}, err
	}

	response := JoinRoomResponse{
		ParticipantId: participantId,
		Room: Room{
			Id:        params.RoomId,
			VideoUrl:  roomModel.VideoUrl,
			HostId:    roomModel.HostId,
			CreatedAt: roomModel.CreatedAt,
		},
		Participants: participants,
		Messages:     messages,
	}

	s.sendToConnId(ctx, params.ConnId, &Output{
		Type: "join_room_success",
		Payload: joinRoomSuccessPayload{
			Room:         response.Room,
			Participants: response.Participants,
			Messages:     response.Messages,
		},
	})

	return response, nil
}

type DisconnectParams struct {
	Conn connection.Conn
}

type DisconnectResponse struct {
	Left     bool
	RoomId   string
	Username string
}

// Disconnect is the single leave path, shared by an explicit leave_room and
// the transport closing. Calling it twice for the same connection is a
// no-op: the registry entry is the guard.
func (s *service) Disconnect(ctx context.Context, params *DisconnectParams) (DisconnectResponse, error) {
	entry, err := s.registry.GetByConn(params.Conn)
	if err != nil {
		return DisconnectResponse{}, nil
	}

	lock := s.roomLock(entry.RoomId)
	lock.Lock()
	defer lock.Unlock()

	// an explicit leave and the transport close race to get here; the
	// loser finds the entry gone
	entry, err = s.registry.GetByConn(params.Conn)
	if err != nil {
		return DisconnectResponse{}, nil
	}

	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		ParticipantId: entry.ParticipantId,
		RoomId:        entry.RoomId,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to remove participant", "error", err)
	}

	leftMessage, err := s.appendSystemMessage(ctx, entry.RoomId, entry.Username, fmt.Sprintf("%s left the room", entry.Username))
	if err != nil {
		s.logger.InfoContext(ctx, "failed to add system message", "error", err)
	} else {
		s.broadcastToRoom(ctx, entry.RoomId, &Output{
			Type:    "chat_message",
			Payload: leftMessage,
		}, entry.ConnId)
	}

	s.broadcastToRoom(ctx, entry.RoomId, &Output{
		Type:    "peer_left",
		Payload: peerLeftPayload{Username: entry.Username},
	}, entry.ConnId)

	s.registry.RemoveByConnId(entry.ConnId)

	return DisconnectResponse{
		Left:     true,
		RoomId:   entry.RoomId,
		Username: entry.Username,
	}, nil
}

func (s *service) appendSystemMessage(ctx context.Context, roomId, username, content string) (Message, error) {
	messageId := ulid.Make().String()
	timestamp := time.Now().UnixMilli()

	if err := s.roomRepo.AddMessage(ctx, &room.AddMessageParams{
		MessageId: messageId,
		RoomId:    roomId,
		Username:  username,
		Content:   content,
		Type:      room.MessageTypeSystem,
		Timestamp: timestamp,
	}); err != nil {
		return Message{}, err
	}

	return Message{
		Id:        messageId,
		Username:  username,
		Content:   content,
		Type:      room.MessageTypeSystem,
		Timestamp: timestamp,
	}, nil
}
