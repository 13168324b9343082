package room

import (
	"context"

	"github.com/coview/server/internal/repository/room"
)

func (s *service) getParticipants(ctx context.Context, roomId string) ([]Participant, error) {
	participantIds, err := s.roomRepo.GetParticipantIds(ctx, roomId)
	if err != nil {
		return nil, err
	}

	participants := make([]Participant, 0, len(participantIds))
	for _, participantId := range participantIds {
		participant, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
			ParticipantId: participantId,
			RoomId:        roomId,
		})
		if err != nil {
			return nil, err
		}

		participants = append(participants, Participant{
			Id:       participantId,
			Username: participant.Username,
			JoinedAt: participant.JoinedAt,
		})
	}

	return participants, nil
}

func (s *service) getMessages(ctx context.Context, roomId string) ([]Message, error) {
	messageIds, err := s.roomRepo.GetMessageIds(ctx, roomId)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(messageIds))
	for _, messageId := range messageIds {
		message, err := s.roomRepo.GetMessage(ctx, &room.GetMessageParams{
			MessageId: messageId,
			RoomId:    roomId,
		})
		if err != nil {
			return nil, err
		}

		messages = append(messages, Message{
			Id:        messageId,
			Username:  message.Username,
			Content:   message.Content,
			Type:      message.Type,
			Timestamp: message.Timestamp,
		})
	}

	return messages, nil
}
