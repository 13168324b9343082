package redis

import (
	"context"

	"github.com/coview/server/internal/repository/room"
)

func (r repo) getParticipantKey(participantId string) string {
	return "participant:" + participantId
}

func (r repo) getParticipantListKey(roomId string) string {
	return "room:" + roomId + ":participants"
}

func (r repo) SetParticipant(ctx context.Context, params *room.SetParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	participantKey := r.getParticipantKey(params.ParticipantId)
	r.HSetStruct(ctx, pipe, participantKey, room.Participant{
		RoomId:   params.RoomId,
		Username: params.Username,
		JoinedAt: params.JoinedAt,
	})
	pipe.Expire(ctx, participantKey, r.roomTTL)

	participantListKey := r.getParticipantListKey(params.RoomId)
	r.addWithIncrement(ctx, pipe, participantListKey, params.ParticipantId)
	pipe.Expire(ctx, participantListKey, r.roomTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	removed, err := r.rc.ZRem(ctx, r.getParticipantListKey(params.RoomId), params.ParticipantId).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if removed == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.ErrParticipantNotFound
	}

	if err := r.rc.Del(ctx, r.getParticipantKey(params.ParticipantId)).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetParticipantIds(ctx context.Context, roomId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	participantIds, err := r.rc.ZRange(ctx, r.getParticipantListKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return participantIds, nil
}

func (r repo) GetParticipant(ctx context.Context, params *room.GetParticipantParams) (room.Participant, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	cmd := r.rc.HGetAll(ctx, r.getParticipantKey(params.ParticipantId))
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Participant{}, err
	}

	if len(cmd.Val()) == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.Participant{}, room.ErrParticipantNotFound
	}

	var participant room.Participant
	if err := cmd.Scan(&participant); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Participant{}, err
	}

	return participant, nil
}
