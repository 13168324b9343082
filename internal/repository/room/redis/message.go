package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/coview/server/internal/repository/room"
)

func (r repo) getMessageKey(messageId string) string {
	return "message:" + messageId
}

func (r repo) getMessageLogKey(roomId string) string {
	return "room:" + roomId + ":messages"
}

func (r repo) AddMessage(ctx context.Context, params *room.AddMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	messageKey := r.getMessageKey(params.MessageId)
	r.HSetStruct(ctx, pipe, messageKey, room.Message{
		RoomId:    params.RoomId,
		Username:  params.Username,
		Content:   params.Content,
		Type:      params.Type,
		Timestamp: params.Timestamp,
	})
	pipe.Expire(ctx, messageKey, r.roomTTL)

	// scored by timestamp; equal scores fall back to lexicographic member
	// order, which matches insertion order for ulid ids
	messageLogKey := r.getMessageLogKey(params.RoomId)
	pipe.ZAdd(ctx, messageLogKey, redis.Z{Score: float64(params.Timestamp), Member: params.MessageId})
	pipe.Expire(ctx, messageLogKey, r.roomTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetMessageIds(ctx context.Context, roomId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	messageIds, err := r.rc.ZRange(ctx, r.getMessageLogKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return messageIds, nil
}

func (r repo) GetMessage(ctx context.Context, params *room.GetMessageParams) (room.Message, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	cmd := r.rc.HGetAll(ctx, r.getMessageKey(params.MessageId))
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Message{}, err
	}

	if len(cmd.Val()) == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrMessageNotFound)
		return room.Message{}, room.ErrMessageNotFound
	}

	var message room.Message
	if err := cmd.Scan(&message); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Message{}, err
	}

	return message, nil
}
