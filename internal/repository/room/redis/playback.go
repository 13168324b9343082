package redis

import (
	"context"

	"github.com/coview/server/internal/repository/room"
)

func (r repo) getPlaybackKey(roomId string) string {
	return "room:" + roomId + ":playback"
}

// SetPlayback fully replaces the playback row. Last writer wins, there is
// no version check.
func (r repo) SetPlayback(ctx context.Context, params *room.SetPlaybackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	playbackKey := r.getPlaybackKey(params.RoomId)
	r.HSetStruct(ctx, pipe, playbackKey, room.Playback{
		IsPlaying:   params.IsPlaying,
		CurrentTime: params.CurrentTime,
		UpdatedAt:   params.UpdatedAt,
	})
	pipe.Expire(ctx, playbackKey, r.roomTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetPlayback(ctx context.Context, roomId string) (room.Playback, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	cmd := r.rc.HGetAll(ctx, r.getPlaybackKey(roomId))
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Playback{}, err
	}

	if len(cmd.Val()) == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrPlaybackNotFound)
		return room.Playback{}, room.ErrPlaybackNotFound
	}

	var playback room.Playback
	if err := cmd.Scan(&playback); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Playback{}, err
	}

	return playback, nil
}
