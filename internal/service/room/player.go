package room

import (
	"context"
	"time"

	"github.com/coview/server/internal/repository/connection"
	"github.com/coview/server/internal/repository/room"
)

type UpdatePlaybackParams struct {
	Conn        connection.Conn
	IsPlaying   bool
	CurrentTime int
}

type UpdatePlaybackResponse struct {
	Playback Playback
}

// UpdatePlayback overwrites the room's playback state and broadcasts it to
// everyone except the sender. Any active connection may author an update;
// the host-only restriction is client-side only.
func (s *service) UpdatePlayback(ctx context.Context, params *UpdatePlaybackParams) (UpdatePlaybackResponse, error) {
	entry, err := s.registry.GetByConn(params.Conn)
	if err != nil {
		return UpdatePlaybackResponse{}, ErrNotInRoom
	}

	lock := s.roomLock(entry.RoomId)
	lock.Lock()
	defer lock.Unlock()

	updatedAt := time.Now().UnixMilli()
	if err := s.roomRepo.SetPlayback(ctx, &room.SetPlaybackParams{
		RoomId:      entry.RoomId,
		IsPlaying:   params.IsPlaying,
		CurrentTime: params.CurrentTime,
		UpdatedAt:   updatedAt,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set playback", "error", err)
		return UpdatePlaybackResponse{}, err
	}

	playback := Playback{
		IsPlaying:   params.IsPlaying,
		CurrentTime: params.CurrentTime,
		UpdatedAt:   updatedAt,
	}

	s.broadcastToRoom(ctx, entry.RoomId, &Output{
		Type:    "video_state",
		Payload: playback,
	}, entry.ConnId)

	return UpdatePlaybackResponse{Playback: playback}, nil
}
