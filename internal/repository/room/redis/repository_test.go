package redis

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coview/server/internal/repository/room"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})

	return NewRepo(rc, time.Hour, slog.Default())
}

func TestRoomSetGet(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.SetRoom(ctx, &room.SetRoomParams{
		RoomId:    "r1",
		VideoUrl:  "v1",
		HostId:    "alice",
		CreatedAt: 1000,
	})
	require.NoError(t, err)

	roomModel, err := r.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "v1", roomModel.VideoUrl)
	assert.Equal(t, "alice", roomModel.HostId)
	assert.Equal(t, int64(1000), roomModel.CreatedAt)
}

func TestRoomNotFound(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.GetRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestParticipantLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.SetParticipant(ctx, &room.SetParticipantParams{
		ParticipantId: "p1",
		RoomId:        "r1",
		Username:      "alice",
		JoinedAt:      1000,
	})
	require.NoError(t, err)
	err = r.SetParticipant(ctx, &room.SetParticipantParams{
		ParticipantId: "p2",
		RoomId:        "r1",
		Username:      "bob",
		JoinedAt:      2000,
	})
	require.NoError(t, err)

	participantIds, err := r.GetParticipantIds(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, participantIds, "participants must keep join order")

	participant, err := r.GetParticipant(ctx, &room.GetParticipantParams{ParticipantId: "p2", RoomId: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "bob", participant.Username)
	assert.Equal(t, "r1", participant.RoomId)

	err = r.RemoveParticipant(ctx, &room.RemoveParticipantParams{ParticipantId: "p1", RoomId: "r1"})
	require.NoError(t, err)

	participantIds, err = r.GetParticipantIds(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, participantIds)

	err = r.RemoveParticipant(ctx, &room.RemoveParticipantParams{ParticipantId: "p1", RoomId: "r1"})
	assert.ErrorIs(t, err, room.ErrParticipantNotFound)
}

func TestDuplicateUsernamesAllowed(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for _, participantId := range []string{"p1", "p2"} {
		err := r.SetParticipant(ctx, &room.SetParticipantParams{
			ParticipantId: participantId,
			RoomId:        "r1",
			Username:      "alice",
			JoinedAt:      1000,
		})
		require.NoError(t, err)
	}

	participantIds, err := r.GetParticipantIds(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, participantIds, 2)
}

func TestMessageLogOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	// ulid-shaped ids: lexicographic order breaks timestamp ties
	messages := []room.AddMessageParams{
		{MessageId: "01A", RoomId: "r1", Username: "alice", Content: "first", Type: room.MessageTypeUser, Timestamp: 1000},
		{MessageId: "01B", RoomId: "r1", Username: "bob", Content: "second", Type: room.MessageTypeUser, Timestamp: 1000},
		{MessageId: "01C", RoomId: "r1", Username: "", Content: "third", Type: room.MessageTypeSystem, Timestamp: 2000},
	}
	for i := range messages {
		require.NoError(t, r.AddMessage(ctx, &messages[i]))
	}

	messageIds, err := r.GetMessageIds(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"01A", "01B", "01C"}, messageIds)

	message, err := r.GetMessage(ctx, &room.GetMessageParams{MessageId: "01C", RoomId: "r1"})
	require.NoError(t, err)
	assert.Equal(t, room.MessageTypeSystem, message.Type)
	assert.Equal(t, "third", message.Content)
}

func TestPlaybackLastWriterWins(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.SetPlayback(ctx, &room.SetPlaybackParams{RoomId: "r1", IsPlaying: false, CurrentTime: 0, UpdatedAt: 1000})
	require.NoError(t, err)
	err = r.SetPlayback(ctx, &room.SetPlaybackParams{RoomId: "r1", IsPlaying: true, CurrentTime: 5000, UpdatedAt: 2000})
	require.NoError(t, err)

	playback, err := r.GetPlayback(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, playback.IsPlaying)
	assert.Equal(t, 5000, playback.CurrentTime)
	assert.Equal(t, int64(2000), playback.UpdatedAt)

	_, err = r.GetPlayback(ctx, "missing")
	assert.ErrorIs(t, err, room.ErrPlaybackNotFound)
}
