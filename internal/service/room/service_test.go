package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coview/server/internal/repository/connection/inmemory"
	roomRedis "github.com/coview/server/internal/repository/room/redis"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type fakeConn struct {
	frames chan frame
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan frame, 64)}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	var msg frame
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	f.frames <- msg
	return nil
}

func (f *fakeConn) Close() error {
	return nil
}

func (f *fakeConn) receive(t *testing.T) frame {
	t.Helper()
	select {
	case msg := <-f.frames:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

func (f *fakeConn) receiveType(t *testing.T, messageType string) frame {
	t.Helper()
	msg := f.receive(t)
	require.Equal(t, messageType, msg.Type)
	return msg
}

func (f *fakeConn) assertNoFrame(t *testing.T) {
	t.Helper()
	select {
	case msg := <-f.frames:
		t.Fatalf("unexpected frame: %s %s", msg.Type, msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

type roomCounter interface {
	CountByRoom(roomId string) int
}

func newTestService(t *testing.T) (*service, roomCounter) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	roomRepo := roomRedis.NewRepo(rc, time.Hour, slog.Default())
	registry := inmemory.NewRepo(64, slog.Default())

	return NewService(roomRepo, registry, &Config{MembersLimit: 9, RoomIdLength: 8}, slog.Default()), registry
}

func TestCoWatchScenario(t *testing.T) {
	service, registry := newTestService(t)
	ctx := context.Background()

	// room created by alice
	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{VideoUrl: "v1", Username: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, createRoomResp.RoomId)
	assert.Equal(t, "alice", createRoomResp.Room.HostId)

	// alice joins
	aliceConn := newFakeConn()
	aliceJoinResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		Conn:     aliceConn,
		ConnId:   "conn-alice",
		RoomId:   createRoomResp.RoomId,
		Username: "alice",
		PeerId:   "peer-alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, registry.CountByRoom(createRoomResp.RoomId))
	assert.Len(t, aliceJoinResp.Participants, 1)

	playbackFrame := aliceConn.receiveType(t, "video_state")
	var playback Playback
	require.NoError(t, json.Unmarshal(playbackFrame.Payload, &playback))
	assert.False(t, playback.IsPlaying)
	assert.Equal(t, 0, playback.CurrentTime)

	joinedFrame := aliceConn.receiveType(t, "chat_message")
	var joinedMessage Message
	require.NoError(t, json.Unmarshal(joinedFrame.Payload, &joinedMessage))
	assert.Equal(t, "alice joined the room", joinedMessage.Content)
	assert.Equal(t, "system", joinedMessage.Type)

	aliceConn.receiveType(t, "join_room_success")
	// the joiner must not be introduced to itself
	aliceConn.assertNoFrame(t)

	// bob joins
	bobConn := newFakeConn()
	bobJoinResp, err := service.JoinRoom(ctx, &JoinRoomParams{
		Conn:     bobConn,
		ConnId:   "conn-bob",
		RoomId:   createRoomResp.RoomId,
		Username: "bob",
		PeerId:   "peer-bob",
	})
	require.NoError(t, err)
	assert.Len(t, bobJoinResp.Participants, 2)
	assert.Len(t, bobJoinResp.Messages, 2, "bob's snapshot must include both system messages")

	bobJoined := aliceConn.receiveType(t, "chat_message")
	var bobJoinedMessage Message
	require.NoError(t, json.Unmarshal(bobJoined.Payload, &bobJoinedMessage))
	assert.Equal(t, "bob joined the room", bobJoinedMessage.Content)

	newPeerFrame := aliceConn.receiveType(t, "new_peer")
	var peer struct {
		PeerId   string `json:"peer_id"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(newPeerFrame.Payload, &peer))
	assert.Equal(t, "peer-bob", peer.PeerId)
	assert.Equal(t, "bob", peer.Username)

	bobConn.receiveType(t, "video_state")
	bobConn.receiveType(t, "chat_message")
	bobConn.receiveType(t, "join_room_success")
	bobConn.assertNoFrame(t)

	// alice starts playback; bob gets the update, alice does not
	_, err = service.UpdatePlayback(ctx, &UpdatePlaybackParams{Conn: aliceConn, IsPlaying: true, CurrentTime: 5000})
	require.NoError(t, err)

	videoStateFrame := bobConn.receiveType(t, "video_state")
	require.NoError(t, json.Unmarshal(videoStateFrame.Payload, &playback))
	assert.True(t, playback.IsPlaying)
	assert.Equal(t, 5000, playback.CurrentTime)
	aliceConn.assertNoFrame(t)

	// bob chats; both sides observe the same message
	sendMessageResp, err := service.SendMessage(ctx, &SendMessageParams{Conn: bobConn, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "bob", sendMessageResp.Message.Username)

	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		chatFrame := conn.receiveType(t, "chat_message")
		var chatMessage Message
		require.NoError(t, json.Unmarshal(chatFrame.Payload, &chatMessage))
		assert.Equal(t, "hi", chatMessage.Content)
		assert.Equal(t, "user", chatMessage.Type)
	}

	// bob drops
	disconnectResp, err := service.Disconnect(ctx, &DisconnectParams{Conn: bobConn})
	require.NoError(t, err)
	assert.True(t, disconnectResp.Left)

	leftFrame := aliceConn.receiveType(t, "chat_message")
	var leftMessage Message
	require.NoError(t, json.Unmarshal(leftFrame.Payload, &leftMessage))
	assert.Equal(t, "bob left the room", leftMessage.Content)

	peerLeftFrame := aliceConn.receiveType(t, "peer_left")
	var peerLeft struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(peerLeftFrame.Payload, &peerLeft))
	assert.Equal(t, "bob", peerLeft.Username)

	getRoomResp, err := service.GetRoom(ctx, createRoomResp.RoomId)
	require.NoError(t, err)
	require.Len(t, getRoomResp.Participants, 1)
	assert.Equal(t, "alice", getRoomResp.Participants[0].Username)

	// leave twice: the second pass is a no-op
	disconnectResp, err = service.Disconnect(ctx, &DisconnectParams{Conn: bobConn})
	require.NoError(t, err)
	assert.False(t, disconnectResp.Left)
	aliceConn.assertNoFrame(t)
}

func TestJoinUnknownRoom(t *testing.T) {
	service, registry := newTestService(t)
	ctx := context.Background()

	conn := newFakeConn()
	_, err := service.JoinRoom(ctx, &JoinRoomParams{
		Conn:     conn,
		ConnId:   "conn-1",
		RoomId:   "missing",
		Username: "alice",
		PeerId:   "peer-1",
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, 0, registry.CountByRoom("missing"))
	conn.assertNoFrame(t)
}

func TestRejoinAfterDropIsFreshJoin(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{VideoUrl: "v1", Username: "alice"})
	require.NoError(t, err)

	firstConn := newFakeConn()
	firstJoin, err := service.JoinRoom(ctx, &JoinRoomParams{
		Conn:     firstConn,
		ConnId:   "conn-1",
		RoomId:   createRoomResp.RoomId,
		Username: "alice",
		PeerId:   "peer-1",
	})
	require.NoError(t, err)

	_, err = service.Disconnect(ctx, &DisconnectParams{Conn: firstConn})
	require.NoError(t, err)

	secondConn := newFakeConn()
	secondJoin, err := service.JoinRoom(ctx, &JoinRoomParams{
		Conn:     secondConn,
		ConnId:   "conn-2",
		RoomId:   createRoomResp.RoomId,
		Username: "alice",
		PeerId:   "peer-2",
	})
	require.NoError(t, err)
	assert.NotEqual(t, firstJoin.ParticipantId, secondJoin.ParticipantId, "rejoin must create a new membership row")
	// joined, left, joined again
	assert.Len(t, secondJoin.Messages, 3)
}

func TestPlaybackLastWriterWinsAcrossSenders(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	createRoomResp, err := service.CreateRoom(ctx, &CreateRoomParams{VideoUrl: "v1", Username: "alice"})
	require.NoError(t, err)

	aliceConn := newFakeConn()
	_, err = service.JoinRoom(ctx, &JoinRoomParams{Conn: aliceConn, ConnId: "conn-alice", RoomId: createRoomResp.RoomId, Username: "alice", PeerId: "peer-alice"})
	require.NoError(t, err)
	bobConn := newFakeConn()
	_, err = service.JoinRoom(ctx, &JoinRoomParams{Conn: bobConn, ConnId: "conn-bob", RoomId: createRoomResp.RoomId, Username: "bob", PeerId: "peer-bob"})
	require.NoError(t, err)

	// bob is not the host, yet his update is applied
	_, err = service.UpdatePlayback(ctx, &UpdatePlaybackParams{Conn: aliceConn, IsPlaying: true, CurrentTime: 1000})
	require.NoError(t, err)
	_, err = service.UpdatePlayback(ctx, &UpdatePlaybackParams{Conn: bobConn, IsPlaying: false, CurrentTime: 2000})
	require.NoError(t, err)

	getRoomResp, err := service.GetRoom(ctx, createRoomResp.RoomId)
	require.NoError(t, err)
	assert.False(t, getRoomResp.Playback.IsPlaying)
	assert.Equal(t, 2000, getRoomResp.Playback.CurrentTime)
}

func TestChatRequiresActiveConnection(t *testing.T) {
	service, _ := newTestService(t)

	conn := newFakeConn()
	_, err := service.SendMessage(context.Background(), &SendMessageParams{Conn: conn, Content: "hi"})
	assert.ErrorIs(t, err, ErrNotInRoom)
}
