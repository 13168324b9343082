package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/coview/server/internal/repository/connection"
	"github.com/coview/server/internal/repository/room"
	"github.com/coview/server/pkg/randstr"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrNotInRoom     = errors.New("not in a room")
	ErrAlreadyInRoom = errors.New("already in a room")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	// participant
	SetParticipant(context.Context, *room.SetParticipantParams) error
	RemoveParticipant(context.Context, *room.RemoveParticipantParams) error
	GetParticipantIds(context.Context, string) ([]string, error)
	GetParticipant(context.Context, *room.GetParticipantParams) (room.Participant, error)
	// message
	AddMessage(context.Context, *room.AddMessageParams) error
	GetMessageIds(context.Context, string) ([]string, error)
	GetMessage(context.Context, *room.GetMessageParams) (room.Message, error)
	// playback
	SetPlayback(context.Context, *room.SetPlaybackParams) error
	GetPlayback(context.Context, string) (room.Playback, error)
}

type iRegistry interface {
	Add(conn connection.Conn, entry connection.Entry)
	RemoveByConn(conn connection.Conn) (connection.Entry, error)
	RemoveByConnId(connId string) (connection.Entry, error)
	GetByConn(conn connection.Conn) (connection.Entry, error)
	Broadcast(roomId string, payload []byte, excludeConnId string)
	Send(connId string, payload []byte) error
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	MembersLimit int
	RoomIdLength int
}

type service struct {
	roomRepo     iRoomRepo
	registry     iRegistry
	generator    iGenerator
	logger       *slog.Logger
	membersLimit int
	roomIdLength int

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

func NewService(roomRepo iRoomRepo, registry iRegistry, cfg *Config, logger *slog.Logger) *service {
	s := service{
		roomRepo:     roomRepo,
		registry:     registry,
		logger:       logger,
		membersLimit: cfg.MembersLimit,
		roomIdLength: cfg.RoomIdLength,
		roomLocks:    make(map[string]*sync.Mutex),
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}

// roomLock returns the serialization lock for a room. All mutations of a
// single room's state run under it; different rooms proceed in parallel.
// Locks live for the process lifetime.
func (s *service) roomLock(roomId string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.roomLocks[roomId]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[roomId] = lock
	}

	return lock
}
