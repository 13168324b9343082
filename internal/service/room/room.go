package room

import (
	"context"
	"errors"
	"time"

	"github.com/coview/server/internal/repository/room"
)

type CreateRoomParams struct {
	VideoUrl string
	Username string
}

type CreateRoomResponse struct {
	RoomId string
	Room   Room
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	roomId := s.generator.GenerateRandomString(s.roomIdLength)
	createdAt := time.Now().UnixMilli()

	if err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
		RoomId:    roomId,
		VideoUrl:  params.VideoUrl,
		HostId:    params.Username,
		CreatedAt: createdAt,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set room", "error", err)
		return CreateRoomResponse{}, err
	}

	if err := s.roomRepo.SetPlayback(ctx, &room.SetPlaybackParams{
		RoomId:      roomId,
		IsPlaying:   false,
		CurrentTime: 0,
		UpdatedAt:   createdAt,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set playback", "error", err)
		return CreateRoomResponse{}, err
	}

	return CreateRoomResponse{
		RoomId: roomId,
		Room: Room{
			Id:        roomId,
			VideoUrl:  params.VideoUrl,
			HostId:    params.Username,
			CreatedAt: createdAt,
		},
	}, nil
}

type GetRoomResponse struct {
	Room         Room
	Participants []Participant
	Playback     Playback
}

func (s *service) GetRoom(ctx context.Context, roomId string) (GetRoomResponse, error) {
	roomModel, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return GetRoomResponse{}, ErrRoomNotFound
		}
		s.logger.InfoContext(ctx, "failed to get room", "error", err)
		return GetRoomResponse{}, err
	}

	participants, err := s.getParticipants(ctx, roomId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get participants", "error", err)
		return GetRoomResponse{}, err
	}

	playback, err := s.roomRepo.GetPlayback(ctx, roomId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get playback", "error", err)
		return GetRoomResponse{}, err
	}

	return GetRoomResponse{
		Room: Room{
			Id:        roomId,
			VideoUrl:  roomModel.VideoUrl,
			HostId:    roomModel.HostId,
			CreatedAt: roomModel.CreatedAt,
		},
		Participants: participants,
		Playback: Playback{
			IsPlaying:   playback.IsPlaying,
			CurrentTime: playback.CurrentTime,
			UpdatedAt:   playback.UpdatedAt,
		},
	}, nil
}
