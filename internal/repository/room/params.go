package room

type SetRoomParams struct {
	RoomId    string
	VideoUrl  string
	HostId    string
	CreatedAt int64
}

type SetParticipantParams struct {
	ParticipantId string
	RoomId        string
	Username      string
	JoinedAt      int64
}

type RemoveParticipantParams struct {
	ParticipantId string
	RoomId        string
}

type GetParticipantParams struct {
	ParticipantId string
	RoomId        string
}

type AddMessageParams struct {
	MessageId string
	RoomId    string
	Username  string
	Content   string
	Type      string
	Timestamp int64
}

type GetMessageParams struct {
	MessageId string
	RoomId    string
}

type SetPlaybackParams struct {
	RoomId      string
	IsPlaying   bool
	CurrentTime int
	UpdatedAt   int64
}
