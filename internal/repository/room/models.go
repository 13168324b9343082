package room

const (
	MessageTypeUser   = "user"
	MessageTypeSystem = "system"
)

type Room struct {
	VideoUrl  string `redis:"video_url"`
	HostId    string `redis:"host_id"`
	CreatedAt int64  `redis:"created_at"`
}

type Participant struct {
	RoomId   string `redis:"room_id"`
	Username string `redis:"username"`
	JoinedAt int64  `redis:"joined_at"`
}

type Message struct {
	RoomId    string `redis:"room_id"`
	Username  string `redis:"username"`
	Content   string `redis:"content"`
	Type      string `redis:"type"`
	Timestamp int64  `redis:"timestamp"`
}

type Playback struct {
	IsPlaying   bool  `redis:"is_playing"`
	CurrentTime int   `redis:"current_time"`
	UpdatedAt   int64 `redis:"updated_at"`
}
