package client

type Room struct {
	Id        string `json:"id"`
	VideoUrl  string `json:"video_url"`
	HostId    string `json:"host_id"`
	CreatedAt int64  `json:"created_at"`
}

type Participant struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	JoinedAt int64  `json:"joined_at"`
}

type Message struct {
	Id        string `json:"id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type Playback struct {
	IsPlaying   bool  `json:"is_playing"`
	CurrentTime int   `json:"current_time"`
	UpdatedAt   int64 `json:"updated_at"`
}

type Peer struct {
	PeerId   string `json:"peer_id"`
	Username string `json:"username"`
}

// State is the local cache of the room as observed through the protocol.
type State struct {
	Room         Room
	Participants []Participant
	Messages     []Message
	Playback     Playback
	Joined       bool
}

// Event is delivered to the embedding application for every server event
// the agent observes.
type Event struct {
	Type     string
	Message  *Message
	Playback *Playback
	Peer     *Peer
	Username string
	Error    string
}
