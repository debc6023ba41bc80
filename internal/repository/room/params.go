package room

type SetVideoParams struct {
	RoomId   string
	VideoURL string
}

// UpdateVideoStateParams carries a gated playback mutation. EventId is the
// version the client last observed, not a request id. A nil IsPlaying keeps
// the stored value (seek and rate-change claims).
type UpdateVideoStateParams struct {
	RoomId       string
	EventId      int
	CurrentTime  float64
	IsPlaying    *bool
	PlaybackRate float64
}

// AddPlaylistVideoParams carries a gated playlist append. Limit caps the
// item count and is enforced inside the room lock, so racing adds cannot
// overshoot it; 0 means unbounded.
type AddPlaylistVideoParams struct {
	RoomId   string
	EventId  int
	VideoURL string
	Limit    int
}

type AdvancePlaylistParams struct {
	RoomId  string
	EventId int
}

type SelectPlaylistVideoParams struct {
	RoomId  string
	EventId int
	Index   int
}

type AddParticipantParams struct {
	RoomId   string
	ClientId string
}

type RemoveParticipantParams struct {
	RoomId   string
	ClientId string
}
