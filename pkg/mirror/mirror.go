// Package mirror keeps a client-local copy of a room's video and playlist
// state in sync with server pushes. It applies the same event-id discipline
// as the server, so out-of-order and duplicate pushes are no-ops and the
// local state converges on whatever the server last committed.
package mirror

import "time"

// VideoState matches the video:sync payload.
type VideoState struct {
	EventId      int     `json:"event_id"`
	VideoURL     string  `json:"video_url"`
	CurrentTime  float64 `json:"current_time"`
	IsPlaying    bool    `json:"is_playing"`
	PlaybackRate float64 `json:"playback_rate"`
	LastUpdate   int64   `json:"last_update"`
}

// PlaylistState matches the playlist:sync payload.
type PlaylistState struct {
	EventId      int      `json:"event_id"`
	Items        []string `json:"items"`
	CurrentIndex int      `json:"current_index"`
}

// VideoMirror holds the last accepted video state. Zero value is ready to
// use: the first push always wins because the local event id starts at -1.
type VideoMirror struct {
	eventId int
	state   VideoState
	primed  bool
}

// Apply updates the mirror with a pushed state. It reports whether the push
// was accepted; a push whose event id is not ahead of the local one is
// ignored.
func (m *VideoMirror) Apply(state VideoState) bool {
	if m.primed && m.eventId >= state.EventId {
		return false
	}

	m.eventId = state.EventId
	m.state = state
	m.primed = true
	return true
}

func (m *VideoMirror) State() VideoState {
	return m.state
}

// PositionAt extrapolates the playback position for rendering: the mirrored
// CurrentTime is only accurate at LastUpdate.
func (m *VideoMirror) PositionAt(now time.Time) float64 {
	if !m.state.IsPlaying {
		return m.state.CurrentTime
	}

	elapsed := float64(now.UnixMilli()-m.state.LastUpdate) / 1000
	return m.state.CurrentTime + elapsed*m.state.PlaybackRate
}

// PlaylistMirror holds the last accepted playlist state.
type PlaylistMirror struct {
	eventId int
	state   PlaylistState
	primed  bool
}

func (m *PlaylistMirror) Apply(state PlaylistState) bool {
	if m.primed && m.eventId >= state.EventId {
		return false
	}

	m.eventId = state.EventId
	m.state = state
	m.primed = true
	return true
}

func (m *PlaylistMirror) State() PlaylistState {
	return m.state
}

// CurrentItem returns the selected item, or "" when nothing is selected or
// the playlist has ended.
func (m *PlaylistMirror) CurrentItem() string {
	if m.state.CurrentIndex < 0 || m.state.CurrentIndex >= len(m.state.Items) {
		return ""
	}

	return m.state.Items[m.state.CurrentIndex]
}
