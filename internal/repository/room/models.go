package room

import "time"

// VideoState is the authoritative playback state of a room. CurrentTime is
// only accurate at LastUpdate; while IsPlaying the true position at T is
// CurrentTime + (T-LastUpdate)*PlaybackRate.
type VideoState struct {
	EventId      int     `redis:"event_id"`
	VideoURL     string  `redis:"video_url"`
	CurrentTime  float64 `redis:"current_time"`
	IsPlaying    bool    `redis:"is_playing"`
	PlaybackRate float64 `redis:"playback_rate"`
	LastUpdate   int64   `redis:"last_update"`
}

// PlaylistState is the authoritative playlist of a room. CurrentIndex is -1
// when nothing is selected or the playlist has ended, otherwise a valid index
// into Items.
type PlaylistState struct {
	EventId      int
	Items        []string
	CurrentIndex int
}

func NewVideoState(now time.Time) VideoState {
	return VideoState{
		EventId:      0,
		VideoURL:     "",
		CurrentTime:  0,
		IsPlaying:    false,
		PlaybackRate: 1,
		LastUpdate:   now.UnixMilli(),
	}
}

func NewPlaylistState() PlaylistState {
	return PlaylistState{
		EventId:      0,
		Items:        []string{},
		CurrentIndex: -1,
	}
}

// stale reports whether a client claim is behind the server state. Equality
// is accepted: the client mutates from exactly the version it last observed.
func stale(stateEventId, clientEventId int) bool {
	return stateEventId > clientEventId
}

// ApplySetVideo loads a new video. It is never gated by a client event id:
// setting a video starts a new epoch for the room's timeline.
func ApplySetVideo(s VideoState, videoURL string, now time.Time) VideoState {
	s.EventId++
	s.VideoURL = videoURL
	s.CurrentTime = 0
	s.IsPlaying = true
	s.PlaybackRate = 1
	s.LastUpdate = now.UnixMilli()
	return s
}

// ApplyVideoUpdate applies a play, pause, seek or rate-change claim.
// IsPlaying: nil leaves the stored value untouched (seek, rate change).
func ApplyVideoUpdate(s VideoState, p *UpdateVideoStateParams, now time.Time) (VideoState, error) {
	if stale(s.EventId, p.EventId) {
		return s, ErrStaleEvent
	}

	s.EventId++
	s.CurrentTime = p.CurrentTime
	if p.IsPlaying != nil {
		s.IsPlaying = *p.IsPlaying
	}
	s.PlaybackRate = p.PlaybackRate
	s.LastUpdate = now.UnixMilli()
	return s, nil
}

// ExtrapolateVideo advances CurrentTime to "now" for a paused-or-playing
// state without consuming an event id. The result is both pushed to a
// joining client and persisted, so the stored position never goes stale.
func ExtrapolateVideo(s VideoState, now time.Time) VideoState {
	if s.IsPlaying {
		elapsed := float64(now.UnixMilli()-s.LastUpdate) / 1000
		s.CurrentTime += elapsed * s.PlaybackRate
	}
	s.LastUpdate = now.UnixMilli()
	return s
}

// ApplyPlaylistAdd appends a video. When nothing was selected the newly
// appended item becomes the selection. A limit of 0 means unbounded.
func ApplyPlaylistAdd(s PlaylistState, clientEventId int, videoURL string, limit int) (PlaylistState, error) {
	if stale(s.EventId, clientEventId) {
		return s, ErrStaleEvent
	}
	if limit > 0 && len(s.Items) >= limit {
		return s, ErrPlaylistFull
	}

	s.EventId++
	s.Items = append(append([]string{}, s.Items...), videoURL)
	if s.CurrentIndex == -1 {
		s.CurrentIndex = len(s.Items) - 1
	}
	return s, nil
}

// ApplyPlaylistAdvance moves to the next item. Advancing past the last item
// ends the playlist (CurrentIndex -1); there is no wraparound.
func ApplyPlaylistAdvance(s PlaylistState, clientEventId int) (PlaylistState, error) {
	if stale(s.EventId, clientEventId) {
		return s, ErrStaleEvent
	}

	s.EventId++
	switch {
	case s.CurrentIndex == -1:
		// nothing to advance from
	case s.CurrentIndex >= len(s.Items)-1:
		s.CurrentIndex = -1
	default:
		s.CurrentIndex++
	}
	return s, nil
}

// ApplyPlaylistSelect jumps to an explicitly chosen item. An out-of-range
// index is rejected rather than clamped so CurrentIndex can never point past
// the end.
func ApplyPlaylistSelect(s PlaylistState, clientEventId, index int) (PlaylistState, error) {
	if stale(s.EventId, clientEventId) {
		return s, ErrStaleEvent
	}
	if index < 0 || index >= len(s.Items) {
		return s, ErrIndexOutOfRange
	}

	s.EventId++
	s.CurrentIndex = index
	return s, nil
}
