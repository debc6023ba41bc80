package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestApplySetVideo(t *testing.T) {
	now := time.Now()
	s := NewVideoState(now)
	s.EventId = 7
	s.CurrentTime = 120.5
	s.PlaybackRate = 2

	s = ApplySetVideo(s, "https://youtu.be/dQw4w9WgXcQ", now)
	assert.Equal(t, 8, s.EventId, "set video must bump the event id")
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", s.VideoURL)
	assert.Equal(t, float64(0), s.CurrentTime, "new video starts at 0")
	assert.True(t, s.IsPlaying, "new video starts playing")
	assert.Equal(t, float64(1), s.PlaybackRate, "new video resets the rate")
	assert.Equal(t, now.UnixMilli(), s.LastUpdate)
}

func TestApplyVideoUpdateGating(t *testing.T) {
	now := time.Now()
	s := NewVideoState(now)
	s.EventId = 5

	// behind the server state: rejected, state untouched
	_, err := ApplyVideoUpdate(s, &UpdateVideoStateParams{EventId: 4, CurrentTime: 10, PlaybackRate: 1}, now)
	require.ErrorIs(t, err, ErrStaleEvent)

	// exact match: accepted
	updated, err := ApplyVideoUpdate(s, &UpdateVideoStateParams{EventId: 5, CurrentTime: 10, IsPlaying: boolPtr(true), PlaybackRate: 1.5}, now)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.EventId)
	assert.Equal(t, float64(10), updated.CurrentTime)
	assert.True(t, updated.IsPlaying)
	assert.Equal(t, 1.5, updated.PlaybackRate)

	// ahead of the server state: also accepted
	updated, err = ApplyVideoUpdate(updated, &UpdateVideoStateParams{EventId: 9, CurrentTime: 20, PlaybackRate: 1.5}, now)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.EventId, "event id advances by one, not to the claim")
}

func TestApplyVideoUpdateKeepsIsPlaying(t *testing.T) {
	now := time.Now()
	s := NewVideoState(now)
	s.IsPlaying = true

	// a seek carries no isPlaying and must not pause the room
	updated, err := ApplyVideoUpdate(s, &UpdateVideoStateParams{EventId: 0, CurrentTime: 42, PlaybackRate: 1}, now)
	require.NoError(t, err)
	assert.True(t, updated.IsPlaying)
}

func TestExtrapolateVideo(t *testing.T) {
	start := time.Now()
	s := NewVideoState(start)
	s.CurrentTime = 10
	s.IsPlaying = true
	s.PlaybackRate = 2

	// 5 wall seconds at rate 2 moves the position forward 10 video seconds
	now := start.Add(5 * time.Second)
	extrapolated := ExtrapolateVideo(s, now)
	assert.InDelta(t, 20, extrapolated.CurrentTime, 0.001)
	assert.Equal(t, now.UnixMilli(), extrapolated.LastUpdate)
	assert.Equal(t, s.EventId, extrapolated.EventId, "extrapolation consumes no event id")

	// paused state does not move
	s.IsPlaying = false
	extrapolated = ExtrapolateVideo(s, now)
	assert.InDelta(t, 10, extrapolated.CurrentTime, 0.001)
	assert.Equal(t, now.UnixMilli(), extrapolated.LastUpdate)
}

func TestApplyPlaylistAdd(t *testing.T) {
	s := NewPlaylistState()

	// first add: appended item becomes the selection
	s, err := ApplyPlaylistAdd(s, 0, "video-a", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.EventId)
	assert.Equal(t, []string{"video-a"}, s.Items)
	assert.Equal(t, 0, s.CurrentIndex)

	// later adds leave the selection alone
	s, err = ApplyPlaylistAdd(s, 1, "video-b", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"video-a", "video-b"}, s.Items)
	assert.Equal(t, 0, s.CurrentIndex)

	// stale claim rejected
	_, err = ApplyPlaylistAdd(s, 0, "video-c", 0)
	require.ErrorIs(t, err, ErrStaleEvent)
}

func TestApplyPlaylistAddLimit(t *testing.T) {
	s := NewPlaylistState()
	s.Items = []string{"a", "b"}
	s.CurrentIndex = 0

	// at the limit the add is rejected inside the transition, so the check
	// and the append cannot be separated by a racing add
	_, err := ApplyPlaylistAdd(s, 0, "c", 2)
	require.ErrorIs(t, err, ErrPlaylistFull)

	updated, err := ApplyPlaylistAdd(s, 0, "c", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, updated.Items)

	// 0 is unbounded
	_, err = ApplyPlaylistAdd(s, 0, "c", 0)
	require.NoError(t, err)
}

func TestApplyPlaylistAdvance(t *testing.T) {
	s := NewPlaylistState()
	s.Items = []string{"a", "b", "c"}
	s.CurrentIndex = 0

	s, err := ApplyPlaylistAdvance(s, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentIndex)

	s, err = ApplyPlaylistAdvance(s, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, s.CurrentIndex)

	// advancing past the last item ends the playlist, no wraparound
	s, err = ApplyPlaylistAdvance(s, 2)
	require.NoError(t, err)
	assert.Equal(t, -1, s.CurrentIndex)

	// advancing an ended playlist stays ended but still versions
	s, err = ApplyPlaylistAdvance(s, 3)
	require.NoError(t, err)
	assert.Equal(t, -1, s.CurrentIndex)
	assert.Equal(t, 4, s.EventId)
}

func TestApplyPlaylistSelect(t *testing.T) {
	s := NewPlaylistState()
	s.Items = []string{"a", "b", "c"}
	s.CurrentIndex = -1

	s, err := ApplyPlaylistSelect(s, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.CurrentIndex)
	assert.Equal(t, 1, s.EventId)

	// out of range is rejected, not clamped
	_, err = ApplyPlaylistSelect(s, 1, 3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = ApplyPlaylistSelect(s, 1, -1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}
