package mirror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVideoMirrorApply(t *testing.T) {
	var m VideoMirror

	// first push applies even at event id 0
	assert.True(t, m.Apply(VideoState{EventId: 0, VideoURL: "video-a"}))
	assert.Equal(t, "video-a", m.State().VideoURL)

	// duplicate push is a no-op
	assert.False(t, m.Apply(VideoState{EventId: 0, VideoURL: "video-a"}))

	// newer push applies
	assert.True(t, m.Apply(VideoState{EventId: 3, VideoURL: "video-b"}))
	assert.Equal(t, "video-b", m.State().VideoURL)

	// late out-of-order push is ignored, state stays converged
	assert.False(t, m.Apply(VideoState{EventId: 2, VideoURL: "video-a"}))
	assert.Equal(t, "video-b", m.State().VideoURL)
}

func TestVideoMirrorPositionAt(t *testing.T) {
	var m VideoMirror
	start := time.Now()

	m.Apply(VideoState{
		EventId:      1,
		CurrentTime:  10,
		IsPlaying:    true,
		PlaybackRate: 2,
		LastUpdate:   start.UnixMilli(),
	})

	assert.InDelta(t, 20, m.PositionAt(start.Add(5*time.Second)), 0.001)

	m.Apply(VideoState{
		EventId:      2,
		CurrentTime:  10,
		IsPlaying:    false,
		PlaybackRate: 2,
		LastUpdate:   start.UnixMilli(),
	})

	assert.InDelta(t, 10, m.PositionAt(start.Add(5*time.Second)), 0.001, "paused position does not move")
}

func TestPlaylistMirror(t *testing.T) {
	var m PlaylistMirror

	assert.Equal(t, "", m.CurrentItem(), "empty mirror has no current item")

	assert.True(t, m.Apply(PlaylistState{EventId: 1, Items: []string{"a", "b"}, CurrentIndex: 1}))
	assert.Equal(t, "b", m.CurrentItem())

	assert.False(t, m.Apply(PlaylistState{EventId: 1, Items: []string{"a"}, CurrentIndex: 0}))
	assert.Equal(t, "b", m.CurrentItem())

	assert.True(t, m.Apply(PlaylistState{EventId: 2, Items: []string{"a", "b"}, CurrentIndex: -1}))
	assert.Equal(t, "", m.CurrentItem(), "ended playlist has no current item")
}
