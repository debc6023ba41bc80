package videoref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		videoURL string
		videoId  string
		err      error
	}{
		{
			name:     "short link",
			videoURL: "https://youtu.be/dQw4w9WgXcQ",
			videoId:  "dQw4w9WgXcQ",
		},
		{
			name:     "watch link",
			videoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			videoId:  "dQw4w9WgXcQ",
		},
		{
			name:     "watch link with extra params",
			videoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42",
			videoId:  "dQw4w9WgXcQ",
		},
		{
			name:     "shorts link",
			videoURL: "https://youtube.com/shorts/dQw4w9WgXcQ",
			videoId:  "dQw4w9WgXcQ",
		},
		{
			name:     "unsupported service",
			videoURL: "https://vimeo.com/123456789",
			err:      ErrUnsupportedService,
		},
		{
			name:     "truncated id",
			videoURL: "https://youtu.be/dQw4w9",
			err:      ErrInvalidReference,
		},
		{
			name:     "no id at all",
			videoURL: "https://www.youtube.com/watch",
			err:      ErrInvalidReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videoId, err := Extract(tt.videoURL)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.videoId, videoId)
		})
	}
}
