package videoref

import (
	"errors"
	"net/url"
	"strings"
)

const videoIdLength = 11

var (
	ErrInvalidReference   = errors.New("invalid video reference")
	ErrUnsupportedService = errors.New("unsupported video service")
)

// Extract parses a video URL and returns the provider video id. Only used to
// reject obviously broken references toward the sender; metadata lookup is a
// client concern.
func Extract(videoURL string) (string, error) {
	parsed, err := url.Parse(videoURL)
	if err != nil {
		return "", ErrInvalidReference
	}

	hostname := parsed.Hostname()
	if !strings.Contains(hostname, "youtu.be") && !strings.Contains(hostname, "youtube.com") {
		return "", ErrUnsupportedService
	}

	var videoId string
	switch {
	case strings.Contains(hostname, "youtu.be"):
		videoId = strings.TrimPrefix(parsed.Path, "/")
	case strings.HasPrefix(parsed.Path, "/watch"):
		videoId = parsed.Query().Get("v")
	case strings.HasPrefix(parsed.Path, "/shorts/"):
		videoId = strings.TrimPrefix(parsed.Path, "/shorts/")
		videoId = strings.SplitN(videoId, "/", 2)[0]
	}

	if len(videoId) != videoIdLength {
		return "", ErrInvalidReference
	}

	return videoId, nil
}
