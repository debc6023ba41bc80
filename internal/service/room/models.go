package room

import "github.com/jothamteshome/watch-together/internal/repository/room"

// VideoState is the video:sync payload, the full authoritative playback
// state after a mutation.
type VideoState struct {
	EventId      int     `json:"event_id"`
	VideoURL     string  `json:"video_url"`
	CurrentTime  float64 `json:"current_time"`
	IsPlaying    bool    `json:"is_playing"`
	PlaybackRate float64 `json:"playback_rate"`
	LastUpdate   int64   `json:"last_update"`
}

// PlaylistState is the playlist:sync payload.
type PlaylistState struct {
	EventId      int      `json:"event_id"`
	Items        []string `json:"items"`
	CurrentIndex int      `json:"current_index"`
}

// ChatMessage is the chat:sync payload. Messages are relayed as-is, no
// history, no ordering beyond delivery order.
type ChatMessage struct {
	Id        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func videoStateFromRepo(state room.VideoState) VideoState {
	return VideoState{
		EventId:      state.EventId,
		VideoURL:     state.VideoURL,
		CurrentTime:  state.CurrentTime,
		IsPlaying:    state.IsPlaying,
		PlaybackRate: state.PlaybackRate,
		LastUpdate:   state.LastUpdate,
	}
}

func playlistStateFromRepo(state room.PlaylistState) PlaylistState {
	items := state.Items
	if items == nil {
		items = []string{}
	}

	return PlaylistState{
		EventId:      state.EventId,
		Items:        items,
		CurrentIndex: state.CurrentIndex,
	}
}
