package room

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrStaleEvent        = errors.New("stale event id")
	ErrIndexOutOfRange   = errors.New("playlist index out of range")
	ErrPlaylistFull      = errors.New("playlist is full")
	ErrParticipantExists = errors.New("participant already in room")
)
