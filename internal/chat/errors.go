package chat

import (
	"fmt"

	"github.com/pkg/errors"
)

// Failure kinds returned by the engine. Match them with errors.Is.
var (
	ErrRoomAlreadyExists  = errors.New("room already exists")
	ErrRoomNotFound       = errors.New("room not found")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrSenderNotMember    = errors.New("sender not member")
	ErrInvalidRoomName    = errors.New("invalid room name")
)

// Error describes a violated precondition together with the room and
// participant it concerns. Kind is one of the Err* sentinels.
type Error struct {
	Kind        error
	Room        string
	Participant string
	// RoomCreated is set when CreateRoom registered the room but the creator
	// could not join it. The room stays registered.
	RoomCreated bool
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case ErrRoomAlreadyExists:
		msg = fmt.Sprintf("room '%s' already exists", e.Room)
	case ErrRoomNotFound:
		msg = fmt.Sprintf("room '%s' does not exist", e.Room)
	case ErrInvalidParticipant:
		msg = "participant id cannot be empty"
	case ErrSenderNotMember:
		msg = fmt.Sprintf("user '%s' is not part of the room '%s'", e.Participant, e.Room)
	case ErrInvalidRoomName:
		msg = "room name cannot be empty"
	default:
		msg = fmt.Sprintf("chat: %v", e.Kind)
	}
	if e.RoomCreated {
		return fmt.Sprintf("room '%s' was created but the creator could not join: %s", e.Room, msg)
	}
	return msg
}

// Unwrap exposes the failure kind to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

// KindName returns the wire name of the failure kind carried by err, or the
// empty string when err is not an engine failure.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrRoomAlreadyExists):
		return "RoomAlreadyExists"
	case errors.Is(err, ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, ErrInvalidParticipant):
		return "InvalidParticipant"
	case errors.Is(err, ErrSenderNotMember):
		return "SenderNotMember"
	case errors.Is(err, ErrInvalidRoomName):
		return "InvalidRoomName"
	default:
		return ""
	}
}

func failure(kind error, room, participant string) *Error {
	return &Error{Kind: kind, Room: room, Participant: participant}
}
