// Package protocol defines the JSON frames exchanged between GoChat clients
// and the rooms server over a WebSocket connection.
package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Tyrowin/chatrooms/internal/chat"
)

// Actions a client may request.
const (
	ActionCreate = "create"
	ActionJoin   = "join"
	ActionSend   = "send"
	ActionLeave  = "leave"
	ActionRooms  = "rooms"
)

// Server-originated event names that are not room notifications.
const (
	EventError = "Error"
	EventRooms = "Rooms"
)

// Error kinds reported by the adapter itself, next to the engine's kinds.
const (
	KindBadRequest  = "BadRequest"
	KindRateLimited = "RateLimited"
	KindInternal    = "Internal"
)

// Command is an inbound request frame.
type Command struct {
	Action  string `json:"action"`
	Room    string `json:"room,omitempty"`
	User    string `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// Event is an outbound notification frame.
type Event struct {
	Event string   `json:"event"`
	Room  string   `json:"room,omitempty"`
	Args  []string `json:"args"`
}

// DecodeCommand parses and shape-checks a command frame.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, errors.Wrap(err, "decode command")
	}
	switch cmd.Action {
	case ActionCreate, ActionJoin, ActionSend, ActionLeave, ActionRooms:
		return cmd, nil
	case "":
		return Command{}, errors.New("missing action")
	default:
		return Command{}, errors.Errorf("unknown action %q", cmd.Action)
	}
}

// FromChat converts an engine event to its wire form.
func FromChat(evt chat.Event) Event {
	return Event{Event: string(evt.Name), Room: evt.Room, Args: nonNil(evt.Args)}
}

// ErrorEvent builds the frame reporting a failed command to its caller.
func ErrorEvent(room, kind, text string) Event {
	return Event{Event: EventError, Room: room, Args: []string{kind, text}}
}

// FailureEvent reports err, using the engine's kind name when it has one.
func FailureEvent(room string, err error) Event {
	kind := chat.KindName(err)
	if kind == "" {
		kind = KindInternal
	}
	return ErrorEvent(room, kind, err.Error())
}

// Encode marshals an event frame.
func Encode(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s event", evt.Event)
	}
	return data, nil
}

// DecodeEvent parses an outbound frame on the client side.
func DecodeEvent(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, errors.Wrap(err, "decode event")
	}
	if evt.Event == "" {
		return Event{}, errors.New("missing event name")
	}
	return evt, nil
}

func nonNil(args []string) []string {
	if args == nil {
		return []string{}
	}
	return args
}
