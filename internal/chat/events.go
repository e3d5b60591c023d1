package chat

// EventName identifies a notification pushed to room members.
type EventName string

const (
	EventRoomCreated     EventName = "RoomCreated"
	EventUserJoined      EventName = "UserJoined"
	EventMessageReceived EventName = "ReceiveMessage"
	EventUserLeft        EventName = "UserLeft"
)

// Event is a payload addressed to a room's members.
type Event struct {
	Name EventName
	Room string
	Args []string
}

// RoomCreated is sent to the creator of a room.
func RoomCreated(room string) Event {
	return Event{Name: EventRoomCreated, Room: room, Args: []string{room}}
}

// UserJoined announces a new member.
func UserJoined(room, user string) Event {
	return Event{Name: EventUserJoined, Room: room, Args: []string{user}}
}

// MessageReceived carries a broadcast message and its sender.
func MessageReceived(room, sender, message string) Event {
	return Event{Name: EventMessageReceived, Room: room, Args: []string{sender, message}}
}

// UserLeft announces a departed member.
func UserLeft(room, user string) Event {
	return Event{Name: EventUserLeft, Room: room, Args: []string{user}}
}

// Deliverer pushes an event to a recipient's live connections, if any.
// Implementations own their failures; nothing is reported back.
type Deliverer interface {
	Deliver(recipient string, event Event)
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(recipient string, event Event)

// Deliver calls f(recipient, event).
func (f DelivererFunc) Deliver(recipient string, event Event) {
	f(recipient, event)
}

// Fanout hands event to d once per recipient.
func Fanout(d Deliverer, recipients []string, event Event) {
	for _, recipient := range recipients {
		d.Deliver(recipient, event)
	}
}
