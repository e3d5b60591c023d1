package chat

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Engine is the entry point transports call into. It is safe for concurrent
// use by any number of connections.
type Engine struct {
	rooms   *Directory
	members *Membership
	router  *Router
}

// RoomSummary is a point-in-time description of one room.
type RoomSummary struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

// NewEngine returns an engine over an empty directory.
func NewEngine() *Engine {
	return NewEngineWithDirectory(NewDirectory())
}

// NewEngineWithDirectory returns an engine over an existing directory.
func NewEngineWithDirectory(rooms *Directory) *Engine {
	return &Engine{
		rooms:   rooms,
		members: NewMembership(rooms),
		router:  NewRouter(rooms),
	}
}

// CreateRoom registers roomName and joins userID as its first member. If the
// room is created but the join is rejected, the room stays registered and
// the returned *Error has RoomCreated set.
func (e *Engine) CreateRoom(roomName, userID string) error {
	if _, err := e.rooms.Create(roomName); err != nil {
		return err
	}
	if _, err := e.members.Join(roomName, userID); err != nil {
		var chatErr *Error
		if errors.As(err, &chatErr) {
			chatErr.RoomCreated = true
		}
		return err
	}
	return nil
}

// JoinRoom adds userID to roomName and returns the roster observed with the
// join.
func (e *Engine) JoinRoom(roomName, userID string) ([]string, error) {
	return e.members.Join(roomName, userID)
}

// SendMessage returns the recipients of message in roomName.
func (e *Engine) SendMessage(roomName, userID, message string) ([]string, error) {
	return e.router.Send(roomName, userID, message)
}

// LeaveRoom removes userID from roomName and returns the remaining roster.
func (e *Engine) LeaveRoom(roomName, userID string) ([]string, error) {
	return e.members.Leave(roomName, userID)
}

// Members returns the current roster of roomName.
func (e *Engine) Members(roomName string) ([]string, error) {
	return e.members.Members(roomName)
}

// Rooms returns a summary of every registered room in creation order.
func (e *Engine) Rooms() []RoomSummary {
	return lo.Map(e.rooms.All(), func(room *Room, _ int) RoomSummary {
		return RoomSummary{Name: room.Name(), Participants: room.Participants()}
	})
}
