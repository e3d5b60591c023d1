package chat

// Router resolves the recipients of a room message. It makes the routing
// decision only; pushing the message to each recipient is left to the
// transport.
type Router struct {
	rooms *Directory
}

// NewRouter returns a Router bound to rooms.
func NewRouter(rooms *Directory) *Router {
	return &Router{rooms: rooms}
}

// Send returns every current member of the room, sender included. The
// membership check and the enumeration observe the same snapshot. The
// message is opaque and passed through untouched by callers.
func (r *Router) Send(roomName, sender, _ string) ([]string, error) {
	room, ok := r.rooms.Get(roomName)
	if !ok {
		return nil, failure(ErrRoomNotFound, roomName, sender)
	}
	recipients, member, open := room.route(sender)
	if !open {
		return nil, failure(ErrRoomNotFound, roomName, sender)
	}
	if !member {
		return nil, failure(ErrSenderNotMember, roomName, sender)
	}
	return recipients, nil
}
