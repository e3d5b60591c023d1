package chat

// Membership applies join and leave rules to rooms held by a Directory.
type Membership struct {
	rooms *Directory
}

// NewMembership returns a Membership bound to rooms.
func NewMembership(rooms *Directory) *Membership {
	return &Membership{rooms: rooms}
}

// Join adds participant to the room and returns the resulting roster.
// Joining twice is the same as joining once.
func (m *Membership) Join(roomName, participant string) ([]string, error) {
	room, ok := m.rooms.Get(roomName)
	if !ok {
		return nil, failure(ErrRoomNotFound, roomName, participant)
	}
	if !validParticipant(participant) {
		return nil, failure(ErrInvalidParticipant, roomName, participant)
	}
	members, open := room.add(participant)
	if !open {
		return nil, failure(ErrRoomNotFound, roomName, participant)
	}
	return members, nil
}

// Leave removes participant from the room and returns the remaining roster.
// Leaving a room one is not part of is a no-op.
func (m *Membership) Leave(roomName, participant string) ([]string, error) {
	room, ok := m.rooms.Get(roomName)
	if !ok {
		return nil, failure(ErrRoomNotFound, roomName, participant)
	}
	members, open := room.remove(participant)
	if !open {
		return nil, failure(ErrRoomNotFound, roomName, participant)
	}
	return members, nil
}

// Members returns a snapshot of the room's roster.
func (m *Membership) Members(roomName string) ([]string, error) {
	room, ok := m.rooms.Get(roomName)
	if !ok {
		return nil, failure(ErrRoomNotFound, roomName, "")
	}
	return room.Participants(), nil
}
