package chat

import (
	"slices"
	"strings"
	"sync"
)

// Directory is the registry of rooms by name. It is the only owner of Room
// values. The name map is guarded separately from each room's participant
// set, so work on different rooms never contends beyond the map lookup.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	order []string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*Room)}
}

// Create registers an empty room. The existence check and the insert happen
// under one write lock, so at most one concurrent creator of a name wins.
func (d *Directory) Create(name string) (*Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, failure(ErrInvalidRoomName, name, "")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.rooms[name]; exists {
		return nil, failure(ErrRoomAlreadyExists, name, "")
	}
	room := newRoom(name)
	d.rooms[name] = room
	d.order = append(d.order, name)
	return room, nil
}

// Get looks up a room by name.
func (d *Directory) Get(name string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[name]
	return room, ok
}

// Remove unregisters a room. Removing an unknown name is a no-op. Operations
// that already resolved the room observe it as not found afterwards.
func (d *Directory) Remove(name string) {
	d.mu.Lock()
	room, ok := d.rooms[name]
	if ok {
		delete(d.rooms, name)
		if i := slices.Index(d.order, name); i >= 0 {
			d.order = slices.Delete(d.order, i, i+1)
		}
	}
	d.mu.Unlock()

	if ok {
		room.close()
	}
}

// All returns the registered rooms in creation order. The slice is a copy;
// rooms created or removed later do not appear in it.
func (d *Directory) All() []*Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]*Room, 0, len(d.order))
	for _, name := range d.order {
		rooms = append(rooms, d.rooms[name])
	}
	return rooms
}

// Len returns the number of registered rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
