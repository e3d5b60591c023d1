package chat

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Room is a named set of participant identifiers. Rooms are constructed and
// destroyed only by a Directory; the exported methods are read-only views.
type Room struct {
	name string

	mu           sync.RWMutex
	participants map[string]struct{}
	closed       bool
}

func newRoom(name string) *Room {
	return &Room{
		name:         name,
		participants: make(map[string]struct{}),
	}
}

// Name returns the room's immutable identifier.
func (r *Room) Name() string {
	return r.name
}

// Participants returns a sorted snapshot of the current members.
func (r *Room) Participants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

// Len returns the number of current members.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// Has reports whether participant is currently a member.
func (r *Room) Has(participant string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.participants[participant]
	return ok
}

// snapshot must be called with mu held.
func (r *Room) snapshot() []string {
	members := lo.Keys(r.participants)
	slices.Sort(members)
	return members
}

// add inserts participant and returns the roster observed under the same
// lock. It reports false if the room was removed from its directory.
func (r *Room) add(participant string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false
	}
	r.participants[participant] = struct{}{}
	return r.snapshot(), true
}

// remove deletes participant if present and returns the remaining roster.
func (r *Room) remove(participant string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false
	}
	delete(r.participants, participant)
	return r.snapshot(), true
}

// route checks sender membership and enumerates recipients against a
// single view of the participant set.
func (r *Room) route(sender string) (recipients []string, member bool, open bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, false, false
	}
	if _, ok := r.participants[sender]; !ok {
		return nil, false, true
	}
	return r.snapshot(), true, true
}

func (r *Room) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func validParticipant(id string) bool {
	return strings.TrimSpace(id) != ""
}
