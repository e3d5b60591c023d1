// Package server coordinates client registration, identity bindings, event
// delivery, and disconnect cleanup for the GoChat rooms service via the Hub.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Tyrowin/chatrooms/internal/chat"
	"github.com/Tyrowin/chatrooms/internal/protocol"
)

// binding ties a logical participant in a room to one connection.
type binding struct {
	room        string
	participant string
}

// Hub manages all WebSocket client connections, maps room participants to the
// connections that speak for them, and delivers engine events to those
// connections. It implements chat.Deliverer.
type Hub struct {
	engine *chat.Engine
	config *Config

	clients  map[*Client]struct{}
	bindings map[string]map[string]map[*Client]struct{}
	byClient map[*Client]map[binding]struct{}
	mutex    sync.RWMutex

	// membership serializes an engine join, leave, or create with the binding
	// change that follows it, so a bound participant is always a member.
	// Lock order: membership, then mutex, then engine room locks.
	membership sync.Mutex

	register   chan *Client
	unregister chan *Client

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub that serves engine using cfg. A nil cfg uses defaults.
func NewHub(engine *chat.Engine, cfg *Config) *Hub {
	if cfg == nil {
		cfg = NewConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		engine:     engine,
		config:     cfg,
		clients:    make(map[*Client]struct{}),
		bindings:   make(map[string]map[string]map[*Client]struct{}),
		byClient:   make(map[*Client]map[binding]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Engine returns the engine the hub serves.
func (h *Hub) Engine() *chat.Engine {
	return h.engine
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop, handling client registration and
// unregistration until Shutdown is called. It should run in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Warn().Msg("received nil client registration; skipping")
				continue
			}
			count := h.addClient(client)
			log.Info().Str("client", client.id).Str("addr", client.addr).Int("clients", count).Msg("client registered")

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	client.closed = false
	h.clients[client] = struct{}{}
	return len(h.clients)
}

// removeClient drops the connection, closes its send channel, and leaves
// every room in which it was the last connection for a participant.
func (h *Hub) removeClient(client *Client) {
	h.membership.Lock()
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		h.membership.Unlock()
		return
	}
	delete(h.clients, client)
	client.closed = true
	orphaned := h.unbindAllLocked(client)
	count := len(h.clients)
	h.mutex.Unlock()

	type departure struct {
		binding
		remaining []string
	}
	var departures []departure
	for _, b := range orphaned {
		remaining, err := h.engine.LeaveRoom(b.room, b.participant)
		if err != nil {
			log.Debug().Err(err).Str("room", b.room).Str("user", b.participant).Msg("disconnect cleanup skipped")
			continue
		}
		departures = append(departures, departure{binding: b, remaining: remaining})
	}
	h.membership.Unlock()

	close(client.send)
	log.Info().Str("client", client.id).Str("addr", client.addr).Int("clients", count).Msg("client unregistered")

	for _, d := range departures {
		log.Info().Str("room", d.room).Str("user", d.participant).Msg("participant left on disconnect")
		chat.Fanout(h, d.remaining, chat.UserLeft(d.room, d.participant))
	}
}

// bind records that client speaks for participant in room.
func (h *Hub) bind(room, participant string, client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	participants, ok := h.bindings[room]
	if !ok {
		participants = make(map[string]map[*Client]struct{})
		h.bindings[room] = participants
	}
	conns, ok := participants[participant]
	if !ok {
		conns = make(map[*Client]struct{})
		participants[participant] = conns
	}
	conns[client] = struct{}{}

	owned, ok := h.byClient[client]
	if !ok {
		owned = make(map[binding]struct{})
		h.byClient[client] = owned
	}
	owned[binding{room: room, participant: participant}] = struct{}{}
}

// unbindParticipant detaches every connection bound to participant in room
// and returns them.
func (h *Hub) unbindParticipant(room, participant string) []*Client {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	conns := lo.Keys(h.bindings[room][participant])
	b := binding{room: room, participant: participant}
	for _, c := range conns {
		delete(h.byClient[c], b)
	}
	h.dropBindingLocked(b)
	return conns
}

// unbindAllLocked detaches client from all its bindings and returns those
// left with no live connection.
func (h *Hub) unbindAllLocked(client *Client) []binding {
	var orphaned []binding
	for b := range h.byClient[client] {
		conns := h.bindings[b.room][b.participant]
		delete(conns, client)
		if len(conns) == 0 {
			h.dropBindingLocked(b)
			orphaned = append(orphaned, b)
		}
	}
	delete(h.byClient, client)
	return orphaned
}

func (h *Hub) dropBindingLocked(b binding) {
	participants := h.bindings[b.room]
	delete(participants, b.participant)
	if len(participants) == 0 {
		delete(h.bindings, b.room)
	}
}

func (h *Hub) connectionsFor(room, participant string) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return lo.Keys(h.bindings[room][participant])
}

// Deliver pushes event to every connection bound to recipient in the
// event's room. Frames that cannot be queued are dropped.
func (h *Hub) Deliver(recipient string, event chat.Event) {
	conns := h.connectionsFor(event.Room, recipient)
	if len(conns) == 0 {
		return
	}
	payload, err := protocol.Encode(protocol.FromChat(event))
	if err != nil {
		log.Error().Err(err).Msg("dropping undeliverable event")
		return
	}
	for _, c := range conns {
		if !h.safeSend(c, payload) {
			log.Warn().Str("client", c.id).Str("user", recipient).Str("event", string(event.Name)).Msg("send buffer full or closed; event dropped")
		}
	}
}

// reply sends a frame to a single connection.
func (h *Hub) reply(client *Client, evt protocol.Event) {
	payload, err := protocol.Encode(evt)
	if err != nil {
		log.Error().Err(err).Str("client", client.id).Msg("dropping reply")
		return
	}
	if !h.safeSend(client, payload) {
		log.Warn().Str("client", client.id).Str("event", evt.Event).Msg("send buffer full or closed; reply dropped")
	}
}

func (h *Hub) safeSend(client *Client, message []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("client", client.id).Msg("recovered from panic in safeSend")
			sent = false
		}
	}()

	// The read lock keeps removeClient from closing the channel mid-send.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// handleCommand executes one client command against the engine and fans
// out the resulting events.
func (h *Hub) handleCommand(client *Client, cmd protocol.Command) {
	logger := log.With().Str("client", client.id).Str("action", cmd.Action).Str("room", cmd.Room).Str("user", cmd.User).Logger()

	switch cmd.Action {
	case protocol.ActionCreate:
		h.membership.Lock()
		err := h.engine.CreateRoom(cmd.Room, cmd.User)
		if err == nil {
			h.bind(cmd.Room, cmd.User, client)
		}
		h.membership.Unlock()
		if err != nil {
			logger.Debug().Err(err).Msg("create rejected")
			h.reply(client, protocol.FailureEvent(cmd.Room, err))
			return
		}
		h.reply(client, protocol.FromChat(chat.RoomCreated(cmd.Room)))
		h.reply(client, protocol.FromChat(chat.UserJoined(cmd.Room, cmd.User)))
		logger.Info().Msg("room created")

	case protocol.ActionJoin:
		h.membership.Lock()
		members, err := h.engine.JoinRoom(cmd.Room, cmd.User)
		if err == nil {
			h.bind(cmd.Room, cmd.User, client)
		}
		h.membership.Unlock()
		if err != nil {
			logger.Debug().Err(err).Msg("join rejected")
			h.reply(client, protocol.FailureEvent(cmd.Room, err))
			return
		}
		chat.Fanout(h, members, chat.UserJoined(cmd.Room, cmd.User))
		logger.Info().Int("members", len(members)).Msg("user joined")

	case protocol.ActionSend:
		recipients, err := h.engine.SendMessage(cmd.Room, cmd.User, cmd.Message)
		if err != nil {
			logger.Debug().Err(err).Msg("send rejected")
			h.reply(client, protocol.FailureEvent(cmd.Room, err))
			return
		}
		chat.Fanout(h, recipients, chat.MessageReceived(cmd.Room, cmd.User, cmd.Message))
		logger.Debug().Int("recipients", len(recipients)).Msg("message routed")

	case protocol.ActionLeave:
		h.membership.Lock()
		remaining, err := h.engine.LeaveRoom(cmd.Room, cmd.User)
		var detached []*Client
		if err == nil {
			detached = h.unbindParticipant(cmd.Room, cmd.User)
		}
		h.membership.Unlock()
		if err != nil {
			logger.Debug().Err(err).Msg("leave rejected")
			h.reply(client, protocol.FailureEvent(cmd.Room, err))
			return
		}
		left := chat.UserLeft(cmd.Room, cmd.User)
		if !lo.Contains(detached, client) {
			detached = append(detached, client)
		}
		frame := protocol.FromChat(left)
		for _, c := range detached {
			h.reply(c, frame)
		}
		chat.Fanout(h, remaining, left)
		logger.Info().Int("members", len(remaining)).Msg("user left")

	case protocol.ActionRooms:
		names := lo.Map(h.engine.Rooms(), func(r chat.RoomSummary, _ int) string { return r.Name })
		h.reply(client, protocol.Event{Event: protocol.EventRooms, Args: names})

	default:
		h.reply(client, protocol.ErrorEvent(cmd.Room, protocol.KindBadRequest, "unknown action"))
	}
}

// shutdownClients closes all active client connections.
func (h *Hub) shutdownClients() {
	h.mutex.RLock()
	clients := lo.Keys(h.clients)
	h.mutex.RUnlock()

	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Warn().Err(err).Str("client", client.id).Msg("error closing client connection")
		}
	}
	log.Info().Int("clients", len(clients)).Msg("closed client connections")
}

// Shutdown stops the hub and waits for client goroutines to finish, or for
// timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Info().Msg("initiating hub shutdown")
	h.cancel()

	select {
	case <-h.done:
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Warn().Msg("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
