// Package console implements the interactive terminal client for the GoChat
// rooms server: it parses typed commands, sends them as protocol frames, and
// renders the events the server pushes back.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/Tyrowin/chatrooms/internal/chat"
	"github.com/Tyrowin/chatrooms/internal/protocol"
)

// Sender writes one command frame to the server.
type Sender interface {
	WriteJSON(v any) error
}

// ErrExit is returned by Execute once the user asked to quit.
var ErrExit = errors.New("exit requested")

// Session holds the client-side state of one console: the room it last
// entered and the name it entered as.
type Session struct {
	conn Sender

	mu      sync.Mutex
	out     io.Writer
	room    string
	user    string
	pending *entry
}

// entry is a create or join the server has not confirmed yet.
type entry struct {
	action string
	room   string
	user   string
}

// NewSession returns a session that sends through conn and prints to out.
func NewSession(conn Sender, out io.Writer) *Session {
	return &Session{conn: conn, out: out}
}

// Room returns the current room, or the empty string.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Printf writes a line to the console. Safe for concurrent use with the
// event reader.
func (s *Session) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

// Execute runs one input line. Usage problems are returned without sending
// anything to the server.
func (s *Session) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "help":
		s.Printf("%s", helpText)
		return nil

	case "create", "join":
		if len(args) < 2 {
			return errors.Errorf("Usage: %s <roomName> <userName>", command)
		}
		room, user := args[0], args[1]
		if err := s.send(protocol.Command{Action: command, Room: room, User: user}); err != nil {
			return err
		}
		s.mu.Lock()
		s.pending = &entry{action: command, room: room, user: user}
		s.mu.Unlock()
		return nil

	case "send":
		room, user := s.current()
		if room == "" {
			return errors.New("You must join a room first.")
		}
		if len(args) < 1 {
			return errors.New("Usage: send <message>")
		}
		return s.send(protocol.Command{Action: protocol.ActionSend, Room: room, User: user, Message: strings.Join(args, " ")})

	case "leave":
		room, _ := s.current()
		if room == "" {
			return errors.New("You are not in a room.")
		}
		return s.leave()

	case "rooms":
		return s.send(protocol.Command{Action: protocol.ActionRooms})

	case "exit":
		if room, _ := s.current(); room != "" {
			if err := s.leave(); err != nil {
				return err
			}
		}
		return ErrExit

	default:
		s.Printf("Unknown command: %s. Type 'help' for available commands.", command)
		return nil
	}
}

func (s *Session) leave() error {
	room, user := s.current()
	if err := s.send(protocol.Command{Action: protocol.ActionLeave, Room: room, User: user}); err != nil {
		return err
	}
	s.Printf("# You left room '%s'.", room)
	s.enter("", user)
	return nil
}

// Handle prints a server event. The pending create or join is committed when
// the server announces the user in that room, and dropped when it answers
// with an error for that room.
func (s *Session) Handle(evt protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.out, Render(evt))

	p := s.pending
	if p == nil {
		return
	}
	switch {
	case evt.Event == protocol.EventError && (evt.Room == p.room || evt.Room == ""):
		s.pending = nil
	case evt.Event == string(chat.EventUserJoined) && evt.Room == p.room && len(evt.Args) > 0 && evt.Args[0] == p.user:
		s.pending = nil
		s.room, s.user = p.room, p.user
		if p.action == protocol.ActionCreate {
			_, _ = fmt.Fprintf(s.out, "# You created and joined room '%s' as '%s'.\n", p.room, p.user)
		} else {
			_, _ = fmt.Fprintf(s.out, "# You joined room '%s' as '%s'.\n", p.room, p.user)
		}
	}
}

func (s *Session) send(cmd protocol.Command) error {
	if err := s.conn.WriteJSON(cmd); err != nil {
		return errors.Wrapf(err, "send %s", cmd.Action)
	}
	return nil
}

func (s *Session) enter(room, user string) {
	s.mu.Lock()
	s.room, s.user = room, user
	s.mu.Unlock()
}

func (s *Session) current() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.user
}

// Render formats a server event for display.
func Render(evt protocol.Event) string {
	arg := func(i int) string {
		if i < len(evt.Args) {
			return evt.Args[i]
		}
		return ""
	}

	switch evt.Event {
	case string(chat.EventRoomCreated):
		return fmt.Sprintf("Room '%s' has been created.", arg(0))
	case string(chat.EventUserJoined):
		return fmt.Sprintf("# %s has joined the chat.", arg(0))
	case string(chat.EventMessageReceived):
		return fmt.Sprintf("%s> %s", arg(0), arg(1))
	case string(chat.EventUserLeft):
		return fmt.Sprintf("# %s has left the chat.", arg(0))
	case protocol.EventError:
		return fmt.Sprintf("Error: %s", arg(1))
	case protocol.EventRooms:
		if len(evt.Args) == 0 {
			return "No rooms."
		}
		return "Rooms: " + strings.Join(evt.Args, ", ")
	default:
		return fmt.Sprintf("[%s] %s", evt.Event, strings.Join(evt.Args, " "))
	}
}

const helpText = `Available Commands:
  create <roomName> <userName>: Create a room and join it as the specified user.
  join <roomName> <userName>  : Join an existing room as the specified user.
  send <message>              : Send a message to the current room.
  leave                       : Leave the current room.
  rooms                       : List the rooms on the server.
  exit                        : Disconnect and exit the application.`
