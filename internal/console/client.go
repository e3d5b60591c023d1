package console

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Tyrowin/chatrooms/internal/protocol"
)

// Dial opens a WebSocket connection to the rooms server at url, presenting
// origin as the Origin header.
func Dial(ctx context.Context, url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", url)
	}
	return conn, nil
}

// Run drives an interactive session over conn until the user exits, input
// ends, the server goes away, or ctx is cancelled.
func Run(ctx context.Context, conn *websocket.Conn, in io.Reader, out io.Writer) error {
	session := NewSession(conn, out)
	session.Printf("Connected to Chat Server. Type 'help' for a list of commands.")

	serverGone := make(chan struct{})
	go func() {
		defer close(serverGone)
		readEvents(conn, session)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	defer func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
		session.Printf("Disconnected from server. Exiting...")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-serverGone:
			return errors.New("connection to server lost")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := session.Execute(line)
			switch {
			case errors.Is(err, ErrExit):
				return nil
			case err != nil:
				session.Printf("Error: %v", err)
			}
		}
	}
}

func readEvents(conn *websocket.Conn, session *Session) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("event reader stopped")
			return
		}
		evt, err := protocol.DecodeEvent(data)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring malformed server frame")
			continue
		}
		session.Handle(evt)
	}
}
