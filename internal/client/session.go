package client

import (
	"context"
	"errors"
	"fmt"
	"net"

	"peer-arcade/internal/protocol"
)

var ErrClosed = errors.New("session_closed")

// RejectedError is returned by Dial when the server refuses the join.
type RejectedError struct {
	Code string
}

func (e *RejectedError) Error() string {
	return "join rejected: " + e.Code
}

// Session is one player's connection to a game server.
type Session struct {
	conn    net.Conn
	dec     *protocol.Decoder
	Welcome protocol.Welcome
}

// Dial connects, sends the join handshake and waits for the welcome.
func Dial(ctx context.Context, addr, username string) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Session{conn: conn, dec: protocol.NewDecoder(conn, 0)}
	if err := protocol.Write(conn, protocol.Join{Username: username}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	env, ok := s.dec.Read()
	if !ok {
		_ = conn.Close()
		return nil, ErrClosed
	}
	switch env.Type {
	case protocol.TypeWelcome:
		if err := env.Decode(&s.Welcome); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return s, nil
	case protocol.TypeReject:
		var rej protocol.Reject
		_ = env.Decode(&rej)
		_ = conn.Close()
		return nil, &RejectedError{Code: rej.Code}
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected %s before welcome", env.Type)
	}
}

func (s *Session) PlayerID() int {
	return s.Welcome.PlayerID
}

func (s *Session) Send(msg protocol.Message) error {
	return protocol.Write(s.conn, msg)
}

// Next blocks for the next server message; ok is false once the server has
// closed the connection.
func (s *Session) Next() (protocol.Envelope, bool) {
	return s.dec.Read()
}

func (s *Session) Close() error {
	return s.conn.Close()
}
