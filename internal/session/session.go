// Package session accepts wire-protocol connections for one authoritative
// game session, tracks the live roster and fans state out to it.
//
// All roster state is guarded by a single lock. Methods ending in Locked
// must be called with that lock held; Handler callbacks always are.
package session

import (
	"context"
	"errors"
	"expvar"
	"net"
	"sync"
	"time"

	"peer-arcade/internal/protocol"

	"github.com/rs/zerolog/log"
)

type Mode int

const (
	// ModeStream applies every inbound message as it arrives.
	ModeStream Mode = iota
	// ModeTurn queues inbound messages for the driving loop and treats any
	// disconnect as fatal.
	ModeTurn
)

var (
	ErrSessionFull = errors.New("session_full")
	ErrClosed      = errors.New("session_closed")
)

var (
	metricJoinsTotal   = expvar.NewInt("session_joins_total")
	metricRejectsTotal = expvar.NewInt("session_rejects_total")
	metricDropsTotal   = expvar.NewInt("session_send_drops_total")
)

const (
	defaultJoinTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second
	inboxSize           = 16
)

// Handler is the game logic behind a session.
type Handler interface {
	// Admit runs before a participant is added. A non-nil error rejects the
	// join; its text becomes the reject code.
	Admit(s *Session, p *Participant) error
	// Joined runs after the welcome has been sent.
	Joined(s *Session, p *Participant)
	// Message runs for every inbound message in ModeStream.
	Message(s *Session, p *Participant, env protocol.Envelope)
	// Left runs once when a participant disconnects or is dropped.
	Left(s *Session, p *Participant)
}

type Options struct {
	Mode         Mode
	MaxPlayers   int
	MaxFrame     int
	JoinTimeout  time.Duration
	WriteTimeout time.Duration
	// Welcome builds the reply to an accepted join.
	Welcome func(p *Participant) protocol.Welcome
}

type Session struct {
	mu           sync.Mutex
	opts         Options
	handler      Handler
	nextID       int
	participants []*Participant
	closed       bool
	done         chan struct{}
}

func New(opts Options, h Handler) *Session {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 2
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = defaultJoinTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	return &Session{opts: opts, handler: h, done: make(chan struct{})}
}

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Serve accepts connections until ctx is cancelled or the session closes.
func (s *Session) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown("server stopping")
		case <-s.done:
		}
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		go s.handle(conn)
	}
}

// Attach runs the join handshake and receive loop for conn on the calling
// goroutine. Serve calls it for every accepted connection.
func (s *Session) Attach(conn net.Conn) {
	s.handle(conn)
}

func (s *Session) handle(conn net.Conn) {
	dec := protocol.NewDecoder(conn, s.opts.MaxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(s.opts.JoinTimeout))
	env, ok := dec.Read()
	if !ok || env.Type != protocol.TypeJoin {
		_ = conn.Close()
		return
	}
	var join protocol.Join
	if err := env.Decode(&join); err != nil || join.Username == "" {
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	p, err := s.admit(conn, join.Username)
	if err != nil {
		metricRejectsTotal.Add(1)
		log.Info().Str("user", join.Username).Str("reason", err.Error()).Msg("session_join_rejected")
		_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
		_ = protocol.Write(conn, protocol.Reject{Code: err.Error()})
		_ = conn.Close()
		return
	}
	s.receive(p, dec)
}

func (s *Session) admit(conn net.Conn, name string) (*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if len(s.participants) >= s.opts.MaxPlayers {
		return nil, ErrSessionFull
	}
	p := &Participant{
		ID:           s.nextID + 1,
		Name:         name,
		conn:         conn,
		writeTimeout: s.opts.WriteTimeout,
	}
	if s.opts.Mode == ModeTurn {
		p.inbox = make(chan protocol.Envelope, inboxSize)
	}
	if err := s.handler.Admit(s, p); err != nil {
		return nil, err
	}
	s.nextID++
	p.live = true
	s.participants = append(s.participants, p)

	welcome := protocol.Welcome{PlayerID: p.ID}
	if s.opts.Welcome != nil {
		welcome = s.opts.Welcome(p)
		welcome.PlayerID = p.ID
	}
	if !s.SendLocked(p, welcome) {
		return p, nil
	}
	metricJoinsTotal.Add(1)
	log.Info().Int("player_id", p.ID).Str("user", name).Str("remote", p.RemoteAddr()).Msg("player_joined")
	s.handler.Joined(s, p)
	return p, nil
}

func (s *Session) receive(p *Participant, dec *protocol.Decoder) {
	for {
		env, ok := dec.Read()
		if !ok {
			break
		}
		if s.opts.Mode == ModeTurn {
			select {
			case p.inbox <- env:
			default:
			}
			continue
		}
		s.mu.Lock()
		if p.live && !s.closed {
			s.handler.Message(s, p, env)
		}
		s.mu.Unlock()
	}
	s.disconnect(p)
}

func (s *Session) disconnect(p *Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(p)
}

// dropLocked removes p from the roster, closes its connection and notifies
// the handler once. In turn mode it then shuts the whole session down.
func (s *Session) dropLocked(p *Participant) {
	if p.left {
		return
	}
	p.left = true
	s.removeLocked(p)
	p.closeConn()
	if s.closed {
		return
	}
	log.Info().Int("player_id", p.ID).Str("user", p.Name).Msg("player_left")
	s.handler.Left(s, p)
	if s.opts.Mode == ModeTurn {
		s.ShutdownLocked("player disconnected")
	}
}

func (s *Session) removeLocked(p *Participant) {
	if !p.live {
		return
	}
	p.live = false
	for i, q := range s.participants {
		if q == p {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			break
		}
	}
}

// ParticipantsLocked returns the live roster in admission order.
func (s *Session) ParticipantsLocked() []*Participant {
	out := make([]*Participant, len(s.participants))
	copy(out, s.participants)
	return out
}

func (s *Session) LenLocked() int {
	return len(s.participants)
}

func (s *Session) ClosedLocked() bool {
	return s.closed
}

// BroadcastLocked encodes msg once and writes it to every live participant.
// A participant whose write fails is dropped; delivery to the rest goes on.
func (s *Session) BroadcastLocked(msg protocol.Message) {
	b, err := protocol.Frame(msg)
	if err != nil {
		log.Error().Err(err).Str("type", string(msg.MessageType())).Msg("broadcast_encode_failed")
		return
	}
	var failed []*Participant
	for _, p := range s.participants {
		if err := p.writeFrame(b); err != nil {
			failed = append(failed, p)
		}
	}
	for _, p := range failed {
		metricDropsTotal.Add(1)
		s.dropLocked(p)
	}
}

// SendLocked writes msg to one participant, dropping it on failure. It
// reports whether the write succeeded.
func (s *Session) SendLocked(p *Participant, msg protocol.Message) bool {
	if err := protocol.Write(writerFunc(p.writeFrame), msg); err != nil {
		metricDropsTotal.Add(1)
		s.dropLocked(p)
		return false
	}
	return true
}

// RemoveLocked takes p off the live roster and closes its connection
// without notifying the handler. Used for participants the game itself has
// eliminated.
func (s *Session) RemoveLocked(p *Participant) {
	p.left = true
	s.removeLocked(p)
	p.closeConn()
}

// CloseLocked half-closes and closes every connection and marks the session
// done, so no peer is left blocked on a read.
func (s *Session) CloseLocked() {
	if s.closed {
		return
	}
	s.closed = true
	for _, p := range s.participants {
		p.live = false
		p.left = true
		p.closeConn()
	}
	s.participants = nil
	close(s.done)
	log.Info().Msg("session_closed")
}

// ShutdownLocked tells every peer why the session is ending, then closes.
func (s *Session) ShutdownLocked(msg string) {
	if s.closed {
		return
	}
	log.Info().Str("reason", msg).Msg("session_shutdown")
	b, err := protocol.Frame(protocol.Shutdown{Msg: msg})
	if err == nil {
		for _, p := range s.participants {
			_ = p.writeFrame(b)
		}
	}
	s.CloseLocked()
}

func (s *Session) Shutdown(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ShutdownLocked(msg)
}

type writerFunc func([]byte) error

func (f writerFunc) Write(b []byte) (int, error) {
	if err := f(b); err != nil {
		return 0, err
	}
	return len(b), nil
}
