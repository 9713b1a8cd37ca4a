package gomoku

import (
	"context"
	"errors"
	"expvar"
	"time"

	"peer-arcade/internal/protocol"
	"peer-arcade/internal/session"

	"github.com/rs/zerolog/log"
)

type State int

const (
	StateWaiting State = iota
	StateInProgress
	StateWon
	StateDraw
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateInProgress:
		return "in_progress"
	case StateWon:
		return "won"
	case StateDraw:
		return "draw"
	default:
		return "closed"
	}
}

var ErrMatchStarted = errors.New("match_started")

var (
	metricMatchesTotal = expvar.NewInt("gomoku_matches_total")
	metricTimeouts     = expvar.NewInt("gomoku_turn_timeouts_total")
)

const players = 2

type Options struct {
	BoardSize   int
	MaxFrame    int
	TurnTimeout time.Duration
	JoinWait    time.Duration
	SessionID   string
}

// Outcome is how a match ended. Winner is 0 unless State is StateWon.
type Outcome struct {
	State  State
	Winner int
	Reason string
}

// Match runs one game between two participants. The session receive loops
// only queue moves; Run pulls the current turn owner's move with a deadline.
type Match struct {
	s     *session.Session
	opts  Options
	board *Board
	state State
	turn  int
	ready chan struct{}
}

func NewMatch(opts Options) *Match {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = 60 * time.Second
	}
	if opts.JoinWait <= 0 {
		opts.JoinWait = 30 * time.Second
	}
	m := &Match{
		opts:  opts,
		board: NewBoard(opts.BoardSize),
		turn:  1,
		ready: make(chan struct{}, 1),
	}
	m.s = session.New(session.Options{
		Mode:       session.ModeTurn,
		MaxPlayers: players,
		MaxFrame:   opts.MaxFrame,
		Welcome: func(p *session.Participant) protocol.Welcome {
			return protocol.Welcome{SessionID: opts.SessionID, BoardSize: m.board.Size()}
		},
	}, m)
	return m
}

func (m *Match) Session() *session.Session {
	return m.s
}

// Run waits for both players, then plays turns until a win, a draw or an
// abnormal end. The session is closed when Run returns.
func (m *Match) Run(ctx context.Context) Outcome {
	select {
	case <-m.ready:
	case <-time.After(m.opts.JoinWait):
		return m.abort("not enough players")
	case <-m.s.Done():
		return Outcome{State: StateClosed, Reason: "player disconnected"}
	case <-ctx.Done():
		return m.abort("server stopping")
	}

	roster, ok := m.start()
	if !ok {
		return Outcome{State: StateClosed, Reason: "player disconnected"}
	}
	metricMatchesTotal.Add(1)

	for {
		cur := roster[m.turn-1]
		m.s.Lock()
		if m.s.ClosedLocked() {
			m.s.Unlock()
			return Outcome{State: StateClosed, Reason: "player disconnected"}
		}
		drain(cur.Inbox())
		m.s.SendLocked(cur, protocol.Prompt{Msg: "your move"})
		m.s.Unlock()

		mv, out, ok := m.awaitMove(ctx, cur)
		if !ok {
			return out
		}
		if out, done := m.apply(mv); done {
			return out
		}
	}
}

func (m *Match) start() ([]*session.Participant, bool) {
	m.s.Lock()
	defer m.s.Unlock()
	roster := m.s.ParticipantsLocked()
	if m.s.ClosedLocked() || len(roster) < players {
		return nil, false
	}
	m.state = StateInProgress
	names := make([]string, len(roster))
	for i, p := range roster {
		names[i] = p.Name
	}
	log.Info().Strs("players", names).Int("first_turn", m.turn).Msg("match_started")
	m.s.BroadcastLocked(protocol.Start{Players: names, FirstTurn: m.turn})
	return roster, !m.s.ClosedLocked()
}

// awaitMove blocks for the next move message from cur. Other message types
// are ignored without resetting the deadline. A move that does not name both
// coordinates comes back as an out-of-range cell and is rejected as invalid.
func (m *Match) awaitMove(ctx context.Context, cur *session.Participant) (protocol.Place, Outcome, bool) {
	timer := time.NewTimer(m.opts.TurnTimeout)
	defer timer.Stop()
	for {
		select {
		case env := <-cur.Inbox():
			if env.Type != protocol.TypeMove {
				continue
			}
			var mv protocol.Place
			if err := env.Decode(&mv); err != nil {
				mv = protocol.Place{X: -1, Y: -1}
			}
			return mv, Outcome{}, true
		case <-timer.C:
			metricTimeouts.Add(1)
			log.Info().Int("turn", m.turn).Str("user", cur.Name).Msg("turn_timeout")
			return protocol.Place{}, m.abort("turn timeout"), false
		case <-m.s.Done():
			return protocol.Place{}, Outcome{State: StateClosed, Reason: "player disconnected"}, false
		case <-ctx.Done():
			return protocol.Place{}, m.abort("server stopping"), false
		}
	}
}

// apply places a move for the turn owner and broadcasts the result. It
// reports whether the match is over.
func (m *Match) apply(mv protocol.Place) (Outcome, bool) {
	m.s.Lock()
	defer m.s.Unlock()
	if m.s.ClosedLocked() {
		return Outcome{State: StateClosed, Reason: "player disconnected"}, true
	}
	if err := m.board.Place(mv.X, mv.Y, m.turn); err != nil {
		m.s.BroadcastLocked(protocol.Update{Board: m.board.Rows(), Turn: m.turn, Msg: err.Error()})
		return Outcome{}, false
	}

	switch {
	case m.board.WinsAt(mv.X, mv.Y):
		m.state = StateWon
		winner := m.turn
		rows := m.board.Rows()
		m.s.BroadcastLocked(protocol.Update{Board: rows, Winner: winner})
		m.s.BroadcastLocked(protocol.GameEnd{Winner: &winner, Board: rows})
		m.s.CloseLocked()
		log.Info().Int("winner", winner).Msg("match_won")
		return Outcome{State: StateWon, Winner: winner}, true
	case m.board.Full():
		m.state = StateDraw
		m.s.BroadcastLocked(protocol.GameEnd{Board: m.board.Rows()})
		m.s.CloseLocked()
		log.Info().Msg("match_draw")
		return Outcome{State: StateDraw}, true
	}

	m.turn = 3 - m.turn
	m.s.BroadcastLocked(protocol.Update{Board: m.board.Rows(), Turn: m.turn})
	return Outcome{}, false
}

func (m *Match) abort(reason string) Outcome {
	m.s.Shutdown(reason)
	return Outcome{State: StateClosed, Reason: reason}
}

func drain(ch <-chan protocol.Envelope) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (m *Match) Admit(*session.Session, *session.Participant) error {
	if m.state != StateWaiting {
		return ErrMatchStarted
	}
	return nil
}

func (m *Match) Joined(s *session.Session, _ *session.Participant) {
	if s.LenLocked() >= players {
		select {
		case m.ready <- struct{}{}:
		default:
		}
	}
}

func (m *Match) Message(*session.Session, *session.Participant, protocol.Envelope) {}

func (m *Match) Left(*session.Session, *session.Participant) {}
