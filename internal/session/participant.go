package session

import (
	"net"
	"sync"
	"time"

	"peer-arcade/internal/protocol"
)

// Participant is one admitted connection. ID is unique within the session
// and never reused.
type Participant struct {
	ID   int
	Name string

	conn         net.Conn
	writeTimeout time.Duration
	wmu          sync.Mutex
	inbox        chan protocol.Envelope

	// guarded by the session lock
	live bool
	left bool
}

// Inbox carries the participant's inbound messages in turn mode.
func (p *Participant) Inbox() <-chan protocol.Envelope {
	return p.inbox
}

func (p *Participant) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

func (p *Participant) writeFrame(b []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if p.writeTimeout > 0 {
		_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	}
	_, err := p.conn.Write(b)
	return err
}

// closeConn half-closes first so a peer blocked on read sees end of stream
// even if it is not reading our close.
func (p *Participant) closeConn() {
	if hc, ok := p.conn.(interface{ CloseWrite() error }); ok {
		_ = hc.CloseWrite()
	}
	_ = p.conn.Close()
}
