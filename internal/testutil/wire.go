package testutil

import (
	"net"
	"testing"
	"time"

	"peer-arcade/internal/protocol"
)

// WireClient speaks the session protocol from the player's side.
type WireClient struct {
	Conn net.Conn
	msgs chan protocol.Envelope
}

func DialWire(t *testing.T, addr string) *WireClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	c := &WireClient{Conn: conn, msgs: make(chan protocol.Envelope, 256)}
	go func() {
		defer close(c.msgs)
		dec := protocol.NewDecoder(conn, 0)
		for {
			env, ok := dec.Read()
			if !ok {
				return
			}
			c.msgs <- env
		}
	}()
	return c
}

func (c *WireClient) Send(t *testing.T, msg protocol.Message) {
	t.Helper()
	if err := protocol.Write(c.Conn, msg); err != nil {
		t.Fatalf("send %s: %v", msg.MessageType(), err)
	}
}

// SendRaw writes line as one frame without encoding it first.
func (c *WireClient) SendRaw(t *testing.T, line string) {
	t.Helper()
	if _, err := c.Conn.Write(append([]byte(line), protocol.Delimiter)); err != nil {
		t.Fatalf("send raw: %v", err)
	}
}

// Next returns the next message, or ok=false once the server closed the
// connection.
func (c *WireClient) Next(t *testing.T) (protocol.Envelope, bool) {
	t.Helper()
	select {
	case env, ok := <-c.msgs:
		return env, ok
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a message")
		return protocol.Envelope{}, false
	}
}

// Expect skips messages until one of type typ arrives.
func (c *WireClient) Expect(t *testing.T, typ protocol.Type) protocol.Envelope {
	t.Helper()
	for {
		env, ok := c.Next(t)
		if !ok {
			t.Fatalf("connection closed while waiting for %s", typ)
		}
		if env.Type == typ {
			return env
		}
	}
}

// ExpectClosed drains until the server closes the connection.
func (c *WireClient) ExpectClosed(t *testing.T) {
	t.Helper()
	for {
		if _, ok := c.Next(t); !ok {
			return
		}
	}
}
