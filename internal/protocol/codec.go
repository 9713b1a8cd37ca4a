package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Delimiter terminates every frame. encoding/json escapes control
// characters inside strings, so it never occurs in an encoded payload.
const Delimiter = '\n'

// DefaultMaxFrame bounds a single inbound frame.
const DefaultMaxFrame = 64 * 1024

var ErrFrameTooLarge = errors.New("frame_too_large")

// Frame encodes a typed payload as one delimited frame.
func Frame(msg Message) ([]byte, error) {
	return FrameOf(msg.MessageType(), msg)
}

// FrameOf encodes payload under an explicit type tag.
func FrameOf(t Type, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(Envelope{Type: t, Data: data})
	if err != nil {
		return nil, err
	}
	return append(b, Delimiter), nil
}

// Write frames msg and writes it to w in a single call.
func Write(w io.Writer, msg Message) error {
	b, err := Frame(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Decoder reads delimited envelopes from a stream.
type Decoder struct {
	r        *bufio.Reader
	maxFrame int
	err      error
}

func NewDecoder(r io.Reader, maxFrame int) *Decoder {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	return &Decoder{r: bufio.NewReader(r), maxFrame: maxFrame}
}

// Read blocks until a full frame arrives. It reports ok=false on end of
// stream, I/O error, oversized frame or malformed payload; callers treat all
// of these as the peer being gone. Err returns the underlying cause.
func (d *Decoder) Read() (Envelope, bool) {
	line, err := d.readFrame()
	if err != nil {
		d.err = err
		return Envelope{}, false
	}
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		d.err = err
		return Envelope{}, false
	}
	if env.Type == "" {
		d.err = ErrUnknownType
		return Envelope{}, false
	}
	return env, true
}

// Err returns the reason the last Read failed.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) readFrame() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := d.r.ReadSlice(Delimiter)
		if len(buf)+len(chunk) > d.maxFrame+1 {
			return nil, ErrFrameTooLarge
		}
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			return bytes.TrimRight(buf[:len(buf)-1], "\r"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			// A trailing partial frame without a delimiter is dropped.
			return nil, err
		}
	}
}
