package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"peer-arcade/internal/rooms"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	pingInterval = 15 * time.Second
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// roomFeed is one subscriber's view of the registry event log: the replayed
// backlog followed by live events, without duplicates across the seam.
type roomFeed struct {
	buf    *rooms.EventBuffer
	ch     chan rooms.Event
	roomID string
	last   int64
}

func openRoomFeed(buf *rooms.EventBuffer, lastEventID, roomID string) (*roomFeed, []rooms.Event) {
	// Subscribe before replaying so nothing appended in between is lost.
	f := &roomFeed{buf: buf, ch: buf.Subscribe(), roomID: roomID}
	f.last, _ = strconv.ParseInt(lastEventID, 10, 64)
	var out []rooms.Event
	for _, ev := range buf.ReplayAfter(lastEventID) {
		if f.accept(ev) {
			out = append(out, ev)
		}
	}
	return f, out
}

func (f *roomFeed) accept(ev rooms.Event) bool {
	id, _ := strconv.ParseInt(ev.EventID, 10, 64)
	if id <= f.last {
		return false
	}
	f.last = id
	return f.roomID == "" || ev.RoomID == f.roomID
}

func (f *roomFeed) close() {
	f.buf.Unsubscribe(f.ch)
}

// EventsWSHandler streams registry events over a websocket. Clients may
// resume with ?last_event_id= and narrow the feed with ?room_id=.
func EventsWSHandler(buf *rooms.EventBuffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		metricEventsWSTotal.Add(1)
		metricEventsWSActive.Add(1)
		defer metricEventsWSActive.Add(-1)

		q := r.URL.Query()
		feed, backlog := openRoomFeed(buf, q.Get("last_event_id"), q.Get("room_id"))
		defer feed.close()

		// The read side only exists to notice the peer going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		write := func(ev rooms.Event) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteJSON(ev) == nil
		}
		for _, ev := range backlog {
			if !write(ev) {
				return
			}
		}

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case ev, ok := <-feed.ch:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "lobby shutting down"),
						time.Now().Add(writeWait))
					return
				}
				if feed.accept(ev) && !write(ev) {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					log.Debug().Err(err).Msg("events_ws_ping_failed")
					return
				}
			}
		}
	}
}

// EventsSSEHandler is the server-sent-events variant of the feed. Resume uses
// the standard Last-Event-ID header.
func EventsSSEHandler(buf *rooms.EventBuffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		metricEventsSSETotal.Add(1)
		metricEventsSSEActive.Add(1)
		defer metricEventsSSEActive.Add(-1)

		setSSEHeaders(w)
		feed, backlog := openRoomFeed(buf, r.Header.Get("Last-Event-ID"), r.URL.Query().Get("room_id"))
		defer feed.close()

		for _, ev := range backlog {
			if err := writeSSE(w, ev.EventID, ev.Event, ev); err != nil {
				return
			}
		}
		flusher.Flush()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-feed.ch:
				if !ok {
					return
				}
				if !feed.accept(ev) {
					continue
				}
				if err := writeSSE(w, ev.EventID, ev.Event, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				ts := time.Now().UnixMilli()
				if err := writeSSE(w, "", "ping", map[string]any{"ts": ts}); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
