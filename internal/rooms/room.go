// Package rooms is the lobby's durable room registry. Every mutation is
// serialized on one lock and written through to the document store before
// it becomes visible.
package rooms

import "errors"

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
)

var (
	ErrRoomNotFound  = errors.New("room_not_found")
	ErrRoomExists    = errors.New("room_exists")
	ErrRoomFull      = errors.New("room_full")
	ErrAlreadyInRoom = errors.New("already_in_room")
	ErrNotInRoom     = errors.New("not_in_room")
	ErrRoomRunning   = errors.New("room_running")
	ErrInvalidRoom   = errors.New("invalid_room")
)

// Room is the persisted record. HostAddr and HostPort stay null until the
// room is started.
type Room struct {
	RoomID     string   `json:"room_id"`
	GameName   string   `json:"game_name"`
	Version    string   `json:"version"`
	Host       string   `json:"host"`
	Players    []string `json:"players"`
	Status     Status   `json:"status"`
	HostAddr   *string  `json:"host_addr"`
	HostPort   *int     `json:"host_port"`
	MaxPlayers int      `json:"max_players"`
}

func (r Room) clone() Room {
	out := r
	out.Players = append([]string(nil), r.Players...)
	if r.HostAddr != nil {
		addr := *r.HostAddr
		out.HostAddr = &addr
	}
	if r.HostPort != nil {
		port := *r.HostPort
		out.HostPort = &port
	}
	return out
}

func (r Room) Has(user string) bool {
	for _, p := range r.Players {
		if p == user {
			return true
		}
	}
	return false
}

func (r Room) Full() bool {
	return len(r.Players) >= r.MaxPlayers
}
