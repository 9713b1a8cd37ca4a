package rooms

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"peer-arcade/internal/store"

	"github.com/rs/zerolog/log"
)

// DocumentName is the store key of the registry document.
const DocumentName = "rooms"

// Manager owns the room registry. Its lock is independent of every session,
// so a stuck game never blocks browsing or other rooms.
type Manager struct {
	mu     sync.Mutex
	docs   store.Documents
	rooms  map[string]Room
	events *EventBuffer
}

// NewManager loads the registry document, starting empty when none exists.
// events may be nil.
func NewManager(ctx context.Context, docs store.Documents, events *EventBuffer) (*Manager, error) {
	rooms := map[string]Room{}
	if _, err := docs.Load(ctx, DocumentName, &rooms); err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	if rooms == nil {
		rooms = map[string]Room{}
	}
	return &Manager{docs: docs, rooms: rooms, events: events}, nil
}

func (m *Manager) Events() *EventBuffer {
	return m.events
}

// Create registers a waiting room with host as its only member.
func (m *Manager) Create(ctx context.Context, id, game, version, host string, maxPlayers int) (Room, error) {
	id = strings.TrimSpace(id)
	host = strings.TrimSpace(host)
	if id == "" || host == "" || game == "" || maxPlayers < 1 {
		return Room{}, ErrInvalidRoom
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; ok {
		return Room{}, ErrRoomExists
	}
	if _, ok := m.roomOfLocked(host); ok {
		return Room{}, ErrAlreadyInRoom
	}
	room := Room{
		RoomID:     id,
		GameName:   game,
		Version:    version,
		Host:       host,
		Players:    []string{host},
		Status:     StatusWaiting,
		MaxPlayers: maxPlayers,
	}
	if err := m.commitLocked(ctx, func(rooms map[string]Room) { rooms[id] = room }); err != nil {
		return Room{}, err
	}
	m.emit(EventRoomCreated, id, &room)
	log.Info().Str("room_id", id).Str("game", game).Str("host", host).Int("max_players", maxPlayers).Msg("room_created")
	return room.clone(), nil
}

// Join appends user to the room's participants.
func (m *Manager) Join(ctx context.Context, id, user string) (Room, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return Room{}, ErrInvalidRoom
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if _, in := m.roomOfLocked(user); in {
		return Room{}, ErrAlreadyInRoom
	}
	if room.Full() {
		return Room{}, ErrRoomFull
	}
	room = room.clone()
	room.Players = append(room.Players, user)
	if err := m.commitLocked(ctx, func(rooms map[string]Room) { rooms[id] = room }); err != nil {
		return Room{}, err
	}
	m.emit(EventRoomUpdated, id, &room)
	log.Info().Str("room_id", id).Str("user", user).Int("players", len(room.Players)).Msg("room_joined")
	return room.clone(), nil
}

// Leave removes user from whichever room holds them. An emptied room is
// deleted; a departing host hands over to the first remaining participant.
// It returns the room as it stands afterwards and whether it was deleted.
func (m *Manager) Leave(ctx context.Context, user string) (Room, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.roomOfLocked(user)
	if !ok {
		return Room{}, false, ErrNotInRoom
	}
	room = room.clone()
	players := room.Players[:0]
	for _, p := range room.Players {
		if p != user {
			players = append(players, p)
		}
	}
	room.Players = players

	if len(room.Players) == 0 {
		if err := m.commitLocked(ctx, func(rooms map[string]Room) { delete(rooms, room.RoomID) }); err != nil {
			return Room{}, false, err
		}
		m.emit(EventRoomDeleted, room.RoomID, nil)
		log.Info().Str("room_id", room.RoomID).Str("user", user).Msg("room_deleted")
		return room, true, nil
	}
	if room.Host == user {
		room.Host = room.Players[0]
	}
	if err := m.commitLocked(ctx, func(rooms map[string]Room) { rooms[room.RoomID] = room }); err != nil {
		return Room{}, false, err
	}
	m.emit(EventRoomUpdated, room.RoomID, &room)
	log.Info().Str("room_id", room.RoomID).Str("user", user).Str("host", room.Host).Msg("room_left")
	return room.clone(), false, nil
}

func (m *Manager) Get(id string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	return room.clone(), nil
}

// List returns every room ordered by id.
func (m *Manager) List() []Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

// RoomOf finds the room user currently belongs to.
func (m *Manager) RoomOf(user string) (Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.roomOfLocked(user)
	if !ok {
		return Room{}, false
	}
	return room.clone(), true
}

// MarkRunning records where the room's session listens.
func (m *Manager) MarkRunning(ctx context.Context, id, addr string, port int) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if room.Status == StatusRunning {
		return Room{}, ErrRoomRunning
	}
	room = room.clone()
	room.Status = StatusRunning
	room.HostAddr = &addr
	room.HostPort = &port
	if err := m.commitLocked(ctx, func(rooms map[string]Room) { rooms[id] = room }); err != nil {
		return Room{}, err
	}
	m.emit(EventRoomUpdated, id, &room)
	return room.clone(), nil
}

// MarkFinished flags a running room whose session has exited. A room that
// was already pruned is ignored.
func (m *Manager) MarkFinished(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil
	}
	room = room.clone()
	room.Status = StatusFinished
	if err := m.commitLocked(ctx, func(rooms map[string]Room) { rooms[id] = room }); err != nil {
		return err
	}
	m.emit(EventRoomUpdated, id, &room)
	return nil
}

func (m *Manager) roomOfLocked(user string) (Room, bool) {
	for _, r := range m.rooms {
		if r.Has(user) {
			return r, true
		}
	}
	return Room{}, false
}

// commitLocked applies mutate to a copy of the registry and persists it. The
// in-memory registry only changes once the write succeeded.
func (m *Manager) commitLocked(ctx context.Context, mutate func(map[string]Room)) error {
	next := make(map[string]Room, len(m.rooms)+1)
	for id, r := range m.rooms {
		next[id] = r
	}
	mutate(next)
	if err := m.docs.Save(ctx, DocumentName, next); err != nil {
		log.Error().Err(err).Msg("rooms_save_failed")
		return fmt.Errorf("save rooms: %w", err)
	}
	m.rooms = next
	return nil
}

func (m *Manager) emit(event, id string, room *Room) {
	if m.events == nil {
		return
	}
	var snap *Room
	if room != nil {
		c := room.clone()
		snap = &c
	}
	m.events.Append(event, id, snap)
}
