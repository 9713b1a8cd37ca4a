// Package lobby is the orchestrator's application layer. The HTTP and MCP
// surfaces both call into Service; it owns no state of its own beyond the
// review log.
package lobby

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"strings"
	"sync"

	"peer-arcade/internal/accounts"
	"peer-arcade/internal/catalog"
	"peer-arcade/internal/provision"
	"peer-arcade/internal/rooms"
	"peer-arcade/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const reviewsDocument = "reviews"

const roomIDAttempts = 5

var (
	metricRoomsCreated = expvar.NewInt("lobby_rooms_created_total")
	metricRoomsStarted = expvar.NewInt("lobby_rooms_started_total")
	metricLogins       = expvar.NewInt("lobby_logins_total")
)

// Starter launches a room's session.
type Starter interface {
	Start(ctx context.Context, roomID string) (provision.Result, error)
}

type Options struct {
	// RequireLogin gates every room mutation on a logged-in account.
	RequireLogin bool
	// NewRoomID overrides room id generation in tests.
	NewRoomID func() string
}

type Service struct {
	rooms    *rooms.Manager
	games    *catalog.Catalog
	accounts *accounts.Ledger
	starter  Starter
	docs     store.Documents
	opts     Options

	reviewMu sync.Mutex
	reviews  map[string][]Review
}

func NewService(ctx context.Context, rm *rooms.Manager, games *catalog.Catalog, ledger *accounts.Ledger, starter Starter, docs store.Documents, opts Options) (*Service, error) {
	if opts.NewRoomID == nil {
		opts.NewRoomID = func() string { return uuid.NewString()[:8] }
	}
	reviews := map[string][]Review{}
	if _, err := docs.Load(ctx, reviewsDocument, &reviews); err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	if reviews == nil {
		reviews = map[string][]Review{}
	}
	return &Service{
		rooms:    rm,
		games:    games,
		accounts: ledger,
		starter:  starter,
		docs:     docs,
		opts:     opts,
		reviews:  reviews,
	}, nil
}

func (s *Service) Events() *rooms.EventBuffer {
	return s.rooms.Events()
}

func (s *Service) Register(ctx context.Context, req AccountRequest) error {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return ErrInvalidRequest
	}
	return s.accounts.Register(ctx, req.Username, req.Password)
}

func (s *Service) Login(ctx context.Context, req AccountRequest) error {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return ErrInvalidRequest
	}
	if s.accounts.IsLoggedIn(req.Username) {
		return ErrAlreadyLoggedIn
	}
	if err := s.accounts.Login(ctx, req.Username, req.Password); err != nil {
		return err
	}
	metricLogins.Add(1)
	log.Info().Str("user", req.Username).Msg("player_logged_in")
	return nil
}

func (s *Service) Logout(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrInvalidRequest
	}
	return s.accounts.Logout(ctx, username)
}

// CreateRoom opens a room for the game's latest version with the caller as
// host and sole member.
func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (*CreateRoomResponse, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.GameName) == "" {
		return nil, ErrInvalidRequest
	}
	if err := s.authorize(req.Username); err != nil {
		return nil, err
	}
	meta, err := s.games.Latest(req.GameName)
	if err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		id := s.opts.NewRoomID()
		room, err := s.rooms.Create(ctx, id, meta.GameName, meta.LatestVersion, req.Username, meta.MaxPlayers)
		if errors.Is(err, rooms.ErrRoomExists) && attempt+1 < roomIDAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		metricRoomsCreated.Add(1)
		return &CreateRoomResponse{RoomID: room.RoomID, Room: room}, nil
	}
}

// StartRoom provisions the room's session. Only the host may start it.
func (s *Service) StartRoom(ctx context.Context, req StartRoomRequest) (*StartRoomResponse, error) {
	if strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.Username) == "" {
		return nil, ErrInvalidRequest
	}
	if err := s.authorize(req.Username); err != nil {
		return nil, err
	}
	room, err := s.rooms.Get(req.RoomID)
	if err != nil {
		return nil, err
	}
	if room.Host != req.Username {
		return nil, ErrNotHost
	}
	res, err := s.starter.Start(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	metricRoomsStarted.Add(1)
	for _, p := range room.Players {
		if err := s.accounts.RecordPlay(ctx, p, room.GameName, room.Version); err != nil {
			log.Warn().Err(err).Str("user", p).Str("room_id", room.RoomID).Msg("record_play_failed")
		}
	}
	return &StartRoomResponse{
		Status:    "ok",
		RoomID:    res.RoomID,
		SessionID: res.SessionID,
		HostAddr:  res.HostAddr,
		HostPort:  res.HostPort,
		Version:   res.Version,
	}, nil
}

func (s *Service) ListRooms() *RoomsResponse {
	return &RoomsResponse{Rooms: s.rooms.List()}
}

func (s *Service) GetRoom(roomID string) (rooms.Room, error) {
	return s.rooms.Get(roomID)
}

func (s *Service) JoinRoom(ctx context.Context, req JoinRoomRequest) (rooms.Room, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.RoomID) == "" {
		return rooms.Room{}, ErrInvalidRequest
	}
	if err := s.authorize(req.Username); err != nil {
		return rooms.Room{}, err
	}
	return s.rooms.Join(ctx, req.RoomID, req.Username)
}

func (s *Service) LeaveRoom(ctx context.Context, req LeaveRoomRequest) (*LeaveRoomResponse, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, ErrInvalidRequest
	}
	if err := s.authorize(req.Username); err != nil {
		return nil, err
	}
	room, deleted, err := s.rooms.Leave(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	out := &LeaveRoomResponse{RoomID: room.RoomID, Deleted: deleted}
	if !deleted {
		out.Room = &room
	}
	return out, nil
}

func (s *Service) Games() (*GamesResponse, error) {
	metas, err := s.games.List()
	if err != nil {
		return nil, err
	}
	out := make([]GameSummary, 0, len(metas))
	for _, m := range metas {
		out = append(out, GameSummary{
			GameName:      m.GameName,
			Developer:     m.Developer,
			LatestVersion: m.LatestVersion,
			MaxPlayers:    m.MaxPlayers,
		})
	}
	return &GamesResponse{Games: out}, nil
}

func (s *Service) Game(game string) (*GameDetail, error) {
	meta, err := s.games.Meta(game)
	if err != nil {
		return nil, err
	}
	s.reviewMu.Lock()
	reviews := append([]Review{}, s.reviews[meta.GameName]...)
	s.reviewMu.Unlock()
	return &GameDetail{Meta: meta, Reviews: reviews}, nil
}

// Review appends a rating for game. Reviewers must be logged in and must
// have played some version of it.
func (s *Service) Review(ctx context.Context, game string, req ReviewRequest) error {
	if strings.TrimSpace(req.Username) == "" || req.Rating < 1 || req.Rating > 5 {
		return ErrInvalidRequest
	}
	if !s.accounts.IsLoggedIn(req.Username) {
		return ErrNotLoggedIn
	}
	meta, err := s.games.Meta(game)
	if err != nil {
		return err
	}
	if !s.accounts.HasPlayed(req.Username, meta.GameName) {
		return ErrNotPlayed
	}

	s.reviewMu.Lock()
	defer s.reviewMu.Unlock()
	next := make(map[string][]Review, len(s.reviews)+1)
	for g, rs := range s.reviews {
		next[g] = rs
	}
	next[meta.GameName] = append(append([]Review(nil), s.reviews[meta.GameName]...), Review{
		User:    req.Username,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err := s.docs.Save(ctx, reviewsDocument, next); err != nil {
		return fmt.Errorf("save reviews: %w", err)
	}
	s.reviews = next
	log.Info().Str("user", req.Username).Str("game", meta.GameName).Int("rating", req.Rating).Msg("review_added")
	return nil
}

func (s *Service) authorize(username string) error {
	if s.opts.RequireLogin && !s.accounts.IsLoggedIn(username) {
		return ErrNotLoggedIn
	}
	return nil
}
