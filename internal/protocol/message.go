// Package protocol implements the session wire format: newline-delimited
// JSON envelopes of the form {"type": ..., "data": {...}}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Type string

const (
	TypeJoin     Type = "join"
	TypeWelcome  Type = "welcome"
	TypeReject   Type = "reject"
	TypeStart    Type = "start"
	TypePrompt   Type = "prompt"
	TypeMove     Type = "move"
	TypeShoot    Type = "shoot"
	TypeUpdate   Type = "update"
	TypeDead     Type = "dead"
	TypeGameEnd  Type = "game_end"
	TypeShutdown Type = "server_shutdown"
)

var (
	ErrUnknownType   = errors.New("unknown_message_type")
	ErrMissingCoords = errors.New("missing_coordinates")
)

// Envelope is the undecoded form of every frame on the wire.
type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Message is implemented by every typed payload.
type Message interface {
	MessageType() Type
}

type Join struct {
	Username string `json:"username"`
}

type Welcome struct {
	PlayerID  int     `json:"player_id"`
	SessionID string  `json:"session_id,omitempty"`
	MapW      float64 `json:"map_w,omitempty"`
	MapH      float64 `json:"map_h,omitempty"`
	BoardSize int     `json:"board_size,omitempty"`
}

type Reject struct {
	Code string `json:"code"`
}

type Start struct {
	Players   []string `json:"players"`
	FirstTurn int      `json:"first_turn,omitempty"`
}

type Prompt struct {
	Msg string `json:"msg"`
}

// Move is the arena displacement form of a move message.
type Move struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Place is the board form of a move message. Both coordinates are always
// sent, and decoding fails with ErrMissingCoords when either is absent, so
// an empty payload is never read as (0, 0).
type Place struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p *Place) UnmarshalJSON(b []byte) error {
	var aux struct {
		X *int `json:"x"`
		Y *int `json:"y"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.X == nil || aux.Y == nil {
		return ErrMissingCoords
	}
	p.X, p.Y = *aux.X, *aux.Y
	return nil
}

// Shoot aims a projectile at map coordinates (mx, my).
type Shoot struct {
	MX float64 `json:"mx"`
	MY float64 `json:"my"`
}

// Update is a periodic or event-driven state broadcast. Board games fill
// Board/Turn/Winner/Msg; the arena fills Players/Projectiles/Obstacles.
type Update struct {
	Board       [][]int               `json:"board,omitempty"`
	Turn        int                   `json:"turn,omitempty"`
	Winner      int                   `json:"winner,omitempty"`
	Msg         string                `json:"msg,omitempty"`
	Players     map[string]PlayerView `json:"players,omitempty"`
	Projectiles []ProjectileView      `json:"projectiles,omitempty"`
	Obstacles   []ObstacleView        `json:"obstacles,omitempty"`
}

type PlayerView struct {
	Name         string  `json:"name"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	HP           int     `json:"hp"`
	Team         int     `json:"team"`
	Exp          int     `json:"exp"`
	Level        int     `json:"level"`
	Speed        float64 `json:"speed"`
	ShotInterval float64 `json:"shot_interval"`
}

type ProjectileView struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
	Team  int     `json:"team"`
	Owner int     `json:"owner"`
}

type ObstacleView struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	HP int     `json:"hp"`
}

type Dead struct {
	Message string `json:"message"`
}

// GameEnd closes a match. Winner is null on a draw or an abandoned match.
type GameEnd struct {
	Winner *int           `json:"winner"`
	Board  [][]int        `json:"board,omitempty"`
	Scores map[string]int `json:"scores,omitempty"`
}

type Shutdown struct {
	Msg string `json:"msg"`
}

func (Join) MessageType() Type     { return TypeJoin }
func (Welcome) MessageType() Type  { return TypeWelcome }
func (Reject) MessageType() Type   { return TypeReject }
func (Start) MessageType() Type    { return TypeStart }
func (Prompt) MessageType() Type   { return TypePrompt }
func (Move) MessageType() Type     { return TypeMove }
func (Place) MessageType() Type    { return TypeMove }
func (Shoot) MessageType() Type    { return TypeShoot }
func (Update) MessageType() Type   { return TypeUpdate }
func (Dead) MessageType() Type     { return TypeDead }
func (GameEnd) MessageType() Type  { return TypeGameEnd }
func (Shutdown) MessageType() Type { return TypeShutdown }

// Decode unmarshals the envelope payload into v. A missing payload decodes
// as an empty object.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Data, v)
}

// Parse decodes the payload into the variant selected by the type tag. The
// returned Message is one of the value types above (Join, Move, ...).
func Parse(e Envelope) (Message, error) {
	switch e.Type {
	case TypeJoin:
		return decodeAs[Join](e)
	case TypeWelcome:
		return decodeAs[Welcome](e)
	case TypeReject:
		return decodeAs[Reject](e)
	case TypeStart:
		return decodeAs[Start](e)
	case TypePrompt:
		return decodeAs[Prompt](e)
	case TypeMove:
		return parseMove(e)
	case TypeShoot:
		return decodeAs[Shoot](e)
	case TypeUpdate:
		return decodeAs[Update](e)
	case TypeDead:
		return decodeAs[Dead](e)
	case TypeGameEnd:
		return decodeAs[GameEnd](e)
	case TypeShutdown:
		return decodeAs[Shutdown](e)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
}

// parseMove picks the board form when the payload names a cell and the
// arena form otherwise.
func parseMove(e Envelope) (Message, error) {
	var cell struct {
		X *int `json:"x"`
		Y *int `json:"y"`
	}
	if err := e.Decode(&cell); err != nil {
		return nil, err
	}
	if cell.X != nil || cell.Y != nil {
		return decodeAs[Place](e)
	}
	return decodeAs[Move](e)
}

func decodeAs[T Message](e Envelope) (Message, error) {
	var v T
	if err := e.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
