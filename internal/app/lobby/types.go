package lobby

import (
	"peer-arcade/internal/catalog"
	"peer-arcade/internal/rooms"
)

type AccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateRoomRequest struct {
	Username string `json:"username"`
	GameName string `json:"game_name"`
}

type CreateRoomResponse struct {
	RoomID string     `json:"room_id"`
	Room   rooms.Room `json:"room"`
}

type StartRoomRequest struct {
	Username string `json:"username"`
	RoomID   string `json:"room_id"`
}

type StartRoomResponse struct {
	Status    string `json:"status"`
	RoomID    string `json:"room_id"`
	SessionID string `json:"session_id"`
	HostAddr  string `json:"host_addr"`
	HostPort  int    `json:"host_port"`
	Version   string `json:"version"`
}

type JoinRoomRequest struct {
	Username string `json:"username"`
	RoomID   string `json:"room_id"`
}

type LeaveRoomRequest struct {
	Username string `json:"username"`
}

type LeaveRoomResponse struct {
	RoomID  string      `json:"room_id"`
	Deleted bool        `json:"deleted"`
	Room    *rooms.Room `json:"room,omitempty"`
}

type RoomsResponse struct {
	Rooms []rooms.Room `json:"rooms"`
}

type GameSummary struct {
	GameName      string `json:"game_name"`
	Developer     string `json:"developer"`
	LatestVersion string `json:"latest_version"`
	MaxPlayers    int    `json:"max_players"`
}

type GamesResponse struct {
	Games []GameSummary `json:"games"`
}

type Review struct {
	User    string `json:"user"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type ReviewRequest struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

type GameDetail struct {
	catalog.Meta
	Reviews []Review `json:"reviews"`
}
