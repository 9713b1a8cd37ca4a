package mcpserver

import (
	"context"

	"peer-arcade/internal/app/lobby"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerLobbyTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_rooms",
			mcp.WithDescription("List every room with its players and status"),
		),
		s.handleListRooms,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_room",
			mcp.WithDescription("Get one room by id"),
			mcp.WithString("room_id", mcp.Required(), mcp.Description("Room id")),
		),
		s.handleGetRoom,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_games",
			mcp.WithDescription("List installed games"),
		),
		s.handleListGames,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_room",
			mcp.WithDescription("Create a room for the latest version of a game; the caller becomes host"),
			mcp.WithString("username", mcp.Required(), mcp.Description("Host player name")),
			mcp.WithString("game_name", mcp.Required(), mcp.Description("Game name")),
		),
		s.handleCreateRoom,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"join_room",
			mcp.WithDescription("Join a room"),
			mcp.WithString("username", mcp.Required(), mcp.Description("Player name")),
			mcp.WithString("room_id", mcp.Required(), mcp.Description("Room id")),
		),
		s.handleJoinRoom,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"leave_room",
			mcp.WithDescription("Leave whichever room the player is in"),
			mcp.WithString("username", mcp.Required(), mcp.Description("Player name")),
		),
		s.handleLeaveRoom,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"start_room",
			mcp.WithDescription("Launch the room's game session; host only"),
			mcp.WithString("username", mcp.Required(), mcp.Description("Host player name")),
			mcp.WithString("room_id", mcp.Required(), mcp.Description("Room id")),
		),
		s.handleStartRoom,
	)
}

func (s *Server) handleListRooms(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.svc.ListRooms()), nil
}

func (s *Server) handleGetRoom(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, err := request.RequireString("room_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	room, svcErr := s.svc.GetRoom(roomID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(room), nil
}

func (s *Server) handleListGames(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.Games()
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := request.RequireString("username")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	game, err := request.RequireString("game_name")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.svc.CreateRoom(ctx, lobby.CreateRoomRequest{Username: username, GameName: game})
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := request.RequireString("username")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	roomID, err := request.RequireString("room_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	room, svcErr := s.svc.JoinRoom(ctx, lobby.JoinRoomRequest{Username: username, RoomID: roomID})
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(map[string]any{"room": room}), nil
}

func (s *Server) handleLeaveRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := request.RequireString("username")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.svc.LeaveRoom(ctx, lobby.LeaveRoomRequest{Username: username})
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleStartRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := request.RequireString("username")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	roomID, err := request.RequireString("room_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.svc.StartRoom(ctx, lobby.StartRoomRequest{Username: username, RoomID: roomID})
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}
