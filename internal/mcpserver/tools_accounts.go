package mcpserver

import (
	"context"

	"peer-arcade/internal/app/lobby"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerAccountTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"register_account",
			mcp.WithDescription("Register a player account"),
			mcp.WithString("username", mcp.Required(), mcp.Description("Player name")),
			mcp.WithString("password", mcp.Required(), mcp.Description("Password")),
		),
		s.handleRegister,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"login",
			mcp.WithDescription("Log a player in"),
			mcp.WithString("username", mcp.Required(), mcp.Description("Player name")),
			mcp.WithString("password", mcp.Required(), mcp.Description("Password")),
		),
		s.handleLogin,
	)
}

func accountArgs(request mcp.CallToolRequest) (lobby.AccountRequest, *mcp.CallToolResult) {
	username, err := request.RequireString("username")
	if err != nil {
		return lobby.AccountRequest{}, toolError("invalid_request", err.Error())
	}
	password, err := request.RequireString("password")
	if err != nil {
		return lobby.AccountRequest{}, toolError("invalid_request", err.Error())
	}
	return lobby.AccountRequest{Username: username, Password: password}, nil
}

func (s *Server) handleRegister(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, errRes := accountArgs(request)
	if errRes != nil {
		return errRes, nil
	}
	if err := s.svc.Register(ctx, req); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"ok": true, "username": req.Username}), nil
}

func (s *Server) handleLogin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, errRes := accountArgs(request)
	if errRes != nil {
		return errRes, nil
	}
	if err := s.svc.Login(ctx, req); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"ok": true, "username": req.Username}), nil
}
