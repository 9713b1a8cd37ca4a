// Package mcpserver exposes the lobby control surface as MCP tools so agent
// clients can browse, create and start rooms without the HTTP API.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"peer-arcade/internal/app/lobby"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	svc *lobby.Service

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(svc *lobby.Service) *Server {
	mcpSrv := server.NewMCPServer(
		"peer-arcade",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		svc:        svc,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerAccountTools()
	s.registerLobbyTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"room://{room_id}",
			"room",
			mcp.WithTemplateDescription("Room snapshot by room id"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := string(request.Params.URI)
			roomID := strings.TrimPrefix(raw, "room://")
			if roomID == "" || roomID == raw {
				return nil, nil
			}
			room, err := s.svc.GetRoom(roomID)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(room)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
