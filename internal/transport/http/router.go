package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"peer-arcade/internal/app/lobby"
	"peer-arcade/internal/config"
	"peer-arcade/internal/mcpserver"
	"peer-arcade/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(svc *lobby.Service, docs store.Documents, cfg config.LobbyConfig) *chi.Mux {
	mcpSrv := mcpserver.New(svc)
	lobbyHandlers := NewLobbyHandlers(svc)
	adminHandlers := NewAdminHandlers(docs)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Post("/accounts/register", lobbyHandlers.Register())
		r.Post("/accounts/login", lobbyHandlers.Login())
		r.Post("/accounts/logout", lobbyHandlers.Logout())

		r.Get("/games", lobbyHandlers.Games())
		r.Get("/games/{game}", lobbyHandlers.Game())
		r.Post("/games/{game}/reviews", lobbyHandlers.Review())

		r.Route("/lobby", func(r chi.Router) {
			r.Post("/create_room", lobbyHandlers.CreateRoom())
			r.Post("/start_room", lobbyHandlers.StartRoom())
			r.Get("/list_rooms", lobbyHandlers.ListRooms())
			r.Post("/join_room", lobbyHandlers.JoinRoom())
			r.Post("/leave_room", lobbyHandlers.LeaveRoom())
			r.Get("/rooms/{room_id}", lobbyHandlers.GetRoom())
			r.Get("/events", EventsWSHandler(svc.Events()))
			r.Get("/events/stream", EventsSSEHandler(svc.Events()))
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Route("/debug", func(r chi.Router) {
				r.Use(BodyCaptureMiddleware(4096))
				r.Get("/vars", expvar.Handler().ServeHTTP)
			})
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
