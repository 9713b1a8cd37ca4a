package httptransport

import (
	"net/http"

	"peer-arcade/internal/app/lobby"

	"github.com/go-chi/chi/v5"
)

type LobbyHandlers struct {
	svc *lobby.Service
}

func NewLobbyHandlers(svc *lobby.Service) *LobbyHandlers {
	return &LobbyHandlers{svc: svc}
}

func (h *LobbyHandlers) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body lobby.AccountRequest
		if !decodeBody(w, r, &body) {
			return
		}
		if err := h.svc.Register(r.Context(), body); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"success": true, "username": body.Username})
	}
}

func (h *LobbyHandlers) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body lobby.AccountRequest
		if !decodeBody(w, r, &body) {
			return
		}
		if err := h.svc.Login(r.Context(), body); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"success": true, "username": body.Username})
	}
}

func (h *LobbyHandlers) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if err := h.svc.Logout(r.Context(), body.Username); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"success": true})
	}
}

func (h *LobbyHandlers) CreateRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body lobby.CreateRoomRequest
		if !decodeBody(w, r, &body) {
			return
		}
		resp, err := h.svc.CreateRoom(r.Context(), body)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, resp)
	}
}

func (h *LobbyHandlers) StartRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body lobby.StartRoomRequest
		if !decodeBody(w, r, &body) {
			return
		}
		resp, err := h.svc.StartRoom(r.Context(), body)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, resp)
	}
}

func (h *LobbyHandlers) ListRooms() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := h.svc.ListRooms()
		writeJSON(w, map[string]any{"success": true, "rooms": resp.Rooms})
	}
}

func (h *LobbyHandlers) GetRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := h.svc.GetRoom(chi.URLParam(r, "room_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, room)
	}
}

func (h *LobbyHandlers) JoinRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body lobby.JoinRoomRequest
		if !decodeBody(w, r, &body) {
			return
		}
		room, err := h.svc.JoinRoom(r.Context(), body)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"success": true, "room": room})
	}
}

func (h *LobbyHandlers) LeaveRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body lobby.LeaveRoomRequest
		if !decodeBody(w, r, &body) {
			return
		}
		resp, err := h.svc.LeaveRoom(r.Context(), body)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, resp)
	}
}

func (h *LobbyHandlers) Games() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Games()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, resp)
	}
}

func (h *LobbyHandlers) Game() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Game(chi.URLParam(r, "game"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, resp)
	}
}

func (h *LobbyHandlers) Review() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body lobby.ReviewRequest
		if !decodeBody(w, r, &body) {
			return
		}
		if err := h.svc.Review(r.Context(), chi.URLParam(r, "game"), body); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"success": true})
	}
}
