package httptransport

import (
	"encoding/json"
	"net/http"

	"peer-arcade/internal/store"
)

type AdminHandlers struct {
	docs store.Documents
}

func NewAdminHandlers(docs store.Documents) *AdminHandlers {
	return &AdminHandlers{docs: docs}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(r.Context(), h.docs); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "store": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "store": "up"})
	}
}
