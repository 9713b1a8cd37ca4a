package httptransport

import (
	"net/http"

	"peer-arcade/internal/app/lobby"

	"github.com/rs/zerolog/log"
)

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := lobby.MapError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Str("code", code).Msg("request_failed")
	}
	WriteHTTPError(w, status, code)
}
