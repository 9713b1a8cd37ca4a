package lobby

import (
	"errors"
	"net/http"

	"peer-arcade/internal/accounts"
	"peer-arcade/internal/catalog"
	"peer-arcade/internal/rooms"
)

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrNotHost         = errors.New("not_host")
	ErrNotLoggedIn     = errors.New("not_logged_in")
	ErrAlreadyLoggedIn = errors.New("already_logged_in")
	ErrNotPlayed       = errors.New("game_not_played")
)

var errorStatus = []struct {
	err    error
	status int
}{
	{ErrInvalidRequest, http.StatusBadRequest},
	{accounts.ErrInvalidInput, http.StatusBadRequest},
	{rooms.ErrInvalidRoom, http.StatusBadRequest},
	{catalog.ErrInvalidName, http.StatusBadRequest},
	{catalog.ErrVersionMissing, http.StatusBadRequest},

	{rooms.ErrRoomNotFound, http.StatusNotFound},
	{rooms.ErrNotInRoom, http.StatusNotFound},
	{catalog.ErrGameNotFound, http.StatusNotFound},
	{accounts.ErrUnknownUser, http.StatusNotFound},

	{accounts.ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrNotHost, http.StatusForbidden},
	{ErrNotLoggedIn, http.StatusForbidden},
	{ErrAlreadyLoggedIn, http.StatusForbidden},
	{ErrNotPlayed, http.StatusForbidden},

	{rooms.ErrRoomFull, http.StatusConflict},
	{rooms.ErrRoomExists, http.StatusConflict},
	{rooms.ErrAlreadyInRoom, http.StatusConflict},
	{rooms.ErrRoomRunning, http.StatusConflict},
	{accounts.ErrUserExists, http.StatusConflict},

	{catalog.ErrEntrypointNotFound, http.StatusInternalServerError},
}

// MapError resolves err to an HTTP status and a stable error code. Unknown
// errors map to 500 internal_error.
func MapError(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal_error"
}
