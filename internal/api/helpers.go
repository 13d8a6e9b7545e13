package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mentislab/mentis/internal/services"
	"github.com/mentislab/mentis/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceErr maps the service error taxonomy onto HTTP statuses.
func writeServiceErr(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		switch se.Code {
		case services.ErrorInvalid:
			writeErr(w, http.StatusBadRequest, se.Message)
		case services.ErrorUnauthorized:
			writeErr(w, http.StatusUnauthorized, se.Message)
		case services.ErrorForbidden:
			writeErr(w, http.StatusForbidden, se.Message)
		case services.ErrorNotFound:
			writeErr(w, http.StatusNotFound, se.Message)
		case services.ErrorConflict:
			writeErr(w, http.StatusConflict, se.Message)
		default:
			writeErr(w, http.StatusInternalServerError, se.Message)
		}
		return
	}
	writeErr(w, http.StatusInternalServerError, err.Error())
}

// writeSessionErr maps session state-machine errors onto HTTP statuses.
func writeSessionErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoParticipant):
		writeErr(w, http.StatusNotFound, "participant not found")
	case errors.Is(err, session.ErrSessionClosed):
		writeErr(w, http.StatusConflict, "session is closed")
	case errors.Is(err, session.ErrAlreadyInitialized):
		writeErr(w, http.StatusConflict, "session already initialized")
	case errors.Is(err, session.ErrInvalidTransition):
		writeErr(w, http.StatusBadRequest, "cannot revert participant status")
	case errors.Is(err, session.ErrUnknownStatus):
		writeErr(w, http.StatusBadRequest, "invalid status")
	case errors.Is(err, session.ErrLikertOutOfRange):
		writeErr(w, http.StatusBadRequest, "response_value must be between 1 and 5")
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
