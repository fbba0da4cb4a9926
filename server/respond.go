package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shreedev44/BetterBuddy-api/auth"
	"github.com/shreedev44/BetterBuddy-api/reflections"
	"github.com/shreedev44/BetterBuddy-api/storage"
	"github.com/shreedev44/BetterBuddy-api/tasks"
)

// fieldError reports a single invalid request field.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeValidationErrors(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps the service layer's sentinel errors onto HTTP
// statuses. Anything unrecognized is a 500 with a generic message so
// storage details never leak to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrPasswordNotSet):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrOTPNotRequested), errors.Is(err, auth.ErrOTPExpired):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidOTP):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, tasks.ErrNoTask), errors.Is(err, reflections.ErrNoTask):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tasks.ErrNothingToSave), errors.Is(err, tasks.ErrInvalidIndex):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reflections.ErrAlreadySubmitted), errors.Is(err, storage.ErrDuplicateReflection):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	default:
		log.Printf("internal error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
