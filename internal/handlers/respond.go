package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/agrimitra/agrimitra-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// writeServiceError maps domain errors to status codes and the
// {success:false, error} shape. Unexpected errors get a generic 500 with
// details kept server-side.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	var notVerified *services.NotVerifiedError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &notVerified):
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"success":     false,
			"error":       "please verify your email before logging in",
			"notVerified": true,
			"email":       notVerified.Email,
		})
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyVerified),
		errors.Is(err, services.ErrInvalidOTP):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("handler: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}
