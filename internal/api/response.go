package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cartpool/marketplace-api/internal/auth"
	"github.com/cartpool/marketplace-api/internal/services"
	"github.com/go-playground/validator/v10"
)

// Response is the envelope every API response is wrapped in
type Response struct {
	Data  any     `json:"data"`
	Error *string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Data: data}); err != nil {
		log.Printf("[ERROR] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Error: &msg})
}

// writeErr maps domain errors to status codes. Messages are passed through.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotCartOwner):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrUserExists),
		errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrThresholdNotMet),
		errors.Is(err, services.ErrCartClosed),
		errors.Is(err, services.ErrOutOfStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bind decodes the JSON body into dst and validates it. On failure the
// error response has already been written.
func (a *App) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeErr(w, err)
		return false
	}
	return true
}
