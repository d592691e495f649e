package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/investor-coach/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps the error taxonomy to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrDataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
