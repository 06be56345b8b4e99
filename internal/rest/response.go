package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/buildledger/buildledger/internal/apperrors"
	log "github.com/sirupsen/logrus"
)

type ErrorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// WriteError translates the error taxonomy into an HTTP status.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	dto := ErrorDTO{Error: http.StatusText(status)}
	if status != http.StatusInternalServerError {
		dto.Details = err.Error()
	} else {
		log.Errorf("unhandled error: %v", err)
	}
	WriteJSON(w, status, dto)
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrAggregation):
		return http.StatusBadGateway
	case errors.Is(err, apperrors.ErrSyncFailed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
