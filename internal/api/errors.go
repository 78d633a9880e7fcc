package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"lockbox/internal/store"
	"lockbox/internal/vault"

	"go.uber.org/zap"
)

// LockSecretHeader carries the secret of a locked node. It is checked on
// every request and never stored.
const LockSecretHeader = "X-Lock-Password"

type ErrorResponse struct {
	Error string `json:"error" example:"node not found"`
}

type LockedResponse struct {
	Error    string    `json:"error" example:"node is locked"`
	NodeID   string    `json:"node_id" example:"_vx2a-43VqRT5wz_s9u4"`
	LockedAt time.Time `json:"locked_at"`
	Reason   string    `json:"reason,omitempty" example:"tax documents"`
}

type PartialDeleteResponse struct {
	Error      string   `json:"error"`
	RootID     string   `json:"root_id"`
	Removed    []string `json:"removed"`
	FailedID   string   `json:"failed_id,omitempty"`
	RolledBack bool     `json:"rolled_back"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto status codes. Anything unrecognized is
// logged and reported as 500 without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *vault.LockedError
	if errors.As(err, &locked) {
		writeJSON(w, http.StatusLocked, LockedResponse{
			Error:    locked.Error(),
			NodeID:   locked.NodeID,
			LockedAt: locked.LockedAt,
			Reason:   locked.Reason,
		})
		return
	}

	var partial *vault.PartialDeleteError
	if errors.As(err, &partial) {
		s.logger.Error("partial delete", zap.String("path", r.URL.Path), zap.Error(err))
		removed := partial.Removed
		if removed == nil {
			removed = []string{}
		}
		writeJSON(w, http.StatusInternalServerError, PartialDeleteResponse{
			Error:      "recursive delete aborted",
			RootID:     partial.RootID,
			Removed:    removed,
			FailedID:   partial.FailedID,
			RolledBack: partial.RolledBack,
		})
		return
	}

	switch {
	case errors.Is(err, vault.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, vault.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "operation not permitted"})
	case errors.Is(err, vault.ErrInvalidCredential):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid credential"})
	case errors.Is(err, vault.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrDuplicateUsername):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
