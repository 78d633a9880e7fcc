package api

import (
	"net/http"

	"lockbox/internal/vault"

	"github.com/go-chi/chi/v5"
)

type LockRequest struct {
	Password string `json:"password" validate:"required" example:"s3cret"`
	Reason   string `json:"reason" validate:"max=500" example:"tax documents"`
	// Inherit copies the lock onto everything inside a folder.
	Inherit bool `json:"inherit"`
}

type UnlockRequest struct {
	Password string `json:"password" validate:"required" example:"s3cret"`
}

// @Summary      Lock a node
// @Description  Protects a node with a secret. Grantees must send the secret in X-Lock-Password on every request.
// @Tags         locks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId   path      string       true  "Node ID"
// @Param        request  body      LockRequest  true  "Lock"
// @Success      200      {object}  models.Node
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse "Only the owner may lock"
// @Failure      404      {object}  ErrorResponse
// @Router       /nodes/{nodeId}/lock [post]
func (s *Server) LockNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req LockRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	node, err := s.service.Lock(r.Context(), claims.UserID, chi.URLParam(r, "nodeId"), vault.LockRequest{
		Secret:  req.Password,
		Reason:  req.Reason,
		Inherit: req.Inherit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

// @Summary      Unlock a node
// @Tags         locks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId   path      string         true  "Node ID"
// @Param        request  body      UnlockRequest  true  "Secret"
// @Success      200      {object}  models.Node
// @Failure      400      {object}  ErrorResponse "Node is not locked"
// @Failure      401      {object}  ErrorResponse "Wrong secret"
// @Failure      403      {object}  ErrorResponse
// @Router       /nodes/{nodeId}/unlock [post]
func (s *Server) UnlockNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req UnlockRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	node, err := s.service.Unlock(r.Context(), claims.UserID, chi.URLParam(r, "nodeId"), req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}
