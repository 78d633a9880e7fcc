package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// @Summary      Toggle favorite
// @Description  Flips the favorite flag of a node. Needs write access.
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId           path      string  true   "Node ID"
// @Param        X-Lock-Password  header    string  false  "Secret of a locked node"
// @Success      200              {object}  models.Node
// @Failure      403              {object}  ErrorResponse
// @Failure      404              {object}  ErrorResponse
// @Failure      423              {object}  LockedResponse
// @Router       /nodes/{nodeId}/favorite [post]
func (s *Server) ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	node, err := s.service.ToggleFavorite(r.Context(), claims.UserID, chi.URLParam(r, "nodeId"), lockSecret(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}
