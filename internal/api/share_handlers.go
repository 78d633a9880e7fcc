package api

import (
	"net/http"

	"lockbox/internal/vault"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ShareRequest struct {
	RecipientUsername string `json:"recipient_username" validate:"required" example:"bob"`
	Permission        string `json:"permission" validate:"omitempty,oneof=view edit" example:"view" enums:"view,edit"`
}

// @Summary      Share a node
// @Description  Grants another user view or edit access to exactly this node. Sharing again replaces the permission.
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId       path      string        true  "Node ID to share"
// @Param        shareRequest body      ShareRequest  true  "Share details"
// @Success      201          {object}  models.Share
// @Failure      400          {object}  ErrorResponse
// @Failure      403          {object}  ErrorResponse "Only the owner may share"
// @Failure      404          {object}  ErrorResponse "Node or recipient not found"
// @Router       /nodes/{nodeId}/share [post]
func (s *Server) ShareNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req ShareRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	recipient, err := s.store.GetUserByUsername(r.Context(), req.RecipientUsername)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recipient == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "recipient user not found"})
		return
	}

	node, err := s.store.GetNode(r.Context(), nodeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if node == nil {
		s.writeError(w, r, vault.ErrNotFound)
		return
	}

	share, err := s.service.Share(r.Context(), claims.UserID, vault.ShareRequest{
		ItemID:     nodeID,
		ItemKind:   node.NodeType,
		GranteeID:  recipient.ID,
		Permission: req.Permission,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, share)
}

// @Summary      List items shared with me
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   vault.SharedItem
// @Router       /shares/incoming [get]
func (s *Server) ListSharedWithMeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	items, err := s.service.ListSharedWithMe(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// @Summary      List items I have shared
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   vault.OutgoingShare
// @Router       /shares/outgoing [get]
func (s *Server) ListOutgoingSharesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	shares, err := s.service.ListOutgoingShares(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, shares)
}

// @Summary      Revoke a share
// @Description  Revokes a share entry. Only the owner who issued it can do this.
// @Tags         shares
// @Security     BearerAuth
// @Param        shareId  path      string  true  "ID of the share to delete"
// @Success      204      {null}    nil     "No Content"
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /shares/{shareId} [delete]
func (s *Server) DeleteShareHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	shareID, err := uuid.Parse(chi.URLParam(r, "shareId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid share ID format"})
		return
	}

	if err := s.service.RevokeShare(r.Context(), claims.UserID, shareID); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
