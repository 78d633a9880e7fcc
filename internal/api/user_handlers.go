package api

import (
	"net/http"

	"lockbox/internal/auth"
	"lockbox/internal/vault"

	"go.uber.org/zap"
)

type UserResponse struct {
	ID          int64   `json:"id" example:"1"`
	Username    string  `json:"username" example:"alice"`
	DisplayName *string `json:"display_name,omitempty" example:"Alice Example"`
}

// @Summary      Get current user info
// @Description  Retrieves the account of the authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UserResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {object}  ErrorResponse "User no longer exists"
// @Failure      500  {object}  ErrorResponse "Internal Server Error"
// @Router       /me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if user == nil {
		s.writeError(w, r, vault.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required" example:"password123"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72" example:"correct-horse-battery"`
}

// @Summary      Change password
// @Description  Replaces the caller's password after checking the current one and returns a fresh access token.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ChangePasswordRequest  true  "Current and new password"
// @Success      200      {object}  TokenResponse
// @Failure      400      {object}  ErrorResponse "Invalid request body"
// @Failure      401      {object}  ErrorResponse "Current password is wrong"
// @Failure      404      {object}  ErrorResponse "User no longer exists"
// @Failure      500      {object}  ErrorResponse "Internal Server Error"
// @Router       /me/password [patch]
func (s *Server) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req ChangePasswordRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if user == nil {
		s.writeError(w, r, vault.ErrNotFound)
		return
	}
	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		s.writeError(w, r, vault.ErrInvalidCredential)
		return
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok, err := s.store.UpdatePasswordHash(r.Context(), user.ID, hashedPassword)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, vault.ErrNotFound)
		return
	}

	s.logger.Info("password changed", zap.Int64("user_id", user.ID))
	s.writeToken(w, http.StatusOK, user)
}

// @Summary      Health check
// @Tags         health
// @Success      200  {string}  string "ok"
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
