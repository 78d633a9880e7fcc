package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"lockbox/internal/auth"
	"lockbox/internal/models"
	"lockbox/internal/store"
	"lockbox/internal/vault"

	"go.uber.org/zap"
)

type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"password123"`
}

type SignupRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=64" example:"alice"`
	Password    string  `json:"password" validate:"required,min=8,max=72" example:"password123"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=128" example:"Alice Example"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt   time.Time `json:"expires_at"`
}

// @Summary      Logs a user in
// @Description  Authenticates a user and returns a bearer access token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest   body      LoginRequest  true  "Login Credentials"
// @Success      200            {object}  TokenResponse
// @Failure      400            {object}  ErrorResponse "Invalid request body"
// @Failure      401            {object}  ErrorResponse "Invalid username or password"
// @Failure      500            {object}  ErrorResponse "Internal Server Error"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid username or password"})
		return
	}

	s.writeToken(w, http.StatusOK, user)
}

// @Summary      Creates an account
// @Description  Registers a new user and returns a bearer access token for it.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        signupRequest  body      SignupRequest  true  "New account"
// @Success      201            {object}  TokenResponse
// @Failure      400            {object}  ErrorResponse "Invalid request body"
// @Failure      409            {object}  ErrorResponse "Username already taken"
// @Failure      500            {object}  ErrorResponse "Internal Server Error"
// @Router       /auth/signup [post]
func (s *Server) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	username := strings.TrimSpace(req.Username)
	if utf8.RuneCountInString(username) < 3 {
		s.writeError(w, r, fmt.Errorf("%w: username must be at least 3 characters", vault.ErrValidation))
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), store.CreateUserParams{
		Username:     username,
		PasswordHash: hashedPassword,
		DisplayName:  req.DisplayName,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("user signed up", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	s.writeToken(w, http.StatusCreated, user)
}

func (s *Server) writeToken(w http.ResponseWriter, status int, user *models.User) {
	ttl := s.config.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("failed to generate access token", zap.Int64("user_id", user.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to generate access token"})
		return
	}

	writeJSON(w, status, TokenResponse{
		AccessToken: accessToken,
		ExpiresAt:   time.Now().Add(ttl).UTC(),
	})
}
