package handler

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/maimweb/backend/internal/handler/dto"
	"github.com/maimweb/backend/internal/middleware"
	"github.com/maimweb/backend/internal/service"
)

// AuthHandler handles registration, login and the current-user endpoint.
type AuthHandler struct {
	provisioner *service.Provisioner
	auth        *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(provisioner *service.Provisioner, authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provisioner: provisioner,
		auth:        authSvc,
		logger:      logger,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := validateAll(
		middleware.ValidateUsername(req.Username),
		middleware.ValidateEmail(req.Email),
		middleware.ValidatePassword(req.Password),
	); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.provisioner.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Login handles POST /auth/login. Credentials arrive as form fields or,
// with a JSON content type, as a JSON object.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds dto.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if !decodeJSON(w, r, &creds) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid form body")
			return
		}
		creds.Username = r.PostForm.Get("username")
		creds.Password = r.PostForm.Get("password")
	}

	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Username and password are required")
		return
	}

	token, err := h.auth.Login(r.Context(), strings.TrimSpace(creds.Username), creds.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
	})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}
