package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hirokiuemura2/GDGTeamF1/internal/config"
	"github.com/hirokiuemura2/GDGTeamF1/internal/domain"
	"github.com/hirokiuemura2/GDGTeamF1/internal/http/middleware"
	"github.com/hirokiuemura2/GDGTeamF1/internal/oauth"
	"github.com/hirokiuemura2/GDGTeamF1/internal/service"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	Auth   *service.AuthService
	Google *oauth.Client
	States *oauth.StateStore
	Cfg    config.Config
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, google *oauth.Client, states *oauth.StateStore, cfg config.Config) *AuthHandler {
	return &AuthHandler{Auth: auth, Google: google, States: states, Cfg: cfg}
}

type signUpRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
}

type userResponse struct {
	ID        string            `json:"id"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Token     service.TokenPair `json:"token"`
}

// SignUp registers a password-based account and returns the created
// record with a fresh token pair.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid sign-up request."})
		return
	}

	user, err := h.Auth.RegisterLocal(c.Request.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	pair, err := h.Auth.IssueTokenPair(user.ID)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
		Token:     pair,
	})
}

type loginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Login authenticates an email/password form and returns a token pair.
// The form field is named username to match the OAuth2 password flow
// shape the frontend speaks.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid login request."})
		return
	}

	user, err := h.Auth.AuthenticateLocal(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	pair, err := h.Auth.IssueTokenPair(user.ID)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a brand-new token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid refresh request."})
		return
	}

	pair, err := h.Auth.RotateFromRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// LoginCheck confirms the bearer token on the request is valid.
func (h *AuthHandler) LoginCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "You are logged in!"})
}

// DeleteUser removes the authenticated account after re-verifying its
// credentials. The token subject and the re-verified identity must match.
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	subject, ok := middleware.UserID(c)
	if !ok {
		h.respondAuthError(c, domain.ErrIdentityNotFound)
		return
	}

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid delete request."})
		return
	}

	user, err := h.Auth.AuthenticateLocal(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	if user.ID != subject {
		h.respondAuthError(c, domain.ErrInvalidCredentials)
		return
	}

	if err := h.Auth.Delete(c.Request.Context(), user.ID); err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GoogleLogin redirects to the provider authorize endpoint for an
// existing linked account.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	h.googleRedirect(c, "/auth/google/callback")
}

// GoogleSignUp redirects to the provider authorize endpoint for account
// creation.
func (h *AuthHandler) GoogleSignUp(c *gin.Context) {
	h.googleRedirect(c, "/auth/google/sign-up-callback")
}

func (h *AuthHandler) googleRedirect(c *gin.Context, callbackPath string) {
	state, err := h.States.Issue()
	if err != nil {
		h.respondFederationError(c, err)
		return
	}

	authURL, err := h.Google.AuthCodeURL(h.baseURL(c.Request)+callbackPath, state)
	if err != nil {
		h.respondFederationError(c, err)
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// GoogleCallback finishes the login flow: the Google subject must already
// be linked to an account.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	info, ok := h.resolveCallback(c, "/auth/google/callback")
	if !ok {
		return
	}

	user, err := h.Auth.AuthenticateFederated(c.Request.Context(), info.Subject)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	pair, err := h.Auth.IssueTokenPair(user.ID)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// GoogleSignUpCallback finishes the sign-up flow: a new account is linked
// to the Google subject. Local accounts sharing the same email address
// stay separate.
func (h *AuthHandler) GoogleSignUpCallback(c *gin.Context) {
	info, ok := h.resolveCallback(c, "/auth/google/sign-up-callback")
	if !ok {
		return
	}

	user, err := h.Auth.RegisterFederated(c.Request.Context(), info.GivenName, info.FamilyName, info.Subject)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	pair, err := h.Auth.IssueTokenPair(user.ID)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
		Token:     pair,
	})
}

// resolveCallback validates state, exchanges the code, and fetches the
// provider identity claims. Responds and returns ok=false on failure.
func (h *AuthHandler) resolveCallback(c *gin.Context, callbackPath string) (oauth.UserInfo, bool) {
	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "code and state are required."})
		return oauth.UserInfo{}, false
	}

	if !h.States.Consume(state) {
		h.respondFederationError(c, oauth.ErrInvalidState)
		return oauth.UserInfo{}, false
	}

	accessToken, err := h.Google.Exchange(c.Request.Context(), code, h.baseURL(c.Request)+callbackPath)
	if err != nil {
		h.respondFederationError(c, err)
		return oauth.UserInfo{}, false
	}

	info, err := h.Google.FetchUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		h.respondFederationError(c, err)
		return oauth.UserInfo{}, false
	}

	return info, true
}

// baseURL derives the externally-visible base URL of this service from
// the request, preferring the configured one when set.
func (h *AuthHandler) baseURL(r *http.Request) string {
	if h.Cfg.BaseURL != "" {
		return strings.TrimRight(h.Cfg.BaseURL, "/")
	}
	return schemeOnly(r) + "://" + r.Host
}

func (h *AuthHandler) respondAuthError(c *gin.Context, err error) {
	if domain.IsAuthError(err) {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
		return
	}
	zap.L().Error("auth operation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
}

// respondFederationError covers failures in the provider flow. A stale or
// replayed state is the client's mistake and gets a 400; anything else is
// an upstream failure surfaced as a generic 502 instead of crashing the
// request handler.
func (h *AuthHandler) respondFederationError(c *gin.Context, err error) {
	if errors.Is(err, oauth.ErrInvalidState) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "State is invalid or expired."})
		return
	}
	zap.L().Warn("google federation failure", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"detail": "Google sign-in failed"})
}

func schemeOnly(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	return scheme
}
