package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/baechuer/eventhub/internal/application/auth"
	"github.com/baechuer/eventhub/internal/domain"
	"github.com/baechuer/eventhub/internal/infrastructure/security"
	"github.com/baechuer/eventhub/internal/logger"
	"github.com/baechuer/eventhub/internal/transport/http/dto"
	"github.com/baechuer/eventhub/internal/transport/http/middleware"
	"github.com/baechuer/eventhub/internal/transport/http/response"
	"github.com/baechuer/eventhub/internal/transport/http/validate"
)

type AuthHandler struct {
	svc           AuthService
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(svc AuthService, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Signup(r.Context(), auth.SignupCmd{
		Email:             req.Email,
		Password:          req.Password,
		Name:              req.Name,
		PriorRefreshToken: security.ReadRefreshToken(r),
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Str("role", res.User.Role).
		Msg("user_signed_up")

	security.SetRefreshToken(w, res.Tokens.RefreshToken, h.refreshTTL, h.secureCookies)
	response.Created(w, dto.AuthData{User: dto.ToUserView(res.User), Tokens: tokensView(res.Tokens)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), auth.LoginCmd{
		Email:             req.Email,
		Password:          req.Password,
		PriorRefreshToken: security.ReadRefreshToken(r),
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Str("user_id", res.User.ID).Msg("user_logged_in")

	security.SetRefreshToken(w, res.Tokens.RefreshToken, h.refreshTTL, h.secureCookies)
	response.OK(w, dto.AuthData{User: dto.ToUserView(res.User), Tokens: tokensView(res.Tokens)})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tok := h.refreshTokenFrom(r)
	if tok == "" {
		response.WriteError(w, r, domain.ErrRefreshTokenInvalid())
		return
	}

	toks, err := h.svc.Refresh(r.Context(), tok)
	if err != nil {
		security.ClearRefreshToken(w, h.secureCookies)
		response.WriteError(w, r, err)
		return
	}

	security.SetRefreshToken(w, toks.RefreshToken, h.refreshTTL, h.secureCookies)
	response.OK(w, dto.RefreshData{Tokens: tokensView(toks)})
}

// Logout always succeeds from the client's point of view.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), h.refreshTokenFrom(r)); err != nil {
		logger.WithCtx(r.Context()).Warn().Err(err).Msg("logout revoke failed")
	}
	security.ClearRefreshToken(w, h.secureCookies)
	response.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}
	u, err := h.svc.Me(r.Context(), uid)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.MeData{User: dto.ToUserView(u)})
}

// refreshTokenFrom prefers the cookie and falls back to a JSON body.
func (h *AuthHandler) refreshTokenFrom(r *http.Request) string {
	if tok := security.ReadRefreshToken(r); tok != "" {
		return tok
	}
	if r.ContentLength == 0 {
		return ""
	}
	var req dto.RefreshRequest
	if err := validate.DecodeJSON(r, &req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.RefreshToken)
}

func tokensView(t auth.AuthTokens) dto.TokensView {
	return dto.TokensView{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn,
	}
}
