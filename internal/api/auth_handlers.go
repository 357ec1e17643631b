package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"lite-drive/internal/auth"
	"lite-drive/internal/database"
	"lite-drive/internal/files"
	"lite-drive/internal/models"
)

const stateCookie = "oauth_state"

var errInvalidRefreshToken = errors.New("invalid or expired refresh token")

type TokenResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VyX2lkIjoxLCJlbWFpbCI6ImFubmFAZXhhbXBsZS5jb20ifQ...."`
	RefreshToken string `json:"refresh_token" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
}

// @Summary      Start login
// @Description  Redirects the browser to the identity provider. A random state is kept in a short lived cookie and checked on the way back.
// @Tags         auth
// @Success      307
// @Router       /login [get]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	state := s.identity.NewState()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.identity.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// @Summary      Finish login
// @Description  Handles the identity provider redirect: verifies the state, creates the account on first login and returns a token pair. The access token is also set as a cookie.
// @Tags         auth
// @Produce      json
// @Param        state  query     string  true  "State echoed by the provider"
// @Param        code   query     string  true  "Authorization code"
// @Success      200    {object}  TokenResponse
// @Failure      400    {string}  string "Invalid state"
// @Failure      401    {string}  string "Authentication failed"
// @Failure      403    {string}  string "Account is disabled"
// @Failure      500    {string}  string "Internal Server Error"
// @Router       /auth/callback [get]
func (s *Server) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, auth.ErrInvalidState.Error(), http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	identity, err := s.identity.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Warn("oauth exchange failed", "error", err)
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	var avatar *string
	if identity.Picture != "" {
		avatar = &identity.Picture
	}

	user, err := s.store.UpsertUser(r.Context(), database.UpsertUserParams{
		Email:          identity.Email,
		DisplayName:    identity.Name,
		AvatarURL:      avatar,
		StorageLimitMB: s.config.Storage.DefaultLimitMB,
		IsAdmin:        s.config.IsAdminEmail(identity.Email),
	})
	if err != nil {
		s.logger.Error("failed to upsert user", "email", identity.Email, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !user.IsActive {
		http.Error(w, files.ErrAccountDisabled.Error(), http.StatusForbidden)
		return
	}

	if err := s.store.UpdateLastLogin(r.Context(), user.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}

	tokens, err := s.issueTokens(r.Context(), s.store.Queries, user, r)
	if err != nil {
		s.logger.Error("failed to create session", "user_id", user.ID, "error", err)
		http.Error(w, "Failed to process login session", http.StatusInternalServerError)
		return
	}

	s.setAccessCookie(w, r, tokens.AccessToken)
	s.logger.Info("user logged in", "user_id", user.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokens)
}

// issueTokens signs an access token and opens a new refresh session.
func (s *Server) issueTokens(ctx context.Context, q *database.Queries, user *models.User, r *http.Request) (*TokenResponse, error) {
	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret, s.config.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	err = q.CreateSession(ctx, database.CreateSessionParams{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     clientIP(r),
		ExpiresAt:    time.Now().Add(s.config.JWT.RefreshTTL),
	})
	if err != nil {
		return nil, err
	}

	return &TokenResponse{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Server) setAccessCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.config.JWT.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
}

// @Summary      Refresh access token
// @Description  Provides a new short-lived access token and a new refresh token in exchange for a valid, non-expired refresh token. Implements refresh token rotation.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        refreshTokenRequest   body      RefreshTokenRequest  true  "Refresh Token"
// @Success      200                   {object}  TokenResponse
// @Failure      400                   {string}  string "Invalid request body or missing token"
// @Failure      401                   {string}  string "Invalid or expired refresh token"
// @Failure      403                   {string}  string "Account is disabled"
// @Failure      500                   {string}  string "Internal Server Error"
// @Router       /api/v1/auth/refresh [post]
func (s *Server) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		http.Error(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	var tokens *TokenResponse

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		user, err := q.GetUserByRefreshToken(r.Context(), req.RefreshToken)
		if err != nil {
			return err
		}
		if user == nil {
			return errInvalidRefreshToken
		}
		if !user.IsActive {
			return files.ErrAccountDisabled
		}

		if err := q.DeleteSessionByRefreshToken(r.Context(), req.RefreshToken); err != nil {
			return err
		}

		tokens, err = s.issueTokens(r.Context(), q, user, r)
		return err
	})

	switch {
	case txErr == nil:
	case errors.Is(txErr, errInvalidRefreshToken):
		http.Error(w, txErr.Error(), http.StatusUnauthorized)
		return
	case errors.Is(txErr, files.ErrAccountDisabled):
		http.Error(w, txErr.Error(), http.StatusForbidden)
		return
	default:
		s.logger.Error("refresh token transaction failed", "error", txErr)
		http.Error(w, "Failed to refresh token", http.StatusInternalServerError)
		return
	}

	s.setAccessCookie(w, r, tokens.AccessToken)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokens)
}

// @Summary      Log out
// @Description  Ends the session of the given refresh token (if any) and clears the access token cookie.
// @Tags         auth
// @Accept       json
// @Security     BearerAuth
// @Param        refreshTokenRequest   body      RefreshTokenRequest  false  "Refresh token of the session to end"
// @Success      204  {null}    nil "No Content"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /api/v1/auth/logout [post]
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	// The body is optional; without a usable token only the cookie is cleared.
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Debug("ignoring malformed logout body", "error", err)
	}

	if req.RefreshToken != "" {
		if err := s.store.DeleteSessionByRefreshToken(r.Context(), req.RefreshToken); err != nil {
			s.logger.Error("failed to end session", "error", err)
			http.Error(w, "Failed to log out", http.StatusInternalServerError)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}
