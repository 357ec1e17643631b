package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lite-drive/internal/database"
	"lite-drive/internal/models"
)

func updateLimit(limit float64) database.UpdateUserParams {
	return database.UpdateUserParams{StorageLimitMB: &limit}
}

func updateActive(active bool) database.UpdateUserParams {
	return database.UpdateUserParams{IsActive: &active}
}

func adminUserPath(id int64) string {
	return fmt.Sprintf("/api/v1/admin/users/%d", id)
}

func TestAPI_AdminRoutesRequireAdmin(t *testing.T) {
	_, token := createTestUser(t, 10, false)

	rr := serve(authedRequest(http.MethodGet, "/api/v1/admin/users", nil, token))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(authedRequest(http.MethodGet, "/api/v1/admin/users", nil, ""))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_AdminRevokedFlagTakesEffectImmediately(t *testing.T) {
	admin, token := createTestUser(t, 10, true)

	rr := serve(authedRequest(http.MethodGet, "/api/v1/admin/users", nil, token))
	require.Equal(t, http.StatusOK, rr.Code)

	_, err := testServer.store.SetAdmin(context.Background(), admin.Email, false)
	require.NoError(t, err)

	rr = serve(authedRequest(http.MethodGet, "/api/v1/admin/users", nil, token))
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAPI_AdminListUsers(t *testing.T) {
	_, token := createTestUser(t, 10, true)
	createTestUser(t, 10, false)

	rr := serve(authedRequest(http.MethodGet, "/api/v1/admin/users?limit=1", nil, token))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode[[]models.User](t, rr), 1)

	rr = serve(authedRequest(http.MethodGet, "/api/v1/admin/users?limit=-3", nil, token))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(authedRequest(http.MethodGet, "/api/v1/admin/users?offset=x", nil, token))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_AdminUpdateUser(t *testing.T) {
	admin, token := createTestUser(t, 10, true)
	target, targetToken := createTestUser(t, 10, false)

	t.Run("changes the limit", func(t *testing.T) {
		rr := serve(authedRequest(http.MethodPatch, adminUserPath(target.ID),
			strings.NewReader(`{"storage_limit_mb": 2048, "display_name": "  Renamed  "}`), token))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		updated := decode[models.User](t, rr)
		require.InDelta(t, 2048, updated.StorageLimitMB, 1e-9)
		require.Equal(t, "Renamed", updated.DisplayName)
		require.Equal(t, target.Email, updated.Email)
	})

	invalid := map[string]string{
		"empty body":      `{}`,
		"negative limit":  `{"storage_limit_mb": -1}`,
		"blank name":      `{"display_name": "   "}`,
		"long name":       fmt.Sprintf(`{"display_name": %q}`, strings.Repeat("a", 101)),
		"unknown field":   `{"email": "someone@example.com"}`,
		"read-only field": `{"storage_used_mb": 0}`,
		"malformed json":  `{"storage_limit_mb": `,
	}
	for name, body := range invalid {
		t.Run("rejects "+name, func(t *testing.T) {
			rr := serve(authedRequest(http.MethodPatch, adminUserPath(target.ID), strings.NewReader(body), token))
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	t.Run("unknown user", func(t *testing.T) {
		rr := serve(authedRequest(http.MethodPatch, adminUserPath(math.MaxInt32), strings.NewReader(`{"is_admin": true}`), token))
		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("cannot demote self", func(t *testing.T) {
		rr := serve(authedRequest(http.MethodPatch, adminUserPath(admin.ID), strings.NewReader(`{"is_admin": false}`), token))
		require.Equal(t, http.StatusForbidden, rr.Code)

		rr = serve(authedRequest(http.MethodPatch, adminUserPath(admin.ID), strings.NewReader(`{"is_active": false}`), token))
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("deactivation locks the user out", func(t *testing.T) {
		tokens := login(t, target.Email)

		rr := serve(authedRequest(http.MethodPatch, adminUserPath(target.ID), strings.NewReader(`{"is_active": false}`), token))
		require.Equal(t, http.StatusOK, rr.Code)

		rr = serve(authedRequest(http.MethodGet, "/api/v1/me", nil, targetToken))
		require.Equal(t, http.StatusForbidden, rr.Code)

		sessions, err := testServer.store.ListSessionsForUser(context.Background(), target.ID)
		require.NoError(t, err)
		require.Empty(t, sessions)

		rr = serve(authedRequest(http.MethodPost, "/api/v1/auth/refresh", jsonBody(t, RefreshTokenRequest{RefreshToken: tokens.RefreshToken}), ""))
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAPI_AdminDeleteUser(t *testing.T) {
	admin, token := createTestUser(t, 10, true)
	target, targetToken := createTestUser(t, 10, false)

	uploaded := upload(t, targetToken, "doomed.txt", []byte("bye"))
	uploadDir := mustDir(t, target.Email, false)

	rr := serve(authedRequest(http.MethodDelete, adminUserPath(admin.ID), nil, token))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(authedRequest(http.MethodDelete, adminUserPath(target.ID), nil, token))
	require.Equal(t, http.StatusNoContent, rr.Code)

	user, err := testServer.store.GetUserByID(context.Background(), target.ID)
	require.NoError(t, err)
	require.Nil(t, user)

	exists, err := testServer.store.FileExists(context.Background(), uploaded.ID)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = os.Stat(uploadDir)
	require.True(t, os.IsNotExist(err))

	rr = serve(authedRequest(http.MethodGet, "/api/v1/me", nil, targetToken))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(authedRequest(http.MethodDelete, adminUserPath(target.ID), nil, token))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminUpdateUserRequest_Validate(t *testing.T) {
	inf := math.Inf(1)
	req := AdminUpdateUserRequest{StorageLimitMB: &inf}
	require.Error(t, req.Validate())

	zero := 0.0
	req = AdminUpdateUserRequest{StorageLimitMB: &zero}
	require.NoError(t, req.Validate())
}
