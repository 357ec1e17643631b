package api

import (
	"net/http"

	_ "lite-drive/internal/models"
	"lite-drive/internal/quota"
)

// @Summary      Get current user info
// @Description  Returns the profile of the authenticated user as stored in the database.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Account is disabled"
// @Router       /api/v1/me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetAccountFromContext(r.Context()))
}

// @Summary      Get storage usage
// @Description  Returns used, limit and available storage in MB and the share of the limit in use (capped at 100).
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  quota.Usage
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Account is disabled"
// @Router       /api/v1/me/storage [get]
func (s *Server) GetStorageUsageHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, quota.UsageOf(GetAccountFromContext(r.Context())))
}
