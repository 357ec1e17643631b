package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"lite-drive/internal/database"
	"lite-drive/internal/files"
	"lite-drive/internal/models"
)

const (
	defaultUsersPage = 50
	maxUsersPage     = 500
	maxDisplayName   = 100
)

// @Summary      List users
// @Description  Lists all accounts ordered by id.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (default 50, at most 500)"
// @Param        offset  query     int  false  "Number of users to skip"
// @Success      200     {array}   models.User
// @Failure      400     {string}  string "Bad Request"
// @Failure      401     {string}  string "Unauthorized"
// @Failure      403     {string}  string "Administrator privileges required"
// @Failure      500     {string}  string "Internal Server Error"
// @Router       /api/v1/admin/users [get]
func (s *Server) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultUsersPage)
	if err != nil || limit <= 0 {
		http.Error(w, "Invalid 'limit' parameter", http.StatusBadRequest)
		return
	}
	if limit > maxUsersPage {
		limit = maxUsersPage
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		http.Error(w, "Invalid 'offset' parameter", http.StatusBadRequest)
		return
	}

	users, err := s.store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		http.Error(w, "Failed to retrieve users", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, users)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// AdminUpdateUserRequest lists every field an administrator may change.
// Omitted fields are left as they are.
type AdminUpdateUserRequest struct {
	DisplayName    *string  `json:"display_name,omitempty" example:"Anna"`
	StorageLimitMB *float64 `json:"storage_limit_mb,omitempty" example:"2048"`
	IsAdmin        *bool    `json:"is_admin,omitempty" example:"false"`
	IsActive       *bool    `json:"is_active,omitempty" example:"true"`
}

func (req *AdminUpdateUserRequest) Validate() error {
	if req.DisplayName == nil && req.StorageLimitMB == nil && req.IsAdmin == nil && req.IsActive == nil {
		return errors.New("at least one field must be provided")
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return errors.New("display_name cannot be empty")
		}
		if utf8.RuneCountInString(name) > maxDisplayName {
			return errors.New("display_name is too long")
		}
		req.DisplayName = &name
	}
	if req.StorageLimitMB != nil {
		limit := *req.StorageLimitMB
		if math.IsNaN(limit) || math.IsInf(limit, 0) || limit < 0 {
			return errors.New("storage_limit_mb must be a non-negative number")
		}
	}
	return nil
}

func (req *AdminUpdateUserRequest) params() database.UpdateUserParams {
	return database.UpdateUserParams{
		DisplayName:    req.DisplayName,
		StorageLimitMB: req.StorageLimitMB,
		IsAdmin:        req.IsAdmin,
		IsActive:       req.IsActive,
	}
}

func pathUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
}

// @Summary      Update a user
// @Description  Changes the display name, storage limit, admin flag or active flag of an account. Deactivating an account also ends all of its sessions. Administrators cannot demote or deactivate themselves.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId   path      int                     true  "User ID"
// @Param        request  body      AdminUpdateUserRequest  true  "Fields to change"
// @Success      200      {object}  models.User
// @Failure      400      {string}  string "Bad Request"
// @Failure      401      {string}  string "Unauthorized"
// @Failure      403      {string}  string "Forbidden"
// @Failure      404      {string}  string "User not found"
// @Failure      500      {string}  string "Internal Server Error"
// @Router       /api/v1/admin/users/{userId} [patch]
func (s *Server) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	admin := GetAccountFromContext(r.Context())

	userID, err := pathUserID(r)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req AdminUpdateUserRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if userID == admin.ID {
		if (req.IsAdmin != nil && !*req.IsAdmin) || (req.IsActive != nil && !*req.IsActive) {
			http.Error(w, "You cannot demote or deactivate your own account", http.StatusForbidden)
			return
		}
	}

	var updated *models.User
	err = s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		user, err := q.UpdateUser(r.Context(), userID, req.params())
		if err != nil || user == nil {
			return err
		}
		if !user.IsActive {
			if err := q.DeleteAllSessionsForUser(r.Context(), user.ID); err != nil {
				return err
			}
		}
		updated = user
		return nil
	})
	if err != nil {
		s.logger.Error("failed to update user", "user_id", userID, "error", err)
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}
	if updated == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	s.logger.Info("user updated by admin", "admin_id", admin.ID, "user_id", userID)
	respondJSON(w, http.StatusOK, updated)
}

// @Summary      Delete a user
// @Description  Deletes an account together with all of its files, previews, sessions and events.
// @Tags         admin
// @Security     BearerAuth
// @Param        userId  path      int  true  "User ID"
// @Success      204     {null}    nil "No Content"
// @Failure      400     {string}  string "Bad Request"
// @Failure      401     {string}  string "Unauthorized"
// @Failure      403     {string}  string "Forbidden"
// @Failure      404     {string}  string "User not found"
// @Failure      500     {string}  string "Internal Server Error"
// @Router       /api/v1/admin/users/{userId} [delete]
func (s *Server) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	admin := GetAccountFromContext(r.Context())

	userID, err := pathUserID(r)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if userID == admin.ID {
		http.Error(w, "You cannot delete your own account", http.StatusForbidden)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to load user", "user_id", userID, "error", err)
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	deleted, err := s.store.DeleteUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to delete user", "user_id", userID, "error", err)
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := s.files.PurgeOwner(r.Context(), files.Owner{ID: user.ID, Email: user.Email}); err != nil {
		s.logger.Error("user deleted but content remains on disk", "user_id", userID, "error", err)
	}

	s.logger.Info("user deleted by admin", "admin_id", admin.ID, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
