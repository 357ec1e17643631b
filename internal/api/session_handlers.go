package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	_ "lite-drive/internal/models"
)

// @Summary      List sessions
// @Description  Lists the unexpired refresh sessions of the caller with the device and address they were opened from.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Session
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /api/v1/sessions [get]
func (s *Server) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	sessions, err := s.store.ListSessionsForUser(r.Context(), claims.UserID)
	if err != nil {
		s.logger.Error("failed to list sessions", "user_id", claims.UserID, "error", err)
		http.Error(w, "Failed to retrieve sessions", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, sessions)
}

// @Summary      End one session
// @Description  Revokes one refresh session of the caller. Sessions of other users are reported as missing.
// @Tags         sessions
// @Security     BearerAuth
// @Param        sessionId  path      string  true  "Session ID" format(uuid)
// @Success      204        {null}    nil     "No Content"
// @Failure      400        {string}  string "Invalid session ID format"
// @Failure      401        {string}  string "Unauthorized"
// @Failure      404        {string}  string "Session not found"
// @Failure      500        {string}  string "Internal Server Error"
// @Router       /api/v1/sessions/{sessionId} [delete]
func (s *Server) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		http.Error(w, "Invalid session ID format", http.StatusBadRequest)
		return
	}

	deleted, err := s.store.DeleteSessionByID(r.Context(), sessionID, claims.UserID)
	if err != nil {
		s.logger.Error("failed to delete session", "user_id", claims.UserID, "error", err)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      End all sessions
// @Description  Revokes every refresh session of the caller. Access tokens already issued stay valid until they expire.
// @Tags         sessions
// @Security     BearerAuth
// @Success      204  {null}    nil "No Content"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /api/v1/sessions/terminate_all [post]
func (s *Server) TerminateAllSessionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	if err := s.store.DeleteAllSessionsForUser(r.Context(), claims.UserID); err != nil {
		s.logger.Error("failed to terminate sessions", "user_id", claims.UserID, "error", err)
		http.Error(w, "Failed to terminate all sessions", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
