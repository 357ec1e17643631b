package api

import (
	"net/http"
	"strconv"

	_ "lite-drive/internal/models"
)

// @Summary      Get new events
// @Description  Retrieves the file events (uploads and deletions) recorded after a given event ID. Used by clients to catch up after being offline.
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        since  query     int  false  "The ID of the last event received. Omit or use 0 to get all events."
// @Success      200    {array}   models.Event
// @Failure      400    {string}  string "Bad Request"
// @Failure      401    {string}  string "Unauthorized"
// @Failure      500    {string}  string "Internal Server Error"
// @Router       /api/v1/events [get]
func (s *Server) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	sinceStr := r.URL.Query().Get("since")
	if sinceStr == "" {
		sinceStr = "0"
	}

	sinceID, err := strconv.ParseInt(sinceStr, 10, 64)
	if err != nil || sinceID < 0 {
		http.Error(w, "Invalid 'since' parameter, must be a non-negative number", http.StatusBadRequest)
		return
	}

	events, err := s.store.GetEventsSince(r.Context(), claims.UserID, sinceID)
	if err != nil {
		s.logger.Error("failed to read events", "user_id", claims.UserID, "error", err)
		http.Error(w, "Failed to retrieve events", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, events)
}
