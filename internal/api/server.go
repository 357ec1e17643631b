package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"lite-drive/internal/auth"
	"lite-drive/internal/config"
	"lite-drive/internal/database"
	"lite-drive/internal/files"
	"lite-drive/internal/quota"
	"lite-drive/internal/websocket"
)

// IdentityProvider is the external login the server delegates to.
type IdentityProvider interface {
	NewState() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Identity, error)
}

type Server struct {
	config   *config.Config
	store    *database.Store
	files    *files.Service
	ledger   *quota.Ledger
	identity IdentityProvider
	wsHub    *websocket.Hub
	logger   *slog.Logger
	limiter  *ipRateLimiter
}

func NewServer(
	cfg *config.Config,
	store *database.Store,
	fileService *files.Service,
	ledger *quota.Ledger,
	identity IdentityProvider,
	wsHub *websocket.Hub,
	logger *slog.Logger,
) *Server {
	return &Server{
		config:   cfg,
		store:    store,
		files:    fileService,
		ledger:   ledger,
		identity: identity,
		wsHub:    wsHub,
		logger:   logger,
		limiter:  newIPRateLimiter(cfg.RateLimit.RequestsPerMinute),
	}
}

type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
}

// @Summary      Health check
// @Description  Reports whether the server can reach its database.
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		resp = HealthResponse{Status: "degraded", Database: "unreachable"}
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, resp)
}

type MessageResponse struct {
	Message string `json:"message" example:"File deleted successfully"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, MessageResponse{Message: message})
}
