package route

import (
	"net/http"

	"beltsensor/internal/config"
	"beltsensor/internal/handler"
	"beltsensor/internal/logger"
	"beltsensor/internal/middleware"
	"beltsensor/internal/repository"
	"beltsensor/internal/service/belt"
	"beltsensor/internal/service/stream"

	"golang.org/x/time/rate"
)

// Deps are the components the HTTP surface reads from.
type Deps struct {
	State       *belt.State
	Pipeline    handler.PipelineStatus
	EndpointURL func() string
	LiveView    *stream.LiveView
	Hub         *stream.Hub
	Events      repository.ControlEventRepository
	Buffer      handler.Flusher
}

// SetupRoutes registers the live view, status, event and admin endpoints and
// wraps the mux with the authentication middleware.
func SetupRoutes(deps Deps, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.NewAuth(cfg.Password)
	limiter := middleware.NewRateLimiter(rate.Limit(cfg.StatusRateLimit), cfg.StatusRateLimit*2)

	// Live view
	mux.Handle("/camera_ia", deps.LiveView.MJPEG())
	mux.HandleFunc("/snapshot.jpg", handler.SnapshotHandler(deps.LiveView))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(deps.Hub, logger))
	mux.HandleFunc("/", handler.IndexHandler(deps.State, logger))

	// Status
	mux.Handle("/status", limiter.Limit(handler.StatusHandler(deps.State, deps.Pipeline, deps.EndpointURL, logger)))
	mux.HandleFunc("/health", handler.HealthHandler)

	// Control event log
	if deps.Events != nil {
		mux.Handle("/api/events", limiter.Limit(handler.EventsHandler(deps.Events, deps.Buffer, logger)))
	}

	// Log endpoints
	for _, level := range handler.LogLevels {
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(logger, level))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, level))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(auth, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	return auth.AuthMiddleware(mux)
}
