package http

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"strategic-forecast/backend-go/internal/config"
	"strategic-forecast/backend-go/internal/handlers"
)

func NewRouter(cfg *config.Config, deps handlers.Deps, log *logrus.Logger) http.Handler {
	if log == nil {
		log = logrus.New()
	}
	deps.Log = log
	api := handlers.New(cfg, deps)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", api.Health)
	mux.HandleFunc("GET /api/forecast/{country}", api.Forecast)
	mux.HandleFunc("GET /api/factors/{code}/{year}", api.Factors)
	mux.HandleFunc("POST /api/chat", api.Chat)

	h := http.Handler(mux)
	h = withRecovery(log)(h)
	h = withLogging(log)(h)
	h = withRateLimit(cfg.Server.RateLimitPerMin)(h)
	h = withRequestID(h)
	h = withCORS(cfg.Server.AllowedOrigins)(h)
	return h
}
