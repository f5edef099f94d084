package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"strategic-forecast/backend-go/internal/chat"
	"strategic-forecast/backend-go/internal/config"
	"strategic-forecast/backend-go/internal/forecast"
	"strategic-forecast/backend-go/internal/models"
	"strategic-forecast/backend-go/internal/services"
)

type ForecastService interface {
	GetForecast(ctx context.Context, req forecast.Request) (models.ForecastResponse, error)
	Resolve(ctx context.Context, name string) (string, error)
}

type FactorEstimator interface {
	Estimate(ctx context.Context, code string, year int) models.ExpenditureFactors
}

type ChatAssistant interface {
	Reply(ctx context.Context, message string) (models.ChatResponse, error)
	Status() chat.Status
}

type HealthChecker interface {
	Health(ctx context.Context) error
}

type Deps struct {
	Cache     services.Cache
	Model     HealthChecker
	Forecasts ForecastService
	Factors   FactorEstimator
	Chat      ChatAssistant
	Log       *logrus.Logger
}

type API struct {
	cfg       *config.Config
	cache     services.Cache
	model     HealthChecker
	forecasts ForecastService
	factors   FactorEstimator
	chat      ChatAssistant
	log       *logrus.Logger
}

func New(cfg *config.Config, deps Deps) *API {
	log := deps.Log
	if log == nil {
		log = logrus.New()
	}
	return &API{
		cfg:       cfg,
		cache:     deps.Cache,
		model:     deps.Model,
		forecasts: deps.Forecasts,
		factors:   deps.Factors,
		chat:      deps.Chat,
		log:       log,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, models.ErrorResponse{Error: msg})
}

// parseIntParam returns def for an empty value and an error for anything
// that is not a base-10 integer.
func parseIntParam(v string, def int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func parseFloatParam(v string, def float64) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func (a *API) timeboxed(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := 60 * time.Second
	if a.cfg != nil && a.cfg.Server.RequestTimeout > 0 {
		timeout = a.cfg.Server.RequestTimeout
	}
	return context.WithTimeout(r.Context(), timeout)
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
