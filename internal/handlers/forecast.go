package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"strategic-forecast/backend-go/internal/forecast"
)

// Forecast serves GET /api/forecast/{country}?horizon=&confidence=.
func (a *API) Forecast(w http.ResponseWriter, r *http.Request) {
	country := strings.TrimSpace(r.PathValue("country"))
	fields := logrus.Fields{"component": "handlers", "country": country}

	q := r.URL.Query()
	horizon, err := parseIntParam(q.Get("horizon"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "horizon must be an integer")
		return
	}
	confidence, err := parseFloatParam(q.Get("confidence"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "confidence must be a number")
		return
	}

	ctx, cancel := a.timeboxed(r)
	defer cancel()

	resp, err := a.forecasts.GetForecast(ctx, forecast.Request{
		Country:    country,
		Horizon:    horizon,
		Confidence: confidence,
	})
	if err != nil {
		a.writeForecastError(w, err, fields)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
