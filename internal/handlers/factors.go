package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

// Factors serves GET /api/factors/{code}/{year}. The segment may be an ISO3
// code or a country name; the body is never an error shape once the year parses.
func (a *API) Factors(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(strings.TrimSpace(r.PathValue("year")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be an integer")
		return
	}

	ctx, cancel := a.timeboxed(r)
	defer cancel()

	raw := strings.TrimSpace(r.PathValue("code"))
	code := strings.ToUpper(raw)
	if len(code) != 3 {
		if resolved, err := a.forecasts.Resolve(ctx, raw); err == nil {
			code = resolved
		}
	}
	writeJSON(w, http.StatusOK, a.factors.Estimate(ctx, code, year))
}
