package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"strategic-forecast/backend-go/internal/forecast"
	"strategic-forecast/backend-go/internal/services"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, forecast.ErrCountryNotFound):
		return http.StatusNotFound
	case errors.Is(err, forecast.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, forecast.ErrDataUnavailable) || errors.Is(err, forecast.ErrModelFit) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (a *API) writeForecastError(w http.ResponseWriter, err error, fields logrus.Fields) {
	status := statusFor(err)
	var upErr *services.UpstreamError
	if errors.As(err, &upErr) {
		fields["upstream"] = upErr.Service
		fields["upstream_status"] = upErr.Status
		if upErr.Status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "60")
		}
	}
	entry := a.log.WithFields(fields).WithError(err)
	if status >= 500 {
		entry.Warn("forecast request failed")
	} else {
		entry.Debug("forecast request rejected")
	}
	writeError(w, status, err.Error())
}
