package services

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"strategic-forecast/backend-go/internal/config"
	"strategic-forecast/backend-go/internal/forecast"
)

// ProphetClient talks to the stateless Prophet sidecar. Fit only validates
// and captures the series; the sidecar fits and predicts in one call.
type ProphetClient struct {
	baseURL   string
	hc        *http.Client
	cb        *circuitBreaker
	minPoints int
	log       *logrus.Logger
}

type prophetRow struct {
	DS string  `json:"ds"`
	Y  float64 `json:"y"`
}

type prophetFuture struct {
	DS string `json:"ds"`
}

type prophetRequest struct {
	History               []prophetRow    `json:"history"`
	Future                []prophetFuture `json:"future"`
	IntervalWidth         float64         `json:"interval_width"`
	ChangepointPriorScale float64         `json:"changepoint_prior_scale"`
	YearlySeasonality     bool            `json:"yearly_seasonality"`
}

type prophetForecast struct {
	DS        string   `json:"ds"`
	YHat      *float64 `json:"yhat"`
	YHatLower *float64 `json:"yhat_lower"`
	YHatUpper *float64 `json:"yhat_upper"`
}

type prophetResponse struct {
	Forecast []prophetForecast `json:"forecast"`
}

func NewProphetClient(cfg config.ModelConfig, log *logrus.Logger) *ProphetClient {
	if log == nil {
		log = logrus.New()
	}
	minPoints := cfg.MinPoints
	if minPoints < 2 {
		minPoints = 2
	}
	return &ProphetClient{
		baseURL:   strings.TrimRight(cfg.ProphetURL, "/"),
		hc:        &http.Client{Timeout: cfg.Timeout},
		cb:        newCircuitBreaker(cfg.CircuitFailLimit, cfg.CircuitCooldown),
		minPoints: minPoints,
		log:       log,
	}
}

func (c *ProphetClient) Health(ctx context.Context) error {
	if c.cb.open() {
		return ErrCircuitOpen
	}
	return getStatus(ctx, c.hc, "prophet", c.baseURL+"/health")
}

func (c *ProphetClient) Fit(_ context.Context, series []forecast.Point, opts forecast.FitOptions) (forecast.Model, error) {
	if len(series) < c.minPoints {
		return nil, fmt.Errorf("%w: need at least %d points, have %d", forecast.ErrModelFit, c.minPoints, len(series))
	}
	for i := 1; i < len(series); i++ {
		if series[i].Year <= series[i-1].Year {
			return nil, fmt.Errorf("%w: series years not increasing at %d", forecast.ErrModelFit, series[i].Year)
		}
	}
	history := make([]forecast.Point, len(series))
	copy(history, series)
	return &prophetModel{client: c, history: history, opts: opts}, nil
}

type prophetModel struct {
	client  *ProphetClient
	history []forecast.Point
	opts    forecast.FitOptions
}

func (m *prophetModel) Predict(ctx context.Context, horizonYears int) ([]forecast.Prediction, error) {
	if horizonYears < 0 {
		return nil, fmt.Errorf("%w: negative horizon %d", forecast.ErrInvalidArgument, horizonYears)
	}
	first := m.history[0].Year
	last := m.history[len(m.history)-1].Year + horizonYears

	req := prophetRequest{
		History:               make([]prophetRow, len(m.history)),
		Future:                make([]prophetFuture, 0, last-first+1),
		IntervalWidth:         m.opts.Confidence,
		ChangepointPriorScale: m.opts.ChangepointPriorScale,
		YearlySeasonality:     m.opts.YearlySeasonality,
	}
	for i, p := range m.history {
		req.History[i] = prophetRow{DS: yearDS(p.Year), Y: p.Value}
	}
	for y := first; y <= last; y++ {
		req.Future = append(req.Future, prophetFuture{DS: yearDS(y)})
	}

	c := m.client
	if !c.cb.allow() {
		return nil, ErrCircuitOpen
	}
	var res prophetResponse
	if err := postJSON(ctx, c.hc, "prophet", c.baseURL+"/forecast", req, &res); err != nil {
		c.cb.fail()
		c.log.WithFields(logrus.Fields{"component": "prophet", "points": len(m.history)}).WithError(err).Warn("forecast call failed")
		return nil, err
	}
	c.cb.success()

	byYear := make(map[int]forecast.Prediction, len(res.Forecast))
	for _, row := range res.Forecast {
		year, ok := forecast.ParseYearLabel(row.DS)
		if !ok || year < first || year > last {
			continue
		}
		if _, dup := byYear[year]; dup {
			continue
		}
		p, err := toPrediction(year, row)
		if err != nil {
			return nil, err
		}
		byYear[year] = p
	}

	out := make([]forecast.Prediction, 0, last-first+1)
	for y := first; y <= last; y++ {
		p, ok := byYear[y]
		if !ok {
			return nil, fmt.Errorf("%w: reply missing year %d", forecast.ErrModelFit, y)
		}
		out = append(out, p)
	}
	return out, nil
}

func toPrediction(year int, row prophetForecast) (forecast.Prediction, error) {
	if row.YHat == nil || row.YHatLower == nil || row.YHatUpper == nil {
		return forecast.Prediction{}, fmt.Errorf("%w: incomplete row for %d", forecast.ErrModelFit, year)
	}
	for _, v := range []float64{*row.YHat, *row.YHatLower, *row.YHatUpper} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return forecast.Prediction{}, fmt.Errorf("%w: non-finite value for %d", forecast.ErrModelFit, year)
		}
	}
	return forecast.Prediction{Year: year, Mean: *row.YHat, Lower: *row.YHatLower, Upper: *row.YHatUpper}, nil
}

func yearDS(year int) string {
	return strconv.Itoa(year) + "-01-01"
}
