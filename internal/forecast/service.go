package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"strategic-forecast/backend-go/internal/models"
)

type ServiceConfig struct {
	DefaultHorizon        int
	MaxHorizon            int
	DefaultConfidence     float64
	ChangepointPriorScale float64
	YearlySeasonality     bool
	Bridge                BridgeConfig
}

type Request struct {
	Country    string
	Horizon    int
	Confidence float64
}

// Service runs resolve, load, bridge, fit/predict and format per call. Nothing is
// shared between calls.
type Service struct {
	resolver *Resolver
	loader   *Loader
	model    Forecaster
	cfg      ServiceConfig
	log      *logrus.Logger
}

func NewService(resolver *Resolver, loader *Loader, model Forecaster, cfg ServiceConfig, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{resolver: resolver, loader: loader, model: model, cfg: cfg, log: log}
}

func (s *Service) Policy() BridgePolicy {
	return s.cfg.Bridge.Policy
}

func (s *Service) Resolve(ctx context.Context, name string) (string, error) {
	return s.resolver.Resolve(ctx, name)
}

func (s *Service) GetForecast(ctx context.Context, req Request) (models.ForecastResponse, error) {
	horizon, confidence, err := s.normalize(req)
	if err != nil {
		return models.ForecastResponse{}, err
	}
	start := time.Now()
	fields := logrus.Fields{"component": "forecast", "country": req.Country, "policy": s.cfg.Bridge.Policy}

	code, err := s.resolver.Resolve(ctx, req.Country)
	if err != nil {
		return models.ForecastResponse{}, err
	}
	fields["code"] = code

	series, err := s.loader.Load(ctx, code)
	if err != nil {
		return models.ForecastResponse{}, err
	}

	bridge, err := BuildBridge(series, s.cfg.Bridge)
	if err != nil {
		return models.ForecastResponse{}, err
	}
	truth := NewTruthMap(series.Points, bridge.Points)

	combined := make([]Point, 0, series.Len()+len(bridge.Points))
	combined = append(combined, series.Points...)
	combined = append(combined, bridge.Points...)

	lastYear := series.Last().Year + horizon
	if lastYear < bridge.HorizonYear {
		lastYear = bridge.HorizonYear
	}
	preds, err := s.predict(ctx, combined, confidence, lastYear-bridge.HorizonYear)
	if err != nil {
		return models.ForecastResponse{}, err
	}
	if err := checkCoverage(preds, series.First().Year, lastYear); err != nil {
		return models.ForecastResponse{}, err
	}

	rows := Format(within(preds, series.First().Year, lastYear), truth, bridge.HorizonYear)
	fields["rows"] = len(rows)
	fields["growth"] = bridge.MomentumPercent
	fields["elapsed_ms"] = time.Since(start).Milliseconds()
	s.log.WithFields(fields).Info("forecast composed")

	return models.ForecastResponse{
		Data:         rows,
		Code:         code,
		Name:         series.Name,
		Growth:       bridge.MomentumPercent,
		BridgePolicy: string(bridge.Policy),
		AnchorYear:   bridge.HorizonYear,
	}, nil
}

func (s *Service) normalize(req Request) (int, float64, error) {
	horizon := req.Horizon
	if horizon == 0 {
		horizon = s.cfg.DefaultHorizon
	}
	if horizon < 1 || (s.cfg.MaxHorizon > 0 && horizon > s.cfg.MaxHorizon) {
		return 0, 0, fmt.Errorf("%w: horizon must be between 1 and %d, got %d", ErrInvalidArgument, s.cfg.MaxHorizon, horizon)
	}
	confidence := req.Confidence
	if confidence == 0 {
		confidence = s.cfg.DefaultConfidence
	}
	if !(confidence > 0 && confidence < 1) {
		return 0, 0, fmt.Errorf("%w: confidence must be in (0,1), got %v", ErrInvalidArgument, confidence)
	}
	return horizon, confidence, nil
}

func (s *Service) predict(ctx context.Context, combined []Point, confidence float64, horizon int) ([]Prediction, error) {
	m, err := s.model.Fit(ctx, combined, FitOptions{
		Confidence:            confidence,
		ChangepointPriorScale: s.cfg.ChangepointPriorScale,
		YearlySeasonality:     s.cfg.YearlySeasonality,
	})
	if err != nil {
		return nil, wrapModelErr("fit", err)
	}
	preds, err := m.Predict(ctx, horizon)
	if err != nil {
		return nil, wrapModelErr("predict", err)
	}
	return preds, nil
}

func wrapModelErr(stage string, err error) error {
	if errors.Is(err, ErrModelFit) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrModelFit, stage, err)
}

func within(preds []Prediction, from, to int) []Prediction {
	out := make([]Prediction, 0, len(preds))
	for _, p := range preds {
		if p.Year >= from && p.Year <= to {
			out = append(out, p)
		}
	}
	return out
}

func checkCoverage(preds []Prediction, from, to int) error {
	have := make(map[int]struct{}, len(preds))
	for _, p := range preds {
		have[p.Year] = struct{}{}
	}
	for y := from; y <= to; y++ {
		if _, ok := have[y]; !ok {
			return fmt.Errorf("%w: prediction missing year %d", ErrModelFit, y)
		}
	}
	return nil
}
