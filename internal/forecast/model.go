package forecast

import "context"

type FitOptions struct {
	// Confidence is the interval width, e.g. 0.80.
	Confidence            float64
	ChangepointPriorScale float64
	YearlySeasonality     bool
}

// Forecaster wraps an external trend/seasonality model.
type Forecaster interface {
	Fit(ctx context.Context, series []Point, opts FitOptions) (Model, error)
}

// Model returns one prediction per year from the first fitted year through
// the last fitted year plus horizonYears.
type Model interface {
	Predict(ctx context.Context, horizonYears int) ([]Prediction, error)
}
