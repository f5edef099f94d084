package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"strategic-forecast/backend-go/internal/models"
)

// Rand is the randomness used to jitter estimates past the cutoff year.
type Rand interface {
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe PCG source. A zero seed is time-based.
func NewRand(seed uint64) Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

type FactorIndicators struct {
	Consumption string
	Investment  string
	Government  string
	Exports     string
}

func (f FactorIndicators) list() [4]string {
	return [4]string{f.Consumption, f.Investment, f.Government, f.Exports}
}

type FactorConfig struct {
	CutoffYear int
	Jitter     float64
	Indicators FactorIndicators
	Fallback   models.ExpenditureFactors
}

type FactorEstimator struct {
	source IndicatorSource
	cfg    FactorConfig
	rng    Rand
	log    *logrus.Logger
}

func NewFactorEstimator(source IndicatorSource, cfg FactorConfig, rng Rand, log *logrus.Logger) *FactorEstimator {
	if rng == nil {
		rng = NewRand(0)
	}
	if log == nil {
		log = logrus.New()
	}
	return &FactorEstimator{source: source, cfg: cfg, rng: rng, log: log}
}

// Estimate never fails: a source error yields the configured fallback tuple
// tagged with source "fallback".
func (e *FactorEstimator) Estimate(ctx context.Context, code string, year int) models.ExpenditureFactors {
	code = strings.ToUpper(strings.TrimSpace(code))
	searchYear := year
	if searchYear > e.cfg.CutoffYear {
		searchYear = e.cfg.CutoffYear
	}
	fields := logrus.Fields{"component": "factors", "code": code, "year": year, "data_year": searchYear}

	values, err := e.fetch(ctx, code, searchYear)
	if err != nil {
		fields["fallback"] = true
		e.log.WithFields(fields).WithError(err).Warn("expenditure factors unavailable, serving fallback")
		out := e.cfg.Fallback
		out.Consumption = Round2(out.Consumption)
		out.Investment = Round2(out.Investment)
		out.Government = Round2(out.Government)
		out.Exports = Round2(out.Exports)
		out.Year = year
		out.DataYear = 0
		out.Source = models.FactorSourceFallback
		return out
	}

	source := models.FactorSourceObserved
	if year > e.cfg.CutoffYear {
		source = models.FactorSourceEstimated
		for i := range values {
			values[i] += e.jitter()
		}
	}
	fields["source"] = source
	e.log.WithFields(fields).Debug("expenditure factors served")

	return models.ExpenditureFactors{
		Consumption: Round2(values[0]),
		Investment:  Round2(values[1]),
		Government:  Round2(values[2]),
		Exports:     Round2(values[3]),
		Year:        year,
		DataYear:    searchYear,
		Source:      source,
	}
}

func (e *FactorEstimator) jitter() float64 {
	return (e.rng.Float64()*2 - 1) * e.cfg.Jitter
}

func (e *FactorEstimator) fetch(ctx context.Context, code string, year int) ([4]float64, error) {
	var out [4]float64
	if len(code) != 3 {
		return out, fmt.Errorf("invalid country code %q", code)
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, indicator := range e.cfg.Indicators.list() {
		g.Go(func() error {
			series, err := e.source.FetchIndicator(gctx, code, indicator, year, year)
			if err != nil {
				return fmt.Errorf("%s: %w", indicator, err)
			}
			v, ok := valueForYear(series.Rows, year)
			if !ok {
				return fmt.Errorf("%s: no value for %d", indicator, year)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// valueForYear accepts negative values; net exports can be below zero.
func valueForYear(rows []IndicatorRow, year int) (float64, bool) {
	for _, row := range rows {
		y, ok := ParseYearLabel(row.Label)
		if !ok || y != year || row.Value == nil {
			continue
		}
		v := *row.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		return v, true
	}
	return 0, false
}
