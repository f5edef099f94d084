package forecast

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

type fakeSearcher struct {
	codes map[string]string
	err   error
	calls int
}

func (f *fakeSearcher) SearchCountry(_ context.Context, name string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	code, ok := f.codes[name]
	if !ok {
		return "", errors.New("no match")
	}
	return code, nil
}

// fakeSource serves rows keyed by "CODE|INDICATOR".
type fakeSource struct {
	mu     sync.Mutex
	series map[string]IndicatorSeries
	errs   map[string]error
	calls  []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{series: map[string]IndicatorSeries{}, errs: map[string]error{}}
}

func (f *fakeSource) put(code, indicator, name string, rows ...IndicatorRow) {
	f.series[code+"|"+indicator] = IndicatorSeries{Code: code, CountryName: name, Rows: rows}
}

func (f *fakeSource) FetchIndicator(_ context.Context, code, indicator string, fromYear, toYear int) (IndicatorSeries, error) {
	key := code + "|" + indicator
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%s:%d-%d", key, fromYear, toYear))
	f.mu.Unlock()
	if err, ok := f.errs[key]; ok {
		return IndicatorSeries{}, err
	}
	s, ok := f.series[key]
	if !ok {
		return IndicatorSeries{}, errors.New("no records")
	}
	return s, nil
}

func row(year int, v float64) IndicatorRow {
	return IndicatorRow{Label: strconv.Itoa(year), Value: &v}
}

func nullRow(year int) IndicatorRow {
	return IndicatorRow{Label: strconv.Itoa(year)}
}

// gdpRows grows 3% a year from base starting at fromYear.
func gdpRows(fromYear, toYear int, base float64) []IndicatorRow {
	rows := make([]IndicatorRow, 0, toYear-fromYear+1)
	v := base
	for y := fromYear; y <= toYear; y++ {
		rows = append(rows, row(y, v))
		v *= 1.03
	}
	return rows
}

type fakeForecaster struct {
	fitErr     error
	predictErr error
	skipYear   int
	negative   bool

	fitted []Point
	opts   FitOptions
}

func (f *fakeForecaster) Fit(_ context.Context, series []Point, opts FitOptions) (Model, error) {
	if f.fitErr != nil {
		return nil, f.fitErr
	}
	f.fitted = append([]Point(nil), series...)
	f.opts = opts
	return &fakeModel{f: f, series: f.fitted}, nil
}

type fakeModel struct {
	f      *fakeForecaster
	series []Point
}

// Predict perturbs in-sample years so truth override is observable.
func (m *fakeModel) Predict(_ context.Context, horizonYears int) ([]Prediction, error) {
	if m.f.predictErr != nil {
		return nil, m.f.predictErr
	}
	first := m.series[0].Year
	last := m.series[len(m.series)-1]
	out := make([]Prediction, 0, len(m.series)+horizonYears)
	for y := first; y <= last.Year+horizonYears; y++ {
		if y == m.f.skipYear {
			continue
		}
		var mean float64
		if idx := y - first; idx < len(m.series) {
			mean = m.series[idx].Value * 1.07
		} else {
			mean = last.Value * (1 + 0.04*float64(y-last.Year))
		}
		lower, upper := mean*0.9, mean*1.1
		if m.f.negative {
			lower = -mean
		}
		out = append(out, Prediction{Year: y, Mean: mean, Lower: lower, Upper: upper})
	}
	return out, nil
}
