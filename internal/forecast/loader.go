package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// IndicatorRow is one year-labelled cell as reported by the statistics source.
type IndicatorRow struct {
	Label string
	Value *float64
}

type IndicatorSeries struct {
	Code        string
	CountryName string
	Rows        []IndicatorRow
}

type IndicatorSource interface {
	FetchIndicator(ctx context.Context, code, indicator string, fromYear, toYear int) (IndicatorSeries, error)
}

type Loader struct {
	source    IndicatorSource
	indicator string
	fromYear  int
	toYear    int
}

func NewLoader(source IndicatorSource, indicator string, fromYear, toYear int) *Loader {
	return &Loader{source: source, indicator: indicator, fromYear: fromYear, toYear: toYear}
}

func (l *Loader) Window() (int, int) {
	return l.fromYear, l.toYear
}

func (l *Loader) Load(ctx context.Context, code string) (HistoricalSeries, error) {
	raw, err := l.source.FetchIndicator(ctx, code, l.indicator, l.fromYear, l.toYear)
	if err != nil {
		return HistoricalSeries{}, fmt.Errorf("%w: %s %s: %w", ErrDataUnavailable, code, l.indicator, err)
	}
	points := CleanRows(raw.Rows, l.fromYear, l.toYear)
	if len(points) == 0 {
		return HistoricalSeries{}, fmt.Errorf("%w: %s %s: no usable rows in %d-%d",
			ErrDataUnavailable, code, l.indicator, l.fromYear, l.toYear)
	}

	name := strings.TrimSpace(raw.CountryName)
	if name == "" {
		name = code
	}
	return HistoricalSeries{Code: code, Name: name, Points: points}, nil
}

// CleanRows keeps finite, non-negative values inside [fromYear, toYear],
// first row per year, sorted by year.
func CleanRows(rows []IndicatorRow, fromYear, toYear int) []Point {
	seen := make(map[int]struct{}, len(rows))
	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		year, ok := ParseYearLabel(row.Label)
		if !ok || year < fromYear || year > toYear {
			continue
		}
		if row.Value == nil {
			continue
		}
		v := *row.Value
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		if _, dup := seen[year]; dup {
			continue
		}
		seen[year] = struct{}{}
		points = append(points, Point{Year: year, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })
	return points
}

// ParseYearLabel accepts "2023", "YR2023" and date-like "2023-01-01".
func ParseYearLabel(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	s = strings.TrimPrefix(s, "YR")
	if len(s) > 4 {
		if s[4] >= '0' && s[4] <= '9' {
			return 0, false
		}
		s = s[:4]
	}
	if len(s) != 4 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return year, true
}
