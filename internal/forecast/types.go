package forecast

import "sort"

// Point is a single observed or synthesized (year, value) pair.
type Point struct {
	Year  int
	Value float64
}

// HistoricalSeries is ordered by strictly increasing year.
type HistoricalSeries struct {
	Code   string
	Name   string
	Points []Point
}

func (s HistoricalSeries) Len() int {
	return len(s.Points)
}

func (s HistoricalSeries) First() Point {
	return s.Points[0]
}

func (s HistoricalSeries) Last() Point {
	return s.Points[len(s.Points)-1]
}

// TruthMap holds every year whose value overrides model output.
type TruthMap map[int]float64

func NewTruthMap(groups ...[]Point) TruthMap {
	size := 0
	for _, g := range groups {
		size += len(g)
	}
	truth := make(TruthMap, size)
	for _, g := range groups {
		for _, p := range g {
			truth[p.Year] = p.Value
		}
	}
	return truth
}

func (t TruthMap) Lookup(year int) (float64, bool) {
	v, ok := t[year]
	return v, ok
}

func (t TruthMap) Years() []int {
	years := make([]int, 0, len(t))
	for y := range t {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Prediction is one model output row.
type Prediction struct {
	Year  int
	Mean  float64
	Lower float64
	Upper float64
}
