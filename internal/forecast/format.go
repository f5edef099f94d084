package forecast

import (
	"sort"
	"strconv"

	"strategic-forecast/backend-go/internal/models"
)

// Format overlays truth on the model output. Years in truth collapse to a
// point; everything is clamped at zero and rounded to cents.
func Format(predictions []Prediction, truth TruthMap, anchorHorizonYear int) []models.ForecastRow {
	sorted := make([]Prediction, len(predictions))
	copy(sorted, predictions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	rows := make([]models.ForecastRow, 0, len(sorted))
	for i, p := range sorted {
		if i > 0 && sorted[i-1].Year == p.Year {
			continue
		}
		mean, lower, upper := p.Mean, p.Lower, p.Upper
		if v, ok := truth.Lookup(p.Year); ok {
			mean, lower, upper = v, v, v
		}
		mean, lower, upper = clampZero(mean), clampZero(lower), clampZero(upper)
		if lower > mean {
			lower = mean
		}
		if upper < mean {
			upper = mean
		}
		rows = append(rows, models.ForecastRow{
			Date:       strconv.Itoa(p.Year),
			Year:       p.Year,
			GDP:        Round2(mean),
			Lower:      Round2(lower),
			Upper:      Round2(upper),
			IsForecast: p.Year > anchorHorizonYear,
		})
	}
	return rows
}
