package chat

import (
	"strings"

	"strategic-forecast/backend-go/internal/forecast"
)

type entry struct {
	keywords []string
	answer   string
}

// KnowledgeBase answers from a fixed keyword table. The first entry with a
// matching keyword wins.
type KnowledgeBase struct {
	entries  []entry
	fallback string
}

func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		entries: []entry{
			{
				keywords: []string{"prophet", "model", "seasonality"},
				answer: "Forecasts come from Prophet, an additive trend plus yearly seasonality model. " +
					"It is fitted on observed GDP plus the bridge years and returns a mean with a lower and upper bound for every year.",
			},
			{
				keywords: []string{"bridge", "cagr", "momentum", "anchor", "2024", "2025"},
				answer: "Official data lags by about two years, so two bridge years are synthesized after the last observation. " +
					"Momentum compounds the five-year CAGR forward; anchor lands on a reference value with a midpoint in between.",
			},
			{
				keywords: []string{"world bank", "source", "data"},
				answer: "Historical GDP is the World Bank indicator NY.GDP.MKTP.CD (current US$) from 1990 onward.",
			},
			{
				keywords: []string{"confidence", "interval", "band", "uncertainty", "upper", "lower"},
				answer: "The shaded band is the model's prediction interval, 80% by default. Observed and bridge years have no band.",
			},
			{
				keywords: []string{"consumption", "investment", "government", "export", "factor", "expenditure"},
				answer: "Expenditure factors are household consumption, fixed investment, government spending and net exports as a share of GDP. " +
					"Years after the latest published data are estimated from it with small random variation.",
			},
			{
				keywords: []string{"horizon", "how far", "long"},
				answer: "The default horizon is 25 years past the last observation; rows after the bridge years are marked as forecasts.",
			},
		},
		fallback: "I can explain the Prophet forecasting engine, the data bridge, the World Bank data source, " +
			"confidence bands and expenditure factors. What would you like to know?",
	}
}

// Answer reports whether a keyword matched; the fallback text is returned
// either way.
func (k *KnowledgeBase) Answer(message string) (string, bool) {
	msg := forecast.NormalizeName(message)
	for _, e := range k.entries {
		for _, kw := range e.keywords {
			if strings.Contains(msg, kw) {
				return e.answer, true
			}
		}
	}
	return k.fallback, false
}
