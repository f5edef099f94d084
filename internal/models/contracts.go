package models

type ForecastRow struct {
	Date       string  `json:"date"`
	Year       int     `json:"year"`
	GDP        float64 `json:"gdp"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	IsForecast bool    `json:"isForecast"`
}

type ForecastResponse struct {
	Data         []ForecastRow `json:"data"`
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	Growth       float64       `json:"growth"`
	BridgePolicy string        `json:"bridgePolicy"`
	AnchorYear   int           `json:"anchorYear"`
}

const (
	FactorSourceObserved  = "observed"
	FactorSourceEstimated = "estimated"
	FactorSourceFallback  = "fallback"
)

type ExpenditureFactors struct {
	Consumption float64 `json:"consumption"`
	Investment  float64 `json:"investment"`
	Government  float64 `json:"government"`
	Exports     float64 `json:"exports"`
	Year        int     `json:"year"`
	DataYear    int     `json:"dataYear,omitempty"`
	Source      string  `json:"source"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}

type DepStatus struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HealthResponse struct {
	Ok          bool                 `json:"ok"`
	TsISO       string               `json:"tsISO"`
	Service     string               `json:"service"`
	Version     string               `json:"version"`
	Deps        []string             `json:"deps"`
	DepsStatus  map[string]DepStatus `json:"deps_status"`
	DataMissing []string             `json:"data_missing"`
	Features    map[string]bool      `json:"features"`
}
