package forecast

import (
	"fmt"
	"math"
	"strings"
)

type BridgePolicy string

const (
	PolicyMomentum BridgePolicy = "momentum"
	PolicyAnchor   BridgePolicy = "anchor"
)

// BridgeYears is the number of synthesized years after the last observation.
const BridgeYears = 2

const DefaultAnchorMultiplier = 1.12

func ParsePolicy(s string) (BridgePolicy, error) {
	switch BridgePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyMomentum:
		return PolicyMomentum, nil
	case PolicyAnchor:
		return PolicyAnchor, nil
	default:
		return "", fmt.Errorf("%w: unknown bridge policy %q", ErrInvalidArgument, s)
	}
}

type BridgeConfig struct {
	Policy BridgePolicy
	// Lookback is the number of observations the momentum rate spans.
	Lookback int
	// Anchors maps ISO3 code to the reference-year value.
	Anchors           map[string]float64
	DefaultMultiplier float64
	// Damping > 0 replaces the midpoint with last*Damping for the intermediate year.
	Damping float64
}

type Bridge struct {
	Policy          BridgePolicy
	Points          []Point
	HorizonYear     int
	MomentumPercent float64
	Anchor          float64
}

func BuildBridge(series HistoricalSeries, cfg BridgeConfig) (Bridge, error) {
	if series.Len() == 0 {
		return Bridge{}, fmt.Errorf("%w: empty series", ErrDataUnavailable)
	}
	switch cfg.Policy {
	case PolicyMomentum:
		return momentumBridge(series, cfg.Lookback)
	case PolicyAnchor:
		return anchorBridge(series, cfg)
	default:
		return Bridge{}, fmt.Errorf("%w: unknown bridge policy %q", ErrInvalidArgument, cfg.Policy)
	}
}

// MomentumRate is the compound annual growth rate between the last point and
// the point lookback positions before it.
func MomentumRate(points []Point, lookback int) (float64, error) {
	if lookback < 1 {
		return 0, fmt.Errorf("%w: lookback must be positive, got %d", ErrInvalidArgument, lookback)
	}
	if len(points) < lookback+1 {
		return 0, fmt.Errorf("%w: momentum needs %d points, have %d", ErrDataUnavailable, lookback+1, len(points))
	}
	base := points[len(points)-1-lookback].Value
	last := points[len(points)-1].Value
	if base <= 0 || last <= 0 {
		return 0, fmt.Errorf("%w: non-positive value in momentum window", ErrDataUnavailable)
	}
	return math.Pow(last/base, 1/float64(lookback)) - 1, nil
}

func momentumBridge(series HistoricalSeries, lookback int) (Bridge, error) {
	rate, err := MomentumRate(series.Points, lookback)
	if err != nil {
		return Bridge{}, err
	}
	last := series.Last()
	points := make([]Point, 0, BridgeYears)
	value := last.Value
	for i := 1; i <= BridgeYears; i++ {
		value *= 1 + rate
		points = append(points, Point{Year: last.Year + i, Value: value})
	}
	return Bridge{
		Policy:          PolicyMomentum,
		Points:          points,
		HorizonYear:     last.Year + BridgeYears,
		MomentumPercent: Round2(rate * 100),
	}, nil
}

func anchorBridge(series HistoricalSeries, cfg BridgeConfig) (Bridge, error) {
	last := series.Last()
	if last.Value <= 0 {
		return Bridge{}, fmt.Errorf("%w: non-positive last observation for %s", ErrDataUnavailable, series.Code)
	}
	anchor, ok := cfg.Anchors[strings.ToUpper(series.Code)]
	if !ok || anchor <= 0 {
		mult := cfg.DefaultMultiplier
		if mult <= 0 {
			mult = DefaultAnchorMultiplier
		}
		anchor = last.Value * mult
	}

	rate := math.Pow(anchor/last.Value, 1/float64(BridgeYears)) - 1
	return Bridge{
		Policy: PolicyAnchor,
		Points: []Point{
			{Year: last.Year + 1, Value: IntermediateValue(last.Value, anchor, cfg.Damping)},
			{Year: last.Year + BridgeYears, Value: anchor},
		},
		HorizonYear:     last.Year + BridgeYears,
		MomentumPercent: Round2(rate * 100),
		Anchor:          anchor,
	}, nil
}

// IntermediateValue is the midpoint of last and anchor, or last*damping when
// damping is set.
func IntermediateValue(last, anchor, damping float64) float64 {
	if damping > 0 {
		return last * damping
	}
	return (last + anchor) / 2
}
