package domain

import (
	"fmt"
	"strings"
)

// Strategy names a basket selection policy.
type Strategy string

const (
	StrategyCheapest    Strategy = "cheapest"
	StrategyBestQuality Strategy = "best-quality"
	StrategyBalanced    Strategy = "balanced"
)

// PreferenceAll asks for no particular highlight; all strategies are always computed.
const PreferenceAll = "all"

// Strategies lists every strategy in the order options are composed.
var Strategies = []Strategy{StrategyCheapest, StrategyBestQuality, StrategyBalanced}

// ParsePreference maps a caller preference onto the strategy to highlight.
// Empty and "all" resolve to balanced.
func ParsePreference(preference string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(preference)) {
	case "", PreferenceAll:
		return StrategyBalanced, nil
	case string(StrategyCheapest):
		return StrategyCheapest, nil
	case string(StrategyBestQuality), "best_quality", "bestquality":
		return StrategyBestQuality, nil
	case string(StrategyBalanced):
		return StrategyBalanced, nil
	}
	return "", fmt.Errorf("%w: unknown preference %q", ErrInvalidRequest, preference)
}
