// Package extract implements the two-tier detail extraction chain: a DOM
// table pass, then an AI oracle fallback when the DOM pass recovered too few
// fields.
package extract

import "fmt"

// Strategy is the closed set of extraction behaviors. The fallback tier is
// selected once, here, rather than by string comparison at each call site.
type Strategy int

// Supported strategies.
const (
	// StrategyDOMOnly never calls the oracle.
	StrategyDOMOnly Strategy = iota
	// StrategyAIText sends the page's visible table text to the oracle.
	StrategyAIText
	// StrategyAIVision sends a full-page screenshot to the oracle.
	StrategyAIVision
)

// ParseStrategy maps a configuration string onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "dom_only":
		return StrategyDOMOnly, nil
	case "ai_text":
		return StrategyAIText, nil
	case "ai_vision":
		return StrategyAIVision, nil
	default:
		return StrategyDOMOnly, fmt.Errorf("unknown extraction strategy %q", s)
	}
}

// String returns the configuration form of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyAIText:
		return "ai_text"
	case StrategyAIVision:
		return "ai_vision"
	default:
		return "dom_only"
	}
}
