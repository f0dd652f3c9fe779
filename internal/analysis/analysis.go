package analysis

// Direction is an analyzer's directional opinion. The technical analyzer and
// predictor use only buy/sell/hold; the volume and volatility analyzers speak
// a richer alphabet that the combiner maps onto directional nudges and
// dampeners.
type Direction string

const (
	Buy     Direction = "buy"
	Sell    Direction = "sell"
	Hold    Direction = "hold"
	Confirm Direction = "confirm" // Volume confirms the prevailing move
	Caution Direction = "caution" // Elevated volatility, dampen both sides
	Prepare Direction = "prepare" // Compressed volatility, breakout setup
	Normal  Direction = "normal"  // Volatility in its usual range
)

// PartialAnalysis is one analyzer's opinion for a single decision cycle.
// Instances are produced fresh each cycle and never mutated after creation.
type PartialAnalysis struct {
	Direction  Direction          `json:"direction"`
	Confidence float64            `json:"confidence"`
	Reasons    []string           `json:"reasons"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// HoldAnalysis returns the neutral opinion, optionally tagged with a reason.
// Analyzers degrade to this instead of returning errors so that one failing
// analyzer never blocks the others from contributing.
func HoldAnalysis(reasons ...string) PartialAnalysis {
	return PartialAnalysis{Direction: Hold, Confidence: 0, Reasons: reasons}
}
