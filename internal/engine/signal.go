package engine

import (
	"fmt"
	"time"

	"signal-advisor/internal/analysis"
)

// Signal lifecycle states.
const (
	StatusActive  = "active"
	StatusClosed  = "closed"
	StatusExpired = "expired"
)

// Strength tiers assigned by the decision gate.
const (
	StrengthStrong = "strong"
	StrengthMedium = "medium"
	StrengthWeak   = "weak"
)

// Signal is an emitted trade recommendation. Price levels are set at
// emission time and never recomputed.
type Signal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Interval   string    `json:"interval"`
	Direction  string    `json:"direction"`
	Strength   string    `json:"strength"`
	Confidence float64   `json:"confidence"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Reasons    []string  `json:"reasons"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSignalID derives the signal identifier from symbol and emission time.
func NewSignalID(symbol string, at time.Time) string {
	return fmt.Sprintf("%s_%s", symbol, at.UTC().Format("20060102_150405"))
}

// Outcome is the result of one decision cycle: either an emitted signal or
// the reason none was emitted. Evidence carries the analyzer opinions either
// way so callers can always explain the decision.
type Outcome struct {
	Signal   *Signal                             `json:"signal,omitempty"`
	Reason   string                              `json:"reason,omitempty"`
	Evidence map[string]analysis.PartialAnalysis `json:"evidence,omitempty"`
}

// Emitted reports whether the cycle produced a signal.
func (o Outcome) Emitted() bool {
	return o.Signal != nil
}
