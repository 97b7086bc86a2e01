package risk

import "time"

// Limits defines the pre-submission safety limits.
type Limits struct {
	MaxOrdersPerDay    int  `json:"maxOrdersPerDay"`
	MaxOpenPositions   int  `json:"maxOpenPositions"`
	AutoTradingEnabled bool `json:"autoTradingEnabled"`
	DryRun             bool `json:"dryRun"`
}

// Reason explains why the gate denied a submission.
type Reason uint8

const (
	_reason_beg Reason = iota
	ReasonNone
	ReasonDailyLimit
	ReasonPositionLimit
	ReasonTradingDisabled
	_reason_end
)

func (r Reason) IsAvailable() bool {
	return r > _reason_beg && r < _reason_end
}

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonDailyLimit:
		return "daily order limit reached"
	case ReasonPositionLimit:
		return "max open positions reached"
	case ReasonTradingDisabled:
		return "auto-trading disabled"
	default:
		return "unknown"
	}
}

// Decision is the gate's verdict for one submission attempt.
type Decision struct {
	Allowed       bool
	DryRun        bool
	Reason        Reason
	OrdersToday   int
	OpenPositions int
}

// Gate evaluates safety checks before every order submission. It is not
// safe for concurrent use; the owning gateway serializes calls.
type Gate struct {
	limits      Limits
	ordersToday int
	lastReset   time.Time
}

// NewGate creates a gate with the given limits and a fresh daily counter.
func NewGate(limits Limits) *Gate {
	return &Gate{limits: limits}
}

// Evaluate runs the checks in order: daily counter rollover, daily cap,
// open-position cap, global enable switch, and dry-run interception.
// Expected denials come back as a Decision, never as an error.
func (g *Gate) Evaluate(openPositions int, now time.Time) Decision {
	g.rollover(now)

	decision := Decision{
		Reason:        ReasonNone,
		OrdersToday:   g.ordersToday,
		OpenPositions: openPositions,
	}

	if g.limits.MaxOrdersPerDay > 0 && g.ordersToday >= g.limits.MaxOrdersPerDay {
		decision.Reason = ReasonDailyLimit
		return decision
	}
	if g.limits.MaxOpenPositions > 0 && openPositions >= g.limits.MaxOpenPositions {
		decision.Reason = ReasonPositionLimit
		return decision
	}
	if !g.limits.AutoTradingEnabled {
		decision.Reason = ReasonTradingDisabled
		return decision
	}

	decision.Allowed = true
	decision.DryRun = g.limits.DryRun
	return decision
}

// RecordSubmission counts an accepted submission toward the daily cap.
// Dry-run submissions count exactly like live ones.
func (g *Gate) RecordSubmission(now time.Time) {
	g.rollover(now)
	g.ordersToday++
}

// OrdersToday returns the current daily counter.
func (g *Gate) OrdersToday() int {
	return g.ordersToday
}

// rollover zeroes the daily counter when the local calendar date changed.
func (g *Gate) rollover(now time.Time) {
	y, m, d := now.Date()
	ly, lm, ld := g.lastReset.Date()
	if y != ly || m != lm || d != ld {
		g.ordersToday = 0
		g.lastReset = now
	}
}
