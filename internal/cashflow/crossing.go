package cashflow

import "time"

// CrossingAction is what the runway monitor should do after a check.
type CrossingAction string

// Crossing actions.
const (
	ActionNone          CrossingAction = "none"
	ActionRaiseBreach   CrossingAction = "raise_breach"
	ActionRaiseRecovery CrossingAction = "raise_recovery"
)

// CrossingState is the last known threshold state, derived from alert history.
type CrossingState struct {
	When         time.Time
	CrossedBelow bool
}

// CrossingHistory carries the de-duplication facts the caller looked up in
// persisted alert history before asking for a decision.
type CrossingHistory struct {
	// BreachRaisedToday is true when a breach alert already exists for today.
	BreachRaisedToday bool
	// RecoveryRaisedSinceBreach is true when a recovery was already raised
	// after the last breach.
	RecoveryRaisedSinceBreach bool
}

// ClassifyCrossing decides whether a runway check should raise a breach, a
// recovery, or nothing. It is a pure decision; persisting and notifying is
// left to the caller.
//
// An infinite runway never raises. Runway from ComputeRunway is either 0 or
// infinite, so recovery is only reached by finite runways above the threshold.
func ClassifyCrossing(current Runway, thresholdMonths int, last *CrossingState, history CrossingHistory) CrossingAction {
	if current.IsInfinite() {
		return ActionNone
	}

	if current.AtOrBelow(thresholdMonths) {
		if history.BreachRaisedToday {
			return ActionNone
		}
		return ActionRaiseBreach
	}

	if last != nil && last.CrossedBelow && !history.RecoveryRaisedSinceBreach {
		return ActionRaiseRecovery
	}
	return ActionNone
}
