package model

// EventCategory groups business events for display and routing.
type EventCategory string

// Event categories.
const (
	CategoryFinancial EventCategory = "financial"
	CategoryMarket    EventCategory = "market"
	CategoryAdvisory  EventCategory = "advisory"
	CategoryMilestone EventCategory = "milestone"
)

// Tier is the severity of a business event.
type Tier string

// Significance tiers, lowest first.
const (
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

// Rank orders tiers so callers can compare severities. Unknown tiers rank 0.
func (t Tier) Rank() int {
	switch t {
	case TierLow:
		return 1
	case TierMedium:
		return 2
	case TierHigh:
		return 3
	case TierCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether t is as severe as other.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// SignificanceResult is the output of the significance classifier.
type SignificanceResult struct {
	Category EventCategory
	Tier     Tier
}
