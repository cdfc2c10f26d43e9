package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertType identifies a family of alerts for de-duplication.
type AlertType string

// Alert types raised by the monitor.
const (
	AlertContractEnding  AlertType = "contract_ending"
	AlertContractExpired AlertType = "contract_expired"
	AlertRunwayBreach    AlertType = "runway_breach"
	AlertRunwayRecovery  AlertType = "runway_recovery"
	AlertExpenseChange   AlertType = "expense_change"
	AlertContractChange  AlertType = "contract_change"
	AlertManual          AlertType = "manual"
)

// AlertRecord is a persisted record that an alert was raised.
type AlertRecord struct {
	OccurredAt time.Time
	Payload    map[string]any
	AlertType  AlertType
	AlertKey   string
	ID         int64
	UserID     int64
}

// PayloadString returns the payload value for key formatted as a string.
// Values round-tripped through JSON lose their Go type, so comparisons are
// done on the string form.
func (a *AlertRecord) PayloadString(key string) (string, bool) {
	v, ok := a.Payload[key]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

// PayloadBool returns the payload value for key as a bool.
func (a *AlertRecord) PayloadBool(key string) bool {
	v, ok := a.Payload[key].(bool)
	return ok && v
}

// BusinessEvent is what gets persisted after an occurrence is classified.
type BusinessEvent struct {
	OccurredAt  time.Time
	Amount      *decimal.Decimal
	Metadata    map[string]any
	Type        OccurrenceType
	Category    EventCategory
	Tier        Tier
	Title       string
	Description string
	SourceID    string
	UserID      int64
	ID          uuid.UUID
}

// NewBusinessEvent builds the event value object for a classified occurrence.
func NewBusinessEvent(userID int64, occ BusinessOccurrence, result SignificanceResult, title string, occurredAt time.Time) BusinessEvent {
	metadata := make(map[string]any, len(occ.PriorState)+2)
	for k, v := range occ.PriorState {
		metadata[k] = v
	}
	if occ.DaysUntilEvent != nil {
		metadata["days_until_event"] = *occ.DaysUntilEvent
	}
	if occ.ChangePercent != nil {
		metadata["change_percent"] = occ.ChangePercent.StringFixed(2)
	}

	return BusinessEvent{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       occ.Type,
		Category:   result.Category,
		Tier:       result.Tier,
		Title:      title,
		Amount:     occ.MonetaryValue,
		Metadata:   metadata,
		OccurredAt: occurredAt,
	}
}

// StatusTransition describes a contract status change the caller should persist.
type StatusTransition struct {
	From         ContractStatus
	To           ContractStatus
	Reason       string
	ObligationID int64
}
