package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreditCheckedEvent is published after every successful credit decision.
type CreditCheckedEvent struct {
	EventID         uuid.UUID      `json:"event_id"`
	UserID          int64          `json:"user_id"`
	Status          DecisionStatus `json:"status"`
	RemainingCredit json.Number    `json:"remaining_credit"`
	Version         string         `json:"version"`
	CheckedAt       time.Time      `json:"checked_at"`
}

// NewCreditCheckedEvent builds the event describing a decision.
func NewCreditCheckedEvent(d *CreditDecision, checkedAt time.Time) CreditCheckedEvent {
	return CreditCheckedEvent{
		EventID:         uuid.New(),
		UserID:          d.UserID,
		Status:          d.Status,
		RemainingCredit: CreditNumber(d.RemainingCredit),
		Version:         d.Version,
		CheckedAt:       checkedAt.UTC(),
	}
}

// RoutingKey returns the topic routing key, e.g. "credit.checked.approved".
func (e CreditCheckedEvent) RoutingKey() string {
	return fmt.Sprintf("credit.checked.%s", e.Status)
}
