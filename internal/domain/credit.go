/**
 * @description
 * This file defines the core domain models for the user-service.
 * It includes the User record read from the `users` table and the CreditDecision
 * value that is built for every credit lookup and returned to the caller.
 */
package domain

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUserNotFound is returned when no row exists for the requested user id.
var ErrUserNotFound = errors.New("user not found")

// DecisionStatus is the outcome of a credit check.
type DecisionStatus string

const (
	StatusApproved DecisionStatus = "approved"
	StatusDeclined DecisionStatus = "declined"
)

// Version tags reported in the `version` field of a decision.
const (
	EnhancedVersion    = "v2"
	EnhancedVersionTag = "v2-enhanced-db-check"
	StandardVersionTag = "v1-standard-db-check"
)

// User represents the subset of the `users` table this service reads.
type User struct {
	ID     int64           `json:"id"`
	Credit decimal.Decimal `json:"credit"`
}

// CreditDecision is built per request and never persisted.
type CreditDecision struct {
	UserID          int64
	Status          DecisionStatus
	RemainingCredit decimal.Decimal
	Version         string
}

// Classify approves strictly positive credit. Zero and negative balances are declined.
func Classify(credit decimal.Decimal) DecisionStatus {
	if credit.IsPositive() {
		return StatusApproved
	}
	return StatusDeclined
}

// VersionTag maps the process-wide service version to the tag reported to callers.
// Only the exact value "v2" selects the enhanced tag.
func VersionTag(serviceVersion string) string {
	if serviceVersion == EnhancedVersion {
		return EnhancedVersionTag
	}
	return StandardVersionTag
}

// NewCreditDecision classifies the credit of a user and stamps it with the version tag.
func NewCreditDecision(userID int64, credit decimal.Decimal, versionTag string) *CreditDecision {
	return &CreditDecision{
		UserID:          userID,
		Status:          Classify(credit),
		RemainingCredit: credit,
		Version:         versionTag,
	}
}

// CreditNumber renders a credit as a bare JSON number, keeping the scale stored in the
// database (150.00 stays 150.00).
func CreditNumber(credit decimal.Decimal) json.Number {
	if exp := credit.Exponent(); exp < 0 {
		return json.Number(credit.StringFixed(-exp))
	}
	return json.Number(credit.String())
}

// IsApproved reports whether the decision allows the caller to proceed.
func (d *CreditDecision) IsApproved() bool {
	return d.Status == StatusApproved
}
