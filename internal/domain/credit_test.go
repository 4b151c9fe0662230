package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		credit string
		want   DecisionStatus
	}{
		{credit: "150.00", want: StatusApproved},
		{credit: "0.01", want: StatusApproved},
		{credit: "0", want: StatusDeclined},
		{credit: "0.00", want: StatusDeclined},
		{credit: "-0.01", want: StatusDeclined},
		{credit: "-250", want: StatusDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.credit, func(t *testing.T) {
			got := Classify(decimal.RequireFromString(tt.credit))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionTag(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "enhanced", version: "v2", want: EnhancedVersionTag},
		{name: "default", version: "v1", want: StandardVersionTag},
		{name: "unset", version: "", want: StandardVersionTag},
		{name: "uppercase is not v2", version: "V2", want: StandardVersionTag},
		{name: "padded is not v2", version: " v2", want: StandardVersionTag},
		{name: "v3", version: "v3", want: StandardVersionTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VersionTag(tt.version))
		})
	}
}

func TestNewCreditDecision(t *testing.T) {
	d := NewCreditDecision(42, decimal.RequireFromString("150.00"), StandardVersionTag)

	assert.Equal(t, int64(42), d.UserID)
	assert.Equal(t, StatusApproved, d.Status)
	assert.True(t, d.IsApproved())
	assert.True(t, d.RemainingCredit.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, StandardVersionTag, d.Version)

	declined := NewCreditDecision(7, decimal.Zero, EnhancedVersionTag)
	assert.Equal(t, StatusDeclined, declined.Status)
	assert.False(t, declined.IsApproved())
}

func TestNewCreditCheckedEvent(t *testing.T) {
	d := NewCreditDecision(7, decimal.Zero, StandardVersionTag)
	checkedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("WAT", 3600))

	event := NewCreditCheckedEvent(d, checkedAt)

	require.NotEqual(t, uuid.Nil, event.EventID)
	assert.Equal(t, int64(7), event.UserID)
	assert.Equal(t, StatusDeclined, event.Status)
	assert.Equal(t, time.UTC, event.CheckedAt.Location())
	assert.True(t, event.CheckedAt.Equal(checkedAt))
	assert.Equal(t, "credit.checked.declined", event.RoutingKey())
}

func TestCreditNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "150.00", want: "150.00"},
		{input: "150", want: "150"},
		{input: "0", want: "0"},
		{input: "-0.50", want: "-0.50"},
		{input: "12.345", want: "12.345"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, string(CreditNumber(decimal.RequireFromString(tt.input))))
		})
	}
}

func TestCreditCheckedEvent_JSON(t *testing.T) {
	d := NewCreditDecision(42, decimal.RequireFromString("150.00"), EnhancedVersionTag)
	event := NewCreditCheckedEvent(d, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	body, err := json.Marshal(event)
	require.NoError(t, err)

	assert.Contains(t, string(body), `"remaining_credit":150.00,`)
	assert.JSONEq(t, `{
		"event_id": "`+event.EventID.String()+`",
		"user_id": 42,
		"status": "approved",
		"remaining_credit": 150.00,
		"version": "v2-enhanced-db-check",
		"checked_at": "2026-03-01T09:00:00Z"
	}`, string(body))
}
