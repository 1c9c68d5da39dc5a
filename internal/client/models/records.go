package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type AccountKind string

const (
	AccountChecking AccountKind = "checking"
	AccountSavings  AccountKind = "savings"
	AccountCash     AccountKind = "cash"
	AccountCard     AccountKind = "card"
)

type BudgetPeriod string

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

type Expense struct {
	ID          RecordID  `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency,omitempty"`
	CategoryID  string    `json:"category_id,omitempty"`
	AccountID   string    `json:"account_id,omitempty"`
	SpentAt     time.Time `json:"spent_at,omitzero"`
	ReceiptKey  string    `json:"receipt_key,omitempty"`
}

type Account struct {
	ID       RecordID    `json:"id"`
	Name     string      `json:"name"`
	Kind     AccountKind `json:"kind"`
	Balance  float64     `json:"balance"`
	Currency string      `json:"currency,omitempty"`
}

type Category struct {
	ID       RecordID `json:"id"`
	Name     string   `json:"name"`
	Color    string   `json:"color,omitempty"`
	ParentID string   `json:"parent_id,omitempty"`
}

type Budget struct {
	ID         RecordID     `json:"id"`
	CategoryID string       `json:"category_id"`
	Limit      float64      `json:"limit"`
	Period     BudgetPeriod `json:"period"`
}

type Goal struct {
	ID           RecordID  `json:"id"`
	Name         string    `json:"name"`
	TargetAmount float64   `json:"target_amount"`
	SavedAmount  float64   `json:"saved_amount"`
	Deadline     time.Time `json:"deadline,omitzero"`
}

var ErrIncorrectAssignment = errors.New("field must be name=value")

// ParseAssignments turns ["amount=42", "description=milk"] into a record
// payload. Values that parse as JSON keep their JSON type; anything else is
// taken as a string.
func ParseAssignments(in []string) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for _, item := range in {
		name, raw, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, ErrIncorrectAssignment
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[name] = v
	}
	return out, nil
}

// DecodeRecords converts a cached snapshot into typed records.
func DecodeRecords[T any](raw []map[string]any) ([]T, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToMap converts a typed record into a payload map.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
