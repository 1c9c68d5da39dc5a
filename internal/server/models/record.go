// Package models defines server-side data models persisted in the database.
package models

import "time"

// Collection names a kind of finance record.
type Collection string

const (
	Expenses   Collection = "expenses"
	Accounts   Collection = "accounts"
	Categories Collection = "categories"
	Budgets    Collection = "budgets"
	Goals      Collection = "goals"
)

// Record is one stored finance record. Data holds the validated payload
// without the id.
type Record struct {
	ID         string
	UserID     string
	Collection Collection
	Data       map[string]any
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Fields returns Data with the id merged in, the shape sent to clients.
func (r *Record) Fields() map[string]any {
	out := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		out[k] = v
	}
	out["id"] = r.ID
	return out
}

// Payload types describe what each collection accepts. Unknown fields are
// dropped when a payload is normalized.

type Expense struct {
	Description string     `json:"description" validate:"required,max=200"`
	Amount      float64    `json:"amount" validate:"gt=0"`
	Currency    string     `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	CategoryID  string     `json:"category_id,omitempty"`
	AccountID   string     `json:"account_id,omitempty"`
	SpentAt     *time.Time `json:"spent_at,omitempty"`
	ReceiptKey  string     `json:"receipt_key,omitempty"`
}

type Account struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Kind     string  `json:"kind" validate:"required,oneof=checking savings cash card"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

type Category struct {
	Name     string `json:"name" validate:"required,max=100"`
	Color    string `json:"color,omitempty" validate:"omitempty,max=32"`
	ParentID string `json:"parent_id,omitempty"`
}

type Budget struct {
	CategoryID string  `json:"category_id" validate:"required"`
	Limit      float64 `json:"limit" validate:"gt=0"`
	Period     string  `json:"period" validate:"required,oneof=weekly monthly yearly"`
}

type Goal struct {
	Name         string     `json:"name" validate:"required,max=100"`
	TargetAmount float64    `json:"target_amount" validate:"gt=0"`
	SavedAmount  float64    `json:"saved_amount" validate:"gte=0"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// NewPayload returns a pointer to an empty payload of c, or nil for an
// unknown collection.
func NewPayload(c Collection) any {
	switch c {
	case Expenses:
		return &Expense{}
	case Accounts:
		return &Account{}
	case Categories:
		return &Category{}
	case Budgets:
		return &Budget{}
	case Goals:
		return &Goal{}
	default:
		return nil
	}
}
