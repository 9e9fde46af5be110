package model

import (
	"encoding/json"
	"strings"
)

// FinanceType is INCOME or EXPENSE.
type FinanceType string

const (
	Income  FinanceType = "INCOME"
	Expense FinanceType = "EXPENSE"
)

// ParseFinanceType normalizes s case-insensitively. Unknown values return "".
func ParseFinanceType(s string) FinanceType {
	switch FinanceType(strings.ToUpper(strings.TrimSpace(s))) {
	case Income:
		return Income
	case Expense:
		return Expense
	default:
		return ""
	}
}

// EntryStatus tells manually entered rows from bank-receipt rows.
type EntryStatus string

const (
	StatusManual EntryStatus = "MANUAL"
	StatusSynced EntryStatus = "SYNCED"
)

// FinanceTransaction is a personal-finance ledger row, owned by the finance backend.
type FinanceTransaction struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	Type          string          `json:"type"`
	Category      string          `json:"category"`
	Projected     *Number         `json:"projected,omitempty"`
	Actual        *Number         `json:"actual,omitempty"`
	Amount        *Number         `json:"amount,omitempty"`
	Description   string          `json:"description"`
	Source        string          `json:"source"`
	Status        EntryStatus     `json:"status,omitempty"`
	BankingDetail json.RawMessage `json:"bankingDetail,omitempty"`
}

// When returns the raw date string.
func (t FinanceTransaction) When() string { return t.Date }

// Kind returns the normalized type.
func (t FinanceTransaction) Kind() FinanceType { return ParseFinanceType(t.Type) }

// EffectiveAmount is actual when present, otherwise the legacy amount field.
func (t FinanceTransaction) EffectiveAmount() float64 {
	if t.Actual != nil {
		return t.Actual.Float()
	}
	if t.Amount != nil {
		return t.Amount.Float()
	}
	return 0
}

// PlannedAmount is projected when present, otherwise 0.
func (t FinanceTransaction) PlannedAmount() float64 {
	if t.Projected != nil {
		return t.Projected.Float()
	}
	return 0
}

// FinanceEntry is the addManualTransaction payload.
type FinanceEntry struct {
	Amount      float64     `json:"amount"`
	Projected   float64     `json:"projected,omitempty"`
	Type        FinanceType `json:"type"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Source      string      `json:"source"`
	Date        string      `json:"date,omitempty"`
}

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// FinanceSummary is the getFinanceSummary reply.
type FinanceSummary struct {
	MonthlyIncome  Number `json:"monthlyIncome"`
	MonthlyExpense Number `json:"monthlyExpense"`
	Balance        Number `json:"balance"`
	Categories     []struct {
		Name   string `json:"name"`
		Amount Number `json:"amount"`
	} `json:"categories"`
}

// GmailStatus is the checkGmailConnection reply.
type GmailStatus struct {
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
}
