package core

import (
	"strings"
	"time"
)

// TransactionType is the direction of a money movement.
type TransactionType string

const (
	Incoming TransactionType = "incoming"
	Outgoing TransactionType = "outgoing"
)

func (t TransactionType) Valid() bool {
	return t == Incoming || t == Outgoing
}

// Transaction is an entry of the ledger.
type Transaction struct {
	ID              int64           `json:"id"`
	Type            TransactionType `json:"type"`
	Category        string          `json:"category"`
	Amount          Money           `json:"amount"`
	TransactionDate Date            `json:"transactionDate"`
	AccountID       *int64          `json:"accountId,omitempty"`
	Description     string          `json:"description"`
	Status          Status          `json:"status"`
	BudgetID        *int64          `json:"budgetId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// TransactionInput is the writable part of a Transaction.
type TransactionInput struct {
	Type            TransactionType `json:"type"`
	Category        string          `json:"category"`
	Amount          Money           `json:"amount"`
	TransactionDate Date            `json:"transactionDate"`
	AccountID       *int64          `json:"accountId"`
	Description     string          `json:"description"`
	Status          Status          `json:"status"`
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	Type   TransactionType
	Status Status
	Search string
	PageRequest
}

// Apply copies the input onto t. Outgoing transactions never keep an account.
func (in TransactionInput) Apply(t *Transaction) {
	t.Type = TransactionType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	t.Category = strings.TrimSpace(in.Category)
	t.Amount = in.Amount
	t.TransactionDate = in.TransactionDate
	t.Description = strings.TrimSpace(in.Description)
	t.Status = Status(strings.ToLower(strings.TrimSpace(string(in.Status))))
	if t.Status == "" {
		t.Status = StatusCompleted
	}
	t.AccountID = in.AccountID
	if t.Type == Outgoing {
		t.AccountID = nil
	}
}

// Validate checks the record-local invariants. Account resolution happens in
// the service because it needs storage.
func (t Transaction) Validate() error {
	if t.Category == "" {
		return ErrEmptyCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.TransactionDate.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return Validationf("invalid transaction type %q", t.Type)
	}
	if t.Type == Incoming && t.AccountID == nil {
		return Validationf("account is required for incoming transactions")
	}
	if !t.Status.Valid() {
		return Validationf("invalid status %q", t.Status)
	}
	return validateDescription(t.Description)
}
