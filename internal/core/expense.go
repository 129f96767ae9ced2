package core

import (
	"strings"
	"time"
)

// Expense is an operational outgoing payment not tied to an account.
type Expense struct {
	ID          int64      `json:"id"`
	Category    string     `json:"category"`
	Amount      Money      `json:"amount"`
	Date        Date       `json:"date"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Vendor      string     `json:"vendor,omitempty"`
	Employee    string     `json:"employee,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ExpenseInput is the writable part of an Expense.
type ExpenseInput struct {
	Category    string `json:"category"`
	Amount      Money  `json:"amount"`
	Date        Date   `json:"date"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	Vendor      string `json:"vendor"`
	Employee    string `json:"employee"`
}

// ExpenseFilter narrows ListExpenses.
type ExpenseFilter struct {
	Status   Status
	Category string
	Search   string
	PageRequest
}

func (in ExpenseInput) Apply(e *Expense) {
	e.Category = strings.TrimSpace(in.Category)
	e.Amount = in.Amount
	e.Date = in.Date
	e.Description = strings.TrimSpace(in.Description)
	e.Status = Status(strings.ToLower(strings.TrimSpace(string(in.Status))))
	if e.Status == "" {
		e.Status = StatusPending
	}
	e.Vendor = strings.TrimSpace(in.Vendor)
	e.Employee = strings.TrimSpace(in.Employee)
}

func (e Expense) Validate() error {
	if e.Category == "" {
		return ErrEmptyCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Status.Valid() {
		return Validationf("invalid status %q", e.Status)
	}
	return validateDescription(e.Description)
}
