package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// BudgetStatus is the lifecycle state of a budget: pending -> active -> completed.
type BudgetStatus string

const (
	BudgetPending   BudgetStatus = "pending"
	BudgetActive    BudgetStatus = "active"
	BudgetCompleted BudgetStatus = "completed"
)

func (s BudgetStatus) Valid() bool {
	switch s {
	case BudgetPending, BudgetActive, BudgetCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether s may move to next. Staying put is allowed.
func (s BudgetStatus) CanTransitionTo(next BudgetStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case BudgetPending:
		return next == BudgetActive
	case BudgetActive:
		return next == BudgetCompleted
	}
	return false
}

// StartPolicy decides the initial status of a budget whose start date is in the future.
type StartPolicy string

const (
	StartPending StartPolicy = "pending"
	StartActive  StartPolicy = "active"
)

func (p StartPolicy) Valid() bool { return p == StartPending || p == StartActive }

// InitialStatus returns the status a new budget starting on start gets on day today.
func (p StartPolicy) InitialStatus(start, today Date) BudgetStatus {
	if p == StartPending && start.After(today.Time) {
		return BudgetPending
	}
	return BudgetActive
}

// Budget caps cumulative spend for a category over a date range.
type Budget struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Allocated   Money        `json:"allocated"`
	Spent       Money        `json:"spent"`
	StartDate   Date         `json:"startDate"`
	EndDate     Date         `json:"endDate"`
	Status      BudgetStatus `json:"status"`
	Description string       `json:"description"`
	ProjectIDs  []int64      `json:"projectIds"`
	Version     int64        `json:"version"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Remaining is always derived, never stored.
func (b Budget) Remaining() Money {
	return b.Allocated.Sub(b.Spent)
}

// MarshalJSON adds the derived remaining amount.
func (b Budget) MarshalJSON() ([]byte, error) {
	type plain Budget
	if b.ProjectIDs == nil {
		b.ProjectIDs = []int64{}
	}
	return json.Marshal(struct {
		plain
		Remaining Money `json:"remaining"`
	}{plain: plain(b), Remaining: b.Remaining()})
}

// BudgetInput is the writable part of a Budget. Spent is deliberately absent.
type BudgetInput struct {
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Allocated   Money        `json:"allocated"`
	StartDate   Date         `json:"startDate"`
	EndDate     Date         `json:"endDate"`
	Status      BudgetStatus `json:"status"`
	Description string       `json:"description"`
	ProjectIDs  []int64      `json:"projectIds"`
}

type BudgetFilter struct {
	Status BudgetStatus
	Search string
	PageRequest
}

// SpendInput describes one spend against a budget.
type SpendInput struct {
	Amount      Money  `json:"amount"`
	Date        Date   `json:"date"`
	Description string `json:"description"`
	// Override lets an operator push spent past allocated.
	Override bool `json:"override"`
}

// SpendResult is the budget after a spend and the ledger entry it produced.
type SpendResult struct {
	Budget      Budget      `json:"budget"`
	Transaction Transaction `json:"transaction"`
}

// Reconciliation reports a recomputation of spent from linked transactions.
type Reconciliation struct {
	BudgetID int64 `json:"budgetId"`
	Before   Money `json:"before"`
	After    Money `json:"after"`
	Changed  bool  `json:"changed"`
}

// Apply copies the input onto b. Status is only copied when provided.
func (in BudgetInput) Apply(b *Budget) {
	b.Name = strings.TrimSpace(in.Name)
	b.Category = strings.TrimSpace(in.Category)
	b.Allocated = in.Allocated
	b.StartDate = in.StartDate
	b.EndDate = in.EndDate
	b.Description = strings.TrimSpace(in.Description)
	if s := BudgetStatus(strings.ToLower(strings.TrimSpace(string(in.Status)))); s != "" {
		b.Status = s
	}
	b.ProjectIDs = dedupeIDs(in.ProjectIDs)
}

func (b Budget) Validate() error {
	if b.Name == "" {
		return Validationf("budget name is required")
	}
	if b.Category == "" {
		return ErrEmptyCategory
	}
	if err := b.Allocated.Validate(); err != nil {
		return Validationf("allocated must be greater than zero")
	}
	if b.StartDate.IsZero() {
		return Validationf("start date is required")
	}
	if b.EndDate.IsZero() {
		return Validationf("end date is required")
	}
	if b.EndDate.Before(b.StartDate.Time) {
		return Validationf("end date must not be before start date")
	}
	if b.Spent.Cents < 0 {
		return Validationf("spent must not be negative")
	}
	if !b.Status.Valid() {
		return Validationf("invalid budget status %q", b.Status)
	}
	return validateDescription(b.Description)
}

// CheckSpend validates amount against the remaining balance.
func (b Budget) CheckSpend(amount Money, override bool) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if b.Status != BudgetActive {
		return Validationf("budget %d is %s, only active budgets accept spends", b.ID, b.Status)
	}
	if !override && amount.Cents > b.Remaining().Cents {
		return InsufficientBudget(amount, b.Remaining())
	}
	return nil
}

// SpendNote is the default description of a budget spend.
func (b Budget) SpendNote() string {
	return fmt.Sprintf("Spent from budget: %s", b.Name)
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
