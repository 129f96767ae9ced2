package core

import (
	"strings"
	"time"
)

// Project mirrors the external project service's view of a project.
type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ClientName string    `json:"clientName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ProjectInput struct {
	Name       string `json:"name"`
	ClientName string `json:"clientName"`
}

// ProjectFilter narrows ListProjects; Search matches name or client.
type ProjectFilter struct {
	Search string
	PageRequest
}

func (in ProjectInput) Apply(p *Project) {
	p.Name = strings.TrimSpace(in.Name)
	p.ClientName = strings.TrimSpace(in.ClientName)
}

func (p Project) Validate() error {
	if p.Name == "" {
		return Validationf("project name is required")
	}
	return nil
}

// ProjectExpenseCategory is the fixed category set of project costs.
type ProjectExpenseCategory string

const (
	ProjectDomain  ProjectExpenseCategory = "domain"
	ProjectServer  ProjectExpenseCategory = "server"
	ProjectAPI     ProjectExpenseCategory = "api"
	ProjectHosting ProjectExpenseCategory = "hosting"
	ProjectSSL     ProjectExpenseCategory = "ssl"
	ProjectOther   ProjectExpenseCategory = "other"
)

func (c ProjectExpenseCategory) Valid() bool {
	switch c {
	case ProjectDomain, ProjectServer, ProjectAPI, ProjectHosting, ProjectSSL, ProjectOther:
		return true
	}
	return false
}

// PaymentMethod is how a project expense was paid.
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
	PaymentUPI          PaymentMethod = "UPI"
	PaymentCreditCard   PaymentMethod = "Credit Card"
	PaymentDebitCard    PaymentMethod = "Debit Card"
	PaymentCash         PaymentMethod = "Cash"
	PaymentCheque       PaymentMethod = "Cheque"
	PaymentOther        PaymentMethod = "Other"
)

var paymentMethods = []PaymentMethod{
	PaymentBankTransfer, PaymentUPI, PaymentCreditCard, PaymentDebitCard,
	PaymentCash, PaymentCheque, PaymentOther,
}

// PaymentMethods lists the accepted payment methods.
func PaymentMethods() []PaymentMethod {
	return append([]PaymentMethod(nil), paymentMethods...)
}

// ParsePaymentMethod matches case-insensitively; empty means Other.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PaymentOther, nil
	}
	for _, m := range paymentMethods {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", Validationf("invalid payment method %q", s)
}

// ProjectExpense is an outgoing payment booked against a project.
type ProjectExpense struct {
	ID            int64                  `json:"id"`
	ProjectID     int64                  `json:"projectId"`
	Name          string                 `json:"name"`
	Category      ProjectExpenseCategory `json:"category"`
	Amount        Money                  `json:"amount"`
	Vendor        string                 `json:"vendor"`
	PaymentMethod PaymentMethod          `json:"paymentMethod"`
	ExpenseDate   Date                   `json:"expenseDate"`
	Description   string                 `json:"description"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

type ProjectExpenseInput struct {
	ProjectID     int64                  `json:"projectId"`
	Name          string                 `json:"name"`
	Category      ProjectExpenseCategory `json:"category"`
	Amount        Money                  `json:"amount"`
	Vendor        string                 `json:"vendor"`
	PaymentMethod string                 `json:"paymentMethod"`
	ExpenseDate   Date                   `json:"expenseDate"`
	Description   string                 `json:"description"`
}

type ProjectExpenseFilter struct {
	ProjectID int64
	Category  ProjectExpenseCategory
	Search    string
	PageRequest
}

func (in ProjectExpenseInput) Apply(e *ProjectExpense) error {
	method, err := ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return err
	}
	e.ProjectID = in.ProjectID
	e.Name = strings.TrimSpace(in.Name)
	e.Category = ProjectExpenseCategory(strings.ToLower(strings.TrimSpace(string(in.Category))))
	e.Amount = in.Amount
	e.Vendor = strings.TrimSpace(in.Vendor)
	e.PaymentMethod = method
	e.ExpenseDate = in.ExpenseDate
	e.Description = strings.TrimSpace(in.Description)
	return nil
}

func (e ProjectExpense) Validate() error {
	if e.ProjectID <= 0 {
		return Validationf("project is required")
	}
	if e.Name == "" {
		return Validationf("name is required")
	}
	if e.Category == "" {
		return ErrEmptyCategory
	}
	if !e.Category.Valid() {
		return Validationf("invalid project expense category %q", e.Category)
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.ExpenseDate.Validate(); err != nil {
		return err
	}
	return validateDescription(e.Description)
}
