package core

import (
	"strings"
	"time"
)

// AccountType classifies a bank or cash account.
type AccountType string

const (
	AccountCurrent   AccountType = "current"
	AccountSavings   AccountType = "savings"
	AccountBusiness  AccountType = "business"
	AccountCorporate AccountType = "corporate"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountCurrent, AccountSavings, AccountBusiness, AccountCorporate:
		return true
	}
	return false
}

// Account is a bank/cash account incoming money settles into.
type Account struct {
	ID            int64       `json:"id"`
	AccountName   string      `json:"accountName"`
	BankName      string      `json:"bankName"`
	AccountNumber string      `json:"accountNumber"`
	IFSCCode      string      `json:"ifscCode"`
	BranchName    string      `json:"branchName"`
	AccountType   AccountType `json:"accountType"`
	IsActive      bool        `json:"isActive"`
	Description   string      `json:"description"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	LastUsed      *time.Time  `json:"lastUsed,omitempty"`
}

// AccountInput is the writable part of an Account. IsActive defaults to true.
type AccountInput struct {
	AccountName   string      `json:"accountName"`
	BankName      string      `json:"bankName"`
	AccountNumber string      `json:"accountNumber"`
	IFSCCode      string      `json:"ifscCode"`
	BranchName    string      `json:"branchName"`
	AccountType   AccountType `json:"accountType"`
	IsActive      *bool       `json:"isActive"`
	Description   string      `json:"description"`
}

// AccountFilter narrows ListAccounts. A nil IsActive matches every account.
type AccountFilter struct {
	IsActive *bool
	PageRequest
}

// Apply copies the input onto a, trimming text and filling defaults.
func (in AccountInput) Apply(a *Account) {
	a.AccountName = strings.TrimSpace(in.AccountName)
	a.BankName = strings.TrimSpace(in.BankName)
	a.AccountNumber = strings.TrimSpace(in.AccountNumber)
	a.IFSCCode = strings.ToUpper(strings.TrimSpace(in.IFSCCode))
	a.BranchName = strings.TrimSpace(in.BranchName)
	a.AccountType = AccountType(strings.ToLower(strings.TrimSpace(string(in.AccountType))))
	if a.AccountType == "" {
		a.AccountType = AccountCurrent
	}
	a.Description = strings.TrimSpace(in.Description)
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
}

func (a Account) Validate() error {
	if a.AccountName == "" {
		return Validationf("account name is required")
	}
	if a.BankName == "" {
		return Validationf("bank name is required")
	}
	if a.AccountNumber == "" {
		return Validationf("account number is required")
	}
	if a.IsActive && a.IFSCCode == "" {
		return Validationf("IFSC code is required for active accounts")
	}
	if !a.AccountType.Valid() {
		return Validationf("invalid account type %q", a.AccountType)
	}
	return validateDescription(a.Description)
}
