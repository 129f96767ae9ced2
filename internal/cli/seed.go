package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tesoreria/internal/backend"
	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
)

var (
	revenueCategories = []string{"payment", "advance", "installment", "receipt", "consulting"}
	expenseCategories = []string{"salary", "recurring", "monthly recurring", "project", "incentive", "reward", "travel"}
)

// SeedOptions sizes the demo data set.
type SeedOptions struct {
	Accounts     int
	Transactions int
	Projects     int
	Expenses     int
	Seed         int64
}

// SeedSummary counts what was created.
type SeedSummary struct {
	Accounts        int
	Transactions    int
	Projects        int
	Budgets         int
	Spends          int
	Expenses        int
	ProjectExpenses int
}

func newSeedCommand() *cobra.Command {
	opts := SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the ledger with demo data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, b, err := Bootstrap(cmd.Context(), applog.ComponentApp)
			if err != nil {
				return err
			}
			defer b.Close()

			sum, err := Seed(cmd.Context(), b, opts, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"seeded %d accounts, %d transactions, %d projects, %d budgets (%d spends), %d expenses, %d project expenses\n",
				sum.Accounts, sum.Transactions, sum.Projects, sum.Budgets, sum.Spends, sum.Expenses, sum.ProjectExpenses)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Accounts, "accounts", 3, "number of bank accounts")
	cmd.Flags().IntVar(&opts.Transactions, "transactions", 50, "number of ledger transactions")
	cmd.Flags().IntVar(&opts.Projects, "projects", 2, "number of projects, each with one budget")
	cmd.Flags().IntVar(&opts.Expenses, "expenses", 10, "number of operating expenses")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed; 0 picks one")

	return cmd
}

// Seed creates demo records through the services, so every invariant and
// event applies as it would for API traffic. Dates fall in the 90 days
// before now.
func Seed(ctx context.Context, b *backend.Backend, opts SeedOptions, now time.Time) (SeedSummary, error) {
	var sum SeedSummary
	if opts.Accounts < 1 && opts.Transactions > 0 {
		return sum, core.Validationf("transactions need at least one account")
	}
	f := gofakeit.New(opts.Seed)
	today := core.DateOf(now)
	from := today.AddDays(-90)

	methods := core.PaymentMethods()
	accountIDs := make([]int64, 0, opts.Accounts)
	for i := 0; i < opts.Accounts; i++ {
		acc, err := b.Accounts.CreateAccount(ctx, core.AccountInput{
			AccountName:   f.Company() + " Operating",
			BankName:      f.LastName() + " Bank",
			AccountNumber: f.Numerify("############"),
			IFSCCode:      f.LetterN(4) + "0" + f.Numerify("######"),
			BranchName:    f.City(),
			AccountType:   core.AccountType(f.RandomString([]string{"current", "savings", "business", "corporate"})),
		})
		if err != nil {
			return sum, fmt.Errorf("seed account: %w", err)
		}
		accountIDs = append(accountIDs, acc.ID)
		sum.Accounts++
	}

	for i := 0; i < opts.Transactions; i++ {
		accountID := accountIDs[f.Number(0, len(accountIDs)-1)]
		in := core.TransactionInput{
			Type:            core.Incoming,
			Category:        f.RandomString(revenueCategories),
			Amount:          fakeAmount(f, 50, 5000),
			TransactionDate: fakeDate(f, from, today),
			AccountID:       &accountID,
			Description:     f.Sentence(6),
			Status:          core.Status(f.RandomString([]string{"completed", "completed", "completed", "pending", "failed"})),
		}
		if f.Bool() {
			in.Type = core.Outgoing
			in.Category = f.RandomString(expenseCategories)
		}
		if _, err := b.Transactions.CreateTransaction(ctx, in); err != nil {
			return sum, fmt.Errorf("seed transaction: %w", err)
		}
		sum.Transactions++
	}

	for i := 0; i < opts.Projects; i++ {
		p, err := b.Projects.CreateProject(ctx, core.ProjectInput{
			Name:       f.AppName(),
			ClientName: f.Company(),
		})
		if err != nil {
			return sum, fmt.Errorf("seed project: %w", err)
		}
		sum.Projects++

		budget, err := b.Budgets.CreateBudget(ctx, core.BudgetInput{
			Name:       p.Name + " delivery",
			Category:   "project",
			Allocated:  fakeAmount(f, 10000, 50000),
			StartDate:  from,
			EndDate:    today.AddDays(90),
			ProjectIDs: []int64{p.ID},
		})
		if err != nil {
			return sum, fmt.Errorf("seed budget: %w", err)
		}
		sum.Budgets++

		for j := 0; j < 3; j++ {
			_, err := b.Budgets.SpendFromBudget(ctx, budget.ID, core.SpendInput{
				Amount:      fakeAmount(f, 100, 2000),
				Date:        fakeDate(f, from, today),
				Description: f.Sentence(4),
			})
			if err != nil {
				return sum, fmt.Errorf("seed spend: %w", err)
			}
			sum.Spends++
		}

		for _, category := range []core.ProjectExpenseCategory{core.ProjectHosting, core.ProjectDomain} {
			_, err := b.ProjectExpenses.CreateProjectExpense(ctx, core.ProjectExpenseInput{
				ProjectID:     p.ID,
				Name:          f.BuzzWord() + " " + string(category),
				Category:      category,
				Amount:        fakeAmount(f, 500, 5000),
				Vendor:        f.Company(),
				ExpenseDate:   fakeDate(f, from, today),
				PaymentMethod: string(methods[f.Number(0, len(methods)-1)]),
			})
			if err != nil {
				return sum, fmt.Errorf("seed project expense: %w", err)
			}
			sum.ProjectExpenses++
		}
	}

	for i := 0; i < opts.Expenses; i++ {
		_, err := b.Expenses.CreateExpense(ctx, core.ExpenseInput{
			Category:    f.RandomString(expenseCategories),
			Amount:      fakeAmount(f, 20, 3000),
			Date:        fakeDate(f, from, today),
			Description: f.Sentence(5),
			Vendor:      f.Company(),
			Employee:    f.Name(),
		})
		if err != nil {
			return sum, fmt.Errorf("seed expense: %w", err)
		}
		sum.Expenses++
	}

	return sum, nil
}

func fakeAmount(f *gofakeit.Faker, min, max float64) core.Money {
	m, err := core.MoneyFromDecimal(decimal.NewFromFloat(f.Price(min, max)))
	if err != nil || m.Cents <= 0 {
		return core.Cents(int64(min * 100))
	}
	return m
}

func fakeDate(f *gofakeit.Faker, from, to core.Date) core.Date {
	return core.DateOf(f.DateRange(from.Time, to.Time))
}
