package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	applog "tesoreria/internal/log"
	"tesoreria/internal/services"
)

func newReconcileCommand() *cobra.Command {
	var budgetID int64

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute budget spent from linked transactions",
		Long: "Recompute the spent amount of one budget, or of every budget after " +
			"activating pending budgets whose start date has arrived.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, b, err := Bootstrap(cmd.Context(), applog.ComponentReconciler)
			if err != nil {
				return err
			}
			defer b.Close()

			if budgetID > 0 {
				return reconcileOne(cmd.Context(), cmd.OutOrStdout(), b.Budgets, budgetID)
			}
			return reconcileAll(cmd.Context(), cmd.OutOrStdout(), b.Reconciler)
		},
	}

	cmd.Flags().Int64Var(&budgetID, "budget", 0, "reconcile only this budget id")

	return cmd
}

func reconcileOne(ctx context.Context, out io.Writer, budgets *services.BudgetService, id int64) error {
	rec, err := budgets.ReconcileBudget(ctx, id)
	if err != nil {
		return err
	}
	if !rec.Changed {
		fmt.Fprintf(out, "budget %d already reconciled (spent %s)\n", id, rec.After)
		return nil
	}
	fmt.Fprintf(out, "budget %d spent corrected: %s -> %s\n", id, rec.Before, rec.After)
	return nil
}

func reconcileAll(ctx context.Context, out io.Writer, r *services.Reconciler) error {
	res, err := r.Sweep(ctx)
	if err != nil {
		return err
	}
	for _, rec := range res.Reconciled {
		fmt.Fprintf(out, "budget %d spent corrected: %s -> %s\n", rec.BudgetID, rec.Before, rec.After)
	}
	fmt.Fprintf(out, "promoted %d, checked %d, corrected %d, failed %d\n",
		res.Promoted, res.Checked, res.Corrected, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d budgets could not be reconciled", res.Failed)
	}
	return nil
}
