package reconcile

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"booksync/cmd/booksync/cmd/output"
	"booksync/cmd/booksync/cmd/types"
	"booksync/internal/domain/reconcile"
)

const dateLayout = "2006-01-02"

var (
	from  string
	to    string
	limit int
)

var ReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Сверить заказы и счета за период",
	Long: `Сравнивает заказы WooCommerce и счета Zoho Books за период
и сохраняет отчет о расхождениях. Удаленные данные не изменяются.

По умолчанию сверяются последние 7 дней.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.RequireOrders(); err != nil {
			return err
		}

		start, end, err := period(from, to, time.Now().UTC())
		if err != nil {
			return err
		}

		report, runErr := app.Reconcile.Run(cmd.Context(), start, end)
		if report == nil {
			return runErr
		}
		if printed, err := output.Result(report); printed || err != nil {
			return err
		}
		printReport(report)
		return runErr
	},
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "История отчетов сверки",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.RequireOrders(); err != nil {
			return err
		}

		reports, err := app.Reconcile.ListReports(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if printed, err := output.Result(reports); printed || err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("Отчеты не найдены")
			return nil
		}
		for _, r := range reports {
			fmt.Printf("%s  %s..%s  %-9s  расхождений: %d\n",
				r.ID, r.PeriodStart.Format(dateLayout), r.PeriodEnd.Format(dateLayout), r.Status, len(r.Discrepancies))
		}
		return nil
	},
}

// period разбирает --from/--to; конец периода включает весь день
func period(fromFlag, toFlag string, now time.Time) (time.Time, time.Time, error) {
	end := now
	if toFlag != "" {
		t, err := time.Parse(dateLayout, toFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("неверная дата --to: %w", err)
		}
		end = t.Add(24*time.Hour - time.Second)
	}

	start := end.Add(-7 * 24 * time.Hour)
	if fromFlag != "" {
		t, err := time.Parse(dateLayout, fromFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("неверная дата --from: %w", err)
		}
		start = t
	}
	return start, end, nil
}

func printReport(r *reconcile.Report) {
	switch r.Status {
	case reconcile.StatusCompleted:
		output.Success("сверка %s завершена", r.ID)
	default:
		output.Fail("сверка %s: %s %s", r.ID, r.Status, r.Error)
	}
	for key, value := range r.Summary {
		output.Field(key, value)
	}
	for _, d := range r.Discrepancies {
		output.Warn("%s: %s", d.Type, d.Message)
	}
}

func init() {
	ReconcileCmd.Flags().StringVar(&from, "from", "", "начало периода, YYYY-MM-DD")
	ReconcileCmd.Flags().StringVar(&to, "to", "", "конец периода, YYYY-MM-DD")
	ListCmd.Flags().IntVar(&limit, "limit", 20, "количество отчетов")
}
