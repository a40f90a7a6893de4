package retry

import (
	"github.com/spf13/cobra"

	"booksync/cmd/booksync/cmd/output"
	"booksync/cmd/booksync/cmd/types"
)

var RetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Повторить неудачные синхронизации",
	Long: `Один прогон пакета повторов по текущей политике: выбирает заказы
в статусе failed, для которых наступило время следующей попытки.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.RequireOrders(); err != nil {
			return err
		}

		stats, err := app.Retry.Run(cmd.Context())
		if err != nil {
			return err
		}
		if printed, err := output.Result(stats); printed || err != nil {
			return err
		}
		output.Success("обработано %d, успешно %d, ошибок %d, пропущено %d",
			stats.Processed, stats.Succeeded, stats.Failed, stats.Skipped)
		return nil
	},
}
