package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"booksync/cmd/booksync/cmd/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP API и фоновые задачи",
	Long: `Запускает HTTP API администратора, прием вебхуков WooCommerce,
периодический повтор неудачных синхронизаций и ежедневную сверку.

Останавливается по SIGINT или SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return app.Serve(ctx)
	},
}
