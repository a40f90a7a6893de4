package cmd

import (
	"booksync/cmd/booksync/cmd/auth"
	"booksync/cmd/booksync/cmd/orders"
	"booksync/cmd/booksync/cmd/reconcile"
	"booksync/cmd/booksync/cmd/retry"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.SetCredentialsCmd)
	auth.AuthCmd.AddCommand(auth.GrantCmd)

	rootCmd.AddCommand(orders.SyncCmd)
	rootCmd.AddCommand(retry.RetryCmd)

	rootCmd.AddCommand(reconcile.ReconcileCmd)
	reconcile.ReconcileCmd.AddCommand(reconcile.ListCmd)
}
