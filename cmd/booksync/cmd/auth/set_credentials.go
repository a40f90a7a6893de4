package auth

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"booksync/cmd/booksync/cmd/output"
	"booksync/cmd/booksync/cmd/types"
	"booksync/internal/domain/credential"
)

var (
	clientID     string
	clientSecret string
	refreshToken string
	skipValidate bool
)

var SetCredentialsCmd = &cobra.Command{
	Use:   "set-credentials",
	Short: "Сохранить client id, client secret и refresh token",
	Long: `Сохраняет учетные данные Zoho в зашифрованном виде.

Перед сохранением выполняется пробный обмен refresh token,
отключить проверку можно флагом --skip-validation.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		id := prompt("Client ID", clientID)
		secret, err := promptSecret("Client secret", clientSecret)
		if err != nil {
			return err
		}
		refresh, err := promptSecret("Refresh token", refreshToken)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := app.Credentials.SaveCredentials(ctx, id, secret, refresh, credential.SaveOptions{SkipValidation: skipValidate}); err != nil {
			return err
		}

		st := app.Credentials.Status(ctx)
		if printed, err := output.Result(st); printed || err != nil {
			return err
		}
		output.Success("учетные данные сохранены")
		if st.Degraded {
			output.Warn("режим %s: данные только закодированы, не зашифрованы", st.SecurityMode)
		}
		return nil
	},
}

func init() {
	SetCredentialsCmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client id")
	SetCredentialsCmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret")
	SetCredentialsCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token")
	SetCredentialsCmd.Flags().BoolVar(&skipValidate, "skip-validation", false, "не проверять учетные данные")
}
