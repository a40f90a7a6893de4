package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"booksync/cmd/booksync/cmd/output"
	"booksync/cmd/booksync/cmd/types"
	"booksync/internal/domain/credential"
)

var (
	grantCode string
	region    string
)

var GrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Подключиться по grant code self-client",
	Long: `Обменивает одноразовый grant code на refresh token и сохраняет его.

Grant code создается в консоли Zoho API для self-client с доступом offline.`,
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
		code := prompt("Grant code", grantCode)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		res, err := app.Books.ExchangeGrantCode(ctx, id, secret, code, region)
		if err != nil {
			return fmt.Errorf("ошибка обмена grant code: %w", err)
		}
		if err := app.Credentials.SaveCredentials(ctx, id, secret, res.RefreshToken, credential.SaveOptions{SkipValidation: true}); err != nil {
			return err
		}
		if err := app.Credentials.SaveAccessToken(ctx, res.AccessToken, res.ExpiresIn); err != nil {
			output.Warn("токен доступа не сохранен: %v", err)
		}

		st := app.Credentials.Status(ctx)
		if printed, err := output.Result(st); printed || err != nil {
			return err
		}
		output.Success("подключено к Zoho Books")
		return nil
	},
}

func init() {
	GrantCmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client id")
	GrantCmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret")
	GrantCmd.Flags().StringVar(&grantCode, "code", "", "grant code")
	GrantCmd.Flags().StringVar(&region, "region", "", "регион Zoho (us, eu, in, au, jp, cn)")
}
