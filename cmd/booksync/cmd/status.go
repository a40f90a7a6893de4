package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"booksync/cmd/booksync/cmd/output"
	"booksync/cmd/booksync/cmd/types"
	"booksync/internal/domain/credential"
)

type statusReport struct {
	Credentials credential.Status `json:"credentials"`
	Storage     string            `json:"storage"`
	Zoho        string            `json:"zoho"`
	Orders      string            `json:"orders"`
	RateLimit   rateStatus        `json:"rate_limit"`
}

type rateStatus struct {
	Limit          int  `json:"limit"`
	Available      bool `json:"available"`
	SecondsToReset int  `json:"seconds_to_reset"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние подключения и хранилища",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		report := statusReport{
			Credentials: app.Credentials.Status(ctx),
			Storage:     checkResult(app.Storage.Ping(ctx)),
			Orders:      checkResult(app.RequireOrders()),
			RateLimit: rateStatus{
				Limit:          app.Limiter.Limit(),
				Available:      app.Limiter.CanMakeRequest(ctx),
				SecondsToReset: app.Limiter.SecondsUntilReset(ctx),
			},
		}
		if report.Credentials.Configured {
			report.Zoho = checkResult(app.Books.Ping(ctx))
		} else {
			report.Zoho = "not configured"
		}

		if printed, err := output.Result(report); printed || err != nil {
			return err
		}
		printStatus(report)
		return nil
	},
}

func checkResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func printStatus(r statusReport) {
	c := r.Credentials
	switch {
	case !c.Configured:
		output.Fail("учетные данные Zoho не заданы: booksync auth set-credentials")
	case c.Degraded:
		output.Warn("учетные данные хранятся без шифрования (режим %s)", c.SecurityMode)
	default:
		output.Success("учетные данные Zoho сохранены (режим %s)", c.SecurityMode)
	}
	if c.TokenExpiresAt != nil {
		output.Field("token expires", c.TokenExpiresAt.Format(time.RFC3339))
	}

	line := func(name, result string) {
		if result == "ok" {
			output.Success("%s: ok", name)
		} else {
			output.Fail("%s: %s", name, result)
		}
	}
	line("хранилище", r.Storage)
	line("Zoho Books", r.Zoho)
	line("WooCommerce", r.Orders)

	output.Field("rate limit", r.RateLimit.Limit)
	output.Field("available", r.RateLimit.Available)
	output.Field("reset in (s)", r.RateLimit.SecondsToReset)
}
