package orders

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"booksync/cmd/booksync/cmd/output"
	"booksync/cmd/booksync/cmd/types"
	"booksync/internal/domain/sync"
)

var (
	asDraft       bool
	submit        bool
	conflictCheck bool
	withRefunds   bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync <order-id> [order-id...]",
	Short: "Синхронизировать заказы с Zoho Books",
	Long: `Создает контакт и счет для заказа. Повторный запуск для уже
синхронизированного заказа ничего не создает.

Без --draft и --submit режим счета берется из триггеров статусов.
Несколько заказов обрабатываются последовательно с паузой между ними.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.RequireOrders(); err != nil {
			return err
		}

		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if len(ids) > 1 {
			res := app.Sync.BulkSync(ctx, ids)
			if printed, err := output.Result(res); printed || err != nil {
				return err
			}
			for _, r := range res.Results {
				printSync(r)
			}
			output.Field("total", res.Total)
			output.Field("succeeded", res.Succeeded)
			output.Field("failed", res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d из %d заказов не синхронизированы", res.Failed, res.Total)
			}
			return nil
		}

		o, err := app.Orders.GetOrder(ctx, ids[0])
		if err != nil {
			return fmt.Errorf("ошибка получения заказа %d: %w", ids[0], err)
		}

		draft := asDraft
		if !asDraft && !submit {
			cfg, err := app.Settings.Load(ctx)
			if err != nil {
				return err
			}
			draft = cfg.AsDraft(o.Status)
		}

		var res sync.SyncResult
		if conflictCheck {
			res = app.Sync.SyncWithConflictCheck(ctx, o, draft)
		} else {
			res = app.Sync.SyncOrder(ctx, o, draft)
		}

		var refunds []sync.RefundResult
		if res.Success && withRefunds {
			refunds = app.Sync.SyncNewRefunds(ctx, o)
		}

		if printed, err := output.Result(map[string]any{"sync": res, "refunds": refunds}); printed || err != nil {
			return err
		}
		printSync(res)
		for _, r := range refunds {
			if r.Success {
				output.Success("возврат %d: кредит-нота %s", r.LocalRefundID, r.CreditNoteID)
			} else {
				output.Fail("возврат %d: %s", r.LocalRefundID, r.Error)
			}
		}
		if !res.Success {
			return fmt.Errorf("заказ %d не синхронизирован", o.ID)
		}
		return nil
	},
}

func printSync(r sync.SyncResult) {
	if !r.Success {
		output.Fail("заказ %d: %s", r.OrderID, r.Error)
		return
	}
	output.Success("заказ %d: счет %s (%s)", r.OrderID, r.InvoiceID, r.Status)
	for _, w := range r.Warnings {
		output.Warn("%s", w)
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("неверный номер заказа %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func init() {
	SyncCmd.Flags().BoolVar(&asDraft, "draft", false, "создать счет черновиком")
	SyncCmd.Flags().BoolVar(&submit, "submit", false, "создать и отправить счет")
	SyncCmd.Flags().BoolVar(&conflictCheck, "conflict-check", false, "привязать существующий счет вместо создания")
	SyncCmd.Flags().BoolVar(&withRefunds, "refunds", false, "обработать возвраты заказа")
	SyncCmd.MarkFlagsMutuallyExclusive("draft", "submit")
}
