package sync

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"booksync/internal/app/books"
	"booksync/internal/domain/order"
	"booksync/internal/domain/settings"
)

// itemResolver сопоставляет строки заказа товарам Zoho по SKU в рамках одной синхронизации
type itemResolver struct {
	books Books
	cfg   settings.Items
	cache map[string]string
}

func newItemResolver(b Books, cfg settings.Items) *itemResolver {
	return &itemResolver{books: b, cfg: cfg, cache: make(map[string]string)}
}

// Resolve item_id для строки, "" если сопоставление выключено или товар не найден
func (r *itemResolver) Resolve(ctx context.Context, line order.LineItem, rate decimal.Decimal) (string, error) {
	if !r.cfg.MatchBySKU || line.SKU == "" {
		return "", nil
	}
	if id, ok := r.cache[line.SKU]; ok {
		return id, nil
	}

	item, err := r.books.FindItemBySKU(ctx, line.SKU)
	if err != nil {
		return "", fmt.Errorf("find item %s: %w", line.SKU, err)
	}
	if item == nil && r.cfg.CreateMissing {
		item, err = r.books.CreateItem(ctx, books.Item{Name: line.Name, SKU: line.SKU, Rate: rate})
		if err != nil {
			return "", fmt.Errorf("create item %s: %w", line.SKU, err)
		}
	}

	id := ""
	if item != nil {
		id = item.ItemID
	}
	r.cache[line.SKU] = id
	return id, nil
}
