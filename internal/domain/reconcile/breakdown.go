package reconcile

import (
	"github.com/shopspring/decimal"

	"booksync/internal/app/books"
	"booksync/internal/domain/order"
)

// Breakdown раскладывает разницу итогов по составляющим:
// total = subtotal + shipping - discount + tax + adjustment.
// Residual добавляется, когда составляющие не покрывают разницу целиком,
// так что сумма Difference всегда равна local.Total - remote.Total.
func Breakdown(o *order.Order, inv *books.Invoice, tolerance decimal.Decimal) []Component {
	components := []Component{
		component("subtotal", o.ItemsSubtotal().Add(o.FeesTotal()), inv.SubTotal, false, tolerance),
		component("shipping", o.ShippingTotal, inv.ShippingCharge, false, tolerance),
		component("discount", o.DiscountTotal, inv.Discount, true, tolerance),
		component("tax", o.TotalTax, inv.TaxTotal, false, tolerance),
		component("adjustment", decimal.Zero, inv.Adjustment, false, tolerance),
	}

	sum := decimal.Zero
	for _, c := range components {
		sum = sum.Add(c.Difference)
	}
	if residual := o.Total.Sub(inv.Total).Sub(sum); !residual.IsZero() {
		components = append(components, Component{
			Name:       "residual",
			Difference: residual,
			Mismatch:   residual.Abs().GreaterThan(tolerance),
		})
	}
	return components
}

// component вычитаемые составляющие (скидка) входят в разницу с обратным знаком
func component(name string, local, remote decimal.Decimal, subtractive bool, tolerance decimal.Decimal) Component {
	diff := local.Sub(remote)
	if subtractive {
		diff = diff.Neg()
	}
	return Component{
		Name:       name,
		Local:      local,
		Remote:     remote,
		Difference: diff,
		Mismatch:   diff.Abs().GreaterThan(tolerance),
	}
}
