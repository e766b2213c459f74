// Package pricing derives payment-provider line items from a weekly
// cart, redistributing a possibly discounted final total across items
// in proportion to their share of the undiscounted total.
package pricing

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrNoItems = errors.New("no items to price")

const (
	// FreeOrderThreshold is the final total (major units) below which
	// proportional redistribution is skipped and a single nominal line
	// plus a 100%-off coupon is used instead. Near-zero per-item
	// amounts round too coarsely to be charged individually.
	FreeOrderThreshold = 0.5

	// NominalUnitAmount is the minor-unit price of the single line
	// emitted for free orders, fully cancelled by the coupon.
	NominalUnitAmount = 50

	freeOrderDescription = "Weekly meal order"
)

// Result is the outcome of a derivation run.
type Result struct {
	Items  []domain.LineItem
	Totals domain.CheckoutTotals

	// FreeOrder is set when the final total fell under
	// FreeOrderThreshold; the session builder must request a 100%-off
	// coupon for the single emitted line.
	FreeOrder bool

	// Adjustment is the minor-unit total moved across lines so that the
	// emitted items sum to the final total. Each line shifts by at most
	// one minor unit per unit of quantity and never at or below zero.
	// Zero when per-item rounding already matched.
	Adjustment int64

	// Residual is the minor-unit discrepancy left when the rounding
	// remainder could not be absorbed within the per-line bounds.
	Residual int64
}

type flatItem struct {
	dayIndex int
	item     domain.CartItem
	subtotal decimal.Decimal
}

// Derive flattens all day carts in day order, computes each item's
// contribution to the undiscounted total and emits one line item per
// cart item priced so the items sum to finalTotal in minor units.
//
// finalTotal is the user-visible amount to charge, already reduced by
// any discount. It must satisfy 0 <= finalTotal <= original total.
func Derive(days map[int]*domain.DayCart, finalTotal float64, currency string) (*Result, error) {
	if finalTotal < 0 {
		return nil, fmt.Errorf("%w: final total %v is negative", domain.ErrValidation, finalTotal)
	}

	flat, originalTotal, totalQty, err := flatten(days)
	if err != nil {
		return nil, err
	}
	if len(flat) == 0 {
		return nil, ErrNoItems
	}

	// Money has cent precision; rounding here keeps float noise in the
	// caller's arithmetic out of the comparisons below.
	final := decimal.NewFromFloat(finalTotal).Round(2)

	result := &Result{
		Totals: domain.CheckoutTotals{
			OriginalTotal: originalTotal.InexactFloat64(),
			FinalTotal:    finalTotal,
			TotalQuantity: totalQty,
			Currency:      currency,
		},
	}

	if finalTotal < FreeOrderThreshold {
		result.FreeOrder = true
		result.Items = []domain.LineItem{nominalLine(totalQty)}
		return result, nil
	}

	if originalTotal.IsZero() {
		// All prices are zero but a positive final total was requested:
		// proportional redistribution is undefined, charge the whole
		// amount as one flat line.
		result.Items = []domain.LineItem{flatLine(final, totalQty)}
		return result, nil
	}

	if final.GreaterThan(originalTotal) {
		return nil, fmt.Errorf("%w: final total %v exceeds original total %v",
			domain.ErrValidation, finalTotal, originalTotal)
	}

	result.Items = distribute(flat, final, originalTotal)
	result.Adjustment, result.Residual = reconcile(result.Items, flat, final)
	return result, nil
}

// OriginalTotal computes the undiscounted cart total in major units,
// validating items the same way Derive does.
func OriginalTotal(days map[int]*domain.DayCart) (float64, error) {
	_, total, _, err := flatten(days)
	if err != nil {
		return 0, err
	}
	return total.InexactFloat64(), nil
}

func flatten(days map[int]*domain.DayCart) ([]flatItem, decimal.Decimal, int32, error) {
	var (
		flat     []flatItem
		total    = decimal.Zero
		totalQty int32
	)

	for dayIndex := 0; dayIndex < domain.DayCount; dayIndex++ {
		day, ok := days[dayIndex]
		if !ok || day == nil || len(day.Items) == 0 {
			continue // empty days are omitted from line-item generation
		}
		for _, item := range day.Items {
			if item.Quantity <= 0 {
				return nil, decimal.Zero, 0, fmt.Errorf("%w: product %s has non-positive quantity %d",
					domain.ErrValidation, item.ProductID, item.Quantity)
			}
			if item.OriginalPrice < 0 || item.OfferedPrice < 0 {
				return nil, decimal.Zero, 0, fmt.Errorf("%w: product %s has a negative price",
					domain.ErrValidation, item.ProductID)
			}

			subtotal := decimal.NewFromFloat(item.EffectivePrice()).
				Mul(decimal.NewFromInt32(item.Quantity))
			flat = append(flat, flatItem{dayIndex: dayIndex, item: item, subtotal: subtotal})
			total = total.Add(subtotal)
			totalQty += item.Quantity
		}
	}

	return flat, total, totalQty, nil
}

func distribute(flat []flatItem, final, originalTotal decimal.Decimal) []domain.LineItem {
	hundred := decimal.NewFromInt(100)
	items := make([]domain.LineItem, 0, len(flat))

	for _, f := range flat {
		qty := decimal.NewFromInt32(f.item.Quantity)

		// unit = finalTotal * (subtotal / originalTotal) / quantity,
		// rounded half-up to minor units.
		unitMinor := final.Mul(f.subtotal).
			Div(originalTotal).
			Div(qty).
			Mul(hundred).
			Round(0).
			IntPart()

		items = append(items, domain.LineItem{
			ProductName: f.item.Name,
			Description: fmt.Sprintf("Delivery day %d", f.dayIndex),
			UnitAmount:  unitMinor,
			Quantity:    f.item.Quantity,
			Metadata: map[string]string{
				"product_id":     f.item.ProductID,
				"original_price": strconv.FormatFloat(f.item.OriginalPrice, 'f', 2, 64),
				"quantity":       strconv.FormatInt(int64(f.item.Quantity), 10),
				"day_index":      strconv.Itoa(f.dayIndex),
			},
		})
	}

	return items
}

// reconcile absorbs the remainder left by independent per-item rounding
// so the emitted lines sum as close to the final total as unit pricing
// allows. Lines take the hit in largest-contribution order, each moving
// by at most one minor unit per unit of quantity and never at or below
// zero; whatever the bounds leave unabsorbed is reported as residual.
func reconcile(items []domain.LineItem, flat []flatItem, final decimal.Decimal) (adjustment, residual int64) {
	target := final.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	var sum int64
	for _, it := range items {
		sum += it.UnitAmount * int64(it.Quantity)
	}

	diff := target - sum
	if diff == 0 {
		return 0, 0
	}

	step := int64(1)
	if diff < 0 {
		step = -1
	}

	// A one-step unit change moves the line's total by its quantity, so
	// a line can only absorb while |diff| still covers its quantity.
	for _, idx := range contributionOrder(flat) {
		if diff == 0 {
			break
		}
		qty := int64(items[idx].Quantity)
		if qty > step*diff {
			continue
		}
		if items[idx].UnitAmount+step <= 0 {
			continue
		}
		items[idx].UnitAmount += step
		adjustment += step * qty
		diff -= step * qty
	}

	return adjustment, diff
}

func contributionOrder(flat []flatItem) []int {
	order := make([]int, len(flat))
	for i := range order {
		order[i] = i
	}
	// Insertion sort by descending subtotal; carts are small.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && flat[order[j]].subtotal.GreaterThan(flat[order[j-1]].subtotal); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

func nominalLine(totalQty int32) domain.LineItem {
	return domain.LineItem{
		ProductName: freeOrderDescription,
		Description: fmt.Sprintf("%d meals, fully covered by discount", totalQty),
		UnitAmount:  NominalUnitAmount,
		Quantity:    1,
		Metadata:    map[string]string{"free_order": "true"},
	}
}

func flatLine(final decimal.Decimal, totalQty int32) domain.LineItem {
	return domain.LineItem{
		ProductName: freeOrderDescription,
		Description: fmt.Sprintf("%d meals", totalQty),
		UnitAmount:  final.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Quantity:    1,
		Metadata:    map[string]string{"flat_order": "true"},
	}
}
