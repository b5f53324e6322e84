package reach

import (
	"fmt"

	"github.com/shopspring/decimal"

	"reachpay/internal/currency"
)

// Names of the synthetic balancing lines. Distinct from any real charge or
// coupon name so they are recognizable in the processor's order view.
const (
	balancingChargeName   = "Balancing Charge"
	balancingDiscountName = "Balancing Discount"
)

func itemsPayload(intent OrderIntent) []payloadItem {
	items := make([]payloadItem, 0, len(intent.Items))
	for _, it := range intent.Items {
		items = append(items, payloadItem{
			Description:   it.Description,
			ConsumerPrice: intent.amount(it.UnitPrice),
			Quantity:      it.Quantity,
			Sku:           it.SKU,
		})
	}
	return items
}

// chargesPayload renders the order charges, appending the balancing charge
// when an offset is present. Nil is returned for an empty set so the payload
// carries an explicit null.
func chargesPayload(intent OrderIntent, extra *decimal.Decimal) []payloadLine {
	var lines []payloadLine
	for _, ch := range intent.Charges {
		lines = append(lines, payloadLine{
			Name:          ch.Name,
			ConsumerPrice: intent.amount(ch.Amount),
		})
	}
	if extra != nil {
		lines = append(lines, payloadLine{
			Name:          balancingChargeName,
			ConsumerPrice: currency.NewAmount(*extra, intent.Currency),
		})
	}
	return lines
}

func discountsPayload(intent OrderIntent, extra *decimal.Decimal) []payloadLine {
	var lines []payloadLine
	for _, d := range intent.Discounts {
		lines = append(lines, payloadLine{
			Name:          d.Name,
			ConsumerPrice: intent.amount(d.Amount),
		})
	}
	if extra != nil {
		lines = append(lines, payloadLine{
			Name:          balancingDiscountName,
			ConsumerPrice: currency.NewAmount(*extra, intent.Currency),
		})
	}
	return lines
}

func shippingPayload(intent OrderIntent) payloadShipping {
	return payloadShipping{
		ConsumerPrice: intent.amount(intent.ShippingPrice),
		ConsumerTaxes: intent.amount(intent.ShippingTax),
		ConsumerDuty:  currency.NewAmount(decimal.Zero, intent.Currency),
	}
}

// SummedTotal replicates the processor's own total computation: every item,
// charge, discount and shipping component is converted and rounded
// independently, then summed. Re-running the same per-line conversions must
// reproduce the result exactly; a single conversion of the grand total does
// not.
func SummedTotal(intent OrderIntent) currency.Amount {
	total := decimal.Zero
	for _, it := range intent.Items {
		price := intent.convert(it.UnitPrice)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	for _, ch := range intent.Charges {
		total = total.Add(intent.convert(ch.Amount))
	}
	for _, d := range intent.Discounts {
		total = total.Sub(intent.convert(d.Amount))
	}
	total = total.Add(intent.convert(intent.ShippingPrice))
	total = total.Add(intent.convert(intent.ShippingTax))
	return currency.NewAmount(total, intent.Currency)
}

// Offset is the balancing delta that forces the line-item-summed total to
// equal the converted grand total. At most one side is set.
type Offset struct {
	ExtraCharge   *decimal.Decimal
	ExtraDiscount *decimal.Decimal
}

// SignedValue is the offset applied with its sign: positive for a charge,
// negative for a discount, zero when balanced.
func (o Offset) SignedValue() decimal.Decimal {
	switch {
	case o.ExtraCharge != nil:
		return *o.ExtraCharge
	case o.ExtraDiscount != nil:
		return o.ExtraDiscount.Neg()
	default:
		return decimal.Zero
	}
}

// ComputeOffset compares the summed total against the converted grand total
// and emits the balancing charge or discount needed to reconcile them.
func ComputeOffset(intent OrderIntent) Offset {
	summed := SummedTotal(intent).Decimal()
	converted := intent.convert(intent.Total)
	diff := currency.Round(converted.Sub(summed).Abs(), intent.Currency)

	switch currency.Compare(converted, summed) {
	case 1:
		return Offset{ExtraCharge: &diff}
	case -1:
		return Offset{ExtraDiscount: &diff}
	default:
		return Offset{}
	}
}

// RefundPlan records how a refund amount was computed. Computed fresh per
// attempt from a mandatory prior query, never cached.
type RefundPlan struct {
	Requested       decimal.Decimal // requested amount, base currency
	RemainingAfter  decimal.Decimal // local refundable balance after this refund
	RemoteTotal     decimal.Decimal // consumer total reported by /query
	PriorRefunds    decimal.Decimal // sum of prior refund amounts from /query
	RemoteRemaining decimal.Decimal // remote balance before this refund
	Final           currency.Amount // amount actually submitted
}

// PlanRefund computes the safe final refund amount. Partial refunds submit the
// converted requested amount unchanged. A refund that exhausts the local
// balance must drive the remote balance to exactly zero: rounding drift within
// the currency tolerance is absorbed into this refund; anything larger aborts,
// since conversion error compounding across partial refunds could otherwise
// silently over- or under-refund.
func PlanRefund(intent OrderIntent, amount decimal.Decimal, q *QueryResponse) (RefundPlan, error) {
	converted := intent.convert(amount)
	plan := RefundPlan{
		Requested:      amount,
		RemainingAfter: intent.RemainingRefundable,
		Final:          currency.NewAmount(converted, intent.Currency),
	}

	if intent.RemainingRefundable.IsPositive() {
		// Partial refund, no adjustment.
		return plan, nil
	}

	prior := decimal.Zero
	for _, r := range q.Refunds {
		prior = prior.Add(r.ConsumerAmount)
	}
	plan.RemoteTotal = q.ConsumerTotal
	plan.PriorRefunds = prior
	plan.RemoteRemaining = currency.Round(q.ConsumerTotal.Sub(prior), intent.Currency)

	drift := currency.Round(plan.RemoteRemaining.Sub(converted), intent.Currency)
	tolerance := currency.Tolerance(intent.Currency)

	if currency.Compare(drift.Abs(), tolerance) <= 0 {
		plan.Final = currency.NewAmount(plan.RemoteRemaining, intent.Currency)
		return plan, nil
	}

	return plan, fmt.Errorf("refund aborted: amount after refund %s exceeds allowed drift %s",
		drift.String(), tolerance.String())
}
