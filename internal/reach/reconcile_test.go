package reach

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func baseIntent(t *testing.T) OrderIntent {
	return OrderIntent{
		OrderRef: "1001",
		Currency: "USD",
		BaseRate: dec(t, "1"),
		UserRate: dec(t, "1"),
		Items: []LineItem{
			{Description: "Widget", UnitPrice: dec(t, "33.33"), Quantity: 3, SKU: "W-1"},
		},
		Charges:       []Line{{Name: "Handling", Amount: dec(t, "5.00")}},
		Discounts:     []Line{{Name: "Coupon", Amount: dec(t, "2.50")}},
		ShippingPrice: dec(t, "4.99"),
		ShippingTax:   dec(t, "0.50"),
	}
}

func TestSummedTotal(t *testing.T) {
	intent := baseIntent(t)

	// 3*33.33 + 5.00 - 2.50 + 4.99 + 0.50
	total := SummedTotal(intent)
	require.Equal(t, "107.98", total.String())
	require.Equal(t, "USD", total.Currency())
}

func TestSummedTotalZeroDecimal(t *testing.T) {
	intent := OrderIntent{
		Currency: "JPY",
		BaseRate: dec(t, "1"),
		UserRate: dec(t, "148.5"),
		Items: []LineItem{
			{Description: "Widget", UnitPrice: dec(t, "10"), Quantity: 2},
		},
	}

	// each line converts and rounds on its own: 10*148.5 = 1485, times 2
	require.Equal(t, "2970", SummedTotal(intent).String())
}

func TestComputeOffsetCharge(t *testing.T) {
	intent := baseIntent(t)
	intent.Total = dec(t, "107.99")

	offset := ComputeOffset(intent)
	require.NotNil(t, offset.ExtraCharge)
	require.Nil(t, offset.ExtraDiscount)
	require.Equal(t, "0.01", offset.ExtraCharge.String())

	// the offset balances the summed total back to the declared total
	balanced := SummedTotal(intent).Decimal().Add(offset.SignedValue())
	require.Equal(t, 0, balanced.Cmp(dec(t, "107.99")))
}

func TestComputeOffsetDiscount(t *testing.T) {
	intent := baseIntent(t)
	intent.Total = dec(t, "107.95")

	offset := ComputeOffset(intent)
	require.Nil(t, offset.ExtraCharge)
	require.NotNil(t, offset.ExtraDiscount)
	require.Equal(t, "0.03", offset.ExtraDiscount.String())
	require.Equal(t, "-0.03", offset.SignedValue().String())
}

func TestComputeOffsetBalanced(t *testing.T) {
	intent := baseIntent(t)
	intent.Total = dec(t, "107.98")

	offset := ComputeOffset(intent)
	require.Nil(t, offset.ExtraCharge)
	require.Nil(t, offset.ExtraDiscount)
	require.True(t, offset.SignedValue().IsZero())
}

func TestChargesPayloadBalancingLine(t *testing.T) {
	intent := baseIntent(t)
	extra := dec(t, "0.01")

	lines := chargesPayload(intent, &extra)
	require.Len(t, lines, 2)
	require.Equal(t, "Balancing Charge", lines[1].Name)
	require.Equal(t, "0.01", lines[1].ConsumerPrice.String())

	// empty sets stay nil so the payload carries an explicit null
	intent.Charges = nil
	require.Nil(t, chargesPayload(intent, nil))
}

func refundIntent(t *testing.T, remaining string) OrderIntent {
	return OrderIntent{
		OrderRef:            "1001",
		TransactionID:       "f1e01e0a",
		Currency:            "USD",
		RemainingRefundable: dec(t, remaining),
	}
}

func TestPlanRefundPartial(t *testing.T) {
	intent := refundIntent(t, "10.00")
	q := &QueryResponse{ConsumerTotal: dec(t, "100.00")}

	plan, err := PlanRefund(intent, dec(t, "90.00"), q)
	require.NoError(t, err)
	require.Equal(t, "90.00", plan.Final.String())
}

func TestPlanRefundSnapsWithinTolerance(t *testing.T) {
	intent := refundIntent(t, "0")
	q := &QueryResponse{ConsumerTotal: dec(t, "100.00")}

	plan, err := PlanRefund(intent, dec(t, "99.98"), q)
	require.NoError(t, err)
	require.Equal(t, "100.00", plan.Final.String())
}

func TestPlanRefundSnapsAtExactTolerance(t *testing.T) {
	intent := refundIntent(t, "0")
	q := &QueryResponse{ConsumerTotal: dec(t, "100.00")}

	plan, err := PlanRefund(intent, dec(t, "99.95"), q)
	require.NoError(t, err)
	require.Equal(t, "100.00", plan.Final.String())
}

func TestPlanRefundAbortsBeyondTolerance(t *testing.T) {
	intent := refundIntent(t, "0")
	q := &QueryResponse{ConsumerTotal: dec(t, "50.00")}

	_, err := PlanRefund(intent, dec(t, "40.00"), q)
	require.Error(t, err)
	require.Contains(t, err.Error(), "refund aborted")
}

func TestPlanRefundZeroDecimalTolerance(t *testing.T) {
	intent := refundIntent(t, "0")
	intent.Currency = "JPY"
	q := &QueryResponse{ConsumerTotal: dec(t, "1000")}

	plan, err := PlanRefund(intent, dec(t, "997"), q)
	require.NoError(t, err)
	require.Equal(t, "1000", plan.Final.String())

	_, err = PlanRefund(intent, dec(t, "990"), q)
	require.Error(t, err)
}

func TestPlanRefundCountsPriorRefunds(t *testing.T) {
	intent := refundIntent(t, "0")
	q := &QueryResponse{
		ConsumerTotal: dec(t, "100.00"),
		Refunds: []RefundRecord{
			{RefundID: "r1", ConsumerAmount: dec(t, "50.00"), State: "Processed"},
		},
	}

	plan, err := PlanRefund(intent, dec(t, "50.00"), q)
	require.NoError(t, err)
	require.Equal(t, "50.00", plan.Final.String())
	require.Equal(t, "50.00", plan.PriorRefunds.StringFixed(2))
}
