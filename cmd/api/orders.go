package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"reachpay/internal/reach"
	"reachpay/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (app *application) orderFromRequest(w http.ResponseWriter, r *http.Request) (*store.Order, bool) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid order ID"))
		return nil, false
	}

	order, err := app.store.Orders.GetByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			app.notFoundResponse(w, r, err)
		} else {
			app.internalServerError(w, r, err)
		}
		return nil, false
	}

	if order.TransactionID == "" {
		app.badRequestResponse(w, r, fmt.Errorf("order has no processor transaction"))
		return nil, false
	}

	return order, true
}

func orderIntent(order *store.Order) reach.OrderIntent {
	return reach.OrderIntent{
		OrderRef:      order.OrderRef,
		TransactionID: order.TransactionID,
		Currency:      order.Currency,
	}
}

// getOrderHandler returns the local order together with the authoritative
// remote state from /query.
func (app *application) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, ok := app.orderFromRequest(w, r)
	if !ok {
		return
	}

	remote, err := app.gateway.Query(r.Context(), orderIntent(order), reach.ByOrderID)
	if err != nil {
		app.logger.Warnw("remote query failed", "order_id", order.ID, "error", err.Error())
	}

	notes, err := app.store.Orders.Notes(r.Context(), order.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	data := map[string]any{
		"order":  order,
		"notes":  notes,
		"remote": remote,
	}
	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) captureOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, ok := app.orderFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := app.gateway.Capture(ctx, orderIntent(order)); err != nil {
		app.addOrderNote(ctx, order.ID, "Capture failed: "+err.Error())
		app.badRequestResponse(w, r, fmt.Errorf("capture failed"))
		return
	}

	if err := app.store.Orders.UpdateStatus(ctx, order.ID, "processing"); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.addOrderNote(ctx, order.ID, reach.NoteForOrderState("Processed", ""))

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"status": "processing"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, ok := app.orderFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := app.gateway.Cancel(ctx, orderIntent(order)); err != nil {
		app.addOrderNote(ctx, order.ID, "Cancellation failed: "+err.Error())
		app.badRequestResponse(w, r, fmt.Errorf("cancellation failed"))
		return
	}

	if err := app.store.Orders.UpdateStatus(ctx, order.ID, "cancelled"); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.addOrderNote(ctx, order.ID, reach.NoteForOrderState("Cancelled", ""))

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"status": "cancelled"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type ModifyOrderPayload struct {
	BaseRate      decimal.Decimal `json:"base_rate"`
	UserRate      decimal.Decimal `json:"user_rate"`
	Total         decimal.Decimal `json:"total" validate:"required"`
	Items         []ItemPayload   `json:"items" validate:"required,min=1,dive"`
	Charges       []LinePayload   `json:"charges" validate:"omitempty,dive"`
	Discounts     []LinePayload   `json:"discounts" validate:"omitempty,dive"`
	ShippingPrice decimal.Decimal `json:"shipping_price"`
	ShippingTax   decimal.Decimal `json:"shipping_tax"`
	Consumer      *ContactPayload `json:"consumer" validate:"omitempty"`
	Consignee     *ContactPayload `json:"consignee" validate:"omitempty"`
}

func (p *ModifyOrderPayload) intent(base reach.OrderIntent) reach.OrderIntent {
	intent := base
	intent.BaseRate = p.BaseRate
	intent.UserRate = p.UserRate
	intent.Total = p.Total
	intent.ShippingPrice = p.ShippingPrice
	intent.ShippingTax = p.ShippingTax
	for _, it := range p.Items {
		intent.Items = append(intent.Items, reach.LineItem{
			Description: it.Description,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			SKU:         it.SKU,
		})
	}
	for _, ch := range p.Charges {
		intent.Charges = append(intent.Charges, reach.Line{Name: ch.Name, Amount: ch.Amount})
	}
	for _, d := range p.Discounts {
		intent.Discounts = append(intent.Discounts, reach.Line{Name: d.Name, Amount: d.Amount})
	}

	// With no shipping contact the billing contact ships, same as checkout.
	switch {
	case p.Consignee != nil:
		intent.Consignee = contact(*p.Consignee, "")
	case p.Consumer != nil:
		intent.Consignee = contact(*p.Consumer, "")
	}
	return intent
}

// modifyOrderHandler replaces the order's line sets before capture. The
// balancing offset is recomputed from the new lines so the declared total and
// the summed total still reconcile.
func (app *application) modifyOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, ok := app.orderFromRequest(w, r)
	if !ok {
		return
	}

	var payload ModifyOrderPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	intent := payload.intent(orderIntent(order))

	ctx := r.Context()
	if _, err := app.gateway.Modify(ctx, intent); err != nil {
		app.addOrderNote(ctx, order.ID, "Modification failed: "+err.Error())
		app.badRequestResponse(w, r, fmt.Errorf("modification failed"))
		return
	}

	total := reach.SummedTotal(intent)
	app.addOrderNote(ctx, order.ID, "Order modified, new total "+total.String()+" "+intent.Currency)

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"total": total.String()}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type RefundOrderPayload struct {
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	BaseRate decimal.Decimal `json:"base_rate"`
	UserRate decimal.Decimal `json:"user_rate"`
}

// refundOrderHandler submits a refund against the processor. The final amount
// depends on the remote balance; see the plan returned with the result. A
// refund the plan refuses leaves the order untouched and alerts the operator.
func (app *application) refundOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, ok := app.orderFromRequest(w, r)
	if !ok {
		return
	}

	var payload RefundOrderPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if !payload.Amount.IsPositive() {
		app.badRequestResponse(w, r, fmt.Errorf("refund amount must be positive"))
		return
	}

	intent := orderIntent(order)
	intent.BaseRate = payload.BaseRate
	intent.UserRate = payload.UserRate
	// Total, RefundedTotal and the requested amount are all in the merchant
	// base currency, so the remaining balance is too. The gateway converts to
	// the shopper's currency for the wire.
	intent.RemainingRefundable = order.Total.Sub(order.RefundedTotal).Sub(payload.Amount)

	ctx := r.Context()
	result, err := app.gateway.Refund(ctx, intent, payload.Amount)
	if err != nil {
		app.addOrderNote(ctx, order.ID, "Refund failed: "+err.Error())
		app.alertOperator(mailAlert{
			template: "refund",
			orderRef: order.OrderRef,
			amount:   payload.Amount.String(),
			reason:   err.Error(),
		})
		app.badRequestResponse(w, r, fmt.Errorf("refund failed"))
		return
	}

	// Accumulate the base-currency amount; plan.Final is the consumer-currency
	// figure that went on the wire.
	if err := app.store.Orders.SetRefunded(ctx, order.ID, payload.Amount); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.addOrderNote(ctx, order.ID, fmt.Sprintf("Refunded %s %s (refund %s)",
		result.Plan.Final.String(), order.Currency, result.RefundID))

	data := map[string]any{
		"refund_id": result.RefundID,
		"amount":    result.Plan.Final.String(),
	}
	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}
