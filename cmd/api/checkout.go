package main

import (
	"context"
	"net/http"

	"reachpay/internal/reach"
	"reachpay/internal/store"

	"github.com/shopspring/decimal"
)

type ContactPayload struct {
	Name       string `json:"name" validate:"required,max=100"`
	Company    string `json:"company" validate:"omitempty,max=100"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"omitempty,max=30"`
	Address    string `json:"address" validate:"omitempty,max=200"`
	City       string `json:"city" validate:"omitempty,max=100"`
	Region     string `json:"region" validate:"omitempty,max=100"`
	PostalCode string `json:"postal_code" validate:"omitempty,max=20"`
	Country    string `json:"country" validate:"required,len=2"`
}

type ItemPayload struct {
	Description string          `json:"description" validate:"required,max=200"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	SKU         string          `json:"sku" validate:"omitempty,max=64"`
}

type LinePayload struct {
	Name   string          `json:"name" validate:"required,max=100"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type CardPayload struct {
	Number           string `json:"number" validate:"required,min=12,max=19"`
	Name             string `json:"name" validate:"required,max=100"`
	ExpiryMonth      int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear       int    `json:"expiry_year" validate:"required,min=2000"`
	VerificationCode string `json:"verification_code" validate:"required,min=3,max=4"`
}

type CreateCheckoutPayload struct {
	OrderRef      string          `json:"order_ref" validate:"required,max=64"`
	Currency      string          `json:"currency" validate:"required,currencycode"`
	BaseRate      decimal.Decimal `json:"base_rate"`
	UserRate      decimal.Decimal `json:"user_rate"`
	Total         decimal.Decimal `json:"total" validate:"required"`
	Items         []ItemPayload   `json:"items" validate:"required,min=1,dive"`
	Charges       []LinePayload   `json:"charges" validate:"omitempty,dive"`
	Discounts     []LinePayload   `json:"discounts" validate:"omitempty,dive"`
	ShippingPrice decimal.Decimal `json:"shipping_price"`
	ShippingTax   decimal.Decimal `json:"shipping_tax"`
	Consumer      ContactPayload  `json:"consumer" validate:"required"`
	Consignee     *ContactPayload `json:"consignee" validate:"omitempty"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,max=30"`
	Card          *CardPayload    `json:"card" validate:"omitempty"`
	Fingerprint   string          `json:"fingerprint" validate:"omitempty,max=128"`
}

func (p *CreateCheckoutPayload) intent(consumerIP string) reach.OrderIntent {
	intent := reach.OrderIntent{
		OrderRef:      p.OrderRef,
		Currency:      p.Currency,
		BaseRate:      p.BaseRate,
		UserRate:      p.UserRate,
		Total:         p.Total,
		ShippingPrice: p.ShippingPrice,
		ShippingTax:   p.ShippingTax,
		PaymentMethod: p.PaymentMethod,
		Fingerprint:   p.Fingerprint,
		Consumer:      contact(p.Consumer, consumerIP),
	}
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
	if p.Consignee != nil {
		intent.Consignee = contact(*p.Consignee, "")
	} else {
		intent.Consignee = intent.Consumer
		intent.Consignee.IPAddress = ""
	}
	if p.Card != nil {
		intent.Card = &reach.Card{
			Number:           p.Card.Number,
			Name:             p.Card.Name,
			ExpiryMonth:      p.Card.ExpiryMonth,
			ExpiryYear:       p.Card.ExpiryYear,
			VerificationCode: p.Card.VerificationCode,
		}
	}
	return intent
}

func contact(p ContactPayload, ip string) reach.Contact {
	return reach.Contact{
		Name:       p.Name,
		Company:    p.Company,
		Email:      p.Email,
		Phone:      p.Phone,
		Address:    p.Address,
		City:       p.City,
		Region:     p.Region,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		IPAddress:  ip,
	}
}

type CheckoutResponse struct {
	OrderID       int64  `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	UnderReview   bool   `json:"under_review"`
	Redirect      string `json:"redirect,omitempty"`
}

// createCheckoutHandler opens a payment on the processor for a new order. A
// local order row is created first so the callbacks always have something to
// address; it is removed again when the processor rejects the checkout.
func (app *application) createCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateCheckoutPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if payload.Card == nil && payload.PaymentMethod == "" {
		writeJSONError(w, http.StatusBadRequest, "either a card or a payment method is required")
		return
	}

	ctx := r.Context()
	intent := payload.intent(r.RemoteAddr)

	// Total stays in the merchant base currency. All local refund accounting
	// happens in that one currency; conversion to the shopper's currency is
	// done per wire call.
	order := &store.Order{
		OrderRef: payload.OrderRef,
		Status:   "pending",
		Currency: payload.Currency,
		Total:    payload.Total,
	}
	if err := app.store.Orders.Create(ctx, order); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp, err := app.gateway.Checkout(ctx, intent, false)
	if err != nil {
		// The checkout never opened; drop the provisional order so the
		// reference can be reused on the next attempt.
		if delErr := app.store.Orders.Delete(ctx, order.ID); delErr != nil {
			app.logger.Errorw("failed to remove provisional order", "order_id", order.ID, "error", delErr)
		}

		app.logger.Warnw("checkout rejected", "order_ref", payload.OrderRef, "error", err.Error())
		writeJSONError(w, http.StatusUnprocessableEntity, reach.ConsumerMessage(errorCode(resp, err)))
		return
	}

	if err := app.store.Orders.SetTransactionID(ctx, order.ID, resp.OrderID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	status := "pending"
	switch {
	case resp.Captured:
		status = "processing"
		app.addOrderNote(ctx, order.ID, reach.NoteForOrderState("Processed", ""))
	case resp.Authorized:
		status = "on-hold"
		app.addOrderNote(ctx, order.ID, reach.NoteForOrderState("PaymentAuthorized", ""))
	}
	if resp.UnderReview {
		status = "on-hold"
		if err := app.store.Orders.SetUnderReview(ctx, order.ID, true); err != nil {
			app.logger.Errorw("failed to flag review", "order_id", order.ID, "error", err)
		}
		app.addOrderNote(ctx, order.ID, "The payment is under fraud review. Fulfillment is on hold until the review clears.")
	}
	if err := app.store.Orders.UpdateStatus(ctx, order.ID, status); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	out := CheckoutResponse{
		OrderID:       order.ID,
		TransactionID: resp.OrderID,
		Status:        status,
		UnderReview:   resp.UnderReview,
	}
	if resp.Action != nil {
		out.Redirect = resp.Action.Redirect
	}

	if err := app.jsonResponse(w, http.StatusCreated, out); err != nil {
		app.internalServerError(w, r, err)
	}
}

// errorCode extracts the processor error code when present, so the filtered
// shopper message can be looked up by code rather than the raw error text.
func errorCode(resp *reach.CheckoutResponse, err error) string {
	if resp != nil && resp.Error != nil {
		return resp.Error.Code
	}
	return err.Error()
}

func (app *application) addOrderNote(ctx context.Context, orderID int64, note string) {
	if err := app.store.Orders.AddNote(ctx, orderID, note); err != nil {
		app.logger.Errorw("failed to add order note", "order_id", orderID, "error", err)
	}
}
