package reach

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	liveURL      = "https://checkout.rch.io/v2.21"
	testURL      = "https://checkout.rch.how/v2.21"
	liveStashURL = "https://stash.gointerpay.net"
	testStashURL = "https://stash.rch.how"

	defaultTimeout = 30 * time.Second
)

// QueryKind selects the identifier a /query call addresses the order by.
type QueryKind string

const (
	ByOrderID     QueryKind = "OrderId"
	ByReferenceID QueryKind = "ReferenceId"
	ByContractID  QueryKind = "ContractId"
)

// CallbackURLs are the notify and return endpoints advertised to the processor
// in checkout payloads.
type CallbackURLs struct {
	Notify string
	Return string
}

// Client orchestrates the remote operations of the payment processor. All
// operations share the shape: build payload, sign, post, verify, interpret the
// operation's success condition. A Client is safe for concurrent use across
// different orders; mutating calls for the same order must be serialized by
// the caller.
type Client struct {
	creds     Credentials
	callbacks CallbackURLs
	apiURL    string
	stashURL  string
	tp        *transport
	logger    *zap.SugaredLogger
}

type Option func(*Client)

// WithEndpoints overrides the processor endpoints, mainly for tests.
func WithEndpoints(api, stash string) Option {
	return func(c *Client) {
		c.apiURL = api
		c.stashURL = stash
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.tp.rest.SetTimeout(d)
	}
}

func NewClient(creds Credentials, callbacks CallbackURLs, logger *zap.SugaredLogger, opts ...Option) *Client {
	c := &Client{
		creds:     creds,
		callbacks: callbacks,
		apiURL:    liveURL,
		stashURL:  liveStashURL,
		tp:        newTransport(creds.SecretKey, defaultTimeout, logger),
		logger:    logger,
	}
	if creds.Test {
		c.apiURL = testURL
		c.stashURL = testStashURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// referenceID derives the idempotent merchant reference for an order.
func (c *Client) referenceID(intent OrderIntent) string {
	return "order_" + intent.OrderRef + "_" + c.creds.MerchantID
}

// PaymentMethods lists the methods available for a country and currency.
func (c *Client) PaymentMethods(ctx context.Context, country, curr string) ([]PaymentMethod, error) {
	var out struct {
		PaymentMethods []PaymentMethod `json:"PaymentMethods"`
	}
	err := c.tp.get(ctx, c.apiURL+"/getPaymentMethods", map[string]string{
		"MerchantId": c.creds.MerchantID,
		"Country":    country,
		"Currency":   curr,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.PaymentMethods == nil {
		return nil, fmt.Errorf("missing PaymentMethods")
	}
	return out.PaymentMethods, nil
}

// Badge fetches the processor badge for display at checkout.
func (c *Client) Badge(ctx context.Context, curr, consumerIP string) (*Badge, error) {
	var out Badge
	err := c.tp.get(ctx, c.apiURL+"/badge", map[string]string{
		"MerchantId":        c.creds.MerchantID,
		"Currency":          curr,
		"ConsumerIpAddress": consumerIP,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CardInfo resolves the payment method (VISA, MC, ...) for a card by its
// 6-digit issuer identification number.
func (c *Client) CardInfo(ctx context.Context, iin int) (*CardInfo, error) {
	if iin < 100000 || iin > 999999 {
		return nil, fmt.Errorf("iin out of range: %d", iin)
	}
	var out CardInfo
	err := c.tp.get(ctx, c.apiURL+"/getCardInfo", map[string]string{
		"MerchantId": c.creds.MerchantID,
		"IIN":        strconv.Itoa(iin),
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.PaymentMethod == "" {
		return nil, fmt.Errorf("unrecognized card issuer")
	}
	return &out, nil
}

// Stash stores card data at a one-time random path and returns the stash id
// referenced by the subsequent checkout call.
func (c *Client) Stash(ctx context.Context, card Card, fingerprint string) (string, error) {
	var payload cardPayload
	payload.Number = card.Number
	payload.Name = card.Name
	payload.Expiry.Year = card.ExpiryYear
	payload.Expiry.Month = card.ExpiryMonth
	payload.VerificationCode = card.VerificationCode

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal card: %w", err)
	}

	url := c.stashURL + "/" + c.creds.MerchantID + "/" + uuid.NewString()

	var out stashResponse
	err = c.tp.postStash(ctx, url, map[string]string{
		"DeviceFingerprint": fingerprint,
		"card":              string(body),
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Warnings) > 0 {
		return "", fmt.Errorf("%s%s", stashErrorPrefix, strings.Join(out.Warnings, ", "))
	}
	if out.StashID == "" {
		return "", fmt.Errorf("invalid StashId")
	}
	return out.StashID, nil
}

// Checkout submits a new payment for an order intent. Card intents stash the
// card and resolve its brand first; either failure aborts the checkout. On
// success the caller must durably associate the returned OrderID with the
// order before any later operation can address it.
func (c *Client) Checkout(ctx context.Context, intent OrderIntent, openContract bool) (*CheckoutResponse, error) {
	method := intent.PaymentMethod
	var stashID *string

	if intent.Card != nil {
		iin, err := intent.Card.IIN()
		if err != nil {
			return nil, err
		}
		id, err := c.Stash(ctx, *intent.Card, intent.Fingerprint)
		if err != nil {
			return nil, err
		}
		info, err := c.CardInfo(ctx, iin)
		if err != nil {
			return nil, err
		}
		method = info.PaymentMethod
		stashID = &id
	}

	payload := checkoutPayload{
		MerchantID:        c.creds.MerchantID,
		ReferenceID:       c.referenceID(intent),
		DeviceFingerprint: intent.Fingerprint,
		PaymentMethod:     method,
		ConsumerCurrency:  intent.Currency,
		AcceptLiability:   false, // processor-side fraud service
		Capture:           true,
		Items:             itemsPayload(intent),
		Charges:           chargesPayload(intent, nil),
		Discounts:         discountsPayload(intent, nil),
		ConsumerTotal:     SummedTotal(intent),
		Consumer:          contactPayload(intent.Consumer, true),
		Notify:            c.callbacks.Notify,
		StashID:           stashID,
		Return:            c.callbacks.Return,
		Shipping:          shippingPayload(intent),
		Consignee:         contactPayload(intent.Consignee, false),
	}
	_ = openContract // contracts (recurring billing) are not yet opened

	env, err := seal(payload, c.creds.SecretKey)
	if err != nil {
		return nil, err
	}

	var out CheckoutResponse
	if err := c.tp.post(ctx, c.apiURL+"/checkout", env, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return &out, out.Error
	}
	if out.OrderID == "" {
		return &out, fmt.Errorf("invalid OrderId")
	}
	return &out, nil
}

// Capture completes payment on an authorized order.
func (c *Client) Capture(ctx context.Context, intent OrderIntent) (*OrderAck, error) {
	return c.postOrderAck(ctx, "/capture", intent)
}

// Cancel voids a pre-authorized order that has not been captured.
func (c *Client) Cancel(ctx context.Context, intent OrderIntent) (*OrderAck, error) {
	return c.postOrderAck(ctx, "/cancel", intent)
}

func (c *Client) postOrderAck(ctx context.Context, path string, intent OrderIntent) (*OrderAck, error) {
	env, err := seal(orderPayload{
		MerchantID: c.creds.MerchantID,
		OrderID:    intent.TransactionID,
	}, c.creds.SecretKey)
	if err != nil {
		return nil, err
	}

	var out OrderAck
	if err := c.tp.post(ctx, c.apiURL+path, env, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return &out, out.Error
	}
	if out.OrderID == "" {
		return &out, fmt.Errorf("invalid OrderId")
	}
	return &out, nil
}

// Query looks up the authoritative remote state of an order.
func (c *Client) Query(ctx context.Context, intent OrderIntent, kind QueryKind) (*QueryResponse, error) {
	payload := queryPayload{MerchantID: c.creds.MerchantID}
	switch kind {
	case ByOrderID:
		payload.OrderID = intent.TransactionID
	case ByReferenceID:
		payload.ReferenceID = c.referenceID(intent)
	case ByContractID:
		if intent.ContractID == "" {
			return nil, fmt.Errorf("order has no contract")
		}
		payload.ContractID = intent.ContractID
	default:
		return nil, fmt.Errorf("unknown query kind %q", kind)
	}

	env, err := seal(payload, c.creds.SecretKey)
	if err != nil {
		return nil, err
	}

	var out QueryResponse
	if err := c.tp.post(ctx, c.apiURL+"/query", env, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return &out, out.Error
	}
	if out.OrderID == "" {
		return &out, fmt.Errorf("invalid OrderId")
	}
	return &out, nil
}

// Refund submits a full or partial refund. The remote order state is queried
// first and the final amount computed from it; see PlanRefund for the
// tolerance rules.
func (c *Client) Refund(ctx context.Context, intent OrderIntent, amount decimal.Decimal) (*RefundResult, error) {
	q, err := c.Query(ctx, intent, ByOrderID)
	if err != nil {
		return nil, err
	}

	plan, err := PlanRefund(intent, amount, q)
	if err != nil {
		return &RefundResult{Plan: plan}, err
	}

	c.logger.Infow("refund planned",
		"order_ref", intent.OrderRef,
		"requested", plan.Requested.String(),
		"remote_remaining", plan.RemoteRemaining.String(),
		"final", plan.Final.String(),
	)

	env, err := seal(refundPayload{
		MerchantID:  c.creds.MerchantID,
		OrderID:     intent.TransactionID,
		ReferenceID: fmt.Sprintf("refund_%s_%s_%d", intent.OrderRef, c.creds.MerchantID, time.Now().Unix()),
		Amount:      plan.Final,
	}, c.creds.SecretKey)
	if err != nil {
		return nil, err
	}

	var out RefundResponse
	if err := c.tp.post(ctx, c.apiURL+"/refund", env, &out); err != nil {
		return &RefundResult{Plan: plan}, err
	}
	if out.Error != nil {
		return &RefundResult{Plan: plan}, out.Error
	}
	if out.RefundID == "" {
		return &RefundResult{Plan: plan}, fmt.Errorf("invalid RefundId")
	}
	return &RefundResult{RefundID: out.RefundID, Plan: plan}, nil
}

// Modify updates an order before capture. The reconciliation offset is
// recomputed here since the item, charge and discount sets may have changed
// since checkout.
func (c *Client) Modify(ctx context.Context, intent OrderIntent) (*OrderAck, error) {
	offset := ComputeOffset(intent)

	payload := modifyPayload{
		MerchantID:    c.creds.MerchantID,
		OrderID:       intent.TransactionID,
		Items:         itemsPayload(intent),
		Charges:       chargesPayload(intent, offset.ExtraCharge),
		Discounts:     discountsPayload(intent, offset.ExtraDiscount),
		ConsumerTotal: SummedTotal(intent),
		Shipping:      shippingPayload(intent),
		Consignee:     contactPayload(intent.Consignee, false),
	}

	env, err := seal(payload, c.creds.SecretKey)
	if err != nil {
		return nil, err
	}

	var out OrderAck
	if err := c.tp.post(ctx, c.apiURL+"/modify", env, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return &out, out.Error
	}
	if out.OrderID == "" {
		return &out, fmt.Errorf("invalid OrderId")
	}
	return &out, nil
}
