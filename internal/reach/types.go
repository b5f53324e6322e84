package reach

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"reachpay/internal/currency"
)

// Credentials identify the merchant to the processor. One pair exists per
// environment; the caller selects the pair once from configuration. The secret
// key is only ever used for signing and verification and must not be logged.
type Credentials struct {
	MerchantID string
	SecretKey  string
	Test       bool
}

// Contact is a billing (consumer) or shipping (consignee) contact.
type Contact struct {
	Name       string
	Company    string
	Email      string
	Phone      string
	Address    string
	City       string
	Region     string
	PostalCode string
	Country    string
	IPAddress  string
}

// Card holds raw card data for a stash call. It never appears in a checkout
// payload directly; checkout references the returned stash id instead.
type Card struct {
	Number           string
	Name             string
	ExpiryMonth      int
	ExpiryYear       int
	VerificationCode string
}

// IIN returns the 6-digit issuer identification number of the card, or an
// error when the number is too short to contain one.
func (c Card) IIN() (int, error) {
	digits := strings.ReplaceAll(c.Number, " ", "")
	if len(digits) < 6 {
		return 0, fmt.Errorf("card number too short for IIN")
	}
	iin, err := strconv.Atoi(digits[:6])
	if err != nil {
		return 0, fmt.Errorf("card number is not numeric")
	}
	return iin, nil
}

// LineItem is a purchasable order line. UnitPrice is in the merchant base
// currency before conversion.
type LineItem struct {
	Description string
	UnitPrice   decimal.Decimal
	Quantity    int
	SKU         string
}

// Line is a named charge or discount amount in the merchant base currency.
type Line struct {
	Name   string
	Amount decimal.Decimal
}

// OrderIntent is a read-only snapshot of everything needed to build a payload
// for one checkout, modify or refund attempt. Built once per attempt, never
// mutated, owned by the caller.
type OrderIntent struct {
	OrderRef      string // merchant-side order reference
	TransactionID string // processor OrderId from a prior checkout
	ContractID    string // processor ContractId, set only for recurring orders

	Currency string          // shopper-selected currency
	BaseRate decimal.Decimal // merchant base currency rate, zero when unset
	UserRate decimal.Decimal // shopper currency rate, zero when unset
	Total    decimal.Decimal // declared grand total in the base currency

	Items     []LineItem
	Charges   []Line
	Discounts []Line

	ShippingPrice decimal.Decimal
	ShippingTax   decimal.Decimal

	Consumer  Contact
	Consignee Contact

	PaymentMethod string // resolved method for non-card intents (PAYPAL, ...)
	Fingerprint   string // device fingerprint collected at checkout
	Card          *Card  // nil for non-card intents

	// RemainingRefundable is the amount still refundable on the local order
	// after the current refund attempt is applied. Positive means partial.
	RemainingRefundable decimal.Decimal
}

func (in OrderIntent) convert(d decimal.Decimal) decimal.Decimal {
	return currency.Convert(d, in.BaseRate, in.UserRate, in.Currency)
}

func (in OrderIntent) amount(d decimal.Decimal) currency.Amount {
	return currency.NewAmount(in.convert(d), in.Currency)
}

// APIError is a domain error returned by the processor inside a verified
// response.
type APIError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Code + " - " + e.Message
	}
	return e.Code
}

// Action instructs the shopper's browser for payment methods that require
// external authentication.
type Action struct {
	Redirect string          `json:"Redirect"`
	Display  json.RawMessage `json:"Display"`
}

// CheckoutResponse is the decoded /checkout response.
type CheckoutResponse struct {
	OrderID     string    `json:"OrderId"`
	Captured    bool      `json:"Captured"`
	Authorized  bool      `json:"Authorized"`
	UnderReview bool      `json:"UnderReview"`
	Action      *Action   `json:"Action"`
	Error       *APIError `json:"Error"`
}

// OrderAck is the shared response shape of /capture, /cancel and /modify.
type OrderAck struct {
	OrderID string    `json:"OrderId"`
	Error   *APIError `json:"Error"`
}

// RefundRecord is one prior refund reported by /query.
type RefundRecord struct {
	RefundID       string          `json:"RefundId"`
	ConsumerAmount decimal.Decimal `json:"ConsumerAmount"`
	State          string          `json:"State"`
}

// QueryResponse is the decoded /query response, the authoritative remote view
// of an order.
type QueryResponse struct {
	OrderID          string          `json:"OrderId"`
	ReferenceID      string          `json:"ReferenceId"`
	OrderState       string          `json:"OrderState"`
	Captured         bool            `json:"Captured"`
	UnderReview      bool            `json:"UnderReview"`
	ConsumerCurrency string          `json:"ConsumerCurrency"`
	ConsumerTotal    decimal.Decimal `json:"ConsumerTotal"`
	Refunds          []RefundRecord  `json:"Refunds"`
	Error            *APIError       `json:"Error"`
}

// RefundResponse is the decoded /refund response.
type RefundResponse struct {
	RefundID string    `json:"RefundId"`
	Error    *APIError `json:"Error"`
}

// RefundResult pairs the processed refund with the plan that produced its
// final amount, so callers can report both.
type RefundResult struct {
	RefundID string
	Plan     RefundPlan
}

type stashResponse struct {
	StashID  string   `json:"StashId"`
	Warnings []string `json:"Warnings"`
}

// CardInfo describes a card by its IIN.
type CardInfo struct {
	PaymentMethod string `json:"PaymentMethod"`
	Class         string `json:"Class"`
	DebitNetwork  string `json:"DebitNetwork"`
}

// PaymentMethod is one entry of a /getPaymentMethods listing.
type PaymentMethod struct {
	Name    string   `json:"Name"`
	Class   string   `json:"Class"`
	Issuers []string `json:"Issuers"`
}

// Badge is the processor logo and policy snippet shown at checkout.
type Badge struct {
	HTML string `json:"Html"`
}

// Notification is a verified asynchronous server-to-server event.
type Notification struct {
	OrderID     string    `json:"OrderId"`
	ReferenceID string    `json:"ReferenceId"`
	OrderState  string    `json:"OrderState"`
	UnderReview bool      `json:"UnderReview"`
	Refunds     *struct { // refund state transition, when present
		State string `json:"State"`
	} `json:"Refunds"`
	Error *APIError `json:"Error"`
}

// ReturnEvent is a verified browser return-URL callback.
type ReturnEvent struct {
	OrderID     string    `json:"OrderId"`
	OrderState  string    `json:"OrderState"`
	Captured    bool      `json:"Captured"`
	UnderReview bool      `json:"UnderReview"`
	Error       *APIError `json:"Error"`
}

// payload field order is fixed by the struct declarations below; the signature
// is computed over the exact marshalled bytes, so these structs are marshalled
// once and the bytes reused verbatim on the wire.

type payloadItem struct {
	Description   string          `json:"Description"`
	ConsumerPrice currency.Amount `json:"ConsumerPrice"`
	Quantity      int             `json:"Quantity"`
	Sku           string          `json:"Sku"`
}

type payloadLine struct {
	Name          string          `json:"Name"`
	ConsumerPrice currency.Amount `json:"ConsumerPrice"`
}

type payloadShipping struct {
	ConsumerPrice currency.Amount `json:"ConsumerPrice"`
	ConsumerTaxes currency.Amount `json:"ConsumerTaxes"`
	ConsumerDuty  currency.Amount `json:"ConsumerDuty"`
}

type payloadContact struct {
	Name       *string `json:"Name"`
	Company    *string `json:"Company"`
	Email      *string `json:"Email"`
	Phone      *string `json:"Phone"`
	Address    *string `json:"Address"`
	City       *string `json:"City"`
	Region     *string `json:"Region"`
	PostalCode *string `json:"PostalCode"`
	Country    *string `json:"Country"`
	IpAddress  *string `json:"IpAddress,omitempty"`
}

type checkoutPayload struct {
	MerchantID        string          `json:"MerchantId"`
	ReferenceID       string          `json:"ReferenceId"`
	DeviceFingerprint string          `json:"DeviceFingerprint"`
	PaymentMethod     string          `json:"PaymentMethod"`
	ConsumerCurrency  string          `json:"ConsumerCurrency"`
	AcceptLiability   bool            `json:"AcceptLiability"`
	Capture           bool            `json:"Capture"`
	Items             []payloadItem   `json:"Items"`
	Charges           []payloadLine   `json:"Charges"`
	Discounts         []payloadLine   `json:"Discounts"`
	ConsumerTotal     currency.Amount `json:"ConsumerTotal"`
	Consumer          payloadContact  `json:"Consumer"`
	Notify            string          `json:"Notify"`
	StashID           *string         `json:"StashId"`
	Return            string          `json:"Return"`
	Shipping          payloadShipping `json:"Shipping"`
	Consignee         payloadContact  `json:"Consignee"`
}

type orderPayload struct {
	MerchantID string `json:"MerchantId"`
	OrderID    string `json:"OrderId"`
}

type queryPayload struct {
	MerchantID  string `json:"MerchantId"`
	OrderID     string `json:"OrderId,omitempty"`
	ReferenceID string `json:"ReferenceId,omitempty"`
	ContractID  string `json:"ContractId,omitempty"`
}

type refundPayload struct {
	MerchantID  string          `json:"MerchantId"`
	OrderID     string          `json:"OrderId"`
	ReferenceID string          `json:"ReferenceId"`
	Amount      currency.Amount `json:"Amount"`
}

type modifyPayload struct {
	MerchantID    string          `json:"MerchantId"`
	OrderID       string          `json:"OrderId"`
	Items         []payloadItem   `json:"Items"`
	Charges       []payloadLine   `json:"Charges"`
	Discounts     []payloadLine   `json:"Discounts"`
	ConsumerTotal currency.Amount `json:"ConsumerTotal"`
	Shipping      payloadShipping `json:"Shipping"`
	Consignee     payloadContact  `json:"Consignee"`
}

type cardPayload struct {
	Number string `json:"Number"`
	Name   string `json:"Name"`
	Expiry struct {
		Year  int `json:"Year"`
		Month int `json:"Month"`
	} `json:"Expiry"`
	VerificationCode string `json:"VerificationCode"`
}

func orNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func contactPayload(c Contact, withIP bool) payloadContact {
	p := payloadContact{
		Name:       orNil(c.Name),
		Company:    orNil(c.Company),
		Email:      orNil(c.Email),
		Phone:      orNil(c.Phone),
		Address:    orNil(c.Address),
		City:       orNil(c.City),
		Region:     orNil(c.Region),
		PostalCode: orNil(c.PostalCode),
		Country:    orNil(c.Country),
	}
	if withIP {
		p.IpAddress = orNil(c.IPAddress)
	}
	return p
}
