package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"reachpay/internal/reach"
	"reachpay/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef"

type stubOrders struct {
	byTransaction map[string]*store.Order
	statuses      map[int64]string
	reviews       map[int64]bool
	notes         []string
	refunded      decimal.Decimal
}

func newStubOrders(orders ...*store.Order) *stubOrders {
	s := &stubOrders{
		byTransaction: make(map[string]*store.Order),
		statuses:      make(map[int64]string),
		reviews:       make(map[int64]bool),
	}
	for _, o := range orders {
		s.byTransaction[o.TransactionID] = o
	}
	return s
}

func (s *stubOrders) Create(_ context.Context, o *store.Order) error {
	o.ID = int64(len(s.byTransaction) + 1)
	return nil
}

func (s *stubOrders) GetByID(_ context.Context, id int64) (*store.Order, error) {
	for _, o := range s.byTransaction {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubOrders) GetByTransactionID(_ context.Context, txID string) (*store.Order, error) {
	o, ok := s.byTransaction[txID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return o, nil
}

func (s *stubOrders) SetTransactionID(_ context.Context, id int64, txID string) error {
	return nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, id int64, status string) error {
	s.statuses[id] = status
	return nil
}

func (s *stubOrders) SetUnderReview(_ context.Context, id int64, underReview bool) error {
	s.reviews[id] = underReview
	return nil
}

func (s *stubOrders) SetRefunded(_ context.Context, id int64, amount decimal.Decimal) error {
	s.refunded = s.refunded.Add(amount)
	return nil
}

func (s *stubOrders) AddNote(_ context.Context, id int64, body string) error {
	s.notes = append(s.notes, body)
	return nil
}

func (s *stubOrders) Notes(_ context.Context, id int64) ([]store.Note, error) {
	return nil, nil
}

func (s *stubOrders) Delete(_ context.Context, id int64) error {
	return nil
}

type noopMailer struct{}

func (noopMailer) Send(templateFile, username, email string, data any) (int, error) {
	return 200, nil
}

func newTestApp(orders *stubOrders) *application {
	return &application{
		config: config{
			frontendURL: "https://shop.example",
			reach:       reachConfig{merchantID: "m1", secret: testSecret, test: true},
		},
		store:  store.Storage{Orders: orders},
		logger: zap.NewNop().Sugar(),
		mailer: noopMailer{},
	}
}

func notificationRequest(body string) *http.Request {
	form := url.Values{
		"request":   {body},
		"signature": {reach.Sign([]byte(body), testSecret)},
	}
	r := httptest.NewRequest(http.MethodPost, "/reach/notifications", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestNotificationUpdatesOrder(t *testing.T) {
	orders := newStubOrders(&store.Order{ID: 1, OrderRef: "1001", TransactionID: "tx-1"})
	app := newTestApp(orders)

	w := httptest.NewRecorder()
	app.notificationHandler(w, notificationRequest(`{"OrderId":"tx-1","OrderState":"Processed"}`))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "processing", orders.statuses[1])
	require.Contains(t, orders.notes, "Notification: Payment has completed successfully.")
}

func TestNotificationRejectsBadSignature(t *testing.T) {
	orders := newStubOrders()
	app := newTestApp(orders)

	form := url.Values{
		"request":   {`{"OrderId":"tx-1"}`},
		"signature": {"bm90IGEgc2lnbmF0dXJl"},
	}
	r := httptest.NewRequest(http.MethodPost, "/reach/notifications", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	app.notificationHandler(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, orders.statuses)
}

func TestNotificationUnknownOrderAcked(t *testing.T) {
	app := newTestApp(newStubOrders())

	w := httptest.NewRecorder()
	app.notificationHandler(w, notificationRequest(`{"OrderId":"missing","OrderState":"Processed"}`))

	require.Equal(t, http.StatusOK, w.Code)
}

func TestNotificationRefundSucceeded(t *testing.T) {
	orders := newStubOrders(&store.Order{ID: 1, OrderRef: "1001", TransactionID: "tx-1"})
	app := newTestApp(orders)

	w := httptest.NewRecorder()
	app.notificationHandler(w, notificationRequest(`{"OrderId":"tx-1","Refunds":{"State":"Succeeded"}}`))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, orders.notes, "Notification: a refund completed on the processor side.")
}

func TestNotificationRefundFailed(t *testing.T) {
	orders := newStubOrders(&store.Order{ID: 1, OrderRef: "1001", TransactionID: "tx-1"})
	app := newTestApp(orders)

	w := httptest.NewRecorder()
	app.notificationHandler(w, notificationRequest(`{"OrderId":"tx-1","Refunds":{"State":"Failed"}}`))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, orders.notes, "Notification: a refund failed on the processor side.")
}

func TestNotificationMissingOrderID(t *testing.T) {
	orders := newStubOrders()
	app := newTestApp(orders)

	w := httptest.NewRecorder()
	app.notificationHandler(w, notificationRequest(`{"OrderState":"Processed"}`))

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Missing OrderId")
	require.Empty(t, orders.statuses)
}

func TestNotificationFraudReviewHold(t *testing.T) {
	orders := newStubOrders(&store.Order{ID: 1, OrderRef: "1001", TransactionID: "tx-1"})
	app := newTestApp(orders)

	w := httptest.NewRecorder()
	app.notificationHandler(w, notificationRequest(`{"OrderId":"tx-1","UnderReview":true}`))

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, orders.reviews[1])
}

func TestReturnRedirectsOnSuccess(t *testing.T) {
	orders := newStubOrders(&store.Order{ID: 1, OrderRef: "1001", TransactionID: "tx-1"})
	app := newTestApp(orders)

	body := `{"OrderId":"tx-1","OrderState":"Processed","Captured":true}`
	q := url.Values{
		"response":  {body},
		"signature": {reach.Sign([]byte(body), testSecret)},
	}
	r := httptest.NewRequest(http.MethodGet, "/reach/return?"+q.Encode(), nil)

	w := httptest.NewRecorder()
	app.returnHandler(w, r)

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "https://shop.example/order-received/1001", w.Header().Get("Location"))
	require.Equal(t, "processing", orders.statuses[1])
}

func TestReturnRedirectsBackOnError(t *testing.T) {
	orders := newStubOrders(&store.Order{ID: 1, OrderRef: "1001", TransactionID: "tx-1"})
	app := newTestApp(orders)

	body := `{"OrderId":"tx-1","Error":{"Code":"PaymentFailed"}}`
	q := url.Values{
		"response":  {body},
		"signature": {reach.Sign([]byte(body), testSecret)},
	}
	r := httptest.NewRequest(http.MethodGet, "/reach/return?"+q.Encode(), nil)

	w := httptest.NewRecorder()
	app.returnHandler(w, r)

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Contains(t, w.Header().Get("Location"), "payment_error=PaymentFailed")
}

func TestReturnUnverifiedAnswers200(t *testing.T) {
	app := newTestApp(newStubOrders())

	r := httptest.NewRequest(http.MethodGet, "/reach/return?response=x&signature=y", nil)
	w := httptest.NewRecorder()
	app.returnHandler(w, r)

	require.Equal(t, http.StatusOK, w.Code)
}
