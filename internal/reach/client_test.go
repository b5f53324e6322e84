package reach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(
		Credentials{MerchantID: "m1", SecretKey: testSecret, Test: true},
		CallbackURLs{Notify: "https://merchant.example/reach/notifications", Return: "https://merchant.example/reach/return"},
		zap.NewNop().Sugar(),
		WithEndpoints(srv.URL, srv.URL+"/stash"),
	)
}

// requireSignedRequest verifies the request/signature form fields and returns
// the decoded JSON payload.
func requireSignedRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	require.NoError(t, r.ParseForm())

	body := r.PostFormValue("request")
	require.NotEmpty(t, body)
	require.Equal(t, Sign([]byte(body), testSecret), r.PostFormValue("signature"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload
}

func writeSigned(w http.ResponseWriter, body string) {
	resp := url.Values{
		"response":  {body},
		"signature": {Sign([]byte(body), testSecret)},
	}
	w.Write([]byte(resp.Encode()))
}

func TestCheckout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkout", func(w http.ResponseWriter, r *http.Request) {
		payload := requireSignedRequest(t, r)
		require.Equal(t, "m1", payload["MerchantId"])
		require.Equal(t, "order_1001_m1", payload["ReferenceId"])
		require.Equal(t, "PAYPAL", payload["PaymentMethod"])
		require.Equal(t, float64(107.98), payload["ConsumerTotal"])

		writeSigned(w, `{"OrderId":"o-1","Captured":true}`)
	})

	intent := baseIntent(t)
	intent.PaymentMethod = "PAYPAL"
	intent.Total = dec(t, "107.98")

	resp, err := testClient(t, mux).Checkout(context.Background(), intent, false)
	require.NoError(t, err)
	require.Equal(t, "o-1", resp.OrderID)
	require.True(t, resp.Captured)
}

func TestCheckoutWithCard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /stash/m1/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.NotEmpty(t, r.PostFormValue("card"))
		w.Write([]byte(`{"StashId":"s-1"}`))
	})
	mux.HandleFunc("GET /getCardInfo", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "411111", r.URL.Query().Get("IIN"))
		w.Write([]byte(`{"PaymentMethod":"VISA","Class":"Credit"}`))
	})
	mux.HandleFunc("POST /checkout", func(w http.ResponseWriter, r *http.Request) {
		payload := requireSignedRequest(t, r)
		require.Equal(t, "VISA", payload["PaymentMethod"])
		require.Equal(t, "s-1", payload["StashId"])
		writeSigned(w, `{"OrderId":"o-2","Authorized":true}`)
	})

	intent := baseIntent(t)
	intent.Total = dec(t, "107.98")
	intent.Card = &Card{
		Number:           "4111111111111111",
		Name:             "Jo Shopper",
		ExpiryMonth:      12,
		ExpiryYear:       2030,
		VerificationCode: "123",
	}

	resp, err := testClient(t, mux).Checkout(context.Background(), intent, false)
	require.NoError(t, err)
	require.Equal(t, "o-2", resp.OrderID)
}

func TestCheckoutRejectsTamperedResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkout", func(w http.ResponseWriter, r *http.Request) {
		resp := url.Values{
			"response":  {`{"OrderId":"o-1","Captured":true}`},
			"signature": {Sign([]byte(`{"OrderId":"o-1","Captured":false}`), testSecret)},
		}
		w.Write([]byte(resp.Encode()))
	})

	intent := baseIntent(t)
	intent.PaymentMethod = "PAYPAL"
	intent.Total = dec(t, "107.98")

	_, err := testClient(t, mux).Checkout(context.Background(), intent, false)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestCheckoutReturnsProcessorError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkout", func(w http.ResponseWriter, r *http.Request) {
		requireSignedRequest(t, r)
		writeSigned(w, `{"Error":{"Code":"CardExpired","Message":"expired"}}`)
	})

	intent := baseIntent(t)
	intent.PaymentMethod = "PAYPAL"
	intent.Total = dec(t, "107.98")

	resp, err := testClient(t, mux).Checkout(context.Background(), intent, false)
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	require.Equal(t, "CardExpired", resp.Error.Code)
}

func TestQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		payload := requireSignedRequest(t, r)
		require.Equal(t, "tx-1", payload["OrderId"])
		writeSigned(w, `{"OrderId":"tx-1","OrderState":"Processed","Captured":true,"ConsumerTotal":100.00}`)
	})

	intent := OrderIntent{OrderRef: "1001", TransactionID: "tx-1", Currency: "USD"}

	q, err := testClient(t, mux).Query(context.Background(), intent, ByOrderID)
	require.NoError(t, err)
	require.Equal(t, "Processed", q.OrderState)
	require.True(t, q.Captured)
}

func TestQueryByContractIDRequiresContract(t *testing.T) {
	_, err := testClient(t, http.NewServeMux()).Query(context.Background(), OrderIntent{}, ByContractID)
	require.Error(t, err)
}

func TestRefundSnapsToRemoteRemaining(t *testing.T) {
	var submitted float64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		requireSignedRequest(t, r)
		writeSigned(w, `{"OrderId":"tx-1","ConsumerTotal":100.00,"Refunds":[]}`)
	})
	mux.HandleFunc("POST /refund", func(w http.ResponseWriter, r *http.Request) {
		payload := requireSignedRequest(t, r)
		submitted = payload["Amount"].(float64)
		writeSigned(w, `{"RefundId":"r-1"}`)
	})

	intent := OrderIntent{
		OrderRef:      "1001",
		TransactionID: "tx-1",
		Currency:      "USD",
	}

	result, err := testClient(t, mux).Refund(context.Background(), intent, dec(t, "99.98"))
	require.NoError(t, err)
	require.Equal(t, "r-1", result.RefundID)
	require.Equal(t, "100.00", result.Plan.Final.String())
	require.Equal(t, float64(100), submitted)
}

func TestPaymentMethods(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /getPaymentMethods", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "m1", r.URL.Query().Get("MerchantId"))
		require.Equal(t, "JP", r.URL.Query().Get("Country"))
		w.Write([]byte(`{"PaymentMethods":[{"Name":"VISA","Class":"Card"}]}`))
	})

	methods, err := testClient(t, mux).PaymentMethods(context.Background(), "JP", "JPY")
	require.NoError(t, err)
	require.Len(t, methods, 1)
	require.Equal(t, "VISA", methods[0].Name)
}

func TestStashWarningFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /stash/m1/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"StashId":"","Warnings":["CardNumberInvalid"]}`))
	})

	_, err := testClient(t, mux).Stash(context.Background(), Card{Number: "4111111111111111"}, "fp")
	require.ErrorContains(t, err, "CardNumberInvalid")
}
