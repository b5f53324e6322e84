package reach

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef"

func TestSignDeterministic(t *testing.T) {
	body := []byte(`{"MerchantId":"m1","OrderId":"o1"}`)
	require.Equal(t, Sign(body, testSecret), Sign(body, testSecret))
	require.NotEqual(t, Sign(body, testSecret), Sign(body, "another-secret"))
}

func TestVerifyPostBody(t *testing.T) {
	response := `{"OrderId":"abc","Captured":true}`
	raw := url.Values{
		"response":  {response},
		"signature": {Sign([]byte(response), testSecret)},
	}.Encode()

	payload, err := VerifyPostBody([]byte(raw), testSecret)
	require.NoError(t, err)
	require.JSONEq(t, response, string(payload))
}

func TestVerifyPostBodyTampered(t *testing.T) {
	response := `{"OrderId":"abc","Captured":true}`
	tampered := `{"OrderId":"abc","Captured":false}`
	raw := url.Values{
		"response":  {tampered},
		"signature": {Sign([]byte(response), testSecret)},
	}.Encode()

	_, err := VerifyPostBody([]byte(raw), testSecret)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestVerifyPostBodyMissingFields(t *testing.T) {
	_, err := VerifyPostBody([]byte("response="), testSecret)
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = VerifyPostBody([]byte("%zz"), testSecret)
	require.Error(t, err)
}

func TestVerifyNotificationStripsSlashes(t *testing.T) {
	body := `{"OrderId":"abc","OrderState":"Processed"}`
	escaped := `{\"OrderId\":\"abc\",\"OrderState\":\"Processed\"}`

	// the signature covers the unescaped JSON
	payload, err := VerifyNotification(escaped, Sign([]byte(body), testSecret), testSecret)
	require.NoError(t, err)
	require.JSONEq(t, body, string(payload))
}

func TestVerifyNotificationRejectsBadSignature(t *testing.T) {
	body := `{"OrderId":"abc"}`
	_, err := VerifyNotification(body, "bm90IGEgc2lnbmF0dXJl", testSecret)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestVerifyReturnQuery(t *testing.T) {
	body := `{"OrderId":"abc","Captured":true}`
	q := url.Values{
		"response":  {body},
		"signature": {Sign([]byte(body), testSecret)},
	}

	payload, err := VerifyReturnQuery(q, testSecret)
	require.NoError(t, err)
	require.JSONEq(t, body, string(payload))
}

func TestStripSlashes(t *testing.T) {
	require.Equal(t, `{"a":"b"}`, stripSlashes(`{\"a\":\"b\"}`))
	require.Equal(t, `back\slash`, stripSlashes(`back\\slash`))
	require.Equal(t, "plain", stripSlashes("plain"))
	require.Equal(t, "trailing", stripSlashes(`trailing\`))
}
