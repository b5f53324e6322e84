package reach

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidResponse marks a response or callback whose signature did not
// verify. Nothing from such a payload may be trusted.
var ErrInvalidResponse = errors.New("invalid response")

// Sign computes the base64 HMAC-SHA256 signature over body. The body must be
// the exact byte sequence that is transmitted; any re-serialization breaks
// verification on the other side.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signatureMatches(payload []byte, signature, secret string) bool {
	want := Sign(payload, secret)
	return hmac.Equal([]byte(want), []byte(signature))
}

// SignedEnvelope carries a canonical JSON body together with its signature.
type SignedEnvelope struct {
	Body      []byte
	Signature string
}

func seal(payload any, secret string) (SignedEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SignedEnvelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	return SignedEnvelope{Body: body, Signature: Sign(body, secret)}, nil
}

// VerifyPostBody parses an x-www-form-urlencoded response entity with
// `response` and `signature` fields, recomputes the signature over the decoded
// JSON string and returns the JSON only when the signatures match exactly.
func VerifyPostBody(raw []byte, secret string) (json.RawMessage, error) {
	vals, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse response entity: %w", err)
	}
	response := vals.Get("response")
	signature := vals.Get("signature")
	if response == "" || signature == "" {
		return nil, ErrInvalidResponse
	}
	if !signatureMatches([]byte(response), signature, secret) {
		return nil, ErrInvalidResponse
	}
	return json.RawMessage(response), nil
}

// VerifyNotification verifies an asynchronous notification whose fields arrive
// already form-decoded. The JSON string is delivered with erroneous backslash
// escapes which must be removed before hashing.
func VerifyNotification(request, signature, secret string) (json.RawMessage, error) {
	body := stripSlashes(request)
	if body == "" || signature == "" {
		return nil, ErrInvalidResponse
	}
	if !signatureMatches([]byte(body), signature, secret) {
		return nil, ErrInvalidResponse
	}
	return json.RawMessage(body), nil
}

// VerifyReturnQuery verifies the `response` and `signature` fields of a
// return-URL query string.
func VerifyReturnQuery(q url.Values, secret string) (json.RawMessage, error) {
	return VerifyNotification(q.Get("response"), q.Get("signature"), secret)
}

// stripSlashes removes one level of backslash escaping: \" -> ", \\ -> \.
func stripSlashes(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			if i < len(s) {
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
