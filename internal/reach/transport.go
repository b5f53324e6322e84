package reach

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// transport performs the HTTP exchanges and maps transport and HTTP failures
// to uniform errors. It never retries; synchronous checkout flows fail fast
// and surface the error to the shopper.
type transport struct {
	rest   *resty.Client
	secret string
	logger *zap.SugaredLogger
}

func newTransport(secret string, timeout time.Duration, logger *zap.SugaredLogger) *transport {
	return &transport{
		rest:   resty.New().SetTimeout(timeout),
		secret: secret,
		logger: logger,
	}
}

// get issues an unsigned informational GET. Only HTTP 200 is success and the
// body is decoded as JSON directly.
func (t *transport) get(ctx context.Context, url string, params map[string]string, out any) error {
	resp, err := t.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return fmt.Errorf("gateway get: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return t.httpError(resp)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// post sends a signed envelope as `request`/`signature` form fields. On HTTP
// 200 the response entity is signature-verified before any field is trusted.
func (t *transport) post(ctx context.Context, url string, env SignedEnvelope, out any) error {
	resp, err := t.rest.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"request":   string(env.Body),
			"signature": env.Signature,
		}).
		Post(url)
	if err != nil {
		return fmt.Errorf("gateway post: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return t.httpError(resp)
	}
	payload, err := VerifyPostBody(resp.Body(), t.secret)
	if err != nil {
		t.logger.Errorw("response signature verification failed", "url", url)
		return ErrInvalidResponse
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postStash sends plain form fields to a one-time stash path. Stash responses
// are not signed; HTTP 200 bodies are decoded directly.
func (t *transport) postStash(ctx context.Context, url string, fields map[string]string, out any) error {
	resp, err := t.rest.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(url)
	if err != nil {
		return fmt.Errorf("gateway stash post: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return t.httpError(resp)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode stash response: %w", err)
	}
	return nil
}

func (t *transport) httpError(resp *resty.Response) error {
	// 502s come back as an un-styled proxy error page, seen when calling the
	// stash sandbox.
	if resp.StatusCode() == http.StatusBadGateway {
		return fmt.Errorf("network error, please try again later")
	}
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		return fmt.Errorf("response error - status %d", resp.StatusCode())
	}
	return fmt.Errorf("response error - status %d: %s", resp.StatusCode(), body)
}
