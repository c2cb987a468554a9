package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Alpha200/ha-ai-tasker/pkg/retry"
)

type baseProvider struct {
	client  *http.Client
	retrier *retry.Retrier
	baseURL string
	apiKey  string
	model   string
}

func newBaseProvider(baseURL, apiKey, model string, opts options) baseProvider {
	return baseProvider{
		client: &http.Client{
			Timeout: opts.timeout,
		},
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    opts.maxRetries,
			BackoffFactor: 2,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			Jitter:        100 * time.Millisecond,
		}),
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// retryable reports whether a status is worth another attempt.
func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

func (b *baseProvider) doRequest(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	return resp, nil
}

// postJSON posts body and returns the raw answer, retrying network errors,
// rate limits and server errors.
func (b *baseProvider) postJSON(ctx context.Context, path string, body any, headers map[string]string) ([]byte, error) {
	var data []byte
	err := b.retrier.Do(ctx, func() error {
		resp, err := b.doRequest(ctx, http.MethodPost, path, body, headers)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			serr := &StatusError{Code: resp.StatusCode, Body: string(raw)}
			if serr.retryable() {
				return serr
			}
			return retry.Permanent(serr)
		}
		data = raw
		return nil
	})
	return data, err
}
