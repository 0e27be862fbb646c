package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
)

// apiError is a non-2xx answer from the ledger API.
type apiError struct {
	Status int
	Body   dto.ErrorResponse
}

func (e *apiError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Body.Error, e.Body.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Body.Error)
}

// apiClient talks to the ledger HTTP API.
type apiClient struct {
	baseURL    string
	http       *http.Client
	maxElapsed time.Duration
}

func newAPIClient(baseURL string, timeout, maxElapsed time.Duration) *apiClient {
	return &apiClient{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: timeout},
		maxElapsed: maxElapsed,
	}
}

// get fetches path with query and decodes the JSON answer into out. Busy answers are retried.
func (c *apiClient) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, target, nil, "", out, true)
}

// post sends body as JSON. It is retried on busy answers only when idempotencyKey is set,
// since the server can then replay a request that did go through.
func (c *apiClient) post(ctx context.Context, path string, body any, idempotencyKey string, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, raw, idempotencyKey, out, idempotencyKey != "")
}

func (c *apiClient) do(ctx context.Context, method, target string, body []byte, idempotencyKey string, out any, retry bool) error {
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if retry && c.maxElapsed > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 200 * time.Millisecond
		b.MaxElapsedTime = c.maxElapsed
		policy = b
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idempotencyKey != "" {
			req.Header.Set(middleware.IdempotencyKeyHeader, idempotencyKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &apiError{Status: resp.StatusCode}
			if json.Unmarshal(payload, &apiErr.Body) != nil || apiErr.Body.Error == "" {
				apiErr.Body.Error = http.StatusText(resp.StatusCode)
			}
			if resp.StatusCode == http.StatusServiceUnavailable {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse response: %w", err))
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
