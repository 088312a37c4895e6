package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	xhttp "github.com/Harry166/stro/pkg/http"
)

// HTTPServiceBase holds the client and base URL shared by model-service adapters.
type HTTPServiceBase struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
}

// NewHTTPServiceBase builds a client for the model service at baseURL.
func NewHTTPServiceBase(baseURL string, timeout time.Duration, attempts int) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if attempts < 1 {
		attempts = 1
	}
	return &HTTPServiceBase{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: attempts,
	}
}

// PostJSON posts payload to path under baseURL and decodes JSON into dest.
// Transport errors and 5xx answers are retried with a linear backoff; 4xx are not.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b == nil || b.client == nil || b.baseURL == "" {
		return fmt.Errorf("model service client not initialized")
	}

	var err error
	for i := 1; i <= b.attempts; i++ {
		err = b.client.PostJSON(ctx, b.baseURL+path, payload, dest)
		if err == nil {
			return nil
		}
		if xhttp.IsStatus(err, 400, 404, 413, 422) || i == b.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("post %s: %w", path, err)
}
