package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultRetryBaseDelay = 3 * time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
)

// FetchError is returned once the upstream feed could not be fetched, either
// because of a non-transient status or because retries ran out.
type FetchError struct {
	URL        string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// errInvalidRequest marks a request that could not be built; retrying it
// cannot help.
var errInvalidRequest = errors.New("invalid request")

// statusError is a non-2xx response.
type statusError struct {
	StatusCode int
	Status     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error: %s", e.Status)
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isTransient treats the retryable statuses and transport failures such as
// refused connections or timeouts as worth another attempt.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, errInvalidRequest) {
		return false
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return isTransientStatus(statusErr.StatusCode)
	}
	return true
}

// fetchFeed GETs url, retrying transient failures with a delay that starts at
// the base delay and doubles up to the max delay.
func (t *BuildFeedTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	for {
		data, err := t.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}

		if !isTransient(ctx, err) || !t.CanRetry() {
			fetchErr := &FetchError{URL: url, Attempts: t.RetryCount + 1, Err: err}
			var statusErr *statusError
			if errors.As(err, &statusErr) {
				fetchErr.StatusCode = statusErr.StatusCode
			}
			return nil, fetchErr
		}

		t.IncrementRetryCount()
		retryDelay := t.retryDelay()

		slog.Warn("Fetch retry scheduled",
			"url", url,
			"retry_count", t.RetryCount,
			"max_retries", t.MaxRetries,
			"delay", retryDelay.String(),
			"error", err)

		if err := t.sleep(ctx, retryDelay); err != nil {
			return nil, &FetchError{URL: url, Attempts: t.RetryCount, Err: err}
		}
	}
}

func (t *BuildFeedTask) retryDelay() time.Duration {
	retryDelay := t.retryBaseDelay << uint(t.RetryCount-1)
	if retryDelay > t.retryMaxDelay || retryDelay <= 0 {
		retryDelay = t.retryMaxDelay
	}
	return retryDelay
}

func (t *BuildFeedTask) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w: %w", errInvalidRequest, err)
	}

	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
