package horizon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client against the Horizon REST API.
type HTTPClient struct {
	baseURL     string
	client      *http.Client
	limiter     *RateLimiter
	maxAttempts int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxAttempts sets the total attempt budget per request.
func WithMaxAttempts(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxAttempts = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithRateLimiter sets the request throttle shared across callers.
func WithRateLimiter(l *RateLimiter) ClientOption {
	return func(c *HTTPClient) {
		c.limiter = l
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a Horizon client with bounded retries and a
// sliding-window request throttle.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     NewRateLimiter(DefaultRateLimit, time.Second),
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// embeddedPage is the Horizon HAL page envelope.
type embeddedPage struct {
	Embedded struct {
		Records []json.RawMessage `json:"records"`
	} `json:"_embedded"`
}

// get performs one Horizon GET with throttling, retries, and exponential
// backoff. Not-found and bad-request responses surface immediately.
func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, result any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			// Not retryable.
			return ErrNotFound
		case resp.StatusCode == http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrBadRequest, string(respBody))
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode != http.StatusOK:
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		return nil
	}

	return fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}

// getPage fetches a HAL page and returns its raw records.
func (c *HTTPClient) getPage(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	var page embeddedPage
	if err := c.get(ctx, path, query, &page); err != nil {
		return nil, err
	}
	return page.Embedded.Records, nil
}

func pageQuery(cursor string, limit int, order string) url.Values {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		if limit > MaxPageLimit {
			limit = MaxPageLimit
		}
		q.Set("limit", strconv.Itoa(limit))
	}
	q.Set("order", order)
	return q
}

// Account retrieves one account with its balances.
func (c *HTTPClient) Account(ctx context.Context, address string) (*AccountRecord, error) {
	var record AccountRecord
	err := c.get(ctx, "/accounts/"+url.PathEscape(address), nil, &record)
	if err == ErrNotFound {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Transactions retrieves a transaction page in ascending order after cursor.
func (c *HTTPClient) Transactions(ctx context.Context, cursor string, limit int) ([]TransactionRecord, error) {
	raws, err := c.getPage(ctx, "/transactions", pageQuery(cursor, limit, "asc"))
	if err != nil {
		return nil, err
	}
	return decodeTransactions(raws)
}

// Operations retrieves an operation page in ascending order after cursor.
func (c *HTTPClient) Operations(ctx context.Context, cursor string, limit int) ([]OperationRecord, error) {
	raws, err := c.getPage(ctx, "/operations", pageQuery(cursor, limit, "asc"))
	if err != nil {
		return nil, err
	}
	return decodeOperations(raws)
}

// TransactionByHash retrieves one transaction by network hash.
func (c *HTTPClient) TransactionByHash(ctx context.Context, hash string) (*TransactionRecord, error) {
	var record TransactionRecord
	if err := c.get(ctx, "/transactions/"+url.PathEscape(hash), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// TransactionOperations retrieves all operations of one transaction.
func (c *HTTPClient) TransactionOperations(ctx context.Context, hash string) ([]OperationRecord, error) {
	path := "/transactions/" + url.PathEscape(hash) + "/operations"
	raws, err := c.getPage(ctx, path, pageQuery("", MaxPageLimit, "asc"))
	if err != nil {
		return nil, err
	}
	return decodeOperations(raws)
}

// AccountTransactions retrieves the most recent transactions of one account.
func (c *HTTPClient) AccountTransactions(ctx context.Context, address string, limit int) ([]TransactionRecord, error) {
	path := "/accounts/" + url.PathEscape(address) + "/transactions"
	raws, err := c.getPage(ctx, path, pageQuery("", limit, "desc"))
	if err != nil {
		return nil, err
	}
	return decodeTransactions(raws)
}

func decodeTransactions(raws []json.RawMessage) ([]TransactionRecord, error) {
	records := make([]TransactionRecord, 0, len(raws))
	for _, raw := range raws {
		var record TransactionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal transaction record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// decodeOperations decodes each record twice: into the typed struct and into
// a generic map kept as the durable raw form.
func decodeOperations(raws []json.RawMessage) ([]OperationRecord, error) {
	records := make([]OperationRecord, 0, len(raws))
	for _, raw := range raws {
		var record OperationRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal operation record: %w", err)
		}
		if err := json.Unmarshal(raw, &record.Raw); err != nil {
			return nil, fmt.Errorf("unmarshal raw operation record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}
