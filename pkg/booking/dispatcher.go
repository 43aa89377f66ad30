package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ethanbaker/receptionist/pkg/appointment"
	"github.com/ethanbaker/receptionist/pkg/tenant"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultDedupeTTL = 24 * time.Hour

	// IdempotencyHeader carries the idempotency key to the booking endpoint
	IdempotencyHeader = "Idempotency-Key"

	// maxBodyBytes bounds how much of a webhook response is kept
	maxBodyBytes = 1 << 20
)

// Options configures a Dispatcher
type Options struct {
	Timeout    time.Duration
	DedupeTTL  time.Duration
	HTTPClient *http.Client
}

type cachedResult struct {
	result  Result
	expires time.Time
}

// Dispatcher posts appointment requests to tenant webhooks. Requests are never retried;
// successful results are remembered per idempotency key so a repeated directive is not
// booked twice
type Dispatcher struct {
	httpClient *http.Client
	dedupeTTL  time.Duration
	now        func() time.Time

	mu   sync.Mutex
	seen map[string]cachedResult
}

// NewDispatcher creates a new booking dispatcher
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = DefaultDedupeTTL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Dispatcher{
		httpClient: opts.HTTPClient,
		dedupeTTL:  opts.DedupeTTL,
		now:        time.Now,
		seen:       make(map[string]cachedResult),
	}
}

// Book sends the request to the tenant's webhook. Failures are reported in the Result, so
// Book never returns an error
func (d *Dispatcher) Book(ctx context.Context, profile tenant.Profile, req appointment.Request, idempotencyKey string) Result {
	if !profile.HasWebhook() {
		return Result{Success: false, Reason: ErrNoEndpoint.Error()}
	}

	if cached, ok := d.lookup(idempotencyKey); ok {
		return cached
	}

	result := d.post(ctx, profile, req, idempotencyKey)
	if result.Success {
		d.remember(idempotencyKey, result)
	}

	return result
}

func (d *Dispatcher) post(ctx context.Context, profile tenant.Profile, req appointment.Request, idempotencyKey string) Result {
	body, err := json.Marshal(Payload{
		BusinessName: profile.BusinessName,
		ClientPhone:  profile.PhoneNumber,
		Appointment:  req,
		Timestamp:    d.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Result{Reason: fmt.Sprintf("failed to encode booking payload: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, profile.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return Result{Reason: fmt.Sprintf("failed to create booking request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		httpReq.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return Result{Reason: fmt.Sprintf("booking request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode != http.StatusOK {
		return Result{
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("booking endpoint returned status %d", resp.StatusCode),
		}
	}

	// Only a 200 with a JSON body confirms the booking
	trimmed := bytes.TrimSpace(respBody)
	if !json.Valid(trimmed) {
		return Result{StatusCode: resp.StatusCode, Reason: "booking endpoint returned invalid JSON response"}
	}

	return Result{Success: true, StatusCode: resp.StatusCode, Payload: json.RawMessage(trimmed)}
}

func (d *Dispatcher) lookup(key string) (Result, bool) {
	if key == "" {
		return Result{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cached, ok := d.seen[key]
	if !ok {
		return Result{}, false
	}
	if d.now().After(cached.expires) {
		delete(d.seen, key)
		return Result{}, false
	}
	return cached.result, true
}

func (d *Dispatcher) remember(key string, result Result) {
	if key == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, v := range d.seen {
		if now.After(v.expires) {
			delete(d.seen, k)
		}
	}
	d.seen[key] = cachedResult{result: result, expires: now.Add(d.dedupeTTL)}
}
