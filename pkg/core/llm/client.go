package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"promptsmith/pkg/core/utils"
)

// ErrTimeout marks a call that exhausted its retry budget on timeout-class
// failures; the HTTP layer maps it to 504.
var ErrTimeout = errors.New("llm upstream timeout")

const (
	DefaultTimeout   = 180 * time.Second
	DefaultAttempts  = 2
	DefaultBaseDelay = 2 * time.Second
)

// Client wraps a Provider with the per-call timeout and bounded-retry policy
// applied to every outbound orchestration call. Retries fire only for
// transient transport failures; schema/contract failures surface immediately.
type Client struct {
	Provider  Provider
	Timeout   time.Duration
	Attempts  int
	BaseDelay time.Duration
	// DefaultOptions are merged under the per-call options of every request,
	// typically the upstream model selection from the catalog.
	DefaultOptions map[string]interface{}
	// OnRetry, when set, is told about each retry attempt so the caller can
	// push an llm_retry stage notification.
	OnRetry func(attempt int)
}

// NewClient returns a Client with the documented defaults filled in.
func NewClient(p Provider) *Client {
	return &Client{
		Provider:  p,
		Timeout:   DefaultTimeout,
		Attempts:  DefaultAttempts,
		BaseDelay: DefaultBaseDelay,
	}
}

// Generate runs one provider call under the timeout/retry policy and returns
// the raw text response.
func (c *Client) Generate(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	baseDelay := c.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	if len(c.DefaultOptions) > 0 {
		merged := map[string]interface{}{}
		for k, v := range c.DefaultOptions {
			merged[k] = v
		}
		for k, v := range options {
			merged[k] = v
		}
		options = merged
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if c.OnRetry != nil {
				c.OnRetry(attempt)
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt-1) * baseDelay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := c.Provider.GenerateResponse(callCtx, prompt, c.Provider.AdaptInstructions(systemPrompt), options)
		cancel()
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return "", err
		}
		fmt.Printf("[WARNING] LLM call attempt %d/%d failed (retryable): %v\n", attempt, attempts, err)
	}

	if isTimeoutClass(lastErr) {
		return "", fmt.Errorf("%w after %d attempts: %v", ErrTimeout, attempts, lastErr)
	}
	return "", fmt.Errorf("llm call failed after %d attempts: %w", attempts, lastErr)
}

// GenerateObject runs Generate in JSON mode and normalizes the duck-typed
// response (fenced, repaired, or lenient JSON) into out via SmartParse. A
// parse failure is a hard contract violation, not a retryable transport error.
func (c *Client) GenerateObject(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}, out interface{}) error {
	if options == nil {
		options = map[string]interface{}{}
	}
	options["response_format"] = "json"

	raw, err := c.Generate(ctx, prompt, systemPrompt, options)
	if err != nil {
		return err
	}
	if _, err := utils.SmartParse(raw, out); err != nil {
		return fmt.Errorf("LLM_SCHEMA_VIOLATION: %v (raw fragment: %.120s)", err, raw)
	}
	return nil
}

// IsRetryable classifies transient transport failures: timeouts, connection
// resets, and DNS hiccups. Everything else (auth, quota, schema) is terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if isTimeoutClass(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "temporary failure in name resolution")
}

// IsTimeout reports whether err is the exhausted-timeout terminal error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || isTimeoutClass(err)
}

func isTimeoutClass(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
