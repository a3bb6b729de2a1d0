package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// stubProvider points the client at a test server and passes bodies
// through untouched.
type stubProvider struct {
	url string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) BuildURL(baseURL string) string { return s.url }

func (s *stubProvider) SetHeaders(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer test")
	return nil
}

func (s *stubProvider) BuildRequestBody(model string, messages []Message, _ *float64, _ int) ([]byte, error) {
	return []byte(`{"model":"` + model + `"}`), nil
}

func (s *stubProvider) ParseResponse(body []byte, model string) (*Response, error) {
	return &Response{Content: string(body), Model: model}, nil
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        5 * time.Millisecond,
	}
}

func newTestClient(url string) *Client {
	c, _ := NewClient("stub", "", "test-model", WithRetryConfig(fastRetry()))
	c.provider = &stubProvider{url: url}
	return c
}

func init() {
	RegisterProvider(&stubProvider{})
}

func TestCompleteRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q", resp.Content)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestCompleteFatalStopsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil {
		t.Fatal("Complete() error = nil")
	}
	if !IsFatal(err) {
		t.Errorf("IsFatal(%v) = false", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

func TestCompleteExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil {
		t.Fatal("Complete() error = nil")
	}
	if !IsTransient(err) {
		t.Errorf("IsTransient(%v) = false", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestCompleteRequiresMessages(t *testing.T) {
	t.Parallel()

	c := newTestClient("http://unused")
	if _, err := c.Complete(context.Background(), Request{}); err == nil {
		t.Error("Complete() with no messages: error = nil")
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("no-such-provider", "", "m"); err == nil {
		t.Error("NewClient() error = nil")
	}
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	c := &Client{retryConfig: RetryConfig{
		MaxAttempts:       5,
		BackoffBase:       100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        300 * time.Millisecond,
	}}

	// Jitter is +/-25%, so check ranges rather than exact values.
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond}, // capped: 400ms > MaxBackoff
		{4, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		got := c.calculateBackoff(tt.attempt)
		lo := time.Duration(float64(tt.expected) * 0.74)
		hi := time.Duration(float64(tt.expected) * 1.26)
		if got < lo || got > hi {
			t.Errorf("calculateBackoff(%d) = %v, want within [%v, %v]", tt.attempt, got, lo, hi)
		}
	}
}

func TestClassifyHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		err := classifyHTTPError(tt.status, []byte("body"))
		if got := IsTransient(err); got != tt.transient {
			t.Errorf("classifyHTTPError(%d): transient = %v, want %v", tt.status, got, tt.transient)
		}
	}
}
