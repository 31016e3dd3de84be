package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoJSONSendsBearerAndDecodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want Bearer test-token", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer ts.Close()

	c := New(ts.Client(), "test-token", nil, 1, time.Millisecond, nil, nil, 0, false)

	var out struct {
		ID string `json:"id"`
	}
	resp, raw, err := c.DoJSON(context.Background(), http.MethodPost, ts.URL, map[string]string{"k": "v"}, &out)
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(raw) == 0 {
		t.Fatal("raw body is empty")
	}
	if out.ID != "abc" {
		t.Fatalf("out.ID = %q, want abc", out.ID)
	}
}

func TestDoJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := New(ts.Client(), "", nil, 3, time.Millisecond, nil, nil, 0, false)

	_, _, err := c.DoJSON(context.Background(), http.MethodPost, ts.URL, nil, nil)
	if err != nil {
		t.Fatalf("DoJSON after retries: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("server saw %d calls, want 3", got)
	}
}

func TestDoJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer ts.Close()

	c := New(ts.Client(), "", nil, 3, time.Millisecond, nil, nil, 0, false)

	_, _, err := c.DoJSON(context.Background(), http.MethodPost, ts.URL, nil, nil)
	var hs *HTTPStatusError
	if !errors.As(err, &hs) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if hs.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", hs.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("server saw %d calls, want 1", got)
	}
}

func TestDoJSONRetriesExhausted(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := New(ts.Client(), "", nil, 2, time.Millisecond, nil, nil, 0, false)

	_, _, err := c.DoJSON(context.Background(), http.MethodPost, ts.URL, nil, nil)
	var hs *HTTPStatusError
	if !errors.As(err, &hs) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("server saw %d calls, want 2", got)
	}
}

func TestDoJSONDefaultHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Custom"); got != "yes" {
			t.Errorf("X-Custom = %q, want yes", got)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := New(ts.Client(), "", nil, 1, time.Millisecond, map[string]string{"X-Custom": "yes"}, nil, 0, false)

	if _, _, err := c.DoJSON(context.Background(), http.MethodPost, ts.URL, nil, nil); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"500", &HTTPStatusError{StatusCode: 500}, true},
		{"429", &HTTPStatusError{StatusCode: 429}, true},
		{"501", &HTTPStatusError{StatusCode: 501}, false},
		{"404", &HTTPStatusError{StatusCode: 404}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := isRetryable(tc.err); got != tc.want {
			t.Errorf("isRetryable(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
