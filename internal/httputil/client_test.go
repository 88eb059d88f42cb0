package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStandardClientSetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewStandardClient(time.Second)
	req, _ := http.NewRequest(http.MethodHead, srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()

	if got != UserAgent {
		t.Errorf("User-Agent = %q, want %q", got, UserAgent)
	}
	if c.Timeout != time.Second {
		t.Errorf("Timeout = %v, want 1s", c.Timeout)
	}
}

func TestMockHTTPClientQueue(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponseWithHeaders(http.StatusOK, `{"states":[]}`, http.Header{"X-Rate-Limit-Remaining": {"399"}})
	mock.AddError(errors.New("connection reset"))
	mock.AddResponse(http.StatusServiceUnavailable, "")

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/api/states/all", nil)

	resp, err := mock.Do(req)
	if err != nil {
		t.Fatalf("first Do failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"states":[]}` {
		t.Errorf("body = %q", body)
	}
	if resp.Header.Get("X-Rate-Limit-Remaining") != "399" {
		t.Errorf("missing rate limit header")
	}

	if _, err := mock.Do(req); err == nil {
		t.Error("expected queued error")
	}

	resp, err = mock.Do(req)
	if err != nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("third Do = %v, %v", resp, err)
	}

	// Exhausted queue answers 200.
	resp, err = mock.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("default Do = %v, %v", resp, err)
	}

	if mock.RequestCount() != 4 {
		t.Errorf("RequestCount = %d, want 4", mock.RequestCount())
	}
	if mock.Request(0) != req || mock.Request(9) != nil {
		t.Error("Request() did not return the recorded requests")
	}
}

func TestMockHTTPClientDoFunc(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("offline")
	}
	req, _ := http.NewRequest(http.MethodHead, "https://www.google.com", nil)
	if _, err := mock.Do(req); err == nil || err.Error() != "offline" {
		t.Errorf("Do error = %v, want offline", err)
	}
}
