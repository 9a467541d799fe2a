package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	"github.com/mohammed-shakir/street-resolver/internal/resolver"
)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, q model.RawQuery) (resolver.Result, error) {
	return resolver.Result{Meta: resolver.Meta{Target: q.StreetName}}, nil
}

func TestHandler_Routes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(Handler(logger, stubResolver{}, Options{Metrics: true}))
	defer srv.Close()

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/resolve?street=Colon&lat=10.29&lon=123.9", http.StatusOK},
		{http.MethodGet, "/resolve?street=Colon", http.StatusBadRequest},
		{http.MethodPost, "/resolve", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(tc.method, srv.URL+tc.path, strings.NewReader(""))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %s: status=%d want %d", tc.method, tc.path, resp.StatusCode, tc.want)
		}
	}
}

func TestHandler_MetricsCanBeDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rr := httptest.NewRecorder()
	Handler(logger, stubResolver{}, Options{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}

type slowResolver struct{ delay time.Duration }

func (s slowResolver) Resolve(ctx context.Context, q model.RawQuery) (resolver.Result, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return resolver.Result{}, ctx.Err()
	}
	return resolver.Result{Meta: resolver.Meta{Target: q.StreetName}}, nil
}

func serveWith(t *testing.T, res resolver.Interface, opts Options) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := newHTTPServer(ln.Addr().String(), logger, res, opts)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return "http://" + ln.Addr().String()
}

func TestRun_SlowResolutionWithinWriteTimeoutStillAnswers(t *testing.T) {
	base := serveWith(t, slowResolver{delay: 400 * time.Millisecond}, Options{WriteTimeout: 2 * time.Second})

	resp, err := http.Get(base + "/resolve?street=Rizal&lat=10.29&lon=123.88")
	if err != nil {
		t.Fatalf("caller got no result: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var out resolver.Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("body is not a result object: %v", err)
	}
	if out.Matched || out.Meta.Target != "Rizal" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestRun_WriteTimeoutShorterThanResolutionDropsResponse(t *testing.T) {
	base := serveWith(t, slowResolver{delay: 600 * time.Millisecond}, Options{WriteTimeout: 150 * time.Millisecond})

	resp, err := http.Get(base + "/resolve?street=Rizal&lat=10.29&lon=123.88")
	if err == nil {
		_, err = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected the configured write timeout to cut the response")
	}
}

func TestWriteTimeoutFor_CoversEveryTierAndMirror(t *testing.T) {
	got := WriteTimeoutFor(3, 3, 30*time.Second)
	if got < 270*time.Second {
		t.Fatalf("write timeout %s shorter than 3 tiers x 3 mirrors x 30s", got)
	}
	if got := WriteTimeoutFor(0, 3, time.Second); got != defaultWriteTimeout {
		t.Fatalf("zero tiers: got %s want default", got)
	}
}
