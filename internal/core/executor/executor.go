// Package executor runs Overpass queries against an ordered list of mirrors.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	"github.com/mohammed-shakir/street-resolver/internal/core/observability"
	"github.com/mohammed-shakir/street-resolver/internal/core/overpass"
)

const maxBody = 64 << 20

type Interface interface {
	Query(ctx context.Context, ql string) ([]model.Candidate, error)
}

type Executor struct {
	logger    *slog.Logger
	client    *http.Client
	endpoints []*url.URL
	timeout   time.Duration
}

var _ Interface = (*Executor)(nil)

func New(logger *slog.Logger, client *http.Client, endpoints []string, timeout time.Duration) (*Executor, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("at least one overpass endpoint is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	us := make([]*url.URL, 0, len(endpoints))
	for _, ep := range endpoints {
		u, err := url.Parse(strings.TrimSpace(ep))
		if err != nil {
			return nil, fmt.Errorf("parse endpoint %q: %w", ep, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("endpoint %q must be an absolute url", ep)
		}
		us = append(us, u)
	}
	return &Executor{
		logger:    logger,
		client:    client,
		endpoints: us,
		timeout:   timeout,
	}, nil
}

// Query tries each mirror in order until one returns a well-formed payload.
// When every mirror fails the error wraps overpass.ErrUpstreamUnavailable;
// a canceled ctx is returned as is.
func (e *Executor) Query(ctx context.Context, ql string) ([]model.Candidate, error) {
	var errs []error
	for _, u := range e.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("overpass query: %w", err)
		}
		cands, reason, err := e.try(ctx, u, ql)
		if err == nil {
			return cands, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("overpass query: %w", ctxErr)
		}
		observability.IncUpstreamFailure(u.Host, reason)
		e.logger.WarnContext(ctx, "overpass endpoint failed, trying next",
			"endpoint", u.Host, "reason", reason, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", u.Host, err))
	}
	return nil, fmt.Errorf("%w: %w", overpass.ErrUpstreamUnavailable, errors.Join(errs...))
}

func (e *Executor) try(parent context.Context, u *url.URL, ql string) ([]model.Candidate, string, error) {
	ctx := parent
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, e.timeout)
		defer cancel()
	}

	form := url.Values{}
	form.Set("data", ql)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "transport", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "timeout", fmt.Errorf("do request: %w", err)
		}
		return nil, "transport", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, "status", fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "timeout", fmt.Errorf("read body: %w", err)
		}
		return nil, "transport", fmt.Errorf("read body: %w", err)
	}
	dur := time.Since(start)
	observability.ObserveUpstreamLatency(u.Host, dur.Seconds())

	cands, err := overpass.Decode(body)
	if err != nil {
		return nil, "decode", err
	}
	e.logger.DebugContext(parent, "overpass query done",
		"endpoint", u.Host, "status", resp.StatusCode,
		"candidates", len(cands), "duration", dur.String())
	return cands, "", nil
}
