// Package router turns HTTP requests into resolver calls.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	"github.com/mohammed-shakir/street-resolver/internal/core/observability"
	"github.com/mohammed-shakir/street-resolver/internal/resolver"
)

const maxFieldLen = 256

// validates query params, resolves and writes the result as JSON
func HandleResolve(logger *slog.Logger, res resolver.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/resolve", sw.code, time.Since(start).Seconds())
		}()

		q, err := ParseResolveRequest(r)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}

		out, err := res.Resolve(r.Context(), q)
		switch {
		case err == nil:
		case errors.Is(err, resolver.ErrInvalidInput):
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			logger.WarnContext(r.Context(), "resolution abandoned", "err", err)
			http.Error(sw, "request canceled", http.StatusRequestTimeout)
			return
		default:
			logger.ErrorContext(r.Context(), "resolution failed", "err", err)
			http.Error(sw, "resolution failed", http.StatusBadGateway)
			return
		}

		sw.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(sw).Encode(out); err != nil {
			logger.ErrorContext(r.Context(), "write response", "err", err)
		}
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// ParseResolveRequest reads street, city, barangay, lat and lon.
func ParseResolveRequest(r *http.Request) (model.RawQuery, error) {
	v := r.URL.Query()

	street := strings.TrimSpace(v.Get("street"))
	if street == "" {
		return model.RawQuery{}, errors.New("missing required parameter: street")
	}
	city := strings.TrimSpace(v.Get("city"))
	barangay := strings.TrimSpace(v.Get("barangay"))
	for name, s := range map[string]string{"street": street, "city": city, "barangay": barangay} {
		if len(s) > maxFieldLen {
			return model.RawQuery{}, fmt.Errorf("%s longer than %d bytes", name, maxFieldLen)
		}
	}

	lat, err := parseCoord(v.Get("lat"), "lat", 90)
	if err != nil {
		return model.RawQuery{}, err
	}
	lon, err := parseCoord(v.Get("lon"), "lon", 180)
	if err != nil {
		return model.RawQuery{}, err
	}

	return model.RawQuery{
		StreetName: street,
		City:       city,
		Barangay:   barangay,
		Point:      model.Point{Lat: lat, Lon: lon},
	}, nil
}

func parseCoord(raw, name string, limit float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: parse float: %w", name, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < -limit || f > limit {
		return 0, fmt.Errorf("%s must be in [-%g,%g]", name, limit, limit)
	}
	return f, nil
}
