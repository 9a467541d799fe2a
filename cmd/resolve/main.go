// Command resolve resolves one street name from the command line and prints
// the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/street-resolver/internal/canon"
	"github.com/mohammed-shakir/street-resolver/internal/core/executor"
	"github.com/mohammed-shakir/street-resolver/internal/core/httpclient"
	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	"github.com/mohammed-shakir/street-resolver/internal/core/overpass"
	"github.com/mohammed-shakir/street-resolver/internal/logger"
	"github.com/mohammed-shakir/street-resolver/internal/resolver"
	"github.com/mohammed-shakir/street-resolver/internal/retriever"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exit codes: 0 matched, 1 unmatched, 2 usage or invalid input, 3 failure
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	street := fs.String("street", "", "street name as written by the user (required)")
	city := fs.String("city", "", "city or municipality")
	barangay := fs.String("barangay", "", "barangay or district")
	lat := fs.Float64("lat", 0, "latitude in WGS84 degrees (required)")
	lon := fs.Float64("lon", 0, "longitude in WGS84 degrees (required)")
	endpoints := fs.String("endpoints", "", "comma-separated Overpass interpreter URLs")
	timeout := fs.Duration("timeout", 25*time.Second, "per-endpoint timeout")
	radius := fs.Float64("radius", 1500, "search radius in meters")
	threshold := fs.Float64("threshold", 0.4, "minimum score for a match")
	pretty := fs.Bool("pretty", false, "indent JSON output")
	logLevel := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*street) == "" {
		_, _ = fmt.Fprintln(stderr, "resolve: -street is required")
		fs.Usage()
		return 2
	}
	latSet, lonSet := false, false
	fs.Visit(func(f *flag.Flag) {
		latSet = latSet || f.Name == "lat"
		lonSet = lonSet || f.Name == "lon"
	})
	if !latSet || !lonSet {
		_, _ = fmt.Fprintln(stderr, "resolve: -lat and -lon are required")
		return 2
	}

	zl := logger.Build(logger.Config{Level: *logLevel, Console: true, Component: "cli"}, stderr)
	log := logger.NewSlog(&zl)

	urls := overpass.DefaultEndpoints
	if *endpoints != "" {
		urls = nil
		for u := range strings.SplitSeq(*endpoints, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
	}
	exec, err := executor.New(log, httpclient.NewOutbound(*timeout+5*time.Second), urls, *timeout)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "resolve:", err)
		return 2
	}

	rcfg := retriever.DefaultConfig()
	rcfg.Radius = *radius
	rcfg.TimeoutSec = int(timeout.Seconds())
	res := resolver.New(log, retriever.New(log, exec, rcfg), resolver.Config{
		Threshold:       *threshold,
		ProximityWeight: resolver.DefaultConfig().ProximityWeight,
		Aliases:         canon.DefaultAliases,
	})

	out, err := res.Resolve(ctx, model.RawQuery{
		StreetName: *street,
		City:       *city,
		Barangay:   *barangay,
		Point:      model.Point{Lat: *lat, Lon: *lon},
	})
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "resolve:", err)
		if errors.Is(err, resolver.ErrInvalidInput) {
			return 2
		}
		return 3
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		_, _ = fmt.Fprintln(stderr, "resolve: write:", err)
		return 3
	}
	if !out.Matched {
		return 1
	}
	return 0
}
