package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/malbeclabs/floodgen/internal/metrics"
	"github.com/malbeclabs/floodgen/pkg/flood"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultPacketsPerBurst = 1
	defaultPauseMs         = 0
	defaultReportInterval  = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	showVersionFlag := flag.Bool("version", false, "show version and exit")
	verboseFlag := flag.Bool("verbose", false, "verbose mode - show debug logs")
	ifaceFlag := flag.String("iface", "", "interface to bind the outbound socket to (default: OS routing)")
	continueOnErrorFlag := flag.Bool("continue-on-error", false, "log and continue on send errors instead of exiting")
	reportIntervalFlag := flag.Duration("report-interval", defaultReportInterval, "interval between throughput summary logs (0 disables)")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to listen on for prometheus metrics (empty disables)")
	flag.Parse()

	if *showVersionFlag {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		os.Exit(0)
	}

	log := newLogger(*verboseFlag)

	if flag.NArg() < 1 || flag.NArg() > 3 {
		fmt.Fprintf(os.Stderr, "Usage: floodgen [flags] host:port [packets_per_burst] [pause_ms]\n")
		os.Exit(1)
	}

	dest, packetsPerBurst, pause, err := parseArgs(flag.Args())
	if err != nil {
		log.Error("Invalid arguments", "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Set up prometheus metrics server if enabled.
	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("Failed to start prometheus metrics server listener", "error", err)
				os.Exit(1)
			}
			log.Info("Prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("Failed to start prometheus metrics server", "error", err)
				os.Exit(1)
			}
		}()
	}

	flooder, err := flood.New(ctx, log, &flood.Config{
		Clock:           clockwork.NewRealClock(),
		PacketsPerBurst: packetsPerBurst,
		Pause:           pause,
		ContinueOnError: *continueOnErrorFlag,
		ReportEvery:     *reportIntervalFlag,
		Iface:           *ifaceFlag,
	}, dest)
	if err != nil {
		log.Error("Failed to create flooder", "error", err)
		return err
	}
	defer flooder.Close()

	log.Info("Flooding",
		"destination", dest,
		"packetsPerBurst", packetsPerBurst,
		"pause", pause,
		"payloadBytes", flood.PayloadSize,
	)

	errCh := flooder.Start(ctx)
	select {
	case err := <-errCh:
		if err != nil {
			log.Error("flooder: error", "error", err)
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	return nil
}

// parseArgs parses the positional command line: host:port, then optionally
// packets_per_burst (default 1) and pause_ms (default 0).
func parseArgs(args []string) (*net.UDPAddr, int, time.Duration, error) {
	dest, err := resolveDestination(args[0])
	if err != nil {
		return nil, 0, 0, err
	}

	packetsPerBurst := defaultPacketsPerBurst
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 31)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("invalid packets_per_burst %q: %w", args[1], err)
		}
		packetsPerBurst = int(n)
	}

	pauseMs := uint64(defaultPauseMs)
	if len(args) > 2 {
		pauseMs, err = strconv.ParseUint(args[2], 10, 31)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("invalid pause_ms %q: %w", args[2], err)
		}
	}

	return dest, packetsPerBurst, time.Duration(pauseMs) * time.Millisecond, nil
}

// resolveDestination resolves host:port once at startup; the first resolved
// address wins and is used for the process lifetime.
func resolveDestination(addr string) (*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", addr, err)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %s: %w", portStr, err)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, errors.New("no IP addresses found for " + host)
	}

	return &net.UDPAddr{IP: ips[0], Port: int(port)}, nil
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(formatRFC3339Millis(t))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	base := t.Format("2006-01-02T15:04:05")
	ms := t.Nanosecond() / 1_000_000
	return fmt.Sprintf("%s.%03dZ", base, ms)
}
