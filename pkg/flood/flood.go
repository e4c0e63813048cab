// Package flood drives an unbounded sequence of burst-then-pause UDP send
// cycles against a fixed destination. It exists to synthesize bursty network
// load for a system under test downstream; delivery is best-effort and
// nothing is ever read back.
package flood

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/floodgen/internal/metrics"
	"github.com/malbeclabs/floodgen/pkg/udp"
)

const (
	// PayloadSize is the fixed size of every datagram sent.
	PayloadSize = 1000

	// PayloadByte is the value every payload byte is set to. Receivers treat
	// the datagram as an opaque load marker; the content only has to be
	// constant and non-zero.
	PayloadByte = 0x78
)

type Config struct {
	Clock  clockwork.Clock
	Dialer udp.Dialer // defaults to the standard dialer

	// PacketsPerBurst is the number of datagrams sent back-to-back per
	// burst. Zero is a legal degenerate case: an empty send phase followed
	// by the pause.
	PacketsPerBurst int

	// Pause is the idle interval after each burst. Zero means bursts are
	// emitted back-to-back, bounded only by send throughput.
	Pause time.Duration

	// ContinueOnError keeps the loop running across send failures instead
	// of aborting on the first one. Whichever policy is configured applies
	// uniformly to every iteration.
	ContinueOnError bool

	// ReportEvery is the interval between throughput summary log lines.
	// Zero disables reporting.
	ReportEvery time.Duration

	// Iface optionally binds the outbound socket to a named interface.
	Iface string

	// LocalAddr optionally pins the local address of the outbound socket.
	LocalAddr *net.UDPAddr
}

func (cfg *Config) Validate() error {
	if cfg.Clock == nil {
		return errors.New("clock is required")
	}
	if cfg.PacketsPerBurst < 0 {
		return errors.New("packets per burst must not be negative")
	}
	if cfg.Pause < 0 {
		return errors.New("pause must not be negative")
	}
	if cfg.ReportEvery < 0 {
		return errors.New("report interval must not be negative")
	}
	return nil
}

// Flooder owns one connected outbound UDP socket and sends the constant
// payload to its destination in bursts. It is a single logical flow: Run is
// not safe to call concurrently with itself.
type Flooder struct {
	log     *slog.Logger
	cfg     *Config
	remote  *net.UDPAddr
	conn    *net.UDPConn
	payload []byte
	once    sync.Once
}

// New validates the config and acquires the outbound socket. The socket is
// held for the Flooder's lifetime and released by Close on every exit path.
func New(ctx context.Context, log *slog.Logger, cfg *Config, remote *net.UDPAddr) (*Flooder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, errors.New("destination is required")
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = udp.NewStandardDialer()
	}
	conn, err := dialer.Dial(ctx, cfg.Iface, cfg.LocalAddr, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP: %w", err)
	}

	return &Flooder{
		log:     log,
		cfg:     cfg,
		remote:  remote,
		conn:    conn,
		payload: bytes.Repeat([]byte{PayloadByte}, PayloadSize),
	}, nil
}

func (f *Flooder) Close() error {
	var err error
	f.once.Do(func() {
		if f.conn != nil {
			err = f.conn.Close()
		}
	})
	return err
}

// LocalAddr returns the local address of the outbound socket.
func (f *Flooder) LocalAddr() net.Addr {
	return f.conn.LocalAddr()
}

// Start runs the send loop in a goroutine and surfaces its terminal error,
// if any, on the returned channel.
func (f *Flooder) Start(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := f.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Run sends PacketsPerBurst datagrams back-to-back, idles for Pause, and
// repeats until ctx is canceled, returning nil. The loop has no other exit
// branch: with the fail-fast policy the first send error aborts it with a
// non-nil error, and with ContinueOnError send errors are logged and counted
// while the loop keeps going.
func (f *Flooder) Run(ctx context.Context) error {
	f.log.Debug("flooder: starting",
		"destination", f.remote,
		"packetsPerBurst", f.cfg.PacketsPerBurst,
		"pause", f.cfg.Pause,
		"continueOnError", f.cfg.ContinueOnError,
	)

	var reportCh <-chan time.Time
	if f.cfg.ReportEvery > 0 {
		ticker := f.cfg.Clock.NewTicker(f.cfg.ReportEvery)
		defer ticker.Stop()
		reportCh = ticker.Chan()
	}
	var sent, failed, bursts uint64

	for {
		select {
		case <-ctx.Done():
			f.log.Debug("flooder: context done, stopping", "reason", ctx.Err())
			return nil
		default:
		}

		// Reports never interrupt a pause in progress; they are drained
		// between iterations.
		if reportCh != nil {
			select {
			case <-reportCh:
				f.report(sent, failed, bursts)
				sent, failed, bursts = 0, 0, 0
			default:
			}
		}

		start := f.cfg.Clock.Now()
		for i := 0; i < f.cfg.PacketsPerBurst; i++ {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			if _, err := f.conn.Write(f.payload); err != nil {
				metrics.SendErrorsTotal.Inc()
				failed++
				if !f.cfg.ContinueOnError {
					return fmt.Errorf("failed to write to UDP: %w", err)
				}
				f.log.Warn("flooder: send failed", "destination", f.remote, "error", err)
				continue
			}
			metrics.DatagramsSentTotal.Inc()
			metrics.BytesSentTotal.Add(PayloadSize)
			sent++
		}
		metrics.BurstsTotal.Inc()
		metrics.BurstDuration.Observe(f.cfg.Clock.Since(start).Seconds())
		bursts++

		if f.cfg.Pause > 0 {
			timer := f.cfg.Clock.NewTimer(f.cfg.Pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				f.log.Debug("flooder: context done, stopping", "reason", ctx.Err())
				return nil
			case <-timer.Chan():
			}
		}
	}
}

func (f *Flooder) report(sent, failed, bursts uint64) {
	f.log.Info("flooder: progress",
		"destination", f.remote,
		"bursts", bursts,
		"datagrams", sent,
		"failed", failed,
		"bytes", sent*PayloadSize,
		"interval", f.cfg.ReportEvery,
	)
}
