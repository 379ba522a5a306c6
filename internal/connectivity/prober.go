package connectivity

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/agrovihan/agrovihan/internal/logging"
)

// Default probe settings.
const (
	DefaultProbeInterval = 15 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
)

// ErrNoAddress is returned when a Prober has nothing to dial.
var ErrNoAddress = errors.New("connectivity: probe address is required")

// DialFunc opens a connection; it matches (*net.Dialer).DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Prober drives a Switch by periodically dialing a TCP address. It stands in
// for the platform's online/offline events on hosts that have none.
type Prober struct {
	*Switch

	address  string
	interval time.Duration
	timeout  time.Duration
	dial     DialFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ProberOption customizes a Prober.
type ProberOption func(*Prober)

// WithInterval sets the time between probes.
func WithInterval(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTimeout sets the per-probe dial timeout.
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithDialer replaces the dial function.
func WithDialer(dial DialFunc) ProberOption {
	return func(p *Prober) { p.dial = dial }
}

// NewProber returns a Prober for address ("host:port"). It starts offline
// until the first probe completes.
func NewProber(address string, opts ...ProberOption) (*Prober, error) {
	if address == "" {
		return nil, ErrNoAddress
	}
	p := &Prober{
		Switch:   NewSwitch(false),
		address:  address,
		interval: DefaultProbeInterval,
		timeout:  DefaultProbeTimeout,
		dial:     (&net.Dialer{}).DialContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start probes once synchronously, then keeps probing until Stop or ctx ends.
func (p *Prober) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.Probe(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Probe(ctx)
			}
		}
	}()
}

// Stop ends probing and waits for the probe goroutine.
func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Probe dials once and updates the state. It reports the new state.
func (p *Prober) Probe(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(dialCtx, "tcp", p.address)
	online := err == nil
	if conn != nil {
		_ = conn.Close()
	}

	if p.Set(online) {
		ev := logging.FromContext(ctx).Info()
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Ctx(ctx).
			Str("component", "connectivity").
			Str("address", p.address).
			Bool("online", online).
			Msg("connectivity changed")
	}
	return online
}
