// Package netmon tracks whether the finance API looks reachable. The state
// is advisory: callers still treat every failed request as authoritative.
package netmon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/logging"
)

// Prober checks reachability once.
type Prober interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	prober       Prober
	interval     time.Duration
	probeTimeout time.Duration
	log          logging.Logger

	online atomic.Bool

	mu   sync.Mutex
	subs []func(ctx context.Context)
}

type Option func(*Monitor)

func WithLogger(l logging.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.probeTimeout = d }
}

func New(p Prober, interval time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		prober:       p,
		interval:     interval,
		probeTimeout: 3 * time.Second,
		log:          logging.Nop(),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With("module", "netmon")
	return m
}

func (m *Monitor) IsOnline() bool { return m.online.Load() }

// OnOnline registers fn to run on every offline to online transition.
func (m *Monitor) OnOnline(fn func(ctx context.Context)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// Init sets the starting state from a single probe without notifying
// subscribers.
func (m *Monitor) Init(ctx context.Context) bool {
	online := m.ping(ctx) == nil
	m.online.Store(online)
	m.log.Info(ctx, "initial connectivity", "online", online)
	return online
}

// SetOnline records the connectivity state. Going online runs the
// subscribers once, in registration order, on the calling goroutine.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	was := m.online.Swap(online)
	if was == online {
		return
	}

	m.log.Info(ctx, "connectivity changed", "online", online)
	if !online {
		return
	}

	m.mu.Lock()
	subs := append([]func(context.Context){}, m.subs...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(ctx)
	}
}

// Probe pings once and applies the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	err := m.ping(ctx)
	if err != nil {
		m.log.Debug(ctx, "probe failed", "error", err)
	}
	m.SetOnline(ctx, err == nil)
	return err == nil
}

// Run probes on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Probe(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Monitor) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()
	return m.prober.Ping(ctx)
}
