package health

import (
	"context"
	"log"
	"sync"
	"time"
)

// Prober issues one lightweight authenticated call against the upstream
// model API. The monitor bounds each call with its own short deadline,
// independent of the main request timeout.
type Prober interface {
	Probe(ctx context.Context) error
}

// State is a point-in-time snapshot of upstream health.
type State struct {
	OK               bool
	ConsecutiveFails int
	LastError        string
	LastOK           time.Time
}

// Monitor periodically probes the upstream API. After the configured number
// of consecutive failures it closes its Fatal channel and stops probing; it
// never terminates the process itself. The entry point watches Fatal and
// performs the exit, leaving the monitor unit-testable.
type Monitor struct {
	prober       Prober
	interval     time.Duration
	probeTimeout time.Duration
	threshold    int

	mu    sync.Mutex
	state State

	fatal     chan struct{}
	fatalOnce sync.Once
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// New creates a Monitor. Non-positive durations and thresholds fall back to
// the defaults: 60s interval, 6s probe timeout, 3 failures.
func New(prober Prober, interval, probeTimeout time.Duration, threshold int) *Monitor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if probeTimeout <= 0 {
		probeTimeout = 6 * time.Second
	}
	if threshold <= 0 {
		threshold = 3
	}
	return &Monitor{
		prober:       prober,
		interval:     interval,
		probeTimeout: probeTimeout,
		threshold:    threshold,
		fatal:        make(chan struct{}),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start probes once eagerly, so a broken upstream is detected before the
// first request arrives, then continues on the configured interval in a
// background goroutine until Stop is called or the threshold is reached.
func (m *Monitor) Start(ctx context.Context) {
	if m.tick(ctx) {
		close(m.done)
		return
	}
	go m.run(ctx)
}

// Stop terminates the probe loop. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

// Fatal is closed when consecutive failures reach the threshold.
func (m *Monitor) Fatal() <-chan struct{} {
	return m.fatal
}

// Snapshot returns the current health state. Readers get a stale-but-
// consistent copy; the monitor is the only writer.
func (m *Monitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if m.tick(ctx) {
				return
			}
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick runs a single probe and reports whether the fatal threshold was hit.
func (m *Monitor) tick(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.prober.Probe(probeCtx)
	cancel()

	m.mu.Lock()
	if err != nil {
		m.state.OK = false
		m.state.ConsecutiveFails++
		m.state.LastError = err.Error()
		fails := m.state.ConsecutiveFails
		m.mu.Unlock()

		log.Printf("health: probe failed (%d/%d): %v", fails, m.threshold, err)
		if fails >= m.threshold {
			m.fatalOnce.Do(func() { close(m.fatal) })
			return true
		}
		return false
	}

	m.state.OK = true
	m.state.ConsecutiveFails = 0
	m.state.LastError = ""
	m.state.LastOK = time.Now()
	m.mu.Unlock()
	return false
}
