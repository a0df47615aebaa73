package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/odin/pkg/log"
	"github.com/rs/zerolog"
)

// ReportFunc receives every status change, typically metrics.UpdateComponent
type ReportFunc func(name string, healthy bool, message string)

type probe struct {
	checker Checker
	status  *Status
}

// Monitor runs registered checkers on an interval and reports the
// retry-filtered outcome
type Monitor struct {
	cfg    Config
	report ReportFunc
	probes map[string]*probe
	mu     sync.Mutex
	logger zerolog.Logger
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor. report may be nil.
func NewMonitor(cfg Config, report ReportFunc) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	return &Monitor{
		cfg:    cfg,
		report: report,
		probes: make(map[string]*probe),
		logger: log.WithComponent("health"),
		stopCh: make(chan struct{}),
	}
}

// Add registers a checker under name, replacing any previous one
func (m *Monitor) Add(name string, c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[name] = &probe{checker: c, status: NewStatus(time.Now())}
}

// CheckAll runs every checker once, updates statuses and reports them
func (m *Monitor) CheckAll(ctx context.Context) map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Status, len(m.probes))
	for _, name := range m.namesLocked() {
		p := m.probes[name]

		cctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		result := p.checker.Check(cctx)
		cancel()

		if !result.Healthy && p.status.InStartPeriod(m.cfg, result.CheckedAt) {
			m.logger.Debug().Str("check", name).Str("message", result.Message).Msg("failure ignored during start period")
			out[name] = *p.status
			continue
		}

		was := p.status.Healthy
		p.status.Update(result, m.cfg)
		if was != p.status.Healthy {
			m.logger.Warn().
				Str("check", name).
				Str("type", string(p.checker.Type())).
				Bool("healthy", p.status.Healthy).
				Str("message", result.Message).
				Msg("health changed")
		}
		if m.report != nil {
			m.report(name, p.status.Healthy, result.Message)
		}
		out[name] = *p.status
	}
	return out
}

func (m *Monitor) namesLocked() []string {
	names := make([]string, 0, len(m.probes))
	for name := range m.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start runs CheckAll every interval until Stop
func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CheckAll(context.Background())
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop halts the check loop and waits for a running round to finish
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}
