package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cuemby/odin/pkg/config"
	"github.com/cuemby/odin/pkg/events"
	"github.com/cuemby/odin/pkg/health"
	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/storage"
	"github.com/cuemby/odin/pkg/telemetry"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/cuemby/odin/pkg/types"
	"github.com/rs/zerolog"
)

// Engine owns the three predictors and feeds them the shared environment
// snapshot. The predictors never call each other; cross-predictor reactions
// such as isolating a hot bank happen here, on tick.
type Engine struct {
	cfg     *config.Config
	thermal *thermal.Forecaster
	power   *power.Manager
	mission *mission.Scheduler

	store     storage.Store
	archive   storage.ActionArchive
	broker    *events.Broker
	collector *metrics.Collector
	probes    *health.Monitor
	telemetry telemetry.Source
	now       func() time.Time
	logger    zerolog.Logger

	mu     sync.RWMutex
	env    types.Environment
	health types.SystemHealth
	lowSoC bool

	stopCh   chan struct{}
	stopOnce sync.Once
	loops    sync.WaitGroup
}

// Option customizes an Engine
type Option func(*Engine)

// WithStore persists catalogs, actions and cycles. Catalogs already in the
// store replace the defaults on startup.
func WithStore(s storage.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithArchive copies every executed action to a secondary sink
func WithArchive(a storage.ActionArchive) Option {
	return func(e *Engine) { e.archive = a }
}

// WithTelemetry replaces the seeded random telemetry source
func WithTelemetry(src telemetry.Source) Option {
	return func(e *Engine) { e.telemetry = src }
}

// WithClock overrides time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds the predictors from cfg, restoring catalogs from the store
// when one is configured
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		broker: events.NewBroker(),
		now:    time.Now,
		logger: log.WithComponent("engine"),
		env:    types.NominalEnvironment(),
		health: types.NominalHealth(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.telemetry == nil {
		e.telemetry = telemetry.NewRandom(cfg.TelemetrySeed)
	}

	cat, err := e.loadCatalogs()
	if err != nil {
		return nil, err
	}

	e.thermal = thermal.New(cfg.Thermal, cat.components, cat.actuators,
		thermal.WithClock(e.now))
	e.power = power.New(cfg.Power, cat.banks, cat.loads, cat.sources,
		power.WithClock(e.now),
		power.WithTelemetry(e.telemetry),
		power.WithCycleHook(e.onCycle),
		power.WithState(cat.powerState))
	e.mission = mission.New(cfg.Mission, cat.activities,
		mission.WithClock(e.now),
		mission.WithPhase(e.env.MissionPhase),
		mission.WithOptimizeHook(e.onOptimize))
	e.collector = metrics.NewCollector(e, cfg.TickInterval)

	for _, name := range []string{thermal.Predictor, power.Predictor, mission.Predictor} {
		metrics.RegisterComponent(name, true, "initialized")
	}
	e.probes = health.NewMonitor(health.Config{
		Interval: cfg.TickInterval,
		Timeout:  5 * time.Second,
		Retries:  3,
	}, metrics.UpdateComponent)
	if e.store != nil {
		metrics.RegisterComponent("storage", true, "open")
		e.probes.Add("storage", health.NewPingChecker(health.CheckTypeStore, e.store))
		if err := e.Persist(); err != nil {
			return nil, err
		}
	}
	if e.archive != nil {
		metrics.RegisterComponent("archive", true, "connected")
		e.probes.Add("archive", health.NewPingChecker(health.CheckTypeArchive, e.archive))
	}
	return e, nil
}

// NewFromConfig opens the bbolt store under cfg.DataDir and, when
// archive.dsn is set, the Postgres archive, then builds the engine
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	opts = append([]Option{WithStore(store)}, opts...)

	if cfg.Archive.DSN != "" {
		archive, err := storage.NewSQLArchive(ctx, cfg.Archive.DSN)
		if err != nil {
			store.Close()
			return nil, err
		}
		opts = append(opts, WithArchive(archive))
	}

	e, err := New(cfg, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return e, nil
}

// Thermal returns the thermal forecaster
func (e *Engine) Thermal() *thermal.Forecaster { return e.thermal }

// Power returns the power manager
func (e *Engine) Power() *power.Manager { return e.power }

// Mission returns the activity scheduler
func (e *Engine) Mission() *mission.Scheduler { return e.mission }

// Now returns the engine clock's current time
func (e *Engine) Now() time.Time { return e.now() }

// Events returns the event broker
func (e *Engine) Events() *events.Broker { return e.broker }

// Environment returns the current environment snapshot
func (e *Engine) Environment() types.Environment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.env
}

// SetEnvironment replaces the environment snapshot fed to the predictors
func (e *Engine) SetEnvironment(env types.Environment) {
	e.mu.Lock()
	e.env = env
	e.mu.Unlock()
	if env.MissionPhase != "" {
		e.mission.SetMissionPhase(env.MissionPhase)
	}
}

// Health returns a copy of the current subsystem health summary
func (e *Engine) Health() types.SystemHealth {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(types.SystemHealth, len(e.health))
	for k, v := range e.health {
		out[k] = v
	}
	return out
}

// CheckDependencies probes the store and archive once and returns their
// retry-filtered status
func (e *Engine) CheckDependencies(ctx context.Context) map[string]health.Status {
	return e.probes.CheckAll(ctx)
}

// Start launches the broker, tick loop, scheduler loop and metrics collector
func (e *Engine) Start() {
	e.broker.Start()
	e.mission.Start()
	e.collector.Start()
	e.probes.Start()
	e.loops.Add(1)
	go func() {
		defer e.loops.Done()
		e.run()
	}()
	e.logger.Info().Dur("tick_interval", e.cfg.TickInterval).Msg("engine started")
}

// Stop halts the loops, waits for an in-flight tick and probe round to
// finish, then closes the store and archive. Safe to call more than once.
func (e *Engine) Stop() error {
	var err error
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.loops.Wait()
		e.probes.Stop()
		e.mission.Stop()
		e.collector.Stop()
		e.broker.Stop()

		if e.store != nil {
			metrics.UpdateComponent("storage", false, "closed")
			if perr := e.Persist(); perr != nil {
				err = perr
			}
			if cerr := e.store.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		if e.archive != nil {
			if cerr := e.archive.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		e.logger.Info().Msg("engine stopped")
	})
	return err
}

func (e *Engine) run() {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.Tick(context.Background()); err != nil {
				e.logger.Error().Err(err).Msg("tick failed")
			}
		case <-e.stopCh:
			return
		}
	}
}
