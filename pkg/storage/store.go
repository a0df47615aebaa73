package storage

import (
	"context"
	"errors"

	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/cuemby/odin/pkg/types"
)

// ErrNotFound is returned when a keyed record does not exist
var ErrNotFound = errors.New("not found")

// Store persists predictor catalogs and the action log across restarts
type Store interface {
	// Thermal catalog
	SaveComponent(c *thermal.Component) error
	ListComponents() ([]*thermal.Component, error)
	SaveActuator(a *thermal.Actuator) error
	ListActuators() ([]*thermal.Actuator, error)

	// Power catalog
	SaveBank(b *power.Bank) error
	ListBanks() ([]*power.Bank, error)
	SaveLoad(l *power.Load) error
	ListLoads() ([]*power.Load, error)
	SaveSource(s *power.Source) error
	ListSources() ([]*power.Source, error)
	SavePowerState(st power.ManagerState) error
	GetPowerState() (*power.ManagerState, error)

	// Activities
	SaveActivity(a *mission.Activity) error
	GetActivity(id string) (*mission.Activity, error)
	ListActivities() ([]*mission.Activity, error)
	DeleteActivity(id string) error

	// Append-only logs
	AppendAction(action types.Action) error
	ListActions(limit int) ([]types.Action, error)
	AppendCycle(bankID string, rec power.CycleRecord) error
	ListCycles(bankID string) ([]power.CycleRecord, error)

	// Utility
	Ping(ctx context.Context) error
	Close() error
}

// ActionArchive receives a copy of every executed action for long-term
// analysis outside the engine
type ActionArchive interface {
	ArchiveAction(action types.Action) error
	Ping(ctx context.Context) error
	Close() error
}
