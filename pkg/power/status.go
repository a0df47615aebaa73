package power

import (
	"time"

	"github.com/cuemby/odin/pkg/types"
)

// BankStatus summarizes one bank
type BankStatus struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	SoC         float64      `json:"soc"`
	SoH         float64      `json:"soh"`
	Temperature float64      `json:"temperature"`
	RunawayRisk float64      `json:"runawayRisk"`
	CycleCount  int          `json:"cycleCount"`
	Active      bool         `json:"active"`
	Isolated    bool         `json:"isolated"`
	Health      HealthStatus `json:"health"`
}

// Status is the power snapshot returned to callers
type Status struct {
	TotalGeneration  float64        `json:"totalGeneration"`
	TotalConsumption float64        `json:"totalConsumption"`
	NetBalance       float64        `json:"netBalance"`
	AverageSoC       float64        `json:"averageSoc"`
	EmergencyMode    bool           `json:"emergencyMode"`
	Banks            []BankStatus   `json:"banks"`
	ShedLoads        []string       `json:"shedLoads"`
	RecentActions    []types.Action `json:"recentActions"`
	PendingApprovals []types.Action `json:"pendingApprovals"`
	Timestamp        time.Time      `json:"timestamp"`
}

const recentActionCount = 10

// Status returns a consistent snapshot of the power system
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gen := m.generationLocked()
	cons := m.consumptionLocked()
	st := Status{
		TotalGeneration:  gen,
		TotalConsumption: cons,
		NetBalance:       gen - cons,
		AverageSoC:       m.averageSoCLocked(),
		EmergencyMode:    m.emergency,
		ShedLoads:        []string{},
		PendingApprovals: m.pendingLocked(),
		Timestamp:        m.now(),
	}

	for _, b := range m.sortedBanksLocked() {
		st.Banks = append(st.Banks, BankStatus{
			ID:          b.ID,
			Name:        b.Name,
			SoC:         b.State.SoC,
			SoH:         b.State.SoH,
			Temperature: b.State.Temperature,
			RunawayRisk: b.State.RunawayRisk,
			CycleCount:  b.State.CycleCount,
			Active:      b.Active,
			Isolated:    b.Isolated,
			Health:      m.assessLocked(b),
		})
	}
	for _, l := range m.sortedLoadsLocked() {
		if l.Shed {
			st.ShedLoads = append(st.ShedLoads, l.ID)
		}
	}

	start := len(m.actions) - recentActionCount
	if start < 0 {
		start = 0
	}
	st.RecentActions = append([]types.Action{}, m.actions[start:]...)
	return st
}
