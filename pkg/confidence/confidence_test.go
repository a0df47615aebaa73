package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableScore(t *testing.T) {
	table := Table{
		Values: map[string]float64{
			"low_soc/shed_load": 90,
			"low_soc":           60,
		},
		Fallback: 40,
	}

	assert.Equal(t, 90.0, table.Score(Key{Trigger: "low_soc", Action: "shed_load"}))
	assert.Equal(t, 60.0, table.Score(Key{Trigger: "low_soc", Action: "switch_battery_bank"}))
	assert.Equal(t, 40.0, table.Score(Key{Trigger: "unknown"}))
}

func TestDefaultThermal(t *testing.T) {
	table := DefaultThermal()
	assert.Equal(t, 88.0, table.Score(Key{Trigger: "solar_flare"}))
	assert.Equal(t, 92.0, table.Score(Key{Trigger: "component_overheat"}))
	assert.Equal(t, 85.0, table.Score(Key{Trigger: "deep_space_cooling"}))
}

func TestDefaultPower(t *testing.T) {
	table := DefaultPower()
	tests := []struct {
		trigger, action string
		expected        float64
	}{
		{"low_soc", "emergency_mode", 95},
		{"low_soc", "shed_load", 90},
		{"low_soc", "switch_battery_bank", 88},
		{"thermal_runaway", "isolate_bank", 98},
		{"solar_storm", "shed_load", 85},
		{"solar_storm", "activate_backup", 92},
		{"load_spike", "shed_load", 80},
	}
	for _, tt := range tests {
		t.Run(tt.trigger+"/"+tt.action, func(t *testing.T) {
			assert.Equal(t, tt.expected, table.Score(Key{Trigger: tt.trigger, Action: tt.action}))
		})
	}
}

// scorerFunc lets tests plug an arbitrary scoring function
type scorerFunc func(Key) float64

func (f scorerFunc) Score(k Key) float64 { return f(k) }

func TestScorerIsPluggable(t *testing.T) {
	var s Scorer = scorerFunc(func(k Key) float64 { return 100 - k.Severity })
	assert.Equal(t, 93.0, s.Score(Key{Severity: 7}))
}
