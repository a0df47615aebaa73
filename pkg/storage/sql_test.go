package storage

import (
	"testing"
	"time"

	"github.com/cuemby/odin/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestActionRowMapping(t *testing.T) {
	ts := time.Date(2030, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	action := types.Action{
		ID:               "a-1",
		Predictor:        "power",
		Trigger:          "thermal_runaway",
		Action:           "isolate_bank",
		AffectedSystems:  []string{"primary-bank", "emergency-bank"},
		MissionImpact:    types.ImpactSevere,
		ExecutionTime:    2 * time.Second,
		Reversible:       false,
		Confidence:       98,
		RequiresApproval: true,
		Timestamp:        ts,
	}

	row := toRow(action)
	assert.Equal(t, "primary-bank,emergency-bank", row.AffectedSystems)
	assert.Equal(t, int64(2000), row.ExecutionMillis)
	assert.Equal(t, time.UTC, row.ExecutedAt.Location())

	back := fromRow(row)
	assert.Equal(t, action.AffectedSystems, back.AffectedSystems)
	assert.Equal(t, action.ExecutionTime, back.ExecutionTime)
	assert.True(t, back.Timestamp.Equal(ts))
	assert.Equal(t, types.ImpactSevere, back.MissionImpact)
}

func TestActionRowEmptyAffected(t *testing.T) {
	back := fromRow(toRow(types.Action{ID: "a-2"}))
	assert.Nil(t, back.AffectedSystems)
}
