package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlareClassBaseIntensity(t *testing.T) {
	tests := []struct {
		class    FlareClass
		expected float64
	}{
		{FlareA, 1},
		{FlareB, 10},
		{FlareC, 100},
		{FlareM, 1000},
		{FlareX, 10000},
		{FlareClass("Z"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.class.BaseIntensity())
		})
	}
}

func TestNeedsApproval(t *testing.T) {
	assert.True(t, NeedsApproval(false, ImpactModerate))
	assert.True(t, NeedsApproval(true, ImpactSevere))
	assert.True(t, NeedsApproval(true, ImpactCritical))
	assert.False(t, NeedsApproval(true, ImpactMinor))
	assert.False(t, NeedsApproval(true, ImpactNone))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 10.0, Clamp(3, 10, 99))
	assert.Equal(t, 99.0, Clamp(120, 10, 99))
	assert.Equal(t, 42.0, Clamp(42, 10, 99))
}
