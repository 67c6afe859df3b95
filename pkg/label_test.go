package maskscan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelRoundTrip(t *testing.T) {
	seen := make(map[string]Coordinate)
	for layer := 0; layer < NLayers; layer++ {
		for radius := 0; radius < NRadii; radius++ {
			c := Coordinate{Layer: layer, Radius: radius}
			label, err := CoordinateToLabel(c)
			require.NoError(t, err)

			back, err := LabelToCoordinate(label)
			require.NoError(t, err, label)
			assert.Equal(t, c, back, label)

			prev, dup := seen[label]
			assert.False(t, dup, "%s produced by %v and %v", label, prev, c)
			seen[label] = c
		}
	}
	assert.Len(t, seen, NLayers*NRadii)
}

func TestLabelExamples(t *testing.T) {
	tests := []struct {
		layer, radius int
		label         string
	}{
		{0, 0, "MMFE8_L1P1_IPL"},
		{0, 1, "MMFE8_L1P1_IPR"},
		{1, 0, "MMFE8_L2P1_IPR"},
		{3, 14, "MMFE8_L4P8_IPR"},
		{4, 0, "MMFE8_L4P1_HOL"},
		{7, 15, "MMFE8_L1P8_HOL"},
		{7, 14, "MMFE8_L1P8_HOR"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			label, err := CoordinateToLabel(Coordinate{Layer: tt.layer, Radius: tt.radius})
			require.NoError(t, err)
			assert.Equal(t, tt.label, label)

			c, err := LabelToCoordinate(tt.label)
			require.NoError(t, err)
			assert.Equal(t, Coordinate{Layer: tt.layer, Radius: tt.radius}, c)
		})
	}
}

func TestLabelToCoordinateMalformed(t *testing.T) {
	labels := []string{
		"",
		"MMFE8_L1P1_IP",
		"MMFE8_L1P1_IPLX",
		"MMFE8-L1P1_IPL",
		"MMFE8_L0P1_IPL",
		"MMFE8_L5P1_IPL",
		"MMFE8_L1P0_IPL",
		"MMFE8_L1P9_IPL",
		"MMFE8_L1P1_XXL",
		"MMFE8_L1P1_IPC",
		"MMFE8_LxP1_IPL",
		"sFEB8_L1P1_IPL",
	}
	for _, label := range labels {
		_, err := LabelToCoordinate(label)
		var malformed *ErrMalformedLabel
		assert.True(t, errors.As(err, &malformed), "label %q: %v", label, err)
	}
}

func TestCoordinateToLabelRange(t *testing.T) {
	for _, c := range []Coordinate{{-1, 0}, {8, 0}, {0, -1}, {0, 16}} {
		_, err := CoordinateToLabel(c)
		var rangeErr *ErrCoordinateRange
		assert.True(t, errors.As(err, &rangeErr), "%v", c)
	}
	assert.Panics(t, func() { MustLabel(8, 16) })
}

func TestAllModuleLabels(t *testing.T) {
	labels := AllModuleLabels()
	require.Len(t, labels, 128)
	assert.Equal(t, "MMFE8_L1P1_IPL", labels[0])
	assert.Equal(t, "MMFE8_L1P8_HOL", labels[127])
	for _, label := range labels {
		assert.True(t, IsModuleLabel(label))
	}
	assert.False(t, IsModuleLabel("vmm0"))
}

func TestFlatChannel(t *testing.T) {
	assert.Equal(t, 0, FlatChannel(0, 0))
	assert.Equal(t, 202, FlatChannel(3, 10))
	assert.Equal(t, NBins-1, FlatChannel(NVmms-1, NChannels-1))
}
