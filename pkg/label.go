package maskscan

import (
	"fmt"
	"strings"
)

// Board geometry of the NSW MicroMegas front-end.
const (
	NLayers   = 8
	NRadii    = 16
	NVmms     = 8
	NChannels = 64
	NBins     = NVmms * NChannels
)

const (
	labelPrefix = "MMFE8_"
	labelLength = len("MMFE8_L1P1_IPL")
	quadInner   = "IP"
	quadOuter   = "HO"
)

// Coordinate is the integer position of a front-end board.
type Coordinate struct {
	Layer  int
	Radius int
}

func (c Coordinate) Valid() bool {
	return c.Layer >= 0 && c.Layer < NLayers && c.Radius >= 0 && c.Radius < NRadii
}

// IsModuleLabel reports whether a calibration document key names a board.
func IsModuleLabel(key string) bool {
	return strings.HasPrefix(key, labelPrefix)
}

// LabelToCoordinate converts a board label such as MMFE8_L1P1_IPL into its
// (layer, radius) coordinate.
//
// The outer quadrant (HO) counts layers backwards from 8, the inner one (IP)
// forwards from 1. Each PCB covers two radii; the side selects the even or
// odd one depending on the layer parity.
func LabelToCoordinate(label string) (Coordinate, error) {
	if len(label) != labelLength || !strings.HasPrefix(label, labelPrefix+"L") ||
		label[8] != 'P' || label[10] != '_' {
		return Coordinate{}, &ErrMalformedLabel{Label: label, Reason: "expected MMFE8_L<n>P<n>_<quad><side>"}
	}
	layerDigit := int(label[7] - '0')
	pcb := int(label[9] - '0')
	quad := label[11:13]
	side := label[13]

	if layerDigit < 1 || layerDigit > NLayers/2 {
		return Coordinate{}, &ErrMalformedLabel{Label: label, Reason: "layer digit must be 1-4"}
	}
	if pcb < 1 || pcb > NRadii/2 {
		return Coordinate{}, &ErrMalformedLabel{Label: label, Reason: "pcb digit must be 1-8"}
	}
	if side != 'L' && side != 'R' {
		return Coordinate{}, &ErrMalformedLabel{Label: label, Reason: "side must be L or R"}
	}

	var layer int
	switch quad {
	case quadOuter:
		layer = NLayers - layerDigit
	case quadInner:
		layer = layerDigit - 1
	default:
		return Coordinate{}, &ErrMalformedLabel{Label: label, Reason: "quadrant must be IP or HO"}
	}

	radius := (pcb - 1) * 2
	odd := layer%2 == 1
	if !((side == 'R' && odd) || (side == 'L' && !odd)) {
		radius++
	}
	return Coordinate{Layer: layer, Radius: radius}, nil
}

// CoordinateToLabel is the inverse of LabelToCoordinate.
func CoordinateToLabel(c Coordinate) (string, error) {
	if !c.Valid() {
		return "", &ErrCoordinateRange{Layer: c.Layer, Radius: c.Radius}
	}
	layerDigit := c.Layer + 1
	quad := quadInner
	if c.Layer >= NLayers/2 {
		layerDigit = NLayers - c.Layer
		quad = quadOuter
	}
	pcb := c.Radius/2 + 1
	side := 'L'
	if (c.Radius+c.Layer)%2 == 1 {
		side = 'R'
	}
	return fmt.Sprintf("%sL%dP%d_%s%c", labelPrefix, layerDigit, pcb, quad, side), nil
}

// MustLabel is like CoordinateToLabel but panics on an invalid coordinate.
func MustLabel(layer, radius int) string {
	label, err := CoordinateToLabel(Coordinate{Layer: layer, Radius: radius})
	if err != nil {
		panic(err)
	}
	return label
}

// AllModuleLabels returns the 128 board labels ordered by layer, then radius.
func AllModuleLabels() []string {
	labels := make([]string, 0, NLayers*NRadii)
	for layer := 0; layer < NLayers; layer++ {
		for radius := 0; radius < NRadii; radius++ {
			labels = append(labels, MustLabel(layer, radius))
		}
	}
	return labels
}

// VmmLabel is the calibration document key of a vmm: vmm0..vmm7.
func VmmLabel(vmm int) string {
	return fmt.Sprintf("vmm%d", vmm)
}

// FlatChannel is the board-wide electronics channel, vmm*64 + channel.
func FlatChannel(vmm, channel int) int {
	return vmm*NChannels + channel
}
