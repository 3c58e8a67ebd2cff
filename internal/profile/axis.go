package profile

import (
	"fmt"
	"strings"

	"github.com/Faultbox/cooler-configurator/pkg/math"
)

// Axis names a door hinge axis.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// ParseAxis accepts x, y or z in any case.
func ParseAxis(s string) (Axis, error) {
	switch a := Axis(strings.ToLower(strings.TrimSpace(s))); a {
	case AxisX, AxisY, AxisZ:
		return a, nil
	}
	return "", fmt.Errorf("invalid door axis %q (want x, y or z)", s)
}

// Vec returns the unit vector for the axis; unknown values map to X.
func (a Axis) Vec() math.Vec3 {
	switch a {
	case AxisY:
		return math.AxisY
	case AxisZ:
		return math.AxisZ
	default:
		return math.AxisX
	}
}
