// Package gravity converts gravity readings between the scales brewers use
// and owns the single disambiguation rule applied to unlabeled values.
//
// Every value that leaves this package is specific gravity (SG).
package gravity

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the scale a gravity reading was taken in
type Unit string

const (
	// UnitUnknown means the caller did not say; Normalize decides.
	UnitUnknown Unit = ""
	UnitSG      Unit = "sg"
	UnitPlato   Unit = "plato"
	UnitBrix    Unit = "brix"
	// UnitSG1000 is the three-digit shorthand, 1050 for 1.050
	UnitSG1000 Unit = "sg1000"
)

// Range boundaries for the unlabeled-value heuristic
const (
	ShorthandMin = 900.0
	SGMin        = 0.9
	SGMax        = 1.5
	SugarMax     = 40.0
)

// ParseUnit maps user input to a Unit
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return UnitUnknown, nil
	case "sg":
		return UnitSG, nil
	case "plato", "p", "°p":
		return UnitPlato, nil
	case "brix", "bx":
		return UnitBrix, nil
	case "sg1000", "points":
		return UnitSG1000, nil
	default:
		return UnitUnknown, fmt.Errorf("unknown gravity unit: %s", s)
	}
}

// Normalize applies the disambiguation rule to an unlabeled value:
// values above 900 are three-digit shorthand, values in (1.5, 40] are on a
// sugar-content scale, values in [0.9, 1.5] are already SG. Anything else is
// rejected with ok=false.
func Normalize(v float64) (sg float64, ok bool) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, false
	case v > ShorthandMin:
		sg = v / 1000
		if sg < SGMin || sg > SGMax {
			return 0, false
		}
		return sg, true
	case v > SGMax && v <= SugarMax:
		return PlatoToSG(v), true
	case v >= SGMin && v <= SGMax:
		return v, true
	default:
		return 0, false
	}
}

// ToSG converts a labeled reading to SG. UnitUnknown falls back to Normalize.
func ToSG(v float64, unit Unit) (float64, error) {
	switch unit {
	case UnitSG:
		if v < SGMin || v > SGMax {
			return 0, fmt.Errorf("specific gravity %.4f out of range [%.1f, %.1f]", v, SGMin, SGMax)
		}
		return v, nil
	case UnitPlato, UnitBrix:
		if v < 0 || v > SugarMax {
			return 0, fmt.Errorf("sugar-scale reading %.2f out of range [0, %.0f]", v, SugarMax)
		}
		return PlatoToSG(v), nil
	case UnitSG1000:
		return ToSG(v/1000, UnitSG)
	case UnitUnknown:
		sg, ok := Normalize(v)
		if !ok {
			return 0, fmt.Errorf("cannot interpret gravity value %v", v)
		}
		return sg, nil
	default:
		return 0, fmt.Errorf("unknown gravity unit: %s", unit)
	}
}

// PlatoToSG converts degrees Plato to specific gravity. Brix is close enough
// to Plato for wort that the same curve is used for both.
func PlatoToSG(p float64) float64 {
	return 1 + p/(258.6-(p/258.2)*227.1)
}

// SGToPlato is the inverse polynomial used for display
func SGToPlato(sg float64) float64 {
	return -616.868 + 1111.14*sg - 630.272*sg*sg + 135.997*sg*sg*sg
}

// Format renders an SG value in the requested unit
func Format(sg float64, unit Unit) string {
	switch unit {
	case UnitPlato:
		return fmt.Sprintf("%.1f°P", SGToPlato(sg))
	case UnitBrix:
		return fmt.Sprintf("%.1f°Bx", SGToPlato(sg))
	case UnitSG1000:
		return fmt.Sprintf("%.0f", sg*1000)
	default:
		return fmt.Sprintf("%.3f", sg)
	}
}
