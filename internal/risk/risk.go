// Package risk maps a copper concentration reading to a risk label.
package risk

import "strings"

// Level is one of the five risk labels.
type Level string

const (
	Safe      Level = "Safe"
	Normal    Level = "Normal"
	Elevated  Level = "Elevated"
	Risky     Level = "Risky"
	Hazardous Level = "Hazardous"
)

// Band lower bounds in mg/L. A reading equal to a bound belongs to the higher band.
const (
	NormalFrom    = 1.0
	ElevatedFrom  = 1.3
	RiskyFrom     = 2.0
	HazardousFrom = 2.5
)

// Classify returns the risk label for a concentration in mg/L.
func Classify(mgPerL float64) Level {
	switch {
	case mgPerL >= HazardousFrom:
		return Hazardous
	case mgPerL >= RiskyFrom:
		return Risky
	case mgPerL >= ElevatedFrom:
		return Elevated
	case mgPerL >= NormalFrom:
		return Normal
	default:
		// NaN compares false everywhere and lands here too.
		return Safe
	}
}

// Levels returns all labels ordered from lowest to highest risk.
func Levels() []Level {
	return []Level{Safe, Normal, Elevated, Risky, Hazardous}
}

// Valid reports whether l is one of the known labels.
func (l Level) Valid() bool {
	switch l {
	case Safe, Normal, Elevated, Risky, Hazardous:
		return true
	default:
		return false
	}
}

// Badge returns the UI badge class used when displaying the label.
func (l Level) Badge() string {
	switch Level(titleCase(string(l))) {
	case Safe:
		return "success"
	case Normal:
		return "info"
	case Elevated:
		return "warning"
	case Risky, Hazardous:
		return "danger"
	default:
		return "secondary"
	}
}

func (l Level) String() string {
	return string(l)
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
