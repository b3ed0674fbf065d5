package eval

import (
	"fmt"
	"strings"
)

// AngleMode selects the unit trigonometric functions work in.
type AngleMode string

const (
	Degrees AngleMode = "deg"
	Radians AngleMode = "rad"
)

// ParseAngleMode accepts the short and long spellings of an angle mode.
func ParseAngleMode(s string) (AngleMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deg", "degree", "degrees":
		return Degrees, true
	case "rad", "radian", "radians":
		return Radians, true
	default:
		return Degrees, false
	}
}

// Notation selects how results are rendered.
type Notation string

const (
	Standard   Notation = "standard"
	Scientific Notation = "scientific"
)

// ParseNotation parses a notation name. "fixed" is accepted as standard.
func ParseNotation(s string) (Notation, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "fixed":
		return Standard, true
	case "scientific", "sci":
		return Scientific, true
	default:
		return Standard, false
	}
}

// Decimal place bounds.
const (
	MinDecimalPlaces     = 1
	MaxDecimalPlaces     = 15
	DefaultDecimalPlaces = 6
)

// Settings are the per-request evaluation parameters.
type Settings struct {
	AngleMode     AngleMode `json:"angle_mode" yaml:"angle_mode"`
	DecimalPlaces int       `json:"decimal_places" yaml:"decimal_places"`
	Notation      Notation  `json:"notation" yaml:"notation"`
}

// DefaultSettings returns degrees, six decimal places, standard notation.
func DefaultSettings() Settings {
	return Settings{
		AngleMode:     Degrees,
		DecimalPlaces: DefaultDecimalPlaces,
		Notation:      Standard,
	}
}

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	if _, ok := ParseAngleMode(string(s.AngleMode)); !ok {
		return fmt.Errorf("angle mode must be 'deg' or 'rad', got %q", s.AngleMode)
	}
	if err := ValidateDecimalPlaces(s.DecimalPlaces); err != nil {
		return err
	}
	if _, ok := ParseNotation(string(s.Notation)); !ok {
		return fmt.Errorf("notation must be 'standard' or 'scientific', got %q", s.Notation)
	}
	return nil
}

// Normalize maps accepted aliases to their canonical values and fills
// zero fields with defaults.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if m, ok := ParseAngleMode(string(s.AngleMode)); ok {
		d.AngleMode = m
	}
	if s.DecimalPlaces != 0 {
		d.DecimalPlaces = s.DecimalPlaces
	}
	if n, ok := ParseNotation(string(s.Notation)); ok {
		d.Notation = n
	}
	return d
}

// ValidateDecimalPlaces checks places against the supported range.
func ValidateDecimalPlaces(places int) error {
	if places < MinDecimalPlaces || places > MaxDecimalPlaces {
		return fmt.Errorf("decimal places must be between %d and %d, got %d",
			MinDecimalPlaces, MaxDecimalPlaces, places)
	}
	return nil
}
