// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"
	"strconv"
	"strings"
)

// Round rounds v to places decimal digits.
func Round(v float64, places int) float64 {
	if places < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	if r == 0 {
		return 0 // no negative zero
	}
	return r
}

// Format renders v for display. Standard notation prints integers without
// a decimal point and trims trailing zeros; scientific notation always
// prints places mantissa digits.
func Format(v float64, places int, n Notation) string {
	if v == 0 {
		v = 0
	}
	if n == Scientific {
		return strconv.FormatFloat(v, 'e', places, 64)
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e21 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	s := strconv.FormatFloat(v, 'f', places, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// FormatSettings renders v using the decimal places and notation of s.
func FormatSettings(v float64, s Settings) string {
	s = s.Normalize()
	return Format(v, s.DecimalPlaces, s.Notation)
}
