// Package formatting parses and prints the human-readable sizes and ages
// used in configuration files and log lines.
package formatting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// byteUnits are base-1024 units in ascending order. int64 tops out below a
// zettabyte, so EB is the last unit.
var byteUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes prints n with the largest unit that keeps the value at or
// above one, rounded to precision decimals. Whole bytes carry no decimals.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	size := math.Abs(float64(n))
	unit := 0
	for size >= 1024 && unit < len(byteUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	if n < 0 {
		size = -size
	}

	return strconv.FormatFloat(size, 'f', precision, 64) + " " + byteUnits[unit]
}

// ParseBytes reads sizes like "512", "64KB", "1.5 gb" into a byte count.
// A missing unit means bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	number, unit := s, ""
	if split >= 0 {
		number, unit = s[:split], strings.TrimSpace(s[split:])
	}
	if number == "" {
		return 0, fmt.Errorf("invalid byte size %q: missing number", s)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	exp := 0
	if unit != "" {
		exp = -1
		for i, u := range byteUnits {
			if strings.EqualFold(unit, u) {
				exp = i
				break
			}
		}
		if exp < 0 {
			return 0, fmt.Errorf("invalid byte size %q: unknown unit %q", s, unit)
		}
	}

	bytes := value * math.Pow(1024, float64(exp))
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid byte size %q: overflows int64", s)
	}
	return int64(bytes), nil
}
