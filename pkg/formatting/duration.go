package formatting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// ParseAge parses an age such as "30d", "2w", or any time.ParseDuration value
// ("720h"). Day and week suffixes may not be combined with other units.
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty age string")
	}

	var unit time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		unit = day
	case strings.HasSuffix(s, "w"):
		unit = 7 * day
	default:
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid age: %w", err)
		}
		if d < 0 {
			return 0, fmt.Errorf("negative age: %q", s)
		}
		return d, nil
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid age: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative age: %q", s)
	}
	return time.Duration(n) * unit, nil
}

// FormatAge renders d in whole days when it is an exact multiple of a day,
// otherwise in time.Duration notation.
func FormatAge(d time.Duration) string {
	if d > 0 && d%day == 0 {
		return strconv.FormatInt(int64(d/day), 10) + "d"
	}
	return d.String()
}
