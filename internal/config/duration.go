package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned by ParseDuration on a malformed
// --expire-after value or one that is zero/negative (spec §6).
var ErrInvalidDuration = errors.New("config: invalid duration")

// ParseDuration parses the `{s,m,h,d}`-suffixed duration grammar
// spec.md §6 defines for --expire-after. stdlib time.ParseDuration
// does not support "d", the one extension this grammar needs.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidDuration)
	}

	unit := s[len(s)-1]

	var multiplier time.Duration

	switch unit {
	case 's':
		multiplier = time.Second
	case 'm':
		multiplier = time.Minute
	case 'h':
		multiplier = time.Hour
	case 'd':
		multiplier = 24 * time.Hour
	default:
		return 0, fmt.Errorf("%w: %q: missing unit suffix ({s,m,h,d})", ErrInvalidDuration, s)
	}

	numberPart := strings.TrimSuffix(s, string(unit))

	value, err := strconv.ParseFloat(numberPart, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidDuration, s, err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("%w: %q: must be positive", ErrInvalidDuration, s)
	}

	return time.Duration(value * float64(multiplier)), nil
}
