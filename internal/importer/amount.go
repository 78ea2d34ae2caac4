package importer

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount converts a decimal currency string to minor units. Amounts are
// always positive (the kind column carries the direction) and carry at most
// two fraction digits, separated by either '.' or ','. No magnitude-based
// unit guessing: "100" is always 100 whole units, never 100 cents.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing amount")
	}

	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("amount %q must be positive", s)
	}

	whole := s

	var frac string

	if idx := strings.LastIndexAny(s, ".,"); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("amount %q must have 1 or 2 fraction digits", s)
		}
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	cents := units * 100

	if frac != "" {
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}

		if len(frac) == 1 {
			f *= 10
		}

		cents += f
	}

	if cents <= 0 {
		return 0, fmt.Errorf("amount %q must be positive", s)
	}

	return cents, nil
}
