package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultValue is substituted whenever a label does not match any recognized pattern.
const DefaultValue = 0

var (
	guestRange    = regexp.MustCompile(`^\s*(\d+)\s*[-–]\s*(\d+)\s*$`)
	leadingDigits = regexp.MustCompile(`^\s*(\d+)`)
	notBudgetRune = regexp.MustCompile(`[^0-9\-–+]`)
)

// GuestCount maps a guest-count label onto a head count.
//
//	"50 - 100" -> 75 (rounded midpoint)
//	"120"      -> 120
//	"500+"     -> 500 (leading integer)
//	"many"     -> DefaultValue
func GuestCount(label string) int {
	if m := guestRange.FindStringSubmatch(label); m != nil {
		lo, errLo := strconv.Atoi(m[1])
		hi, errHi := strconv.Atoi(m[2])
		if errLo != nil || errHi != nil {
			return DefaultValue
		}
		return midpoint(lo, hi)
	}

	if m := leadingDigits.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return DefaultValue
}

// Budget maps a currency-formatted budget label onto a single amount.
//
//	"Under 100,000"     -> 50000   (half the bound, floored)
//	"100,000 – 250,000" -> 175000  (rounded midpoint)
//	"5,000,000+"        -> 5000000 (lower bound)
//	"250,000"           -> 250000
//
// Anything that leaves a token unparseable yields DefaultValue.
func Budget(label string) int {
	trimmed := strings.TrimSpace(label)
	clean := notBudgetRune.ReplaceAllString(trimmed, "")

	switch {
	case strings.HasPrefix(strings.ToLower(trimmed), "under"):
		bound, ok := amount(clean)
		if !ok {
			return DefaultValue
		}
		return bound / 2

	case strings.ContainsAny(clean, "-–"):
		parts := strings.FieldsFunc(clean, isDash)
		if len(parts) != 2 {
			return DefaultValue
		}
		lo, okLo := amount(parts[0])
		hi, okHi := amount(parts[1])
		if !okLo || !okHi {
			return DefaultValue
		}
		return midpoint(lo, hi)

	case strings.HasSuffix(clean, "+"):
		lo, ok := amount(clean)
		if !ok {
			return DefaultValue
		}
		return lo
	}

	n, ok := amount(clean)
	if !ok {
		return DefaultValue
	}
	return n
}

// amount parses a cleaned numeric token, ignoring stray plus signs.
func amount(token string) (int, bool) {
	token = strings.Trim(token, "+")
	if token == "" {
		return 0, false
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// midpoint rounds half up. Operands must be non-negative.
func midpoint(a, b int) int {
	if a > b {
		a, b = b, a
	}
	d := b - a
	return a + d/2 + d%2
}

func isDash(r rune) bool {
	return r == '-' || r == '–'
}
