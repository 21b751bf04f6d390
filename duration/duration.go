// Package duration parses and formats the human duration grammar used in
// command cooldown configuration: either a bare integer (milliseconds) or
// ordered components like "1d 2h 3m 4s 500ms".
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// unit order is fixed: d, h, m, s, ms. Each may appear at most once.
var units = []struct {
	suffix string
	dur    time.Duration
}{
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
	{"ms", time.Millisecond},
}

// Parse parses a human duration string. A bare integer is milliseconds.
// Empty or malformed input is an error; use ParseLenient for a best-effort
// zero instead.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n) * time.Millisecond, nil
	}

	var total time.Duration
	rest := s
	unitIdx := 0
	for rest != "" {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			break
		}
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		rest = rest[i:]
		j := 0
		for j < len(rest) && rest[j] >= 'a' && rest[j] <= 'z' {
			j++
		}
		suffix := rest[:j]
		rest = rest[j:]
		matched := false
		for ; unitIdx < len(units); unitIdx++ {
			if units[unitIdx].suffix == suffix {
				total += time.Duration(n) * units[unitIdx].dur
				unitIdx++
				matched = true
				break
			}
		}
		if !matched {
			return 0, fmt.Errorf("invalid duration %q: bad unit %q", s, suffix)
		}
	}
	return total, nil
}

// ParseLenient parses like Parse but returns 0 for empty or malformed
// input. Cooldown checks use this: unparsable means no cooldown.
func ParseLenient(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		return 0
	}
	return d
}

// Format renders a duration in the human grammar, omitting zero components.
// Zero formats as "0ms". Format(Parse(x)) round-trips for values the unit
// set can express.
func Format(d time.Duration) string {
	if d <= 0 {
		return "0ms"
	}
	var parts []string
	for _, u := range units {
		if n := d / u.dur; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			d -= n * u.dur
		}
	}
	return strings.Join(parts, " ")
}
