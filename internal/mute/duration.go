package mute

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

var (
	ErrEmptyInput        = errors.New("empty duration input")
	ErrUnrecognizedInput = errors.New("unrecognized duration input")
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day

	// Fixed, non-calendar approximations.
	Month = 30 * Day
	Year  = 365 * Day
)

// ParseDuration reads a free-text duration like "10m", "1h 30m" or "2w" into
// a total elapsed time. The input must consist solely of (integer, unit tag)
// pairs, optionally whitespace-separated; anything else rejects the whole
// input. Repeated units accumulate, so "10m 20m" is 30 minutes.
//
// Unit tags: s, m, h, d, w, M, y. The minute tag "m" and the month tag "M"
// are case-sensitive, all other tags accept either case.
func ParseDuration(text string) (time.Duration, error) {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return 0, ErrEmptyInput
	}

	var total time.Duration
	i := 0
	for i < len(runes) {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}

		// Quantities must start with 1-9, same as the command grammar
		// rejects "0m" or "-5m".
		if runes[i] < '1' || runes[i] > '9' {
			return 0, ErrUnrecognizedInput
		}
		var quantity uint64
		for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
			quantity = quantity*10 + uint64(runes[i]-'0')
			if quantity > maxQuantity {
				return 0, ErrUnrecognizedInput
			}
			i++
		}

		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		if i >= len(runes) {
			return 0, ErrUnrecognizedInput
		}
		scale, ok := unitScale(runes[i])
		if !ok {
			return 0, ErrUnrecognizedInput
		}
		i++

		total += time.Duration(quantity) * scale
	}
	return total, nil
}

// maxQuantity keeps quantity*scale well clear of time.Duration overflow even
// for the year tag.
const maxQuantity = 1 << 32

func unitScale(tag rune) (time.Duration, bool) {
	switch tag {
	case 's', 'S':
		return time.Second, true
	case 'm':
		return time.Minute, true
	case 'M':
		return Month, true
	case 'h', 'H':
		return time.Hour, true
	case 'd', 'D':
		return Day, true
	case 'w', 'W':
		return Week, true
	case 'y', 'Y':
		return Year, true
	}
	return 0, false
}

// FormatDuration renders a duration the way commands spell it, largest unit
// first: 90 minutes becomes "1h 30m".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	units := []struct {
		scale time.Duration
		tag   string
	}{
		{Year, "y"},
		{Week, "w"},
		{Day, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}
	parts := make([]string, 0, 3)
	for _, unit := range units {
		if d < unit.scale {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d%s", d/unit.scale, unit.tag))
		d %= unit.scale
	}
	return strings.Join(parts, " ")
}
