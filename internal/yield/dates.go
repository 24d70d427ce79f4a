package yield

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"solar_yield/internal/model"
)

var ErrInvalidCOD = errors.New("invalid commercial operation date")

// numericDate matches day/month-first dates separated by dots or dashes,
// which the parser reads month first only.
var numericDate = regexp.MustCompile(`^(\d{1,2})[.-](\d{1,2})[.-](\d{2}|\d{4})$`)

// ParseCOD resolves a commercial operation date written in any common
// unambiguous form. Ambiguous numeric dates are read month first
// ("1/12/2018" is 12 January); a first field above 12 is taken as the day
// ("20/06/2025", "20.06.2025").
func ParseCOD(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidCOD)
	}
	t, err := parseDate(s)
	if err != nil {
		if m := numericDate.FindStringSubmatch(s); m != nil {
			t, err = parseDate(m[1] + "/" + m[2] + "/" + m[3])
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidCOD, s, err)
	}
	return t, nil
}

// PartialMonthDays counts the days of cod's month from cod through the end
// of the month, inclusive. 29 February counts as the last day of a 28-day
// February, so the result is always at least 1.
func PartialMonthDays(cod time.Time) int {
	days := model.Days(int(cod.Month()))
	day := cod.Day()
	if day > days {
		day = days
	}
	return days - day + 1
}

func parseDate(s string) (time.Time, error) {
	return dateparse.ParseAny(s,
		dateparse.PreferMonthFirst(true),
		dateparse.RetryAmbiguousDateWithSwap(true),
	)
}
