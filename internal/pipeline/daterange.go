package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

// RangeMode selects how DateRange restricts tasks.
type RangeMode string

const (
	RangeAll      RangeMode = "all"
	RangeRelative RangeMode = "relative"
	RangeSpecific RangeMode = "specific"
)

// Direction of a relative range from today.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionLast Direction = "last"
)

// Unit of a relative range.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// Relative is a window anchored at today, e.g. "next 2 weeks".
type Relative struct {
	Direction Direction
	Amount    int
	Unit      Unit
}

// DateRange restricts tasks by their date. Zero value passes everything.
type DateRange struct {
	Mode     RangeMode
	Relative Relative
	// From and To are ISO dates; either may be empty.
	From string
	To   string
}

// Window is an inclusive pair of ISO date bounds. An empty bound is open.
type Window struct {
	From string
	To   string
}

// Contains reports whether date lies inside w. ISO dates compare
// lexicographically in chronological order. An undated task is never
// inside a window.
func (w Window) Contains(date string) bool {
	if date == "" {
		return false
	}
	if w.From != "" && date < w.From {
		return false
	}
	if w.To != "" && date > w.To {
		return false
	}
	return true
}

// Window returns the bounds to test task dates against, and false when the
// range does not restrict anything.
func (r DateRange) Window(now time.Time) (Window, bool) {
	switch r.Mode {
	case RangeRelative:
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		other := r.Relative.shift(today)
		if r.Relative.Direction == DirectionLast {
			return Window{From: other.Format(isoLayout), To: today.Format(isoLayout)}, true
		}
		return Window{From: today.Format(isoLayout), To: other.Format(isoLayout)}, true
	case RangeSpecific:
		if r.From == "" && r.To == "" {
			return Window{}, false
		}
		return Window{From: r.From, To: r.To}, true
	default:
		return Window{}, false
	}
}

func (rel Relative) shift(today time.Time) time.Time {
	n := rel.Amount
	if rel.Direction == DirectionLast {
		n = -n
	}
	switch rel.Unit {
	case UnitWeeks:
		return today.AddDate(0, 0, 7*n)
	case UnitMonths:
		return today.AddDate(0, n, 0)
	case UnitYears:
		return today.AddDate(n, 0, 0)
	default:
		return today.AddDate(0, 0, n)
	}
}

// String renders the relative range in directive form ("next 1 weeks").
func (rel Relative) String() string {
	return fmt.Sprintf("%s %d %s", rel.Direction, rel.Amount, rel.Unit)
}

// ParseRelative parses "<next|last> <integer> <days|weeks|months|years>".
// Singular units are accepted.
func ParseRelative(s string) (Relative, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) != 3 {
		return Relative{}, fmt.Errorf("relative range %q: want \"<next|last> <n> <unit>\"", s)
	}
	dir := Direction(fields[0])
	if dir != DirectionNext && dir != DirectionLast {
		return Relative{}, fmt.Errorf("relative range %q: unknown direction %q", s, fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return Relative{}, fmt.Errorf("relative range %q: amount must be a non-negative integer", s)
	}
	unit := Unit(fields[2])
	if !strings.HasSuffix(string(unit), "s") {
		unit += "s"
	}
	switch unit {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
	default:
		return Relative{}, fmt.Errorf("relative range %q: unknown unit %q", s, fields[2])
	}
	return Relative{Direction: dir, Amount: n, Unit: unit}, nil
}
