package core

import (
	"fmt"
	"time"
)

// Month identifies a calendar month. All budget computations are parameterized
// by Month so they stay testable against fixed snapshots.
type Month struct {
	Year  int
	Month int // 1-12
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// CurrentMonth returns the month containing the current wall-clock time.
func CurrentMonth() Month {
	return MonthOf(time.Now())
}

// AddMonths returns the month n months after m (n may be negative).
func (m Month) AddMonths(n int) Month {
	t := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return MonthOf(t)
}

// Prev returns the month immediately before m.
func (m Month) Prev() Month {
	return m.AddMonths(-1)
}

// Contains reports whether t falls inside m.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && int(t.Month()) == m.Month
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}
