package core

import (
	"encoding/json"
	"fmt"
	"time"
)

const MonthLayout = "2006-01"

// Month is a calendar month, e.g. 2025-01.
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	// normalize overflowing months (e.g. 13 -> January next year)
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// MonthOf returns the calendar month of `t` in t's own location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, CleanString(s))
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return MonthOf(t), nil
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

func (m Month) Before(o Month) bool { return m.index() < o.index() }
func (m Month) After(o Month) bool  { return m.index() > o.index() }

// AddMonths returns the month `n` months after m.
func (m Month) AddMonths(n int) Month {
	return NewMonth(m.Year, m.Month+time.Month(n))
}

func (m Month) Next() Month {
	return m.AddMonths(1)
}

// First returns the first day of the month.
func (m Month) First() Date {
	return NewDate(m.Year, m.Month, 1)
}

// Last returns the last day of the month.
func (m Month) Last() Date {
	return m.Next().First().AddDays(-1)
}

// Day returns the given day of the month, clamped to the month's last day.
func (m Month) Day(day int) Date {
	if day < 1 {
		day = 1
	}
	if last := m.Last(); day > last.Day() {
		return last
	}
	return NewDate(m.Year, m.Month, day)
}

// Contains reports whether `d` falls within the month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Month() == m.Month
}

// MonthsBetween lists every month of [from, to], both included.
func MonthsBetween(from, to Month) []Month {
	if to.Before(from) {
		return nil
	}
	months := make([]Month, 0, to.index()-from.index()+1)
	for m := from; !m.After(to); m = m.Next() {
		months = append(months, m)
	}
	return months
}

func (m Month) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

func (m *Month) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Month{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
