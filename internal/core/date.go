package core

import (
	"fmt"
	"time"
)

// CanonicalDate renders a time as YYYY-MM-DD using its own calendar
// components. No UTC conversion happens here: serializing via UTC shifts
// the day for times near midnight in non-UTC zones, which is exactly the
// bug this function exists to prevent. Every date equality or range
// comparison in this package goes through this form.
func CanonicalDate(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// Today returns the canonical date for the current local day.
func Today() string {
	return CanonicalDate(time.Now())
}

// ParseCanonicalDate parses a YYYY-MM-DD string, tolerating ISO-ish inputs
// with a time suffix ("2024-03-01T22:15:00Z" and "2024-03-01 22:15:00"):
// only the leading date part is kept, again avoiding timezone math.
// Canonicalizing an already canonical string is the identity.
func ParseCanonicalDate(s string) (time.Time, error) {
	if len(s) > 10 {
		switch s[10] {
		case 'T', ' ':
			s = s[:10]
		}
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// NormalizeDate canonicalizes any accepted date string.
func NormalizeDate(s string) (string, error) {
	t, err := ParseCanonicalDate(s)
	if err != nil {
		return "", err
	}
	return CanonicalDate(t), nil
}

// Window returns the inclusive [from, to] canonical-date window ending at
// ref for the period: the day itself, the trailing 7 days, or the calendar
// month containing ref.
func (p Period) Window(ref time.Time) (from, to string) {
	to = CanonicalDate(ref)
	switch p {
	case Daily:
		from = to
	case Weekly:
		from = CanonicalDate(ref.AddDate(0, 0, -6))
	case Monthly:
		y, m, _ := ref.Date()
		from = CanonicalDate(time.Date(y, m, 1, 0, 0, 0, 0, ref.Location()))
	default:
		from = to
	}
	return from, to
}
