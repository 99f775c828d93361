package core

import (
	"testing"
	"time"
)

func TestCanonicalDateUsesLocalCalendar(t *testing.T) {
	// Local March 1, 2024 must canonicalize to 2024-03-01 regardless of
	// the host zone; a UTC-based serialization would shift this near
	// midnight.
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	if got := CanonicalDate(d); got != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %q", got)
	}

	// Late evening in a zone far east of UTC is the classic off-by-one.
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	late := time.Date(2024, 3, 1, 23, 30, 0, 0, tokyo)
	if got := CanonicalDate(late); got != "2024-03-01" {
		t.Fatalf("expected 2024-03-01 for 23:30 Tokyo, got %q", got)
	}
}

func TestNormalizeDateIdempotent(t *testing.T) {
	inputs := []string{"2024-03-01", "2024-12-31", "2023-02-28"}
	for _, in := range inputs {
		once, err := NormalizeDate(in)
		if err != nil {
			t.Fatalf("normalize %q: %v", in, err)
		}
		twice, err := NormalizeDate(once)
		if err != nil {
			t.Fatalf("re-normalize %q: %v", once, err)
		}
		if once != twice || once != in {
			t.Fatalf("%q not idempotent: %q -> %q", in, once, twice)
		}
	}
}

func TestParseCanonicalDate(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"2024-03-01", "2024-03-01", true},
		{"2024-03-01T22:15:00Z", "2024-03-01", true},
		{"2024-03-01 08:00:00", "2024-03-01", true},
		{"01/03/2024", "", false},
		{"not-a-date", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeDate(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %q", tc.in, got)
		}
	}
}

func TestPeriodWindow(t *testing.T) {
	ref := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
	cases := []struct {
		p    Period
		from string
		to   string
	}{
		{Daily, "2024-03-15", "2024-03-15"},
		{Weekly, "2024-03-09", "2024-03-15"},
		{Monthly, "2024-03-01", "2024-03-15"},
	}
	for _, tc := range cases {
		from, to := tc.p.Window(ref)
		if from != tc.from || to != tc.to {
			t.Fatalf("%s expected [%s, %s], got [%s, %s]", tc.p, tc.from, tc.to, from, to)
		}
	}
}
