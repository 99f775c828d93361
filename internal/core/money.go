// Package core holds the pure aggregation and normalization logic for
// driver financial records.
//
// This file contains amount parsing: the mobile clients send amounts as
// free-text strings, so parsing first strips everything that is not a digit
// or a decimal point, then converts to integer cents.
package core

import (
	"strconv"
	"strings"
)

// maxIntegerDigits caps the integer part of a parsed amount. The limit
// comes from the record entry form, which rejects amounts wider than five
// digits before the decimal point.
const maxIntegerDigits = 5

// ParseAmountToCents converts a raw amount string to cents.
//
// Characters outside [0-9.] are stripped (so "€1,234.50" and "1 234.50"
// both work), extra decimal points after the first are dropped, the
// integer part is truncated to maxIntegerDigits, and the third fractional
// digit rounds half-up. The result is always positive cents.
//
// Examples:
//
//	ParseAmountToCents("12.34")   -> 1234, nil
//	ParseAmountToCents("$99.999") -> 10000, nil (rounds up)
//	ParseAmountToCents("-5")      -> 0, ErrInvalidAmount
//	ParseAmountToCents("abc")     -> 0, ErrInvalidAmount
func ParseAmountToCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	// Negative amounts are invalid, not normalized to positive.
	if strings.HasPrefix(raw, "-") {
		return 0, ErrInvalidAmount
	}

	var b strings.Builder
	seenDot := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" || s == "." {
		return 0, ErrInvalidAmount
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(intPart) > maxIntegerDigits {
		intPart = intPart[:maxIntegerDigits]
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	// First two fractional digits, half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Units returns the whole-unit value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// FormatAmount renders cents as a plain "123.45" decimal string.
func FormatAmount(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
