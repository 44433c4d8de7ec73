package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in minor currency units (paise).
type Money int64

// Times returns m multiplied by a quantity.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// Percent returns basisPoints/10000 of m rounded half away from zero.
func (m Money) Percent(basisPoints int64) Money {
	v := int64(m) * basisPoints
	if v < 0 {
		return Money(-((-v + 5000) / 10000))
	}
	return Money((v + 5000) / 10000)
}

// String renders the amount with two fraction digits, e.g. "2499.00".
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseMoney parses a decimal string with at most two fraction digits.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse money: empty value")
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("parse money %q: more than two fraction digits", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return Money(v), nil
}
