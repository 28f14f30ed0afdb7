package core

import (
	"fmt"
	"strconv"
	"strings"
)

// MonthKey identifies a calendar month as "YYYY-MM". Keys sort
// chronologically as plain strings, which holds for years 0001 to 9999 only.
// ParseMonthKey rejects anything outside that range and ParseDate never
// yields a date outside it, so every key built from a parsed date parses
// back to itself.
type MonthKey string

// FormatMonthKey returns the key of the month d falls in.
func FormatMonthKey(d Date) MonthKey {
	return NewMonthKey(d.Year(), d.Month())
}

func NewMonthKey(year, month int) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, month))
}

// ParseMonthKey validates s and returns it as a MonthKey.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' || !digits(s[:4]) || !digits(s[5:]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	y, _ := strconv.Atoi(s[:4])
	m, _ := strconv.Atoi(s[5:])
	if y < 1 || m < 1 || m > 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return NewMonthKey(y, m), nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (k MonthKey) String() string { return string(k) }

// Year returns the year part, or 0 for a malformed key.
func (k MonthKey) Year() int {
	if len(k) < 4 {
		return 0
	}
	y, _ := strconv.Atoi(string(k[:4]))
	return y
}

// Month returns the month part (1-12), or 0 for a malformed key.
func (k MonthKey) Month() int {
	if len(k) != 7 {
		return 0
	}
	m, _ := strconv.Atoi(string(k[5:]))
	return m
}

// FirstDay returns the first day of the month.
func (k MonthKey) FirstDay() Date {
	return NewDate(k.Year(), k.Month(), 1)
}
