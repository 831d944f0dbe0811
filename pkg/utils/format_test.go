package utils

import "testing"

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{42.5, "$42.50"},
		{1234.56, "$1,234.56"},
		{1234567.891, "$1,234,567.89"},
		{-9876.5, "-$9,876.50"},
		{999, "$999.00"},
		{1000, "$1,000.00"},
	}
	for _, tc := range cases {
		if got := FormatMoney(tc.in); got != tc.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{2.5, "+2.50%"},
		{-3.14, "-3.14%"},
		{0, "0.00%"},
	}
	for _, tc := range cases {
		if got := FormatPercent(tc.in); got != tc.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatChange(t *testing.T) {
	if got := FormatChange(1.5); got != "+$1.50" {
		t.Errorf("FormatChange(1.5) = %q", got)
	}
	if got := FormatChange(-1.5); got != "-$1.50" {
		t.Errorf("FormatChange(-1.5) = %q", got)
	}
}

func TestFormatCompact(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{500, "$500.00"},
		{1500, "1.50K"},
		{2500000, "2.50M"},
		{3200000000, "3.20B"},
	}
	for _, tc := range cases {
		if got := FormatCompact(tc.in); got != tc.want {
			t.Errorf("FormatCompact(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"a longer instrument name", 10, "a longe..."},
		{"abc", 2, "ab"},
	}
	for _, tc := range cases {
		if got := TruncateString(tc.in, tc.max); got != tc.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
