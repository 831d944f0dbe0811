// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatMoney formats a dollar amount with thousands separators.
func FormatMoney(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := parts[0]
	decPart := parts[1]

	result := "$" + groupThousands(intPart) + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts commas into an integer string every three digits.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	s = s[:n-3]
	for len(s) > 3 {
		result = s[len(s)-3:] + "," + result
		s = s[:len(s)-3]
	}
	return s + "," + result
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatChange formats a price move with sign.
func FormatChange(change float64) string {
	formatted := FormatMoney(change)
	if change > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatQuantity formats a quantity with commas.
func FormatQuantity(qty int64) string {
	return groupThousands(fmt.Sprintf("%d", qty))
}

// FormatCompact formats a number in compact form (K/M/B).
func FormatCompact(amount float64) string {
	absAmount := amount
	if absAmount < 0 {
		absAmount = -absAmount
	}

	switch {
	case absAmount >= 1e9:
		return fmt.Sprintf("%.2fB", amount/1e9)
	case absAmount >= 1e6:
		return fmt.Sprintf("%.2fM", amount/1e6)
	case absAmount >= 1e3:
		return fmt.Sprintf("%.2fK", amount/1e3)
	}
	return FormatMoney(amount)
}

// TruncateString shortens s to max characters, appending an ellipsis.
func TruncateString(s string, max int) string {
	if max <= 3 || len(s) <= max {
		if len(s) <= max {
			return s
		}
		return s[:max]
	}
	return s[:max-3] + "..."
}
