// Package cli provides the command-line interface for the scanner.
package cli

import (
	"fmt"
	"strings"
	"time"

	"market-scanner/internal/models"
)

// FormatPrice formats a price with appropriate decimal places.
func FormatPrice(price float64) string {
	if price >= 10 {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.4f", price)
}

// FormatTime formats a time of day.
func FormatTime(t time.Time) string {
	return t.Local().Format("15:04:05")
}

// FormatDate formats a date.
func FormatDate(t time.Time) string {
	return t.Local().Format("02-Jan-2006")
}

// FormatDateTime formats a datetime.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("02-Jan-2006 15:04:05")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// FormatIntent returns the display label for an alert intent.
func FormatIntent(intent models.Intent) string {
	switch intent {
	case models.IntentTarget:
		return "TARGET"
	case models.IntentMover:
		return "MOVER"
	case models.IntentHiloHigh:
		return "52W HIGH"
	case models.IntentHiloLow:
		return "52W LOW"
	default:
		return strings.ToUpper(string(intent))
	}
}

// FormatDirection returns an arrow for a movement direction.
func FormatDirection(d models.Direction) string {
	switch d {
	case models.DirectionUp:
		return "↑"
	case models.DirectionDown:
		return "↓"
	default:
		return "·"
	}
}

// FormatTarget renders a share's target configuration, or "-" when unset.
func FormatTarget(share models.Share) string {
	if !share.HasTarget() {
		return "-"
	}
	return fmt.Sprintf("%s %.2f (%s)", share.TargetDirection, share.TargetPrice, share.TargetKind)
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// PadLeft pads a string to the left.
func PadLeft(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(" ", length-len(s)) + s
}
