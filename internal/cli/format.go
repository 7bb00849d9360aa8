// Package cli provides the command-line interface for the trading application.
package cli

import (
	"fmt"
	"strings"
	"time"

	"straddle-trader/internal/models"
)

// FormatUSD formats a dollar amount with thousands separators and two
// decimal places.
func FormatUSD(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	result := "$" + groupThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	return groupThousands(s[:n-3]) + "," + s[n-3:]
}

// FormatPnL formats P&L with an explicit sign.
func FormatPnL(pnl float64) string {
	formatted := FormatUSD(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatStrike formats a strike price without decimals.
func FormatStrike(strike float64) string {
	return groupThousands(fmt.Sprintf("%.0f", strike))
}

// FormatExpiry renders an option expiry timestamp as a date.
func FormatExpiry(t time.Time) string {
	return t.Format("02 Jan 2006 15:04 MST")
}

// FormatQuantity formats a signed contract quantity with an explicit
// sign for non-zero values.
func FormatQuantity(qty int) string {
	if qty > 0 {
		return fmt.Sprintf("+%d", qty)
	}
	return fmt.Sprintf("%d", qty)
}

// statusColor maps an outcome status to a terminal color.
func statusColor(status models.OutcomeStatus) string {
	switch status {
	case models.OutcomeBothFilled:
		return ColorGreen
	case models.OutcomeUnwound:
		return ColorYellow
	case models.OutcomeOneLegFilled:
		return ColorRed
	default:
		return ColorDim
	}
}
