// Package cli provides the command-line interface for the trading application.
package cli

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$0.00", FormatUSD(0))
	assert.Equal(t, "$1,250.50", FormatUSD(1250.5))
	assert.Equal(t, "$65,000.00", FormatUSD(65000))
	assert.Equal(t, "$1,234,567.89", FormatUSD(1234567.89))
	assert.Equal(t, "-$42.10", FormatUSD(-42.1))
}

func TestFormatPnL(t *testing.T) {
	assert.Equal(t, "+$100.00", FormatPnL(100))
	assert.Equal(t, "-$100.00", FormatPnL(-100))
	assert.Equal(t, "$0.00", FormatPnL(0))
}

func TestFormatStrike(t *testing.T) {
	assert.Equal(t, "65,000", FormatStrike(65000))
	assert.Equal(t, "3,200", FormatStrike(3200))
	assert.Equal(t, "900", FormatStrike(900))
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "+2", FormatQuantity(2))
	assert.Equal(t, "-3", FormatQuantity(-3))
	assert.Equal(t, "0", FormatQuantity(0))
}

// Property: for any amount, FormatUSD keeps two decimal places, groups
// the integer part in threes, and parses back to the original value.
func TestProperty_USDFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	groupedPattern := regexp.MustCompile(`^\d{1,3}(,\d{3})*$`)

	properties.Property("FormatUSD groups digits and preserves the value", prop.ForAll(
		func(cents int64) bool {
			amount := float64(cents) / 100
			formatted := FormatUSD(amount)

			numPart := strings.TrimPrefix(formatted, "-")
			if !strings.HasPrefix(numPart, "$") {
				return false
			}
			numPart = strings.TrimPrefix(numPart, "$")

			parts := strings.Split(numPart, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				return false
			}
			if !groupedPattern.MatchString(parts[0]) {
				return false
			}

			parsed, err := strconv.ParseFloat(strings.ReplaceAll(numPart, ",", ""), 64)
			if err != nil {
				return false
			}
			if formatted[0] == '-' {
				parsed = -parsed
			}
			return math.Abs(parsed-amount) < 0.005
		},
		gen.Int64Range(-1e12, 1e12),
	))

	properties.TestingRun(t)
}
