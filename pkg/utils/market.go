package utils

import (
	"math"
	"time"
)

// IndiaLocation is the timezone used by Delta Exchange India for
// option settlement (daily expiries at 17:30 IST).
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// RoundToInterval rounds a price to the nearest strike interval.
func RoundToInterval(price, interval float64) float64 {
	if interval <= 0 {
		return price
	}
	return math.Round(price/interval) * interval
}

// StrikeInterval returns the exchange strike spacing for an underlying.
func StrikeInterval(underlying string) float64 {
	switch underlying {
	case "BTC":
		return 1000
	case "ETH":
		return 100
	default:
		return 100
	}
}

// IsLotMultiple reports whether a requested quantity is an integer
// multiple of the underlying's lot granularity.
func IsLotMultiple(quantity, lotSize int) bool {
	if lotSize <= 0 {
		return quantity > 0
	}
	return quantity > 0 && quantity%lotSize == 0
}

// NextExpiry returns the next daily option settlement time after now.
func NextExpiry(now time.Time) time.Time {
	local := now.In(IndiaLocation)
	expiry := time.Date(local.Year(), local.Month(), local.Day(), 17, 30, 0, 0, IndiaLocation)
	if !local.Before(expiry) {
		expiry = expiry.AddDate(0, 0, 1)
	}
	return expiry
}

// SameExpiry reports whether two settlement times fall on the same
// settlement date.
func SameExpiry(a, b time.Time) bool {
	al, bl := a.In(IndiaLocation), b.In(IndiaLocation)
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}
