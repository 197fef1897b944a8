package item

import (
	"math"
	"time"
)

// Status is the freshness of an item relative to the current time. It is
// recomputed on every read and never persisted.
type Status string

const (
	StatusExpired      Status = "expired"
	StatusExpiringSoon Status = "expiring-soon"
	StatusGood         Status = "good"
)

// expiringSoonDays is the remaining-days threshold below which an item
// counts as expiring soon
const expiringSoonDays = 7

const dayDuration = 24 * time.Hour

// ceilDays returns the number of whole days from a to b, rounding any
// partial day up
func ceilDays(a, b time.Time) int {
	return int(math.Ceil(float64(b.Sub(a)) / float64(dayDuration)))
}

// roundDays returns the number of days from a to b, rounding a partial
// day to the nearest whole day
func roundDays(a, b time.Time) int {
	return int(math.Round(float64(b.Sub(a)) / float64(dayDuration)))
}

// ComputeStatus derives the freshness status from the purchase and expiry
// timestamps and the current time
func ComputeStatus(purchase, expiry, now time.Time) Status {
	totalDays := ceilDays(purchase, expiry)
	elapsed := ceilDays(purchase, now)
	remaining := totalDays - elapsed

	switch {
	case remaining < 0:
		return StatusExpired
	case remaining < expiringSoonDays:
		return StatusExpiringSoon
	default:
		return StatusGood
	}
}

// RemainingDays returns the whole days of shelf life left for an item
func RemainingDays(purchase, expiry, now time.Time) int {
	return ceilDays(purchase, expiry) - ceilDays(purchase, now)
}

// ShiftPurchaseDate returns the expiry date an item gets when its purchase
// date is corrected to newPurchase, preserving the original total shelf
// life in whole days
func ShiftPurchaseDate(purchase, expiry, newPurchase time.Time) time.Time {
	daysDiff := roundDays(purchase, expiry)
	return newPurchase.AddDate(0, 0, daysDiff)
}

// Shifted returns a copy of the item with its purchase date moved to
// newPurchase and its expiry recomputed to keep the same shelf life
func (i Item) Shifted(newPurchase time.Time) Item {
	i.ExpiryDate = ShiftPurchaseDate(i.PurchaseDate, i.ExpiryDate, newPurchase)
	i.PurchaseDate = newPurchase
	return i
}
