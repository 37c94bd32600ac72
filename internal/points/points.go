// Package points derives pandapunten from elapsed time.
package points

import "time"

// Week is the length of one scoring period.
const Week = 7 * 24 * time.Hour

const weekSeconds = int64(Week / time.Second)

// For returns the number of whole weeks between lastReset and now, rounded
// toward negative infinity. A lastReset in the future yields a negative
// value, which is returned unclamped.
//
// The difference is taken in whole seconds rather than with Time.Sub, which
// saturates beyond roughly 292 years.
func For(lastReset, now time.Time) int {
	secs := now.Unix() - lastReset.Unix()
	if now.Nanosecond() < lastReset.Nanosecond() {
		secs--
	}
	weeks := secs / weekSeconds
	if secs%weekSeconds < 0 {
		weeks--
	}
	return int(weeks)
}
