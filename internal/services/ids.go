package services

import (
	"strconv"
	"time"
)

// isoMillis matches JavaScript's Date.toISOString, which the sheet already holds.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// NewGuestID derives a guest id from the clock: nanoseconds since epoch as a
// decimal string. Two intakes within the same clock tick collide.
func NewGuestID(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 10)
}

func isoTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
