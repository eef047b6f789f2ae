// Package cocoa converts timestamps stored as seconds since the Mac epoch
// (2001-01-01T00:00:00Z) into absolute time.
package cocoa

import (
	"errors"
	"math"
	"time"
)

// EpochOffset is the Unix timestamp of Jan 2001 when the Mac epoch starts.
const EpochOffset = 978307200

// maxSeconds keeps the result inside the range time.Time can express as
// nanoseconds since the Unix epoch.
const maxSeconds = math.MaxInt64/int64(time.Second) - EpochOffset

// ErrInvalidTimestamp is returned for NaN, infinite or out-of-range values.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Decode returns the UTC instant v seconds after the Mac epoch.
func Decode(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > float64(maxSeconds) {
		return time.Time{}, ErrInvalidTimestamp
	}

	sec, frac := math.Modf(v)

	return time.Unix(int64(sec)+EpochOffset, int64(math.Round(frac*1e9))).UTC(), nil
}

// Encode returns t as seconds since the Mac epoch.
func Encode(t time.Time) float64 {
	return float64(t.Unix()-EpochOffset) + float64(t.Nanosecond())/1e9
}
