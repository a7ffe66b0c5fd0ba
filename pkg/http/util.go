package http

import (
	"time"

	xutil "HistPull/pkg/util"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) { return xutil.ParseTime(s) }

// AlignFromTo rounds the request range down to boundaries of the timeframe.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
	return xutil.AlignFromTo(from, to, tf)
}
