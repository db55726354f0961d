package mysqltime

import (
	"fmt"

	"github.com/sdh517/tikv/errs"
)

const nanosPerSecond int64 = 1_000_000_000

// maxDurationNanos bounds |d| < 24h * 36501, matching the source MySQL
// semantics (spec §3 "Duration entity").
const maxDurationNanos = int64(24) * 3600 * 36501 * nanosPerSecond

// Duration is signed nanoseconds since midnight, with an fsp.
type Duration struct {
	nanos int64
	fsp   int8
}

// FromNanos validates the range and builds a Duration.
func FromNanos(nanos int64, fsp int8) (Duration, error) {
	fsp, err := checkFsp(fsp)
	if err != nil {
		return Duration{}, err
	}
	if nanos <= -maxDurationNanos || nanos >= maxDurationNanos {
		return Duration{}, errs.Overflowf("duration %d ns out of range", nanos)
	}
	return Duration{nanos: nanos, fsp: fsp}, nil
}

// Zero is the zero-valued Duration (00:00:00).
func Zero() Duration { return Duration{} }

// ToNanos returns the signed nanosecond count.
func (d Duration) ToNanos() int64 { return d.nanos }

// Fsp returns the fractional-second precision.
func (d Duration) Fsp() int8 { return d.fsp }

// Compare orders two Durations by their nanosecond count.
func (d Duration) Compare(other Duration) int {
	switch {
	case d.nanos < other.nanos:
		return -1
	case d.nanos > other.nanos:
		return 1
	default:
		return 0
	}
}

// String renders "[-]HH:MM:SS[.fff...]".
func (d Duration) String() string {
	n := d.nanos
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	secsTotal := n / nanosPerSecond
	frac := n % nanosPerSecond
	hours := secsTotal / 3600
	minutes := (secsTotal % 3600) / 60
	secs := secsTotal % 60
	s := fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, minutes, secs)
	if d.fsp > 0 {
		scaled := frac / int64(pow10(9-int(d.fsp)))
		s += "." + fmt.Sprintf("%0*d", d.fsp, scaled)
	}
	return s
}

// ToSecondsDecimalString renders the duration as a signed seconds.fraction
// string, the form arithmetic coercion treats a Duration as (spec §4.3:
// "Duration becomes a Decimal of seconds with its fsp").
func (d Duration) ToSecondsDecimalString() string {
	n := d.nanos
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	whole := n / nanosPerSecond
	frac := n % nanosPerSecond
	if d.fsp == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	scaled := frac / int64(pow10(9-int(d.fsp)))
	return fmt.Sprintf("%s%d.%0*d", sign, whole, d.fsp, scaled)
}
