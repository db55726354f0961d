// Package mysqltime implements the Time and Duration Datum payloads: a
// timezone-aware instant with a DATE/DATETIME/TIMESTAMP type tag and a
// fractional-second precision (fsp), the 64-bit packed encoding used to
// transmit a Time as a Datum payload, MySQL-flavored datetime string
// parsing, and fsp-aware rounding.
//
// Ported from tikv's coprocessor/codec/mysql/time.rs (see
// _examples/original_source), which itself built on chrono's
// DateTime<FixedOffset>; here a stdlib time.Time carrying a
// time.FixedZone plays the same role.
package mysqltime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sdh517/tikv/errs"
)

// Type tags a Time as DATE, DATETIME, or TIMESTAMP. The numeric values
// match MySQL's own column-type codes, which is how tp travels over the
// wire in a tipb.FieldType.
type Type int8

const (
	TypeTimestamp Type = 7
	TypeDate      Type = 10
	TypeDatetime  Type = 12
)

func (tp Type) String() string {
	switch tp {
	case TypeDate:
		return "DATE"
	case TypeDatetime:
		return "DATETIME"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return fmt.Sprintf("Type(%d)", int8(tp))
	}
}

// MaxFsp is the largest legal fractional-second precision.
const MaxFsp int8 = 6

// MinFsp is the smallest legal fractional-second precision.
const MinFsp int8 = 0

// UnspecifiedFsp requests the default display precision (0).
const UnspecifiedFsp int8 = -1

func checkFsp(fsp int8) (int8, error) {
	if fsp == UnspecifiedFsp {
		return 0, nil
	}
	if fsp < MinFsp || fsp > MaxFsp {
		return 0, errs.Overflowf("invalid fsp %d, must be in 0..=6", fsp)
	}
	return fsp, nil
}

// checkTzOffset enforces the EvalContext invariant that a fixed UTC offset
// satisfies |offset| < 86400 (spec §4.3, §8 "Tz range").
func checkTzOffset(tzOffsetSeconds int) error {
	if tzOffsetSeconds <= -86400 || tzOffsetSeconds >= 86400 {
		return errs.Overflowf("tz offset %d out of range (-86400, 86400)", tzOffsetSeconds)
	}
	return nil
}

const zeroDateStr = "0000-00-00"
const zeroDatetimeStr = "0000-00-00 00:00:00"

// zeroUnixSeconds is the Unix timestamp of time.Date(0, 0, 0, 0, 0, 0, 0,
// time.UTC): Go normalizes a zero-valued calendar date to -0001-11-30, the
// same sentinel instant tikv's Go-derived Rust comment documents. Any real
// Time compares strictly greater than it.
var zeroUnixSeconds = time.Date(0, 0, 0, 0, 0, 0, 0, time.UTC).Unix()

func zeroInstant(loc *time.Location) time.Time {
	return time.Unix(zeroUnixSeconds, 0).In(loc)
}

// Time is a timezone-aware instant tagged with a storage type and fsp.
type Time struct {
	instant time.Time
	tp      Type
	fsp     int8
}

// New validates fsp and wraps instant/tp into a Time.
func New(instant time.Time, tp Type, fsp int8) (Time, error) {
	fsp, err := checkFsp(fsp)
	if err != nil {
		return Time{}, err
	}
	return Time{instant: instant, tp: tp, fsp: fsp}, nil
}

// Zero returns the reserved "0000-00-00 00:00:00" sentinel for tp/fsp,
// displayed and compared in the timezone given by tzOffsetSeconds.
func Zero(tp Type, fsp int8, tzOffsetSeconds int) (Time, error) {
	fsp, err := checkFsp(fsp)
	if err != nil {
		return Time{}, err
	}
	if err := checkTzOffset(tzOffsetSeconds); err != nil {
		return Time{}, err
	}
	loc := time.FixedZone("", tzOffsetSeconds)
	return Time{instant: zeroInstant(loc), tp: tp, fsp: fsp}, nil
}

// Type returns the DATE/DATETIME/TIMESTAMP tag.
func (t Time) Type() Type { return t.tp }

// Fsp returns the fractional-second precision.
func (t Time) Fsp() int8 { return t.fsp }

// SetFsp changes the display/rounding precision without touching the
// underlying instant. Use RoundFrac to also round the stored value.
func (t Time) SetFsp(fsp int8) (Time, error) {
	fsp, err := checkFsp(fsp)
	if err != nil {
		return Time{}, err
	}
	t.fsp = fsp
	return t, nil
}

// SetType implements the Time.set_tp state machine (spec §4.3):
// DATETIME -> DATE truncates the time-of-day; DATE -> DATETIME is a
// no-op on storage; any -> TIMESTAMP (when actually changing type) is
// forbidden.
func (t Time) SetType(tp Type) (Time, error) {
	if t.tp != tp && tp == TypeDate {
		y, m, d := t.instant.Date()
		t.instant = time.Date(y, m, d, 0, 0, 0, 0, t.instant.Location())
	}
	if t.tp != tp && tp == TypeTimestamp {
		return Time{}, errs.Evalf("cannot convert %s to TIMESTAMP", t.tp)
	}
	t.tp = tp
	return t, nil
}

// IsZero reports whether t is the reserved zero-time sentinel.
func (t Time) IsZero() bool {
	return t.instant.Unix() == zeroUnixSeconds && t.instant.Nanosecond() == 0
}

// Instant exposes the underlying absolute instant, mostly for tests.
func (t Time) Instant() time.Time { return t.instant }

// Compare orders t and other as real timestamps; a zero Time sorts before
// every non-zero Time because its sentinel instant is far in the past.
func (t Time) Compare(other Time) int {
	switch {
	case t.instant.Before(other.instant):
		return -1
	case t.instant.After(other.instant):
		return 1
	default:
		return 0
	}
}

// Equal reports whether t and other represent the same instant.
func (t Time) Equal(other Time) bool { return t.Compare(other) == 0 }

func (t Time) toNumericString() string {
	if t.tp == TypeDate {
		return t.instant.Format("20060102")
	}
	s := t.instant.Format("20060102150405")
	if t.fsp > 0 {
		nanos := t.instant.Nanosecond() / pow10(9-int(t.fsp))
		return fmt.Sprintf("%s.%0*d", s, t.fsp, nanos)
	}
	return s
}

// ToDecimalString renders the numeric-string form used by to_decimal/
// to_f64 (spec §3 "Datetime numeric string").
func (t Time) ToDecimalString() string {
	if t.IsZero() {
		return "0"
	}
	return t.toNumericString()
}

// ToFloat64 parses the numeric-string form as a float64.
func (t Time) ToFloat64() (float64, error) {
	if t.IsZero() {
		return 0, nil
	}
	f, err := strconv.ParseFloat(t.toNumericString(), 64)
	if err != nil {
		return 0, errs.Decodef("time %q is not numeric: %v", t.String(), err)
	}
	return f, nil
}

// String renders the display form (spec §6 "Datetime display").
func (t Time) String() string {
	if t.IsZero() {
		if t.tp == TypeDate {
			return zeroDateStr
		}
		return zeroDatetimeStr
	}
	if t.tp == TypeDate {
		return t.instant.Format("2006-01-02")
	}
	s := t.instant.Format("2006-01-02 15:04:05")
	if t.fsp > 0 {
		nanos := t.instant.Nanosecond() / pow10(9-int(t.fsp))
		s += "." + fmt.Sprintf("%0*d", t.fsp, nanos)
	}
	return s
}

func pow10(n int) int {
	r := 1
	for i := 0; i < n; i++ {
		r *= 10
	}
	return r
}

// RoundFrac rounds the stored instant's fractional seconds to newFsp
// digits, half away from zero, carrying into seconds/minutes/.../years as
// needed. On DATE (which has no time-of-day) and on the zero sentinel
// only the fsp changes; the stored value is left as it is.
func (t Time) RoundFrac(newFsp int8) (Time, error) {
	newFsp, err := checkFsp(newFsp)
	if err != nil {
		return Time{}, err
	}
	if t.tp == TypeDate || t.IsZero() {
		t.fsp = newFsp
		return t, nil
	}
	if newFsp == t.fsp {
		return t, nil
	}
	nanos := int64(t.instant.Nanosecond())
	base := int64(pow10(9 - int(newFsp)))
	rounded := roundHalfAwayFromZero(nanos, base)
	diff := rounded - nanos
	newInstant := t.instant.Add(time.Duration(diff))
	if newInstant.Year() > 9999 {
		return Time{}, errs.Overflowf("round_frac %s overflows year 10000", t.instant)
	}
	t.instant = newInstant
	t.fsp = newFsp
	return t, nil
}

func roundHalfAwayFromZero(v, base int64) int64 {
	if base <= 1 {
		return v
	}
	half := base / 2
	return ((v + half) / base) * base
}

// ToPackedU64 serializes t to the 64-bit packed encoding (spec §3). A
// TIMESTAMP is packed using its naive UTC components; DATE/DATETIME use
// the components as displayed in their own timezone.
func (t Time) ToPackedU64() uint64 {
	if t.IsZero() {
		return 0
	}
	inst := t.instant
	if t.tp == TypeTimestamp {
		inst = inst.UTC()
	}
	y, m, d := inst.Date()
	ymd := (uint64(y)*13 + uint64(m)) << 5
	ymd |= uint64(d)
	hms := uint64(inst.Hour())<<12 | uint64(inst.Minute())<<6 | uint64(inst.Second())
	micro := uint64(inst.Nanosecond()) / 1000
	return (((ymd << 17) | hms) << 24) | micro
}

// FromPackedU64 decodes the packed encoding in the given tz. When tp is
// TIMESTAMP, the packed components are interpreted as UTC wall-clock
// values and then re-labeled into tz (same absolute instant, different
// display offset); otherwise they're interpreted directly in tz.
func FromPackedU64(u uint64, tp Type, fsp int8, tzOffsetSeconds int) (Time, error) {
	if u == 0 {
		return Zero(tp, fsp, tzOffsetSeconds)
	}
	fsp, err := checkFsp(fsp)
	if err != nil {
		return Time{}, err
	}
	if err := checkTzOffset(tzOffsetSeconds); err != nil {
		return Time{}, err
	}
	loc := time.FixedZone("", tzOffsetSeconds)
	ymdhms := u >> 24
	ymd := ymdhms >> 17
	day := int(ymd & ((1 << 5) - 1))
	ym := ymd >> 5
	month := int(ym % 13)
	year := int(ym / 13)
	hms := ymdhms & ((1 << 17) - 1)
	second := int(hms & ((1 << 6) - 1))
	minute := int((hms >> 6) & ((1 << 6) - 1))
	hour := int(hms >> 12)
	nanosec := int((u & ((1 << 24) - 1)) * 1000)

	var instant time.Time
	if tp == TypeTimestamp {
		instant = time.Date(year, time.Month(month), day, hour, minute, second, nanosec, time.UTC).In(loc)
	} else {
		instant = time.Date(year, time.Month(month), day, hour, minute, second, nanosec, loc)
	}
	return Time{instant: instant, tp: tp, fsp: fsp}, nil
}

// ToDuration converts t to the elapsed Duration since midnight of its own
// calendar day.
func (t Time) ToDuration() (Duration, error) {
	if t.IsZero() {
		return Duration{fsp: t.fsp}, nil
	}
	midnight := time.Date(t.instant.Year(), t.instant.Month(), t.instant.Day(), 0, 0, 0, 0, t.instant.Location())
	nanos := t.instant.Sub(midnight).Nanoseconds()
	return FromNanos(nanos, t.fsp)
}

// FromDuration builds a Time for "today" (in tz) plus the given Duration.
func FromDuration(tzOffsetSeconds int, tp Type, d Duration) (Time, error) {
	if err := checkTzOffset(tzOffsetSeconds); err != nil {
		return Time{}, err
	}
	loc := time.FixedZone("", tzOffsetSeconds)
	now := time.Now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	instant := midnight.Add(time.Duration(d.nanos))
	if instant.Year() < 1000 || instant.Year() > 9999 {
		return Time{}, errs.Overflowf("datetime %v out of range ('1000-01-01' to '9999-12-31')", instant)
	}
	if tp == TypeDate {
		y, m, dd := instant.Date()
		instant = time.Date(y, m, dd, 0, 0, 0, 0, loc)
	}
	return Time{instant: instant, tp: tp, fsp: d.fsp}, nil
}

// splitOnNonDigit mirrors parse_datetime_format: split on every single
// non-digit character, rejecting the whole string if any resulting piece
// is empty (consecutive separators, leading/trailing separators, etc).
func splitOnNonDigit(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := splitKeepEmpty(s)
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}

func splitKeepEmpty(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r < '0' || r > '9' {
			out = append(out, s[start:i])
			start = i + len(string(r))
		}
	}
	out = append(out, s[start:])
	return out
}

func splitYMDHMS(s string) (year, month, day, hour, minute, sec int, err error) {
	switch len(s) {
	case 14, 8:
		year, err = strconv.Atoi(s[:4])
		s = s[4:]
	case 12, 6:
		year, err = strconv.Atoi(s[:2])
		s = s[2:]
	default:
		return 0, 0, 0, 0, 0, 0, errs.Decodef("invalid datetime component %q", s)
	}
	if err != nil {
		return 0, 0, 0, 0, 0, 0, errs.Decodef("invalid year in %q: %v", s, err)
	}
	if len(s) < 4 {
		return 0, 0, 0, 0, 0, 0, errs.Decodef("invalid datetime component %q", s)
	}
	if month, err = strconv.Atoi(s[:2]); err != nil {
		return 0, 0, 0, 0, 0, 0, errs.Decodef("invalid month: %v", err)
	}
	if day, err = strconv.Atoi(s[2:4]); err != nil {
		return 0, 0, 0, 0, 0, 0, errs.Decodef("invalid day: %v", err)
	}
	if len(s) > 4 {
		if hour, err = strconv.Atoi(s[4:6]); err != nil {
			return 0, 0, 0, 0, 0, 0, errs.Decodef("invalid hour: %v", err)
		}
	}
	if len(s) > 6 {
		if minute, err = strconv.Atoi(s[6:8]); err != nil {
			return 0, 0, 0, 0, 0, 0, errs.Decodef("invalid minute: %v", err)
		}
	}
	if len(s) > 8 {
		if sec, err = strconv.Atoi(s[8:10]); err != nil {
			return 0, 0, 0, 0, 0, 0, errs.Decodef("invalid second: %v", err)
		}
	}
	return year, month, day, hour, minute, sec, nil
}

func parseFracNanos(fracStr string, fsp int8) int64 {
	digits := fracStr
	if len(digits) > 9 {
		digits = digits[:9]
	}
	for len(digits) < 9 {
		digits += "0"
	}
	nanos, _ := strconv.ParseInt(digits, 10, 64)
	base := int64(pow10(9 - int(fsp)))
	return roundHalfAwayFromZero(nanos, base)
}

// ParseUTCDatetime parses s in the UTC timezone.
func ParseUTCDatetime(s string, fsp int8) (Time, error) {
	return ParseDatetime(s, fsp, 0)
}

// ParseDatetime parses a MySQL-flavored datetime/date string (spec §4.3
// "Temporal parsing"): numeric-only forms of length 6/8/12/14, optionally
// followed by ".fraction", or delimited forms with any single non-digit
// separator splitting into 3, 6, or 7 numeric components.
func ParseDatetime(s string, fsp int8, tzOffsetSeconds int) (Time, error) {
	fsp, err := checkFsp(fsp)
	if err != nil {
		return Time{}, err
	}
	if err := checkTzOffset(tzOffsetSeconds); err != nil {
		return Time{}, err
	}
	loc := time.FixedZone("", tzOffsetSeconds)

	parts := splitOnNonDigit(s)
	var year, month, day, hour, minute, sec int
	fracStr := ""
	needAdjust := false

	switch len(parts) {
	case 1:
		p := parts[0]
		needAdjust = len(p) == 12 || len(p) == 6
		switch len(p) {
		case 14, 12, 8, 6:
			year, month, day, hour, minute, sec, err = splitYMDHMS(p)
		default:
			return Time{}, errs.Decodef("invalid datetime: %q", s)
		}
	case 2:
		p, frac := parts[0], parts[1]
		fracStr = frac
		needAdjust = len(p) == 12 || len(p) == 6
		switch len(p) {
		case 14, 12, 8, 6:
			year, month, day, hour, minute, sec, err = splitYMDHMS(p)
		default:
			return Time{}, errs.Decodef("invalid datetime: %q", s)
		}
	case 3:
		year, err = strconv.Atoi(parts[0])
		if err == nil {
			month, err = strconv.Atoi(parts[1])
		}
		if err == nil {
			day, err = strconv.Atoi(parts[2])
		}
	case 6:
		vals := make([]int, 6)
		for i, p := range parts {
			vals[i], err = strconv.Atoi(p)
			if err != nil {
				break
			}
		}
		year, month, day, hour, minute, sec = vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]
	case 7:
		vals := make([]int, 6)
		for i := 0; i < 6; i++ {
			vals[i], err = strconv.Atoi(parts[i])
			if err != nil {
				break
			}
		}
		year, month, day, hour, minute, sec = vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]
		fracStr = parts[6]
	default:
		return Time{}, errs.Decodef("invalid datetime: %q", s)
	}
	if err != nil {
		return Time{}, errs.Decodef("invalid datetime %q: %v", s, err)
	}

	if needAdjust || len(parts[0]) == 2 {
		if year >= 0 && year <= 69 {
			year += 2000
		} else if year >= 70 && year <= 99 {
			year += 1900
		}
	}

	if year == 0 && month == 0 && day == 0 && hour == 0 && minute == 0 && sec == 0 {
		return Zero(TypeDatetime, fsp, tzOffsetSeconds)
	}
	if year < 0 || year > 9999 {
		return Time{}, errs.Decodef("unsupported year: %d", year)
	}
	if month == 0 || day == 0 {
		// Open question in spec §9: the source does not support partial
		// zero dates ("2012-00-00 ..."); preserve the stricter behavior.
		return Time{}, errs.Decodef("invalid datetime: %q (zero month/day not supported)", s)
	}
	if month < 1 || month > 12 {
		return Time{}, errs.Decodef("invalid month %d in %q", month, s)
	}

	nanos := parseFracNanos(fracStr, fsp)

	base := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)
	// Validate the calendar date strictly: time.Date normalizes overflow
	// (e.g. day 32) instead of erroring, so detect it by round-tripping.
	if by, bm, bd := base.Date(); by != year || int(bm) != month || bd != day {
		return Time{}, errs.Decodef("invalid calendar date %q", s)
	}
	instant := base.Add(time.Duration(nanos))
	return Time{instant: instant, tp: TypeDatetime, fsp: fsp}, nil
}
