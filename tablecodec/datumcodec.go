package tablecodec

import (
	"encoding/binary"
	"math"

	"github.com/shopspring/decimal"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/errs"
	"github.com/sdh517/tikv/mjson"
	"github.com/sdh517/tikv/mysqltime"
)

// flag tags the wire kind of an encoded Datum, the self-describing byte
// every encoded column value leads with so DecodeDatum knows the payload
// layout. CutRow skips a column's payload by the length EncodeRow writes
// ahead of it, without reading the flag.
type flag byte

const (
	flagNull flag = iota
	flagI64
	flagU64
	flagF64
	flagBytes
	flagDecimal
	flagDuration
	flagTime
	flagJSON
)

// EncodeDatum serializes d to its self-describing wire form: a one-byte
// flag followed by a type-specific payload, length-prefixed where the
// payload isn't fixed-width.
func EncodeDatum(d datum.Datum) ([]byte, error) {
	switch d.Kind() {
	case datum.KindNull:
		return []byte{byte(flagNull)}, nil
	case datum.KindI64:
		buf := make([]byte, 9)
		buf[0] = byte(flagI64)
		binary.BigEndian.PutUint64(buf[1:], uint64(d.I64()))
		return buf, nil
	case datum.KindU64:
		buf := make([]byte, 9)
		buf[0] = byte(flagU64)
		binary.BigEndian.PutUint64(buf[1:], d.U64())
		return buf, nil
	case datum.KindF64:
		buf := make([]byte, 9)
		buf[0] = byte(flagF64)
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(d.F64()))
		return buf, nil
	case datum.KindBytes:
		return lengthPrefixed(flagBytes, d.Bytes()), nil
	case datum.KindDecimal:
		return lengthPrefixed(flagDecimal, []byte(d.Decimal().String())), nil
	case datum.KindDuration:
		buf := make([]byte, 10)
		buf[0] = byte(flagDuration)
		binary.BigEndian.PutUint64(buf[1:9], uint64(d.Duration().ToNanos()))
		buf[9] = byte(d.Duration().Fsp())
		return buf, nil
	case datum.KindTime:
		tm := d.Time()
		buf := make([]byte, 11)
		buf[0] = byte(flagTime)
		binary.BigEndian.PutUint64(buf[1:9], tm.ToPackedU64())
		buf[9] = byte(tm.Type())
		buf[10] = byte(tm.Fsp())
		return buf, nil
	case datum.KindJSON:
		return lengthPrefixed(flagJSON, []byte(d.JSON().String())), nil
	default:
		return nil, errs.Evalf("cannot encode datum kind %s", d.Kind())
	}
}

func lengthPrefixed(f flag, payload []byte) []byte {
	buf := make([]byte, 0, 1+binary.MaxVarintLen64+len(payload))
	buf = append(buf, byte(f))
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, payload...)
	return buf
}

// DecodeDatum parses one encoded Datum from the front of b, returning the
// value and the number of bytes consumed.
func DecodeDatum(b []byte, tzOffsetSeconds int) (datum.Datum, int, error) {
	if len(b) == 0 {
		return datum.Datum{}, 0, errs.Decodef("empty datum encoding")
	}
	f := flag(b[0])
	switch f {
	case flagNull:
		return datum.Null(), 1, nil
	case flagI64:
		if len(b) < 9 {
			return datum.Datum{}, 0, errs.Decodef("truncated i64 datum")
		}
		return datum.NewI64(int64(binary.BigEndian.Uint64(b[1:9]))), 9, nil
	case flagU64:
		if len(b) < 9 {
			return datum.Datum{}, 0, errs.Decodef("truncated u64 datum")
		}
		return datum.NewU64(binary.BigEndian.Uint64(b[1:9])), 9, nil
	case flagF64:
		if len(b) < 9 {
			return datum.Datum{}, 0, errs.Decodef("truncated f64 datum")
		}
		return datum.NewF64(math.Float64frombits(binary.BigEndian.Uint64(b[1:9]))), 9, nil
	case flagBytes:
		payload, n, err := readLengthPrefixed(b)
		if err != nil {
			return datum.Datum{}, 0, err
		}
		return datum.NewBytes(payload), n, nil
	case flagDecimal:
		payload, n, err := readLengthPrefixed(b)
		if err != nil {
			return datum.Datum{}, 0, err
		}
		dec, derr := decimal.NewFromString(string(payload))
		if derr != nil {
			return datum.Datum{}, 0, errs.Decodef("invalid decimal %q: %v", payload, derr)
		}
		return datum.NewDecimal(dec), n, nil
	case flagDuration:
		if len(b) < 10 {
			return datum.Datum{}, 0, errs.Decodef("truncated duration datum")
		}
		nanos := int64(binary.BigEndian.Uint64(b[1:9]))
		fsp := int8(b[9])
		d, err := mysqltime.FromNanos(nanos, fsp)
		if err != nil {
			return datum.Datum{}, 0, err
		}
		return datum.NewDuration(d), 10, nil
	case flagTime:
		if len(b) < 11 {
			return datum.Datum{}, 0, errs.Decodef("truncated time datum")
		}
		packed := binary.BigEndian.Uint64(b[1:9])
		tp := mysqltime.Type(b[9])
		fsp := int8(b[10])
		tm, err := mysqltime.FromPackedU64(packed, tp, fsp, tzOffsetSeconds)
		if err != nil {
			return datum.Datum{}, 0, err
		}
		return datum.NewTime(tm), 11, nil
	case flagJSON:
		payload, n, err := readLengthPrefixed(b)
		if err != nil {
			return datum.Datum{}, 0, err
		}
		jv, err := mjson.Parse(string(payload))
		if err != nil {
			return datum.Datum{}, 0, err
		}
		return datum.NewJSON(jv), n, nil
	default:
		return datum.Datum{}, 0, errs.Decodef("unknown datum flag %d", f)
	}
}

func readLengthPrefixed(b []byte) (payload []byte, consumed int, err error) {
	length, n := binary.Uvarint(b[1:])
	if n <= 0 {
		return nil, 0, errs.Decodef("invalid length prefix")
	}
	start := 1 + n
	end := start + int(length)
	if end > len(b) {
		return nil, 0, errs.Decodef("truncated datum payload")
	}
	return b[start:end], end, nil
}
