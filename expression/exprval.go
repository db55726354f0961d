package expression

import (
	"encoding/binary"
	"math"

	"github.com/shopspring/decimal"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/errs"
	"github.com/sdh517/tikv/tablecodec"
)

// decodeI64/decodeU64/decodeF64/decodeDecimal parse a tipb.Expr's raw Val
// payload for the scalar leaf ExprTypes (Int64/Uint64/Float64/
// MysqlDecimal/MysqlDuration/MysqlTime). The wire format for Val is a
// push-down-planner concern this core never produces, only consumes, so
// a simple encoding is used rather than reproducing TiDB's own memcmp
// number codec, which the retrieval pack does not carry: integers and
// floats are 8 bytes big-endian (the payload tablecodec's EncodeDatum
// writes, without its leading flag byte), and a decimal is its text form.
func decodeI64(val []byte) (int64, error) {
	if len(val) != 8 {
		return 0, errs.Decodef("expr value: want 8 bytes for int64, got %d", len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}

func decodeU64(val []byte) (uint64, error) {
	if len(val) != 8 {
		return 0, errs.Decodef("expr value: want 8 bytes for uint64, got %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

func decodeF64(val []byte) (float64, error) {
	if len(val) != 8 {
		return 0, errs.Decodef("expr value: want 8 bytes for float64, got %d", len(val))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(val)), nil
}

func decodeDecimal(val []byte) (decimal.Decimal, error) {
	dec, err := decimal.NewFromString(string(val))
	if err != nil {
		return decimal.Decimal{}, errs.Decodef("expr value: invalid decimal %q: %v", val, err)
	}
	return dec, nil
}

// decodeDatumList parses an IN clause's ValueList payload: a
// back-to-back run of tablecodec-encoded Datums, reusing the same
// self-describing wire format row values are encoded with (spec §4.3
// "IN: ... value list").
func decodeDatumList(val []byte, tzOffsetSeconds int) ([]datum.Datum, error) {
	var out []datum.Datum
	for len(val) > 0 {
		d, n, err := tablecodec.DecodeDatum(val, tzOffsetSeconds)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		val = val[n:]
	}
	return out, nil
}
