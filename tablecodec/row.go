package tablecodec

import (
	"encoding/binary"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/errs"
)

// EncodeRow serializes a row's column values as a sequence of
// (column_id, encoded_datum) pairs (spec §3 "Encoded row value").
func EncodeRow(cols map[int64]datum.Datum) ([]byte, error) {
	var buf []byte
	for colID, d := range cols {
		encoded, err := EncodeDatum(d)
		if err != nil {
			return nil, err
		}
		var idBuf [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(idBuf[:], uint64(colID))
		buf = append(buf, idBuf[:n]...)
		var lenBuf [binary.MaxVarintLen64]byte
		ln := binary.PutUvarint(lenBuf[:], uint64(len(encoded)))
		buf = append(buf, lenBuf[:ln]...)
		buf = append(buf, encoded...)
	}
	return buf, nil
}

// CutRow splits an encoded row value into column-id -> encoded-datum-bytes
// pairs, skipping (not decoding) every column outside wanted. Passing a
// nil wanted map keeps every column (spec §6 "cut_row").
func CutRow(value []byte, wanted map[int64]bool) (map[int64][]byte, error) {
	result := make(map[int64][]byte)
	for len(value) > 0 {
		colID, n := binary.Uvarint(value)
		if n <= 0 {
			return nil, errs.Decodef("invalid column id varint in row value")
		}
		value = value[n:]
		length, n2 := binary.Uvarint(value)
		if n2 <= 0 {
			return nil, errs.Decodef("invalid column length varint in row value")
		}
		value = value[n2:]
		if uint64(len(value)) < length {
			return nil, errs.Decodef("truncated row value for column %d", colID)
		}
		payload := value[:length]
		value = value[length:]
		if wanted == nil || wanted[int64(colID)] {
			result[int64(colID)] = payload
		}
	}
	return result, nil
}
