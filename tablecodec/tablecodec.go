// Package tablecodec implements the encoded-row-key/row-value codec spec
// §3 and §6 describe: "table_prefix(table_id) || memcmp_i64(handle)" row
// keys, a column-id-keyed row-value cut, and the byte-successor operation
// used both to detect point ranges and to re-seek after a forward scan.
//
// Ported from _examples/original_source's table_scan.rs call sites into
// coprocessor::codec::table (`table::encode_row_key`, `decode_handle`,
// `truncate_as_row_key`, `cut_row`) and coprocessor::endpoint
// (`prefix_next`, `is_point`); neither module itself is in the retrieval
// pack, so the exact byte layout is taken from spec §3/§6 directly.
package tablecodec

import (
	"encoding/binary"

	"github.com/pingcap/kvproto/pkg/coprocessor"

	"github.com/sdh517/tikv/errs"
)

// recordPrefixSep tags a row key as a record (as opposed to an index
// entry), matching the single-byte separator TiKV's own table codec uses
// between the table prefix and the memcmp-encoded handle.
const recordPrefixSep = 'r'

const (
	tablePrefixLen = 1 + 8 // 't' + table_id
	recordSepLen   = 1     // 'r'
	handleLen      = 8
	rowKeyLen      = tablePrefixLen + recordSepLen + handleLen
)

// signFlip maps a signed int64's memcmp-comparable encoding: flipping the
// sign bit makes two's-complement ordering coincide with unsigned
// bytewise ordering, the standard trick behind "memcmp_i64" (spec §3).
const signFlip = uint64(1) << 63

func encodeMemcmpI64(handle int64) uint64 {
	return uint64(handle) ^ signFlip
}

func decodeMemcmpI64(v uint64) int64 {
	return int64(v ^ signFlip)
}

// EncodeRowKey builds "table_prefix(table_id) || memcmp_i64(handle)"
// (spec §3 "Encoded row key").
func EncodeRowKey(tableID, handle int64) []byte {
	buf := make([]byte, 0, rowKeyLen)
	buf = append(buf, 't')
	buf = binary.BigEndian.AppendUint64(buf, uint64(tableID))
	buf = append(buf, recordPrefixSep)
	buf = binary.BigEndian.AppendUint64(buf, encodeMemcmpI64(handle))
	return buf
}

// DecodeHandle recovers the handle from a row key built by EncodeRowKey.
func DecodeHandle(rawKey []byte) (int64, error) {
	if len(rawKey) < rowKeyLen {
		return 0, errs.Decodef("row key too short: %d bytes", len(rawKey))
	}
	if rawKey[0] != 't' || rawKey[tablePrefixLen] != recordPrefixSep {
		return 0, errs.Decodef("malformed row key: missing table/record prefix")
	}
	v := binary.BigEndian.Uint64(rawKey[tablePrefixLen+recordSepLen:])
	return decodeMemcmpI64(v), nil
}

// TruncateAsRowKey recovers the row-key prefix preceding the handle
// bytes.
func TruncateAsRowKey(rawKey []byte) ([]byte, error) {
	if len(rawKey) < rowKeyLen {
		return nil, errs.Decodef("row key too short: %d bytes", len(rawKey))
	}
	prefix := make([]byte, tablePrefixLen+recordSepLen)
	copy(prefix, rawKey[:tablePrefixLen+recordSepLen])
	return prefix, nil
}

// PrefixNext returns the lexicographically-next byte string: the
// byte-wise successor obtained by incrementing the last byte that isn't
// already 0xFF, resetting the trailing 0xFF bytes after it to 0x00 (the
// length is unchanged), or, if every byte was 0xFF, appending a single
// 0x00 to the original key (spec §6 "prefix_next").
func PrefixNext(key []byte) []byte {
	next := make([]byte, len(key))
	copy(next, key)
	i := len(next) - 1
	for ; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			break
		}
	}
	if i == -1 {
		// every byte was 0xFF: the successor is the original key with a
		// single 0x00 appended.
		next = append(append([]byte{}, key...), 0x00)
	}
	return next
}

// IsPoint reports whether a key range addresses exactly one key: its end
// is the byte-successor of its start (spec §3 "A point range satisfies
// end == start ⊕ 1").
func IsPoint(r *coprocessor.KeyRange) bool {
	if r == nil {
		return false
	}
	return bytesEqual(PrefixNext(r.GetStart()), r.GetEnd())
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
