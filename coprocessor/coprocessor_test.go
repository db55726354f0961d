package coprocessor

import (
	"bytes"
	"encoding/binary"
	"sort"
	"testing"

	"github.com/pingcap/kvproto/pkg/coprocessor"
	"github.com/pingcap/tipb/go-tipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/expression"
	"github.com/sdh517/tikv/kvstore"
	"github.com/sdh517/tikv/tablecodec"
)

type fakeSink struct{}

func (fakeSink) AddScanned(int)   {}
func (fakeSink) AddProcessed(int) {}

type memSnapshot struct {
	kvs []kvstore.KV
}

func newMemSnapshot(tableID int64, rows map[int64]map[int64]datum.Datum) *memSnapshot {
	s := &memSnapshot{}
	for handle, cols := range rows {
		key := tablecodec.EncodeRowKey(tableID, handle)
		value, err := tablecodec.EncodeRow(cols)
		if err != nil {
			panic(err)
		}
		s.kvs = append(s.kvs, kvstore.KV{Key: key, Value: value})
	}
	sort.Slice(s.kvs, func(i, j int) bool { return bytes.Compare(s.kvs[i].Key, s.kvs[j].Key) < 0 })
	return s
}

func (s *memSnapshot) Scanner(direction kvstore.Direction, keyOnly bool, upperBound []byte, sink kvstore.StatsSink) (kvstore.StoreScanner, error) {
	return &memScanner{snap: s, upperBound: upperBound}, nil
}

func (s *memSnapshot) Get(key []byte, sink kvstore.StatsSink) ([]byte, bool, error) {
	for _, kv := range s.kvs {
		if bytes.Equal(kv.Key, key) {
			return kv.Value, true, nil
		}
	}
	return nil, false, nil
}

type memScanner struct {
	snap       *memSnapshot
	upperBound []byte
}

func (m *memScanner) Seek(key []byte) (kvstore.KV, bool, error) {
	for _, kv := range m.snap.kvs {
		if bytes.Compare(kv.Key, key) < 0 {
			continue
		}
		if m.upperBound != nil && bytes.Compare(kv.Key, m.upperBound) >= 0 {
			return kvstore.KV{}, false, nil
		}
		return kv, true, nil
	}
	return kvstore.KV{}, false, nil
}

func (m *memScanner) ReverseSeek(key []byte) (kvstore.KV, bool, error) {
	for i := len(m.snap.kvs) - 1; i >= 0; i-- {
		kv := m.snap.kvs[i]
		if bytes.Compare(kv.Key, key) >= 0 {
			continue
		}
		return kv, true, nil
	}
	return kvstore.KV{}, false, nil
}

func (m *memScanner) Close() kvstore.StatsSink { return fakeSink{} }

const tableID = 7

func rangeAll() *coprocessor.KeyRange {
	return &coprocessor.KeyRange{
		Start: tablecodec.EncodeRowKey(tableID, -1<<63),
		End:   tablecodec.EncodeRowKey(tableID, (1<<63)-1),
	}
}

func colInfo(id int64, pkHandle bool) *tipb.ColumnInfo {
	return &tipb.ColumnInfo{ColumnId: id, PkHandle: pkHandle}
}

// ten rows, handle == column 1's value, column 2 a fixed string.
func tenRows() map[int64]map[int64]datum.Datum {
	rows := make(map[int64]map[int64]datum.Datum)
	for h := int64(0); h < 10; h++ {
		rows[h] = map[int64]datum.Datum{
			1: datum.NewI64(h),
			2: datum.NewBytes([]byte("row")),
		}
	}
	return rows
}

func newCtx(t *testing.T) *expression.EvalContext {
	t.Helper()
	ctx, err := expression.NewEvalContext(0, 0)
	require.NoError(t, err)
	return ctx
}

func i64Bytes(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

// TestEndToEndFilterAndProject combines table scan + column decode + a
// filter expression + projection: scan all 10 rows, keep only those whose
// handle column is > 5, and check the surviving rows carry the projected
// columns 1 and 2.
func TestEndToEndFilterAndProject(t *testing.T) {
	snap := newMemSnapshot(tableID, tenRows())
	meta := &tipb.TableScan{
		Columns: []*tipb.ColumnInfo{colInfo(0, true), colInfo(1, false), colInfo(2, false)},
	}
	gt := &tipb.Expr{
		Tp: tipb.ExprType_GT,
		Children: []*tipb.Expr{
			{Tp: tipb.ExprType_ColumnRef, Val: i64Bytes(1)},
			{Tp: tipb.ExprType_Int64, Val: i64Bytes(5)},
		},
	}
	req := &Request{
		TableScan: meta,
		KeyRanges: []*coprocessor.KeyRange{rangeAll()},
		Filter:    gt,
		Ctx:       newCtx(t),
	}

	rows, _, err := Run(req, snap, fakeSink{})
	require.NoError(t, err)

	var handles []int64
	for _, row := range rows {
		handles = append(handles, row.Handle)
		assert.Contains(t, row.Columns, int64(1))
		assert.Contains(t, row.Columns, int64(2))
		assert.Equal(t, "row", string(row.Columns[2].Bytes()))
	}
	assert.Equal(t, []int64{6, 7, 8, 9}, handles)
}

func TestNoFilterReturnsAllRowsInScanOrder(t *testing.T) {
	snap := newMemSnapshot(tableID, tenRows())
	meta := &tipb.TableScan{
		Desc:    true,
		Columns: []*tipb.ColumnInfo{colInfo(0, true), colInfo(1, false)},
	}
	req := &Request{
		TableScan: meta,
		KeyRanges: []*coprocessor.KeyRange{rangeAll()},
		Ctx:       newCtx(t),
	}

	rows, _, err := Run(req, snap, fakeSink{})
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, int64(9), rows[0].Handle)
	assert.Equal(t, int64(0), rows[9].Handle)
}

func TestPointGetWithFailingFilterYieldsNoRows(t *testing.T) {
	snap := newMemSnapshot(tableID, tenRows())
	meta := &tipb.TableScan{Columns: []*tipb.ColumnInfo{colInfo(0, true), colInfo(1, false)}}
	start := tablecodec.EncodeRowKey(tableID, 3)
	rng := &coprocessor.KeyRange{Start: start, End: tablecodec.PrefixNext(start)}
	falseFilter := &tipb.Expr{Tp: tipb.ExprType_Int64, Val: i64Bytes(0)}

	req := &Request{
		TableScan: meta,
		KeyRanges: []*coprocessor.KeyRange{rng},
		Filter:    falseFilter,
		Ctx:       newCtx(t),
	}

	rows, _, err := Run(req, snap, fakeSink{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClosePropagatesStatsSink(t *testing.T) {
	snap := newMemSnapshot(tableID, tenRows())
	meta := &tipb.TableScan{Columns: []*tipb.ColumnInfo{colInfo(0, true), colInfo(1, false)}}
	ex := New(&Request{TableScan: meta, KeyRanges: []*coprocessor.KeyRange{rangeAll()}, Ctx: newCtx(t)}, snap, fakeSink{})

	_, ok, err := ex.Next()
	require.NoError(t, err)
	require.True(t, ok)

	sink := ex.Close()
	assert.Equal(t, fakeSink{}, sink)
}
