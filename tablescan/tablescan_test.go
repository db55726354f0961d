package tablescan

import (
	"bytes"
	"sort"
	"testing"

	"github.com/pingcap/kvproto/pkg/coprocessor"
	"github.com/pingcap/tipb/go-tipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdh517/tikv/datum"
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

func rangeAll(tableID int64) *coprocessor.KeyRange {
	return &coprocessor.KeyRange{
		Start: tablecodec.EncodeRowKey(tableID, -1<<63),
		End:   tablecodec.EncodeRowKey(tableID, (1<<63)-1),
	}
}

const tableID = 1

func testRows() map[int64]map[int64]datum.Datum {
	rows := make(map[int64]map[int64]datum.Datum)
	for h := int64(0); h < 10; h++ {
		rows[h] = map[int64]datum.Datum{
			1: datum.NewI64(h),
			2: datum.NewBytes([]byte("abc")),
		}
	}
	return rows
}

func colInfo(id int64, pkHandle bool) *tipb.ColumnInfo {
	return &tipb.ColumnInfo{ColumnId: id, PkHandle: pkHandle}
}

// Scenario S6: table scan over 10 rows keyed by handles 0..9, forward
// direction, unbounded range, emits rows in handle-ascending order.
func TestScenarioS6ForwardScanAscendingOrder(t *testing.T) {
	snap := newMemSnapshot(tableID, testRows())
	meta := &tipb.TableScan{Columns: []*tipb.ColumnInfo{colInfo(0, true), colInfo(1, false), colInfo(2, false)}}
	ex := New(meta, []*coprocessor.KeyRange{rangeAll(tableID)}, snap, fakeSink{})

	var handles []int64
	for {
		row, ok, err := ex.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		handles = append(handles, row.Handle)
	}
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, handles)
}

func TestBackwardScanDescendingOrder(t *testing.T) {
	snap := newMemSnapshot(tableID, testRows())
	meta := &tipb.TableScan{Desc: true, Columns: []*tipb.ColumnInfo{colInfo(0, true), colInfo(1, false)}}
	ex := New(meta, []*coprocessor.KeyRange{rangeAll(tableID)}, snap, fakeSink{})

	var handles []int64
	for {
		row, ok, err := ex.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		handles = append(handles, row.Handle)
	}
	assert.Equal(t, []int64{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}, handles)
}

func TestPointGetReturnsSingleRow(t *testing.T) {
	snap := newMemSnapshot(tableID, testRows())
	meta := &tipb.TableScan{Columns: []*tipb.ColumnInfo{colInfo(0, true), colInfo(1, false)}}

	start := tablecodec.EncodeRowKey(tableID, 3)
	rng := &coprocessor.KeyRange{Start: start, End: tablecodec.PrefixNext(start)}
	ex := New(meta, []*coprocessor.KeyRange{rng}, snap, fakeSink{})

	row, ok, err := ex.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), row.Handle)

	_, ok, err = ex.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPointGetMissingHandleSkipped(t *testing.T) {
	snap := newMemSnapshot(tableID, testRows())
	meta := &tipb.TableScan{Columns: []*tipb.ColumnInfo{colInfo(0, true), colInfo(1, false)}}

	missingStart := tablecodec.EncodeRowKey(tableID, 999)
	missingRange := &coprocessor.KeyRange{Start: missingStart, End: tablecodec.PrefixNext(missingStart)}
	foundStart := tablecodec.EncodeRowKey(tableID, 0)
	foundRange := &coprocessor.KeyRange{Start: foundStart, End: tablecodec.PrefixNext(foundStart)}

	ex := New(meta, []*coprocessor.KeyRange{missingRange, foundRange}, snap, fakeSink{})

	row, ok, err := ex.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), row.Handle)
}

func TestColumnProjectionExcludesPkHandle(t *testing.T) {
	snap := newMemSnapshot(tableID, testRows())
	meta := &tipb.TableScan{Columns: []*tipb.ColumnInfo{colInfo(0, true), colInfo(1, false)}}
	ex := New(meta, []*coprocessor.KeyRange{rangeAll(tableID)}, snap, fakeSink{})

	row, ok, err := ex.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, row.Data, 1)
	_, has2 := row.Data[2]
	assert.False(t, has2)
}
