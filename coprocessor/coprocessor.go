// Package coprocessor is the top-level glue (spec §6): it wires a
// *tipb.TableScan plus its key ranges through tablescan/scanner against a
// kvstore.Snapshot, decodes each row's cut column bytes into Datums, and
// (when a filter expression is present) runs it through expression.Eval,
// emitting only the rows that pass.
//
// Grounded on database/database.go's request-orchestration idiom: Run
// threads a request through a sequence of steps end-to-end the way
// RunDDLs threads a Database through a list of DDLs, generalized from
// "apply a batch of DDLs" to "stream rows through a filter".
package coprocessor

import (
	"github.com/pingcap/kvproto/pkg/coprocessor"
	"github.com/pingcap/log"
	"github.com/pingcap/tipb/go-tipb"
	"go.uber.org/zap"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/expression"
	"github.com/sdh517/tikv/kvstore"
	"github.com/sdh517/tikv/tablecodec"
	"github.com/sdh517/tikv/tablescan"
	"github.com/sdh517/tikv/util"
)

// Request bundles a table scan's pushed-down metadata, its key ranges, an
// optional filter expression, and the evaluation context the filter (and
// any column decoding) runs under.
type Request struct {
	TableScan *tipb.TableScan
	KeyRanges []*coprocessor.KeyRange
	Filter    *tipb.Expr
	Ctx       *expression.EvalContext
}

// Row is one emitted, post-filter, post-projection result row: the
// handle plus its decoded column values, keyed by column ID (spec §8
// property 6 — "the keys of every emitted row.data exactly equal the set
// of requested column IDs that exist in the underlying record").
type Row struct {
	Handle  int64
	Columns map[int64]datum.Datum
}

// Executor pulls rows from a tablescan.Executor, decodes them, and
// applies req's filter, yielding only the rows that survive it.
type Executor struct {
	req   *Request
	inner *tablescan.Executor
}

// New constructs an Executor bound to req's table scan over snap. Ownership
// of sink transfers to the Executor the same way it transfers into the
// tablescan.Executor it wraps.
func New(req *Request, snap kvstore.Snapshot, sink kvstore.StatsSink) *Executor {
	return &Executor{
		req:   req,
		inner: tablescan.New(req.TableScan, req.KeyRanges, snap, sink),
	}
}

// Next returns the next row passing req's filter, or (nil, false, nil)
// once the underlying table scan is exhausted.
func (e *Executor) Next() (*Row, bool, error) {
	for {
		raw, ok, err := e.inner.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}

		cols, err := decodeRow(raw, e.req.TableScan, e.req.Ctx.TzOffsetSeconds)
		if err != nil {
			return nil, false, err
		}
		log.Debug("row scanned",
			zap.Int64("handle", raw.Handle),
			zap.Int64s("column_ids", sortedColumnIDs(cols)),
		)

		if e.req.Filter != nil {
			keep, err := e.evalFilter(cols)
			if err != nil {
				return nil, false, err
			}
			if !keep {
				continue
			}
		}
		return &Row{Handle: raw.Handle, Columns: cols}, true, nil
	}
}

func (e *Executor) evalFilter(cols map[int64]datum.Datum) (bool, error) {
	ev := expression.NewEvaluator(cols)
	d, err := ev.Eval(e.req.Ctx, e.req.Filter)
	if err != nil {
		return false, err
	}
	value, isNull, err := d.IntoBool()
	if err != nil {
		return false, err
	}
	return !isNull && value, nil
}

// Close releases the executor's scanner and returns ownership of its
// StatsSink.
func (e *Executor) Close() kvstore.StatsSink {
	return e.inner.Close()
}

// sortedColumnIDs returns cols' keys in ascending order, so a Debug log
// line reads the same column set deterministically across runs regardless
// of Go's map iteration order.
func sortedColumnIDs(cols map[int64]datum.Datum) []int64 {
	ids := make([]int64, 0, len(cols))
	for id := range util.CanonicalMapIter(cols) {
		ids = append(ids, id)
	}
	return ids
}

// decodeRow expands a tablescan.Row's raw column bytes into a
// map<column_id, Datum> (spec §4.3 "row is produced upstream by decoding
// the row source's encoded columns on demand"). A PkHandle column is
// synthesized from the row's handle rather than read from Data, since the
// table scan never cuts it out of the encoded value (spec §4.2).
func decodeRow(row *tablescan.Row, meta *tipb.TableScan, tzOffsetSeconds int) (map[int64]datum.Datum, error) {
	cols := make(map[int64]datum.Datum, len(meta.GetColumns()))
	for _, c := range meta.GetColumns() {
		id := c.GetColumnId()
		if c.GetPkHandle() {
			cols[id] = datum.NewI64(row.Handle)
			continue
		}
		raw, ok := row.Data[id]
		if !ok {
			continue
		}
		d, _, err := tablecodec.DecodeDatum(raw, tzOffsetSeconds)
		if err != nil {
			return nil, err
		}
		cols[id] = d
	}
	return cols, nil
}

// Run pulls every row req's table scan and filter produce, end to end
// (spec §6), mirroring database.RunDDLs's "thread the collaborator
// through the whole batch, then hand back" shape.
func Run(req *Request, snap kvstore.Snapshot, sink kvstore.StatsSink) ([]*Row, kvstore.StatsSink, error) {
	exec := New(req, snap, sink)
	var rows []*Row
	for {
		row, ok, err := exec.Next()
		if err != nil {
			closed := exec.Close()
			return nil, closed, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	closed := exec.Close()
	for _, w := range req.Ctx.Warnings {
		log.Warn("truncation warning", zap.String("message", w))
	}
	handles := util.TransformSlice(rows, func(r *Row) int64 { return r.Handle })
	log.Debug("request complete", zap.Int64s("handles", handles))
	return rows, closed, nil
}
