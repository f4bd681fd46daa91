// ABOUTME: Read transaction wrapper: get/iterate over a stable snapshot
// ABOUTME: Builds a read-only skiplist.Tree around the underlying txn.ReadTxn each call

package slkv

import (
	"github.com/nainya/slkv/internal/metrics"
	"github.com/nainya/slkv/pkg/skiplist"
	"github.com/nainya/slkv/pkg/txn"
)

// Txn is a read-only snapshot. Every Get and Iterate against it observes
// exactly the state as of BeginRead, regardless of later commits.
type Txn struct {
	rt     *txn.ReadTxn
	levels skiplist.LevelSource
	met    *metrics.Metrics
	closed bool
}

func (t *Txn) tree() *skiplist.Tree {
	return skiplist.New(t.rt, skiplist.NoRefCounter{}, t.levels, t.rt.MainRoot())
}

// Get looks up key, reporting whether it was present.
func (t *Txn) Get(key []byte) ([]byte, bool) {
	validateKey(key)
	v, ok := t.tree().Get(key)
	if t.met != nil {
		if ok {
			t.met.GetsTotal.WithLabelValues("hit").Inc()
		} else {
			t.met.GetsTotal.WithLabelValues("miss").Inc()
		}
	}
	return v, ok
}

// Iterate returns a cursor over the tree's key order, positioned at the
// first key >= startingAt (or at the very first key if startingAt is nil).
func (t *Txn) Iterate(startingAt []byte) *skiplist.Iterator {
	it := t.tree().NewIterator()
	if startingAt != nil {
		it.Seek(startingAt)
	}
	return it
}

// Close ends the snapshot. Pages it alone was keeping alive become
// eligible for reuse by a future write transaction.
func (t *Txn) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.rt.Close()
}
