// ABOUTME: Public package: Env is the single entry point, spec.md section 6 "External interfaces"
// ABOUTME: Composes the page store, transaction manager, skip-list B-tree and refcount index into one store

package slkv

import (
	"fmt"

	"github.com/nainya/slkv/internal/logger"
	"github.com/nainya/slkv/internal/metrics"
	"github.com/nainya/slkv/pkg/mmapfile"
	"github.com/nainya/slkv/pkg/pagestore"
	"github.com/nainya/slkv/pkg/skiplist"
	"github.com/nainya/slkv/pkg/txn"
)

// Env is an open environment: one fixed-length file, one page store, one
// transaction manager. A directory holds three files alongside it: the
// data file itself, "<path>..lock" (readers) and "<path>..mut" (the
// writer) — see spec.md section 6.
type Env struct {
	region mmapfile.Region
	store  *pagestore.Store
	mgr    *txn.Manager
	levels skiplist.LevelSource
	log    *logger.Logger
	met    *metrics.Metrics
	path   string
}

// Options configures Open. A zero value is a reasonable production
// default: a level source seeded with Seed (0 unless set), a plain
// (non-pretty) info logger, and a fresh metrics registry.
type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Levels  skiplist.LevelSource
	Seed    uint64 // used only if Levels is nil
}

// Open maps path into memory, sizing it to capacity bytes (a multiple of
// pagestore.PageSize), and initializes a fresh header if the file was
// empty. capacity is fixed for the life of the environment — spec.md
// names no online-resize operation.
func Open(path string, capacity uint64, opts Options) (*Env, error) {
	region, err := mmapfile.Open(path, int64(capacity))
	if err != nil {
		return nil, fmt.Errorf("slkv: open %s: %w", path, err)
	}

	fresh := isZeroHeader(region.Bytes())

	store, err := pagestore.Open(region, capacity)
	if err != nil {
		region.Close()
		return nil, fmt.Errorf("slkv: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewLogger(logger.Config{Level: "info"})
	}
	log = log.DbLogger("env")

	met := opts.Metrics
	if met == nil {
		met = metrics.NewMetrics()
	}

	levels := opts.Levels
	if levels == nil {
		levels = skiplist.NewRand(opts.Seed)
	}

	mgr := txn.NewManager(store, path+"..lock", path+"..mut", log, met)
	met.EnvSizeBytes.Set(float64(capacity))

	log.LogEnvOpen(path, capacity, fresh)

	return &Env{region: region, store: store, mgr: mgr, levels: levels, log: log, met: met, path: path}, nil
}

func isZeroHeader(b []byte) bool {
	for _, c := range b[:pagestore.HeaderSize] {
		if c != 0 {
			return false
		}
	}
	return true
}

// BeginRead opens a read transaction against the environment's current
// durable state. Many may be open at once.
func (e *Env) BeginRead() (*Txn, error) {
	rt, err := e.mgr.BeginRead()
	if err != nil {
		return nil, err
	}
	return &Txn{rt: rt, levels: e.levels, met: e.met}, nil
}

// BeginWrite opens the single write transaction, blocking until any other
// writer (in this process or another) releases it.
func (e *Env) BeginWrite() (*MutTxn, error) {
	w, err := e.mgr.BeginWrite()
	if err != nil {
		return nil, err
	}
	return newMutTxn(e, w), nil
}

// Stats reports a snapshot of the environment's current durable header.
type Stats struct {
	Capacity     uint64
	LastPage     uint64
	FreeListHead uint64
	MainRoot     uint64
	RCRoot       uint64
}

// Stats returns the environment's last committed header, for diagnostics
// and the cmd/slkv demo.
func (e *Env) Stats() Stats {
	h := e.mgr.Store().Header()
	return Stats{
		Capacity:     e.store.Capacity(),
		LastPage:     h.LastPage,
		FreeListHead: h.FreeListHead,
		MainRoot:     h.MainRoot,
		RCRoot:       h.RCRoot,
	}
}

// Close unmaps and closes the backing file. It does not itself flush any
// pending write transaction — callers must Commit or Abort first.
func (e *Env) Close() error {
	return e.region.Close()
}
