// ABOUTME: End-to-end tests against a real memory-mapped file in a temp directory
// ABOUTME: Exercises spec.md section 8's testable properties: durability, snapshot isolation, fork independence

package slkv

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nainya/slkv/pkg/skiplist"
)

const testCapacity = 4096 * 4096

func openTestEnv(t *testing.T, dir string) *Env {
	t.Helper()
	e, err := Open(filepath.Join(dir, "db"), testCapacity, Options{Levels: skiplist.NewRand(7)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e
}

func TestPutGetRoundTrip(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()

	w, err := e.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite: %v", err)
	}
	if !w.Put([]byte("hello"), []byte("world")) {
		t.Fatal("expected Put to report a new key")
	}
	// A different value for the same key is a distinct binding, not an
	// overwrite (spec.md section 8's multi-value semantics): it reports
	// true, and re-putting the exact same pair afterward reports false.
	if !w.Put([]byte("hello"), []byte("world2")) {
		t.Fatal("expected a new value for an existing key to report newly inserted")
	}
	if w.Put([]byte("hello"), []byte("world2")) {
		t.Fatal("expected re-putting the exact same (key, value) pair to report false")
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r, err := e.BeginRead()
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	defer r.Close()
	// Get returns the smallest-valued binding for the key: "world" sorts
	// before "world2" since it is a strict prefix of it.
	v, ok := r.Get([]byte("hello"))
	if !ok || string(v) != "world" {
		t.Fatalf("Get = (%q, %v), want (\"world\", true)", v, ok)
	}
}

func TestAbortLeavesNoTrace(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()

	w, _ := e.BeginWrite()
	w.Put([]byte("k"), []byte("v"))
	w.Abort()

	r, err := e.BeginRead()
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	defer r.Close()
	if _, ok := r.Get([]byte("k")); ok {
		t.Fatal("aborted write should not be visible")
	}
}

func TestDurabilityAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db")

	e, err := Open(path, testCapacity, Options{Levels: skiplist.NewRand(3)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	w, _ := e.BeginWrite()
	for i := 0; i < 50; i++ {
		w.Put([]byte(fmt.Sprintf("k-%03d", i)), []byte(fmt.Sprintf("v-%03d", i)))
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, testCapacity, Options{Levels: skiplist.NewRand(3)})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	r, err := reopened.BeginRead()
	if err != nil {
		t.Fatalf("BeginRead after reopen: %v", err)
	}
	defer r.Close()
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("k-%03d", i)
		want := fmt.Sprintf("v-%03d", i)
		v, ok := r.Get([]byte(k))
		if !ok || string(v) != want {
			t.Fatalf("key %q = (%q, %v) after reopen, want (%q, true)", k, v, ok, want)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()

	w, _ := e.BeginWrite()
	w.Put([]byte("a"), []byte("1"))
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r, err := e.BeginRead()
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	defer r.Close()

	w2, _ := e.BeginWrite()
	w2.Del([]byte("a"))
	w2.Put([]byte("a"), []byte("2"))
	w2.Put([]byte("b"), []byte("new"))
	if err := w2.Commit(); err != nil {
		t.Fatalf("Commit w2: %v", err)
	}

	v, ok := r.Get([]byte("a"))
	if !ok || string(v) != "1" {
		t.Fatalf("snapshot reader saw %q, want the pre-commit value \"1\"", v)
	}
	if _, ok := r.Get([]byte("b")); ok {
		t.Fatal("snapshot reader should not see a key written after it began")
	}

	r2, err := e.BeginRead()
	if err != nil {
		t.Fatalf("BeginRead (post-commit): %v", err)
	}
	defer r2.Close()
	if v, ok := r2.Get([]byte("a")); !ok || string(v) != "2" {
		t.Fatalf("fresh reader should see the committed value: got (%q, %v)", v, ok)
	}
}

func TestForkIndependence(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()

	w, _ := e.BeginWrite()
	for i := 0; i < 100; i++ {
		w.Put([]byte(fmt.Sprintf("k-%03d", i)), []byte("orig"))
	}
	forkedRoot := w.Fork()

	for i := 100; i < 200; i++ {
		w.Put([]byte(fmt.Sprintf("k-%03d", i)), []byte("new"))
	}

	forked := skiplist.New(w.w, skiplist.NoRefCounter{}, skiplist.NewRand(9), forkedRoot)
	for i := 0; i < 100; i++ {
		v, ok := forked.Get([]byte(fmt.Sprintf("k-%03d", i)))
		if !ok || string(v) != "orig" {
			t.Fatalf("fork missing original binding k-%03d: (%q, %v)", i, v, ok)
		}
	}
	for i := 100; i < 200; i++ {
		if _, ok := forked.Get([]byte(fmt.Sprintf("k-%03d", i))); ok {
			t.Fatalf("fork should not see post-fork write k-%03d", i)
		}
	}
	for i := 0; i < 200; i++ {
		if _, ok := w.Get([]byte(fmt.Sprintf("k-%03d", i))); !ok {
			t.Fatalf("original tree missing k-%03d", i)
		}
	}
}

func TestOverflowValueRoundTrip(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()

	big := make([]byte, 10*1024)
	for i := range big {
		big[i] = byte(i)
	}

	w, _ := e.BeginWrite()
	w.Put([]byte("bigkey"), big)
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r, _ := e.BeginRead()
	defer r.Close()
	got, ok := r.Get([]byte("bigkey"))
	if !ok {
		t.Fatal("big value not found")
	}
	if len(got) != len(big) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(big))
	}
	for i := range big {
		if got[i] != big[i] {
			t.Fatalf("byte %d mismatch", i)
		}
	}

	w2, _ := e.BeginWrite()
	if !w2.Del([]byte("bigkey")) {
		t.Fatal("expected to delete the overflow key")
	}
	if err := w2.Commit(); err != nil {
		t.Fatalf("Commit delete: %v", err)
	}

	r2, _ := e.BeginRead()
	defer r2.Close()
	if _, ok := r2.Get([]byte("bigkey")); ok {
		t.Fatal("deleted overflow key should be gone")
	}
}

// TestDeleteAllLeavesOnlyRoot mirrors spec.md section 8's concrete scenario
// 2: insert enough entries that the tree splits into several pages, delete
// every one of them, and check that only the (empty) root page remains
// reachable — exercising merge/rebalance (spec.md 4.5.5) and root collapse
// (spec.md 4.5.4/section 9) all the way down, not just a single-page tree
// that never needed either.
func TestDeleteAllLeavesOnlyRoot(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()

	w, _ := e.BeginWrite()
	var keys []string
	for i := 0; i < 200; i++ {
		keys = append(keys, fmt.Sprintf("key-%04d", i))
	}
	for _, k := range keys {
		if !w.Put([]byte(k), []byte(k+"-value")) {
			t.Fatalf("expected %q to be newly inserted", k)
		}
	}
	if len(w.ReachablePages()) < 2 {
		t.Fatal("expected enough entries to force the tree past a single page")
	}

	for _, k := range keys {
		if !w.Del([]byte(k)) {
			t.Fatalf("expected to delete %q", k)
		}
	}

	reachable := w.ReachablePages()
	if len(reachable) != 1 {
		t.Fatalf("expected exactly the root page reachable after deleting everything, got %d", len(reachable))
	}
}

// TestMultiValueDelVariants exercises spec.md section 6's three delete
// forms end to end: del(key, value) for an exact binding, del(key) for the
// smallest matching key, and Replace's del-then-put semantics.
func TestMultiValueDelVariants(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()

	w, _ := e.BeginWrite()
	w.Put([]byte("k"), []byte("bravo"))
	w.Put([]byte("k"), []byte("alpha"))
	w.Put([]byte("k"), []byte("charlie"))

	if v, ok := w.Get([]byte("k")); !ok || string(v) != "alpha" {
		t.Fatalf("Get(k) = (%q, %v), want (\"alpha\", true)", v, ok)
	}

	if !w.Del([]byte("k"), []byte("bravo")) {
		t.Fatal("expected exact-binding delete of bravo to succeed")
	}
	if v, ok := w.Get([]byte("k")); !ok || string(v) != "alpha" {
		t.Fatalf("after exact delete, Get(k) = (%q, %v), want (\"alpha\", true)", v, ok)
	}

	if !w.Del([]byte("k")) {
		t.Fatal("expected smallest-binding delete to succeed")
	}
	if v, ok := w.Get([]byte("k")); !ok || string(v) != "charlie" {
		t.Fatalf("after smallest delete, Get(k) = (%q, %v), want (\"charlie\", true)", v, ok)
	}

	existed := w.Replace([]byte("k"), []byte("delta"))
	if !existed {
		t.Fatal("expected Replace to report that k already had a binding")
	}
	if v, ok := w.Get([]byte("k")); !ok || string(v) != "delta" {
		t.Fatalf("after Replace, Get(k) = (%q, %v), want (\"delta\", true)", v, ok)
	}

	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestNestedTransactionMergesOnCommit(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()

	w, _ := e.BeginWrite()
	w.Put([]byte("outer"), []byte("1"))

	nested := w.BeginNested()
	nested.Put([]byte("inner"), []byte("2"))
	if err := nested.Commit(); err != nil {
		t.Fatalf("nested Commit: %v", err)
	}

	if v, ok := w.Get([]byte("inner")); !ok || string(v) != "2" {
		t.Fatalf("parent should see the nested transaction's write: got (%q, %v)", v, ok)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r, _ := e.BeginRead()
	defer r.Close()
	for k, want := range map[string]string{"outer": "1", "inner": "2"} {
		if v, ok := r.Get([]byte(k)); !ok || string(v) != want {
			t.Errorf("key %q = (%q, %v), want (%q, true)", k, v, ok, want)
		}
	}
}

func TestPutRejectsEmptyAndOversizedKeys(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()
	w, _ := e.BeginWrite()

	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected a panic", name)
			}
		}()
		fn()
	}

	mustPanic("empty key", func() { w.Put(nil, []byte("v")) })
	mustPanic("oversized key", func() { w.Put(make([]byte, maxKeyLen+1), []byte("v")) })
}

func TestNestedTransactionAbortDiscardsItsWrites(t *testing.T) {
	e := openTestEnv(t, t.TempDir())
	defer e.Close()

	w, _ := e.BeginWrite()
	w.Put([]byte("outer"), []byte("1"))

	nested := w.BeginNested()
	nested.Put([]byte("inner"), []byte("2"))
	nested.Abort()

	if _, ok := w.Get([]byte("inner")); ok {
		t.Fatal("parent should not see an aborted nested transaction's write")
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}
