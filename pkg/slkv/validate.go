// ABOUTME: Input validation at the public API boundary, spec.md section 6's key/value constraints
// ABOUTME: Violations are caller-fatal precondition violations (spec.md section 7), not recoverable errors

package slkv

import (
	"fmt"

	"github.com/nainya/slkv/pkg/skiplist"
)

// maxKeyLen is spec.md section 3's "keys are at most PAGE_SIZE/8 bytes",
// tightened to section 6's external-interface constraint "< PAGE_SIZE/8".
const maxKeyLen = skiplist.PageSize/8 - 1

// maxValueLen is spec.md section 6: values are arbitrary byte strings of at
// most 2^32 - 1 bytes, since a record's value length field is a u32.
const maxValueLen = (1 << 32) - 1

// validateKey panics if key violates spec.md section 6's length bounds.
// This is a caller-fatal precondition violation (section 7's "Invalid
// input" kind), not a recoverable error: the teacher's own layout code
// panics on violated invariants (e.g. pkg/btree's "bad node type") rather
// than threading an error return through every call site.
func validateKey(key []byte) {
	if len(key) == 0 {
		panic("slkv: key must not be empty")
	}
	if len(key) > maxKeyLen {
		panic(fmt.Sprintf("slkv: key length %d exceeds maximum %d", len(key), maxKeyLen))
	}
}

func validateValue(value []byte) {
	if len(value) > maxValueLen {
		panic(fmt.Sprintf("slkv: value length %d exceeds maximum %d", len(value), maxValueLen))
	}
}
