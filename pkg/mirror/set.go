package mirror

import (
	"github.com/fishy/errbatch"
)

// Set groups the mirror roots of every known mode. Delete-style operations
// run against all of them so stale copies do not survive a mode switch;
// per-root failures are batched rather than aborting the sweep.
type Set []*Mirror

// Remove deletes the mirrored copy of bucket/key from every root.
func (s Set) Remove(bucket, key string) error {
	batch := new(errbatch.ErrBatch)
	for _, m := range s {
		batch.Add(m.Remove(bucket, key))
	}
	return batch.Compile()
}

// RemoveAll deletes the mirrored tree for a bucket from every root.
func (s Set) RemoveAll(bucket string) error {
	batch := new(errbatch.ErrBatch)
	for _, m := range s {
		batch.Add(m.RemoveAll(bucket))
	}
	return batch.Compile()
}

// Purge deletes every mirror root recursively. Absent roots are no-ops.
func (s Set) Purge() error {
	batch := new(errbatch.ErrBatch)
	for _, m := range s {
		batch.Add(m.Purge())
	}
	return batch.Compile()
}
