package engine

import "sort"

// entry locates the newest live Set record for a key: segment id and the
// absolute byte offset at which the record begins within that segment.
type entry struct {
	segmentID uint64
	offset    int64
}

// directory is the in-memory key directory: the newest-value index driving
// Get and telling compaction which records are live. It carries no lock of
// its own — the store is single-owner, single-threaded (see package doc on
// Store), and this type must never be shared across goroutines without
// external synchronization.
type directory struct {
	entries map[string]entry
}

func newDirectory() *directory {
	return &directory{entries: make(map[string]entry)}
}

func (d *directory) set(key string, e entry) {
	d.entries[key] = e
}

func (d *directory) remove(key string) {
	delete(d.entries, key)
}

func (d *directory) get(key string) (entry, bool) {
	e, ok := d.entries[key]
	return e, ok
}

func (d *directory) len() int {
	return len(d.entries)
}

// sortedKeys returns the directory's keys in lexicographic order. Iteration
// order has no effect on correctness, but a deterministic order keeps
// compaction's output (and its tests) reproducible.
func (d *directory) sortedKeys() []string {
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
