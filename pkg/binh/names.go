package binh

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/relab/bbhash"
)

// normalizeName is the form used for column name lookup.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func hashName(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// nameIndex maps normalized column names to column indices with a minimal
// perfect hash. Every hit is verified against the stored name, so unknown
// names never resolve to a column.
type nameIndex struct {
	mph     *bbhash.BBHash2
	names   []string // normalized, in MPHF order
	columns []int    // column index, in MPHF order

	// Distinct names whose 64-bit hashes collide with an earlier name.
	collisions []nameEntry
}

type nameEntry struct {
	name   string
	column int
}

// newNameIndex indexes names by position. When two columns share a
// normalized name the last one wins.
func newNameIndex(names []string) (*nameIndex, error) {
	idx := &nameIndex{}
	if len(names) == 0 {
		return idx, nil
	}

	last := make(map[string]int, len(names))
	for col, raw := range names {
		last[normalizeName(raw)] = col
	}

	seen := make(map[uint64]string, len(names))
	entries := make([]nameEntry, 0, len(names))
	keys := make([]uint64, 0, len(names))
	for _, raw := range names {
		name := normalizeName(raw)
		col := last[name]
		h := hashName(name)
		if prev, ok := seen[h]; ok {
			if prev != name && idx.lookupCollision(name) < 0 {
				idx.collisions = append(idx.collisions, nameEntry{name: name, column: col})
			}
			continue
		}
		seen[h] = name
		entries = append(entries, nameEntry{name: name, column: col})
		keys = append(keys, h)
	}

	mph, err := bbhash.New(keys, bbhash.Gamma(2.0))
	if err != nil {
		return nil, fmt.Errorf("build column name index: %w", err)
	}
	idx.mph = mph
	idx.names = make([]string, len(entries))
	idx.columns = make([]int, len(entries))
	for i, e := range entries {
		pos := mph.Find(keys[i])
		if pos == 0 {
			return nil, fmt.Errorf("column name index lookup failed for %q", e.name)
		}
		idx.names[pos-1] = e.name
		idx.columns[pos-1] = e.column
	}
	return idx, nil
}

// lookup returns the column for a normalized name, or -1.
func (idx *nameIndex) lookup(name string) int {
	if idx.mph != nil {
		// bbhash positions are 1-indexed; 0 means not found.
		if pos := idx.mph.Find(hashName(name)); pos != 0 && pos <= uint64(len(idx.names)) {
			if idx.names[pos-1] == name {
				return idx.columns[pos-1]
			}
		}
	}
	return idx.lookupCollision(name)
}

func (idx *nameIndex) lookupCollision(name string) int {
	for _, e := range idx.collisions {
		if e.name == name {
			return e.column
		}
	}
	return -1
}
