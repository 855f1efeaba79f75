package autocurator

import (
	"log/slog"

	"github.com/corona10/goimagehash"
)

// DefaultSimilarityThreshold is the maximum Hamming distance between two
// dHash fingerprints below which photos are considered near-duplicate shots.
const DefaultSimilarityThreshold = 10

// fingerprintRecords computes a perceptual difference hash for every record
// and releases the decoded pixels. dHash works on downscaled grayscale pixel
// data, so minor exposure and crop differences between burst shots do not
// change the fingerprint much. If hashing fails the record keeps a nil
// fingerprint and is treated as unique (graceful degradation).
func fingerprintRecords(records []*PhotoRecord) {
	for _, rec := range records {
		if rec.decoded == nil {
			continue
		}
		hash, err := goimagehash.DifferenceHash(rec.decoded)
		if err != nil {
			slog.Warn("autocurator: fingerprinting failed", "file", rec.Name, "error", err)
		} else {
			rec.Fingerprint = hash
		}
		rec.decoded = nil
	}
}

// disjointSet is a union-find structure over photo indices, with path
// compression and union by size. It keeps the O(n²) fingerprint comparisons
// separate from the near-O(n) merge cost and makes similarity transitive
// within a run: A~B and B~C puts A, B, C in one group even when A and C alone
// would miss the threshold.
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	d := &disjointSet{parent: make([]int, n), size: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}
	return d
}

func (d *disjointSet) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]] // path compression
		x = d.parent[x]
	}
	return x
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}

// groupRecords partitions records into duplicate groups by pairwise
// fingerprint distance under threshold. With disabled set, every photo forms
// its own singleton group. Group ids follow the discovery order of each
// group's first member; members are listed in discovery order. No backend
// call is ever made here.
func groupRecords(records []*PhotoRecord, threshold int, disabled bool) []DuplicateGroup {
	ds := newDisjointSet(len(records))

	if !disabled {
		for i := 0; i < len(records); i++ {
			if records[i].Fingerprint == nil {
				continue
			}
			for j := i + 1; j < len(records); j++ {
				if records[j].Fingerprint == nil {
					continue
				}
				dist, err := records[i].Fingerprint.Distance(records[j].Fingerprint)
				if err == nil && dist < threshold {
					ds.union(i, j)
				}
			}
		}
	}

	// Build groups keyed by root, ordered by their first member's index.
	groupByRoot := make(map[int]int) // root → index into groups
	var groups []DuplicateGroup
	for i := range records {
		root := ds.find(i)
		gi, ok := groupByRoot[root]
		if !ok {
			gi = len(groups)
			groupByRoot[root] = gi
			groups = append(groups, DuplicateGroup{ID: gi, Best: -1, Threshold: threshold})
			records[i].Representative = true
		}
		groups[gi].Members = append(groups[gi].Members, i)
		records[i].GroupID = gi
	}
	return groups
}
