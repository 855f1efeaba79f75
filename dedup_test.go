package autocurator

import (
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/corona10/goimagehash"
)

// hashRecord builds a record with a crafted fingerprint so tests control
// pairwise Hamming distances exactly.
func hashRecord(name string, bits uint64) *PhotoRecord {
	return &PhotoRecord{
		Name:        name,
		Path:        name,
		GroupID:     -1,
		Fingerprint: goimagehash.NewImageHash(bits, goimagehash.DHash),
	}
}

func groupMembers(records []*PhotoRecord, groups []DuplicateGroup) [][]string {
	out := make([][]string, len(groups))
	for gi, g := range groups {
		for _, i := range g.Members {
			out[gi] = append(out[gi], records[i].Name)
		}
	}
	return out
}

func TestGroupRecords_Transitivity(t *testing.T) {
	t.Parallel()

	// d(a,b)=5, d(b,c)=5, d(a,c)=10: with threshold 6 only the a-b and b-c
	// pairs qualify, yet all three must land in one group.
	records := []*PhotoRecord{
		hashRecord("a.jpg", 0b0000000000),
		hashRecord("b.jpg", 0b0000011111),
		hashRecord("c.jpg", 0b1111111111),
	}

	groups := groupRecords(records, 6, false)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1: %v", len(groups), groupMembers(records, groups))
	}
	if got := groupMembers(records, groups)[0]; !reflect.DeepEqual(got, []string{"a.jpg", "b.jpg", "c.jpg"}) {
		t.Errorf("members = %v, want discovery order a,b,c", got)
	}
	if !records[0].Representative || records[1].Representative || records[2].Representative {
		t.Error("only the first-by-discovery member should be the representative")
	}
}

func TestGroupRecords_Idempotent(t *testing.T) {
	t.Parallel()

	build := func() []*PhotoRecord {
		return []*PhotoRecord{
			hashRecord("a.jpg", 0),
			hashRecord("b.jpg", 0b11),
			hashRecord("c.jpg", ^uint64(0)),
			hashRecord("d.jpg", ^uint64(0)>>1),
		}
	}

	first := build()
	second := build()
	g1 := groupRecords(first, DefaultSimilarityThreshold, false)
	g2 := groupRecords(second, DefaultSimilarityThreshold, false)

	if !reflect.DeepEqual(groupMembers(first, g1), groupMembers(second, g2)) {
		t.Errorf("grouping not idempotent: %v vs %v", groupMembers(first, g1), groupMembers(second, g2))
	}
}

func TestGroupRecords_Disabled(t *testing.T) {
	t.Parallel()

	// Identical fingerprints, but deduplication is off: singleton groups.
	records := []*PhotoRecord{
		hashRecord("a.jpg", 42),
		hashRecord("b.jpg", 42),
		hashRecord("c.jpg", 42),
	}

	groups := groupRecords(records, DefaultSimilarityThreshold, true)
	if len(groups) != len(records) {
		t.Fatalf("got %d groups, want %d singletons", len(groups), len(records))
	}
	for i, g := range groups {
		if len(g.Members) != 1 {
			t.Errorf("group %d has %d members, want 1", i, len(g.Members))
		}
		if !records[i].Representative {
			t.Errorf("record %d should be its own representative", i)
		}
	}
}

func TestGroupRecords_NilFingerprintStaysUnique(t *testing.T) {
	t.Parallel()

	records := []*PhotoRecord{
		hashRecord("a.jpg", 0),
		{Name: "broken.jpg", Path: "broken.jpg", GroupID: -1}, // hashing failed
		hashRecord("c.jpg", 0),
	}

	groups := groupRecords(records, DefaultSimilarityThreshold, false)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2 (a+c merged, broken alone)", len(groups))
	}
	if records[1].GroupID == records[0].GroupID {
		t.Error("record without fingerprint must not join a group")
	}
}

func TestFingerprintRecords_BurstShotsMatch(t *testing.T) {
	t.Parallel()

	solid := func(c color.Gray) image.Image {
		img := image.NewGray(image.Rect(0, 0, 64, 64))
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				img.SetGray(x, y, c)
			}
		}
		return img
	}
	gradient := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			gradient.SetGray(x, y, color.Gray{Y: uint8(x * 4)})
		}
	}

	records := []*PhotoRecord{
		{Name: "a.jpg", GroupID: -1, decoded: solid(color.Gray{Y: 100})},
		{Name: "b.jpg", GroupID: -1, decoded: solid(color.Gray{Y: 110})}, // minor exposure shift
		{Name: "c.jpg", GroupID: -1, decoded: gradient},
	}
	fingerprintRecords(records)

	for _, rec := range records {
		if rec.Fingerprint == nil {
			t.Fatalf("%s: fingerprint not computed", rec.Name)
		}
		if rec.decoded != nil {
			t.Errorf("%s: decoded pixels not released", rec.Name)
		}
	}

	groups := groupRecords(records, DefaultSimilarityThreshold, false)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2: %v", len(groups), groupMembers(records, groups))
	}
	if records[0].GroupID != records[1].GroupID {
		t.Error("exposure-shifted burst shots should share a group")
	}
	if records[2].GroupID == records[0].GroupID {
		t.Error("structurally different photo must not join the burst group")
	}
}
