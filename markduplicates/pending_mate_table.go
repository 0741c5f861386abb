package markduplicates

import (
	"github.com/biogo/hts/sam"
	"github.com/biogo/store/llrb"
	"github.com/blainsmith/seahash"
	"github.com/grailbio/base/unsafe"
)

// packedPos packs a mapped mate's (reference, position) into a single
// ascending-ordered uint64, matching spec §3/§4.6's "64-bit
// (reference_id << 32) | position" key. Only ever called with a
// mapped reference id (>= 0): a record only reaches the pending-mate
// table when its mate is itself mapped.
func packedPos(referenceID, pos int32) uint64 {
	return uint64(uint32(referenceID))<<32 | uint64(uint32(pos))
}

// pendingMateCandidate is one record parked in the pending-mate table
// awaiting its mate.
type pendingMateCandidate struct {
	key      fingerprintKey
	score    int
	ordinal  uint32
	record   *sam.Record
	name     string
	nameHash uint64
}

// newPendingMateCandidate builds a candidate from a record's own
// fingerprint, precomputing its read-name hash once so claim() never
// has to hash the same name twice.
func newPendingMateCandidate(key fingerprintKey, rec *sam.Record, ordinal uint32, score int) pendingMateCandidate {
	return pendingMateCandidate{
		key:      key,
		score:    score,
		ordinal:  ordinal,
		record:   rec,
		name:     rec.Name,
		nameHash: seahash.Sum64(unsafe.StringToBytes(rec.Name)),
	}
}

// pendingMateBucket is the llrb.Comparable node stored per packed
// position: a multi-map bucket, since more than one read can be
// parked awaiting a mate at the same coordinate.
type pendingMateBucket struct {
	packed     uint64
	candidates []pendingMateCandidate
}

func (b pendingMateBucket) Compare(other llrb.Comparable) int {
	o := other.(pendingMateBucket)
	switch {
	case b.packed < o.packed:
		return -1
	case b.packed > o.packed:
		return 1
	default:
		return 0
	}
}

// pendingMateTable is C6: a multi-map of records awaiting the arrival
// of their mate, keyed by the mate's expected packed coordinate.
type pendingMateTable struct {
	tree llrb.Tree
	size int
}

func newPendingMateTable() *pendingMateTable {
	return &pendingMateTable{}
}

func (t *pendingMateTable) len() int { return t.size }

// park records rec, which has not yet found its mate, to be matched
// when a record with the complementary packed position arrives.
func (t *pendingMateTable) park(matePacked uint64, cand pendingMateCandidate) {
	probe := pendingMateBucket{packed: matePacked}
	existing := t.tree.Get(probe)
	if existing == nil {
		t.tree.Insert(pendingMateBucket{packed: matePacked, candidates: []pendingMateCandidate{cand}})
	} else {
		bucket := existing.(pendingMateBucket)
		bucket.candidates = append(bucket.candidates, cand)
		t.tree.Delete(existing)
		t.tree.Insert(bucket)
	}
	t.size++
}

// claim looks for a previously-parked record at selfPacked whose name
// equals name, removes and returns it. ok is false when no match is
// parked there (the mate is missing).
func (t *pendingMateTable) claim(selfPacked uint64, name string) (pendingMateCandidate, bool) {
	probe := pendingMateBucket{packed: selfPacked}
	existing := t.tree.Get(probe)
	if existing == nil {
		return pendingMateCandidate{}, false
	}
	bucket := existing.(pendingMateBucket)
	hash := seahash.Sum64(unsafe.StringToBytes(name))
	for i, cand := range bucket.candidates {
		if cand.nameHash != hash {
			continue
		}
		if cand.name != name {
			continue
		}
		bucket.candidates = append(bucket.candidates[:i], bucket.candidates[i+1:]...)
		t.tree.Delete(existing)
		if len(bucket.candidates) > 0 {
			t.tree.Insert(bucket)
		}
		t.size--
		return cand, true
	}
	return pendingMateCandidate{}, false
}

// min returns the smallest-keyed bucket currently stored, without
// removing it.
func (t *pendingMateTable) min() (pendingMateBucket, bool) {
	m := t.tree.Min()
	if m == nil {
		return pendingMateBucket{}, false
	}
	return m.(pendingMateBucket), true
}

// popMin removes and returns the smallest-keyed bucket currently
// stored. The caller must have already checked len() > 0.
func (t *pendingMateTable) popMin() pendingMateBucket {
	b := t.tree.DeleteMin().(pendingMateBucket)
	t.size -= len(b.candidates)
	return b
}
