package markduplicates

import (
	"github.com/biogo/hts/sam"
	"github.com/biogo/store/llrb"
)

// pairedEntry is the llrb.Comparable stored in pairedTable: the
// best-so-far candidate for one paired fingerprint. left/right mirror
// pairKey's ordering by first-seen ordinal, not by which mate is read
// 1.
type pairedEntry struct {
	key          pairKey
	score        int
	leftOrdinal  uint32
	rightOrdinal uint32
	leftRecord   *sam.Record
	rightRecord  *sam.Record
}

func (e pairedEntry) Compare(other llrb.Comparable) int {
	return e.key.compare(other.(pairedEntry).key)
}

// pairedTable is C7: one best-so-far candidate per paired
// fingerprint, ordered by pairKey so it sweeps in step with
// fragmentTable.
type pairedTable struct {
	tree llrb.Tree
}

func newPairedTable() *pairedTable {
	return &pairedTable{}
}

func (t *pairedTable) len() int { return t.tree.Len() }

// insert classifies a newly-resolved pair against whatever currently
// occupies key, per pairWins. It always reports a loser pair (the
// member not kept); ok is false when key had no prior occupant.
func (t *pairedTable) insert(key pairKey, leftRec, rightRec *sam.Record, leftOrdinal, rightOrdinal uint32, score int) (loser pairedEntry, ok bool) {
	incoming := pairedEntry{
		key:          key,
		score:        score,
		leftOrdinal:  leftOrdinal,
		rightOrdinal: rightOrdinal,
		leftRecord:   leftRec,
		rightRecord:  rightRec,
	}
	existing := t.tree.Get(incoming)
	if existing == nil {
		t.tree.Insert(incoming)
		return pairedEntry{}, false
	}
	stored := existing.(pairedEntry)
	if pairWins(incoming.score, incoming.leftOrdinal, stored.score, stored.leftOrdinal) {
		t.tree.Delete(stored)
		t.tree.Insert(incoming)
		return stored, true
	}
	return incoming, true
}

func (t *pairedTable) min() (pairedEntry, bool) {
	m := t.tree.Min()
	if m == nil {
		return pairedEntry{}, false
	}
	return m.(pairedEntry), true
}

func (t *pairedTable) popMin() pairedEntry {
	return t.tree.DeleteMin().(pairedEntry)
}
