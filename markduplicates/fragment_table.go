package markduplicates

import (
	"github.com/biogo/hts/sam"
	"github.com/biogo/store/llrb"
)

// fragmentEntry is the llrb.Comparable stored in fragmentTable: the
// best-so-far single-ended candidate for one fingerprint.
type fragmentEntry struct {
	key     fingerprintKey
	score   int
	ordinal uint32
	record  *sam.Record
	paired  bool
}

// Compare orders fragmentEntry values by their fingerprintKey, so the
// tree stays sorted in the order the sweep controller drains it.
func (e fragmentEntry) Compare(other llrb.Comparable) int {
	return e.key.compare(other.(fragmentEntry).key)
}

// fragmentTable is C5: one best-so-far single-end candidate per
// fingerprint, ordered by fingerprintKey.
type fragmentTable struct {
	tree llrb.Tree
}

func newFragmentTable() *fragmentTable {
	return &fragmentTable{}
}

func (t *fragmentTable) len() int { return t.tree.Len() }

// insert classifies rec against whatever currently occupies key, per
// the tie-break rule in fragmentReplaces. It always reports a loser:
// either the newly-arrived record (when the stored entry is kept) or
// the previously-stored entry (when rec displaces it). ok is false
// only when key had no prior occupant, in which case rec is simply
// recorded and there is nothing to report to C9 yet.
func (t *fragmentTable) insert(key fingerprintKey, rec *sam.Record, ordinal uint32, paired bool, score int) (loser fragmentEntry, ok bool) {
	incoming := fragmentEntry{key: key, score: score, ordinal: ordinal, record: rec, paired: paired}
	existing := t.tree.Get(incoming)
	if existing == nil {
		t.tree.Insert(incoming)
		return fragmentEntry{}, false
	}
	stored := existing.(fragmentEntry)
	if fragmentReplaces(stored.paired, stored.score, incoming.paired, incoming.score) {
		t.tree.Delete(stored)
		t.tree.Insert(incoming)
		return stored, true
	}
	return incoming, true
}

// min returns the smallest entry currently stored, without removing
// it.
func (t *fragmentTable) min() (fragmentEntry, bool) {
	m := t.tree.Min()
	if m == nil {
		return fragmentEntry{}, false
	}
	return m.(fragmentEntry), true
}

// popMin removes and returns the smallest entry currently stored. The
// caller must have already checked len() > 0.
func (t *fragmentTable) popMin() fragmentEntry {
	return t.tree.DeleteMin().(fragmentEntry)
}
