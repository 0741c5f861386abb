package markduplicates

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
)

func TestPendingMateTableParkThenClaim(t *testing.T) {
	pt := newPendingMateTable()
	key := fingerprintKey{referenceID: 0, anchorPos: 100}
	cand := newPendingMateCandidate(key, &sam.Record{Name: "r1"}, 0, 42)

	pt.park(packedPos(0, 300), cand)
	assert.Equal(t, 1, pt.len())

	got, ok := pt.claim(packedPos(0, 300), "r1")
	assert.True(t, ok)
	assert.Equal(t, "r1", got.record.Name)
	assert.Equal(t, 0, pt.len())
}

func TestPendingMateTableClaimWrongNameMisses(t *testing.T) {
	pt := newPendingMateTable()
	key := fingerprintKey{referenceID: 0, anchorPos: 100}
	pt.park(packedPos(0, 300), newPendingMateCandidate(key, &sam.Record{Name: "r1"}, 0, 42))

	_, ok := pt.claim(packedPos(0, 300), "different")
	assert.False(t, ok)
	assert.Equal(t, 1, pt.len())
}

func TestPendingMateTableClaimEmptyPositionMisses(t *testing.T) {
	pt := newPendingMateTable()
	_, ok := pt.claim(packedPos(0, 999), "anything")
	assert.False(t, ok)
}

func TestPendingMateTableMultipleCandidatesAtSameBucket(t *testing.T) {
	pt := newPendingMateTable()
	key := fingerprintKey{referenceID: 0, anchorPos: 100}
	pt.park(packedPos(0, 300), newPendingMateCandidate(key, &sam.Record{Name: "r1"}, 0, 42))
	pt.park(packedPos(0, 300), newPendingMateCandidate(key, &sam.Record{Name: "r2"}, 1, 10))
	assert.Equal(t, 2, pt.len())

	got, ok := pt.claim(packedPos(0, 300), "r2")
	assert.True(t, ok)
	assert.Equal(t, "r2", got.record.Name)
	assert.Equal(t, 1, pt.len())

	// The bucket should still be there for the remaining candidate.
	got2, ok := pt.claim(packedPos(0, 300), "r1")
	assert.True(t, ok)
	assert.Equal(t, "r1", got2.record.Name)
	assert.Equal(t, 0, pt.len())
}

func TestPendingMateTableMinAndPopMin(t *testing.T) {
	pt := newPendingMateTable()
	key := fingerprintKey{referenceID: 0, anchorPos: 0}
	pt.park(packedPos(1, 0), newPendingMateCandidate(key, &sam.Record{Name: "far"}, 0, 1))
	pt.park(packedPos(0, 5), newPendingMateCandidate(key, &sam.Record{Name: "near"}, 1, 1))

	m, ok := pt.min()
	assert.True(t, ok)
	assert.Equal(t, "near", m.candidates[0].record.Name)

	popped := pt.popMin()
	assert.Equal(t, "near", popped.candidates[0].record.Name)
	assert.Equal(t, 1, pt.len())
}

func TestPackedPosOrdersByReferenceThenPosition(t *testing.T) {
	assert.True(t, packedPos(0, 1000) < packedPos(1, 0))
	assert.True(t, packedPos(0, 0) < packedPos(0, 1))
}
