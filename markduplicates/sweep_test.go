package markduplicates

import (
	"math"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
)

func newTestSweeper() (*sweepController, *fragmentTable, *pairedTable, *pendingMateTable, *recordPool, *metricsCollection, *libraryResolver) {
	fragments := newFragmentTable()
	paired := newPairedTable()
	pending := newPendingMateTable()
	pool := newRecordPool()
	metrics := newMetricsCollection()
	libs := &libraryResolver{names: []string{"lib1"}}
	s := newSweepController(fragments, paired, pending, pool, metrics, libs, noopRecalibrator{})
	return s, fragments, paired, pending, pool, metrics, libs
}

func TestSweepDrainsFragmentEntriesBeforeCursor(t *testing.T) {
	s, fragments, _, _, _, _, _ := newTestSweeper()
	fragments.insert(fingerprintKey{referenceID: 0, anchorPos: 100}, &sam.Record{Name: "a"}, 0, false, 10)
	fragments.insert(fingerprintKey{referenceID: 0, anchorPos: 500}, &sam.Record{Name: "b"}, 1, false, 10)

	s.sweep(0, 200)
	assert.Equal(t, 1, fragments.len())
	m, _ := fragments.min()
	assert.Equal(t, "b", m.record.Name)
}

func TestSweepFlushesEverythingAtSentinel(t *testing.T) {
	s, fragments, paired, pending, _, _, _ := newTestSweeper()
	fragments.insert(fingerprintKey{referenceID: 0, anchorPos: 100}, &sam.Record{Name: "frag"}, 0, false, 10)
	pk := pairKey{left: fingerprintKey{referenceID: 0, anchorPos: 5}, right: fingerprintKey{referenceID: 0, anchorPos: 9}}
	paired.insert(pk, &sam.Record{Name: "L"}, &sam.Record{Name: "R"}, 0, 1, 10)
	pending.park(packedPos(0, 50), newPendingMateCandidate(fingerprintKey{referenceID: 0, anchorPos: 10}, &sam.Record{Name: "parked"}, 2, 5))

	s.sweep(math.MaxInt32, math.MaxInt32)

	assert.Equal(t, 0, fragments.len())
	assert.Equal(t, 0, paired.len())
	assert.Equal(t, 0, pending.len())
}

func TestSweepMissingMateCountsAndWarnsOncePerClass(t *testing.T) {
	s, _, _, pending, _, metrics, libs := newTestSweeper()
	key := fingerprintKey{referenceID: 0, anchorPos: 10, libraryID: 0}
	pending.park(packedPos(0, 50), newPendingMateCandidate(key, &sam.Record{Name: "a"}, 0, 5))
	pending.park(packedPos(0, 60), newPendingMateCandidate(key, &sam.Record{Name: "b"}, 1, 5))

	s.sweep(math.MaxInt32, math.MaxInt32)

	m := metrics.get(libs.nameOf(0))
	assert.Equal(t, 2, m.MissingMate)
	assert.True(t, metrics.warnedSameChromMissingMate)
}
