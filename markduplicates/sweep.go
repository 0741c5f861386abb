package markduplicates

// hasPositionChanged reports whether the input cursor has advanced
// past (lastRef, lastPos), per spec.md §4.8: strictly greater position
// on the same reference, or any new reference.
func hasPositionChanged(lastRef, lastPos, ref, pos int32) bool {
	return ref != lastRef || pos > lastPos
}

// sweepController is C8: it drains C5/C6/C7 of every entry whose
// position the input cursor has passed, delivering winners to the
// non-duplicate path and unresolved pending mates to the missing-mate
// diagnostic path.
type sweepController struct {
	fragments *fragmentTable
	paired    *pairedTable
	pending   *pendingMateTable
	pool      *recordPool
	metrics   *metricsCollection
	libs      *libraryResolver
	recal     Recalibrator
}

func newSweepController(fragments *fragmentTable, paired *pairedTable, pending *pendingMateTable,
	pool *recordPool, metrics *metricsCollection, libs *libraryResolver, recal Recalibrator) *sweepController {
	return &sweepController{
		fragments: fragments,
		paired:    paired,
		pending:   pending,
		pool:      pool,
		metrics:   metrics,
		libs:      libs,
		recal:     recal,
	}
}

// sweep drains every entry in C5/C6/C7 whose position lies strictly
// before (referenceID, pos). Call with a sentinel position past every
// real coordinate at EOF to flush the tables completely.
func (s *sweepController) sweep(referenceID, pos int32) {
	for {
		e, ok := s.fragments.min()
		if !ok || !e.key.precedes(referenceID, pos) {
			break
		}
		s.fragments.popMin()
		s.recal.ObserveNonDuplicate(e.record)
		s.pool.release(e.record)
	}

	for {
		e, ok := s.paired.min()
		if !ok || !e.key.precedes(referenceID, pos) {
			break
		}
		s.paired.popMin()
		s.recal.ObserveNonDuplicate(e.leftRecord)
		s.pool.release(e.leftRecord)
		s.recal.ObserveNonDuplicate(e.rightRecord)
		s.pool.release(e.rightRecord)
	}

	for {
		b, ok := s.pending.min()
		if !ok {
			break
		}
		mateRef := int32(b.packed >> 32)
		matePos := int32(b.packed & 0xffffffff)
		if !(mateRef < referenceID || (mateRef == referenceID && matePos < pos)) {
			break
		}
		s.pending.popMin()
		for _, cand := range b.candidates {
			sameChrom := cand.key.referenceID == mateRef
			s.metrics.warnMissingMate(sameChrom)
			s.metrics.get(s.libs.nameOf(cand.key.libraryID)).MissingMate++
			s.recal.ObserveNonDuplicate(cand.record)
			s.pool.release(cand.record)
		}
	}
}
