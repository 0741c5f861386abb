package markduplicates

import (
	"io"
	"math"
	"os"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

const verboseInterval = 100000

// Run is the two-pass driver (C10). Pass 1 reads opts.In once,
// building the in-flight tables and the sorted duplicate index; pass
// 2 re-reads opts.In and writes opts.Out with duplicate flags set,
// cleared, or dropped according to opts.
func Run(opts *Opts) error {
	if opts.Params {
		log.Info.Printf("dedup params: %+v", *opts)
	}
	if !opts.NoEOF {
		if err := checkTrailingEOFBlock(opts.In); err != nil {
			return err
		}
	}

	recal := opts.recalibrator()

	dupIndex, metrics, libs, header, err := runPass1(opts, recal)
	if err != nil {
		return err
	}
	return runPass2(opts, header, dupIndex, metrics, libs, recal)
}

func runPass1(opts *Opts, recal Recalibrator) (*duplicateIndex, *metricsCollection, *libraryResolver, *sam.Header, error) {
	in, err := openInput(opts.In, opts.readerConcurrency)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	header := in.header()

	libs, err := newLibraryResolver(header)
	if err != nil {
		in.close()
		return nil, nil, nil, nil, err
	}

	pool := newRecordPool()
	fragments := newFragmentTable()
	paired := newPairedTable()
	pending := newPendingMateTable()
	metrics := newMetricsCollection()
	dupIndex := &duplicateIndex{}
	sweeper := newSweepController(fragments, paired, pending, pool, metrics, libs, recal)

	var ordinal uint32
	lastRef, lastPos := int32(-1), int32(-1)

	for {
		rec, rerr := in.read(pool)
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			in.close()
			return nil, nil, nil, nil, rerr
		}

		if rec.Flags&sam.Duplicate != 0 && !opts.Force {
			in.close()
			return nil, nil, nil, nil, errors.E(errors.Precondition,
				"record ", rec.Name, " already carries the duplicate flag; rerun with --force")
		}

		ref, pos := recordCoordinate(rec)
		if hasPositionChanged(lastRef, lastPos, ref, pos) {
			sweeper.sweep(ref, pos)
			lastRef, lastPos = ref, pos
		}

		libID, rerr := libs.resolve(rec)
		if rerr != nil {
			in.close()
			return nil, nil, nil, nil, rerr
		}
		m := metrics.get(libs.nameOf(libID))
		tallyFlags(m, rec)

		thisOrdinal := ordinal
		ordinal++

		if rec.Flags&sam.Unmapped != 0 {
			m.Unmapped++
			pool.release(rec)
			continue
		}

		score := baseQualityScore(rec, opts.MinQual)
		key := fingerprintOf(rec, libID)
		pairedFlag := rec.Flags&sam.Paired != 0
		mateMapped := pairedFlag && rec.Flags&sam.MateUnmapped == 0
		crossChrom := mateMapped && rec.MateRef.ID() != rec.Ref.ID()
		eligibleForPairing := mateMapped && !(opts.OneChrom && crossChrom)

		if eligibleForPairing {
			classifyPaired(rec, key, thisOrdinal, score, libID, pending, paired, pool, dupIndex, metrics, libs, recal)
		} else {
			classifyFragment(rec, key, thisOrdinal, score, pairedFlag, fragments, pool, dupIndex, m)
		}

		if opts.Verbose && ordinal%verboseInterval == 0 {
			log.Info.Printf("pass 1: processed %d records", ordinal)
		}
	}

	sweeper.sweep(math.MaxInt32, math.MaxInt32)
	if err := in.close(); err != nil {
		return nil, nil, nil, nil, err
	}
	dupIndex.sortAscending()

	if fragments.len() != 0 || paired.len() != 0 || pending.len() != 0 {
		return nil, nil, nil, nil, errors.E(errors.Precondition,
			"internal error: tables not empty after end-of-stream sweep (fragment=", fragments.len(),
			" pending_mate=", pending.len(), " paired=", paired.len(), ")")
	}
	return dupIndex, metrics, libs, header, nil
}

// recordCoordinate returns rec's (reference, position), treating an
// unmapped reference as -1.
func recordCoordinate(rec *sam.Record) (int32, int32) {
	ref := int32(-1)
	if rec.Ref != nil {
		ref = int32(rec.Ref.ID())
	}
	return ref, int32(rec.Pos)
}

func tallyFlags(m *Metrics, rec *sam.Record) {
	if rec.Flags&sam.Paired != 0 {
		m.Paired++
	}
	if rec.Flags&sam.ProperPair != 0 {
		m.ProperlyPaired++
	}
	if rec.Flags&sam.Reverse != 0 {
		m.Reverse++
	}
	if rec.Flags&sam.QCFail != 0 {
		m.QCFail++
	}
}

// classifyFragment runs rec through the fragment table (C5) per
// spec.md §4.5, recording a loser in dupIndex when one results.
func classifyFragment(rec *sam.Record, key fingerprintKey, ordinal uint32, score int, pairedFlag bool,
	fragments *fragmentTable, pool *recordPool, dupIndex *duplicateIndex, m *Metrics) {
	loser, hadCollision := fragments.insert(key, rec, ordinal, pairedFlag, score)
	if !hadCollision {
		return
	}
	dupIndex.add(loser.ordinal)
	pool.release(loser.record)
	m.UnpairedDups++
}

// classifyPaired runs rec through the pending-mate table (C6) and, on
// pairing resolution, the paired table (C7), per spec.md §4.6-§4.7.
func classifyPaired(rec *sam.Record, key fingerprintKey, ordinal uint32, score int, libID uint8,
	pending *pendingMateTable, paired *pairedTable, pool *recordPool, dupIndex *duplicateIndex,
	metrics *metricsCollection, libs *libraryResolver, recal Recalibrator) {

	ref, pos := recordCoordinate(rec)
	mref := int32(rec.MateRef.ID())
	mpos := int32(rec.MatePos)
	selfPacked := packedPos(ref, pos)
	matePacked := packedPos(mref, mpos)

	if matePacked <= selfPacked {
		cand, found := pending.claim(selfPacked, rec.Name)
		if !found {
			metrics.warnMissingMate(mref == ref)
			metrics.get(libs.nameOf(libID)).MissingMate++
			recal.ObserveNonDuplicate(rec)
			pool.release(rec)
			return
		}
		pk := pairKey{left: cand.key, right: key}
		totalScore := cand.score + score
		loser, hadCollision := paired.insert(pk, cand.record, rec, cand.ordinal, ordinal, totalScore)

		m := metrics.get(libs.nameOf(libID))
		m.pairsExamined++
		if hadCollision {
			m.pairsLost++
			dupIndex.add(loser.leftOrdinal)
			dupIndex.add(loser.rightOrdinal)
			pool.release(loser.leftRecord)
			pool.release(loser.rightRecord)
		}
		return
	}

	pending.park(matePacked, newPendingMateCandidate(key, rec, ordinal, score))
}

// runPass2 re-reads opts.In in the same coordinate order pass 1 saw
// it, consulting dupIndex to set, clear, or (with opts.RmDups) drop
// the duplicate flag on each record, then writes the metrics table.
func runPass2(opts *Opts, header *sam.Header, dupIndex *duplicateIndex, metrics *metricsCollection,
	libs *libraryResolver, recal Recalibrator) error {
	in, err := openInput(opts.In, opts.readerConcurrency)
	if err != nil {
		return err
	}
	out, err := openOutput(opts.Out, header, opts.writerConcurrency)
	if err != nil {
		in.close()
		return err
	}

	if opts.Recab {
		if err := emitRecalibrationModel(opts, recal); err != nil {
			in.close()
			out.close()
			return err
		}
	}

	pool := newRecordPool()
	cursor := dupIndex.newCursor()
	var ordinal uint32

	for {
		rec, rerr := in.read(pool)
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			in.close()
			out.close()
			return rerr
		}

		thisOrdinal := ordinal
		ordinal++
		isDup := cursor.isDuplicate(thisOrdinal)

		if isDup && opts.RmDups {
			pool.release(rec)
			continue
		}

		switch {
		case isDup:
			rec.Flags |= sam.Duplicate
		case opts.Force:
			rec.Flags &^= sam.Duplicate
		}

		if opts.Recab {
			recal.Recalibrate(rec)
		}

		if werr := out.write(rec); werr != nil {
			in.close()
			out.close()
			return werr
		}
		pool.release(rec)

		if opts.Verbose && ordinal%verboseInterval == 0 {
			log.Info.Printf("pass 2: processed %d records", ordinal)
		}
	}

	if err := in.close(); err != nil {
		out.close()
		return err
	}
	if err := out.close(); err != nil {
		return err
	}

	return writeMetricsLog(opts, metrics)
}

// emitRecalibrationModel writes recal's model to <out>.recal, the
// sibling artifact --recab produces alongside the marked BAM.
func emitRecalibrationModel(opts *Opts, recal Recalibrator) error {
	f, err := os.Create(opts.Out + ".recal")
	if err != nil {
		return errors.E(err, "creating recalibration model file")
	}
	if err := recal.EmitModel(f); err != nil {
		f.Close()
		return errors.E(err, "emitting recalibration model")
	}
	if err := f.Close(); err != nil {
		return errors.E(err, "closing recalibration model file")
	}
	return nil
}

// resolveLogPath returns opts.Log, defaulting to opts.Out with a
// ".log" suffix appended, per spec.md §6. A blank result means
// stderr: that default routes to stderr instead when opts.Out itself
// begins with "-" (i.e. the marked BAM is being streamed to stdout).
func resolveLogPath(opts *Opts) string {
	if opts.Log != "" {
		return opts.Log
	}
	if strings.HasPrefix(opts.Out, "-") {
		return ""
	}
	return opts.Out + ".log"
}

func writeMetricsLog(opts *Opts, metrics *metricsCollection) error {
	path := resolveLogPath(opts)
	if path == "" {
		return metrics.write(os.Stderr, 0, 0, 0)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.E(err, "creating metrics log ", path)
	}
	if err := metrics.write(f, 0, 0, 0); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.E(err, "closing metrics log ", path)
	}
	return nil
}
