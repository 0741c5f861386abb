package markduplicates

import (
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Metrics accumulates the per-library counters spec.md §6 requires in
// the persisted log: paired, properly paired, unmapped, reverse,
// QC-failed and missing-mate counts, plus the duplicates found for
// that library.
type Metrics struct {
	Paired         int
	ProperlyPaired int
	Unmapped       int
	Reverse        int
	QCFail         int
	MissingMate    int
	UnpairedDups   int

	pairsExamined uint64
	pairsLost     uint64 // pairs that lost a §4.3 tie-break; reported as PAIRED_DUPLICATES
}

// String renders m the way estimateLibrarySize's caller expects: one
// tab-separated metrics line, ending in the Lander-Waterman library
// size estimate.
func (m *Metrics) String() string {
	librarySizeStr := "0"
	if m.pairsExamined > 0 {
		librarySize, err := estimateLibrarySize(m.pairsExamined, m.pairsExamined-m.pairsLost)
		if err == nil {
			librarySizeStr = fmt.Sprintf("%d", librarySize)
		} else {
			log.Error.Printf("estimateLibrarySize(%d, %d): %v", m.pairsExamined, m.pairsExamined-m.pairsLost, err)
		}
	}
	total := m.Paired + m.Unmapped
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(uint64(m.UnpairedDups)+m.pairsLost) / float64(total)
	}
	return fmt.Sprintf("%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%0.6f\t%s",
		m.Paired, m.ProperlyPaired, m.Unmapped, m.Reverse, m.QCFail, m.MissingMate,
		m.UnpairedDups, m.pairsLost, pct, librarySizeStr)
}

// metricsCollection holds per-library Metrics plus the run-wide
// one-time missing-mate warning flags, one per class. The final
// (must-be-zero) table sizes are not stored here; write takes them as
// arguments.
type metricsCollection struct {
	byLibrary map[string]*Metrics

	warnedSameChromMissingMate  bool
	warnedCrossChromMissingMate bool
}

func newMetricsCollection() *metricsCollection {
	return &metricsCollection{byLibrary: make(map[string]*Metrics)}
}

func (mc *metricsCollection) get(library string) *Metrics {
	m, ok := mc.byLibrary[library]
	if !ok {
		m = &Metrics{}
		mc.byLibrary[library] = m
	}
	return m
}

// warnMissingMate logs the missing-mate diagnostic at most once per
// class (same-chromosome vs cross-chromosome), per spec.md §4.8/§7.
func (mc *metricsCollection) warnMissingMate(sameChromosome bool) {
	if sameChromosome {
		if mc.warnedSameChromMissingMate {
			return
		}
		mc.warnedSameChromMissingMate = true
		log.Error.Printf("one or more mates never arrived for a same-chromosome pair; treating as non-duplicate")
		return
	}
	if mc.warnedCrossChromMissingMate {
		return
	}
	mc.warnedCrossChromMissingMate = true
	log.Error.Printf("one or more mates never arrived for a cross-chromosome pair; treating as non-duplicate")
}

// write renders the full per-library report plus the final table
// sizes, which must be zero on a graceful shutdown (spec.md §3
// invariant 4).
func (mc *metricsCollection) write(w io.Writer, fragmentLen, pendingMateLen, pairedLen int) error {
	header := "LIBRARY\tPAIRED\tPROPERLY_PAIRED\tUNMAPPED\tREVERSE\tQC_FAIL\tMISSING_MATE\t" +
		"UNPAIRED_DUPLICATES\tPAIRED_DUPLICATES\tPERCENT_DUPLICATION\tESTIMATED_LIBRARY_SIZE\n"
	if _, err := io.WriteString(w, header); err != nil {
		return errors.E(err, "writing metrics header")
	}

	names := make([]string, 0, len(mc.byLibrary))
	for name := range mc.byLibrary {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", name, mc.byLibrary[name].String()); err != nil {
			return errors.E(err, "writing metrics line for library ", name)
		}
	}

	if _, err := fmt.Fprintf(w, "\n# final table sizes (must be zero): fragment=%d pending_mate=%d paired=%d\n",
		fragmentLen, pendingMateLen, pairedLen); err != nil {
		return errors.E(err, "writing final table sizes")
	}
	return nil
}
