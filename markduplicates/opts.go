package markduplicates

// Opts configures a Run of the duplicate-marking engine, mirroring
// the CLI surface in spec.md §6.
type Opts struct {
	// In is the path to the coordinate-sorted input BAM file.
	In string
	// Out is the path the marked (or filtered) BAM is written to.
	Out string
	// Log is the path the per-library metrics table is written to.
	// Empty defaults to Out with a ".log" suffix appended, or stderr
	// when Out itself begins with "-".
	Log string
	// MinQual is the Phred threshold used by the quality scorer (C3).
	MinQual int
	// OneChrom enables one-chromosome mode: a paired record whose
	// mate is on a different reference is treated as single-ended.
	OneChrom bool
	// RmDups drops duplicates in pass 2 instead of flagging them.
	RmDups bool
	// Force accepts input that already carries pre-existing duplicate
	// flags, and clears the flag on every surviving record in pass 2.
	Force bool
	// Verbose logs progress every 100,000 records.
	Verbose bool
	// NoEOF disables the trailing BGZF EOF block requirement.
	NoEOF bool
	// Params, when true, echoes the resolved Opts at startup.
	Params bool
	// Recab enables the recalibration pass. When true and Recalibrator
	// is nil, a no-op implementation is wired in so the flag is
	// honored end-to-end without requiring the real algorithm.
	Recab bool
	// Recalibrator is the injected recalibration hook (spec.md's
	// opaque external collaborator). Only consulted when Recab is
	// true.
	Recalibrator Recalibrator

	// readerConcurrency/writerConcurrency are exposed for tests that
	// want deterministic single-goroutine BGZF (de)compression; zero
	// means "let biogo/hts pick based on GOMAXPROCS".
	readerConcurrency int
	writerConcurrency int
}

func (o *Opts) recalibrator() Recalibrator {
	if o.Recab && o.Recalibrator != nil {
		return o.Recalibrator
	}
	return noopRecalibrator{}
}
