package markduplicates

import (
	"io"

	"github.com/biogo/hts/sam"
)

// Recalibrator is the boundary to the companion base-quality
// recalibration pass. It is treated as an opaque external
// collaborator: this package only defines the interface and invokes
// it at the points spec.md names, it does not implement recalibration
// itself.
type Recalibrator interface {
	// EmitModel is called once at the start of pass 2, before any
	// record is written, to persist whatever model the recalibrator
	// has built.
	EmitModel(w io.Writer) error

	// ObserveNonDuplicate is the "non-duplicate record" hook: called
	// by the sweep controller for every record it drains that was not
	// chosen as a duplicate, before the record is released back to
	// the pool.
	ObserveNonDuplicate(r *sam.Record)

	// Recalibrate is the "emitted record" hook: called by pass 2 on
	// every record immediately before it is written to the output,
	// whether or not it was flagged a duplicate.
	Recalibrate(r *sam.Record)
}

// noopRecalibrator is wired in when --recab is not set, so the engine
// always has a Recalibrator to call without a nil check at every hook
// site.
type noopRecalibrator struct{}

func (noopRecalibrator) EmitModel(io.Writer) error      { return nil }
func (noopRecalibrator) ObserveNonDuplicate(*sam.Record) {}
func (noopRecalibrator) Recalibrate(*sam.Record)         {}
