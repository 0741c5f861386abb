package markduplicates

import "github.com/grailbio/base/errors"

// Validate checks opts for the configuration errors spec.md §7
// names (missing required parameters, invalid numeric fields).
// spec.md §7 treats this as the caller's responsibility: cmd/dedup
// calls Validate and exits via log.Fatalf before the engine is ever
// constructed, rather than Run discovering it mid-flight.
func Validate(opts *Opts) error {
	if opts.In == "" {
		return errors.E(errors.Precondition, "you must specify an input file with --in")
	}
	if opts.Out == "" {
		return errors.E(errors.Precondition, "you must specify an output file with --out")
	}
	if opts.MinQual < 0 {
		return errors.E(errors.Precondition, "--minQual must be non-negative")
	}
	return nil
}
