package main

/*
  dedup marks or removes PCR and optical duplicates in a
  coordinate-sorted BAM file. For more information, see
  github.com/seqkit/dupmark/markduplicates/doc.go
*/

import (
	"flag"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/seqkit/dupmark/markduplicates"
)

var (
	in       = flag.String("in", "", "Input coordinate-sorted BAM filename")
	out      = flag.String("out", "", "Output BAM filename")
	logFile  = flag.String("log", "", "Output metrics filename. Defaults to --out with a .log suffix, or stderr if --out begins with '-'")
	minQual  = flag.Int("minQual", 15, "minimum base quality for a base to count toward a read's quality score")
	oneChrom = flag.Bool("oneChrom", false, "treat a read whose mate maps to a different reference as single-ended")
	rmDups   = flag.Bool("rmDups", false, "remove duplicate records from the output instead of flagging them")
	force    = flag.Bool("force", false, "accept input that already carries duplicate flags, clearing them on surviving records")
	verbose  = flag.Bool("verbose", false, "log progress every 100,000 records")
	noEOF    = flag.Bool("noeof", false, "skip the trailing BGZF EOF block check")
	params   = flag.Bool("params", false, "echo the resolved parameters at startup")
	recab    = flag.Bool("recab", false, "run the base-quality recalibration hooks and emit a model file alongside --out")
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		a := flag.Args()
		log.Fatalf("unparsed flags, please check flag syntax: '%s'", strings.Join(a[len(a)-flag.NArg():], " "))
	}

	opts := markduplicates.Opts{
		In:       *in,
		Out:      *out,
		Log:      *logFile,
		MinQual:  *minQual,
		OneChrom: *oneChrom,
		RmDups:   *rmDups,
		Force:    *force,
		Verbose:  *verbose,
		NoEOF:    *noEOF,
		Params:   *params,
		Recab:    *recab,
	}

	if err := markduplicates.Validate(&opts); err != nil {
		log.Fatalf(err.Error())
	}

	if err := markduplicates.Run(&opts); err != nil {
		log.Fatalf(err.Error())
	}
	log.Debug.Printf("exiting")
}
