package markduplicates

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
)

func writeTestBAM(t *testing.T, path string, header *sam.Header, records []*sam.Record) {
	f, err := os.Create(path)
	assert.NoError(t, err)
	bw, err := bam.NewWriter(f, header, 1)
	assert.NoError(t, err)
	for _, r := range records {
		assert.NoError(t, bw.Write(r))
	}
	assert.NoError(t, bw.Close())
	assert.NoError(t, f.Close())
}

func readTestBAM(t *testing.T, path string) []*sam.Record {
	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()
	br, err := bam.NewReader(f, 1)
	assert.NoError(t, err)
	var out []*sam.Record
	for {
		r, err := br.Read()
		if err == io.EOF {
			break
		}
		assert.NoError(t, err)
		out = append(out, r)
	}
	assert.NoError(t, br.Close())
	return out
}

// buildFixture lays out one unmapped read, two duplicate read pairs
// sharing a fingerprint (the higher-quality pair must survive), and
// one pair whose mate never arrives.
func buildFixture(t *testing.T) (*sam.Header, []*sam.Record) {
	header := newTestHeader()
	chr1 := testRef(header, "chr1")

	unmapped := newTestRecord("unmapped1", nil, 0, sam.Unmapped, nil, 0, nil)

	lowQualLeft := newTestRecord("lowQualPair", chr1, 100, sam.Paired|sam.ProperPair|sam.MateReverse|sam.Read1, chr1, 300, matchCigar)
	withQual(lowQualLeft, lowQual(100))
	highQualLeft := newTestRecord("highQualPair", chr1, 100, sam.Paired|sam.ProperPair|sam.MateReverse|sam.Read1, chr1, 300, matchCigar)
	withQual(highQualLeft, highQual(100))

	lowQualRight := newTestRecord("lowQualPair", chr1, 300, sam.Paired|sam.ProperPair|sam.Reverse|sam.Read2, chr1, 100, matchCigar)
	withQual(lowQualRight, lowQual(100))
	highQualRight := newTestRecord("highQualPair", chr1, 300, sam.Paired|sam.ProperPair|sam.Reverse|sam.Read2, chr1, 100, matchCigar)
	withQual(highQualRight, highQual(100))

	missingMate := newTestRecord("missingMate", chr1, 2000, sam.Paired|sam.MateReverse|sam.Read1, chr1, 5000, matchCigar)

	records := []*sam.Record{
		unmapped,
		lowQualLeft,
		highQualLeft,
		lowQualRight,
		highQualRight,
		missingMate,
	}
	return header, records
}

func lowQual(n int) []byte {
	q := make([]byte, n)
	for i := range q {
		q[i] = 20
	}
	return q
}

func TestRunFlagsDuplicatesAndLeavesWinnerClean(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	header, records := buildFixture(t)
	in := filepath.Join(tempDir, "in.bam")
	out := filepath.Join(tempDir, "out.bam")
	writeTestBAM(t, in, header, records)

	opts := &Opts{In: in, Out: out, MinQual: 15, NoEOF: true}
	assert.NoError(t, Run(opts))

	got := readTestBAM(t, out)
	assert.Equal(t, len(records), len(got))

	byName := make(map[string][]*sam.Record)
	for _, r := range got {
		byName[r.Name] = append(byName[r.Name], r)
	}

	for _, r := range byName["lowQualPair"] {
		assert.True(t, r.Flags&sam.Duplicate != 0, "lowQualPair record should be marked duplicate")
	}
	for _, r := range byName["highQualPair"] {
		assert.False(t, r.Flags&sam.Duplicate != 0, "highQualPair record should not be marked duplicate")
	}
	for _, r := range byName["missingMate"] {
		assert.False(t, r.Flags&sam.Duplicate != 0, "a record with a missing mate is never a duplicate")
	}
	for _, r := range byName["unmapped1"] {
		assert.False(t, r.Flags&sam.Duplicate != 0)
	}

	// opts.Log was never set, so the metrics table lands next to --out.
	_, err := os.Stat(out + ".log")
	assert.NoError(t, err)
}

func TestRunRmDupsRemovesLosingPairFromOutput(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	header, records := buildFixture(t)
	in := filepath.Join(tempDir, "in.bam")
	out := filepath.Join(tempDir, "out.bam")
	writeTestBAM(t, in, header, records)

	opts := &Opts{In: in, Out: out, MinQual: 15, NoEOF: true, RmDups: true}
	assert.NoError(t, Run(opts))

	got := readTestBAM(t, out)
	assert.Equal(t, len(records)-2, len(got))
	for _, r := range got {
		assert.NotEqual(t, "lowQualPair", r.Name)
	}
}

func TestRunRejectsPreexistingDuplicateFlagWithoutForce(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	header := newTestHeader()
	chr1 := testRef(header, "chr1")
	r := newTestRecord("already", chr1, 10, sam.Duplicate, nil, 0, matchCigar)

	in := filepath.Join(tempDir, "in.bam")
	out := filepath.Join(tempDir, "out.bam")
	writeTestBAM(t, in, header, []*sam.Record{r})

	opts := &Opts{In: in, Out: out, MinQual: 15, NoEOF: true}
	assert.Error(t, Run(opts))
}

func TestRunForceClearsExistingDuplicateFlags(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	header := newTestHeader()
	chr1 := testRef(header, "chr1")
	r := newTestRecord("already", chr1, 10, sam.Duplicate, nil, 0, matchCigar)

	in := filepath.Join(tempDir, "in.bam")
	out := filepath.Join(tempDir, "out.bam")
	writeTestBAM(t, in, header, []*sam.Record{r})

	opts := &Opts{In: in, Out: out, MinQual: 15, NoEOF: true, Force: true}
	assert.NoError(t, Run(opts))

	got := readTestBAM(t, out)
	assert.Len(t, got, 1)
	assert.False(t, got[0].Flags&sam.Duplicate != 0)
}

func TestRunRejectsMissingInputPath(t *testing.T) {
	assert.Error(t, Run(&Opts{Out: "/tmp/x.bam"}))
}

func TestRunRejectsMissingOutputPath(t *testing.T) {
	assert.Error(t, Run(&Opts{In: "/tmp/x.bam"}))
}

// TestRunOneChromTreatsCrossChromosomePairAsFragments confirms that
// with --oneChrom set, a pair whose mate maps to a different
// reference is routed through the fragment table (C5) rather than
// parked in the pending-mate table (C6): it must collide and produce
// an UnpairedDups duplicate, not a MissingMate diagnostic.
func TestRunOneChromTreatsCrossChromosomePairAsFragments(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	header := newTestHeader()
	chr1 := testRef(header, "chr1")
	chr2 := testRef(header, "chr2")

	lowQualRec := newTestRecord("oneChromLow", chr1, 100, sam.Paired|sam.Read1, chr2, 50, matchCigar)
	withQual(lowQualRec, lowQual(100))
	highQualRec := newTestRecord("oneChromHigh", chr1, 100, sam.Paired|sam.Read1, chr2, 50, matchCigar)
	withQual(highQualRec, highQual(100))

	in := filepath.Join(tempDir, "in.bam")
	out := filepath.Join(tempDir, "out.bam")
	writeTestBAM(t, in, header, []*sam.Record{lowQualRec, highQualRec})

	opts := &Opts{In: in, Out: out, MinQual: 15, NoEOF: true, OneChrom: true}
	assert.NoError(t, Run(opts))

	got := readTestBAM(t, out)
	byName := make(map[string]*sam.Record)
	for _, r := range got {
		byName[r.Name] = r
	}

	// Both records carry the paired flag, so the one stored first in the
	// fragment table is kept regardless of score (fragmentReplaces).
	assert.False(t, byName["oneChromLow"].Flags&sam.Duplicate != 0)
	assert.True(t, byName["oneChromHigh"].Flags&sam.Duplicate != 0, "a later paired-flag record never displaces a stored paired-flag fragment entry")

	report, err := os.ReadFile(out + ".log")
	assert.NoError(t, err)
	var libraryName string
	var paired, properlyPaired, unmapped, reverseCount, qcFail, missingMate, unpairedDups, pairsLost int
	var pct float64
	var librarySize string
	for _, line := range strings.Split(string(report), "\n") {
		if !strings.HasPrefix(line, "lib1\t") {
			continue
		}
		n, serr := fmt.Sscanf(line, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%f\t%s",
			&libraryName, &paired, &properlyPaired, &unmapped, &reverseCount, &qcFail,
			&missingMate, &unpairedDups, &pairsLost, &pct, &librarySize)
		assert.NoError(t, serr)
		assert.Equal(t, 11, n)
	}
	assert.Equal(t, 0, missingMate, "a cross-chromosome pair under --oneChrom must never reach the missing-mate path")
	assert.Equal(t, 1, unpairedDups)
}

func TestResolveLogPathDefaultsToOutWithLogSuffix(t *testing.T) {
	assert.Equal(t, "/tmp/run.bam.log", resolveLogPath(&Opts{Out: "/tmp/run.bam"}))
}

func TestResolveLogPathHonorsExplicitOverride(t *testing.T) {
	assert.Equal(t, "/tmp/custom.metrics", resolveLogPath(&Opts{Out: "/tmp/run.bam", Log: "/tmp/custom.metrics"}))
}

func TestResolveLogPathRoutesToStderrWhenOutIsDash(t *testing.T) {
	assert.Equal(t, "", resolveLogPath(&Opts{Out: "-"}))
}
