package markduplicates

import (
	"bytes"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
)

// bgzfEOFMarker is the 28-byte empty BGZF block every well-formed BAM
// file is terminated with, letting a reader distinguish a clean EOF
// from mid-stream truncation. --noeof (spec.md §6) skips this check.
var bgzfEOFMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// checkTrailingEOFBlock reports an error when path does not end in
// the BGZF EOF marker, mirroring the HasEOF check the rest of the htslib
// ecosystem performs before trusting a BAM file is complete.
func checkTrailingEOFBlock(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.E(err, "checking trailing EOF block of ", path)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return errors.E(err, "stat ", path)
	}
	if info.Size() < int64(len(bgzfEOFMarker)) {
		return errors.E(errors.Precondition, path, " is too short to contain a BGZF EOF block")
	}
	tail := make([]byte, len(bgzfEOFMarker))
	if _, err := f.ReadAt(tail, info.Size()-int64(len(bgzfEOFMarker))); err != nil {
		return errors.E(err, "reading trailing bytes of ", path)
	}
	if !bytes.Equal(tail, bgzfEOFMarker) {
		return errors.E(errors.Precondition, path, " is missing its trailing BGZF EOF block (use --noeof to skip this check)")
	}
	return nil
}

// codecReader is the "external codec" of spec.md §6: it wraps the
// third-party BAM reader, decodes record views, and enforces
// setSortedValidation(COORDINATE) explicitly, since biogo/hts does
// not expose that validation mode itself.
type codecReader struct {
	f   *os.File
	bam *bam.Reader

	lastRef int32
	lastPos int
	started bool
}

// openInput opens path for reading and decodes its header. readers is
// the BAM decompression concurrency passed through to
// bam.NewReader; 0 lets it default to GOMAXPROCS.
func openInput(path string, readers int) (*codecReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(errors.Resource, err, "opening input ", path)
	}
	br, err := bam.NewReader(f, readers)
	if err != nil {
		f.Close()
		return nil, errors.E(err, "decoding header of ", path)
	}
	return &codecReader{f: f, bam: br, lastRef: -1, lastPos: -1}, nil
}

func (c *codecReader) header() *sam.Header { return c.bam.Header() }

// read returns the next record, validating that the stream is sorted
// by ascending coordinate as it goes (spec.md §6's
// setSortedValidation(COORDINATE)). io.EOF is returned unwrapped at
// end of stream so callers can use it the same way they would with a
// bare bam.Reader.
//
// biogo/hts's decoder always allocates a fresh sam.Record per call, so
// read copies the decoded fields onto a buffer drawn from pool rather
// than handing the fresh allocation straight to the caller: the
// pool's bookkeeping would otherwise never see an acquire, and its
// free list would grow for the life of the process.
func (c *codecReader) read(pool *recordPool) (*sam.Record, error) {
	decoded, err := c.bam.Read()
	if err != nil {
		return nil, err
	}
	ref := int32(-1)
	if decoded.Ref != nil {
		ref = int32(decoded.Ref.ID())
	}
	if c.started {
		if ref < c.lastRef || (ref == c.lastRef && decoded.Pos < c.lastPos) {
			return nil, errors.E(errors.Precondition, "input is not coordinate-sorted: record ", decoded.Name,
				" at (", ref, ",", decoded.Pos, ") follows (", c.lastRef, ",", c.lastPos, ")")
		}
	}
	c.started = true
	c.lastRef, c.lastPos = ref, decoded.Pos

	r := pool.acquire()
	*r = *decoded
	return r, nil
}

func (c *codecReader) close() error {
	berr := c.bam.Close()
	ferr := c.f.Close()
	if berr != nil {
		return errors.E(berr, "closing bam reader")
	}
	if ferr != nil {
		return errors.E(ferr, "closing input file")
	}
	return nil
}

// codecWriter wraps the third-party BAM writer.
type codecWriter struct {
	f   *os.File
	bam *bam.Writer
}

// openOutput creates path for writing, serializing header immediately
// (bam.NewWriter writes the header as part of construction). writers
// mirrors openInput's concurrency knob.
func openOutput(path string, header *sam.Header, writers int) (*codecWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.E(errors.Resource, err, "creating output ", path)
	}
	bw, err := bam.NewWriter(f, header, writers)
	if err != nil {
		f.Close()
		return nil, errors.E(err, "writing header to ", path)
	}
	return &codecWriter{f: f, bam: bw}, nil
}

func (c *codecWriter) write(r *sam.Record) error {
	if err := c.bam.Write(r); err != nil {
		return errors.E(err, "writing record ", r.Name)
	}
	return nil
}

func (c *codecWriter) close() error {
	berr := c.bam.Close()
	ferr := c.f.Close()
	if berr != nil {
		return errors.E(berr, "closing bam writer")
	}
	if ferr != nil {
		return errors.E(ferr, "closing output file")
	}
	return nil
}
