package markduplicates

import (
	"time"

	"github.com/biogo/hts/sam"
)

// newTestHeader builds a two-reference header with a single read
// group belonging to library "lib1", matching the fixture style the
// teacher's own markduplicates tests build headers with.
func newTestHeader() *sam.Header {
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		panic(err)
	}
	for _, name := range []string{"chr1", "chr2"} {
		ref, err := sam.NewReference(name, "", "", 1<<30, nil, nil)
		if err != nil {
			panic(err)
		}
		if err := h.AddReference(ref); err != nil {
			panic(err)
		}
	}
	rg, err := sam.NewReadGroup("rg1", "", "", "lib1", "", "", "", "", "", "", time.Time{}, 0)
	if err != nil {
		panic(err)
	}
	if err := h.AddReadGroup(rg); err != nil {
		panic(err)
	}
	return h
}

func testRef(h *sam.Header, name string) *sam.Reference {
	for _, r := range h.Refs() {
		if r.Name() == name {
			return r
		}
	}
	panic("unknown reference " + name)
}

var matchCigar = sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 100)}

// newTestRecord builds a mapped record carrying read group "rg1",
// mirroring the teacher's NewRecord helper in testutils.go.
func newTestRecord(name string, ref *sam.Reference, pos int, flags sam.Flags, mateRef *sam.Reference, matePos int, cigar sam.Cigar) *sam.Record {
	r := &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     pos,
		MateRef: mateRef,
		MatePos: matePos,
		Flags:   flags,
		Cigar:   cigar,
	}
	rg, err := sam.NewAux(sam.NewTag("RG"), "rg1")
	if err != nil {
		panic(err)
	}
	r.AuxFields = append(r.AuxFields, rg)
	return r
}

func withQual(r *sam.Record, qual []byte) *sam.Record {
	r.Seq = sam.NewSeq(make([]byte, len(qual)))
	r.Qual = qual
	return r
}

func highQual(n int) []byte {
	q := make([]byte, n)
	for i := range q {
		q[i] = 40
	}
	return q
}
