package markduplicates

import (
	"github.com/biogo/hts/sam"
)

// orientation is the strand component of a fingerprint key.
type orientation uint8

const (
	forward orientation = iota
	reverse
)

// fingerprintKey is a totally ordered, comparable identity for a
// read's 5' alignment anchor: library, reference, strand, and the
// unclipped 5' coordinate. Two records collide iff their keys are
// equal.
//
// compare() orders fields as (referenceID, anchorPos, orientation,
// libraryID) rather than the (library, reference, orientation,
// anchor) listing order, so that the fragment and paired tables
// (backed by biogo/store/llrb.Tree) stay sorted in the same
// reference/position order the input stream advances in. That is
// what lets the sweep controller repeatedly drain the tree's Min()
// against the current coordinate instead of scanning every library's
// subtree separately. Equality is unaffected by field order: two keys
// compare equal iff all four fields match, exactly as stated for the
// logical fingerprint.
type fingerprintKey struct {
	libraryID   uint8
	referenceID int32
	orient      orientation
	anchorPos   int32
}

// emptyFingerprintKey is a "no key observed yet" sentinel (reference
// -1, smallest anchor). No code in this package refers to it: the
// driver seeds its last reference/position with plain -1 values
// instead. It is never inserted into a table: unmapped
// records (the only ones that could carry referenceID -1) never reach
// C5/C6/C7 per §4.1.
var emptyFingerprintKey = fingerprintKey{referenceID: -1, anchorPos: minAnchorPos}

const minAnchorPos = int32(-1 << 31)

// compare returns <0, 0, >0 as k sorts before, equal to, or after
// other, in (referenceID, anchorPos, orientation, libraryID) order.
func (k fingerprintKey) compare(other fingerprintKey) int {
	if k.referenceID != other.referenceID {
		return int(k.referenceID) - int(other.referenceID)
	}
	if k.anchorPos != other.anchorPos {
		return int(k.anchorPos) - int(other.anchorPos)
	}
	if k.orient != other.orient {
		return int(k.orient) - int(other.orient)
	}
	return int(k.libraryID) - int(other.libraryID)
}

// precedes reports whether k's (reference, position) component lies
// strictly before the given (reference, position), independent of
// orientation/library. The sweep controller uses this to decide
// whether a table entry has been passed by the input cursor.
func (k fingerprintKey) precedes(referenceID, pos int32) bool {
	if k.referenceID != referenceID {
		return k.referenceID < referenceID
	}
	return k.anchorPos < pos
}

// pairKey identifies a duplicate group among read pairs: the
// fingerprint of whichever mate was seen first in the stream (left),
// and the fingerprint of the other mate (right).
type pairKey struct {
	left, right fingerprintKey
}

func (k pairKey) compare(other pairKey) int {
	if c := k.left.compare(other.left); c != 0 {
		return c
	}
	return k.right.compare(other.right)
}

// precedes reports whether k's left side lies strictly before the
// given (reference, position), mirroring fingerprintKey.precedes for
// the sweep controller.
func (k pairKey) precedes(referenceID, pos int32) bool {
	return k.left.precedes(referenceID, pos)
}

// referenceConsumed returns the number of reference bases the CIGAR
// string consumes.
func referenceConsumed(cigar sam.Cigar) int {
	n := 0
	for _, op := range cigar {
		n += op.Len() * op.Type().Consumes().Reference
	}
	return n
}

// leadingSoftClip returns the length of a CIGAR's leading soft-clip
// operation, or 0 if the CIGAR does not start with one.
func leadingSoftClip(cigar sam.Cigar) int {
	if len(cigar) == 0 || cigar[0].Type() != sam.CigarSoftClipped {
		return 0
	}
	return cigar[0].Len()
}

// trailingSoftClip returns the length of a CIGAR's trailing soft-clip
// operation, or 0 if the CIGAR does not end with one.
func trailingSoftClip(cigar sam.Cigar) int {
	if len(cigar) == 0 {
		return 0
	}
	last := cigar[len(cigar)-1]
	if last.Type() != sam.CigarSoftClipped {
		return 0
	}
	return last.Len()
}

// unclippedFivePrimePosition returns the reference coordinate of the
// 5' end of the sequenced fragment, before soft-clipping, per spec
// §4.1: for a forward-strand read this is the leftmost aligned
// position minus any leading soft-clip; for a reverse-strand read it
// is the rightmost aligned position plus any trailing soft-clip.
func unclippedFivePrimePosition(r *sam.Record) int {
	if r.Flags&sam.Reverse == 0 {
		return r.Pos - leadingSoftClip(r.Cigar)
	}
	rightmost := r.Pos + referenceConsumed(r.Cigar) - 1
	return rightmost + trailingSoftClip(r.Cigar)
}

// fingerprintOf computes the fingerprint key of a mapped record given
// its already-resolved library id. The caller must not call this on
// an unmapped record (spec §4.1: those never reach C5/C6/C7).
func fingerprintOf(r *sam.Record, libraryID uint8) fingerprintKey {
	var o orientation
	if r.Flags&sam.Reverse != 0 {
		o = reverse
	}
	return fingerprintKey{
		libraryID:   libraryID,
		referenceID: int32(r.Ref.ID()),
		orient:      o,
		anchorPos:   int32(unclippedFivePrimePosition(r)),
	}
}
