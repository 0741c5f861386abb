package markduplicates

import (
	"github.com/biogo/hts/sam"
)

// defaultMinQual is the default Phred threshold for baseQualityScore,
// matching spec §4.3.
const defaultMinQual = 15

// missingQual is the sentinel byte the codec fills Qual with when the
// SAM text quality field was "*" (no qualities available).
const missingQual = 0xff

// baseQualityScore sums r's per-base Phred qualities that are >=
// minQual. r.Qual already holds raw Phred values (the codec strips
// the +33 ASCII offset during decoding). A missing quality string
// ("*", decoded as a run of the 0xff sentinel, or decoded as an empty
// slice) scores zero.
func baseQualityScore(r *sam.Record, minQual int) int {
	if len(r.Qual) == 0 || r.Qual[0] == missingQual {
		return 0
	}
	sum := 0
	for _, q := range r.Qual {
		phred := int(q)
		if phred >= minQual {
			sum += phred
		}
	}
	return sum
}

// fragmentReplaces reports whether an incoming unpaired-or-paired
// candidate should replace the stored fragment entry, per spec §4.3:
// a stored unpaired entry is replaced when the incoming record is
// paired, or when the incoming record scores strictly higher. A
// stored paired entry is never replaced by fragment-table logic
// (pairing dominates once established), and an incoming unpaired
// record that merely ties or loses on quality against a stored
// unpaired entry does not replace it.
func fragmentReplaces(storedPaired bool, storedScore int, incomingPaired bool, incomingScore int) bool {
	if storedPaired {
		return false
	}
	if incomingPaired {
		return true
	}
	return incomingScore > storedScore
}

// pairWins reports whether candidate a should be kept over candidate
// b in the paired table, per spec §4.3: higher combined score wins;
// ties are broken by the smaller first-seen ordinal.
func pairWins(aScore int, aOrdinal uint32, bScore int, bOrdinal uint32) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aOrdinal < bOrdinal
}
