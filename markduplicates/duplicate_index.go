package markduplicates

import "sort"

// duplicateIndex is C9: an append-only list of the input ordinals of
// every record chosen as a duplicate during pass 1. It is sorted once
// at EOF and then walked in lockstep with pass 2's re-read of the
// input.
type duplicateIndex struct {
	ordinals []uint32
	sorted   bool
}

func (d *duplicateIndex) add(ordinal uint32) {
	d.ordinals = append(d.ordinals, ordinal)
	d.sorted = false
}

func (d *duplicateIndex) len() int { return len(d.ordinals) }

// sortAscending orders the index ascending. Must be called exactly once,
// after pass 1 reaches EOF and before pass 2 begins consulting it.
func (d *duplicateIndex) sortAscending() {
	sort.Slice(d.ordinals, func(i, j int) bool { return d.ordinals[i] < d.ordinals[j] })
	d.sorted = true
}

// cursor walks a sorted duplicateIndex in lockstep with pass 2's
// ascending stream of ordinals.
type duplicateIndexCursor struct {
	index *duplicateIndex
	next  int
}

func (d *duplicateIndex) newCursor() *duplicateIndexCursor {
	if !d.sorted {
		panic("markduplicates: duplicateIndex consulted before sortAscending")
	}
	return &duplicateIndexCursor{index: d}
}

// isDuplicate reports whether ordinal is the next pending value in
// the index, consuming it if so. Pass 2 calls this with strictly
// increasing ordinals, matching input order, so each index entry is
// consulted exactly once.
func (c *duplicateIndexCursor) isDuplicate(ordinal uint32) bool {
	if c.next >= len(c.index.ordinals) {
		return false
	}
	if c.index.ordinals[c.next] != ordinal {
		return false
	}
	c.next++
	return true
}
