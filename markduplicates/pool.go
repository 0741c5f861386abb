package markduplicates

import (
	"github.com/biogo/hts/sam"
)

// recordPool is a free-list of decoded record buffers, adapted from
// the teacher's sharded, lock-free FreePool: spec §5 makes this
// engine strictly single-threaded, so the power-of-two load balancing
// and per-P sharding that design needs to scale across cores buys
// nothing here. What survives is the core idea: acquire() recycles a
// buffer instead of allocating, release() returns it once the engine
// is done with it, and every record in flight is owned by exactly one
// of the pool, the in-flight tables (C5/C6/C7), or the output writer
// - never more than one at a time. Unlike the teacher's own decoder,
// biogo/hts/bam.Reader cannot decode directly into a caller-supplied
// buffer, so codecReader.read copies each freshly-decoded record onto
// an acquired buffer immediately.
type recordPool struct {
	free []*sam.Record
}

func newRecordPool() *recordPool {
	return &recordPool{}
}

// acquire returns a zeroed record buffer, reusing one from the free
// list when available.
func (p *recordPool) acquire() *sam.Record {
	n := len(p.free)
	if n == 0 {
		return &sam.Record{}
	}
	r := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	*r = sam.Record{}
	return r
}

// release returns r to the free list. The caller must not retain any
// reference to r afterward; a double release is a bug and will
// corrupt a future acquire().
func (p *recordPool) release(r *sam.Record) {
	if r == nil {
		panic("markduplicates: release(nil)")
	}
	p.free = append(p.free, r)
}
