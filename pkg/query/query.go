// Package query implements partial-match query evaluation over a relation:
// decomposing a query pattern into known/unknown composite-hash bits,
// enumerating the buckets a pattern could touch, and streaming matching
// tuples out one at a time.
package query

import (
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"

	"malhf/pkg/bits"
	"malhf/pkg/config"
	"malhf/pkg/hashfn"
	"malhf/pkg/page"
	"malhf/pkg/reln"
)

// Query is a lazy, finite, non-restartable cursor over the tuples matching
// a partial-match pattern. Once Next returns io.EOF it will keep doing so;
// there is no way to rewind.
type Query struct {
	rel     *reln.Relation
	pattern string

	known   bits.Bits
	unknown *bitset.BitSet // composite-hash bit positions left unconstrained by pattern
	depth   uint32         // query-local depth, possibly one more than the relation's
	start   bits.Bits      // first bucket address to visit

	curPage        int64
	isOvflow       bool
	curOffset      int64
	numVisited     int64
	curCombination uint32
	done           bool
}

// Start decomposes pattern (a comma-separated list of nattrs values, where
// "?" denotes a wildcard attribute) into known/unknown composite-hash bits
// per spec §4.6, and positions the cursor at the first bucket it must scan.
func Start(r *reln.Relation, pattern string) (*Query, error) {
	attrs, err := hashfn.SplitAttrs(pattern, r.NAttrs())
	if err != nil {
		return nil, err
	}

	cv := r.ChoiceVector()
	hashes := make([]bits.Bits, len(attrs))
	for i, a := range attrs {
		if a != "?" {
			hashes[i] = hashfn.HashAny(r.Algorithm(), []byte(a))
		}
	}

	var known bits.Bits
	unknown := bitset.New(uint(config.MaxBits))
	for i, a := range attrs {
		for j := 0; j < config.MaxChVec; j++ {
			if int(cv[j].Attr) != i {
				continue
			}
			if a == "?" {
				unknown.Set(uint(j))
			} else if bits.BitIsSet(hashes[i], int(cv[j].Bit)) {
				known = bits.SetBit(known, j)
			}
		}
	}

	depth := r.Depth()
	var mask bits.Bits
	for i := uint32(0); i < depth; i++ {
		mask = bits.SetBit(mask, int(i))
	}
	start := known & mask
	if uint32(start) < r.SplitPointer() {
		mask = bits.SetBit(mask, int(depth))
		start = known & mask
		depth++
	}

	return &Query{
		rel:     r,
		pattern: pattern,
		known:   known,
		unknown: unknown,
		depth:   depth,
		start:   start,
		curPage: int64(start),
	}, nil
}

// numUnknownInDepth counts how many of the composite-hash bit positions
// below depth are unconstrained by the pattern: only these bits select
// which bucket to visit next, since bucket addresses only ever consult the
// low `depth` (or depth+1, during the split refinement) bits.
func (q *Query) numUnknownInDepth() uint32 {
	var n uint32
	for i := uint32(0); i < q.depth; i++ {
		if q.unknown.Test(uint(i)) {
			n++
		}
	}
	return n
}

// nextMask builds the composite-bit mask for combination counter c by
// walking the unknown set's bit positions in ascending order and assigning
// them, one by one, the corresponding bit of c.
func (q *Query) nextMask(numUnknown uint32, c uint32) bits.Bits {
	var mask bits.Bits
	pos := uint(0)
	for i := uint32(0); i < numUnknown; i++ {
		next, ok := q.unknown.NextSet(pos)
		if !ok {
			break
		}
		if c&(1<<i) != 0 {
			mask = bits.SetBit(mask, int(next))
		}
		pos = next + 1
	}
	return mask
}

func tupleMatch(pattern, tuple string, nattrs uint32) bool {
	patAttrs, err := hashfn.SplitAttrs(pattern, nattrs)
	if err != nil {
		return false
	}
	tupAttrs, err := hashfn.SplitAttrs(tuple, nattrs)
	if err != nil {
		return false
	}
	for i, p := range patAttrs {
		if p != "?" && p != tupAttrs[i] {
			return false
		}
	}
	return true
}

func (q *Query) currentPager() *page.Pager {
	if q.isOvflow {
		return q.rel.OvflowPager()
	}
	return q.rel.DataPager()
}

func (q *Query) resetTo(ovflow bool, pageID int64) {
	q.isOvflow = ovflow
	q.curPage = pageID
	q.curOffset = 0
	q.numVisited = 0
}

// Next returns the next matching tuple, or io.EOF once the scan is
// exhausted. It is not safe to call concurrently.
func (q *Query) Next() (string, error) {
	if q.done {
		return "", io.EOF
	}
	for {
		pg, err := q.currentPager().Get(q.curPage)
		if err != nil {
			return "", fmt.Errorf("query: reading page %d (ovflow=%v): %w", q.curPage, q.isOvflow, err)
		}
		nt := pg.NTuples()

		if q.numVisited < nt {
			for q.numVisited < nt {
				tup, next := pg.ReadAt(q.curOffset)
				q.curOffset = next
				q.numVisited++
				if tupleMatch(q.pattern, tup, q.rel.NAttrs()) {
					return tup, nil
				}
			}
			continue
		}

		if pg.Ovflow() == page.NoPage {
			numUnknown := q.numUnknownInDepth()
			total := uint32(1) << numUnknown
			q.curCombination++
			if q.curCombination >= total {
				q.done = true
				return "", io.EOF
			}
			mask := q.nextMask(numUnknown, q.curCombination)
			next := int64(q.start | mask)
			if next >= int64(q.rel.NPages()) {
				q.done = true
				return "", io.EOF
			}
			q.resetTo(false, next)
			continue
		}

		q.resetTo(true, pg.Ovflow())
	}
}

// Close marks the cursor exhausted. Query holds no resources of its own
// beyond the relation's already-open pagers, so Close never returns an
// error; it exists for API symmetry with a scan's lifecycle.
func (q *Query) Close() error {
	q.done = true
	return nil
}
