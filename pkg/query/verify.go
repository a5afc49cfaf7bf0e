package query

import (
	"malhf/pkg/hashfn"
	"malhf/pkg/page"
	"malhf/pkg/reln"
)

// VerifyAddressing checks that every tuple stored in r currently hashes to
// the bucket it is physically stored in (primary page or one of its
// overflow pages), grounded on the teacher's hash.IsHash bucket-consistency
// check. It returns false (with no error) on the first tuple found
// misplaced, rather than reporting it as an error, so callers can treat the
// boolean as the actual verdict.
func VerifyAddressing(r *reln.Relation) (bool, error) {
	for pid := int64(0); pid < int64(r.NPages()); pid++ {
		pg, err := r.DataPager().Get(pid)
		if err != nil {
			return false, err
		}
		tuples := append([]string{}, pg.Tuples()...)
		ov := pg.Ovflow()
		for ov != page.NoPage {
			ovpg, err := r.OvflowPager().Get(ov)
			if err != nil {
				return false, err
			}
			tuples = append(tuples, ovpg.Tuples()...)
			ov = ovpg.Ovflow()
		}

		for _, tup := range tuples {
			attrs, err := hashfn.SplitAttrs(tup, r.NAttrs())
			if err != nil {
				return false, err
			}
			h := hashfn.TupleHash(r.Algorithm(), r.ChoiceVector(), toAttrBytes(attrs))
			if r.Address(h) != pid {
				return false, nil
			}
		}
	}
	return true, nil
}

func toAttrBytes(attrs []string) [][]byte {
	out := make([][]byte, len(attrs))
	for i, a := range attrs {
		out[i] = []byte(a)
	}
	return out
}
