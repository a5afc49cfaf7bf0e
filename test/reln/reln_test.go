package reln_test

import (
	"fmt"
	"strings"
	"testing"

	"malhf/pkg/chvec"
	"malhf/pkg/hashfn"
	"malhf/pkg/page"
	"malhf/pkg/reln"
	"malhf/test/utils"
)

func tempRelName(t *testing.T) string {
	return utils.TempRelationPath(t)
}

func cv2() string {
	// alternating attr:bit choice vector for a 2-attribute relation.
	parts := make([]string, 32)
	for j := 0; j < 32; j++ {
		parts[j] = fmt.Sprintf("%d:%d", j%2, j/2)
	}
	return strings.Join(parts, ",")
}

func countAllTuples(t *testing.T, r *reln.Relation) int {
	t.Helper()
	total := 0
	for pid := int64(0); pid < int64(r.NPages()); pid++ {
		pg, err := r.DataPager().Get(pid)
		if err != nil {
			t.Fatalf("Get(%d): %v", pid, err)
		}
		total += len(pg.Tuples())
		ov := pg.Ovflow()
		for ov != page.NoPage {
			ovpg, err := r.OvflowPager().Get(ov)
			if err != nil {
				t.Fatalf("ovflow Get(%d): %v", ov, err)
			}
			total += len(ovpg.Tuples())
			ov = ovpg.Ovflow()
		}
	}
	return total
}

func TestNewRejectsDuplicateName(t *testing.T) {
	name := tempRelName(t)
	r, err := reln.New(name, 2, 1, 0, cv2(), hashfn.XXHash)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	if _, err := reln.New(name, 2, 1, 0, cv2(), hashfn.XXHash); err != reln.ErrRelationExists {
		t.Errorf("expected ErrRelationExists, got %v", err)
	}
}

func TestOpenMissingRelationFails(t *testing.T) {
	if _, err := reln.Open(tempRelName(t), "r"); err != reln.ErrNoSuchRelation {
		t.Errorf("expected ErrNoSuchRelation, got %v", err)
	}
}

func TestCreateCloseReopenPreservesHeader(t *testing.T) {
	name := tempRelName(t)
	r, err := reln.New(name, 2, 1, 0, cv2(), hashfn.Murmur3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Insert("apple,red"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := reln.Open(name, "w")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	if reopened.NAttrs() != 2 {
		t.Errorf("NAttrs: got %d want 2", reopened.NAttrs())
	}
	if reopened.NTuples() != 1 {
		t.Errorf("NTuples: got %d want 1", reopened.NTuples())
	}
	if reopened.Algorithm() != hashfn.Murmur3 {
		t.Errorf("Algorithm: got %v want Murmur3", reopened.Algorithm())
	}
	want, err := chvec.Parse(2, cv2())
	if err != nil {
		t.Fatalf("chvec.Parse: %v", err)
	}
	if reopened.ChoiceVector().String() != want.String() {
		t.Errorf("choice vector did not round-trip")
	}
}

func TestInsertRejectsMalformedTuple(t *testing.T) {
	r, err := reln.New(tempRelName(t), 2, 1, 0, cv2(), hashfn.XXHash)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	if _, err := r.Insert("onlyoneattr"); err == nil {
		t.Error("expected error for malformed tuple")
	}
}

func TestInsertRejectsOversizedTuple(t *testing.T) {
	r, err := reln.New(tempRelName(t), 2, 1, 0, cv2(), hashfn.XXHash)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	huge := strings.Repeat("x", int(page.BodySize)+10)
	if _, err := r.Insert(huge + ",y"); err != reln.ErrTupleTooLarge {
		t.Errorf("expected ErrTupleTooLarge, got %v", err)
	}
	if r.NTuples() != 0 {
		t.Errorf("oversized insert must not mutate ntups, got %d", r.NTuples())
	}
}

func TestOverflowChainGrowsWithManyTuples(t *testing.T) {
	// nattrs=200 keeps SplitThreshold at 0 (1024/(10*200)==0), so no
	// automatic split fires and we can observe overflow growth in isolation.
	nattrs := uint32(200)
	cv := chvec.Default(nattrs).String()
	r, err := reln.New(tempRelName(t), nattrs, 1, 0, cv, hashfn.XXHash)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	attrs := make([]string, nattrs)
	for i := range attrs {
		attrs[i] = fmt.Sprintf("v%d", i)
	}
	tuple := strings.Join(attrs, ",")

	const n = 40
	for i := 0; i < n; i++ {
		if _, err := r.Insert(tuple); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}
	if r.NTuples() != n {
		t.Fatalf("NTuples: got %d want %d", r.NTuples(), n)
	}
	if got := countAllTuples(t, r); got != n {
		t.Fatalf("countAllTuples: got %d want %d", got, n)
	}

	pg, err := r.DataPager().Get(0)
	if err != nil {
		t.Fatalf("Get(0): %v", err)
	}
	if pg.Ovflow() == page.NoPage {
		t.Error("expected an overflow chain to have formed")
	}
}

func TestSplitPreservesTuplesAndInvariant(t *testing.T) {
	// nattrs=20 gives SplitThreshold == 1024/200 == 5.
	nattrs := uint32(20)
	cv := chvec.Default(nattrs).String()
	r, err := reln.New(tempRelName(t), nattrs, 1, 0, cv, hashfn.XXHash)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	const n = 5
	for i := 0; i < n; i++ {
		attrs := make([]string, nattrs)
		for j := range attrs {
			attrs[j] = fmt.Sprintf("v%d-%d", i, j)
		}
		if _, err := r.Insert(strings.Join(attrs, ",")); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}

	if r.NTuples() != n {
		t.Fatalf("NTuples: got %d want %d", r.NTuples(), n)
	}
	wantPages := uint32(1)<<r.Depth() + r.SplitPointer()
	if r.NPages() != wantPages {
		t.Errorf("invariant broken: npages=%d != 2^d+sp=%d", r.NPages(), wantPages)
	}
	if got := countAllTuples(t, r); got != n {
		t.Errorf("split lost or duplicated tuples: counted %d want %d", got, n)
	}
}

func TestBulkInsertPreservesInvariantAndTupleCount(t *testing.T) {
	nattrs := uint32(2)
	r, err := reln.New(tempRelName(t), nattrs, 1, 0, cv2(), hashfn.XXHash)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	const n = 200
	tuples := utils.GenerateRandomTuples(nattrs, n)
	for _, tup := range tuples {
		if _, err := r.Insert(tup); err != nil {
			t.Fatalf("Insert(%q): %v", tup, err)
		}
	}

	if r.NTuples() != n {
		t.Fatalf("NTuples: got %d want %d", r.NTuples(), n)
	}
	wantPages := uint32(1)<<r.Depth() + r.SplitPointer()
	if r.NPages() != wantPages {
		t.Errorf("invariant broken: npages=%d != 2^d+sp=%d", r.NPages(), wantPages)
	}
	if got := countAllTuples(t, r); got != n {
		t.Errorf("bulk insert lost or duplicated tuples: counted %d want %d", got, n)
	}
}
