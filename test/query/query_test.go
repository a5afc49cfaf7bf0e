package query_test

import (
	"fmt"
	"io"
	"testing"

	"malhf/pkg/chvec"
	"malhf/pkg/hashfn"
	"malhf/pkg/query"
	"malhf/pkg/reln"
	"malhf/test/utils"
)

func newTestRelation(t *testing.T, nattrs uint32) *reln.Relation {
	t.Helper()
	cv := chvec.Default(nattrs).String()
	r, err := reln.New(utils.TempRelationPath(t), nattrs, 1, 0, cv, hashfn.XXHash)
	if err != nil {
		t.Fatalf("reln.New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func drain(t *testing.T, q *query.Query) []string {
	t.Helper()
	var got []string
	for {
		tup, err := q.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, tup)
	}
	return got
}

func TestExactMatchFindsInsertedTuple(t *testing.T) {
	r := newTestRelation(t, 2)
	if _, err := r.Insert("apple,red"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := r.Insert("pear,green"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q, err := query.Start(r, "apple,red")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := drain(t, q)
	if len(got) != 1 || got[0] != "apple,red" {
		t.Errorf("unexpected results: %v", got)
	}
}

func TestMismatchedAttributeFindsNothing(t *testing.T) {
	r := newTestRelation(t, 2)
	if _, err := r.Insert("apple,red"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q, err := query.Start(r, "apple,green")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := drain(t, q); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestWildcardMatchesEverySharingBucket(t *testing.T) {
	r := newTestRelation(t, 2)
	tuples := []string{"apple,red", "pear,green", "plum,purple"}
	for _, tup := range tuples {
		if _, err := r.Insert(tup); err != nil {
			t.Fatalf("Insert(%q): %v", tup, err)
		}
	}

	q, err := query.Start(r, "?,?")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := drain(t, q)
	if len(got) != len(tuples) {
		t.Fatalf("expected all %d tuples back, got %v", len(tuples), got)
	}
	seen := map[string]bool{}
	for _, tup := range got {
		seen[tup] = true
	}
	for _, tup := range tuples {
		if !seen[tup] {
			t.Errorf("missing tuple %q from wildcard scan", tup)
		}
	}
}

func TestQueryAfterSplitStillFindsMatches(t *testing.T) {
	// nattrs=20 gives SplitThreshold == 5, so the fifth insert of the same
	// tuple forces a split before the query runs.
	r := newTestRelation(t, 20)
	rest := make([]string, 19)
	for i := range rest {
		rest[i] = "v0"
	}
	tuple := "target," + joinRest(rest)
	for i := 0; i < 5; i++ {
		if _, err := r.Insert(tuple); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}

	pattern := "target," + wildcardRest(19)
	q, err := query.Start(r, pattern)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := drain(t, q)
	if len(got) != 5 {
		t.Errorf("expected 5 matches after split, got %d: %v", len(got), got)
	}
}

func TestVerifyAddressingPassesAfterSplits(t *testing.T) {
	r := newTestRelation(t, 20)
	rest := make([]string, 19)
	for i := range rest {
		rest[i] = "v0"
	}
	for i := 0; i < 25; i++ {
		tuple := fmt.Sprintf("target%d,%s", i, joinRest(rest))
		if _, err := r.Insert(tuple); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}

	ok, err := query.VerifyAddressing(r)
	if err != nil {
		t.Fatalf("VerifyAddressing: %v", err)
	}
	if !ok {
		t.Error("expected every tuple to address to its stored bucket")
	}
}

func joinRest(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func wildcardRest(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return joinRest(parts)
}
