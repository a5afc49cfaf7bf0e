// Package cli wires the catalog, relation, and query layers into REPL
// commands, adapted from the teacher's db_repl.go command-handler style.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"malhf/pkg/catalog"
	"malhf/pkg/chvec"
	"malhf/pkg/hashfn"
	"malhf/pkg/query"
	"malhf/pkg/repl"
)

// Repl builds the full set of malhf REPL commands bound to cat.
func Repl(cat *catalog.Catalog) *repl.REPL {
	r := repl.NewRepl()

	r.AddCommand("create", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandleCreate(cat, payload)
	}, "Create a relation. usage: create <relation> <nattrs> <npages> <depth> <algo> <chvec|default>")

	r.AddCommand("insert", func(payload string, _ *repl.REPLConfig) (string, error) {
		return "", HandleInsert(cat, payload)
	}, "Insert a tuple. usage: insert <relation> <attr,attr,...>")

	r.AddCommand("query", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandleQuery(cat, payload)
	}, "Partial-match query. usage: query <relation> <val|?,val|?,...>")

	r.AddCommand("select", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandleSelect(cat, payload)
	}, "Select every tuple in a relation. usage: select from <relation>")

	r.AddCommand("stats", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandleStats(cat, payload)
	}, "Print a relation's global and per-bucket stats. usage: stats <relation>")

	r.AddCommand("load", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandleLoad(cat, payload)
	}, "Bulk-insert tuples from a file, one per line. usage: load <relation> <path>")

	r.AddCommand("verify", func(payload string, _ *repl.REPLConfig) (string, error) {
		return HandleVerify(cat, payload)
	}, "Check every stored tuple still hashes to the bucket it's stored in. usage: verify <relation>")

	return r
}

// HandleCreate parses and executes a "create" command.
func HandleCreate(cat *catalog.Catalog, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 7 {
		return "", fmt.Errorf("usage: create <relation> <nattrs> <npages> <depth> <algo> <chvec|default>")
	}
	name := fields[1]
	nattrs, err := parseUint(fields[2])
	if err != nil {
		return "", fmt.Errorf("create error: nattrs: %v", err)
	}
	npages, err := parseUint(fields[3])
	if err != nil {
		return "", fmt.Errorf("create error: npages: %v", err)
	}
	depth, err := parseUint(fields[4])
	if err != nil {
		return "", fmt.Errorf("create error: depth: %v", err)
	}
	algo, err := hashfn.ParseAlgorithm(fields[5])
	if err != nil {
		return "", fmt.Errorf("create error: %v", err)
	}
	cvSpec := fields[6]
	if cvSpec == "default" {
		cvSpec = chvec.Default(nattrs).String()
	}

	if _, err := cat.Create(name, nattrs, npages, depth, cvSpec, algo); err != nil {
		return "", fmt.Errorf("create error: %v", err)
	}
	return fmt.Sprintf("relation %s created.\n", name), nil
}

// HandleInsert parses and executes an "insert" command.
func HandleInsert(cat *catalog.Catalog, payload string) error {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return fmt.Errorf("usage: insert <relation> <attr,attr,...>")
	}
	r, err := cat.Get(fields[1])
	if err != nil {
		return fmt.Errorf("insert error: %v", err)
	}
	if _, err := r.Insert(fields[2]); err != nil {
		return fmt.Errorf("insert error: %v", err)
	}
	return nil
}

// HandleQuery parses and executes a "query" command, streaming every
// matching tuple into the returned output.
func HandleQuery(cat *catalog.Catalog, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return "", fmt.Errorf("usage: query <relation> <val|?,val|?,...>")
	}
	r, err := cat.Get(fields[1])
	if err != nil {
		return "", fmt.Errorf("query error: %v", err)
	}
	q, err := query.Start(r, fields[2])
	if err != nil {
		return "", fmt.Errorf("query error: %v", err)
	}
	defer q.Close()

	var sb strings.Builder
	for {
		tup, err := q.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("query error: %v", err)
		}
		fmt.Fprintf(&sb, "%s\n", tup)
	}
	return sb.String(), nil
}

// HandleSelect runs a full wildcard scan over a relation.
func HandleSelect(cat *catalog.Catalog, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 || fields[1] != "from" {
		return "", fmt.Errorf("usage: select from <relation>")
	}
	r, err := cat.Get(fields[2])
	if err != nil {
		return "", fmt.Errorf("select error: %v", err)
	}
	pattern := strings.Repeat("?,", int(r.NAttrs()))
	pattern = strings.TrimSuffix(pattern, ",")
	return HandleQuery(cat, "query "+fields[2]+" "+pattern)
}

// HandleStats parses and executes a "stats" command.
func HandleStats(cat *catalog.Catalog, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", fmt.Errorf("usage: stats <relation>")
	}
	r, err := cat.Get(fields[1])
	if err != nil {
		return "", fmt.Errorf("stats error: %v", err)
	}
	var sb strings.Builder
	r.Stats(&sb)
	return sb.String(), nil
}

// HandleLoad bulk-inserts every line of a file as a tuple into a relation.
func HandleLoad(cat *catalog.Catalog, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return "", fmt.Errorf("usage: load <relation> <path>")
	}
	r, err := cat.Get(fields[1])
	if err != nil {
		return "", fmt.Errorf("load error: %v", err)
	}
	f, err := os.Open(fields[2])
	if err != nil {
		return "", fmt.Errorf("load error: %v", err)
	}
	defer f.Close()

	var n int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := r.Insert(line); err != nil {
			return "", fmt.Errorf("load error: tuple %d (%q): %v", n+1, line, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("load error: %v", err)
	}
	return fmt.Sprintf("loaded %d tuples into %s.\n", n, fields[1]), nil
}

// HandleVerify parses and executes a "verify" command.
func HandleVerify(cat *catalog.Catalog, payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", fmt.Errorf("usage: verify <relation>")
	}
	r, err := cat.Get(fields[1])
	if err != nil {
		return "", fmt.Errorf("verify error: %v", err)
	}
	ok, err := query.VerifyAddressing(r)
	if err != nil {
		return "", fmt.Errorf("verify error: %v", err)
	}
	if ok {
		return fmt.Sprintf("%s: every tuple addresses to its stored bucket.\n", fields[1]), nil
	}
	return fmt.Sprintf("%s: FAILED — a tuple was found in the wrong bucket.\n", fields[1]), nil
}

func parseUint(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
