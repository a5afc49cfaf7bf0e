// Command malhfload sequentially replays a file of REPL commands against a
// malhf data directory, then optionally verifies every relation's
// npages == 2^depth + sp invariant. Unlike the teacher's goroutine-driven
// stress client, replay is single-threaded: multi-attribute linear-hashed
// files support no concurrent writers (see DESIGN.md).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"malhf/pkg/catalog"
	"malhf/pkg/cli"
)

func verify(cat *catalog.Catalog) bool {
	ok := true
	for name, r := range cat.Relations() {
		want := uint32(1)<<r.Depth() + r.SplitPointer()
		if r.NPages() != want {
			fmt.Printf("FAIL %s: npages=%d want 2^d+sp=%d\n", name, r.NPages(), want)
			ok = false
			continue
		}
		fmt.Printf("PASS %s: npages=%d ntuples=%d depth=%d sp=%d\n",
			name, r.NPages(), r.NTuples(), r.Depth(), r.SplitPointer())
	}
	return ok
}

func main() {
	dbFlag := flag.String("db", "data/", "data folder")
	workloadFlag := flag.String("workload", "", "workload file of REPL commands (required)")
	verifyFlag := flag.Bool("verify", false, "verify every relation's linear-hashing invariant after loading")
	flag.Parse()

	if *workloadFlag == "" {
		fmt.Println("must specify -workload <file>")
		os.Exit(1)
	}

	cat, err := catalog.Open(*dbFlag)
	if err != nil {
		panic(err)
	}
	defer cat.Close()

	workload, err := os.Open(*workloadFlag)
	if err != nil {
		panic(err)
	}
	defer workload.Close()

	r := cli.Repl(cat)
	r.Run(uuid.New(), "", workload, os.Stdout)

	if *verifyFlag && !verify(cat) {
		os.Exit(1)
	}
}
