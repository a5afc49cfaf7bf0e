// Command malhf is the interactive REPL for creating, loading, and
// partial-match querying multi-attribute linear-hashed relations.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"malhf/pkg/catalog"
	"malhf/pkg/cli"
	"malhf/pkg/config"
)

func setupCloseHandler(cat *catalog.Catalog) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("closehandler invoked")
		cat.Close()
		os.Exit(0)
	}()
}

func main() {
	promptFlag := flag.Bool("c", true, "use prompt?")
	dbFlag := flag.String("db", "data/", "data folder")
	flag.Parse()

	cat, err := catalog.Open(*dbFlag)
	if err != nil {
		panic(err)
	}
	defer cat.Close()
	setupCloseHandler(cat)

	prompt := config.GetPrompt(*promptFlag)
	r := cli.Repl(cat)
	r.Run(uuid.New(), prompt, nil, nil)
}
