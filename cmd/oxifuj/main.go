// Command oxifuj is the CLI surface of §6.6: serve, serve-read-only,
// load, dump, query, update, backup, optimize, convert, with the
// specified exit codes (0 success, 1 usage, 2 runtime, 3 data error).
//
// Grounded in the teacher's cmd/trigo/main.go: a minimal os.Args switch
// per subcommand, log.Printf/log.Fatalf for diagnostics, no config-file
// framework, matching the teacher's minimalism (SPEC_FULL.md's AMBIENT
// STACK section).
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	oxifuj "github.com/aleksaelezovic/oxifuj"
	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/results"
)

const (
	exitSuccess = 0
	exitUsage   = 1
	exitRuntime = 2
	exitData    = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return exitUsage
	}
	switch args[0] {
	case "serve":
		return cmdServe(args[1:], true)
	case "serve-read-only":
		return cmdServe(args[1:], false)
	case "load":
		return cmdLoad(args[1:])
	case "dump":
		return cmdDump(args[1:])
	case "query":
		return cmdQuery(args[1:])
	case "update":
		return cmdUpdate(args[1:])
	case "backup":
		return cmdBackup(args[1:])
	case "optimize":
		return cmdOptimize(args[1:])
	case "convert":
		return cmdConvert(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "oxifuj: unknown command %q\n", args[0])
		usage()
		return exitUsage
	}
}

func usage() {
	fmt.Println("Usage: oxifuj <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  serve <path> [addr]            - start a read-write SPARQL endpoint")
	fmt.Println("  serve-read-only <path> [addr]  - start a read-only SPARQL endpoint")
	fmt.Println("  load <path> <file.nq>          - bulk-load N-Quads into the store")
	fmt.Println("  dump <path> [file.nq]          - write every quad as N-Quads")
	fmt.Println("  query <path> <query>           - run a SPARQL query and print results")
	fmt.Println("  update <path> <update>         - run a SPARQL Update")
	fmt.Println("  backup <path> <dst>            - copy a closed store directory")
	fmt.Println("  optimize <path>                - run the underlying LSM's compaction")
	fmt.Println("  convert <in.nq> <out.nq>       - round-trip N-Quads through the parser")
}

func cmdLoad(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: oxifuj load <path> <file.nq>")
		return exitUsage
	}
	store, err := oxifuj.Open(args[0])
	if err != nil {
		log.Println(err)
		return exitRuntime
	}
	defer store.Close()

	f, err := os.Open(args[1])
	if err != nil {
		log.Println(err)
		return exitData
	}
	defer f.Close()

	stats, err := store.Load(context.Background(), f)
	if err != nil {
		log.Println(err)
		if qerror.Is(err, qerror.KindParseError) {
			return exitData
		}
		return exitRuntime
	}
	fmt.Printf("loaded %d quads across %d graphs\n", stats.QuadsLoaded, stats.GraphsTouched)
	return exitSuccess
}

func cmdDump(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: oxifuj dump <path> [file.nq]")
		return exitUsage
	}
	store, err := oxifuj.OpenReadOnly(args[0])
	if err != nil {
		log.Println(err)
		return exitRuntime
	}
	defer store.Close()

	out := os.Stdout
	if len(args) >= 2 {
		f, err := os.Create(args[1])
		if err != nil {
			log.Println(err)
			return exitRuntime
		}
		defer f.Close()
		out = f
	}
	if err := store.Dump(context.Background(), out, nil); err != nil {
		log.Println(err)
		return exitRuntime
	}
	return exitSuccess
}

func cmdQuery(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: oxifuj query <path> <sparql>")
		return exitUsage
	}
	store, err := oxifuj.OpenReadOnly(args[0])
	if err != nil {
		log.Println(err)
		return exitRuntime
	}
	defer store.Close()

	res, err := store.Query(context.Background(), args[1], oxifuj.QueryOptions{})
	if err != nil {
		log.Println(err)
		if qerror.Is(err, qerror.KindParseError) {
			return exitData
		}
		return exitRuntime
	}
	defer res.Close()

	switch res.Kind {
	case oxifuj.ResultBoolean:
		fmt.Println(res.Boolean)
	case oxifuj.ResultGraph:
		for _, t := range res.Graph {
			fmt.Println(t.String())
		}
	case oxifuj.ResultSolutions:
		body, err := results.WriteSelectJSON(cancel.New(context.Background()), res.Solutions)
		if err != nil {
			log.Println(err)
			return exitRuntime
		}
		os.Stdout.Write(body)
		fmt.Println()
	}
	return exitSuccess
}

func cmdUpdate(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: oxifuj update <path> <sparql-update>")
		return exitUsage
	}
	store, err := oxifuj.Open(args[0])
	if err != nil {
		log.Println(err)
		return exitRuntime
	}
	defer store.Close()

	if err := store.Update(context.Background(), args[1], nil); err != nil {
		log.Println(err)
		if qerror.Is(err, qerror.KindParseError) {
			return exitData
		}
		return exitRuntime
	}
	return exitSuccess
}

func cmdBackup(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: oxifuj backup <path> <dst>")
		return exitUsage
	}
	if err := oxifuj.BackupClosed(args[0], args[1]); err != nil {
		log.Println(err)
		return exitRuntime
	}
	return exitSuccess
}

func cmdOptimize(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: oxifuj optimize <path>")
		return exitUsage
	}
	store, err := oxifuj.Open(args[0])
	if err != nil {
		log.Println(err)
		return exitRuntime
	}
	defer store.Close()
	if err := store.Optimize(); err != nil {
		log.Println(err)
		return exitRuntime
	}
	return exitSuccess
}

func cmdConvert(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: oxifuj convert <in.nq> <out.nq>")
		return exitUsage
	}
	in, err := os.Open(args[0])
	if err != nil {
		log.Println(err)
		return exitData
	}
	defer in.Close()
	out, err := os.Create(args[1])
	if err != nil {
		log.Println(err)
		return exitRuntime
	}
	defer out.Close()

	if err := oxifuj.ConvertNQuads(in, out); err != nil {
		log.Println(err)
		return exitData
	}
	return exitSuccess
}

func cmdServe(args []string, writable bool) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: oxifuj serve[-read-only] <path> [addr]")
		return exitUsage
	}
	addr := "localhost:7878"
	if len(args) >= 2 {
		addr = args[1]
	}

	var (
		store *oxifuj.Store
		err   error
	)
	if writable {
		store, err = oxifuj.Open(args[0])
	} else {
		store, err = oxifuj.OpenReadOnly(args[0])
	}
	if err != nil {
		log.Println(err)
		return exitRuntime
	}
	defer store.Close()

	srv := oxifuj.NewHTTPServer(store, writable)
	log.Printf("oxifuj SPARQL endpoint listening at http://%s/sparql", addr)
	if err := srv.ListenAndServe(addr); err != nil {
		log.Println(err)
		return exitRuntime
	}
	return exitSuccess
}
