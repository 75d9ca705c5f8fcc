package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/begriff-lang/begriff/internal/check"
	"github.com/begriff-lang/begriff/internal/config"
	"github.com/begriff-lang/begriff/internal/diagnostics"
	"github.com/begriff-lang/begriff/internal/index"
	"github.com/begriff-lang/begriff/internal/workspace"
)

func main() {
	// Catch panics and show a user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if handleHelp() {
		return
	}
	if handleVersion() {
		return
	}
	if handleCheck() {
		return
	}
	if handleQuery() {
		return
	}
	if handleIndex() {
		return
	}

	printUsage()
	os.Exit(1)
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintf(os.Stderr, "  %s check [dir]         run every query in the workspace\n", prog)
	fmt.Fprintf(os.Stderr, "  %s query <dir> <goal>  resolve a one-off goal, e.g. \"Eq<int[]>\"\n", prog)
	fmt.Fprintf(os.Stderr, "  %s index [dir]         rebuild the instance index and record query runs\n", prog)
	fmt.Fprintf(os.Stderr, "  %s version             print the version\n", prog)
}

func handleHelp() bool {
	if len(os.Args) < 2 {
		return false
	}
	if os.Args[1] != "help" && os.Args[1] != "-help" && os.Args[1] != "--help" {
		return false
	}
	printUsage()
	return true
}

func handleVersion() bool {
	if len(os.Args) < 2 || os.Args[1] != "version" {
		return false
	}
	fmt.Printf("begriff %s\n", config.Version)
	return true
}

func handleCheck() bool {
	if len(os.Args) < 2 || os.Args[1] != "check" {
		return false
	}
	path := ""
	if len(os.Args) > 2 {
		path = os.Args[2]
	}

	ctx := check.Run(path)
	for _, res := range ctx.Results {
		fmt.Printf("%s %s (%s): %s\n", marker(res.Outcome()), res.Query.Name, res.Query.Goal(), res.Detail())
	}
	if ctx.Failed() {
		reportErrors(ctx.Errors)
		os.Exit(1)
	}
	return true
}

func handleQuery() bool {
	if len(os.Args) < 2 || os.Args[1] != "query" {
		return false
	}
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s query <dir> <goal>\n", os.Args[0])
		os.Exit(1)
	}

	sink := diagnostics.NewSink()
	ws, err := workspace.Load(os.Args[2], sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading workspace: %s\n", err)
		os.Exit(1)
	}
	if sink.HasErrors() {
		reportErrors(sink.Errors())
	}

	res, err := check.ResolveGoal(ws, os.Args[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if res.Err != nil {
		fmt.Printf("%s %s\n", marker("fail"), res.Err)
		os.Exit(1)
	}
	fmt.Printf("%s %s\n", marker("ok"), res.Witness.Materialize())
	return true
}

func handleIndex() bool {
	if len(os.Args) < 2 || os.Args[1] != "index" {
		return false
	}
	path := ""
	if len(os.Args) > 2 {
		path = os.Args[2]
	}

	ctx := check.Run(path)
	if ctx.Workspace == nil {
		reportErrors(ctx.Errors)
		os.Exit(1)
	}

	dbPath := filepath.Join(filepath.Dir(ctx.Workspace.Root.Path), config.IndexFileName)
	ix, err := index.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %s\n", err)
		os.Exit(1)
	}
	defer ix.Close()

	n, err := ix.Rebuild(ctx.Workspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error indexing instances: %s\n", err)
		os.Exit(1)
	}
	recorded := 0
	for _, res := range ctx.Results {
		if _, err := ix.RecordRun(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error recording run: %s\n", err)
			os.Exit(1)
		}
		recorded++
	}
	fmt.Printf("Indexed %d instances, recorded %d runs in %s\n", n, recorded, dbPath)

	if ctx.Failed() {
		reportErrors(ctx.Errors)
		os.Exit(1)
	}
	return true
}

func reportErrors(errs []*diagnostics.DiagnosticError) {
	fmt.Fprintln(os.Stderr, "Check failed with errors:")
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "- %s\n", err.Error())
	}
}

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

var (
	colorOnce sync.Once
	colorOn   bool
)

// useColor respects the NO_COLOR convention (https://no-color.org/)
// and only colors real terminals.
func useColor() bool {
	colorOnce.Do(func() {
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return
		}
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return
		}
		colorOn = os.Getenv("TERM") != "dumb"
	})
	return colorOn
}

func colorize(s, color string) string {
	if !useColor() {
		return s
	}
	return color + s + ansiReset
}

func marker(outcome string) string {
	if outcome == "ok" {
		return colorize("ok", ansiGreen)
	}
	return colorize("FAIL", ansiRed)
}
