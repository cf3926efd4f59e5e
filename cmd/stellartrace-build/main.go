// Command stellartrace-build runs the offline index-building pipeline:
// lexicon, forward index, inverted index, barrels and the document map,
// all from a single newline-delimited JSON corpus. A merge-lexicons
// subcommand folds several independently built lexicons into one.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/fromearth03/stellartrace"
)

type buildOptions struct {
	Corpus string `short:"c" long:"corpus" description:"newline-delimited JSON corpus file" value-name:"path" required:"true"`
	OutDir string `short:"o" long:"out" description:"output directory for built artifacts" value-name:"dir" default:"."`
	Help   bool   `long:"help" description:"show this help"`
}

type mergeLexiconsOptions struct {
	Out  string `short:"o" long:"out" description:"output merged lexicon path" value-name:"path" required:"true"`
	Help bool   `long:"help" description:"show this help"`
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: stellartrace-build <build|merge-lexicons> [options]")
		os.Exit(1)
	}

	switch args[0] {
	case "merge-lexicons":
		runMergeLexicons(args[1:])
	case "build":
		runBuild(args[1:])
	default:
		// no subcommand given: treat the whole argv as build options, so
		// `stellartrace-build -c corpus.jsonl` keeps working on its own.
		runBuild(args)
	}
}

func runBuild(args []string) {
	var opts buildOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "build [options]"
	if _, err := parser.ParseArgs(args); err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}

	lexiconPath := filepath.Join(opts.OutDir, "lexicon.txt")
	forwardPath := filepath.Join(opts.OutDir, "forward.txt")
	invertedPath := filepath.Join(opts.OutDir, "inverted.txt")
	barrelDir := filepath.Join(opts.OutDir, "barrels")
	docMapPath := filepath.Join(opts.OutDir, "AUC.csv")

	fmt.Println("--- PHASE 1: BUILDING LEXICON ---")
	t0 := time.Now()
	lex, err := stellartrace.BuildLexicon(opts.Corpus, lexiconPath)
	if err != nil {
		log.Fatalf("build lexicon: %v", err)
	}
	fmt.Printf("[TIME] lexicon build took %s\n", time.Since(t0))

	fmt.Println("\n--- PHASE 2: BUILDING FORWARD INDEX ---")
	t1 := time.Now()
	if err := stellartrace.BuildForwardIndex(opts.Corpus, forwardPath, lex); err != nil {
		log.Fatalf("build forward index: %v", err)
	}
	fmt.Printf("[TIME] forward index build took %s\n", time.Since(t1))

	fmt.Println("\n--- PHASE 3: BUILDING DOCUMENT MAP ---")
	t2 := time.Now()
	dm, err := stellartrace.BuildAUC(opts.Corpus, docMapPath)
	if err != nil {
		log.Fatalf("build docmap: %v", err)
	}
	fmt.Printf("[TIME] docmap build took %s\n", time.Since(t2))

	fmt.Println("\n--- PHASE 4: BUILDING INVERTED INDEX ---")
	t3 := time.Now()
	if err := stellartrace.BuildInvertedIndex(forwardPath, invertedPath, dm.Len()); err != nil {
		log.Fatalf("build inverted index: %v", err)
	}
	fmt.Printf("[TIME] inverted index build took %s\n", time.Since(t3))

	fmt.Println("\n--- PHASE 5: GENERATING BARRELS ---")
	t4 := time.Now()
	if err := stellartrace.BuildBarrels(invertedPath, barrelDir); err != nil {
		log.Fatalf("build barrels: %v", err)
	}
	fmt.Printf("[TIME] barrel generation took %s\n", time.Since(t4))

	slog.Info("build complete",
		slog.Int("documents", dm.Len()),
		slog.Int("lexicon_words", lex.Len()),
		slog.String("out_dir", opts.OutDir),
	)
}

func runMergeLexicons(args []string) {
	var opts mergeLexiconsOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "merge-lexicons [options] lexicon_file..."
	rest, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "no lexicon files given")
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	merged, err := stellartrace.MergeLexiconFiles(rest, opts.Out)
	if err != nil {
		log.Fatalf("merge lexicons: %v", err)
	}
	slog.Info("lexicons merged", slog.Int("sources", len(rest)), slog.Int("words", merged.Len()))
}
