// Command zydiff compares two x86-64 PE or ELF executables function by
// function and reports which functions correspond, which were removed,
// and which were added, per spec.md §6.1. It follows
// original_source/example/main.cpp's shape: two positional paths, a
// single Compare call, and formatted results to stdout — errors go to
// stderr and exit the process with status 1.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/moleium/zydiff/internal/graph"
	"github.com/moleium/zydiff/internal/zydiff"
)

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	jsonOut := flag.Bool("json", false, "emit results as JSON")
	dotDir := flag.String("dot", "", "write per-function CFG DOT files for both binaries into this directory")
	flag.Usage = usage
	flag.Parse()

	if *verbose {
		zydiff.Log.SetLevel(logrus.DebugLevel)
	}

	args := flag.Args()
	if len(args) != 2 {
		usage()
		os.Exit(1)
	}

	result, err := zydiff.Compare(args[0], args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *dotDir != "" {
		if err := writeDOT(*dotDir, args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	if *jsonOut {
		if err := writeJSON(os.Stdout, result); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	formatResults(os.Stdout, result)
}

// writeDOT renders every function recovered from primaryPath and
// secondaryPath as Graphviz DOT, one file per function, named by its
// entry address, under dir/primary and dir/secondary.
func writeDOT(dir, primaryPath, secondaryPath string) error {
	for _, side := range []struct {
		name string
		path string
	}{{"primary", primaryPath}, {"secondary", secondaryPath}} {
		funcs, err := zydiff.RecoverFunctions(side.path)
		if err != nil {
			return err
		}
		subdir := filepath.Join(dir, side.name)
		if err := os.MkdirAll(subdir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", subdir, err)
		}
		for _, f := range funcs {
			out := graph.DOT(f, graph.Monochrome)
			if out == "" {
				continue
			}
			path := filepath.Join(subdir, fmt.Sprintf("sub_%x.dot", f.Start))
			if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `zydiff — binary function diffing tool

Usage:
  zydiff [-v] [-json] [-dot dir] <primary> <secondary>

Compares the functions recovered from <primary> against <secondary>
and reports matched pairs with a similarity score and block-level
diff detail, functions present only in <primary> (removed), and
functions present only in <secondary> (added).

Flags:
  -v       enable debug logging
  -json    emit results as JSON instead of formatted text
  -dot dir write each recovered function's CFG as Graphviz DOT under dir
`)
}
