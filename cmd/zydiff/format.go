package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/moleium/zydiff/internal/zydiff"
)

// formatResults prints result the way original_source/example/main.cpp's
// formatResults does: similarity percentage and diff detail per
// matched pair, then unmatched counts for each side.
func formatResults(w io.Writer, result zydiff.Result) {
	fmt.Fprintf(w, "Comparing %s against %s\n\n", result.PrimaryPath, result.SecondaryPath)

	fmt.Fprintf(w, "Matched functions: %d\n", len(result.Matched))
	for _, m := range result.Matched {
		fmt.Fprintf(w, "  0x%x <-> 0x%x  similarity=%.1f%%\n", m.PrimaryEntry, m.SecondaryEntry, m.Score*100)
		for _, line := range m.DiffDetail {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	fmt.Fprintf(w, "\nRemoved functions: %d\n", len(result.RemovedEntries))
	for _, addr := range result.RemovedEntries {
		fmt.Fprintf(w, "  0x%x\n", addr)
	}

	fmt.Fprintf(w, "\nAdded functions: %d\n", len(result.AddedEntries))
	for _, addr := range result.AddedEntries {
		fmt.Fprintf(w, "  0x%x\n", addr)
	}
}

func writeJSON(w io.Writer, result zydiff.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
