// Package zydiff wires the decode, recovery, CFG, fingerprint,
// similarity, and matcher stages into the single Compare entry point
// the CLI calls, per spec.md §2 and §4.8 (component C8). The pipeline
// itself is synchronous and single-threaded, matching
// original_source/example/main.cpp's BinaryDiffer::Compare: there is
// no concurrency to coordinate, so nothing here needs one.
package zydiff

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/moleium/zydiff/internal/cfg"
	"github.com/moleium/zydiff/internal/function"
	"github.com/moleium/zydiff/internal/image"
	"github.com/moleium/zydiff/internal/matcher"
	"github.com/moleium/zydiff/internal/recovery"
)

// Log is the package-level logger, configured by the CLI entry point.
// Defaulting to logrus.StandardLogger mirrors lancelot's analysis
// packages, which likewise log through the shared default logger
// rather than threading one through every call.
var Log = logrus.StandardLogger()

// MatchedPair is one accepted function correspondence between the two
// binaries, with its similarity score and block-level diff detail.
type MatchedPair struct {
	PrimaryEntry   uint64
	SecondaryEntry uint64
	Score          float64
	DiffDetail     []string
}

// Result is the complete outcome of comparing two binaries.
type Result struct {
	PrimaryPath    string
	SecondaryPath  string
	Matched        []MatchedPair
	RemovedEntries []uint64 // present only in the primary binary
	AddedEntries   []uint64 // present only in the secondary binary
}

// Compare loads primaryPath and secondaryPath, recovers every function
// in each, and reports which correspond, which were removed, and which
// were added.
func Compare(primaryPath, secondaryPath string) (Result, error) {
	primaryImg, err := image.Open(primaryPath)
	if err != nil {
		return Result{}, fmt.Errorf("zydiff: load primary: %w", err)
	}
	secondaryImg, err := image.Open(secondaryPath)
	if err != nil {
		return Result{}, fmt.Errorf("zydiff: load secondary: %w", err)
	}

	Log.WithFields(logrus.Fields{
		"primary":         primaryPath,
		"secondary":       secondaryPath,
		"primaryFormat":   primaryImg.Format,
		"secondaryFormat": secondaryImg.Format,
	}).Debug("images loaded")

	primaryFuncs := recoverFunctions(primaryImg)
	secondaryFuncs := recoverFunctions(secondaryImg)

	Log.WithFields(logrus.Fields{
		"primaryFunctions":   len(primaryFuncs),
		"secondaryFunctions": len(secondaryFuncs),
	}).Debug("functions recovered")

	matchResult := matcher.Match(primaryFuncs, secondaryFuncs)

	result := Result{PrimaryPath: primaryPath, SecondaryPath: secondaryPath}
	for _, m := range matchResult.Matched {
		result.Matched = append(result.Matched, MatchedPair{
			PrimaryEntry:   primaryFuncs[m.PrimaryIndex].Start,
			SecondaryEntry: secondaryFuncs[m.SecondaryIndex].Start,
			Score:          m.Score,
			DiffDetail:     m.DiffDetail,
		})
	}
	for _, i := range matchResult.UnmatchedPrimary {
		result.RemovedEntries = append(result.RemovedEntries, primaryFuncs[i].Start)
	}
	for _, j := range matchResult.UnmatchedSecondary {
		result.AddedEntries = append(result.AddedEntries, secondaryFuncs[j].Start)
	}

	return result, nil
}

// RecoverFunctions loads path and runs entry and CFG recovery over it,
// independent of Compare. The CLI's -dot flag uses this to get at the
// recovered functions for CFG export/rendering, which Compare itself
// has no need to expose.
func RecoverFunctions(path string) ([]function.Function, error) {
	img, err := image.Open(path)
	if err != nil {
		return nil, fmt.Errorf("zydiff: load %s: %w", path, err)
	}
	return recoverFunctions(img), nil
}

// recoverFunctions runs C3 entry recovery followed by C4 CFG recovery
// over every recovered entry of img.
func recoverFunctions(img *image.Image) []function.Function {
	entries := recovery.RecoverEntries(img.Text, img.TextAddress)
	funcs := make([]function.Function, 0, len(entries))
	for _, entry := range entries {
		funcs = append(funcs, cfg.Recover(img.Text, img.TextAddress, entry))
	}
	return funcs
}
