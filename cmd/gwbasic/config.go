// Package main implements the gwbasic CLI: a thin, intentionally
// minimal driver that wires the core runtime packages (value, heap,
// strmgr, vars, arrays, userfunc, eval, rtstack, traps, interp) to a
// file-based program loader, a readline REPL, and a couple of
// diagnostic dumps.
//
// Grounded on cmd/viewcore/main.go's command-tree-over-a-shared-backend
// shape, rebuilt on cobra per SPEC_FULL.md (the teacher's own main.go
// used flag.FlagSet directly; cobra was a declared-but-unused teacher
// dependency this command tree gives a home to).
package main

import (
	"github.com/gwbasic/core/heap"
)

// Config bundles the knobs every Session needs, passed by value into
// NewSession rather than read from package-level globals.
type Config struct {
	HeapSize   int
	Policy     heap.GCPolicy
	OptionBase int
}

// DefaultConfig matches the dialect's classic defaults: a 2K string
// heap (tiny by modern standards, true to the original's memory
// pressure), on-demand collection, and OPTION BASE 0.
func DefaultConfig() Config {
	return Config{
		HeapSize:   2048,
		Policy:     heap.OnDemand,
		OptionBase: 0,
	}
}
