package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("gwbasic: ")

	root := &cobra.Command{
		Use:   "gwbasic",
		Short: "A runtime for the dialect's line-numbered programs",
	}

	var heapSize int
	var optionBase int
	root.PersistentFlags().IntVar(&heapSize, "heap-size", DefaultConfig().HeapSize, "string heap capacity in bytes")
	root.PersistentFlags().IntVar(&optionBase, "option-base", 0, "array lower bound (0 or 1)")

	configFromFlags := func() Config {
		cfg := DefaultConfig()
		cfg.HeapSize = heapSize
		cfg.OptionBase = optionBase
		return cfg
	}

	root.AddCommand(
		newRunCmd(configFromFlags),
		newReplCmd(configFromFlags),
		newTokensCmd(),
		newRootsCmd(configFromFlags),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRunCmd loads a program file (each line "<number> <statement...>")
// and runs it to completion.
func newRunCmd(cfg func() Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Run a program file to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			s := NewSession(cfg(), cmd.OutOrStdout(), os.Stdin)
			if err := loadProgram(s, f); err != nil {
				return err
			}

			log.Printf("run %s: %d lines loaded", args[0], len(s.Prog.Lines()))
			loop := newLoop(s)
			status, err := loop.Run()
			if err != nil {
				log.Printf("run %s: halted with error: %v", args[0], err)
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				os.Exit(1)
			}
			log.Printf("run %s: %s at line %d", args[0], status.State, status.Line)
			fmt.Fprintf(cmd.OutOrStdout(), "[%s at line %d]\n", status.State, status.Line)
			return nil
		},
	}
}

// newTokensCmd crunches a line of source and dumps its bytes, resolving
// reserved keyword/function codes back to names.
func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <source>",
		Short: "Show how a line of source crunches to reserved bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := NewSession(DefaultConfig(), cmd.OutOrStdout(), os.Stdin)
			out := s.Tok.Crunch([]byte(args[0]))
			w := cmd.OutOrStdout()
			for i := 0; i < len(out); i++ {
				b := out[i]
				switch {
				case b == 0xFF && i+1 < len(out):
					fmt.Fprintf(w, "FF:%s ", s.Tok.FuncName(out[i+1]))
					i++
				case b >= 0x81:
					fmt.Fprintf(w, "%02X:%s ", b, s.Tok.TokenName(b))
				case b >= 0x20 && b < 0x7F:
					fmt.Fprintf(w, "%c", b)
				default:
					fmt.Fprintf(w, "\\x%02x", b)
				}
			}
			fmt.Fprintln(w)
			return nil
		},
	}
}

// newRootsCmd loads a program, runs it, and dumps heap diagnostics:
// capacity, high-water mark, allocation/GC counters, and fragmentation.
// Grounded on cmd/viewcore/main.go's "overview" command's tabwriter
// stat dump, adapted from core-file memory stats to string-heap stats.
func newRootsCmd(cfg func() Config) *cobra.Command {
	return &cobra.Command{
		Use:   "roots <file>",
		Short: "Run a program and report string-heap statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			s := NewSession(cfg(), cmd.OutOrStdout(), os.Stdin)
			if err := loadProgram(s, f); err != nil {
				return err
			}
			loop := newLoop(s)
			if _, err := loop.Run(); err != nil {
				log.Printf("roots %s: run ended with error: %v", args[0], err)
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}

			st := s.Heap.Stats()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "capacity\t%d\n", s.Heap.End())
			fmt.Fprintf(w, "used\t%d\n", s.Heap.UsedBytes())
			fmt.Fprintf(w, "free\t%d\n", s.Heap.FreeBytes())
			fmt.Fprintf(w, "fragmentation\t%.2f\n", s.Heap.Fragmentation())
			fmt.Fprintf(w, "allocations\t%d\n", st.TotalAllocations)
			fmt.Fprintf(w, "gc cycles\t%d\n", st.GCCycles)
			fmt.Fprintf(w, "bytes reclaimed\t%d\n", st.BytesReclaimed)
			fmt.Fprintf(w, "max used\t%d\n", st.MaxUsed)
			fmt.Fprintf(w, "variables\t%d\n", s.Vars.Len())
			fmt.Fprintf(w, "arrays\t%d\n", s.Arrays.Len())
			return nil
		},
	}
}

// loadProgram reads lines of the form "<number> <statement text>",
// crunches each one, and stores it.
func loadProgram(s *Session, f *os.File) error {
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		num, rest, err := splitLineNumber(line)
		if err != nil {
			return err
		}
		s.Prog.SetLine(num, s.Tok.Crunch([]byte(rest)))
	}
	return sc.Err()
}

func splitLineNumber(line string) (int, string, error) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", fmt.Errorf("gwbasic: missing line number: %q", line)
	}
	num, err := strconv.Atoi(line[:i])
	if err != nil {
		return 0, "", err
	}
	return num, strings.TrimPrefix(line[i:], " "), nil
}

// lines returns every stored line number in order, for LIST.
func lines(s *Session) []int {
	ls := s.Prog.Lines()
	sort.Ints(ls)
	return ls
}
