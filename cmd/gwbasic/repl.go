package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/gwbasic/core/interp"
)

// newReplCmd starts an interactive session: a bare line number deletes
// that line, "<number> <statement>" stores it, RUN executes the stored
// program, LIST prints its line numbers (not the statement text), NEW
// clears everything, and anything else is
// executed immediately at line 0 (spec §4.8's immediate-mode entry).
func newReplCmd(cfg func() Config) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive read-eval-print loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "] ",
				HistoryFile:     "",
				InterruptPrompt: "^C",
				EOFPrompt:       "",
			})
			if err != nil {
				return err
			}
			defer rl.Close()

			s := NewSession(cfg(), cmd.OutOrStdout(), os.Stdin)
			runREPL(s, rl, cmd.OutOrStdout())
			return nil
		},
	}
}

func runREPL(s *Session, rl *readline.Instance, out io.Writer) {
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		handleREPLLine(s, line, out)
	}
}

func handleREPLLine(s *Session, line string, out io.Writer) {
	if line[0] >= '0' && line[0] <= '9' {
		num, rest, err := splitLineNumber(line)
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		s.Prog.SetLine(num, s.Tok.Crunch([]byte(rest)))
		return
	}

	switch strings.ToUpper(line) {
	case "RUN":
		loop := newLoop(s)
		status, err := loop.Run()
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		fmt.Fprintf(out, "[%s at line %d]\n", status.State, status.Line)
		return
	case "LIST":
		for _, n := range lines(s) {
			fmt.Fprintf(out, "%d\n", n)
		}
		return
	case "NEW":
		s.Prog.Clear()
		s.Clear()
		return
	}

	tokens := s.Tok.Crunch([]byte(line))
	if err := interp.RunImmediate(s.Dispatch, tokens); err != nil {
		fmt.Fprintln(out, err)
	}
}
