// Package rtstack implements the dialect's runtime frame stacks (spec
// §3.6, §4.6): FOR/NEXT, GOSUB/RETURN, and ERR/RESUME, each a bounded
// stack of frames, plus string-root enumeration for FOR frames.
//
// Grounded on original_source/src/Runtime/RuntimeStack.hpp directly.
package rtstack

import (
	"github.com/gwbasic/core/heap"
	"github.com/gwbasic/core/value"
)

// ForFrame is one active FOR loop: the control variable's key, its
// current/limit/step values, and the token-stream cursor to resume at
// on NEXT.
type ForFrame struct {
	VarKey       string
	Control      value.Value
	Limit        value.Value
	Step         value.Value
	ResumeCursor int
}

// GosubFrame records where to resume after a RETURN.
type GosubFrame struct {
	ReturnCursor int
	ReturnLine   int
}

// ErrFrame records an active error handler's state for RESUME.
type ErrFrame struct {
	ErrCode      int
	ResumeLine   int
	ResumeCursor int
	HandlerLine  int
	Enabled      bool
}

// DefaultCapacity bounds each of the three stacks, mirroring the
// original's use of a finite std::vector (Design Note: "Control flow
// for FOR/GOSUB/ERR is frame stacks, not continuations").
const DefaultCapacity = 256

// Stack holds the three bounded frame stacks.
type Stack struct {
	forStack   []ForFrame
	gosubStack []GosubFrame
	errStack   []ErrFrame
	capacity   int
}

func New() *Stack {
	return &Stack{capacity: DefaultCapacity}
}

func NewWithCapacity(capacity int) *Stack {
	return &Stack{capacity: capacity}
}

func (s *Stack) Clear() {
	s.forStack = s.forStack[:0]
	s.gosubStack = s.gosubStack[:0]
	s.errStack = s.errStack[:0]
}

// --- FOR/NEXT ---

func (s *Stack) PushFor(f ForFrame) bool {
	if len(s.forStack) >= s.capacity {
		return false
	}
	s.forStack = append(s.forStack, f)
	return true
}

func (s *Stack) PopFor() (ForFrame, bool) {
	if len(s.forStack) == 0 {
		return ForFrame{}, false
	}
	f := s.forStack[len(s.forStack)-1]
	s.forStack = s.forStack[:len(s.forStack)-1]
	return f, true
}

func (s *Stack) TopFor() *ForFrame {
	if len(s.forStack) == 0 {
		return nil
	}
	return &s.forStack[len(s.forStack)-1]
}

// FindFor searches from the top of the FOR stack for a frame matching
// varKey and removes it from the stack together with any nested frames
// above it — the usual NEXT-matches-an-outer-FOR behavior. The matched
// frame is returned; a caller that continues the loop pushes it back.
// Returns false if not found.
func (s *Stack) FindFor(varKey string) (ForFrame, bool) {
	for i := len(s.forStack) - 1; i >= 0; i-- {
		if s.forStack[i].VarKey == varKey {
			f := s.forStack[i]
			s.forStack = s.forStack[:i]
			return f, true
		}
	}
	return ForFrame{}, false
}

// --- GOSUB/RETURN ---

func (s *Stack) PushGosub(f GosubFrame) bool {
	if len(s.gosubStack) >= s.capacity {
		return false
	}
	s.gosubStack = append(s.gosubStack, f)
	return true
}

func (s *Stack) PopGosub() (GosubFrame, bool) {
	if len(s.gosubStack) == 0 {
		return GosubFrame{}, false
	}
	f := s.gosubStack[len(s.gosubStack)-1]
	s.gosubStack = s.gosubStack[:len(s.gosubStack)-1]
	return f, true
}

// --- ERR/RESUME ---

func (s *Stack) PushErr(f ErrFrame) bool {
	if len(s.errStack) >= s.capacity {
		return false
	}
	s.errStack = append(s.errStack, f)
	return true
}

func (s *Stack) PopErr() (ErrFrame, bool) {
	if len(s.errStack) == 0 {
		return ErrFrame{}, false
	}
	f := s.errStack[len(s.errStack)-1]
	s.errStack = s.errStack[:len(s.errStack)-1]
	return f, true
}

func (s *Stack) TopErr() *ErrFrame {
	if len(s.errStack) == 0 {
		return nil
	}
	return &s.errStack[len(s.errStack)-1]
}

// HasErrorHandler reports whether an ERR frame is active with its
// handler enabled.
func (s *Stack) HasErrorHandler() bool {
	f := s.TopErr()
	return f != nil && f.Enabled
}

// CurrentHandlerLine returns the top ERR frame's handler line, or 0 if
// there is no active enabled handler.
func (s *Stack) CurrentHandlerLine() int {
	f := s.TopErr()
	if f == nil || !f.Enabled {
		return 0
	}
	return f.HandlerLine
}

// AppendStringRoots implements heap.RootProvider: FOR frames may hold
// string-typed control/limit/step values if a coercion bug lets a
// string reach a FOR variable; Open Question (a) in spec.md §9 decides
// to enumerate these unconditionally rather than assume it cannot
// happen, per the Root Completeness invariant (§3.2). GOSUB and ERR
// frames hold no strings.
func (s *Stack) AppendStringRoots(dst []*heap.StrDesc) []*heap.StrDesc {
	for i := range s.forStack {
		f := &s.forStack[i]
		if f.Control.Kind == value.StringRef {
			dst = append(dst, f.Control.StrDescPtr())
		}
		if f.Limit.Kind == value.StringRef {
			dst = append(dst, f.Limit.StrDescPtr())
		}
		if f.Step.Kind == value.StringRef {
			dst = append(dst, f.Step.StrDescPtr())
		}
	}
	return dst
}
