// Package traps implements the dialect's event trap system (spec §4.9):
// ON KEY/TIMER/PEN/PLAY/STRIG/COM/ERROR register a one-shot handler that
// the interpreter loop polls for before every statement, in a fixed
// deterministic order, rather than firing asynchronously mid-statement.
//
// Grounded on original_source/src/Runtime/EventTraps.hpp and
// EventTraps.cpp (EventTrap{type,subEvent,enabled,suspended,triggered},
// checkForEvents's fixed scan order). The scan-code-to-key-index table
// is a supplement per SPEC_FULL.md, drawn from the same header's
// key-event section.
package traps

import "time"

// Type identifies which ON ... trap a Trap belongs to.
type Type int

const (
	Error Type = iota
	Key
	Timer
	Pen
	Play
	Strig
	Com
)

func (t Type) String() string {
	switch t {
	case Error:
		return "ERROR"
	case Key:
		return "KEY"
	case Timer:
		return "TIMER"
	case Pen:
		return "PEN"
	case Play:
		return "PLAY"
	case Strig:
		return "STRIG"
	case Com:
		return "COM"
	default:
		return "UNKNOWN"
	}
}

// Trap is one registered ON ... handler. SubIndex distinguishes multiple
// traps of the same Type (which function key, which COM port, ...); it
// is always 0 for Error and Timer, which the dialect allows only one of.
type Trap struct {
	Type        Type
	SubIndex    int
	HandlerLine int
	Enabled     bool
	Suspended   bool
	Triggered   bool
}

// scanOrder fixes the deterministic polling order: errors first (so a
// runtime error can't be starved by a flood of device traps), then the
// device classes in the order the dialect defines ON ... statements.
var scanOrder = []Type{Error, Key, Timer, Pen, Play, Strig, Com}

// Manager owns every registered trap plus the TIMER interval state.
type Manager struct {
	traps []*Trap

	timerInterval time.Duration
	timerLast     time.Time
	timerArmed    bool
}

func New() *Manager {
	return &Manager{}
}

// Register creates (or updates) the trap for (t, sub) with
// enabled=true, suspended=false, triggered=false, per spec §4.7's
// set_*_trap contract: declaring a trap is what enables it, with no
// separate enable step.
func (m *Manager) Register(t Type, sub int, handlerLine int) *Trap {
	if existing := m.find(t, sub); existing != nocmp {
		tr := m.traps[existing]
		tr.HandlerLine = handlerLine
		tr.Enabled = true
		tr.Suspended = false
		tr.Triggered = false
		return tr
	}
	tr := &Trap{Type: t, SubIndex: sub, HandlerLine: handlerLine, Enabled: true}
	m.traps = append(m.traps, tr)
	return tr
}

const nocmp = -1

func (m *Manager) find(t Type, sub int) int {
	for i, tr := range m.traps {
		if tr.Type == t && tr.SubIndex == sub {
			return i
		}
	}
	return nocmp
}

func (m *Manager) Lookup(t Type, sub int) (*Trap, bool) {
	i := m.find(t, sub)
	if i == nocmp {
		return nil, false
	}
	return m.traps[i], true
}

// SetEnabled implements ON ...: enabling a trap also clears any stale
// pending fire from before it was turned on.
func (m *Manager) SetEnabled(t Type, sub int, enabled bool) {
	if tr, ok := m.Lookup(t, sub); ok {
		tr.Enabled = enabled
		if enabled {
			tr.Triggered = false
		}
	}
}

// SetSuspended implements ... STOP / ... ON: a suspended trap still
// records a fire but will not be returned by CheckForEvents until resumed.
func (m *Manager) SetSuspended(t Type, sub int, suspended bool) {
	if tr, ok := m.Lookup(t, sub); ok {
		tr.Suspended = suspended
	}
}

// Fire marks (t, sub) pending. It is a no-op if no such trap is
// registered or it is disabled: a trap turned off with SetEnabled(false)
// drops events rather than queueing them.
func (m *Manager) Fire(t Type, sub int) {
	if tr, ok := m.Lookup(t, sub); ok && tr.Enabled {
		tr.Triggered = true
	}
}

// CheckForEvents scans every trap in the fixed deterministic order and
// returns the first one that is enabled, not suspended, and has a
// pending fire, clearing its Triggered flag (one-shot: a second poll
// will not refire it until something calls Fire again).
func (m *Manager) CheckForEvents() (*Trap, bool) {
	for _, typ := range scanOrder {
		for _, tr := range m.traps {
			if tr.Type != typ {
				continue
			}
			if tr.Enabled && !tr.Suspended && tr.Triggered {
				tr.Triggered = false
				return tr, true
			}
		}
	}
	return nil, false
}

// --- TIMER ---

// SetTimerInterval implements ON TIMER(n): fire at most once every
// interval, starting from now.
func (m *Manager) SetTimerInterval(interval time.Duration, now time.Time) {
	m.timerInterval = interval
	m.timerLast = now
	m.timerArmed = true
}

// PollTimer fires the Timer trap if interval has elapsed since the last
// fire. The interpreter loop calls this once per step alongside
// CheckForEvents.
func (m *Manager) PollTimer(now time.Time) {
	if !m.timerArmed || m.timerInterval <= 0 {
		return
	}
	if now.Sub(m.timerLast) >= m.timerInterval {
		m.timerLast = now
		m.Fire(Timer, 0)
	}
}

// Clear removes every trap and disarms the timer (NEW).
func (m *Manager) Clear() {
	m.traps = nil
	m.timerArmed = false
}

// --- KEY scan codes ---

// KeyIndexForScanCode maps a PC keyboard scan code to the dialect's
// 1-based KEY trap index (1-10 are the function keys F1-F10, 11-14 are
// the cursor keys), or 0 if the scan code isn't one of the keys the
// dialect traps. Supplement grounded on EventTraps.hpp's key table.
func KeyIndexForScanCode(scanCode byte) int {
	if idx, ok := scanCodeToKey[scanCode]; ok {
		return idx
	}
	return 0
}

var scanCodeToKey = map[byte]int{
	0x3B: 1, 0x3C: 2, 0x3D: 3, 0x3E: 4, 0x3F: 5,
	0x40: 6, 0x41: 7, 0x42: 8, 0x43: 9, 0x44: 10,
	0x48: 11, // up
	0x50: 12, // down
	0x4B: 13, // left
	0x4D: 14, // right
}
