package interp

import (
	"fmt"

	"github.com/wasmkit/wasmkit/wasm"
)

const initialStackHeight = 1024

type entryKind byte

const (
	entryKindValue entryKind = iota
	entryKindLabel
	entryKindFrame
)

func (k entryKind) String() string {
	switch k {
	case entryKindValue:
		return "value"
	case entryKindLabel:
		return "label"
	case entryKindFrame:
		return "frame"
	}
	return "unknown"
}

// label is a branch target. arity is the number of values carried across a
// branch to it. continuation is non-nil for loop labels and points at the
// loop instruction; a branch then restarts the loop body instead of exiting
// the block.
type label struct {
	arity        int
	continuation *wasm.Instruction
}

// frame is an activation record. locals holds the parameters in declaration
// order followed by the declared locals, each starting at its type's zero.
type frame struct {
	moduleAddr wasm.ModuleAddr
	arity      int
	locals     []wasm.Value
}

// entry is one record on the unified stack. Exactly one of the variants is
// meaningful, selected by kind. Values and labels are stored inline; only
// frames are boxed, since the worker hands out references to the current
// frame while entries above it come and go.
type entry struct {
	kind  entryKind
	value wasm.Value
	label label
	frame *frame
}

// stack is the single LIFO of value, label and frame records. Keeping all
// three kinds on one stack lets a branch pop values down to the n-th
// enclosing label in a single linear scan.
type stack struct {
	entries []entry
	sp      int
}

func newStack() *stack {
	return &stack{entries: make([]entry, initialStackHeight), sp: -1}
}

func (s *stack) height() int { return s.sp + 1 }

func (s *stack) push(e entry) {
	if s.sp+1 == len(s.entries) {
		s.entries = append(s.entries, e)
	} else {
		s.entries[s.sp+1] = e
	}
	s.sp++
}

func (s *stack) pushValue(v wasm.Value) {
	s.push(entry{kind: entryKindValue, value: v})
}

func (s *stack) pushLabel(l label) {
	s.push(entry{kind: entryKindLabel, label: l})
}

func (s *stack) pushFrame(f *frame) {
	s.push(entry{kind: entryKindFrame, frame: f})
}

// pop removes and returns the top entry of any kind.
func (s *stack) pop() (entry, error) {
	if s.sp < 0 {
		return entry{}, fmt.Errorf("%w: pop on empty stack", wasm.ErrWrongEntryKind)
	}
	e := s.entries[s.sp]
	s.sp--
	return e, nil
}

// popValue removes the top entry, which must be a value.
func (s *stack) popValue() (wasm.Value, error) {
	if s.sp < 0 {
		return wasm.Value{}, fmt.Errorf("%w: pop value on empty stack", wasm.ErrWrongEntryKind)
	}
	if s.entries[s.sp].kind != entryKindValue {
		return wasm.Value{}, fmt.Errorf("%w: top is %s, not value",
			wasm.ErrWrongEntryKind, s.entries[s.sp].kind)
	}
	v := s.entries[s.sp].value
	s.sp--
	return v, nil
}

// popLabel removes the top entry, which must be a label.
func (s *stack) popLabel() (label, error) {
	if s.sp < 0 || s.entries[s.sp].kind != entryKindLabel {
		return label{}, fmt.Errorf("%w: top is not a label", wasm.ErrWrongEntryKind)
	}
	l := s.entries[s.sp].label
	s.sp--
	return l, nil
}

func (s *stack) isTopValue() bool {
	return s.sp >= 0 && s.entries[s.sp].kind == entryKindValue
}

func (s *stack) isTopLabel() bool {
	return s.sp >= 0 && s.entries[s.sp].kind == entryKindLabel
}

func (s *stack) isTopFrame() bool {
	return s.sp >= 0 && s.entries[s.sp].kind == entryKindFrame
}

// peekLabel returns the n-th label from the top (0 = innermost) without
// popping anything.
func (s *stack) peekLabel(n int) (label, error) {
	seen := 0
	for i := s.sp; i >= 0; i-- {
		switch s.entries[i].kind {
		case entryKindLabel:
			if seen == n {
				return s.entries[i].label, nil
			}
			seen++
		case entryKindFrame:
			return label{}, fmt.Errorf("%w: only %d enclosing labels", wasm.ErrWrongEntryKind, seen)
		}
	}
	return label{}, fmt.Errorf("%w: only %d enclosing labels", wasm.ErrWrongEntryKind, seen)
}

// labelDepth returns the number of labels between the stack top and the
// current frame.
func (s *stack) labelDepth() int {
	n := 0
	for i := s.sp; i >= 0; i-- {
		switch s.entries[i].kind {
		case entryKindLabel:
			n++
		case entryKindFrame:
			return n
		}
	}
	return n
}

// currentFrame returns the topmost frame, which is not necessarily at the
// top of the stack.
func (s *stack) currentFrame() (*frame, error) {
	for i := s.sp; i >= 0; i-- {
		if s.entries[i].kind == entryKindFrame {
			return s.entries[i].frame, nil
		}
	}
	return nil, fmt.Errorf("%w: no frame on stack", wasm.ErrWrongEntryKind)
}

// topValues returns copies of the consecutive value entries on top of the
// stack, bottom-first. The stack is left untouched; callers use this to read
// results off a completed run.
func (s *stack) topValues() []wasm.Value {
	n := 0
	for i := s.sp; i >= 0 && s.entries[i].kind == entryKindValue; i-- {
		n++
	}
	vals := make([]wasm.Value, n)
	for i := 0; i < n; i++ {
		vals[i] = s.entries[s.sp-n+1+i].value
	}
	return vals
}
