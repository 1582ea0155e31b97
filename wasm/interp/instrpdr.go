package interp

import "github.com/wasmkit/wasmkit/wasm"

// seqKind distinguishes why an instruction sequence was installed. The
// driver reacts differently when each kind runs dry: a FunctionCall drains
// into function return, a Block into block exit, an Expression is simply
// popped.
type seqKind byte

const (
	seqExpression seqKind = iota
	seqBlock
	seqFunctionCall
)

func (k seqKind) String() string {
	switch k {
	case seqExpression:
		return "expression"
	case seqBlock:
		return "block"
	case seqFunctionCall:
		return "function call"
	}
	return "unknown"
}

type instrScope struct {
	kind   seqKind
	seq    []*wasm.Instruction
	cursor int
}

// instrProvider is a stack of instruction sequences with an intra-sequence
// cursor. Control-flow instructions push and pop scopes in lockstep with the
// labels they push and pop on the value stack.
type instrProvider struct {
	scopes []instrScope
}

func (p *instrProvider) pushInstrs(kind seqKind, seq []*wasm.Instruction) {
	p.scopes = append(p.scopes, instrScope{kind: kind, seq: seq})
}

// nextInstr returns the instruction at the top scope's cursor and advances
// it, or nil when the cursor is past the end. A nil fetch signals scope exit.
func (p *instrProvider) nextInstr() *wasm.Instruction {
	top := &p.scopes[len(p.scopes)-1]
	if top.cursor >= len(top.seq) {
		return nil
	}
	instr := top.seq[top.cursor]
	top.cursor++
	return instr
}

// popInstrs removes the top scope unconditionally.
func (p *instrProvider) popInstrs() {
	p.scopes = p.scopes[:len(p.scopes)-1]
}

func (p *instrProvider) topKind() seqKind {
	return p.scopes[len(p.scopes)-1].kind
}

func (p *instrProvider) scopeSize() int { return len(p.scopes) }

// rewindTop resets the top scope's cursor to the sequence start. Branching
// to a loop label lands here: the loop body re-runs from its first
// instruction.
func (p *instrProvider) rewindTop() {
	p.scopes[len(p.scopes)-1].cursor = 0
}

func (p *instrProvider) reset() { p.scopes = p.scopes[:0] }
