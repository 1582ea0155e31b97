package interp

import (
	"fmt"

	"github.com/wasmkit/wasmkit/wasm"
)

// runControlOp dispatches control instructions. The inner status is returned
// unchanged so traps raised inside a branch or call reach the embedder.
func (w *Worker) runControlOp(instr *wasm.Instruction) error {
	switch instr.Op {
	case wasm.OptCodeUnreachable:
		w.state = StateUnreachable
		return wasm.ErrUnreachable
	case wasm.OptCodeNop:
		return nil
	case wasm.OptCodeBlock:
		return w.runBlockOp(instr)
	case wasm.OptCodeLoop:
		return w.runLoopOp(instr)
	case wasm.OptCodeIf:
		return w.runIfOp(instr)
	case wasm.OptCodeBr:
		return w.branch(instr.Index)
	case wasm.OptCodeBrIf:
		return w.runBrIfOp(instr)
	case wasm.OptCodeBrTable:
		return w.runBrTableOp(instr)
	case wasm.OptCodeReturn:
		return w.returnFunction()
	case wasm.OptCodeCall:
		return w.runCallOp(instr)
	case wasm.OptCodeCallIndirect:
		return w.runCallIndirectOp(instr)
	}
	return fmt.Errorf("%w: control opcode %#x", wasm.ErrUnimplemented, uint8(instr.Op))
}

// runBlockOp enters a block. The label's arity is the block's result count
// and a branch to it exits the block, so there is no continuation.
func (w *Worker) runBlockOp(instr *wasm.Instruction) error {
	w.enterBlock(len(instr.BlockType.Results), nil, instr.Body)
	return nil
}

// runLoopOp enters a loop. The label's arity is the parameter count and the
// continuation points back at the loop, so a branch re-runs the body.
func (w *Worker) runLoopOp(instr *wasm.Instruction) error {
	w.enterBlock(len(instr.BlockType.Params), instr, instr.Body)
	return nil
}

func (w *Worker) runIfOp(instr *wasm.Instruction) error {
	cond, err := w.stack.popValue()
	if err != nil {
		return err
	}
	c, err := cond.I32()
	if err != nil {
		return err
	}
	body := instr.Body
	if c == 0 {
		body = instr.Else
	}
	w.enterBlock(len(instr.BlockType.Results), nil, body)
	return nil
}

func (w *Worker) runBrIfOp(instr *wasm.Instruction) error {
	cond, err := w.stack.popValue()
	if err != nil {
		return err
	}
	c, err := cond.I32()
	if err != nil {
		return err
	}
	if c == 0 {
		return nil
	}
	return w.branch(instr.Index)
}

func (w *Worker) runBrTableOp(instr *wasm.Instruction) error {
	idx, err := w.stack.popValue()
	if err != nil {
		return err
	}
	i, err := idx.I32()
	if err != nil {
		return err
	}
	if i >= 0 && int(i) < len(instr.Labels) {
		return w.branch(instr.Labels[i])
	}
	return w.branch(instr.Default)
}

// enterBlock pushes a label carrying arity and continuation, then installs
// body as the active Block sequence.
func (w *Worker) enterBlock(arity int, continuation *wasm.Instruction, body []*wasm.Instruction) {
	w.stack.pushLabel(label{arity: arity, continuation: continuation})
	w.instrPdr.pushInstrs(seqBlock, body)
}

// leaveBlock handles a block sequence running dry: values above the label
// are buffered, the label and its sequence are popped together, and the
// values are restored in their original order.
func (w *Worker) leaveBlock() error {
	var vals []wasm.Value
	for !w.stack.isTopLabel() {
		v, err := w.stack.popValue()
		if err != nil {
			return err
		}
		vals = append(vals, v)
	}

	w.instrPdr.popInstrs()
	if _, err := w.stack.popLabel(); err != nil {
		return err
	}

	for i := len(vals) - 1; i >= 0; i-- {
		w.stack.pushValue(vals[i])
	}
	return nil
}

// branch transfers control to the l-th enclosing label (0 = innermost).
// The target's arity values are preserved across the unwind. Every label
// popped en route takes its instruction sequence with it; the target label
// itself is either kept (loop: the top cursor rewinds to the body start) or
// popped along with its sequence (block and if: the branch exits).
func (w *Worker) branch(l uint32) error {
	// A branch past every label in the frame is a return.
	if int(l) >= w.stack.labelDepth() {
		return w.returnFunction()
	}

	target, err := w.stack.peekLabel(int(l))
	if err != nil {
		return err
	}

	vals := make([]wasm.Value, 0, target.arity)
	for i := 0; i < target.arity; i++ {
		v, err := w.stack.popValue()
		if err != nil {
			return err
		}
		vals = append(vals, v)
	}

	remaining := int(l)
	for {
		if w.stack.isTopLabel() {
			if remaining == 0 {
				break
			}
			if _, err := w.stack.popLabel(); err != nil {
				return err
			}
			w.instrPdr.popInstrs()
			remaining--
			continue
		}
		if _, err := w.stack.popValue(); err != nil {
			return err
		}
	}

	if target.continuation != nil {
		w.instrPdr.rewindTop()
	} else {
		if _, err := w.stack.popLabel(); err != nil {
			return err
		}
		w.instrPdr.popInstrs()
	}

	for i := len(vals) - 1; i >= 0; i-- {
		w.stack.pushValue(vals[i])
	}
	return nil
}
