package interp

import (
	"fmt"

	"github.com/wasmkit/wasmkit/wasm"
)

func (w *Worker) runVariableOp(instr *wasm.Instruction) error {
	switch instr.Op {
	case wasm.OptCodeLocalGet:
		return w.runLocalGet(instr.Index)
	case wasm.OptCodeLocalSet:
		return w.runLocalSet(instr.Index)
	case wasm.OptCodeLocalTee:
		return w.runLocalTee(instr.Index)
	case wasm.OptCodeGlobalGet:
		return w.runGlobalGet(instr.Index)
	case wasm.OptCodeGlobalSet:
		return w.runGlobalSet(instr.Index)
	}
	return fmt.Errorf("%w: variable opcode %#x", wasm.ErrUnimplemented, uint8(instr.Op))
}

func (w *Worker) runLocalGet(idx uint32) error {
	f, err := w.stack.currentFrame()
	if err != nil {
		return err
	}
	if int(idx) >= len(f.locals) {
		return fmt.Errorf("%w: local index %d of %d", wasm.ErrAddressOutOfRange, idx, len(f.locals))
	}
	w.stack.pushValue(f.locals[idx])
	return nil
}

func (w *Worker) runLocalSet(idx uint32) error {
	f, err := w.stack.currentFrame()
	if err != nil {
		return err
	}
	if int(idx) >= len(f.locals) {
		return fmt.Errorf("%w: local index %d of %d", wasm.ErrAddressOutOfRange, idx, len(f.locals))
	}
	v, err := w.stack.popValue()
	if err != nil {
		return err
	}
	f.locals[idx] = v
	return nil
}

func (w *Worker) runLocalTee(idx uint32) error {
	f, err := w.stack.currentFrame()
	if err != nil {
		return err
	}
	if int(idx) >= len(f.locals) {
		return fmt.Errorf("%w: local index %d of %d", wasm.ErrAddressOutOfRange, idx, len(f.locals))
	}
	v, err := w.stack.popValue()
	if err != nil {
		return err
	}
	w.stack.pushValue(v)
	f.locals[idx] = v
	return nil
}

// resolveGlobal maps a module-local global index to its store instance
// through the current frame's module.
func (w *Worker) resolveGlobal(idx uint32) (*wasm.GlobalInstance, error) {
	f, err := w.stack.currentFrame()
	if err != nil {
		return nil, err
	}
	module, err := w.store.GetModule(f.moduleAddr)
	if err != nil {
		return nil, err
	}
	addr, err := module.GlobalAddr(idx)
	if err != nil {
		return nil, err
	}
	return w.store.GetGlobal(addr)
}

func (w *Worker) runGlobalGet(idx uint32) error {
	g, err := w.resolveGlobal(idx)
	if err != nil {
		return err
	}
	w.stack.pushValue(g.Get())
	return nil
}

func (w *Worker) runGlobalSet(idx uint32) error {
	g, err := w.resolveGlobal(idx)
	if err != nil {
		return err
	}
	v, err := w.stack.popValue()
	if err != nil {
		return err
	}
	return g.Set(v)
}
