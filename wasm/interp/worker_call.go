package interp

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wasmkit/wasmkit/wasm"
)

func (w *Worker) runCallOp(instr *wasm.Instruction) error {
	f, err := w.stack.currentFrame()
	if err != nil {
		return err
	}
	module, err := w.store.GetModule(f.moduleAddr)
	if err != nil {
		return err
	}
	addr, err := module.FuncAddr(instr.Index)
	if err != nil {
		return err
	}
	return w.invokeFunction(addr)
}

// runCallIndirectOp pops the table index, resolves the callee through the
// module's table, and checks the callee's signature against the declared
// type before invoking.
func (w *Worker) runCallIndirectOp(instr *wasm.Instruction) error {
	f, err := w.stack.currentFrame()
	if err != nil {
		return err
	}
	module, err := w.store.GetModule(f.moduleAddr)
	if err != nil {
		return err
	}
	expType, err := module.FuncType(instr.Index)
	if err != nil {
		return err
	}

	// The MVP limits the table index space to one table.
	tableAddr, err := module.TableAddr(0)
	if err != nil {
		return err
	}
	table, err := w.store.GetTable(tableAddr)
	if err != nil {
		return err
	}

	idx, err := w.stack.popValue()
	if err != nil {
		return err
	}
	i, err := idx.I32()
	if err != nil {
		return err
	}
	if i < 0 || int(i) >= len(table.Elements) || table.Elements[i] == nil {
		return fmt.Errorf("%w: table element %d", wasm.ErrAddressOutOfRange, i)
	}
	addr := *table.Elements[i]

	callee, err := w.store.GetFunction(addr)
	if err != nil {
		return err
	}
	calleeType, err := w.store.FunctionType(callee)
	if err != nil {
		return err
	}
	if !wasm.HasSameSignature(calleeType.Params, expType.Params) ||
		!wasm.HasSameSignature(calleeType.Results, expType.Results) {
		return fmt.Errorf("%w: want %s, have %s",
			wasm.ErrIndirectCallTypeMismatch, expType, calleeType)
	}
	return w.invokeFunction(addr)
}

// invokeFunction calls the function at addr. A guest function gets a frame,
// a FunctionCall scope marker and its body as a block; a host function runs
// synchronously through the bridge, one atomic step from the guest's view.
func (w *Worker) invokeFunction(addr wasm.FunctionAddr) error {
	f, err := w.store.GetFunction(addr)
	if err != nil {
		return err
	}
	if f.Host != nil {
		return w.invokeHostFunction(f)
	}

	module, err := w.store.GetModule(f.ModuleAddr)
	if err != nil {
		return err
	}
	sig, err := module.FuncType(f.TypeIdx)
	if err != nil {
		return err
	}

	// Pop arguments right-to-left; parameters occupy the low local indices
	// in declaration order.
	locals := make([]wasm.Value, len(sig.Params)+len(f.LocalTypes))
	for i := len(sig.Params) - 1; i >= 0; i-- {
		v, err := w.stack.popValue()
		if err != nil {
			return err
		}
		if v.Type != sig.Params[i] {
			return fmt.Errorf("%w: param %d is %s, got %s", wasm.ErrTypeMismatch,
				i, wasm.ValueTypeName(sig.Params[i]), wasm.ValueTypeName(v.Type))
		}
		locals[i] = v
	}
	for i, t := range f.LocalTypes {
		locals[len(sig.Params)+i] = wasm.ZeroValue(t)
	}

	arity := len(sig.Results)
	w.stack.pushFrame(&frame{
		moduleAddr: f.ModuleAddr,
		arity:      arity,
		locals:     locals,
	})

	// The empty FunctionCall scope is the marker a completing body drains
	// into, so a return and a natural fall-through converge on the same
	// teardown.
	w.instrPdr.pushInstrs(seqFunctionCall, nil)
	w.enterBlock(arity, nil, f.Body)
	return nil
}

// invokeHostFunction marshals popped values into a positional argument list,
// runs the bridge, and pushes the returned values in order. A failing bridge
// pushes nothing.
func (w *Worker) invokeHostFunction(f *wasm.FunctionInstance) error {
	host := f.Host
	sig := host.Type

	args := make([]wasm.Value, len(sig.Params))
	for i := len(args) - 1; i >= 0; i-- {
		v, err := w.stack.popValue()
		if err != nil {
			return err
		}
		if v.Type != sig.Params[i] {
			return fmt.Errorf("%w: %s param %d is %s, got %s", wasm.ErrCallFunctionError,
				f.Name, i, wasm.ValueTypeName(sig.Params[i]), wasm.ValueTypeName(v.Type))
		}
		args[i] = v
	}

	var module *wasm.ModuleInstance
	if cur, err := w.stack.currentFrame(); err == nil {
		if module, err = w.store.GetModule(cur.moduleAddr); err != nil {
			return err
		}
	}

	w.logger.Debug("host call", zap.String("function", f.Name))

	results := make([]wasm.Value, len(sig.Results))
	ctx := &wasm.HostContext{Store: w.store, Module: module, Input: w.input}
	if err := host.Call(ctx, args, results); err != nil {
		return fmt.Errorf("%w: %s: %v", wasm.ErrHostFunctionFailed, f.Name, err)
	}

	for i, v := range results {
		if v.Type != sig.Results[i] {
			return fmt.Errorf("%w: %s result %d is %s, got %s", wasm.ErrCallFunctionError,
				f.Name, i, wasm.ValueTypeName(sig.Results[i]), wasm.ValueTypeName(v.Type))
		}
		w.stack.pushValue(v)
	}
	return nil
}

// returnFunction tears down the current frame: the frame's arity values are
// buffered, the stack unwinds to and through the frame entry with every
// popped label taking its sequence along, the FunctionCall scope is popped,
// and the buffered returns are restored in order.
func (w *Worker) returnFunction() error {
	f, err := w.stack.currentFrame()
	if err != nil {
		return err
	}

	vals := make([]wasm.Value, 0, f.arity)
	for i := 0; i < f.arity; i++ {
		v, err := w.stack.popValue()
		if err != nil {
			return err
		}
		vals = append(vals, v)
	}

	for !w.stack.isTopFrame() {
		if w.stack.isTopLabel() {
			w.instrPdr.popInstrs()
		}
		if _, err := w.stack.pop(); err != nil {
			return err
		}
	}

	w.instrPdr.popInstrs()
	if _, err := w.stack.pop(); err != nil {
		return err
	}

	for i := len(vals) - 1; i >= 0; i-- {
		w.stack.pushValue(vals[i])
	}
	return nil
}
