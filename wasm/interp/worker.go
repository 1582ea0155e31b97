package interp

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wasmkit/wasmkit/wasm"
)

// State is the worker's execution state.
type State byte

const (
	// StateInited means the worker is idle and may accept a new run.
	StateInited State = iota
	// StateCodeSet means code has been installed but the loop has not started.
	StateCodeSet
	// StateActive means the driver loop is executing instructions.
	StateActive
	// StateUnreachable means an unreachable instruction was executed. The
	// worker must be Reset before it can run again.
	StateUnreachable
)

func (s State) String() string {
	switch s {
	case StateInited:
		return "inited"
	case StateCodeSet:
		return "code set"
	case StateActive:
		return "active"
	case StateUnreachable:
		return "unreachable"
	}
	return "unknown"
}

// Worker executes Wasm instructions against a shared Store. It owns its
// stack and instruction provider and is not safe for concurrent use; confine
// each worker to one goroutine. The Store may be shared across workers under
// a single-writer discipline per entry.
type Worker struct {
	store    *wasm.Store
	stack    *stack
	instrPdr instrProvider
	state    State

	// input holds raw bytes stashed by SetArguments for host functions that
	// read an embedder-defined input buffer.
	input []byte

	// stepBudget bounds loop iterations when positive. Checked between
	// instructions only, so cancellation is never observable mid-instruction.
	stepBudget int
	budgeted   bool

	logger *zap.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithStepBudget bounds execution to n driver-loop iterations. When the
// budget runs out the worker surfaces wasm.ErrInterrupted.
func WithStepBudget(n int) Option {
	return func(w *Worker) {
		w.stepBudget = n
		w.budgeted = true
	}
}

// WithLogger replaces the worker's logger. The default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// NewWorker returns an idle worker bound to store.
func NewWorker(store *wasm.Store, opts ...Option) *Worker {
	w := &Worker{
		store:  store,
		stack:  newStack(),
		state:  StateInited,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the worker's current state.
func (w *Worker) State() State { return w.state }

// SetArguments stashes raw input bytes for host functions that consume an
// input buffer (the embedder convention; see wasm.HostContext.Input).
func (w *Worker) SetArguments(input []byte) {
	w.input = append(w.input[:0], input...)
}

// PushArguments places values on the stack before a run. Argument marshaling
// for RunStartFunction is the caller's responsibility; the invoked function
// pops its parameters from here.
func (w *Worker) PushArguments(vals ...wasm.Value) error {
	if w.state != StateInited {
		return fmt.Errorf("%w: push arguments in state %s", wasm.ErrWrongWorkerFlow, w.state)
	}
	for _, v := range vals {
		w.stack.pushValue(v)
	}
	return nil
}

// Reset returns a faulted or finished worker to the Inited state, discarding
// the stack and any pending instruction scopes. The embedder calls this
// after inspecting a fault.
func (w *Worker) Reset() {
	w.stack = newStack()
	w.instrPdr.reset()
	w.state = StateInited
}

// RunExpression evaluates a constant expression such as a global or element
// initializer and returns the final stack top.
func (w *Worker) RunExpression(instrs []*wasm.Instruction) (wasm.Value, error) {
	if w.state != StateInited {
		return wasm.Value{}, fmt.Errorf("%w: run expression in state %s",
			wasm.ErrWrongWorkerFlow, w.state)
	}

	w.instrPdr.pushInstrs(seqExpression, instrs)
	w.state = StateCodeSet
	if err := w.runLoop(); err != nil {
		return wasm.Value{}, err
	}
	return w.stack.popValue()
}

// RunStartFunction invokes the function at addr and runs the driver loop to
// completion. Parameters, if any, must have been placed with PushArguments.
// On success the return values are read off the top of the stack and
// returned in order; the stack keeps them for inspection until Reset.
func (w *Worker) RunStartFunction(addr wasm.FunctionAddr) ([]wasm.Value, error) {
	if w.state != StateInited {
		return nil, fmt.Errorf("%w: run start function in state %s",
			wasm.ErrWrongWorkerFlow, w.state)
	}

	if err := w.invokeFunction(addr); err != nil {
		return nil, err
	}

	w.state = StateCodeSet
	if err := w.runLoop(); err != nil {
		return nil, err
	}
	return w.stack.topValues(), nil
}

// runLoop is the driver: it pulls instructions from the provider, dispatches
// them by opcode family, and reacts to scope exhaustion per sequence kind.
// Any non-nil status from a helper aborts the loop and is returned to the
// embedder unchanged; the stack is left as-is for inspection.
func (w *Worker) runLoop() error {
	if w.state == StateUnreachable {
		return wasm.ErrUnreachable
	}
	if w.state != StateCodeSet {
		return fmt.Errorf("%w: run loop in state %s", wasm.ErrWrongWorkerFlow, w.state)
	}

	var err error
	w.state = StateActive
	for w.instrPdr.scopeSize() > 0 && err == nil {
		if w.budgeted {
			if w.stepBudget == 0 {
				err = wasm.ErrInterrupted
				break
			}
			w.stepBudget--
		}

		instr := w.instrPdr.nextInstr()
		if instr == nil {
			switch w.instrPdr.topKind() {
			case seqFunctionCall:
				err = w.returnFunction()
			case seqBlock:
				err = w.leaveBlock()
			default:
				w.instrPdr.popInstrs()
			}
			continue
		}

		if ce := w.logger.Check(zap.DebugLevel, "exec"); ce != nil {
			ce.Write(
				zap.Uint8("opcode", uint8(instr.Op)),
				zap.Int("stack", w.stack.height()),
				zap.Int("scopes", w.instrPdr.scopeSize()),
			)
		}

		op := instr.Op
		switch {
		case op.IsConstNumeric():
			err = w.runConstNumericOp(instr)
		case op.IsControl():
			err = w.runControlOp(instr)
		case op.IsNumeric():
			err = w.runNumericOp(instr)
		case op.IsMemory():
			err = w.runMemoryOp(instr)
		case op.IsParametric():
			err = w.runParametricOp(instr)
		case op.IsVariable():
			err = w.runVariableOp(instr)
		default:
			err = fmt.Errorf("%w: opcode %#x", wasm.ErrUnimplemented, uint8(op))
		}
	}

	if w.state == StateUnreachable {
		w.logger.Warn("trap", zap.Error(wasm.ErrUnreachable))
		return wasm.ErrUnreachable
	}
	if err != nil {
		w.logger.Warn("trap", zap.Error(err))
	}
	w.state = StateInited
	return err
}

// runConstNumericOp pushes the instruction's immediate as a value entry.
func (w *Worker) runConstNumericOp(instr *wasm.Instruction) error {
	w.stack.pushValue(instr.Const)
	return nil
}

// runParametricOp handles drop and select.
func (w *Worker) runParametricOp(instr *wasm.Instruction) error {
	switch instr.Op {
	case wasm.OptCodeDrop:
		_, err := w.stack.popValue()
		return err
	case wasm.OptCodeSelect:
		cond, err := w.stack.popValue()
		if err != nil {
			return err
		}
		c, err := cond.I32()
		if err != nil {
			return err
		}
		v2, err := w.stack.popValue()
		if err != nil {
			return err
		}
		v1, err := w.stack.popValue()
		if err != nil {
			return err
		}
		if !v1.SameType(v2) {
			return fmt.Errorf("%w: select operands %s and %s",
				wasm.ErrTypeMismatch, wasm.ValueTypeName(v1.Type), wasm.ValueTypeName(v2.Type))
		}
		if c != 0 {
			w.stack.pushValue(v1)
		} else {
			w.stack.pushValue(v2)
		}
		return nil
	}
	return fmt.Errorf("%w: parametric opcode %#x", wasm.ErrUnimplemented, uint8(instr.Op))
}
