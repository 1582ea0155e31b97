package wasm

import "errors"

// Errors the engine may surface to the embedder. Every public operation
// returns one of these (possibly wrapped with context); no panics cross the
// package boundary.
var (
	// ErrWrongWorkerFlow is returned when a public entry point is invoked in
	// the wrong worker state.
	ErrWrongWorkerFlow = errors.New("wrong worker flow")

	// ErrUnreachable is the trap raised by the unreachable instruction.
	ErrUnreachable = errors.New("unreachable executed")

	// ErrTypeMismatch is returned when operand tags disagree with the opcode
	// or with each other.
	ErrTypeMismatch = errors.New("value type mismatch")

	// ErrWrongEntryKind is returned when a typed pop finds the wrong stack
	// record kind.
	ErrWrongEntryKind = errors.New("wrong stack entry kind")

	ErrDivByZero       = errors.New("integer divide by zero")
	ErrIntegerOverflow = errors.New("integer overflow")

	ErrMemoryOutOfBounds = errors.New("out of bounds memory access")
	ErrAddressOutOfRange = errors.New("store address out of range")

	ErrImmutableGlobal          = errors.New("global is immutable")
	ErrIndirectCallTypeMismatch = errors.New("indirect call type mismatch")

	// ErrUnimplemented is returned for opcodes recognized by the dispatcher
	// but unsupported by this implementation.
	ErrUnimplemented = errors.New("unimplemented instruction")

	// ErrCallFunctionError is returned when a host call's argument or result
	// shape does not match the declared signature.
	ErrCallFunctionError = errors.New("call function error")

	// ErrHostFunctionFailed is returned when a host function reports failure.
	ErrHostFunctionFailed = errors.New("host function failed")

	// ErrInterrupted is returned when an embedder-provided step budget is
	// exhausted between instructions.
	ErrInterrupted = errors.New("execution interrupted")
)
