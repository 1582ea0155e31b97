package eei

import (
	"go.uber.org/zap"

	"github.com/wasmkit/wasmkit/wasm"
)

const moduleName = "ethereum"

// WordSize is the width of a storage key or value in bytes.
const WordSize = 32

// Word is one 256-bit storage key or value.
type Word [WordSize]byte

// Environment backs the Ethereum environment-interface host functions with
// an in-memory storage map. Call data for a run comes from the worker's
// stashed input bytes, so each execution sees the transaction payload the
// embedder set before the run.
type Environment struct {
	storage map[Word]Word
	logger  *zap.Logger
}

// Option configures an Environment.
type Option func(*Environment)

// WithLogger replaces the environment's logger. The default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

// NewEnvironment returns an environment with empty storage.
func NewEnvironment(opts ...Option) *Environment {
	e := &Environment{
		storage: map[Word]Word{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Storage returns the value under key. Absent keys read as the zero word.
func (e *Environment) Storage(key Word) Word { return e.storage[key] }

// SetStorage writes value under key.
func (e *Environment) SetStorage(key, value Word) { e.storage[key] = value }

// Register binds the environment-interface functions into m's function
// index space under the ethereum module name.
func (e *Environment) Register(store *wasm.Store, m *wasm.ModuleInstance) error {
	i32 := wasm.ValueTypeI32
	for _, hf := range []*wasm.HostFunction{
		wasm.NewHostFunction(moduleName, "storageStore",
			[]wasm.ValueType{i32, i32}, nil, e.storageStore),
		wasm.NewHostFunction(moduleName, "storageLoad",
			[]wasm.ValueType{i32, i32}, nil, e.storageLoad),
		wasm.NewHostFunction(moduleName, "getCallDataSize",
			nil, []wasm.ValueType{i32}, e.getCallDataSize),
		wasm.NewHostFunction(moduleName, "callDataCopy",
			[]wasm.ValueType{i32, i32, i32}, nil, e.callDataCopy),
	} {
		if _, err := store.AddHostFunction(m, hf); err != nil {
			return err
		}
	}
	return nil
}
