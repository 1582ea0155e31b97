package wasm

import "fmt"

// HostContext is what a host function sees of the engine: the shared Store,
// the calling module instance (for memory access through pointer/length
// arguments) and the raw input bytes the embedder stashed on the worker.
type HostContext struct {
	Store  *Store
	Module *ModuleInstance
	Input  []byte
}

// Memory resolves the caller module's first linear memory. WASI-style host
// calls interpret pointer/length pairs in it. It fails with
// ErrAddressOutOfRange when there is no calling module.
func (c *HostContext) Memory() (*MemoryInstance, error) {
	if c.Module == nil {
		return nil, fmt.Errorf("%w: host call has no calling module", ErrAddressOutOfRange)
	}
	addr, err := c.Module.MemAddr(0)
	if err != nil {
		return nil, err
	}
	return c.Store.GetMemory(addr)
}

// HostFunc is an embedder-supplied callable. The engine guarantees that args
// matches the declared parameter list in length and tags, and that results
// has the declared return length. On a non-nil error the engine discards
// results, so a failing host function never leaves partial values on the
// guest stack.
type HostFunc func(ctx *HostContext, args []Value, results []Value) error

// HostFunction associates a (module, field) name and a declared signature
// with a callable.
type HostFunction struct {
	ModuleName string
	Name       string
	Type       *FunctionType
	Call       HostFunc
}

// NewHostFunction wraps fn for registration under module/name with the given
// parameter and return types.
func NewHostFunction(module, name string, params, results []ValueType, fn HostFunc) *HostFunction {
	return &HostFunction{
		ModuleName: module,
		Name:       name,
		Type:       &FunctionType{Params: params, Results: results},
		Call:       fn,
	}
}

// AddHostFunction allocates hf as a function instance in the store and binds
// it into m's function index space, returning the new address.
func (s *Store) AddHostFunction(m *ModuleInstance, hf *HostFunction) (FunctionAddr, error) {
	if hf.Type == nil || hf.Call == nil {
		return 0, fmt.Errorf("%w: host function %s.%s missing type or callable",
			ErrCallFunctionError, hf.ModuleName, hf.Name)
	}
	addr := s.AllocateFunction(&FunctionInstance{
		Name: hf.ModuleName + "." + hf.Name,
		Host: hf,
	})
	m.FunctionAddrs = append(m.FunctionAddrs, addr)
	return addr, nil
}
