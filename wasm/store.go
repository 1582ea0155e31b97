package wasm

import "fmt"

// Addresses into the Store. Addresses are assigned contiguously at
// instantiation time, are stable for the module's lifetime, and are never
// reused. Instances cross-reference each other exclusively through these
// (never through direct pointers) so the Store is the single owner.
type (
	FunctionAddr uint32
	MemoryAddr   uint32
	GlobalAddr   uint32
	TableAddr    uint32
	ModuleAddr   uint32
)

// Store owns every runtime instance, indexed by stable address. A Store may
// be shared read-only across workers; a worker mutating a memory or a mutable
// global requires exclusive access to that entry for the duration of the
// mutation.
type Store struct {
	Functions []*FunctionInstance
	Memories  []*MemoryInstance
	Globals   []*GlobalInstance
	Tables    []*TableInstance
	Modules   []*ModuleInstance
}

func NewStore() *Store { return &Store{} }

// FunctionInstance is either a guest function (module address, type index,
// declared locals and a body) or a host function.
type FunctionInstance struct {
	Name       string
	ModuleAddr ModuleAddr
	TypeIdx    uint32
	LocalTypes []ValueType
	Body       []*Instruction

	// Host is non-nil for host functions; Body and TypeIdx are unused then.
	Host *HostFunction
}

// ModuleInstance maps a module's local index spaces to store addresses and
// holds the module's function-type signatures.
type ModuleInstance struct {
	Types         []*FunctionType
	FunctionAddrs []FunctionAddr
	MemoryAddrs   []MemoryAddr
	GlobalAddrs   []GlobalAddr
	TableAddrs    []TableAddr
}

// GlobalInstance holds a single value plus its mutability flag.
type GlobalInstance struct {
	Type *GlobalType
	Val  Value
}

// Get returns the global's current value.
func (g *GlobalInstance) Get() Value { return g.Val }

// Set replaces the global's value. Setting an immutable global fails with
// ErrImmutableGlobal; a tag mismatch with the declared type fails with
// ErrTypeMismatch.
func (g *GlobalInstance) Set(v Value) error {
	if !g.Type.Mutable {
		return ErrImmutableGlobal
	}
	if v.Type != g.Type.ValType {
		return fmt.Errorf("%w: global is %s, got %s",
			ErrTypeMismatch, ValueTypeName(g.Type.ValType), ValueTypeName(v.Type))
	}
	g.Val = v
	return nil
}

// TableInstance holds function references for call_indirect. A nil element
// is uninitialized.
type TableInstance struct {
	Elements []*FunctionAddr
	Min      uint32
	Max      *uint32
}

func (s *Store) GetFunction(addr FunctionAddr) (*FunctionInstance, error) {
	if int(addr) >= len(s.Functions) {
		return nil, fmt.Errorf("%w: function address %d", ErrAddressOutOfRange, addr)
	}
	return s.Functions[addr], nil
}

func (s *Store) GetMemory(addr MemoryAddr) (*MemoryInstance, error) {
	if int(addr) >= len(s.Memories) {
		return nil, fmt.Errorf("%w: memory address %d", ErrAddressOutOfRange, addr)
	}
	return s.Memories[addr], nil
}

func (s *Store) GetGlobal(addr GlobalAddr) (*GlobalInstance, error) {
	if int(addr) >= len(s.Globals) {
		return nil, fmt.Errorf("%w: global address %d", ErrAddressOutOfRange, addr)
	}
	return s.Globals[addr], nil
}

func (s *Store) GetTable(addr TableAddr) (*TableInstance, error) {
	if int(addr) >= len(s.Tables) {
		return nil, fmt.Errorf("%w: table address %d", ErrAddressOutOfRange, addr)
	}
	return s.Tables[addr], nil
}

func (s *Store) GetModule(addr ModuleAddr) (*ModuleInstance, error) {
	if int(addr) >= len(s.Modules) {
		return nil, fmt.Errorf("%w: module address %d", ErrAddressOutOfRange, addr)
	}
	return s.Modules[addr], nil
}

// Allocation methods append and return the new stable address. They are used
// by the out-of-scope instantiator and by tests.

func (s *Store) AllocateFunction(f *FunctionInstance) FunctionAddr {
	s.Functions = append(s.Functions, f)
	return FunctionAddr(len(s.Functions) - 1)
}

func (s *Store) AllocateMemory(m *MemoryInstance) MemoryAddr {
	s.Memories = append(s.Memories, m)
	return MemoryAddr(len(s.Memories) - 1)
}

func (s *Store) AllocateGlobal(g *GlobalInstance) GlobalAddr {
	s.Globals = append(s.Globals, g)
	return GlobalAddr(len(s.Globals) - 1)
}

func (s *Store) AllocateTable(t *TableInstance) TableAddr {
	s.Tables = append(s.Tables, t)
	return TableAddr(len(s.Tables) - 1)
}

func (s *Store) AllocateModule(m *ModuleInstance) ModuleAddr {
	s.Modules = append(s.Modules, m)
	return ModuleAddr(len(s.Modules) - 1)
}

// FunctionType resolves a function instance's signature. Host functions
// declare their own; guest functions resolve through their module's type
// section.
func (s *Store) FunctionType(f *FunctionInstance) (*FunctionType, error) {
	if f.Host != nil {
		return f.Host.Type, nil
	}
	m, err := s.GetModule(f.ModuleAddr)
	if err != nil {
		return nil, err
	}
	return m.FuncType(f.TypeIdx)
}

func (m *ModuleInstance) FuncType(idx uint32) (*FunctionType, error) {
	if int(idx) >= len(m.Types) {
		return nil, fmt.Errorf("%w: type index %d", ErrAddressOutOfRange, idx)
	}
	return m.Types[idx], nil
}

func (m *ModuleInstance) FuncAddr(idx uint32) (FunctionAddr, error) {
	if int(idx) >= len(m.FunctionAddrs) {
		return 0, fmt.Errorf("%w: function index %d", ErrAddressOutOfRange, idx)
	}
	return m.FunctionAddrs[idx], nil
}

func (m *ModuleInstance) MemAddr(idx uint32) (MemoryAddr, error) {
	if int(idx) >= len(m.MemoryAddrs) {
		return 0, fmt.Errorf("%w: memory index %d", ErrAddressOutOfRange, idx)
	}
	return m.MemoryAddrs[idx], nil
}

func (m *ModuleInstance) GlobalAddr(idx uint32) (GlobalAddr, error) {
	if int(idx) >= len(m.GlobalAddrs) {
		return 0, fmt.Errorf("%w: global index %d", ErrAddressOutOfRange, idx)
	}
	return m.GlobalAddrs[idx], nil
}

func (m *ModuleInstance) TableAddr(idx uint32) (TableAddr, error) {
	if int(idx) >= len(m.TableAddrs) {
		return 0, fmt.Errorf("%w: table index %d", ErrAddressOutOfRange, idx)
	}
	return m.TableAddrs[idx], nil
}
