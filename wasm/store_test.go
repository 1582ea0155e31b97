package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreAddressesAreStable(t *testing.T) {
	s := NewStore()
	a := s.AllocateFunction(&FunctionInstance{Name: "a"})
	b := s.AllocateFunction(&FunctionInstance{Name: "b"})
	require.Equal(t, FunctionAddr(0), a)
	require.Equal(t, FunctionAddr(1), b)

	got, err := s.GetFunction(a)
	require.NoError(t, err)
	require.Equal(t, "a", got.Name)
	got, err = s.GetFunction(b)
	require.NoError(t, err)
	require.Equal(t, "b", got.Name)
}

func TestStoreGetOutOfRange(t *testing.T) {
	s := NewStore()
	_, err := s.GetFunction(0)
	require.ErrorIs(t, err, ErrAddressOutOfRange)
	_, err = s.GetMemory(3)
	require.ErrorIs(t, err, ErrAddressOutOfRange)
	_, err = s.GetGlobal(1)
	require.ErrorIs(t, err, ErrAddressOutOfRange)
	_, err = s.GetTable(0)
	require.ErrorIs(t, err, ErrAddressOutOfRange)
	_, err = s.GetModule(9)
	require.ErrorIs(t, err, ErrAddressOutOfRange)
}

func TestGlobalSet(t *testing.T) {
	g := &GlobalInstance{
		Type: &GlobalType{ValType: ValueTypeI32, Mutable: true},
		Val:  I32Value(1),
	}
	require.NoError(t, g.Set(I32Value(2)))
	require.Equal(t, I32Value(2), g.Get())

	err := g.Set(I64Value(2))
	require.ErrorIs(t, err, ErrTypeMismatch)

	frozen := &GlobalInstance{
		Type: &GlobalType{ValType: ValueTypeI32},
		Val:  I32Value(7),
	}
	err = frozen.Set(I32Value(8))
	require.ErrorIs(t, err, ErrImmutableGlobal)
	require.Equal(t, I32Value(7), frozen.Get())
}

func TestModuleIndexResolution(t *testing.T) {
	m := &ModuleInstance{
		Types:         []*FunctionType{{Params: []ValueType{ValueTypeI32}}},
		FunctionAddrs: []FunctionAddr{4},
		MemoryAddrs:   []MemoryAddr{2},
		GlobalAddrs:   []GlobalAddr{1},
		TableAddrs:    []TableAddr{0},
	}

	ft, err := m.FuncType(0)
	require.NoError(t, err)
	require.Len(t, ft.Params, 1)
	_, err = m.FuncType(1)
	require.ErrorIs(t, err, ErrAddressOutOfRange)

	fa, err := m.FuncAddr(0)
	require.NoError(t, err)
	require.Equal(t, FunctionAddr(4), fa)
	_, err = m.FuncAddr(1)
	require.ErrorIs(t, err, ErrAddressOutOfRange)

	_, err = m.MemAddr(1)
	require.ErrorIs(t, err, ErrAddressOutOfRange)
	_, err = m.GlobalAddr(1)
	require.ErrorIs(t, err, ErrAddressOutOfRange)
	_, err = m.TableAddr(1)
	require.ErrorIs(t, err, ErrAddressOutOfRange)
}

func TestStoreFunctionType(t *testing.T) {
	s := NewStore()
	mAddr := s.AllocateModule(&ModuleInstance{
		Types: []*FunctionType{{Results: []ValueType{ValueTypeI64}}},
	})
	guest := &FunctionInstance{ModuleAddr: mAddr, TypeIdx: 0}
	ft, err := s.FunctionType(guest)
	require.NoError(t, err)
	require.Equal(t, []ValueType{ValueTypeI64}, ft.Results)

	host := &FunctionInstance{Host: &HostFunction{Type: &FunctionType{}}}
	ft, err = s.FunctionType(host)
	require.NoError(t, err)
	require.Empty(t, ft.Params)
}

func TestAddHostFunction(t *testing.T) {
	s := NewStore()
	m := &ModuleInstance{}
	hf := NewHostFunction("env", "answer", nil, []ValueType{ValueTypeI32},
		func(ctx *HostContext, args, results []Value) error {
			results[0] = I32Value(42)
			return nil
		})
	addr, err := s.AddHostFunction(m, hf)
	require.NoError(t, err)
	require.Equal(t, []FunctionAddr{addr}, m.FunctionAddrs)

	f, err := s.GetFunction(addr)
	require.NoError(t, err)
	require.Equal(t, "env.answer", f.Name)
	require.NotNil(t, f.Host)

	_, err = s.AddHostFunction(m, &HostFunction{ModuleName: "env", Name: "broken"})
	require.Error(t, err)
}
