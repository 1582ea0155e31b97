package interp

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/wasmkit/wasm"
)

// testModule bundles a store with one module instance and helpers to grow
// its index spaces.
type testModule struct {
	store *wasm.Store
	addr  wasm.ModuleAddr
	inst  *wasm.ModuleInstance
}

func newTestModule() *testModule {
	store := wasm.NewStore()
	inst := &wasm.ModuleInstance{}
	return &testModule{store: store, addr: store.AllocateModule(inst), inst: inst}
}

func (m *testModule) addFunction(sig *wasm.FunctionType, localTypes []wasm.ValueType, body []*wasm.Instruction) wasm.FunctionAddr {
	typeIdx := uint32(len(m.inst.Types))
	m.inst.Types = append(m.inst.Types, sig)
	addr := m.store.AllocateFunction(&wasm.FunctionInstance{
		ModuleAddr: m.addr,
		TypeIdx:    typeIdx,
		LocalTypes: localTypes,
		Body:       body,
	})
	m.inst.FunctionAddrs = append(m.inst.FunctionAddrs, addr)
	return addr
}

func (m *testModule) addMemory(pages uint32) *wasm.MemoryInstance {
	mem := wasm.NewMemoryInstance(pages, nil)
	m.inst.MemoryAddrs = append(m.inst.MemoryAddrs, m.store.AllocateMemory(mem))
	return mem
}

func (m *testModule) addGlobal(g *wasm.GlobalInstance) {
	m.inst.GlobalAddrs = append(m.inst.GlobalAddrs, m.store.AllocateGlobal(g))
}

func (m *testModule) addTable(elems ...wasm.FunctionAddr) {
	t := &wasm.TableInstance{Min: uint32(len(elems))}
	for i := range elems {
		t.Elements = append(t.Elements, &elems[i])
	}
	m.inst.TableAddrs = append(m.inst.TableAddrs, m.store.AllocateTable(t))
}

func op(o wasm.OptCode) *wasm.Instruction { return &wasm.Instruction{Op: o} }

func opIdx(o wasm.OptCode, idx uint32) *wasm.Instruction {
	return &wasm.Instruction{Op: o, Index: idx}
}

var (
	i32T    = wasm.ValueTypeI32
	sigI32  = &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	sigNull = &wasm.FunctionType{}
)

func TestRunConstAdd(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(2),
		wasm.I32Const(3),
		op(wasm.OptCodeI32Add),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(5)}, results)
	require.Equal(t, StateInited, w.State())
}

func TestRunLocalAdd(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(&wasm.FunctionType{
		Params:  []wasm.ValueType{i32T, i32T},
		Results: []wasm.ValueType{i32T},
	}, nil, []*wasm.Instruction{
		opIdx(wasm.OptCodeLocalGet, 0),
		opIdx(wasm.OptCodeLocalGet, 1),
		op(wasm.OptCodeI32Add),
	})

	w := NewWorker(m.store)
	require.NoError(t, w.PushArguments(wasm.I32Value(5), wasm.I32Value(9)))
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(14)}, results)
}

func TestBlockBranchExits(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		{
			Op:        wasm.OptCodeBlock,
			BlockType: &wasm.FunctionType{Results: []wasm.ValueType{i32T}},
			Body: []*wasm.Instruction{
				wasm.I32Const(9),
				opIdx(wasm.OptCodeBr, 0),
				wasm.I32Const(100), // skipped by the branch
			},
		},
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(9)}, results)
}

func TestLoopContinuation(t *testing.T) {
	m := newTestModule()
	// Increment local 0 until it reaches 3.
	fn := m.addFunction(sigI32, []wasm.ValueType{i32T}, []*wasm.Instruction{
		{
			Op:        wasm.OptCodeLoop,
			BlockType: sigNull,
			Body: []*wasm.Instruction{
				opIdx(wasm.OptCodeLocalGet, 0),
				wasm.I32Const(1),
				op(wasm.OptCodeI32Add),
				opIdx(wasm.OptCodeLocalTee, 0),
				wasm.I32Const(3),
				op(wasm.OptCodeI32LtS),
				opIdx(wasm.OptCodeBrIf, 0),
			},
		},
		opIdx(wasm.OptCodeLocalGet, 0),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(3)}, results)
}

func TestIfElse(t *testing.T) {
	m := newTestModule()
	build := func(cond int32) wasm.FunctionAddr {
		return m.addFunction(sigI32, nil, []*wasm.Instruction{
			wasm.I32Const(cond),
			{
				Op:        wasm.OptCodeIf,
				BlockType: &wasm.FunctionType{Results: []wasm.ValueType{i32T}},
				Body:      []*wasm.Instruction{wasm.I32Const(1)},
				Else:      []*wasm.Instruction{wasm.I32Const(2)},
			},
		})
	}

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(build(7))
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(1)}, results)

	w.Reset()
	results, err = w.RunStartFunction(build(0))
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(2)}, results)
}

func TestBrTable(t *testing.T) {
	m := newTestModule()
	// Selector 0 branches to the outer block (42); any other value exits
	// the inner block (21).
	body := []*wasm.Instruction{
		{
			Op:        wasm.OptCodeBlock,
			BlockType: sigNull,
			Body: []*wasm.Instruction{
				{
					Op:        wasm.OptCodeBlock,
					BlockType: sigNull,
					Body: []*wasm.Instruction{
						opIdx(wasm.OptCodeLocalGet, 0),
						{Op: wasm.OptCodeBrTable, Labels: []uint32{1, 0}, Default: 0},
					},
				},
				wasm.I32Const(21),
				op(wasm.OptCodeReturn),
			},
		},
		wasm.I32Const(42),
	}
	fn := m.addFunction(&wasm.FunctionType{
		Params:  []wasm.ValueType{i32T},
		Results: []wasm.ValueType{i32T},
	}, nil, body)

	for _, c := range []struct {
		selector, exp int32
	}{
		{selector: 0, exp: 42},
		{selector: 1, exp: 21},
		{selector: 9, exp: 21}, // past the table, takes the default
	} {
		w := NewWorker(m.store)
		require.NoError(t, w.PushArguments(wasm.I32Value(c.selector)))
		results, err := w.RunStartFunction(fn)
		require.NoError(t, err)
		require.Equal(t, []wasm.Value{wasm.I32Value(c.exp)}, results)
	}
}

func TestBrPastAllLabelsReturns(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		{
			Op:        wasm.OptCodeBlock,
			BlockType: sigNull,
			Body: []*wasm.Instruction{
				wasm.I32Const(5),
				opIdx(wasm.OptCodeBr, 7),
			},
		},
		wasm.I32Const(100),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(5)}, results)
}

func TestUnreachable(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(1),
		op(wasm.OptCodeUnreachable),
	})

	w := NewWorker(m.store)
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrUnreachable)
	require.Equal(t, StateUnreachable, w.State())

	// The stack is preserved for inspection.
	require.Equal(t, []wasm.Value{wasm.I32Value(1)}, w.stack.topValues())

	// A faulted worker refuses new runs until Reset.
	_, err = w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrWrongWorkerFlow)

	w.Reset()
	require.Equal(t, StateInited, w.State())
	_, err = w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrUnreachable)
}

func TestMemoryStoreLoad(t *testing.T) {
	m := newTestModule()
	m.addMemory(1)
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(8),
		wasm.I32Const(0x11223344),
		op(wasm.OptCodeI32Store),
		wasm.I32Const(8),
		op(wasm.OptCodeI32Load),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(0x11223344)}, results)
}

func TestMemoryNarrowLoads(t *testing.T) {
	m := newTestModule()
	mem := m.addMemory(1)
	mem.Buffer[0] = 0xff
	fn := m.addFunction(&wasm.FunctionType{
		Results: []wasm.ValueType{i32T, i32T},
	}, nil, []*wasm.Instruction{
		wasm.I32Const(0),
		op(wasm.OptCodeI32Load8s),
		wasm.I32Const(0),
		op(wasm.OptCodeI32Load8u),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(-1), wasm.I32Value(255)}, results)
}

func TestMemoryOutOfBounds(t *testing.T) {
	m := newTestModule()
	m.addMemory(1)

	// A 4-byte load two bytes from the end straddles the boundary.
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(wasm.PageSize - 2),
		op(wasm.OptCodeI32Load),
	})
	w := NewWorker(m.store)
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrMemoryOutOfBounds)

	// Base plus static offset overflowing 32 bits is out of bounds, not a wrap.
	fn = m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(-1), // 0xffffffff unsigned
		{Op: wasm.OptCodeI32Load, Offset: 4},
	})
	w = NewWorker(m.store)
	_, err = w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrMemoryOutOfBounds)
}

func TestMemorySizeGrow(t *testing.T) {
	m := newTestModule()
	m.addMemory(1)
	fn := m.addFunction(&wasm.FunctionType{
		Results: []wasm.ValueType{i32T, i32T},
	}, nil, []*wasm.Instruction{
		wasm.I32Const(2),
		op(wasm.OptCodeMemoryGrow), // returns previous page count
		op(wasm.OptCodeMemorySize),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(1), wasm.I32Value(3)}, results)
}

func TestIntegerDivisionTraps(t *testing.T) {
	m := newTestModule()
	w := NewWorker(m.store)

	run := func(body []*wasm.Instruction) ([]wasm.Value, error) {
		w.Reset()
		return w.RunStartFunction(m.addFunction(sigI32, nil, body))
	}

	_, err := run([]*wasm.Instruction{
		wasm.I32Const(1), wasm.I32Const(0), op(wasm.OptCodeI32DivS),
	})
	require.ErrorIs(t, err, wasm.ErrDivByZero)

	_, err = run([]*wasm.Instruction{
		wasm.I32Const(math.MinInt32), wasm.I32Const(-1), op(wasm.OptCodeI32DivS),
	})
	require.ErrorIs(t, err, wasm.ErrIntegerOverflow)

	// rem_s of MinInt32 by -1 is 0, not a trap.
	results, err := run([]*wasm.Instruction{
		wasm.I32Const(math.MinInt32), wasm.I32Const(-1), op(wasm.OptCodeI32RemS),
	})
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(0)}, results)

	_, err = run([]*wasm.Instruction{
		wasm.I64Const(1), wasm.I64Const(0), op(wasm.OptCodeI64DivU),
	})
	require.ErrorIs(t, err, wasm.ErrDivByZero)
}

func TestNumericOperandTagMismatch(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(1),
		wasm.I64Const(2),
		op(wasm.OptCodeI32Add),
	})

	w := NewWorker(m.store)
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrTypeMismatch)
}

func TestFloatArithmetic(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(&wasm.FunctionType{
		Results: []wasm.ValueType{wasm.ValueTypeF64, i32T},
	}, nil, []*wasm.Instruction{
		wasm.F64Const(1.5),
		wasm.F64Const(0.5),
		op(wasm.OptCodeF64Mul),
		wasm.F32Const(2.0),
		wasm.F32Const(2.0),
		op(wasm.OptCodeF32Ge),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.F64Value(0.75), wasm.I32Value(1)}, results)
}

func TestConversionOpcodeUnimplemented(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I64Const(1),
		op(wasm.OptCode(0xa7)), // i32.wrap_i64
	})

	w := NewWorker(m.store)
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrUnimplemented)
}

func TestSelect(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(10),
		wasm.I32Const(20),
		wasm.I32Const(1),
		op(wasm.OptCodeSelect),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(10)}, results)

	mismatch := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(10),
		wasm.I64Const(20),
		wasm.I32Const(0),
		op(wasm.OptCodeSelect),
	})
	w.Reset()
	_, err = w.RunStartFunction(mismatch)
	require.ErrorIs(t, err, wasm.ErrTypeMismatch)
}

func TestGlobals(t *testing.T) {
	m := newTestModule()
	m.addGlobal(&wasm.GlobalInstance{
		Type: &wasm.GlobalType{ValType: i32T, Mutable: true},
		Val:  wasm.I32Value(42),
	})
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		opIdx(wasm.OptCodeGlobalGet, 0),
		wasm.I32Const(1),
		op(wasm.OptCodeI32Add),
		opIdx(wasm.OptCodeGlobalSet, 0),
		opIdx(wasm.OptCodeGlobalGet, 0),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(43)}, results)
}

func TestGlobalSetImmutable(t *testing.T) {
	m := newTestModule()
	m.addGlobal(&wasm.GlobalInstance{
		Type: &wasm.GlobalType{ValType: i32T},
		Val:  wasm.I32Value(0),
	})
	fn := m.addFunction(sigNull, nil, []*wasm.Instruction{
		wasm.I32Const(1),
		opIdx(wasm.OptCodeGlobalSet, 0),
	})

	w := NewWorker(m.store)
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrImmutableGlobal)
}

func TestCallBetweenFunctions(t *testing.T) {
	m := newTestModule()
	m.addFunction(&wasm.FunctionType{
		Params:  []wasm.ValueType{i32T},
		Results: []wasm.ValueType{i32T},
	}, nil, []*wasm.Instruction{
		opIdx(wasm.OptCodeLocalGet, 0),
		opIdx(wasm.OptCodeLocalGet, 0),
		op(wasm.OptCodeI32Add),
	})
	caller := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(21),
		opIdx(wasm.OptCodeCall, 0), // module-local index of callee
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(caller)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(42)}, results)
}

func TestCallIndirect(t *testing.T) {
	m := newTestModule()
	callee := m.addFunction(sigI32, nil, []*wasm.Instruction{wasm.I32Const(42)}) // type 0
	m.addTable(callee)

	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{ // type 1, same shape
		wasm.I32Const(0),
		opIdx(wasm.OptCodeCallIndirect, 0),
	})

	w := NewWorker(m.store)
	results, err := w.RunStartFunction(fn)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(42)}, results)
}

func TestCallIndirectTypeMismatch(t *testing.T) {
	m := newTestModule()
	callee := m.addFunction(sigI32, nil, []*wasm.Instruction{wasm.I32Const(42)})
	m.addTable(callee)

	// Declared type disagrees with the callee's signature.
	declared := uint32(len(m.inst.Types))
	m.inst.Types = append(m.inst.Types, &wasm.FunctionType{Params: []wasm.ValueType{i32T}})
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(0),
		opIdx(wasm.OptCodeCallIndirect, declared),
	})

	w := NewWorker(m.store)
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrIndirectCallTypeMismatch)
}

func TestCallIndirectBadElement(t *testing.T) {
	m := newTestModule()
	callee := m.addFunction(sigI32, nil, []*wasm.Instruction{wasm.I32Const(42)})
	m.addTable(callee)
	fn := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(5),
		opIdx(wasm.OptCodeCallIndirect, 0),
	})

	w := NewWorker(m.store)
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrAddressOutOfRange)
}

func TestHostCallReadsInput(t *testing.T) {
	m := newTestModule()
	mem := m.addMemory(1)

	guest := m.addFunction(sigI32, nil, []*wasm.Instruction{
		wasm.I32Const(0),           // destination pointer
		opIdx(wasm.OptCodeCall, 1), // host function below
	})

	hf := wasm.NewHostFunction("env", "read",
		[]wasm.ValueType{i32T}, []wasm.ValueType{i32T},
		func(ctx *wasm.HostContext, args, results []wasm.Value) error {
			mem, err := ctx.Memory()
			if err != nil {
				return err
			}
			ptr := uint32(args[0].Raw())
			if err := mem.WriteBytes(ptr, ctx.Input); err != nil {
				return err
			}
			results[0] = wasm.I32Value(int32(len(ctx.Input)))
			return nil
		})
	_, err := m.store.AddHostFunction(m.inst, hf)
	require.NoError(t, err)

	w := NewWorker(m.store)
	w.SetArguments([]byte{0xaa, 0xbb})
	results, err := w.RunStartFunction(guest)
	require.NoError(t, err)
	require.Equal(t, []wasm.Value{wasm.I32Value(2)}, results)
	require.Equal(t, []byte{0xaa, 0xbb}, mem.Buffer[:2])
}

func TestHostCallFailurePushesNothing(t *testing.T) {
	m := newTestModule()
	boom := errors.New("boom")
	hf := wasm.NewHostFunction("env", "fail",
		nil, []wasm.ValueType{i32T},
		func(ctx *wasm.HostContext, args, results []wasm.Value) error {
			results[0] = wasm.I32Value(7)
			return boom
		})
	addr, err := m.store.AddHostFunction(m.inst, hf)
	require.NoError(t, err)

	w := NewWorker(m.store)
	_, err = w.RunStartFunction(addr)
	require.ErrorIs(t, err, wasm.ErrHostFunctionFailed)
	require.Empty(t, w.stack.topValues())
}

func TestStepBudgetInterrupts(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(sigNull, nil, []*wasm.Instruction{
		{
			Op:        wasm.OptCodeLoop,
			BlockType: sigNull,
			Body:      []*wasm.Instruction{opIdx(wasm.OptCodeBr, 0)},
		},
	})

	w := NewWorker(m.store, WithStepBudget(50))
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrInterrupted)
}

func TestRunExpression(t *testing.T) {
	m := newTestModule()
	w := NewWorker(m.store)
	v, err := w.RunExpression([]*wasm.Instruction{wasm.I32Const(7)})
	require.NoError(t, err)
	require.Equal(t, wasm.I32Value(7), v)

	// A finished worker is reusable without Reset.
	v, err = w.RunExpression([]*wasm.Instruction{wasm.I64Const(-3)})
	require.NoError(t, err)
	require.Equal(t, wasm.I64Value(-3), v)
}

func TestWorkerFlowGuards(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(sigNull, nil, []*wasm.Instruction{op(wasm.OptCodeUnreachable)})

	w := NewWorker(m.store)
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrUnreachable)

	err = w.PushArguments(wasm.I32Value(1))
	require.ErrorIs(t, err, wasm.ErrWrongWorkerFlow)

	_, err = w.RunExpression([]*wasm.Instruction{wasm.I32Const(1)})
	require.ErrorIs(t, err, wasm.ErrWrongWorkerFlow)
}

func TestParamTypeChecked(t *testing.T) {
	m := newTestModule()
	fn := m.addFunction(&wasm.FunctionType{
		Params: []wasm.ValueType{i32T},
	}, nil, []*wasm.Instruction{op(wasm.OptCodeDrop)})

	w := NewWorker(m.store)
	require.NoError(t, w.PushArguments(wasm.I64Value(1)))
	_, err := w.RunStartFunction(fn)
	require.ErrorIs(t, err, wasm.ErrTypeMismatch)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "inited", StateInited.String())
	require.Equal(t, "code set", StateCodeSet.String())
	require.Equal(t, "active", StateActive.String())
	require.Equal(t, "unreachable", StateUnreachable.String())
}
