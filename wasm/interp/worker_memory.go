package interp

import (
	"encoding/binary"
	"fmt"

	"github.com/wasmkit/wasmkit/wasm"
)

func (w *Worker) runMemoryOp(instr *wasm.Instruction) error {
	switch instr.Op {
	case wasm.OptCodeMemorySize:
		return w.runMemorySize()
	case wasm.OptCodeMemoryGrow:
		return w.runMemoryGrow()
	}
	if instr.Op >= wasm.OptCodeI32Store {
		return w.runStoreOp(instr)
	}
	return w.runLoadOp(instr)
}

// currentMemory resolves the current frame's module to its first linear
// memory.
func (w *Worker) currentMemory() (*wasm.MemoryInstance, error) {
	f, err := w.stack.currentFrame()
	if err != nil {
		return nil, err
	}
	module, err := w.store.GetModule(f.moduleAddr)
	if err != nil {
		return nil, err
	}
	addr, err := module.MemAddr(0)
	if err != nil {
		return nil, err
	}
	return w.store.GetMemory(addr)
}

// effectiveAddr pops the i32 base and adds the instruction's static offset.
// The base is interpreted unsigned.
func (w *Worker) effectiveAddr(instr *wasm.Instruction) (uint32, error) {
	base, err := w.stack.popValue()
	if err != nil {
		return 0, err
	}
	b, err := base.I32()
	if err != nil {
		return 0, err
	}
	ea := uint64(uint32(b)) + uint64(instr.Offset)
	if ea > 0xffffffff {
		return 0, fmt.Errorf("%w: effective address %d", wasm.ErrMemoryOutOfBounds, ea)
	}
	return uint32(ea), nil
}

// runLoadOp reads the opcode's width in little-endian bytes at the effective
// address and pushes a value of the opcode's result type, sign- or
// zero-extending the narrow variants.
func (w *Worker) runLoadOp(instr *wasm.Instruction) error {
	mem, err := w.currentMemory()
	if err != nil {
		return err
	}
	ea, err := w.effectiveAddr(instr)
	if err != nil {
		return err
	}

	width := loadWidth(instr.Op)
	b, err := mem.ReadBytes(ea, width)
	if err != nil {
		return err
	}

	var raw uint64
	switch width {
	case 1:
		raw = uint64(b[0])
	case 2:
		raw = uint64(binary.LittleEndian.Uint16(b))
	case 4:
		raw = uint64(binary.LittleEndian.Uint32(b))
	case 8:
		raw = binary.LittleEndian.Uint64(b)
	}

	switch instr.Op {
	case wasm.OptCodeI32Load:
		w.stack.pushValue(wasm.I32Value(int32(uint32(raw))))
	case wasm.OptCodeI64Load:
		w.stack.pushValue(wasm.I64Value(int64(raw)))
	case wasm.OptCodeF32Load:
		w.stack.pushValue(wasm.F32Value(f32FromBits(uint32(raw))))
	case wasm.OptCodeF64Load:
		w.stack.pushValue(wasm.F64Value(f64FromBits(raw)))
	case wasm.OptCodeI32Load8s:
		w.stack.pushValue(wasm.I32Value(int32(int8(raw))))
	case wasm.OptCodeI32Load8u:
		w.stack.pushValue(wasm.I32Value(int32(uint8(raw))))
	case wasm.OptCodeI32Load16s:
		w.stack.pushValue(wasm.I32Value(int32(int16(raw))))
	case wasm.OptCodeI32Load16u:
		w.stack.pushValue(wasm.I32Value(int32(uint16(raw))))
	case wasm.OptCodeI64Load8s:
		w.stack.pushValue(wasm.I64Value(int64(int8(raw))))
	case wasm.OptCodeI64Load8u:
		w.stack.pushValue(wasm.I64Value(int64(uint8(raw))))
	case wasm.OptCodeI64Load16s:
		w.stack.pushValue(wasm.I64Value(int64(int16(raw))))
	case wasm.OptCodeI64Load16u:
		w.stack.pushValue(wasm.I64Value(int64(uint16(raw))))
	case wasm.OptCodeI64Load32s:
		w.stack.pushValue(wasm.I64Value(int64(int32(raw))))
	case wasm.OptCodeI64Load32u:
		w.stack.pushValue(wasm.I64Value(int64(uint32(raw))))
	default:
		return fmt.Errorf("%w: load opcode %#x", wasm.ErrUnimplemented, uint8(instr.Op))
	}
	return nil
}

// runStoreOp pops the value then the base address, checks the value's tag
// against the opcode's declared type, and writes the opcode's width from the
// value's low bits.
func (w *Worker) runStoreOp(instr *wasm.Instruction) error {
	mem, err := w.currentMemory()
	if err != nil {
		return err
	}
	v, err := w.stack.popValue()
	if err != nil {
		return err
	}
	if want := storeValueType(instr.Op); v.Type != want {
		return fmt.Errorf("%w: store wants %s, got %s",
			wasm.ErrTypeMismatch, wasm.ValueTypeName(want), wasm.ValueTypeName(v.Type))
	}
	ea, err := w.effectiveAddr(instr)
	if err != nil {
		return err
	}

	width := storeWidth(instr.Op)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v.Raw())
	return mem.WriteBytes(ea, buf[:width])
}

func (w *Worker) runMemorySize() error {
	mem, err := w.currentMemory()
	if err != nil {
		return err
	}
	w.stack.pushValue(wasm.I32Value(int32(mem.PageCount())))
	return nil
}

func (w *Worker) runMemoryGrow() error {
	mem, err := w.currentMemory()
	if err != nil {
		return err
	}
	delta, err := w.stack.popValue()
	if err != nil {
		return err
	}
	d, err := delta.I32()
	if err != nil {
		return err
	}
	w.stack.pushValue(wasm.I32Value(mem.Grow(uint32(d))))
	return nil
}

func loadWidth(op wasm.OptCode) uint32 {
	switch op {
	case wasm.OptCodeI32Load8s, wasm.OptCodeI32Load8u,
		wasm.OptCodeI64Load8s, wasm.OptCodeI64Load8u:
		return 1
	case wasm.OptCodeI32Load16s, wasm.OptCodeI32Load16u,
		wasm.OptCodeI64Load16s, wasm.OptCodeI64Load16u:
		return 2
	case wasm.OptCodeI32Load, wasm.OptCodeF32Load,
		wasm.OptCodeI64Load32s, wasm.OptCodeI64Load32u:
		return 4
	default:
		return 8
	}
}

func storeWidth(op wasm.OptCode) uint32 {
	switch op {
	case wasm.OptCodeI32Store8, wasm.OptCodeI64Store8:
		return 1
	case wasm.OptCodeI32Store16, wasm.OptCodeI64Store16:
		return 2
	case wasm.OptCodeI32Store, wasm.OptCodeF32Store, wasm.OptCodeI64Store32:
		return 4
	default:
		return 8
	}
}

func storeValueType(op wasm.OptCode) wasm.ValueType {
	switch op {
	case wasm.OptCodeI32Store, wasm.OptCodeI32Store8, wasm.OptCodeI32Store16:
		return wasm.ValueTypeI32
	case wasm.OptCodeF32Store:
		return wasm.ValueTypeF32
	case wasm.OptCodeF64Store:
		return wasm.ValueTypeF64
	default:
		return wasm.ValueTypeI64
	}
}
