package interp

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/wasmkit/wasmkit/wasm"
)

func f32FromBits(b uint32) float32 { return math.Float32frombits(b) }
func f64FromBits(b uint64) float64 { return math.Float64frombits(b) }

func (w *Worker) runNumericOp(instr *wasm.Instruction) error {
	op := instr.Op
	switch {
	case op == wasm.OptCodeI32Eqz || op == wasm.OptCodeI64Eqz:
		return w.runTestOp(op)
	case op >= wasm.OptCodeI32Eq && op <= wasm.OptCodeI64GeU:
		return w.runIntRelOp(op)
	case op >= wasm.OptCodeF32Eq && op <= wasm.OptCodeF64Ge:
		return w.runFloatRelOp(op)
	case op >= wasm.OptCodeI32Clz && op <= wasm.OptCodeI32Popcnt:
		return w.runI32UnOp(op)
	case op >= wasm.OptCodeI32Add && op <= wasm.OptCodeI32Rotr:
		return w.runI32BinOp(op)
	case op >= wasm.OptCodeI64Clz && op <= wasm.OptCodeI64Popcnt:
		return w.runI64UnOp(op)
	case op >= wasm.OptCodeI64Add && op <= wasm.OptCodeI64Rotr:
		return w.runI64BinOp(op)
	case op >= wasm.OptCodeF32Add && op <= wasm.OptCodeF32Div:
		return w.runF32BinOp(op)
	case op >= wasm.OptCodeF64Add && op <= wasm.OptCodeF64Div:
		return w.runF64BinOp(op)
	}
	return fmt.Errorf("%w: numeric opcode %#x", wasm.ErrUnimplemented, uint8(op))
}

// popOperands pops the right operand then the left and requires matching tags.
func (w *Worker) popOperands() (wasm.Value, wasm.Value, error) {
	v2, err := w.stack.popValue()
	if err != nil {
		return wasm.Value{}, wasm.Value{}, err
	}
	v1, err := w.stack.popValue()
	if err != nil {
		return wasm.Value{}, wasm.Value{}, err
	}
	if !v1.SameType(v2) {
		return wasm.Value{}, wasm.Value{}, fmt.Errorf("%w: operands %s and %s",
			wasm.ErrTypeMismatch, wasm.ValueTypeName(v1.Type), wasm.ValueTypeName(v2.Type))
	}
	return v1, v2, nil
}

func boolToI32(b bool) wasm.Value {
	if b {
		return wasm.I32Value(1)
	}
	return wasm.I32Value(0)
}

func (w *Worker) runTestOp(op wasm.OptCode) error {
	v, err := w.stack.popValue()
	if err != nil {
		return err
	}
	switch op {
	case wasm.OptCodeI32Eqz:
		x, err := v.I32()
		if err != nil {
			return err
		}
		w.stack.pushValue(boolToI32(x == 0))
	case wasm.OptCodeI64Eqz:
		x, err := v.I64()
		if err != nil {
			return err
		}
		w.stack.pushValue(boolToI32(x == 0))
	}
	return nil
}

func (w *Worker) runIntRelOp(op wasm.OptCode) error {
	v1, v2, err := w.popOperands()
	if err != nil {
		return err
	}

	if op <= wasm.OptCodeI32GeU {
		a, err := v1.I32()
		if err != nil {
			return err
		}
		b, err := v2.I32()
		if err != nil {
			return err
		}
		var r bool
		switch op {
		case wasm.OptCodeI32Eq:
			r = a == b
		case wasm.OptCodeI32Ne:
			r = a != b
		case wasm.OptCodeI32LtS:
			r = a < b
		case wasm.OptCodeI32LtU:
			r = uint32(a) < uint32(b)
		case wasm.OptCodeI32GtS:
			r = a > b
		case wasm.OptCodeI32GtU:
			r = uint32(a) > uint32(b)
		case wasm.OptCodeI32LeS:
			r = a <= b
		case wasm.OptCodeI32LeU:
			r = uint32(a) <= uint32(b)
		case wasm.OptCodeI32GeS:
			r = a >= b
		case wasm.OptCodeI32GeU:
			r = uint32(a) >= uint32(b)
		}
		w.stack.pushValue(boolToI32(r))
		return nil
	}

	a, err := v1.I64()
	if err != nil {
		return err
	}
	b, err := v2.I64()
	if err != nil {
		return err
	}
	var r bool
	switch op {
	case wasm.OptCodeI64Eq:
		r = a == b
	case wasm.OptCodeI64Ne:
		r = a != b
	case wasm.OptCodeI64LtS:
		r = a < b
	case wasm.OptCodeI64LtU:
		r = uint64(a) < uint64(b)
	case wasm.OptCodeI64GtS:
		r = a > b
	case wasm.OptCodeI64GtU:
		r = uint64(a) > uint64(b)
	case wasm.OptCodeI64LeS:
		r = a <= b
	case wasm.OptCodeI64LeU:
		r = uint64(a) <= uint64(b)
	case wasm.OptCodeI64GeS:
		r = a >= b
	case wasm.OptCodeI64GeU:
		r = uint64(a) >= uint64(b)
	}
	w.stack.pushValue(boolToI32(r))
	return nil
}

func (w *Worker) runFloatRelOp(op wasm.OptCode) error {
	v1, v2, err := w.popOperands()
	if err != nil {
		return err
	}

	if op <= wasm.OptCodeF32Ge {
		a, err := v1.F32()
		if err != nil {
			return err
		}
		b, err := v2.F32()
		if err != nil {
			return err
		}
		var r bool
		switch op {
		case wasm.OptCodeF32Eq:
			r = a == b
		case wasm.OptCodeF32Ne:
			r = a != b
		case wasm.OptCodeF32Lt:
			r = a < b
		case wasm.OptCodeF32Gt:
			r = a > b
		case wasm.OptCodeF32Le:
			r = a <= b
		case wasm.OptCodeF32Ge:
			r = a >= b
		}
		w.stack.pushValue(boolToI32(r))
		return nil
	}

	a, err := v1.F64()
	if err != nil {
		return err
	}
	b, err := v2.F64()
	if err != nil {
		return err
	}
	var r bool
	switch op {
	case wasm.OptCodeF64Eq:
		r = a == b
	case wasm.OptCodeF64Ne:
		r = a != b
	case wasm.OptCodeF64Lt:
		r = a < b
	case wasm.OptCodeF64Gt:
		r = a > b
	case wasm.OptCodeF64Le:
		r = a <= b
	case wasm.OptCodeF64Ge:
		r = a >= b
	}
	w.stack.pushValue(boolToI32(r))
	return nil
}

func (w *Worker) runI32UnOp(op wasm.OptCode) error {
	v, err := w.stack.popValue()
	if err != nil {
		return err
	}
	x, err := v.I32()
	if err != nil {
		return err
	}
	var r int32
	switch op {
	case wasm.OptCodeI32Clz:
		r = int32(bits.LeadingZeros32(uint32(x)))
	case wasm.OptCodeI32Ctz:
		r = int32(bits.TrailingZeros32(uint32(x)))
	case wasm.OptCodeI32Popcnt:
		r = int32(bits.OnesCount32(uint32(x)))
	}
	w.stack.pushValue(wasm.I32Value(r))
	return nil
}

func (w *Worker) runI64UnOp(op wasm.OptCode) error {
	v, err := w.stack.popValue()
	if err != nil {
		return err
	}
	x, err := v.I64()
	if err != nil {
		return err
	}
	var r int64
	switch op {
	case wasm.OptCodeI64Clz:
		r = int64(bits.LeadingZeros64(uint64(x)))
	case wasm.OptCodeI64Ctz:
		r = int64(bits.TrailingZeros64(uint64(x)))
	case wasm.OptCodeI64Popcnt:
		r = int64(bits.OnesCount64(uint64(x)))
	}
	w.stack.pushValue(wasm.I64Value(r))
	return nil
}

// runI32BinOp applies op to the two popped i32 operands. Signed division and
// remainder trap on a zero divisor; division additionally traps on the
// MinInt32/-1 overflow case. Remainder of MinInt32/-1 is 0, not a trap.
func (w *Worker) runI32BinOp(op wasm.OptCode) error {
	v1, v2, err := w.popOperands()
	if err != nil {
		return err
	}
	a, err := v1.I32()
	if err != nil {
		return err
	}
	b, err := v2.I32()
	if err != nil {
		return err
	}

	var r int32
	switch op {
	case wasm.OptCodeI32Add:
		r = a + b
	case wasm.OptCodeI32Sub:
		r = a - b
	case wasm.OptCodeI32Mul:
		r = a * b
	case wasm.OptCodeI32DivS:
		if b == 0 {
			return fmt.Errorf("%w: i32.div_s", wasm.ErrDivByZero)
		}
		if a == math.MinInt32 && b == -1 {
			return fmt.Errorf("%w: i32.div_s", wasm.ErrIntegerOverflow)
		}
		r = a / b
	case wasm.OptCodeI32DivU:
		if b == 0 {
			return fmt.Errorf("%w: i32.div_u", wasm.ErrDivByZero)
		}
		r = int32(uint32(a) / uint32(b))
	case wasm.OptCodeI32RemS:
		if b == 0 {
			return fmt.Errorf("%w: i32.rem_s", wasm.ErrDivByZero)
		}
		if a == math.MinInt32 && b == -1 {
			r = 0
		} else {
			r = a % b
		}
	case wasm.OptCodeI32RemU:
		if b == 0 {
			return fmt.Errorf("%w: i32.rem_u", wasm.ErrDivByZero)
		}
		r = int32(uint32(a) % uint32(b))
	case wasm.OptCodeI32And:
		r = a & b
	case wasm.OptCodeI32Or:
		r = a | b
	case wasm.OptCodeI32Xor:
		r = a ^ b
	case wasm.OptCodeI32Shl:
		r = a << (uint32(b) % 32)
	case wasm.OptCodeI32ShrS:
		r = a >> (uint32(b) % 32)
	case wasm.OptCodeI32ShrU:
		r = int32(uint32(a) >> (uint32(b) % 32))
	case wasm.OptCodeI32Rotl:
		r = int32(bits.RotateLeft32(uint32(a), int(uint32(b)%32)))
	case wasm.OptCodeI32Rotr:
		r = int32(bits.RotateLeft32(uint32(a), -int(uint32(b)%32)))
	}
	w.stack.pushValue(wasm.I32Value(r))
	return nil
}

func (w *Worker) runI64BinOp(op wasm.OptCode) error {
	v1, v2, err := w.popOperands()
	if err != nil {
		return err
	}
	a, err := v1.I64()
	if err != nil {
		return err
	}
	b, err := v2.I64()
	if err != nil {
		return err
	}

	var r int64
	switch op {
	case wasm.OptCodeI64Add:
		r = a + b
	case wasm.OptCodeI64Sub:
		r = a - b
	case wasm.OptCodeI64Mul:
		r = a * b
	case wasm.OptCodeI64DivS:
		if b == 0 {
			return fmt.Errorf("%w: i64.div_s", wasm.ErrDivByZero)
		}
		if a == math.MinInt64 && b == -1 {
			return fmt.Errorf("%w: i64.div_s", wasm.ErrIntegerOverflow)
		}
		r = a / b
	case wasm.OptCodeI64DivU:
		if b == 0 {
			return fmt.Errorf("%w: i64.div_u", wasm.ErrDivByZero)
		}
		r = int64(uint64(a) / uint64(b))
	case wasm.OptCodeI64RemS:
		if b == 0 {
			return fmt.Errorf("%w: i64.rem_s", wasm.ErrDivByZero)
		}
		if a == math.MinInt64 && b == -1 {
			r = 0
		} else {
			r = a % b
		}
	case wasm.OptCodeI64RemU:
		if b == 0 {
			return fmt.Errorf("%w: i64.rem_u", wasm.ErrDivByZero)
		}
		r = int64(uint64(a) % uint64(b))
	case wasm.OptCodeI64And:
		r = a & b
	case wasm.OptCodeI64Or:
		r = a | b
	case wasm.OptCodeI64Xor:
		r = a ^ b
	case wasm.OptCodeI64Shl:
		r = a << (uint64(b) % 64)
	case wasm.OptCodeI64ShrS:
		r = a >> (uint64(b) % 64)
	case wasm.OptCodeI64ShrU:
		r = int64(uint64(a) >> (uint64(b) % 64))
	case wasm.OptCodeI64Rotl:
		r = int64(bits.RotateLeft64(uint64(a), int(uint64(b)%64)))
	case wasm.OptCodeI64Rotr:
		r = int64(bits.RotateLeft64(uint64(a), -int(uint64(b)%64)))
	}
	w.stack.pushValue(wasm.I64Value(r))
	return nil
}

func (w *Worker) runF32BinOp(op wasm.OptCode) error {
	v1, v2, err := w.popOperands()
	if err != nil {
		return err
	}
	a, err := v1.F32()
	if err != nil {
		return err
	}
	b, err := v2.F32()
	if err != nil {
		return err
	}

	var r float32
	switch op {
	case wasm.OptCodeF32Add:
		r = a + b
	case wasm.OptCodeF32Sub:
		r = a - b
	case wasm.OptCodeF32Mul:
		r = a * b
	case wasm.OptCodeF32Div:
		r = a / b
	}
	w.stack.pushValue(wasm.F32Value(r))
	return nil
}

func (w *Worker) runF64BinOp(op wasm.OptCode) error {
	v1, v2, err := w.popOperands()
	if err != nil {
		return err
	}
	a, err := v1.F64()
	if err != nil {
		return err
	}
	b, err := v2.F64()
	if err != nil {
		return err
	}

	var r float64
	switch op {
	case wasm.OptCodeF64Add:
		r = a + b
	case wasm.OptCodeF64Sub:
		r = a - b
	case wasm.OptCodeF64Mul:
		r = a * b
	case wasm.OptCodeF64Div:
		r = a / b
	}
	w.stack.pushValue(wasm.F64Value(r))
	return nil
}
