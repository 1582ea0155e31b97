package wasm

import (
	"fmt"
	"math"
)

// ValueType is the binary encoding of a scalar type such as i32.
// See https://www.w3.org/TR/wasm-core-1/#binary-valtype
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the type name of the given ValueType as a string.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// Value is a tagged scalar: exactly one of i32, i64, f32 or f64.
// The tag is observable; typed reads fail with ErrTypeMismatch when the
// tag disagrees with the requested type.
type Value struct {
	Type ValueType
	raw  uint64
}

func I32Value(v int32) Value { return Value{Type: ValueTypeI32, raw: uint64(uint32(v))} }
func I64Value(v int64) Value { return Value{Type: ValueTypeI64, raw: uint64(v)} }
func F32Value(v float32) Value {
	return Value{Type: ValueTypeF32, raw: uint64(math.Float32bits(v))}
}
func F64Value(v float64) Value { return Value{Type: ValueTypeF64, raw: math.Float64bits(v)} }

// ZeroValue returns the zero of the given type. Frame locals start out this way.
func ZeroValue(t ValueType) Value { return Value{Type: t} }

// Raw returns the value's untyped bit pattern. i32 and f32 occupy the low 32 bits.
func (v Value) Raw() uint64 { return v.raw }

func (v Value) I32() (int32, error) {
	if v.Type != ValueTypeI32 {
		return 0, fmt.Errorf("%w: %s is not i32", ErrTypeMismatch, ValueTypeName(v.Type))
	}
	return int32(uint32(v.raw)), nil
}

func (v Value) I64() (int64, error) {
	if v.Type != ValueTypeI64 {
		return 0, fmt.Errorf("%w: %s is not i64", ErrTypeMismatch, ValueTypeName(v.Type))
	}
	return int64(v.raw), nil
}

func (v Value) F32() (float32, error) {
	if v.Type != ValueTypeF32 {
		return 0, fmt.Errorf("%w: %s is not f32", ErrTypeMismatch, ValueTypeName(v.Type))
	}
	return math.Float32frombits(uint32(v.raw)), nil
}

func (v Value) F64() (float64, error) {
	if v.Type != ValueTypeF64 {
		return 0, fmt.Errorf("%w: %s is not f64", ErrTypeMismatch, ValueTypeName(v.Type))
	}
	return math.Float64frombits(v.raw), nil
}

// SameType reports whether both values carry the same tag. Binary and
// comparison operations require this of their operands.
func (v Value) SameType(other Value) bool { return v.Type == other.Type }

func (v Value) String() string {
	switch v.Type {
	case ValueTypeI32:
		return fmt.Sprintf("i32:%d", int32(uint32(v.raw)))
	case ValueTypeI64:
		return fmt.Sprintf("i64:%d", int64(v.raw))
	case ValueTypeF32:
		return fmt.Sprintf("f32:%g", math.Float32frombits(uint32(v.raw)))
	case ValueTypeF64:
		return fmt.Sprintf("f64:%g", math.Float64frombits(v.raw))
	}
	return fmt.Sprintf("unknown:%#x", v.raw)
}
