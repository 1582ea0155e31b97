package wasm

// OptCode is a WebAssembly opcode byte.
// See https://www.w3.org/TR/wasm-core-1/#a7-index-of-instructions
type OptCode byte

const (
	// control instructions
	OptCodeUnreachable  OptCode = 0x00
	OptCodeNop          OptCode = 0x01
	OptCodeBlock        OptCode = 0x02
	OptCodeLoop         OptCode = 0x03
	OptCodeIf           OptCode = 0x04
	OptCodeBr           OptCode = 0x0c
	OptCodeBrIf         OptCode = 0x0d
	OptCodeBrTable      OptCode = 0x0e
	OptCodeReturn       OptCode = 0x0f
	OptCodeCall         OptCode = 0x10
	OptCodeCallIndirect OptCode = 0x11

	// parametric instructions
	OptCodeDrop   OptCode = 0x1a
	OptCodeSelect OptCode = 0x1b

	// variable instructions
	OptCodeLocalGet  OptCode = 0x20
	OptCodeLocalSet  OptCode = 0x21
	OptCodeLocalTee  OptCode = 0x22
	OptCodeGlobalGet OptCode = 0x23
	OptCodeGlobalSet OptCode = 0x24

	// memory instructions
	OptCodeI32Load    OptCode = 0x28
	OptCodeI64Load    OptCode = 0x29
	OptCodeF32Load    OptCode = 0x2a
	OptCodeF64Load    OptCode = 0x2b
	OptCodeI32Load8s  OptCode = 0x2c
	OptCodeI32Load8u  OptCode = 0x2d
	OptCodeI32Load16s OptCode = 0x2e
	OptCodeI32Load16u OptCode = 0x2f
	OptCodeI64Load8s  OptCode = 0x30
	OptCodeI64Load8u  OptCode = 0x31
	OptCodeI64Load16s OptCode = 0x32
	OptCodeI64Load16u OptCode = 0x33
	OptCodeI64Load32s OptCode = 0x34
	OptCodeI64Load32u OptCode = 0x35
	OptCodeI32Store   OptCode = 0x36
	OptCodeI64Store   OptCode = 0x37
	OptCodeF32Store   OptCode = 0x38
	OptCodeF64Store   OptCode = 0x39
	OptCodeI32Store8  OptCode = 0x3a
	OptCodeI32Store16 OptCode = 0x3b
	OptCodeI64Store8  OptCode = 0x3c
	OptCodeI64Store16 OptCode = 0x3d
	OptCodeI64Store32 OptCode = 0x3e
	OptCodeMemorySize OptCode = 0x3f
	OptCodeMemoryGrow OptCode = 0x40

	// const-numeric instructions
	OptCodeI32Const OptCode = 0x41
	OptCodeI64Const OptCode = 0x42
	OptCodeF32Const OptCode = 0x43
	OptCodeF64Const OptCode = 0x44

	// numeric instructions
	OptCodeI32Eqz OptCode = 0x45
	OptCodeI32Eq  OptCode = 0x46
	OptCodeI32Ne  OptCode = 0x47
	OptCodeI32LtS OptCode = 0x48
	OptCodeI32LtU OptCode = 0x49
	OptCodeI32GtS OptCode = 0x4a
	OptCodeI32GtU OptCode = 0x4b
	OptCodeI32LeS OptCode = 0x4c
	OptCodeI32LeU OptCode = 0x4d
	OptCodeI32GeS OptCode = 0x4e
	OptCodeI32GeU OptCode = 0x4f

	OptCodeI64Eqz OptCode = 0x50
	OptCodeI64Eq  OptCode = 0x51
	OptCodeI64Ne  OptCode = 0x52
	OptCodeI64LtS OptCode = 0x53
	OptCodeI64LtU OptCode = 0x54
	OptCodeI64GtS OptCode = 0x55
	OptCodeI64GtU OptCode = 0x56
	OptCodeI64LeS OptCode = 0x57
	OptCodeI64LeU OptCode = 0x58
	OptCodeI64GeS OptCode = 0x59
	OptCodeI64GeU OptCode = 0x5a

	OptCodeF32Eq OptCode = 0x5b
	OptCodeF32Ne OptCode = 0x5c
	OptCodeF32Lt OptCode = 0x5d
	OptCodeF32Gt OptCode = 0x5e
	OptCodeF32Le OptCode = 0x5f
	OptCodeF32Ge OptCode = 0x60

	OptCodeF64Eq OptCode = 0x61
	OptCodeF64Ne OptCode = 0x62
	OptCodeF64Lt OptCode = 0x63
	OptCodeF64Gt OptCode = 0x64
	OptCodeF64Le OptCode = 0x65
	OptCodeF64Ge OptCode = 0x66

	OptCodeI32Clz    OptCode = 0x67
	OptCodeI32Ctz    OptCode = 0x68
	OptCodeI32Popcnt OptCode = 0x69
	OptCodeI32Add    OptCode = 0x6a
	OptCodeI32Sub    OptCode = 0x6b
	OptCodeI32Mul    OptCode = 0x6c
	OptCodeI32DivS   OptCode = 0x6d
	OptCodeI32DivU   OptCode = 0x6e
	OptCodeI32RemS   OptCode = 0x6f
	OptCodeI32RemU   OptCode = 0x70
	OptCodeI32And    OptCode = 0x71
	OptCodeI32Or     OptCode = 0x72
	OptCodeI32Xor    OptCode = 0x73
	OptCodeI32Shl    OptCode = 0x74
	OptCodeI32ShrS   OptCode = 0x75
	OptCodeI32ShrU   OptCode = 0x76
	OptCodeI32Rotl   OptCode = 0x77
	OptCodeI32Rotr   OptCode = 0x78

	OptCodeI64Clz    OptCode = 0x79
	OptCodeI64Ctz    OptCode = 0x7a
	OptCodeI64Popcnt OptCode = 0x7b
	OptCodeI64Add    OptCode = 0x7c
	OptCodeI64Sub    OptCode = 0x7d
	OptCodeI64Mul    OptCode = 0x7e
	OptCodeI64DivS   OptCode = 0x7f
	OptCodeI64DivU   OptCode = 0x80
	OptCodeI64RemS   OptCode = 0x81
	OptCodeI64RemU   OptCode = 0x82
	OptCodeI64And    OptCode = 0x83
	OptCodeI64Or     OptCode = 0x84
	OptCodeI64Xor    OptCode = 0x85
	OptCodeI64Shl    OptCode = 0x86
	OptCodeI64ShrS   OptCode = 0x87
	OptCodeI64ShrU   OptCode = 0x88
	OptCodeI64Rotl   OptCode = 0x89
	OptCodeI64Rotr   OptCode = 0x8a

	OptCodeF32Add OptCode = 0x92
	OptCodeF32Sub OptCode = 0x93
	OptCodeF32Mul OptCode = 0x94
	OptCodeF32Div OptCode = 0x95

	OptCodeF64Add OptCode = 0xa0
	OptCodeF64Sub OptCode = 0xa1
	OptCodeF64Mul OptCode = 0xa2
	OptCodeF64Div OptCode = 0xa3
)

// IsConstNumeric reports whether op is one of the ty.const instructions.
func (op OptCode) IsConstNumeric() bool {
	return op >= OptCodeI32Const && op <= OptCodeF64Const
}

// IsControl reports whether op is a control instruction.
func (op OptCode) IsControl() bool { return op <= OptCodeCallIndirect }

// IsParametric reports whether op is drop or select.
func (op OptCode) IsParametric() bool { return op == OptCodeDrop || op == OptCodeSelect }

// IsVariable reports whether op is a local or global access instruction.
func (op OptCode) IsVariable() bool { return op >= OptCodeLocalGet && op <= OptCodeGlobalSet }

// IsMemory reports whether op is a load, store, memory.size or memory.grow.
func (op OptCode) IsMemory() bool { return op >= OptCodeI32Load && op <= OptCodeMemoryGrow }

// IsNumeric reports whether op is a numeric (test, comparison, arithmetic or
// conversion) instruction. Conversions dispatch here and are rejected as
// unimplemented by the interpreter.
func (op OptCode) IsNumeric() bool { return op >= OptCodeI32Eqz }

// Instruction is one decoded instruction. Structured control instructions
// carry their nested bodies; the decoder producing these is out of scope.
type Instruction struct {
	Op OptCode

	// Const carries the immediate of a ty.const instruction.
	Const Value

	// Index is the immediate of variable, br, br_if and call instructions,
	// and the type index of call_indirect.
	Index uint32

	// Offset and Align form the memarg of load/store instructions.
	Offset uint32
	Align  uint32

	// BlockType is the signature of a block, loop or if instruction.
	BlockType *FunctionType

	// Body is the instruction sequence of a block or loop, or the then-branch
	// of an if. Else is the else-branch of an if.
	Body []*Instruction
	Else []*Instruction

	// Labels and Default are the targets of a br_table.
	Labels  []uint32
	Default uint32
}

// I32Const and friends are shorthands for building instruction sequences in
// embedders and tests.
func I32Const(v int32) *Instruction {
	return &Instruction{Op: OptCodeI32Const, Const: I32Value(v)}
}

func I64Const(v int64) *Instruction {
	return &Instruction{Op: OptCodeI64Const, Const: I64Value(v)}
}

func F32Const(v float32) *Instruction {
	return &Instruction{Op: OptCodeF32Const, Const: F32Value(v)}
}

func F64Const(v float64) *Instruction {
	return &Instruction{Op: OptCodeF64Const, Const: F64Value(v)}
}
