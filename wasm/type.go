package wasm

// FunctionType is a function signature: ordered parameter and result types.
type FunctionType struct {
	Params, Results []ValueType
}

func (t *FunctionType) String() (ret string) {
	for _, b := range t.Params {
		ret += ValueTypeName(b)
	}
	if len(t.Params) == 0 {
		ret += "null"
	}
	ret += "_"
	for _, b := range t.Results {
		ret += ValueTypeName(b)
	}
	if len(t.Results) == 0 {
		ret += "null"
	}
	return
}

// HasSameSignature reports whether two type vectors are identical. Used by
// call_indirect's runtime signature check.
func HasSameSignature(a []ValueType, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GlobalType pairs a global's scalar type with its mutability flag.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}
