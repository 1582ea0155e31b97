package wasi

import (
	"fmt"
	"math"
)

// stringArray holds null-terminated byte strings for args_get and
// environ_get. The count and total buffer size are bounded by uint32 because
// the guest receives both through i32 out-pointers.
type stringArray struct {
	values       [][]byte
	totalBufSize uint32
}

func newStringArray(ss []string) (*stringArray, error) {
	a := &stringArray{values: make([][]byte, 0, len(ss))}
	if uint64(len(ss)) > math.MaxUint32 {
		return nil, fmt.Errorf("string count %d exceeds uint32", len(ss))
	}
	for _, s := range ss {
		n := uint64(len(s)) + 1
		if n > uint64(math.MaxUint32-a.totalBufSize) {
			return nil, fmt.Errorf("string buffer exceeds uint32 at %q", s)
		}
		v := make([]byte, n)
		copy(v, s)
		a.values = append(a.values, v)
		a.totalBufSize += uint32(n)
	}
	return a, nil
}

func (a *stringArray) count() uint32 { return uint32(len(a.values)) }
