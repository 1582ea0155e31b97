package eei

import (
	"go.uber.org/zap"

	"github.com/wasmkit/wasmkit/wasm"
)

func u32(v wasm.Value) uint32 { return uint32(v.Raw()) }

// storageStore reads a 32-byte key at the first pointer and a 32-byte value
// at the second, and writes the pair into storage.
func (e *Environment) storageStore(ctx *wasm.HostContext, args, results []wasm.Value) error {
	mem, err := ctx.Memory()
	if err != nil {
		return err
	}
	keyB, err := mem.ReadBytes(u32(args[0]), WordSize)
	if err != nil {
		return err
	}
	valB, err := mem.ReadBytes(u32(args[1]), WordSize)
	if err != nil {
		return err
	}
	var key, val Word
	copy(key[:], keyB)
	copy(val[:], valB)
	e.storage[key] = val
	e.logger.Debug("storageStore", zap.Binary("key", key[:]))
	return nil
}

// storageLoad reads a 32-byte key at the first pointer and writes the stored
// value, or the zero word for an absent key, at the second.
func (e *Environment) storageLoad(ctx *wasm.HostContext, args, results []wasm.Value) error {
	mem, err := ctx.Memory()
	if err != nil {
		return err
	}
	keyB, err := mem.ReadBytes(u32(args[0]), WordSize)
	if err != nil {
		return err
	}
	var key Word
	copy(key[:], keyB)
	val := e.storage[key]
	return mem.WriteBytes(u32(args[1]), val[:])
}

func (e *Environment) getCallDataSize(ctx *wasm.HostContext, args, results []wasm.Value) error {
	results[0] = wasm.I32Value(int32(len(ctx.Input)))
	return nil
}

// callDataCopy writes length bytes of call data starting at dataOffset to
// resultOffset in guest memory. Reads past the end of the call data are
// zero-filled, matching the environment interface's padding rule.
func (e *Environment) callDataCopy(ctx *wasm.HostContext, args, results []wasm.Value) error {
	resultOffset, dataOffset, length := u32(args[0]), u32(args[1]), u32(args[2])

	mem, err := ctx.Memory()
	if err != nil {
		return err
	}
	buf := make([]byte, length)
	if uint64(dataOffset) < uint64(len(ctx.Input)) {
		copy(buf, ctx.Input[dataOffset:])
	}
	return mem.WriteBytes(resultOffset, buf)
}
