package wasi

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/wasmkit/wasmkit/wasm"
)

// ExitError unwinds a run after the guest calls proc_exit. The engine reports
// it as wasm.ErrHostFunctionFailed with this error's text in the message; the
// ExitError itself is not wrapped there, so embedders read the code with
// Environment.ExitCode.
type ExitError struct {
	Code uint32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("proc_exit(%d)", e.Code)
}

// u32 reads an i32 argument as unsigned. The engine has already checked the
// value's tag against the declared signature.
func u32(v wasm.Value) uint32 { return uint32(v.Raw()) }

func errnoResult(results []wasm.Value, e Errno) error {
	results[0] = wasm.I32Value(int32(e))
	return nil
}

func (e *Environment) reader(fd uint32) (io.Reader, Errno) {
	if fd == 0 {
		return e.stdin, ESUCCESS
	}
	f, ok := e.opened[fd]
	if !ok {
		return nil, EBADF
	}
	return f, ESUCCESS
}

func (e *Environment) writer(fd uint32) (io.Writer, Errno) {
	switch fd {
	case 1:
		return e.stdout, ESUCCESS
	case 2:
		return e.stderr, ESUCCESS
	}
	f, ok := e.opened[fd]
	if !ok {
		return nil, EBADF
	}
	return f, ESUCCESS
}

// iovec is one guest-side scatter/gather entry: a pointer and a length,
// both little-endian u32.
func readIovec(mem *wasm.MemoryInstance, iovsPtr, i uint32) (buf []byte, errno Errno) {
	iovPtr := iovsPtr + i*8
	offset, err := mem.ReadUint32(iovPtr)
	if err != nil {
		return nil, EFAULT
	}
	l, err := mem.ReadUint32(iovPtr + 4)
	if err != nil {
		return nil, EFAULT
	}
	b, err := mem.ReadBytes(offset, l)
	if err != nil {
		return nil, EFAULT
	}
	return b, ESUCCESS
}

// fdRead fills the guest's iovec list from the descriptor and writes the
// byte count to nreadPtr. A failed read is detected before the count is
// widened, so a backend's negative return never corrupts the total; it fails
// the host call with an error naming EIO, which the engine reports as
// wasm.ErrHostFunctionFailed.
func (e *Environment) fdRead(ctx *wasm.HostContext, args, results []wasm.Value) error {
	fd, iovsPtr, iovsLen, nreadPtr := u32(args[0]), u32(args[1]), u32(args[2]), u32(args[3])

	mem, err := ctx.Memory()
	if err != nil {
		return err
	}
	r, errno := e.reader(fd)
	if errno != ESUCCESS {
		return errnoResult(results, errno)
	}

	var nread uint32
	for i := uint32(0); i < iovsLen; i++ {
		buf, errno := readIovec(mem, iovsPtr, i)
		if errno != ESUCCESS {
			return errnoResult(results, errno)
		}
		n, err := r.Read(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			e.logger.Debug("fd_read failed", zap.Uint32("fd", fd), zap.Error(err))
			results[0] = wasm.I32Value(int32(EIO))
			return fmt.Errorf("fd_read on fd %d: %s: %w", fd, EIO, err)
		}
		nread += uint32(n)
		if errors.Is(err, io.EOF) || uint32(n) < uint32(len(buf)) {
			break
		}
	}
	if err := mem.PutUint32(nreadPtr, nread); err != nil {
		return errnoResult(results, EFAULT)
	}
	return errnoResult(results, ESUCCESS)
}

// fdWrite drains the guest's iovec list into the descriptor and writes the
// byte count to nwrittenPtr.
func (e *Environment) fdWrite(ctx *wasm.HostContext, args, results []wasm.Value) error {
	fd, iovsPtr, iovsLen, nwrittenPtr := u32(args[0]), u32(args[1]), u32(args[2]), u32(args[3])

	mem, err := ctx.Memory()
	if err != nil {
		return err
	}
	w, errno := e.writer(fd)
	if errno != ESUCCESS {
		return errnoResult(results, errno)
	}

	var nwritten uint32
	for i := uint32(0); i < iovsLen; i++ {
		buf, errno := readIovec(mem, iovsPtr, i)
		if errno != ESUCCESS {
			return errnoResult(results, errno)
		}
		n, err := w.Write(buf)
		if err != nil {
			e.logger.Debug("fd_write failed", zap.Uint32("fd", fd), zap.Error(err))
			return errnoResult(results, EIO)
		}
		nwritten += uint32(n)
	}
	if err := mem.PutUint32(nwrittenPtr, nwritten); err != nil {
		return errnoResult(results, EFAULT)
	}
	return errnoResult(results, ESUCCESS)
}

func (e *Environment) fdClose(ctx *wasm.HostContext, args, results []wasm.Value) error {
	fd := u32(args[0])
	f, ok := e.opened[fd]
	if !ok {
		return errnoResult(results, EBADF)
	}
	if err := f.Close(); err != nil {
		e.logger.Debug("fd_close failed", zap.Uint32("fd", fd), zap.Error(err))
		return errnoResult(results, EIO)
	}
	delete(e.opened, fd)
	return errnoResult(results, ESUCCESS)
}

func (e *Environment) argsSizesGet(ctx *wasm.HostContext, args, results []wasm.Value) error {
	return e.sizesGet(ctx, e.args, u32(args[0]), u32(args[1]), results)
}

func (e *Environment) argsGet(ctx *wasm.HostContext, args, results []wasm.Value) error {
	return e.arrayGet(ctx, e.args, u32(args[0]), u32(args[1]), results)
}

func (e *Environment) environSizesGet(ctx *wasm.HostContext, args, results []wasm.Value) error {
	return e.sizesGet(ctx, e.environ, u32(args[0]), u32(args[1]), results)
}

func (e *Environment) environGet(ctx *wasm.HostContext, args, results []wasm.Value) error {
	return e.arrayGet(ctx, e.environ, u32(args[0]), u32(args[1]), results)
}

// sizesGet writes the array's entry count and total buffer size to the two
// out-pointers (the args_sizes_get / environ_sizes_get shape).
func (e *Environment) sizesGet(ctx *wasm.HostContext, a *stringArray, countPtr, bufSizePtr uint32, results []wasm.Value) error {
	mem, err := ctx.Memory()
	if err != nil {
		return err
	}
	if err := mem.PutUint32(countPtr, a.count()); err != nil {
		return errnoResult(results, EFAULT)
	}
	if err := mem.PutUint32(bufSizePtr, a.totalBufSize); err != nil {
		return errnoResult(results, EFAULT)
	}
	return errnoResult(results, ESUCCESS)
}

// arrayGet writes the null-terminated strings to bufPtr and one guest
// pointer per entry to ptrsPtr (the args_get / environ_get shape).
func (e *Environment) arrayGet(ctx *wasm.HostContext, a *stringArray, ptrsPtr, bufPtr uint32, results []wasm.Value) error {
	mem, err := ctx.Memory()
	if err != nil {
		return err
	}
	for _, v := range a.values {
		if err := mem.PutUint32(ptrsPtr, bufPtr); err != nil {
			return errnoResult(results, EFAULT)
		}
		ptrsPtr += 4
		if err := mem.WriteBytes(bufPtr, v); err != nil {
			return errnoResult(results, EFAULT)
		}
		bufPtr += uint32(len(v))
	}
	return errnoResult(results, ESUCCESS)
}

// procExit records the code and fails the host call so the engine unwinds
// the run. The embedder distinguishes a guest exit from a genuine fault by
// checking ExitCode after the run.
func (e *Environment) procExit(ctx *wasm.HostContext, args, results []wasm.Value) error {
	code := u32(args[0])
	e.exitCode = &code
	return &ExitError{Code: code}
}
