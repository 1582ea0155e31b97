package wasi

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wasmkit/wasmkit/wasm"
)

const (
	wasiUnstableName         = "wasi_unstable"
	wasiSnapshotPreview1Name = "wasi_snapshot_preview1"
)

// Environment provides the WASI snapshot-01 host functions over an
// opened-files table. Descriptors 0, 1 and 2 resolve to the configured
// stdin, stdout and stderr; other descriptors resolve through files added
// with OpenFile.
type Environment struct {
	args    *stringArray
	environ *stringArray
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	opened  map[uint32]File
	nextFD  uint32

	// exitCode is set by proc_exit before the call unwinds.
	exitCode *uint32

	logger *zap.Logger
}

// Option configures an Environment.
type Option func(*Environment)

// Stdin replaces the reader behind descriptor 0.
func Stdin(r io.Reader) Option {
	return func(e *Environment) { e.stdin = r }
}

// Stdout replaces the writer behind descriptor 1.
func Stdout(w io.Writer) Option {
	return func(e *Environment) { e.stdout = w }
}

// Stderr replaces the writer behind descriptor 2.
func Stderr(w io.Writer) Option {
	return func(e *Environment) { e.stderr = w }
}

// Args sets the command-line arguments served by args_sizes_get and
// args_get. It fails if the count or total encoded size exceeds uint32.
func Args(args []string) (Option, error) {
	a, err := newStringArray(args)
	if err != nil {
		return nil, err
	}
	return func(e *Environment) { e.args = a }, nil
}

// Environ sets the environment variables served by environ_sizes_get and
// environ_get. Entries are expected in "key=value" form.
func Environ(vars []string) (Option, error) {
	a, err := newStringArray(vars)
	if err != nil {
		return nil, err
	}
	return func(e *Environment) { e.environ = a }, nil
}

// WithLogger replaces the environment's logger. The default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

// NewEnvironment returns an environment with std streams bound to the
// process's own.
func NewEnvironment(opts ...Option) *Environment {
	e := &Environment{
		args:    &stringArray{},
		environ: &stringArray{},
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		opened:  map[uint32]File{},
		nextFD:  3,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OpenFile adds f to the opened-files table and returns its descriptor.
func (e *Environment) OpenFile(f File) uint32 {
	fd := e.nextFD
	for {
		if _, ok := e.opened[fd]; !ok {
			break
		}
		fd++
	}
	e.opened[fd] = f
	e.nextFD = fd + 1
	return fd
}

// ExitCode returns the code passed to proc_exit and whether it was called.
func (e *Environment) ExitCode() (uint32, bool) {
	if e.exitCode == nil {
		return 0, false
	}
	return *e.exitCode, true
}

// Register binds every host function under both the wasi_unstable and
// wasi_snapshot_preview1 module names into m's function index space.
func (e *Environment) Register(store *wasm.Store, m *wasm.ModuleInstance) error {
	i32 := wasm.ValueTypeI32
	fns := []*wasm.HostFunction{}
	for _, moduleName := range []string{wasiUnstableName, wasiSnapshotPreview1Name} {
		fns = append(fns,
			wasm.NewHostFunction(moduleName, "proc_exit",
				[]wasm.ValueType{i32}, nil, e.procExit),
			wasm.NewHostFunction(moduleName, "fd_read",
				[]wasm.ValueType{i32, i32, i32, i32}, []wasm.ValueType{i32}, e.fdRead),
			wasm.NewHostFunction(moduleName, "fd_write",
				[]wasm.ValueType{i32, i32, i32, i32}, []wasm.ValueType{i32}, e.fdWrite),
			wasm.NewHostFunction(moduleName, "fd_close",
				[]wasm.ValueType{i32}, []wasm.ValueType{i32}, e.fdClose),
			wasm.NewHostFunction(moduleName, "args_sizes_get",
				[]wasm.ValueType{i32, i32}, []wasm.ValueType{i32}, e.argsSizesGet),
			wasm.NewHostFunction(moduleName, "args_get",
				[]wasm.ValueType{i32, i32}, []wasm.ValueType{i32}, e.argsGet),
			wasm.NewHostFunction(moduleName, "environ_sizes_get",
				[]wasm.ValueType{i32, i32}, []wasm.ValueType{i32}, e.environSizesGet),
			wasm.NewHostFunction(moduleName, "environ_get",
				[]wasm.ValueType{i32, i32}, []wasm.ValueType{i32}, e.environGet),
		)
	}
	for _, hf := range fns {
		if _, err := store.AddHostFunction(m, hf); err != nil {
			return err
		}
	}
	return nil
}
