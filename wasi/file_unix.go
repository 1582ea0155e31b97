//go:build linux || darwin
// +build linux darwin

package wasi

import (
	"io"

	"golang.org/x/sys/unix"
)

// RawFile wraps an operating-system descriptor with direct unix syscalls,
// bypassing the runtime poller. Guests that loop on fd_read see the same
// short-read behavior the kernel gives.
type RawFile struct {
	fd int
}

// OpenRaw opens path with the given open(2) flags and mode and returns it
// as a File backed by the raw descriptor.
func OpenRaw(path string, flags int, mode uint32) (*RawFile, error) {
	fd, err := unix.Open(path, flags, mode)
	if err != nil {
		return nil, err
	}
	return &RawFile{fd: fd}, nil
}

func (f *RawFile) Read(p []byte) (int, error) {
	n, err := unix.Read(f.fd, p)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (f *RawFile) Write(p []byte) (int, error) {
	n, err := unix.Write(f.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (f *RawFile) Close() error { return unix.Close(f.fd) }
