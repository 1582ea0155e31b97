package wasi

import (
	"bytes"
	"io"
)

// File is an entry in the opened-files table. Descriptors above 2 resolve
// to one of these.
type File interface {
	io.Reader
	io.Writer
	io.Closer
}

// memFile is an in-memory File for tests and embedders that feed guests
// from byte buffers.
type memFile struct {
	r *bytes.Reader
	w bytes.Buffer
}

// NewMemFile returns a File that reads from data and buffers writes.
func NewMemFile(data []byte) File {
	return &memFile{r: bytes.NewReader(data)}
}

func (f *memFile) Read(p []byte) (int, error)  { return f.r.Read(p) }
func (f *memFile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *memFile) Close() error                { return nil }
