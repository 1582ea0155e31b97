package wasm

import (
	"encoding/binary"
	"fmt"
)

// PageSize is the size of one linear memory page in bytes.
// See https://www.w3.org/TR/wasm-core-1/#memory-instances%E2%91%A0
const PageSize = 65536

// MemoryInstance is a contiguous byte buffer supporting little-endian,
// bounds-checked loads and stores.
type MemoryInstance struct {
	Buffer []byte
	Min    uint32
	Max    *uint32
}

// NewMemoryInstance allocates min pages, zero-initialized.
func NewMemoryInstance(min uint32, max *uint32) *MemoryInstance {
	return &MemoryInstance{
		Buffer: make([]byte, int(min)*PageSize),
		Min:    min,
		Max:    max,
	}
}

// PageCount returns the current size in pages.
func (m *MemoryInstance) PageCount() uint32 { return uint32(len(m.Buffer) / PageSize) }

// ReadBytes returns the n bytes at offset, or ErrMemoryOutOfBounds.
// The returned slice aliases the buffer.
func (m *MemoryInstance) ReadBytes(offset, n uint32) ([]byte, error) {
	if uint64(offset)+uint64(n) > uint64(len(m.Buffer)) {
		return nil, fmt.Errorf("%w: read %d bytes at %d of %d",
			ErrMemoryOutOfBounds, n, offset, len(m.Buffer))
	}
	return m.Buffer[offset : offset+n], nil
}

// WriteBytes copies data to offset, or returns ErrMemoryOutOfBounds.
func (m *MemoryInstance) WriteBytes(offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(len(m.Buffer)) {
		return fmt.Errorf("%w: write %d bytes at %d of %d",
			ErrMemoryOutOfBounds, len(data), offset, len(m.Buffer))
	}
	copy(m.Buffer[offset:], data)
	return nil
}

// ReadUint32 reads a little-endian uint32 at offset. Host functions use this
// to walk guest-side structures such as iovec arrays.
func (m *MemoryInstance) ReadUint32(offset uint32) (uint32, error) {
	b, err := m.ReadBytes(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PutUint32 writes a little-endian uint32 at offset.
func (m *MemoryInstance) PutUint32(offset uint32, v uint32) error {
	if uint64(offset)+4 > uint64(len(m.Buffer)) {
		return fmt.Errorf("%w: write 4 bytes at %d of %d",
			ErrMemoryOutOfBounds, offset, len(m.Buffer))
	}
	binary.LittleEndian.PutUint32(m.Buffer[offset:], v)
	return nil
}

// Grow extends the memory by delta pages and returns the previous page
// count, or -1 when the maximum would be exceeded.
func (m *MemoryInstance) Grow(delta uint32) int32 {
	prev := m.PageCount()
	next := uint64(prev) + uint64(delta)
	if m.Max != nil && next > uint64(*m.Max) {
		return -1
	}
	const maxPages = 1 << 16
	if next > maxPages {
		return -1
	}
	m.Buffer = append(m.Buffer, make([]byte, int(delta)*PageSize)...)
	return int32(prev)
}
