package x86

import (
	"encoding/binary"
	"fmt"
)

// Fault is a memory access outside the mapped range.
type Fault struct {
	Op   string
	Addr uint32
	Size int
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s fault at 0x%08x (%d bytes)", f.Op, f.Addr, f.Size)
}

// Memory is a flat little-endian region mapped at Base.
type Memory struct {
	Base uint32
	data []byte
}

// NewMemory maps size zeroed bytes at base.
func NewMemory(base uint32, size int) *Memory {
	return &Memory{Base: base, data: make([]byte, size)}
}

// Len returns the mapped size.
func (m *Memory) Len() int {
	return len(m.data)
}

// End returns the first address past the mapping.
func (m *Memory) End() uint32 {
	return m.Base + uint32(len(m.data))
}

func (m *Memory) slice(op string, addr uint32, n int) ([]byte, error) {
	if addr < m.Base || uint64(addr)+uint64(n) > uint64(m.End()) {
		return nil, &Fault{Op: op, Addr: addr, Size: n}
	}
	off := addr - m.Base
	return m.data[off : off+uint32(n)], nil
}

// ReadU32 reads a little-endian word.
func (m *Memory) ReadU32(addr uint32) (uint32, error) {
	b, err := m.slice("read", addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// WriteU32 writes a little-endian word.
func (m *Memory) WriteU32(addr, v uint32) error {
	b, err := m.slice("write", addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

// Write copies p to addr.
func (m *Memory) Write(addr uint32, p []byte) error {
	b, err := m.slice("write", addr, len(p))
	if err != nil {
		return err
	}
	copy(b, p)
	return nil
}

// ReadCString reads a NUL-terminated string starting at addr.
func (m *Memory) ReadCString(addr uint32) (string, error) {
	if addr < m.Base || addr >= m.End() {
		return "", &Fault{Op: "read", Addr: addr, Size: 1}
	}
	rest := m.data[addr-m.Base:]
	for i, c := range rest {
		if c == 0 {
			return string(rest[:i]), nil
		}
	}
	return "", &Fault{Op: "read", Addr: m.End(), Size: 1}
}
