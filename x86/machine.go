package x86

import (
	"fmt"
)

// Default layout of a machine's stack mapping.
const (
	DefaultStackBase = 0x0010_0000
	DefaultStackSize = 64 << 10
)

// Machine is a register file and a stack.
type Machine struct {
	Regs  Registers
	Stack *Memory
}

// NewMachine maps a stack of size bytes below DefaultStackBase+size and
// points esp at its top. The scratch registers hold recognisable poison
// values so a callee that forgets to set eax is visible.
func NewMachine(size int) *Machine {
	if size <= 0 {
		size = DefaultStackSize
	}
	m := &Machine{Stack: NewMemory(DefaultStackBase, size)}
	m.Regs = Registers{
		EAX: 0xdeadbea0,
		ECX: 0xdeadbea1,
		EDX: 0xdeadbea2,
		EBX: 0xdeadbea3,
		EBP: 0xdeadbea5,
		ESI: 0xdeadbea6,
		EDI: 0xdeadbea7,
		ESP: m.Stack.End(),
	}
	return m
}

// Push decrements esp by 4 and stores v there.
func (m *Machine) Push(v uint32) error {
	esp := m.Regs.ESP - 4
	if err := m.Stack.WriteU32(esp, v); err != nil {
		return fmt.Errorf("stack overflow: %w", err)
	}
	m.Regs.ESP = esp
	return nil
}

// Pop loads the word at esp and increments esp by 4.
func (m *Machine) Pop() (uint32, error) {
	v, err := m.Stack.ReadU32(m.Regs.ESP)
	if err != nil {
		return 0, fmt.Errorf("stack underflow: %w", err)
	}
	m.Regs.ESP += 4
	return v, nil
}

// Peek reads the word n slots above esp without moving it.
func (m *Machine) Peek(n int) (uint32, error) {
	return m.Stack.ReadU32(m.Regs.ESP + uint32(4*n))
}

// AddESP performs "add esp, n", updating flags.
func (m *Machine) AddESP(n uint32) {
	m.Regs.ESP = Add32(&m.Regs.Flags, m.Regs.ESP, n)
}

// SubESP performs "sub esp, n", updating flags.
func (m *Machine) SubESP(n uint32) {
	m.Regs.ESP = Sub32(&m.Regs.Flags, m.Regs.ESP, n)
}

// CalleeSaved snapshots ebx, ebp, esi and edi.
func (m *Machine) CalleeSaved() [4]uint32 {
	return m.Regs.calleeSaved()
}
