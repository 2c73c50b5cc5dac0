/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/


package memory

import (
	"fmt"
	"log"
)

const maxDevices = 0xFF

type mapping struct {
	base   uint32
	memory Memory
	io     IO
}

// Map routes physical addresses and I/O ports to installed devices. Memory devices
// see offsets relative to the start of the range they were installed at, IO devices
// see the absolute port number.
//
// With OpenBus set, accesses that hit no device behave like an undriven bus:
// reads return 0xFF and writes are dropped. Otherwise they fail with ErrNotMapped.
type Map struct {
	OpenBus bool

	memEntries []mapping
	ioEntries  []mapping

	mmap  [Size]byte
	iomap [0x10000]byte
}

func NewMap() *Map {
	// Index zero is reserved for "nothing mapped".
	return &Map{
		memEntries: make([]mapping, 1, 8),
		ioEntries:  make([]mapping, 1, 8),
	}
}

// InstallMemoryDevice maps device to the inclusive physical range [from, to].
func (m *Map) InstallMemoryDevice(device Memory, from, to Pointer) error {
	if from > to || to > AddrMax {
		return fmt.Errorf("invalid memory range %v-%v", from, to)
	}
	if len(m.memEntries) > maxDevices {
		return fmt.Errorf("too many memory devices")
	}
	for a := from; a <= to; a++ {
		if m.mmap[a] != 0 {
			return &AccessError{Addr: a, Err: ErrOverlap}
		}
	}

	idx := byte(len(m.memEntries))
	m.memEntries = append(m.memEntries, mapping{base: uint32(from), memory: device})
	for a := from; a <= to; a++ {
		m.mmap[a] = idx
	}
	return nil
}

// InstallIODevice maps device to the inclusive port range [from, to].
func (m *Map) InstallIODevice(device IO, from, to uint16) error {
	if from > to {
		return fmt.Errorf("invalid port range 0x%X-0x%X", from, to)
	}
	if len(m.ioEntries) > maxDevices {
		return fmt.Errorf("too many IO devices")
	}
	for p := uint32(from); p <= uint32(to); p++ {
		if m.iomap[p] != 0 {
			return fmt.Errorf("port 0x%X: %w", p, ErrOverlap)
		}
	}

	idx := byte(len(m.ioEntries))
	m.ioEntries = append(m.ioEntries, mapping{io: device})
	for p := uint32(from); p <= uint32(to); p++ {
		m.iomap[p] = idx
	}
	return nil
}

// InstallIODeviceAt maps device to a list of individual ports.
func (m *Map) InstallIODeviceAt(device IO, port ...uint16) error {
	for _, p := range port {
		if err := m.InstallIODevice(device, p, p); err != nil {
			return err
		}
	}
	return nil
}

// MappedMemoryDevice returns the device at addr and its base address.
func (m *Map) MappedMemoryDevice(addr Pointer) (Memory, Pointer) {
	e := &m.memEntries[m.mmap[addr&AddrMax]]
	return e.memory, Pointer(e.base)
}

func (m *Map) MappedIODevice(port uint16) IO {
	return m.ioEntries[m.iomap[port]].io
}

func (m *Map) ReadByte(addr Pointer) (byte, error) {
	addr &= AddrMax
	e := &m.memEntries[m.mmap[addr]]
	if e.memory == nil {
		if m.OpenBus {
			return 0xFF, nil
		}
		return 0xFF, &AccessError{Addr: addr, Err: ErrNotMapped}
	}
	return e.memory.ReadByte(addr - Pointer(e.base))
}

func (m *Map) WriteByte(addr Pointer, data byte) error {
	addr &= AddrMax
	e := &m.memEntries[m.mmap[addr]]
	if e.memory == nil {
		if m.OpenBus {
			return nil
		}
		return &AccessError{Addr: addr, Err: ErrNotMapped}
	}
	return e.memory.WriteByte(addr-Pointer(e.base), data)
}

func (m *Map) In(port uint16) (byte, error) {
	e := &m.ioEntries[m.iomap[port]]
	if e.io == nil {
		if m.OpenBus {
			log.Printf("reading unmapped IO port: 0x%X", port)
			return 0xFF, nil
		}
		return 0xFF, fmt.Errorf("port 0x%X: %w", port, ErrNotMapped)
	}
	return e.io.In(port)
}

func (m *Map) Out(port uint16, data byte) error {
	e := &m.ioEntries[m.iomap[port]]
	if e.io == nil {
		if m.OpenBus {
			log.Printf("writing unmapped IO port: 0x%X", port)
			return nil
		}
		return fmt.Errorf("port 0x%X: %w", port, ErrNotMapped)
	}
	return e.io.Out(port, data)
}
