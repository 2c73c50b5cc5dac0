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


package ram

import (
	"crypto/rand"
	"log"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

// DefaultSize is the conventional memory of a PC/XT.
const DefaultSize = 0xA0000

type Device struct {
	Clear bool
	Base  memory.Pointer
	Size  int

	mem []byte
}

func (m *Device) Install(p processor.Processor) error {
	if m.Size == 0 {
		m.Size = DefaultSize
	}
	m.mem = make([]byte, m.Size)
	m.Reset()
	return p.InstallMemoryDevice(m, m.Base, m.Base+memory.Pointer(m.Size-1))
}

func (m *Device) Name() string {
	return "RAM"
}

// Source of the power-on garbage.
var scramble = rand.Read

// Reset zeroes memory, or scrambles it unless Clear is set. Memory is zeroed
// if scrambling fails.
func (m *Device) Reset() {
	if !m.Clear {
		_, err := scramble(m.mem)
		if err == nil {
			return
		}
		log.Print("Could not scramble RAM: ", err)
	}
	for i := range m.mem {
		m.mem[i] = 0
	}
}

func (m *Device) Step(int) error {
	return nil
}

func (m *Device) ReadByte(addr memory.Pointer) (byte, error) {
	if int(addr) >= len(m.mem) {
		return 0xFF, &memory.AccessError{Addr: addr, Size: len(m.mem), Err: memory.ErrOutOfBounds}
	}
	return m.mem[addr], nil
}

func (m *Device) WriteByte(addr memory.Pointer, data byte) error {
	if int(addr) >= len(m.mem) {
		return &memory.AccessError{Addr: addr, Size: len(m.mem), Err: memory.ErrOutOfBounds}
	}
	m.mem[addr] = data
	return nil
}
