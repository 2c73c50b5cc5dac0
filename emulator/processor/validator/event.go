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


package validator

import (
	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

const DefaultQueueSize = 1024

type Event struct {
	Opcode        byte
	Disasm        string `json:",omitempty"`
	Regs          [2]processor.Registers
	Reads, Writes []MemOp `json:",omitempty"`
}

type MemOp struct {
	Addr memory.Pointer
	Data byte
}

// SameLocation reports whether both events executed the same opcode at the
// same physical address.
func (e *Event) SameLocation(o *Event) bool {
	a, b := &e.Regs[0], &o.Regs[0]
	return e.Opcode == o.Opcode && memory.NewPointer(a.CS, a.IP) == memory.NewPointer(b.CS, b.IP)
}

// Equal compares opcode, registers and bus traffic. Flags are compared under mask.
func (e *Event) Equal(o *Event, flagMask processor.Flags) bool {
	if !e.SameLocation(o) || len(e.Reads) != len(o.Reads) || len(e.Writes) != len(o.Writes) {
		return false
	}
	for i := range e.Regs {
		a, b := e.Regs[i], o.Regs[i]
		if a.Flags.Get(flagMask) != b.Flags.Get(flagMask) {
			return false
		}
		a.Flags, b.Flags = 0, 0
		if a != b {
			return false
		}
	}
	for i, op := range e.Reads {
		if op != o.Reads[i] {
			return false
		}
	}
	for i, op := range e.Writes {
		if op != o.Writes[i] {
			return false
		}
	}
	return true
}
