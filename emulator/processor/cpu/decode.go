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


package cpu

import (
	"fmt"
	"log"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/decoder"
)

type instructionState struct {
	inst   decoder.Instruction
	start  uint16
	isWide bool

	// Last memory operand address. Register forms of LEA, LES, LDS and far
	// indirect CALL/JMP reuse it.
	lastEA memory.Address

	// A repeated string instruction has iterations left.
	repeating bool
}

func (p *CPU) decode() error {
	p.start = p.IP

	inst, err := decoder.Decode((*queueSource)(p))
	if err != nil {
		return err
	}

	p.inst = inst
	p.isWide = inst.Opcode&1 != 0

	if inst.Policy == decoder.Invalid {
		log.Printf("invalid opcode: 0x%X at %v", inst.Opcode, memory.NewAddress(p.CS, p.start))
		return fmt.Errorf("%w: %v at %v", decoder.ErrInvalidOpcode, inst, memory.NewAddress(p.CS, p.start))
	}
	return nil
}

// getSeg returns the value of the segment register an operand should use,
// honouring any segment override prefix.
func (p *CPU) getSeg(def decoder.Segment) uint16 {
	if p.inst.Segment != decoder.NoSegment {
		def = p.inst.Segment
	}
	return *p.Seg(byte(def))
}

func (p *CPU) regLocation() dataLocation {
	return dataLocation(p.inst.Reg()) | registerLocation
}

func (p *CPU) segLocation() dataLocation {
	return dataLocation(p.inst.Reg()&3) | segmentLocation
}

func (p *CPU) rmLocation() dataLocation {
	if p.inst.Mod() == 3 {
		return dataLocation(p.inst.RM()) | registerLocation
	}

	seg, offset := eaLookup[p.inst.RM()](p)
	p.lastEA = memory.NewAddress(p.getSeg(seg), offset+p.inst.Disp)
	return dataLocation(p.lastEA)
}

// parseOperands returns destination and source for opcodes with a direction bit.
func (p *CPU) parseOperands() (dataLocation, dataLocation) {
	reg, rm := p.regLocation(), p.rmLocation()
	if p.inst.Opcode&2 != 0 {
		return reg, rm
	}
	return rm, reg
}

// memoryOperand returns the address of the ModRM operand. Register forms
// fall back to the last computed effective address.
func (p *CPU) memoryOperand() memory.Address {
	if loc := p.rmLocation(); loc.isMemory() {
		return loc.getAddress()
	}
	return p.lastEA
}
