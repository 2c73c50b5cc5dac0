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
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/decoder"
)

func (p *CPU) stringDelta() uint16 {
	n := uint16(1)
	if p.isWide {
		n = 2
	}
	if p.GetBool(processor.Direction) {
		return -n
	}
	return n
}

func (p *CPU) readString(seg, offset uint16) uint16 {
	if p.isWide {
		return p.readWord(seg, offset)
	}
	return uint16(p.readByte(seg, offset))
}

func (p *CPU) writeString(seg, offset, v uint16) {
	if p.isWide {
		p.writeWord(seg, offset, v)
		return
	}
	p.writeByte(seg, offset, byte(v))
}

func (p *CPU) accumulator() uint16 {
	if p.isWide {
		return p.AX
	}
	return uint16(p.AL())
}

// stringOp runs one iteration of a string instruction. With a repeat prefix the
// instruction stays current until CX runs out or the CMPS/SCAS condition fails.
func (p *CPU) stringOp() {
	rep := p.inst.Repeat != decoder.NoRepeat
	if rep && p.CX == 0 {
		p.repeating = false
		return
	}

	delta := p.stringDelta()
	compare := false

	switch p.inst.Opcode {
	case 0xA4, 0xA5: // MOVS
		p.writeString(p.ES, p.DI, p.readString(p.getSeg(decoder.DS), p.SI))
		p.SI += delta
		p.DI += delta
	case 0xA6, 0xA7: // CMPS
		a := p.readString(p.getSeg(decoder.DS), p.SI)
		b := p.readString(p.ES, p.DI)
		p.alu(7, a, b, p.isWide)
		p.SI += delta
		p.DI += delta
		compare = true
	case 0xAA, 0xAB: // STOS
		p.writeString(p.ES, p.DI, p.accumulator())
		p.DI += delta
	case 0xAC, 0xAD: // LODS
		v := p.readString(p.getSeg(decoder.DS), p.SI)
		if p.isWide {
			p.AX = v
		} else {
			p.SetAL(byte(v))
		}
		p.SI += delta
	case 0xAE, 0xAF: // SCAS
		p.alu(7, p.accumulator(), p.readString(p.ES, p.DI), p.isWide)
		p.DI += delta
		compare = true
	}
	p.cycles += 2

	if !rep {
		return
	}

	p.CX--
	cont := p.CX != 0
	if compare {
		zf := p.GetBool(processor.Zero)
		if (p.inst.Repeat == decoder.RepE && !zf) || (p.inst.Repeat == decoder.RepNE && zf) {
			cont = false
		}
	}
	p.repeating = cont
}
