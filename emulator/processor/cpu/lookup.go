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
	"math/bits"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/decoder"
)

const (
	registerLocation = 1 << 63
	segmentLocation  = 1 << 62
)

// dataLocation is either a register index tagged with registerLocation or
// segmentLocation, or a memory.Address.
type dataLocation uint64

func (addr dataLocation) getAddress() memory.Address {
	return memory.Address(addr & 0xFFFFFFFF)
}

func (addr dataLocation) isMemory() bool {
	return addr&(registerLocation|segmentLocation) == 0
}

func (addr dataLocation) readByte(p *CPU) byte {
	if addr&registerLocation != 0 {
		return p.Reg8(byte(addr & 7))
	}
	a := addr.getAddress()
	return p.readByte(a.Segment(), a.Offset())
}

func (addr dataLocation) writeByte(p *CPU, data byte) {
	if addr&registerLocation != 0 {
		p.SetReg8(byte(addr&7), data)
		return
	}
	a := addr.getAddress()
	p.writeByte(a.Segment(), a.Offset(), data)
}

func (addr dataLocation) readWord(p *CPU) uint16 {
	if addr&registerLocation != 0 {
		return *p.Reg16(byte(addr & 7))
	} else if addr&segmentLocation != 0 {
		return *p.Seg(byte(addr & 3))
	}
	a := addr.getAddress()
	return p.readWord(a.Segment(), a.Offset())
}

func (addr dataLocation) writeWord(p *CPU, data uint16) {
	if addr&registerLocation != 0 {
		*p.Reg16(byte(addr & 7)) = data
		return
	} else if addr&segmentLocation != 0 {
		*p.Seg(byte(addr & 3)) = data
		return
	}
	a := addr.getAddress()
	p.writeWord(a.Segment(), a.Offset(), data)
}

func (addr dataLocation) read(p *CPU, wide bool) uint16 {
	if wide {
		return addr.readWord(p)
	}
	return uint16(addr.readByte(p))
}

func (addr dataLocation) write(p *CPU, wide bool, data uint16) {
	if wide {
		addr.writeWord(p, data)
		return
	}
	addr.writeByte(p, byte(data))
}

// Effective address base by r/m. Returns the default segment and the register sum.
var eaLookup = [8]func(*CPU) (decoder.Segment, uint16){
	// DS:[BX+SI]
	func(p *CPU) (decoder.Segment, uint16) { return decoder.DS, p.BX + p.SI },

	// DS:[BX+DI]
	func(p *CPU) (decoder.Segment, uint16) { return decoder.DS, p.BX + p.DI },

	// SS:[BP+SI]
	func(p *CPU) (decoder.Segment, uint16) { return decoder.SS, p.BP + p.SI },

	// SS:[BP+DI]
	func(p *CPU) (decoder.Segment, uint16) { return decoder.SS, p.BP + p.DI },

	// DS:[SI]
	func(p *CPU) (decoder.Segment, uint16) { return decoder.DS, p.SI },

	// DS:[DI]
	func(p *CPU) (decoder.Segment, uint16) { return decoder.DS, p.DI },

	// SS:[BP], DS:[a16] when mod is 00.
	func(p *CPU) (decoder.Segment, uint16) {
		if p.inst.Mod() == 0 {
			return decoder.DS, 0
		}
		return decoder.SS, p.BP
	},

	// DS:[BX]
	func(p *CPU) (decoder.Segment, uint16) { return decoder.DS, p.BX },
}

var parityLookup = func() (t [256]bool) {
	for i := range t {
		t[i] = bits.OnesCount8(uint8(i))%2 == 0
	}
	return
}()
