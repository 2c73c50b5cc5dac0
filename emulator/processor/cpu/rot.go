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
)

func msb(wide bool) uint16 {
	if wide {
		return 0x8000
	}
	return 0x80
}

func (p *CPU) rotROL(v uint16, wide bool) uint16 {
	s := v&msb(wide) != 0
	p.SetBool(processor.Carry, s)
	v <<= 1
	if s {
		v |= 1
	}
	return truncate(uint32(v), wide)
}

func (p *CPU) rotROR(v uint16, wide bool) uint16 {
	c := v&1 != 0
	p.SetBool(processor.Carry, c)
	v >>= 1
	if c {
		v |= msb(wide)
	}
	return v
}

func (p *CPU) rotRCL(v uint16, wide bool) uint16 {
	s := v&msb(wide) != 0
	v <<= 1
	if p.GetBool(processor.Carry) {
		v |= 1
	}
	p.SetBool(processor.Carry, s)
	return truncate(uint32(v), wide)
}

func (p *CPU) rotRCR(v uint16, wide bool) uint16 {
	c := v&1 != 0
	v >>= 1
	if p.GetBool(processor.Carry) {
		v |= msb(wide)
	}
	p.SetBool(processor.Carry, c)
	return v
}

func (p *CPU) rotSHL(v uint16, wide bool) uint16 {
	p.SetBool(processor.Carry, v&msb(wide) != 0)
	return truncate(uint32(v)<<1, wide)
}

func (p *CPU) rotSHR(v uint16, wide bool) uint16 {
	p.SetBool(processor.Carry, v&1 != 0)
	return v >> 1
}

func (p *CPU) rotSAR(v uint16, wide bool) uint16 {
	p.SetBool(processor.Carry, v&1 != 0)
	return v>>1 | v&msb(wide)
}

// setMO is the undocumented group 2 member at reg 6. It sets every bit of the
// operand.
func (p *CPU) setMO(wide bool) uint16 {
	res := truncate(0xFFFF, wide)
	p.updateFlagsLog(res, wide)
	return res
}

// shiftOrRotate implements group 2. A zero count leaves operand and flags
// untouched. The 8088 does not mask the count.
func (p *CPU) shiftOrRotate(op byte, a uint16, count byte, wide bool) uint16 {
	if count == 0 {
		return a
	}

	org := a
	hi := msb(wide)

	for i := 0; i < int(count); i++ {
		switch op {
		case 0:
			a = p.rotROL(a, wide)
		case 1:
			a = p.rotROR(a, wide)
		case 2:
			a = p.rotRCL(a, wide)
		case 3:
			a = p.rotRCR(a, wide)
		case 4:
			a = p.rotSHL(a, wide)
		case 5:
			a = p.rotSHR(a, wide)
		case 6:
			return p.setMO(wide)
		case 7:
			a = p.rotSAR(a, wide)
		}
	}

	// OF for left rotates and shifts is CF xor the result's sign. For right
	// rotates it is the xor of the two top bits of the result.
	cf := p.GetBool(processor.Carry)
	switch op {
	case 0, 2:
		p.SetBool(processor.Overflow, cf != (a&hi != 0))
	case 1, 3:
		p.SetBool(processor.Overflow, (a&hi != 0) != (a&(hi>>1) != 0))
	case 4:
		p.SetBool(processor.Overflow, cf != (a&hi != 0))
		p.updateFlagsSZP(a, wide)
	case 5:
		p.SetBool(processor.Overflow, count == 1 && org&hi != 0)
		p.updateFlagsSZP(a, wide)
	case 7:
		p.Clear(processor.Overflow)
		p.updateFlagsSZP(a, wide)
	}
	return a
}
