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

func b2ui32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func signExtend16(v byte) uint16 {
	if v&0x80 != 0 {
		return uint16(v) | 0xFF00
	}
	return uint16(v)
}

func signExtend32(v uint16) uint32 {
	if v&0x8000 != 0 {
		return uint32(v) | 0xFFFF0000
	}
	return uint32(v)
}

func getFlagsMask(wide bool) (uint32, uint32) {
	if wide {
		return 0xFFFF0000, 0x8000
	}
	return 0xFF00, 0x80
}

func (p *CPU) updateFlagsSZP(res uint16, wide bool) {
	if wide {
		p.SetBool(processor.Sign, res&0x8000 != 0)
		p.SetBool(processor.Zero, res == 0)
	} else {
		p.SetBool(processor.Sign, res&0x80 != 0)
		p.SetBool(processor.Zero, res&0xFF == 0)
	}
	p.SetBool(processor.Parity, parityLookup[byte(res)])
}

func (p *CPU) updateFlagsOACAdd(res, a, b uint32, wide bool) {
	maskC, maskO := getFlagsMask(wide)
	p.SetBool(processor.Carry, res&maskC != 0)
	p.SetBool(processor.Adjust, (a^b^res)&0x10 != 0)
	p.SetBool(processor.Overflow, (res^a)&(res^b)&maskO != 0)
}

func (p *CPU) updateFlagsOACSub(res, a, b uint32, wide bool) {
	maskC, maskO := getFlagsMask(wide)
	p.SetBool(processor.Carry, res&maskC != 0)
	p.SetBool(processor.Adjust, (a^b^res)&0x10 != 0)
	p.SetBool(processor.Overflow, (res^a)&(a^b)&maskO != 0)
}

// Logic instructions clear OF and CF. AF is undefined and cleared as well.
func (p *CPU) updateFlagsLog(res uint16, wide bool) {
	p.updateFlagsSZP(res, wide)
	p.Clear(processor.Overflow | processor.Carry | processor.Adjust)
}

func truncate(v uint32, wide bool) uint16 {
	if wide {
		return uint16(v)
	}
	return uint16(v & 0xFF)
}

// alu performs one of the eight arithmetic/logic operations selected by bits
// 3-5 of the opcode (or the reg field of group 1). The returned bool is false
// for CMP, which only updates the flags.
func (p *CPU) alu(op byte, a, b uint16, wide bool) (uint16, bool) {
	x, y := uint32(a), uint32(b)
	carry := b2ui32(p.GetBool(processor.Carry))

	var res uint32
	switch op & 7 {
	case 0: // ADD
		res = x + y
		p.updateFlagsOACAdd(res, x, y, wide)
	case 1: // OR
		res = x | y
		p.updateFlagsLog(truncate(res, wide), wide)
		return truncate(res, wide), true
	case 2: // ADC
		res = x + y + carry
		p.updateFlagsOACAdd(res, x, y, wide)
	case 3: // SBB
		res = x - y - carry
		p.updateFlagsOACSub(res, x, y, wide)
	case 4: // AND
		res = x & y
		p.updateFlagsLog(truncate(res, wide), wide)
		return truncate(res, wide), true
	case 5: // SUB
		res = x - y
		p.updateFlagsOACSub(res, x, y, wide)
	case 6: // XOR
		res = x ^ y
		p.updateFlagsLog(truncate(res, wide), wide)
		return truncate(res, wide), true
	case 7: // CMP
		res = x - y
		p.updateFlagsOACSub(res, x, y, wide)
		p.updateFlagsSZP(truncate(res, wide), wide)
		return a, false
	}

	p.updateFlagsSZP(truncate(res, wide), wide)
	return truncate(res, wide), true
}

// INC and DEC leave CF alone.
func (p *CPU) inc(v uint16, wide bool) uint16 {
	a := uint32(v)
	res := a + 1
	cf := p.GetBool(processor.Carry)
	p.updateFlagsOACAdd(res, a, 1, wide)
	p.SetBool(processor.Carry, cf)
	p.updateFlagsSZP(truncate(res, wide), wide)
	return truncate(res, wide)
}

func (p *CPU) dec(v uint16, wide bool) uint16 {
	a := uint32(v)
	res := a - 1
	cf := p.GetBool(processor.Carry)
	p.updateFlagsOACSub(res, a, 1, wide)
	p.SetBool(processor.Carry, cf)
	p.updateFlagsSZP(truncate(res, wide), wide)
	return truncate(res, wide)
}

func (p *CPU) neg(v uint16, wide bool) uint16 {
	b := uint32(v)
	res := 0 - b
	p.updateFlagsOACSub(res, 0, b, wide)
	p.updateFlagsSZP(truncate(res, wide), wide)
	return truncate(res, wide)
}

func (p *CPU) setMulFlags(overflow bool, low uint16, wide bool) {
	p.updateFlagsSZP(low, wide)
	p.SetBool(processor.Carry, overflow)
	p.SetBool(processor.Overflow, overflow)
	p.Clear(processor.Zero)
}

func (p *CPU) mul8(v byte) {
	p.AX = uint16(p.AL()) * uint16(v)
	p.setMulFlags(p.AH() != 0, uint16(p.AL()), false)
}

func (p *CPU) imul8(v byte) {
	p.AX = uint16(int16(int8(p.AL())) * int16(int8(v)))
	p.setMulFlags(p.AX != signExtend16(p.AL()), uint16(p.AL()), false)
}

func (p *CPU) mul16(v uint16) {
	res := uint32(p.AX) * uint32(v)
	p.DX, p.AX = uint16(res>>16), uint16(res)
	p.setMulFlags(p.DX != 0, p.AX, true)
}

func (p *CPU) imul16(v uint16) {
	res := uint32(int32(int16(p.AX)) * int32(int16(v)))
	p.DX, p.AX = uint16(res>>16), uint16(res)
	p.setMulFlags(res != signExtend32(p.AX), p.AX, true)
}

// Division helpers return false on a divide error. Registers and flags are
// left untouched in that case.

func (p *CPU) div8(v byte) bool {
	if v == 0 {
		return false
	}
	q, r := p.AX/uint16(v), p.AX%uint16(v)
	if q > 0xFF {
		return false
	}
	p.SetAL(byte(q))
	p.SetAH(byte(r))
	return true
}

func (p *CPU) idiv8(v byte) bool {
	if v == 0 {
		return false
	}
	a, d := int32(int16(p.AX)), int32(int8(v))
	q, r := a/d, a%d

	// The 8088 faults on a quotient of -128 as well.
	if q > 127 || q < -127 {
		return false
	}
	p.SetAL(byte(q))
	p.SetAH(byte(r))
	return true
}

func (p *CPU) div16(v uint16) bool {
	if v == 0 {
		return false
	}
	a := uint32(p.DX)<<16 | uint32(p.AX)
	q, r := a/uint32(v), a%uint32(v)
	if q > 0xFFFF {
		return false
	}
	p.AX, p.DX = uint16(q), uint16(r)
	return true
}

func (p *CPU) idiv16(v uint16) bool {
	if v == 0 {
		return false
	}
	a, d := int64(int32(uint32(p.DX)<<16|uint32(p.AX))), int64(int16(v))
	q, r := a/d, a%d
	if q > 32767 || q < -32767 {
		return false
	}
	p.AX, p.DX = uint16(q), uint16(r)
	return true
}

func (p *CPU) daa() {
	al, cf := p.AL(), p.GetBool(processor.Carry)
	p.Clear(processor.Carry)

	if al&0xF > 9 || p.GetBool(processor.Adjust) {
		v := uint16(p.AL()) + 6
		p.SetAL(byte(v))
		p.SetBool(processor.Carry, cf || v > 0xFF)
		p.Set(processor.Adjust)
	} else {
		p.Clear(processor.Adjust)
	}

	if al > 0x99 || cf {
		p.SetAL(p.AL() + 0x60)
		p.Set(processor.Carry)
	} else {
		p.Clear(processor.Carry)
	}
	p.updateFlagsSZP(uint16(p.AL()), false)
}

func (p *CPU) das() {
	al, cf := p.AL(), p.GetBool(processor.Carry)
	p.Clear(processor.Carry)

	if al&0xF > 9 || p.GetBool(processor.Adjust) {
		p.SetAL(al - 6)
		p.SetBool(processor.Carry, cf || al < 6)
		p.Set(processor.Adjust)
	} else {
		p.Clear(processor.Adjust)
	}

	if al > 0x99 || cf {
		p.SetAL(p.AL() - 0x60)
		p.Set(processor.Carry)
	} else {
		p.Clear(processor.Carry)
	}
	p.updateFlagsSZP(uint16(p.AL()), false)
}

func (p *CPU) aaa() {
	if al := p.AL(); al&0xF > 9 || p.GetBool(processor.Adjust) {
		p.SetAL(al + 6)
		p.SetAH(p.AH() + 1)
		p.Set(processor.Adjust | processor.Carry)
	} else {
		p.Clear(processor.Adjust | processor.Carry)
	}
	al := p.AL() & 0xF
	p.SetAL(al)
	p.updateFlagsSZP(uint16(al), false)
}

func (p *CPU) aas() {
	if al := p.AL(); al&0xF > 9 || p.GetBool(processor.Adjust) {
		p.SetAL(al - 6)
		p.SetAH(p.AH() - 1)
		p.Set(processor.Adjust | processor.Carry)
	} else {
		p.Clear(processor.Adjust | processor.Carry)
	}
	al := p.AL() & 0xF
	p.SetAL(al)
	p.updateFlagsSZP(uint16(al), false)
}

// aam returns false on a zero base.
func (p *CPU) aam(base byte) bool {
	if base == 0 {
		return false
	}
	al := p.AL()
	p.SetAH(al / base)
	p.SetAL(al % base)
	p.updateFlagsLog(uint16(p.AL()), false)
	return true
}

// AAD is a multiply and an 8-bit add. The add sets the flags.
func (p *CPU) aad(base byte) {
	a, b := uint32(p.AL()), uint32(p.AH()*base)
	res := a + b
	p.updateFlagsOACAdd(res, a, b, false)
	p.AX = uint16(res & 0xFF)
	p.updateFlagsSZP(p.AX, false)
}
