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
	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/decoder"
)

func (p *CPU) jump(ip uint16) {
	p.IP = ip
	p.flushQueue()
	p.cycles += 4
}

func (p *CPU) farJump(cs, ip uint16) {
	p.CS = cs
	p.jump(ip)
}

func (p *CPU) loadSegment(n byte, v uint16) {
	*p.Seg(n) = v
	p.irq.inhibitAll = true
	if n&3 == byte(decoder.CS) {
		p.flushQueue()
	}
}

// condition evaluates the low nibble of a Jcc opcode.
func (p *CPU) condition(cc byte) bool {
	var (
		of = p.GetBool(processor.Overflow)
		cf = p.GetBool(processor.Carry)
		zf = p.GetBool(processor.Zero)
		sf = p.GetBool(processor.Sign)
		r  bool
	)

	switch cc >> 1 {
	case 0: // JO
		r = of
	case 1: // JB
		r = cf
	case 2: // JZ
		r = zf
	case 3: // JBE
		r = cf || zf
	case 4: // JS
		r = sf
	case 5: // JPE
		r = p.GetBool(processor.Parity)
	case 6: // JL
		r = sf != of
	case 7: // JLE
		r = zf || sf != of
	}
	return r != (cc&1 != 0)
}

func isStringOp(op byte) bool {
	return (op >= 0xA4 && op <= 0xA7) || (op >= 0xAA && op <= 0xAF)
}

// execute runs the current instruction. A pending repeated string instruction
// is continued without decoding.
func (p *CPU) execute() error {
	if !p.repeating {
		if err := p.decode(); err != nil {
			return err
		}
	}

	p.cycles += 2
	inst := &p.inst
	op := inst.Opcode
	wide := p.isWide

	switch {
	case op < 0x40 && op&7 < 6: // ADD/OR/ADC/SBB/AND/SUB/XOR/CMP
		var dest, src dataLocation
		b := inst.Imm
		if op&4 != 0 {
			dest = registerLocation
		} else {
			dest, src = p.parseOperands()
			b = src.read(p, wide)
		}
		if res, store := p.alu(op>>3, dest.read(p, wide), b, wide); store {
			dest.write(p, wide, res)
		}
		return p.checkFault()
	case isStringOp(op):
		p.stringOp()
		return p.checkFault()
	}

	switch op {
	case 0x06, 0x0E, 0x16, 0x1E: // PUSH ES/CS/SS/DS
		p.push16(*p.Seg((op >> 3) & 3))
	case 0x07, 0x0F, 0x17, 0x1F: // POP ES/*CS/SS/DS
		p.loadSegment((op>>3)&3, p.pop16())
	case 0x27: // DAA
		p.daa()
	case 0x2F: // DAS
		p.das()
	case 0x37: // AAA
		p.aaa()
	case 0x3F: // AAS
		p.aas()

	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47: // INC AX/CX/DX/BX/SP/BP/SI/DI
		r := p.Reg16(op & 7)
		*r = p.inc(*r, true)
	case 0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F: // DEC AX/CX/DX/BX/SP/BP/SI/DI
		r := p.Reg16(op & 7)
		*r = p.dec(*r, true)
	case 0x54: // PUSH SP
		// The 8088 pushes the decremented value.
		p.SP -= 2
		p.writeWord(p.SS, p.SP, p.SP)
	case 0x50, 0x51, 0x52, 0x53, 0x55, 0x56, 0x57: // PUSH AX/CX/DX/BX/BP/SI/DI
		p.push16(*p.Reg16(op & 7))
	case 0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F: // POP AX/CX/DX/BX/SP/BP/SI/DI
		v := p.pop16()
		*p.Reg16(op & 7) = v

	case 0x60, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F, // *Jcc
		0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F: // Jcc
		if p.condition(op & 0xF) {
			p.jump(p.IP + inst.Imm)
		}

	case 0x80, 0x81, 0x82, 0x83: // Group 1 r/m,imm
		dest := p.rmLocation()
		if res, store := p.alu(inst.Reg(), dest.read(p, wide), inst.Imm, wide); store {
			dest.write(p, wide, res)
		}
	case 0x84, 0x85: // TEST r/m,reg
		dest, src := p.parseOperands()
		p.alu(4, dest.read(p, wide), src.read(p, wide), wide)
	case 0x86, 0x87: // XCHG reg,r/m
		dest, src := p.parseOperands()
		a, b := dest.read(p, wide), src.read(p, wide)
		dest.write(p, wide, b)
		src.write(p, wide, a)
	case 0x88, 0x89, 0x8A, 0x8B: // MOV
		dest, src := p.parseOperands()
		dest.write(p, wide, src.read(p, wide))
	case 0x8C: // MOV r/m16,sreg
		p.rmLocation().writeWord(p, p.segLocation().readWord(p))
	case 0x8D: // LEA reg16,m
		*p.Reg16(inst.Reg()) = p.memoryOperand().Offset()
	case 0x8E: // MOV sreg,r/m16
		p.loadSegment(inst.Reg()&3, p.rmLocation().readWord(p))
	case 0x8F: // POP r/m16
		v := p.pop16()
		p.rmLocation().writeWord(p, v)

	case 0x90: // NOP
		p.stats.NOP++
	case 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97: // XCHG AX,reg16
		r := p.Reg16(op & 7)
		p.AX, *r = *r, p.AX
	case 0x98: // CBW
		p.AX = signExtend16(p.AL())
	case 0x99: // CWD
		if p.AX&0x8000 != 0 {
			p.DX = 0xFFFF
		} else {
			p.DX = 0
		}
	case 0x9A: // CALL far
		p.push16(p.CS)
		p.push16(p.IP)
		p.farJump(inst.Seg16, inst.Imm)
	case 0x9B: // WAIT
	case 0x9C: // PUSHF
		p.push16(p.Flags.Load())
	case 0x9D: // POPF
		p.Flags.Store(p.pop16())
	case 0x9E: // SAHF
		const mask = uint16(processor.Sign | processor.Zero | processor.Adjust | processor.Parity | processor.Carry)
		p.Flags.Store(p.Flags.Load()&^mask | uint16(p.AH())&mask)
	case 0x9F: // LAHF
		p.SetAH(byte(p.Flags.Load()))

	case 0xA0, 0xA1: // MOV AL/AX,[moffs]
		loc := dataLocation(memory.NewAddress(p.getSeg(decoder.DS), inst.Disp))
		dataLocation(registerLocation).write(p, wide, loc.read(p, wide))
	case 0xA2, 0xA3: // MOV [moffs],AL/AX
		loc := dataLocation(memory.NewAddress(p.getSeg(decoder.DS), inst.Disp))
		loc.write(p, wide, dataLocation(registerLocation).read(p, wide))
	case 0xA8, 0xA9: // TEST AL/AX,imm
		p.alu(4, p.accumulator(), inst.Imm, wide)

	case 0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7: // MOV reg8,imm8
		p.SetReg8(op&7, byte(inst.Imm))
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF: // MOV reg16,imm16
		*p.Reg16(op & 7) = inst.Imm

	case 0xC0, 0xC2: // RET imm16
		ip := p.pop16()
		p.SP += inst.Imm
		p.jump(ip)
	case 0xC1, 0xC3: // RET
		p.jump(p.pop16())
	case 0xC4, 0xC5: // LES/LDS reg16,m32
		addr := p.memoryOperand()
		off := p.readWord(addr.Segment(), addr.Offset())
		seg := p.readWord(addr.Segment(), addr.Offset()+2)
		*p.Reg16(inst.Reg()) = off
		if op == 0xC4 {
			p.ES = seg
		} else {
			p.DS = seg
		}
	case 0xC6, 0xC7: // MOV r/m,imm
		p.rmLocation().write(p, wide, inst.Imm)
	case 0xC8, 0xCA: // RETF imm16
		ip := p.pop16()
		cs := p.pop16()
		p.SP += inst.Imm
		p.farJump(cs, ip)
	case 0xC9, 0xCB: // RETF
		ip := p.pop16()
		p.farJump(p.pop16(), ip)
	case 0xCC: // INT 3
		p.interrupt(3)
	case 0xCD: // INT imm8
		p.interrupt(byte(inst.Imm))
	case 0xCE: // INTO
		if p.GetBool(processor.Overflow) {
			p.interrupt(4)
		}
	case 0xCF: // IRET
		p.iret()

	case 0xD0, 0xD1, 0xD2, 0xD3: // Group 2 r/m,1 and r/m,CL
		count := byte(1)
		if op >= 0xD2 {
			count = p.CL()
		}
		if count != 0 {
			loc := p.rmLocation()
			loc.write(p, wide, p.shiftOrRotate(inst.Reg(), loc.read(p, wide), count, wide))
			p.cycles += int(count) * 4
		} else {
			p.rmLocation().read(p, wide)
		}
	case 0xD4: // AAM
		if !p.aam(byte(inst.Imm)) {
			p.raiseException(0)
		}
	case 0xD5: // AAD
		p.aad(byte(inst.Imm))
	case 0xD6: // *SALC
		if p.GetBool(processor.Carry) {
			p.SetAL(0xFF)
		} else {
			p.SetAL(0)
		}
	case 0xD7: // XLAT
		p.SetAL(p.readByte(p.getSeg(decoder.DS), p.BX+uint16(p.AL())))
	case 0xD8, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE, 0xDF: // ESC
		// No coprocessor. The memory operand is still read.
		if loc := p.rmLocation(); loc.isMemory() {
			loc.readWord(p)
		}

	case 0xE0: // LOOPNZ
		p.CX--
		if p.CX != 0 && !p.GetBool(processor.Zero) {
			p.jump(p.IP + inst.Imm)
		}
	case 0xE1: // LOOPZ
		p.CX--
		if p.CX != 0 && p.GetBool(processor.Zero) {
			p.jump(p.IP + inst.Imm)
		}
	case 0xE2: // LOOP
		p.CX--
		if p.CX != 0 {
			p.jump(p.IP + inst.Imm)
		}
	case 0xE3: // JCXZ
		if p.CX == 0 {
			p.jump(p.IP + inst.Imm)
		}
	case 0xE4, 0xE5: // IN AL/AX,imm8
		p.in(inst.Imm & 0xFF)
	case 0xE6, 0xE7: // OUT imm8,AL/AX
		p.out(inst.Imm & 0xFF)
	case 0xE8: // CALL rel16
		p.push16(p.IP)
		p.jump(p.IP + inst.Imm)
	case 0xE9, 0xEB: // JMP rel16, JMP rel8
		p.jump(p.IP + inst.Imm)
	case 0xEA: // JMP far
		p.farJump(inst.Seg16, inst.Imm)
	case 0xEC, 0xED: // IN AL/AX,DX
		p.in(p.DX)
	case 0xEE, 0xEF: // OUT DX,AL/AX
		p.out(p.DX)

	case 0xF4: // HLT
		p.halted = true
	case 0xF5: // CMC
		p.SetBool(processor.Carry, !p.GetBool(processor.Carry))
	case 0xF6, 0xF7: // Group 3
		p.group3()
	case 0xF8: // CLC
		p.Clear(processor.Carry)
	case 0xF9: // STC
		p.Set(processor.Carry)
	case 0xFA: // CLI
		p.Clear(processor.InterruptEnable)
	case 0xFB: // STI
		p.Set(processor.InterruptEnable)
		p.irq.inhibitMaskable = true
	case 0xFC: // CLD
		p.Clear(processor.Direction)
	case 0xFD: // STD
		p.Set(processor.Direction)
	case 0xFE: // Group 4 INC/DEC r/m8
		loc := p.rmLocation()
		if inst.Reg() == 0 {
			loc.writeByte(p, byte(p.inc(uint16(loc.readByte(p)), false)))
		} else {
			loc.writeByte(p, byte(p.dec(uint16(loc.readByte(p)), false)))
		}
	case 0xFF: // Group 5
		p.group5()
	}
	return p.checkFault()
}

func (p *CPU) in(port uint16) {
	if p.isWide {
		p.AX = p.inWord(port)
		return
	}
	p.SetAL(p.inByte(port))
}

func (p *CPU) out(port uint16) {
	if p.isWide {
		p.outWord(port, p.AX)
		return
	}
	p.outByte(port, p.AL())
}

func (p *CPU) group3() {
	wide := p.isWide
	loc := p.rmLocation()
	v := loc.read(p, wide)

	switch p.inst.Reg() {
	case 0, 1: // TEST, *TEST
		p.alu(4, v, p.inst.Imm, wide)
	case 2: // NOT
		loc.write(p, wide, ^v)
	case 3: // NEG
		loc.write(p, wide, p.neg(v, wide))
	case 4: // MUL
		if wide {
			p.mul16(v)
		} else {
			p.mul8(byte(v))
		}
		p.cycles += 70
	case 5: // IMUL
		if wide {
			p.imul16(v)
		} else {
			p.imul8(byte(v))
		}
		p.cycles += 80
	case 6: // DIV
		ok := false
		if wide {
			ok = p.div16(v)
		} else {
			ok = p.div8(byte(v))
		}
		if !ok {
			p.raiseException(0)
		}
		p.cycles += 80
	case 7: // IDIV
		ok := false
		if wide {
			ok = p.idiv16(v)
		} else {
			ok = p.idiv8(byte(v))
		}
		if !ok {
			p.raiseException(0)
		}
		p.cycles += 100
	}
}

func (p *CPU) group5() {
	switch p.inst.Reg() {
	case 0: // INC r/m16
		loc := p.rmLocation()
		loc.writeWord(p, p.inc(loc.readWord(p), true))
	case 1: // DEC r/m16
		loc := p.rmLocation()
		loc.writeWord(p, p.dec(loc.readWord(p), true))
	case 2: // CALL r/m16
		ip := p.rmLocation().readWord(p)
		p.push16(p.IP)
		p.jump(ip)
	case 3: // CALL m16:16
		addr := p.memoryOperand()
		ip := p.readWord(addr.Segment(), addr.Offset())
		cs := p.readWord(addr.Segment(), addr.Offset()+2)
		p.push16(p.CS)
		p.push16(p.IP)
		p.farJump(cs, ip)
	case 4: // JMP r/m16
		p.jump(p.rmLocation().readWord(p))
	case 5: // JMP m16:16
		addr := p.memoryOperand()
		ip := p.readWord(addr.Segment(), addr.Offset())
		p.farJump(p.readWord(addr.Segment(), addr.Offset()+2), ip)
	case 6, 7: // PUSH r/m16, *PUSH r/m16
		loc := p.rmLocation()
		if !loc.isMemory() && p.inst.RM() == 4 {
			p.SP -= 2
			p.writeWord(p.SS, p.SP, p.SP)
			return
		}
		p.push16(loc.readWord(p))
	}
}
