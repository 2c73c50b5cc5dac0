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


package decoder

import (
	"fmt"
	"strings"
)

var (
	byteRegisters = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
	wordRegisters = [8]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}
	segRegisters  = [4]string{"es", "cs", "ss", "ds"}

	// Effective address terms by r/m. With mod=00, r/m=110 is a direct address.
	effectiveAddress = [8]string{"bx+si", "bx+di", "bp+si", "bp+di", "si", "di", "bp", "bx"}
)

func register(n byte, wide bool) string {
	if wide {
		return wordRegisters[n&7]
	}
	return byteRegisters[n&7]
}

func hex(v uint16) string {
	return fmt.Sprintf("0x%X", v)
}

func (i *Instruction) wide() bool {
	return i.Opcode&1 != 0
}

func (i *Instruction) memory() string {
	var sb strings.Builder
	if i.Segment != NoSegment {
		sb.WriteString(i.Segment.String())
		sb.WriteByte(':')
	}
	sb.WriteByte('[')

	if !i.HasModRM || (i.Mod() == 0 && i.RM() == 6) {
		sb.WriteString(hex(i.Disp))
	} else {
		sb.WriteString(effectiveAddress[i.RM()])
		if d := int16(i.Disp); d < 0 {
			fmt.Fprintf(&sb, "-0x%X", -int(d))
		} else if d > 0 {
			fmt.Fprintf(&sb, "+0x%X", d)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func (i *Instruction) rm(wide, sized bool) string {
	if i.Mod() == 3 {
		return register(i.RM(), wide)
	}
	if !sized {
		return i.memory()
	}
	if wide {
		return "word " + i.memory()
	}
	return "byte " + i.memory()
}

func (i *Instruction) relative() string {
	rel := int(int16(i.Imm)) + i.Length
	if rel < 0 {
		return fmt.Sprintf("$-0x%X", -rel)
	}
	return fmt.Sprintf("$+0x%X", rel)
}

func (i *Instruction) operands() []string {
	w := i.wide()
	switch opcodeTable[i.Opcode].format {
	case fmtRMReg:
		return []string{i.rm(w, false), register(i.Reg(), w)}
	case fmtRegRM:
		return []string{register(i.Reg(), w), i.rm(w, false)}
	case fmtAccImm:
		return []string{register(0, w), hex(i.Imm)}
	case fmtReg16:
		return []string{wordRegisters[i.Opcode&7]}
	case fmtAccReg16:
		return []string{"ax", wordRegisters[i.Opcode&7]}
	case fmtSeg:
		return []string{segRegisters[(i.Opcode>>3)&3]}
	case fmtRel8, fmtRel16:
		return []string{i.relative()}
	case fmtFar:
		return []string{fmt.Sprintf("0x%X:0x%X", i.Seg16, i.Imm)}
	case fmtRMImm:
		return []string{i.rm(w, true), hex(i.Imm)}
	case fmtRM:
		return []string{i.rm(true, true)}
	case fmtRMSeg:
		return []string{i.rm(true, false), segRegisters[i.Reg()&3]}
	case fmtSegRM:
		return []string{segRegisters[i.Reg()&3], i.rm(true, false)}
	case fmtRegMem:
		return []string{wordRegisters[i.Reg()], i.rm(true, false)}
	case fmtAccMoffs:
		return []string{register(0, w), i.memory()}
	case fmtMoffsAcc:
		return []string{i.memory(), register(0, w)}
	case fmtRegImm:
		return []string{register(i.Opcode, i.Opcode&8 != 0), hex(i.Imm)}
	case fmtImm:
		return []string{hex(i.Imm)}
	case fmtInImm:
		return []string{register(0, w), hex(i.Imm)}
	case fmtOutImm:
		return []string{hex(i.Imm), register(0, w)}
	case fmtInDX:
		return []string{register(0, w), "dx"}
	case fmtOutDX:
		return []string{"dx", register(0, w)}
	case fmtEsc:
		return []string{hex(uint16(i.Opcode&7)<<3 | uint16(i.Reg())), i.rm(true, false)}
	case fmtGroup:
		return i.groupOperands()
	}
	return nil
}

func (i *Instruction) groupOperands() []string {
	w := i.wide()
	switch i.Opcode {
	case 0x80, 0x81, 0x82, 0x83:
		return []string{i.rm(w, true), hex(i.Imm)}
	case 0xD0, 0xD1:
		return []string{i.rm(w, true), "1"}
	case 0xD2, 0xD3:
		return []string{i.rm(w, true), "cl"}
	case 0xF6, 0xF7:
		if i.ImmSize > 0 {
			return []string{i.rm(w, true), hex(i.Imm)}
		}
		return []string{i.rm(w, true)}
	case 0xFE:
		return []string{i.rm(false, true)}
	}

	switch i.Reg() {
	case 3, 5:
		return []string{i.rm(true, false)}
	}
	return []string{i.rm(true, true)}
}

// String renders the instruction in Intel syntax.
func (i Instruction) String() string {
	var sb strings.Builder
	if i.Lock {
		sb.WriteString("lock ")
	}

	name := i.Mnemonic()
	switch i.Repeat {
	case RepNE:
		sb.WriteString("repne ")
	case RepE:
		switch i.Opcode {
		case 0xA6, 0xA7, 0xAE, 0xAF:
			sb.WriteString("repe ")
		default:
			sb.WriteString("rep ")
		}
	}

	ops := i.operands()
	if i.Segment != NoSegment && !i.IsMemory() && opcodeTable[i.Opcode].format != fmtAccMoffs && opcodeTable[i.Opcode].format != fmtMoffsAcc {
		sb.WriteString(i.Segment.String())
		sb.WriteByte(' ')
	}

	sb.WriteString(name)
	if len(ops) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(ops, ", "))
	}
	return sb.String()
}
