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

type Policy byte

const (
	// Documented instructions behave as described in the Intel manuals.
	Documented Policy = iota
	// Alias is an undocumented encoding that executes a documented instruction.
	Alias
	// Undocumented encodings have behaviour of their own on the 8088.
	Undocumented
	// NoOperation encodings consume their operands and do nothing else.
	NoOperation
	// Invalid encodings are not modelled and are reported to the caller.
	Invalid
)

func (p Policy) String() string {
	switch p {
	case Documented:
		return "documented"
	case Alias:
		return "alias"
	case Undocumented:
		return "undocumented"
	case NoOperation:
		return "nop"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Operand layout used by the disassembler.
type format byte

const (
	fmtNone      format = iota
	fmtPrefix           // consumed by the prefix loop
	fmtRMReg            // rm, reg
	fmtRegRM            // reg, rm
	fmtAccImm           // al/ax, imm
	fmtReg16            // register in the low three bits
	fmtAccReg16         // ax, register in the low three bits
	fmtSeg              // segment register in bits 3-4
	fmtRel8             // short relative target
	fmtRel16            // near relative target
	fmtFar              // seg:off immediate
	fmtRMImm            // rm, imm
	fmtRM               // rm
	fmtShift1           // rm, 1
	fmtShiftCL          // rm, cl
	fmtRMSeg            // rm, sreg
	fmtSegRM            // sreg, rm
	fmtRegMem           // reg16, m
	fmtAccMoffs         // al/ax, [moffs]
	fmtMoffsAcc         // [moffs], al/ax
	fmtRegImm           // register in the low three bits, imm
	fmtImm              // imm
	fmtInImm            // al/ax, imm8
	fmtOutImm           // imm8, al/ax
	fmtInDX             // al/ax, dx
	fmtOutDX            // dx, al/ax
	fmtEsc              // escape to coprocessor
	fmtGroup            // mnemonic and operands depend on the reg field
)

type opcode struct {
	mnemonic string
	format   format
	modRM    bool
	imm      int
	policy   Policy
}

func alu(name string) [6]opcode {
	return [6]opcode{
		{name, fmtRMReg, true, 0, Documented},
		{name, fmtRMReg, true, 0, Documented},
		{name, fmtRegRM, true, 0, Documented},
		{name, fmtRegRM, true, 0, Documented},
		{name, fmtAccImm, false, 1, Documented},
		{name, fmtAccImm, false, 2, Documented},
	}
}

var conditions = [16]string{"jo", "jno", "jb", "jnb", "jz", "jnz", "jbe", "ja", "js", "jns", "jpe", "jpo", "jl", "jge", "jle", "jg"}

var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() (t [256]opcode) {
	for i, name := range [...]string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"} {
		ops := alu(name)
		copy(t[i*8:], ops[:])
	}

	t[0x06] = opcode{"push", fmtSeg, false, 0, Documented}
	t[0x07] = opcode{"pop", fmtSeg, false, 0, Documented}
	t[0x0E] = opcode{"push", fmtSeg, false, 0, Documented}
	t[0x0F] = opcode{"pop", fmtSeg, false, 0, Undocumented}
	t[0x16] = opcode{"push", fmtSeg, false, 0, Documented}
	t[0x17] = opcode{"pop", fmtSeg, false, 0, Documented}
	t[0x1E] = opcode{"push", fmtSeg, false, 0, Documented}
	t[0x1F] = opcode{"pop", fmtSeg, false, 0, Documented}

	t[0x27] = opcode{"daa", fmtNone, false, 0, Documented}
	t[0x2F] = opcode{"das", fmtNone, false, 0, Documented}
	t[0x37] = opcode{"aaa", fmtNone, false, 0, Documented}
	t[0x3F] = opcode{"aas", fmtNone, false, 0, Documented}

	for _, p := range [...]byte{0x26, 0x2E, 0x36, 0x3E, 0xF0, 0xF1, 0xF2, 0xF3} {
		t[p] = opcode{"", fmtPrefix, false, 0, Documented}
	}

	for r := 0; r < 8; r++ {
		t[0x40+r] = opcode{"inc", fmtReg16, false, 0, Documented}
		t[0x48+r] = opcode{"dec", fmtReg16, false, 0, Documented}
		t[0x50+r] = opcode{"push", fmtReg16, false, 0, Documented}
		t[0x58+r] = opcode{"pop", fmtReg16, false, 0, Documented}
		t[0x90+r] = opcode{"xchg", fmtAccReg16, false, 0, Documented}
		t[0xB0+r] = opcode{"mov", fmtRegImm, false, 1, Documented}
		t[0xB8+r] = opcode{"mov", fmtRegImm, false, 2, Documented}
		t[0xD8+r] = opcode{"esc", fmtEsc, true, 0, NoOperation}
	}
	t[0x90] = opcode{"nop", fmtNone, false, 0, Documented}

	for c, name := range conditions {
		t[0x70+c] = opcode{name, fmtRel8, false, 1, Documented}
		t[0x60+c] = opcode{name, fmtRel8, false, 1, Alias}
	}

	t[0x80] = opcode{"", fmtGroup, true, 1, Documented}
	t[0x81] = opcode{"", fmtGroup, true, 2, Documented}
	t[0x82] = opcode{"", fmtGroup, true, 1, Alias}
	t[0x83] = opcode{"", fmtGroup, true, 1, Documented}
	t[0x84] = opcode{"test", fmtRMReg, true, 0, Documented}
	t[0x85] = opcode{"test", fmtRMReg, true, 0, Documented}
	t[0x86] = opcode{"xchg", fmtRegRM, true, 0, Documented}
	t[0x87] = opcode{"xchg", fmtRegRM, true, 0, Documented}
	t[0x88] = opcode{"mov", fmtRMReg, true, 0, Documented}
	t[0x89] = opcode{"mov", fmtRMReg, true, 0, Documented}
	t[0x8A] = opcode{"mov", fmtRegRM, true, 0, Documented}
	t[0x8B] = opcode{"mov", fmtRegRM, true, 0, Documented}
	t[0x8C] = opcode{"mov", fmtRMSeg, true, 0, Documented}
	t[0x8D] = opcode{"lea", fmtRegMem, true, 0, Documented}
	t[0x8E] = opcode{"mov", fmtSegRM, true, 0, Documented}
	t[0x8F] = opcode{"pop", fmtRM, true, 0, Documented}

	t[0x98] = opcode{"cbw", fmtNone, false, 0, Documented}
	t[0x99] = opcode{"cwd", fmtNone, false, 0, Documented}
	t[0x9A] = opcode{"call", fmtFar, false, 4, Documented}
	t[0x9B] = opcode{"wait", fmtNone, false, 0, Documented}
	t[0x9C] = opcode{"pushf", fmtNone, false, 0, Documented}
	t[0x9D] = opcode{"popf", fmtNone, false, 0, Documented}
	t[0x9E] = opcode{"sahf", fmtNone, false, 0, Documented}
	t[0x9F] = opcode{"lahf", fmtNone, false, 0, Documented}

	t[0xA0] = opcode{"mov", fmtAccMoffs, false, 0, Documented}
	t[0xA1] = opcode{"mov", fmtAccMoffs, false, 0, Documented}
	t[0xA2] = opcode{"mov", fmtMoffsAcc, false, 0, Documented}
	t[0xA3] = opcode{"mov", fmtMoffsAcc, false, 0, Documented}
	t[0xA4] = opcode{"movsb", fmtNone, false, 0, Documented}
	t[0xA5] = opcode{"movsw", fmtNone, false, 0, Documented}
	t[0xA6] = opcode{"cmpsb", fmtNone, false, 0, Documented}
	t[0xA7] = opcode{"cmpsw", fmtNone, false, 0, Documented}
	t[0xA8] = opcode{"test", fmtAccImm, false, 1, Documented}
	t[0xA9] = opcode{"test", fmtAccImm, false, 2, Documented}
	t[0xAA] = opcode{"stosb", fmtNone, false, 0, Documented}
	t[0xAB] = opcode{"stosw", fmtNone, false, 0, Documented}
	t[0xAC] = opcode{"lodsb", fmtNone, false, 0, Documented}
	t[0xAD] = opcode{"lodsw", fmtNone, false, 0, Documented}
	t[0xAE] = opcode{"scasb", fmtNone, false, 0, Documented}
	t[0xAF] = opcode{"scasw", fmtNone, false, 0, Documented}

	t[0xC0] = opcode{"ret", fmtImm, false, 2, Alias}
	t[0xC1] = opcode{"ret", fmtNone, false, 0, Alias}
	t[0xC2] = opcode{"ret", fmtImm, false, 2, Documented}
	t[0xC3] = opcode{"ret", fmtNone, false, 0, Documented}
	t[0xC4] = opcode{"les", fmtRegMem, true, 0, Documented}
	t[0xC5] = opcode{"lds", fmtRegMem, true, 0, Documented}
	t[0xC6] = opcode{"mov", fmtRMImm, true, 1, Documented}
	t[0xC7] = opcode{"mov", fmtRMImm, true, 2, Documented}
	t[0xC8] = opcode{"retf", fmtImm, false, 2, Alias}
	t[0xC9] = opcode{"retf", fmtNone, false, 0, Alias}
	t[0xCA] = opcode{"retf", fmtImm, false, 2, Documented}
	t[0xCB] = opcode{"retf", fmtNone, false, 0, Documented}
	t[0xCC] = opcode{"int3", fmtNone, false, 0, Documented}
	t[0xCD] = opcode{"int", fmtImm, false, 1, Documented}
	t[0xCE] = opcode{"into", fmtNone, false, 0, Documented}
	t[0xCF] = opcode{"iret", fmtNone, false, 0, Documented}

	t[0xD0] = opcode{"", fmtGroup, true, 0, Documented}
	t[0xD1] = opcode{"", fmtGroup, true, 0, Documented}
	t[0xD2] = opcode{"", fmtGroup, true, 0, Documented}
	t[0xD3] = opcode{"", fmtGroup, true, 0, Documented}
	t[0xD4] = opcode{"aam", fmtImm, false, 1, Documented}
	t[0xD5] = opcode{"aad", fmtImm, false, 1, Documented}
	t[0xD6] = opcode{"salc", fmtNone, false, 0, Undocumented}
	t[0xD7] = opcode{"xlat", fmtNone, false, 0, Documented}

	t[0xE0] = opcode{"loopnz", fmtRel8, false, 1, Documented}
	t[0xE1] = opcode{"loopz", fmtRel8, false, 1, Documented}
	t[0xE2] = opcode{"loop", fmtRel8, false, 1, Documented}
	t[0xE3] = opcode{"jcxz", fmtRel8, false, 1, Documented}
	t[0xE4] = opcode{"in", fmtInImm, false, 1, Documented}
	t[0xE5] = opcode{"in", fmtInImm, false, 1, Documented}
	t[0xE6] = opcode{"out", fmtOutImm, false, 1, Documented}
	t[0xE7] = opcode{"out", fmtOutImm, false, 1, Documented}
	t[0xE8] = opcode{"call", fmtRel16, false, 2, Documented}
	t[0xE9] = opcode{"jmp", fmtRel16, false, 2, Documented}
	t[0xEA] = opcode{"jmp", fmtFar, false, 4, Documented}
	t[0xEB] = opcode{"jmp", fmtRel8, false, 1, Documented}
	t[0xEC] = opcode{"in", fmtInDX, false, 0, Documented}
	t[0xED] = opcode{"in", fmtInDX, false, 0, Documented}
	t[0xEE] = opcode{"out", fmtOutDX, false, 0, Documented}
	t[0xEF] = opcode{"out", fmtOutDX, false, 0, Documented}

	t[0xF4] = opcode{"hlt", fmtNone, false, 0, Documented}
	t[0xF5] = opcode{"cmc", fmtNone, false, 0, Documented}
	t[0xF6] = opcode{"", fmtGroup, true, 0, Documented}
	t[0xF7] = opcode{"", fmtGroup, true, 0, Documented}
	t[0xF8] = opcode{"clc", fmtNone, false, 0, Documented}
	t[0xF9] = opcode{"stc", fmtNone, false, 0, Documented}
	t[0xFA] = opcode{"cli", fmtNone, false, 0, Documented}
	t[0xFB] = opcode{"sti", fmtNone, false, 0, Documented}
	t[0xFC] = opcode{"cld", fmtNone, false, 0, Documented}
	t[0xFD] = opcode{"std", fmtNone, false, 0, Documented}
	t[0xFE] = opcode{"", fmtGroup, true, 0, Documented}
	t[0xFF] = opcode{"", fmtGroup, true, 0, Documented}
	return
}

var (
	group1 = [8]string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}
	group2 = [8]string{"rol", "ror", "rcl", "rcr", "shl", "shr", "setmo", "sar"}
	group3 = [8]string{"test", "test", "not", "neg", "mul", "imul", "div", "idiv"}
	group4 = [8]string{"inc", "dec", "(bad)", "(bad)", "(bad)", "(bad)", "(bad)", "(bad)"}
	group5 = [8]string{"inc", "dec", "call", "call far", "jmp", "jmp far", "push", "push"}
)

func mnemonic(op, reg byte) string {
	switch op {
	case 0x80, 0x81, 0x82, 0x83:
		return group1[reg]
	case 0xD0, 0xD1, 0xD2, 0xD3:
		if reg == 6 && op >= 0xD2 {
			return "setmoc"
		}
		return group2[reg]
	case 0xF6, 0xF7:
		return group3[reg]
	case 0xFE:
		return group4[reg]
	case 0xFF:
		return group5[reg]
	}
	return opcodeTable[op].mnemonic
}

// groupPolicy refines the policy of ModRM opcodes whose reg or mod field selects
// undocumented behaviour.
func groupPolicy(op, modRM byte, p Policy) Policy {
	mod, reg := modRM>>6, (modRM>>3)&7
	switch op {
	case 0x8D, 0xC4, 0xC5:
		if mod == 3 {
			return Undocumented
		}
	case 0x8C, 0x8E:
		if reg > 3 {
			return Alias
		}
	case 0x8F, 0xC6, 0xC7:
		if reg != 0 {
			return Alias
		}
	case 0xD0, 0xD1, 0xD2, 0xD3:
		if reg == 6 {
			return Undocumented
		}
	case 0xF6, 0xF7:
		if reg == 1 {
			return Alias
		}
	case 0xFE:
		if reg > 1 {
			return Invalid
		}
	case 0xFF:
		if reg == 7 {
			return Alias
		}
		if mod == 3 && (reg == 3 || reg == 5) {
			return Undocumented
		}
	}
	return p
}
