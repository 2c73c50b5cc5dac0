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


package processor

import (
	"fmt"
	"strings"
)

const (
	Carry           Flags = 0x001
	Parity          Flags = 0x004
	Adjust          Flags = 0x010
	Zero            Flags = 0x040
	Sign            Flags = 0x080
	Trap            Flags = 0x100
	InterruptEnable Flags = 0x200
	Direction       Flags = 0x400
	Overflow        Flags = 0x800
)

const AllFlags = Carry | Parity | Adjust | Zero | Sign | Trap | InterruptEnable | Direction | Overflow

// Bits that always read back as one on the 8088.
const reservedFlags = 0xF002

type Flags uint16

func (r *Flags) Get(f Flags) Flags {
	return *r & f
}

func (r *Flags) GetBool(f Flags) bool {
	return r.Get(f) != 0
}

func (r *Flags) Set(f Flags) {
	*r |= f
}

func (r *Flags) SetBool(f Flags, b bool) {
	if b {
		r.Set(f)
		return
	}
	r.Clear(f)
}

func (r *Flags) Clear(f Flags) {
	*r &= ^f
}

func (r *Flags) Store(f uint16) {
	*r = Flags(f) & AllFlags
}

func (r *Flags) Load() uint16 {
	return uint16(*r&AllFlags) | reservedFlags
}

func (r Flags) String() string {
	s := []byte("---------")
	for i, f := range [...]Flags{Overflow, Direction, InterruptEnable, Trap, Sign, Zero, Adjust, Parity, Carry} {
		if r&f != 0 {
			s[i] = "ODITSZAPC"[i]
		}
	}
	return string(s)
}

// Registers is the architectural state of the processor. A copy of it is a
// complete snapshot.
type Registers struct {
	AX, CX, DX, BX,
	SP, BP, SI, DI,
	ES, CS, SS, DS uint16

	Flags

	IP uint16
}

func (r *Registers) Reset() {
	*r = Registers{CS: 0xFFFF}
}

func (r *Registers) AL() byte {
	return byte(r.AX & 0xFF)
}

func (r *Registers) AH() byte {
	return byte(r.AX >> 8)
}

func (r *Registers) SetAL(v byte) {
	r.AX = r.AX&0xFF00 | uint16(v)
}

func (r *Registers) SetAH(v byte) {
	r.AX = r.AX&0xFF | uint16(v)<<8
}

func (r *Registers) BL() byte {
	return byte(r.BX & 0xFF)
}

func (r *Registers) BH() byte {
	return byte(r.BX >> 8)
}

func (r *Registers) SetBL(v byte) {
	r.BX = r.BX&0xFF00 | uint16(v)
}

func (r *Registers) SetBH(v byte) {
	r.BX = r.BX&0xFF | uint16(v)<<8
}

func (r *Registers) CL() byte {
	return byte(r.CX & 0xFF)
}

func (r *Registers) CH() byte {
	return byte(r.CX >> 8)
}

func (r *Registers) SetCL(v byte) {
	r.CX = r.CX&0xFF00 | uint16(v)
}

func (r *Registers) SetCH(v byte) {
	r.CX = r.CX&0xFF | uint16(v)<<8
}

func (r *Registers) DL() byte {
	return byte(r.DX & 0xFF)
}

func (r *Registers) DH() byte {
	return byte(r.DX >> 8)
}

func (r *Registers) SetDL(v byte) {
	r.DX = r.DX&0xFF00 | uint16(v)
}

func (r *Registers) SetDH(v byte) {
	r.DX = r.DX&0xFF | uint16(v)<<8
}

// Reg8 returns the byte register with the given ModRM encoding (AL CL DL BL AH CH DH BH).
func (r *Registers) Reg8(n byte) byte {
	switch n & 7 {
	case 0:
		return r.AL()
	case 1:
		return r.CL()
	case 2:
		return r.DL()
	case 3:
		return r.BL()
	case 4:
		return r.AH()
	case 5:
		return r.CH()
	case 6:
		return r.DH()
	default:
		return r.BH()
	}
}

func (r *Registers) SetReg8(n, v byte) {
	switch n & 7 {
	case 0:
		r.SetAL(v)
	case 1:
		r.SetCL(v)
	case 2:
		r.SetDL(v)
	case 3:
		r.SetBL(v)
	case 4:
		r.SetAH(v)
	case 5:
		r.SetCH(v)
	case 6:
		r.SetDH(v)
	default:
		r.SetBH(v)
	}
}

// Reg16 returns a pointer to the word register with the given ModRM encoding
// (AX CX DX BX SP BP SI DI).
func (r *Registers) Reg16(n byte) *uint16 {
	switch n & 7 {
	case 0:
		return &r.AX
	case 1:
		return &r.CX
	case 2:
		return &r.DX
	case 3:
		return &r.BX
	case 4:
		return &r.SP
	case 5:
		return &r.BP
	case 6:
		return &r.SI
	default:
		return &r.DI
	}
}

// Seg returns a pointer to the segment register with the given encoding (ES CS SS DS).
// Only the two low bits are decoded, like the 8088 does.
func (r *Registers) Seg(n byte) *uint16 {
	switch n & 3 {
	case 0:
		return &r.ES
	case 1:
		return &r.CS
	case 2:
		return &r.SS
	default:
		return &r.DS
	}
}

func (r *Registers) GetValues() [12]uint16 {
	return [12]uint16{
		r.AX, r.CX, r.DX, r.BX,
		r.SP, r.BP, r.SI, r.DI,
		r.ES, r.CS, r.SS, r.DS,
	}
}

func (r Registers) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "AX=%04X BX=%04X CX=%04X DX=%04X SP=%04X BP=%04X SI=%04X DI=%04X\n",
		r.AX, r.BX, r.CX, r.DX, r.SP, r.BP, r.SI, r.DI)
	fmt.Fprintf(&sb, "DS=%04X ES=%04X SS=%04X CS=%04X IP=%04X FLAGS=%04X %v",
		r.DS, r.ES, r.SS, r.CS, r.IP, r.Flags.Load(), r.Flags)
	return sb.String()
}
