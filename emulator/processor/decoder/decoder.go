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


// Package decoder turns a stream of 8088 instruction bytes into decoded instructions.
//
// An instruction is laid out as
//
//	[prefix...] [opcode] [mod|reg|r/m] [disp-lo] [disp-hi] [data-lo] [data-hi]
//
// where everything but the opcode is optional. Displacements and immediates are
// little endian and 8-bit displacements are sign-extended to 16 bits.
package decoder

import (
	"fmt"
	"io"

	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

// MaxPrefixes is the number of prefix bytes accepted in front of one opcode.
const MaxPrefixes = 255

// ErrInvalidOpcode is the same value as processor.ErrInvalidOpcode.
var ErrInvalidOpcode = processor.ErrInvalidOpcode

type ByteSource interface {
	NextByte() (byte, error)
}

// Segment names a segment register in ModRM order.
type Segment byte

const (
	ES Segment = iota
	CS
	SS
	DS
	NoSegment
)

func (s Segment) String() string {
	switch s {
	case ES:
		return "es"
	case CS:
		return "cs"
	case SS:
		return "ss"
	case DS:
		return "ds"
	}
	return ""
}

type Repeat byte

const (
	NoRepeat Repeat = iota
	RepNE           // F2
	RepE            // F3
)

type Instruction struct {
	// Raw prefix bytes in the order they were read.
	Prefixes []byte

	Segment Segment
	Repeat  Repeat
	Lock    bool

	Opcode   byte
	HasModRM bool
	ModRM    byte

	Disp     uint16
	DispSize int

	// Imm holds the immediate sign- or zero-extended to 16 bits. Far pointers
	// keep the offset in Imm and the segment in Seg16 with ImmSize 4.
	Imm     uint16
	Seg16   uint16
	ImmSize int

	Length int
	Policy Policy
}

func (i *Instruction) Mod() byte {
	return i.ModRM >> 6
}

func (i *Instruction) Reg() byte {
	return (i.ModRM >> 3) & 7
}

func (i *Instruction) RM() byte {
	return i.ModRM & 7
}

// IsMemory reports whether the ModRM operand refers to memory.
func (i *Instruction) IsMemory() bool {
	return i.HasModRM && i.Mod() != 3
}

// Mnemonic returns the lowercase mnemonic, resolving group opcodes through the reg field.
func (i *Instruction) Mnemonic() string {
	return mnemonic(i.Opcode, i.Reg())
}

func isPrefix(b byte) bool {
	switch b {
	case 0x26, 0x2E, 0x36, 0x3E, 0xF0, 0xF1, 0xF2, 0xF3:
		return true
	}
	return false
}

// Decode reads one instruction from src. Errors returned by src are passed through unchanged.
func Decode(src ByteSource) (Instruction, error) {
	inst := Instruction{Segment: NoSegment}

	next := func() (byte, error) {
		b, err := src.NextByte()
		if err == nil {
			inst.Length++
		}
		return b, err
	}

	var (
		op  byte
		err error
	)
	for {
		if op, err = next(); err != nil {
			return inst, err
		}
		if !isPrefix(op) {
			break
		}
		if len(inst.Prefixes) == MaxPrefixes {
			return inst, fmt.Errorf("%w: more than %d prefixes", ErrInvalidOpcode, MaxPrefixes)
		}
		inst.Prefixes = append(inst.Prefixes, op)

		switch op {
		case 0x26:
			inst.Segment = ES
		case 0x2E:
			inst.Segment = CS
		case 0x36:
			inst.Segment = SS
		case 0x3E:
			inst.Segment = DS
		case 0xF0, 0xF1:
			inst.Lock = true
		case 0xF2:
			inst.Repeat = RepNE
		case 0xF3:
			inst.Repeat = RepE
		}
	}

	inst.Opcode = op
	desc := &opcodeTable[op]
	inst.Policy = desc.policy
	inst.ImmSize = desc.imm

	if desc.modRM {
		inst.HasModRM = true
		if inst.ModRM, err = next(); err != nil {
			return inst, err
		}

		switch inst.Mod() {
		case 0:
			if inst.RM() == 6 {
				inst.DispSize = 2
			}
		case 1:
			inst.DispSize = 1
		case 2:
			inst.DispSize = 2
		}
		inst.Policy = groupPolicy(op, inst.ModRM, inst.Policy)

		// TEST is the only group 3 member with an immediate.
		if (op == 0xF6 || op == 0xF7) && inst.Reg() < 2 {
			inst.ImmSize = int(op&1) + 1
		}
	} else if desc.format == fmtAccMoffs || desc.format == fmtMoffsAcc {
		inst.DispSize = 2
	}

	switch inst.DispSize {
	case 1:
		b, err := next()
		if err != nil {
			return inst, err
		}
		inst.Disp = signExtend(b)
	case 2:
		if inst.Disp, err = readWord(next); err != nil {
			return inst, err
		}
	}

	switch inst.ImmSize {
	case 1:
		b, err := next()
		if err != nil {
			return inst, err
		}
		if desc.format == fmtRel8 || op == 0x83 {
			inst.Imm = signExtend(b)
		} else {
			inst.Imm = uint16(b)
		}
	case 2:
		if inst.Imm, err = readWord(next); err != nil {
			return inst, err
		}
	case 4:
		if inst.Imm, err = readWord(next); err != nil {
			return inst, err
		}
		if inst.Seg16, err = readWord(next); err != nil {
			return inst, err
		}
	}
	return inst, nil
}

func readWord(next func() (byte, error)) (uint16, error) {
	lo, err := next()
	if err != nil {
		return 0, err
	}
	hi, err := next()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func signExtend(v byte) uint16 {
	if v&0x80 != 0 {
		return uint16(v) | 0xFF00
	}
	return uint16(v)
}

type sliceSource struct {
	data []byte
	pos  int
}

func (s *sliceSource) NextByte() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// DecodeBytes decodes the instruction at the start of data.
func DecodeBytes(data []byte) (Instruction, error) {
	return Decode(&sliceSource{data: data})
}

// Encode returns the bytes the instruction was decoded from.
func (i *Instruction) Encode() []byte {
	buf := make([]byte, 0, i.Length)
	buf = append(buf, i.Prefixes...)
	buf = append(buf, i.Opcode)
	if i.HasModRM {
		buf = append(buf, i.ModRM)
	}

	switch i.DispSize {
	case 1:
		buf = append(buf, byte(i.Disp))
	case 2:
		buf = append(buf, byte(i.Disp), byte(i.Disp>>8))
	}

	switch i.ImmSize {
	case 1:
		buf = append(buf, byte(i.Imm))
	case 2:
		buf = append(buf, byte(i.Imm), byte(i.Imm>>8))
	case 4:
		buf = append(buf, byte(i.Imm), byte(i.Imm>>8), byte(i.Seg16), byte(i.Seg16>>8))
	}
	return buf
}
