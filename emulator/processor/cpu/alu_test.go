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
	"math/rand"
	"testing"

	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

const arithFlags = processor.Carry | processor.Parity | processor.Adjust | processor.Zero | processor.Sign | processor.Overflow

// refFlags computes the arithmetic flags of a+b+c (or a-b-c) from first
// principles, independent of the masks used by the ALU.
func refFlags(a, b, c uint32, sub, wide bool) (uint32, processor.Flags) {
	bitsN := uint(8)
	if wide {
		bitsN = 16
	}
	mask := uint32(1)<<bitsN - 1
	sign := uint32(1) << (bitsN - 1)

	var (
		res         uint32
		carry, half bool
	)
	if sub {
		res = (a - b - c) & mask
		carry = a < b+c
		half = a&0xF < b&0xF+c
	} else {
		res = (a + b + c) & mask
		carry = a+b+c > mask
		half = a&0xF+b&0xF+c > 0xF
	}

	sa, sb, sr := a&sign != 0, b&sign != 0, res&sign != 0
	overflow := sa == sb && sr != sa
	if sub {
		overflow = sa != sb && sr != sa
	}

	var f processor.Flags
	f.SetBool(processor.Carry, carry)
	f.SetBool(processor.Adjust, half)
	f.SetBool(processor.Overflow, overflow)
	f.SetBool(processor.Zero, res == 0)
	f.SetBool(processor.Sign, sr)
	f.SetBool(processor.Parity, bits.OnesCount8(uint8(res))%2 == 0)
	return res, f
}

func checkALU(t *testing.T, p *CPU, op byte, a, b uint32, wide bool) {
	t.Helper()

	cin := b2ui32(p.GetBool(processor.Carry))
	var c uint32
	if op == 2 || op == 3 {
		c = cin
	}
	sub := op == 3 || op == 5 || op == 7

	want, wantFlags := refFlags(a, b, c, sub, wide)
	got, store := p.alu(op, uint16(a), uint16(b), wide)
	if op == 7 {
		if store {
			t.Fatal("CMP stored a result")
		}
		got = uint16(want)
	}

	if uint32(got) != want || p.Get(arithFlags) != wantFlags {
		t.Fatalf("op %d: %X,%X (cf %d, wide %v) = %X %v, want %X %v", op, a, b, cin, wide, got, p.Flags.Get(arithFlags), want, wantFlags)
	}
}

func TestFlagsExhaustive8(t *testing.T) {
	p := NewCPU(newTestBus())
	for _, op := range []byte{0, 2, 3, 5, 7} {
		for cf := 0; cf < 2; cf++ {
			for a := uint32(0); a < 0x100; a++ {
				for b := uint32(0); b < 0x100; b++ {
					p.SetBool(processor.Carry, cf == 1)
					checkALU(t, p, op, a, b, false)
				}
			}
		}
	}
}

func TestFlagsRandom16(t *testing.T) {
	n := 1000000
	if testing.Short() {
		n = 10000
	}

	rnd := rand.New(rand.NewSource(8088))
	p := NewCPU(newTestBus())
	ops := []byte{0, 2, 3, 5, 7}

	for i := 0; i < n; i++ {
		a, b := uint32(rnd.Intn(0x10000)), uint32(rnd.Intn(0x10000))
		p.SetBool(processor.Carry, rnd.Intn(2) == 1)
		checkALU(t, p, ops[i%len(ops)], a, b, true)
	}
}

func TestLogicFlags(t *testing.T) {
	p := NewCPU(newTestBus())
	p.Set(processor.Carry | processor.Overflow | processor.Adjust)

	res, _ := p.alu(6, 0x80F0, 0x00F0, true) // XOR
	if res != 0x8000 {
		t.Errorf("res = %04X", res)
	}
	if p.GetBool(processor.Carry) || p.GetBool(processor.Overflow) || p.GetBool(processor.Adjust) {
		t.Errorf("flags = %v", p.Flags)
	}
	if !p.GetBool(processor.Sign) || p.GetBool(processor.Zero) || !p.GetBool(processor.Parity) {
		t.Errorf("flags = %v", p.Flags)
	}
}

func TestMultiply(t *testing.T) {
	p := NewCPU(newTestBus())

	p.AX = 0x0010
	p.mul8(0x10)
	if p.AX != 0x0100 || !p.GetBool(processor.Carry) || !p.GetBool(processor.Overflow) {
		t.Errorf("MUL8: AX=%04X flags=%v", p.AX, p.Flags)
	}

	p.AX = 0x00FF // -1
	p.imul8(0xFF)
	if p.AX != 1 || p.GetBool(processor.Carry) {
		t.Errorf("IMUL8: AX=%04X flags=%v", p.AX, p.Flags)
	}

	p.AX = 0x8000
	p.imul16(0xFFFF)
	if p.DX != 0 || p.AX != 0x8000 || !p.GetBool(processor.Overflow) {
		t.Errorf("IMUL16: DX:AX=%04X:%04X flags=%v", p.DX, p.AX, p.Flags)
	}

	p.AX, p.DX = 0xFFFF, 0
	p.mul16(0xFFFF)
	if p.DX != 0xFFFE || p.AX != 1 {
		t.Errorf("MUL16: DX:AX=%04X:%04X", p.DX, p.AX)
	}
}

func TestDivide(t *testing.T) {
	p := NewCPU(newTestBus())

	tests := []struct {
		name   string
		run    func() bool
		ok     bool
		ax, dx uint16
		setAX  uint16
		setDX  uint16
	}{
		{"div8", func() bool { return p.div8(7) }, true, 0x020E, 0, 100, 0},
		{"div8 zero", func() bool { return p.div8(0) }, false, 100, 0, 100, 0},
		{"div8 overflow", func() bool { return p.div8(1) }, false, 0x100, 0, 0x100, 0},
		{"idiv8", func() bool { return p.idiv8(7) }, true, 0xFEF2, 0, 0xFF9C, 0}, // -100/7 = -14 r -2
		{"idiv8 -128", func() bool { return p.idiv8(0xFF) }, false, 0x0080, 0, 0x0080, 0},
		{"div16", func() bool { return p.div16(0x100) }, true, 0x1234, 0x0056, 0x3456, 0x0012},
		{"idiv16", func() bool { return p.idiv16(0xFFFF) }, true, 0x0002, 0, 0xFFFE, 0xFFFF},
		{"idiv16 overflow", func() bool { return p.idiv16(1) }, false, 0x8000, 0, 0x8000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.AX, p.DX = tt.setAX, tt.setDX
			if ok := tt.run(); ok != tt.ok {
				t.Fatalf("ok = %v", ok)
			}
			if p.AX != tt.ax || p.DX != tt.dx {
				t.Errorf("AX=%04X DX=%04X, want %04X %04X", p.AX, p.DX, tt.ax, tt.dx)
			}
		})
	}
}

func TestDecimalAdjust(t *testing.T) {
	p := NewCPU(newTestBus())

	// 15 + 27 = 42
	res, _ := p.alu(0, 0x15, 0x27, false)
	p.SetAL(byte(res))
	p.daa()
	if p.AL() != 0x42 || p.GetBool(processor.Carry) {
		t.Errorf("DAA: AL=%02X flags=%v", p.AL(), p.Flags)
	}

	// 99 + 1 = 100
	res, _ = p.alu(0, 0x99, 0x01, false)
	p.SetAL(byte(res))
	p.daa()
	if p.AL() != 0x00 || !p.GetBool(processor.Carry) || !p.GetBool(processor.Zero) {
		t.Errorf("DAA: AL=%02X flags=%v", p.AL(), p.Flags)
	}

	// 42 - 15 = 27
	res, _ = p.alu(5, 0x42, 0x15, false)
	p.SetAL(byte(res))
	p.das()
	if p.AL() != 0x27 || p.GetBool(processor.Carry) {
		t.Errorf("DAS: AL=%02X flags=%v", p.AL(), p.Flags)
	}

	p.AX = 0x0009
	res, _ = p.alu(0, 0x09, 0x08, false)
	p.SetAL(byte(res))
	p.aaa()
	if p.AX != 0x0107 || !p.GetBool(processor.Carry) {
		t.Errorf("AAA: AX=%04X", p.AX)
	}

	p.AX = 0x004F
	if !p.aam(10) || p.AX != 0x0709 {
		t.Errorf("AAM: AX=%04X", p.AX)
	}
	if p.aam(0) {
		t.Error("AAM 0 did not fail")
	}

	p.AX = 0x0709
	p.aad(10)
	if p.AX != 0x004F {
		t.Errorf("AAD: AX=%04X", p.AX)
	}
}

func TestShiftRotate(t *testing.T) {
	p := NewCPU(newTestBus())

	tests := []struct {
		name       string
		op         byte
		in         uint16
		count      byte
		wide, cf   bool
		out        uint16
		wantCF, of bool
	}{
		{"rol", 0, 0x81, 1, false, false, 0x03, true, true},
		{"ror", 1, 0x01, 1, false, false, 0x80, true, true},
		{"rcl", 2, 0x80, 1, false, false, 0x00, true, true},
		{"rcr", 3, 0x00, 1, false, true, 0x80, false, true},
		{"shl", 4, 0x4000, 1, true, false, 0x8000, false, true},
		{"shr", 5, 0x8001, 1, true, false, 0x4000, true, true},
		{"sar", 7, 0x81, 1, false, false, 0xC0, true, false},
		{"shl by 9", 4, 0x01, 9, false, false, 0x00, false, false},
		{"rol wide by 4", 0, 0x1234, 4, true, false, 0x2341, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.Flags = 0
			p.SetBool(processor.Carry, tt.cf)

			out := p.shiftOrRotate(tt.op, tt.in, tt.count, tt.wide)
			if out != tt.out {
				t.Errorf("out = %X, want %X", out, tt.out)
			}
			if p.GetBool(processor.Carry) != tt.wantCF || p.GetBool(processor.Overflow) != tt.of {
				t.Errorf("flags = %v", p.Flags)
			}
		})
	}
}

func BenchmarkStep(b *testing.B) {
	bus := newTestBus()

	// INC AX / ADD BX,AX / LOOP -5
	bus.load(0x1000, 0, 0x40, 0x01, 0xC3, 0xE2, 0xFB)
	p := NewCPU(bus)
	r := p.Snapshot()
	r.CS, r.IP, r.CX = 0x1000, 0, 0xFFFF
	p.SetRegisters(r)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Step(); err != nil {
			b.Fatal(err)
		}
	}
}
