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


package emulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/pic"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/pit"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/ram"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/rom"
)

func init() {
	MuteLogging(true)
}

func run(t *testing.T, m *Machine) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Run(ctx, 0)
}

func TestBootROM(t *testing.T) {
	fs := afero.NewMemMapFs()
	image := make([]byte, 16)
	copy(image, []byte{
		0xB8, 0x34, 0x12, // mov ax, 0x1234
		0xF4,             // hlt
	})
	if err := afero.WriteFile(fs, "bios.bin", image, 0644); err != nil {
		t.Fatal(err)
	}

	bios, err := rom.Open(fs, "bios.bin", memory.NewPointer(0xFFFF, 0))
	if err != nil {
		t.Fatal(err)
	}

	m, errs := NewMachine([]peripheral.Peripheral{&ram.Device{Clear: true}, bios})
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	defer m.Close()

	if err := run(t, m); !errors.Is(err, ErrHalted) {
		t.Fatalf("Run returned %v", err)
	}
	if r := m.CPU.Snapshot(); r.AX != 0x1234 || r.CS != 0xFFFF || r.IP != 4 {
		t.Errorf("registers after boot:\n%v", r)
	}
	if s := m.GetStats(); s.NumInstructions != 2 {
		t.Errorf("NumInstructions = %d", s.NumInstructions)
	}
}

func TestTimerInterrupt(t *testing.T) {
	program := []byte{
		0xB0, 0x13, 0xE6, 0x20, // ICW1: single, ICW4 needed
		0xB0, 0x08, 0xE6, 0x21, // ICW2: vectors from 8
		0xB0, 0x01, 0xE6, 0x21, // ICW4: 8086 mode
		0xB0, 0x00, 0xE6, 0x21, // unmask all
		0xB0, 0x34, 0xE6, 0x43, // PIT channel 0, low/high, mode 2
		0xB0, 0x00, 0xE6, 0x40,
		0xB0, 0x01, 0xE6, 0x40,
		0xFB, // sti
		0xF4, // hlt
		0xFA, // cli
		0xF4, // hlt
	}
	handler := []byte{
		0x43,                   // inc bx
		0xB0, 0x20, 0xE6, 0x20, // EOI
		0xCF,                   // iret
	}

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "prog.bin", program, 0644)
	afero.WriteFile(fs, "isr.bin", handler, 0644)

	m, errs := NewMachine([]peripheral.Peripheral{
		&ram.Device{Clear: true},
		&pic.Device{},
		&pit.Device{},
	})
	if len(errs) != 0 {
		t.Fatal(errs)
	}

	if n, err := m.LoadImage(fs, "prog.bin", 0x500); err != nil || n != len(program) {
		t.Fatal(n, err)
	}
	if _, err := m.LoadImage(fs, "isr.bin", 0x600); err != nil {
		t.Fatal(err)
	}
	memory.WriteRegion(m, 8*4, []byte{0x00, 0x06, 0x00, 0x00})

	r := m.CPU.Snapshot()
	r.CS, r.IP, r.SS, r.SP = 0, 0x500, 0, 0x7C00
	m.CPU.SetRegisters(r)

	if err := run(t, m); !errors.Is(err, ErrHalted) {
		t.Fatalf("Run returned %v", err)
	}

	r = m.CPU.Snapshot()
	if r.BX != 1 {
		t.Errorf("handler ran %d times", r.BX)
	}
	if r.SP != 0x7C00 || r.IP != uint16(0x500+len(program)) {
		t.Errorf("registers after interrupt:\n%v", r)
	}
	if s := m.GetStats(); s.NumInterrupts != 1 {
		t.Errorf("NumInterrupts = %d", s.NumInterrupts)
	}
}

func TestRunCancel(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "loop.bin", []byte{0xEB, 0xFE}, 0644) // jmp $

	m, _ := NewMachine([]peripheral.Peripheral{&ram.Device{Clear: true}})
	m.LoadImage(fs, "loop.bin", 0)

	r := m.CPU.Snapshot()
	r.CS, r.IP = 0, 0
	m.CPU.SetRegisters(r)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := m.Run(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run returned %v", err)
	}
}

func TestRunFault(t *testing.T) {
	m, _ := NewMachine([]peripheral.Peripheral{&ram.Device{Clear: true, Size: 0x1000}})

	r := m.CPU.Snapshot()
	r.CS, r.IP = 0, 0
	r.DS = 0x2000
	m.CPU.SetRegisters(r)
	memory.WriteRegion(m, 0, []byte{0xA2, 0x00, 0x00}) // mov [0], al

	if err := run(t, m); !errors.Is(err, memory.ErrNotMapped) {
		t.Errorf("Run returned %v", err)
	}
}

type closer struct {
	peripheral.NullDevice
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestInstallFailure(t *testing.T) {
	c := &closer{}
	m, errs := NewMachine([]peripheral.Peripheral{
		&ram.Device{},
		&ram.Device{Base: 0x1000, Size: 0x1000},
		c,
	})
	if len(errs) != 1 || !errors.Is(errs[0], memory.ErrOverlap) {
		t.Fatalf("errs = %v", errs)
	}
	if n := len(m.Peripherals()); n != 2 {
		t.Errorf("%d peripherals installed", n)
	}

	if _, err := m.LoadImage(afero.NewMemMapFs(), "missing.bin", 0); err == nil {
		t.Error("loaded a missing image")
	}

	if err := m.Close(); err != nil || !c.closed {
		t.Error("peripheral not closed")
	}
}

func TestLimiter(t *testing.T) {
	start := time.Now()
	l := NewLimiter(1)
	l.Wait(5000)
	if d := time.Since(start); d < 4*time.Millisecond {
		t.Errorf("5000 instructions at 1 MIPS took %v", d)
	}

	start = time.Now()
	NewLimiter(0).Wait(1000000)
	if d := time.Since(start); d > time.Second {
		t.Errorf("unlimited wait took %v", d)
	}
}
