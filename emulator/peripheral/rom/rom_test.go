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


package rom

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

type testProcessor struct {
	*memory.Map
}

func (p *testProcessor) GetStats() processor.Stats                                { return processor.Stats{} }
func (p *testProcessor) InstallInterruptController(processor.InterruptController) {}
func (p *testProcessor) GetInterruptController() processor.InterruptController    { return nil }
func (p *testProcessor) RaiseRequest(byte, bool)                                  {}

func TestOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/bios/pcxt.bin", []byte{0xEA, 0x5B, 0xE0, 0x00, 0xF0}, 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Open(fs, "/bios/pcxt.bin", 0xFFFF0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "pcxt.bin" {
		t.Errorf("name = %s", m.Name())
	}

	p := &testProcessor{memory.NewMap()}
	if err := m.Install(p); err != nil {
		t.Fatal(err)
	}

	if v, err := p.ReadByte(0xFFFF0); err != nil || v != 0xEA {
		t.Errorf("read %02X, %v", v, err)
	}
	if v, _ := p.ReadByte(0xFFFF4); v != 0xF0 {
		t.Errorf("read %02X", v)
	}

	err = p.WriteByte(0xFFFF1, 0)
	if !errors.Is(err, memory.ErrNotWritable) {
		t.Fatalf("err = %v", err)
	}
	var ae *memory.AccessError
	if !errors.As(err, &ae) || ae.Addr != 0xFFFF1 {
		t.Errorf("err = %v", err)
	}
	if _, err := m.ReadByte(5); !errors.Is(err, memory.ErrOutOfBounds) {
		t.Errorf("err = %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "big.bin", make([]byte, 0x20), 0644)
	afero.WriteFile(fs, "empty.bin", nil, 0644)

	if _, err := Open(fs, "missing.bin", 0xF0000); err == nil {
		t.Error("missing file opened")
	}
	if _, err := Open(fs, "big.bin", 0xFFFF0); err == nil {
		t.Error("image past 1MB accepted")
	}
	if _, err := Open(fs, "empty.bin", 0xF0000); err == nil {
		t.Error("empty image accepted")
	}
}

func TestReader(t *testing.T) {
	m := &Device{Base: 0xF0000, Reader: bytes.NewReader([]byte{1, 2, 3})}
	p := &testProcessor{memory.NewMap()}
	if err := m.Install(p); err != nil {
		t.Fatal(err)
	}
	if m.Name() != "ROM" {
		t.Errorf("name = %s", m.Name())
	}
	if v, _ := p.ReadByte(0xF0002); v != 3 {
		t.Errorf("read %d", v)
	}
	if _, err := p.ReadByte(0xF0003); !errors.Is(err, memory.ErrNotMapped) {
		t.Errorf("err = %v", err)
	}
}

func TestNoImage(t *testing.T) {
	p := &testProcessor{memory.NewMap()}
	if err := (&Device{Base: 0xF0000}).Install(p); err == nil {
		t.Error("installed without an image")
	}
}
