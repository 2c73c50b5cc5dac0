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


package memory

import (
	"errors"
	"testing"
)

type testDevice []byte

func (m testDevice) ReadByte(addr Pointer) (byte, error) {
	if int(addr) >= len(m) {
		return 0, &AccessError{Addr: addr, Size: len(m), Err: ErrOutOfBounds}
	}
	return m[addr], nil
}

func (m testDevice) WriteByte(addr Pointer, data byte) error {
	if int(addr) >= len(m) {
		return &AccessError{Addr: addr, Size: len(m), Err: ErrOutOfBounds}
	}
	m[addr] = data
	return nil
}

type testPort struct {
	last uint16
	data byte
}

func (p *testPort) In(port uint16) (byte, error) {
	p.last = port
	return p.data, nil
}

func (p *testPort) Out(port uint16, data byte) error {
	p.last, p.data = port, data
	return nil
}

func TestNewPointer(t *testing.T) {
	tests := []struct {
		seg, off uint16
		want     Pointer
	}{
		{0, 0, 0},
		{0x1234, 0x5678, 0x179B8},
		{0xF000, 0xFFF0, 0xFFFF0},
		{0xFFFF, 0x0000, 0xFFFF0},
		{0xFFFF, 0x000F, 0xFFFFF},
		{0xFFFF, 0x0010, 0x00000}, // A20 wrap
		{0xFFFF, 0xFFFF, 0x0FFEF},
		{0x0001, 0xFFFF, 0x1000F},
	}
	for _, tt := range tests {
		if got := NewPointer(tt.seg, tt.off); got != tt.want {
			t.Errorf("NewPointer(0x%X, 0x%X) = %v, want %v", tt.seg, tt.off, got, tt.want)
		}
	}
}

func TestNewPointerWrapsEverywhere(t *testing.T) {
	for seg := 0; seg <= 0xFFFF; seg += 0x101 {
		for off := 0; off <= 0xFFFF; off += 0x33 {
			want := Pointer((seg*16 + off) % Size)
			if got := NewPointer(uint16(seg), uint16(off)); got != want {
				t.Fatalf("NewPointer(0x%X, 0x%X) = %v, want %v", seg, off, got, want)
			}
		}
	}
}

func TestAddressAddIntWrapsOffset(t *testing.T) {
	a := NewAddress(0x1000, 0xFFFF).AddInt(2)
	if a.Segment() != 0x1000 || a.Offset() != 1 {
		t.Errorf("got %v, want 1000:0001", a)
	}
}

func TestMapUnmapped(t *testing.T) {
	m := NewMap()
	for _, addr := range []Pointer{0, 1, 0x400, 0xFFFFF} {
		if _, err := m.ReadByte(addr); !errors.Is(err, ErrNotMapped) {
			t.Errorf("read %v: got %v, want ErrNotMapped", addr, err)
		}
		if err := m.WriteByte(addr, 0); !errors.Is(err, ErrNotMapped) {
			t.Errorf("write %v: got %v, want ErrNotMapped", addr, err)
		}
	}
	if _, err := m.In(0x60); !errors.Is(err, ErrNotMapped) {
		t.Errorf("in: got %v, want ErrNotMapped", err)
	}

	m.OpenBus = true
	if v, err := m.ReadByte(0x1234); err != nil || v != 0xFF {
		t.Errorf("open bus read = 0x%X, %v", v, err)
	}
	if err := m.WriteByte(0x1234, 1); err != nil {
		t.Errorf("open bus write: %v", err)
	}
}

func TestMapDeviceOffsets(t *testing.T) {
	m := NewMap()
	dev := testDevice{0, 1, 2, 3, 4, 5, 6, 7}
	if err := m.InstallMemoryDevice(dev, 4, 11); err != nil {
		t.Fatal(err)
	}

	for addr := Pointer(0); addr < 16; addr++ {
		v, err := m.ReadByte(addr)
		if addr >= 4 && addr < 12 {
			if err != nil || v != byte(addr-4) {
				t.Errorf("read %v = 0x%X, %v", addr, v, err)
			}
		} else if !errors.Is(err, ErrNotMapped) {
			t.Errorf("read %v: got %v, want ErrNotMapped", addr, err)
		}
	}

	if err := m.WriteByte(5, 42); err != nil {
		t.Fatal(err)
	}
	if dev[1] != 42 {
		t.Errorf("device got 0x%X at offset 1", dev[1])
	}
}

func TestMapOverlap(t *testing.T) {
	m := NewMap()
	if err := m.InstallMemoryDevice(make(testDevice, 4), 0, 3); err != nil {
		t.Fatal(err)
	}
	if err := m.InstallMemoryDevice(make(testDevice, 4), 4, 7); err != nil {
		t.Fatal(err)
	}
	if err := m.InstallMemoryDevice(make(testDevice, 4), 2, 5); !errors.Is(err, ErrOverlap) {
		t.Errorf("got %v, want ErrOverlap", err)
	}
	if err := m.InstallMemoryDevice(make(testDevice, 4), 8, 7); err == nil {
		t.Error("reversed range accepted")
	}

	p := &testPort{}
	if err := m.InstallIODevice(p, 0x20, 0x21); err != nil {
		t.Fatal(err)
	}
	if err := m.InstallIODeviceAt(p, 0x21); !errors.Is(err, ErrOverlap) {
		t.Errorf("got %v, want ErrOverlap", err)
	}
}

func TestMapPorts(t *testing.T) {
	m := NewMap()
	p := &testPort{data: 0x5A}
	if err := m.InstallIODevice(p, 0x40, 0x43); err != nil {
		t.Fatal(err)
	}
	if v, err := m.In(0x42); err != nil || v != 0x5A || p.last != 0x42 {
		t.Errorf("in = 0x%X, %v (port 0x%X)", v, err, p.last)
	}
	if err := m.Out(0x43, 0x36); err != nil || p.data != 0x36 || p.last != 0x43 {
		t.Errorf("out: %v (port 0x%X data 0x%X)", err, p.last, p.data)
	}
	if m.MappedIODevice(0x44) != nil {
		t.Error("port 0x44 should be unmapped")
	}
}

func TestRegions(t *testing.T) {
	m := NewMap()
	dev := make(testDevice, 8)
	if err := m.InstallMemoryDevice(dev, 0, 7); err != nil {
		t.Fatal(err)
	}

	if err := WriteRegion(m, 0, []byte{0, 1, 2, 3, 4, 5, 6, 7}); err != nil {
		t.Fatal(err)
	}
	if err := WriteRegion(m, 5, []byte{42, 43}); err != nil {
		t.Fatal(err)
	}
	if err := WriteRegion(m, 5, []byte{42, 43, 45, 46}); !errors.Is(err, ErrNotMapped) {
		t.Errorf("got %v, want ErrNotMapped", err)
	}
	want := testDevice{0, 1, 2, 3, 4, 42, 43, 45}
	for i := range want {
		if dev[i] != want[i] {
			t.Fatalf("device = %v, want %v", dev, want)
		}
	}

	buf := make([]byte, 4)
	if err := ReadRegion(m, 3, buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 3 || buf[1] != 4 || buf[2] != 42 || buf[3] != 43 {
		t.Errorf("region = %v", buf)
	}
	if err := ReadRegion(m, 6, buf); !errors.Is(err, ErrNotMapped) {
		t.Errorf("got %v, want ErrNotMapped", err)
	}
}
