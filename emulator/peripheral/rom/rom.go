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
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

type Device struct {
	mem []byte

	Base    memory.Pointer
	RomName string
	Reader  io.Reader
}

// Open reads a ROM image from fs. The image is mapped at base when installed.
func Open(fs afero.Fs, name string, base memory.Pointer) (*Device, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || int(base)+len(data) > memory.Size {
		return nil, fmt.Errorf("%s: %d byte image does not fit at %v", name, len(data), base)
	}
	return &Device{mem: data, Base: base, RomName: filepath.Base(name)}, nil
}

func (m *Device) Install(p processor.Processor) error {
	if m.mem == nil {
		if m.Reader == nil {
			return fmt.Errorf("%s: no image", m.Name())
		}
		var err error
		if m.mem, err = ioutil.ReadAll(m.Reader); err != nil {
			return err
		}
	}
	if len(m.mem) == 0 {
		return fmt.Errorf("%s: empty image", m.Name())
	}
	return p.InstallMemoryDevice(m, m.Base, m.Base+memory.Pointer(len(m.mem)-1))
}

func (m *Device) Name() string {
	if m.RomName == "" {
		return "ROM"
	}
	return m.RomName
}

func (m *Device) Reset() {
}

func (m *Device) Step(int) error {
	return nil
}

func (m *Device) ReadByte(addr memory.Pointer) (byte, error) {
	if int(addr) >= len(m.mem) {
		return 0xFF, &memory.AccessError{Addr: addr, Size: len(m.mem), Err: memory.ErrOutOfBounds}
	}
	return m.mem[addr], nil
}

func (m *Device) WriteByte(addr memory.Pointer, data byte) error {
	return &memory.AccessError{Addr: m.Base + addr, Err: memory.ErrNotWritable}
}
