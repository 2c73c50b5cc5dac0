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


package pic

import (
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

// Device is a single Intel 8259 in fully nested mode.
type Device struct {
	maskReg, requestReg, serviceReg byte

	icw     [5]byte
	icwStep int
	readISR bool
}

func (m *Device) Install(p processor.Processor) error {
	p.InstallInterruptController(m)
	return p.InstallIODevice(m, 0x20, 0x21)
}

func (m *Device) Name() string {
	return "Programmable Interrupt Controller (Intel 8259)"
}

func (m *Device) Reset() {
	*m = Device{}
}

func (m *Device) Step(int) error {
	return nil
}

func (m *Device) autoEOI() bool {
	return m.icw[4]&2 != 0
}

// GetInterrupt acknowledges the highest priority request that is not masked
// and not blocked by an interrupt of equal or higher priority in service.
func (m *Device) GetInterrupt() (int, error) {
	has := m.requestReg &^ m.maskReg
	if has == 0 {
		return 0, processor.ErrNoInterrupts
	}

	for i := 0; i < 8; i++ {
		bit := byte(1 << i)
		if m.serviceReg&bit != 0 {
			break
		}
		if has&bit != 0 {
			m.requestReg &^= bit
			if !m.autoEOI() {
				m.serviceReg |= bit
			}
			return int(m.icw[2]&0xF8) + i, nil
		}
	}
	return 0, processor.ErrNoInterrupts
}

func (m *Device) IRQ(n int) {
	m.requestReg |= byte(1 << (n & 7))
}

func (m *Device) In(port uint16) (byte, error) {
	if port&1 != 0 {
		return m.maskReg, nil
	}
	if m.readISR {
		return m.serviceReg, nil
	}
	return m.requestReg, nil
}

func (m *Device) Out(port uint16, data byte) error {
	if port&1 != 0 {
		m.writeData(data)
		return nil
	}

	switch {
	case data&0x10 != 0: // ICW1
		m.icw = [5]byte{1: data}
		m.icwStep = 2
		m.maskReg, m.serviceReg, m.requestReg = 0, 0, 0
		m.readISR = false
	case data&0x18 == 0x08: // OCW3
		if data&2 != 0 {
			m.readISR = data&1 != 0
		}
	case data&0x20 != 0: // OCW2 EOI
		if data&0x40 != 0 {
			m.serviceReg &^= 1 << (data & 7)
			break
		}
		for i := 0; i < 8; i++ {
			if bit := byte(1 << i); m.serviceReg&bit != 0 {
				m.serviceReg &^= bit
				break
			}
		}
	}
	return nil
}

func (m *Device) writeData(data byte) {
	switch m.icwStep {
	case 2:
		m.icw[2] = data
		m.icwStep = 3
		if m.icw[1]&2 != 0 { // Single, no ICW3.
			m.icwStep = 4
		}
	case 3:
		m.icw[3] = data
		m.icwStep = 4
	default:
		if m.icwStep == 4 && m.icw[1]&1 != 0 {
			m.icw[4] = data
			m.icwStep = 0
			return
		}
		m.icwStep = 0
		m.maskReg = data
	}
	if m.icwStep == 4 && m.icw[1]&1 == 0 {
		m.icwStep = 0
	}
}
