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


/*
References:
	https://wiki.osdev.org/Programmable_Interval_Timer
	Intel 8253/8254 datasheet
*/

package pit

import (
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

const (
	// Input clock of the PIT. It runs at a quarter of the 4.77MHz CPU clock.
	Frequency = 1193182

	cpuCyclesPerTick = 4
)

const (
	accessLatch = iota
	accessLowByte
	accessHighByte
	accessWord
)

type channel struct {
	enabled bool
	access  byte
	mode    byte

	// Next byte of a word access is the high byte.
	toggle, readToggle bool

	data            uint16
	reload, counter uint32
	latched         bool
	latch           uint16
}

// Device is an Intel 8253 with its input clock derived from processor cycles.
// Channel 0 raises IRQ0 every time it wraps.
type Device struct {
	pic       processor.InterruptController
	channels  [3]channel
	remainder int
}

func (m *Device) Install(p processor.Processor) error {
	m.pic = p.GetInterruptController()
	return p.InstallIODevice(m, 0x40, 0x43)
}

func (m *Device) Name() string {
	return "Programmable Interval Timer (Intel 8253)"
}

func (m *Device) Reset() {
	*m = Device{pic: m.pic}
}

func (m *Device) Step(cycles int) error {
	m.remainder += cycles
	ticks := uint32(m.remainder / cpuCyclesPerTick)
	m.remainder %= cpuCyclesPerTick
	if ticks == 0 {
		return nil
	}

	for i := range m.channels {
		ch := &m.channels[i]
		if !ch.enabled {
			continue
		}
		if ch.counter > ticks {
			ch.counter -= ticks
			continue
		}

		over := ticks - ch.counter
		ch.counter = ch.reload - over%ch.reload
		if i == 0 && m.pic != nil {
			m.pic.IRQ(0)
		}
	}
	return nil
}

// GetFrequency returns the output frequency of a channel in Hz.
func (m *Device) GetFrequency(channel int) float64 {
	ch := &m.channels[channel]
	if !ch.enabled {
		return 0
	}
	return Frequency / float64(ch.reload)
}

func (m *Device) In(port uint16) (byte, error) {
	if port&3 == 3 {
		return 0xFF, nil
	}

	ch := &m.channels[port&3]
	v := uint16(ch.counter)
	if ch.latched {
		v = ch.latch
	}

	var ret byte
	switch ch.access {
	case accessLowByte:
		ret = byte(v)
		ch.latched = false
	case accessHighByte:
		ret = byte(v >> 8)
		ch.latched = false
	default:
		if ch.readToggle {
			ret = byte(v >> 8)
			ch.latched = false
		} else {
			ret = byte(v)
		}
		ch.readToggle = !ch.readToggle
	}
	return ret, nil
}

func (m *Device) Out(port uint16, data byte) error {
	if port&3 == 3 {
		m.command(data)
		return nil
	}

	ch := &m.channels[port&3]
	switch ch.access {
	case accessLowByte:
		ch.data = uint16(data)
	case accessHighByte:
		ch.data = uint16(data) << 8
	default:
		if ch.toggle {
			ch.data = ch.data&0xFF | uint16(data)<<8
		} else {
			ch.data = ch.data&0xFF00 | uint16(data)
		}
		if ch.toggle = !ch.toggle; ch.toggle {
			return nil
		}
	}

	ch.reload = uint32(ch.data)
	if ch.reload == 0 {
		ch.reload = 0x10000
	}
	ch.counter = ch.reload
	ch.enabled = true
	return nil
}

func (m *Device) command(data byte) {
	sel := data >> 6
	if sel == 3 {
		return
	}

	ch := &m.channels[sel]
	access := (data >> 4) & 3
	if access == accessLatch {
		ch.latched = true
		ch.latch = uint16(ch.counter)
		return
	}

	ch.access = access
	ch.mode = (data >> 1) & 7
	ch.toggle, ch.readToggle = false, false
	ch.latched = false
	ch.enabled = false
}
