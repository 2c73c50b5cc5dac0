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
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/spf13/afero"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/cpu"
)

// ErrHalted is returned by Run when the processor is halted and nothing can wake it.
var ErrHalted = errors.New("processor halted")

// Instructions executed between speed limit checks.
const limitBatch = 1000

// Machine ties a processor to a memory map and a set of peripherals.
type Machine struct {
	*memory.Map
	CPU *cpu.CPU

	peripherals []peripheral.Peripheral
}

// NewMachine installs the peripherals in order and resets the machine.
// Peripherals that fail to install are left out and their errors returned.
func NewMachine(peripherals []peripheral.Peripheral) (*Machine, []error) {
	m := &Machine{Map: memory.NewMap()}
	m.CPU = cpu.NewCPU(m.Map)

	var errs []error
	for _, d := range peripherals {
		if err := d.Install(m); err != nil {
			log.Print("Failed to install peripheral: ", d.Name(), ": ", err)
			errs = append(errs, err)
			continue
		}
		m.peripherals = append(m.peripherals, d)
	}

	m.Reset()
	return m, errs
}

func (m *Machine) GetStats() processor.Stats {
	return m.CPU.GetStats()
}

func (m *Machine) InstallInterruptController(ic processor.InterruptController) {
	m.CPU.InstallInterruptController(ic)
}

func (m *Machine) GetInterruptController() processor.InterruptController {
	return m.CPU.GetInterruptController()
}

func (m *Machine) RaiseRequest(vector byte, maskable bool) {
	m.CPU.RaiseRequest(vector, maskable)
}

func (m *Machine) Peripherals() []peripheral.Peripheral {
	return m.peripherals
}

func (m *Machine) Reset() {
	for _, d := range m.peripherals {
		d.Reset()
	}
	m.CPU.Reset()
}

// Step runs one processor step and advances every peripheral by the cycles it took.
func (m *Machine) Step() (int, error) {
	cycles, err := m.CPU.Step()
	if err != nil {
		return cycles, err
	}
	for _, d := range m.peripherals {
		if err := d.Step(cycles); err != nil {
			return cycles, err
		}
	}
	return cycles, nil
}

// Run steps the machine until ctx is cancelled, an error occurs or the
// processor halts for good. A positive mips limits the instruction rate.
func (m *Machine) Run(ctx context.Context, mips float64) error {
	limit := NewLimiter(mips)
	for {
		for i := 0; i < limitBatch; i++ {
			if m.CPU.Stalled() {
				return ErrHalted
			}
			if _, err := m.Step(); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		limit.Wait(limitBatch)
	}
}

// Limiter paces execution to a number of million instructions per second.
// A zero rate only yields the processor between batches.
type Limiter struct {
	perOp time.Duration
	start time.Time
	count int64
}

func NewLimiter(mips float64) *Limiter {
	l := &Limiter{}
	if mips > 0 {
		l.perOp = time.Duration(float64(time.Second) / (mips * 1000000))
	}
	l.Reset()
	return l
}

// Reset starts a new measurement, e.g. after the machine has been paused.
func (l *Limiter) Reset() {
	l.start, l.count = time.Now(), 0
}

// Wait accounts for n executed instructions and sleeps while ahead of the rate.
func (l *Limiter) Wait(n int) {
	l.count += int64(n)
	if l.perOp == 0 {
		runtime.Gosched()
	} else if ahead := time.Duration(l.count)*l.perOp - time.Since(l.start); ahead > 0 {
		time.Sleep(ahead)
	}
}

// LoadImage copies a flat binary from fs into memory at addr and returns its size.
func (m *Machine) LoadImage(fs afero.Fs, name string, addr memory.Pointer) (int, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return 0, err
	}
	if err := memory.WriteRegion(m.Map, addr, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close closes every peripheral that holds resources.
func (m *Machine) Close() error {
	var first error
	for _, d := range m.peripherals {
		if c, ok := d.(peripheral.PeripheralCloser); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// MuteLogging redirects the standard logger to io.Discard, or back to stderr.
func MuteLogging(mute bool) {
	if mute {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
	}
}
