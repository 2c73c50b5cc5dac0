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
	"log"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/decoder"
)

// Tracer observes every completed instruction. Bus reads and writes made by the
// instruction are reported between Begin and End. Discard replaces End when the
// instruction faulted.
type Tracer interface {
	Begin(regs processor.Registers)
	ReadByte(addr memory.Pointer, data byte)
	WriteByte(addr memory.Pointer, data byte)
	End(inst decoder.Instruction, regs processor.Registers)
	Discard()
}

type CPU struct {
	processor.Registers
	instructionState
	prefetchQueue

	bus    memory.Bus
	pic    processor.InterruptController
	tracer Tracer
	irq    controller

	halted bool
	fault  *processor.BusFault
	stats  processor.Stats
	cycles int
}

func NewCPU(bus memory.Bus) *CPU {
	p := &CPU{bus: bus}
	p.Reset()
	return p
}

func (p *CPU) Reset() {
	log.Print("CPU reset!")

	p.Registers.Reset()
	p.instructionState = instructionState{}
	p.irq.reset()
	p.halted = false
	p.fault = nil
	p.flushQueue()
}

func (p *CPU) InstallInterruptController(ic processor.InterruptController) {
	p.pic = ic
}

func (p *CPU) GetInterruptController() processor.InterruptController {
	return p.pic
}

func (p *CPU) SetTracer(t Tracer) {
	p.tracer = t
}

// GetStats returns the counters collected since the last call and clears them.
func (p *CPU) GetStats() processor.Stats {
	s := p.stats
	p.stats = processor.Stats{}
	return s
}

// Stats returns the counters without clearing them.
func (p *CPU) Stats() processor.Stats {
	return p.stats
}

// Snapshot returns a copy of the architectural registers.
func (p *CPU) Snapshot() processor.Registers {
	return p.Registers
}

// SetRegisters replaces the architectural registers and abandons any repeated
// string instruction in progress.
func (p *CPU) SetRegisters(r processor.Registers) {
	p.Registers = r
	p.repeating = false
	p.halted = false
	p.flushQueue()
}

func (p *CPU) Halted() bool {
	return p.halted
}

// Stalled reports whether the processor is halted with no request pending and
// no way for a maskable interrupt to wake it.
func (p *CPU) Stalled() bool {
	return p.halted && !p.irq.pending() && !(p.pic != nil && p.GetBool(processor.InterruptEnable))
}

// Step runs one instruction, or one iteration of a repeated string instruction,
// and then services at most one pending interrupt. It returns an approximate
// number of clock cycles spent.
//
// Bus faults and invalid opcodes are returned as errors. The registers are then
// left as they were before the instruction. A fault during interrupt entry keeps
// the completed instruction, undoes the entry and leaves the request pending.
func (p *CPU) Step() (int, error) {
	p.cycles = 0
	p.fault = nil
	p.syncQueue()

	if p.halted {
		p.cycles = 4
		if p.serviceBoundary(false) {
			p.halted = false
		}
		return p.cycles, p.checkFault()
	}

	// Entries left over from the previous boundary go before the next instruction.
	if p.irq.deferred() {
		p.cycles = 2
		p.serviceBoundary(false)
		return p.cycles, p.checkFault()
	}

	before, repeating := p.Registers, p.repeating
	trap := p.GetBool(processor.Trap)

	if p.tracer != nil {
		p.tracer.Begin(before)
	}

	if err := p.execute(); err != nil {
		p.Registers, p.repeating = before, repeating
		p.irq.clearException()
		p.flushQueue()
		if p.tracer != nil {
			p.tracer.Discard()
		}
		return p.cycles, err
	}

	if !p.repeating {
		p.stats.NumInstructions++
	}
	if p.tracer != nil {
		p.tracer.End(p.inst, p.Registers)
	}

	p.serviceBoundary(trap)
	return p.cycles, p.checkFault()
}

// StepN calls Step up to n times and returns the number of steps that executed
// an instruction. It stops early on error or when the processor is halted with
// nothing left to wake it.
func (p *CPU) StepN(n int) (int, error) {
	var executed int
	for i := 0; i < n; i++ {
		if p.Stalled() {
			break
		}

		entryOnly := p.halted || p.irq.deferred()
		if _, err := p.Step(); err != nil {
			return executed, err
		}
		if !entryOnly {
			executed++
		}
	}
	return executed, nil
}

func (p *CPU) checkFault() error {
	if p.fault != nil {
		return p.fault
	}
	return nil
}
