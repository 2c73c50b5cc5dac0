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
	"sync"

	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

type InterruptState int

const (
	Idle InterruptState = iota
	RequestPending
	Servicing
)

func (s InterruptState) String() string {
	switch s {
	case Idle:
		return "idle"
	case RequestPending:
		return "request pending"
	case Servicing:
		return "servicing"
	default:
		return "unknown"
	}
}

type request struct {
	vector   byte
	maskable bool
}

type controller struct {
	mu       sync.Mutex
	requests []request

	// Internal exception vector or -1.
	exception int
	depth     int

	// Single-step trap latched behind a higher priority entry.
	trapPending bool

	// Set by the instruction just executed and cleared at the following boundary.
	inhibitAll, inhibitMaskable bool
}

func (c *controller) reset() {
	c.mu.Lock()
	c.requests = c.requests[:0]
	c.mu.Unlock()

	c.exception = -1
	c.depth = 0
	c.trapPending = false
	c.inhibitAll, c.inhibitMaskable = false, false
}

func (c *controller) clearException() {
	c.exception = -1
}

func (c *controller) pending() bool {
	if c.exception >= 0 || c.trapPending {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests) > 0
}

// take removes the oldest queued request of the given kind.
func (c *controller) take(maskable bool) (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range c.requests {
		if r.maskable == maskable {
			c.requests = append(c.requests[:i], c.requests[i+1:]...)
			return r.vector, true
		}
	}
	return 0, false
}

// deferred reports an exception or trap that could not be entered at the
// boundary it was raised for.
func (c *controller) deferred() bool {
	return c.exception >= 0 || c.trapPending
}

// requeue puts a request back at the head of the queue.
func (c *controller) requeue(r request) {
	c.mu.Lock()
	c.requests = append([]request{r}, c.requests...)
	c.mu.Unlock()
}

// RaiseRequest queues an external interrupt. Non-maskable requests are
// serviced regardless of IF. It is safe to call from any goroutine.
func (p *CPU) RaiseRequest(vector byte, maskable bool) {
	p.irq.mu.Lock()
	p.irq.requests = append(p.irq.requests, request{vector: vector, maskable: maskable})
	p.irq.mu.Unlock()
}

func (p *CPU) raiseException(vector byte) {
	p.irq.exception = int(vector)
}

func (p *CPU) InterruptState() InterruptState {
	switch {
	case p.irq.pending():
		return RequestPending
	case p.irq.depth > 0:
		return Servicing
	default:
		return Idle
	}
}

// serviceBoundary dispatches at most one interrupt. Priority is exception,
// NMI, maskable and last single-step trap. A trap that loses to another
// source stays latched until a later boundary.
func (p *CPU) serviceBoundary(trap bool) bool {
	c := &p.irq
	inhibitAll, inhibitMaskable := c.inhibitAll, c.inhibitMaskable
	c.inhibitAll, c.inhibitMaskable = false, false

	if trap && !inhibitAll {
		c.trapPending = true
	}

	if c.exception >= 0 {
		v := byte(c.exception)
		c.exception = -1
		if !p.enter(v, func() { c.exception = int(v) }) {
			return false
		}
		p.stats.NumExceptions++
		return true
	}

	if inhibitAll {
		return false
	}

	if v, ok := c.take(false); ok {
		return p.enter(v, func() { c.requeue(request{vector: v}) })
	}

	if !inhibitMaskable && p.GetBool(processor.InterruptEnable) {
		if v, ok := c.take(true); ok {
			return p.enter(v, func() { c.requeue(request{vector: v, maskable: true}) })
		}
		if p.pic != nil {
			if n, err := p.pic.GetInterrupt(); err == nil {
				v := byte(n)
				// The controller has acknowledged the IRQ, keep its vector queued here.
				return p.enter(v, func() { c.requeue(request{vector: v, maskable: true}) })
			}
		}
	}

	if c.trapPending {
		c.trapPending = false
		return p.enter(1, func() { c.trapPending = true })
	}
	return false
}

// enter runs interrupt entry for vector. If a bus access faults on the way,
// the registers and counters are put back and undo restores the request.
func (p *CPU) enter(vector byte, undo func()) bool {
	before, repeating, halted := p.Registers, p.repeating, p.halted
	stats, depth := p.stats, p.irq.depth

	p.interrupt(vector)
	if p.fault == nil {
		return true
	}

	p.Registers, p.repeating, p.halted = before, repeating, halted
	p.stats, p.irq.depth = stats, depth
	p.flushQueue()
	undo()
	return false
}

// interrupt enters the handler for vector. An interrupted string instruction
// resumes at its last prefix byte.
func (p *CPU) interrupt(vector byte) {
	p.stats.NumInterrupts++

	ret := p.IP
	if p.repeating {
		ret = p.start + uint16(len(p.inst.Prefixes)) - 1
		p.repeating = false
	}

	p.push16(p.Flags.Load())
	p.push16(p.CS)
	p.push16(ret)

	p.Clear(processor.InterruptEnable | processor.Trap)

	addr := uint16(vector) * 4
	p.IP = p.readWord(0, addr)
	p.CS = p.readWord(0, addr+2)
	p.flushQueue()

	p.irq.depth++
	p.halted = false
}

func (p *CPU) iret() {
	p.IP = p.pop16()
	p.CS = p.pop16()
	p.Flags.Store(p.pop16())
	p.flushQueue()

	if p.irq.depth > 0 {
		p.irq.depth--
	}
}
