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
	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
)

// The 8088 has a four byte instruction queue.
const queueSize = 4

// Clock cycles for one bus transfer.
const busCycles = 4

// prefetchQueue holds instruction bytes read ahead of IP.
// Invariant: fetchIP == IP + queueLen while fetchCS == CS.
type prefetchQueue struct {
	queue     [queueSize]byte
	queueHead int
	queueLen  int

	fetchCS, fetchIP uint16
}

// ResolveAddress maps seg:offset to a 20-bit physical address.
func ResolveAddress(seg, offset uint16) memory.Pointer {
	return memory.NewPointer(seg, offset)
}

func (p *CPU) flushQueue() {
	p.queueHead, p.queueLen = 0, 0
	p.fetchCS, p.fetchIP = p.CS, p.IP
}

// syncQueue drops the queue if CS:IP was changed from outside the processor.
func (p *CPU) syncQueue() {
	if p.fetchCS != p.CS || p.fetchIP != p.IP+uint16(p.queueLen) {
		p.flushQueue()
	}
}

// fillQueue reads ahead until the queue is full. A failing read stops the
// prefetch; it is only reported when the queue is empty and the byte is needed.
func (p *CPU) fillQueue() *processor.BusFault {
	for p.queueLen < queueSize {
		addr := ResolveAddress(p.fetchCS, p.fetchIP)
		v, err := p.bus.ReadByte(addr)
		if err != nil {
			if p.queueLen == 0 {
				return &processor.BusFault{Addr: addr, Err: err}
			}
			return nil
		}

		p.queue[(p.queueHead+p.queueLen)%queueSize] = v
		p.queueLen++
		p.fetchIP++
		p.cycles += busCycles
	}
	return nil
}

func (p *CPU) fetchNextByte() (byte, error) {
	if p.queueLen == 0 {
		if f := p.fillQueue(); f != nil {
			p.setFault(f)
			return 0, f
		}
	}

	v := p.queue[p.queueHead]
	p.queueHead = (p.queueHead + 1) % queueSize
	p.queueLen--
	p.IP++
	return v, nil
}

// NextByte lets the decoder pull instruction bytes from the queue.
type queueSource CPU

func (q *queueSource) NextByte() (byte, error) {
	return (*CPU)(q).fetchNextByte()
}

func (p *CPU) setFault(f *processor.BusFault) {
	if p.fault == nil {
		p.fault = f
	}
}

func (p *CPU) readByte(seg, offset uint16) byte {
	addr := ResolveAddress(seg, offset)
	p.cycles += busCycles
	p.stats.RX++

	v, err := p.bus.ReadByte(addr)
	if err != nil {
		p.setFault(&processor.BusFault{Addr: addr, Err: err})
		return 0xFF
	}
	if p.tracer != nil {
		p.tracer.ReadByte(addr, v)
	}
	return v
}

// writeByte is a no-op once the current step has faulted.
func (p *CPU) writeByte(seg, offset uint16, data byte) {
	if p.fault != nil {
		return
	}

	addr := ResolveAddress(seg, offset)
	p.cycles += busCycles
	p.stats.TX++

	if err := p.bus.WriteByte(addr, data); err != nil {
		p.setFault(&processor.BusFault{Addr: addr, Write: true, Err: err})
		return
	}
	if p.tracer != nil {
		p.tracer.WriteByte(addr, data)
	}
}

// Word accesses wrap the offset inside the segment.
func (p *CPU) readWord(seg, offset uint16) uint16 {
	lo := p.readByte(seg, offset)
	hi := p.readByte(seg, offset+1)
	return uint16(hi)<<8 | uint16(lo)
}

func (p *CPU) writeWord(seg, offset uint16, data uint16) {
	p.writeByte(seg, offset, byte(data))
	p.writeByte(seg, offset+1, byte(data>>8))
}

func (p *CPU) inByte(port uint16) byte {
	p.cycles += busCycles
	p.stats.RX++

	v, err := p.bus.In(port)
	if err != nil {
		p.setFault(&processor.BusFault{Port: port, IO: true, Err: err})
		return 0xFF
	}
	return v
}

func (p *CPU) outByte(port uint16, data byte) {
	if p.fault != nil {
		return
	}

	p.cycles += busCycles
	p.stats.TX++

	if err := p.bus.Out(port, data); err != nil {
		p.setFault(&processor.BusFault{Port: port, IO: true, Write: true, Err: err})
	}
}

func (p *CPU) inWord(port uint16) uint16 {
	lo := p.inByte(port)
	hi := p.inByte(port + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (p *CPU) outWord(port uint16, data uint16) {
	p.outByte(port, byte(data))
	p.outByte(port+1, byte(data>>8))
}

func (p *CPU) push16(v uint16) {
	p.SP -= 2
	p.writeWord(p.SS, p.SP, v)
}

func (p *CPU) pop16() uint16 {
	v := p.readWord(p.SS, p.SP)
	p.SP += 2
	return v
}
