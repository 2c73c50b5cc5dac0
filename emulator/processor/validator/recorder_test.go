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


package validator

import (
	"bytes"
	"io"
	"testing"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/cpu"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/decoder"
)

var _ cpu.Tracer = (*Recorder)(nil)

type closeBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closeBuffer) Close() error {
	b.closed = true
	return nil
}

func record(t *testing.T, compress bool) *closeBuffer {
	t.Helper()

	var buf closeBuffer
	rec := NewRecorder(&buf, compress, DefaultQueueSize)

	inst, err := decoder.DecodeBytes([]byte{0xA2, 0x34, 0x12})
	if err != nil {
		t.Fatal(err)
	}

	var before, after processor.Registers
	before.Reset()
	after = before
	after.IP = 3

	rec.Begin(before)
	rec.WriteByte(0x1234, 0x56)
	rec.End(inst, after)

	rec.Begin(after)
	rec.ReadByte(0x10, 1)
	rec.Discard()

	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if !buf.closed {
		t.Error("writer not closed")
	}
	return &buf
}

func TestRecorder(t *testing.T) {
	for _, compress := range []bool{false, true} {
		buf := record(t, compress)

		if compress == bytes.HasPrefix(buf.Bytes(), []byte("{")) {
			t.Errorf("compress=%v: unexpected encoding", compress)
		}

		rd, err := NewReader(buf)
		if err != nil {
			t.Fatal(err)
		}

		ev, err := rd.Next()
		if err != nil {
			t.Fatal(err)
		}
		if ev.Opcode != 0xA2 || ev.Disasm != "mov [0x1234], al" {
			t.Errorf("event = %+v", ev)
		}
		if len(ev.Writes) != 1 || ev.Writes[0] != (MemOp{0x1234, 0x56}) || len(ev.Reads) != 0 {
			t.Errorf("bus = %+v %+v", ev.Reads, ev.Writes)
		}
		if ev.Regs[0].CS != 0xFFFF || ev.Regs[1].IP != 3 {
			t.Errorf("regs = %+v", ev.Regs)
		}

		if _, err := rd.Next(); err != io.EOF {
			t.Errorf("err = %v, want EOF", err)
		}
		if err := rd.Close(); err != nil {
			t.Error(err)
		}
	}
}

func TestEventEqual(t *testing.T) {
	a := Event{Opcode: 0x90}
	a.Regs[0].CS, a.Regs[0].IP = 0xF000, 0x100
	a.Regs[1] = a.Regs[0]
	a.Regs[1].IP++
	a.Regs[1].Flags.Set(processor.Adjust)

	b := a
	b.Regs[0].CS, b.Regs[0].IP = 0xF010, 0
	b.Regs[1].Flags = 0

	if !a.SameLocation(&b) {
		t.Error("same physical address not detected")
	}
	if a.Equal(&b, processor.AllFlags) {
		t.Error("events with different registers are equal")
	}

	b = a
	b.Regs[1].Flags = 0
	if a.Equal(&b, processor.AllFlags) {
		t.Error("flags ignored")
	}
	if !a.Equal(&b, processor.AllFlags&^processor.Adjust) {
		t.Error("masked flag compared")
	}

	b.Writes = []MemOp{{memory.Pointer(0), 0}}
	if a.Equal(&b, 0) {
		t.Error("writes ignored")
	}
}
