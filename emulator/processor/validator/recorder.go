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
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"log"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/decoder"
)

// Recorder collects one Event per completed instruction and encodes them as
// JSON lines on a background goroutine. It implements cpu.Tracer.
type Recorder struct {
	current Event
	inScope bool

	events chan Event
	done   chan error
}

// NewRecorder starts writing to w. The writer is closed by Close.
func NewRecorder(w io.WriteCloser, compress bool, queueSize int) *Recorder {
	r := &Recorder{
		events: make(chan Event, queueSize),
		done:   make(chan error, 1),
	}
	go r.run(w, compress)
	return r
}

func (r *Recorder) run(w io.WriteCloser, compress bool) {
	var (
		out  io.Writer = w
		zw   *gzip.Writer
		werr error
	)

	if compress {
		zw = gzip.NewWriter(w)
		out = zw
	}

	buffer := bufio.NewWriter(out)
	enc := json.NewEncoder(buffer)

	for ev := range r.events {
		if werr != nil {
			continue
		}
		if werr = enc.Encode(ev); werr != nil {
			log.Print("trace: ", werr)
		}
	}

	if err := buffer.Flush(); werr == nil {
		werr = err
	}
	if zw != nil {
		if err := zw.Close(); werr == nil {
			werr = err
		}
	}
	if err := w.Close(); werr == nil {
		werr = err
	}
	r.done <- werr
}

func (r *Recorder) Begin(regs processor.Registers) {
	r.inScope = true
	r.current = Event{}
	r.current.Regs[0] = regs
}

func (r *Recorder) ReadByte(addr memory.Pointer, data byte) {
	if r.inScope {
		r.current.Reads = append(r.current.Reads, MemOp{addr, data})
	}
}

func (r *Recorder) WriteByte(addr memory.Pointer, data byte) {
	if r.inScope {
		r.current.Writes = append(r.current.Writes, MemOp{addr, data})
	}
}

func (r *Recorder) End(inst decoder.Instruction, regs processor.Registers) {
	if !r.inScope {
		return
	}
	r.inScope = false

	r.current.Opcode = inst.Opcode
	r.current.Disasm = inst.String()
	r.current.Regs[1] = regs
	r.events <- r.current
}

func (r *Recorder) Discard() {
	r.inScope = false
}

// Close drains the queue and returns the first write error.
func (r *Recorder) Close() error {
	close(r.events)
	return <-r.done
}

// Reader decodes a trace written by Recorder. Compressed traces are detected
// automatically.
type Reader struct {
	closer io.Closer
	dec    *json.Decoder
}

func NewReader(rd io.Reader) (*Reader, error) {
	br := bufio.NewReader(rd)
	magic, _ := br.Peek(2)

	r := &Reader{}
	if len(magic) == 2 && magic[0] == 0x1F && magic[1] == 0x8B {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		r.closer = zr
		r.dec = json.NewDecoder(zr)
	} else {
		r.dec = json.NewDecoder(br)
	}
	return r, nil
}

// Next returns io.EOF at the end of the trace.
func (r *Reader) Next() (Event, error) {
	var ev Event
	err := r.dec.Decode(&ev)
	return ev, err
}

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
