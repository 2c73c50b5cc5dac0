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
	"fmt"
)

const (
	// Size is the 8088 physical address space (20 address lines).
	Size    = 0x100000
	AddrMax = Size - 1
)

var (
	ErrNotMapped   = errors.New("address not mapped")
	ErrNotWritable = errors.New("address not writable")
	ErrOutOfBounds = errors.New("address out of bounds")
	ErrOverlap     = errors.New("range overlaps mapped device")
)

// Address is a segment:offset pair packed as segment<<16 | offset.
type Address uint32

func NewAddress(seg, offset uint16) Address {
	return (Address(seg) << 16) | Address(offset)
}

func (a Address) String() string {
	return fmt.Sprintf("%04X:%04X", a.Segment(), a.Offset())
}

func (a Address) Segment() uint16 {
	return uint16(a >> 16)
}

func (a Address) Offset() uint16 {
	return uint16(a & 0xFFFF)
}

func (a Address) Pointer() Pointer {
	return NewPointer(a.Segment(), a.Offset())
}

// AddInt adds i to the offset. The offset wraps inside the segment.
func (a Address) AddInt(i int) Address {
	return (Address(a) & 0xFFFF0000) | Address(a.Offset()+uint16(i))
}

// Pointer is a 20-bit physical address.
type Pointer uint32

// NewPointer resolves seg:offset to a physical address. Addresses above 1MB wrap
// around to the bottom of memory, the same way they do with A20 disabled.
func NewPointer(seg, offset uint16) Pointer {
	return (Pointer(seg)*0x10 + Pointer(offset)) & AddrMax
}

func (p Pointer) String() string {
	return fmt.Sprintf("0x%05X", uint32(p))
}

type Memory interface {
	ReadByte(addr Pointer) (byte, error)
	WriteByte(addr Pointer, data byte) error
}

type IO interface {
	In(port uint16) (byte, error)
	Out(port uint16, data byte) error
}

// Bus is everything the processor needs from the outside world.
type Bus interface {
	Memory
	IO
}

// ReadRegion reads len(buf) consecutive bytes starting at addr.
func ReadRegion(m Memory, addr Pointer, buf []byte) error {
	for i := range buf {
		v, err := m.ReadByte(addr + Pointer(i))
		if err != nil {
			return err
		}
		buf[i] = v
	}
	return nil
}

// WriteRegion writes data starting at addr. Bytes before a failing
// address are left written.
func WriteRegion(m Memory, addr Pointer, data []byte) error {
	for i, v := range data {
		if err := m.WriteByte(addr+Pointer(i), v); err != nil {
			return err
		}
	}
	return nil
}

// AccessError describes a failed device access.
type AccessError struct {
	Addr Pointer
	Size int
	Err  error
}

func (e *AccessError) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("%v: %v (size 0x%X)", e.Err, e.Addr, e.Size)
	}
	return fmt.Sprintf("%v: %v", e.Err, e.Addr)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
