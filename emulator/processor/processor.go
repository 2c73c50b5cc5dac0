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


package processor

import (
	"errors"
	"fmt"

	"github.com/andreas-jonsson/i8088-core/emulator/memory"
)

type Stats struct {
	NumInterrupts   uint32
	NumExceptions   uint32
	NumInstructions uint64
	RX, TX          uint64
	NOP             uint64
}

var (
	ErrInvalidOpcode = errors.New("invalid opcode")
	ErrNoInterrupts  = errors.New("no interrupts")
)

// BusFault is returned by the processor when the bus rejects a transaction.
// It is fatal for the current step. The registers are left as they were
// before the faulting instruction, or before the faulting interrupt entry.
type BusFault struct {
	Addr  memory.Pointer
	Port  uint16
	IO    bool
	Write bool
	Err   error
}

func (e *BusFault) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	if e.IO {
		return fmt.Sprintf("bus fault: %s port 0x%X: %v", op, e.Port, e.Err)
	}
	return fmt.Sprintf("bus fault: %s %v: %v", op, e.Addr, e.Err)
}

func (e *BusFault) Unwrap() error {
	return e.Err
}

type Debug interface {
	GetStats() Stats
}

// InterruptController is a polled source of maskable interrupts.
// GetInterrupt returns ErrNoInterrupts when nothing is pending.
type InterruptController interface {
	GetInterrupt() (int, error)
	IRQ(n int)
}

// Processor is the surface peripherals see when they are installed.
type Processor interface {
	Debug

	InstallMemoryDevice(device memory.Memory, from, to memory.Pointer) error
	InstallIODevice(device memory.IO, from, to uint16) error
	InstallIODeviceAt(device memory.IO, port ...uint16) error

	InstallInterruptController(ic InterruptController)
	GetInterruptController() InterruptController
	RaiseRequest(vector byte, maskable bool)
}
