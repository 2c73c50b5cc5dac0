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


package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell"

	"github.com/andreas-jonsson/i8088-core/emulator"
	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/cpu"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/decoder"
)

type command int

const (
	cmdStep command = iota
	cmdRun
	cmdPause
)

const refreshRate = time.Second / 20

type snapshot struct {
	regs    processor.Registers
	stats   processor.Stats
	state   cpu.InterruptState
	next    string
	halted  bool
	running bool
	err     error
}

type monitor struct {
	m      *emulator.Machine
	screen tcell.Screen
	quit   func()
	cmds   chan command
}

func newMonitor(m *emulator.Machine, quit func()) (*monitor, error) {
	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)

	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.HideCursor()
	s.DisableMouse()
	s.Clear()

	return &monitor{
		m:      m,
		screen: s,
		quit:   quit,
		cmds:   make(chan command, 8),
	}, nil
}

func (mon *monitor) eventLoop(ctx context.Context) error {
	s := mon.screen
	defer s.Fini()

	go func() {
		<-ctx.Done()
		s.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	for ctx.Err() == nil {
		switch ev := s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventKey:
			mon.handleKey(ev)
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt:
			if snap, ok := ev.Data().(*snapshot); ok {
				mon.draw(snap)
			}
		}
	}
	return nil
}

func (mon *monitor) handleKey(ev *tcell.EventKey) {
	var cmd command
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		mon.quit()
		return
	case tcell.KeyRune:
		switch ev.Rune() {
		case 's':
			cmd = cmdStep
		case 'c':
			cmd = cmdRun
		case 'p':
			cmd = cmdPause
		case 'q':
			mon.quit()
			return
		default:
			return
		}
	default:
		return
	}

	select {
	case mon.cmds <- cmd:
	default:
	}
}

// emulationLoop owns the machine. It steps on command and posts a snapshot
// to the event loop whenever the display should change.
func (mon *monitor) emulationLoop(ctx context.Context) error {
	var (
		running bool
		err     error
		steps   int
		last    time.Time
		limit   = emulator.NewLimiter(limitMIPS)
	)

	post := func() {
		mon.screen.PostEvent(tcell.NewEventInterrupt(mon.snapshot(running, err)))
		last = time.Now()
	}
	step := func() {
		if mon.m.CPU.Stalled() {
			err, running = emulator.ErrHalted, false
			return
		}
		if _, err = mon.m.Step(); err != nil {
			running = false
			return
		}
		if steps++; maxSteps > 0 && steps >= maxSteps {
			running = false
		}
	}

	post()
	for {
		if !running {
			select {
			case <-ctx.Done():
				return nil
			case cmd := <-mon.cmds:
				err = nil
				switch cmd {
				case cmdStep:
					step()
				case cmdRun:
					running = true
					limit.Reset()
				}
				post()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case cmd := <-mon.cmds:
			if cmd == cmdPause {
				running = false
				post()
				continue
			}
		default:
		}

		n := 0
		for ; n < 1000 && running; n++ {
			step()
		}
		limit.Wait(n)
		if !running || time.Since(last) >= refreshRate {
			post()
		}
	}
}

func (mon *monitor) snapshot(running bool, err error) *snapshot {
	c := mon.m.CPU
	r := c.Snapshot()

	var code [16]byte
	for i := range code {
		code[i], _ = mon.m.ReadByte(cpu.ResolveAddress(r.CS, r.IP+uint16(i)))
	}

	next := "??"
	if inst, derr := decoder.DecodeBytes(code[:]); derr == nil {
		next = inst.String()
	}

	return &snapshot{
		regs:    r,
		stats:   c.Stats(),
		state:   c.InterruptState(),
		next:    next,
		halted:  c.Halted(),
		running: running,
		err:     err,
	}
}

var (
	labelStyle = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	valueStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	setStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	errorStyle = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

func (mon *monitor) print(x, y int, style tcell.Style, format string, a ...interface{}) int {
	for _, c := range fmt.Sprintf(format, a...) {
		mon.screen.SetContent(x, y, c, nil, style)
		x++
	}
	return x
}

func (mon *monitor) draw(snap *snapshot) {
	s := mon.screen
	s.Clear()

	r := snap.regs
	regs := [...]struct {
		name  string
		value uint16
	}{
		{"AX", r.AX}, {"BX", r.BX}, {"CX", r.CX}, {"DX", r.DX},
		{"SP", r.SP}, {"BP", r.BP}, {"SI", r.SI}, {"DI", r.DI},
		{"CS", r.CS}, {"DS", r.DS}, {"ES", r.ES}, {"SS", r.SS},
	}
	for i, reg := range regs {
		x, y := (i%4)*10, i/4
		x = mon.print(x, y, labelStyle, "%s ", reg.name)
		mon.print(x, y, valueStyle, "%04X", reg.value)
	}

	x := mon.print(0, 3, labelStyle, "IP ")
	mon.print(x, 3, valueStyle, "%04X  %v", r.IP, memory.NewAddress(r.CS, r.IP))

	flags := [...]struct {
		name string
		flag processor.Flags
	}{
		{"O", processor.Overflow}, {"D", processor.Direction}, {"I", processor.InterruptEnable},
		{"T", processor.Trap}, {"S", processor.Sign}, {"Z", processor.Zero},
		{"A", processor.Adjust}, {"P", processor.Parity}, {"C", processor.Carry},
	}
	x = mon.print(0, 5, labelStyle, "FLAGS ")
	for _, f := range flags {
		style := valueStyle.Dim(true)
		if r.GetBool(f.flag) {
			style = setStyle
		}
		x = mon.print(x, 5, style, "%s ", f.name)
	}

	x = mon.print(0, 7, labelStyle, "NEXT  ")
	mon.print(x, 7, valueStyle, "%s", snap.next)

	x = mon.print(0, 9, labelStyle, "STATS ")
	mon.print(x, 9, valueStyle, "instructions %d  interrupts %d  exceptions %d",
		snap.stats.NumInstructions, snap.stats.NumInterrupts, snap.stats.NumExceptions)

	status := "paused"
	switch {
	case snap.running:
		status = "running"
	case snap.halted:
		status = "halted"
	}
	x = mon.print(0, 10, labelStyle, "STATE ")
	mon.print(x, 10, valueStyle, "%s, interrupts %v", status, snap.state)

	if snap.err != nil && !errors.Is(snap.err, emulator.ErrHalted) {
		mon.print(0, 12, errorStyle, "%v", snap.err)
	}

	mon.print(0, 14, labelStyle, "s step  c run  p pause  q quit")
	s.Show()
}
