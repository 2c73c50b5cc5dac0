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
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/andreas-jonsson/i8088-core/emulator"
	"github.com/andreas-jonsson/i8088-core/emulator/memory"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/pic"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/pit"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/ram"
	"github.com/andreas-jonsson/i8088-core/emulator/peripheral/rom"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/validator"
	"github.com/andreas-jonsson/i8088-core/version"
)

var (
	biosImage,
	loadImage,
	loadAt,
	traceFile string
)

var (
	limitMIPS float64
	maxSteps  int

	openMonitor,
	ver bool
)

func init() {
	if p, ok := os.LookupEnv("I8088_BIOS_PATH"); ok {
		biosImage = p
	}

	flag.BoolVar(&ver, "v", false, "Print version information")
	flag.BoolVar(&openMonitor, "monitor", false, "Open the interactive monitor")

	flag.StringVar(&biosImage, "bios", biosImage, "Path to BIOS image, mapped to the top of memory")
	flag.StringVar(&loadImage, "load", "", "Path to flat binary loaded into RAM")
	flag.StringVar(&loadAt, "at", "0000:7C00", "Load address and entry point of -load (seg:off)")
	flag.StringVar(&traceFile, "trace", "", "Write an instruction trace (.gz for compressed)")

	flag.IntVar(&maxSteps, "steps", 0, "Stop after this many steps")
	flag.Float64Var(&limitMIPS, "mips", 0, "Limit CPU speed")
}

func main() {
	flag.Parse()

	if ver {
		fmt.Printf("%s (%s)\n", version.Current.FullString(), version.Hash)
		return
	}

	if err := start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseAddress(s string) (memory.Address, error) {
	var seg, off uint16
	if _, err := fmt.Sscanf(s, "%x:%x", &seg, &off); err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return memory.NewAddress(seg, off), nil
}

func newMachine(fs afero.Fs) (*emulator.Machine, error) {
	if biosImage == "" && loadImage == "" {
		return nil, errors.New("nothing to run, use -bios or -load")
	}

	peripherals := []peripheral.Peripheral{
		&ram.Device{Clear: true}, // RAM (conventional 640K, leaves the top of memory to the BIOS)
		&pic.Device{},            // Programmable Interrupt Controller
		&pit.Device{},            // Programmable Interval Timer
	}

	if biosImage != "" {
		size, err := imageSize(fs, biosImage)
		if err != nil {
			return nil, err
		}
		bios, err := rom.Open(fs, biosImage, memory.Pointer(memory.Size-size))
		if err != nil {
			return nil, err
		}
		peripherals = append(peripherals, bios)
	}

	m, errs := emulator.NewMachine(peripherals)
	if len(errs) != 0 {
		m.Close()
		return nil, errs[0]
	}

	// A BIOS probes for hardware that is not there.
	m.OpenBus = biosImage != ""

	if loadImage != "" {
		at, err := parseAddress(loadAt)
		if err != nil {
			return nil, err
		}
		if _, err := m.LoadImage(fs, loadImage, at.Pointer()); err != nil {
			return nil, err
		}

		r := m.CPU.Snapshot()
		r.CS, r.IP = at.Segment(), at.Offset()
		m.CPU.SetRegisters(r)
	}
	return m, nil
}

func imageSize(fs afero.Fs, name string) (int, error) {
	fi, err := fs.Stat(name)
	if err != nil {
		return 0, err
	}
	if fi.Size() == 0 || fi.Size() > memory.Size {
		return 0, fmt.Errorf("%s: invalid image size %d", name, fi.Size())
	}
	return int(fi.Size()), nil
}

func start() error {
	fs := afero.NewOsFs()

	m, err := newMachine(fs)
	if err != nil {
		return err
	}
	defer m.Close()

	var rec *validator.Recorder
	if traceFile != "" {
		fp, err := fs.Create(traceFile)
		if err != nil {
			return err
		}
		rec = validator.NewRecorder(fp, strings.HasSuffix(traceFile, ".gz"), validator.DefaultQueueSize)
		m.CPU.SetTracer(rec)
	}

	useMonitor := openMonitor && term.IsTerminal(int(os.Stdout.Fd()))
	if openMonitor && !useMonitor {
		log.Print("Standard output is not a terminal, running headless")
	}
	emulator.MuteLogging(useMonitor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	stopped := make(chan struct{})

	if useMonitor {
		mon, err := newMonitor(m, stop)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return mon.eventLoop(ctx)
		})
		g.Go(func() error {
			defer close(stopped)
			return mon.emulationLoop(ctx)
		})
	} else {
		g.Go(func() error {
			defer close(stopped)
			return runHeadless(ctx, m)
		})
	}

	g.Go(func() error {
		<-stopped
		if rec == nil {
			return nil
		}
		m.CPU.SetTracer(nil)
		return rec.Close()
	})

	err = g.Wait()
	if !useMonitor {
		printState(m)
	}
	return err
}

func runHeadless(ctx context.Context, m *emulator.Machine) error {
	if maxSteps == 0 {
		err := m.Run(ctx, limitMIPS)
		if errors.Is(err, emulator.ErrHalted) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	for i := 0; i < maxSteps; i++ {
		if i&0xFFF == 0 && ctx.Err() != nil {
			return nil
		}
		if m.CPU.Stalled() {
			return nil
		}
		if _, err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

func printState(m *emulator.Machine) {
	s := m.CPU.Stats()
	fmt.Println(m.CPU.Snapshot())
	fmt.Printf("Instructions: %d, Interrupts: %d, Exceptions: %d, Halted: %v\n",
		s.NumInstructions, s.NumInterrupts, s.NumExceptions, m.CPU.Halted())
}
