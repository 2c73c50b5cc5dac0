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
	"flag"
	"io"
	"log"
	"os"

	"github.com/andreas-jonsson/i8088-core/emulator/processor"
	"github.com/andreas-jonsson/i8088-core/emulator/processor/validator"
)

var (
	traceInput = "i8088.json"
	refInput   = "reference.json"
	maxEvents  = 1000000
	ignoreAF   = false
	locOnly    = false
)

func init() {
	flag.StringVar(&traceInput, "trace", traceInput, "Trace from this emulator")
	flag.StringVar(&refInput, "reference", refInput, "Reference trace")
	flag.IntVar(&maxEvents, "max", maxEvents, "Stop after this many events")
	flag.BoolVar(&ignoreAF, "ignore-af", ignoreAF, "Do not compare the adjust flag")
	flag.BoolVar(&locOnly, "location", locOnly, "Only compare opcode and location")
}

func openTrace(name string) (*validator.Reader, io.Closer) {
	fp, err := os.Open(name)
	if err != nil {
		log.Fatal(err)
	}
	rd, err := validator.NewReader(fp)
	if err != nil {
		log.Fatal(err)
	}
	return rd, fp
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	a, afp := openTrace(traceInput)
	defer afp.Close()
	defer a.Close()

	b, bfp := openTrace(refInput)
	defer bfp.Close()
	defer b.Close()

	mask := processor.AllFlags
	if ignoreAF {
		mask &^= processor.Adjust
	}

	var numEq, numEv int
	for ; numEv < maxEvents; numEv++ {
		x, errA := a.Next()
		y, errB := b.Next()
		if errA == io.EOF || errB == io.EOF {
			break
		} else if errA != nil {
			log.Fatal(errA)
		} else if errB != nil {
			log.Fatal(errB)
		}

		eq := x.SameLocation(&y)
		if !locOnly {
			eq = x.Equal(&y, mask)
		}

		if eq {
			numEq++
		} else if numEv-numEq <= 10 {
			log.Printf("#%d: %s\n  got  %v\n  want %v", numEv, x.Disasm, x.Regs[1], y.Regs[1])
		}
	}
	log.Printf("Equal: %d/%d", numEq, numEv)
}
