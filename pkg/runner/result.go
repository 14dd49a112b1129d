// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package runner

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm"
	"github.com/consensys/go-cairo/pkg/vm/builtin"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// TraceEntry is the relocated state of the registers before a given step.
type TraceEntry struct {
	PC uint64
	AP uint64
	FP uint64
}

// ExecutionResult is the outcome of a completed run.  All addresses are
// relocated into the flat address space.
type ExecutionResult struct {
	// Relocated memory (index 0 is never populated)
	Memory memory.RelocatedMemory
	// Relocated trace (when enabled)
	Trace []TraceEntry
	// Final registers
	Registers TraceEntry
	// Number of steps executed
	Steps uint64
	// Values written to the output builtin (if used)
	Output []stark252.Element
}

// Relocate flattens memory and the trace of a completed run.
func (p *CairoRunner) Relocate() (*ExecutionResult, error) {
	if !p.ended {
		return nil, fmt.Errorf("%w: run not ended", ErrRunnerState)
	}
	//
	table, flat, err := p.segments.Relocate()
	if err != nil {
		return nil, err
	}
	//
	registers, err := relocateContext(table, p.machine.Context)
	if err != nil {
		return nil, err
	}
	//
	trace := make([]TraceEntry, len(p.machine.Trace()))
	//
	for i, ctx := range p.machine.Trace() {
		if trace[i], err = relocateContext(table, ctx); err != nil {
			return nil, err
		}
	}
	//
	output, err := p.output(table)
	if err != nil {
		return nil, err
	}
	//
	return &ExecutionResult{flat, trace, registers, p.machine.CurrentStep(), output}, nil
}

func relocateContext(table memory.RelocationTable, ctx vm.RunContext) (TraceEntry, error) {
	var (
		entry TraceEntry
		err   error
	)
	//
	if entry.PC, err = table.RelocateAddress(ctx.PC); err != nil {
		return entry, err
	} else if entry.AP, err = table.RelocateAddress(ctx.AP); err != nil {
		return entry, err
	}
	//
	entry.FP, err = table.RelocateAddress(ctx.FP)
	//
	return entry, err
}

// Extract the contents of the output builtin (if present).
func (p *CairoRunner) output(table memory.RelocationTable) ([]stark252.Element, error) {
	for _, b := range p.builtins {
		out, ok := b.(*builtin.Output)
		if !ok {
			continue
		}
		//
		contents := out.Contents(p.segments.Memory)
		values := make([]stark252.Element, len(contents))
		//
		for i, v := range contents {
			val, err := table.RelocateValue(v)
			if err != nil {
				return nil, fmt.Errorf("output[%d]: %w", i, err)
			}
			//
			values[i] = val
		}
		//
		return values, nil
	}
	//
	return nil, nil
}

// WriteTrace writes the trace in the Cairo binary format, where each entry
// consists of three little-endian 64-bit words: ap, fp and pc.
func (p *ExecutionResult) WriteTrace(w io.Writer) error {
	var (
		buf = bufio.NewWriter(w)
		row [24]byte
	)
	//
	for _, e := range p.Trace {
		binary.LittleEndian.PutUint64(row[0:], e.AP)
		binary.LittleEndian.PutUint64(row[8:], e.FP)
		binary.LittleEndian.PutUint64(row[16:], e.PC)
		//
		if _, err := buf.Write(row[:]); err != nil {
			return err
		}
	}
	//
	return buf.Flush()
}

// WriteMemory writes the relocated memory in the Cairo binary format, where
// each populated cell consists of its address as a little-endian 64-bit word,
// followed by its value as a 32-byte little-endian integer.
func (p *ExecutionResult) WriteMemory(w io.Writer) error {
	var (
		buf = bufio.NewWriter(w)
		row [40]byte
	)
	//
	for addr, val := range p.Memory {
		if val == nil {
			continue
		}
		//
		binary.LittleEndian.PutUint64(row[0:], uint64(addr))
		bytes := val.LittleEndian()
		copy(row[8:], bytes[:])
		//
		if _, err := buf.Write(row[:]); err != nil {
			return err
		}
	}
	//
	return buf.Flush()
}
