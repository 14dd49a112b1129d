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
package vm

import (
	"errors"
	"fmt"

	"github.com/consensys/go-cairo/pkg/vm/instruction"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// ErrAssertionFailed indicates that an instruction's assertion did not hold.
// For example, an assert_eq whose result differs from its destination.
var ErrAssertionFailed = errors.New("assertion failed")

// ErrInconsistentAutoDeduction indicates that a value written into a builtin
// segment differs from that which the builtin deduces for it.
var ErrInconsistentAutoDeduction = errors.New("inconsistent auto deduction")

// RunContext captures the state of the three registers.
type RunContext struct {
	PC memory.Relocatable
	AP memory.Relocatable
	FP memory.Relocatable
}

func (p RunContext) String() string {
	return fmt.Sprintf("pc=%s ap=%s fp=%s", p.PC, p.AP, p.FP)
}

// Deducer is able to deduce the contents of memory cells within a given
// segment.  Builtins are deducers for their own segments.
type Deducer interface {
	// Deduce the value at a given address, returning false if no value can be
	// deduced (e.g. because the necessary inputs are not yet known).
	Deduce(address memory.Relocatable, mem *memory.Memory) (memory.Value, bool, error)
}

// VirtualMachine executes Cairo instructions one at a time over a segmented
// memory.
type VirtualMachine struct {
	// Current register state
	Context RunContext
	// Memory segments
	Segments *memory.Segments
	// Deducers indexed by the segment they are responsible for.
	deducers map[int]Deducer
	// Decoded instructions, indexed by their address.
	cache map[memory.Relocatable]instruction.Instruction
	// Execution trace (when enabled)
	trace   []RunContext
	tracing bool
	// Number of steps executed so far
	currentStep uint64
}

// New constructs a new virtual machine over a given set of segments.
func New(segments *memory.Segments, tracing bool) *VirtualMachine {
	return &VirtualMachine{
		Segments: segments,
		deducers: make(map[int]Deducer),
		cache:    make(map[memory.Relocatable]instruction.Instruction),
		tracing:  tracing,
	}
}

// AddDeducer registers the deducer responsible for a given segment.
func (p *VirtualMachine) AddDeducer(segment int, deducer Deducer) {
	p.deducers[segment] = deducer
}

// CurrentStep returns the number of steps executed so far.
func (p *VirtualMachine) CurrentStep() uint64 {
	return p.currentStep
}

// Trace returns the execution trace, which holds the register state prior to
// each executed step.
func (p *VirtualMachine) Trace() []RunContext {
	return p.trace
}

// Step executes a single instruction at the current program counter.
func (p *VirtualMachine) Step() error {
	insn, err := p.decodeCurrent()
	//
	if err != nil {
		return err
	}
	//
	ops, err := p.computeOperands(&insn)
	if err != nil {
		return fmt.Errorf("%w (at pc %s)", err, p.Context.PC)
	} else if err = p.checkAssertions(&insn, &ops); err != nil {
		return fmt.Errorf("%w (at pc %s)", err, p.Context.PC)
	}
	//
	if p.tracing {
		p.trace = append(p.trace, p.Context)
	}
	//
	p.Segments.Memory.MarkAccessed(ops.dstAddr)
	p.Segments.Memory.MarkAccessed(ops.op0Addr)
	p.Segments.Memory.MarkAccessed(ops.op1Addr)
	//
	if err = p.updateRegisters(&insn, &ops); err != nil {
		return fmt.Errorf("%w (at pc %s)", err, p.Context.PC)
	}
	//
	p.currentStep++
	//
	return nil
}

// DecodeAt decodes the instruction held at a given address.
func (p *VirtualMachine) DecodeAt(pc memory.Relocatable) (instruction.Instruction, error) {
	if insn, ok := p.cache[pc]; ok {
		return insn, nil
	}
	//
	word, err := p.Segments.Memory.GetFelt(pc)
	if err != nil {
		return instruction.Instruction{}, fmt.Errorf("cannot fetch instruction at %s: %w", pc, err)
	}
	//
	encoding, ok := word.Uint64()
	if !ok {
		return instruction.Instruction{}, fmt.Errorf("%w: %s at %s", instruction.ErrInvalidInstructionEncoding,
			word.Text(16), pc)
	}
	//
	insn, err := instruction.Decode(encoding)
	if err != nil {
		return insn, fmt.Errorf("%w (at pc %s)", err, pc)
	}
	//
	p.cache[pc] = insn
	//
	return insn, nil
}

// VerifyAutoDeductions checks that every value in a segment governed by a
// deducer agrees with the value the deducer would produce for it.
func (p *VirtualMachine) VerifyAutoDeductions() error {
	mem := p.Segments.Memory
	//
	for segment, deducer := range p.deducers {
		for offset, n := uint64(0), mem.SegmentLength(segment); offset < n; offset++ {
			addr := memory.NewRelocatable(segment, offset)
			//
			value, ok := mem.Peek(addr)
			if !ok {
				continue
			}
			//
			deduced, ok, err := deducer.Deduce(addr, mem)
			if err != nil {
				return err
			} else if ok && !deduced.Equal(value) {
				return fmt.Errorf("%w: at %s, expected %s, found %s", ErrInconsistentAutoDeduction, addr, deduced,
					value)
			}
		}
	}
	//
	return nil
}

func (p *VirtualMachine) decodeCurrent() (instruction.Instruction, error) {
	return p.DecodeAt(p.Context.PC)
}

func (p *VirtualMachine) checkAssertions(insn *instruction.Instruction, ops *operands) error {
	switch insn.Opcode {
	case instruction.AssertEq:
		if !ops.res.IsKnown() {
			return fmt.Errorf("%w: assert_eq with unconstrained result", ErrAssertionFailed)
		} else if !ops.res.Equal(ops.dst) {
			return fmt.Errorf("%w: %s != %s", ErrAssertionFailed, ops.dst, ops.res)
		}
	case instruction.Call:
		returnPC := memory.PointerValue(p.Context.PC.Add(insn.Size()))
		//
		if !ops.op0.Equal(returnPC) {
			return fmt.Errorf("%w: call return pc %s written as %s", ErrAssertionFailed, returnPC, ops.op0)
		} else if !ops.dst.Equal(memory.PointerValue(p.Context.FP)) {
			return fmt.Errorf("%w: call return fp %s written as %s", ErrAssertionFailed, p.Context.FP, ops.dst)
		}
	}
	//
	return nil
}

func (p *VirtualMachine) updateRegisters(insn *instruction.Instruction, ops *operands) error {
	var (
		ctx  = p.Context
		next = ctx
		err  error
	)
	// Frame pointer
	switch insn.FpUpdate {
	case instruction.FpAPPlus2:
		next.FP = ctx.AP.Add(2)
	case instruction.FpDst:
		if ptr, ok := ops.dst.Pointer(); ok {
			next.FP = ptr
		} else if felt, ok := ops.dst.Felt(); !ok {
			return fmt.Errorf("%w: cannot set fp to %s", memory.ErrExpectedRelocatable, ops.dst)
		} else if next.FP, err = ctx.FP.AddFelt(felt); err != nil {
			return err
		}
	}
	// Allocation pointer
	switch insn.ApUpdate {
	case instruction.ApAdd:
		felt, ok := ops.res.Felt()
		if !ok {
			return fmt.Errorf("%w: cannot add %s to ap", memory.ErrExpectedFelt, ops.res)
		} else if next.AP, err = ctx.AP.AddFelt(felt); err != nil {
			return err
		}
	case instruction.ApAdd1:
		next.AP = ctx.AP.Add(1)
	case instruction.ApAdd2:
		next.AP = ctx.AP.Add(2)
	}
	// Program counter
	switch insn.PcUpdate {
	case instruction.PcRegular:
		next.PC = ctx.PC.Add(insn.Size())
	case instruction.PcJump:
		ptr, ok := ops.res.Pointer()
		if !ok {
			return fmt.Errorf("%w: cannot jump to %s", memory.ErrExpectedRelocatable, ops.res)
		}
		//
		next.PC = ptr
	case instruction.PcJumpRel:
		felt, ok := ops.res.Felt()
		if !ok {
			return fmt.Errorf("%w: cannot jump by %s", memory.ErrExpectedFelt, ops.res)
		} else if next.PC, err = ctx.PC.AddFelt(felt); err != nil {
			return err
		}
	case instruction.PcJnz:
		if ops.dst.IsZero() {
			next.PC = ctx.PC.Add(insn.Size())
		} else if felt, ok := ops.op1.Felt(); !ok {
			return fmt.Errorf("%w: cannot jump by %s", memory.ErrExpectedFelt, ops.op1)
		} else if next.PC, err = ctx.PC.AddFelt(felt); err != nil {
			return err
		}
	}
	//
	p.Context = next
	//
	return nil
}
