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
	"testing"

	"github.com/consensys/go-cairo/pkg/util/assert"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/instruction"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// [ap + dst] = imm
func assertImm(dst int16, apInc bool) instruction.Instruction {
	insn := instruction.Instruction{OffDst: dst, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
		Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, ResLogic: instruction.ResOp1,
		Opcode: instruction.AssertEq}
	//
	if apInc {
		insn.ApUpdate = instruction.ApAdd1
	}
	//
	return insn
}

// [ap + dst] = [ap + op0] <op> imm
func assertBinImm(dst, op0 int16, res instruction.ResLogic) instruction.Instruction {
	return instruction.Instruction{OffDst: dst, OffOp0: op0, OffOp1: 1, DstReg: instruction.AP,
		Op0Reg: instruction.AP, Op1Src: instruction.Op1SrcImm, ResLogic: res, Opcode: instruction.AssertEq}
}

var callRel = instruction.Instruction{OffDst: 0, OffOp0: 1, OffOp1: 1, DstReg: instruction.AP,
	Op0Reg: instruction.AP, Op1Src: instruction.Op1SrcImm, ResLogic: instruction.ResOp1,
	PcUpdate: instruction.PcJumpRel, ApUpdate: instruction.ApAdd2, FpUpdate: instruction.FpAPPlus2,
	Opcode: instruction.Call}

var ret = instruction.Instruction{OffDst: -2, OffOp0: -1, OffOp1: -1, DstReg: instruction.FP,
	Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcFP, ResLogic: instruction.ResOp1,
	PcUpdate: instruction.PcJump, FpUpdate: instruction.FpDst, Opcode: instruction.Ret}

var jnz = instruction.Instruction{OffDst: -1, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
	Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, ResLogic: instruction.ResUnconstrained,
	PcUpdate: instruction.PcJnz, Opcode: instruction.NOp}

func Test_Step_AssertImm(t *testing.T) {
	m := newMachine(t, []any{assertImm(0, true), 5})
	//
	assert.NoError(t, m.Step())
	assert.Equal(t, memory.NewRelocatable(0, 2), m.Context.PC)
	assert.Equal(t, memory.NewRelocatable(1, 3), m.Context.AP)
	assert.Equal(t, memory.NewRelocatable(1, 2), m.Context.FP)
	checkFelt(t, m, memory.NewRelocatable(1, 2), 5)
	assert.Equal(t, uint64(1), m.CurrentStep())
}

func Test_Step_AddDst(t *testing.T) {
	m := newMachine(t, []any{assertImm(0, true), 5, assertBinImm(0, -1, instruction.ResAdd), 7})
	//
	steps(t, m, 2)
	checkFelt(t, m, memory.NewRelocatable(1, 3), 12)
}

func Test_Step_AddOp0(t *testing.T) {
	// [ap - 1] = [ap] + 2
	m := newMachine(t, []any{assertImm(0, true), 5, assertBinImm(-1, 0, instruction.ResAdd), 2})
	//
	steps(t, m, 2)
	checkFelt(t, m, memory.NewRelocatable(1, 3), 3)
}

func Test_Step_MulOp0(t *testing.T) {
	// [ap - 1] = [ap] * 3
	m := newMachine(t, []any{assertImm(0, true), 12, assertBinImm(-1, 0, instruction.ResMul), 3})
	//
	steps(t, m, 2)
	checkFelt(t, m, memory.NewRelocatable(1, 3), 4)
}

func Test_Step_MulOp0_DivisionByZero(t *testing.T) {
	m := newMachine(t, []any{assertImm(0, true), 6, assertBinImm(-1, 0, instruction.ResMul), 0})
	//
	steps(t, m, 1)
	assert.ErrorIs(t, m.Step(), stark252.ErrDivisionByZero)
}

func Test_Step_OffsetOverflow(t *testing.T) {
	// [ap] = [fp - 2] + 2^62; ap++
	far := instruction.Instruction{OffDst: 0, OffOp0: -2, OffOp1: 1, DstReg: instruction.AP,
		Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, ResLogic: instruction.ResAdd,
		ApUpdate: instruction.ApAdd1, Opcode: instruction.AssertEq}
	// [ap - 1] = [[ap - 2]]
	store := instruction.Instruction{OffDst: -1, OffOp0: -2, OffOp1: 0, DstReg: instruction.AP,
		Op0Reg: instruction.AP, Op1Src: instruction.Op1SrcOp0, ResLogic: instruction.ResOp1,
		Opcode: instruction.AssertEq}
	//
	m := newMachine(t, []any{far, uint64(1) << 62, assertImm(0, true), 7, store, ret})
	//
	steps(t, m, 2)
	checkPointer(t, m, memory.NewRelocatable(1, 2), memory.NewRelocatable(2, 1<<62))
	assert.ErrorIs(t, m.Step(), memory.ErrOffsetOverflow)
}

func Test_Step_UnknownOperands(t *testing.T) {
	// [ap] = [ap + 1] + 1, where both [ap] and [ap + 1] are unknown
	m := newMachine(t, []any{assertBinImm(0, 1, instruction.ResAdd), 1})
	//
	assert.ErrorIs(t, m.Step(), memory.ErrUnknownMemoryCell)
}

func Test_Step_AssertionFailed(t *testing.T) {
	m := newMachine(t, []any{assertImm(0, true), 4, assertImm(-1, false), 3})
	//
	steps(t, m, 1)
	assert.ErrorIs(t, m.Step(), ErrAssertionFailed)
	// Registers unchanged by failing step
	assert.Equal(t, memory.NewRelocatable(0, 2), m.Context.PC)
}

func Test_Step_Inconsistent(t *testing.T) {
	// [ap - 1] = [ap] + 1 fails, since [ap - 1] is 4 and [ap] is already 7.
	m := newMachine(t, []any{assertImm(0, true), 4, assertBinImm(-1, 0, instruction.ResAdd), 1})
	assert.NoError(t, m.Segments.Memory.Insert(memory.NewRelocatable(1, 3), memory.Uint64Value(7)))
	//
	steps(t, m, 1)
	assert.ErrorIs(t, m.Step(), ErrAssertionFailed)
}

func Test_Step_CallRet(t *testing.T) {
	m := newMachine(t, []any{callRel, 4, assertImm(0, true), 9, ret})
	// call
	steps(t, m, 1)
	assert.Equal(t, memory.NewRelocatable(0, 4), m.Context.PC)
	assert.Equal(t, memory.NewRelocatable(1, 4), m.Context.AP)
	assert.Equal(t, memory.NewRelocatable(1, 4), m.Context.FP)
	checkPointer(t, m, memory.NewRelocatable(1, 2), memory.NewRelocatable(1, 2))
	checkPointer(t, m, memory.NewRelocatable(1, 3), memory.NewRelocatable(0, 2))
	// ret
	steps(t, m, 1)
	assert.Equal(t, memory.NewRelocatable(0, 2), m.Context.PC)
	assert.Equal(t, memory.NewRelocatable(1, 4), m.Context.AP)
	assert.Equal(t, memory.NewRelocatable(1, 2), m.Context.FP)
	//
	steps(t, m, 1)
	checkFelt(t, m, memory.NewRelocatable(1, 4), 9)
}

func Test_Step_JnzTaken(t *testing.T) {
	m := newMachine(t, []any{assertImm(0, true), 1, jnz, 10})
	//
	steps(t, m, 2)
	assert.Equal(t, memory.NewRelocatable(0, 12), m.Context.PC)
}

func Test_Step_JnzNotTaken(t *testing.T) {
	m := newMachine(t, []any{assertImm(0, true), 0, jnz, 10})
	//
	steps(t, m, 2)
	assert.Equal(t, memory.NewRelocatable(0, 4), m.Context.PC)
}

func Test_Step_NoInstruction(t *testing.T) {
	m := newMachine(t, []any{assertImm(0, true), 1})
	//
	steps(t, m, 1)
	assert.ErrorIs(t, m.Step(), memory.ErrUnknownMemoryCell)
}

func Test_Step_InvalidInstruction_01(t *testing.T) {
	m := newMachine(t, []any{uint64(1) << 63})
	//
	assert.ErrorIs(t, m.Step(), instruction.ErrInvalidInstructionEncoding)
}

func Test_Step_InvalidInstruction_02(t *testing.T) {
	m := newMachine(t, []any{stark252.MustFromString("0x10000000000000000")})
	//
	assert.ErrorIs(t, m.Step(), instruction.ErrInvalidInstructionEncoding)
}

func Test_Step_Trace(t *testing.T) {
	m := newMachine(t, []any{assertImm(0, true), 1, assertImm(0, true), 2})
	//
	steps(t, m, 2)
	//
	trace := m.Trace()
	assert.Equal(t, 2, len(trace))
	assert.Equal(t, memory.NewRelocatable(0, 0), trace[0].PC)
	assert.Equal(t, memory.NewRelocatable(0, 2), trace[1].PC)
	assert.Equal(t, memory.NewRelocatable(1, 3), trace[1].AP)
}

func Test_Step_Deducer(t *testing.T) {
	// [ap] = [[ap - 1]]; ap++
	insn := instruction.Instruction{OffDst: 0, OffOp0: -1, OffOp1: 0, DstReg: instruction.AP,
		Op0Reg: instruction.AP, Op1Src: instruction.Op1SrcOp0, ResLogic: instruction.ResOp1,
		Opcode: instruction.AssertEq, ApUpdate: instruction.ApAdd1}
	m := newMachine(t, []any{insn})
	builtin := m.Segments.Add()
	m.AddDeducer(builtin.Segment, doubler{})
	// Point [ap] at the builtin segment
	assert.NoError(t, m.Segments.Memory.Insert(m.Context.AP, memory.PointerValue(builtin.Add(5))))
	m.Context.AP = m.Context.AP.Add(1)
	//
	steps(t, m, 1)
	checkFelt(t, m, builtin.Add(5), 10)
	checkFelt(t, m, memory.NewRelocatable(1, 3), 10)
	assert.NoError(t, m.VerifyAutoDeductions())
	// Write an inconsistent value
	assert.NoError(t, m.Segments.Memory.Insert(builtin.Add(6), memory.Uint64Value(1)))
	assert.ErrorIs(t, m.VerifyAutoDeductions(), ErrInconsistentAutoDeduction)
}

// Deduces the value at offset n of its segment to be 2n.
type doubler struct{}

func (d doubler) Deduce(addr memory.Relocatable, _ *memory.Memory) (memory.Value, bool, error) {
	return memory.Uint64Value(2 * addr.Offset), true, nil
}

// Construct a machine whose program segment holds the given code, and whose
// execution segment holds a dummy return frame.  Both ap and fp point just
// after the return frame.
func newMachine(t *testing.T, code []any) *VirtualMachine {
	var (
		segs  = memory.NewSegments()
		prog  = segs.Add()
		exec  = segs.Add()
		final = segs.Add()
		words = make([]any, len(code))
	)
	//
	for i, c := range code {
		if insn, ok := c.(instruction.Instruction); ok {
			word, err := instruction.Encode(insn)
			assert.NoError(t, err)
			//
			words[i] = word
		} else {
			words[i] = c
		}
	}
	//
	_, err := segs.WriteArg(prog, words)
	assert.NoError(t, err)
	_, err = segs.WriteArg(exec, []any{final, final.Add(1)})
	assert.NoError(t, err)
	//
	m := New(segs, true)
	m.Context = RunContext{PC: prog, AP: exec.Add(2), FP: exec.Add(2)}
	//
	return m
}

func steps(t *testing.T, m *VirtualMachine, n uint) {
	t.Helper()
	//
	for i := uint(0); i < n; i++ {
		assert.NoError(t, m.Step())
	}
}

func checkFelt(t *testing.T, m *VirtualMachine, addr memory.Relocatable, expected uint64) {
	t.Helper()
	//
	val, err := m.Segments.Memory.GetFelt(addr)
	assert.NoError(t, err)
	assert.Equal(t, stark252.New(expected), val)
}

func checkPointer(t *testing.T, m *VirtualMachine, addr memory.Relocatable, expected memory.Relocatable) {
	t.Helper()
	//
	val, err := m.Segments.Memory.GetRelocatable(addr)
	assert.NoError(t, err)
	assert.Equal(t, expected, val)
}
