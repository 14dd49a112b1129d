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
	"fmt"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/instruction"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Operands of an instruction, along with their addresses.
type operands struct {
	dst     memory.Value
	op0     memory.Value
	op1     memory.Value
	res     memory.Value
	dstAddr memory.Relocatable
	op0Addr memory.Relocatable
	op1Addr memory.Relocatable
}

// Compute the operands of an instruction, deducing (and writing into memory)
// any which are not yet known.
func (p *VirtualMachine) computeOperands(insn *instruction.Instruction) (operands, error) {
	var (
		ops operands
		mem = p.Segments.Memory
		ok  bool
		err error
	)
	// Destination
	if ops.dstAddr, err = p.register(insn.DstReg).AddInt(int64(insn.OffDst)); err != nil {
		return ops, err
	}
	//
	ops.dst, _ = mem.Peek(ops.dstAddr)
	// Operand 0
	if ops.op0Addr, err = p.register(insn.Op0Reg).AddInt(int64(insn.OffOp0)); err != nil {
		return ops, err
	}
	//
	ops.op0, _ = mem.Peek(ops.op0Addr)
	// Operand 1
	if ops.op1Addr, err = p.op1Address(insn, ops.op0); err != nil {
		return ops, err
	}
	//
	ops.op1, _ = mem.Peek(ops.op1Addr)
	// Deduce op0 (if necessary)
	if !ops.op0.IsKnown() {
		if ops.op0, ok, err = p.deduceOp0(insn, &ops); err != nil {
			return ops, err
		} else if !ok {
			return ops, fmt.Errorf("%w: cannot deduce op0 at %s", memory.ErrUnknownMemoryCell, ops.op0Addr)
		} else if err = mem.Insert(ops.op0Addr, ops.op0); err != nil {
			return ops, err
		}
	}
	// Deduce op1 (if necessary)
	if !ops.op1.IsKnown() {
		if ops.op1, ok, err = p.deduceOp1(insn, &ops); err != nil {
			return ops, err
		} else if !ok {
			return ops, fmt.Errorf("%w: cannot deduce op1 at %s", memory.ErrUnknownMemoryCell, ops.op1Addr)
		} else if err = mem.Insert(ops.op1Addr, ops.op1); err != nil {
			return ops, err
		}
	}
	// Compute result (if not already determined)
	if !ops.res.IsKnown() {
		if ops.res, err = computeRes(insn, ops.op0, ops.op1); err != nil {
			return ops, err
		}
	}
	// Deduce dst (if necessary)
	if !ops.dst.IsKnown() {
		switch {
		case insn.Opcode == instruction.AssertEq && ops.res.IsKnown():
			ops.dst = ops.res
		case insn.Opcode == instruction.Call:
			ops.dst = memory.PointerValue(p.Context.FP)
		default:
			return ops, fmt.Errorf("%w: cannot deduce dst at %s", memory.ErrUnknownMemoryCell, ops.dstAddr)
		}
		//
		if err = mem.Insert(ops.dstAddr, ops.dst); err != nil {
			return ops, err
		}
	}
	//
	return ops, nil
}

func (p *VirtualMachine) register(reg instruction.Register) memory.Relocatable {
	if reg == instruction.FP {
		return p.Context.FP
	}
	//
	return p.Context.AP
}

func (p *VirtualMachine) op1Address(insn *instruction.Instruction, op0 memory.Value) (memory.Relocatable, error) {
	var offset = int64(insn.OffOp1)
	//
	switch insn.Op1Src {
	case instruction.Op1SrcImm:
		return p.Context.PC.AddInt(offset)
	case instruction.Op1SrcAP:
		return p.Context.AP.AddInt(offset)
	case instruction.Op1SrcFP:
		return p.Context.FP.AddInt(offset)
	}
	// Relative to op0
	if !op0.IsKnown() {
		return memory.Relocatable{}, fmt.Errorf("%w: op1 address requires op0", memory.ErrUnknownMemoryCell)
	}
	//
	base, ok := op0.Pointer()
	if !ok {
		return memory.Relocatable{}, fmt.Errorf("%w: op1 address requires op0 pointer, found %s",
			memory.ErrExpectedRelocatable, op0)
	}
	//
	return base.AddInt(offset)
}

// Attempt to deduce op0, either from the builtin owning its segment or from
// the opcode semantics.  The result may also be determined as a side-effect.
func (p *VirtualMachine) deduceOp0(insn *instruction.Instruction, ops *operands) (memory.Value, bool, error) {
	if val, ok, err := p.deduceCell(ops.op0Addr); err != nil || ok {
		return val, ok, err
	}
	//
	switch insn.Opcode {
	case instruction.Call:
		return memory.PointerValue(p.Context.PC.Add(insn.Size())), true, nil
	case instruction.AssertEq:
		if !ops.dst.IsKnown() || !ops.op1.IsKnown() {
			return memory.Value{}, false, nil
		}
		//
		switch insn.ResLogic {
		case instruction.ResAdd:
			val, err := ops.dst.Sub(ops.op1)
			ops.res = ops.dst
			//
			return val, err == nil, err
		case instruction.ResMul:
			val, ok, err := divide(ops.dst, ops.op1)
			if ok {
				ops.res = ops.dst
			}
			//
			return val, ok, err
		}
	}
	//
	return memory.Value{}, false, nil
}

// Attempt to deduce op1, either from the builtin owning its segment or from
// the opcode semantics.  The result may also be determined as a side-effect.
func (p *VirtualMachine) deduceOp1(insn *instruction.Instruction, ops *operands) (memory.Value, bool, error) {
	if val, ok, err := p.deduceCell(ops.op1Addr); err != nil || ok {
		return val, ok, err
	}
	//
	if insn.Opcode != instruction.AssertEq || !ops.dst.IsKnown() {
		return memory.Value{}, false, nil
	}
	//
	switch insn.ResLogic {
	case instruction.ResOp1:
		ops.res = ops.dst
		return ops.dst, true, nil
	case instruction.ResAdd:
		if !ops.op0.IsKnown() {
			return memory.Value{}, false, nil
		}
		//
		val, err := ops.dst.Sub(ops.op0)
		ops.res = ops.dst
		//
		return val, err == nil, err
	case instruction.ResMul:
		if !ops.op0.IsKnown() {
			return memory.Value{}, false, nil
		}
		//
		val, ok, err := divide(ops.dst, ops.op0)
		if ok {
			ops.res = ops.dst
		}
		//
		return val, ok, err
	}
	//
	return memory.Value{}, false, nil
}

func (p *VirtualMachine) deduceCell(addr memory.Relocatable) (memory.Value, bool, error) {
	if deducer, ok := p.deducers[addr.Segment]; ok {
		return deducer.Deduce(addr, p.Segments.Memory)
	}
	//
	return memory.Value{}, false, nil
}

// Divide one felt value by another, returning false if either is a pointer.
func divide(lhs, rhs memory.Value) (memory.Value, bool, error) {
	x, xok := lhs.Felt()
	y, yok := rhs.Felt()
	//
	if !xok || !yok {
		return memory.Value{}, false, nil
	}
	//
	z, err := x.Div(y)
	if err != nil {
		return memory.Value{}, false, fmt.Errorf("%w: %s / %s", stark252.ErrDivisionByZero, x.String(), y.String())
	}
	//
	return memory.FeltValue(z), true, nil
}

func computeRes(insn *instruction.Instruction, op0, op1 memory.Value) (memory.Value, error) {
	switch insn.ResLogic {
	case instruction.ResOp1:
		return op1, nil
	case instruction.ResAdd:
		return op0.Add(op1)
	case instruction.ResMul:
		return op0.Mul(op1)
	}
	// Unconstrained
	return memory.Value{}, nil
}
