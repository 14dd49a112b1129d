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
package instruction

import "errors"

// ErrInvalidInstructionEncoding indicates that a word in the program segment
// does not decode to a valid instruction.
var ErrInvalidInstructionEncoding = errors.New("invalid instruction encoding")

// Register identifies the base register used to compute an operand address.
type Register uint8

const (
	// AP is the allocation pointer
	AP Register = iota
	// FP is the frame pointer
	FP
)

// Op1Source identifies where the second operand is read from.
type Op1Source uint8

const (
	// Op1SrcOp0 reads op1 relative to the value of op0 (i.e. [[op0] + off]).
	Op1SrcOp0 Op1Source = iota
	// Op1SrcImm reads op1 as an immediate following the instruction.
	Op1SrcImm
	// Op1SrcFP reads op1 relative to fp.
	Op1SrcFP
	// Op1SrcAP reads op1 relative to ap.
	Op1SrcAP
)

// ResLogic determines how the result of an instruction is computed from its
// operands.
type ResLogic uint8

const (
	// ResOp1 gives res = op1
	ResOp1 ResLogic = iota
	// ResAdd gives res = op0 + op1
	ResAdd
	// ResMul gives res = op0 * op1
	ResMul
	// ResUnconstrained indicates res is not defined (i.e. for conditional
	// jumps).
	ResUnconstrained
)

// PcUpdate determines how the program counter is updated.
type PcUpdate uint8

const (
	// PcRegular advances pc by the instruction's size.
	PcRegular PcUpdate = iota
	// PcJump sets pc to res (absolute jump).
	PcJump
	// PcJumpRel adds res to pc (relative jump).
	PcJumpRel
	// PcJnz adds op1 to pc if dst is non-zero, otherwise advances pc as usual.
	PcJnz
)

// ApUpdate determines how the allocation pointer is updated.
type ApUpdate uint8

const (
	// ApRegular leaves ap unchanged.
	ApRegular ApUpdate = iota
	// ApAdd adds res to ap.
	ApAdd
	// ApAdd1 increments ap.
	ApAdd1
	// ApAdd2 adds two to ap (implied by call).
	ApAdd2
)

// FpUpdate determines how the frame pointer is updated.  This is never
// encoded explicitly, but is implied by the opcode.
type FpUpdate uint8

const (
	// FpRegular leaves fp unchanged.
	FpRegular FpUpdate = iota
	// FpAPPlus2 sets fp to ap + 2 (call).
	FpAPPlus2
	// FpDst sets fp to dst (ret).
	FpDst
)

// Opcode identifies the operation performed by an instruction.
type Opcode uint8

const (
	// NOp performs no assertion.
	NOp Opcode = iota
	// Call pushes the return frame and jumps.
	Call
	// Ret restores the caller frame.
	Ret
	// AssertEq asserts that res equals dst.
	AssertEq
)

// Instruction represents a fully decoded Cairo instruction.  Offsets are held
// in their signed form (i.e. with the bias removed).
type Instruction struct {
	OffDst   int16
	OffOp0   int16
	OffOp1   int16
	DstReg   Register
	Op0Reg   Register
	Op1Src   Op1Source
	ResLogic ResLogic
	PcUpdate PcUpdate
	ApUpdate ApUpdate
	FpUpdate FpUpdate
	Opcode   Opcode
}

// Size returns the number of memory words occupied by this instruction.  This
// is two for instructions with an immediate operand, and one otherwise.
func (p *Instruction) Size() uint64 {
	if p.Op1Src == Op1SrcImm {
		return 2
	}
	//
	return 1
}
