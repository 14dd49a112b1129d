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

import (
	"testing"

	"github.com/consensys/go-cairo/pkg/util/assert"
)

func Test_Decode_Ret(t *testing.T) {
	insn, err := Decode(0x208b7fff7fff7ffe)
	assert.NoError(t, err)
	//
	expected := Instruction{
		OffDst: -2, OffOp0: -1, OffOp1: -1,
		DstReg: FP, Op0Reg: FP, Op1Src: Op1SrcFP,
		ResLogic: ResOp1, PcUpdate: PcJump, ApUpdate: ApRegular,
		FpUpdate: FpDst, Opcode: Ret,
	}
	assert.Equal(t, expected, insn)
	assert.Equal(t, uint64(1), insn.Size())
	assert.Equal(t, "ret", insn.String())
}

func Test_Decode_CallRel(t *testing.T) {
	insn, err := Decode(0x1104800180018000)
	assert.NoError(t, err)
	//
	expected := Instruction{
		OffDst: 0, OffOp0: 1, OffOp1: 1,
		DstReg: AP, Op0Reg: AP, Op1Src: Op1SrcImm,
		ResLogic: ResOp1, PcUpdate: PcJumpRel, ApUpdate: ApAdd2,
		FpUpdate: FpAPPlus2, Opcode: Call,
	}
	assert.Equal(t, expected, insn)
	assert.Equal(t, uint64(2), insn.Size())
}

func Test_Decode_AssertEqImm(t *testing.T) {
	// [ap] = imm; ap++
	insn, err := Decode(0x480680017fff8000)
	assert.NoError(t, err)
	//
	assert.Equal(t, AssertEq, insn.Opcode)
	assert.Equal(t, Op1SrcImm, insn.Op1Src)
	assert.Equal(t, ApAdd1, insn.ApUpdate)
	assert.Equal(t, int16(0), insn.OffDst)
	assert.Equal(t, int16(-1), insn.OffOp0)
	assert.Equal(t, "[ap] = imm; ap++", insn.String())
}

func Test_Decode_JmpRel(t *testing.T) {
	insn, err := Decode(0x010780017fff7fff)
	assert.NoError(t, err)
	//
	assert.Equal(t, NOp, insn.Opcode)
	assert.Equal(t, PcJumpRel, insn.PcUpdate)
	assert.Equal(t, Op1SrcImm, insn.Op1Src)
	assert.Equal(t, "jmp rel imm", insn.String())
}

func Test_Decode_ApAddImm(t *testing.T) {
	insn, err := Decode(0x040780017fff7fff)
	assert.NoError(t, err)
	//
	assert.Equal(t, ApAdd, insn.ApUpdate)
	assert.Equal(t, PcRegular, insn.PcUpdate)
	assert.Equal(t, "ap += imm", insn.String())
}

func Test_Decode_Jnz(t *testing.T) {
	insn := Instruction{
		OffDst: -1, OffOp0: -1, OffOp1: 1,
		DstReg: AP, Op0Reg: FP, Op1Src: Op1SrcImm,
		ResLogic: ResUnconstrained, PcUpdate: PcJnz,
	}
	word, err := Encode(insn)
	assert.NoError(t, err)
	//
	decoded, err := Decode(word)
	assert.NoError(t, err)
	assert.Equal(t, insn, decoded)
	assert.Equal(t, "jmp rel imm if [ap - 1] != 0", decoded.String())
}

func Test_Decode_Invalid_01(t *testing.T) {
	// High bit set
	_, err := Decode(0x208b7fff7fff7ffe | 1<<63)
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}

func Test_Decode_Invalid_02(t *testing.T) {
	// op1 source 3
	_, err := Decode(3<<(flagsShift+op1SrcShift) | 0x800080008000)
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}

func Test_Decode_Invalid_03(t *testing.T) {
	// res logic 3
	_, err := Decode(3<<(flagsShift+resLogicShift) | 0x800080008000)
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}

func Test_Decode_Invalid_04(t *testing.T) {
	// pc update 3
	_, err := Decode(3<<(flagsShift+pcUpdateShift) | 0x800080008000)
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}

func Test_Decode_Invalid_05(t *testing.T) {
	// ap update 3
	_, err := Decode(3<<(flagsShift+apUpdateShift) | 0x800080008000)
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}

func Test_Decode_Invalid_06(t *testing.T) {
	// opcode 3
	_, err := Decode(3<<(flagsShift+opcodeShift) | 0x800080008000)
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}

func Test_Decode_Invalid_07(t *testing.T) {
	// jnz with res = add
	_, err := Decode(4<<(flagsShift+pcUpdateShift) | 1<<(flagsShift+resLogicShift) | 0x800080008000)
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}

func Test_Decode_Invalid_08(t *testing.T) {
	// immediate with op1 offset 0
	_, err := Decode(1<<(flagsShift+op1SrcShift) | 0x800080008000)
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}

func Test_Decode_Invalid_09(t *testing.T) {
	// call with ap++
	_, err := Decode(1<<(flagsShift+opcodeShift) | 2<<(flagsShift+apUpdateShift) | 0x800080008000)
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}

func Test_Encode_RoundTrip(t *testing.T) {
	words := []uint64{
		0x208b7fff7fff7ffe,
		0x1104800180018000,
		0x480680017fff8000,
		0x010780017fff7fff,
		0x040780017fff7fff,
	}
	//
	for _, w := range words {
		insn, err := Decode(w)
		assert.NoError(t, err)
		//
		word, err := Encode(insn)
		assert.NoError(t, err)
		assert.Equal(t, w, word, "round trip of %#x", w)
	}
}

func Test_Encode_Invalid(t *testing.T) {
	// Call cannot have regular ap update
	_, err := Encode(Instruction{Opcode: Call, ApUpdate: ApAdd1, Op1Src: Op1SrcFP})
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
	// Immediate must have offset 1
	_, err = Encode(Instruction{Op1Src: Op1SrcImm, OffOp1: 2})
	assert.ErrorIs(t, err, ErrInvalidInstructionEncoding)
}
