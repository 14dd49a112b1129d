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

import "fmt"

// Offsets are stored biased by 2^15.
const offsetBias = 1 << 15

// Bit positions of the flag groups within an encoded instruction.
const (
	flagsShift    = 48
	dstRegBit     = 0
	op0RegBit     = 1
	op1SrcShift   = 2
	resLogicShift = 5
	pcUpdateShift = 7
	apUpdateShift = 10
	opcodeShift   = 12
	highBit       = 63
)

// Decode an encoded instruction word.  Note that the immediate (if any) is not
// part of the word, but occupies the following memory cell.
func Decode(word uint64) (Instruction, error) {
	var (
		insn  Instruction
		flags = word >> flagsShift
		err   error
	)
	//
	if word>>highBit != 0 {
		return insn, fmt.Errorf("%w: high bit set in %#x", ErrInvalidInstructionEncoding, word)
	}
	//
	insn.OffDst = int16(int32(word&0xffff) - offsetBias)
	insn.OffOp0 = int16(int32((word>>16)&0xffff) - offsetBias)
	insn.OffOp1 = int16(int32((word>>32)&0xffff) - offsetBias)
	insn.DstReg = Register((flags >> dstRegBit) & 1)
	insn.Op0Reg = Register((flags >> op0RegBit) & 1)
	//
	if insn.Op1Src, err = decodeOp1Src((flags >> op1SrcShift) & 7); err != nil {
		return insn, fmt.Errorf("%w in %#x", err, word)
	} else if insn.PcUpdate, err = decodePcUpdate((flags >> pcUpdateShift) & 7); err != nil {
		return insn, fmt.Errorf("%w in %#x", err, word)
	} else if insn.Opcode, err = decodeOpcode((flags >> opcodeShift) & 7); err != nil {
		return insn, fmt.Errorf("%w in %#x", err, word)
	}
	// Result logic
	switch res := (flags >> resLogicShift) & 3; {
	case insn.PcUpdate == PcJnz && res == 0:
		insn.ResLogic = ResUnconstrained
	case insn.PcUpdate == PcJnz:
		return insn, fmt.Errorf("%w: jnz requires res = op1 in %#x", ErrInvalidInstructionEncoding, word)
	case res == 3:
		return insn, fmt.Errorf("%w: res logic %d in %#x", ErrInvalidInstructionEncoding, res, word)
	default:
		insn.ResLogic = ResLogic(res)
	}
	// Allocation pointer update
	switch ap := (flags >> apUpdateShift) & 3; {
	case insn.Opcode == Call && ap == 0:
		insn.ApUpdate = ApAdd2
	case insn.Opcode == Call:
		return insn, fmt.Errorf("%w: call cannot update ap in %#x", ErrInvalidInstructionEncoding, word)
	case ap == 3:
		return insn, fmt.Errorf("%w: ap update %d in %#x", ErrInvalidInstructionEncoding, ap, word)
	default:
		insn.ApUpdate = ApUpdate(ap)
	}
	// Frame pointer update is implied by the opcode
	switch insn.Opcode {
	case Call:
		insn.FpUpdate = FpAPPlus2
	case Ret:
		insn.FpUpdate = FpDst
	default:
		insn.FpUpdate = FpRegular
	}
	//
	if insn.Op1Src == Op1SrcImm && insn.OffOp1 != 1 {
		return insn, fmt.Errorf("%w: immediate requires op1 offset of 1 in %#x", ErrInvalidInstructionEncoding, word)
	}
	//
	return insn, nil
}

// Encode an instruction into its word representation.  This is the inverse of
// Decode, and fails for instructions which could not have been decoded.
func Encode(insn Instruction) (uint64, error) {
	var flags uint64
	//
	flags |= uint64(insn.DstReg) << dstRegBit
	flags |= uint64(insn.Op0Reg) << op0RegBit
	//
	switch insn.Op1Src {
	case Op1SrcOp0:
	case Op1SrcImm:
		flags |= 1 << op1SrcShift
	case Op1SrcFP:
		flags |= 2 << op1SrcShift
	case Op1SrcAP:
		flags |= 4 << op1SrcShift
	}
	//
	switch insn.ResLogic {
	case ResAdd:
		flags |= 1 << resLogicShift
	case ResMul:
		flags |= 2 << resLogicShift
	}
	//
	switch insn.PcUpdate {
	case PcJump:
		flags |= 1 << pcUpdateShift
	case PcJumpRel:
		flags |= 2 << pcUpdateShift
	case PcJnz:
		flags |= 4 << pcUpdateShift
	}
	//
	switch insn.ApUpdate {
	case ApAdd:
		flags |= 1 << apUpdateShift
	case ApAdd1:
		flags |= 2 << apUpdateShift
	}
	//
	switch insn.Opcode {
	case Call:
		flags |= 1 << opcodeShift
	case Ret:
		flags |= 2 << opcodeShift
	case AssertEq:
		flags |= 4 << opcodeShift
	}
	//
	word := biased(insn.OffDst) | biased(insn.OffOp0)<<16 | biased(insn.OffOp1)<<32 | flags<<flagsShift
	// Sanity check (the fp update is implied by the opcode).
	if decoded, err := Decode(word); err != nil {
		return 0, err
	} else if decoded.FpUpdate = insn.FpUpdate; decoded != insn {
		return 0, fmt.Errorf("%w: inconsistent flags", ErrInvalidInstructionEncoding)
	}
	//
	return word, nil
}

func biased(offset int16) uint64 {
	return uint64(int32(offset) + offsetBias)
}

func decodeOp1Src(bits uint64) (Op1Source, error) {
	switch bits {
	case 0:
		return Op1SrcOp0, nil
	case 1:
		return Op1SrcImm, nil
	case 2:
		return Op1SrcFP, nil
	case 4:
		return Op1SrcAP, nil
	}
	//
	return 0, fmt.Errorf("%w: op1 source %d", ErrInvalidInstructionEncoding, bits)
}

func decodePcUpdate(bits uint64) (PcUpdate, error) {
	switch bits {
	case 0:
		return PcRegular, nil
	case 1:
		return PcJump, nil
	case 2:
		return PcJumpRel, nil
	case 4:
		return PcJnz, nil
	}
	//
	return 0, fmt.Errorf("%w: pc update %d", ErrInvalidInstructionEncoding, bits)
}

func decodeOpcode(bits uint64) (Opcode, error) {
	switch bits {
	case 0:
		return NOp, nil
	case 1:
		return Call, nil
	case 2:
		return Ret, nil
	case 4:
		return AssertEq, nil
	}
	//
	return 0, fmt.Errorf("%w: opcode %d", ErrInvalidInstructionEncoding, bits)
}
