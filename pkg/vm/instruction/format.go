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
	"fmt"
	"strings"
)

func (p Register) String() string {
	if p == FP {
		return "fp"
	}
	//
	return "ap"
}

// String returns a human-readable (assembly-like) form of this instruction.
// Immediates are shown as "imm", since they are not part of the instruction
// itself.
func (p Instruction) String() string {
	var (
		builder strings.Builder
		dst     = operandString(p.DstReg.String(), p.OffDst)
		res     = p.resString()
	)
	//
	switch p.Opcode {
	case AssertEq:
		builder.WriteString(fmt.Sprintf("%s = %s", dst, res))
	case Call:
		if p.PcUpdate == PcJumpRel {
			builder.WriteString(fmt.Sprintf("call rel %s", res))
		} else {
			builder.WriteString(fmt.Sprintf("call abs %s", res))
		}
	case Ret:
		builder.WriteString("ret")
	default:
		switch p.PcUpdate {
		case PcJump:
			builder.WriteString(fmt.Sprintf("jmp abs %s", res))
		case PcJumpRel:
			builder.WriteString(fmt.Sprintf("jmp rel %s", res))
		case PcJnz:
			builder.WriteString(fmt.Sprintf("jmp rel %s if %s != 0", p.op1String(), dst))
		default:
			if p.ApUpdate == ApAdd {
				builder.WriteString(fmt.Sprintf("ap += %s", res))
			} else {
				builder.WriteString("nop")
			}
		}
	}
	//
	if p.ApUpdate == ApAdd1 {
		builder.WriteString("; ap++")
	}
	//
	return builder.String()
}

func (p Instruction) resString() string {
	switch p.ResLogic {
	case ResAdd:
		return fmt.Sprintf("%s + %s", p.op0String(), p.op1String())
	case ResMul:
		return fmt.Sprintf("%s * %s", p.op0String(), p.op1String())
	default:
		return p.op1String()
	}
}

func (p Instruction) op0String() string {
	return operandString(p.Op0Reg.String(), p.OffOp0)
}

func (p Instruction) op1String() string {
	switch p.Op1Src {
	case Op1SrcImm:
		return "imm"
	case Op1SrcFP:
		return operandString("fp", p.OffOp1)
	case Op1SrcAP:
		return operandString("ap", p.OffOp1)
	default:
		return operandString(p.op0String(), p.OffOp1)
	}
}

func operandString(base string, offset int16) string {
	switch {
	case offset < 0:
		return fmt.Sprintf("[%s - %d]", base, -int32(offset))
	case offset > 0:
		return fmt.Sprintf("[%s + %d]", base, offset)
	default:
		return fmt.Sprintf("[%s]", base)
	}
}
