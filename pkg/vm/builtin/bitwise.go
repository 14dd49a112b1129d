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
package builtin

import (
	"errors"
	"fmt"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/memory"
	"github.com/holiman/uint256"
)

// ErrBitwiseInput indicates an input to the bitwise builtin which is either
// not a field element, or is too large.
var ErrBitwiseInput = errors.New("invalid bitwise input")

// BitwiseBits is the maximum bitwidth of bitwise inputs.
const BitwiseBits = 251

// Bitwise is the builtin computing x&y, x^y and x|y for each pair (x,y).  Each
// instance occupies five cells: x, y, x&y, x^y, x|y.
type Bitwise struct {
	base
}

// NewBitwise constructs a new bitwise builtin.
func NewBitwise(ratio uint64) *Bitwise {
	return &Bitwise{base{name: BitwiseName, ratio: ratio, cellsPerInstance: 5}}
}

// Deduce implementation for Runner interface
func (p *Bitwise) Deduce(address memory.Relocatable, mem *memory.Memory) (memory.Value, bool, error) {
	start, index := p.instance(address)
	// inputs cannot be deduced
	if index < 2 {
		return memory.Value{}, false, nil
	}
	//
	x, ok, err := bitwiseInput(mem, start)
	if err != nil || !ok {
		return memory.Value{}, false, err
	}
	//
	y, ok, err := bitwiseInput(mem, start.Add(1))
	if err != nil || !ok {
		return memory.Value{}, false, err
	}
	//
	var res uint256.Int
	//
	switch index {
	case 2:
		res.And(x, y)
	case 3:
		res.Xor(x, y)
	default:
		res.Or(x, y)
	}
	//
	return memory.FeltValue(stark252.FromBigInt(res.ToBig())), true, nil
}

func bitwiseInput(mem *memory.Memory, addr memory.Relocatable) (*uint256.Int, bool, error) {
	value, ok := mem.Peek(addr)
	if !ok {
		return nil, false, nil
	}
	//
	felt, ok := value.Felt()
	if !ok {
		return nil, false, fmt.Errorf("%w: pointer %s at %s", ErrBitwiseInput, value, addr)
	} else if felt.BitLen() > BitwiseBits {
		return nil, false, fmt.Errorf("%w: %s exceeds %d bits at %s", ErrBitwiseInput, felt.String(), BitwiseBits,
			addr)
	}
	//
	res, _ := uint256.FromBig(felt.BigInt())
	//
	return res, true, nil
}
