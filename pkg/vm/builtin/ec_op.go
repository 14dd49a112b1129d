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
	"fmt"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Number of input cells in an ec_op instance.
const ecOpInputs = 5

// EcOp is the builtin computing r = p + m*q over the STARK curve.  Each
// instance occupies seven cells: p.x, p.y, q.x, q.y, m, r.x, r.y.
type EcOp struct {
	base
}

// NewEcOp constructs a new ec_op builtin.
func NewEcOp(ratio uint64) *EcOp {
	return &EcOp{base{name: EcOpName, ratio: ratio, cellsPerInstance: 7}}
}

// Deduce implementation for Runner interface
func (p *EcOp) Deduce(address memory.Relocatable, mem *memory.Memory) (memory.Value, bool, error) {
	var (
		start, index = p.instance(address)
		inputs       [ecOpInputs]stark252.Element
	)
	//
	if index < ecOpInputs {
		return memory.Value{}, false, nil
	}
	// All inputs must be known
	for i := range inputs {
		value, ok := mem.Peek(start.Add(uint64(i)))
		if !ok {
			return memory.Value{}, false, nil
		} else if inputs[i], ok = value.Felt(); !ok {
			return memory.Value{}, false, fmt.Errorf("%w: ec_op input %s at %s", memory.ErrExpectedFelt, value,
				start.Add(uint64(i)))
		}
	}
	//
	var (
		pt = Point{inputs[0], inputs[1]}
		qt = Point{inputs[2], inputs[3]}
	)
	//
	if !pt.IsOnCurve() {
		return memory.Value{}, false, fmt.Errorf("%w: p at %s", ErrPointNotOnCurve, start)
	} else if !qt.IsOnCurve() {
		return memory.Value{}, false, fmt.Errorf("%w: q at %s", ErrPointNotOnCurve, start.Add(2))
	}
	//
	res, err := MulAdd(pt, inputs[4].BigInt(), qt)
	if err != nil {
		return memory.Value{}, false, fmt.Errorf("ec_op at %s: %w", start, err)
	} else if index == ecOpInputs {
		return memory.FeltValue(res.X), true, nil
	}
	//
	return memory.FeltValue(res.Y), true, nil
}
