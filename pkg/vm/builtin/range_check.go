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

	"github.com/consensys/go-cairo/pkg/util/field"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// ErrRangeCheck indicates a value written into the range check segment which
// is out of range.
var ErrRangeCheck = errors.New("range check failed")

// RangeCheckParts is the number of 16bit parts checked by each range check
// instance.
const RangeCheckParts = 8

// RangeCheckBits is the bitwidth of values accepted by the range check.
const RangeCheckBits = 16 * RangeCheckParts

// RangeCheck is the builtin which ensures every value written into its
// segment is within [0, 2^128).
type RangeCheck struct {
	base
}

// NewRangeCheck constructs a new range check builtin.
func NewRangeCheck(ratio uint64) *RangeCheck {
	return &RangeCheck{base{name: RangeCheckName, ratio: ratio, cellsPerInstance: 1}}
}

// Bound returns the (exclusive) upper bound of values accepted by the range
// check, i.e. 2^128.
func (p *RangeCheck) Bound() stark252.Element {
	return field.TwoPowN[stark252.Element](RangeCheckBits)
}

// AddValidationRule implementation for Runner interface
func (p *RangeCheck) AddValidationRule(mem *memory.Memory) {
	mem.AddValidationRule(p.segment.Segment, func(mem *memory.Memory, addr memory.Relocatable) error {
		value, err := mem.Get(addr)
		if err != nil {
			return err
		}
		//
		if felt, ok := value.Felt(); !ok {
			return fmt.Errorf("%w: pointer %s at %s", ErrRangeCheck, value, addr)
		} else if felt.BitLen() > RangeCheckBits {
			return fmt.Errorf("%w: %s at %s", ErrRangeCheck, felt.String(), addr)
		}
		//
		return nil
	})
}
