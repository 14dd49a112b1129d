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
package memory

import (
	"cmp"
	"fmt"
	"math/big"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
)

// Relocatable is an address within a given segment of memory.  Segments with
// a non-negative index are "real" segments, whilst negative indices identify
// temporary segments which must be relocated into real segments before the end
// of execution.  Once execution is complete, every relocatable is mapped into
// a single linear address space (see Segments.Relocate).
type Relocatable struct {
	Segment int
	Offset  uint64
}

// NewRelocatable constructs a relocatable address.
func NewRelocatable(segment int, offset uint64) Relocatable {
	return Relocatable{segment, offset}
}

// IsTemporary determines whether this address belongs to a temporary segment.
func (p Relocatable) IsTemporary() bool {
	return p.Segment < 0
}

// Add a (positive) offset to this address.
func (p Relocatable) Add(n uint64) Relocatable {
	return Relocatable{p.Segment, p.Offset + n}
}

// AddInt adds a signed offset to this address, failing if the resulting offset
// is negative.
func (p Relocatable) AddInt(n int64) (Relocatable, error) {
	if n < 0 {
		m := uint64(-n)
		//
		if m > p.Offset {
			return p, fmt.Errorf("%w: %s%d", ErrOffsetOverflow, p, n)
		}
		//
		return Relocatable{p.Segment, p.Offset - m}, nil
	}
	//
	return Relocatable{p.Segment, p.Offset + uint64(n)}, nil
}

// AddFelt adds a field element to the offset of this address.  The addition is
// performed modulo the field, hence adding the element P-1 is equivalent to
// subtracting one.  The result must be a valid offset.
func (p Relocatable) AddFelt(x stark252.Element) (Relocatable, error) {
	var (
		offset = stark252.New(p.Offset).Add(x)
		n, ok  = offset.Uint64()
	)
	//
	if !ok {
		return p, fmt.Errorf("%w: %s + %s", ErrOffsetOverflow, p, x.String())
	}
	//
	return Relocatable{p.Segment, n}, nil
}

// Sub computes the distance between two addresses in the same segment.  The
// result may be negative, in which case it is wrapped around the field.
func (p Relocatable) Sub(q Relocatable) (stark252.Element, error) {
	if p.Segment != q.Segment {
		return stark252.Element{}, fmt.Errorf("%w: %s - %s (different segments)", ErrPointerArithmetic, p, q)
	}
	//
	var diff big.Int
	//
	diff.Sub(new(big.Int).SetUint64(p.Offset), new(big.Int).SetUint64(q.Offset))
	//
	return stark252.FromBigInt(&diff), nil
}

// Cmp compares two addresses, first by segment and then by offset.
func (p Relocatable) Cmp(q Relocatable) int {
	if c := cmp.Compare(p.Segment, q.Segment); c != 0 {
		return c
	}
	//
	return cmp.Compare(p.Offset, q.Offset)
}

func (p Relocatable) String() string {
	return fmt.Sprintf("%d:%d", p.Segment, p.Offset)
}
