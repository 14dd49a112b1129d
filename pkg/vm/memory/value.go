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
	"fmt"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
)

const (
	unknownKind = iota
	feltKind
	pointerKind
)

// Value is the contents of a memory cell, which is either a field element or a
// pointer (i.e. a relocatable address).  The zero Value is "unknown", and is
// used to indicate the absence of a value (e.g. an operand which has not yet
// been deduced).
type Value struct {
	kind    uint8
	felt    stark252.Element
	pointer Relocatable
}

// FeltValue constructs a value holding a given field element.
func FeltValue(x stark252.Element) Value {
	return Value{kind: feltKind, felt: x}
}

// Uint64Value constructs a value holding a field element with a given (small)
// value.
func Uint64Value(n uint64) Value {
	return FeltValue(stark252.New(n))
}

// PointerValue constructs a value holding a given relocatable address.
func PointerValue(p Relocatable) Value {
	return Value{kind: pointerKind, pointer: p}
}

// IsKnown determines whether this value is defined.
func (p Value) IsKnown() bool {
	return p.kind != unknownKind
}

// IsFelt determines whether this value holds a field element.
func (p Value) IsFelt() bool {
	return p.kind == feltKind
}

// IsPointer determines whether this value holds a relocatable address.
func (p Value) IsPointer() bool {
	return p.kind == pointerKind
}

// Felt returns the field element held in this value, or false if it does not
// hold one.
func (p Value) Felt() (stark252.Element, bool) {
	return p.felt, p.kind == feltKind
}

// Pointer returns the address held in this value, or false if it does not hold
// one.
func (p Value) Pointer() (Relocatable, bool) {
	return p.pointer, p.kind == pointerKind
}

// IsZero determines whether this value is the zero field element.
func (p Value) IsZero() bool {
	return p.kind == feltKind && p.felt.IsZero()
}

// Equal determines whether two values are identical.
func (p Value) Equal(q Value) bool {
	switch {
	case p.kind != q.kind:
		return false
	case p.kind == feltKind:
		return p.felt.Equal(q.felt)
	default:
		return p.pointer == q.pointer
	}
}

// Add two values together.  Pointers can be offset by field elements, but
// adding two pointers together is not permitted.
func (p Value) Add(q Value) (Value, error) {
	switch {
	case p.kind == feltKind && q.kind == feltKind:
		return FeltValue(p.felt.Add(q.felt)), nil
	case p.kind == pointerKind && q.kind == feltKind:
		ptr, err := p.pointer.AddFelt(q.felt)
		return PointerValue(ptr), err
	case p.kind == feltKind && q.kind == pointerKind:
		ptr, err := q.pointer.AddFelt(p.felt)
		return PointerValue(ptr), err
	}
	//
	return Value{}, fmt.Errorf("%w: %s + %s", ErrPointerArithmetic, p, q)
}

// Sub subtracts one value from another.  Pointers in the same segment can be
// subtracted to give a field element, and field elements can be subtracted
// from pointers.
func (p Value) Sub(q Value) (Value, error) {
	switch {
	case p.kind == feltKind && q.kind == feltKind:
		return FeltValue(p.felt.Sub(q.felt)), nil
	case p.kind == pointerKind && q.kind == feltKind:
		ptr, err := p.pointer.AddFelt(q.felt.Neg())
		return PointerValue(ptr), err
	case p.kind == pointerKind && q.kind == pointerKind:
		diff, err := p.pointer.Sub(q.pointer)
		return FeltValue(diff), err
	}
	//
	return Value{}, fmt.Errorf("%w: %s - %s", ErrPointerArithmetic, p, q)
}

// Mul multiplies two field elements.  Multiplication is not defined for
// pointers.
func (p Value) Mul(q Value) (Value, error) {
	if p.kind == feltKind && q.kind == feltKind {
		return FeltValue(p.felt.Mul(q.felt)), nil
	}
	//
	return Value{}, fmt.Errorf("%w: %s * %s", ErrPointerArithmetic, p, q)
}

func (p Value) String() string {
	switch p.kind {
	case feltKind:
		return p.felt.String()
	case pointerKind:
		return p.pointer.String()
	default:
		return "?"
	}
}
