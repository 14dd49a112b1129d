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
package stark252

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/consensys/go-cairo/pkg/util/field"
)

// ErrDivisionByZero is returned when dividing by the additive identity.
var ErrDivisionByZero = errors.New("division by zero")

// Element wraps fp.Element (i.e. an element of the field with modulus
// 2^251 + 17*2^192 + 1) to conform to the field.Element interface.  Elements
// are values: no operation modifies its receiver.
type Element struct {
	fp.Element
}

// Modulus returns the (shared) prime modulus.  The returned value must not be
// modified.
func Modulus() *big.Int {
	return fp.Modulus()
}

// New constructs an element from a uint64.
func New(val uint64) Element {
	var x Element
	//
	x.Element.SetUint64(val)
	//
	return x
}

// NewInt64 constructs an element from a (possibly negative) int64, such that
// NewInt64(-1) = P-1.
func NewInt64(val int64) Element {
	var x Element
	//
	x.Element.SetInt64(val)
	//
	return x
}

// FromBigInt constructs an element from an arbitrary big.Int.  Values outside
// [0, P) are reduced, including negative values.
func FromBigInt(val *big.Int) Element {
	var (
		x Element
		v big.Int
	)
	//
	v.Mod(val, fp.Modulus())
	x.Element.SetBigInt(&v)
	//
	return x
}

// FromString parses a decimal or 0x-prefixed hexadecimal string (optionally
// negative) into an element.
func FromString(str string) (Element, error) {
	var val big.Int
	//
	str = strings.TrimSpace(str)
	//
	if _, ok := val.SetString(str, 0); !ok {
		return Element{}, fmt.Errorf("invalid field element \"%s\"", str)
	}
	//
	return FromBigInt(&val), nil
}

// MustFromString is like FromString, but panics on malformed input.  This is
// only intended for constants.
func MustFromString(str string) Element {
	x, err := FromString(str)
	if err != nil {
		panic(err)
	}
	//
	return x
}

// Add x + y
func (x Element) Add(y Element) Element {
	var res Element
	//
	res.Element.Add(&x.Element, &y.Element)
	//
	return res
}

// Sub x - y
func (x Element) Sub(y Element) Element {
	var res Element
	//
	res.Element.Sub(&x.Element, &y.Element)
	//
	return res
}

// Mul x * y
func (x Element) Mul(y Element) Element {
	var res Element
	//
	res.Element.Mul(&x.Element, &y.Element)
	//
	return res
}

// Neg -x
func (x Element) Neg() Element {
	var res Element
	//
	res.Element.Neg(&x.Element)
	//
	return res
}

// Inverse x⁻¹, or 0 if x = 0.
func (x Element) Inverse() Element {
	var res Element
	//
	res.Element.Inverse(&x.Element)
	//
	return res
}

// Div computes x / y, failing if y is zero.
func (x Element) Div(y Element) (Element, error) {
	if y.IsZero() {
		return Element{}, ErrDivisionByZero
	}
	//
	return x.Mul(y.Inverse()), nil
}

// Sqrt returns a square root of x in the field, or false if x is not a
// quadratic residue.
func (x Element) Sqrt() (Element, bool) {
	var res Element
	//
	if res.Element.Sqrt(&x.Element) == nil {
		return Element{}, false
	}
	//
	return res, true
}

// Pow computes x^n.
func (x Element) Pow(n uint64) Element {
	return field.Pow(x, n)
}

// Cmp returns 1 if x > y, 0 if x = y, and -1 if x < y, comparing canonical
// representatives.
func (x Element) Cmp(y Element) int {
	return x.Element.Cmp(&y.Element)
}

// Equal determines whether x = y.
func (x Element) Equal(y Element) bool {
	return x.Element.Equal(&y.Element)
}

// IsZero implementation for the Element interface
func (x Element) IsZero() bool {
	return x.Element.IsZero()
}

// IsOne implementation for the Element interface
func (x Element) IsOne() bool {
	return x.Element.IsOne()
}

// Modulus implementation for the Element interface.
func (x Element) Modulus() *big.Int {
	return fp.Modulus()
}

// SetUint64 implementation for Element.
func (x Element) SetUint64(val uint64) Element {
	x.Element.SetUint64(val)
	//
	return x
}

// SetBytes implementation for Element.
func (x Element) SetBytes(bytes []byte) Element {
	x.Element.SetBytes(bytes)
	//
	return x
}

// BigInt returns the canonical representative of x in [0, P).
func (x Element) BigInt() *big.Int {
	var res big.Int
	//
	return x.Element.BigInt(&res)
}

// Signed returns the representative of x in the range (-P/2, P/2].  This is
// how Cairo interprets felts as signed integers.
func (x Element) Signed() *big.Int {
	var (
		val  = x.BigInt()
		half = new(big.Int).Rsh(fp.Modulus(), 1)
	)
	//
	if val.Cmp(half) > 0 {
		val.Sub(val, fp.Modulus())
	}
	//
	return val
}

// Uint64 returns x as a uint64, or false if it does not fit.
func (x Element) Uint64() (uint64, bool) {
	if !x.Element.IsUint64() {
		return 0, false
	}
	//
	return x.Element.Uint64(), true
}

// BitLen returns the number of bits required to represent the canonical
// value of x.  Note that fp.Element.BitLen operates on the Montgomery form.
func (x Element) BitLen() int {
	return x.BigInt().BitLen()
}

// LittleEndian returns the 32 byte little-endian encoding of x.
func (x Element) LittleEndian() [32]byte {
	var (
		be  = x.Element.Bytes()
		res [32]byte
	)
	//
	for i := range be {
		res[len(be)-1-i] = be[i]
	}
	//
	return res
}

func (x Element) String() string {
	return x.Text(10)
}

// Text implementation for the Element interface
func (x Element) Text(base int) string {
	return x.BigInt().Text(base)
}
