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
	"math/big"
	"math/rand"
	"testing"

	"github.com/consensys/go-cairo/pkg/util/assert"
	"github.com/consensys/go-cairo/pkg/util/field"
)

func init() {
	// make sure the interface is adhered to.
	_ = field.Element[Element](Element{})
}

// 2^251 + 17*2^192 + 1
const prime = "0x800000000000011000000000000000000000000000000000000000000000001"

func TestModulus(t *testing.T) {
	var expected big.Int
	//
	expected.Lsh(big.NewInt(1), 251)
	expected.Add(&expected, new(big.Int).Lsh(big.NewInt(17), 192))
	expected.Add(&expected, big.NewInt(1))
	//
	assert.Equal(t, expected.String(), Modulus().String())
	assert.Equal(t, MustFromString(prime).IsZero(), true)
}

func TestNegativeReduction(t *testing.T) {
	var (
		minusOne = NewInt64(-1)
		expected = new(big.Int).Sub(Modulus(), big.NewInt(1))
	)
	//
	assert.Equal(t, expected.String(), minusOne.String())
	assert.Equal(t, "-1", minusOne.Signed().String())
	assert.True(t, minusOne.Add(New(1)).IsZero())
	assert.Equal(t, minusOne, MustFromString("-1"))
}

func TestArithmetic(t *testing.T) {
	var (
		a = New(7)
		b = New(5)
	)
	//
	assert.Equal(t, New(12), a.Add(b))
	assert.Equal(t, New(2), a.Sub(b))
	assert.Equal(t, NewInt64(-2), b.Sub(a))
	assert.Equal(t, New(35), a.Mul(b))
	assert.Equal(t, NewInt64(-7), a.Neg())
	assert.Equal(t, New(49), a.Pow(2))
	assert.Equal(t, New(1), a.Pow(0))
	//
	q, err := New(35).Div(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, a, q)
}

func TestDivisionByZero(t *testing.T) {
	_, err := New(1).Div(New(0))
	//
	assert.True(t, errors.Is(err, ErrDivisionByZero))
	assert.True(t, New(0).Inverse().IsZero())
}

func TestInverse(t *testing.T) {
	for i := 0; i < 100; i++ {
		x := New(rand.Uint64() | 1)
		//
		assert.True(t, x.Mul(x.Inverse()).IsOne(), "inverse of %s", x.String())
	}
}

func TestBigIntRoundTrip(t *testing.T) {
	for i := 0; i < 100; i++ {
		var (
			val = new(big.Int).Rand(rand.New(rand.NewSource(int64(i))), Modulus())
			x   = FromBigInt(val)
		)
		//
		assert.Equal(t, val.String(), x.BigInt().String())
		assert.Equal(t, x, FromBigInt(x.BigInt()))
	}
}

func TestStrings(t *testing.T) {
	x, err := FromString("0x10")
	//
	assert.Equal(t, nil, err)
	assert.Equal(t, New(16), x)
	assert.Equal(t, "16", x.String())
	assert.Equal(t, "10", x.Text(16))
	//
	_, err = FromString("0xzz")
	assert.True(t, err != nil)
}

func TestSqrt(t *testing.T) {
	root, ok := New(16).Sqrt()
	//
	assert.True(t, ok)
	assert.Equal(t, New(16), root.Mul(root))
}

func TestCmpAndSigned(t *testing.T) {
	assert.Equal(t, -1, New(1).Cmp(New(2)))
	assert.Equal(t, 1, NewInt64(-1).Cmp(New(2)))
	assert.Equal(t, "3", New(3).Signed().String())
	//
	v, ok := New(42).Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), v)
	//
	_, ok = NewInt64(-1).Uint64()
	assert.True(t, !ok)
}

func TestLittleEndian(t *testing.T) {
	bytes := New(0x0102).LittleEndian()
	//
	assert.Equal(t, byte(0x02), bytes[0])
	assert.Equal(t, byte(0x01), bytes[1])
	assert.Equal(t, byte(0x00), bytes[31])
}

func TestBitLen(t *testing.T) {
	assert.Equal(t, 0, New(0).BitLen())
	assert.Equal(t, 1, New(1).BitLen())
	assert.Equal(t, 2, New(3).BitLen())
	assert.Equal(t, 11, New(1024).BitLen())
	assert.Equal(t, 252, NewInt64(-1).BitLen())
	// Agrees with the canonical representative
	for i := 0; i < 100; i++ {
		x := New(rand.Uint64()).Mul(New(rand.Uint64()))
		assert.Equal(t, x.BigInt().BitLen(), x.BitLen())
	}
}
