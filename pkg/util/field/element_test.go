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
package field_test

import (
	"math/big"
	"testing"

	"github.com/consensys/go-cairo/pkg/util/assert"
	"github.com/consensys/go-cairo/pkg/util/field"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
)

const POW_BASE_MAX uint64 = 64

func Test_Pow_01(t *testing.T) {
	for base := uint64(0); base < POW_BASE_MAX; base++ {
		for n := uint64(0); n < 16; n++ {
			checkPow(t, base, n)
		}
	}
}

func Test_Pow_02(t *testing.T) {
	for _, n := range []uint64{1 << 32, 1<<63 + 5, ^uint64(0)} {
		checkPow(t, 3, n)
	}
}

func Test_TwoPowN(t *testing.T) {
	for _, n := range []uint{0, 1, 64, 128, 250} {
		expected := new(big.Int).Lsh(big.NewInt(1), n)
		assert.Equal(t, expected.String(), field.TwoPowN[stark252.Element](n).String())
	}
}

func Test_BigInt(t *testing.T) {
	val := new(big.Int).Sub(stark252.Modulus(), big.NewInt(1))
	//
	assert.Equal(t, val.String(), field.BigInt[stark252.Element](*val).String())
	assert.True(t, field.One[stark252.Element]().IsOne())
	assert.True(t, field.Zero[stark252.Element]().IsZero())
}

func checkPow(t *testing.T, base uint64, n uint64) {
	var (
		expected = new(big.Int).Exp(new(big.Int).SetUint64(base), new(big.Int).SetUint64(n), stark252.Modulus())
		actual   = field.Pow(field.Uint64[stark252.Element](base), n)
	)
	//
	assert.Equal(t, expected.String(), actual.String(), "%d^%d", base, n)
}
