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
package hint

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Hints from the uint256 library.
const (
	Uint256Add = "sum_low = ids.a.low + ids.b.low\n" +
		"ids.carry_low = 1 if sum_low >= ids.SHIFT else 0\n" +
		"sum_high = ids.a.high + ids.b.high + ids.carry_low\n" +
		"ids.carry_high = 1 if sum_high >= ids.SHIFT else 0"
	Split64     = "ids.low = ids.a & ((1<<64) - 1)\nids.high = ids.a >> 64"
	Uint256Sqrt = "from starkware.python.math_utils import isqrt\n" +
		"n = (ids.n.high << 128) + ids.n.low\n" +
		"root = isqrt(n)\n" +
		"assert 0 <= root < 2 ** 128\n" +
		"ids.root.low = root\n" +
		"ids.root.high = 0"
	Uint256SignedNN       = "memory[ap] = 1 if 0 <= (ids.a.high % PRIME) < 2 ** 127 else 0"
	Uint256UnsignedDivRem = "a = (ids.a.high << 128) + ids.a.low\n" +
		"div = (ids.div.high << 128) + ids.div.low\n" +
		"quotient, remainder = divmod(a, div)\n\n" +
		"ids.quotient.low = quotient & ((1 << 128) - 1)\n" +
		"ids.quotient.high = quotient >> 128\n" +
		"ids.remainder.low = remainder & ((1 << 128) - 1)\n" +
		"ids.remainder.high = remainder >> 128"
)

// Offsets of the members of starkware.cairo.common.uint256.Uint256
const (
	lowOffset  = 0
	highOffset = 1
)

func init() {
	define(uint256Add, Uint256Add)
	define(split64, Split64)
	define(uint256Sqrt, Uint256Sqrt)
	define(uint256SignedNN, Uint256SignedNN)
	define(uint256UnsignedDivRem, Uint256UnsignedDivRem)
}

// Read the two 128-bit halves of a Uint256 reference.
func getUint256Halves(ctx *Context, name string) (*big.Int, *big.Int, error) {
	low, err := getMemberBig(ctx, name, "low", lowOffset)
	if err != nil {
		return nil, nil, err
	}
	//
	high, err := getMemberBig(ctx, name, "high", highOffset)
	//
	return low, high, err
}

// Read a Uint256 reference as a 256-bit word.
func getUint256(ctx *Context, name string) (*uint256.Int, error) {
	low, high, err := getUint256Halves(ctx, name)
	if err != nil {
		return nil, err
	} else if low.BitLen() > 128 || high.BitLen() > 128 {
		return nil, fmt.Errorf("ids.%s = (%s, %s) is not a valid uint256", name, low, high)
	}
	//
	word, _ := uint256.FromBig(new(big.Int).Add(new(big.Int).Lsh(high, 128), low))
	//
	return word, nil
}

// Write a 256-bit word into a Uint256 reference.
func setUint256(ctx *Context, name string, word *uint256.Int) error {
	var (
		high = new(uint256.Int).Rsh(word, 128)
		low  = new(uint256.Int).Sub(word, new(uint256.Int).Lsh(high, 128))
	)
	//
	if err := setMemberBig(ctx, name, "low", lowOffset, low.ToBig()); err != nil {
		return err
	}
	//
	return setMemberBig(ctx, name, "high", highOffset, high.ToBig())
}

func uint256Add(ctx *Context) error {
	aLow, aHigh, err := getUint256Halves(ctx, "a")
	if err != nil {
		return err
	}
	//
	bLow, bHigh, err := getUint256Halves(ctx, "b")
	if err != nil {
		return err
	}
	//
	var (
		shift    = ctx.ConstantOr("SHIFT", pow2(128))
		sumLow   = new(big.Int).Add(aLow, bLow)
		carryLow = int64(0)
	)
	//
	if sumLow.Cmp(shift) >= 0 {
		carryLow = 1
	}
	//
	sumHigh := new(big.Int).Add(aHigh, bHigh)
	sumHigh.Add(sumHigh, big.NewInt(carryLow))
	//
	if err := ctx.Ids.Set("carry_low", boolValue(carryLow == 1)); err != nil {
		return err
	}
	//
	return ctx.Ids.Set("carry_high", boolValue(sumHigh.Cmp(shift) >= 0))
}

func split64(ctx *Context) error {
	a, err := ctx.Ids.GetBig("a")
	if err != nil {
		return err
	}
	//
	if err := ctx.Ids.SetBig("low", new(big.Int).And(a, mask(64))); err != nil {
		return err
	}
	//
	return ctx.Ids.SetBig("high", new(big.Int).Rsh(a, 64))
}

func uint256Sqrt(ctx *Context) error {
	n, err := getUint256(ctx, "n")
	if err != nil {
		return err
	}
	//
	root := new(uint256.Int).Sqrt(n)
	//
	if root.BitLen() > 128 {
		return assertf("root %s is not in the range [0, 2**128)", root.Dec())
	}
	//
	return setUint256(ctx, "root", root)
}

func uint256SignedNN(ctx *Context) error {
	high, err := getMemberBig(ctx, "a", "high", highOffset)
	if err != nil {
		return err
	}
	//
	return ctx.InsertAP(boolValue(high.BitLen() <= 127))
}

func uint256UnsignedDivRem(ctx *Context) error {
	a, err := getUint256(ctx, "a")
	if err != nil {
		return err
	}
	//
	div, err := getUint256(ctx, "div")
	if err != nil {
		return err
	} else if div.IsZero() {
		return fmt.Errorf("uint256_unsigned_div_rem: division by zero")
	}
	//
	var (
		quotient  = new(uint256.Int).Div(a, div)
		remainder = new(uint256.Int).Mod(a, div)
	)
	//
	if err := setUint256(ctx, "quotient", quotient); err != nil {
		return err
	}
	//
	return setUint256(ctx, "remainder", remainder)
}
