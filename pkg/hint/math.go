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
	"sort"

	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Hints from the math and math_cmp libraries.
const (
	AssertNN = "from starkware.cairo.common.math_utils import assert_integer\n" +
		"assert_integer(ids.a)\n" +
		"assert 0 <= ids.a % PRIME < range_check_builtin.bound, f'a = {ids.a} is out of range.'"
	AssertNotZero = "from starkware.cairo.common.math_utils import assert_integer\n" +
		"assert_integer(ids.value)\n" +
		"assert ids.value % PRIME != 0, f'assert_not_zero failed: {ids.value} = 0.'"
	AssertNotEqual = "from starkware.cairo.lang.vm.relocatable import RelocatableValue\n" +
		"both_ints = isinstance(ids.a, int) and isinstance(ids.b, int)\n" +
		"both_relocatable = (\n" +
		"    isinstance(ids.a, RelocatableValue) and isinstance(ids.b, RelocatableValue) and\n" +
		"    ids.a.segment_index == ids.b.segment_index)\n" +
		"assert both_ints or both_relocatable, \\\n" +
		"    f'assert_not_equal failed: non-comparable values: {ids.a}, {ids.b}.'\n" +
		"assert (ids.a - ids.b) % PRIME != 0, f'assert_not_equal failed: {ids.a} = {ids.b}.'"
	IsNN           = "memory[ap] = 0 if 0 <= (ids.a % PRIME) < range_check_builtin.bound else 1"
	IsNNOutOfRange = "memory[ap] = 0 if 0 <= ((-ids.a - 1) % PRIME) < range_check_builtin.bound else 1"
	IsLeFelt       = "memory[ap] = 0 if (ids.a % PRIME) <= (ids.b % PRIME) else 1"
	AssertLeFelt   = "import itertools\n\n" +
		"from starkware.cairo.common.math_utils import assert_integer\n" +
		"assert_integer(ids.a)\n" +
		"assert_integer(ids.b)\n" +
		"a = ids.a % PRIME\n" +
		"b = ids.b % PRIME\n" +
		"assert a <= b, f'a = {a} is not less than or equal to b = {b}.'\n\n" +
		"# Find an arc less than PRIME / 3, and another less than PRIME / 2.\n" +
		"lengths_and_indices = [(a, 0), (b - a, 1), (PRIME - 1 - b, 2)]\n" +
		"lengths_and_indices.sort()\n" +
		"assert lengths_and_indices[0][0] <= PRIME // 3 and lengths_and_indices[1][0] <= PRIME // 2\n" +
		"excluded = lengths_and_indices[2][1]\n\n" +
		"memory[ids.range_check_ptr + 1], memory[ids.range_check_ptr + 0] = (\n" +
		"    divmod(lengths_and_indices[0][0], ids.PRIME_OVER_3_HIGH))\n" +
		"memory[ids.range_check_ptr + 3], memory[ids.range_check_ptr + 2] = (\n" +
		"    divmod(lengths_and_indices[1][0], ids.PRIME_OVER_2_HIGH))"
	AssertLeFeltExcluded0 = "memory[ap] = 1 if excluded != 0 else 0"
	AssertLeFeltExcluded1 = "memory[ap] = 1 if excluded != 1 else 0"
	AssertLeFeltExcluded2 = "assert excluded == 2"
	AssertLtFelt          = "from starkware.cairo.common.math_utils import assert_integer\n" +
		"assert_integer(ids.a)\n" +
		"assert_integer(ids.b)\n" +
		"assert (ids.a % PRIME) < (ids.b % PRIME), \\\n" +
		"    f'a = {ids.a % PRIME} is not less than b = {ids.b % PRIME}.'"
	Assert250Bit = "from starkware.cairo.common.math_utils import as_int\n\n" +
		"# Correctness check.\n" +
		"value = as_int(ids.value, PRIME) % PRIME\n" +
		"assert value < ids.UPPER_BOUND, f'{value} is outside of the range [0, 2**250).'\n\n" +
		"# Calculation for the assertion.\n" +
		"ids.high, ids.low = divmod(ids.value, ids.SHIFT)"
	SplitFelt = "from starkware.cairo.common.math_utils import assert_integer\n" +
		"assert ids.MAX_HIGH < 2**128 and ids.MAX_LOW < 2**128\n" +
		"assert PRIME - 1 == ids.MAX_HIGH * 2**128 + ids.MAX_LOW\n" +
		"assert_integer(ids.value)\n" +
		"ids.low = ids.value & ((1 << 128) - 1)\n" +
		"ids.high = ids.value >> 128"
	SplitInt = "memory[ids.output] = res = (int(ids.value) % PRIME) % ids.base\n" +
		"assert res < ids.bound, f'split_int(): Limb {res} is out of range.'"
	SplitIntAssertRange = "assert ids.value == 0, 'split_int(): value is out of range.'"
	IsPositive          = "from starkware.cairo.common.math_utils import is_positive\n" +
		"ids.is_positive = 1 if is_positive(\n" +
		"    value=ids.value, prime=PRIME, rc_bound=range_check_builtin.bound) else 0"
	Sqrt = "from starkware.python.math_utils import isqrt\n" +
		"value = ids.value % PRIME\n" +
		"assert value < 2 ** 250, f\"value={value} is outside of the range [0, 2**250).\"\n" +
		"assert 2 ** 250 < PRIME\n" +
		"ids.root = isqrt(value)"
	UnsignedDivRem = "from starkware.cairo.common.math_utils import assert_integer\n" +
		"assert_integer(ids.div)\n" +
		"assert 0 < ids.div <= PRIME // range_check_builtin.bound, \\\n" +
		"    f'div={hex(ids.div)} is out of the valid range.'\n" +
		"ids.q, ids.r = divmod(ids.value, ids.div)"
	SignedDivRem = "from starkware.cairo.common.math_utils import as_int, assert_integer\n\n" +
		"assert_integer(ids.div)\n" +
		"assert 0 < ids.div <= PRIME // range_check_builtin.bound, \\\n" +
		"    f'div={hex(ids.div)} is out of the valid range.'\n\n" +
		"assert_integer(ids.bound)\n" +
		"assert ids.bound <= range_check_builtin.bound // 2, \\\n" +
		"    f'bound={hex(ids.bound)} is out of the valid range.'\n\n" +
		"int_value = as_int(ids.value, PRIME)\n" +
		"q, ids.r = divmod(int_value, ids.div)\n\n" +
		"assert -ids.bound <= q < ids.bound, \\\n" +
		"    f'{int_value} / {ids.div} = {q} is out of the range [{-ids.bound}, {ids.bound}).'\n\n" +
		"ids.biased_q = q + ids.bound"
	Pow              = "ids.locs.bit = (ids.prev_locs.exp % PRIME) & 1"
	GetFeltBitLength = "x = ids.x\nids.bit_length = x.bit_length()"
)

// Values of the constants declared alongside the math library hints.
var (
	primeOver3High = fromHex("2aaaaaaaaaaaab05555555555555556")
	primeOver2High = fromHex("4000000000000088000000000000001")
)

func init() {
	define(assertNN, AssertNN)
	define(assertNotZero, AssertNotZero)
	define(assertNotEqual, AssertNotEqual)
	define(isNN, IsNN)
	define(isNNOutOfRange, IsNNOutOfRange)
	define(isLeFelt, IsLeFelt)
	define(assertLeFelt, AssertLeFelt)
	define(assertLeFeltExcluded(0), AssertLeFeltExcluded0)
	define(assertLeFeltExcluded(1), AssertLeFeltExcluded1)
	define(assertLeFeltExcluded2, AssertLeFeltExcluded2)
	define(assertLtFelt, AssertLtFelt)
	define(assert250Bit, Assert250Bit)
	define(splitFelt, SplitFelt)
	define(splitInt, SplitInt)
	define(splitIntAssertRange, SplitIntAssertRange)
	define(isPositive, IsPositive)
	define(sqrt, Sqrt)
	define(unsignedDivRem, UnsignedDivRem)
	define(signedDivRem, SignedDivRem)
	define(pow, Pow)
	define(getFeltBitLength, GetFeltBitLength)
}

func assertNN(ctx *Context) error {
	a, err := ctx.Ids.GetBig("a")
	//
	if err != nil {
		return err
	} else if a.Cmp(ctx.RangeCheckBound()) >= 0 {
		return assertf("a = %s is out of range.", a)
	}
	//
	return nil
}

func assertNotZero(ctx *Context) error {
	value, err := ctx.Ids.GetFelt("value")
	//
	if err != nil {
		return err
	} else if value.IsZero() {
		return assertf("assert_not_zero failed: %s = 0.", value.String())
	}
	//
	return nil
}

func assertNotEqual(ctx *Context) error {
	a, err := ctx.Ids.Get("a")
	if err != nil {
		return err
	}
	//
	b, err := ctx.Ids.Get("b")
	if err != nil {
		return err
	}
	//
	diff, err := a.Sub(b)
	//
	if err != nil || a.IsPointer() != b.IsPointer() {
		return fmt.Errorf("assert_not_equal failed: non-comparable values: %s, %s", a, b)
	} else if diff.IsZero() {
		return assertf("assert_not_equal failed: %s = %s.", a, b)
	}
	//
	return nil
}

func isNN(ctx *Context) error {
	a, err := ctx.Ids.GetBig("a")
	if err != nil {
		return err
	}
	//
	return ctx.InsertAP(boolValue(a.Cmp(ctx.RangeCheckBound()) >= 0))
}

func isNNOutOfRange(ctx *Context) error {
	a, err := ctx.Ids.GetFelt("a")
	if err != nil {
		return err
	}
	// (-a - 1) % PRIME
	x := a.Neg().Sub(feltOne).BigInt()
	//
	return ctx.InsertAP(boolValue(x.Cmp(ctx.RangeCheckBound()) >= 0))
}

func isLeFelt(ctx *Context) error {
	a, b, err := getPair(ctx, "a", "b")
	if err != nil {
		return err
	}
	//
	return ctx.InsertAP(boolValue(a.Cmp(b) > 0))
}

func assertLeFelt(ctx *Context) error {
	a, b, err := getPair(ctx, "a", "b")
	//
	if err != nil {
		return err
	} else if a.Cmp(b) > 0 {
		return assertf("a = %s is not less than or equal to b = %s.", a, b)
	}
	// Find an arc less than PRIME / 3, and another less than PRIME / 2.
	type arc struct {
		length *big.Int
		index  int
	}
	//
	arcs := []arc{
		{a, 0},
		{new(big.Int).Sub(b, a), 1},
		{new(big.Int).Sub(new(big.Int).Sub(prime, one), b), 2},
	}
	//
	sort.SliceStable(arcs, func(i, j int) bool {
		if c := arcs[i].length.Cmp(arcs[j].length); c != 0 {
			return c < 0
		}
		//
		return arcs[i].index < arcs[j].index
	})
	//
	third := new(big.Int).Div(prime, big.NewInt(3))
	half := new(big.Int).Div(prime, two)
	//
	if arcs[0].length.Cmp(third) > 0 || arcs[1].length.Cmp(half) > 0 {
		return assertf("arcs %s, %s are too long", arcs[0].length, arcs[1].length)
	}
	//
	ctx.Scopes.Set("excluded", arcs[2].index)
	//
	rc, err := ctx.Ids.GetRelocatable("range_check_ptr")
	if err != nil {
		return err
	}
	//
	limits := []*big.Int{
		ctx.ConstantOr("PRIME_OVER_3_HIGH", primeOver3High),
		ctx.ConstantOr("PRIME_OVER_2_HIGH", primeOver2High),
	}
	//
	for i, limit := range limits {
		q, r := new(big.Int).DivMod(arcs[i].length, limit, new(big.Int))
		//
		if err := ctx.Insert(rc.Add(uint64(2*i)), bigValue(r)); err != nil {
			return err
		} else if err := ctx.Insert(rc.Add(uint64(2*i+1)), bigValue(q)); err != nil {
			return err
		}
	}
	//
	return nil
}

func assertLeFeltExcluded(index int) Func {
	return func(ctx *Context) error {
		excluded, err := scopeValue[int](ctx.Scopes, "excluded")
		if err != nil {
			return err
		}
		//
		return ctx.InsertAP(boolValue(excluded != index))
	}
}

func assertLeFeltExcluded2(ctx *Context) error {
	excluded, err := scopeValue[int](ctx.Scopes, "excluded")
	//
	if err != nil {
		return err
	} else if excluded != 2 {
		return assertf("excluded = %d, expected 2", excluded)
	}
	//
	return nil
}

func assertLtFelt(ctx *Context) error {
	a, b, err := getPair(ctx, "a", "b")
	//
	if err != nil {
		return err
	} else if a.Cmp(b) >= 0 {
		return assertf("a = %s is not less than b = %s.", a, b)
	}
	//
	return nil
}

func assert250Bit(ctx *Context) error {
	value, err := ctx.Ids.GetBig("value")
	if err != nil {
		return err
	}
	//
	var (
		upper = ctx.ConstantOr("UPPER_BOUND", pow2(250))
		shift = ctx.ConstantOr("SHIFT", pow2(128))
	)
	//
	if value.Cmp(upper) >= 0 {
		return assertf("%s is outside of the range [0, 2**250).", value)
	}
	//
	high, low := new(big.Int).DivMod(value, shift, new(big.Int))
	//
	if err := ctx.Ids.SetBig("high", high); err != nil {
		return err
	}
	//
	return ctx.Ids.SetBig("low", low)
}

func splitFelt(ctx *Context) error {
	var (
		maxHigh, okHigh = ctx.Constant("MAX_HIGH")
		maxLow, okLow   = ctx.Constant("MAX_LOW")
	)
	// Sanity check constants (when declared)
	if okHigh && okLow {
		var (
			high  = maxHigh.BigInt()
			low   = maxLow.BigInt()
			total = new(big.Int).Add(new(big.Int).Lsh(high, 128), low)
		)
		//
		if high.BitLen() > 128 || low.BitLen() > 128 || total.Cmp(new(big.Int).Sub(prime, one)) != 0 {
			return assertf("invalid MAX_HIGH (%s) or MAX_LOW (%s)", high, low)
		}
	}
	//
	value, err := ctx.Ids.GetBig("value")
	if err != nil {
		return err
	}
	//
	if err := ctx.Ids.SetBig("low", new(big.Int).And(value, mask(128))); err != nil {
		return err
	}
	//
	return ctx.Ids.SetBig("high", new(big.Int).Rsh(value, 128))
}

func splitInt(ctx *Context) error {
	value, err := ctx.Ids.GetBig("value")
	if err != nil {
		return err
	}
	//
	base, bound, err := getPair(ctx, "base", "bound")
	if err != nil {
		return err
	} else if base.Sign() == 0 {
		return fmt.Errorf("split_int(): base is zero")
	}
	//
	res := new(big.Int).Mod(value, base)
	//
	if res.Cmp(bound) >= 0 {
		return assertf("split_int(): Limb %s is out of range.", res)
	}
	//
	output, err := ctx.Ids.GetRelocatable("output")
	if err != nil {
		return err
	}
	//
	return ctx.Insert(output, bigValue(res))
}

func splitIntAssertRange(ctx *Context) error {
	value, err := ctx.Ids.GetFelt("value")
	//
	if err != nil {
		return err
	} else if !value.IsZero() {
		return assertf("split_int(): value is out of range.")
	}
	//
	return nil
}

func isPositive(ctx *Context) error {
	value, err := ctx.Ids.GetFelt("value")
	if err != nil {
		return err
	}
	//
	val := value.Signed()
	//
	if new(big.Int).Abs(val).Cmp(ctx.RangeCheckBound()) >= 0 {
		return assertf("value=%s is out of the valid range.", val)
	}
	//
	return ctx.Ids.Set("is_positive", boolValue(val.Sign() > 0))
}

func sqrt(ctx *Context) error {
	value, err := ctx.Ids.GetBig("value")
	//
	if err != nil {
		return err
	} else if value.BitLen() > 250 {
		return assertf("value=%s is outside of the range [0, 2**250).", value)
	}
	//
	return ctx.Ids.SetBig("root", new(big.Int).Sqrt(value))
}

// Check the divisor is within (0, PRIME // range_check_bound].
func checkDivisor(ctx *Context) (*big.Int, error) {
	div, err := ctx.Ids.GetBig("div")
	if err != nil {
		return nil, err
	}
	//
	limit := new(big.Int).Div(prime, ctx.RangeCheckBound())
	//
	if div.Sign() == 0 || div.Cmp(limit) > 0 {
		return nil, assertf("div=0x%s is out of the valid range.", div.Text(16))
	}
	//
	return div, nil
}

func unsignedDivRem(ctx *Context) error {
	div, err := checkDivisor(ctx)
	if err != nil {
		return err
	}
	//
	value, err := ctx.Ids.GetBig("value")
	if err != nil {
		return err
	}
	//
	q, r := new(big.Int).DivMod(value, div, new(big.Int))
	//
	if err := ctx.Ids.SetBig("q", q); err != nil {
		return err
	}
	//
	return ctx.Ids.SetBig("r", r)
}

func signedDivRem(ctx *Context) error {
	div, err := checkDivisor(ctx)
	if err != nil {
		return err
	}
	//
	bound, err := ctx.Ids.GetBig("bound")
	if err != nil {
		return err
	} else if bound.Cmp(new(big.Int).Div(ctx.RangeCheckBound(), two)) > 0 {
		return assertf("bound=0x%s is out of the valid range.", bound.Text(16))
	}
	//
	value, err := ctx.Ids.GetFelt("value")
	if err != nil {
		return err
	}
	// Divisor is positive, hence Euclidean and floored division coincide.
	intValue := value.Signed()
	q, r := new(big.Int).DivMod(intValue, div, new(big.Int))
	//
	if q.Cmp(new(big.Int).Neg(bound)) < 0 || q.Cmp(bound) >= 0 {
		return assertf("%s / %s = %s is out of the range [-%s, %s).", intValue, div, q, bound, bound)
	}
	//
	if err := ctx.Ids.SetBig("r", r); err != nil {
		return err
	}
	//
	return ctx.Ids.SetBig("biased_q", new(big.Int).Add(q, bound))
}

// Offsets within pow's LoopLocals struct.
const (
	powBitOffset = 0
	powExpOffset = 4
)

func pow(ctx *Context) error {
	exp, err := getMemberBig(ctx, "prev_locs", "exp", powExpOffset)
	if err != nil {
		return err
	}
	//
	bit := new(big.Int).And(exp, one)
	//
	return setMemberBig(ctx, "locs", "bit", powBitOffset, bit)
}

func getFeltBitLength(ctx *Context) error {
	x, err := ctx.Ids.GetFelt("x")
	if err != nil {
		return err
	}
	//
	return ctx.Ids.Set("bit_length", memory.Uint64Value(uint64(x.BitLen())))
}

// Read two felt references as integers.
func getPair(ctx *Context, lhs, rhs string) (*big.Int, *big.Int, error) {
	a, err := ctx.Ids.GetBig(lhs)
	if err != nil {
		return nil, nil, err
	}
	//
	b, err := ctx.Ids.GetBig(rhs)
	//
	return a, b, err
}

func fromHex(str string) *big.Int {
	val, ok := new(big.Int).SetString(str, 16)
	if !ok {
		panic(fmt.Sprintf("invalid hex constant %s", str))
	}
	//
	return val
}
