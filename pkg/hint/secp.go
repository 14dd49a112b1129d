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

	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Hints from the cairo_secp library, which implements secp256k1 arithmetic
// over integers split into three 86-bit limbs (BigInt3).
const (
	NondetBigInt3 = "from starkware.cairo.common.cairo_secp.secp_utils import split\n\n" +
		"segments.write_arg(ids.res.address_, split(value))"
	Reduce = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P, pack\n\n" +
		"value = pack(ids.x, PRIME) % SECP_P"
	VerifyZero = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P, pack\n\n" +
		"q, r = divmod(pack(ids.val, PRIME), SECP_P)\n" +
		"assert r == 0, f\"verify_zero: Invalid input {ids.val.d0, ids.val.d1, ids.val.d2}.\"\n" +
		"ids.q = q % PRIME"
	IsZeroPack = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P, pack\n\n" +
		"x = pack(ids.x, PRIME) % SECP_P"
	IsZeroNondet          = "memory[ap] = to_felt_or_relocatable(x == 0)"
	IsZeroAssignScopeVars = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P\n" +
		"from starkware.python.math_utils import div_mod\n\n" +
		"value = x_inv = div_mod(1, x, SECP_P)"
	EcNegate = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P, pack\n\n" +
		"y = pack(ids.point.y, PRIME) % SECP_P\n" +
		"# The modulo operation in python always returns a nonnegative number.\n" +
		"value = (-y) % SECP_P"
	EcDoubleSlope = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P, pack\n" +
		"from starkware.python.math_utils import ec_double_slope\n\n" +
		"# Compute the slope.\n" +
		"x = pack(ids.point.x, PRIME)\n" +
		"y = pack(ids.point.y, PRIME)\n" +
		"value = slope = ec_double_slope(point=(x, y), alpha=0, p=SECP_P)"
	EcDoubleAssignNewX = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P, pack\n\n" +
		"slope = pack(ids.slope, PRIME)\n" +
		"x = pack(ids.point.x, PRIME)\n" +
		"y = pack(ids.point.y, PRIME)\n\n" +
		"value = new_x = (pow(slope, 2, SECP_P) - 2 * x) % SECP_P"
	EcDoubleAssignNewY = "value = new_y = (slope * (x - new_x) - y) % SECP_P"
	ComputeSlope       = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P, pack\n" +
		"from starkware.python.math_utils import line_slope\n\n" +
		"# Compute the slope.\n" +
		"x0 = pack(ids.point0.x, PRIME)\n" +
		"y0 = pack(ids.point0.y, PRIME)\n" +
		"x1 = pack(ids.point1.x, PRIME)\n" +
		"y1 = pack(ids.point1.y, PRIME)\n" +
		"value = slope = line_slope(point1=(x0, y0), point2=(x1, y1), p=SECP_P)"
	FastEcAddAssignNewX = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P, pack\n\n" +
		"slope = pack(ids.slope, PRIME)\n" +
		"x0 = pack(ids.point0.x, PRIME)\n" +
		"x1 = pack(ids.point1.x, PRIME)\n" +
		"y0 = pack(ids.point0.y, PRIME)\n\n" +
		"value = new_x = (pow(slope, 2, SECP_P) - x0 - x1) % SECP_P"
	FastEcAddAssignNewY = "value = new_y = (slope * (x0 - new_x) - y0) % SECP_P"
	EcMulInner          = "memory[ap] = (ids.scalar % PRIME) % 2"
	DivModNPackedDivmod = "from starkware.cairo.common.cairo_secp.secp_utils import N, pack\n" +
		"from starkware.python.math_utils import div_mod, safe_div\n\n" +
		"a = pack(ids.a, PRIME)\n" +
		"b = pack(ids.b, PRIME)\n" +
		"value = res = div_mod(a, b, N)"
	DivModNSafeDiv = "value = k = safe_div(res * b - a, N)"
	GetPointFromX  = "from starkware.cairo.common.cairo_secp.secp_utils import SECP_P, pack\n\n" +
		"x_cube_int = pack(ids.x_cube, PRIME) % SECP_P\n" +
		"y_square_int = (x_cube_int + ids.BETA) % SECP_P\n" +
		"y = pow(y_square_int, (SECP_P + 1) // 4, SECP_P)\n\n" +
		"# We need to decide whether to take y or SECP_P - y.\n" +
		"if ids.v % 2 == y % 2:\n" +
		"    value = y\n" +
		"else:\n" +
		"    value = (-y) % SECP_P"
)

// Parameters of secp256k1 and its BigInt3 representation.
var (
	secpBase = pow2(86)
	secpP    = fromHex("fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f")
	secpN    = fromHex("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	secpBeta = big.NewInt(7)
)

// Layout of EcPoint (two BigInt3s).
const (
	bigInt3Size = 3
	ecPointX    = 0
	ecPointY    = bigInt3Size
)

func init() {
	define(nondetBigInt3, NondetBigInt3)
	define(reduce, Reduce)
	define(verifyZero, VerifyZero)
	define(isZeroPack, IsZeroPack)
	define(isZeroNondet, IsZeroNondet)
	define(isZeroAssignScopeVars, IsZeroAssignScopeVars)
	define(ecNegate, EcNegate)
	define(ecDoubleSlope, EcDoubleSlope)
	define(ecDoubleAssignNewX, EcDoubleAssignNewX)
	define(ecDoubleAssignNewY, EcDoubleAssignNewY)
	define(computeSlope, ComputeSlope)
	define(fastEcAddAssignNewX, FastEcAddAssignNewX)
	define(fastEcAddAssignNewY, FastEcAddAssignNewY)
	define(ecMulInner, EcMulInner)
	define(divModNPackedDivmod, DivModNPackedDivmod)
	define(divModNSafeDiv, DivModNSafeDiv)
	define(getPointFromX, GetPointFromX)
}

// Pack the BigInt3 at a given offset within a reference.  Limbs are
// interpreted as signed values.
func pack(ctx *Context, name string, offset uint64) (*big.Int, error) {
	addr, err := ctx.Ids.MemberAddress(name, offset)
	if err != nil {
		return nil, err
	}
	//
	limbs, err := ctx.Memory().GetFeltRange(addr, bigInt3Size)
	if err != nil {
		return nil, err
	}
	//
	var res = new(big.Int)
	//
	for i := bigInt3Size - 1; i >= 0; i-- {
		res.Mul(res, secpBase)
		res.Add(res, limbs[i].Signed())
	}
	//
	return res, nil
}

// Split a non-negative integer into three 86-bit limbs.
func split(value *big.Int) ([]any, error) {
	var (
		limbs = make([]any, bigInt3Size)
		rest  = new(big.Int).Set(value)
	)
	//
	for i := range limbs {
		var residue = new(big.Int)
		//
		rest.DivMod(rest, secpBase, residue)
		limbs[i] = bigValue(residue)
	}
	//
	if rest.Sign() != 0 {
		return nil, fmt.Errorf("%s does not fit in three limbs", value)
	}
	//
	return limbs, nil
}

// Compute x mod SECP_P (non-negative).
func modP(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, secpP)
}

// Compute a / b modulo a given prime.
func divMod(a, b, p *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(new(big.Int).Mod(b, p), p)
	if inv == nil {
		return nil, fmt.Errorf("%s is not invertible modulo %s", b, p)
	}
	//
	return new(big.Int).Mod(new(big.Int).Mul(a, inv), p), nil
}

// Set several scope variables to the same value.
func setScopeValues(ctx *Context, value *big.Int, names ...string) {
	for _, name := range names {
		ctx.Scopes.Set(name, value)
	}
}

// Read several integer scope variables.
func bigScopeValues(ctx *Context, names ...string) ([]*big.Int, error) {
	var (
		vals = make([]*big.Int, len(names))
		err  error
	)
	//
	for i, name := range names {
		if vals[i], err = bigScopeValue(ctx.Scopes, name); err != nil {
			return nil, err
		}
	}
	//
	return vals, nil
}

// Identifies a BigInt3 held at some offset within a reference.
type bigInt3Ref struct {
	name   string
	offset uint64
}

// Pack the elements of several BigInt3 references.
func packAll(ctx *Context, refs ...bigInt3Ref) ([]*big.Int, error) {
	var (
		vals = make([]*big.Int, len(refs))
		err  error
	)
	//
	for i, ref := range refs {
		if vals[i], err = pack(ctx, ref.name, ref.offset); err != nil {
			return nil, err
		}
	}
	//
	return vals, nil
}

func nondetBigInt3(ctx *Context) error {
	value, err := bigScopeValue(ctx.Scopes, "value")
	if err != nil {
		return err
	}
	//
	limbs, err := split(value)
	if err != nil {
		return err
	}
	//
	addr, err := ctx.Ids.MemberAddress("res", 0)
	if err != nil {
		return err
	}
	//
	_, err = ctx.Segments().WriteArg(addr, limbs)
	//
	return err
}

func reduce(ctx *Context) error {
	x, err := pack(ctx, "x", 0)
	if err != nil {
		return err
	}
	//
	ctx.Scopes.Set("value", modP(x))
	//
	return nil
}

func verifyZero(ctx *Context) error {
	val, err := pack(ctx, "val", 0)
	if err != nil {
		return err
	}
	//
	q, r := new(big.Int).DivMod(val, secpP, new(big.Int))
	//
	if r.Sign() != 0 {
		return assertf("verify_zero: Invalid input %s.", val)
	}
	//
	return ctx.Ids.SetBig("q", q)
}

func isZeroPack(ctx *Context) error {
	x, err := pack(ctx, "x", 0)
	if err != nil {
		return err
	}
	//
	ctx.Scopes.Set("x", modP(x))
	//
	return nil
}

func isZeroNondet(ctx *Context) error {
	x, err := bigScopeValue(ctx.Scopes, "x")
	if err != nil {
		return err
	}
	//
	return ctx.InsertAP(boolValue(x.Sign() == 0))
}

func isZeroAssignScopeVars(ctx *Context) error {
	x, err := bigScopeValue(ctx.Scopes, "x")
	if err != nil {
		return err
	}
	//
	inv, err := divMod(one, x, secpP)
	if err != nil {
		return err
	}
	//
	setScopeValues(ctx, inv, "value", "x_inv")
	//
	return nil
}

func ecNegate(ctx *Context) error {
	y, err := pack(ctx, "point", ecPointY)
	if err != nil {
		return err
	}
	//
	ctx.Scopes.Set("value", modP(new(big.Int).Neg(y)))
	//
	return nil
}

func ecDoubleSlope(ctx *Context) error {
	vals, err := packAll(ctx, bigInt3Ref{"point", ecPointX}, bigInt3Ref{"point", ecPointY})
	if err != nil {
		return err
	}
	// slope = 3x^2 / 2y
	x, y := vals[0], vals[1]
	num := new(big.Int).Mul(big.NewInt(3), new(big.Int).Mul(x, x))
	//
	slope, err := divMod(num, new(big.Int).Mul(two, y), secpP)
	if err != nil {
		return err
	}
	//
	setScopeValues(ctx, slope, "value", "slope")
	//
	return nil
}

func ecDoubleAssignNewX(ctx *Context) error {
	vals, err := packAll(ctx, bigInt3Ref{"slope", 0}, bigInt3Ref{"point", ecPointX}, bigInt3Ref{"point", ecPointY})
	if err != nil {
		return err
	}
	//
	slope, x, y := vals[0], vals[1], vals[2]
	newX := new(big.Int).Mul(slope, slope)
	newX = modP(newX.Sub(newX, new(big.Int).Mul(two, x)))
	//
	ctx.Scopes.Set("slope", slope)
	ctx.Scopes.Set("x", x)
	ctx.Scopes.Set("y", y)
	setScopeValues(ctx, newX, "value", "new_x")
	//
	return nil
}

func ecDoubleAssignNewY(ctx *Context) error {
	vals, err := bigScopeValues(ctx, "slope", "x", "new_x", "y")
	if err != nil {
		return err
	}
	//
	slope, x, newX, y := vals[0], vals[1], vals[2], vals[3]
	newY := new(big.Int).Mul(slope, new(big.Int).Sub(x, newX))
	newY = modP(newY.Sub(newY, y))
	//
	setScopeValues(ctx, newY, "value", "new_y")
	//
	return nil
}

func computeSlope(ctx *Context) error {
	vals, err := packAll(ctx, bigInt3Ref{"point0", ecPointX}, bigInt3Ref{"point0", ecPointY},
		bigInt3Ref{"point1", ecPointX}, bigInt3Ref{"point1", ecPointY})
	if err != nil {
		return err
	}
	//
	x0, y0, x1, y1 := vals[0], vals[1], vals[2], vals[3]
	//
	slope, err := divMod(new(big.Int).Sub(y0, y1), new(big.Int).Sub(x0, x1), secpP)
	if err != nil {
		return err
	}
	//
	setScopeValues(ctx, slope, "value", "slope")
	//
	return nil
}

func fastEcAddAssignNewX(ctx *Context) error {
	vals, err := packAll(ctx, bigInt3Ref{"slope", 0}, bigInt3Ref{"point0", ecPointX},
		bigInt3Ref{"point1", ecPointX}, bigInt3Ref{"point0", ecPointY})
	if err != nil {
		return err
	}
	//
	slope, x0, x1, y0 := vals[0], vals[1], vals[2], vals[3]
	newX := new(big.Int).Mul(slope, slope)
	newX = modP(newX.Sub(newX, x0).Sub(newX, x1))
	//
	ctx.Scopes.Set("slope", slope)
	ctx.Scopes.Set("x0", x0)
	ctx.Scopes.Set("x1", x1)
	ctx.Scopes.Set("y0", y0)
	setScopeValues(ctx, newX, "value", "new_x")
	//
	return nil
}

func fastEcAddAssignNewY(ctx *Context) error {
	vals, err := bigScopeValues(ctx, "slope", "x0", "new_x", "y0")
	if err != nil {
		return err
	}
	//
	slope, x0, newX, y0 := vals[0], vals[1], vals[2], vals[3]
	newY := new(big.Int).Mul(slope, new(big.Int).Sub(x0, newX))
	newY = modP(newY.Sub(newY, y0))
	//
	setScopeValues(ctx, newY, "value", "new_y")
	//
	return nil
}

func ecMulInner(ctx *Context) error {
	scalar, err := ctx.Ids.GetBig("scalar")
	if err != nil {
		return err
	}
	//
	return ctx.InsertAP(memory.Uint64Value(uint64(scalar.Bit(0))))
}

func divModNPackedDivmod(ctx *Context) error {
	vals, err := packAll(ctx, bigInt3Ref{"a", 0}, bigInt3Ref{"b", 0})
	if err != nil {
		return err
	}
	//
	a, b := vals[0], vals[1]
	//
	res, err := divMod(a, b, secpN)
	if err != nil {
		return err
	}
	//
	ctx.Scopes.Set("a", a)
	ctx.Scopes.Set("b", b)
	setScopeValues(ctx, res, "value", "res")
	//
	return nil
}

func divModNSafeDiv(ctx *Context) error {
	vals, err := bigScopeValues(ctx, "res", "a", "b")
	if err != nil {
		return err
	}
	//
	res, a, b := vals[0], vals[1], vals[2]
	num := new(big.Int).Sub(new(big.Int).Mul(res, b), a)
	//
	k, r := new(big.Int).DivMod(num, secpN, new(big.Int))
	if r.Sign() != 0 {
		return fmt.Errorf("%s is not divisible by %s", num, secpN)
	}
	//
	setScopeValues(ctx, k, "value", "k")
	//
	return nil
}

func getPointFromX(ctx *Context) error {
	xCube, err := pack(ctx, "x_cube", 0)
	if err != nil {
		return err
	}
	//
	v, err := ctx.Ids.GetBig("v")
	if err != nil {
		return err
	}
	//
	var (
		beta    = ctx.ConstantOr("BETA", secpBeta)
		ySquare = modP(new(big.Int).Add(modP(xCube), beta))
		exp     = new(big.Int).Rsh(new(big.Int).Add(secpP, one), 2)
		y       = new(big.Int).Exp(ySquare, exp, secpP)
	)
	//
	if v.Bit(0) != y.Bit(0) {
		y = modP(new(big.Int).Neg(y))
	}
	//
	ctx.Scopes.Set("value", y)
	//
	return nil
}
