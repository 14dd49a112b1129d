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
	"math/big"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
)

// ErrPointNotOnCurve indicates an input to the ec_op builtin which is not a
// point on the STARK curve.
var ErrPointNotOnCurve = errors.New("point not on curve")

// ErrPointAtInfinity indicates a curve computation whose result is the point
// at infinity, which has no affine representation.
var ErrPointAtInfinity = errors.New("point at infinity")

// Parameters of the STARK curve y^2 = x^3 + alpha*x + beta.
var (
	curveAlpha = stark252.New(1)
	curveBeta  = stark252.MustFromString("0x6f21413efbe40de150e596d72f7a8c5609ad26c15c915c1f4cdfcb99cee9e89")
	// Generator point
	Generator = Point{
		X: stark252.MustFromString("0x1ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca"),
		Y: stark252.MustFromString("0x5668060aa49730b7be4801df46ec62de53ecd11abe43a32873000c36e8dc1f"),
	}
)

// Point is an (affine) point on the STARK curve.
type Point struct {
	X stark252.Element
	Y stark252.Element
}

// IsOnCurve checks whether this point satisfies the curve equation.
func (p Point) IsOnCurve() bool {
	lhs := p.Y.Mul(p.Y)
	rhs := p.X.Mul(p.X).Mul(p.X).Add(curveAlpha.Mul(p.X)).Add(curveBeta)
	//
	return lhs.Equal(rhs)
}

// Neg returns the point (x, -y).
func (p Point) Neg() Point {
	return Point{p.X, p.Y.Neg()}
}

// RecoverPoint determines a point with the given x coordinate, returning false
// if no such point exists.
func RecoverPoint(x stark252.Element) (Point, bool) {
	ySquared := x.Mul(x).Mul(x).Add(curveAlpha.Mul(x)).Add(curveBeta)
	//
	y, ok := ySquared.Sqrt()
	//
	return Point{x, y}, ok
}

// MulAdd computes p + m*q.
func MulAdd(p Point, m *big.Int, q Point) (Point, error) {
	var (
		pj, qj = p.jacobian(), q.jacobian()
		res    starkcurve.G1Jac
	)
	//
	res.ScalarMultiplication(&qj, m)
	res.AddAssign(&pj)
	//
	return fromJacobian(&res)
}

// ScalarMul computes m*q.
func ScalarMul(m *big.Int, q Point) (Point, error) {
	var (
		qj  = q.jacobian()
		res starkcurve.G1Jac
	)
	//
	res.ScalarMultiplication(&qj, m)
	//
	return fromJacobian(&res)
}

func (p Point) jacobian() starkcurve.G1Jac {
	var (
		affine = starkcurve.G1Affine{X: p.X.Element, Y: p.Y.Element}
		res    starkcurve.G1Jac
	)
	//
	res.FromAffine(&affine)
	//
	return res
}

func fromJacobian(p *starkcurve.G1Jac) (Point, error) {
	var affine starkcurve.G1Affine
	//
	if p.Z.IsZero() {
		return Point{}, ErrPointAtInfinity
	}
	//
	affine.FromJacobian(p)
	//
	return Point{X: stark252.Element{Element: affine.X}, Y: stark252.Element{Element: affine.Y}}, nil
}
