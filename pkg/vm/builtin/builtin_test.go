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
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fr"
	"github.com/consensys/go-cairo/pkg/util/assert"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

func Test_Builtin_New(t *testing.T) {
	for _, name := range []string{OutputName, RangeCheckName, BitwiseName, EcOpName, SignatureName} {
		b, ok := New(name, 8)
		assert.True(t, ok, "builtin %s", name)
		assert.Equal(t, name, b.Name())
	}
	//
	for _, name := range []string{PedersenName, KeccakName, PoseidonName, "unknown"} {
		_, ok := New(name, 8)
		assert.False(t, ok, "builtin %s", name)
	}
}

func Test_Output_01(t *testing.T) {
	segs, out := setup(t, NewOutput())
	//
	assert.Equal(t, []memory.Value{memory.PointerValue(out.Base())}, out.InitialStack())
	write(t, segs, out.Base(), 1, 2, 3)
	//
	contents := out.(*Output).Contents(segs.Memory)
	assert.Equal(t, []memory.Value{memory.Uint64Value(1), memory.Uint64Value(2), memory.Uint64Value(3)}, contents)
}

func Test_RangeCheck_01(t *testing.T) {
	segs, rc := setup(t, NewRangeCheck(8))
	bound := rc.(*RangeCheck).Bound()
	//
	write(t, segs, rc.Base(), 0, 1)
	assert.NoError(t, segs.Memory.Insert(rc.Base().Add(2), memory.FeltValue(bound.Sub(stark252.New(1)))))
	//
	err := segs.Memory.Insert(rc.Base().Add(3), memory.FeltValue(bound))
	assert.ErrorIs(t, err, ErrRangeCheck)
	assert.ErrorIs(t, err, memory.ErrValidation)
	//
	err = segs.Memory.Insert(rc.Base().Add(3), memory.FeltValue(stark252.NewInt64(-1)))
	assert.ErrorIs(t, err, ErrRangeCheck)
	//
	err = segs.Memory.Insert(rc.Base().Add(3), memory.PointerValue(rc.Base()))
	assert.ErrorIs(t, err, ErrRangeCheck)
}

func Test_Bitwise_01(t *testing.T) {
	segs, bw := setup(t, NewBitwise(8))
	//
	write(t, segs, bw.Base(), 12, 10)
	//
	for i, expected := range []uint64{8, 6, 14} {
		val, ok, err := bw.Deduce(bw.Base().Add(uint64(2+i)), segs.Memory)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, memory.Uint64Value(expected), val)
	}
	// Inputs are never deduced
	_, ok, err := bw.Deduce(bw.Base(), segs.Memory)
	assert.NoError(t, err)
	assert.False(t, ok)
	// Second instance has no inputs yet
	_, ok, err = bw.Deduce(bw.Base().Add(7), segs.Memory)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func Test_Bitwise_02(t *testing.T) {
	segs, bw := setup(t, NewBitwise(8))
	large := stark252.NewInt64(-1)
	//
	assert.NoError(t, segs.Memory.Insert(bw.Base(), memory.FeltValue(large)))
	write(t, segs, bw.Base().Add(1), 1)
	//
	_, _, err := bw.Deduce(bw.Base().Add(2), segs.Memory)
	assert.ErrorIs(t, err, ErrBitwiseInput)
}

func Test_Curve_Generator(t *testing.T) {
	assert.True(t, Generator.IsOnCurve())
	assert.True(t, Generator.Neg().IsOnCurve())
	//
	pt, ok := RecoverPoint(Generator.X)
	assert.True(t, ok)
	assert.True(t, pt.Y.Equal(Generator.Y) || pt.Y.Equal(Generator.Y.Neg()))
}

func Test_EcOp_01(t *testing.T) {
	segs, ec := setup(t, NewEcOp(8))
	// r = G + 2*G
	assert.NoError(t, segs.Memory.Insert(ec.Base(), memory.FeltValue(Generator.X)))
	assert.NoError(t, segs.Memory.Insert(ec.Base().Add(1), memory.FeltValue(Generator.Y)))
	assert.NoError(t, segs.Memory.Insert(ec.Base().Add(2), memory.FeltValue(Generator.X)))
	assert.NoError(t, segs.Memory.Insert(ec.Base().Add(3), memory.FeltValue(Generator.Y)))
	write(t, segs, ec.Base().Add(4), 2)
	//
	expected, err := ScalarMul(big.NewInt(3), Generator)
	assert.NoError(t, err)
	assert.True(t, expected.IsOnCurve())
	//
	x, ok, err := ec.Deduce(ec.Base().Add(5), segs.Memory)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, memory.FeltValue(expected.X), x)
	//
	y, ok, err := ec.Deduce(ec.Base().Add(6), segs.Memory)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, memory.FeltValue(expected.Y), y)
}

func Test_EcOp_02(t *testing.T) {
	segs, ec := setup(t, NewEcOp(8))
	// p is not on the curve
	write(t, segs, ec.Base(), 1, 2)
	assert.NoError(t, segs.Memory.Insert(ec.Base().Add(2), memory.FeltValue(Generator.X)))
	assert.NoError(t, segs.Memory.Insert(ec.Base().Add(3), memory.FeltValue(Generator.Y)))
	write(t, segs, ec.Base().Add(4), 2)
	//
	_, _, err := ec.Deduce(ec.Base().Add(5), segs.Memory)
	assert.ErrorIs(t, err, ErrPointNotOnCurve)
}

func Test_Signature_01(t *testing.T) {
	segs, b := setup(t, NewSignature(8))
	sig := b.(*Signature)
	pub, msg, signature := sign(t, 123456789, 42, 987654321)
	//
	assert.True(t, Verify(pub, msg, signature))
	assert.NoError(t, sig.AddSignature(sig.Base(), signature.R, signature.S))
	assert.NoError(t, segs.Memory.Insert(sig.Base(), memory.FeltValue(pub)))
	assert.NoError(t, segs.Memory.Insert(sig.Base().Add(1), memory.FeltValue(msg)))
}

func Test_Signature_02(t *testing.T) {
	segs, b := setup(t, NewSignature(8))
	sig := b.(*Signature)
	pub, msg, signature := sign(t, 123456789, 42, 987654321)
	// Wrong message
	assert.False(t, Verify(pub, msg.Add(stark252.New(1)), signature))
	assert.NoError(t, sig.AddSignature(sig.Base(), signature.R, signature.S))
	assert.NoError(t, segs.Memory.Insert(sig.Base(), memory.FeltValue(pub)))
	//
	err := segs.Memory.Insert(sig.Base().Add(1), memory.FeltValue(msg.Add(stark252.New(1))))
	assert.ErrorIs(t, err, ErrSignature)
}

func Test_Signature_03(t *testing.T) {
	segs, sig := setup(t, NewSignature(8))
	// No signature registered
	write(t, segs, sig.Base(), 1)
	//
	err := segs.Memory.Insert(sig.Base().Add(1), memory.Uint64Value(2))
	assert.ErrorIs(t, err, ErrSignature)
}

func Test_FinalStack_01(t *testing.T) {
	segs, bw := setup(t, NewBitwise(8))
	exec := segs.Add()
	//
	write(t, segs, bw.Base(), 1, 2)
	// Stop pointer rounds up to end of first instance
	assert.NoError(t, segs.Memory.Insert(exec, memory.PointerValue(bw.Base().Add(5))))
	//
	addr, err := bw.FinalStack(segs, exec.Add(1))
	assert.NoError(t, err)
	assert.Equal(t, exec, addr)
}

func Test_FinalStack_02(t *testing.T) {
	segs, out := setup(t, NewOutput())
	exec := segs.Add()
	//
	write(t, segs, out.Base(), 1, 2)
	assert.NoError(t, segs.Memory.Insert(exec, memory.PointerValue(out.Base().Add(1))))
	//
	_, err := out.FinalStack(segs, exec.Add(1))
	assert.ErrorIs(t, err, ErrInvalidStopPointer)
	// Stop pointer is in the wrong segment
	assert.NoError(t, segs.Memory.Insert(exec.Add(1), memory.PointerValue(exec)))
	//
	_, err = out.FinalStack(segs, exec.Add(2))
	assert.ErrorIs(t, err, ErrInvalidStopPointer)
}

func setup(t *testing.T, b Runner) (*memory.Segments, Runner) {
	segs := memory.NewSegments()
	//
	b.InitializeSegments(segs)
	b.AddValidationRule(segs.Memory)
	assert.Equal(t, 0, b.Base().Segment)
	//
	return segs, b
}

func write(t *testing.T, segs *memory.Segments, addr memory.Relocatable, values ...uint64) {
	t.Helper()
	//
	for i, v := range values {
		assert.NoError(t, segs.Memory.Insert(addr.Add(uint64(i)), memory.Uint64Value(v)))
	}
}

// Sign a message with a given private key and nonce.  That is, r = x(nonce*G)
// and s = (msg + r*key) / nonce (mod n).
func sign(t *testing.T, key, msg, nonce int64) (stark252.Element, stark252.Element, EcdsaSignature) {
	pub, err := ScalarMul(big.NewInt(key), Generator)
	assert.NoError(t, err)
	//
	rp, err := ScalarMul(big.NewInt(nonce), Generator)
	assert.NoError(t, err)
	//
	var r, s, k, z, inv fr.Element
	//
	r.SetBigInt(rp.X.BigInt())
	k.SetInt64(key)
	z.SetInt64(msg)
	inv.SetInt64(nonce)
	inv.Inverse(&inv)
	s.Mul(&r, &k)
	s.Add(&s, &z)
	s.Mul(&s, &inv)
	//
	return pub.X, stark252.New(uint64(msg)), EcdsaSignature{rp.X, stark252.FromBigInt(s.BigInt(new(big.Int)))}
}
