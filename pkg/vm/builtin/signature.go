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
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fr"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// ErrSignature indicates a (public key, message) pair written into the
// signature segment without a valid signature.
var ErrSignature = errors.New("invalid signature")

// Bitwidth limit for signature components and messages.
const signatureBits = 251

// EcdsaSignature is a signature (r, s) over the STARK curve.
type EcdsaSignature struct {
	R stark252.Element
	S stark252.Element
}

// Signature is the ECDSA builtin.  Each instance occupies two cells (public
// key, message), and must be accompanied by a signature registered for the
// address of its public key.
type Signature struct {
	base
	signatures map[memory.Relocatable]EcdsaSignature
}

// NewSignature constructs a new signature builtin.
func NewSignature(ratio uint64) *Signature {
	return &Signature{
		base{name: SignatureName, ratio: ratio, cellsPerInstance: 2},
		make(map[memory.Relocatable]EcdsaSignature),
	}
}

// AddSignature registers the signature for the instance whose public key is
// located at the given address.
func (p *Signature) AddSignature(address memory.Relocatable, r, s stark252.Element) error {
	if address.Segment != p.segment.Segment {
		return fmt.Errorf("%w: %s is not in the signature segment", ErrSignature, address)
	}
	//
	p.signatures[address] = EcdsaSignature{r, s}
	//
	return nil
}

// AddValidationRule implementation for Runner interface
func (p *Signature) AddValidationRule(mem *memory.Memory) {
	mem.AddValidationRule(p.segment.Segment, func(mem *memory.Memory, addr memory.Relocatable) error {
		start, _ := p.instance(addr)
		// Validation only possible once both cells are written
		pubValue, ok1 := mem.Peek(start)
		msgValue, ok2 := mem.Peek(start.Add(1))
		//
		if !ok1 || !ok2 {
			return nil
		}
		//
		pubKey, ok1 := pubValue.Felt()
		msg, ok2 := msgValue.Felt()
		//
		if !ok1 || !ok2 {
			return fmt.Errorf("%w: expected felts at %s", ErrSignature, start)
		}
		//
		sig, ok := p.signatures[start]
		if !ok {
			return fmt.Errorf("%w: no signature for %s", ErrSignature, start)
		} else if !Verify(pubKey, msg, sig) {
			return fmt.Errorf("%w: public key %s, message %s", ErrSignature, pubKey.String(), msg.String())
		}
		//
		return nil
	})
}

// Verify an ECDSA signature for a given message against a given public key
// (identified by its x coordinate).
func Verify(pubKey stark252.Element, msg stark252.Element, sig EcdsaSignature) bool {
	var (
		order = fr.Modulus()
		r     = sig.R.BigInt()
		s     = sig.S.BigInt()
		w     fr.Element
	)
	// Range checks
	if r.Sign() == 0 || r.BitLen() > signatureBits || s.Sign() == 0 || s.Cmp(order) >= 0 ||
		msg.BitLen() > signatureBits {
		return false
	}
	// w = s^-1 (mod n)
	w.SetBigInt(s)
	w.Inverse(&w)
	//
	wInt := w.BigInt(new(big.Int))
	//
	if wInt.BitLen() > signatureBits {
		return false
	}
	//
	q, ok := RecoverPoint(pubKey)
	if !ok {
		return false
	}
	// Either y coordinate is permitted for the public key
	for _, key := range []Point{q, q.Neg()} {
		if checkSignature(msg.BigInt(), r, wInt, key, sig.R) {
			return true
		}
	}
	//
	return false
}

// Check that x(w * (z*G + r*Q)) == r.
func checkSignature(z, r, w *big.Int, key Point, expected stark252.Element) bool {
	rq, err := ScalarMul(r, key)
	if err != nil {
		return false
	}
	//
	sum, err := MulAdd(rq, z, Generator)
	if err != nil {
		return false
	}
	//
	res, err := ScalarMul(w, sum)
	//
	return err == nil && res.X.Equal(expected)
}
