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

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

var (
	one   = big.NewInt(1)
	two   = big.NewInt(2)
	prime = stark252.Modulus()
	// Field element one
	feltOne = stark252.New(1)
)

// pow2 returns 2^n.
func pow2(n uint) *big.Int {
	return new(big.Int).Lsh(one, n)
}

// mask returns 2^n - 1.
func mask(n uint) *big.Int {
	return new(big.Int).Sub(pow2(n), one)
}

// bigValue constructs the memory value holding an integer (reduced modulo the
// field).
func bigValue(val *big.Int) memory.Value {
	return memory.FeltValue(stark252.FromBigInt(val))
}

// boolValue constructs 1 for true and 0 for false.
func boolValue(b bool) memory.Value {
	if b {
		return memory.Uint64Value(1)
	}
	//
	return memory.Uint64Value(0)
}

// bigScopeValue reads an integer variable from the innermost scope.
func bigScopeValue(scopes *Scopes, name string) (*big.Int, error) {
	val, err := scopes.Get(name)
	if err != nil {
		return nil, err
	}
	//
	switch v := val.(type) {
	case *big.Int:
		return v, nil
	case stark252.Element:
		return v.BigInt(), nil
	case int:
		return big.NewInt(int64(v)), nil
	}
	//
	return nil, fmt.Errorf("%w: \"%s\" has type %T, expected integer", ErrScopeVariable, name, val)
}

// memberOffset determines the offset of a member within the struct referred to
// by a reference.  When the struct is not declared in the program, the given
// (standard library) offset is used.
func memberOffset(ctx *Context, name string, field string, offset uint64) uint64 {
	typ, err := ctx.Ids.Type(name)
	if err != nil {
		return offset
	}
	//
	if decl, ok := ctx.Program.Lookup(typ.Name); ok && decl.Type == "struct" {
		if member, ok := decl.Members[field]; ok {
			return member.Offset
		}
	}
	//
	return offset
}

// getMemberBig reads a felt member of a struct reference as a (non-negative)
// integer.
func getMemberBig(ctx *Context, name string, field string, offset uint64) (*big.Int, error) {
	felt, err := ctx.Ids.GetMemberFelt(name, memberOffset(ctx, name, field, offset))
	if err != nil {
		return nil, err
	}
	//
	return felt.BigInt(), nil
}

// setMemberBig writes a felt member of a struct reference.
func setMemberBig(ctx *Context, name string, field string, offset uint64, val *big.Int) error {
	return ctx.Ids.SetMember(name, memberOffset(ctx, name, field, offset), bigValue(val))
}
