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

	"github.com/consensys/go-cairo/pkg/program"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/builtin"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Context provides a hint with access to the state of the machine.
type Context struct {
	*Runtime
	// Identifiers visible to the hint
	Ids  Ids
	hint *Compiled
}

// AP returns the current allocation pointer.
func (p *Context) AP() memory.Relocatable {
	return p.VM.Context.AP
}

// FP returns the current frame pointer.
func (p *Context) FP() memory.Relocatable {
	return p.VM.Context.FP
}

// PC returns the current program counter.
func (p *Context) PC() memory.Relocatable {
	return p.VM.Context.PC
}

// Memory returns the memory of the machine.
func (p *Context) Memory() *memory.Memory {
	return p.VM.Segments.Memory
}

// Segments returns the segment manager of the machine.
func (p *Context) Segments() *memory.Segments {
	return p.VM.Segments
}

// Insert a value into memory.
func (p *Context) Insert(addr memory.Relocatable, value memory.Value) error {
	return p.Memory().Insert(addr, value)
}

// InsertAP writes a value at the current allocation pointer.
func (p *Context) InsertAP(value memory.Value) error {
	return p.Memory().Insert(p.AP(), value)
}

// Constant returns the value of a constant visible from the hint.  Names are
// resolved against the hint's accessible scopes (innermost first), and
// finally as a fully qualified name.
func (p *Context) Constant(name string) (stark252.Element, bool) {
	if p.constants == nil {
		p.constants = p.Program.Constants()
	}
	//
	for i := len(p.hint.AccessibleScopes) - 1; i >= 0; i-- {
		if val, ok := p.constants[p.hint.AccessibleScopes[i]+"."+name]; ok {
			return val, true
		}
	}
	//
	val, ok := p.constants[name]
	//
	return val, ok
}

// ConstantOr returns the value of a constant visible from the hint, or a
// given default value if there is no such constant.
func (p *Context) ConstantOr(name string, def *big.Int) *big.Int {
	if val, ok := p.Constant(name); ok {
		return val.BigInt()
	}
	//
	return def
}

// Builtin returns the runner for a given builtin (if it is used by the
// program).
func (p *Context) Builtin(name string) (builtin.Runner, bool) {
	b, ok := p.Builtins[name]
	return b, ok
}

// RangeCheckBound returns the bound enforced by the range check builtin.
func (p *Context) RangeCheckBound() *big.Int {
	if b, ok := p.Builtins[builtin.RangeCheckName].(*builtin.RangeCheck); ok {
		return b.Bound().BigInt()
	}
	//
	return new(big.Int).Lsh(big.NewInt(1), builtin.RangeCheckBits)
}

// Ids provides access to the references visible from a hint (i.e. the "ids"
// of a hint).
type Ids struct {
	rt   *Runtime
	hint *Compiled
}

// Has determines whether a reference with the given name is visible.
func (p Ids) Has(name string) bool {
	_, ok := p.hint.References[name]
	return ok
}

// Type returns the type of a given reference.
func (p Ids) Type(name string) (program.CairoType, error) {
	ref, ok := p.hint.References[name]
	if !ok {
		return program.CairoType{}, fmt.Errorf("%w: ids.%s", ErrUnknownIdentifier, name)
	}
	//
	return ref.Type, nil
}

// Get the value of a reference.  Constants visible from the hint are also
// accessible this way.
func (p Ids) Get(name string) (memory.Value, error) {
	ref, ok := p.hint.References[name]
	if !ok {
		ctx := Context{Runtime: p.rt, hint: p.hint}
		if val, ok := ctx.Constant(name); ok {
			return memory.FeltValue(val), nil
		}
		//
		return memory.Value{}, fmt.Errorf("%w: ids.%s", ErrUnknownIdentifier, name)
	}
	//
	env, err := p.environment(name, ref)
	if err != nil {
		return memory.Value{}, err
	}
	//
	return env.eval(ref.Value)
}

// GetFelt reads the value of a reference which must be a field element.
func (p Ids) GetFelt(name string) (stark252.Element, error) {
	val, err := p.Get(name)
	//
	if err != nil {
		return stark252.Element{}, err
	} else if felt, ok := val.Felt(); ok {
		return felt, nil
	}
	//
	return stark252.Element{}, fmt.Errorf("%w: ids.%s = %s", memory.ErrExpectedFelt, name, val)
}

// GetBig reads the value of a felt reference as a (non-negative) integer.
func (p Ids) GetBig(name string) (*big.Int, error) {
	felt, err := p.GetFelt(name)
	if err != nil {
		return nil, err
	}
	//
	return felt.BigInt(), nil
}

// GetUint64 reads the value of a felt reference which must fit in 64 bits.
func (p Ids) GetUint64(name string) (uint64, error) {
	felt, err := p.GetFelt(name)
	if err != nil {
		return 0, err
	} else if n, ok := felt.Uint64(); ok {
		return n, nil
	}
	//
	return 0, fmt.Errorf("ids.%s = %s exceeds 64 bits", name, felt.String())
}

// GetRelocatable reads the value of a reference which must be a pointer.
func (p Ids) GetRelocatable(name string) (memory.Relocatable, error) {
	val, err := p.Get(name)
	//
	if err != nil {
		return memory.Relocatable{}, err
	} else if ptr, ok := val.Pointer(); ok {
		return ptr, nil
	}
	//
	return memory.Relocatable{}, fmt.Errorf("%w: ids.%s = %s", memory.ErrExpectedRelocatable, name, val)
}

// Address returns the address at which the value of a reference is held.
func (p Ids) Address(name string) (memory.Relocatable, error) {
	ref, ok := p.hint.References[name]
	if !ok {
		return memory.Relocatable{}, fmt.Errorf("%w: ids.%s", ErrUnknownIdentifier, name)
	}
	//
	expr, ok := ref.Address()
	if !ok {
		return memory.Relocatable{}, fmt.Errorf("ids.%s (%s) is not held in memory", name, ref.Value)
	}
	//
	env, err := p.environment(name, ref)
	if err != nil {
		return memory.Relocatable{}, err
	}
	//
	return env.evalPointer(expr)
}

// Set the value of a reference, by writing into the memory cell which holds
// it.
func (p Ids) Set(name string, value memory.Value) error {
	addr, err := p.Address(name)
	if err != nil {
		return err
	}
	//
	return p.rt.VM.Segments.Memory.Insert(addr, value)
}

// SetFelt sets the value of a felt reference.
func (p Ids) SetFelt(name string, value stark252.Element) error {
	return p.Set(name, memory.FeltValue(value))
}

// SetBig sets the value of a felt reference from an integer (reduced modulo
// the field).
func (p Ids) SetBig(name string, value *big.Int) error {
	return p.Set(name, memory.FeltValue(stark252.FromBigInt(value)))
}

// SetUint64 sets the value of a felt reference from a (small) integer.
func (p Ids) SetUint64(name string, value uint64) error {
	return p.Set(name, memory.Uint64Value(value))
}

// MemberAddress returns the address of the member at a given offset within
// the struct referred to by a reference.  The reference is either a struct
// (held in memory) or a pointer to a struct.
func (p Ids) MemberAddress(name string, offset uint64) (memory.Relocatable, error) {
	typ, err := p.Type(name)
	if err != nil {
		return memory.Relocatable{}, err
	}
	//
	var base memory.Relocatable
	//
	if typ.IsPointer() {
		base, err = p.GetRelocatable(name)
	} else {
		base, err = p.Address(name)
	}
	//
	return base.Add(offset), err
}

// Member returns the address of a named member within the struct referred to
// by a reference, as determined by the struct's declaration.
func (p Ids) Member(name string, field string) (memory.Relocatable, error) {
	typ, err := p.Type(name)
	if err != nil {
		return memory.Relocatable{}, err
	}
	//
	decl, ok := p.rt.Program.Lookup(typ.Name)
	if !ok || decl.Type != "struct" {
		return memory.Relocatable{}, fmt.Errorf("%w: struct %s", ErrUnknownIdentifier, typ.Name)
	}
	//
	member, ok := decl.Members[field]
	if !ok {
		return memory.Relocatable{}, fmt.Errorf("%w: ids.%s.%s", ErrUnknownIdentifier, name, field)
	}
	//
	return p.MemberAddress(name, member.Offset)
}

// GetMemberFelt reads the felt member at a given offset within a struct
// reference.
func (p Ids) GetMemberFelt(name string, offset uint64) (stark252.Element, error) {
	addr, err := p.MemberAddress(name, offset)
	if err != nil {
		return stark252.Element{}, err
	}
	//
	return p.rt.VM.Segments.Memory.GetFelt(addr)
}

// SetMember writes the member at a given offset within a struct reference.
func (p Ids) SetMember(name string, offset uint64, value memory.Value) error {
	addr, err := p.MemberAddress(name, offset)
	if err != nil {
		return err
	}
	//
	return p.rt.VM.Segments.Memory.Insert(addr, value)
}

// Determine the register values against which a reference is evaluated.  The
// value of ap is corrected by the allocations made between the definition of
// the reference and the hint.
func (p Ids) environment(name string, ref Reference) (environment, error) {
	var (
		mem = p.rt.VM.Segments.Memory
		ctx = p.rt.VM.Context
		env = environment{mem, ctx.AP, ctx.FP}
	)
	//
	if !ref.Value.UsesAP() {
		return env, nil
	} else if ref.ApTracking.Group != p.hint.ApTracking.Group {
		return env, fmt.Errorf("ids.%s: ap tracking group %d differs from hint group %d", name,
			ref.ApTracking.Group, p.hint.ApTracking.Group)
	}
	//
	delta := int64(p.hint.ApTracking.Offset) - int64(ref.ApTracking.Offset)
	//
	ap, err := ctx.AP.AddInt(-delta)
	if err != nil {
		return env, fmt.Errorf("ids.%s: %w", name, err)
	}
	//
	env.ap = ap
	//
	return env, nil
}

// Registers and memory against which reference expressions are evaluated.
type environment struct {
	mem *memory.Memory
	ap  memory.Relocatable
	fp  memory.Relocatable
}

func (p environment) eval(expr program.Expr) (memory.Value, error) {
	switch e := expr.(type) {
	case *program.Constant:
		return memory.FeltValue(stark252.FromBigInt(e.Value)), nil
	case *program.Register:
		if e.Name == "ap" {
			return memory.PointerValue(p.ap), nil
		}
		//
		return memory.PointerValue(p.fp), nil
	case *program.Cast:
		return p.eval(e.Arg)
	case *program.Deref:
		addr, err := p.evalPointer(e.Arg)
		if err != nil {
			return memory.Value{}, err
		}
		//
		return p.mem.Get(addr)
	case *program.Neg:
		val, err := p.eval(e.Arg)
		if err != nil {
			return memory.Value{}, err
		} else if felt, ok := val.Felt(); ok {
			return memory.FeltValue(felt.Neg()), nil
		}
		//
		return memory.Value{}, fmt.Errorf("%w: cannot negate %s", memory.ErrPointerArithmetic, val)
	case *program.Add:
		lhs, rhs, err := p.evalBinary(e.Lhs, e.Rhs)
		if err != nil {
			return memory.Value{}, err
		}
		//
		return lhs.Add(rhs)
	case *program.Mul:
		lhs, rhs, err := p.evalBinary(e.Lhs, e.Rhs)
		if err != nil {
			return memory.Value{}, err
		}
		//
		return lhs.Mul(rhs)
	}
	//
	return memory.Value{}, fmt.Errorf("unknown expression %s", expr)
}

func (p environment) evalBinary(lhs, rhs program.Expr) (memory.Value, memory.Value, error) {
	l, err := p.eval(lhs)
	if err != nil {
		return l, l, err
	}
	//
	r, err := p.eval(rhs)
	//
	return l, r, err
}

func (p environment) evalPointer(expr program.Expr) (memory.Relocatable, error) {
	val, err := p.eval(expr)
	//
	if err != nil {
		return memory.Relocatable{}, err
	} else if ptr, ok := val.Pointer(); ok {
		return ptr, nil
	}
	//
	return memory.Relocatable{}, fmt.Errorf("%w: %s evaluates to %s", memory.ErrExpectedRelocatable, expr, val)
}
