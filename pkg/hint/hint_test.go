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
	"math/big"
	"testing"

	"github.com/consensys/go-cairo/pkg/program"
	"github.com/consensys/go-cairo/pkg/util/assert"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Offset of ap from fp within the test frame.
const frameSize = 20

// fixture is a machine with a program segment (0) and an execution segment
// (1), in which fp points to the start of the execution segment.
type fixture struct {
	t    *testing.T
	rt   *Runtime
	proc *Processor
	prog *program.Program
}

func newFixture(t *testing.T) *fixture {
	var (
		segments = memory.NewSegments()
		prog     = &program.Program{MainScope: program.DefaultMainScope}
		machine  = vm.New(segments, false)
	)
	//
	pc := segments.Add()
	fp := segments.Add()
	machine.Context = vm.RunContext{PC: pc, AP: fp.Add(frameSize), FP: fp}
	//
	return &fixture{t, NewRuntime(machine, prog, nil), NewProcessor(), prog}
}

// Compile a hint whose references are given as name/value pairs.  All
// references share the hint's ap tracking.
func (p *fixture) compile(code string, refs ...string) *Compiled {
	return p.compileAt(code, program.ApTracking{}, program.ApTracking{}, refs...)
}

func (p *fixture) compileAt(code string, hintAp, refAp program.ApTracking, refs ...string) *Compiled {
	var ids = make(map[string]uint)
	//
	p.prog.References = nil
	//
	for i := 0; i+1 < len(refs); i += 2 {
		ids[p.prog.MainScope+"."+refs[i]] = uint(len(p.prog.References))
		p.prog.References = append(p.prog.References, program.Reference{ApTracking: refAp, Value: refs[i+1]})
	}
	//
	p.prog.Hints = map[uint64][]program.Hint{
		0: {{Code: code, AccessibleScopes: []string{p.prog.MainScope}, ApTracking: hintAp, ReferenceIds: ids}},
	}
	//
	compiled, err := p.proc.Compile(p.prog)
	assert.NoError(p.t, err)
	//
	return compiled[0][0]
}

func (p *fixture) exec(code string, refs ...string) error {
	return p.proc.Execute(p.rt, p.compile(code, refs...))
}

// Address of the ith cell of the frame.
func (p *fixture) fp(i uint64) memory.Relocatable {
	return p.rt.VM.Context.FP.Add(i)
}

func (p *fixture) set(i uint64, val any) {
	var value memory.Value
	//
	switch v := val.(type) {
	case int:
		value = memory.FeltValue(stark252.NewInt64(int64(v)))
	case *big.Int:
		value = memory.FeltValue(stark252.FromBigInt(v))
	case memory.Relocatable:
		value = memory.PointerValue(v)
	case memory.Value:
		value = v
	default:
		p.t.Fatalf("unsupported value %T", val)
	}
	//
	assert.NoError(p.t, p.rt.VM.Segments.Memory.Insert(p.fp(i), value))
}

func (p *fixture) get(addr memory.Relocatable) *big.Int {
	felt, err := p.rt.VM.Segments.Memory.GetFelt(addr)
	assert.NoError(p.t, err)
	//
	return felt.BigInt()
}

func (p *fixture) check(i uint64, expected int64) {
	assert.Equal(p.t, big.NewInt(expected).String(), p.get(p.fp(i)).String())
}

// Reference to the ith frame cell holding a value of the given type.
func fpRef(i int, typ string) string {
	return "[cast(fp + " + big.NewInt(int64(i)).String() + ", " + typ + "*)]"
}

func felt(i int) string {
	return fpRef(i, "felt")
}

// ============================================================================
// Compilation
// ============================================================================

func Test_Compile_Unknown(t *testing.T) {
	f := newFixture(t)
	f.prog.Hints = map[uint64][]program.Hint{3: {{Code: "print('hello')"}}}
	//
	_, err := f.proc.Compile(f.prog)
	assert.ErrorIs(t, err, ErrUnknownHint)
	assert.ErrorIs(t, err, ErrHint)
}

func Test_Compile_Register(t *testing.T) {
	f := newFixture(t)
	called := false
	//
	f.proc.Register("custom()", func(ctx *Context) error {
		called = true
		return nil
	})
	//
	assert.True(t, f.proc.Supports("custom()"))
	assert.False(t, NewProcessor().Supports("custom()"))
	assert.NoError(t, f.exec("custom()"))
	assert.True(t, called)
}

func Test_Compile_InvalidReference(t *testing.T) {
	f := newFixture(t)
	f.prog.References = []program.Reference{{Value: "[fp +"}}
	f.prog.Hints = map[uint64][]program.Hint{0: {{Code: AddSegment, ReferenceIds: map[string]uint{"x": 0}}}}
	//
	_, err := f.proc.Compile(f.prog)
	assert.ErrorIs(t, err, ErrHint)
}

// ============================================================================
// Ids
// ============================================================================

func Test_Ids_Get(t *testing.T) {
	f := newFixture(t)
	f.set(0, 42)
	//
	h := f.compile(AssertNN, "a", felt(0))
	ctx := &Context{Runtime: f.rt, hint: h, Ids: Ids{f.rt, h}}
	//
	val, err := ctx.Ids.GetUint64("a")
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), val)
	//
	_, err = ctx.Ids.Get("b")
	assert.ErrorIs(t, err, ErrUnknownIdentifier)
}

func Test_Ids_ApTracking_01(t *testing.T) {
	f := newFixture(t)
	// Reference defined two allocations before the hint
	f.set(frameSize-3, 7)
	//
	h := f.compileAt(AssertNotZero, program.ApTracking{Group: 1, Offset: 2}, program.ApTracking{Group: 1},
		"value", "[cast(ap + (-1), felt*)]")
	ctx := &Context{Runtime: f.rt, hint: h, Ids: Ids{f.rt, h}}
	//
	addr, err := ctx.Ids.Address("value")
	assert.NoError(t, err)
	assert.Equal(t, f.fp(frameSize-3), addr)
	assert.NoError(t, f.proc.Execute(f.rt, h))
}

func Test_Ids_ApTracking_02(t *testing.T) {
	f := newFixture(t)
	h := f.compileAt(AssertNotZero, program.ApTracking{Group: 2}, program.ApTracking{Group: 1},
		"value", "[cast(ap + (-1), felt*)]")
	//
	assert.ErrorIs(t, f.proc.Execute(f.rt, h), ErrHint)
}

func Test_Ids_Pointer(t *testing.T) {
	f := newFixture(t)
	arr := f.rt.VM.Segments.Add()
	f.set(0, arr)
	// Members are read through the pointer
	assert.NoError(t, f.rt.VM.Segments.Memory.Insert(arr.Add(1), memory.Uint64Value(9)))
	//
	h := f.compile(AddSegment, "p", fpRef(0, "Uint256*"))
	ctx := &Context{Runtime: f.rt, hint: h, Ids: Ids{f.rt, h}}
	//
	val, err := ctx.Ids.GetMemberFelt("p", 1)
	assert.NoError(t, err)
	assert.Equal(t, "9", val.String())
}

func Test_Ids_SetTwice(t *testing.T) {
	f := newFixture(t)
	f.set(0, 16)
	assert.NoError(t, f.exec(Sqrt, "value", felt(0), "root", felt(1)))
	f.check(1, 4)
	// Memory is write once
	f.set(2, 25)
	err := f.exec(Sqrt, "value", felt(2), "root", felt(1))
	assert.ErrorIs(t, err, memory.ErrInconsistentMemory)
	assert.ErrorIs(t, err, ErrHint)
}
