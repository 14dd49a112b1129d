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
package test

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/consensys/go-cairo/pkg/hint"
	"github.com/consensys/go-cairo/pkg/program"
	"github.com/consensys/go-cairo/pkg/runner"
	"github.com/consensys/go-cairo/pkg/util/assert"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// TestDir determines the (relative) location of the test directory.  That is
// where the compiled programs are found.
const TestDir = "../../testdata"

// ===================================================================
// assert_not_zero
// ===================================================================

func Test_Cairo_AssertNotZero_01(t *testing.T) {
	checkCairo(t, "assert_not_zero", withWitness(1, 3))
}

func Test_Cairo_AssertNotZero_02(t *testing.T) {
	checkCairo(t, "assert_not_zero", withWitness(1, -1))
}

func Test_Cairo_AssertNotZero_Zero(t *testing.T) {
	checkCairoFails(t, "assert_not_zero", vm.ErrAssertionFailed, withWitness(1, 0))
}

func Test_Cairo_AssertNotZero_Message(t *testing.T) {
	_, err := runCairo(t, "assert_not_zero", runner.DefaultConfig(), withWitness(1, 0))
	assert.ErrorIs(t, err, vm.ErrAssertionFailed)
	assert.True(t, strings.HasPrefix(err.Error(), "value must be non-zero: "), "error %s", err)
}

func Test_Cairo_AssertNotZeroHint_01(t *testing.T) {
	checkCairo(t, "assert_not_zero_hint", withWitness(1, 5))
}

func Test_Cairo_AssertNotZeroHint_Zero(t *testing.T) {
	// The hint rejects the witness before the instruction does
	checkCairoFails(t, "assert_not_zero_hint", hint.ErrHint, withWitness(1, 0))
}

// ===================================================================
// sqrt
// ===================================================================

func Test_Cairo_Sqrt_01(t *testing.T) {
	res := checkCairo(t, "sqrt")
	// The root is returned at the top of the execution segment
	assert.Equal(t, "4", res.Memory[res.Registers.AP-1].String())
}

func Test_Cairo_Sqrt_02(t *testing.T) {
	res := checkCairo(t, "sqrt", withWitness(1, 1<<40))
	assert.Equal(t, "1048576", res.Memory[res.Registers.AP-1].String())
}

func Test_Cairo_Sqrt_WrongWitness(t *testing.T) {
	prog := loadCairo(t, "sqrt")
	//
	r, err := runner.New(prog, runner.DefaultConfig())
	assert.NoError(t, err)
	// Off by one
	r.Processor().Register(hint.Sqrt, func(ctx *hint.Context) error {
		return ctx.Ids.SetBig("root", big.NewInt(5))
	})
	//
	assert.NoError(t, r.Initialize())
	//
	_, err = r.Run()
	assert.ErrorIs(t, err, vm.ErrAssertionFailed)
}

func Test_Cairo_Sqrt_NotSquare(t *testing.T) {
	// isqrt(17) = 4, but 4 * 4 != 17
	checkCairoFails(t, "sqrt", vm.ErrAssertionFailed, withWitness(1, 17))
}

// ===================================================================
// memset
// ===================================================================

func Test_Cairo_Memset_01(t *testing.T) {
	r, res := runCairoWith(t, "memset")
	// The allocated segment is relocated last
	segs := r.Segments()
	alloc := segs.NumSegments() - 1
	base := segs.RelocationTable()[alloc]
	assert.Equal(t, uint64(3), segs.UsedSize(alloc))
	//
	for i := base; i < base+3; i++ {
		assert.Equal(t, "7", res.Memory[i].String())
	}
	// The final pointer is one past the end of the segment
	assert.Equal(t, int(base+4), len(res.Memory))
	assert.True(t, res.Memory[base+3] == nil)
}

func Test_Cairo_Memset_Empty(t *testing.T) {
	r, res := runCairoWith(t, "memset", withWitness(5, 0))
	// Nothing written to the allocated segment
	segs := r.Segments()
	alloc := segs.NumSegments() - 1
	base := segs.RelocationTable()[alloc]
	assert.Equal(t, uint64(0), segs.UsedSize(alloc))
	assert.Equal(t, int(base+1), len(res.Memory))
	assert.True(t, res.Memory[base] == nil)
}

func Test_Cairo_Memset_ScopeIsolation(t *testing.T) {
	const check = "assert 'n' not in locals()"
	//
	prog := loadCairo(t, "memset")
	// Runs in main after memset has returned
	prog.Hints[8] = []program.Hint{{Code: check, AccessibleScopes: []string{prog.MainScope}}}
	//
	r, err := runner.New(prog, runner.DefaultConfig())
	assert.NoError(t, err)
	//
	r.Processor().Register(check, func(ctx *hint.Context) error {
		if ctx.Scopes.Has("n") {
			return errors.New("n leaked into main scope")
		}
		//
		return nil
	})
	//
	assert.NoError(t, r.Initialize())
	//
	_, err = r.Run()
	assert.NoError(t, err)
}

// ===================================================================
// Halting
// ===================================================================

func Test_Cairo_NoHalt_01(t *testing.T) {
	checkCairoFails(t, "no_halt", memory.ErrUnknownMemoryCell)
}

func Test_Cairo_NoHalt_02(t *testing.T) {
	_, err := runCairo(t, "no_halt", runner.Config{Layout: "plain", MaxSteps: 1})
	assert.ErrorIs(t, err, runner.ErrStepLimitExceeded)
}

// ===================================================================
// Determinism
// ===================================================================

func Test_Cairo_Determinism(t *testing.T) {
	for _, name := range []string{"assert_not_zero", "assert_not_zero_hint", "sqrt", "memset"} {
		for _, proofMode := range []bool{false, true} {
			config := runner.Config{Layout: "plain", Trace: true, ProofMode: proofMode}
			//
			first, err := runCairo(t, name, config)
			assert.NoError(t, err, "program %s", name)
			//
			second, err := runCairo(t, name, config)
			assert.NoError(t, err, "program %s", name)
			//
			assert.Equal(t, first, second, "program %s (proof mode %t)", name, proofMode)
		}
	}
}

func Test_Cairo_ProofMode(t *testing.T) {
	res, err := runCairo(t, "sqrt", runner.Config{Layout: "plain", Trace: true, ProofMode: true})
	assert.NoError(t, err)
	// Trace padded to a power of two
	assert.Equal(t, 0, int(res.Steps&(res.Steps-1)))
	assert.Equal(t, int(res.Steps), len(res.Trace))
}

// ===================================================================
// Test Helpers
// ===================================================================

// Modify a program before it is executed.
type modifier func(*program.Program)

// Overwrite the immediate at a given offset of the program.
func withWitness(offset uint64, witness int64) modifier {
	return func(p *program.Program) {
		p.Data[offset] = memory.FeltValue(stark252.NewInt64(witness))
	}
}

func loadCairo(t *testing.T, name string) *program.Program {
	t.Helper()
	//
	prog, err := program.Load(TestDir+"/cairo/"+name+".json", program.DefaultEntrypoint)
	if err != nil {
		t.Fatalf("loading %s: %s", name, err)
	}
	//
	return prog
}

func runCairo(t *testing.T, name string, config runner.Config, mods ...modifier) (*runner.ExecutionResult, error) {
	prog := loadCairo(t, name)
	//
	for _, mod := range mods {
		mod(prog)
	}
	//
	return runner.Run(prog, config)
}

// Run a program to completion under the plain layout, returning the runner
// alongside its result.
func runCairoWith(t *testing.T, name string, mods ...modifier) (*runner.CairoRunner, *runner.ExecutionResult) {
	t.Helper()
	//
	prog := loadCairo(t, name)
	//
	for _, mod := range mods {
		mod(prog)
	}
	//
	r, err := runner.New(prog, runner.Config{Layout: "plain"})
	assert.NoError(t, err)
	assert.NoError(t, r.Initialize())
	//
	res, err := r.Run()
	assert.NoError(t, err)
	//
	if res == nil {
		t.FailNow()
	}
	//
	return r, res
}

func checkCairo(t *testing.T, name string, mods ...modifier) *runner.ExecutionResult {
	t.Helper()
	//
	res, err := runCairo(t, name, runner.Config{Layout: "plain", Trace: true}, mods...)
	assert.NoError(t, err, "program %s", name)
	//
	if res == nil {
		t.FailNow()
	}
	// Every step executed from within the program segment
	for i, e := range res.Trace {
		assert.True(t, e.PC >= 1 && e.PC < 1+uint64(len(loadCairo(t, name).Data)), "step %d: pc %d", i, e.PC)
	}
	//
	return res
}

func checkCairoFails(t *testing.T, name string, expected error, mods ...modifier) {
	t.Helper()
	//
	res, err := runCairo(t, name, runner.DefaultConfig(), mods...)
	assert.ErrorIs(t, err, expected, "program %s", name)
	assert.True(t, res == nil, "program %s returned a result", name)
}
