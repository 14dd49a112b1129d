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

	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Hints for allocating memory, managing scopes and copying memory.
const (
	AddSegment            = "memory[ap] = segments.add()"
	EnterScope            = "vm_enter_scope()"
	ExitScope             = "vm_exit_scope()"
	MemcpyEnterScope      = "vm_enter_scope({'n': ids.len})"
	MemcpyContinueCopying = "n -= 1\nids.continue_copying = 1 if n > 0 else 0"
	MemsetEnterScope      = "vm_enter_scope({'n': ids.n})"
	MemsetContinueLoop    = "n -= 1\nids.continue_loop = 1 if n > 0 else 0"
)

func init() {
	define(addSegment, AddSegment)
	define(enterScope, EnterScope)
	define(exitScope, ExitScope)
	define(enterScopeWith("len"), MemcpyEnterScope)
	define(enterScopeWith("n"), MemsetEnterScope)
	define(continueLoop("continue_copying"), MemcpyContinueCopying)
	define(continueLoop("continue_loop"), MemsetContinueLoop)
}

// memory[ap] = segments.add()
func addSegment(ctx *Context) error {
	return ctx.InsertAP(memory.PointerValue(ctx.Segments().Add()))
}

func enterScope(ctx *Context) error {
	ctx.Scopes.Enter(nil)
	return nil
}

func exitScope(ctx *Context) error {
	return ctx.Scopes.Exit()
}

// Enter a scope in which n is initialised from a given reference.
func enterScopeWith(name string) Func {
	return func(ctx *Context) error {
		n, err := ctx.Ids.GetBig(name)
		if err != nil {
			return err
		}
		//
		ctx.Scopes.Enter(map[string]any{"n": n})
		//
		return nil
	}
}

// Decrement n and record whether the loop continues.
func continueLoop(name string) Func {
	return func(ctx *Context) error {
		n, err := bigScopeValue(ctx.Scopes, "n")
		if err != nil {
			return err
		}
		//
		n = new(big.Int).Sub(n, one)
		ctx.Scopes.Set("n", n)
		//
		if n.Sign() > 0 {
			return ctx.Ids.SetUint64(name, 1)
		}
		//
		return ctx.Ids.SetUint64(name, 0)
	}
}
