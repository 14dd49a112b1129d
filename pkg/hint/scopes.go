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
	"maps"

	"github.com/consensys/go-cairo/pkg/util/collection/stack"
)

// Scopes is the stack of execution scopes available to hints.  The bottom
// scope is the main scope, which can never be exited.  Only the variables of
// the innermost scope are visible.
type Scopes struct {
	frames *stack.Stack[map[string]any]
	// Frames which have been exited, and are available for reuse.
	free []map[string]any
}

// NewScopes constructs a scope stack holding only the (empty) main scope.
func NewScopes() *Scopes {
	return &Scopes{frames: stack.NewStack(make(map[string]any))}
}

// Depth returns the number of scopes on the stack, including the main scope.
func (p *Scopes) Depth() uint {
	return p.frames.Len()
}

// Enter a new scope initialised with the given variables.
func (p *Scopes) Enter(vars map[string]any) {
	var frame map[string]any
	//
	if n := len(p.free); n > 0 {
		frame = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		frame = make(map[string]any, len(vars))
	}
	//
	maps.Copy(frame, vars)
	p.frames.Push(frame)
}

// Exit the innermost scope, discarding all of its variables.
func (p *Scopes) Exit() error {
	if p.frames.Len() <= 1 {
		return ErrExitMainScope
	}
	//
	frame := p.frames.Pop()
	clear(frame)
	p.free = append(p.free, frame)
	//
	return nil
}

// Get the value of a variable in the innermost scope.
func (p *Scopes) Get(name string) (any, error) {
	if val, ok := p.current()[name]; ok {
		return val, nil
	}
	//
	return nil, fmt.Errorf("%w: \"%s\" not in scope", ErrScopeVariable, name)
}

// Has determines whether a variable is defined in the innermost scope.
func (p *Scopes) Has(name string) bool {
	_, ok := p.current()[name]
	return ok
}

// Set a variable in the innermost scope.
func (p *Scopes) Set(name string, value any) {
	p.current()[name] = value
}

// Delete a variable from the innermost scope.
func (p *Scopes) Delete(name string) {
	delete(p.current(), name)
}

// Locals returns a copy of the variables of the innermost scope.
func (p *Scopes) Locals() map[string]any {
	return maps.Clone(p.current())
}

func (p *Scopes) current() map[string]any {
	return p.frames.Peek(0)
}

// scopeValue reads a variable of a given type from the innermost scope.
func scopeValue[T any](scopes *Scopes, name string) (T, error) {
	var zero T
	//
	val, err := scopes.Get(name)
	if err != nil {
		return zero, err
	} else if v, ok := val.(T); ok {
		return v, nil
	}
	//
	return zero, fmt.Errorf("%w: \"%s\" has type %T, expected %T", ErrScopeVariable, name, val, zero)
}
