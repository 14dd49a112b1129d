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
	"errors"
	"fmt"
	"maps"

	"github.com/consensys/go-cairo/pkg/program"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm"
	"github.com/consensys/go-cairo/pkg/vm/builtin"
)

// Func implements a hint.  Hints are identified by their (exact) code.
type Func func(ctx *Context) error

// Compiled is a hint which has been resolved against the processor's registry
// and whose references have been parsed, such that it is ready to execute.
type Compiled struct {
	// Code identifying the hint
	Code string
	// Implementation
	Func Func
	// Scopes from which constants are visible (innermost last)
	AccessibleScopes []string
	// Allocation pointer tracking at the hint
	ApTracking program.ApTracking
	// References visible to the hint, indexed by their short name.
	References map[string]Reference
}

// Reference is a parsed reference visible from a hint.
type Reference struct {
	program.ParsedReference
	// Allocation pointer tracking at the point the reference was defined.
	ApTracking program.ApTracking
}

// Runtime holds the per-run state which hints can access.  A runtime is owned
// by exactly one runner.
type Runtime struct {
	// Machine being executed
	VM *vm.VirtualMachine
	// Execution scopes
	Scopes *Scopes
	// Program being executed
	Program *program.Program
	// Builtins of the program, indexed by name
	Builtins map[string]builtin.Runner
	// Constants of the program, computed on demand.
	constants map[string]stark252.Element
}

// NewRuntime constructs a runtime with a fresh scope stack.
func NewRuntime(machine *vm.VirtualMachine, prog *program.Program, builtins []builtin.Runner) *Runtime {
	var byName = make(map[string]builtin.Runner)
	//
	for _, b := range builtins {
		byName[b.Name()] = b
	}
	//
	return &Runtime{VM: machine, Scopes: NewScopes(), Program: prog, Builtins: byName}
}

// Processor maps hint code to its implementation.
type Processor struct {
	registry map[string]Func
}

// NewProcessor constructs a processor holding the builtin hint library.
func NewProcessor() *Processor {
	return &Processor{maps.Clone(library)}
}

// Register a (custom) hint, overriding any existing hint with the same code.
func (p *Processor) Register(code string, fn Func) {
	p.registry[code] = fn
}

// Supports determines whether a hint with the given code is registered.
func (p *Processor) Supports(code string) bool {
	_, ok := p.registry[code]
	return ok
}

// Compile all hints of a given program, indexed by pc offset.
func (p *Processor) Compile(prog *program.Program) (map[uint64][]*Compiled, error) {
	var compiled = make(map[uint64][]*Compiled, len(prog.Hints))
	//
	for _, pc := range prog.HintOffsets() {
		for _, h := range prog.Hints[pc] {
			c, err := p.compile(prog, h)
			if err != nil {
				return nil, fmt.Errorf("hint at pc %d: %w", pc, err)
			}
			//
			compiled[pc] = append(compiled[pc], c)
		}
	}
	//
	return compiled, nil
}

func (p *Processor) compile(prog *program.Program, h program.Hint) (*Compiled, error) {
	fn, ok := p.registry[h.Code]
	if !ok {
		return nil, &Error{Code: h.Code, Message: "unknown hint", Err: ErrUnknownHint}
	}
	//
	var refs = make(map[string]Reference, len(h.ReferenceIds))
	//
	for name, id := range h.ReferenceIds {
		if id >= uint(len(prog.References)) {
			return nil, &Error{Code: h.Code, Message: fmt.Sprintf("invalid reference id %d for %s", id, name)}
		}
		//
		ref := prog.References[id]
		//
		parsed, err := program.ParseReference(ref.Value)
		if err != nil {
			return nil, &Error{Code: h.Code, Message: err.Error(), Err: err}
		}
		// Declared type takes precedence
		if ident, ok := prog.Lookup(name); ok && ident.CairoType != "" {
			parsed.Type = program.ParseType(ident.CairoType)
		}
		//
		refs[program.ShortName(name)] = Reference{parsed, ref.ApTracking}
	}
	//
	return &Compiled{h.Code, fn, h.AccessibleScopes, h.ApTracking, refs}, nil
}

// Execute a compiled hint.  Any failure is reported as an *Error.
func (p *Processor) Execute(rt *Runtime, hint *Compiled) error {
	ctx := &Context{Runtime: rt, hint: hint, Ids: Ids{rt, hint}}
	//
	if err := hint.Func(ctx); err != nil {
		var herr *Error
		//
		if errors.As(err, &herr) {
			return err
		}
		//
		return &Error{Code: hint.Code, Message: err.Error(), Err: err}
	}
	//
	return nil
}

// The builtin hint library.
var library = make(map[string]Func)

// Register a hint with the builtin library.  This is only used during package
// initialisation.
func define(fn Func, codes ...string) {
	for _, code := range codes {
		if _, ok := library[code]; ok {
			panic(fmt.Sprintf("duplicate hint %q", code))
		}
		//
		library[code] = fn
	}
}
