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
package program

import (
	"math/big"
	"sort"
	"strings"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Labels used to delimit the program in proof mode.
const (
	StartLabel = "__start__"
	EndLabel   = "__end__"
)

// Program represents a compiled Cairo program.
type Program struct {
	// Executable data (instructions and immediates)
	Data []memory.Value
	// Builtins used by the program, in the order they are passed to main.
	Builtins []string
	// Hints indexed by the pc offset at which they run.  Multiple hints at the
	// same offset run in order.
	Hints map[uint64][]Hint
	// All identifiers, indexed by their fully qualified name.
	Identifiers map[string]Identifier
	// Reference manager (indexed by reference id)
	References []Reference
	// Error messages attached to ranges of instructions.
	ErrorMessages []ErrorMessage
	// Main scope of the program (usually "__main__").
	MainScope string
	// Offset of the entry point.
	Main uint64
	// Offsets of the start and end labels (if present).
	Start *uint64
	End   *uint64
}

// Hint is a snippet of code executed before a given instruction.
type Hint struct {
	// Code of the hint (which identifies it).
	Code string
	// Scopes from which constants and references are visible.
	AccessibleScopes []string
	// Allocation pointer tracking at the point of the hint.
	ApTracking ApTracking
	// References which are visible to the hint, mapped from their fully
	// qualified name to their id in the reference manager.
	ReferenceIds map[string]uint
}

// ApTracking identifies the value of ap relative to the start of the
// enclosing tracking group.
type ApTracking struct {
	Group  uint
	Offset uint
}

// Reference describes how the value of a named variable is computed at a
// given point in the program.
type Reference struct {
	ApTracking ApTracking
	PC         uint64
	Value      string
}

// ErrorMessage associates a message with a range of instructions, such that
// failures within that range can be reported meaningfully.
type ErrorMessage struct {
	StartPC uint64
	EndPC   uint64
	Message string
}

// Identifier is a named entity in the program.   Only those fields relevant
// to its type are populated.
type Identifier struct {
	// One of "function", "label", "const", "struct", "reference", "alias",
	// "namespace", "type_definition", "member".
	Type string
	// Location of a function or label
	PC *uint64
	// Value of a const
	Value *big.Int
	// Size and members of a struct
	Size    uint64
	Members map[string]Member
	// Target of an alias
	Destination string
	// Type of a reference or member
	CairoType string
}

// Member of a struct.
type Member struct {
	CairoType string
	Offset    uint64
}

// Constants returns the value of all constant identifiers.
func (p *Program) Constants() map[string]stark252.Element {
	var constants = make(map[string]stark252.Element)
	//
	for name, id := range p.Identifiers {
		if id, ok := p.resolve(name, id); ok && id.Type == "const" && id.Value != nil {
			constants[name] = stark252.FromBigInt(id.Value)
		}
	}
	//
	return constants
}

// Lookup an identifier by its fully qualified name, following aliases as
// necessary.
func (p *Program) Lookup(name string) (Identifier, bool) {
	id, ok := p.Identifiers[name]
	if !ok {
		return id, false
	}
	//
	return p.resolve(name, id)
}

// LabelPC returns the offset of a given function or label, specified either
// relative to the main scope or fully qualified.
func (p *Program) LabelPC(name string) (uint64, bool) {
	for _, candidate := range []string{p.MainScope + "." + name, name} {
		if id, ok := p.Lookup(candidate); ok && id.PC != nil {
			return *id.PC, true
		}
	}
	//
	return 0, false
}

// ErrorMessagesAt returns the error messages attached to a given pc offset.
func (p *Program) ErrorMessagesAt(pc uint64) []string {
	var messages []string
	//
	for _, msg := range p.ErrorMessages {
		if msg.StartPC <= pc && pc < msg.EndPC {
			messages = append(messages, msg.Message)
		}
	}
	//
	return messages
}

// HintOffsets returns the (sorted) offsets at which hints are attached.
func (p *Program) HintOffsets() []uint64 {
	var offsets = make([]uint64, 0, len(p.Hints))
	//
	for pc := range p.Hints {
		offsets = append(offsets, pc)
	}
	//
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	//
	return offsets
}

// Follow aliases (avoiding cycles).
func (p *Program) resolve(name string, id Identifier) (Identifier, bool) {
	var visited = map[string]bool{name: true}
	//
	for id.Type == "alias" {
		if visited[id.Destination] {
			return id, false
		}
		//
		visited[id.Destination] = true
		//
		next, ok := p.Identifiers[id.Destination]
		if !ok {
			return id, false
		}
		//
		id = next
	}
	//
	return id, true
}

// ShortName returns the last component of a qualified name.
func ShortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	//
	return name
}
