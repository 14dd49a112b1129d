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

	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Names of the builtins recognised in compiled programs and layouts.
const (
	OutputName     = "output"
	PedersenName   = "pedersen"
	RangeCheckName = "range_check"
	SignatureName  = "ecdsa"
	BitwiseName    = "bitwise"
	EcOpName       = "ec_op"
	KeccakName     = "keccak"
	PoseidonName   = "poseidon"
)

// ErrInvalidStopPointer indicates that the final pointer returned for a builtin
// does not match the number of cells used within its segment.
var ErrInvalidStopPointer = errors.New("invalid stop pointer")

// Runner represents a builtin, which owns a dedicated memory segment and
// gives meaning to the cells written into it (e.g. by deducing outputs from
// inputs, or by validating the values written).
type Runner interface {
	// Name of this builtin (e.g. "range_check").
	Name() string
	// Base returns the base address of this builtin's segment.  This is only
	// valid after InitializeSegments.
	Base() memory.Relocatable
	// InitializeSegments allocates the segment(s) used by this builtin.
	InitializeSegments(segments *memory.Segments)
	// InitialStack returns the values pushed onto the initial stack for this
	// builtin (i.e. the pointer passed to main).
	InitialStack() []memory.Value
	// Deduce the value at a given address in this builtin's segment, returning
	// false if it cannot be deduced.
	Deduce(address memory.Relocatable, mem *memory.Memory) (memory.Value, bool, error)
	// AddValidationRule registers the validation rule (if any) for this
	// builtin's segment.
	AddValidationRule(mem *memory.Memory)
	// CellsPerInstance returns the number of memory cells used by a single
	// invocation of this builtin.
	CellsPerInstance() uint64
	// Ratio returns the number of steps per builtin instance permitted by the
	// layout.  A ratio of zero indicates no constraint.
	Ratio() uint64
	// UsedCells returns the number of cells used within this builtin's
	// segment.
	UsedCells(segments *memory.Segments) uint64
	// FinalStack reads (and checks) the stop pointer for this builtin, which is
	// located immediately below the given pointer.  The address of the stop
	// pointer is returned, such that builtins can be processed in reverse
	// order.
	FinalStack(segments *memory.Segments, pointer memory.Relocatable) (memory.Relocatable, error)
}

// New constructs a builtin runner for the builtin with the given name and
// layout ratio, returning false if the builtin is not supported.
func New(name string, ratio uint64) (Runner, bool) {
	switch name {
	case OutputName:
		return NewOutput(), true
	case RangeCheckName:
		return NewRangeCheck(ratio), true
	case BitwiseName:
		return NewBitwise(ratio), true
	case EcOpName:
		return NewEcOp(ratio), true
	case SignatureName:
		return NewSignature(ratio), true
	}
	//
	return nil, false
}

// Provides functionality common to all builtins.
type base struct {
	name             string
	ratio            uint64
	cellsPerInstance uint64
	segment          memory.Relocatable
}

// Name implementation for Runner interface
func (p *base) Name() string {
	return p.name
}

// Base implementation for Runner interface
func (p *base) Base() memory.Relocatable {
	return p.segment
}

// Ratio implementation for Runner interface
func (p *base) Ratio() uint64 {
	return p.ratio
}

// CellsPerInstance implementation for Runner interface
func (p *base) CellsPerInstance() uint64 {
	return p.cellsPerInstance
}

// InitializeSegments implementation for Runner interface
func (p *base) InitializeSegments(segments *memory.Segments) {
	p.segment = segments.Add()
}

// InitialStack implementation for Runner interface
func (p *base) InitialStack() []memory.Value {
	return []memory.Value{memory.PointerValue(p.segment)}
}

// Deduce implementation for Runner interface
func (p *base) Deduce(memory.Relocatable, *memory.Memory) (memory.Value, bool, error) {
	return memory.Value{}, false, nil
}

// AddValidationRule implementation for Runner interface
func (p *base) AddValidationRule(*memory.Memory) {}

// UsedCells implementation for Runner interface
func (p *base) UsedCells(segments *memory.Segments) uint64 {
	return segments.UsedSize(p.segment.Segment)
}

// FinalStack implementation for Runner interface
func (p *base) FinalStack(segments *memory.Segments, pointer memory.Relocatable) (memory.Relocatable, error) {
	addr, err := pointer.AddInt(-1)
	if err != nil {
		return pointer, fmt.Errorf("%w: %s has no stop pointer", ErrInvalidStopPointer, p.name)
	}
	//
	stop, err := segments.Memory.GetRelocatable(addr)
	if err != nil {
		return pointer, fmt.Errorf("%w for %s: %w", ErrInvalidStopPointer, p.name, err)
	} else if stop.Segment != p.segment.Segment {
		return pointer, fmt.Errorf("%w: %s stop pointer %s outside segment %d", ErrInvalidStopPointer, p.name, stop,
			p.segment.Segment)
	}
	// Round up to a whole number of instances
	used := p.UsedCells(segments)
	used = (used + p.cellsPerInstance - 1) / p.cellsPerInstance * p.cellsPerInstance
	//
	if stop.Offset != used {
		return pointer, fmt.Errorf("%w: %s stop pointer %s, expected offset %d", ErrInvalidStopPointer, p.name,
			stop, used)
	}
	//
	return addr, nil
}

// Identify the instance containing a given address, returning the address of
// its first cell alongside the index of the address within it.
func (p *base) instance(address memory.Relocatable) (memory.Relocatable, uint64) {
	index := address.Offset % p.cellsPerInstance
	//
	return memory.NewRelocatable(address.Segment, address.Offset-index), index
}
