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
package memory

import (
	"fmt"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
)

// MaxSegmentSize bounds the number of cells in any segment.  Writes at or
// beyond this offset fail with ErrOffsetOverflow.
const MaxSegmentSize = 1 << 28

// ValidationRule checks the value written at a given address of a segment.
// Rules are registered per segment (typically by builtins) and are applied on
// every write into that segment.
type ValidationRule func(mem *Memory, address Relocatable) error

// Memory is a write-once memory organised into segments.  Each cell can be
// written at most once, and rewriting a cell with the same value is permitted
// (i.e. has no effect).  Real segments have non-negative indices, whilst
// temporary segments have negative indices (-1, -2, ...).
type Memory struct {
	segments  [][]cell
	temporary [][]cell
	// Validation rules for real segments.
	rules map[int]ValidationRule
	// Relocation rules for temporary segments, indexed by -(segment+1).
	relocations map[int]Relocatable
}

// A single memory cell.
type cell struct {
	value    Value
	accessed bool
}

// NewMemory constructs an empty memory with no segments.
func NewMemory() *Memory {
	return &Memory{
		rules:       make(map[int]ValidationRule),
		relocations: make(map[int]Relocatable),
	}
}

// NumSegments returns the number of (real) segments allocated.
func (p *Memory) NumSegments() int {
	return len(p.segments)
}

// NumTemporarySegments returns the number of temporary segments allocated.
func (p *Memory) NumTemporarySegments() int {
	return len(p.temporary)
}

// Insert a value at a given address.  This fails if the cell already holds a
// different value, if the address lies in an unallocated segment, or if its
// offset is not below MaxSegmentSize.
func (p *Memory) Insert(address Relocatable, value Value) error {
	seg, err := p.segment(address)
	//
	if err != nil {
		return err
	} else if !value.IsKnown() {
		return fmt.Errorf("cannot insert unknown value at %s", address)
	} else if address.Offset >= MaxSegmentSize {
		return fmt.Errorf("%w: %s exceeds maximum segment size", ErrOffsetOverflow, address)
	}
	// Expand segment (if necessary)
	if address.Offset >= uint64(len(*seg)) {
		*seg = append(*seg, make([]cell, address.Offset+1-uint64(len(*seg)))...)
	}
	//
	c := &(*seg)[address.Offset]
	//
	if c.value.IsKnown() {
		if c.value.Equal(value) {
			return nil
		}
		//
		return fmt.Errorf("%w: at %s, existing value %s, new value %s", ErrInconsistentMemory, address,
			c.value, value)
	}
	//
	c.value = value
	// Rejected values are not retained
	if err := p.validate(address); err != nil {
		(*seg)[address.Offset].value = Value{}
		return err
	}
	//
	return nil
}

// Get the value at a given address, failing if it has not been written.
func (p *Memory) Get(address Relocatable) (Value, error) {
	if value, ok := p.Peek(address); ok {
		return value, nil
	}
	//
	return Value{}, fmt.Errorf("%w: %s", ErrUnknownMemoryCell, address)
}

// Peek at the value at a given address, returning false if it has not been
// written (or the segment does not exist).
func (p *Memory) Peek(address Relocatable) (Value, bool) {
	seg, err := p.segment(address)
	//
	if err != nil || address.Offset >= uint64(len(*seg)) {
		return Value{}, false
	}
	//
	value := (*seg)[address.Offset].value
	//
	return value, value.IsKnown()
}

// GetFelt reads a field element from a given address.
func (p *Memory) GetFelt(address Relocatable) (stark252.Element, error) {
	value, err := p.Get(address)
	//
	if err != nil {
		return stark252.Element{}, err
	} else if felt, ok := value.Felt(); ok {
		return felt, nil
	}
	//
	return stark252.Element{}, fmt.Errorf("%w: at %s", ErrExpectedFelt, address)
}

// GetRelocatable reads a pointer from a given address.
func (p *Memory) GetRelocatable(address Relocatable) (Relocatable, error) {
	value, err := p.Get(address)
	//
	if err != nil {
		return Relocatable{}, err
	} else if ptr, ok := value.Pointer(); ok {
		return ptr, nil
	}
	//
	return Relocatable{}, fmt.Errorf("%w: at %s", ErrExpectedRelocatable, address)
}

// GetRange reads n consecutive values starting from a given address.
func (p *Memory) GetRange(address Relocatable, n uint64) ([]Value, error) {
	var (
		values = make([]Value, n)
		err    error
	)
	//
	for i := uint64(0); i < n; i++ {
		if values[i], err = p.Get(address.Add(i)); err != nil {
			return nil, err
		}
	}
	//
	return values, nil
}

// GetFeltRange reads n consecutive field elements starting from a given
// address.
func (p *Memory) GetFeltRange(address Relocatable, n uint64) ([]stark252.Element, error) {
	var (
		values = make([]stark252.Element, n)
		err    error
	)
	//
	for i := uint64(0); i < n; i++ {
		if values[i], err = p.GetFelt(address.Add(i)); err != nil {
			return nil, err
		}
	}
	//
	return values, nil
}

// MarkAccessed records that the cell at a given address was accessed by an
// executing instruction.
func (p *Memory) MarkAccessed(address Relocatable) {
	if seg, err := p.segment(address); err == nil && address.Offset < uint64(len(*seg)) {
		(*seg)[address.Offset].accessed = true
	}
}

// NumAccessed returns the number of accessed cells in a given (real) segment.
func (p *Memory) NumAccessed(segment int) uint64 {
	var count uint64
	//
	for _, c := range p.segments[segment] {
		if c.accessed {
			count++
		}
	}
	//
	return count
}

// SegmentLength returns the number of cells (including holes) currently held
// in a given real segment.  That is, one more than the highest written offset.
func (p *Memory) SegmentLength(segment int) uint64 {
	return uint64(len(p.segments[segment]))
}

// AddValidationRule registers a validation rule for a given segment.
func (p *Memory) AddValidationRule(segment int, rule ValidationRule) {
	p.rules[segment] = rule
}

// ValidateExisting applies all validation rules to every value already written
// into their respective segments.
func (p *Memory) ValidateExisting() error {
	for i, seg := range p.segments {
		if _, ok := p.rules[i]; !ok {
			continue
		}
		//
		for j, c := range seg {
			if c.value.IsKnown() {
				if err := p.validate(NewRelocatable(i, uint64(j))); err != nil {
					return err
				}
			}
		}
	}
	//
	return nil
}

func (p *Memory) validate(address Relocatable) error {
	if rule, ok := p.rules[address.Segment]; ok && !address.IsTemporary() {
		if err := rule(p, address); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	//
	return nil
}

// AddRelocationRule declares that a given temporary segment (identified by its
// base address) will be relocated to a given address.
func (p *Memory) AddRelocationRule(src Relocatable, dst Relocatable) error {
	if !src.IsTemporary() || src.Offset != 0 {
		return fmt.Errorf("%w: %s is not the base of a temporary segment", ErrTemporarySegment, src)
	}
	//
	index := -(src.Segment + 1)
	//
	if _, ok := p.relocations[index]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRelocation, src)
	}
	//
	p.relocations[index] = dst
	//
	return nil
}

// RelocateTemporary applies all relocation rules, moving the contents of every
// relocated temporary segment into its destination and rewriting all pointers
// into relocated temporary segments.  Temporary segments without relocation
// rules are left untouched.
func (p *Memory) RelocateTemporary() error {
	if len(p.relocations) == 0 {
		return nil
	}
	// Rewrite pointers
	for _, segs := range [][][]cell{p.segments, p.temporary} {
		for _, seg := range segs {
			for j := range seg {
				seg[j].value = p.relocateValue(seg[j].value)
			}
		}
	}
	// Move temporary cells
	for index, dst := range p.relocations {
		for j, c := range p.temporary[index] {
			if c.value.IsKnown() {
				if err := p.Insert(p.relocateAddress(dst, uint64(j)), c.value); err != nil {
					return err
				}
			}
		}
		//
		p.temporary[index] = nil
	}
	//
	clear(p.relocations)
	//
	return nil
}

func (p *Memory) relocateValue(value Value) Value {
	if ptr, ok := value.Pointer(); ok && ptr.IsTemporary() {
		if dst, ok := p.relocations[-(ptr.Segment + 1)]; ok {
			return PointerValue(p.relocateAddress(dst, ptr.Offset))
		}
	}
	//
	return value
}

func (p *Memory) relocateAddress(dst Relocatable, offset uint64) Relocatable {
	// Relocation chains are permitted (i.e. a temporary segment relocated into
	// another temporary segment).
	if dst.IsTemporary() {
		if next, ok := p.relocations[-(dst.Segment + 1)]; ok {
			return p.relocateAddress(next, dst.Offset+offset)
		}
	}
	//
	return dst.Add(offset)
}

func (p *Memory) segment(address Relocatable) (*[]cell, error) {
	if address.IsTemporary() {
		index := -(address.Segment + 1)
		//
		if index < len(p.temporary) {
			return &p.temporary[index], nil
		}
	} else if address.Segment < len(p.segments) {
		return &p.segments[address.Segment], nil
	}
	//
	return nil, fmt.Errorf("%w: %d", ErrUnallocatedSegment, address.Segment)
}

func (p *Memory) addSegment() int {
	p.segments = append(p.segments, nil)
	//
	return len(p.segments) - 1
}

func (p *Memory) addTemporarySegment() int {
	p.temporary = append(p.temporary, nil)
	//
	return -len(p.temporary)
}
