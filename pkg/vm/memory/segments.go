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
	"slices"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
)

// RelocatedMemory is the flat memory obtained after relocation.  Index 0 is
// never populated, and unwritten cells (holes) are nil.
type RelocatedMemory []*stark252.Element

// RelocationTable maps each real segment to its base address in the flat
// memory.
type RelocationTable []uint64

// Segments manages the allocation of memory segments, and is responsible for
// finalising their sizes and relocating them into a flat address space once
// execution is complete.
type Segments struct {
	// Underlying memory
	Memory *Memory
	// Explicitly declared sizes (e.g. for builtin segments)
	finalSizes map[int]uint64
}

// NewSegments constructs an empty segment manager.
func NewSegments() *Segments {
	return &Segments{
		Memory:     NewMemory(),
		finalSizes: make(map[int]uint64),
	}
}

// Add allocates a new (real) segment, returning its base address.
func (p *Segments) Add() Relocatable {
	return NewRelocatable(p.Memory.addSegment(), 0)
}

// AddTemporary allocates a new temporary segment, returning its base address.
// Temporary segments must be relocated into real segments (via relocation
// rules) before the end of execution.
func (p *Segments) AddTemporary() Relocatable {
	return NewRelocatable(p.Memory.addTemporarySegment(), 0)
}

// NumSegments returns the number of real segments allocated so far.
func (p *Segments) NumSegments() int {
	return p.Memory.NumSegments()
}

// LoadData writes a sequence of values into memory starting from a given
// address, returning the address immediately following the last value.
func (p *Segments) LoadData(base Relocatable, values []Value) (Relocatable, error) {
	for i, v := range values {
		if err := p.Memory.Insert(base.Add(uint64(i)), v); err != nil {
			return base, err
		}
	}
	//
	return base.Add(uint64(len(values))), nil
}

// WriteArg writes a collection of arguments into memory from a given address.
// Arguments are either values, felts, relocatables or nested slices thereof
// (which are written into freshly allocated segments).
func (p *Segments) WriteArg(base Relocatable, args []any) (Relocatable, error) {
	values := make([]Value, len(args))
	//
	for i, arg := range args {
		switch a := arg.(type) {
		case Value:
			values[i] = a
		case Relocatable:
			values[i] = PointerValue(a)
		case stark252.Element:
			values[i] = FeltValue(a)
		case uint64:
			values[i] = Uint64Value(a)
		case int:
			values[i] = FeltValue(stark252.NewInt64(int64(a)))
		case []any:
			seg := p.Add()
			//
			if _, err := p.WriteArg(seg, a); err != nil {
				return base, err
			}
			//
			values[i] = PointerValue(seg)
		default:
			return base, fmt.Errorf("unsupported argument type %T", arg)
		}
	}
	//
	return p.LoadData(base, values)
}

// Finalize explicitly sets the size of a given segment, overriding its
// effective size.
func (p *Segments) Finalize(segment int, size uint64) {
	p.finalSizes[segment] = size
}

// ComputeEffectiveSizes determines the size of each segment as one more than
// its highest written offset.
func (p *Segments) ComputeEffectiveSizes() []uint64 {
	sizes := make([]uint64, p.NumSegments())
	//
	for i := range sizes {
		sizes[i] = p.Memory.SegmentLength(i)
	}
	//
	return sizes
}

// SegmentSize returns the final size of a given segment.  This is its
// explicitly declared size (if any), otherwise its effective size.
func (p *Segments) SegmentSize(segment int) uint64 {
	if size, ok := p.finalSizes[segment]; ok {
		return size
	}
	//
	return p.Memory.SegmentLength(segment)
}

// UsedSize returns the effective size of a segment, ignoring any explicitly
// declared size.
func (p *Segments) UsedSize(segment int) uint64 {
	return p.Memory.SegmentLength(segment)
}

// RelocationTable computes the base address of each segment in the flat
// memory.  The first segment starts at address 1, and subsequent segments
// follow in creation order.
func (p *Segments) RelocationTable() RelocationTable {
	var (
		n     = p.NumSegments()
		table = make(RelocationTable, n)
		addr  = uint64(1)
	)
	//
	for i := 0; i < n; i++ {
		table[i] = addr
		addr += p.SegmentSize(i)
	}
	//
	return table
}

// Relocate flattens memory according to the relocation table, such that
// every pointer is replaced with its relocated address.  Memory must not
// contain any values in (or pointers into) temporary segments.  The flat
// memory is sized such that every relocated pointer (including those to empty
// segments, or one past the end of a segment) is a valid index.
func (p *Segments) Relocate() (RelocationTable, RelocatedMemory, error) {
	var (
		table = p.RelocationTable()
		size  = uint64(1)
		// One past the highest pointer target
		limit = uint64(0)
	)
	//
	if n := len(table); n > 0 {
		size = table[n-1] + p.SegmentSize(n-1)
	}
	//
	flat := make(RelocatedMemory, size)
	//
	for i, n := 0, p.NumSegments(); i < n; i++ {
		declared := p.SegmentSize(i)
		//
		for j, c := range p.Memory.segments[i] {
			if !c.value.IsKnown() {
				continue
			} else if uint64(j) >= declared {
				return nil, nil, fmt.Errorf("%w: %d:%d beyond declared segment size", ErrOffsetOverflow, i, j)
			}
			//
			val, err := table.RelocateValue(c.value)
			if err != nil {
				return nil, nil, err
			}
			//
			if ptr, ok := c.value.Pointer(); ok {
				target, _ := table.RelocateAddress(ptr)
				limit = max(limit, target+1)
			}
			//
			flat[table[i]+uint64(j)] = &val
		}
	}
	// Pad with holes
	if limit > uint64(len(flat)) {
		flat = append(flat, make(RelocatedMemory, limit-uint64(len(flat)))...)
	}
	//
	return table, flat, nil
}

// MemoryHoles counts the cells of each segment which were never accessed.
// Excluded segments (e.g. builtin segments, whose cells are accounted for
// separately) are skipped, as are segments with no accessed cells at all.
func (p *Segments) MemoryHoles(excluded ...int) uint64 {
	var holes uint64
	//
	for i, n := 0, p.NumSegments(); i < n; i++ {
		accessed := p.Memory.NumAccessed(i)
		//
		if accessed == 0 || slices.Contains(excluded, i) {
			continue
		}
		//
		if size := p.SegmentSize(i); size > accessed {
			holes += size - accessed
		}
	}
	//
	return holes
}

// RelocateAddress maps a relocatable address into the flat memory.
func (p RelocationTable) RelocateAddress(addr Relocatable) (uint64, error) {
	if addr.IsTemporary() {
		return 0, fmt.Errorf("%w: %s", ErrTemporarySegment, addr)
	} else if addr.Segment >= len(p) {
		return 0, fmt.Errorf("%w: %d", ErrUnallocatedSegment, addr.Segment)
	}
	//
	return p[addr.Segment] + addr.Offset, nil
}

// RelocateValue maps a value into the flat memory, such that pointers are
// replaced by their relocated addresses.
func (p RelocationTable) RelocateValue(val Value) (stark252.Element, error) {
	if felt, ok := val.Felt(); ok {
		return felt, nil
	} else if ptr, ok := val.Pointer(); ok {
		addr, err := p.RelocateAddress(ptr)
		//
		return stark252.New(addr), err
	}
	//
	return stark252.Element{}, fmt.Errorf("%w: cannot relocate unknown value", ErrUnknownMemoryCell)
}
