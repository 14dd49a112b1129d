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

import "github.com/consensys/go-cairo/pkg/vm/memory"

// Output is the builtin through which a program writes its public output.  It
// imposes no constraints on the values written.
type Output struct {
	base
}

// NewOutput constructs a new output builtin.
func NewOutput() *Output {
	return &Output{base{name: OutputName, cellsPerInstance: 1}}
}

// Contents returns the values written into the output segment, in order.
// Unwritten cells are returned as unknown values.
func (p *Output) Contents(mem *memory.Memory) []memory.Value {
	var (
		n      = mem.SegmentLength(p.segment.Segment)
		values = make([]memory.Value, n)
	)
	//
	for i := uint64(0); i < n; i++ {
		values[i], _ = mem.Peek(p.segment.Add(i))
	}
	//
	return values
}
