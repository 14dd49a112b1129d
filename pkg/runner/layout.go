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
package runner

import (
	"fmt"
	"slices"
	"strings"

	"github.com/consensys/go-cairo/pkg/vm/builtin"
)

// LayoutBuiltin identifies a builtin available in a layout, alongside its
// ratio (i.e. the number of steps per builtin instance).
type LayoutBuiltin struct {
	Name  string
	Ratio uint64
}

// Layout determines which builtins are available, and how many memory cells
// can be allocated for them relative to the number of steps executed.
type Layout struct {
	Name string
	// Builtins in the order they must appear in a program
	Builtins []LayoutBuiltin
	// Memory units available per step
	MemoryUnitsPerStep uint64
	// Fraction of memory units reserved for public memory
	PublicMemoryFraction uint64
}

// Ratio returns the ratio of a given builtin within this layout, or false if
// the layout does not include it.
func (p Layout) Ratio(name string) (uint64, bool) {
	if i := p.index(name); i >= 0 {
		return p.Builtins[i].Ratio, true
	}
	//
	return 0, false
}

// Check that a sequence of builtins is an ordered subset of the builtins of
// this layout.
func (p Layout) Check(builtins []string) error {
	last := -1
	//
	for _, name := range builtins {
		i := p.index(name)
		//
		if i < 0 {
			return fmt.Errorf("%w: %s not in layout %s", ErrUnsupportedBuiltin, name, p.Name)
		} else if i <= last {
			return fmt.Errorf("%w: %s out of order for layout %s (expected %s)", ErrUnsupportedBuiltin, name,
				p.Name, strings.Join(p.names(), ", "))
		}
		//
		last = i
	}
	//
	return nil
}

func (p Layout) index(name string) int {
	return slices.IndexFunc(p.Builtins, func(b LayoutBuiltin) bool { return b.Name == name })
}

func (p Layout) names() []string {
	names := make([]string, len(p.Builtins))
	//
	for i, b := range p.Builtins {
		names[i] = b.Name
	}
	//
	return names
}

func newLayout(name string, builtins ...LayoutBuiltin) Layout {
	return Layout{name, builtins, 8, 4}
}

var (
	output     = LayoutBuiltin{builtin.OutputName, 0}
	pedersen   = func(ratio uint64) LayoutBuiltin { return LayoutBuiltin{builtin.PedersenName, ratio} }
	rangeCheck = func(ratio uint64) LayoutBuiltin { return LayoutBuiltin{builtin.RangeCheckName, ratio} }
	ecdsa      = func(ratio uint64) LayoutBuiltin { return LayoutBuiltin{builtin.SignatureName, ratio} }
	bitwise    = func(ratio uint64) LayoutBuiltin { return LayoutBuiltin{builtin.BitwiseName, ratio} }
	ecOp       = func(ratio uint64) LayoutBuiltin { return LayoutBuiltin{builtin.EcOpName, ratio} }
	keccak     = func(ratio uint64) LayoutBuiltin { return LayoutBuiltin{builtin.KeccakName, ratio} }
	poseidon   = func(ratio uint64) LayoutBuiltin { return LayoutBuiltin{builtin.PoseidonName, ratio} }
)

// Layouts recognised by the runner, indexed by name.
var Layouts = map[string]Layout{
	"plain":     newLayout("plain"),
	"small":     newLayout("small", output, pedersen(8), rangeCheck(8), ecdsa(512)),
	"dex":       newLayout("dex", output, pedersen(8), rangeCheck(8), ecdsa(512)),
	"recursive": newLayout("recursive", output, pedersen(128), rangeCheck(8), bitwise(8)),
	"starknet": newLayout("starknet", output, pedersen(32), rangeCheck(16), ecdsa(2048), bitwise(64), ecOp(1024),
		poseidon(32)),
	"all_cairo": newLayout("all_cairo", output, pedersen(256), rangeCheck(8), ecdsa(2048), bitwise(16), ecOp(1024),
		keccak(2048), poseidon(256)),
}

// GetLayout returns the layout with a given name.  The name "all" is accepted
// as an alias for all_cairo.
func GetLayout(name string) (Layout, error) {
	if name == "all" {
		name = "all_cairo"
	}
	//
	if layout, ok := Layouts[name]; ok {
		return layout, nil
	}
	//
	return Layout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
}
