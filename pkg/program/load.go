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
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm/memory"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// DefaultMainScope is the main scope used when a program does not specify
// one.
const DefaultMainScope = "__main__"

// DefaultEntrypoint is the entry point used when none is given.
const DefaultEntrypoint = "main"

// LoadError is returned for any failure to load a program, such as malformed
// input or an unknown entry point.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load error: %s", e.Err)
	}
	//
	return fmt.Sprintf("load error (%s): %s", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load a compiled program from a given file, resolving the given entry point
// (e.g. "main").
func Load(path string, entrypoint string) (*Program, error) {
	bytes, err := os.ReadFile(path)
	//
	if err != nil {
		return nil, &LoadError{path, errors.Wrap(err, "Load")}
	}
	//
	program, err := Parse(bytes, entrypoint)
	if err != nil {
		var lerr *LoadError
		// Attach path
		if errors.As(err, &lerr) {
			lerr.Path = path
		}
		//
		return nil, err
	}
	//
	return program, nil
}

// Parse a compiled program from its JSON encoding, resolving the given entry
// point (e.g. "main").
func Parse(bytes []byte, entrypoint string) (*Program, error) {
	var jp jsonProgram
	//
	if err := json.Unmarshal(bytes, &jp); err != nil {
		return nil, &LoadError{"", errors.Wrap(err, "Parse")}
	}
	//
	program, err := jp.build()
	if err != nil {
		return nil, &LoadError{"", err}
	}
	//
	if entrypoint == "" {
		entrypoint = DefaultEntrypoint
	}
	//
	if pc, ok := program.LabelPC(entrypoint); ok {
		program.Main = pc
	} else {
		return nil, &LoadError{"", errors.Errorf("unknown entry point \"%s\"", entrypoint)}
	}
	//
	if pc, ok := program.LabelPC(StartLabel); ok {
		program.Start = &pc
	}
	//
	if pc, ok := program.LabelPC(EndLabel); ok {
		program.End = &pc
	}
	//
	return program, nil
}

// ============================================================================
// JSON encoding (as produced by cairo-compile)
// ============================================================================

type jsonProgram struct {
	Attributes  []jsonAttribute           `json:"attributes"`
	Builtins    []string                  `json:"builtins"`
	Data        []string                  `json:"data"`
	Hints       map[string][]jsonHint     `json:"hints"`
	Identifiers map[string]jsonIdentifier `json:"identifiers"`
	MainScope   string                    `json:"main_scope"`
	Prime       string                    `json:"prime"`
	References  struct {
		References []jsonReference `json:"references"`
	} `json:"reference_manager"`
}

type jsonAttribute struct {
	Name    string `json:"name"`
	StartPC uint64 `json:"start_pc"`
	EndPC   uint64 `json:"end_pc"`
	Value   string `json:"value"`
}

type jsonHint struct {
	AccessibleScopes []string `json:"accessible_scopes"`
	Code             string   `json:"code"`
	FlowTrackingData struct {
		ApTracking   jsonApTracking  `json:"ap_tracking"`
		ReferenceIds map[string]uint `json:"reference_ids"`
	} `json:"flow_tracking_data"`
}

type jsonApTracking struct {
	Group  uint `json:"group"`
	Offset uint `json:"offset"`
}

type jsonIdentifier struct {
	Type        string                `json:"type"`
	PC          *uint64               `json:"pc"`
	Value       *big.Int              `json:"value"`
	Size        uint64                `json:"size"`
	Members     map[string]jsonMember `json:"members"`
	Destination string                `json:"destination"`
	CairoType   string                `json:"cairo_type"`
}

type jsonMember struct {
	CairoType string `json:"cairo_type"`
	Offset    uint64 `json:"offset"`
}

type jsonReference struct {
	ApTrackingData jsonApTracking `json:"ap_tracking_data"`
	PC             uint64         `json:"pc"`
	Value          string         `json:"value"`
}

func (p *jsonProgram) build() (*Program, error) {
	var program = Program{
		Builtins:    p.Builtins,
		Hints:       make(map[uint64][]Hint),
		Identifiers: make(map[string]Identifier),
		MainScope:   p.MainScope,
	}
	//
	if program.MainScope == "" {
		program.MainScope = DefaultMainScope
	}
	// Check prime (when given)
	if p.Prime != "" {
		if prime, ok := new(big.Int).SetString(p.Prime, 0); !ok || prime.Cmp(stark252.Modulus()) != 0 {
			return nil, errors.Errorf("unsupported prime %s", p.Prime)
		}
	}
	// Data
	program.Data = make([]memory.Value, len(p.Data))
	//
	for i, word := range p.Data {
		felt, err := stark252.FromString(word)
		if err != nil {
			return nil, errors.Wrapf(err, "data[%d]", i)
		}
		//
		program.Data[i] = memory.FeltValue(felt)
	}
	// Hints
	for key, hints := range p.Hints {
		pc, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "hint offset \"%s\"", key)
		} else if pc >= uint64(len(p.Data)) {
			return nil, errors.Errorf("hint offset %d out of bounds", pc)
		}
		//
		for _, h := range hints {
			program.Hints[pc] = append(program.Hints[pc], Hint{
				Code:             h.Code,
				AccessibleScopes: h.AccessibleScopes,
				ApTracking:       ApTracking(h.FlowTrackingData.ApTracking),
				ReferenceIds:     h.FlowTrackingData.ReferenceIds,
			})
		}
	}
	// Identifiers
	for name, id := range p.Identifiers {
		var members map[string]Member
		//
		if id.Members != nil {
			members = make(map[string]Member, len(id.Members))
			for field, m := range id.Members {
				members[field] = Member(m)
			}
		}
		//
		program.Identifiers[name] = Identifier{
			Type:        id.Type,
			PC:          id.PC,
			Value:       id.Value,
			Size:        id.Size,
			Members:     members,
			Destination: id.Destination,
			CairoType:   id.CairoType,
		}
	}
	// References
	for _, ref := range p.References.References {
		program.References = append(program.References, Reference{
			ApTracking: ApTracking(ref.ApTrackingData),
			PC:         ref.PC,
			Value:      ref.Value,
		})
	}
	// Error messages
	for _, attr := range p.Attributes {
		if attr.Name == "error_message" {
			program.ErrorMessages = append(program.ErrorMessages, ErrorMessage{attr.StartPC, attr.EndPC, attr.Value})
		}
	}
	//
	return &program, nil
}
