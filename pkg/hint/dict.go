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

	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Hints from the dict library.
const (
	DictNew = "if '__dict_manager' not in globals():\n" +
		"    from starkware.cairo.common.dict import DictManager\n" +
		"    __dict_manager = DictManager()\n\n" +
		"memory[ap] = __dict_manager.new_dict(segments, initial_dict)\n" +
		"del initial_dict"
	DefaultDictNew = "if '__dict_manager' not in globals():\n" +
		"    from starkware.cairo.common.dict import DictManager\n" +
		"    __dict_manager = DictManager()\n\n" +
		"memory[ap] = __dict_manager.new_default_dict(segments, ids.default_value)"
	DictRead = "dict_tracker = __dict_manager.get_tracker(ids.dict_ptr)\n" +
		"dict_tracker.current_ptr += ids.DictAccess.SIZE\n" +
		"ids.value = dict_tracker.data[ids.key]"
	DictWrite = "dict_tracker = __dict_manager.get_tracker(ids.dict_ptr)\n" +
		"dict_tracker.current_ptr += ids.DictAccess.SIZE\n" +
		"ids.dict_ptr.prev_value = dict_tracker.data[ids.key]\n" +
		"dict_tracker.data[ids.key] = ids.new_value"
	DictUpdate = "# Verify dict pointer and prev value.\n" +
		"dict_tracker = __dict_manager.get_tracker(ids.dict_ptr)\n" +
		"current_value = dict_tracker.data[ids.key]\n" +
		"assert current_value == ids.prev_value, \\\n" +
		"    f'Wrong prev_value given. Expected {current_value}, got {ids.prev_value}.'\n\n" +
		"# Update value.\n" +
		"dict_tracker.data[ids.key] = ids.new_value\n" +
		"dict_tracker.current_ptr += ids.DictAccess.SIZE"
)

// Scope variables used by the dict hints.
const (
	dictManagerVar = "__dict_manager"
	initialDictVar = "initial_dict"
)

// Layout of starkware.cairo.common.dict_access.DictAccess
const (
	dictAccessSize      = 3
	dictPrevValueOffset = 1
)

// ErrDict indicates a failure in the dict manager.
var ErrDict = errors.New("dict error")

func init() {
	define(dictNew, DictNew)
	define(defaultDictNew, DefaultDictNew)
	define(dictRead, DictRead)
	define(dictWrite, DictWrite)
	define(dictUpdate, DictUpdate)
}

// DictManager tracks the dictionaries allocated by a program, each of which
// lives in its own segment.
type DictManager struct {
	trackers map[int]*DictTracker
}

// DictTracker holds the current contents of a dictionary, and its current
// access pointer.
type DictTracker struct {
	data         map[memory.Value]memory.Value
	defaultValue *memory.Value
	current      memory.Relocatable
}

// NewDictManager constructs an empty dict manager.
func NewDictManager() *DictManager {
	return &DictManager{make(map[int]*DictTracker)}
}

// NewDict allocates a new dictionary with given initial contents, returning its
// base address.
func (p *DictManager) NewDict(segments *memory.Segments, initial map[memory.Value]memory.Value) memory.Relocatable {
	base := segments.Add()
	//
	data := maps.Clone(initial)
	if data == nil {
		data = make(map[memory.Value]memory.Value)
	}
	//
	p.trackers[base.Segment] = &DictTracker{data: data, current: base}
	//
	return base
}

// NewDefaultDict allocates a new dictionary which returns a given value for
// missing keys.
func (p *DictManager) NewDefaultDict(segments *memory.Segments, defaultValue memory.Value) memory.Relocatable {
	base := p.NewDict(segments, nil)
	p.trackers[base.Segment].defaultValue = &defaultValue
	//
	return base
}

// Tracker returns the tracker of the dictionary for a given access pointer,
// which must be the current pointer of that dictionary.
func (p *DictManager) Tracker(ptr memory.Relocatable) (*DictTracker, error) {
	tracker, ok := p.trackers[ptr.Segment]
	//
	if !ok {
		return nil, fmt.Errorf("%w: no dict tracker for segment %d", ErrDict, ptr.Segment)
	} else if tracker.current != ptr {
		return nil, fmt.Errorf("%w: wrong dict pointer supplied, got %s, expected %s", ErrDict, ptr,
			tracker.current)
	}
	//
	return tracker, nil
}

// Get the value associated with a given key.
func (p *DictTracker) Get(key memory.Value) (memory.Value, error) {
	if val, ok := p.data[key]; ok {
		return val, nil
	} else if p.defaultValue != nil {
		return *p.defaultValue, nil
	}
	//
	return memory.Value{}, fmt.Errorf("%w: key %s not found", ErrDict, key)
}

// Set the value associated with a given key.
func (p *DictTracker) Set(key, value memory.Value) {
	p.data[key] = value
}

// Advance the current pointer past one DictAccess.
func (p *DictTracker) advance() {
	p.current = p.current.Add(dictAccessSize)
}

func dictManager(ctx *Context) *DictManager {
	if mgr, err := scopeValue[*DictManager](ctx.Scopes, dictManagerVar); err == nil {
		return mgr
	}
	//
	mgr := NewDictManager()
	ctx.Scopes.Set(dictManagerVar, mgr)
	//
	return mgr
}

func dictNew(ctx *Context) error {
	initial, err := scopeValue[map[memory.Value]memory.Value](ctx.Scopes, initialDictVar)
	if err != nil {
		return err
	}
	//
	base := dictManager(ctx).NewDict(ctx.Segments(), initial)
	ctx.Scopes.Delete(initialDictVar)
	//
	return ctx.InsertAP(memory.PointerValue(base))
}

func defaultDictNew(ctx *Context) error {
	def, err := ctx.Ids.Get("default_value")
	if err != nil {
		return err
	}
	//
	base := dictManager(ctx).NewDefaultDict(ctx.Segments(), def)
	//
	return ctx.InsertAP(memory.PointerValue(base))
}

// Determine the tracker for ids.dict_ptr and the key being accessed.
func dictAccess(ctx *Context) (*DictTracker, memory.Value, error) {
	mgr, err := scopeValue[*DictManager](ctx.Scopes, dictManagerVar)
	if err != nil {
		return nil, memory.Value{}, err
	}
	//
	ptr, err := ctx.Ids.GetRelocatable("dict_ptr")
	if err != nil {
		return nil, memory.Value{}, err
	}
	//
	tracker, err := mgr.Tracker(ptr)
	if err != nil {
		return nil, memory.Value{}, err
	}
	//
	key, err := ctx.Ids.Get("key")
	//
	return tracker, key, err
}

func dictRead(ctx *Context) error {
	tracker, key, err := dictAccess(ctx)
	if err != nil {
		return err
	}
	//
	tracker.advance()
	//
	val, err := tracker.Get(key)
	if err != nil {
		return err
	}
	//
	return ctx.Ids.Set("value", val)
}

func dictWrite(ctx *Context) error {
	tracker, key, err := dictAccess(ctx)
	if err != nil {
		return err
	}
	//
	tracker.advance()
	//
	prev, err := tracker.Get(key)
	if err != nil {
		return err
	} else if err := ctx.Ids.SetMember("dict_ptr", dictPrevValueOffset, prev); err != nil {
		return err
	}
	//
	val, err := ctx.Ids.Get("new_value")
	if err != nil {
		return err
	}
	//
	tracker.Set(key, val)
	//
	return nil
}

func dictUpdate(ctx *Context) error {
	tracker, key, err := dictAccess(ctx)
	if err != nil {
		return err
	}
	//
	current, err := tracker.Get(key)
	if err != nil {
		return err
	}
	//
	prev, err := ctx.Ids.Get("prev_value")
	if err != nil {
		return err
	} else if !current.Equal(prev) {
		return assertf("Wrong prev_value given. Expected %s, got %s.", current, prev)
	}
	//
	val, err := ctx.Ids.Get("new_value")
	if err != nil {
		return err
	}
	//
	tracker.Set(key, val)
	tracker.advance()
	//
	return nil
}
