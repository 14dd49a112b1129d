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
	"math/big"
	"slices"

	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// Hints from the find_element and set libraries.
const (
	FindElement = "array_ptr = ids.array_ptr\n" +
		"elm_size = ids.elm_size\n" +
		"assert isinstance(elm_size, int) and elm_size > 0, \\\n" +
		"    f'Invalid value for elm_size. Got: {elm_size}.'\n" +
		"key = ids.key\n\n" +
		"if '__find_element_index' in globals():\n" +
		"    ids.index = __find_element_index\n" +
		"    found_key = memory[array_ptr + elm_size * __find_element_index]\n" +
		"    assert found_key == key, \\\n" +
		"        f'Invalid index found in __find_element_index. index: {__find_element_index}, ' \\\n" +
		"        f'expected key {key}, found key: {found_key}.'\n" +
		"    # Delete __find_element_index to make sure it's not used for the next calls.\n" +
		"    del __find_element_index\n" +
		"else:\n" +
		"    n_elms = ids.n_elms\n" +
		"    assert isinstance(n_elms, int) and n_elms >= 0, \\\n" +
		"        f'Invalid value for n_elms. Got: {n_elms}.'\n" +
		"    if '__find_element_max_size' in globals():\n" +
		"        assert n_elms <= __find_element_max_size, \\\n" +
		"            f'find_element() can only be used with n_elms<={__find_element_max_size}. ' \\\n" +
		"            f'Got: n_elms={n_elms}.'\n\n" +
		"    for i in range(n_elms):\n" +
		"        if memory[array_ptr + elm_size * i] == key:\n" +
		"            ids.index = i\n" +
		"            break\n" +
		"    else:\n" +
		"        raise ValueError(f'Key {key} was not found.')"
	SearchSortedLower = "array_ptr = ids.array_ptr\n" +
		"elm_size = ids.elm_size\n" +
		"assert isinstance(elm_size, int) and elm_size > 0, \\\n" +
		"    f'Invalid value for elm_size. Got: {elm_size}.'\n\n" +
		"n_elms = ids.n_elms\n" +
		"assert isinstance(n_elms, int) and n_elms >= 0, \\\n" +
		"    f'Invalid value for n_elms. Got: {n_elms}.'\n" +
		"if '__find_element_max_size' in globals():\n" +
		"    assert n_elms <= __find_element_max_size, \\\n" +
		"        f'find_element() can only be used with n_elms<={__find_element_max_size}. ' \\\n" +
		"        f'Got: n_elms={n_elms}.'\n\n" +
		"for i in range(n_elms):\n" +
		"    if memory[array_ptr + elm_size * i] >= ids.key:\n" +
		"        ids.index = i\n" +
		"        break\n" +
		"else:\n" +
		"    ids.index = n_elms"
	SetAdd = "assert ids.elm_size > 0\n" +
		"assert ids.set_ptr <= ids.set_end_ptr\n" +
		"elm_list = memory.get_range(ids.elm_ptr, ids.elm_size)\n" +
		"for i in range(0, ids.set_end_ptr - ids.set_ptr, ids.elm_size):\n" +
		"    if memory.get_range(ids.set_ptr + i, ids.elm_size) == elm_list:\n" +
		"        ids.index = i // ids.elm_size\n" +
		"        ids.is_elm_in_set = 1\n" +
		"        break\n" +
		"else:\n" +
		"    ids.is_elm_in_set = 0"
)

// Scope variables recognised by the find_element hints.
const (
	findElementIndex   = "__find_element_index"
	findElementMaxSize = "__find_element_max_size"
)

func init() {
	define(findElement, FindElement)
	define(searchSortedLower, SearchSortedLower)
	define(setAdd, SetAdd)
}

// Array of fixed-size elements.
type array struct {
	ptr     memory.Relocatable
	elmSize uint64
	nElms   uint64
}

func getArray(ctx *Context) (array, error) {
	var arr array
	//
	ptr, err := ctx.Ids.GetRelocatable("array_ptr")
	if err != nil {
		return arr, err
	}
	//
	elmSize, err := ctx.Ids.GetUint64("elm_size")
	if err != nil {
		return arr, err
	} else if elmSize == 0 {
		return arr, fmt.Errorf("Invalid value for elm_size. Got: %d.", elmSize)
	}
	//
	nElms, err := ctx.Ids.GetUint64("n_elms")
	if err != nil {
		return arr, err
	}
	//
	if ctx.Scopes.Has(findElementMaxSize) {
		limit, err := bigScopeValue(ctx.Scopes, findElementMaxSize)
		if err != nil {
			return arr, err
		} else if new(big.Int).SetUint64(nElms).Cmp(limit) > 0 {
			return arr, fmt.Errorf("find_element() can only be used with n_elms<=%s. Got: n_elms=%d.", limit, nElms)
		}
	}
	//
	return array{ptr, elmSize, nElms}, nil
}

// Address of the key of the ith element.
func (p array) key(i uint64) memory.Relocatable {
	return p.ptr.Add(p.elmSize * i)
}

func findElement(ctx *Context) error {
	key, err := ctx.Ids.Get("key")
	if err != nil {
		return err
	}
	// Index supplied by caller
	if ctx.Scopes.Has(findElementIndex) {
		return findElementAt(ctx, key)
	}
	//
	arr, err := getArray(ctx)
	if err != nil {
		return err
	}
	//
	for i := uint64(0); i < arr.nElms; i++ {
		val, err := ctx.Memory().Get(arr.key(i))
		if err != nil {
			return err
		} else if val.Equal(key) {
			return ctx.Ids.SetUint64("index", i)
		}
	}
	//
	return fmt.Errorf("Key %s was not found.", key)
}

func findElementAt(ctx *Context, key memory.Value) error {
	index, err := bigScopeValue(ctx.Scopes, findElementIndex)
	if err != nil {
		return err
	} else if !index.IsUint64() {
		return fmt.Errorf("invalid index %s", index)
	}
	//
	ptr, err := ctx.Ids.GetRelocatable("array_ptr")
	if err != nil {
		return err
	}
	//
	elmSize, err := ctx.Ids.GetUint64("elm_size")
	if err != nil {
		return err
	}
	//
	found, err := ctx.Memory().Get(ptr.Add(elmSize * index.Uint64()))
	if err != nil {
		return err
	} else if !found.Equal(key) {
		return fmt.Errorf("Invalid index found in __find_element_index. index: %s, expected key %s, found key: %s.",
			index, key, found)
	}
	//
	ctx.Scopes.Delete(findElementIndex)
	//
	return ctx.Ids.Set("index", bigValue(index))
}

func searchSortedLower(ctx *Context) error {
	arr, err := getArray(ctx)
	if err != nil {
		return err
	}
	//
	key, err := ctx.Ids.GetBig("key")
	if err != nil {
		return err
	}
	//
	for i := uint64(0); i < arr.nElms; i++ {
		val, err := ctx.Memory().GetFelt(arr.key(i))
		if err != nil {
			return err
		} else if val.BigInt().Cmp(key) >= 0 {
			return ctx.Ids.SetUint64("index", i)
		}
	}
	//
	return ctx.Ids.SetUint64("index", arr.nElms)
}

func setAdd(ctx *Context) error {
	elmSize, err := ctx.Ids.GetUint64("elm_size")
	if err != nil {
		return err
	} else if elmSize == 0 {
		return assertf("elm_size must be positive")
	}
	//
	ptrs := make([]memory.Relocatable, 3)
	//
	for i, name := range []string{"elm_ptr", "set_ptr", "set_end_ptr"} {
		if ptrs[i], err = ctx.Ids.GetRelocatable(name); err != nil {
			return err
		}
	}
	//
	elmPtr, setPtr, setEndPtr := ptrs[0], ptrs[1], ptrs[2]
	//
	if setPtr.Segment != setEndPtr.Segment || setPtr.Offset > setEndPtr.Offset {
		return assertf("set_ptr %s is after set_end_ptr %s", setPtr, setEndPtr)
	}
	//
	elm, err := ctx.Memory().GetRange(elmPtr, elmSize)
	if err != nil {
		return err
	}
	//
	for i := uint64(0); i < setEndPtr.Offset-setPtr.Offset; i += elmSize {
		candidate, err := ctx.Memory().GetRange(setPtr.Add(i), elmSize)
		if err != nil {
			return err
		}
		//
		if slices.EqualFunc(elm, candidate, memory.Value.Equal) {
			if err := ctx.Ids.SetUint64("index", i/elmSize); err != nil {
				return err
			}
			//
			return ctx.Ids.SetUint64("is_elm_in_set", 1)
		}
	}
	//
	return ctx.Ids.SetUint64("is_elm_in_set", 0)
}
