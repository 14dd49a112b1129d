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
package stack

import (
	"testing"

	"github.com/consensys/go-cairo/pkg/util/assert"
)

func Test_Stack_01(t *testing.T) {
	s := NewStack[int]()
	//
	assert.True(t, s.IsEmpty())
	s.Push(1)
	s.Push(2)
	assert.Equal(t, uint(2), s.Len())
	assert.Equal(t, 2, s.Peek(0))
	assert.Equal(t, 1, s.Peek(1))
	assert.Equal(t, 2, s.Pop())
	assert.Equal(t, 1, s.Pop())
	assert.True(t, s.IsEmpty())
}

func Test_Stack_02(t *testing.T) {
	s := NewStack("a", "b")
	//
	assert.Equal(t, "b", s.Peek(0))
	s.Push("c")
	assert.Equal(t, "c", s.Pop())
	assert.Equal(t, uint(2), s.Len())
}

func Test_Stack_Pop_Empty(t *testing.T) {
	defer func() {
		assert.True(t, recover() != nil, "expected panic")
	}()
	//
	NewStack[int]().Pop()
}
