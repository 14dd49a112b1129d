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
	"math/big"
	"testing"

	"github.com/consensys/go-cairo/pkg/util/assert"
)

func Test_Scopes_01(t *testing.T) {
	scopes := NewScopes()
	//
	assert.Equal(t, uint(1), scopes.Depth())
	assert.ErrorIs(t, scopes.Exit(), ErrExitMainScope)
}

func Test_Scopes_02(t *testing.T) {
	scopes := NewScopes()
	scopes.Set("x", 1)
	scopes.Enter(map[string]any{"n": big.NewInt(3)})
	// Outer variables are not visible
	assert.False(t, scopes.Has("x"))
	assert.True(t, scopes.Has("n"))
	//
	n, err := bigScopeValue(scopes, "n")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n.Int64())
	//
	assert.NoError(t, scopes.Exit())
	assert.True(t, scopes.Has("x"))
	assert.False(t, scopes.Has("n"))
}

func Test_Scopes_03(t *testing.T) {
	scopes := NewScopes()
	scopes.Enter(map[string]any{"a": 1})
	assert.NoError(t, scopes.Exit())
	// Reused frames start empty
	scopes.Enter(nil)
	assert.False(t, scopes.Has("a"))
	assert.Equal(t, uint(2), scopes.Depth())
}

func Test_Scopes_04(t *testing.T) {
	scopes := NewScopes()
	scopes.Set("s", "text")
	//
	_, err := bigScopeValue(scopes, "s")
	assert.ErrorIs(t, err, ErrScopeVariable)
	//
	_, err = scopes.Get("missing")
	assert.ErrorIs(t, err, ErrScopeVariable)
	//
	scopes.Delete("s")
	assert.Equal(t, 0, len(scopes.Locals()))
}
