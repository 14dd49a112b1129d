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
package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/consensys/go-cairo/pkg/program"
	"github.com/consensys/go-cairo/pkg/runner"
	"github.com/consensys/go-cairo/pkg/util/assert"
	"github.com/consensys/go-cairo/pkg/vm/memory"
)

// main() { [ap] = 5; ap++; ret; }
func newSession(t *testing.T) (*debugSession, *bytes.Buffer) {
	var (
		buf  bytes.Buffer
		data = []memory.Value{memory.Uint64Value(0x480680017fff8000), memory.Uint64Value(5),
			memory.Uint64Value(0x208b7fff7fff7ffe)}
		prog = &program.Program{Data: data, MainScope: program.DefaultMainScope}
	)
	//
	r, err := runner.New(prog, runner.DefaultConfig())
	assert.NoError(t, err)
	assert.NoError(t, r.Initialize())
	//
	return &debugSession{r, &buf, false}, &buf
}

func Test_Debug_Step(t *testing.T) {
	session, buf := newSession(t)
	//
	quit, err := session.execute("step", nil)
	assert.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, "step 1: pc=0:2 ap=1:3 fp=1:2\n", buf.String())
}

func Test_Debug_Continue(t *testing.T) {
	session, buf := newSession(t)
	//
	_, err := session.execute("continue", nil)
	assert.NoError(t, err)
	assert.Equal(t, "finished after 2 steps\n", buf.String())
	// Cannot continue twice
	_, err = session.execute("c", nil)
	assert.True(t, err != nil)
}

func Test_Debug_StepPastEnd(t *testing.T) {
	session, buf := newSession(t)
	//
	_, err := session.execute("step", []string{"10"})
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "finished after 2 steps"))
}

func Test_Debug_Memory(t *testing.T) {
	session, buf := newSession(t)
	//
	_, err := session.execute("mem", []string{"0:1", "1"})
	assert.NoError(t, err)
	assert.Equal(t, " 0:1 | 5 |\n", buf.String())
}

func Test_Debug_Invalid(t *testing.T) {
	session, _ := newSession(t)
	//
	for _, cmd := range [][]string{{"jump"}, {"mem"}, {"mem", "1"}, {"mem", "x:1"}, {"step", "-1"}} {
		_, err := session.execute(cmd[0], cmd[1:])
		assert.True(t, err != nil, "command %v", cmd)
	}
	//
	quit, err := session.execute("quit", nil)
	assert.NoError(t, err)
	assert.True(t, quit)
}
