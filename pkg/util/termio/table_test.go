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
package termio

import (
	"bytes"
	"testing"

	"github.com/consensys/go-cairo/pkg/util/assert"
)

func Test_Table_01(t *testing.T) {
	var buf bytes.Buffer
	//
	table := NewTablePrinter(2)
	table.AddRow("pc", "value")
	table.AddRow("12", "7")
	assert.NoError(t, table.Print(&buf))
	assert.Equal(t, " pc | value |\n 12 |     7 |\n", buf.String())
}

func Test_Table_02(t *testing.T) {
	var buf bytes.Buffer
	//
	table := NewTablePrinter(1)
	table.AddRow("0x800000000000011")
	table.SetMaxWidths(6)
	assert.NoError(t, table.Print(&buf))
	assert.Equal(t, " 0x80.. |\n", buf.String())
}

func Test_Table_Escapes(t *testing.T) {
	var buf bytes.Buffer
	//
	table := NewTablePrinter(1)
	row := table.AddRow("x")
	table.SetRowEscape(row, BoldAnsiEscape().FgColour(TERM_RED))
	// Escapes are disabled by default
	assert.NoError(t, table.Print(&buf))
	assert.Equal(t, " x |\n", buf.String())
	//
	buf.Reset()
	table.AnsiEscapes(true)
	assert.NoError(t, table.Print(&buf))
	assert.Equal(t, "\033[1;31m x\033[0m |\n", buf.String())
}
