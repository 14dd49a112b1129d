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
	"fmt"
	"io"
	"os"

	"github.com/consensys/go-cairo/pkg/runner"
	"github.com/consensys/go-cairo/pkg/util/termio"
	"github.com/consensys/go-cairo/pkg/vm/memory"
	log "github.com/sirupsen/logrus"
)

// Maximum width of any column when printing values.
const maxColumnWidth = 68

// Print the values written to the output builtin, as signed integers.
func printProgramOutput(w io.Writer, res *runner.ExecutionResult) {
	fmt.Fprintln(w, "Program output:")
	//
	for _, val := range res.Output {
		fmt.Fprintf(w, "  %s\n", val.Signed())
	}
}

// Print every populated cell of the relocated memory.
func printRelocatedMemory(w io.Writer, res *runner.ExecutionResult) {
	table := termio.NewTablePrinter(2)
	header := table.AddRow("addr", "value")
	table.SetRowEscape(header, termio.BoldAnsiEscape())
	//
	for addr, val := range res.Memory {
		if val != nil {
			table.AddRow(fmt.Sprintf("%d", addr), val.String())
		}
	}
	//
	printTable(w, table)
}

// Print the relocated register values of each step.
func printRelocatedTrace(w io.Writer, res *runner.ExecutionResult) {
	table := termio.NewTablePrinter(4)
	header := table.AddRow("step", "pc", "ap", "fp")
	table.SetRowEscape(header, termio.BoldAnsiEscape())
	//
	for i, e := range res.Trace {
		table.AddRow(fmt.Sprintf("%d", i), fmt.Sprintf("%d", e.PC), fmt.Sprintf("%d", e.AP), fmt.Sprintf("%d", e.FP))
	}
	//
	printTable(w, table)
}

// Print a range of (unrelocated) memory cells, highlighting those which are
// unknown.
func printMemoryRange(w io.Writer, mem *memory.Memory, base memory.Relocatable, n uint64) {
	table := termio.NewTablePrinter(2)
	//
	for i := uint64(0); i < n; i++ {
		addr := base.Add(i)
		//
		if val, ok := mem.Peek(addr); ok {
			table.AddRow(addr.String(), val.String())
		} else {
			row := table.AddRow(addr.String(), "?")
			table.SetEscape(1, row, termio.AnsiEscape{}.FgColour(termio.TERM_YELLOW))
		}
	}
	//
	printTable(w, table)
}

func printTable(w io.Writer, table *termio.TablePrinter) {
	table.SetMaxWidths(maxColumnWidth)
	table.AnsiEscapes(w == io.Writer(os.Stdout) && termio.IsTerminal(os.Stdout))
	//
	if err := table.Print(w); err != nil {
		log.Error(err)
	}
}
