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
	"fmt"
	"io"
)

// TablePrinter is useful for printing tables to the terminal.  Rows are added
// incrementally, and columns are sized to fit their widest cell.
type TablePrinter struct {
	widths        []uint
	rows          [][]string
	escapes       [][]string
	enableEscapes bool
}

// NewTablePrinter constructs a new (empty) table with a given number of
// columns.
func NewTablePrinter(width uint) *TablePrinter {
	return &TablePrinter{widths: make([]uint, width)}
}

// Height returns the height of this table.
func (p *TablePrinter) Height() uint {
	return uint(len(p.rows))
}

// AddRow appends a row to this table, returning its index.
func (p *TablePrinter) AddRow(vals ...string) uint {
	if len(vals) != len(p.widths) {
		panic("incorrect number of columns")
	}
	//
	for i, val := range vals {
		p.widths[i] = max(p.widths[i], uint(len(val)))
	}
	//
	p.rows = append(p.rows, vals)
	p.escapes = append(p.escapes, make([]string, len(vals)))
	//
	return uint(len(p.rows) - 1)
}

// Get the contents of a given cell in this table
func (p *TablePrinter) Get(col uint, row uint) string {
	return p.rows[row][col]
}

// SetEscape set the escape to use when printing the contents of a given cell
func (p *TablePrinter) SetEscape(col uint, row uint, escape AnsiEscape) {
	p.escapes[row][col] = escape.Build()
}

// SetRowEscape sets the escape to use for every cell of a given row.
func (p *TablePrinter) SetRowEscape(row uint, escape AnsiEscape) {
	for col := range p.widths {
		p.SetEscape(uint(col), row, escape)
	}
}

// AnsiEscapes enables or disables the use of ANSI escapes (e.g. for showing
// colour).  Disabling escapes is useful in environments that don't support
// escapes as, otherwise, you get a lot of visible excape characters being
// printed.
func (p *TablePrinter) AnsiEscapes(enable bool) {
	p.enableEscapes = enable
}

// SetMaxWidths puts an upper bound on the width of any column.
func (p *TablePrinter) SetMaxWidths(width uint) {
	for i := range p.widths {
		p.widths[i] = min(p.widths[i], width)
	}
}

// Print the table to a given writer.
func (p *TablePrinter) Print(w io.Writer) error {
	for i, row := range p.rows {
		for j, col := range row {
			if err := p.printCell(w, col, p.widths[j], p.escapes[i][j]); err != nil {
				return err
			}
		}
		//
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	//
	return nil
}

func (p *TablePrinter) printCell(w io.Writer, col string, width uint, escape string) error {
	var err error
	// Print colour (if applicable)
	if p.enableEscapes && escape != "" {
		if _, err = io.WriteString(w, escape); err != nil {
			return err
		}
	}
	// Print data (truncated if necessary)
	if uint(len(col)) > width && width > 2 {
		_, err = fmt.Fprintf(w, " %*s..", width-2, col[0:width-2])
	} else {
		_, err = fmt.Fprintf(w, " %*s", width, col)
	}
	//
	if err != nil {
		return err
	}
	// Cancel colour (if applicable)
	if p.enableEscapes && escape != "" {
		if _, err = io.WriteString(w, ResetAnsiEscape().Build()); err != nil {
			return err
		}
	}
	//
	_, err = io.WriteString(w, " |")
	//
	return err
}
