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
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/consensys/go-cairo/pkg/runner"
	"github.com/consensys/go-cairo/pkg/vm/memory"
	"github.com/peterh/liner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug [flags] program.json",
	Short: "Step through the execution of a compiled Cairo program.",
	Long: `Execute a compiled Cairo program interactively.  Commands:
	step [n], insn, regs, mem <segment>:<offset> [n], continue and quit.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		config := getConfig(cmd)
		prog := readProgramFile(cmd, args[0])
		//
		session := &debugSession{newRunner(prog, config), os.Stdout, false}
		//
		session.repl()
	},
}

// Number of cells shown by "mem" when no count is given.
const defaultMemRange = 8

// State of an interactive debugging session.
type debugSession struct {
	runner *runner.CairoRunner
	out    io.Writer
	halted bool
}

func (p *debugSession) repl() {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	//
	p.printRegisters()
	//
	for {
		line, err := ln.Prompt("(cairo) ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return
		} else if err != nil {
			log.Error(err)
			return
		}
		//
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		//
		ln.AppendHistory(line)
		//
		if quit, err := p.execute(fields[0], fields[1:]); err != nil {
			fmt.Fprintf(p.out, "error: %s\n", err)
		} else if quit {
			return
		}
	}
}

// Execute a single command, returning true if the session should end.
func (p *debugSession) execute(command string, args []string) (bool, error) {
	switch command {
	case "s", "step":
		n, err := optionalCount(args, 0, 1)
		if err != nil {
			return false, err
		}
		//
		return false, p.step(n)
	case "c", "continue":
		return false, p.finish()
	case "r", "regs":
		p.printRegisters()
	case "i", "insn":
		return false, p.printInstruction()
	case "m", "mem":
		if len(args) == 0 {
			return false, errors.New("expected address (e.g. 1:0)")
		}
		//
		addr, err := parseAddress(args[0])
		if err != nil {
			return false, err
		}
		//
		n, err := optionalCount(args, 1, defaultMemRange)
		if err != nil {
			return false, err
		}
		//
		printMemoryRange(p.out, p.runner.Segments().Memory, addr, n)
	case "q", "quit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command \"%s\"", command)
	}
	//
	return false, nil
}

// Execute up to n steps, stopping early if the final pc is reached.
func (p *debugSession) step(n uint64) error {
	for i := uint64(0); i < n; i++ {
		if p.halted || p.runner.Machine().Context.PC == p.runner.FinalPC() {
			return p.finish()
		} else if err := p.runner.RunForSteps(1); err != nil {
			return err
		}
	}
	//
	p.printRegisters()
	//
	return nil
}

// Run to completion and report the outcome.
func (p *debugSession) finish() error {
	if p.halted {
		return errors.New("execution already finished")
	} else if err := p.runner.RunUntilPC(p.runner.FinalPC()); err != nil {
		return err
	} else if err := p.runner.EndRun(); err != nil {
		return err
	}
	//
	p.halted = true
	//
	res, err := p.runner.Relocate()
	if err != nil {
		return err
	}
	//
	fmt.Fprintf(p.out, "finished after %d steps\n", res.Steps)
	//
	if len(res.Output) > 0 {
		printProgramOutput(p.out, res)
	}
	//
	return nil
}

func (p *debugSession) printRegisters() {
	machine := p.runner.Machine()
	fmt.Fprintf(p.out, "step %d: %s\n", machine.CurrentStep(), machine.Context)
}

func (p *debugSession) printInstruction() error {
	pc := p.runner.Machine().Context.PC
	//
	insn, err := p.runner.Machine().DecodeAt(pc)
	if err != nil {
		return err
	}
	//
	fmt.Fprintf(p.out, "%s: %s\n", pc, insn.String())
	//
	return nil
}

// Parse an address of the form "segment:offset".
func parseAddress(str string) (memory.Relocatable, error) {
	seg, off, ok := strings.Cut(str, ":")
	if !ok {
		return memory.Relocatable{}, fmt.Errorf("invalid address \"%s\"", str)
	}
	//
	segment, err := strconv.Atoi(seg)
	if err != nil {
		return memory.Relocatable{}, fmt.Errorf("invalid segment \"%s\"", seg)
	}
	//
	offset, err := strconv.ParseUint(off, 10, 64)
	if err != nil {
		return memory.Relocatable{}, fmt.Errorf("invalid offset \"%s\"", off)
	}
	//
	return memory.NewRelocatable(segment, offset), nil
}

// Parse the ith argument as a count, or return a default when absent.
func optionalCount(args []string, i int, def uint64) (uint64, error) {
	if i >= len(args) {
		return def, nil
	}
	//
	n, err := strconv.ParseUint(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count \"%s\"", args[i])
	}
	//
	return n, nil
}

func init() {
	rootCmd.AddCommand(debugCmd)
}
