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
	"os"

	"github.com/consensys/go-cairo/pkg/util"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] program.json",
	Short: "Execute a compiled Cairo program.",
	Long: `Execute a compiled Cairo program to completion, optionally writing
	the relocated trace and memory in the binary format expected by the prover.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		config := getConfig(cmd)
		traceFile := GetString(cmd, "trace-file")
		memoryFile := GetString(cmd, "memory-file")
		printOutput := GetFlag(cmd, "print-output")
		printMemory := GetFlag(cmd, "print-memory")
		printTrace := GetFlag(cmd, "print-trace")
		config.Trace = traceFile != "" || printTrace
		// Load and execute
		prog := readProgramFile(cmd, args[0])
		runner := newRunner(prog, config)
		stats := util.NewPerfStats()
		//
		res, err := runner.Run()
		if err != nil {
			log.Error(err)
			os.Exit(4)
		}
		//
		stats.Log("Execution", res.Steps)
		log.Debug(fmt.Sprintf("relocated %d memory cells", len(res.Memory)))
		//
		if printOutput {
			printProgramOutput(os.Stdout, res)
		}
		//
		if printMemory {
			printRelocatedMemory(os.Stdout, res)
		}
		//
		if printTrace {
			printRelocatedTrace(os.Stdout, res)
		}
		//
		if traceFile != "" {
			writeFile(traceFile, func(f *os.File) error { return res.WriteTrace(f) })
		}
		//
		if memoryFile != "" {
			writeFile(memoryFile, func(f *os.File) error { return res.WriteMemory(f) })
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("trace-file", "", "write relocated trace to file")
	runCmd.Flags().String("memory-file", "", "write relocated memory to file")
	runCmd.Flags().Bool("print-output", false, "print values written to the output builtin")
	runCmd.Flags().Bool("print-memory", false, "print relocated memory")
	runCmd.Flags().Bool("print-trace", false, "print relocated trace")
}
