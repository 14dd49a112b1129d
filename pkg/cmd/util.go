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

	"github.com/consensys/go-cairo/pkg/program"
	"github.com/consensys/go-cairo/pkg/runner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected flag, or panic if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string, or panic if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint64 gets an expected unsigned integer, or panic if an error arises.
func GetUint64(cmd *cobra.Command, flag string) uint64 {
	r, err := cmd.Flags().GetUint64(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Configure the log level and construct the runner configuration from the
// persistent flags.
func getConfig(cmd *cobra.Command) runner.Config {
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
	//
	return runner.Config{
		Layout:    GetString(cmd, "layout"),
		ProofMode: GetFlag(cmd, "proof-mode"),
		MaxSteps:  GetUint64(cmd, "max-steps"),
	}
}

// Load a compiled program, or exit if an error arises.
func readProgramFile(cmd *cobra.Command, filename string) *program.Program {
	entrypoint := GetString(cmd, "entrypoint")
	//
	log.Debug(fmt.Sprintf("loading %s (entry point %s)", filename, entrypoint))
	//
	prog, err := program.Load(filename, entrypoint)
	if err != nil {
		log.Error(err)
		os.Exit(2)
	}
	//
	log.Debug(fmt.Sprintf("loaded %d words, %d hints, builtins %v", len(prog.Data), len(prog.Hints), prog.Builtins))
	//
	return prog
}

// Construct and initialise a runner, or exit if an error arises.
func newRunner(prog *program.Program, config runner.Config) *runner.CairoRunner {
	r, err := runner.New(prog, config)
	if err == nil {
		err = r.Initialize()
	}
	//
	if err != nil {
		log.Error(err)
		os.Exit(3)
	}
	//
	return r
}

// Write a file using a given writer function, or exit if an error arises.
func writeFile(filename string, fn func(f *os.File) error) {
	f, err := os.Create(filename)
	//
	if err == nil {
		err = fn(f)
		//
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	//
	if err != nil {
		log.Error(err)
		os.Exit(5)
	}
}
