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
package runner

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/consensys/go-cairo/pkg/hint"
	"github.com/consensys/go-cairo/pkg/program"
	"github.com/consensys/go-cairo/pkg/util/field/stark252"
	"github.com/consensys/go-cairo/pkg/vm"
	"github.com/consensys/go-cairo/pkg/vm/builtin"
	"github.com/consensys/go-cairo/pkg/vm/instruction"
	"github.com/consensys/go-cairo/pkg/vm/memory"
	log "github.com/sirupsen/logrus"
)

// ErrUnknownLayout indicates a layout name which is not recognised.
var ErrUnknownLayout = errors.New("unknown layout")

// ErrUnsupportedBuiltin indicates a builtin which is either not part of the
// chosen layout, or is not implemented.
var ErrUnsupportedBuiltin = errors.New("unsupported builtin")

// ErrStepLimitExceeded indicates that execution did not terminate within the
// configured number of steps.
var ErrStepLimitExceeded = errors.New("step limit exceeded")

// ErrNonEmptyScopes indicates that execution finished without exiting every
// scope entered by a hint.
var ErrNonEmptyScopes = errors.New("scopes not exited at end of run")

// ErrProofModeEpilogue indicates that, in proof mode, execution did not finish
// in the expected final state.
var ErrProofModeEpilogue = errors.New("invalid proof mode epilogue")

// ErrInsufficientAllocatedCells indicates that the layout does not provide
// enough memory cells for the execution.
var ErrInsufficientAllocatedCells = errors.New("insufficient allocated cells")

// ErrRunnerState indicates an operation applied to a runner in the wrong
// state (e.g. running before initialisation).
var ErrRunnerState = errors.New("invalid runner state")

// Config determines how a program is executed.
type Config struct {
	// Name of the layout to use
	Layout string
	// Whether to execute in proof mode
	ProofMode bool
	// Whether to record the execution trace
	Trace bool
	// Maximum number of steps (zero indicates no limit)
	MaxSteps uint64
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{Layout: "plain"}
}

// CairoRunner is responsible for executing a single program.  It owns the
// machine, its memory and the execution scopes.
type CairoRunner struct {
	program   *program.Program
	config    Config
	layout    Layout
	processor *hint.Processor
	builtins  []builtin.Runner
	// Machine state (set on initialisation)
	segments  *memory.Segments
	machine   *vm.VirtualMachine
	runtime   *hint.Runtime
	hints     map[uint64][]*hint.Compiled
	data      []memory.Value
	progBase  memory.Relocatable
	execBase  memory.Relocatable
	initialFP memory.Relocatable
	finalPC   memory.Relocatable
	// Progress
	initialized bool
	ended       bool
}

// New constructs a runner for a given program.  This fails if the program
// uses builtins which the layout does not support.
func New(prog *program.Program, config Config) (*CairoRunner, error) {
	layout, err := GetLayout(config.Layout)
	if err != nil {
		return nil, err
	} else if err := layout.Check(prog.Builtins); err != nil {
		return nil, err
	}
	//
	builtins := make([]builtin.Runner, len(prog.Builtins))
	//
	for i, name := range prog.Builtins {
		ratio, _ := layout.Ratio(name)
		//
		b, ok := builtin.New(name, ratio)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not implemented", ErrUnsupportedBuiltin, name)
		}
		//
		builtins[i] = b
	}
	//
	return &CairoRunner{
		program:   prog,
		config:    config,
		layout:    layout,
		processor: hint.NewProcessor(),
		builtins:  builtins,
	}, nil
}

// Processor returns the hint processor, such that custom hints can be
// registered prior to initialisation.
func (p *CairoRunner) Processor() *hint.Processor {
	return p.processor
}

// Machine returns the underlying virtual machine (once initialised).
func (p *CairoRunner) Machine() *vm.VirtualMachine {
	return p.machine
}

// Segments returns the memory segments (once initialised).
func (p *CairoRunner) Segments() *memory.Segments {
	return p.segments
}

// Runtime returns the state accessible to hints (once initialised).
func (p *CairoRunner) Runtime() *hint.Runtime {
	return p.runtime
}

// Builtins returns the builtins used by the program, in program order.
func (p *CairoRunner) Builtins() []builtin.Runner {
	return p.builtins
}

// FinalPC returns the address at which execution terminates.
func (p *CairoRunner) FinalPC() memory.Relocatable {
	return p.finalPC
}

// Initialize allocates the program, execution and builtin segments, loads the
// program and constructs the initial stack.
func (p *CairoRunner) Initialize() error {
	if p.initialized {
		return fmt.Errorf("%w: already initialized", ErrRunnerState)
	}
	//
	hints, err := p.processor.Compile(p.program)
	if err != nil {
		return err
	}
	//
	p.hints = hints
	p.segments = memory.NewSegments()
	p.progBase = p.segments.Add()
	p.execBase = p.segments.Add()
	//
	for _, b := range p.builtins {
		b.InitializeSegments(p.segments)
	}
	//
	var (
		stack []memory.Value
		entry memory.Relocatable
	)
	//
	if p.config.ProofMode {
		stack, entry, err = p.initializeProofMode()
	} else {
		stack, entry = p.initializeMain()
	}
	//
	if err != nil {
		return err
	} else if _, err := p.segments.LoadData(p.progBase, p.data); err != nil {
		return err
	} else if _, err := p.segments.LoadData(p.execBase, stack); err != nil {
		return err
	}
	// Program and initial stack are public memory
	for i := range p.data {
		p.segments.Memory.MarkAccessed(p.progBase.Add(uint64(i)))
	}
	//
	for i := range stack {
		p.segments.Memory.MarkAccessed(p.execBase.Add(uint64(i)))
	}
	//
	p.machine = vm.New(p.segments, p.config.Trace)
	p.machine.Context = vm.RunContext{PC: entry, AP: p.initialFP, FP: p.initialFP}
	//
	for _, b := range p.builtins {
		p.machine.AddDeducer(b.Base().Segment, b)
		b.AddValidationRule(p.segments.Memory)
	}
	//
	if err := p.segments.Memory.ValidateExisting(); err != nil {
		return err
	}
	//
	p.runtime = hint.NewRuntime(p.machine, p.program, p.builtins)
	p.initialized = true
	//
	log.Debugf("initialized runner (layout %s, proof mode %t): pc=%s, ap=fp=%s, final pc=%s, %d hints",
		p.layout.Name, p.config.ProofMode, entry, p.initialFP, p.finalPC, len(p.hints))
	//
	return nil
}

// Initial stack for calling main directly: the builtin pointers followed by
// the return frame pointer and return address, both of which point to fresh
// segments.
func (p *CairoRunner) initializeMain() ([]memory.Value, memory.Relocatable) {
	stack := p.GetBuiltinsInitialStack()
	returnFP := p.segments.Add()
	p.finalPC = p.segments.Add()
	stack = append(stack, memory.PointerValue(returnFP), memory.PointerValue(p.finalPC))
	//
	p.data = p.program.Data
	p.initialFP = p.execBase.Add(uint64(len(stack)))
	//
	return stack, p.progBase.Add(p.program.Main)
}

// Initial stack for proof mode, where execution starts from the __start__
// label and ends at the __end__ label.  Programs lacking these labels are
// extended with the standard prologue and epilogue.
func (p *CairoRunner) initializeProofMode() ([]memory.Value, memory.Relocatable, error) {
	start, end := p.program.Start, p.program.End
	p.data = p.program.Data
	//
	if start == nil || end == nil {
		var err error
		//
		if p.data, start, end, err = proofModeEntry(p.program.Data, p.program.Main, len(p.builtins)); err != nil {
			return nil, memory.Relocatable{}, err
		}
	}
	//
	stack := []memory.Value{memory.PointerValue(p.execBase.Add(2)), memory.Uint64Value(0)}
	stack = append(stack, p.GetBuiltinsInitialStack()...)
	//
	p.initialFP = p.execBase.Add(2)
	p.finalPC = p.progBase.Add(*end)
	//
	return stack, p.progBase.Add(*start), nil
}

// Extend a program with "ap += n; call rel main; jmp rel 0", returning the new
// program data and the offsets of its start and end.
func proofModeEntry(data []memory.Value, main uint64, n int) ([]memory.Value, *uint64, *uint64, error) {
	var (
		start = uint64(len(data))
		call  = start + 2
		end   = start + 4
		// ap += imm
		apAdd = instruction.Instruction{OffDst: -1, OffOp0: -1, OffOp1: 1, DstReg: instruction.FP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, ResLogic: instruction.ResOp1,
			ApUpdate: instruction.ApAdd, Opcode: instruction.NOp}
		// call rel imm
		callRel = instruction.Instruction{OffDst: 0, OffOp0: 1, OffOp1: 1, DstReg: instruction.AP,
			Op0Reg: instruction.AP, Op1Src: instruction.Op1SrcImm, ResLogic: instruction.ResOp1,
			PcUpdate: instruction.PcJumpRel, ApUpdate: instruction.ApAdd2, FpUpdate: instruction.FpAPPlus2,
			Opcode: instruction.Call}
		// jmp rel imm
		jmpRel = instruction.Instruction{OffDst: -1, OffOp0: -1, OffOp1: 1, DstReg: instruction.FP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, ResLogic: instruction.ResOp1,
			PcUpdate: instruction.PcJumpRel, Opcode: instruction.NOp}
		code = make([]memory.Value, 0, len(data)+6)
	)
	//
	code = append(code, data...)
	//
	for _, insn := range []instruction.Instruction{apAdd, callRel, jmpRel} {
		word, err := instruction.Encode(insn)
		if err != nil {
			return nil, nil, nil, err
		}
		//
		code = append(code, memory.Uint64Value(word), memory.Value{})
	}
	//
	code[start+1] = memory.Uint64Value(uint64(n))
	code[call+1] = memory.FeltValue(stark252.NewInt64(int64(main) - int64(call)))
	code[end+1] = memory.Uint64Value(0)
	//
	return code, &start, &end, nil
}

// RunUntilPC executes the program until the program counter reaches a given
// address.  Before each step, the hints associated with the current program
// counter are executed.
func (p *CairoRunner) RunUntilPC(end memory.Relocatable) error {
	if !p.initialized {
		return fmt.Errorf("%w: not initialized", ErrRunnerState)
	}
	//
	for p.machine.Context.PC != end {
		if err := p.step(); err != nil {
			return err
		}
	}
	//
	log.Debugf("reached pc %s after %d steps", end, p.machine.CurrentStep())
	//
	return nil
}

// RunForSteps executes exactly n steps.
func (p *CairoRunner) RunForSteps(n uint64) error {
	for i := uint64(0); i < n; i++ {
		if err := p.step(); err != nil {
			return err
		}
	}
	//
	return nil
}

// RunUntilNextPowerOf2 executes until the number of steps is a power of two.
func (p *CairoRunner) RunUntilNextPowerOf2() error {
	steps := p.machine.CurrentStep()
	//
	if steps <= 1 {
		return p.RunForSteps(1 - steps)
	}
	//
	return p.RunForSteps(uint64(1)<<bits.Len64(steps-1) - steps)
}

// Execute the hints at the current pc, followed by a single instruction.
func (p *CairoRunner) step() error {
	if limit := p.config.MaxSteps; limit > 0 && p.machine.CurrentStep() >= limit {
		return fmt.Errorf("%w: %d steps (at pc %s)", ErrStepLimitExceeded, limit, p.machine.Context.PC)
	}
	//
	if pc := p.machine.Context.PC; pc.Segment == p.progBase.Segment {
		for _, h := range p.hints[pc.Offset] {
			if err := p.processor.Execute(p.runtime, h); err != nil {
				return p.annotate(fmt.Errorf("%w (at pc %s)", err, pc))
			}
		}
	}
	//
	return p.annotate(p.machine.Step())
}

// Attach any error message declared by the program for the instruction at
// the current pc.
func (p *CairoRunner) annotate(err error) error {
	if err == nil || p.machine.Context.PC.Segment != p.progBase.Segment {
		return err
	}
	//
	for _, msg := range p.program.ErrorMessagesAt(p.machine.Context.PC.Offset) {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	//
	return err
}

// EndRun completes execution.  Temporary segments are relocated, auto
// deductions are verified and, in proof mode, the trace is padded until the
// layout provides enough cells.
func (p *CairoRunner) EndRun() error {
	if !p.initialized {
		return fmt.Errorf("%w: not initialized", ErrRunnerState)
	} else if p.ended {
		return fmt.Errorf("%w: run already ended", ErrRunnerState)
	}
	//
	if err := p.segments.Memory.RelocateTemporary(); err != nil {
		return err
	} else if err := p.machine.VerifyAutoDeductions(); err != nil {
		return err
	} else if depth := p.runtime.Scopes.Depth(); depth != 1 {
		return fmt.Errorf("%w: %d scopes remaining", ErrNonEmptyScopes, depth-1)
	}
	//
	if p.config.ProofMode {
		if err := p.padTrace(); err != nil {
			return err
		}
		//
		ctx := p.machine.Context
		//
		// Final ap depends on the values returned by main
		if ctx.PC != p.finalPC || ctx.FP != p.initialFP || ctx.AP.Segment != p.execBase.Segment {
			return fmt.Errorf("%w: pc=%s, ap=%s, fp=%s (expected pc=%s, fp=%s)", ErrProofModeEpilogue, ctx.PC,
				ctx.AP, ctx.FP, p.finalPC, p.initialFP)
		}
		//
		p.finalizeSegments()
	}
	//
	p.ended = true
	//
	log.Debugf("run ended after %d steps, segment sizes %v", p.machine.CurrentStep(),
		p.segments.ComputeEffectiveSizes())
	//
	return nil
}

// Pad the trace to a power of two steps, repeating until the layout allocates
// sufficient cells.
func (p *CairoRunner) padTrace() error {
	if err := p.RunUntilNextPowerOf2(); err != nil {
		return err
	}
	//
	for {
		err := p.CheckUsedCells()
		//
		if err == nil {
			return nil
		} else if !errors.Is(err, ErrInsufficientAllocatedCells) {
			return err
		}
		//
		log.Debugf("padding trace beyond %d steps (%s)", p.machine.CurrentStep(), err)
		//
		if err := p.RunForSteps(1); err != nil {
			return err
		} else if err := p.RunUntilNextPowerOf2(); err != nil {
			return err
		}
	}
}

// Fix the sizes of the program and execution segments, and of each builtin
// segment (to its allocated size).
func (p *CairoRunner) finalizeSegments() {
	p.segments.Finalize(p.progBase.Segment, uint64(len(p.data)))
	p.segments.Finalize(p.execBase.Segment, p.segments.UsedSize(p.execBase.Segment))
	//
	for _, b := range p.builtins {
		p.segments.Finalize(b.Base().Segment, p.allocatedCells(b))
	}
}

// Number of cells allocated to a builtin for the current number of steps.
// Builtins without a ratio are allocated exactly the cells they use.
func (p *CairoRunner) allocatedCells(b builtin.Runner) uint64 {
	if b.Ratio() == 0 {
		return b.UsedCells(p.segments)
	}
	//
	return p.machine.CurrentStep() / b.Ratio() * b.CellsPerInstance()
}

// CheckUsedCells checks that the layout allocates enough cells for every
// builtin, and enough memory units for the memory used.
func (p *CairoRunner) CheckUsedCells() error {
	var (
		steps        = p.machine.CurrentStep()
		builtinUnits uint64
	)
	//
	for _, b := range p.builtins {
		used := b.UsedCells(p.segments)
		allocated := p.allocatedCells(b)
		//
		if used > allocated {
			return fmt.Errorf("%w: %s uses %d cells, but %d steps allocate %d", ErrInsufficientAllocatedCells,
				b.Name(), used, steps, allocated)
		}
		//
		builtinUnits += allocated
	}
	//
	var (
		total        = p.layout.MemoryUnitsPerStep * steps
		public       = total / p.layout.PublicMemoryFraction
		instructions = 4 * steps
		reserved     = public + instructions + builtinUnits
		holes        = p.MemoryHoles()
	)
	//
	if reserved > total || holes > total-reserved {
		return fmt.Errorf("%w: %d memory holes, %d units of %d reserved", ErrInsufficientAllocatedCells, holes,
			reserved, total)
	}
	//
	return nil
}

// MemoryHoles returns the number of unaccessed cells within the accessed
// segments not owned by builtins.  Builtin cells are paid for through their
// allocated units instead.
func (p *CairoRunner) MemoryHoles() uint64 {
	owned := make([]int, len(p.builtins))
	//
	for i, b := range p.builtins {
		owned[i] = b.Base().Segment
	}
	//
	return p.segments.MemoryHoles(owned...)
}

// ReadReturnValues reads the final builtin pointers returned by main, checking
// each lies within its builtin segment.
func (p *CairoRunner) ReadReturnValues() error {
	if !p.ended {
		return fmt.Errorf("%w: run not ended", ErrRunnerState)
	}
	//
	pointer := p.machine.Context.AP
	//
	for i := len(p.builtins) - 1; i >= 0; i-- {
		var err error
		//
		if pointer, err = p.builtins[i].FinalStack(p.segments, pointer); err != nil {
			return err
		}
	}
	//
	return nil
}

// GetBuiltinsInitialStack returns the pointers passed to main for the builtins
// of the program, in program order.
func (p *CairoRunner) GetBuiltinsInitialStack() []memory.Value {
	var stack []memory.Value
	//
	for _, b := range p.builtins {
		stack = append(stack, b.InitialStack()...)
	}
	//
	return stack
}

// AddSegment allocates a fresh memory segment.
func (p *CairoRunner) AddSegment() (memory.Relocatable, error) {
	if p.segments == nil {
		return memory.Relocatable{}, fmt.Errorf("%w: not initialized", ErrRunnerState)
	}
	//
	return p.segments.Add(), nil
}

// Run executes an initialised program to completion, returning the relocated
// result.
func (p *CairoRunner) Run() (*ExecutionResult, error) {
	if err := p.RunUntilPC(p.finalPC); err != nil {
		return nil, err
	} else if err := p.EndRun(); err != nil {
		return nil, err
	} else if err := p.ReadReturnValues(); err != nil {
		return nil, err
	}
	//
	return p.Relocate()
}

// Run a program under a given configuration.  On failure no result is
// returned.
func Run(prog *program.Program, config Config) (*ExecutionResult, error) {
	runner, err := New(prog, config)
	if err != nil {
		return nil, err
	} else if err := runner.Initialize(); err != nil {
		return nil, err
	}
	//
	return runner.Run()
}
