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
	"errors"
	"fmt"
	"strings"

	"github.com/consensys/go-cairo/pkg/vm"
)

// ErrHint identifies all errors arising from the execution of a hint.
var ErrHint = errors.New("hint error")

// ErrUnknownHint indicates a hint whose code is not in the registry.
var ErrUnknownHint = errors.New("unknown hint")

// ErrExitMainScope indicates an attempt to exit the main scope.
var ErrExitMainScope = errors.New("cannot exit main scope")

// ErrUnknownIdentifier indicates a hint referring to an identifier which is
// not visible from it.
var ErrUnknownIdentifier = errors.New("unknown identifier")

// ErrScopeVariable indicates a missing (or mistyped) scope variable.
var ErrScopeVariable = errors.New("invalid scope variable")

// Error is returned for any failure during the execution of a hint.  It
// carries the hint's code and a human-readable message.
type Error struct {
	// Code of the failing hint
	Code string
	// Description of the failure
	Message string
	// Underlying cause (if any)
	Err error
}

func (e *Error) Error() string {
	// Only the first line of the code is reported.
	code, _, _ := strings.Cut(e.Code, "\n")
	//
	return fmt.Sprintf("hint error (%s): %s", code, e.Message)
}

// Is allows errors.Is(err, ErrHint) to identify hint errors.
func (e *Error) Is(target error) bool {
	return target == ErrHint
}

func (e *Error) Unwrap() error {
	return e.Err
}

// assertf constructs an error for a failed assertion within a hint.  Such
// errors are identified by vm.ErrAssertionFailed.
func assertf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", vm.ErrAssertionFailed, fmt.Sprintf(format, args...))
}
