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
package memory

import "errors"

// ErrUnknownMemoryCell indicates a read from a cell which has not been written.
var ErrUnknownMemoryCell = errors.New("unknown memory cell")

// ErrInconsistentMemory indicates an attempt to overwrite a cell with a
// different value.
var ErrInconsistentMemory = errors.New("inconsistent memory")

// ErrUnallocatedSegment indicates an access to a segment which does not exist.
var ErrUnallocatedSegment = errors.New("unallocated segment")

// ErrExpectedFelt indicates that a field element was expected, but a pointer was
// found.
var ErrExpectedFelt = errors.New("expected field element")

// ErrExpectedRelocatable indicates that a pointer was expected, but a field
// element was found.
var ErrExpectedRelocatable = errors.New("expected relocatable")

// ErrPointerArithmetic indicates an arithmetic operation which is not defined
// for pointers (e.g. adding two pointers, or multiplying a pointer).
var ErrPointerArithmetic = errors.New("invalid pointer arithmetic")

// ErrOffsetOverflow indicates pointer arithmetic which produces an offset
// outside the addressable range of a segment.
var ErrOffsetOverflow = errors.New("offset out of range")

// ErrValidation indicates that a value written into a segment violates the
// validation rule registered for that segment.
var ErrValidation = errors.New("memory validation failed")

// ErrTemporarySegment indicates a temporary segment which could not be
// relocated, either because it has no relocation rule or because it is
// referenced after relocation.
var ErrTemporarySegment = errors.New("unrelocated temporary segment")

// ErrDuplicateRelocation indicates that a relocation rule was added twice for
// the same temporary segment.
var ErrDuplicateRelocation = errors.New("duplicate relocation rule")
