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
	"fmt"

	"github.com/consensys/go-cairo/pkg/vm/builtin"
)

// VerifyEcdsaSignature registers a signature with the ecdsa builtin, so that
// the builtin can later verify the public key and message stored at the
// given address.
const VerifyEcdsaSignature = "ecdsa_builtin.add_signature(ids.ecdsa_ptr.address_, (ids.signature_r, ids.signature_s))"

func init() {
	define(verifyEcdsaSignature, VerifyEcdsaSignature)
}

func verifyEcdsaSignature(ctx *Context) error {
	runner, ok := ctx.Builtin(builtin.SignatureName)
	if !ok {
		return fmt.Errorf("%s builtin not present in layout", builtin.SignatureName)
	}
	//
	ecdsa, ok := runner.(*builtin.Signature)
	if !ok {
		return fmt.Errorf("unexpected %s builtin runner %T", builtin.SignatureName, runner)
	}
	//
	addr, err := ctx.Ids.GetRelocatable("ecdsa_ptr")
	if err != nil {
		return err
	}
	//
	r, err := ctx.Ids.GetFelt("signature_r")
	if err != nil {
		return err
	}
	//
	s, err := ctx.Ids.GetFelt("signature_s")
	if err != nil {
		return err
	}
	//
	return ecdsa.AddSignature(addr, r, s)
}
