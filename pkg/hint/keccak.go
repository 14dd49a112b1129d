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
	"math/big"

	"golang.org/x/crypto/sha3"
)

// UnsafeKeccak computes the keccak256 hash of an array of 16-byte words.
const UnsafeKeccak = "from eth_hash.auto import keccak\n\n" +
	"data, length = ids.data, ids.length\n\n" +
	"if '__keccak_max_size' in globals():\n" +
	"    assert length <= __keccak_max_size, \\\n" +
	"        f'unsafe_keccak() can only be used with length<={__keccak_max_size}. ' \\\n" +
	"        f'Got: length={length}.'\n\n" +
	"keccak_input = bytearray()\n" +
	"for word_i, byte_i in enumerate(range(0, length, 16)):\n" +
	"    word = memory[data + word_i]\n" +
	"    n_bytes = min(16, length - byte_i)\n" +
	"    assert 0 <= word < 2 ** (8 * n_bytes)\n" +
	"    keccak_input += word.to_bytes(n_bytes, 'big')\n\n" +
	"hashed = keccak(keccak_input)\n" +
	"ids.high = int.from_bytes(hashed[:16], 'big')\n" +
	"ids.low = int.from_bytes(hashed[16:32], 'big')"

const keccakMaxSize = "__keccak_max_size"

func init() {
	define(unsafeKeccak, UnsafeKeccak)
}

func unsafeKeccak(ctx *Context) error {
	data, err := ctx.Ids.GetRelocatable("data")
	if err != nil {
		return err
	}
	//
	length, err := ctx.Ids.GetUint64("length")
	if err != nil {
		return err
	}
	//
	if ctx.Scopes.Has(keccakMaxSize) {
		limit, err := bigScopeValue(ctx.Scopes, keccakMaxSize)
		if err != nil {
			return err
		} else if new(big.Int).SetUint64(length).Cmp(limit) > 0 {
			return fmt.Errorf("unsafe_keccak() can only be used with length<=%s. Got: length=%d.", limit, length)
		}
	}
	//
	input := make([]byte, 0, length)
	//
	for i, offset := uint64(0), uint64(0); offset < length; i, offset = i+1, offset+16 {
		word, err := ctx.Memory().GetFelt(data.Add(i))
		if err != nil {
			return err
		}
		//
		nBytes := min(16, length-offset)
		value := word.BigInt()
		//
		if value.BitLen() > int(8*nBytes) {
			return assertf("word %s exceeds %d bytes", value, nBytes)
		}
		//
		input = append(input, value.FillBytes(make([]byte, nBytes))...)
	}
	//
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(input)
	hashed := hasher.Sum(nil)
	//
	if err := ctx.Ids.SetBig("high", new(big.Int).SetBytes(hashed[:16])); err != nil {
		return err
	}
	//
	return ctx.Ids.SetBig("low", new(big.Int).SetBytes(hashed[16:32]))
}
