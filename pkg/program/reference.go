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
package program

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// FeltType is the type of an (uncast) reference.
var FeltType = CairoType{"felt", 0}

// CairoType is the type of a reference, such as "felt", "felt*" or
// "starkware.cairo.common.uint256.Uint256".
type CairoType struct {
	// Name of the underlying type (e.g. "felt").
	Name string
	// Level of pointer indirection.
	Pointers uint
}

// ParseType parses a type as it appears in a compiled program (e.g.
// "felt**").
func ParseType(str string) CairoType {
	str = strings.TrimSpace(str)
	name := strings.TrimRight(str, "*")
	//
	return CairoType{name, uint(len(str) - len(name))}
}

// IsPointer determines whether this is a pointer type.
func (p CairoType) IsPointer() bool {
	return p.Pointers > 0
}

// IsFelt determines whether this is exactly the felt type.
func (p CairoType) IsFelt() bool {
	return p.Name == "felt" && p.Pointers == 0
}

// Deref returns the type obtained by dereferencing this type (or this type
// unchanged when it is not a pointer).
func (p CairoType) Deref() CairoType {
	if p.Pointers > 0 {
		return CairoType{p.Name, p.Pointers - 1}
	}
	//
	return p
}

func (p CairoType) String() string {
	return p.Name + strings.Repeat("*", int(p.Pointers))
}

// Expr is an expression appearing in a reference.  References describe the
// location of a variable in terms of the ap and fp registers.
type Expr interface {
	fmt.Stringer
	// UsesAP determines whether this expression is (partly) relative to ap.
	UsesAP() bool
}

// Constant is an integer constant.
type Constant struct{ Value *big.Int }

// Register is either "ap" or "fp".
type Register struct{ Name string }

// Deref reads the value at the address given by its argument.
type Deref struct{ Arg Expr }

// Add is the sum of two expressions.
type Add struct{ Lhs, Rhs Expr }

// Mul is the product of two expressions.
type Mul struct{ Lhs, Rhs Expr }

// Neg is the negation of an expression.
type Neg struct{ Arg Expr }

// Cast assigns a type to an expression.
type Cast struct {
	Arg  Expr
	Type CairoType
}

// UsesAP implementation for Expr interface.
func (p *Constant) UsesAP() bool { return false }

// UsesAP implementation for Expr interface.
func (p *Register) UsesAP() bool { return p.Name == "ap" }

// UsesAP implementation for Expr interface.
func (p *Deref) UsesAP() bool { return p.Arg.UsesAP() }

// UsesAP implementation for Expr interface.
func (p *Add) UsesAP() bool { return p.Lhs.UsesAP() || p.Rhs.UsesAP() }

// UsesAP implementation for Expr interface.
func (p *Mul) UsesAP() bool { return p.Lhs.UsesAP() || p.Rhs.UsesAP() }

// UsesAP implementation for Expr interface.
func (p *Neg) UsesAP() bool { return p.Arg.UsesAP() }

// UsesAP implementation for Expr interface.
func (p *Cast) UsesAP() bool { return p.Arg.UsesAP() }

func (p *Constant) String() string { return p.Value.String() }

func (p *Register) String() string { return p.Name }

func (p *Deref) String() string { return fmt.Sprintf("[%s]", p.Arg) }

func (p *Add) String() string { return fmt.Sprintf("%s + %s", p.Lhs, p.Rhs) }

func (p *Mul) String() string { return fmt.Sprintf("%s * %s", p.Lhs, p.Rhs) }

func (p *Neg) String() string { return fmt.Sprintf("(-%s)", p.Arg) }

func (p *Cast) String() string { return fmt.Sprintf("cast(%s, %s)", p.Arg, p.Type) }

// ParsedReference is a reference whose value has been parsed.
type ParsedReference struct {
	// Expression giving the value of the reference.
	Value Expr
	// Type of the value.
	Type CairoType
}

// Address returns the expression giving the address at which the value of
// this reference is held, or false if the reference is not held in memory
// (e.g. "cast(fp + 1, felt*)").
func (p ParsedReference) Address() (Expr, bool) {
	if deref, ok := p.Value.(*Deref); ok {
		return deref.Arg, true
	}
	//
	return nil, false
}

// ParseReference parses the value of a reference, such as
// "[cast(fp + (-3), felt*)]".
func ParseReference(value string) (ParsedReference, error) {
	ast, err := referenceParser.ParseString("", value)
	if err != nil {
		return ParsedReference{}, fmt.Errorf("invalid reference \"%s\": %w", value, err)
	}
	//
	expr, err := ast.translate()
	if err != nil {
		return ParsedReference{}, fmt.Errorf("invalid reference \"%s\": %w", value, err)
	}
	//
	return ParsedReference{expr, typeOf(expr)}, nil
}

func typeOf(expr Expr) CairoType {
	switch e := expr.(type) {
	case *Cast:
		return e.Type
	case *Deref:
		if cast, ok := e.Arg.(*Cast); ok {
			return cast.Type.Deref()
		}
	}
	//
	return FeltType
}

// ============================================================================
// Grammar
// ============================================================================

type refExpr struct {
	Head *refProduct   `parser:"@@"`
	Tail []*refAddTail `parser:"@@*"`
}

type refAddTail struct {
	Operator string      `parser:"@(\"+\" | \"-\")"`
	Operand  *refProduct `parser:"@@"`
}

type refProduct struct {
	Head *refTerm   `parser:"@@"`
	Tail []*refTerm `parser:"(\"*\" @@)*"`
}

type refTerm struct {
	Deref    *refExpr `parser:"  \"[\" @@ \"]\""`
	Cast     *refCast `parser:"| @@"`
	Group    *refExpr `parser:"| \"(\" @@ \")\""`
	Neg      *refTerm `parser:"| \"-\" @@"`
	Register *string  `parser:"| @(\"ap\" | \"fp\")"`
	Int      *string  `parser:"| @Int"`
}

type refCast struct {
	Arg  *refExpr `parser:"\"cast\" \"(\" @@ \",\""`
	Type *refType `parser:"@@ \")\""`
}

type refType struct {
	Name  []string `parser:"@Ident (\".\" @Ident)*"`
	Stars []string `parser:"@\"*\"*"`
}

var referenceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Int", Pattern: `0x[0-9a-fA-F]+|[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[-+*\[\](),.]`},
})

var referenceParser = participle.MustBuild[refExpr](
	participle.Lexer(referenceLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

func (p *refExpr) translate() (Expr, error) {
	expr, err := p.Head.translate()
	if err != nil {
		return nil, err
	}
	//
	for _, tail := range p.Tail {
		operand, err := tail.Operand.translate()
		if err != nil {
			return nil, err
		} else if tail.Operator == "-" {
			operand = &Neg{operand}
		}
		//
		expr = &Add{expr, operand}
	}
	//
	return expr, nil
}

func (p *refProduct) translate() (Expr, error) {
	expr, err := p.Head.translate()
	if err != nil {
		return nil, err
	}
	//
	for _, tail := range p.Tail {
		operand, err := tail.translate()
		if err != nil {
			return nil, err
		}
		//
		expr = &Mul{expr, operand}
	}
	//
	return expr, nil
}

func (p *refTerm) translate() (Expr, error) {
	switch {
	case p.Deref != nil:
		arg, err := p.Deref.translate()
		if err != nil {
			return nil, err
		}
		//
		return &Deref{arg}, nil
	case p.Cast != nil:
		arg, err := p.Cast.Arg.translate()
		if err != nil {
			return nil, err
		}
		//
		name := strings.Join(p.Cast.Type.Name, ".")
		//
		return &Cast{arg, CairoType{name, uint(len(p.Cast.Type.Stars))}}, nil
	case p.Group != nil:
		return p.Group.translate()
	case p.Neg != nil:
		arg, err := p.Neg.translate()
		if err != nil {
			return nil, err
		}
		// Fold negative constants
		if c, ok := arg.(*Constant); ok {
			return &Constant{new(big.Int).Neg(c.Value)}, nil
		}
		//
		return &Neg{arg}, nil
	case p.Register != nil:
		return &Register{*p.Register}, nil
	case p.Int != nil:
		val, ok := new(big.Int).SetString(*p.Int, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %s", *p.Int)
		}
		//
		return &Constant{val}, nil
	}
	//
	return nil, fmt.Errorf("empty term")
}
