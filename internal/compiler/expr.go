package compiler

import (
	"strconv"

	"emo/internal/chunk"
	"emo/internal/scanner"
	"emo/internal/value"
)

// Precedence is the Pratt ladder of spec.md §4.6, low to high. PrecIndices
// sits between PrecFactor and PrecUnary to give `**` tighter binding than
// `* /` but looser than unary `-`/`not`.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment       // =
	PrecOr               // or
	PrecAnd              // and
	PrecEquality         // == !=
	PrecComparison       // < <= > >=
	PrecTerm             // + -
	PrecFactor           // * / %
	PrecIndices          // **
	PrecUnary            // not, unary -
	PrecCall             // ()
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules maps every token kind to its {prefix, infix, precedence} triple.
// Open question (a): `and` is wired symmetrically with `or`. Open question
// (b): there is exactly one EQUALITY-precedence row for `!=`, no duplicate.
var rules map[scanner.TokenType]rule

func init() {
	rules = map[scanner.TokenType]rule{
		scanner.TokenLeftParen:    {grouping, call, PrecCall},
		scanner.TokenMinus:        {unary, binary, PrecTerm},
		scanner.TokenPlus:         {nil, binary, PrecTerm},
		scanner.TokenSlash:        {nil, binary, PrecFactor},
		scanner.TokenStar:         {nil, binary, PrecFactor},
		scanner.TokenPercent:      {nil, binary, PrecFactor},
		scanner.TokenStarStar:     {nil, binary, PrecIndices},
		scanner.TokenBangEqual:    {nil, binary, PrecEquality},
		scanner.TokenEqualEqual:   {nil, binary, PrecEquality},
		scanner.TokenGreater:      {nil, binary, PrecComparison},
		scanner.TokenGreaterEqual: {nil, binary, PrecComparison},
		scanner.TokenLess:         {nil, binary, PrecComparison},
		scanner.TokenLessEqual:    {nil, binary, PrecComparison},
		scanner.TokenIdentifier:   {variable, nil, PrecNone},
		scanner.TokenString:       {stringLit, nil, PrecNone},
		scanner.TokenNumber:       {number, nil, PrecNone},
		scanner.TokenAnd:          {nil, and_, PrecAnd},
		scanner.TokenOr:           {nil, or_, PrecOr},
		scanner.TokenNot:          {unary, nil, PrecNone},
		scanner.TokenFn:           {fnExpr, nil, PrecNone},
		scanner.TokenFalse:        {literal, nil, PrecNone},
		scanner.TokenTrue:         {literal, nil, PrecNone},
	}
}

func getRule(t scanner.TokenType) rule {
	if r, ok := rules[t]; ok {
		return r
	}
	return rule{precedence: PrecNone}
}

func (p *Parser) expression() {
	p.parsePrecedence(PrecAssignment)
}

// parsePrecedence is the heart of the Pratt parser: advance, dispatch the
// prefix rule for the token just consumed with canAssign = p <=
// PrecAssignment, then keep consuming infix operators whose precedence is
// at least `precedence`.
func (p *Parser) parsePrecedence(precedence Precedence) {
	p.advance()
	prefixRule := getRule(p.prev.Type).prefix
	if prefixRule == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := precedence <= PrecAssignment
	prefixRule(p, canAssign)

	for precedence <= getRule(p.current.Type).precedence {
		p.advance()
		infixRule := getRule(p.prev.Type).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(scanner.TokenEqual) {
		p.error("Invalid assignment target.")
	}
}

func number(p *Parser, _ bool) {
	n, _ := strconv.ParseFloat(p.prev.Lexeme, 64)
	p.emitConstant(value.Number(n))
}

func stringLit(p *Parser, _ bool) {
	raw := p.prev.Lexeme
	s := p.alloc.InternString([]byte(raw[1 : len(raw)-1]))
	p.emitConstant(value.FromObj(s))
}

func literal(p *Parser, _ bool) {
	switch p.prev.Type {
	case scanner.TokenFalse:
		p.emitOp(chunk.OpFalse)
	case scanner.TokenTrue:
		p.emitOp(chunk.OpTrue)
	}
}

func grouping(p *Parser, _ bool) {
	p.expression()
	p.consume(scanner.TokenRightParen, "Expect ')' after expression.")
}

// unary lowers `not x` to OP_NOT and unary `-x` to OP_NEGATE.
func unary(p *Parser, _ bool) {
	opType := p.prev.Type
	p.parsePrecedence(PrecUnary)
	switch opType {
	case scanner.TokenMinus:
		p.emitOp(chunk.OpNegate)
	case scanner.TokenNot:
		p.emitOp(chunk.OpNot)
	}
}

// binary lowers the arithmetic, comparison, and equality operators per
// spec.md §4.6's operator-lowering table.
func binary(p *Parser, _ bool) {
	opType := p.prev.Type
	r := getRule(opType)
	p.parsePrecedence(r.precedence + 1)

	switch opType {
	case scanner.TokenPlus:
		p.emitOp(chunk.OpAdd)
	case scanner.TokenMinus:
		p.emitOp(chunk.OpSubtract)
	case scanner.TokenStar:
		p.emitOp(chunk.OpMultiply)
	case scanner.TokenSlash:
		p.emitOp(chunk.OpDivide)
	case scanner.TokenPercent:
		p.emitOp(chunk.OpModulo)
	case scanner.TokenStarStar:
		p.emitOp(chunk.OpPow)
	case scanner.TokenEqualEqual:
		p.emitOp(chunk.OpEqual)
	case scanner.TokenBangEqual:
		p.emitOp(chunk.OpEqual)
		p.emitOp(chunk.OpNot)
	case scanner.TokenGreater:
		p.emitOp(chunk.OpGreater)
	case scanner.TokenGreaterEqual:
		p.emitOp(chunk.OpLess)
		p.emitOp(chunk.OpNot)
	case scanner.TokenLess:
		p.emitOp(chunk.OpLess)
	case scanner.TokenLessEqual:
		p.emitOp(chunk.OpGreater)
		p.emitOp(chunk.OpNot)
	}
}

// and_ short-circuits symmetrically to or_ (open question (a)): if the
// left operand is falsey, jump past the right operand, leaving the falsey
// value as the result; otherwise pop it and evaluate the right side.
func and_(p *Parser, _ bool) {
	endJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

// or_ implements `a or b`: jump-if-false to consume (pop the falsey left
// value and evaluate the right side), otherwise jump over that to short
// circuit with the truthy left value still on the stack.
func or_(p *Parser, _ bool) {
	elseJump := p.emitJump(chunk.OpJumpIfFalse)
	endJump := p.emitJump(chunk.OpJump)

	p.patchJump(elseJump)
	p.emitOp(chunk.OpPop)

	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

// fnExpr compiles an anonymous `fn(params) { body }` expression, leaving
// the resulting closure on the stack.
func fnExpr(p *Parser, _ bool) {
	p.function(TypeFunction)
}

func call(p *Parser, _ bool) {
	argCount := p.argumentList()
	p.emitOpByte(chunk.OpCall, byte(argCount))
}

func (p *Parser) argumentList() int {
	argCount := 0
	if !p.check(scanner.TokenRightParen) {
		for {
			p.expression()
			if argCount == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !p.match(scanner.TokenComma) {
				break
			}
		}
	}
	p.consume(scanner.TokenRightParen, "Expect ')' after arguments.")
	return argCount
}

func variable(p *Parser, canAssign bool) {
	namedVariable(p, p.prev.Lexeme, canAssign)
}

// namedVariable resolves name against locals, then upvalues, then falls
// back to a global, emitting the matching get/set opcode.
func namedVariable(p *Parser, name string, canAssign bool) {
	var getOp, setOp, getLongOp, setLongOp chunk.OpCode
	isGlobal := false
	arg := resolveLocal(p.cur, name)
	switch {
	case arg == -2:
		p.error("Cannot read local variable in its own initializer.")
		arg = 0
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	case arg != -1:
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	default:
		arg = resolveUpvalue(p.cur, name)
		switch {
		case arg == -2:
			p.error("Cannot read local variable in its own initializer.")
			arg = 0
			getOp, setOp = chunk.OpGetUpvalue, chunk.OpSetUpvalue
		case arg != -1:
			getOp, setOp = chunk.OpGetUpvalue, chunk.OpSetUpvalue
		default:
			arg = p.identifierConstant(name)
			isGlobal = true
			getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
			getLongOp, setLongOp = chunk.OpGetGlobalLong, chunk.OpSetGlobalLong
		}
	}

	// Locals and upvalues are stack/upvalue-array slots capped at maxLocals/
	// maxUpvalues (256), so they always fit the short 8-bit operand. Only
	// globals index the constant pool, which can grow past 256 entries and
	// needs the "_LONG" 24-bit form.
	if canAssign && p.match(scanner.TokenEqual) {
		p.expression()
		if isGlobal {
			p.emitIndexOp(setOp, setLongOp, arg)
		} else {
			p.emitOpByte(setOp, byte(arg))
		}
	} else {
		if isGlobal {
			p.emitIndexOp(getOp, getLongOp, arg)
		} else {
			p.emitOpByte(getOp, byte(arg))
		}
	}
}
