// Package compiler implements the single-pass Pratt compiler of
// spec.md §4.6: one forward pass over the token stream that resolves
// lexical scopes, emits bytecode directly into a Chunk, manages jump
// patching, and builds closure upvalue tables. There is no intermediate
// AST — parsing and code generation are the same pass.
package compiler

import (
	"emo/internal/chunk"
	"emo/internal/errors"
	"emo/internal/heap"
	"emo/internal/object"
	"emo/internal/scanner"
	"emo/internal/value"
)

const (
	maxLocals    = 256
	maxUpvalues  = 256
	maxConstants = 16777216 // 24-bit constant pool ceiling (spec.md §7)
	maxJump      = 65535
)

// FunctionType distinguishes the implicit top-level script function from a
// user-declared `fn`.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeScript
)

// Local is one entry of a Compiler frame's fixed local-variable array.
// Depth -1 marks an uninitialized local: declared but whose initializer
// hasn't finished compiling yet, which is what makes `let x = x;` in the
// same scope a compile error (spec.md §4.6).
type Local struct {
	Name       string
	Depth      int
	IsCaptured bool
}

// upvalueRef is one entry of a Compiler frame's upvalue table.
type upvalueRef struct {
	Index   byte
	IsLocal bool
}

// frame is one Compiler activation: one per nested `fn`, plus one for the
// top-level script.
type frame struct {
	enclosing  *frame
	function   *object.Function
	funcType   FunctionType
	locals     []Local
	upvalues   []upvalueRef
	scopeDepth int
}

func newFrame(enclosing *frame, funcType FunctionType, fn *object.Function) *frame {
	f := &frame{enclosing: enclosing, funcType: funcType, function: fn}
	// Reserved slot 0: the callee itself (or, for the script, unused).
	f.locals = append(f.locals, Local{Name: "", Depth: 0})
	return f
}

// Parser drives the single pass: it owns the token cursor, error/panic
// state, and the live chain of Compiler frames.
type Parser struct {
	sc        *scanner.Scanner
	alloc     *heap.Allocator
	current   scanner.Token
	prev      scanner.Token
	hadError  bool
	panicMode bool
	errs      []*errors.LangError

	cur *frame
}

// Compile runs the whole single-pass compile and returns the top-level
// script Function. On any compile error it returns nil and the first
// reported error, matching spec.md §7's "compiler returns null Function"
// policy.
func Compile(source string, alloc *heap.Allocator) (*object.Function, *errors.LangError) {
	p := &Parser{sc: scanner.New(source), alloc: alloc}
	script := alloc.NewFunction()
	p.cur = newFrame(nil, TypeScript, script)

	p.advance()
	for !p.match(scanner.TokenEOF) {
		p.declaration()
	}
	fn, _ := p.endCompiler()

	if p.hadError {
		return nil, p.errs[0]
	}
	return fn, nil
}

// ---- token stream plumbing ----

func (p *Parser) advance() {
	p.prev = p.current
	for {
		p.current = p.sc.NextToken()
		if p.current.Type != scanner.TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t scanner.TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t scanner.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t scanner.TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *Parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *Parser) error(msg string)          { p.errorAt(p.prev, msg) }

func (p *Parser) errorAt(tok scanner.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errs = append(p.errs, errors.NewCompileError(msg, tok.Line))
}

// synchronize resumes parsing at the next statement boundary after a
// parse error: a semicolon, or a statement-starting keyword.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != scanner.TokenEOF {
		if p.prev.Type == scanner.TokenSemicolon {
			return
		}
		switch p.current.Type {
		case scanner.TokenFn, scanner.TokenLet, scanner.TokenFor,
			scanner.TokenIf, scanner.TokenWhile, scanner.TokenPrint,
			scanner.TokenReturn:
			return
		}
		p.advance()
	}
}

// ---- emission helpers ----

func (p *Parser) chunk() *chunk.Chunk { return p.cur.function.Chunk }

func (p *Parser) emitByte(b byte)        { p.chunk().Write(b, p.prev.Line) }
func (p *Parser) emitOp(op chunk.OpCode) { p.chunk().WriteOp(op, p.prev.Line) }
func (p *Parser) emitOpByte(op chunk.OpCode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

func (p *Parser) emitConstant(v value.Value) {
	if len(p.chunk().Constants) >= maxConstants {
		p.error("Too many constants in one chunk.")
		return
	}
	p.chunk().WriteConstant(v, p.prev.Line)
}

// emitIndexOp emits shortOp with an 8-bit operand when idx fits in a byte,
// otherwise longOp with a 24-bit little-endian operand — the same
// short/long split WriteConstant uses for OP_CONSTANT, applied to any other
// opcode that addresses a constant-pool slot (globals, OP_CLOSURE).
func (p *Parser) emitIndexOp(shortOp, longOp chunk.OpCode, idx int) {
	if idx < 256 {
		p.emitOpByte(shortOp, byte(idx))
		return
	}
	p.emitOp(longOp)
	p.chunk().WriteIndex24(idx, p.prev.Line)
}

// emitJump emits op followed by a two-byte placeholder, returning the
// placeholder's offset for later patching.
func (p *Parser) emitJump(op chunk.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

// patchJump backfills a previously emitted jump's two-byte big-endian
// offset once the target is known.
func (p *Parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > maxJump {
		p.error("Too much code to jump over.")
	}
	p.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	p.chunk().Code[offset+1] = byte(jump & 0xff)
}

// emitLoop emits OP_LOOP with the backward distance to loopStart.
func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(chunk.OpLoop)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > maxJump {
		p.error("Loop body too large.")
	}
	p.emitByte(byte((offset >> 8) & 0xff))
	p.emitByte(byte(offset & 0xff))
}

func (p *Parser) emitReturn() {
	p.emitOp(chunk.OpMeta)
	p.emitOp(chunk.OpReturn)
}

func (p *Parser) makeConstantIndex(v value.Value) int {
	idx := p.chunk().AddConstant(v)
	if idx >= maxConstants {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return idx
}

func (p *Parser) identifierConstant(name string) int {
	s := p.alloc.InternString([]byte(name))
	return p.makeConstantIndex(value.FromObj(s))
}

// endCompiler finishes the current frame: emits the implicit trailing
// return, pops back to the enclosing frame (if any), and returns the
// finished function together with its recorded upvalue table (the
// enclosing frame needs the latter immediately, to emit OP_CLOSURE's
// operand pairs).
func (p *Parser) endCompiler() (*object.Function, []upvalueRef) {
	p.emitReturn()
	fn := p.cur.function
	ups := p.cur.upvalues
	fn.UpvalueCount = len(ups)
	p.cur = p.cur.enclosing
	return fn, ups
}

// ---- scopes ----

func (p *Parser) beginScope() { p.cur.scopeDepth++ }

func (p *Parser) endScope() {
	p.cur.scopeDepth--
	for len(p.cur.locals) > 0 && p.cur.locals[len(p.cur.locals)-1].Depth > p.cur.scopeDepth {
		last := p.cur.locals[len(p.cur.locals)-1]
		if last.IsCaptured {
			p.emitOp(chunk.OpCloseUpvalue)
		} else {
			p.emitOp(chunk.OpPop)
		}
		p.cur.locals = p.cur.locals[:len(p.cur.locals)-1]
	}
}

func (p *Parser) declareVariable(name string) {
	if p.cur.scopeDepth == 0 {
		return
	}
	for i := len(p.cur.locals) - 1; i >= 0; i-- {
		local := p.cur.locals[i]
		if local.Depth != -1 && local.Depth < p.cur.scopeDepth {
			break
		}
		if local.Name == name {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) addLocal(name string) {
	if len(p.cur.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.cur.locals = append(p.cur.locals, Local{Name: name, Depth: -1})
}

func (p *Parser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[len(p.cur.locals)-1].Depth = p.cur.scopeDepth
}

// resolveLocal scans locals from newest to oldest. -2 signals "found, but
// its initializer hasn't finished" — the read-in-own-initializer error.
func resolveLocal(f *frame, name string) int {
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].Name == name {
			if f.locals[i].Depth == -1 {
				return -2
			}
			return i
		}
	}
	return -1
}

func resolveUpvalue(f *frame, name string) int {
	if f.enclosing == nil {
		return -1
	}
	local := resolveLocal(f.enclosing, name)
	if local == -2 {
		return -2
	}
	if local >= 0 {
		f.enclosing.locals[local].IsCaptured = true
		return addUpvalue(f, byte(local), true)
	}
	up := resolveUpvalue(f.enclosing, name)
	if up == -2 {
		return -2
	}
	if up >= 0 {
		return addUpvalue(f, byte(up), false)
	}
	return -1
}

func addUpvalue(f *frame, index byte, isLocal bool) int {
	for i, uv := range f.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(f.upvalues) >= maxUpvalues {
		return 0
	}
	f.upvalues = append(f.upvalues, upvalueRef{Index: index, IsLocal: isLocal})
	return len(f.upvalues) - 1
}

// ---- declarations ----

func (p *Parser) declaration() {
	switch {
	case p.match(scanner.TokenLet):
		p.letDeclaration()
	case p.match(scanner.TokenFn):
		p.fnDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) parseVariable(errMsg string) int {
	p.consume(scanner.TokenIdentifier, errMsg)
	name := p.prev.Lexeme
	p.declareVariable(name)
	if p.cur.scopeDepth > 0 {
		return -1
	}
	return p.identifierConstant(name)
}

func (p *Parser) defineVariable(global int) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitIndexOp(chunk.OpDefineGlobal, chunk.OpDefineGlobalLong, global)
}

func (p *Parser) letDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(scanner.TokenEqual) {
		p.expression()
	} else {
		p.emitOp(chunk.OpMeta)
	}
	p.consume(scanner.TokenSemicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *Parser) fnDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

func (p *Parser) function(funcType FunctionType) {
	fn := p.alloc.NewFunction()
	name := p.prev.Lexeme
	fn.Name = p.alloc.InternString([]byte(name), value.FromObj(fn))
	enclosing := p.cur
	p.cur = newFrame(enclosing, funcType, fn)
	p.beginScope()

	p.consume(scanner.TokenLeftParen, "Expect '(' after function name.")
	if !p.check(scanner.TokenRightParen) {
		for {
			fn.Arity++
			if fn.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := p.parseVariable("Expect parameter name.")
			p.defineVariable(paramConst)
			if !p.match(scanner.TokenComma) {
				break
			}
		}
	}
	p.consume(scanner.TokenRightParen, "Expect ')' after parameters.")
	p.consume(scanner.TokenLeftBrace, "Expect '{' before function body.")
	p.block()

	compiled, ups := p.endCompiler()
	idx := p.makeConstantIndex(value.FromObj(compiled))
	p.emitIndexOp(chunk.OpClosure, chunk.OpClosureLong, idx)
	for _, uv := range ups {
		if uv.IsLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.Index)
	}
}
