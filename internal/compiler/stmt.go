package compiler

import (
	"emo/internal/chunk"
	"emo/internal/scanner"
)

func (p *Parser) statement() {
	switch {
	case p.match(scanner.TokenPrint):
		p.printStatement()
	case p.match(scanner.TokenIf):
		p.ifStatement()
	case p.match(scanner.TokenWhile):
		p.whileStatement()
	case p.match(scanner.TokenFor):
		p.forStatement()
	case p.match(scanner.TokenReturn):
		p.returnStatement()
	case p.match(scanner.TokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(scanner.TokenRightBrace) && !p.check(scanner.TokenEOF) {
		p.declaration()
	}
	p.consume(scanner.TokenRightBrace, "Expect '}' after block.")
}

func (p *Parser) printStatement() {
	p.consume(scanner.TokenLeftParen, "Expect '(' after 'print'.")
	p.expression()
	p.consume(scanner.TokenRightParen, "Expect ')' after value.")
	p.consume(scanner.TokenSemicolon, "Expect ';' after value.")
	p.emitOp(chunk.OpPrint)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(scanner.TokenSemicolon, "Expect ';' after expression.")
	p.emitOp(chunk.OpPop)
}

func (p *Parser) returnStatement() {
	if p.cur.funcType == TypeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(scanner.TokenSemicolon) {
		p.emitReturn()
		return
	}
	p.expression()
	p.consume(scanner.TokenSemicolon, "Expect ';' after return value.")
	p.emitOp(chunk.OpReturn)
}

func (p *Parser) ifStatement() {
	p.consume(scanner.TokenLeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(scanner.TokenRightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()

	elseJump := p.emitJump(chunk.OpJump)
	p.patchJump(thenJump)
	p.emitOp(chunk.OpPop)

	if p.match(scanner.TokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(scanner.TokenLeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(scanner.TokenRightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(chunk.OpPop)
}

// forStatement lowers `for (init; cond; incr) body` per spec.md §4.6. When
// the initializer declares a local loop variable, the body runs inside an
// extra per-iteration scope that copies the variable into a fresh local
// before the body executes and copies it back out before the increment —
// this is what makes a closure created in the body capture a distinct
// binding on every iteration instead of the one shared outer slot.
func (p *Parser) forStatement() {
	p.consume(scanner.TokenLeftParen, "Expect '(' after 'for'.")
	p.beginScope()

	loopVarName := ""
	hasLoopVar := false
	switch {
	case p.match(scanner.TokenSemicolon):
		// no initializer
	case p.match(scanner.TokenLet):
		p.consume(scanner.TokenIdentifier, "Expect variable name.")
		loopVarName = p.prev.Lexeme
		p.declareVariable(loopVarName)
		if p.match(scanner.TokenEqual) {
			p.expression()
		} else {
			p.emitOp(chunk.OpMeta)
		}
		p.consume(scanner.TokenSemicolon, "Expect ';' after loop initializer.")
		p.markInitialized()
		hasLoopVar = true
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.check(scanner.TokenSemicolon) {
		p.expression()
		exitJump = p.emitJump(chunk.OpJumpIfFalse)
		p.emitOp(chunk.OpPop)
	}
	p.consume(scanner.TokenSemicolon, "Expect ';' after loop condition.")

	if !p.check(scanner.TokenRightParen) {
		bodyJump := p.emitJump(chunk.OpJump)
		incrementStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(chunk.OpPop)
		p.consume(scanner.TokenRightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	} else {
		p.consume(scanner.TokenRightParen, "Expect ')' after for clauses.")
	}

	outerSlot := len(p.cur.locals) - 1
	if hasLoopVar {
		p.beginScope()
		p.emitOpByte(chunk.OpGetLocal, byte(outerSlot))
		p.addLocal(loopVarName)
		p.markInitialized()
		innerSlot := len(p.cur.locals) - 1

		p.statement()

		p.emitOpByte(chunk.OpGetLocal, byte(innerSlot))
		p.emitOpByte(chunk.OpSetLocal, byte(outerSlot))
		p.emitOp(chunk.OpPop)
		p.endScope()
	} else {
		p.statement()
	}

	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(chunk.OpPop)
	}
	p.endScope()
}
