// Package parser builds an *ast.Block directly from a token stream,
// with no intermediate parse tree: one method per grammar production,
// recursive descent, reporting the first syntax error fatally with
// source position.
package parser

import (
	"fmt"
	"strconv"

	"pl0vm/ast"
	"pl0vm/lexer"
	"pl0vm/token"
)

// Parser consumes tokens from a Lexer one at a time, keeping the
// current and next token buffered for single-token lookahead.
type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token

	err error
}

// New constructs a Parser reading from l and primes the lookahead
// buffer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

// ParseProgram parses a full program: "block .". It returns the first
// syntax error encountered, matching the fatal-at-first-diagnostic
// policy; parsing does not attempt to recover and continue.
func ParseProgram(l *lexer.Lexer) (*ast.Block, error) {
	p := New(l)
	block := p.parseBlock()
	if p.err != nil {
		return nil, p.err
	}
	if !p.expect(token.PERIOD) {
		return nil, p.err
	}
	if p.cur.Kind != token.EOF {
		return nil, p.errorf("unexpected trailing input after '.'")
	}
	return block, nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	if p.err == nil {
		p.err = fmt.Errorf("%s: line %d, column %d: %s",
			p.cur.Pos.File, p.cur.Pos.Line, p.cur.Pos.Column, fmt.Sprintf(format, args...))
	}
	return p.err
}

func (p *Parser) failed() bool { return p.err != nil }

// expect consumes the current token if it is of kind k, else records
// a syntax error and returns false.
func (p *Parser) expect(k token.Kind) bool {
	if p.failed() {
		return false
	}
	if p.cur.Kind != k {
		p.errorf("expected %s, got %s (%q)", k, p.cur.Kind, p.cur.Literal)
		return false
	}
	p.next()
	return true
}

func (p *Parser) parseBlock() *ast.Block {
	if p.failed() {
		return nil
	}
	b := &ast.Block{BlockPos: p.cur.Pos}

	for p.cur.Kind == token.CONST {
		b.Consts = append(b.Consts, p.parseConstDecl()...)
		if p.failed() {
			return b
		}
	}
	for p.cur.Kind == token.VAR {
		b.Vars = append(b.Vars, p.parseVarDecl()...)
		if p.failed() {
			return b
		}
	}
	for p.cur.Kind == token.PROCEDURE {
		b.Procs = append(b.Procs, p.parseProcDecl())
		if p.failed() {
			return b
		}
	}

	b.Stmt = p.parseStmt()
	return b
}

func (p *Parser) parseConstDecl() []*ast.ConstDecl {
	p.next() // 'const'
	var decls []*ast.ConstDecl
	for {
		pos := p.cur.Pos
		d := &ast.ConstDecl{DeclPos: pos}
		if p.cur.Kind != token.IDENT {
			p.errorf("expected identifier in const declaration, got %s", p.cur.Kind)
			return append(decls, d)
		}
		d.Name = p.cur.Literal
		p.next()
		if !p.expect(token.EQ) {
			return append(decls, d)
		}
		neg := false
		if p.cur.Kind == token.MINUS {
			neg = true
			p.next()
		}
		if p.cur.Kind != token.NUMBER {
			p.errorf("expected number in const declaration, got %s", p.cur.Kind)
			return append(decls, d)
		}
		n, err := strconv.ParseInt(p.cur.Literal, 10, 16)
		if err != nil {
			p.errorf("invalid constant value %q", p.cur.Literal)
			return append(decls, d)
		}
		if neg {
			n = -n
		}
		d.Value = int16(n)
		p.next()
		decls = append(decls, d)
		if p.cur.Kind != token.COMMA {
			break
		}
		p.next()
	}
	p.expect(token.SEMICOLON)
	return decls
}

func (p *Parser) parseVarDecl() []*ast.VarDecl {
	p.next() // 'var'
	var decls []*ast.VarDecl
	for {
		pos := p.cur.Pos
		d := &ast.VarDecl{DeclPos: pos}
		if p.cur.Kind != token.IDENT {
			p.errorf("expected identifier in var declaration, got %s", p.cur.Kind)
			return append(decls, d)
		}
		d.Name = p.cur.Literal
		p.next()
		decls = append(decls, d)
		if p.cur.Kind != token.COMMA {
			break
		}
		p.next()
	}
	p.expect(token.SEMICOLON)
	return decls
}

func (p *Parser) parseProcDecl() *ast.ProcDecl {
	pos := p.cur.Pos
	p.next() // 'procedure'
	name := ""
	if p.cur.Kind != token.IDENT {
		p.errorf("expected identifier after 'procedure', got %s", p.cur.Kind)
	} else {
		name = p.cur.Literal
		p.next()
	}
	p.expect(token.SEMICOLON)
	body := p.parseBlock()
	p.expect(token.SEMICOLON)
	return ast.NewProcDecl(pos, name, body)
}

func (p *Parser) parseStmt() ast.Stmt {
	if p.failed() {
		return nil
	}
	switch p.cur.Kind {
	case token.IDENT:
		return p.parseAssignStmt()
	case token.CALL:
		return p.parseCallStmt()
	case token.BEGIN:
		return p.parseBeginStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.READ:
		return p.parseReadStmt()
	case token.WRITE:
		return p.parseWriteStmt()
	case token.SKIP:
		pos := p.cur.Pos
		p.next()
		return &ast.SkipStmt{StmtPos: pos}
	default:
		p.errorf("unexpected token %s (%q) at start of statement", p.cur.Kind, p.cur.Literal)
		return nil
	}
}

func (p *Parser) parseAssignStmt() ast.Stmt {
	pos := p.cur.Pos
	target := &ast.Ident{IdentPos: pos, Name: p.cur.Literal}
	p.next()
	if !p.expect(token.ASSIGN) {
		return &ast.AssignStmt{StmtPos: pos, Target: target}
	}
	value := p.parseExpr()
	return &ast.AssignStmt{StmtPos: pos, Target: target, Value: value}
}

func (p *Parser) parseCallStmt() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'call'
	callee := &ast.Ident{IdentPos: p.cur.Pos}
	if p.cur.Kind != token.IDENT {
		p.errorf("expected identifier after 'call', got %s", p.cur.Kind)
		return &ast.CallStmt{StmtPos: pos, Callee: callee}
	}
	callee.Name = p.cur.Literal
	p.next()
	return &ast.CallStmt{StmtPos: pos, Callee: callee}
}

func (p *Parser) parseBeginStmt() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'begin'
	s := &ast.BeginStmt{StmtPos: pos}
	s.Stmts = append(s.Stmts, p.parseStmt())
	for p.cur.Kind == token.SEMICOLON {
		p.next()
		if p.cur.Kind == token.END {
			break
		}
		s.Stmts = append(s.Stmts, p.parseStmt())
		if p.failed() {
			return s
		}
	}
	p.expect(token.END)
	return s
}

func (p *Parser) parseIfStmt() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'if'
	cond := p.parseCond()
	p.expect(token.THEN)
	then := p.parseStmt()
	s := &ast.IfStmt{StmtPos: pos, Cond: cond, Then: then}
	if p.cur.Kind == token.ELSE {
		p.next()
		s.Else = p.parseStmt()
	}
	return s
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'while'
	cond := p.parseCond()
	p.expect(token.DO)
	body := p.parseStmt()
	return &ast.WhileStmt{StmtPos: pos, Cond: cond, Body: body}
}

func (p *Parser) parseReadStmt() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'read'
	target := &ast.Ident{IdentPos: p.cur.Pos}
	if p.cur.Kind != token.IDENT {
		p.errorf("expected identifier after 'read', got %s", p.cur.Kind)
		return &ast.ReadStmt{StmtPos: pos, Target: target}
	}
	target.Name = p.cur.Literal
	p.next()
	return &ast.ReadStmt{StmtPos: pos, Target: target}
}

func (p *Parser) parseWriteStmt() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'write'
	value := p.parseExpr()
	return &ast.WriteStmt{StmtPos: pos, Value: value}
}

func (p *Parser) parseCond() ast.Cond {
	if p.failed() {
		return nil
	}
	pos := p.cur.Pos
	if p.cur.Kind == token.ODD {
		p.next()
		return &ast.OddCond{CondPos: pos, Value: p.parseExpr()}
	}
	left := p.parseExpr()
	op, ok := relOp(p.cur.Kind)
	if !ok {
		p.errorf("expected relational operator, got %s", p.cur.Kind)
		return &ast.BinCond{CondPos: pos, Left: left}
	}
	p.next()
	right := p.parseExpr()
	return &ast.BinCond{CondPos: pos, Left: left, Op: op, Right: right}
}

func relOp(k token.Kind) (ast.RelOp, bool) {
	switch k {
	case token.EQ:
		return ast.EQ, true
	case token.NEQ:
		return ast.NEQ, true
	case token.LT:
		return ast.LT, true
	case token.LEQ:
		return ast.LEQ, true
	case token.GT:
		return ast.GT, true
	case token.GEQ:
		return ast.GEQ, true
	default:
		return 0, false
	}
}

// parseExpr parses "[+|-] term {(+|-) term}".
func (p *Parser) parseExpr() ast.Expr {
	if p.failed() {
		return nil
	}
	pos := p.cur.Pos
	var left ast.Expr
	switch p.cur.Kind {
	case token.MINUS:
		p.next()
		left = &ast.NegExpr{ExprPos: pos, Value: p.parseTerm()}
	case token.PLUS:
		p.next()
		left = p.parseTerm()
	default:
		left = p.parseTerm()
	}
	for p.cur.Kind == token.PLUS || p.cur.Kind == token.MINUS {
		opPos := p.cur.Pos
		op := ast.ADD
		if p.cur.Kind == token.MINUS {
			op = ast.SUB
		}
		p.next()
		right := p.parseTerm()
		left = &ast.BinExpr{ExprPos: opPos, Left: left, Op: op, Right: right}
	}
	return left
}

// parseTerm parses "factor {(*|/) factor}".
func (p *Parser) parseTerm() ast.Expr {
	left := p.parseFactor()
	for p.cur.Kind == token.TIMES || p.cur.Kind == token.SLASH {
		opPos := p.cur.Pos
		op := ast.MUL
		if p.cur.Kind == token.SLASH {
			op = ast.DIV
		}
		p.next()
		right := p.parseFactor()
		left = &ast.BinExpr{ExprPos: opPos, Left: left, Op: op, Right: right}
	}
	return left
}

// parseFactor parses "ident | number | ( expr )".
func (p *Parser) parseFactor() ast.Expr {
	if p.failed() {
		return nil
	}
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.IDENT:
		name := p.cur.Literal
		p.next()
		return &ast.Ident{IdentPos: pos, Name: name}
	case token.NUMBER:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 16)
		if err != nil {
			p.errorf("invalid numeric literal %q", p.cur.Literal)
			return &ast.Number{NumberPos: pos}
		}
		p.next()
		return &ast.Number{NumberPos: pos, Value: int16(n)}
	case token.LPAREN:
		p.next()
		e := p.parseExpr()
		p.expect(token.RPAREN)
		return e
	default:
		p.errorf("unexpected token %s (%q) in expression", p.cur.Kind, p.cur.Literal)
		return &ast.Number{NumberPos: pos}
	}
}
