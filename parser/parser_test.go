package parser

import (
	"strings"
	"testing"

	"pl0vm/ast"
	"pl0vm/lexer"
)

func mustParse(t *testing.T, src string) *ast.Block {
	t.Helper()
	block, err := ParseProgram(lexer.New("t.pl0", src))
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	return block
}

func TestParseMinimalProgram(t *testing.T) {
	block := mustParse(t, "begin skip end.\n")
	if _, ok := block.Stmt.(*ast.BeginStmt); !ok {
		t.Fatalf("got %T, want *ast.BeginStmt", block.Stmt)
	}
}

func TestParseDeclarationsAndProcedure(t *testing.T) {
	src := `
const max = 10;
var x, y;
procedure p;
  var z;
  begin z := 1 end;
begin
  call p
end.
`
	block := mustParse(t, src)
	if len(block.Consts) != 1 || block.Consts[0].Name != "max" || block.Consts[0].Value != 10 {
		t.Fatalf("bad const decl: %+v", block.Consts)
	}
	if len(block.Vars) != 2 || block.Vars[0].Name != "x" || block.Vars[1].Name != "y" {
		t.Fatalf("bad var decls: %+v", block.Vars)
	}
	if len(block.Procs) != 1 || block.Procs[0].Name != "p" {
		t.Fatalf("bad proc decls: %+v", block.Procs)
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	block := mustParse(t, "var x;\nbegin x := 1 + 2 * 3 end.\n")
	assign := block.Stmt.(*ast.BeginStmt).Stmts[0].(*ast.AssignStmt)
	bin, ok := assign.Value.(*ast.BinExpr)
	if !ok || bin.Op != ast.ADD {
		t.Fatalf("expected top-level ADD, got %#v", assign.Value)
	}
	rhs, ok := bin.Right.(*ast.BinExpr)
	if !ok || rhs.Op != ast.MUL {
		t.Fatalf("expected right-hand MUL, got %#v", bin.Right)
	}
}

func TestParseIfWhileCond(t *testing.T) {
	src := "var x;\nbegin\n  if odd x then skip else skip;\n  while x < 10 do x := x + 1\nend.\n"
	block := mustParse(t, src)
	begin := block.Stmt.(*ast.BeginStmt)
	ifStmt, ok := begin.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", begin.Stmts[0])
	}
	if _, ok := ifStmt.Cond.(*ast.OddCond); !ok {
		t.Fatalf("expected OddCond, got %T", ifStmt.Cond)
	}
	if ifStmt.Else == nil {
		t.Fatalf("expected else branch")
	}
	whileStmt, ok := begin.Stmts[1].(*ast.WhileStmt)
	if !ok {
		t.Fatalf("expected WhileStmt, got %T", begin.Stmts[1])
	}
	cond, ok := whileStmt.Cond.(*ast.BinCond)
	if !ok || cond.Op != ast.LT {
		t.Fatalf("expected LT BinCond, got %#v", whileStmt.Cond)
	}
}

func TestParseSyntaxErrorReportsPosition(t *testing.T) {
	_, err := ParseProgram(lexer.New("bad.pl0", "begin x := end.\n"))
	if err == nil {
		t.Fatalf("expected syntax error")
	}
	if !strings.Contains(err.Error(), "bad.pl0: line 1, column 12:") {
		t.Fatalf("error does not report the position of 'end': %v", err)
	}
}
