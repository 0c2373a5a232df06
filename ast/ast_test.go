package ast

import (
	"strings"
	"testing"

	"pl0vm/token"
)

func TestLabelSetOnce(t *testing.T) {
	l := NewLabel()
	if l.IsSet() {
		t.Fatalf("fresh label reports set")
	}
	if err := l.Set(5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := l.Set(6); err == nil {
		t.Fatalf("expected error setting an already-set label")
	}
	addr, err := l.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if addr != 5 {
		t.Fatalf("got %d, want 5", addr)
	}
}

func TestLabelReadBeforeSet(t *testing.T) {
	l := NewLabel()
	if _, err := l.Read(); err == nil {
		t.Fatalf("expected error reading an unset label")
	}
}

func TestUnparseRoundTripsStructure(t *testing.T) {
	pos := token.Pos{File: "t", Line: 1, Column: 1}
	block := &Block{
		BlockPos: pos,
		Consts:   []*ConstDecl{{DeclPos: pos, Name: "n", Value: 3}},
		Vars:     []*VarDecl{{DeclPos: pos, Name: "x"}},
		Stmt: &BeginStmt{
			StmtPos: pos,
			Stmts: []Stmt{
				&AssignStmt{StmtPos: pos, Target: &Ident{IdentPos: pos, Name: "x"}, Value: &Ident{IdentPos: pos, Name: "n"}},
				&WriteStmt{StmtPos: pos, Value: &Ident{IdentPos: pos, Name: "x"}},
			},
		},
	}

	out := Unparse(block)
	for _, want := range []string{"const n = 3;", "var x;", "x := n;", "write x;"} {
		if !strings.Contains(out, want) {
			t.Fatalf("unparse output missing %q, got:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(out), ".") {
		t.Fatalf("unparse output does not end with a period: %q", out)
	}
}
