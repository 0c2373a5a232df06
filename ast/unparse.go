package ast

import (
	"bytes"
	"fmt"
)

// Unparse reconstructs source text for block, the top-level program
// node. The output reparses to an AST equal in structure to the
// input (the "unparse idempotence" property), though not necessarily
// byte-identical to the original source: whitespace and comments are
// not preserved.
func Unparse(block *Block) string {
	var buf bytes.Buffer
	writeBlock(&buf, block, 0)
	buf.WriteString(".\n")
	return buf.String()
}

func indent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}

func writeBlock(buf *bytes.Buffer, b *Block, depth int) {
	for _, c := range b.Consts {
		indent(buf, depth)
		fmt.Fprintf(buf, "const %s = %d;\n", c.Name, c.Value)
	}
	for _, v := range b.Vars {
		indent(buf, depth)
		fmt.Fprintf(buf, "var %s;\n", v.Name)
	}
	for _, p := range b.Procs {
		indent(buf, depth)
		fmt.Fprintf(buf, "procedure %s;\n", p.Name)
		writeBlock(buf, p.Body, depth+1)
		indent(buf, depth)
		buf.WriteString(";\n")
	}
	writeStmt(buf, b.Stmt, depth)
	buf.WriteString("\n")
}

// writeStmt writes s with no trailing ';' or newline: the enclosing
// begin..end writes the ';' that follows each of its statements.
func writeStmt(buf *bytes.Buffer, s Stmt, depth int) {
	indent(buf, depth)
	switch s := s.(type) {
	case *AssignStmt:
		fmt.Fprintf(buf, "%s := ", s.Target.Name)
		writeExpr(buf, s.Value)
	case *CallStmt:
		fmt.Fprintf(buf, "call %s", s.Callee.Name)
	case *BeginStmt:
		buf.WriteString("begin\n")
		for _, inner := range s.Stmts {
			writeStmt(buf, inner, depth+1)
			buf.WriteString(";\n")
		}
		indent(buf, depth)
		buf.WriteString("end")
	case *IfStmt:
		buf.WriteString("if ")
		writeCond(buf, s.Cond)
		buf.WriteString(" then\n")
		writeStmt(buf, s.Then, depth+1)
		if s.Else != nil {
			buf.WriteString("\n")
			indent(buf, depth)
			buf.WriteString("else\n")
			writeStmt(buf, s.Else, depth+1)
		}
	case *WhileStmt:
		buf.WriteString("while ")
		writeCond(buf, s.Cond)
		buf.WriteString(" do\n")
		writeStmt(buf, s.Body, depth+1)
	case *ReadStmt:
		fmt.Fprintf(buf, "read %s", s.Target.Name)
	case *WriteStmt:
		buf.WriteString("write ")
		writeExpr(buf, s.Value)
	case *SkipStmt:
		buf.WriteString("skip")
	default:
		fmt.Fprintf(buf, "/* unknown statement %T */", s)
	}
}

func writeCond(buf *bytes.Buffer, c Cond) {
	switch c := c.(type) {
	case *OddCond:
		buf.WriteString("odd ")
		writeExpr(buf, c.Value)
	case *BinCond:
		writeExpr(buf, c.Left)
		fmt.Fprintf(buf, " %s ", c.Op)
		writeExpr(buf, c.Right)
	}
}

func writeExpr(buf *bytes.Buffer, e Expr) {
	switch e := e.(type) {
	case *BinExpr:
		buf.WriteString("(")
		writeExpr(buf, e.Left)
		fmt.Fprintf(buf, " %s ", e.Op)
		writeExpr(buf, e.Right)
		buf.WriteString(")")
	case *NegExpr:
		buf.WriteString("(-")
		writeExpr(buf, e.Value)
		buf.WriteString(")")
	case *Ident:
		buf.WriteString(e.Name)
	case *Number:
		fmt.Fprintf(buf, "%d", e.Value)
	default:
		fmt.Fprintf(buf, "/* unknown expr %T */", e)
	}
}
