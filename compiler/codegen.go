package compiler

import (
	"pl0vm/ast"
	"pl0vm/code"
	"pl0vm/diag"
)

// localFixup records a CAL instruction whose target procedure had not
// yet been registered at the point it was emitted. idx is relative to
// the code.Program fragment it was found in; callers merge fragments
// together by offsetting idx as each fragment is appended to a larger
// one, until the fragment's final absolute address is known (at
// procedure registration, or at main's placement after the last
// procedure).
type localFixup struct {
	idx   int
	label *ast.Label
}

// fixup is a localFixup resolved to its absolute index in the final
// assembled program.
type fixup struct {
	idx   code.Address
	label *ast.Label
}

// codegen carries the state threaded through one Compilation's code
// generation pass.
type codegen struct {
	procs  *procHolder
	fixups []fixup
}

func newCodegen() *codegen {
	return &codegen{procs: newProcHolder()}
}

func offsetFixups(fs []localFixup, by int) []localFixup {
	if by == 0 {
		return fs
	}
	out := make([]localFixup, len(fs))
	for i, f := range fs {
		out[i] = localFixup{idx: f.idx + by, label: f.label}
	}
	return out
}

// computeFP emits the instruction sequence that leaves the base
// address of the frame `level` static-link hops outward from the
// current frame on top of the stack. level 0 is the current frame
// itself.
func computeFP(level uint32) code.Program {
	prog := code.Program{{Op: code.PBP}}
	for i := uint32(0); i < level; i++ {
		prog = append(prog, code.Instruction{Op: code.PSI})
	}
	return prog
}

// genBlock generates a block's code: one LIT per const-decl (pushing
// its value; correctness relies on this happening in the same
// sequence the scope analyzer assigned offsets in), one INC 1 per
// var-decl, then the block's single statement. It does not reserve
// the link words or the frame as a whole — callers (genProc for a
// procedure body, Compile for the whole program) each add the INC
// that belongs to their own context. It returns the fixups still
// pending within the returned fragment. Nested procedures are
// generated and registered (with absolute fixups resolved into
// g.fixups) as a side effect.
func (g *codegen) genBlock(block *ast.Block) (code.Program, []localFixup, error) {
	for _, p := range block.Procs {
		if err := g.genProc(p); err != nil {
			return nil, nil, err
		}
	}

	var prog code.Program
	for _, c := range block.Consts {
		prog = append(prog, code.Instruction{Op: code.LIT, M: int(c.Value)})
	}
	for range block.Vars {
		prog = append(prog, code.Instruction{Op: code.INC, M: 1})
	}

	stmtCode, fixups, err := g.genStmt(block.Stmt)
	if err != nil {
		return nil, nil, err
	}
	fixups = offsetFixups(fixups, len(prog))
	prog = append(prog, stmtCode...)
	return prog, fixups, nil
}

// genProc generates p's body, registers it with the procedure holder
// and sets p's label. The body discards its local const/var slots
// with INC -(n) before RTN; CAL has already advanced SP past the link
// words, so the procedure's own INC only needs to cover its locals.
func (g *codegen) genProc(p *ast.ProcDecl) error {
	body, fixups, err := g.genBlock(p.Body)
	if err != nil {
		return err
	}
	n := len(p.Body.Consts) + len(p.Body.Vars)
	if n > 0 {
		body = append(body, code.Instruction{Op: code.INC, M: -n})
	}
	body = append(body, code.Instruction{Op: code.RTN})

	addr := g.procs.register(body)
	if err := p.Label.Set(addr); err != nil {
		return err
	}
	for _, f := range fixups {
		g.fixups = append(g.fixups, fixup{idx: addr + code.Address(f.idx), label: f.label})
	}
	return nil
}

func (g *codegen) genStmt(s ast.Stmt) (code.Program, []localFixup, error) {
	switch s := s.(type) {
	case *ast.AssignStmt:
		return g.genAssign(s)
	case *ast.CallStmt:
		return g.genCall(s)
	case *ast.BeginStmt:
		var prog code.Program
		var fixups []localFixup
		for _, inner := range s.Stmts {
			c, fs, err := g.genStmt(inner)
			if err != nil {
				return nil, nil, err
			}
			fixups = append(fixups, offsetFixups(fs, len(prog))...)
			prog = append(prog, c...)
		}
		return prog, fixups, nil
	case *ast.IfStmt:
		return g.genIf(s)
	case *ast.WhileStmt:
		return g.genWhile(s)
	case *ast.ReadStmt:
		return g.genRead(s)
	case *ast.WriteStmt:
		return g.genWrite(s)
	case *ast.SkipStmt:
		return code.Program{}, nil, nil
	default:
		return nil, nil, diag.Internalf("codegen: unhandled statement type %T", s)
	}
}

func (g *codegen) genAssign(s *ast.AssignStmt) (code.Program, []localFixup, error) {
	prog := computeFP(s.Target.Use.LevelsOutward)
	val, fixups, err := g.genExpr(s.Value)
	if err != nil {
		return nil, nil, err
	}
	fixups = offsetFixups(fixups, len(prog))
	prog = append(prog, val...)
	prog = append(prog, code.Instruction{Op: code.STO, M: code.LinksSize + int(s.Target.Use.Attrs.Offset)})
	return prog, fixups, nil
}

// genCall emits a single CAL instruction. CAL itself computes the
// callee's static link from the caller's frame (spec §4.6); codegen
// does no static-link setup at the call site. If the callee has not
// been registered yet (a forward reference to a sibling declared
// later in the same block, or a self-recursive call), CAL is emitted
// with a placeholder operand and a fixup is recorded.
func (g *codegen) genCall(s *ast.CallStmt) (code.Program, []localFixup, error) {
	label := s.Callee.Use.Attrs.Label

	if label.IsSet() {
		addr, err := label.Read()
		if err != nil {
			return nil, nil, err
		}
		return code.Program{{Op: code.CAL, M: int(addr)}}, nil, nil
	}

	return code.Program{{Op: code.CAL, M: -1}}, []localFixup{{idx: 0, label: label}}, nil
}

func (g *codegen) genIf(s *ast.IfStmt) (code.Program, []localFixup, error) {
	condCode, condFixups, err := g.genCond(s.Cond)
	if err != nil {
		return nil, nil, err
	}
	thenCode, thenFixups, err := g.genStmt(s.Then)
	if err != nil {
		return nil, nil, err
	}
	var elseCode code.Program
	var elseFixups []localFixup
	if s.Else != nil {
		elseCode, elseFixups, err = g.genStmt(s.Else)
		if err != nil {
			return nil, nil, err
		}
	}

	// The false-branch jump skips over thenCode; when there is an
	// else-branch it must also skip the jump-around-else instruction
	// that follows thenCode, so it needs one extra word.
	skipThen := len(thenCode) + 1
	if len(elseCode) > 0 {
		skipThen++
	}

	var prog code.Program
	var fixups []localFixup

	fixups = append(fixups, offsetFixups(condFixups, len(prog))...)
	prog = append(prog, condCode...)
	prog = append(prog, code.Instruction{Op: code.JPC, M: 2})
	prog = append(prog, code.Instruction{Op: code.JMP, M: skipThen})
	fixups = append(fixups, offsetFixups(thenFixups, len(prog))...)
	prog = append(prog, thenCode...)
	if len(elseCode) > 0 {
		prog = append(prog, code.Instruction{Op: code.JMP, M: len(elseCode) + 1})
		fixups = append(fixups, offsetFixups(elseFixups, len(prog))...)
		prog = append(prog, elseCode...)
	}
	return prog, fixups, nil
}

func (g *codegen) genWhile(s *ast.WhileStmt) (code.Program, []localFixup, error) {
	condCode, condFixups, err := g.genCond(s.Cond)
	if err != nil {
		return nil, nil, err
	}
	bodyCode, bodyFixups, err := g.genStmt(s.Body)
	if err != nil {
		return nil, nil, err
	}

	var prog code.Program
	var fixups []localFixup

	fixups = append(fixups, offsetFixups(condFixups, len(prog))...)
	prog = append(prog, condCode...)
	prog = append(prog, code.Instruction{Op: code.JPC, M: 2})
	prog = append(prog, code.Instruction{Op: code.JMP, M: len(bodyCode) + 2})
	fixups = append(fixups, offsetFixups(bodyFixups, len(prog))...)
	prog = append(prog, bodyCode...)
	prog = append(prog, code.Instruction{Op: code.JMP, M: -(len(bodyCode) + len(condCode) + 2)})
	return prog, fixups, nil
}

func (g *codegen) genRead(s *ast.ReadStmt) (code.Program, []localFixup, error) {
	prog := computeFP(s.Target.Use.LevelsOutward)
	prog = append(prog, code.Instruction{Op: code.CHI})
	prog = append(prog, code.Instruction{Op: code.STO, M: code.LinksSize + int(s.Target.Use.Attrs.Offset)})
	return prog, nil, nil
}

func (g *codegen) genWrite(s *ast.WriteStmt) (code.Program, []localFixup, error) {
	prog, fixups, err := g.genExpr(s.Value)
	if err != nil {
		return nil, nil, err
	}
	prog = append(prog, code.Instruction{Op: code.CHO})
	return prog, fixups, nil
}

func (g *codegen) genCond(c ast.Cond) (code.Program, []localFixup, error) {
	switch c := c.(type) {
	case *ast.OddCond:
		v, fixups, err := g.genExpr(c.Value)
		if err != nil {
			return nil, nil, err
		}
		return append(v, code.Instruction{Op: code.LIT, M: 2}, code.Instruction{Op: code.MOD}), fixups, nil
	case *ast.BinCond:
		left, leftFixups, err := g.genExpr(c.Left)
		if err != nil {
			return nil, nil, err
		}
		right, rightFixups, err := g.genExpr(c.Right)
		if err != nil {
			return nil, nil, err
		}
		var prog code.Program
		var fixups []localFixup
		fixups = append(fixups, offsetFixups(leftFixups, len(prog))...)
		prog = append(prog, left...)
		fixups = append(fixups, offsetFixups(rightFixups, len(prog))...)
		prog = append(prog, right...)
		prog = append(prog, code.Instruction{Op: relOpcode(c.Op)})
		return prog, fixups, nil
	default:
		return nil, nil, diag.Internalf("codegen: unhandled condition type %T", c)
	}
}

func relOpcode(op ast.RelOp) code.Opcode {
	switch op {
	case ast.EQ:
		return code.EQL
	case ast.NEQ:
		return code.NEQ
	case ast.LT:
		return code.LSS
	case ast.LEQ:
		return code.LEQ
	case ast.GT:
		return code.GTR
	case ast.GEQ:
		return code.GEQ
	default:
		return code.NOP
	}
}

func (g *codegen) genExpr(e ast.Expr) (code.Program, []localFixup, error) {
	switch e := e.(type) {
	case *ast.Number:
		return code.Program{{Op: code.LIT, M: int(e.Value)}}, nil, nil
	case *ast.Ident:
		prog := computeFP(e.Use.LevelsOutward)
		return append(prog, code.Instruction{Op: code.LOD, M: code.LinksSize + int(e.Use.Attrs.Offset)}), nil, nil
	case *ast.NegExpr:
		v, fixups, err := g.genExpr(e.Value)
		if err != nil {
			return nil, nil, err
		}
		return append(v, code.Instruction{Op: code.NEG}), fixups, nil
	case *ast.BinExpr:
		left, leftFixups, err := g.genExpr(e.Left)
		if err != nil {
			return nil, nil, err
		}
		right, rightFixups, err := g.genExpr(e.Right)
		if err != nil {
			return nil, nil, err
		}
		var prog code.Program
		var fixups []localFixup
		fixups = append(fixups, offsetFixups(leftFixups, len(prog))...)
		prog = append(prog, left...)
		fixups = append(fixups, offsetFixups(rightFixups, len(prog))...)
		prog = append(prog, right...)
		prog = append(prog, code.Instruction{Op: arithOpcode(e.Op)})
		return prog, fixups, nil
	default:
		return nil, nil, diag.Internalf("codegen: unhandled expression type %T", e)
	}
}

func arithOpcode(op ast.ArithOp) code.Opcode {
	switch op {
	case ast.ADD:
		return code.ADD
	case ast.SUB:
		return code.SUB
	case ast.MUL:
		return code.MUL
	case ast.DIV:
		return code.DIV
	default:
		return code.NOP
	}
}
