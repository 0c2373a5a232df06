package compiler

import (
	"pl0vm/ast"
	"pl0vm/diag"
)

// Analyze walks block, populating every ConstDecl/VarDecl/ProcDecl's
// Attrs and every Ident's Use, and checking that each name is used
// consistently with its declared kind (NameNotDeclared,
// DuplicateDeclaration and KindMismatch are all reported here).
func Analyze(block *ast.Block, syms *SymbolTable) error {
	syms.EnterScope()
	defer syms.LeaveScope()

	for _, c := range block.Consts {
		attrs, err := syms.Insert(c.Pos(), c.Name, ast.ConstKind)
		if err != nil {
			return err
		}
		attrs.Value = c.Value
		c.Attrs = attrs
	}
	for _, v := range block.Vars {
		attrs, err := syms.Insert(v.Pos(), v.Name, ast.VarKind)
		if err != nil {
			return err
		}
		v.Attrs = attrs
	}
	for _, p := range block.Procs {
		attrs, err := syms.Insert(p.Pos(), p.Name, ast.ProcKind)
		if err != nil {
			return err
		}
		attrs.Label = p.Label
		p.Attrs = attrs
	}
	for _, p := range block.Procs {
		if err := Analyze(p.Body, syms); err != nil {
			return err
		}
	}
	return analyzeStmt(block.Stmt, syms)
}

func resolveIdent(id *ast.Ident, syms *SymbolTable) error {
	attrs, levels, ok := syms.Resolve(id.Name)
	if !ok {
		return diag.Errorf(id.Pos(), "%q is not declared", id.Name)
	}
	id.Use = &ast.Use{Attrs: attrs, LevelsOutward: levels}
	return nil
}

func analyzeStmt(s ast.Stmt, syms *SymbolTable) error {
	switch s := s.(type) {
	case *ast.AssignStmt:
		if err := resolveIdent(s.Target, syms); err != nil {
			return err
		}
		if s.Target.Use.Attrs.Kind != ast.VarKind {
			return diag.Errorf(s.Target.Pos(), "%q is a %s, not a variable", s.Target.Name, s.Target.Use.Attrs.Kind)
		}
		return analyzeExpr(s.Value, syms)
	case *ast.CallStmt:
		if err := resolveIdent(s.Callee, syms); err != nil {
			return err
		}
		if s.Callee.Use.Attrs.Kind != ast.ProcKind {
			return diag.Errorf(s.Callee.Pos(), "%q is a %s, not a procedure", s.Callee.Name, s.Callee.Use.Attrs.Kind)
		}
		return nil
	case *ast.BeginStmt:
		for _, inner := range s.Stmts {
			if err := analyzeStmt(inner, syms); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfStmt:
		if err := analyzeCond(s.Cond, syms); err != nil {
			return err
		}
		if err := analyzeStmt(s.Then, syms); err != nil {
			return err
		}
		if s.Else != nil {
			return analyzeStmt(s.Else, syms)
		}
		return nil
	case *ast.WhileStmt:
		if err := analyzeCond(s.Cond, syms); err != nil {
			return err
		}
		return analyzeStmt(s.Body, syms)
	case *ast.ReadStmt:
		if err := resolveIdent(s.Target, syms); err != nil {
			return err
		}
		if s.Target.Use.Attrs.Kind != ast.VarKind {
			return diag.Errorf(s.Target.Pos(), "%q is a %s, not a variable", s.Target.Name, s.Target.Use.Attrs.Kind)
		}
		return nil
	case *ast.WriteStmt:
		return analyzeExpr(s.Value, syms)
	case *ast.SkipStmt:
		return nil
	default:
		return diag.Internalf("analyze: unhandled statement type %T", s)
	}
}

func analyzeCond(c ast.Cond, syms *SymbolTable) error {
	switch c := c.(type) {
	case *ast.OddCond:
		return analyzeExpr(c.Value, syms)
	case *ast.BinCond:
		if err := analyzeExpr(c.Left, syms); err != nil {
			return err
		}
		return analyzeExpr(c.Right, syms)
	default:
		return diag.Internalf("analyze: unhandled condition type %T", c)
	}
}

func analyzeExpr(e ast.Expr, syms *SymbolTable) error {
	switch e := e.(type) {
	case *ast.BinExpr:
		if err := analyzeExpr(e.Left, syms); err != nil {
			return err
		}
		return analyzeExpr(e.Right, syms)
	case *ast.NegExpr:
		return analyzeExpr(e.Value, syms)
	case *ast.Ident:
		if err := resolveIdent(e, syms); err != nil {
			return err
		}
		if e.Use.Attrs.Kind == ast.ProcKind {
			return diag.Errorf(e.Pos(), "%q is a procedure, not a value", e.Name)
		}
		return nil
	case *ast.Number:
		return nil
	default:
		return diag.Internalf("analyze: unhandled expression type %T", e)
	}
}
