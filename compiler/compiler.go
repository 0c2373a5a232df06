// Package compiler turns a parsed *ast.Block into an
// addressed code.Program: a scope stack for name resolution, a
// procedure holder that assigns addresses to compiled procedure
// bodies, and a recursive-descent code generator that walks
// statements, conditions and expressions in the order spec'd by the
// grammar.
package compiler

import (
	"pl0vm/ast"
	"pl0vm/code"
)

// Compilation is the state for a single compile run: its own symbol
// table and procedure holder, so that compiling two programs
// concurrently (e.g. in parallel tests) never shares mutable state.
type Compilation struct {
	syms *SymbolTable
	gen  *codegen
}

// New returns a fresh Compilation.
func New() *Compilation {
	return &Compilation{syms: NewSymbolTable(), gen: newCodegen()}
}

// Compile runs the scope analyzer over program, then generates its
// code.Program: a JMP to main, every procedure body in registration
// order, then main's own code. The whole program is INC LINKS_SIZE
// (allocating the main frame's link slots at BP=0), the main block's
// code, then HLT.
func (c *Compilation) Compile(program *ast.Block) (code.Program, error) {
	if err := Analyze(program, c.syms); err != nil {
		return nil, err
	}

	mainBlockCode, mainFixups, err := c.gen.genBlock(program)
	if err != nil {
		return nil, err
	}
	mainCode := code.Program{{Op: code.INC, M: code.LinksSize}}
	mainCode = append(mainCode, mainBlockCode...)
	mainCode = append(mainCode, code.Instruction{Op: code.HLT})

	mainBase := c.gen.procs.mainAddr()
	for _, f := range mainFixups {
		c.gen.fixups = append(c.gen.fixups, fixup{idx: mainBase + 1 + code.Address(f.idx), label: f.label})
	}

	prog := c.gen.procs.assemble()
	prog = append(prog, mainCode...)

	for _, f := range c.gen.fixups {
		addr, err := f.label.Read()
		if err != nil {
			return nil, err
		}
		prog[f.idx].M = int(addr)
	}

	return prog, nil
}
