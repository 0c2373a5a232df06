package compiler

import (
	"pl0vm/ast"
	"pl0vm/code"
	"pl0vm/diag"
	"pl0vm/token"
)

// scope is one block's declarations: a flat, append-only table capped
// at code.MaxScopeSize entries, with sequentially assigned frame
// offsets for consts and vars (procedures are not given a frame
// slot). Offsets start at 0 and are relative to the start of a
// frame's local slots; codegen adds code.LinksSize when it turns an
// offset into a LOD/STO immediate, since the link words occupy the
// first LinksSize slots of every activation record.
type scope struct {
	names      map[string]*ast.Attrs
	nextOffset uint32
}

func newScope() *scope {
	return &scope{names: make(map[string]*ast.Attrs)}
}

// insert adds name to the scope. It fails with a DuplicateDeclaration
// diagnostic if name already exists in this scope, or once the scope
// has reached code.MaxScopeSize declarations.
func (s *scope) insert(pos token.Pos, name string, kind ast.Kind) (*ast.Attrs, error) {
	if _, exists := s.names[name]; exists {
		return nil, diag.Errorf(pos, "%q is already declared in this scope", name)
	}
	if len(s.names) >= code.MaxScopeSize {
		return nil, diag.Errorf(pos, "scope exceeds the maximum of %d declarations", code.MaxScopeSize)
	}
	attrs := &ast.Attrs{Kind: kind, Pos: pos, Name: name}
	if kind != ast.ProcKind {
		attrs.Offset = s.nextOffset
		s.nextOffset++
	}
	s.names[name] = attrs
	return attrs, nil
}

func (s *scope) lookup(name string) (*ast.Attrs, bool) {
	attrs, ok := s.names[name]
	return attrs, ok
}

// SymbolTable is a stack of scopes: EnterScope/LeaveScope bracket a
// block's lifetime, Insert/Resolve operate on the innermost open
// scope (or search outward for Resolve).
type SymbolTable struct {
	scopes []*scope
}

// NewSymbolTable returns an empty scope stack.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

// EnterScope pushes a fresh, empty scope.
func (t *SymbolTable) EnterScope() {
	t.scopes = append(t.scopes, newScope())
}

// LeaveScope pops the innermost scope.
func (t *SymbolTable) LeaveScope() {
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Insert declares name in the innermost scope.
func (t *SymbolTable) Insert(pos token.Pos, name string, kind ast.Kind) (*ast.Attrs, error) {
	return t.scopes[len(t.scopes)-1].insert(pos, name, kind)
}

// Resolve searches outward from the innermost scope for name,
// returning its attributes and how many scopes outward it was found
// (0 means declared in the current scope).
func (t *SymbolTable) Resolve(name string) (attrs *ast.Attrs, levelsOutward uint32, ok bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if attrs, found := t.scopes[i].lookup(name); found {
			return attrs, uint32(len(t.scopes)-1-i), true
		}
	}
	return nil, 0, false
}
