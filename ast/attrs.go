package ast

import "pl0vm/token"

// Kind classifies what a declared name denotes.
type Kind int

const (
	ConstKind Kind = iota
	VarKind
	ProcKind
)

func (k Kind) String() string {
	switch k {
	case ConstKind:
		return "const"
	case VarKind:
		return "var"
	case ProcKind:
		return "procedure"
	default:
		return "unknown"
	}
}

// Attrs is what the scope analyzer records for a single declaration:
// its kind, where it was declared, and either its frame offset
// (const/var) or its Label (procedure).
type Attrs struct {
	Kind   Kind
	Pos    token.Pos
	Name   string
	Offset uint32 // meaningful for ConstKind/VarKind
	Value  int16  // meaningful for ConstKind: the declared constant value
	Label  *Label // meaningful for ProcKind
}

// Use is attached to an Ident by the scope analyzer once it has been
// resolved: the declaration it refers to, and how many static-link
// hops outward from the use site that declaration lives.
type Use struct {
	Attrs         *Attrs
	LevelsOutward uint32
}
