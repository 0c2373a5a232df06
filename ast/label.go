package ast

import (
	"pl0vm/code"
	"pl0vm/diag"
)

// Label is a settable-once cell holding a procedure's entry address.
// It is created unset when a ProcDecl node is built and set exactly
// once by the code generator, to the address the procedure holder
// assigns when the procedure's body is registered; call-sites that reference the procedure before its body
// is emitted read the same Label after it has been set and back-patch
// their CAL operand from it.
type Label struct {
	addr code.Address
	set  bool
}

// NewLabel returns a fresh, unset Label.
func NewLabel() *Label {
	return &Label{}
}

// Set assigns addr to the label. Setting an already-set label is a
// compiler bug, not a user-facing error.
func (l *Label) Set(addr code.Address) error {
	if l.set {
		return diag.Internalf("label already set to %d (tried to set to %d)", l.addr, addr)
	}
	l.addr = addr
	l.set = true
	return nil
}

// IsSet reports whether the label has been assigned an address.
func (l *Label) IsSet() bool {
	return l.set
}

// Read returns the label's address. Reading before Set is a compiler
// bug: every call site is only supposed to read a label after the
// procedure holder has finished generating all procedure bodies.
func (l *Label) Read() (code.Address, error) {
	if !l.set {
		return 0, diag.Internalf("label read before it was set")
	}
	return l.addr, nil
}
