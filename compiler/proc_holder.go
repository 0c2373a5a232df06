package compiler

import "pl0vm/code"

// procHolder collects compiled procedure bodies in registration
// order, assigning each an entry address as it is registered. Address
// 0 is reserved for the JMP to the start of main that assemble
// prepends.
type procHolder struct {
	seqs     []code.Program
	nextAddr code.Address
}

func newProcHolder() *procHolder {
	return &procHolder{nextAddr: 1}
}

// register appends seq and returns the address its first instruction
// occupies in the final assembled program.
func (h *procHolder) register(seq code.Program) code.Address {
	addr := h.nextAddr
	h.seqs = append(h.seqs, seq)
	h.nextAddr += code.Address(len(seq))
	return addr
}

// mainAddr returns the address main's code will occupy once all
// currently-registered procedures are assembled.
func (h *procHolder) mainAddr() code.Address {
	return h.nextAddr
}

// assemble concatenates every registered procedure body behind a
// leading JMP to mainAddr.
func (h *procHolder) assemble() code.Program {
	prog := make(code.Program, 0, h.nextAddr)
	prog = append(prog, code.Instruction{Op: code.JMP, M: int(h.nextAddr)})
	for _, s := range h.seqs {
		prog = append(prog, s...)
	}
	return prog
}
