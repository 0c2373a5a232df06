// Package vm executes a code.Program: a fixed-size stack with BP/SP
// discipline, and a fetch-decode-execute loop over all 31 opcodes.
package vm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"pl0vm/code"
)

// Interpreter runs one code.Program to completion or to a Fault.
type Interpreter struct {
	prog code.Program
	f    *frame
	pc   code.Address

	in  *bufio.Reader
	out io.Writer

	logger  *logrus.Logger
	tracing bool
}

// New returns an Interpreter over prog, reading CHI input from in and
// writing CHO output to out. Tracing is on by default, matching the
// original's startup behavior; callers use SetTracing(false) for the
// `-n` CLI flag.
func New(prog code.Program, in io.Reader, out io.Writer, logger *logrus.Logger) *Interpreter {
	return &Interpreter{
		prog:    prog,
		f:       newFrame(),
		in:      bufio.NewReader(in),
		out:     out,
		logger:  logger,
		tracing: true,
	}
}

// SetTracing toggles per-instruction tracing.
func (vm *Interpreter) SetTracing(on bool) { vm.tracing = on }

// Run executes the program from address 0 until HLT or a fault.
func (vm *Interpreter) Run() error {
	for {
		if int(vm.pc) >= len(vm.prog) {
			return newFault(AddressOutOfRange, vm.pc, vm.f.sp, vm.f.bp, "pc ran past the end of the program")
		}
		at := vm.pc
		ins := vm.prog[at]

		if vm.tracing {
			vm.logger.Infof("==> addr: %d %s %d", at, ins.Op, ins.M)
		}

		vm.pc++
		halt, err := vm.execute(at, ins)
		if err != nil {
			return err
		}
		if err := vm.f.checkInvariant(at); err != nil {
			return err
		}

		if vm.tracing {
			vm.logger.Debugf("PC: %d BP: %d SP: %d stack: %v", vm.pc, vm.f.bp, vm.f.sp, vm.f.slice())
		}
		if halt {
			return nil
		}
	}
}

func (vm *Interpreter) jumpTarget(at code.Address, m int) (code.Address, error) {
	target := int(at) + m
	if target < 0 || target >= len(vm.prog) {
		return 0, newFault(AddressOutOfRange, at, vm.f.sp, vm.f.bp, "jump target %d out of range", target)
	}
	return code.Address(target), nil
}

func (vm *Interpreter) execute(at code.Address, ins code.Instruction) (halt bool, err error) {
	switch ins.Op {
	case code.NOP:

	case code.LIT:
		err = vm.f.push(at, code.Word(ins.M))

	case code.NEG:
		v, e := vm.f.pop(at)
		if e != nil {
			return false, e
		}
		err = vm.f.push(at, -v)

	case code.ADD, code.SUB, code.MUL, code.DIV, code.MOD,
		code.EQL, code.NEQ, code.LSS, code.LEQ, code.GTR, code.GEQ:
		err = vm.binaryOp(at, ins.Op)

	case code.POP:
		_, err = vm.f.pop(at)

	case code.PSI:
		addr, e := vm.f.pop(at)
		if e != nil {
			return false, e
		}
		v, e := vm.f.fetch(at, code.Address(addr))
		if e != nil {
			return false, e
		}
		err = vm.f.push(at, v)

	case code.PBP:
		err = vm.f.push(at, code.Word(vm.f.bp))

	case code.PSP:
		err = vm.f.push(at, code.Word(vm.f.sp))

	case code.PPC:
		err = vm.f.push(at, code.Word(vm.pc))

	case code.LOD:
		base, e := vm.f.pop(at)
		if e != nil {
			return false, e
		}
		v, e := vm.f.fetch(at, code.Address(int(base)+ins.M))
		if e != nil {
			return false, e
		}
		err = vm.f.push(at, v)

	case code.STO:
		v, e := vm.f.pop(at)
		if e != nil {
			return false, e
		}
		base, e := vm.f.pop(at)
		if e != nil {
			return false, e
		}
		err = vm.f.assign(at, code.Address(int(base)+ins.M), v)

	case code.INC:
		err = vm.f.allocate(at, ins.M)

	case code.JMP:
		target, e := vm.jumpTarget(at, ins.M)
		if e != nil {
			return false, e
		}
		vm.pc = target

	case code.JPC:
		cond, e := vm.f.pop(at)
		if e != nil {
			return false, e
		}
		if cond != 0 {
			target, e := vm.jumpTarget(at, ins.M)
			if e != nil {
				return false, e
			}
			vm.pc = target
		}

	case code.JMI:
		target, e := vm.f.pop(at)
		if e != nil {
			return false, e
		}
		if int(target) < 0 || int(target) >= len(vm.prog) {
			return false, newFault(AddressOutOfRange, at, vm.f.sp, vm.f.bp, "indirect jump target %d out of range", target)
		}
		vm.pc = code.Address(target)

	case code.CAL:
		err = vm.call(at, code.Address(ins.M))

	case code.RTN:
		err = vm.ret(at)

	case code.CHI:
		v, e := vm.readWord(at)
		if e != nil {
			return false, e
		}
		err = vm.f.push(at, v)

	case code.CHO:
		v, e := vm.f.pop(at)
		if e != nil {
			return false, e
		}
		fmt.Fprintln(vm.out, v)

	case code.NDB:
		vm.tracing = false

	case code.HLT:
		return true, nil

	default:
		return false, newFault(BadOpcode, at, vm.f.sp, vm.f.bp, "opcode %d undefined", ins.Op)
	}

	return false, err
}

// call implements CAL (spec §4.6): given the current BP/SP, it pushes
// the static link saved in the caller's own frame (propagated
// unchanged to the callee), the dynamic link (current BP) and the
// return address, then sets BP to the base of the new frame — the SP
// captured before any of the three pushes — and jumps to target.
func (vm *Interpreter) call(at code.Address, target code.Address) error {
	if int(target) >= len(vm.prog) {
		return newFault(BadCallTarget, at, vm.f.sp, vm.f.bp, "call target %d out of range", target)
	}
	newBase := vm.f.sp
	staticLink, err := vm.f.fetch(at, vm.f.bp)
	if err != nil {
		return err
	}
	if err := vm.f.push(at, staticLink); err != nil {
		return err
	}
	if err := vm.f.push(at, code.Word(vm.f.bp)); err != nil {
		return err
	}
	if err := vm.f.push(at, code.Word(vm.pc)); err != nil {
		return err
	}
	vm.f.bp = newBase
	vm.pc = target
	return nil
}

// ret implements RTN (spec §4.6): three sequential pops — return
// address, dynamic link, then the static link slot (discarded) — and
// resumes execution at the caller. This relies on the callee having
// already discarded its own locals with INC -(n) before RTN, so SP is
// exactly BP+LinksSize when ret runs.
func (vm *Interpreter) ret(at code.Address) error {
	retAddr, err := vm.f.pop(at)
	if err != nil {
		return err
	}
	dynLink, err := vm.f.pop(at)
	if err != nil {
		return err
	}
	if _, err := vm.f.pop(at); err != nil {
		return err
	}
	vm.f.bp = code.Address(dynLink)
	vm.pc = code.Address(retAddr)
	return nil
}

func (vm *Interpreter) binaryOp(at code.Address, op code.Opcode) error {
	b, err := vm.f.pop(at)
	if err != nil {
		return err
	}
	a, err := vm.f.pop(at)
	if err != nil {
		return err
	}

	var result code.Word
	switch op {
	case code.ADD:
		result = a + b
	case code.SUB:
		result = a - b
	case code.MUL:
		result = a * b
	case code.DIV:
		if b == 0 {
			return newFault(ZeroDivide, at, vm.f.sp, vm.f.bp, "division by zero")
		}
		result = a / b
	case code.MOD:
		if b == 0 {
			return newFault(ZeroDivide, at, vm.f.sp, vm.f.bp, "modulo by zero")
		}
		result = a % b
	case code.EQL:
		result = boolWord(a == b)
	case code.NEQ:
		result = boolWord(a != b)
	case code.LSS:
		result = boolWord(a < b)
	case code.LEQ:
		result = boolWord(a <= b)
	case code.GTR:
		result = boolWord(a > b)
	case code.GEQ:
		result = boolWord(a >= b)
	}
	return vm.f.push(at, result)
}

func boolWord(b bool) code.Word {
	if b {
		return 1
	}
	return 0
}

func (vm *Interpreter) readWord(at code.Address) (code.Word, error) {
	var n int
	if _, err := fmt.Fscan(vm.in, &n); err != nil {
		return 0, newFault(AddressOutOfRange, at, vm.f.sp, vm.f.bp, "failed to read input: %v", err)
	}
	return code.Word(n), nil
}
