// Package code defines the machine-level vocabulary shared by the
// compiler and the VM: fixed-width word/address types, the opcode
// table, the decoded Instruction record, and its textual encoding.
package code

// Word is the VM's native value type: a signed 16-bit integer. Every
// stack slot, LIT operand and Number literal is a Word.
type Word = int16

// Address indexes into the VM's code array or its runtime stack. It
// is unsigned 16-bit, matching the wire format's two-integer-per-line
// encoding.
type Address = uint16

// LinksSize is the number of link words (static link, dynamic link,
// return address) at the base of every activation record.
const LinksSize = 3

// MaxScopeSize bounds the number of declarations a single block may
// introduce (spec §3: "a fixed per-scope capacity (4096)").
const MaxScopeSize = 4096

// StackSize is the VM's fixed stack height.
const StackSize = 2048
