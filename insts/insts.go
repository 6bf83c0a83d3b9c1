// Package insts provides the RV5 teaching-subset instruction definitions
// and the two-pass assembler.
//
// The subset covers six opcodes: NOP, ADD, SUB, LW, SW, and BEQ. Programs
// are indexed by instruction position, so the program counter is an index
// into the instruction sequence rather than a byte address.
//
// Usage:
//
//	prog, err := insts.Assemble("add x1, x2, x3\nbeq x1, x0, done\ndone:")
//	inst := prog.Fetch(0)
//	fmt.Printf("Op: %v, Rd: %d\n", inst.Op, inst.Rd)
package insts

// Op represents an opcode in the teaching subset.
type Op uint8

// Supported opcodes.
const (
	OpNOP Op = iota
	OpADD
	OpSUB
	OpLW
	OpSW
	OpBEQ
)

// String returns the assembly mnemonic for the opcode.
func (op Op) String() string {
	switch op {
	case OpNOP:
		return "nop"
	case OpADD:
		return "add"
	case OpSUB:
		return "sub"
	case OpLW:
		return "lw"
	case OpSW:
		return "sw"
	case OpBEQ:
		return "beq"
	default:
		return "unknown"
	}
}

// Instruction represents a parsed instruction. Instructions are immutable
// after assembly; only the operand slots relevant to the opcode are
// populated (BEQ has no Rd, loads and stores carry an immediate offset).
type Instruction struct {
	// Op is the opcode.
	Op Op

	// Rd is the destination register (ADD, SUB, LW).
	Rd uint8

	// Rn is the first source register (base register for LW/SW).
	Rn uint8

	// Rm is the second source register (store data register for SW).
	Rm uint8

	// Imm is the signed byte offset for LW/SW.
	Imm int64

	// BranchTarget is the absolute program index a BEQ jumps to,
	// resolved at assembly time.
	BranchTarget int

	// Raw is the original source text, kept for display.
	Raw string

	// Seq is the unique sequence id assigned in textual order.
	Seq int
}

// NOP is the sentinel no-op carried by empty pipeline slots.
var NOP = &Instruction{Op: OpNOP, Raw: "nop", Seq: -1}

// IsNop returns true for the NOP opcode.
func (i *Instruction) IsNop() bool {
	return i == nil || i.Op == OpNOP
}

// WritesRd returns true if the instruction writes its destination register.
func (i *Instruction) WritesRd() bool {
	switch i.Op {
	case OpADD, OpSUB, OpLW:
		return true
	case OpNOP, OpSW, OpBEQ:
		return false
	default:
		return false
	}
}

// Uses returns true if the instruction reads the given register.
// Register 0 is hardwired to zero and never counts as used.
func (i *Instruction) Uses(reg uint8) bool {
	if i.IsNop() || reg == 0 {
		return false
	}
	switch i.Op {
	case OpADD, OpSUB, OpBEQ:
		return reg == i.Rn || reg == i.Rm
	case OpLW:
		return reg == i.Rn
	case OpSW:
		return reg == i.Rn || reg == i.Rm
	case OpNOP:
		return false
	default:
		return false
	}
}

// String returns the original source text, or "NOP" for no-ops.
func (i *Instruction) String() string {
	if i.IsNop() {
		return "NOP"
	}
	return i.Raw
}

// Program is an ordered, immutable sequence of instructions indexed by
// position. A branch target of Len() denotes falling off the end.
type Program struct {
	insts []*Instruction
}

// NewProgram builds a program from an instruction slice.
func NewProgram(insts []*Instruction) *Program {
	return &Program{insts: insts}
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	if p == nil {
		return 0
	}
	return len(p.insts)
}

// Fetch returns the instruction at the given index, or the NOP sentinel
// when the index is outside the program. Stepping past the end of a
// program therefore fetches an implicit no-op forever.
func (p *Program) Fetch(pc int) *Instruction {
	if p == nil || pc < 0 || pc >= len(p.insts) {
		return NOP
	}
	return p.insts[pc]
}

// Text returns the source text of the instruction at the given index.
func (p *Program) Text(pc int) string {
	return p.Fetch(pc).String()
}
