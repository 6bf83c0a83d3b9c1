package pipeline

import "github.com/sarchlab/rv5sim/insts"

// The four pipeline registers are value types. Each cycle the engine
// computes the next value of every latch from the current values of the
// others, then commits all four wholesale, so no stage ever observes a
// value produced earlier in the same cycle.

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates the latch holds a real (non-NOP) instruction.
	Valid bool

	// PC is the program index of the fetched instruction.
	PC int

	// Inst is the fetched instruction.
	Inst *insts.Instruction

	// PredictedTaken carries the fetch-time branch prediction.
	PredictedTaken bool
}

// Clear resets the IF/ID register to a bubble.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{Inst: insts.NOP}
}

// Text returns the instruction text for trace rows ("NOP" for bubbles).
func (r *IFIDRegister) Text() string {
	return latchText(r.Valid, r.Inst)
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	// Valid indicates the latch holds a real (non-NOP) instruction.
	Valid bool

	// PC is the program index of the instruction.
	PC int

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Register numbers for hazard detection.
	Rd uint8
	Rn uint8
	Rm uint8

	// Imm is the signed load/store offset.
	Imm int64

	// Register values read from the register file at decode time.
	RnValue int64
	RmValue int64

	// PredictedTaken carries the branch prediction (BEQ only).
	PredictedTaken bool
}

// Clear resets the ID/EX register to a bubble.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{Inst: insts.NOP}
}

// Text returns the instruction text for trace rows ("NOP" for bubbles).
func (r *IDEXRegister) Text() string {
	return latchText(r.Valid, r.Inst)
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	// Valid indicates the latch holds a real (non-NOP) instruction.
	Valid bool

	// PC is the program index of the instruction.
	PC int

	// Inst is the instruction.
	Inst *insts.Instruction

	// Rd is the destination register number.
	Rd uint8

	// ALUResult holds the arithmetic result, or the effective address
	// for loads and stores.
	ALUResult int64

	// StoreValue is the (possibly forwarded) value a SW writes.
	StoreValue int64

	// Branch resolution state (BEQ only).
	BranchTaken  bool
	BranchTarget int

	// PredictedTaken carries the fetch-time prediction for comparison
	// against the resolved outcome.
	PredictedTaken bool
}

// Clear resets the EX/MEM register to a bubble.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{Inst: insts.NOP}
}

// Text returns the instruction text for trace rows ("NOP" for bubbles).
func (r *EXMEMRegister) Text() string {
	return latchText(r.Valid, r.Inst)
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	// Valid indicates the latch holds a real (non-NOP) instruction.
	Valid bool

	// PC is the program index of the instruction.
	PC int

	// Inst is the instruction.
	Inst *insts.Instruction

	// Rd is the destination register number.
	Rd uint8

	// ALUResult is carried through for arithmetic instructions.
	ALUResult int64

	// MemData is the word loaded from memory (LW only).
	MemData int64

	// WBValue is the value committed to the register file at writeback.
	WBValue int64
}

// Clear resets the MEM/WB register to a bubble.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{Inst: insts.NOP}
}

// Text returns the instruction text for trace rows ("NOP" for bubbles).
func (r *MEMWBRegister) Text() string {
	return latchText(r.Valid, r.Inst)
}

// latchText renders a latch occupant for the trace log.
func latchText(valid bool, inst *insts.Instruction) string {
	if !valid || inst.IsNop() {
		return "NOP"
	}
	return inst.Raw
}
