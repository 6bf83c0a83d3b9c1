// Package emu provides the architectural state of the teaching CPU:
// the register file and the sparse data memory.
package emu

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// RegFile represents the register file: 32 signed integer registers.
// Register x0 is hardwired to zero; writes to it are discarded.
type RegFile struct {
	// X holds registers x0-x31. X[0] must stay zero.
	X [NumRegs]int64
}

// ReadReg reads a register value. Register 0 always returns 0.
func (r *RegFile) ReadReg(reg uint8) int64 {
	if reg == 0 || reg >= NumRegs {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a register value. Writes to register 0 are discarded.
func (r *RegFile) WriteReg(reg uint8, value int64) {
	if reg == 0 || reg >= NumRegs {
		return
	}
	r.X[reg] = value
}

// Values returns a copy of all register values.
func (r *RegFile) Values() [NumRegs]int64 {
	return r.X
}

// Reset clears all registers to zero.
func (r *RegFile) Reset() {
	r.X = [NumRegs]int64{}
}
