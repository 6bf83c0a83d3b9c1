// Package pipeline implements the 5-stage in-order teaching pipeline:
// Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB).
//
// The engine is single-threaded and synchronous. One Step call advances
// exactly one cycle: every stage reads the latch value committed at the
// end of the previous cycle, next-latch values are computed from those
// snapshots, and all four latches plus the program counter are committed
// together at cycle end. The one deliberate same-cycle influence is
// branch resolution in EX overriding the fetch decision made earlier in
// the same Step.
package pipeline

import (
	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
)

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithForwarding enables or disables operand bypassing. Forwarding is
// enabled by default.
func WithForwarding(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.forwarding = enabled
	}
}

// WithStructuralHazard enables the shared-memory-port structural hazard:
// fetch is blocked while a load or store occupies EX/MEM.
func WithStructuralHazard(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.structural = enabled
	}
}

// WithPredictor sets the branch prediction mode.
func WithPredictor(mode PredictorMode) PipelineOption {
	return func(p *Pipeline) {
		p.predictorMode = mode
	}
}

// Pipeline models the 5-stage pipeline executing a loaded program. It
// exclusively owns the register file, data memory, latches, predictor
// state, and all telemetry; external actors observe them only through
// the read-only accessors.
type Pipeline struct {
	// Pipeline registers.
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Hazard detection and branch prediction.
	hazardUnit *HazardUnit
	predictor  *BranchPredictor

	// Architectural state.
	regFile *emu.RegFile
	memory  *emu.Memory

	// Loaded program and program counter (an instruction index).
	program *insts.Program
	pc      int

	// Configuration.
	forwarding    bool
	structural    bool
	predictorMode PredictorMode

	// Telemetry.
	stats          Statistics
	events         CycleEvents
	stallBreakdown map[StallReason]uint64
	status         []InstStatus
	occupancy      []stageOccupancy
	addrLog        []AddrEvent
	trace          []TraceRow
}

// NewPipeline creates a pipeline around the given register file and
// memory. Defaults: forwarding on, structural hazard off, no prediction.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile:    regFile,
		memory:     memory,
		forwarding: true,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.hazardUnit = NewHazardUnit(p.forwarding)
	p.predictor = NewBranchPredictor(p.predictorMode)
	p.Reset()
	return p
}

// LoadProgram installs a program and resets all state. The previously
// loaded program is replaced only by a successfully assembled one; parse
// failures never reach this point.
func (p *Pipeline) LoadProgram(program *insts.Program) {
	p.program = program
	p.Reset()
}

// Reset tears down and rebuilds all mutable state: latches, register
// file, memory, predictor history, counters, and telemetry. The loaded
// program is kept.
func (p *Pipeline) Reset() {
	p.pc = 0
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.regFile.Reset()
	p.memory.Reset()
	p.predictor.Reset()
	p.stats = Statistics{}
	p.events = CycleEvents{}
	p.stallBreakdown = make(map[StallReason]uint64)
	p.occupancy = nil
	p.addrLog = nil
	p.trace = nil

	p.status = make([]InstStatus, p.program.Len())
	for pc := range p.status {
		p.status[pc] = InstStatus{
			PC:        pc,
			Text:      p.program.Text(pc),
			LastStage: "-",
		}
	}
}

// PokeMemory writes a word directly into data memory. It is intended for
// test and demo setup and is safe only between cycles.
func (p *Pipeline) PokeMemory(addr, value int64) {
	p.memory.Write(addr, value)
}

// RunCycles advances the pipeline by the given number of cycles.
func (p *Pipeline) RunCycles(cycles uint64) {
	for i := uint64(0); i < cycles; i++ {
		p.Step()
	}
}

// Drained reports whether fetch has passed the end of the program and
// every latch is empty. Stepping a drained pipeline is a side-effect-free
// steady state.
func (p *Pipeline) Drained() bool {
	return p.pc >= p.program.Len() &&
		!p.ifid.Valid && !p.idex.Valid && !p.exmem.Valid && !p.memwb.Valid
}

// Step executes one pipeline cycle and returns the committed trace row.
//
// The sub-steps run in an order that preserves read-before-write
// correctness over the latch snapshots: writeback commits first, the
// decode hazard check inspects the not-yet-advanced latches, EX and MEM
// consume the current ID/EX and EX/MEM values, and fetch's tentative
// decision may be overridden by branch resolution before anything is
// latched.
func (p *Pipeline) Step() TraceRow {
	// Stage occupancy at start of cycle, before any mutation.
	occ := p.snapshotOccupancy()
	p.occupancy = append(p.occupancy, occ)

	p.events = CycleEvents{}

	// Writeback: retire and commit the MEM/WB instruction.
	if p.memwb.Valid {
		p.stats.Retired++
		if st := p.statusAt(p.memwb.PC); st != nil {
			st.Retired = true
			st.RetireCycle = p.stats.Cycles
			st.LastStage = stageWB
		}
		if p.memwb.Inst.WritesRd() {
			p.regFile.WriteReg(p.memwb.Rd, p.memwb.WBValue)
		}
	}

	// Decode hazard check against the current ID/EX contents.
	stall, reason, detail := p.hazardUnit.DetectStall(&p.ifid, &p.idex, &p.exmem, &p.memwb)
	p.events.Hazard = detail
	if stall {
		p.stats.Stalls++
		p.stallBreakdown[reason]++
		p.events.Stall = true
		p.events.StallReason = reason
	}

	// Execute: forward operands, resolve branches, compute results.
	srcA := p.hazardUnit.ForwardSourceFor(p.idex.Rn, &p.exmem, &p.memwb)
	srcB := p.hazardUnit.ForwardSourceFor(p.idex.Rm, &p.exmem, &p.memwb)
	aVal := p.hazardUnit.ForwardedValue(srcA, p.idex.RnValue, &p.exmem, &p.memwb)
	bVal := p.hazardUnit.ForwardedValue(srcB, p.idex.RmValue, &p.exmem, &p.memwb)
	p.events.ForwardA = srcA
	p.events.ForwardB = srcB

	nextEXMEM := EXMEMRegister{
		Valid:          p.idex.Valid,
		PC:             p.idex.PC,
		Inst:           p.idex.Inst,
		Rd:             p.idex.Rd,
		PredictedTaken: p.idex.PredictedTaken,
	}
	if p.idex.Valid {
		switch p.idex.Inst.Op {
		case insts.OpBEQ:
			taken := aVal == bVal
			nextEXMEM.BranchTaken = taken
			nextEXMEM.BranchTarget = p.idex.Inst.BranchTarget
			p.addrLog = append(p.addrLog, AddrEvent{
				Cycle: p.stats.Cycles,
				Kind:  AddrEventBranchCmp,
				PC:    p.idex.PC,
				Op:    insts.OpBEQ,
				A:     aVal,
				B:     bVal,
				Taken: taken,
			})
		default:
			result := aluCompute(p.idex.Inst, aVal, p.idex.Imm, bVal)
			nextEXMEM.ALUResult = result
			p.addrLog = append(p.addrLog, AddrEvent{
				Cycle:  p.stats.Cycles,
				Kind:   AddrEventALU,
				PC:     p.idex.PC,
				Op:     p.idex.Inst.Op,
				A:      aVal,
				B:      bVal,
				Result: result,
			})
			if p.idex.Inst.Op == insts.OpSW {
				nextEXMEM.StoreValue = bVal
			}
		}
	}

	// Memory: operate on the current EX/MEM latch (the instruction that
	// executed last cycle).
	cur := p.exmem
	nextMEMWB := MEMWBRegister{
		Valid:     cur.Valid,
		PC:        cur.PC,
		Inst:      cur.Inst,
		Rd:        cur.Rd,
		ALUResult: cur.ALUResult,
	}
	if cur.Valid {
		switch cur.Inst.Op {
		case insts.OpLW:
			value := p.memory.Read(cur.ALUResult)
			nextMEMWB.MemData = value
			nextMEMWB.WBValue = value
			p.addrLog = append(p.addrLog, AddrEvent{
				Cycle: p.stats.Cycles,
				Kind:  AddrEventLoad,
				PC:    cur.PC,
				Op:    insts.OpLW,
				Addr:  cur.ALUResult,
				Value: value,
			})
		case insts.OpSW:
			p.memory.Write(cur.ALUResult, cur.StoreValue)
			p.addrLog = append(p.addrLog, AddrEvent{
				Cycle: p.stats.Cycles,
				Kind:  AddrEventStore,
				PC:    cur.PC,
				Op:    insts.OpSW,
				Addr:  cur.ALUResult,
				Value: cur.StoreValue,
			})
		case insts.OpADD, insts.OpSUB:
			nextMEMWB.WBValue = cur.ALUResult
		}
	}

	// Decode advance: inject a bubble on stall, otherwise read registers
	// for the pending IF/ID instruction.
	var nextIDEX IDEXRegister
	nextIDEX.Clear()
	if !stall && p.ifid.Valid {
		inst := p.ifid.Inst
		nextIDEX = IDEXRegister{
			Valid:   true,
			PC:      p.ifid.PC,
			Inst:    inst,
			Rd:      inst.Rd,
			Rn:      inst.Rn,
			Rm:      inst.Rm,
			Imm:     inst.Imm,
			RnValue: p.regFile.ReadReg(inst.Rn),
			RmValue: p.regFile.ReadReg(inst.Rm),
		}
		if inst.Op == insts.OpBEQ {
			nextIDEX.PredictedTaken = p.ifid.PredictedTaken
		}
	}

	// Fetch: suppressed by a decode stall or by the structural hazard.
	// The structural check inspects the current EX/MEM latch, i.e. the
	// instruction about to enter MEM.
	fetchStall := stall
	if p.structural && cur.Valid &&
		(cur.Inst.Op == insts.OpLW || cur.Inst.Op == insts.OpSW) {
		fetchStall = true
		p.events.StructuralStall = true
		p.stats.Stalls++
		p.stallBreakdown[StallStructural]++
	}

	var nextIFID IFIDRegister
	nextPC := p.pc
	if !fetchStall {
		fetched := p.program.Fetch(p.pc)
		predicted := p.predictor.Predict(p.pc, fetched)
		nextPC = p.pc + 1
		if predicted && fetched.Op == insts.OpBEQ {
			nextPC = fetched.BranchTarget
		}
		nextIFID = IFIDRegister{
			Valid:          !fetched.IsNop(),
			PC:             p.pc,
			Inst:           fetched,
			PredictedTaken: predicted,
		}
	} else if stall {
		// Refetch suppressed: the pending instruction and its PC stay.
		nextIFID = p.ifid
	} else {
		// Structural-only stall: decode already consumed the pending
		// instruction, so fetch leaves a bubble while the PC holds.
		// Repeating the instruction here would execute it twice.
		nextIFID.Clear()
	}

	// Branch resolution override: a BEQ settling into EX/MEM corrects a
	// misprediction, superseding the fetch decision above.
	if nextEXMEM.Valid && nextEXMEM.Inst.Op == insts.OpBEQ {
		actual := nextEXMEM.BranchTaken
		if actual {
			p.events.BranchTaken = true
		}
		p.predictor.Update(nextEXMEM.PC, actual)
		if actual != nextEXMEM.PredictedTaken {
			p.stats.Mispredicts++
			p.stats.Flushes++
			p.events.Mispredict = true
			if actual {
				nextPC = nextEXMEM.BranchTarget
			} else {
				nextPC = nextEXMEM.PC + 1
			}
			// Squash the wrong path: the instruction that was pending in
			// IF/ID when the branch resolved (now decoded into the next
			// ID/EX) and this cycle's tentative fetch.
			nextIDEX.Clear()
			nextIFID.Clear()
		}
	}

	// Commit all latches, the PC, and the cycle counter together.
	p.memwb = nextMEMWB
	p.exmem = nextEXMEM
	p.idex = nextIDEX
	p.ifid = nextIFID
	p.pc = nextPC
	p.stats.Cycles++

	// x0 stays zero regardless of anything above.
	p.regFile.X[0] = 0

	p.updateLastStages(occ)

	row := TraceRow{
		Cycle: p.stats.Cycles,
		IF:    p.ifid.Text(),
		ID:    p.idex.Text(),
		EX:    p.exmem.Text(),
		MEM:   p.memwb.Text(),
		WB:    p.memwb.Text(),
	}
	p.trace = append(p.trace, row)
	return row
}

// aluCompute evaluates the EX-stage result for non-branch instructions.
// Loads and stores produce the effective address base+offset.
func aluCompute(inst *insts.Instruction, a, imm, b int64) int64 {
	switch inst.Op {
	case insts.OpADD:
		return a + b
	case insts.OpSUB:
		return a - b
	case insts.OpLW, insts.OpSW:
		return a + imm
	case insts.OpNOP, insts.OpBEQ:
		return 0
	default:
		return 0
	}
}

// statusAt returns the mutable status row for a program index, or nil
// when the index is outside the program.
func (p *Pipeline) statusAt(pc int) *InstStatus {
	if pc < 0 || pc >= len(p.status) {
		return nil
	}
	return &p.status[pc]
}

// snapshotOccupancy records which program index occupies each stage at
// the start of the cycle. MEM reports the EX/MEM latch: the memory stage
// operates on it this cycle.
func (p *Pipeline) snapshotOccupancy() stageOccupancy {
	occ := stageOccupancy{IF: -1, ID: -1, EX: -1, MEM: -1, WB: -1}
	if p.ifid.Valid {
		occ.IF = p.ifid.PC
	}
	if p.idex.Valid {
		occ.ID = p.idex.PC
	}
	if p.exmem.Valid {
		occ.EX = p.exmem.PC
		occ.MEM = p.exmem.PC
	}
	if p.memwb.Valid {
		occ.WB = p.memwb.PC
	}
	return occ
}

// updateLastStages records the deepest stage each visible instruction
// reached this cycle.
func (p *Pipeline) updateLastStages(occ stageOccupancy) {
	for _, sp := range occ.stages() {
		if st := p.statusAt(sp.pc); st != nil {
			st.LastStage = sp.name
		}
	}
}
