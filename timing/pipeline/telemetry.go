package pipeline

import (
	"sort"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
)

// Stage names as shown in telemetry.
const (
	stageIF  = "IF"
	stageID  = "ID"
	stageEX  = "EX"
	stageMEM = "MEM"
	stageWB  = "WB"
)

// Statistics holds aggregate pipeline counters.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Retired is the number of instructions that completed writeback.
	Retired uint64
	// Stalls is the number of stall events (decode and structural).
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// Mispredicts is the number of branch mispredictions.
	Mispredicts uint64
}

// CPI returns the cycles per retired instruction.
func (s Statistics) CPI() float64 {
	if s.Retired == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Retired)
}

// CycleEvents describes everything notable that happened in the most
// recent cycle.
type CycleEvents struct {
	// Stall is true if decode stalled, with the reason and the
	// producer/consumer detail that was inspected.
	Stall       bool
	StallReason StallReason
	Hazard      HazardDetail

	// BranchTaken is true if a branch resolved taken this cycle.
	BranchTaken bool

	// Mispredict is true if a branch misprediction was corrected.
	Mispredict bool

	// StructuralStall is true if fetch was blocked on the memory port.
	StructuralStall bool

	// Forwarding source chosen for each EX operand.
	ForwardA ForwardSource
	ForwardB ForwardSource
}

// InstStatus tracks one program instruction for introspection. It feeds
// the program-status view and never drives control decisions.
type InstStatus struct {
	// PC is the instruction's program index.
	PC int
	// Text is the instruction's source text.
	Text string
	// LastStage is the deepest stage the instruction was observed in
	// ("-" before first fetch).
	LastStage string
	// Retired is true once the instruction completed writeback.
	Retired bool
	// RetireCycle is the cycle the instruction retired in (valid only
	// when Retired is true).
	RetireCycle uint64
}

// StallCount is one row of the stall-reason histogram.
type StallCount struct {
	Reason StallReason
	Count  uint64
}

// ControlSignals are the decoded control lines for the instruction in
// decode, as shown on a classic single-cycle datapath diagram.
type ControlSignals struct {
	RegWrite bool
	MemRead  bool
	MemWrite bool
	MemToReg bool
	Branch   bool
	// ALUSrc is "reg" or "imm".
	ALUSrc string
	// ALUOp is "add" or "sub".
	ALUOp string
}

// DecodeControl derives the control signals for an instruction.
func DecodeControl(inst *insts.Instruction) ControlSignals {
	sig := ControlSignals{ALUSrc: "reg", ALUOp: "add"}
	if inst.IsNop() {
		return sig
	}
	switch inst.Op {
	case insts.OpADD:
		sig.RegWrite = true
	case insts.OpSUB:
		sig.RegWrite = true
		sig.ALUOp = "sub"
	case insts.OpLW:
		sig.RegWrite = true
		sig.MemRead = true
		sig.MemToReg = true
		sig.ALUSrc = "imm"
	case insts.OpSW:
		sig.MemWrite = true
		sig.ALUSrc = "imm"
	case insts.OpBEQ:
		sig.Branch = true
		sig.ALUOp = "sub"
	}
	return sig
}

// AddrEventKind classifies address-log entries.
type AddrEventKind string

// Address-log entry kinds.
const (
	AddrEventALU       AddrEventKind = "alu"
	AddrEventBranchCmp AddrEventKind = "branch_cmp"
	AddrEventLoad      AddrEventKind = "lw"
	AddrEventStore     AddrEventKind = "sw"
)

// AddrEvent is one entry of the ALU/memory event log.
type AddrEvent struct {
	Cycle uint64
	Kind  AddrEventKind
	PC    int
	Op    insts.Op

	// Operands and result for ALU and branch-compare events.
	A      int64
	B      int64
	Result int64

	// Address and value for load and store events.
	Addr  int64
	Value int64

	// Taken is the outcome of a branch-compare event.
	Taken bool
}

// StageOccupant is one in-flight instruction and the stage holding it.
type StageOccupant struct {
	Stage string
	PC    int
	Text  string
}

// GanttView is a bounded trailing window of stage occupancy suitable for
// a timeline rendering. Matrix[pc][col] holds a stage letter
// (I, D, E, M, W) or '.' for absent.
type GanttView struct {
	// Cycles holds the 1-based cycle number of each column.
	Cycles []uint64
	// Labels holds the source text of each program row.
	Labels []string
	// Matrix is indexed by program index, then column.
	Matrix [][]byte
}

// CPIBreakdown summarizes where cycles went.
type CPIBreakdown struct {
	Cycles      uint64
	UsefulPct   float64
	StallPct    float64
	FlushPct    float64
	Mispredicts uint64
}

// stageOccupancy records which program index occupied each stage at the
// start of a cycle (-1 for empty).
type stageOccupancy struct {
	IF, ID, EX, MEM, WB int
}

type stagePC struct {
	name string
	pc   int
}

// stages lists the occupied stages in pipeline order.
func (o stageOccupancy) stages() []stagePC {
	all := []stagePC{
		{stageIF, o.IF},
		{stageID, o.ID},
		{stageEX, o.EX},
		{stageMEM, o.MEM},
		{stageWB, o.WB},
	}
	occupied := all[:0]
	for _, sp := range all {
		if sp.pc >= 0 {
			occupied = append(occupied, sp)
		}
	}
	return occupied
}

// PC returns the current program counter (an instruction index).
func (p *Pipeline) PC() int {
	return p.pc
}

// Program returns the loaded program.
func (p *Pipeline) Program() *insts.Program {
	return p.program
}

// Forwarding reports whether operand bypassing is enabled.
func (p *Pipeline) Forwarding() bool {
	return p.forwarding
}

// StructuralHazard reports whether the shared memory port is modeled.
func (p *Pipeline) StructuralHazard() bool {
	return p.structural
}

// PredictorMode returns the configured branch prediction mode.
func (p *Pipeline) PredictorMode() PredictorMode {
	return p.predictorMode
}

// Stats returns the aggregate counters.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// LastEvents returns the event record of the most recent cycle.
func (p *Pipeline) LastEvents() CycleEvents {
	return p.events
}

// Reg returns one register value. Register 0 always reads as zero.
func (p *Pipeline) Reg(reg uint8) int64 {
	return p.regFile.ReadReg(reg)
}

// Registers returns a copy of the register file.
func (p *Pipeline) Registers() [emu.NumRegs]int64 {
	return p.regFile.Values()
}

// MemorySnapshot returns a copy of the sparse data memory.
func (p *Pipeline) MemorySnapshot() map[int64]int64 {
	return p.memory.Snapshot()
}

// IFID returns a copy of the IF/ID latch.
func (p *Pipeline) IFID() IFIDRegister {
	return p.ifid
}

// IDEX returns a copy of the ID/EX latch.
func (p *Pipeline) IDEX() IDEXRegister {
	return p.idex
}

// EXMEM returns a copy of the EX/MEM latch.
func (p *Pipeline) EXMEM() EXMEMRegister {
	return p.exmem
}

// MEMWB returns a copy of the MEM/WB latch.
func (p *Pipeline) MEMWB() MEMWBRegister {
	return p.memwb
}

// ControlSignals returns the decoded control lines for the instruction
// currently in decode.
func (p *Pipeline) ControlSignals() ControlSignals {
	if !p.ifid.Valid {
		return DecodeControl(insts.NOP)
	}
	return DecodeControl(p.ifid.Inst)
}

// StallBreakdown returns the stall-reason histogram sorted by count
// (descending), then reason.
func (p *Pipeline) StallBreakdown() []StallCount {
	counts := make([]StallCount, 0, len(p.stallBreakdown))
	for reason, count := range p.stallBreakdown {
		counts = append(counts, StallCount{Reason: reason, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Reason < counts[j].Reason
	})
	return counts
}

// ProgramStatus returns one status row per program instruction.
func (p *Pipeline) ProgramStatus() []InstStatus {
	out := make([]InstStatus, len(p.status))
	copy(out, p.status)
	return out
}

// PredictorSnapshot returns the one-bit history table with instruction
// text, sorted by PC.
func (p *Pipeline) PredictorSnapshot() []PredictorEntry {
	return p.predictor.Snapshot()
}

// InFlight lists the instructions currently occupying pipeline stages.
func (p *Pipeline) InFlight() []StageOccupant {
	var out []StageOccupant
	if p.ifid.Valid {
		out = append(out, StageOccupant{Stage: stageIF, PC: p.ifid.PC, Text: p.ifid.Text()})
	}
	if p.idex.Valid {
		out = append(out, StageOccupant{Stage: stageID, PC: p.idex.PC, Text: p.idex.Text()})
	}
	if p.exmem.Valid {
		out = append(out, StageOccupant{Stage: stageEX, PC: p.exmem.PC, Text: p.exmem.Text()})
	}
	if p.memwb.Valid {
		out = append(out, StageOccupant{Stage: "MEM/WB", PC: p.memwb.PC, Text: p.memwb.Text()})
	}
	return out
}

// AddrLog returns the last n ALU/memory events (all of them if n <= 0 or
// exceeds the log length).
func (p *Pipeline) AddrLog(n int) []AddrEvent {
	start := 0
	if n > 0 && len(p.addrLog) > n {
		start = len(p.addrLog) - n
	}
	out := make([]AddrEvent, len(p.addrLog)-start)
	copy(out, p.addrLog[start:])
	return out
}

// CPIBreakdown summarizes cycle usage percentages.
func (p *Pipeline) CPIBreakdown() CPIBreakdown {
	cycles := p.stats.Cycles
	if cycles == 0 {
		cycles = 1
	}
	return CPIBreakdown{
		Cycles:      cycles,
		UsefulPct:   float64(p.stats.Retired) / float64(cycles) * 100,
		StallPct:    float64(p.stats.Stalls) / float64(cycles) * 100,
		FlushPct:    float64(p.stats.Flushes) / float64(cycles) * 100,
		Mispredicts: p.stats.Mispredicts,
	}
}

// GanttWindow returns the stage-occupancy matrix for the trailing
// maxCycles cycles.
func (p *Pipeline) GanttWindow(maxCycles int) GanttView {
	window := p.occupancy
	if maxCycles > 0 && len(window) > maxCycles {
		window = window[len(window)-maxCycles:]
	}

	startCycle := p.stats.Cycles - uint64(len(window)) + 1
	if len(window) == 0 {
		startCycle = 1
	}

	view := GanttView{
		Cycles: make([]uint64, len(window)),
		Labels: make([]string, p.program.Len()),
		Matrix: make([][]byte, p.program.Len()),
	}
	for i := range view.Cycles {
		view.Cycles[i] = startCycle + uint64(i)
	}
	for pc := range view.Labels {
		view.Labels[pc] = p.program.Text(pc)
		row := make([]byte, len(window))
		for i := range row {
			row[i] = '.'
		}
		view.Matrix[pc] = row
	}

	letters := map[string]byte{
		stageIF: 'I', stageID: 'D', stageEX: 'E', stageMEM: 'M', stageWB: 'W',
	}
	for col, occ := range window {
		for _, sp := range occ.stages() {
			if sp.pc >= 0 && sp.pc < len(view.Matrix) {
				view.Matrix[sp.pc][col] = letters[sp.name]
			}
		}
	}
	return view
}
