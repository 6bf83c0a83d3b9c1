package pipeline

import "github.com/sarchlab/rv5sim/insts"

// ForwardSource indicates where a forwarded operand value comes from.
type ForwardSource int

const (
	// ForwardNone means no forwarding - use the register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward the ALU result from EX/MEM.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward the writeback value from MEM/WB.
	ForwardFromMEMWB
)

// String returns the telemetry name of the forwarding source.
func (f ForwardSource) String() string {
	switch f {
	case ForwardFromEXMEM:
		return "EX/MEM"
	case ForwardFromMEMWB:
		return "MEM/WB"
	default:
		return "none"
	}
}

// StallReason names the cause of a decode stall for the stall histogram.
type StallReason string

// Stall reasons.
const (
	StallNone       StallReason = ""
	StallLoadUse    StallReason = "lw-use"
	StallRAWvsEX    StallReason = "RAW vs EX"
	StallRAWvsMEM   StallReason = "RAW vs MEM"
	StallRAWvsWB    StallReason = "RAW vs WB"
	StallStructural StallReason = "structural"
)

// HazardDetail describes the producer/consumer pair the decode-stage
// hazard check inspected. It is produced whenever a real instruction sits
// in decode, regardless of whether a stall resulted.
type HazardDetail struct {
	// Valid indicates a decode-stage instruction was inspected.
	Valid bool

	// Producer describes the instruction currently in EX (if any).
	HasProducer bool
	ProducerPC  int
	ProducerOp  insts.Op
	ProducerRd  uint8

	// Consumer describes the instruction in decode.
	ConsumerOp insts.Op
	Uses       [2]uint8
}

// HazardUnit detects decode-stage stalls and resolves operand forwarding.
// With forwarding enabled the only stall is the load-use hazard; with
// forwarding disabled decode stalls against any in-flight writer of a
// register it reads.
type HazardUnit struct {
	forwarding bool
}

// NewHazardUnit creates a hazard unit.
func NewHazardUnit(forwarding bool) *HazardUnit {
	return &HazardUnit{forwarding: forwarding}
}

// DetectStall decides whether the instruction in decode must stall this
// cycle, checked against the current (not yet advanced) latch contents.
func (h *HazardUnit) DetectStall(
	ifid *IFIDRegister,
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) (bool, StallReason, HazardDetail) {
	if !ifid.Valid {
		return false, StallNone, HazardDetail{}
	}

	consumer := ifid.Inst
	detail := HazardDetail{
		Valid:      true,
		ConsumerOp: consumer.Op,
		Uses:       [2]uint8{consumer.Rn, consumer.Rm},
	}
	if idex.Valid {
		detail.HasProducer = true
		detail.ProducerPC = idex.PC
		detail.ProducerOp = idex.Inst.Op
		detail.ProducerRd = idex.Rd
	}

	if h.forwarding {
		// Load-use is the only hazard forwarding cannot hide: the
		// loaded value is not ready until after MEM.
		if idex.Valid && idex.Inst.Op == insts.OpLW &&
			idex.Rd != 0 && consumer.Uses(idex.Rd) {
			return true, StallLoadUse, detail
		}
		return false, StallNone, detail
	}

	// Forwarding disabled: RAW against every in-flight writer.
	if idex.Valid && idex.Inst.WritesRd() && idex.Rd != 0 &&
		consumer.Uses(idex.Rd) {
		return true, StallRAWvsEX, detail
	}
	if exmem.Valid && exmem.Inst.WritesRd() && exmem.Rd != 0 &&
		consumer.Uses(exmem.Rd) {
		return true, StallRAWvsMEM, detail
	}
	if memwb.Valid && memwb.Inst.WritesRd() && memwb.Rd != 0 &&
		consumer.Uses(memwb.Rd) {
		return true, StallRAWvsWB, detail
	}
	return false, StallNone, detail
}

// ForwardSourceFor determines the bypass source for one source register of
// the instruction in EX. EX/MEM (the newer value) has priority over
// MEM/WB; a load in EX/MEM cannot bypass because its value does not exist
// yet; register 0 always reads as zero and is never forwarded.
func (h *HazardUnit) ForwardSourceFor(
	reg uint8,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardSource {
	if !h.forwarding || reg == 0 {
		return ForwardNone
	}
	if exmem.Valid && exmem.Inst.WritesRd() && exmem.Rd == reg &&
		exmem.Inst.Op != insts.OpLW {
		return ForwardFromEXMEM
	}
	if memwb.Valid && memwb.Inst.WritesRd() && memwb.Rd == reg {
		return ForwardFromMEMWB
	}
	return ForwardNone
}

// ForwardedValue returns the operand value to use for the given source.
func (h *HazardUnit) ForwardedValue(
	source ForwardSource,
	regFileValue int64,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) int64 {
	switch source {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		return memwb.WBValue
	default:
		return regFileValue
	}
}
