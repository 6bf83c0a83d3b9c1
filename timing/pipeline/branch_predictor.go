package pipeline

import (
	"fmt"
	"sort"

	"github.com/sarchlab/rv5sim/insts"
)

// PredictorMode selects the branch prediction scheme.
type PredictorMode int

const (
	// PredictorNone never predicts taken; the branch outcome is used
	// as soon as it resolves in EX.
	PredictorNone PredictorMode = iota
	// PredictorStaticNT always predicts not-taken. Fetch behaves the
	// same as PredictorNone but the prediction is modeled explicitly
	// for comparison.
	PredictorStaticNT
	// PredictorOneBit predicts the last observed outcome for each
	// branch PC, defaulting to not-taken for unseen PCs.
	PredictorOneBit
)

// String returns the configuration name of the mode.
func (m PredictorMode) String() string {
	switch m {
	case PredictorStaticNT:
		return "static_nt"
	case PredictorOneBit:
		return "onebit"
	default:
		return "none"
	}
}

// ParsePredictorMode resolves a configuration name to a mode.
func ParsePredictorMode(s string) (PredictorMode, error) {
	switch s {
	case "none", "":
		return PredictorNone, nil
	case "static_nt":
		return PredictorStaticNT, nil
	case "onebit":
		return PredictorOneBit, nil
	default:
		return PredictorNone, fmt.Errorf("unknown predictor mode %q", s)
	}
}

// PredictorEntry is one row of the one-bit history table snapshot.
type PredictorEntry struct {
	// PC is the branch's program index.
	PC int
	// Taken is the last observed outcome.
	Taken bool
}

// BranchPredictor predicts branch outcomes at fetch time. Only the
// one-bit mode keeps state: a per-PC record of the last actual outcome.
type BranchPredictor struct {
	mode  PredictorMode
	table map[int]bool
}

// NewBranchPredictor creates a predictor in the given mode.
func NewBranchPredictor(mode PredictorMode) *BranchPredictor {
	return &BranchPredictor{
		mode:  mode,
		table: make(map[int]bool),
	}
}

// Mode returns the configured prediction mode.
func (bp *BranchPredictor) Mode() PredictorMode {
	return bp.mode
}

// Predict returns the taken prediction for the instruction fetched at the
// given PC. Non-branch instructions are never predicted taken.
func (bp *BranchPredictor) Predict(pc int, inst *insts.Instruction) bool {
	if inst.IsNop() || inst.Op != insts.OpBEQ {
		return false
	}
	if bp.mode == PredictorOneBit {
		return bp.table[pc]
	}
	return false
}

// Update records the actual outcome of a resolved branch. Only the
// one-bit mode keeps history.
func (bp *BranchPredictor) Update(pc int, taken bool) {
	if bp.mode == PredictorOneBit {
		bp.table[pc] = taken
	}
}

// Snapshot returns the history table entries sorted by PC.
func (bp *BranchPredictor) Snapshot() []PredictorEntry {
	entries := make([]PredictorEntry, 0, len(bp.table))
	for pc, taken := range bp.table {
		entries = append(entries, PredictorEntry{PC: pc, Taken: taken})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PC < entries[j].PC
	})
	return entries
}

// Reset clears all predictor history.
func (bp *BranchPredictor) Reset() {
	bp.table = make(map[int]bool)
}
