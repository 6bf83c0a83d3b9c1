package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// TraceRow records the instruction text occupying each stage at the end
// of one cycle. The per-cycle trace is the literal, order-preserving
// event log that exporters depend on.
type TraceRow struct {
	Cycle uint64
	IF    string
	ID    string
	EX    string
	MEM   string
	WB    string
}

// Trace returns a copy of the per-cycle trace log.
func (p *Pipeline) Trace() []TraceRow {
	out := make([]TraceRow, len(p.trace))
	copy(out, p.trace)
	return out
}

// WriteTrace writes the trace log as CSV: one row per executed cycle
// with a header of cycle,IF,ID,EX,MEM,WB.
func (p *Pipeline) WriteTrace(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"cycle", "IF", "ID", "EX", "MEM", "WB"}); err != nil {
		return fmt.Errorf("writing trace header: %w", err)
	}
	for _, row := range p.trace {
		record := []string{
			strconv.FormatUint(row.Cycle, 10),
			row.IF, row.ID, row.EX, row.MEM, row.WB,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing trace row %d: %w", row.Cycle, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
