package pipeline_test

import (
	"bytes"
	"encoding/csv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

var _ = Describe("Trace", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		pipe    *pipeline.Pipeline
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		pipe = pipeline.NewPipeline(regFile, memory)
		pipe.LoadProgram(assemble("add x1, x2, x3"))
	})

	It("should record one row per executed cycle", func() {
		drain(pipe)
		Expect(pipe.Trace()).To(HaveLen(5))
	})

	It("should show the instruction marching through the stages", func() {
		drain(pipe)
		trace := pipe.Trace()

		Expect(trace[0]).To(Equal(pipeline.TraceRow{
			Cycle: 1, IF: "add x1, x2, x3", ID: "NOP", EX: "NOP", MEM: "NOP", WB: "NOP",
		}))
		Expect(trace[1].ID).To(Equal("add x1, x2, x3"))
		Expect(trace[2].EX).To(Equal("add x1, x2, x3"))
		Expect(trace[3].MEM).To(Equal("add x1, x2, x3"))
		Expect(trace[4]).To(Equal(pipeline.TraceRow{
			Cycle: 5, IF: "NOP", ID: "NOP", EX: "NOP", MEM: "NOP", WB: "NOP",
		}))
	})

	It("should mirror MEM into WB within a row", func() {
		drain(pipe)
		for _, row := range pipe.Trace() {
			Expect(row.WB).To(Equal(row.MEM))
		}
	})

	Describe("WriteTrace", func() {
		It("should export the rows as CSV", func() {
			drain(pipe)

			var buf bytes.Buffer
			Expect(pipe.WriteTrace(&buf)).To(Succeed())

			records, err := csv.NewReader(&buf).ReadAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(6))
			Expect(records[0]).To(Equal([]string{"cycle", "IF", "ID", "EX", "MEM", "WB"}))
			Expect(records[1]).To(Equal([]string{
				"1", "add x1, x2, x3", "NOP", "NOP", "NOP", "NOP",
			}))
			Expect(records[5]).To(Equal([]string{
				"5", "NOP", "NOP", "NOP", "NOP", "NOP",
			}))
		})

		It("should export just the header for a fresh pipeline", func() {
			var buf bytes.Buffer
			Expect(pipe.WriteTrace(&buf)).To(Succeed())

			records, err := csv.NewReader(&buf).ReadAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})
	})
})
