package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

var _ = Describe("DecodeControl", func() {
	It("should decode add", func() {
		sig := pipeline.DecodeControl(&insts.Instruction{Op: insts.OpADD})
		Expect(sig).To(Equal(pipeline.ControlSignals{
			RegWrite: true, ALUSrc: "reg", ALUOp: "add",
		}))
	})

	It("should decode sub", func() {
		sig := pipeline.DecodeControl(&insts.Instruction{Op: insts.OpSUB})
		Expect(sig).To(Equal(pipeline.ControlSignals{
			RegWrite: true, ALUSrc: "reg", ALUOp: "sub",
		}))
	})

	It("should decode lw", func() {
		sig := pipeline.DecodeControl(&insts.Instruction{Op: insts.OpLW})
		Expect(sig).To(Equal(pipeline.ControlSignals{
			RegWrite: true, MemRead: true, MemToReg: true,
			ALUSrc: "imm", ALUOp: "add",
		}))
	})

	It("should decode sw", func() {
		sig := pipeline.DecodeControl(&insts.Instruction{Op: insts.OpSW})
		Expect(sig).To(Equal(pipeline.ControlSignals{
			MemWrite: true, ALUSrc: "imm", ALUOp: "add",
		}))
	})

	It("should decode beq", func() {
		sig := pipeline.DecodeControl(&insts.Instruction{Op: insts.OpBEQ})
		Expect(sig).To(Equal(pipeline.ControlSignals{
			Branch: true, ALUSrc: "reg", ALUOp: "sub",
		}))
	})

	It("should decode nop with everything deasserted", func() {
		sig := pipeline.DecodeControl(insts.NOP)
		Expect(sig).To(Equal(pipeline.ControlSignals{ALUSrc: "reg", ALUOp: "add"}))
	})
})

var _ = Describe("Telemetry", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		pipe    *pipeline.Pipeline
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
	})

	Describe("ControlSignals", func() {
		It("should follow the instruction in decode", func() {
			pipe = pipeline.NewPipeline(regFile, memory)
			pipe.LoadProgram(assemble("lw x1, 0(x0)"))

			Expect(pipe.ControlSignals().MemRead).To(BeFalse(), "decode slot still empty")

			pipe.Step()
			sig := pipe.ControlSignals()
			Expect(sig.MemRead).To(BeTrue())
			Expect(sig.ALUSrc).To(Equal("imm"))
		})
	})

	Describe("InFlight", func() {
		It("should list stage occupants front to back", func() {
			pipe = pipeline.NewPipeline(regFile, memory)
			pipe.LoadProgram(assemble(
				"add x1, x0, x0\n" +
					"add x2, x0, x0\n" +
					"add x3, x0, x0\n"))

			pipe.RunCycles(2)

			Expect(pipe.InFlight()).To(Equal([]pipeline.StageOccupant{
				{Stage: "IF", PC: 1, Text: "add x2, x0, x0"},
				{Stage: "ID", PC: 0, Text: "add x1, x0, x0"},
			}))
		})

		It("should be empty when drained", func() {
			pipe = pipeline.NewPipeline(regFile, memory)
			pipe.LoadProgram(assemble("add x1, x0, x0"))
			drain(pipe)
			Expect(pipe.InFlight()).To(BeEmpty())
		})
	})

	Describe("AddrLog", func() {
		BeforeEach(func() {
			pipe = pipeline.NewPipeline(regFile, memory)
			pipe.LoadProgram(assemble("lw x1, 4(x0)"))
			pipe.PokeMemory(4, 9)
			drain(pipe)
		})

		It("should log the address computation and the memory access", func() {
			log := pipe.AddrLog(0)
			Expect(log).To(HaveLen(2))

			Expect(log[0].Kind).To(Equal(pipeline.AddrEventALU))
			Expect(log[0].PC).To(Equal(0))
			Expect(log[0].Result).To(Equal(int64(4)))

			Expect(log[1].Kind).To(Equal(pipeline.AddrEventLoad))
			Expect(log[1].Addr).To(Equal(int64(4)))
			Expect(log[1].Value).To(Equal(int64(9)))
			Expect(log[1].Cycle).To(Equal(log[0].Cycle + 1))
		})

		It("should return only the tail when bounded", func() {
			log := pipe.AddrLog(1)
			Expect(log).To(HaveLen(1))
			Expect(log[0].Kind).To(Equal(pipeline.AddrEventLoad))
		})
	})

	Describe("AddrLog for stores and branches", func() {
		It("should log the comparison outcome and the store", func() {
			pipe = pipeline.NewPipeline(regFile, memory)
			pipe.LoadProgram(assemble(
				"beq x0, x0, next\n" +
					"next:\n" +
					"sw x0, 8(x0)\n"))
			drain(pipe)

			log := pipe.AddrLog(0)

			var kinds []pipeline.AddrEventKind
			for _, ev := range log {
				kinds = append(kinds, ev.Kind)
			}
			Expect(kinds).To(ContainElements(
				pipeline.AddrEventBranchCmp, pipeline.AddrEventALU, pipeline.AddrEventStore))

			for _, ev := range log {
				if ev.Kind == pipeline.AddrEventBranchCmp {
					Expect(ev.Taken).To(BeTrue())
				}
				if ev.Kind == pipeline.AddrEventStore {
					Expect(ev.Addr).To(Equal(int64(8)))
					Expect(ev.Value).To(Equal(int64(0)))
				}
			}
		})
	})

	Describe("CPIBreakdown", func() {
		It("should attribute cycles", func() {
			pipe = pipeline.NewPipeline(regFile, memory)
			pipe.LoadProgram(assemble(
				"add x1, x0, x0\n" +
					"add x2, x0, x0\n" +
					"add x3, x0, x0\n"))
			drain(pipe)

			breakdown := pipe.CPIBreakdown()
			Expect(breakdown.Cycles).To(Equal(uint64(7)))
			Expect(breakdown.UsefulPct).To(BeNumerically("~", 300.0/7.0, 1e-9))
			Expect(breakdown.StallPct).To(Equal(0.0))
			Expect(breakdown.FlushPct).To(Equal(0.0))
			Expect(breakdown.Mispredicts).To(Equal(uint64(0)))
		})
	})

	Describe("GanttWindow", func() {
		BeforeEach(func() {
			pipe = pipeline.NewPipeline(regFile, memory)
			pipe.LoadProgram(assemble("add x1, x2, x3"))
			drain(pipe)
		})

		It("should render the instruction's march through the stages", func() {
			view := pipe.GanttWindow(10)
			Expect(view.Cycles).To(Equal([]uint64{1, 2, 3, 4, 5}))
			Expect(view.Labels).To(Equal([]string{"add x1, x2, x3"}))
			Expect(string(view.Matrix[0])).To(Equal(".IDMW"))
		})

		It("should bound the trailing window", func() {
			view := pipe.GanttWindow(2)
			Expect(view.Cycles).To(Equal([]uint64{4, 5}))
			Expect(string(view.Matrix[0])).To(Equal("MW"))
		})
	})
})
