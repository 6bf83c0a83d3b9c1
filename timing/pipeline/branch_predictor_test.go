package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv5sim/insts"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

var _ = Describe("BranchPredictor", func() {
	var beq *insts.Instruction

	BeforeEach(func() {
		beq = &insts.Instruction{Op: insts.OpBEQ, Rn: 1, Rm: 2, BranchTarget: 0, Raw: "beq x1, x2, 0"}
	})

	Describe("mode none", func() {
		It("should never predict taken", func() {
			bp := pipeline.NewBranchPredictor(pipeline.PredictorNone)
			Expect(bp.Predict(0, beq)).To(BeFalse())

			bp.Update(0, true)
			Expect(bp.Predict(0, beq)).To(BeFalse())
			Expect(bp.Snapshot()).To(BeEmpty())
		})
	})

	Describe("mode static_nt", func() {
		It("should always predict not-taken and keep no history", func() {
			bp := pipeline.NewBranchPredictor(pipeline.PredictorStaticNT)
			Expect(bp.Predict(0, beq)).To(BeFalse())

			bp.Update(0, true)
			Expect(bp.Predict(0, beq)).To(BeFalse())
			Expect(bp.Snapshot()).To(BeEmpty())
		})
	})

	Describe("mode onebit", func() {
		var bp *pipeline.BranchPredictor

		BeforeEach(func() {
			bp = pipeline.NewBranchPredictor(pipeline.PredictorOneBit)
		})

		It("should default to not-taken for unseen PCs", func() {
			Expect(bp.Predict(5, beq)).To(BeFalse())
		})

		It("should predict the last observed outcome per PC", func() {
			bp.Update(5, true)
			Expect(bp.Predict(5, beq)).To(BeTrue())
			Expect(bp.Predict(6, beq)).To(BeFalse())

			bp.Update(5, false)
			Expect(bp.Predict(5, beq)).To(BeFalse())
		})

		It("should never predict non-branch instructions taken", func() {
			add := &insts.Instruction{Op: insts.OpADD, Rd: 1}
			bp.Update(5, true)
			Expect(bp.Predict(5, add)).To(BeFalse())
		})

		It("should snapshot the table sorted by PC", func() {
			bp.Update(7, true)
			bp.Update(2, false)
			bp.Update(4, true)

			Expect(bp.Snapshot()).To(Equal([]pipeline.PredictorEntry{
				{PC: 2, Taken: false},
				{PC: 4, Taken: true},
				{PC: 7, Taken: true},
			}))
		})

		It("should clear history on Reset", func() {
			bp.Update(5, true)
			bp.Reset()
			Expect(bp.Predict(5, beq)).To(BeFalse())
			Expect(bp.Snapshot()).To(BeEmpty())
		})
	})

	Describe("ParsePredictorMode", func() {
		It("should resolve configuration names", func() {
			mode, err := pipeline.ParsePredictorMode("none")
			Expect(err).NotTo(HaveOccurred())
			Expect(mode).To(Equal(pipeline.PredictorNone))

			mode, err = pipeline.ParsePredictorMode("static_nt")
			Expect(err).NotTo(HaveOccurred())
			Expect(mode).To(Equal(pipeline.PredictorStaticNT))

			mode, err = pipeline.ParsePredictorMode("onebit")
			Expect(err).NotTo(HaveOccurred())
			Expect(mode).To(Equal(pipeline.PredictorOneBit))
		})

		It("should default an empty name to none", func() {
			mode, err := pipeline.ParsePredictorMode("")
			Expect(err).NotTo(HaveOccurred())
			Expect(mode).To(Equal(pipeline.PredictorNone))
		})

		It("should reject unknown names", func() {
			_, err := pipeline.ParsePredictorMode("twobit")
			Expect(err).To(MatchError(ContainSubstring("unknown predictor mode")))
		})
	})

	Describe("mode names", func() {
		It("should round-trip through String", func() {
			Expect(pipeline.PredictorNone.String()).To(Equal("none"))
			Expect(pipeline.PredictorStaticNT.String()).To(Equal("static_nt"))
			Expect(pipeline.PredictorOneBit.String()).To(Equal("onebit"))
		})
	})
})
