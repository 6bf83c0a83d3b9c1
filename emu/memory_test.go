package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv5sim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should read 0 for addresses never written", func() {
		Expect(memory.Read(0)).To(Equal(int64(0)))
		Expect(memory.Read(12345)).To(Equal(int64(0)))
	})

	It("should read back written values", func() {
		memory.Write(8, 42)
		Expect(memory.Read(8)).To(Equal(int64(42)))
	})

	It("should accept unconstrained addresses", func() {
		memory.Write(-16, 7)
		memory.Write(3, 9) // no alignment enforcement
		Expect(memory.Read(-16)).To(Equal(int64(7)))
		Expect(memory.Read(3)).To(Equal(int64(9)))
	})

	It("should count written addresses", func() {
		memory.Write(0, 1)
		memory.Write(8, 2)
		memory.Write(0, 3)
		Expect(memory.Len()).To(Equal(2))
	})

	It("should return an independent copy from Snapshot", func() {
		memory.Write(4, 11)
		snapshot := memory.Snapshot()
		snapshot[4] = 999
		Expect(memory.Read(4)).To(Equal(int64(11)))
		Expect(snapshot).To(HaveLen(1))
	})

	It("should discard all contents on Reset", func() {
		memory.Write(4, 11)
		memory.Reset()
		Expect(memory.Len()).To(Equal(0))
		Expect(memory.Read(4)).To(Equal(int64(0)))
	})
})
