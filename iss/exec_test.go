package iss_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscvsim/iss"
	"github.com/sarchlab/riscvsim/platform"
)

var _ = Describe("Exec loop", func() {
	It("should fail to start with an unbound mandatory port", func() {
		engine := platform.MakeBuilder().Build("Probe").Engine
		core := iss.NewCore("Lonely", engine, 1e9, simpleConfig())

		Expect(core.Start()).To(HaveOccurred())
	})

	It("should execute a straight-line program", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(codeAddr,
			addi(1, 0, 5),
			addi(2, 0, 7),
			0x002081B3, // add x3, x1, x2
			insnWFI,
		)

		b.boot()
		b.run()

		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(5)))
		Expect(b.Core.Regfile.Get(2)).To(Equal(uint32(7)))
		Expect(b.Core.Regfile.Get(3)).To(Equal(uint32(12)))
		Expect(b.Core.Timing.Stats().Instructions).To(Equal(uint64(4)))
	})

	It("should keep x0 at zero regardless of writes", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(codeAddr,
			addi(0, 0, 99),
			addi(5, 0, 1),
			insnWFI,
		)

		b.boot()
		b.run()

		Expect(b.Core.Regfile.Get(0)).To(Equal(uint32(0)))
		Expect(b.Core.Regfile.Get(5)).To(Equal(uint32(1)))
	})

	It("should boot at bootaddr plus offset with the vector base masked", func() {
		cfg := iss.DefaultConfig()
		cfg.BootAddr = 0x1C008080
		cfg.BootAddrOffset = 0x80
		cfg.FetchEnable = false

		var first uint32
		hook := func(i *iss.DecodedInsn) {
			if first == 0 {
				first = i.Addr
			}
		}

		b := newBench(cfg, []iss.CoreOption{iss.WithInsnHook(hook)}, nil)
		b.writeWords(0x1C008100,
			addi(1, 0, 5),
			insnWFI,
		)

		b.boot()
		b.run()

		Expect(first).To(Equal(uint32(0x1C008100)))
		Expect(b.Core.Irq.VectorBase()).To(Equal(uint32(0x1C008000)))
		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(5)))
	})

	It("should not run before fetch enable rises", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(codeAddr,
			addi(1, 0, 5),
			insnWFI,
		)

		Expect(b.Core.Start()).To(Succeed())
		b.run()
		Expect(b.Core.Timing.Stats().Instructions).To(Equal(uint64(0)))

		b.Core.FetchEnSync(true)
		b.run()
		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(5)))
	})

	It("should halt once the retire limit is reached", func() {
		b := newBench(simpleConfig(),
			[]iss.CoreOption{iss.WithRetireLimit(3)}, nil)
		b.writeWords(codeAddr,
			addi(1, 0, 1),
			addi(1, 1, 1),
			addi(1, 1, 1),
			addi(1, 1, 1),
			insnWFI,
		)

		b.boot()
		b.run()

		// Retire limit halted the core after three instructions.
		Expect(b.Core.Halted()).To(BeTrue())
		Expect(b.Core.Timing.Stats().Instructions).To(Equal(uint64(3)))
		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(3)))
	})

	It("should take taken branches to their static target", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(codeAddr,
			addi(1, 0, 4),
			0x00208463, // beq x1, x2, +8 (not taken: x2 == 0)
			addi(2, 2, 1),
			0xFE209EE3, // bne x1, x2, -4 (not taken once equal)
			insnWFI,
		)

		b.boot()
		b.run()

		// The bne loops back to the addi until x2 catches up with x1.
		Expect(b.Core.Regfile.Get(2)).To(Equal(uint32(4)))
		Expect(b.Core.Timing.Stats().TakenBranches).To(BeNumerically(">", 0))
	})

	It("should re-resolve the vector table on a bootaddr sync", func() {
		b := newBench(simpleConfig(), nil, nil)

		b.Core.BootAddrSync(0x1C008080)

		Expect(b.Core.Irq.VectorBase()).To(Equal(uint32(0x1C008000)))
	})

	It("should report halt transitions on the halt-status port", func() {
		b := newBench(simpleConfig(), nil, nil)
		status := &platform.BoolWire{}
		b.Core.BindHaltStatus(status)
		b.writeWords(codeAddr, addi(1, 0, 1), insnJ0)
		b.boot()

		b.Core.HaltSync(true)
		b.run()

		Expect(status.Level).To(BeTrue())
		Expect(status.Changes).To(Equal(1))

		b.Core.HaltSync(false)
		Expect(status.Level).To(BeFalse())
	})

	It("should gate the loop on the clock wire", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(codeAddr,
			addi(1, 0, 5),
			insnWFI,
		)

		b.Core.ClockSync(false)
		b.boot()
		b.run()
		Expect(b.Core.Timing.Stats().Instructions).To(Equal(uint64(0)))

		b.Core.ClockSync(true)
		b.run()
		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(5)))
	})

	It("should count retired instructions into the pccr bank", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(codeAddr,
			addi(1, 0, 1),
			addi(2, 0, 2),
			addi(3, 0, 3),
			insnWFI,
		)

		// Start resets the CSR file, so the counters are enabled after it
		// and before fetch enable rises.
		Expect(b.Core.Start()).To(Succeed())
		b.Core.CsrWrite(iss.CsrPcer, 1<<iss.PcerInstr)
		b.Core.CsrWrite(iss.CsrPcmr, 1)
		b.Core.FetchEnSync(true)
		b.run()

		Expect(b.Core.Csr.Pccr[iss.PcerInstr]).To(Equal(uint32(4)))
	})

	It("should run asynchronously responding memory to completion", func() {
		b := newBench(simpleConfig(), nil,
			[]platform.MemoryOption{
				platform.WithLatency(3),
				platform.WithAsyncResponses(),
			})
		b.writeWords(codeAddr,
			addi(1, 0, 5),
			addi(2, 0, 7),
			0x002081B3, // add x3, x1, x2
			insnWFI,
		)

		b.boot()
		b.run()

		Expect(b.Core.Regfile.Get(3)).To(Equal(uint32(12)))
	})
})

var _ = Describe("Mul/div semantics", func() {
	runALU := func(words ...uint32) *bench {
		b := newBench(simpleConfig(), nil, nil)
		prog := append([]uint32{}, words...)
		prog = append(prog, insnWFI)
		b.writeWords(codeAddr, prog...)
		b.boot()
		b.run()
		return b
	}

	It("should divide INT_MIN by -1 into INT_MIN with 33 stall cycles", func() {
		b := runALU(
			lui(1, 0x80000),  // x1 = 0x80000000
			addi(2, 0, -1),   // x2 = 0xFFFFFFFF
			0x0220C1B3,       // div x3, x1, x2
		)

		Expect(b.Core.Regfile.Get(3)).To(Equal(uint32(0x80000000)))
		Expect(b.Core.Timing.Stats().StallCycles).To(Equal(uint64(33)))
	})

	It("should divide by zero into all ones", func() {
		b := runALU(
			addi(1, 0, 17),
			0x0220C1B3, // div x3, x1, x2 (x2 == 0)
		)

		Expect(b.Core.Regfile.Get(3)).To(Equal(uint32(0xFFFFFFFF)))
	})

	It("should leave the dividend in rem by zero", func() {
		b := runALU(
			addi(1, 0, 17),
			0x0220E1B3, // rem x3, x1, x2 (x2 == 0)
		)

		Expect(b.Core.Regfile.Get(3)).To(Equal(uint32(17)))
	})

	It("should mirror the overflow case in rem", func() {
		b := runALU(
			lui(1, 0x80000),
			addi(2, 0, -1),
			0x0220E1B3, // rem x3, x1, x2
		)

		Expect(b.Core.Regfile.Get(3)).To(Equal(uint32(0)))
	})

	It("should compute divu with a zero divisor in one stall cycle", func() {
		b := runALU(
			addi(1, 0, 17),
			0x0220D1B3, // divu x3, x1, x2 (x2 == 0)
		)

		Expect(b.Core.Regfile.Get(3)).To(Equal(uint32(0xFFFFFFFF)))
		Expect(b.Core.Timing.Stats().StallCycles).To(Equal(uint64(1)))
	})

	It("should compute the high multiply halves", func() {
		b := runALU(
			addi(1, 0, -2),
			addi(2, 0, 3),
			0x022091B3, // mulh x3, x1, x2
			0x0220B233, // mulhu x4, x1, x2
		)

		// -2 * 3 = -6: high half all ones.
		Expect(b.Core.Regfile.Get(3)).To(Equal(uint32(0xFFFFFFFF)))
		// 0xFFFFFFFE * 3 = 0x2_FFFFFFFA: high half 2.
		Expect(b.Core.Regfile.Get(4)).To(Equal(uint32(2)))
	})
})
