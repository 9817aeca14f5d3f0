package iss_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscvsim/iss"
)

var _ = Describe("Irq and exception path", func() {
	It("should wake from WFI, vector, acknowledge and return", func() {
		b := newBench(simpleConfig(), nil, nil)

		// Vector 7 handler: capture mcause and mstatus, mark, return.
		b.writeWords(0x101C,
			0x34202473, // csrrs x8, mcause, x0
			0x300024F3, // csrrs x9, mstatus, x0
			addi(6, 0, 42),
			insnMRET,
		)
		b.writeWords(codeAddr,
			0x30046073, // csrrsi x0, mstatus, 8 (enable interrupts)
			insnWFI,
			addi(5, 0, 1),
			insnWFI,
		)

		b.boot()
		b.run()

		// Parked in WFI; nothing retired past it yet.
		Expect(b.Core.Regfile.Get(5)).To(Equal(uint32(0)))

		b.Core.IrqReqSync(7)
		b.run()

		Expect(b.IrqAck.Acks).To(Equal([]int{7}))
		Expect(b.Core.Regfile.Get(8)).To(Equal(uint32(0x80000007)))
		// Interrupts were disabled inside the handler.
		Expect(b.Core.Regfile.Get(9) & 8).To(Equal(uint32(0)))
		Expect(b.Core.Regfile.Get(6)).To(Equal(uint32(42)))
		// mret resumed after the wfi and re-enabled interrupts.
		Expect(b.Core.Regfile.Get(5)).To(Equal(uint32(1)))
		Expect(b.Core.Irq.Enabled()).To(BeTrue())
		Expect(b.Core.Csr.Epc).To(Equal(uint32(codeAddr + 8)))
		// The taken interrupt charged the four-cycle pipeline flush.
		Expect(b.Core.Timing.Stats().StallCycles).To(Equal(uint64(4)))
	})

	It("should fall through WFI when a request is already pending", func() {
		b := newBench(simpleConfig(),
			[]iss.CoreOption{iss.WithRetireLimit(2)}, nil)
		b.writeWords(codeAddr,
			insnWFI,
			addi(1, 0, 5),
			insnJ0,
		)

		// Interrupts stay globally disabled: WFI must still fall through
		// on the latched request. The request is raised after Start,
		// whose reset clears any latched request.
		Expect(b.Core.Start()).To(Succeed())
		b.Core.IrqReqSync(3)
		b.Core.FetchEnSync(true)
		b.run()

		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(5)))
		Expect(b.Core.Timing.Stats().Instructions).To(Equal(uint64(2)))
	})

	It("should enter and leave debug mode through dret", func() {
		cfg := simpleConfig()
		cfg.DebugHandler = 0x2000

		b := newBench(cfg, nil, nil)
		b.writeWords(0x2000,
			addi(20, 0, 7),
			0x7B200073, // dret
		)
		b.writeWords(codeAddr,
			addi(1, 0, 1),
			insnWFI,
		)

		b.boot()
		b.Core.Irq.DebugReq()
		b.run()

		Expect(b.Core.Regfile.Get(20)).To(Equal(uint32(7)))
		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(1)))
		Expect(b.Core.Csr.Depc).To(Equal(uint32(codeAddr)))
	})

	It("should vector environment calls with mcause 11", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(0x1084, insnWFI) // exception slot for ecall
		b.writeWords(codeAddr, insnECALL)

		b.boot()
		b.run()

		Expect(b.Core.Csr.Mcause).To(Equal(uint32(11)))
		Expect(b.Core.Csr.Epc).To(Equal(uint32(codeAddr)))

		cause, st := b.dbgRead(0x000C)
		Expect(st).To(Equal(iss.IOOK))
		Expect(cause).To(Equal(uint32(iss.HaltCauseEcall)))
	})

	It("should vector illegal instructions with mcause 2", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(0x1080, insnWFI) // exception slot for illegal
		b.writeWords(codeAddr, 0xFFFFFFFF)

		b.boot()
		b.run()

		Expect(b.Core.Csr.Mcause).To(Equal(uint32(2)))
		Expect(b.Core.Csr.Epc).To(Equal(uint32(codeAddr)))

		cause, _ := b.dbgRead(0x000C)
		Expect(cause).To(Equal(uint32(iss.HaltCauseIllegal)))
	})

	It("should resume within one tick of an interrupt landing in WFI", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(0x101C, insnMRET) // vector 7: return immediately
		b.writeWords(codeAddr,
			0x30046073, // csrrsi x0, mstatus, 8
			insnWFI,
			addi(5, 0, 1),
			insnWFI,
		)

		b.boot()
		b.run()

		before := b.Engine.CurrentTime()
		b.Core.IrqReqSync(7)
		b.run()

		Expect(b.Core.Regfile.Get(5)).To(Equal(uint32(1)))
		Expect(b.Engine.CurrentTime()).To(BeNumerically(">", before))
	})
})
