package iss_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscvsim/platform"
)

var _ = Describe("InsnCache", func() {
	It("should return the same entry for the same address between flushes", func() {
		b := newBench(simpleConfig(), nil, nil)

		first := b.Core.InsnCache.Get(0x4000)
		second := b.Core.InsnCache.Get(0x4000)
		Expect(second).To(BeIdenticalTo(first))

		// Lookups in other pages do not disturb the mapping.
		b.Core.InsnCache.Get(0x9000)
		Expect(b.Core.InsnCache.Get(0x4000)).To(BeIdenticalTo(first))
	})

	It("should hand out undecoded entries exactly once per generation", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(codeAddr,
			addi(1, 0, 5),
			insnWFI,
		)

		entry := b.Core.InsnCache.Get(codeAddr)
		Expect(entry.Decoded()).To(BeFalse())

		b.boot()
		b.run()

		// Executing decoded it in place: same entry, now concrete.
		Expect(b.Core.InsnCache.Get(codeAddr)).To(BeIdenticalTo(entry))
		Expect(entry.Decoded()).To(BeTrue())

		gen := b.Core.InsnCache.Generation()
		b.Core.InsnCache.Flush()
		Expect(b.Core.InsnCache.Generation()).To(Equal(gen + 1))

		fresh := b.Core.InsnCache.Get(codeAddr)
		Expect(fresh).NotTo(BeIdenticalTo(entry))
		Expect(fresh.Decoded()).To(BeFalse())
	})

	It("should survive a flush while parked and re-decode on resume", func() {
		b := newBench(simpleConfig(), nil, nil)
		b.writeWords(codeAddr,
			addi(1, 0, 1),
			addi(1, 1, 1),
			insnWFI,
			addi(1, 1, 1),
			insnWFI,
		)

		b.boot()
		b.run()
		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(2)))

		// Drop every decoded entry while the core sleeps, then wake it
		// through an interrupt pulse. The request is deasserted again
		// before the core runs so the second WFI parks normally.
		b.Core.InsnCache.Flush()
		b.Core.IrqReqSync(0)
		b.Core.IrqReqSync(-1)
		b.run()

		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(3)))
	})

	It("should populate the entry addressed inside a fresh page", func() {
		b := newBench(simpleConfig(), nil, nil)

		entry := b.Core.InsnCache.Get(0x4006)
		Expect(entry.Addr).To(Equal(uint32(0x4006)))

		// Compressed stride: the neighbouring slot is 2 bytes away.
		Expect(b.Core.InsnCache.Get(0x4004).Addr).To(Equal(uint32(0x4004)))
	})
})

var _ = Describe("Cache-flush handshake", func() {
	It("should stall FENCE.I until the acknowledge arrives", func() {
		b := newBench(simpleConfig(), nil, nil)
		req := &platform.BoolWire{}
		b.Core.BindFlushCacheReq(req)

		b.writeWords(codeAddr,
			addi(1, 0, 1),
			insnFENCI,
			addi(2, 0, 2),
			insnWFI,
		)

		b.boot()
		b.run()

		// Stalled in the rendezvous: the request fired, the instruction
		// after the fence has not executed.
		Expect(req.Level).To(BeTrue())
		Expect(b.Core.Regfile.Get(1)).To(Equal(uint32(1)))
		Expect(b.Core.Regfile.Get(2)).To(Equal(uint32(0)))

		b.Core.FlushCacheAckSync(true)
		b.run()

		Expect(b.Core.Regfile.Get(2)).To(Equal(uint32(2)))
	})
})
