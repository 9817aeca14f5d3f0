package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscvsim/insts"
)

var _ = Describe("Compressed decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder("rv32imc")
	})

	// C.ADDI x1, 4 -> 0x0091
	It("should expand C.ADDI into ADDI rd, rd, imm", func() {
		inst := decoder.Decode(0x0091)

		Expect(inst.Op).To(Equal(insts.OpADDI))
		Expect(inst.Rd).To(Equal(uint8(1)))
		Expect(inst.Rs1).To(Equal(uint8(1)))
		Expect(inst.Imm).To(Equal(int32(4)))
		Expect(inst.Size).To(Equal(uint32(2)))
		Expect(inst.Compressed).To(BeTrue())
	})

	// C.LW a0, 4(a1) -> 0x41C8
	It("should expand C.LW with the scaled offset", func() {
		inst := decoder.Decode(0x41C8)

		Expect(inst.Op).To(Equal(insts.OpLW))
		Expect(inst.Rd).To(Equal(uint8(10)))
		Expect(inst.Rs1).To(Equal(uint8(11)))
		Expect(inst.Imm).To(Equal(int32(4)))
	})

	// C.ADDI4SPN a0, 8 -> 0x0028
	It("should expand C.ADDI4SPN against the stack pointer", func() {
		inst := decoder.Decode(0x0028)

		Expect(inst.Op).To(Equal(insts.OpADDI))
		Expect(inst.Rd).To(Equal(uint8(10)))
		Expect(inst.Rs1).To(Equal(uint8(2)))
		Expect(inst.Imm).To(Equal(int32(8)))
	})

	// C.MV x3, x4 -> 0x8192; C.ADD x3, x4 -> 0x9192
	It("should distinguish C.MV from C.ADD", func() {
		mv := decoder.Decode(0x8192)
		Expect(mv.Op).To(Equal(insts.OpADD))
		Expect(mv.Rd).To(Equal(uint8(3)))
		Expect(mv.Rs1).To(Equal(uint8(0)))
		Expect(mv.Rs2).To(Equal(uint8(4)))

		add := decoder.Decode(0x9192)
		Expect(add.Op).To(Equal(insts.OpADD))
		Expect(add.Rs1).To(Equal(uint8(3)))
		Expect(add.Rs2).To(Equal(uint8(4)))
	})

	// C.JR x1 -> 0x8082 (the canonical ret)
	It("should expand C.JR into JALR x0, rs1, 0", func() {
		inst := decoder.Decode(0x8082)

		Expect(inst.Op).To(Equal(insts.OpJALR))
		Expect(inst.Rd).To(Equal(uint8(0)))
		Expect(inst.Rs1).To(Equal(uint8(1)))
	})

	// C.J +8 -> 0xA021
	It("should expand C.J with the signed offset", func() {
		inst := decoder.Decode(0xA021)

		Expect(inst.Op).To(Equal(insts.OpJAL))
		Expect(inst.Rd).To(Equal(uint8(0)))
		Expect(inst.Imm).To(Equal(int32(8)))
	})

	// C.BEQZ a0, +8 -> 0xC501
	It("should expand C.BEQZ against x0", func() {
		inst := decoder.Decode(0xC501)

		Expect(inst.Op).To(Equal(insts.OpBEQ))
		Expect(inst.Rs1).To(Equal(uint8(10)))
		Expect(inst.Rs2).To(Equal(uint8(0)))
		Expect(inst.Imm).To(Equal(int32(8)))
	})

	// C.LUI x5, 1 -> 0x6285
	It("should expand C.LUI with the shifted immediate", func() {
		inst := decoder.Decode(0x6285)

		Expect(inst.Op).To(Equal(insts.OpLUI))
		Expect(inst.Rd).To(Equal(uint8(5)))
		Expect(inst.Imm).To(Equal(int32(0x1000)))
	})

	// C.SLLI x2, 4 -> 0x0112
	It("should expand C.SLLI with the shift amount", func() {
		inst := decoder.Decode(0x0112)

		Expect(inst.Op).To(Equal(insts.OpSLLI))
		Expect(inst.Rd).To(Equal(uint8(2)))
		Expect(inst.Imm).To(Equal(int32(4)))
	})

	It("should expand C.EBREAK", func() {
		Expect(decoder.Decode(0x9002).Op).To(Equal(insts.OpEBREAK))
	})

	It("should not decode RVC without the C extension", func() {
		d := insts.NewDecoder("rv32im")
		inst := d.Decode(0x0091)

		Expect(inst.Op).To(Equal(insts.OpUnknown))
		Expect(inst.Size).To(Equal(uint32(2)))
	})
})
