package insts

import "strings"

// Decoder decodes RV32 machine code into instructions.
type Decoder struct {
	hasM    bool
	hasC    bool
	hasPulp bool
}

// NewDecoder creates a new RV32 instruction decoder. The isa string selects
// the enabled extensions, e.g. "rv32i", "rv32im", "rv32imc" or
// "rv32imc_xpulp". Unrecognised extension letters are ignored.
func NewDecoder(isa string) *Decoder {
	isa = strings.ToLower(isa)
	d := &Decoder{}
	base := isa
	if i := strings.IndexByte(isa, '_'); i >= 0 {
		base = isa[:i]
		d.hasPulp = strings.Contains(isa[i:], "xpulp")
	}
	d.hasM = strings.ContainsRune(base, 'm')
	d.hasC = strings.ContainsRune(base, 'c')
	return d
}

// Size returns the encoding size in bytes implied by the low bits of an
// opcode word. RVC encodings have the two low bits != 0b11.
func Size(word uint32) uint32 {
	if word&0x3 == 0x3 {
		return 4
	}
	return 2
}

// Decode decodes an opcode word. For 16-bit encodings only the low half of
// word is examined. Unmatched words decode to OpUnknown.
func (d *Decoder) Decode(word uint32) *Instruction {
	if Size(word) == 2 {
		return d.decodeCompressed(uint16(word))
	}

	inst := &Instruction{Op: OpUnknown, Format: FormatUnknown, Size: 4}

	// Bits [6:0] hold the base opcode, see riscv-spec table 19.1.
	switch word & 0x7F {
	case 0b0110111: // LUI
		d.decodeU(word, inst, OpLUI)
	case 0b0010111: // AUIPC
		d.decodeU(word, inst, OpAUIPC)
	case 0b1101111: // JAL
		d.decodeJ(word, inst)
	case 0b1100111: // JALR
		d.decodeI(word, inst, OpJALR)
	case 0b1100011: // branches
		d.decodeBranch(word, inst)
	case 0b0000011: // loads
		d.decodeLoad(word, inst)
	case 0b0100011: // stores
		d.decodeStore(word, inst)
	case 0b0010011: // OP-IMM
		d.decodeOpImm(word, inst)
	case 0b0110011: // OP
		d.decodeOp(word, inst)
	case 0b0001111: // FENCE / FENCE.I
		d.decodeFence(word, inst)
	case 0b1110011: // SYSTEM
		d.decodeSystem(word, inst)
	case 0b0001011: // custom-0 (PULP)
		if d.hasPulp {
			d.decodePulp(word, inst)
		}
	}

	return inst
}

// immI extracts the sign-extended I-format immediate, bits [31:20].
func immI(word uint32) int32 {
	return int32(word) >> 20
}

// immS extracts the sign-extended S-format immediate,
// bits [31:25] and [11:7].
func immS(word uint32) int32 {
	return (int32(word)>>25)<<5 | int32((word>>7)&0x1F)
}

// immB extracts the sign-extended B-format immediate:
// imm[12|10:5] in bits [31:25], imm[4:1|11] in bits [11:7].
func immB(word uint32) int32 {
	imm := (int32(word)>>31)<<12 |
		int32((word>>7)&0x1)<<11 |
		int32((word>>25)&0x3F)<<5 |
		int32((word>>8)&0xF)<<1
	return imm
}

// immJ extracts the sign-extended J-format immediate:
// imm[20|10:1|11|19:12] in bits [31:12].
func immJ(word uint32) int32 {
	imm := (int32(word)>>31)<<20 |
		int32((word>>12)&0xFF)<<12 |
		int32((word>>20)&0x1)<<11 |
		int32((word>>21)&0x3FF)<<1
	return imm
}

func rd(word uint32) uint8  { return uint8((word >> 7) & 0x1F) }
func rs1(word uint32) uint8 { return uint8((word >> 15) & 0x1F) }
func rs2(word uint32) uint8 { return uint8((word >> 20) & 0x1F) }

func (d *Decoder) decodeU(word uint32, inst *Instruction, op Op) {
	inst.Op = op
	inst.Format = FormatU
	inst.Rd = rd(word)
	inst.Imm = int32(word & 0xFFFFF000)
}

func (d *Decoder) decodeJ(word uint32, inst *Instruction) {
	inst.Op = OpJAL
	inst.Format = FormatJ
	inst.Rd = rd(word)
	inst.Imm = immJ(word)
}

func (d *Decoder) decodeI(word uint32, inst *Instruction, op Op) {
	inst.Op = op
	inst.Format = FormatI
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = immI(word)
}

// decodeBranch decodes BEQ/BNE/BLT/BGE/BLTU/BGEU.
// Format: imm[12|10:5] | rs2 | rs1 | funct3 | imm[4:1|11] | 1100011
func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	ops := [8]Op{
		0b000: OpBEQ,
		0b001: OpBNE,
		0b100: OpBLT,
		0b101: OpBGE,
		0b110: OpBLTU,
		0b111: OpBGEU,
	}
	op := ops[(word>>12)&0x7]
	if op == OpUnknown {
		return
	}

	inst.Op = op
	inst.Format = FormatB
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Imm = immB(word)
}

func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	ops := [8]Op{
		0b000: OpLB,
		0b001: OpLH,
		0b010: OpLW,
		0b100: OpLBU,
		0b101: OpLHU,
	}
	op := ops[(word>>12)&0x7]
	if op == OpUnknown {
		return
	}
	d.decodeI(word, inst, op)
}

func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	ops := [8]Op{
		0b000: OpSB,
		0b001: OpSH,
		0b010: OpSW,
	}
	op := ops[(word>>12)&0x7]
	if op == OpUnknown {
		return
	}

	inst.Op = op
	inst.Format = FormatS
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Imm = immS(word)
}

// decodeOpImm decodes ADDI/SLTI/SLTIU/XORI/ORI/ANDI and the immediate
// shifts. Shift amounts live in bits [24:20]; bit 30 selects SRAI.
func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) {
	funct3 := (word >> 12) & 0x7
	funct7 := word >> 25

	var op Op
	switch funct3 {
	case 0b000:
		op = OpADDI
	case 0b010:
		op = OpSLTI
	case 0b011:
		op = OpSLTIU
	case 0b100:
		op = OpXORI
	case 0b110:
		op = OpORI
	case 0b111:
		op = OpANDI
	case 0b001:
		if funct7 != 0 {
			return
		}
		op = OpSLLI
	case 0b101:
		switch funct7 {
		case 0b0000000:
			op = OpSRLI
		case 0b0100000:
			op = OpSRAI
		default:
			return
		}
	}

	inst.Op = op
	inst.Format = FormatI
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	if op == OpSLLI || op == OpSRLI || op == OpSRAI {
		inst.Imm = int32((word >> 20) & 0x1F)
	} else {
		inst.Imm = immI(word)
	}
}

// decodeOp decodes the register-register group, including RV32M when
// funct7 == 0b0000001.
func (d *Decoder) decodeOp(word uint32, inst *Instruction) {
	funct3 := (word >> 12) & 0x7
	funct7 := word >> 25

	var op Op
	switch funct7 {
	case 0b0000000:
		ops := [8]Op{OpADD, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpOR, OpAND}
		op = ops[funct3]
	case 0b0100000:
		switch funct3 {
		case 0b000:
			op = OpSUB
		case 0b101:
			op = OpSRA
		default:
			return
		}
	case 0b0000001:
		if !d.hasM {
			return
		}
		ops := [8]Op{OpMUL, OpMULH, OpMULHSU, OpMULHU, OpDIV, OpDIVU, OpREM, OpREMU}
		op = ops[funct3]
	default:
		return
	}

	inst.Op = op
	inst.Format = FormatR
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
}

func (d *Decoder) decodeFence(word uint32, inst *Instruction) {
	switch (word >> 12) & 0x7 {
	case 0b000:
		inst.Op = OpFENCE
	case 0b001:
		inst.Op = OpFENCEI
	default:
		return
	}
	inst.Format = FormatI
}

// decodeSystem decodes ECALL/EBREAK/WFI/MRET/DRET (funct3 == 0,
// discriminated by the imm12 field) and the CSR access group.
func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	funct3 := (word >> 12) & 0x7

	if funct3 == 0 {
		switch word >> 20 {
		case 0x000:
			inst.Op = OpECALL
		case 0x001:
			inst.Op = OpEBREAK
		case 0x105:
			inst.Op = OpWFI
		case 0x302:
			inst.Op = OpMRET
		case 0x7B2:
			inst.Op = OpDRET
		default:
			return
		}
		inst.Format = FormatSystem
		return
	}

	ops := [8]Op{
		0b001: OpCSRRW,
		0b010: OpCSRRS,
		0b011: OpCSRRC,
		0b101: OpCSRRWI,
		0b110: OpCSRRSI,
		0b111: OpCSRRCI,
	}
	op := ops[funct3]
	if op == OpUnknown {
		return
	}

	inst.Op = op
	inst.Format = FormatSystem
	inst.Rd = rd(word)
	inst.CsrIndex = uint16(word >> 20)
	if funct3 >= 0b101 {
		// Immediate forms carry the 5-bit zimm in the rs1 slot.
		inst.Imm = int32(rs1(word))
	} else {
		inst.Rs1 = rs1(word)
	}
}

// decodePulp decodes the PULP custom-0 group. Only p.elw is supported:
// an interruptible load word with I-format operands.
func (d *Decoder) decodePulp(word uint32, inst *Instruction) {
	if (word>>12)&0x7 != 0b110 {
		return
	}
	d.decodeI(word, inst, OpELW)
}
