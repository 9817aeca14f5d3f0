// Package insts provides RV32 instruction definitions and decoding.
//
// This package implements decoding of RV32 machine code into structured
// instruction representations. It supports:
//   - RV32I base integer instructions
//   - RV32M multiply/divide instructions
//   - RV32C compressed instructions (decoded into their 32-bit equivalents)
//   - Machine-mode system instructions: ECALL, EBREAK, WFI, MRET, DRET
//   - CSR access instructions
//
// Usage:
//
//	decoder := insts.NewDecoder("rv32imc")
//	inst := decoder.Decode(0x00A08093) // ADDI x1, x1, 10
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
package insts

// Op represents an RV32 opcode.
type Op uint16

// RV32 opcodes.
const (
	OpUnknown Op = iota

	// RV32I register-register
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	// RV32I register-immediate
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	// Upper immediate
	OpLUI
	OpAUIPC

	// Control transfer
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Loads and stores
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW

	// Memory ordering
	OpFENCE
	OpFENCEI

	// System
	OpECALL
	OpEBREAK
	OpWFI
	OpMRET
	OpDRET

	// CSR access
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	// RV32M
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	// PULP event load (interruptible load word)
	OpELW
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // Register-register
	FormatI              // Register-immediate, loads, JALR
	FormatS              // Stores
	FormatB              // Conditional branches
	FormatU              // LUI, AUIPC
	FormatJ              // JAL
	FormatSystem         // ECALL, EBREAK, WFI, MRET, DRET, CSR access
)

// Instruction represents a decoded RV32 instruction.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding format

	// Register operands. A value of 0 addresses x0, which reads as zero
	// and discards writes.
	Rd  uint8 // Destination register
	Rs1 uint8 // First source register
	Rs2 uint8 // Second source register

	// Imm is the sign-extended immediate operand. For branches and jumps
	// it holds the PC-relative byte offset; for shifts the shift amount;
	// for U-format the value already shifted into the upper 20 bits.
	Imm int32

	// CsrIndex is the 12-bit CSR address for CSR access instructions.
	CsrIndex uint16

	// Size is the encoding size in bytes: 2 for compressed, 4 otherwise.
	Size uint32

	// Compressed is true if the instruction was decoded from an RVC
	// 16-bit encoding.
	Compressed bool
}
