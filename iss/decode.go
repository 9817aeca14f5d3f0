package iss

import "github.com/sarchlab/riscvsim/insts"

// undecodedHandler is the sentinel installed in every fresh cache entry.
// The prefetcher has materialised the raw word by the time it runs; it
// decodes the entry into a permanent handler and re-enters execution for
// the same instruction.
func undecodedHandler(c *Core, i *DecodedInsn) *DecodedInsn {
	c.decodeInsn(i)
	return i.handler(c, i)
}

// decodeInsn translates the raw opcode word into a handler plus operand
// descriptors, and resolves the speculative sequential link.
func (c *Core) decodeInsn(i *DecodedInsn) {
	inst := c.Decoder.Decode(i.Opcode)

	i.Size = inst.Size
	i.Op = inst.Op
	i.Rd = inst.Rd
	i.Rs1 = inst.Rs1
	i.Rs2 = inst.Rs2
	i.Imm = inst.Imm
	i.Csr = inst.CsrIndex

	switch inst.Format {
	case insts.FormatB, insts.FormatJ:
		i.Target = i.Addr + uint32(inst.Imm)
	}

	i.handler = execTable[inst.Op]
	i.state = insnDecoded
	i.Next = c.InsnCache.Get(i.Addr + i.Size)

	c.trace.Msg(traceDebug, "decoded insn (addr: 0x%x, opcode: 0x%x, size: %d)",
		i.Addr, i.Opcode, i.Size)
}

// breakpointHandler is installed over a decoded entry while a software
// breakpoint is armed. It halts the core without retiring the
// instruction; the debugger is expected to disarm or step over it.
func breakpointHandler(c *Core, i *DecodedInsn) *DecodedInsn {
	c.SetHaltMode(true, HaltCauseEbreak)
	c.checkState()
	c.replay = true
	return i
}

// execTable maps opcodes to execute handlers. Unknown opcodes trap to the
// illegal-instruction handler. The choice of handler is data: the entry
// is stored into the cache entry at decode and never consulted again.
var execTable map[insts.Op]Handler

func init() {
	execTable = map[insts.Op]Handler{
		insts.OpUnknown: illegalExec,

		insts.OpADD:  addExec,
		insts.OpSUB:  subExec,
		insts.OpSLL:  sllExec,
		insts.OpSLT:  sltExec,
		insts.OpSLTU: sltuExec,
		insts.OpXOR:  xorExec,
		insts.OpSRL:  srlExec,
		insts.OpSRA:  sraExec,
		insts.OpOR:   orExec,
		insts.OpAND:  andExec,

		insts.OpADDI:  addiExec,
		insts.OpSLTI:  sltiExec,
		insts.OpSLTIU: sltiuExec,
		insts.OpXORI:  xoriExec,
		insts.OpORI:   oriExec,
		insts.OpANDI:  andiExec,
		insts.OpSLLI:  slliExec,
		insts.OpSRLI:  srliExec,
		insts.OpSRAI:  sraiExec,

		insts.OpLUI:   luiExec,
		insts.OpAUIPC: auipcExec,

		insts.OpJAL:  jalExec,
		insts.OpJALR: jalrExec,
		insts.OpBEQ:  beqExec,
		insts.OpBNE:  bneExec,
		insts.OpBLT:  bltExec,
		insts.OpBGE:  bgeExec,
		insts.OpBLTU: bltuExec,
		insts.OpBGEU: bgeuExec,

		insts.OpLB:  lbExec,
		insts.OpLH:  lhExec,
		insts.OpLW:  lwExec,
		insts.OpLBU: lbuExec,
		insts.OpLHU: lhuExec,
		insts.OpSB:  sbExec,
		insts.OpSH:  shExec,
		insts.OpSW:  swExec,

		insts.OpFENCE:  fenceExec,
		insts.OpFENCEI: fenceiExec,

		insts.OpECALL:  ecallExec,
		insts.OpEBREAK: ebreakExec,
		insts.OpWFI:    wfiExec,
		insts.OpMRET:   mretExec,
		insts.OpDRET:   dretExec,

		insts.OpCSRRW:  csrrwExec,
		insts.OpCSRRS:  csrrsExec,
		insts.OpCSRRC:  csrrcExec,
		insts.OpCSRRWI: csrrwiExec,
		insts.OpCSRRSI: csrrsiExec,
		insts.OpCSRRCI: csrrciExec,

		insts.OpMUL:    mulExec,
		insts.OpMULH:   mulhExec,
		insts.OpMULHSU: mulhsuExec,
		insts.OpMULHU:  mulhuExec,
		insts.OpDIV:    divExec,
		insts.OpDIVU:   divuExec,
		insts.OpREM:    remExec,
		insts.OpREMU:   remuExec,

		insts.OpELW: elwExec,
	}
}
