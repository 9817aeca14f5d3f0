package iss

// RV32I execute handlers. Each runs one instruction against the core
// state and returns the next instruction to execute.

func illegalExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.trace.Msg(traceWarning, "illegal instruction (addr: 0x%x, opcode: 0x%x)",
		i.Addr, i.Opcode)
	c.haltCause = HaltCauseIllegal
	return c.Irq.ExceptRaise(ExceptIllegal)
}

func addExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)+c.Regfile.Get(i.Rs2))
	return i.Next
}

func subExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)-c.Regfile.Get(i.Rs2))
	return i.Next
}

func sllExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)<<(c.Regfile.Get(i.Rs2)&0x1F))
	return i.Next
}

func sltExec(c *Core, i *DecodedInsn) *DecodedInsn {
	var v uint32
	if int32(c.Regfile.Get(i.Rs1)) < int32(c.Regfile.Get(i.Rs2)) {
		v = 1
	}
	c.Regfile.Set(i.Rd, v)
	return i.Next
}

func sltuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	var v uint32
	if c.Regfile.Get(i.Rs1) < c.Regfile.Get(i.Rs2) {
		v = 1
	}
	c.Regfile.Set(i.Rd, v)
	return i.Next
}

func xorExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)^c.Regfile.Get(i.Rs2))
	return i.Next
}

func srlExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)>>(c.Regfile.Get(i.Rs2)&0x1F))
	return i.Next
}

func sraExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, uint32(int32(c.Regfile.Get(i.Rs1))>>(c.Regfile.Get(i.Rs2)&0x1F)))
	return i.Next
}

func orExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)|c.Regfile.Get(i.Rs2))
	return i.Next
}

func andExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)&c.Regfile.Get(i.Rs2))
	return i.Next
}

func addiExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)+uint32(i.Imm))
	return i.Next
}

func sltiExec(c *Core, i *DecodedInsn) *DecodedInsn {
	var v uint32
	if int32(c.Regfile.Get(i.Rs1)) < i.Imm {
		v = 1
	}
	c.Regfile.Set(i.Rd, v)
	return i.Next
}

func sltiuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	var v uint32
	if c.Regfile.Get(i.Rs1) < uint32(i.Imm) {
		v = 1
	}
	c.Regfile.Set(i.Rd, v)
	return i.Next
}

func xoriExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)^uint32(i.Imm))
	return i.Next
}

func oriExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)|uint32(i.Imm))
	return i.Next
}

func andiExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)&uint32(i.Imm))
	return i.Next
}

func slliExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)<<uint32(i.Imm))
	return i.Next
}

func srliExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, c.Regfile.Get(i.Rs1)>>uint32(i.Imm))
	return i.Next
}

func sraiExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, uint32(int32(c.Regfile.Get(i.Rs1))>>uint32(i.Imm)))
	return i.Next
}

func luiExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, uint32(i.Imm))
	return i.Next
}

func auipcExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, i.Addr+uint32(i.Imm))
	return i.Next
}

func jalExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Regfile.Set(i.Rd, i.Addr+i.Size)
	c.Timing.JumpAccount()
	return c.InsnCache.Get(i.Target)
}

func jalrExec(c *Core, i *DecodedInsn) *DecodedInsn {
	target := (c.Regfile.Get(i.Rs1) + uint32(i.Imm)) &^ 1
	c.Regfile.Set(i.Rd, i.Addr+i.Size)
	c.Timing.JumpAccount()
	return c.InsnCache.Get(target)
}

// branchTaken redirects execution to the statically known target,
// charging the pipeline refill cost.
func branchTaken(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Timing.TakenBranchAccount()
	return c.InsnCache.Get(i.Target)
}

func beqExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Timing.EventAccount(PcerBranch, 1)
	if c.Regfile.Get(i.Rs1) == c.Regfile.Get(i.Rs2) {
		return branchTaken(c, i)
	}
	return i.Next
}

func bneExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Timing.EventAccount(PcerBranch, 1)
	if c.Regfile.Get(i.Rs1) != c.Regfile.Get(i.Rs2) {
		return branchTaken(c, i)
	}
	return i.Next
}

func bltExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Timing.EventAccount(PcerBranch, 1)
	if int32(c.Regfile.Get(i.Rs1)) < int32(c.Regfile.Get(i.Rs2)) {
		return branchTaken(c, i)
	}
	return i.Next
}

func bgeExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Timing.EventAccount(PcerBranch, 1)
	if int32(c.Regfile.Get(i.Rs1)) >= int32(c.Regfile.Get(i.Rs2)) {
		return branchTaken(c, i)
	}
	return i.Next
}

func bltuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Timing.EventAccount(PcerBranch, 1)
	if c.Regfile.Get(i.Rs1) < c.Regfile.Get(i.Rs2) {
		return branchTaken(c, i)
	}
	return i.Next
}

func bgeuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Timing.EventAccount(PcerBranch, 1)
	if c.Regfile.Get(i.Rs1) >= c.Regfile.Get(i.Rs2) {
		return branchTaken(c, i)
	}
	return i.Next
}

func lbExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Lsu.Load(i, c.Regfile.Get(i.Rs1)+uint32(i.Imm), 1, true)
}

func lhExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Lsu.Load(i, c.Regfile.Get(i.Rs1)+uint32(i.Imm), 2, true)
}

func lwExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Lsu.Load(i, c.Regfile.Get(i.Rs1)+uint32(i.Imm), 4, true)
}

func lbuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Lsu.Load(i, c.Regfile.Get(i.Rs1)+uint32(i.Imm), 1, false)
}

func lhuExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Lsu.Load(i, c.Regfile.Get(i.Rs1)+uint32(i.Imm), 2, false)
}

func sbExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Lsu.Store(i, c.Regfile.Get(i.Rs1)+uint32(i.Imm), 1)
}

func shExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Lsu.Store(i, c.Regfile.Get(i.Rs1)+uint32(i.Imm), 2)
}

func swExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Lsu.Store(i, c.Regfile.Get(i.Rs1)+uint32(i.Imm), 4)
}

func fenceExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return i.Next
}

// fenceiExec synchronises the instruction stream after self-modifying
// code: the decoded cache is flushed and, when a cache-flush handshake
// partner is bound, the core stalls until the acknowledge arrives.
func fenceiExec(c *Core, i *DecodedInsn) *DecodedInsn {
	next := i.Addr + i.Size

	c.InsnCache.Flush()

	if c.flushCacheReq != nil {
		c.cacheSync = true
		c.stalledInc()
		c.flushCacheReq.Sync(true)
	}

	return c.InsnCache.Get(next)
}

func ecallExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.haltCause = HaltCauseEcall
	return c.Irq.ExceptRaise(ExceptEcall)
}

func ebreakExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.haltCause = HaltCauseEbreak
	if c.stepMode || c.debugMode {
		// Under an attached debugger ebreak halts instead of vectoring.
		c.SetHaltMode(true, HaltCauseEbreak)
		c.checkState()
		return i.Next
	}
	return c.Irq.ExceptRaise(ExceptDebug)
}

func wfiExec(c *Core, i *DecodedInsn) *DecodedInsn {
	c.Irq.WfiHandle()
	return i.Next
}

func mretExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Irq.MretHandle()
}

func dretExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Irq.DretHandle()
}

func csrrwExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return csrAccess(c, i, c.Regfile.Get(i.Rs1), csrOpWrite, i.Rd != 0)
}

func csrrsExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return csrAccess(c, i, c.Regfile.Get(i.Rs1), csrOpSet, true)
}

func csrrcExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return csrAccess(c, i, c.Regfile.Get(i.Rs1), csrOpClear, true)
}

func csrrwiExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return csrAccess(c, i, uint32(i.Imm), csrOpWrite, i.Rd != 0)
}

func csrrsiExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return csrAccess(c, i, uint32(i.Imm), csrOpSet, true)
}

func csrrciExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return csrAccess(c, i, uint32(i.Imm), csrOpClear, true)
}

type csrOp int

const (
	csrOpWrite csrOp = iota
	csrOpSet
	csrOpClear
)

// csrAccess implements the read-modify-write CSR protocol. The read side
// may be skipped for CSRRW/CSRRWI with rd == x0, per the base ISA. An
// unmapped index raises an illegal-instruction exception.
func csrAccess(c *Core, i *DecodedInsn, operand uint32, op csrOp, doRead bool) *DecodedInsn {
	var old uint32
	if doRead {
		var ok bool
		old, ok = c.CsrRead(i.Csr)
		if !ok {
			return illegalExec(c, i)
		}
	}

	write := op == csrOpWrite
	value := operand
	switch op {
	case csrOpSet:
		value = old | operand
		write = operand != 0
	case csrOpClear:
		value = old &^ operand
		write = operand != 0
	}

	if write {
		if !c.CsrWrite(i.Csr, value) {
			return illegalExec(c, i)
		}
	}

	c.Regfile.Set(i.Rd, old)
	return i.Next
}

// elwExec implements the PULP event load: a load word that an incoming
// interrupt may abort and replay.
func elwExec(c *Core, i *DecodedInsn) *DecodedInsn {
	return c.Lsu.LoadElw(i, c.Regfile.Get(i.Rs1)+uint32(i.Imm))
}
