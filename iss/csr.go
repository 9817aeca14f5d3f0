package iss

// Well-known CSR indices.
const (
	CsrMstatus uint16 = 0x300
	CsrMtvec   uint16 = 0x305
	CsrMepc    uint16 = 0x341
	CsrMcause  uint16 = 0x342
	CsrPccr    uint16 = 0x780 // base of the performance counter bank
	CsrPcer    uint16 = 0x7A0
	CsrPcmr    uint16 = 0x7A1
	CsrDepc    uint16 = 0x7B1
	CsrMhartid uint16 = 0xF14
)

// Performance counter event indices within the pccr bank.
const (
	PcerCycles = iota
	PcerInstr
	PcerLdStall
	PcerJmpStall
	PcerImiss
	PcerLd
	PcerSt
	PcerJump
	PcerBranch
	PcerTakenBranch
	PcerRvc

	// PcerNbEvents is the size of the pccr counter bank. Only the
	// events listed above are counted; the remaining slots have none.
	PcerNbEvents = 16
)

// mstatusMIE is the machine interrupt enable bit of mstatus.
const mstatusMIE = 1 << 3

// CsrFile holds the control and status registers. The well-known slots
// are dense fields; anything else lives in the sparse overflow map, which
// is populated on first write.
type CsrFile struct {
	Epc     uint32
	Depc    uint32
	Mcause  uint32
	Mhartid uint32

	// Performance counter state: Pcer is the event enable mask, Pcmr
	// bit 0 globally activates counting, Pccr are the counters.
	Pcer uint32
	Pcmr uint32
	Pccr [PcerNbEvents]uint32

	extra map[uint16]uint32
}

// Reset clears the CSR state, preserving mhartid.
func (f *CsrFile) Reset() {
	hartid := f.Mhartid
	*f = CsrFile{Mhartid: hartid}
}

// CsrRead reads a CSR by index. It reports false for an unmapped index,
// which the caller turns into an illegal-instruction exception.
func (c *Core) CsrRead(id uint16) (uint32, bool) {
	f := &c.Csr

	switch {
	case id == CsrMstatus:
		var v uint32
		if c.Irq.irqEnable {
			v |= mstatusMIE
		}
		return v, true
	case id == CsrMtvec:
		return c.Irq.vectorBase, true
	case id == CsrMepc:
		return f.Epc, true
	case id == CsrMcause:
		return f.Mcause, true
	case id == CsrDepc:
		return f.Depc, true
	case id == CsrMhartid:
		return f.Mhartid, true
	case id == CsrPcer:
		return f.Pcer, true
	case id == CsrPcmr:
		return f.Pcmr, true
	case id >= CsrPccr && id < CsrPccr+PcerNbEvents:
		return f.Pccr[id-CsrPccr], true
	}

	if v, ok := f.extra[id]; ok {
		return v, true
	}
	return 0, false
}

// CsrWrite writes a CSR by index. Writing mtvec re-resolves the interrupt
// vector table. Unmapped indices land in the overflow map so that
// configured platform-specific CSRs round-trip.
func (c *Core) CsrWrite(id uint16, value uint32) bool {
	f := &c.Csr

	switch {
	case id == CsrMstatus:
		c.Irq.irqEnable = value&mstatusMIE != 0
		// A write re-enabling interrupts must drop out of the fast
		// handler so the next cycle checks for pending requests.
		c.switchToFullMode()
		return true
	case id == CsrMtvec:
		c.Irq.VectorTableSet(value &^ 0xFF)
		return true
	case id == CsrMepc:
		f.Epc = value
		return true
	case id == CsrMcause:
		f.Mcause = value
		return true
	case id == CsrDepc:
		f.Depc = value
		return true
	case id == CsrMhartid:
		return false // read-only
	case id == CsrPcer:
		f.Pcer = value
		c.switchToFullMode()
		return true
	case id == CsrPcmr:
		f.Pcmr = value
		c.switchToFullMode()
		return true
	case id >= CsrPccr && id < CsrPccr+PcerNbEvents:
		f.Pccr[id-CsrPccr] = value
		return true
	}

	if f.extra == nil {
		f.extra = map[uint16]uint32{}
	}
	f.extra[id] = value
	return true
}
