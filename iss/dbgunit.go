package iss

import "encoding/binary"

// Debug unit register offsets.
const (
	dbgCtrlOffset  = 0x0000
	dbgHitOffset   = 0x0004
	dbgCauseOffset = 0x000C
	dbgGprBase     = 0x0400
	dbgGprLimit    = 0x0480
	dbgNpcOffset   = 0x2000
	dbgPpcOffset   = 0x2004
	dbgCsrBase     = 0x4000
	dbgCsrLimit    = 0x8000

	dbgCtrlStepBit = 1 << 0
	dbgCtrlHaltBit = 1 << 16
)

// DbgUnit is the memory-mapped debug slave of the core. It accepts
// word-aligned word-sized accesses only; anything else reports INVALID
// without disturbing the core.
type DbgUnit struct {
	core *Core

	breakpoints map[uint32]bool
}

// Req implements the debug slave port protocol.
func (d *DbgUnit) Req(req *IOReq) IOStatus {
	c := d.core
	offset := req.Addr

	c.trace.Msg(traceDebug,
		"debug access (offset: 0x%x, size: %d, is_write: %v)",
		offset, len(req.Data), req.IsWrite)

	if len(req.Data) != 4 || offset&3 != 0 {
		return IOInvalid
	}

	switch {
	case offset >= dbgCsrBase && offset < dbgCsrLimit:
		return d.csrReq(req, uint16((offset-dbgCsrBase)/4))
	case offset == dbgNpcOffset:
		return d.npcReq(req)
	case offset == dbgPpcOffset:
		if req.IsWrite {
			return IOInvalid
		}
		binary.LittleEndian.PutUint32(req.Data, c.ppc)
		return IOOK
	case offset >= dbgGprBase && offset < dbgGprLimit:
		return d.gprReq(req, uint8((offset-dbgGprBase)/4))
	case offset == dbgCtrlOffset:
		return d.ctrlReq(req)
	case offset == dbgHitOffset:
		if req.IsWrite {
			c.hitReg = binary.LittleEndian.Uint32(req.Data)
		} else {
			binary.LittleEndian.PutUint32(req.Data, c.hitReg)
		}
		return IOOK
	case offset == dbgCauseOffset:
		if req.IsWrite {
			return IOInvalid
		}
		binary.LittleEndian.PutUint32(req.Data, uint32(c.haltCause))
		return IOOK
	}

	return IOInvalid
}

// ctrlReq handles the control register: bit 0 drives step mode, bit 16
// drives halt. A write re-evaluates the loop state immediately.
func (d *DbgUnit) ctrlReq(req *IOReq) IOStatus {
	c := d.core

	if !req.IsWrite {
		var v uint32
		if c.stepMode {
			v |= dbgCtrlStepBit
		}
		if c.halted {
			v |= dbgCtrlHaltBit
		}
		binary.LittleEndian.PutUint32(req.Data, v)
		return IOOK
	}

	value := binary.LittleEndian.Uint32(req.Data)
	step := value&dbgCtrlStepBit != 0
	halt := value&dbgCtrlHaltBit != 0

	c.trace.Msg(traceInfo, "writing dbg ctrl (value: 0x%x, halt: %v, step: %v)",
		value, halt, step)

	c.SetHaltMode(halt, HaltCauseHalt)
	c.stepMode = step
	c.switchToFullMode()
	c.checkState()

	return IOOK
}

// npcReq handles the next-PC register. Writing it flushes the decoded
// instruction cache and redirects the core to the written address, even
// if it was asleep in WFI.
func (d *DbgUnit) npcReq(req *IOReq) IOStatus {
	c := d.core

	if !c.halted {
		c.trace.Msg(traceWarning,
			"trying to access debug registers while core is not halted")
		return IOInvalid
	}

	if !req.IsWrite {
		binary.LittleEndian.PutUint32(req.Data, c.npc)
		return IOOK
	}

	c.InsnCache.Flush()
	c.npc = binary.LittleEndian.Uint32(req.Data)
	c.pcSet(c.npc)
	c.wfi = false
	c.checkState()

	return IOOK
}

// gprReq reads or writes an architectural register, permitted only while
// the core is halted.
func (d *DbgUnit) gprReq(req *IOReq, reg uint8) IOStatus {
	c := d.core

	if !c.halted {
		c.trace.Msg(traceWarning,
			"trying to access GPR while core is not halted")
		return IOInvalid
	}

	if req.IsWrite {
		c.Regfile.Set(reg, binary.LittleEndian.Uint32(req.Data))
	} else {
		binary.LittleEndian.PutUint32(req.Data, c.Regfile.Get(reg))
	}
	return IOOK
}

// csrReq reads or writes a CSR by index.
func (d *DbgUnit) csrReq(req *IOReq, id uint16) IOStatus {
	c := d.core

	if req.IsWrite {
		if !c.CsrWrite(id, binary.LittleEndian.Uint32(req.Data)) {
			return IOInvalid
		}
		return IOOK
	}

	v, ok := c.CsrRead(id)
	if !ok {
		return IOInvalid
	}
	binary.LittleEndian.PutUint32(req.Data, v)
	return IOOK
}

// BreakpointInsert arms a software breakpoint: the entry's handler is
// swapped for the trap while the original is remembered.
func (d *DbgUnit) BreakpointInsert(addr uint32) {
	d.breakpoints[addr] = true
	d.arm(addr)
	d.core.switchToFullMode()
}

// BreakpointRemove disarms a breakpoint and restores the entry's
// original handler.
func (d *DbgUnit) BreakpointRemove(addr uint32) {
	delete(d.breakpoints, addr)

	i := d.core.InsnCache.Get(addr)
	if i.state == insnBreakpoint {
		i.handler = i.saved
		if i.saved != nil {
			i.state = insnDecoded
		}
		i.saved = nil
		if i.handler == nil {
			i.handler = undecodedHandler
			i.state = insnUndecoded
		}
	}
}

func (d *DbgUnit) arm(addr uint32) {
	i := d.core.InsnCache.Get(addr)
	if i.state == insnBreakpoint {
		return
	}
	if i.state == insnDecoded {
		i.saved = i.handler
	}
	i.handler = breakpointHandler
	i.state = insnBreakpoint
}

// enableAllBreakpoints re-arms every software breakpoint after a cache
// flush dropped the trapped entries.
func (d *DbgUnit) enableAllBreakpoints() {
	for addr := range d.breakpoints {
		d.arm(addr)
	}
}

func (d *DbgUnit) hasBreakpoints() bool {
	return len(d.breakpoints) > 0
}
