package iss

// Exception identifiers. Debug is special-cased: it vectors through the
// configured debug handler instead of an exception slot.
const (
	ExceptIllegal = 0
	ExceptEcall   = 1
	ExceptFault   = 2
	ExceptDebug   = 3
)

// nbVectors is the size of the cached vector pointer table: 32 interrupt
// slots at base + 4*i followed by 3 exception slots.
const nbVectors = 35

// Irq owns interrupt request latching, the global enable, the cached
// vector-table pointers and the exception entry/return paths.
type Irq struct {
	core  *Core
	trace Trace

	vectors      [nbVectors]*DecodedInsn
	debugHandler *DecodedInsn
	vectorBase   uint32

	irqEnable           bool
	savedIrqEnable      bool
	debugSavedIrqEnable bool

	reqIrq   int
	reqDebug bool
}

// Enabled reports the global interrupt enable.
func (q *Irq) Enabled() bool { return q.irqEnable }

// Pending returns the latched request number, -1 when none.
func (q *Irq) Pending() int { return q.reqIrq }

// VectorBase returns the active vector table base address.
func (q *Irq) VectorBase() uint32 { return q.vectorBase }

func (q *Irq) reset() {
	q.core.elwInterrupted = false
	q.vectorBase = 0
	q.irqEnable = false
	q.savedIrqEnable = false
	q.debugSavedIrqEnable = false
	q.reqIrq = -1
	q.reqDebug = false
	q.debugHandler = q.core.InsnCache.Get(q.core.config.DebugHandler)
}

// VectorTableSet re-resolves all vector pointers through the instruction
// cache against a new base address.
func (q *Irq) VectorTableSet(base uint32) {
	q.trace.Msg(traceInfo, "setting vector table (addr: 0x%x)", base)

	for i := 0; i < nbVectors; i++ {
		q.vectors[i] = q.core.InsnCache.Get(base + uint32(i)*4)
	}
	q.vectorBase = base
}

// cacheFlush re-resolves the vector pointers and the debug handler after
// the instruction cache dropped its pages.
func (q *Irq) cacheFlush() {
	q.VectorTableSet(q.vectorBase)
	q.debugHandler = q.core.InsnCache.Get(q.core.config.DebugHandler)
}

// ExceptRaise enters the exception path: the faulting address is saved to
// epc (depc for debug), the interrupt enable is snapshot and cleared, and
// the vectored instruction is returned.
func (q *Irq) ExceptRaise(id int) *DecodedInsn {
	var addr uint32
	if q.core.currentInsn != nil {
		addr = q.core.currentInsn.Addr
	}

	if id == ExceptDebug {
		q.core.Csr.Depc = addr
		q.debugSavedIrqEnable = q.irqEnable
		q.irqEnable = false
		q.core.debugMode = true
		return q.debugHandler
	}

	q.core.Csr.Epc = addr
	q.savedIrqEnable = q.irqEnable
	q.irqEnable = false
	q.core.Csr.Mcause = exceptionCause(id)

	insn := q.vectors[32+id]
	if insn == nil {
		insn = q.core.InsnCache.Get(0)
	}
	return insn
}

// exceptionCause maps an exception identifier to its mcause code. The
// high bit stays clear for synchronous causes.
func exceptionCause(id int) uint32 {
	switch id {
	case ExceptEcall:
		return 11
	case ExceptIllegal:
		return 2
	case ExceptFault:
		return 1
	}
	return 0
}

// Check runs at the top of the slow dispatch path. It enters debug mode
// on a pending debug request, otherwise takes a pending enabled
// interrupt. It reports 1 when either fired.
func (q *Irq) Check() int {
	if q.reqDebug && !q.core.debugMode {
		q.core.debugMode = true
		q.core.Csr.Depc = q.core.currentInsn.Addr
		q.debugSavedIrqEnable = q.irqEnable
		q.irqEnable = false
		q.reqDebug = false
		q.core.currentInsn = q.debugHandler
		q.core.Prefetcher.Fetch(q.core.currentInsn)
		return 1
	}

	req := q.reqIrq
	if req >= 0 && q.irqEnable {
		q.trace.Msg(traceDebug, "handling IRQ (irq: %d)", req)

		q.core.Csr.Epc = q.core.currentInsn.Addr
		q.savedIrqEnable = q.irqEnable
		q.irqEnable = false
		q.reqIrq = -1
		q.core.currentInsn = q.vectors[req]
		q.core.Csr.Mcause = 1<<31 | uint32(req)

		q.trace.Msg(traceInfo, "acknowledging interrupt (irq: %d)", req)
		if q.core.irqAck != nil {
			q.core.irqAck.Sync(req)
		}

		// Four stall cycles model the pipeline flush of the taken
		// interrupt.
		q.core.Timing.StallInsnDependencyAccount(4)

		q.core.Prefetcher.Fetch(q.core.currentInsn)

		return 1
	}

	return 0
}

// MretHandle returns from an interrupt or exception handler: the enable
// is restored, mcause cleared, and execution resumes at epc. The core
// drops back to the slow dispatch path so a pending request is seen on
// the next cycle.
func (q *Irq) MretHandle() *DecodedInsn {
	q.core.switchToFullMode()
	q.irqEnable = q.savedIrqEnable
	q.core.Csr.Mcause = 0
	return q.core.InsnCache.Get(q.core.Csr.Epc)
}

// DretHandle returns from debug mode, restoring the enable saved on
// debug entry and resuming at depc.
func (q *Irq) DretHandle() *DecodedInsn {
	q.core.switchToFullMode()
	q.irqEnable = q.debugSavedIrqEnable
	q.core.debugMode = false
	return q.core.InsnCache.Get(q.core.Csr.Depc)
}

// WfiHandle suspends the core until an interrupt request arrives. WFI
// wakes on any request even with interrupts globally disabled, so an
// already-pending request falls through immediately.
func (q *Irq) WfiHandle() {
	if q.reqIrq == -1 {
		q.core.wfi = true
		q.core.stalledInc()
	}
}

// DebugReq latches an external debug-entry request, honoured at the next
// slow-path check.
func (q *Irq) DebugReq() {
	q.reqDebug = true
	q.core.switchToFullMode()
	q.core.checkState()
}

// elwIrqUnstall aborts a pending interruptible load so the interrupt can
// be taken; the load replays after the handler returns.
func (q *Irq) elwIrqUnstall() {
	q.trace.Msg(traceInfo, "interrupting pending elw")
	q.core.currentInsn = q.core.elwInsn
	q.core.elwInterrupted = true
	q.core.elwStalled = false
	q.core.Lsu.abandonPending()
	q.core.stalledDec()
}

// IrqReqSync is the inbound interrupt wire: irq is the request number,
// -1 deasserts. It may drop the core out of WFI immediately.
func (q *Irq) IrqReqSync(irq int) {
	q.trace.Msg(traceDebug, "received IRQ (irq: %d)", irq)

	q.reqIrq = irq

	if irq != -1 && q.core.wfi {
		q.core.wfi = false
		q.core.stalledDec()
	}

	if q.core.elwStalled && irq != -1 && q.irqEnable {
		q.elwIrqUnstall()
	}

	q.core.switchToFullMode()
}
