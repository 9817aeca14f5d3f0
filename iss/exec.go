// Package iss implements the core of an event-driven RV32 instruction set
// simulator. The core interprets guest instructions one at a time through
// a decoded-instruction cache, while a discrete-event engine drives its
// clock and external ports feed it memory responses, interrupts and debug
// requests.
package iss

import (
	"fmt"
	"io"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/riscvsim/insts"
)

// Halt causes reported through the debug unit.
const (
	HaltCauseEbreak    = 0
	HaltCauseEcall     = 1
	HaltCauseIllegal   = 2
	HaltCauseInvalid   = 3
	HaltCauseInterrupt = 4
	HaltCauseHalt      = 15
	HaltCauseStep      = 15
)

// execFunc is one of the two dispatch paths of the execution loop. The
// active path is data held in the core, not a virtual method: the slow
// path rebinds it to the fast one when nothing needs per-cycle checks.
type execFunc func(c *Core)

// MMUFunc translates a virtual instruction address. It reports false on a
// translation fault.
type MMUFunc func(vaddr uint32) (uint32, bool)

// InsnHook observes every instruction retired on the slow dispatch path.
type InsnHook func(i *DecodedInsn)

// Core is one RV32 hart embedded in an event-driven simulation. All of
// its architectural state is owned by the single instance and mutated
// only inside its event handlers; external ports enqueue work but never
// re-enter instruction execution.
type Core struct {
	name   string
	engine sim.Engine
	freq   sim.Freq

	config Config
	trace  Trace

	Decoder    *insts.Decoder
	InsnCache  *InsnCache
	Prefetcher *Prefetcher
	Regfile    Regfile
	Csr        CsrFile
	Irq        Irq
	Timing     Timing
	Lsu        Lsu
	Dbg        DbgUnit

	mmu      MMUFunc
	insnHook InsnHook

	// Master ports.
	data          IOSlave
	fetch         IOSlave
	irqAck        IntSignal
	haltStatus    BoolSignal
	flushCacheReq BoolSignal

	// Execution state.
	currentInsn *DecodedInsn
	prevInsn    *DecodedInsn

	active           bool
	stalledCnt       int
	wfi              bool
	halted           bool
	stepMode         bool
	doStep           bool
	debugMode        bool
	clockActive      bool
	fetchEnable      bool
	cacheSync        bool
	misalignedAccess bool
	elwStalled       bool
	elwInterrupted   bool
	elwInsn          *DecodedInsn

	bootaddr      uint32
	wakeupLatency int64
	haltCause     int
	hitReg        uint32
	npc           uint32
	ppc           uint32

	execHandler execFunc
	eventSeq    uint64
	scheduled   bool
	replay      bool

	retireLimit uint64
}

// CoreOption configures a Core at construction.
type CoreOption func(*Core)

// WithTrace directs core diagnostics to w at the given verbosity level.
func WithTrace(w io.Writer, level int) CoreOption {
	return func(c *Core) {
		c.trace.w = w
		c.trace.level = level
	}
}

// WithMMU installs an instruction-address translation hook.
func WithMMU(mmu MMUFunc) CoreOption {
	return func(c *Core) {
		c.mmu = mmu
	}
}

// WithInsnHook installs a retired-instruction observer. While a hook is
// installed the loop stays on the slow dispatch path.
func WithInsnHook(hook InsnHook) CoreOption {
	return func(c *Core) {
		c.insnHook = hook
	}
}

// WithRetireLimit halts the core after n retired instructions. A value of
// 0 means no limit.
func WithRetireLimit(n uint64) CoreOption {
	return func(c *Core) {
		c.retireLimit = n
	}
}

// NewCore creates a core scheduled on the given engine and clocked at the
// given frequency.
func NewCore(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	config Config,
	opts ...CoreOption,
) *Core {
	c := &Core{
		name:        name,
		engine:      engine,
		freq:        freq,
		config:      config,
		clockActive: true,
		fetchEnable: config.FetchEnable,
		bootaddr:    config.BootAddr,
	}
	c.trace.name = name

	c.Decoder = insts.NewDecoder(config.ISA)
	c.InsnCache = newInsnCache(c)
	c.Prefetcher = &Prefetcher{core: c}
	c.Irq = Irq{core: c, reqIrq: -1}
	c.Irq.trace = Trace{name: name + ".irq"}
	c.Timing = Timing{core: c}
	c.Lsu = Lsu{core: c}
	c.Dbg = DbgUnit{core: c, breakpoints: map[uint32]bool{}}
	c.Csr.Mhartid = config.Mhartid()
	c.execHandler = execInstrCheckAll

	for _, opt := range opts {
		opt(c)
	}
	c.Irq.trace.w = c.trace.w
	c.Irq.trace.level = c.trace.level

	return c
}

// Name returns the core's instance name.
func (c *Core) Name() string { return c.name }

// Port binding. Data, fetch and irq-ack are mandatory; Start fails when
// any of them is left unbound.

// BindData connects the data memory master port.
func (c *Core) BindData(s IOSlave) { c.data = s }

// BindFetch connects the instruction memory master port.
func (c *Core) BindFetch(s IOSlave) { c.fetch = s }

// BindIrqAck connects the interrupt acknowledge master port.
func (c *Core) BindIrqAck(s IntSignal) { c.irqAck = s }

// BindHaltStatus connects the optional halt status master port.
func (c *Core) BindHaltStatus(s BoolSignal) { c.haltStatus = s }

// BindFlushCacheReq connects the optional cache-flush handshake request
// port. While bound, FENCE.I stalls the core until FlushCacheAckSync.
func (c *Core) BindFlushCacheReq(s BoolSignal) { c.flushCacheReq = s }

// Start validates the mandatory port bindings and performs a full reset
// cycle. It must be called before the engine runs.
func (c *Core) Start() error {
	if c.data == nil {
		return fmt.Errorf("core %s: data master port is not connected", c.name)
	}
	if c.fetch == nil {
		return fmt.Errorf("core %s: fetch master port is not connected", c.name)
	}
	if c.irqAck == nil {
		return fmt.Errorf("core %s: irq ack master port is not connected", c.name)
	}

	c.trace.Msg(traceInfo, "starting (fetch_enable: %v, boot_addr: 0x%x)",
		c.fetchEnable, c.bootaddr)

	c.Reset(true)
	c.Reset(false)
	return nil
}

// Reset drives the reset wire: true asserts reset and clears the
// architectural state, false releases it, pointing the PC at the boot
// address and re-resolving the vector table.
func (c *Core) Reset(active bool) {
	if active {
		c.cancelEvent()
		c.active = false
		c.stalledCnt = 0
		c.wfi = false
		c.halted = false
		c.stepMode = false
		c.doStep = false
		c.debugMode = false
		c.cacheSync = false
		c.misalignedAccess = false
		c.elwStalled = false
		c.elwInterrupted = false
		c.fetchEnable = c.config.FetchEnable
		c.wakeupLatency = 0
		c.haltCause = 0
		c.hitReg = 0

		c.Regfile.Reset()
		c.Csr.Reset()
		c.Csr.Mhartid = c.config.Mhartid()
		c.Timing.reset()
		c.Prefetcher.Flush()
		c.Irq.reqIrq = -1
		return
	}

	c.Irq.reset()
	c.Irq.VectorTableSet(c.bootaddr &^ 0xFF)
	c.pcSet(c.bootaddr + c.config.BootAddrOffset)
	c.checkState()
}

// CurrentInsn returns the instruction about to execute.
func (c *Core) CurrentInsn() *DecodedInsn { return c.currentInsn }

// PC returns the address of the instruction about to execute.
func (c *Core) PC() uint32 {
	if c.currentInsn == nil {
		return 0
	}
	return c.currentInsn.Addr
}

// Halted reports whether the core is halted by debug.
func (c *Core) Halted() bool { return c.halted }

// pcSet redirects execution. The new instruction is fetched immediately
// since the loop needs it resolved ahead of the next cycle.
func (c *Core) pcSet(value uint32) {
	c.currentInsn = c.InsnCache.Get(value)
	c.Prefetcher.Fetch(c.currentInsn)
}

// switchToFullMode rebinds the loop to the slow dispatch path so the next
// cycle re-checks interrupts, debug requests and step state.
func (c *Core) switchToFullMode() {
	c.execHandler = execInstrCheckAll
}

func (c *Core) canSwitchToFast() bool {
	return c.insnHook == nil &&
		!c.Timing.countingAny() &&
		!c.stepMode &&
		!c.Irq.reqDebug &&
		!c.Dbg.hasBreakpoints()
}

// stalledInc gains one stall reason. The first one deactivates the loop
// and cancels the pending clock event.
func (c *Core) stalledInc() {
	if c.stalledCnt == 0 {
		c.cancelEvent()
		c.active = false
	}
	c.stalledCnt++
}

// stalledDec drops one stall reason; releasing the last re-evaluates the
// wake condition.
func (c *Core) stalledDec() {
	c.stalledCnt--
	if c.stalledCnt == 0 {
		c.checkState()
	}
}

// checkState is the single place deciding whether the loop runs. It is
// invoked from every port callback and every state transition.
func (c *Core) checkState() {
	c.switchToFullMode()

	if !c.active {
		if !c.halted && c.fetchEnable && c.clockActive && c.stalledCnt == 0 &&
			(!c.wfi || c.Irq.reqIrq != -1) {
			c.wfi = false
			c.active = true

			if c.stepMode {
				c.doStep = true
			}

			c.enqueue(1 + c.wakeupLatency)
			c.Timing.EventAccount(PcerCycles, uint32(1+c.wakeupLatency))
			c.wakeupLatency = 0
		}
		return
	}

	if c.halted && !c.doStep {
		c.active = false
		c.haltCore()
	} else if !c.fetchEnable || !c.clockActive {
		c.active = false
	} else if c.wfi {
		if c.Irq.reqIrq == -1 {
			c.active = false
		} else {
			c.wfi = false
		}
	}

	if !c.active {
		c.cancelEvent()
	}
}

// haltCore snapshots the debug PC pair on entering halt.
func (c *Core) haltCore() {
	c.trace.Msg(traceInfo, "halting core")

	if c.prevInsn == nil {
		c.ppc = 0
	} else {
		c.ppc = c.prevInsn.Addr
	}
	if c.currentInsn != nil {
		c.npc = c.currentInsn.Addr
	}
}

// SetHaltMode records the halt cause and drives the halted flag plus the
// halt-status port.
func (c *Core) SetHaltMode(halted bool, cause int) {
	c.haltCause = cause
	c.halted = halted

	if c.haltStatus != nil {
		c.haltStatus.Sync(halted)
	}
}

// dbgStepCheck raises the step halt after each slow-path instruction when
// single-stepping outside debug mode.
func (c *Core) dbgStepCheck() {
	if c.stepMode && !c.debugMode {
		c.doStep = false
		c.hitReg |= 1
		c.SetHaltMode(true, HaltCauseStep)
		c.checkState()
	}
}

// retire accounts one retired instruction and applies the retire limit.
func (c *Core) retire() {
	c.Timing.InsnAccount()
	if c.retireLimit > 0 && c.Timing.stats.Instructions >= c.retireLimit {
		c.SetHaltMode(true, HaltCauseHalt)
		c.checkState()
	}
}

// execInstrFast is the fast dispatch path: no tracing, no counter
// checks, no halt gates. Conditions that need those rebind the loop to
// execInstrCheckAll before the next cycle.
func execInstrFast(c *Core) {
	if c.Timing.stallCycles > 0 {
		c.Timing.StallCyclesDec()
		return
	}

	insn := c.currentInsn
	c.currentInsn = insn.handler(c, insn)
	c.prevInsn = insn

	// Fetch the next instruction right away. An asynchronous response
	// stalls the loop; execution resumes when the response arrives.
	c.Prefetcher.Fetch(c.currentInsn)

	c.retire()
}

// execInstrCheckAll is the slow dispatch path: it polls interrupt and
// debug requests, runs the trace hook and the step gate, and drops back
// to the fast path when nothing requires per-cycle checks.
func execInstrCheckAll(c *Core) {
	if c.Timing.stallCycles > 0 {
		c.Timing.StallCyclesDec()
		return
	}

	if c.canSwitchToFast() {
		c.execHandler = execInstrFast
	}

	if c.insnHook != nil {
		c.insnHook(c.currentInsn)
	}

	// Don't execute the instruction if an IRQ fired and triggered a
	// pending fetch, or if the handler path stalled the core.
	if c.Irq.Check() == 0 && c.stalledCnt == 0 {
		insn := c.currentInsn
		next := insn.handler(c, insn)

		if c.replay {
			// The handler trapped without executing; the instruction
			// stays current and nothing retires.
			c.replay = false
		} else {
			c.currentInsn = next
			c.prevInsn = insn

			c.Prefetcher.Fetch(c.currentInsn)

			c.retire()
		}
	}

	c.dbgStepCheck()
}

// Port callbacks.

// BootAddrSync sets the boot address and re-resolves the vector table at
// the 256-byte-aligned base.
func (c *Core) BootAddrSync(value uint32) {
	c.trace.Msg(traceInfo, "setting boot address (value: 0x%x)", value)
	c.bootaddr = value
	c.Irq.VectorTableSet(value &^ 0xFF)
}

// FetchEnSync drives the fetch-enable gate. A rising edge points the PC
// at the boot address and wakes the loop; a falling edge stalls it.
func (c *Core) FetchEnSync(active bool) {
	c.trace.Msg(traceInfo, "setting fetch enable (active: %v)", active)

	old := c.fetchEnable
	c.fetchEnable = active
	if !old && active {
		c.pcSet(c.bootaddr + c.config.BootAddrOffset)
	}
	c.checkState()
}

// ClockSync drives the clock gate; the loop is suppressed while the clock
// is inactive.
func (c *Core) ClockSync(active bool) {
	c.trace.Msg(traceDebug, "setting clock (active: %v)", active)
	c.clockActive = active
	c.checkState()
}

// HaltSync drives the external halt wire.
func (c *Core) HaltSync(halted bool) {
	c.trace.Msg(traceInfo, "received halt sync (halted: %v)", halted)
	c.SetHaltMode(halted, HaltCauseHalt)
	c.checkState()
}

// IrqReqSync is the inbound interrupt wire.
func (c *Core) IrqReqSync(irq int) {
	c.Irq.IrqReqSync(irq)
	c.checkState()
}

// FlushCacheAckSync completes the two-phase cache-flush handshake and
// resumes the loop.
func (c *Core) FlushCacheAckSync(active bool) {
	if c.cacheSync {
		c.cacheSync = false
		c.stalledDec()
	}
}

// DataResponse completes a pending data access. For the first half of a
// misaligned split it schedules the continuation; otherwise it finishes
// the instruction and wakes the loop.
func (c *Core) DataResponse(req *IOReq) {
	if c.Lsu.abandoned {
		c.Lsu.abandoned = false
		return
	}

	c.wakeupLatency = req.Latency

	if c.misalignedAccess {
		c.misalignedAccess = false
		c.scheduleMisaligned(req.Latency + 1)
		return
	}

	c.Lsu.stallCallback()
	c.stalledDec()
}

// FetchResponse completes a pending instruction fetch.
func (c *Core) FetchResponse(req *IOReq) {
	c.wakeupLatency = req.Latency
	c.Prefetcher.fetchResponse(req)
}
