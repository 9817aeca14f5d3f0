package iss

// Stats holds performance statistics for the core.
type Stats struct {
	// Instructions is the number of instructions retired.
	Instructions uint64
	// StallCycles is the number of cycles spent stalled on hazards and
	// functional-unit latencies.
	StallCycles uint64
	// LoadStallCycles is the subset of StallCycles charged to loads.
	LoadStallCycles uint64
	// TakenBranches is the number of taken conditional branches.
	TakenBranches uint64
}

// Timing owns cycle accounting: the pending stall-cycle counter consumed
// by the execution loop, the aggregate statistics, and the pccr
// performance counter bank.
type Timing struct {
	core *Core

	stallCycles int64
	stats       Stats
}

// Stats returns the aggregate statistics.
func (t *Timing) Stats() Stats { return t.stats }

// StallCyclesGet returns the pending stall-cycle count.
func (t *Timing) StallCyclesGet() int64 { return t.stallCycles }

// StallCyclesDec consumes one pending stall cycle.
func (t *Timing) StallCyclesDec() {
	t.stallCycles--
	t.stats.StallCycles++
}

func (t *Timing) reset() {
	t.stallCycles = 0
	t.stats = Stats{}
}

// counting reports whether the pccr bank accumulates the given event.
func (t *Timing) counting(event int) bool {
	csr := &t.core.Csr
	return csr.Pcmr&1 != 0 && csr.Pcer&(1<<event) != 0
}

// countingAny reports whether any pccr event is enabled. While it holds,
// the execution loop stays on the slow dispatch path.
func (t *Timing) countingAny() bool {
	csr := &t.core.Csr
	return csr.Pcmr&1 != 0 && csr.Pcer != 0
}

// EventAccount adds n to a pccr event counter when enabled.
func (t *Timing) EventAccount(event int, n uint32) {
	if t.counting(event) {
		t.core.Csr.Pccr[event] += n
	}
}

// InsnAccount retires one instruction.
func (t *Timing) InsnAccount() {
	t.stats.Instructions++
	t.EventAccount(PcerInstr, 1)
	if t.core.prevInsn != nil && t.core.prevInsn.Size == 2 {
		t.EventAccount(PcerRvc, 1)
	}
}

// StallInsnDependencyAccount charges stall cycles for a functional-unit
// or operand dependency, such as the iterative divider.
func (t *Timing) StallInsnDependencyAccount(cycles int64) {
	t.stallCycles += cycles
}

// StallLoadAccount charges stall cycles for a load-use dependency.
func (t *Timing) StallLoadAccount(cycles int64) {
	t.stallCycles += cycles
	t.stats.LoadStallCycles += uint64(cycles)
	t.EventAccount(PcerLdStall, uint32(cycles))
}

// TakenBranchAccount charges the two-cycle pipeline refill of a taken
// branch.
func (t *Timing) TakenBranchAccount() {
	t.stats.TakenBranches++
	t.stallCycles += 2
	t.EventAccount(PcerTakenBranch, 1)
	t.EventAccount(PcerJmpStall, 2)
}

// JumpAccount charges the single refill cycle of an unconditional jump.
func (t *Timing) JumpAccount() {
	t.stallCycles++
	t.EventAccount(PcerJump, 1)
	t.EventAccount(PcerJmpStall, 1)
}
