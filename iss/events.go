package iss

import "github.com/sarchlab/akita/v4/sim"

// clockEvent is the core's loop event. The engine cannot remove a
// scheduled event, so cancellation is a sequence number: a firing whose
// seq no longer matches the core's is stale and ignored.
type clockEvent struct {
	time sim.VTimeInSec
	core *Core
	seq  uint64
}

func (e *clockEvent) Time() sim.VTimeInSec { return e.time }
func (e *clockEvent) Handler() sim.Handler { return e.core }
func (e *clockEvent) IsSecondary() bool    { return false }

// misalignedEvent performs the second half of a misaligned split access.
type misalignedEvent struct {
	time sim.VTimeInSec
	core *Core
}

func (e *misalignedEvent) Time() sim.VTimeInSec { return e.time }
func (e *misalignedEvent) Handler() sim.Handler { return e.core }
func (e *misalignedEvent) IsSecondary() bool    { return false }

// Handle dispatches the core's events. One clock firing retires at most
// one instruction; all its side effects land before the next event is
// enqueued.
func (c *Core) Handle(e sim.Event) error {
	switch evt := e.(type) {
	case *clockEvent:
		if evt.seq != c.eventSeq || !c.active {
			return nil
		}
		c.scheduled = false

		c.execHandler(c)

		if c.active && !c.scheduled {
			c.enqueue(1)
		}
	case *misalignedEvent:
		c.Lsu.misalignedStep()
	}
	return nil
}

// enqueue schedules the loop event n cycles ahead.
func (c *Core) enqueue(n int64) {
	c.eventSeq++
	c.scheduled = true
	c.engine.Schedule(&clockEvent{
		time: c.freq.NCyclesLater(int(n), c.engine.CurrentTime()),
		core: c,
		seq:  c.eventSeq,
	})
}

// cancelEvent invalidates the in-flight loop event, if any.
func (c *Core) cancelEvent() {
	c.eventSeq++
	c.scheduled = false
}

// scheduleMisaligned arms the misaligned continuation n cycles ahead.
func (c *Core) scheduleMisaligned(n int64) {
	c.engine.Schedule(&misalignedEvent{
		time: c.freq.NCyclesLater(int(n), c.engine.CurrentTime()),
		core: c,
	})
}
