package platform

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/riscvsim/iss"
)

// AckCollector records interrupt acknowledgements from the core's
// irq_ack master port.
type AckCollector struct {
	Acks []int
}

// Sync implements iss.IntSignal.
func (a *AckCollector) Sync(v int) {
	a.Acks = append(a.Acks, v)
}

// BoolWire records boolean level changes, usable as a halt-status sink
// or as the request side of the cache-flush handshake.
type BoolWire struct {
	Level   bool
	Changes int
}

// Sync implements iss.BoolSignal.
func (w *BoolWire) Sync(v bool) {
	w.Level = v
	w.Changes++
}

// Platform is one core wired to a shared memory and the default wire
// endpoints.
type Platform struct {
	Engine sim.Engine
	Freq   sim.Freq
	Core   *iss.Core
	Memory *Memory
	IrqAck *AckCollector
}

// Builder assembles a Platform.
type Builder struct {
	freq     sim.Freq
	config   iss.Config
	capacity uint64
	memOpts  []MemoryOption
	coreOpts []iss.CoreOption
}

// MakeBuilder creates a builder with default parameter settings.
func MakeBuilder() Builder {
	return Builder{
		freq:     1 * sim.GHz,
		config:   iss.DefaultConfig(),
		capacity: 1 << 32,
	}
}

// WithFreq sets the core clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithConfig sets the core configuration record.
func (b Builder) WithConfig(config iss.Config) Builder {
	b.config = config
	return b
}

// WithMemCapacity sets the backing storage capacity.
func (b Builder) WithMemCapacity(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithMemoryOptions forwards options to the memory slave.
func (b Builder) WithMemoryOptions(opts ...MemoryOption) Builder {
	b.memOpts = append(b.memOpts, opts...)
	return b
}

// WithCoreOptions forwards options to the core.
func (b Builder) WithCoreOptions(opts ...iss.CoreOption) Builder {
	b.coreOpts = append(b.coreOpts, opts...)
	return b
}

// Build wires a core to a memory and the default endpoints. The core is
// not started: callers preload memory first, then call Core.Start and
// run the engine.
func (b Builder) Build(name string) *Platform {
	engine := sim.NewSerialEngine()

	memory := NewMemory(engine, b.freq, b.capacity, b.memOpts...)
	core := iss.NewCore(name, engine, b.freq, b.config, b.coreOpts...)
	ack := &AckCollector{}

	core.BindData(memory)
	core.BindFetch(memory)
	core.BindIrqAck(ack)

	return &Platform{
		Engine: engine,
		Freq:   b.freq,
		Core:   core,
		Memory: memory,
		IrqAck: ack,
	}
}
