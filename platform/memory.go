// Package platform provides the host-side collaborators a core is wired
// to: event-driven memory slaves backed by Akita storage, and the small
// wire endpoints used by testbenches and the CLI.
package platform

import (
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/riscvsim/iss"
)

// Memory is a storage-backed slave for the core's fetch and data ports.
// It answers synchronously by default, reporting the configured latency;
// with WithAsyncResponses it answers PENDING and completes through an
// event scheduled that latency later, exercising the core's stall paths.
type Memory struct {
	engine  sim.Engine
	freq    sim.Freq
	storage *mem.Storage

	latency int64
	async   bool

	// Addresses inside [invalidLo, invalidHi) fault.
	invalidLo uint32
	invalidHi uint32
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithLatency sets the per-access latency in cycles.
func WithLatency(cycles int64) MemoryOption {
	return func(m *Memory) {
		m.latency = cycles
	}
}

// WithAsyncResponses makes every access complete asynchronously after
// the configured latency.
func WithAsyncResponses() MemoryOption {
	return func(m *Memory) {
		m.async = true
	}
}

// WithInvalidRange makes accesses inside [lo, hi) fault.
func WithInvalidRange(lo, hi uint32) MemoryOption {
	return func(m *Memory) {
		m.invalidLo = lo
		m.invalidHi = hi
	}
}

// NewMemory creates a memory slave with the given capacity.
func NewMemory(
	engine sim.Engine,
	freq sim.Freq,
	capacity uint64,
	opts ...MemoryOption,
) *Memory {
	m := &Memory{
		engine:  engine,
		freq:    freq,
		storage: mem.NewStorage(capacity),
		latency: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Write preloads bytes into the backing storage, e.g. a program image.
func (m *Memory) Write(addr uint32, data []byte) error {
	return m.storage.Write(uint64(addr), data)
}

// Read returns bytes from the backing storage.
func (m *Memory) Read(addr uint32, n int) ([]byte, error) {
	return m.storage.Read(uint64(addr), uint64(n))
}

// Req implements the slave side of the core's memory ports.
func (m *Memory) Req(req *iss.IOReq) iss.IOStatus {
	if m.invalidHi > m.invalidLo &&
		req.Addr >= m.invalidLo && req.Addr < m.invalidHi {
		return iss.IOInvalid
	}

	if m.async {
		m.engine.Schedule(&memRespEvent{
			time: m.freq.NCyclesLater(int(m.latency), m.engine.CurrentTime()),
			mem:  m,
			req:  req,
		})
		return iss.IOPending
	}

	m.access(req)
	req.Latency = m.latency
	return iss.IOOK
}

func (m *Memory) access(req *iss.IOReq) {
	if req.IsWrite {
		_ = m.storage.Write(uint64(req.Addr), req.Data)
		return
	}
	data, err := m.storage.Read(uint64(req.Addr), uint64(len(req.Data)))
	if err != nil {
		return
	}
	copy(req.Data, data)
}

// Handle completes asynchronous accesses.
func (m *Memory) Handle(e sim.Event) error {
	evt := e.(*memRespEvent)
	m.access(evt.req)
	evt.req.Latency = m.latency
	evt.req.Complete(evt.req)
	return nil
}

// memRespEvent delivers one delayed memory response.
type memRespEvent struct {
	time sim.VTimeInSec
	mem  *Memory
	req  *iss.IOReq
}

func (e *memRespEvent) Time() sim.VTimeInSec { return e.time }
func (e *memRespEvent) Handler() sim.Handler { return e.mem }
func (e *memRespEvent) IsSecondary() bool    { return false }
