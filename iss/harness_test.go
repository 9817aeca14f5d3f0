package iss_test

import (
	"encoding/binary"

	"github.com/sarchlab/riscvsim/iss"
	"github.com/sarchlab/riscvsim/platform"
)

// Handy RV32 encodings for test programs.
const (
	insnWFI   = 0x10500073
	insnMRET  = 0x30200073
	insnECALL = 0x00000073
	insnNOP   = 0x00000013 // addi x0, x0, 0
	insnJ0    = 0x0000006F // jal x0, 0 (spin in place)
	insnFENCI = 0x0000100F
)

// addi encodes ADDI rd, rs1, imm.
func addi(rd, rs1 uint32, imm int32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | rd<<7 | 0x13
}

// lui encodes LUI rd, imm20.
func lui(rd, imm20 uint32) uint32 {
	return imm20<<12 | rd<<7 | 0x37
}

// bench is one core wired to a memory through the platform builder.
type bench struct {
	*platform.Platform
}

func newBench(
	config iss.Config,
	coreOpts []iss.CoreOption,
	memOpts []platform.MemoryOption,
) *bench {
	p := platform.MakeBuilder().
		WithConfig(config).
		WithCoreOptions(coreOpts...).
		WithMemoryOptions(memOpts...).
		Build("TestCore")
	return &bench{Platform: p}
}

// writeWords stores opcode words into memory little-endian.
func (b *bench) writeWords(addr uint32, words ...uint32) {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	if err := b.Memory.Write(addr, buf); err != nil {
		panic(err)
	}
}

// boot starts the core and raises fetch enable.
func (b *bench) boot() {
	if err := b.Core.Start(); err != nil {
		panic(err)
	}
	b.Core.FetchEnSync(true)
}

// run drains the event queue: the engine returns once the core parked in
// WFI, halted, or stalled on an external wire.
func (b *bench) run() {
	if err := b.Engine.Run(); err != nil {
		panic(err)
	}
}

// dbgWrite performs a word write to the debug unit.
func (b *bench) dbgWrite(offset, value uint32) iss.IOStatus {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, value)
	return b.Core.Dbg.Req(&iss.IOReq{Addr: offset, Data: data, IsWrite: true})
}

// dbgRead performs a word read from the debug unit.
func (b *bench) dbgRead(offset uint32) (uint32, iss.IOStatus) {
	data := make([]byte, 4)
	st := b.Core.Dbg.Req(&iss.IOReq{Addr: offset, Data: data})
	return binary.LittleEndian.Uint32(data), st
}

// simpleConfig boots at 0x1000 with the code placed 0x100 bytes above the
// vector table: the vector slots live at 0x1000 + 4*i and the first
// executed instruction at codeAddr.
const codeAddr = 0x1100

func simpleConfig() iss.Config {
	cfg := iss.DefaultConfig()
	cfg.BootAddr = 0x1000
	cfg.BootAddrOffset = 0x100
	cfg.FetchEnable = false
	return cfg
}
