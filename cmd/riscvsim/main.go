// Package main provides the entry point for riscvsim.
// Riscvsim is an event-driven RV32 instruction set simulator.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/bradleyjkemp/memviz"

	"github.com/sarchlab/riscvsim/iss"
	"github.com/sarchlab/riscvsim/loader"
	"github.com/sarchlab/riscvsim/platform"
)

var (
	configPath = flag.String("config", "", "Path to core configuration JSON file")
	verbose    = flag.Bool("v", false, "Verbose output")
	maxInsts   = flag.Uint64("max", 0, "Stop after this many retired instructions (0 = no limit)")
	dumpState  = flag.String("dump-state", "", "Write a dot graph of the core state to this file after the run")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: riscvsim [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	config := iss.DefaultConfig()
	if *configPath != "" {
		config, err = iss.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		// With no explicit configuration, boot straight at the ELF entry.
		config.BootAddr = prog.EntryPoint
		config.BootAddrOffset = 0
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
	}

	// Symbols from the program plus any configured debug binaries feed
	// the instruction trace.
	symbols := prog.Symbols
	for _, path := range config.DebugBinaries {
		extra, err := loader.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping debug binary %s: %v\n", path, err)
			continue
		}
		symbols = append(symbols, extra.Symbols...)
	}

	coreOpts := []iss.CoreOption{
		iss.WithRetireLimit(*maxInsts),
	}
	if *verbose {
		coreOpts = append(coreOpts, iss.WithTrace(os.Stderr, 1))
		coreOpts = append(coreOpts, iss.WithInsnHook(insnTracer(symbols)))
	}

	p := platform.MakeBuilder().
		WithConfig(config).
		WithCoreOptions(coreOpts...).
		Build("Core")

	// Load all segments into memory, zero-filling BSS
	for _, seg := range prog.Segments {
		if err := p.Memory.Write(seg.VirtAddr, seg.Data); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading segment at 0x%x: %v\n", seg.VirtAddr, err)
			os.Exit(1)
		}
		if seg.MemSize > uint32(len(seg.Data)) {
			zeros := make([]byte, seg.MemSize-uint32(len(seg.Data)))
			_ = p.Memory.Write(seg.VirtAddr+uint32(len(seg.Data)), zeros)
		}
	}

	if err := p.Core.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting core: %v\n", err)
		os.Exit(1)
	}
	p.Core.FetchEnSync(true)

	if err := p.Engine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Simulation error: %v\n", err)
		os.Exit(1)
	}

	stats := p.Core.Timing.Stats()
	fmt.Printf("\nProgram: %s\n", programPath)
	fmt.Printf("Instructions retired: %d\n", stats.Instructions)
	fmt.Printf("Stall cycles: %d\n", stats.StallCycles)
	fmt.Printf("Taken branches: %d\n", stats.TakenBranches)

	if *dumpState != "" {
		buf := &bytes.Buffer{}
		memviz.Map(buf, p.Core)
		if err := os.WriteFile(*dumpState, buf.Bytes(), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing state dump: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("State graph written to %s\n", *dumpState)
		}
	}
}

// insnTracer prints each retired instruction, annotated with the
// covering symbol when one is known.
func insnTracer(symbols []loader.Symbol) iss.InsnHook {
	return func(i *iss.DecodedInsn) {
		for _, s := range symbols {
			if i.Addr >= s.Addr && (s.Size == 0 && i.Addr == s.Addr ||
				i.Addr < s.Addr+s.Size) {
				fmt.Fprintf(os.Stderr, "0x%08x: 0x%08x (%s)\n", i.Addr, i.Opcode, s.Name)
				return
			}
		}
		fmt.Fprintf(os.Stderr, "0x%08x: 0x%08x\n", i.Addr, i.Opcode)
	}
}
