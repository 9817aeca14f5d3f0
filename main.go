// Package main provides the entry point for riscvsim.
// Riscvsim is an event-driven RV32 instruction set simulator built on the
// Akita simulation framework.
//
// For the full CLI, use: go run ./cmd/riscvsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("riscvsim - RV32 instruction set simulator")
	fmt.Println("Built on the Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: riscvsim [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to core configuration JSON file")
	fmt.Println("  -max         Stop after this many retired instructions")
	fmt.Println("  -dump-state  Write a dot graph of the core state after the run")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/riscvsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/riscvsim' instead.")
	}
}
