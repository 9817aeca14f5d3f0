package iss

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the per-core configuration record. A Core copies it at
// construction; there is no process-wide mutable configuration state.
type Config struct {
	// BootAddr is the reset boot address.
	BootAddr uint32 `json:"boot_addr"`

	// BootAddrOffset is added to the boot address when the PC is set on a
	// fetch-enable rising edge or on reset release.
	BootAddrOffset uint32 `json:"bootaddr_offset"`

	// FetchEnable is the initial state of the fetch-enable gate.
	FetchEnable bool `json:"fetch_enable"`

	// ClusterID and CoreID are combined into mhartid as
	// (ClusterID << 5) | CoreID.
	ClusterID uint32 `json:"cluster_id"`
	CoreID    uint32 `json:"core_id"`

	// ISA selects the decoder extensions, e.g. "rv32imc".
	ISA string `json:"isa"`

	// DebugHandler is the address of the debug exception handler.
	DebugHandler uint32 `json:"debug_handler"`

	// DebugBinaries lists ELF paths whose symbols annotate the
	// instruction trace.
	DebugBinaries []string `json:"debug_binaries"`
}

// DefaultConfig returns the configuration the testbenches boot with.
func DefaultConfig() Config {
	return Config{
		BootAddr:       0x1C008000,
		BootAddrOffset: 0x80,
		FetchEnable:    false,
		ISA:            "rv32imc",
		DebugHandler:   0x1A110800,
	}
}

// Mhartid returns the hart ID encoded from the cluster and core IDs.
func (c Config) Mhartid() uint32 {
	return c.ClusterID<<5 | c.CoreID
}

// LoadConfig reads a Config from a JSON file. Missing keys keep their
// default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}
