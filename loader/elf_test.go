package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/riscvsim/loader"
)

// writeTestELF emits a minimal RV32 executable with one PT_LOAD segment.
func writeTestELF(path string, entry uint32, segData []byte, memSize uint32) {
	const (
		ehSize = 52
		phSize = 32
	)

	buf := make([]byte, ehSize+phSize+len(segData))
	le := binary.LittleEndian

	// ELF identification: 32-bit, little-endian, version 1.
	copy(buf, []byte{0x7F, 'E', 'L', 'F', 1, 1, 1})

	le.PutUint16(buf[16:], 2)   // e_type: EXEC
	le.PutUint16(buf[18:], 243) // e_machine: RISC-V
	le.PutUint32(buf[20:], 1)   // e_version
	le.PutUint32(buf[24:], entry)
	le.PutUint32(buf[28:], ehSize) // e_phoff
	le.PutUint16(buf[40:], ehSize) // e_ehsize
	le.PutUint16(buf[42:], phSize) // e_phentsize
	le.PutUint16(buf[44:], 1)      // e_phnum

	ph := buf[ehSize:]
	le.PutUint32(ph[0:], 1)                // p_type: PT_LOAD
	le.PutUint32(ph[4:], ehSize+phSize)    // p_offset
	le.PutUint32(ph[8:], entry)            // p_vaddr
	le.PutUint32(ph[12:], entry)           // p_paddr
	le.PutUint32(ph[16:], uint32(len(segData)))
	le.PutUint32(ph[20:], memSize)
	le.PutUint32(ph[24:], 5) // p_flags: R+X
	le.PutUint32(ph[28:], 4) // p_align

	copy(buf[ehSize+phSize:], segData)

	Expect(os.WriteFile(path, buf, 0o644)).To(Succeed())
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should load an RV32 executable", func() {
		path := filepath.Join(dir, "prog.elf")
		code := []byte{0x93, 0x00, 0x50, 0x00} // addi x1, x0, 5
		writeTestELF(path, 0x1000, code, 16)

		prog, err := loader.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.EntryPoint).To(Equal(uint32(0x1000)))
		Expect(prog.Segments).To(HaveLen(1))
		Expect(prog.Segments[0].VirtAddr).To(Equal(uint32(0x1000)))
		Expect(prog.Segments[0].Data).To(Equal(code))
		Expect(prog.Segments[0].MemSize).To(Equal(uint32(16)))
		Expect(prog.Segments[0].Flags & loader.SegmentFlagExecute).
			NotTo(Equal(loader.SegmentFlags(0)))
	})

	It("should reject a missing file", func() {
		_, err := loader.Load(filepath.Join(dir, "nope.elf"))
		Expect(err).To(HaveOccurred())
	})

	It("should reject a non-ELF file", func() {
		path := filepath.Join(dir, "junk.bin")
		Expect(os.WriteFile(path, []byte("not an elf"), 0o644)).To(Succeed())

		_, err := loader.Load(path)
		Expect(err).To(HaveOccurred())
	})
})
