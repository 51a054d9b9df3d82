// Completion: 100% - Flat binary and boot-sector writers
package main

import "fmt"

// WriteFlat concatenates rodata then code with no header at all, for
// targets that load the image at a known fixed address themselves
// (demoscene-style "raw" mode, spec §4.8).
func WriteFlat(code, rodata []byte) []byte {
	return append(append([]byte{}, rodata...), code...)
}

// WriteBootSector produces a 512-byte x86 boot sector: code (preceded by
// rodata, both must fit in 510 bytes) padded with zeros and terminated
// with the mandatory 0x55AA signature at bytes 510-511 (spec §4.8's boot
// writer). BIOS loads this at real-mode address 0x7C00 and jumps to its
// first byte, so rodata offsets the lowering pass computed assuming a
// 0x400000 base are meaningless here; boot-mode programs are expected to
// use only PC-relative addressing or rely on the code being entirely
// position-independent within the sector.
func WriteBootSector(code, rodata []byte) ([]byte, error) {
	payload := append(append([]byte{}, rodata...), code...)
	if len(payload) > 510 {
		return nil, &ContainerError{Format: "boot", Reason: fmt.Sprintf("payload is %d bytes, a boot sector has room for 510", len(payload))}
	}
	buf := make([]byte, 512)
	copy(buf, payload)
	buf[510] = 0x55
	buf[511] = 0xAA
	return buf, nil
}
