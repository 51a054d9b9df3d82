// Completion: 100% - PE64 and PE32 "tiny" executable writers
package main

import "encoding/binary"

const (
	dosHeaderSize  = 64
	peSigSize      = 4
	coffHeaderSize = 20
)

// WritePE64 builds a minimal PE64 (x64) console executable: DOS stub,
// PE signature, COFF header, one 64-bit optional header, a single
// executable+readable section holding rodata then code, and an Import
// Address Table when importNames is non-empty (libc-equivalent calls on
// Windows go through kernel32/msvcrt rather than raw syscalls).
func WritePE64(code, rodata []byte, importLib string, importNames []string) ([]byte, error) {
	const sectionHeaderSize = 40
	const optHeaderSize = 112 + 16*8 // standard+windows fields + 16 data directories

	headersSize := AlignUp(dosHeaderSize+peSigSize+coffHeaderSize+optHeaderSize+sectionHeaderSize, 0x200)
	sectionRVA := uint32(AlignUp(headersSize, PageSize))

	var importTable []byte
	importTableRVA := sectionRVA + uint32(len(rodata)+len(code))
	if len(importNames) > 0 {
		importTable = buildImportTable(importLib, importNames, importTableRVA)
	}

	sectionData := append(append([]byte{}, rodata...), code...)
	sectionData = append(sectionData, importTable...)
	sectionRawSize := AlignUp(len(sectionData), 0x200)

	entryRVA := sectionRVA + uint32(len(rodata))
	imageSize := AlignUp(int(sectionRVA)+int(sectionRawSize), PageSize)

	var buf []byte
	buf = appendDOSStub(buf)
	buf = append(buf, 'P', 'E', 0, 0)
	buf = binary.LittleEndian.AppendUint16(buf, PEMachine(false))
	buf = binary.LittleEndian.AppendUint16(buf, 1) // NumberOfSections
	buf = binary.LittleEndian.AppendUint32(buf, 0) // TimeDateStamp, zeroed for determinism
	buf = binary.LittleEndian.AppendUint32(buf, 0) // PointerToSymbolTable
	buf = binary.LittleEndian.AppendUint32(buf, 0) // NumberOfSymbols
	buf = binary.LittleEndian.AppendUint16(buf, uint16(optHeaderSize))
	buf = binary.LittleEndian.AppendUint16(buf, 0x22) // Characteristics: EXECUTABLE | LARGE_ADDRESS_AWARE

	buf = binary.LittleEndian.AppendUint16(buf, 0x20b) // PE32+ magic
	buf = append(buf, 0, 0)                            // linker version
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(code)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(rodata)))
	buf = binary.LittleEndian.AppendUint32(buf, 0) // SizeOfUninitializedData
	buf = binary.LittleEndian.AppendUint32(buf, entryRVA)
	buf = binary.LittleEndian.AppendUint32(buf, sectionRVA)
	buf = binary.LittleEndian.AppendUint64(buf, PEImageBase)
	buf = binary.LittleEndian.AppendUint32(buf, PageSize)
	buf = binary.LittleEndian.AppendUint32(buf, 0x200)
	buf = binary.LittleEndian.AppendUint16(buf, 6)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 6)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, 0) // Win32VersionValue
	buf = binary.LittleEndian.AppendUint32(buf, uint32(imageSize))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(headersSize))
	buf = binary.LittleEndian.AppendUint32(buf, 0) // CheckSum
	buf = binary.LittleEndian.AppendUint16(buf, 3) // Subsystem: console
	buf = binary.LittleEndian.AppendUint16(buf, 0x8160)
	buf = binary.LittleEndian.AppendUint64(buf, 0x100000) // SizeOfStackReserve
	buf = binary.LittleEndian.AppendUint64(buf, 0x1000)   // SizeOfStackCommit
	buf = binary.LittleEndian.AppendUint64(buf, 0x100000) // SizeOfHeapReserve
	buf = binary.LittleEndian.AppendUint64(buf, 0x1000)   // SizeOfHeapCommit
	buf = binary.LittleEndian.AppendUint32(buf, 0)        // LoaderFlags
	buf = binary.LittleEndian.AppendUint32(buf, 16)       // NumberOfRvaAndSizes

	for i := 0; i < 16; i++ {
		if i == 1 && len(importTable) > 0 { // IMAGE_DIRECTORY_ENTRY_IMPORT
			buf = binary.LittleEndian.AppendUint32(buf, importTableRVA)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(importTable)))
			continue
		}
		buf = binary.LittleEndian.AppendUint32(buf, 0)
		buf = binary.LittleEndian.AppendUint32(buf, 0)
	}

	name := [8]byte{'.', 't', 'e', 'x', 't'}
	buf = append(buf, name[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(sectionData)))
	buf = binary.LittleEndian.AppendUint32(buf, sectionRVA)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sectionRawSize))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(headersSize))
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, 0xE0000020) // CODE|EXECUTE|READ|WRITE

	for len(buf) < headersSize {
		buf = append(buf, 0)
	}
	buf = append(buf, sectionData...)
	for len(buf) < headersSize+sectionRawSize {
		buf = append(buf, 0)
	}
	return buf, nil
}

// WritePE32Tiny builds the size-optimized 32-bit form spec §4.8 calls
// "tiny": no DOS stub beyond the mandatory `MZ`+e_lfanew pair, a single
// section, no import table (tiny-mode programs only ever make direct
// syscalls or are fully self-contained).
func WritePE32Tiny(code, rodata []byte) ([]byte, error) {
	const sectionHeaderSize = 40
	const optHeaderSize = 96 + 16*8

	headersSize := dosHeaderSize + peSigSize + coffHeaderSize + optHeaderSize + sectionHeaderSize
	sectionRVA := uint32(AlignUp(headersSize, 0x200))
	sectionData := append(append([]byte{}, rodata...), code...)
	entryRVA := sectionRVA + uint32(len(rodata))
	imageSize := AlignUp(int(sectionRVA)+len(sectionData), PageSize)

	var buf []byte
	buf = appendDOSStub(buf)
	buf = append(buf, 'P', 'E', 0, 0)
	buf = binary.LittleEndian.AppendUint16(buf, PEMachine(true))
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(optHeaderSize))
	buf = binary.LittleEndian.AppendUint16(buf, 0x102) // EXECUTABLE | 32BIT_MACHINE

	buf = binary.LittleEndian.AppendUint16(buf, 0x10b) // PE32 magic
	buf = append(buf, 0, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(code)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(rodata)))
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, entryRVA)
	buf = binary.LittleEndian.AppendUint32(buf, sectionRVA)
	buf = binary.LittleEndian.AppendUint32(buf, sectionRVA) // BaseOfData (PE32 only)
	buf = binary.LittleEndian.AppendUint32(buf, PEImageBase)
	buf = binary.LittleEndian.AppendUint32(buf, PageSize)
	buf = binary.LittleEndian.AppendUint32(buf, 0x200)
	buf = binary.LittleEndian.AppendUint16(buf, 6)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 6)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(imageSize))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(headersSize))
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 3)
	buf = binary.LittleEndian.AppendUint16(buf, 0x8160)
	buf = binary.LittleEndian.AppendUint32(buf, 0x100000)
	buf = binary.LittleEndian.AppendUint32(buf, 0x1000)
	buf = binary.LittleEndian.AppendUint32(buf, 0x100000)
	buf = binary.LittleEndian.AppendUint32(buf, 0x1000)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	for i := 0; i < 16; i++ {
		buf = binary.LittleEndian.AppendUint32(buf, 0)
		buf = binary.LittleEndian.AppendUint32(buf, 0)
	}

	name := [8]byte{'.', 't', 'e', 'x', 't'}
	buf = append(buf, name[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(sectionData)))
	buf = binary.LittleEndian.AppendUint32(buf, sectionRVA)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(AlignUp(len(sectionData), 0x200)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(headersSize))
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, 0xE0000020)

	for len(buf) < headersSize {
		buf = append(buf, 0)
	}
	buf = append(buf, sectionData...)
	return buf, nil
}

func appendDOSStub(buf []byte) []byte {
	buf = append(buf, 'M', 'Z')
	buf = append(buf, make([]byte, dosHeaderSize-2-4)...)
	buf = binary.LittleEndian.AppendUint32(buf, dosHeaderSize) // e_lfanew
	return buf
}

// buildImportTable constructs a single-library Import Directory Table: one
// IMAGE_IMPORT_DESCRIPTOR followed by its zero terminator, then the Import
// Lookup Table, Import Address Table, hint/name entries, and the library's
// own name string, laid out back to back starting at tableRVA (spec
// §4.8's IAT construction for Windows libc calls). The loader patches each
// IAT slot to the resolved function address at load time; ADead-BIB's own
// call sites reference a slot through its RVA the same way the linker
// would for a statically-imported symbol.
func buildImportTable(lib string, names []string, tableRVA uint32) []byte {
	const dirEntrySize = 20 // one IMAGE_IMPORT_DESCRIPTOR
	const dirSize = 2 * dirEntrySize

	var hints []byte
	hintOff := make([]uint32, len(names))
	for i, n := range names {
		hintOff[i] = uint32(len(hints))
		hints = binary.LittleEndian.AppendUint16(hints, 0)
		hints = append(hints, append([]byte(n), 0)...)
		if len(hints)%2 != 0 {
			hints = append(hints, 0)
		}
	}
	libNameOff := uint32(len(hints))
	hints = append(hints, append([]byte(lib), 0)...)

	iltOff := uint32(dirSize)
	iatOff := iltOff + uint64ArrayBytes(len(names)+1)
	hintsOff := iatOff + uint64ArrayBytes(len(names)+1)

	var ilt, iat []byte
	for _, off := range hintOff {
		hintRVA := uint64(tableRVA + hintsOff + off)
		ilt = binary.LittleEndian.AppendUint64(ilt, hintRVA)
		iat = binary.LittleEndian.AppendUint64(iat, hintRVA) // loader overwrites with the resolved address
	}
	ilt = binary.LittleEndian.AppendUint64(ilt, 0)
	iat = binary.LittleEndian.AppendUint64(iat, 0)

	var dir []byte
	dir = binary.LittleEndian.AppendUint32(dir, tableRVA+iltOff)           // OriginalFirstThunk
	dir = binary.LittleEndian.AppendUint32(dir, 0)                        // TimeDateStamp
	dir = binary.LittleEndian.AppendUint32(dir, 0)                        // ForwarderChain
	dir = binary.LittleEndian.AppendUint32(dir, tableRVA+hintsOff+libNameOff) // Name
	dir = binary.LittleEndian.AppendUint32(dir, tableRVA+uint32(iatOff))  // FirstThunk
	dir = append(dir, make([]byte, dirEntrySize)...)                      // null terminator descriptor

	out := append([]byte{}, dir...)
	out = append(out, ilt...)
	out = append(out, iat...)
	out = append(out, hints...)
	return out
}

func uint64ArrayBytes(n int) uint32 { return uint32(n * 8) }
