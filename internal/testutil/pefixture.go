package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// FixtureExport is one export of a synthetic DLL.
type FixtureExport struct {
	Name string
	// Ordinal is absolute. Zero assigns the next free ordinal.
	Ordinal uint16
	// Forward makes the entry a forwarder ("OTHER.Func").
	Forward string
}

// DLLFixture describes a synthetic PE32 DLL.
type DLLFixture struct {
	Name    string
	Exports []FixtureExport
	// Imports maps a DLL name to the functions imported from it.
	Imports map[string][]string
	// Symbols become COFF symbol table entries.
	Symbols []string
	// Sections adds empty sections with these names (at most 8 bytes).
	Sections  []string
	Timestamp uint32
	// Machine defaults to IMAGE_FILE_MACHINE_I386.
	Machine uint16
	// NotDLL clears IMAGE_FILE_DLL.
	NotDLL bool
}

const (
	fixtureFileAlign = 0x200
	fixtureSectAlign = 0x1000
	fixtureImageBase = 0x1000_0000
	fixtureTextRVA   = 0x1000
	fixtureRdataRVA  = 0x2000
	fixtureStubSize  = 16
)

type leBuf struct {
	b []byte
}

func (w *leBuf) u16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *leBuf) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *leBuf) str(s string) { w.b = append(append(w.b, s...), 0) }
func (w *leBuf) align(n int) {
	for len(w.b)%n != 0 {
		w.b = append(w.b, 0)
	}
}
func (w *leBuf) pad(n int) { w.b = append(w.b, make([]byte, n)...) }

func alignUp(v, a int) int {
	return (v + a - 1) / a * a
}

// BuildDLL lays out a minimal PE32 image: headers, a .text section holding
// one "ret N" stub per export, an .rdata section holding the export and
// import directories, any extra empty sections and an optional COFF symbol
// table.
func BuildDLL(fx DLLFixture) []byte {
	if fx.Name == "" {
		fx.Name = "fixture.dll"
	}
	if fx.Machine == 0 {
		fx.Machine = 0x014c
	}

	exports := assignFixtureOrdinals(fx.Exports)

	// .text: one stub per export.
	text := make([]byte, fixtureStubSize*len(exports)+1)
	for i := range text {
		text[i] = 0xcc
	}
	for i := range exports {
		copy(text[i*fixtureStubSize:], []byte{0x31, 0xc0, 0xc2, 0x08, 0x00}) // xor eax,eax; ret 8
	}

	rdata, exportDir, importDir := buildRdata(fx, exports)

	sections := []fixtureSection{
		{name: ".text", rva: fixtureTextRVA, data: text, flags: 0x60000020},
		{name: ".rdata", rva: fixtureRdataRVA, data: rdata, flags: 0x40000040},
	}
	rva := fixtureRdataRVA + alignUp(len(rdata), fixtureSectAlign)
	for _, name := range fx.Sections {
		sections = append(sections, fixtureSection{name: name, rva: uint32(rva), data: make([]byte, 16), flags: 0x40000040})
		rva += fixtureSectAlign
	}
	imageSize := rva

	const (
		peOff     = 0x40
		coffOff   = peOff + 4
		optOff    = coffOff + 20
		optSize   = 224
		sectTable = optOff + optSize
	)
	headersSize := alignUp(sectTable+40*len(sections), fixtureFileAlign)

	fileOff := headersSize
	for i := range sections {
		sections[i].fileOff = fileOff
		sections[i].rawSize = alignUp(len(sections[i].data), fixtureFileAlign)
		fileOff += sections[i].rawSize
	}

	symtab, strtab := buildFixtureSymbols(fx.Symbols)
	symOff := 0
	if len(fx.Symbols) > 0 {
		symOff = fileOff
		fileOff += len(symtab) + len(strtab)
	}

	w := &leBuf{b: make([]byte, 0, fileOff)}

	// DOS header
	w.b = append(w.b, 'M', 'Z')
	w.pad(0x3c - 2)
	w.u32(peOff)

	w.b = append(w.b, 'P', 'E', 0, 0)

	// COFF header
	characteristics := uint16(0x0102) // EXECUTABLE_IMAGE | 32BIT_MACHINE
	if !fx.NotDLL {
		characteristics |= 0x2000
	}
	w.u16(fx.Machine)
	w.u16(uint16(len(sections)))
	w.u32(fx.Timestamp)
	w.u32(uint32(symOff))
	w.u32(uint32(len(fx.Symbols)))
	w.u16(optSize)
	w.u16(characteristics)

	// Optional header (PE32)
	w.u16(0x010b)
	w.b = append(w.b, 14, 0) // linker version
	w.u32(uint32(len(text)))
	w.u32(uint32(len(rdata)))
	w.u32(0)
	w.u32(0) // no entry point
	w.u32(fixtureTextRVA)
	w.u32(fixtureRdataRVA)
	w.u32(fixtureImageBase)
	w.u32(fixtureSectAlign)
	w.u32(fixtureFileAlign)
	w.u16(6)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(6)
	w.u16(0)
	w.u32(0)
	w.u32(uint32(imageSize))
	w.u32(uint32(headersSize))
	w.u32(0)
	w.u16(2)      // IMAGE_SUBSYSTEM_WINDOWS_GUI
	w.u16(0x0140) // DYNAMIC_BASE | NX_COMPAT
	w.u32(0x100000)
	w.u32(0x1000)
	w.u32(0x100000)
	w.u32(0x1000)
	w.u32(0)
	w.u32(16)
	dirs := [16][2]uint32{}
	dirs[0] = exportDir
	dirs[1] = importDir
	for _, d := range dirs {
		w.u32(d[0])
		w.u32(d[1])
	}

	for _, s := range sections {
		var name [8]byte
		copy(name[:], s.name)
		w.b = append(w.b, name[:]...)
		w.u32(uint32(len(s.data)))
		w.u32(s.rva)
		w.u32(uint32(s.rawSize))
		w.u32(uint32(s.fileOff))
		w.u32(0)
		w.u32(0)
		w.u16(0)
		w.u16(0)
		w.u32(s.flags)
	}
	w.pad(headersSize - len(w.b))

	for _, s := range sections {
		w.b = append(w.b, s.data...)
		w.pad(s.rawSize - len(s.data))
	}
	if symOff != 0 {
		w.b = append(w.b, symtab...)
		w.b = append(w.b, strtab...)
	}
	return w.b
}

// WriteDLL builds fx and writes it to dir, returning the path.
func WriteDLL(t *testing.T, dir string, fx DLLFixture) string {
	t.Helper()
	if fx.Name == "" {
		fx.Name = "fixture.dll"
	}
	path := filepath.Join(dir, fx.Name)
	require.NoError(t, os.WriteFile(path, BuildDLL(fx), 0o644))
	return path
}

type fixtureSection struct {
	name    string
	rva     uint32
	data    []byte
	flags   uint32
	fileOff int
	rawSize int
}

func assignFixtureOrdinals(in []FixtureExport) []FixtureExport {
	out := make([]FixtureExport, len(in))
	copy(out, in)
	used := map[uint16]bool{}
	for _, e := range out {
		if e.Ordinal != 0 {
			used[e.Ordinal] = true
		}
	}
	next := uint16(1)
	for i := range out {
		if out[i].Ordinal != 0 {
			continue
		}
		for used[next] {
			next++
		}
		out[i].Ordinal = next
		used[next] = true
	}
	return out
}

// buildRdata returns the section bytes and the export and import data
// directory entries (RVA, size).
func buildRdata(fx DLLFixture, exports []FixtureExport) ([]byte, [2]uint32, [2]uint32) {
	w := &leBuf{}
	var exportDir, importDir [2]uint32
	rva := func(off int) uint32 { return fixtureRdataRVA + uint32(off) }

	if len(exports) > 0 {
		base, maxOrd := exports[0].Ordinal, exports[0].Ordinal
		for _, e := range exports {
			base = min(base, e.Ordinal)
			maxOrd = max(maxOrd, e.Ordinal)
		}
		nFuncs := int(maxOrd-base) + 1

		named := make([]int, 0, len(exports))
		for i, e := range exports {
			if e.Name != "" {
				named = append(named, i)
			}
		}
		sort.Slice(named, func(a, b int) bool { return exports[named[a]].Name < exports[named[b]].Name })

		funcsOff := 40
		namesOff := funcsOff + 4*nFuncs
		ordsOff := namesOff + 4*len(named)
		stringsOff := alignUp(ordsOff+2*len(named), 4)

		// Strings first so their offsets are known.
		strs := &leBuf{}
		dllNameOff := stringsOff + len(strs.b)
		strs.str(fx.Name)
		nameOffs := make([]int, len(named))
		for i, idx := range named {
			nameOffs[i] = stringsOff + len(strs.b)
			strs.str(exports[idx].Name)
		}
		forwardOffs := map[int]int{}
		for i, e := range exports {
			if e.Forward != "" {
				forwardOffs[i] = stringsOff + len(strs.b)
				strs.str(e.Forward)
			}
		}

		w.u32(0)
		w.u32(fx.Timestamp)
		w.u16(0)
		w.u16(0)
		w.u32(rva(dllNameOff))
		w.u32(uint32(base))
		w.u32(uint32(nFuncs))
		w.u32(uint32(len(named)))
		w.u32(rva(funcsOff))
		w.u32(rva(namesOff))
		w.u32(rva(ordsOff))

		funcs := make([]uint32, nFuncs)
		for i, e := range exports {
			if off, ok := forwardOffs[i]; ok {
				funcs[e.Ordinal-base] = rva(off)
			} else {
				funcs[e.Ordinal-base] = fixtureTextRVA + uint32(i*fixtureStubSize)
			}
		}
		for _, f := range funcs {
			w.u32(f)
		}
		for i := range named {
			w.u32(rva(nameOffs[i]))
		}
		for _, idx := range named {
			w.u16(exports[idx].Ordinal - base)
		}
		w.align(4)
		w.b = append(w.b, strs.b...)
		exportDir = [2]uint32{rva(0), uint32(len(w.b))}
		w.align(4)
	}

	if len(fx.Imports) > 0 {
		dlls := make([]string, 0, len(fx.Imports))
		for dll := range fx.Imports {
			dlls = append(dlls, dll)
		}
		sort.Strings(dlls)

		descOff := len(w.b)
		descSize := 20 * (len(dlls) + 1)
		cursor := descOff + descSize

		type layout struct{ ilt, iat, name int }
		lays := make([]layout, len(dlls))
		for i, dll := range dlls {
			n := len(fx.Imports[dll]) + 1
			lays[i].ilt = cursor
			cursor += 4 * n
			lays[i].iat = cursor
			cursor += 4 * n
		}
		hintOffs := make([][]int, len(dlls))
		tail := &leBuf{}
		for i, dll := range dlls {
			for _, fn := range fx.Imports[dll] {
				hintOffs[i] = append(hintOffs[i], cursor+len(tail.b))
				tail.u16(0)
				tail.str(fn)
				tail.align(2)
			}
		}
		for i, dll := range dlls {
			lays[i].name = cursor + len(tail.b)
			tail.str(dll)
		}

		for i := range dlls {
			w.u32(rva(lays[i].ilt))
			w.u32(0)
			w.u32(0)
			w.u32(rva(lays[i].name))
			w.u32(rva(lays[i].iat))
		}
		w.pad(20)
		for i := range dlls {
			for pass := 0; pass < 2; pass++ { // ILT then IAT
				for _, off := range hintOffs[i] {
					w.u32(rva(off))
				}
				w.u32(0)
			}
		}
		w.b = append(w.b, tail.b...)
		importDir = [2]uint32{rva(descOff), uint32(descSize)}
	}

	if len(w.b) == 0 {
		w.pad(4)
	}
	return w.b, exportDir, importDir
}

func buildFixtureSymbols(names []string) ([]byte, []byte) {
	sym := &leBuf{}
	str := &leBuf{}
	str.u32(0)
	for _, n := range names {
		if len(n) <= 8 {
			var b [8]byte
			copy(b[:], n)
			sym.b = append(sym.b, b[:]...)
		} else {
			sym.u32(0)
			sym.u32(uint32(len(str.b)))
			str.str(n)
		}
		sym.u32(0)                  // value
		sym.u16(1)                  // section
		sym.u16(0x20)               // function
		sym.b = append(sym.b, 2, 0) // external, no aux
	}
	binary.LittleEndian.PutUint32(str.b, uint32(len(str.b)))
	return sym.b, str.b
}
