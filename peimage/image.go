// Package peimage inspects built PE32 libraries: their export directory,
// imports, symbols and sections. It answers the questions a build cannot
// answer from its inputs alone, such as whether unwinding support was
// linked in or whether two builds expose the same contract.
package peimage

import (
	"bytes"
	"crypto/sha256"
	"debug/pe"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// Image is the inspected form of a PE file.
type Image struct {
	Path      string
	Machine   uint16
	IsDLL     bool
	Is32Bit   bool
	Timestamp uint32
	// DLLName is the name recorded in the export directory.
	DLLName  string
	Exports  []entities.ExportSymbol
	Imports  []entities.ImportSymbol
	Symbols  []string
	Sections []string
	SHA256   string
}

var _ ports.ExportSource = (*Image)(nil)

// ExportSymbols implements ports.ExportSource.
func (img *Image) ExportSymbols() []entities.ExportSymbol {
	return img.Exports
}

// Export returns the export with the given name.
func (img *Image) Export(name string) (entities.ExportSymbol, bool) {
	for _, e := range img.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return entities.ExportSymbol{}, false
}

// ImportedLibraries returns the distinct imported DLL names, lower-cased and
// sorted.
func (img *Image) ImportedLibraries() []string {
	seen := map[string]bool{}
	var out []string
	for _, imp := range img.Imports {
		lib := strings.ToLower(imp.Library)
		if !seen[lib] {
			seen[lib] = true
			out = append(out, lib)
		}
	}
	sort.Strings(out)
	return out
}

// Open reads and inspects the PE file at path.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ImageError{Path: path, Op: "open", Err: err}
	}
	img, err := Parse(data)
	if err != nil {
		if ie, ok := err.(*errors.ImageError); ok {
			ie.Path = path
		}
		return nil, err
	}
	img.Path = path
	return img, nil
}

// Parse inspects an in-memory PE file.
func Parse(data []byte) (*Image, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, &errors.ImageError{Op: "parse", Err: err}
	}
	defer f.Close()

	sum := sha256.Sum256(data)
	img := &Image{
		Machine:   f.Machine,
		IsDLL:     f.Characteristics&pe.IMAGE_FILE_DLL != 0,
		Timestamp: f.TimeDateStamp,
		SHA256:    hex.EncodeToString(sum[:]),
	}

	var dirs []pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		img.Is32Bit = true
		dirs = oh.DataDirectory[:min(oh.NumberOfRvaAndSizes, 16)]
	case *pe.OptionalHeader64:
		dirs = oh.DataDirectory[:min(oh.NumberOfRvaAndSizes, 16)]
	default:
		return nil, &errors.ImageError{Op: "parse", Err: fmt.Errorf("missing optional header")}
	}

	for _, s := range f.Sections {
		img.Sections = append(img.Sections, s.Name)
	}
	for _, s := range f.Symbols {
		img.Symbols = append(img.Symbols, s.Name)
	}

	imports, err := f.ImportedSymbols()
	if err != nil {
		return nil, &errors.ImageError{Op: "imports", Err: err}
	}
	for _, sym := range imports {
		name, lib, _ := strings.Cut(sym, ":")
		img.Imports = append(img.Imports, entities.ImportSymbol{Library: lib, Name: name})
	}

	if len(dirs) > pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
		dir := dirs[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
		if dir.VirtualAddress != 0 {
			if err := readExports(f, dir, img); err != nil {
				return nil, &errors.ImageError{Op: "exports", Err: err}
			}
		}
	}
	return img, nil
}

// exportDirectory is IMAGE_EXPORT_DIRECTORY.
type exportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

// rvaReader resolves RVAs against the section that contains them.
type rvaReader struct {
	f     *pe.File
	cache map[*pe.Section][]byte
}

func (r *rvaReader) slice(rva uint32, n int) ([]byte, error) {
	for _, s := range r.f.Sections {
		if rva < s.VirtualAddress || rva-s.VirtualAddress >= max(s.VirtualSize, s.Size) {
			continue
		}
		data, ok := r.cache[s]
		if !ok {
			var err error
			if data, err = s.Data(); err != nil {
				return nil, err
			}
			r.cache[s] = data
		}
		off := int(rva - s.VirtualAddress)
		if off >= len(data) {
			return nil, io.ErrUnexpectedEOF
		}
		if n < 0 {
			end := bytes.IndexByte(data[off:], 0)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string at rva 0x%x", rva)
			}
			return data[off : off+end], nil
		}
		if off+n > len(data) {
			return nil, io.ErrUnexpectedEOF
		}
		return data[off : off+n], nil
	}
	return nil, fmt.Errorf("rva 0x%x is outside every section", rva)
}

func (r *rvaReader) u32(rva uint32) (uint32, error) {
	b, err := r.slice(rva, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *rvaReader) u16(rva uint32) (uint16, error) {
	b, err := r.slice(rva, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *rvaReader) cstring(rva uint32) (string, error) {
	b, err := r.slice(rva, -1)
	return string(b), err
}

func readExports(f *pe.File, dir pe.DataDirectory, img *Image) error {
	r := &rvaReader{f: f, cache: map[*pe.Section][]byte{}}

	raw, err := r.slice(dir.VirtualAddress, 40)
	if err != nil {
		return err
	}
	var ed exportDirectory
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &ed); err != nil {
		return err
	}
	if ed.NumberOfFunctions > 0xffff || ed.NumberOfNames > ed.NumberOfFunctions {
		return fmt.Errorf("implausible export directory: %d functions, %d names", ed.NumberOfFunctions, ed.NumberOfNames)
	}

	if ed.Name != 0 {
		if img.DLLName, err = r.cstring(ed.Name); err != nil {
			return err
		}
	}

	names := make(map[uint32]string, ed.NumberOfNames)
	for i := uint32(0); i < ed.NumberOfNames; i++ {
		nameRVA, err := r.u32(ed.AddressOfNames + 4*i)
		if err != nil {
			return err
		}
		idx, err := r.u16(ed.AddressOfNameOrdinals + 2*i)
		if err != nil {
			return err
		}
		name, err := r.cstring(nameRVA)
		if err != nil {
			return err
		}
		names[uint32(idx)] = name
	}

	for i := uint32(0); i < ed.NumberOfFunctions; i++ {
		fnRVA, err := r.u32(ed.AddressOfFunctions + 4*i)
		if err != nil {
			return err
		}
		if fnRVA == 0 {
			continue
		}
		sym := entities.ExportSymbol{
			Name:    names[i],
			Ordinal: uint16(ed.Base + i),
			RVA:     fnRVA,
		}
		// An RVA inside the export directory is a forwarder string.
		if fnRVA >= dir.VirtualAddress && fnRVA < dir.VirtualAddress+dir.Size {
			if sym.Forwarder, err = r.cstring(fnRVA); err != nil {
				return err
			}
		}
		img.Exports = append(img.Exports, sym)
	}

	sort.Slice(img.Exports, func(a, b int) bool { return img.Exports[a].Ordinal < img.Exports[b].Ordinal })
	return nil
}
