// Package image loads a PE or ELF x86-64 executable and exposes the
// bytes and mapped address of its code section, per spec.md §4.2 and
// §6.2. Error handling follows internal/elfx's convention: a small set
// of sentinel errors, wrapped with fmt.Errorf("image: ...: %w", ...)
// so callers can errors.Is against the sentinel while still getting
// context in the message.
package image

import (
	"bytes"
	"debug/elf"
	"debug/pe"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Format identifies which container an Image was parsed from.
type Format int

const (
	FormatUnknown Format = iota
	FormatPE
	FormatELF
)

func (f Format) String() string {
	switch f {
	case FormatPE:
		return "PE"
	case FormatELF:
		return "ELF"
	default:
		return "unknown"
	}
}

var (
	ErrUnsupportedFormat = errors.New("image: unrecognized file format")
	ErrNot64Bit          = errors.New("image: not a 64-bit image")
	ErrNotX86_64         = errors.New("image: not an x86-64 image")
	ErrMalformedHeader   = errors.New("image: malformed header")
)

// Image is a loaded executable: its format, the address its code
// section is mapped at, and that section's raw bytes.
type Image struct {
	Format      Format
	ImageBase   uint64
	TextAddress uint64
	Text        []byte
}

// Open reads path, detects its container format from the magic bytes,
// and extracts the code section. Both PE and ELF are searched for a
// section whose name starts with ".text", matching
// original_source/src/core/parser.cpp's get_text_section.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: read %s: %w", path, err)
	}

	switch {
	case len(data) >= 2 && data[0] == 'M' && data[1] == 'Z':
		return openPE(path, data)
	case len(data) >= 4 && string(data[:4]) == "\x7fELF":
		return openELF(path, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func openPE(path string, data []byte) (*Image, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedHeader, path, err)
	}
	defer f.Close()

	opt, ok := f.OptionalHeader.(*pe.OptionalHeader64)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNot64Bit, path)
	}
	if f.FileHeader.Machine != pe.IMAGE_FILE_MACHINE_AMD64 {
		return nil, fmt.Errorf("%w: %s", ErrNotX86_64, path)
	}

	// A missing .text is not an error at load time (spec.md §4.2): it
	// surfaces downstream as an empty set of recovered functions, which
	// Compare reports as an empty diff rather than failing.
	sec := findPESection(f)
	if sec == nil {
		return &Image{Format: FormatPE, ImageBase: uint64(opt.ImageBase)}, nil
	}
	text, err := sec.Data()
	if err != nil {
		return nil, fmt.Errorf("image: read .text of %s: %w", path, err)
	}

	return &Image{
		Format:      FormatPE,
		ImageBase:   uint64(opt.ImageBase),
		TextAddress: uint64(opt.ImageBase) + uint64(sec.VirtualAddress),
		Text:        text,
	}, nil
}

func findPESection(f *pe.File) *pe.Section {
	for _, sec := range f.Sections {
		if isTextSection(sec.Name) {
			return sec
		}
	}
	return nil
}

// isTextSection reports whether name names a code section, matching
// original_source/src/core/parser.cpp's get_text_section
// (`name.starts_with(".text")`, which also matches COMDAT-folded
// names like ".text$mn").
func isTextSection(name string) bool {
	return strings.HasPrefix(name, ".text")
}

func openELF(path string, data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedHeader, path, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("%w: %s", ErrNot64Bit, path)
	}
	if f.Machine != elf.EM_X86_64 {
		return nil, fmt.Errorf("%w: %s", ErrNotX86_64, path)
	}

	base := elfImageBase(f)

	// A missing .text is not an error at load time (spec.md §4.2): it
	// surfaces downstream as an empty set of recovered functions, which
	// Compare reports as an empty diff rather than failing.
	sec := findELFSection(f)
	if sec == nil {
		return &Image{Format: FormatELF, ImageBase: base}, nil
	}
	text, err := sec.Data()
	if err != nil {
		return nil, fmt.Errorf("image: read .text of %s: %w", path, err)
	}

	return &Image{
		Format:      FormatELF,
		ImageBase:   base,
		TextAddress: sec.Addr,
		Text:        text,
	}, nil
}

func findELFSection(f *elf.File) *elf.Section {
	for _, sec := range f.Sections {
		if isTextSection(sec.Name) {
			return sec
		}
	}
	return nil
}

// elfImageBase returns the lowest PT_LOAD segment's virtual address,
// the conventional base for a non-PIE ELF executable (PIE binaries are
// loaded at a runtime-chosen base the file itself does not record, so
// this is the best static approximation available).
func elfImageBase(f *elf.File) uint64 {
	var base uint64
	found := false
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if !found || p.Vaddr < base {
			base = p.Vaddr
			found = true
		}
	}
	return base
}
