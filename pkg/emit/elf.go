package emit

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/xplshn/tirc/pkg/ast"
	"github.com/xplshn/tirc/pkg/codegen"
	"github.com/xplshn/tirc/pkg/config"
)

// Section indexes of the emitted object.
const (
	secNull = iota
	secText
	secSymtab
	secStrtab
	secShstrtab
	secCount
)

const (
	ehdrSize = 64
	shdrSize = 64
	symSize  = 24
)

// ELF writes a relocatable ELF64 RISC-V object with every function in one
// .text section. Locals precede globals in .symtab as the format requires.
type ELF struct{}

func (ELF) Describe() string { return "Relocatable ELF64 RISC-V object." }

type strtab struct{ buf []byte }

func newStrtab() *strtab { return &strtab{buf: []byte{0}} }

func (s *strtab) add(name string) uint32 {
	off := uint32(len(s.buf))
	s.buf = append(s.buf, name...)
	s.buf = append(s.buf, 0)
	return off
}

func align(n, to uint64) uint64 { return (n + to - 1) &^ (to - 1) }

func (ELF) Generate(syms []codegen.Symbol, cfg *config.Config) (*bytes.Buffer, error) {
	code := text(syms)
	offsets := Offsets(syms)

	strs := newStrtab()
	table := []elf.Sym64{
		{},
		{Info: elf.ST_INFO(elf.STB_LOCAL, elf.STT_SECTION), Shndx: secText},
	}
	addSyms := func(vis ast.Visibility, bind elf.SymBind) {
		for i, s := range syms {
			if s.Visibility != vis {
				continue
			}
			table = append(table, elf.Sym64{
				Name:  strs.add(s.Name),
				Info:  elf.ST_INFO(bind, elf.STT_FUNC),
				Shndx: secText,
				Value: offsets[i],
				Size:  uint64(len(s.Bytes)),
			})
		}
	}
	addSyms(ast.Private, elf.STB_LOCAL)
	firstGlobal := len(table)
	addSyms(ast.Global, elf.STB_GLOBAL)

	shstrs := newStrtab()
	names := [secCount]uint32{
		secText:     shstrs.add(".text"),
		secSymtab:   shstrs.add(".symtab"),
		secStrtab:   shstrs.add(".strtab"),
		secShstrtab: shstrs.add(".shstrtab"),
	}

	textOff := uint64(ehdrSize)
	symOff := align(textOff+uint64(len(code)), 8)
	symLen := uint64(len(table) * symSize)
	strOff := symOff + symLen
	shstrOff := strOff + uint64(len(strs.buf))
	shOff := align(shstrOff+uint64(len(shstrs.buf)), 8)

	hdr := elf.Header64{
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shOff,
		Ehsize:    ehdrSize,
		Shentsize: shdrSize,
		Shnum:     secCount,
		Shstrndx:  secShstrtab,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr.Ident[elf.EI_OSABI] = byte(elf.ELFOSABI_NONE)

	sections := [secCount]elf.Section64{
		secText: {
			Name: names[secText], Type: uint32(elf.SHT_PROGBITS),
			Flags: uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Off:   textOff, Size: uint64(len(code)), Addralign: 4,
		},
		secSymtab: {
			Name: names[secSymtab], Type: uint32(elf.SHT_SYMTAB),
			Off: symOff, Size: symLen, Link: secStrtab, Info: uint32(firstGlobal),
			Addralign: 8, Entsize: symSize,
		},
		secStrtab: {
			Name: names[secStrtab], Type: uint32(elf.SHT_STRTAB),
			Off: strOff, Size: uint64(len(strs.buf)), Addralign: 1,
		},
		secShstrtab: {
			Name: names[secShstrtab], Type: uint32(elf.SHT_STRTAB),
			Off: shstrOff, Size: uint64(len(shstrs.buf)), Addralign: 1,
		},
	}

	var buf bytes.Buffer
	w := func(data interface{}) error { return binary.Write(&buf, binary.LittleEndian, data) }
	pad := func(to uint64) {
		for uint64(buf.Len()) < to {
			buf.WriteByte(0)
		}
	}

	if err := w(&hdr); err != nil {
		return nil, fmt.Errorf("writing ELF header: %w", err)
	}
	buf.Write(code)
	pad(symOff)
	if err := w(table); err != nil {
		return nil, fmt.Errorf("writing symbol table: %w", err)
	}
	buf.Write(strs.buf)
	buf.Write(shstrs.buf)
	pad(shOff)
	if err := w(sections[:]); err != nil {
		return nil, fmt.Errorf("writing section headers: %w", err)
	}
	return &buf, nil
}
