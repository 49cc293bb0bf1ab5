package emit

import (
	"bytes"
	"debug/elf"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/tirc/pkg/ast"
	"github.com/xplshn/tirc/pkg/codegen"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/riscv"
)

func words(ws ...riscv.Word) []byte {
	var b []byte
	for _, w := range ws {
		b = append(b, w.Bytes()...)
	}
	return b
}

var testSyms = []codegen.Symbol{
	{Name: "_start", Visibility: ast.Global, Addr: 0, Bytes: words(0x00100513, 0x004000ef)},
	{Name: "helper", Visibility: ast.Private, Addr: 8, Bytes: words(0x00000073)},
	{Name: "main", Visibility: ast.Global, Addr: 12, Bytes: words(0x00000013, 0x00008067)},
}

func TestELF(t *testing.T) {
	buf, err := ELF{}.Generate(testSyms, config.NewConfig())
	be.Err(t, err, nil)

	f, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	be.Err(t, err, nil)
	be.Equal(t, f.Class, elf.ELFCLASS64)
	be.Equal(t, f.Data, elf.ELFDATA2LSB)
	be.Equal(t, f.Type, elf.ET_REL)
	be.Equal(t, f.Machine, elf.EM_RISCV)

	text := f.Section(".text")
	be.True(t, text != nil)
	be.Equal(t, text.Flags, elf.SHF_ALLOC|elf.SHF_EXECINSTR)
	data, err := text.Data()
	be.Err(t, err, nil)
	be.Equal(t, data, append(append(append([]byte{}, testSyms[0].Bytes...), testSyms[1].Bytes...), testSyms[2].Bytes...))

	syms, err := f.Symbols()
	be.Err(t, err, nil)
	// Section symbol, then locals, then globals.
	be.Equal(t, len(syms), 4)
	be.Equal(t, elf.ST_TYPE(syms[0].Info), elf.STT_SECTION)

	type sym struct {
		name  string
		bind  elf.SymBind
		value uint64
		size  uint64
	}
	var got []sym
	for _, s := range syms[1:] {
		be.Equal(t, elf.ST_TYPE(s.Info), elf.STT_FUNC)
		be.Equal(t, s.Section, elf.SectionIndex(1))
		got = append(got, sym{s.Name, elf.ST_BIND(s.Info), s.Value, s.Size})
	}
	be.Equal(t, got, []sym{
		{"helper", elf.STB_LOCAL, 8, 4},
		{"_start", elf.STB_GLOBAL, 0, 8},
		{"main", elf.STB_GLOBAL, 12, 8},
	})

	// sh_info is one past the last local: null, section, helper.
	be.Equal(t, f.Section(".symtab").Info, uint32(3))
}

func TestELFEmpty(t *testing.T) {
	buf, err := ELF{}.Generate(nil, nil)
	be.Err(t, err, nil)
	f, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	be.Err(t, err, nil)
	be.Equal(t, f.Section(".text").Size, uint64(0))
}

func TestBinary(t *testing.T) {
	buf, err := Binary{}.Generate(testSyms, nil)
	be.Err(t, err, nil)
	be.Equal(t, buf.Len(), 20)
	be.Equal(t, buf.Bytes()[:4], []byte{0x13, 0x05, 0x10, 0x00})
}

func TestHex(t *testing.T) {
	buf, err := Hex{}.Generate(testSyms[1:], nil)
	be.Err(t, err, nil)
	want := "helper:\t; private, 4 bytes\n" +
		"  00000000  00000073  ecall\n" +
		"main:\t; global, 8 bytes\n" +
		"  00000004  00000013  nop\n" +
		"  00000008  00008067  jalr zero, 0(ra)\n"
	be.Equal(t, buf.String(), want)

	_, err = Hex{}.Generate([]codegen.Symbol{{Name: "bad", Bytes: []byte{1, 2}}}, nil)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "not a whole number of words"))
}

func TestSelect(t *testing.T) {
	be.Equal(t, Formats(), []string{"bin", "elf", "hex"})
	b, err := Select("hex")
	be.Err(t, err, nil)
	be.Equal(t, b, Backend(Hex{}))

	for _, name := range Formats() {
		b, _ := Select(name)
		be.True(t, b.Describe() != "")
	}

	_, err = Select("coff")
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown output format 'coff'"))
}

func TestOffsets(t *testing.T) {
	be.Equal(t, Offsets(testSyms), []uint64{0, 8, 12})
}
