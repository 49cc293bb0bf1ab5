package emit

import (
	"bytes"
	"fmt"

	"github.com/xplshn/tirc/pkg/codegen"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/riscv"
)

// Binary writes the bare text section.
type Binary struct{}

func (Binary) Describe() string { return "Raw machine code, functions back to back." }

func (Binary) Generate(syms []codegen.Symbol, cfg *config.Config) (*bytes.Buffer, error) {
	return bytes.NewBuffer(text(syms)), nil
}

// Hex writes a listing: one label line per function, then offset, word and
// disassembly for each instruction.
//
//	main:            ; global, 12 bytes
//	  00000000  01e00513  addi a0, zero, 30
type Hex struct{}

func (Hex) Describe() string { return "Listing with offset, word and disassembly per instruction." }

func (Hex) Generate(syms []codegen.Symbol, cfg *config.Config) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	offsets := Offsets(syms)
	for i, s := range syms {
		if len(s.Bytes)%4 != 0 {
			return nil, fmt.Errorf("function '%s' is %d bytes, not a whole number of words", s.Name, len(s.Bytes))
		}
		fmt.Fprintf(&buf, "%s:\t; %s, %d bytes\n", s.Name, s.Visibility, len(s.Bytes))
		for j, in := range riscv.DecodeBytes(s.Bytes) {
			fmt.Fprintf(&buf, "  %08x  %s  %s\n", offsets[i]+uint64(j*4), in.Word, in)
		}
	}
	return &buf, nil
}
