package riscv

import (
	"encoding/binary"
	"fmt"
)

// Format is the bit layout an instruction word was decoded with.
type Format int

const (
	FormatUnknown Format = iota
	FormatI
	FormatR
	FormatJ
)

// Instruction is a decoded instruction word. Only the fields meaningful for
// its Format are set.
type Instruction struct {
	Word   Word
	Format Format
	Opcode uint32
	Funct3 uint32
	Funct7 uint32
	Rd     Register
	Rs1    Register
	Rs2    Register
	Imm    int64
}

// Decode splits w into fields according to its opcode.
func Decode(w Word) Instruction {
	raw := uint32(w)
	in := Instruction{
		Word:   w,
		Opcode: raw & 0x7F,
		Rd:     Register((raw >> 7) & 0x1F),
	}
	switch in.Opcode {
	case OpImm, OpJalr, OpSystem:
		in.Format = FormatI
		in.Funct3 = (raw >> 12) & 0x7
		in.Rs1 = Register((raw >> 15) & 0x1F)
		in.Imm = int64(int32(raw) >> 20)
	case OpReg:
		in.Format = FormatR
		in.Funct3 = (raw >> 12) & 0x7
		in.Rs1 = Register((raw >> 15) & 0x1F)
		in.Rs2 = Register((raw >> 20) & 0x1F)
		in.Funct7 = raw >> 25
	case OpJal:
		in.Format = FormatJ
		// imm[20|10:1|11|19:12]
		imm := (raw>>31)<<20 |
			((raw>>12)&0xFF)<<12 |
			((raw>>20)&0x1)<<11 |
			((raw>>21)&0x3FF)<<1
		in.Imm = int64(int32(imm<<11) >> 11)
	}
	return in
}

// DecodeBytes decodes a little-endian instruction stream. Trailing bytes that
// do not form a whole word are ignored.
func DecodeBytes(b []byte) []Instruction {
	out := make([]Instruction, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, Decode(Word(binary.LittleEndian.Uint32(b[i:]))))
	}
	return out
}

func (in Instruction) String() string {
	switch {
	case in.Opcode == OpImm && in.Funct3 == 0:
		if in.Rd == Zero && in.Rs1 == Zero && in.Imm == 0 {
			return "nop"
		}
		return fmt.Sprintf("addi %s, %s, %d", in.Rd, in.Rs1, in.Imm)
	case in.Opcode == OpReg && in.Funct3 == 0 && in.Funct7 == Funct7Add:
		return fmt.Sprintf("add %s, %s, %s", in.Rd, in.Rs1, in.Rs2)
	case in.Opcode == OpReg && in.Funct3 == 0 && in.Funct7 == Funct7Sub:
		return fmt.Sprintf("sub %s, %s, %s", in.Rd, in.Rs1, in.Rs2)
	case in.Opcode == OpJal:
		return fmt.Sprintf("jal %s, %d", in.Rd, in.Imm)
	case in.Opcode == OpJalr && in.Funct3 == 0:
		return fmt.Sprintf("jalr %s, %d(%s)", in.Rd, in.Imm, in.Rs1)
	case in.Word == Ecall():
		return "ecall"
	}
	return fmt.Sprintf(".word 0x%s", in.Word)
}
