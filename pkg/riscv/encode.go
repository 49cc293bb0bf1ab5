package riscv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Base opcodes
const (
	OpImm    uint32 = 0x13
	OpReg    uint32 = 0b0110011
	OpJal    uint32 = 0x6F
	OpJalr   uint32 = 0x67
	OpSystem uint32 = 0x73
)

const (
	Funct7Add uint32 = 0x00
	Funct7Sub uint32 = 0x20
)

// Jump displacements are signed 21-bit byte offsets with bit 0 implied zero.
const (
	JumpMin = -1048576
	JumpMax = 1048574
)

// I-type immediates are signed 12-bit.
const (
	ImmMin = -2048
	ImmMax = 2047
)

var (
	ErrNonAlignedAddress   = errors.New("jump displacement is not 2-byte aligned")
	ErrJumpOutOfRange      = errors.New("jump displacement out of range (no long-jump fallback)")
	ErrImmediateOutOfRange = errors.New("immediate does not fit in 12 bits")
	ErrNotGeneralPurpose   = errors.New("register cannot be used as an instruction operand")
)

// Word is one encoded 32-bit instruction.
type Word uint32

// Bytes returns the little-endian encoding of w.
func (w Word) Bytes() []byte { return binary.LittleEndian.AppendUint32(nil, uint32(w)) }

func (w Word) String() string { return fmt.Sprintf("%08x", uint32(w)) }

// Immediate is an I-type instruction with funct3 fixed at zero.
type Immediate struct {
	Opcode uint32
	Rd     Register
	Rs1    Register
	Imm    int64
}

func (i Immediate) Encode() (Word, error) {
	rd, err := field(i.Rd)
	if err != nil {
		return 0, err
	}
	rs1, err := field(i.Rs1)
	if err != nil {
		return 0, err
	}
	if !FitsImm(i.Imm) {
		return 0, fmt.Errorf("%w: %d", ErrImmediateOutOfRange, i.Imm)
	}
	imm := uint32(i.Imm) & 0xFFF
	return Word(imm<<20 | rs1<<15 | 0<<12 | rd<<7 | i.Opcode), nil
}

// RegisterOp is an R-type instruction.
type RegisterOp struct {
	Opcode uint32
	Funct3 uint32
	Funct7 uint32
	Rd     Register
	Rs1    Register
	Rs2    Register
}

func (r RegisterOp) Encode() (Word, error) {
	var fields [3]uint32
	for i, reg := range [...]Register{r.Rd, r.Rs1, r.Rs2} {
		f, err := field(reg)
		if err != nil {
			return 0, err
		}
		fields[i] = f
	}
	rd, rs1, rs2 := fields[0], fields[1], fields[2]
	return Word(r.Funct7<<25 | rs2<<20 | rs1<<15 | r.Funct3<<12 | rd<<7 | r.Opcode), nil
}

// EncodeJump builds a jal from origin to target, linking into rd.
func EncodeJump(target, origin uint64, rd Register) (Word, error) {
	link, err := field(rd)
	if err != nil {
		return 0, err
	}
	disp := int64(target) - int64(origin)
	if disp < JumpMin || disp > JumpMax {
		return 0, fmt.Errorf("%w: %d", ErrJumpOutOfRange, disp)
	}
	if disp%2 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrNonAlignedAddress, disp)
	}
	u := uint32(int32(disp >> 1))
	imm := (u&0x80000)<<12 | // bit 19 -> 31
		(u&0x3FF)<<21 | // bits 0-9 -> 21-30
		(u&0x400)<<10 | // bit 10 -> 20
		(u&0x7F800)<<1 // bits 11-18 -> 12-19
	return Word(imm | link<<7 | OpJal), nil
}

// FitsImm reports whether v fits a signed 12-bit immediate.
func FitsImm(v int64) bool { return v >= ImmMin && v <= ImmMax }

// TruncateImm keeps the low 12 bits of v, sign-extended.
func TruncateImm(v int64) int64 { return v << 52 >> 52 }

func field(r Register) (uint32, error) {
	if !r.IsGeneral() {
		return 0, fmt.Errorf("%w: %s", ErrNotGeneralPurpose, r)
	}
	return uint32(r), nil
}

func Addi(rd, rs1 Register, imm int64) (Word, error) {
	return Immediate{Opcode: OpImm, Rd: rd, Rs1: rs1, Imm: imm}.Encode()
}

func Add(rd, rs1, rs2 Register) (Word, error) {
	return RegisterOp{Opcode: OpReg, Funct7: Funct7Add, Rd: rd, Rs1: rs1, Rs2: rs2}.Encode()
}

func Sub(rd, rs1, rs2 Register) (Word, error) {
	return RegisterOp{Opcode: OpReg, Funct7: Funct7Sub, Rd: rd, Rs1: rs1, Rs2: rs2}.Encode()
}

func Jalr(rd, rs1 Register, imm int64) (Word, error) {
	return Immediate{Opcode: OpJalr, Rd: rd, Rs1: rs1, Imm: imm}.Encode()
}

// Ecall is the trap into the execution environment.
func Ecall() Word { return Word(OpSystem) }

// Nop is addi zero, zero, 0.
func Nop() Word { return Word(OpImm) }

// Ret is jalr zero, 0(ra).
func Ret() Word { return Word(uint32(Ra)<<15 | OpJalr) }
