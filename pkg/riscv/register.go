// Package riscv holds the RV64 register file and the instruction encoders
// used by the code generator.
package riscv

import (
	"errors"
	"fmt"
	"strings"
)

// Register is the numeric encoding of a register. General-purpose registers
// occupy 0..31; control/status registers use their 12-bit CSR address.
type Register uint16

const (
	Zero Register = iota
	Ra
	Sp
	Gp
	Tp
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

const (
	Mstatus Register = 0x300
	Mtvec   Register = 0x305
	Mepc    Register = 0x341
	Mcause  Register = 0x342
)

var ErrInvalidRegister = errors.New("invalid register")

// InvalidRegisterError reports a register name that is not in the register file.
type InvalidRegisterError struct{ Name string }

func (e *InvalidRegisterError) Error() string {
	return fmt.Sprintf("invalid register '%s'", e.Name)
}

func (e *InvalidRegisterError) Is(target error) bool { return target == ErrInvalidRegister }

// Ordered by encoding.
var abiNames = [...]string{
	"zero", "ra", "sp", "gp", "tp",
	"t0", "t1", "t2",
	"s0", "s1",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

var csrNames = map[Register]string{
	Mstatus: "mstatus",
	Mtvec:   "mtvec",
	Mepc:    "mepc",
	Mcause:  "mcause",
}

var byName = make(map[string]Register, len(abiNames)+len(csrNames))

func init() {
	for i, name := range abiNames {
		byName[name] = Register(i)
	}
	for reg, name := range csrNames {
		byName[name] = reg
	}
}

// Lookup resolves a register name, ignoring case.
func Lookup(name string) (Register, error) {
	if reg, ok := byName[strings.ToLower(name)]; ok {
		return reg, nil
	}
	return 0, &InvalidRegisterError{Name: name}
}

// Registers returns every register in the file, general-purpose first.
func Registers() []Register {
	regs := make([]Register, 0, len(abiNames)+len(csrNames))
	for i := range abiNames {
		regs = append(regs, Register(i))
	}
	return append(regs, Mstatus, Mtvec, Mepc, Mcause)
}

// IsGeneral reports whether r fits a 5-bit register field.
func (r Register) IsGeneral() bool { return int(r) < len(abiNames) }

func (r Register) String() string {
	if r.IsGeneral() {
		return abiNames[r]
	}
	if name, ok := csrNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reg(%#x)", uint16(r))
}
