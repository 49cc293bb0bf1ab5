// Package types implements the fixed-width integer operands of @sum and
// their overflow-checked addition.
package types

import (
	"errors"
	"fmt"
	"math/big"
)

// Kind tags an Operand with its width and signedness, or marks it as a
// register reference.
type Kind uint8

const (
	I8 Kind = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	I128
	U128
	Value
)

// ZeroRegister is the register name whose operands fold to nothing.
const ZeroRegister = "zero"

var (
	ErrMismatchedTypes = errors.New("the sum could not be made because the types do not match")
	ErrOverflow        = errors.New("there was an overflow in the sum")
	ErrCannotCast      = errors.New("cannot cast")
)

type kindInfo struct {
	name     string
	bits     uint
	signed   bool
	min, max *big.Int
}

var kinds = [...]kindInfo{
	I8:   {name: "i8", bits: 8, signed: true},
	U8:   {name: "u8", bits: 8},
	I16:  {name: "i16", bits: 16, signed: true},
	U16:  {name: "u16", bits: 16},
	I32:  {name: "i32", bits: 32, signed: true},
	U32:  {name: "u32", bits: 32},
	I64:  {name: "i64", bits: 64, signed: true},
	U64:  {name: "u64", bits: 64},
	I128: {name: "i128", bits: 128, signed: true},
	U128: {name: "u128", bits: 128},
}

var kindByName = make(map[string]Kind, len(kinds))

func init() {
	one := big.NewInt(1)
	for i := range kinds {
		k := &kinds[i]
		if k.signed {
			half := new(big.Int).Lsh(one, k.bits-1)
			k.min = new(big.Int).Neg(half)
			k.max = new(big.Int).Sub(half, one)
		} else {
			k.min = new(big.Int)
			k.max = new(big.Int).Sub(new(big.Int).Lsh(one, k.bits), one)
		}
		kindByName[k.name] = Kind(i)
	}
}

// ParseKind maps a type tag such as "i32" to its Kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// Kinds returns every integer kind.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	for i := range kinds {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) IsInteger() bool { return int(k) < len(kinds) }

func (k Kind) Bits() uint {
	if !k.IsInteger() {
		return 0
	}
	return kinds[k].bits
}

func (k Kind) Signed() bool { return k.IsInteger() && kinds[k].signed }

// Bounds returns copies of the smallest and largest value of k.
func (k Kind) Bounds() (lo, hi *big.Int) {
	if !k.IsInteger() {
		return nil, nil
	}
	return new(big.Int).Set(kinds[k].min), new(big.Int).Set(kinds[k].max)
}

func (k Kind) contains(v *big.Int) bool {
	info := kinds[k]
	return v.Cmp(info.min) >= 0 && v.Cmp(info.max) <= 0
}

func (k Kind) String() string {
	if k.IsInteger() {
		return kinds[k].name
	}
	if k == Value {
		return "value"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}
