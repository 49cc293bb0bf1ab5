package types

import (
	"fmt"
	"math/big"
)

// Operand is either an integer of one of the fixed-width kinds or a named
// register reference. The integer is never mutated after construction.
type Operand struct {
	kind Kind
	n    *big.Int
	name string
}

// Zero is the additive identity of k.
func Zero(k Kind) Operand { return Operand{kind: k, n: new(big.Int)} }

// Reg builds a register reference operand. name excludes the % sigil.
func Reg(name string) Operand { return Operand{kind: Value, name: name} }

// FromBig builds an integer operand, failing with ErrCannotCast when v is not
// representable in k.
func FromBig(k Kind, v *big.Int) (Operand, error) {
	if !k.IsInteger() {
		return Operand{}, fmt.Errorf("%w %s to %s", ErrCannotCast, v, k)
	}
	if !k.contains(v) {
		return Operand{}, fmt.Errorf("%w %s to %s: out of range", ErrCannotCast, v, k)
	}
	return Operand{kind: k, n: new(big.Int).Set(v)}, nil
}

func FromInt64(k Kind, v int64) (Operand, error) { return FromBig(k, big.NewInt(v)) }

func FromUint64(k Kind, v uint64) (Operand, error) {
	return FromBig(k, new(big.Int).SetUint64(v))
}

// ParseLiteral parses a decimal literal at exactly the width of k.
func ParseLiteral(k Kind, s string) (Operand, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Operand{}, fmt.Errorf("%w '%s' to %s: not an integer", ErrCannotCast, s, k)
	}
	return FromBig(k, v)
}

func (o Operand) Kind() Kind { return o.kind }

func (o Operand) IsRegister() bool { return o.kind == Value }

// IsZeroRegister reports whether o refers to the hard-wired zero register.
func (o Operand) IsZeroRegister() bool { return o.kind == Value && o.name == ZeroRegister }

// Name is the register name of a register reference, or "".
func (o Operand) Name() string { return o.name }

// Big returns a copy of the integer value, or nil for register references.
func (o Operand) Big() *big.Int {
	if o.n == nil {
		return nil
	}
	return new(big.Int).Set(o.n)
}

// Int64 converts an integer operand for use as an instruction immediate.
func (o Operand) Int64() (int64, error) {
	if o.kind == Value || o.n == nil {
		return 0, fmt.Errorf("%w %s to i64", ErrCannotCast, o)
	}
	if !o.n.IsInt64() {
		return 0, fmt.Errorf("%w %s to i64: out of range", ErrCannotCast, o)
	}
	return o.n.Int64(), nil
}

// Add is the checked same-kind addition. Register references never add.
func (o Operand) Add(other Operand) (Operand, error) {
	if o.kind != other.kind || !o.kind.IsInteger() {
		return Operand{}, fmt.Errorf("%w: %s + %s", ErrMismatchedTypes, o.kind, other.kind)
	}
	sum := new(big.Int).Add(o.n, other.n)
	if !o.kind.contains(sum) {
		return Operand{}, fmt.Errorf("%w: %s + %s exceeds %s", ErrOverflow, o, other, o.kind)
	}
	return Operand{kind: o.kind, n: sum}, nil
}

// Equal compares kind and value or name.
func (o Operand) Equal(other Operand) bool {
	if o.kind != other.kind {
		return false
	}
	if o.kind == Value {
		return o.name == other.name
	}
	if o.n == nil || other.n == nil {
		return o.n == other.n
	}
	return o.n.Cmp(other.n) == 0
}

func (o Operand) String() string {
	if o.kind == Value {
		return "%" + o.name
	}
	if o.n == nil {
		return "<nil>:" + o.kind.String()
	}
	return o.n.String() + ":" + o.kind.String()
}
