package token

import (
	"fmt"

	"github.com/xplshn/tirc/pkg/types"
)

type Type int

const (
	EOF Type = iota
	Fn
	Go
	Load
	Radd
	Rsub
	Sum
	Syscall
	Ret
	Nop
	Global
	EndFn
	Invalid
)

// Directive spellings; parametrized directives list only their keyword.
var TypeStrings = map[Type]string{
	EOF:     "end of input",
	Fn:      "@fn",
	Go:      "@go",
	Load:    "@load",
	Radd:    "@radd",
	Rsub:    "@rsub",
	Sum:     "@sum",
	Syscall: "@syscall",
	Ret:     "@ret",
	Nop:     "@nop",
	Global:  "$global",
	EndFn:   "@endfn",
	Invalid: "invalid",
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsBody reports whether t may only appear between @fn and @endfn.
func (t Type) IsBody() bool {
	switch t {
	case Go, Load, Radd, Rsub, Sum, Syscall, Ret, Nop:
		return true
	}
	return false
}

// Token is one directive with its payload already parsed. Which payload
// fields are set depends on Type:
//
//	Fn, Go      Name
//	Load        Dist, Literal
//	Radd, Rsub  Dist (target), Src
//	Sum         Kind, Dist, Operands
type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
	Offset    int

	Name     string
	Dist     string
	Src      string
	Literal  int64
	Kind     types.Kind
	Operands []types.Operand
}

// Error attaches a token position to an error from a later stage.
type Error struct {
	Tok Token
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %v", e.Tok.Line, e.Tok.Column, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err annotated with tok, or nil when err is nil.
func Wrap(tok Token, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Tok: tok, Err: err}
}
