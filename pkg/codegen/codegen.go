package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/tirc/pkg/ast"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/riscv"
	"github.com/xplshn/tirc/pkg/token"
	"github.com/xplshn/tirc/pkg/util"
)

var ErrFnNotFound = errors.New("function not found")

// Symbol is the per-function record handed to an object emitter.
type Symbol struct {
	Name       string
	Visibility ast.Visibility
	Addr       uint64
	Bytes      []byte
}

// Words decodes Bytes back into instruction words.
func (s Symbol) Words() []riscv.Word {
	ins := riscv.DecodeBytes(s.Bytes)
	out := make([]riscv.Word, len(ins))
	for i, in := range ins {
		out[i] = in.Word
	}
	return out
}

// Context walks parsed functions and encodes their bodies. The address
// table is only read.
type Context struct {
	addrs ast.AddressTable
	cfg   *config.Config
	rep   *util.Reporter
}

func NewContext(addrs ast.AddressTable, cfg *config.Config, rep *util.Reporter) *Context {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if rep == nil {
		rep = util.NewReporter(nil, cfg)
	}
	return &Context{addrs: addrs, cfg: cfg, rep: rep}
}

// Generate encodes every function in order. The first failure aborts the
// whole unit and no symbols are returned.
func (ctx *Context) Generate(funcs []*ast.Node) ([]Symbol, error) {
	syms := make([]Symbol, 0, len(funcs))
	for _, fn := range funcs {
		sym, err := ctx.GenerateFunction(fn)
		if err != nil {
			return nil, err
		}
		syms = append(syms, sym)
	}
	return syms, nil
}

// GenerateFunction encodes the body of fn. The Function wrapper itself
// emits nothing.
func (ctx *Context) GenerateFunction(fn *ast.Node) (Symbol, error) {
	if fn.Type != ast.Function {
		return Symbol{}, token.Wrap(fn.Tok, fmt.Errorf("expected a function, got %s", fn.Type))
	}
	d := fn.Data.(ast.FunctionNode)
	var out []byte
	for _, node := range d.Body {
		words, err := ctx.codegenNode(node)
		if err != nil {
			return Symbol{}, fmt.Errorf("in function '%s': %w", d.Name, err)
		}
		for _, w := range words {
			out = append(out, w.Bytes()...)
		}
	}
	return Symbol{Name: d.Name, Visibility: d.Visibility, Addr: d.Entry, Bytes: out}, nil
}

func (ctx *Context) codegenNode(node *ast.Node) ([]riscv.Word, error) {
	words, err := ctx.encodeNode(node)
	if err != nil {
		var terr *token.Error
		if errors.As(err, &terr) {
			return nil, err
		}
		return nil, token.Wrap(node.Tok, err)
	}
	return words, nil
}

func (ctx *Context) encodeNode(node *ast.Node) ([]riscv.Word, error) {
	switch node.Type {
	case ast.Load:
		d := node.Data.(ast.LoadNode)
		dist, err := riscv.Lookup(d.Dist)
		if err != nil {
			return nil, err
		}
		imm, err := ctx.immediate(node, d.Value)
		if err != nil {
			return nil, err
		}
		return one(riscv.Addi(dist, riscv.Zero, imm))

	case ast.Syscall:
		return []riscv.Word{riscv.Ecall()}, nil

	case ast.Radd, ast.Rsub:
		d := node.Data.(ast.RegPairNode)
		target, src, err := lookupPair(d.Target, d.Src)
		if err != nil {
			return nil, err
		}
		if node.Type == ast.Radd {
			return one(riscv.Add(target, target, src))
		}
		return one(riscv.Sub(target, target, src))

	case ast.Sum:
		return ctx.codegenSum(node)

	case ast.Go:
		d := node.Data.(ast.GoNode)
		target, ok := ctx.addrs[d.Label]
		if !ok {
			return nil, fmt.Errorf("%w: '%s'", ErrFnNotFound, d.Label)
		}
		return one(riscv.EncodeJump(target, d.Origin, riscv.Ra))

	case ast.Ret:
		return []riscv.Word{riscv.Ret()}, nil

	case ast.Nop:
		return []riscv.Word{riscv.Nop()}, nil
	}
	return nil, fmt.Errorf("cannot generate code for %s", node.Type)
}
