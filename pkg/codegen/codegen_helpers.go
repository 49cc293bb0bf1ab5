package codegen

import (
	"fmt"

	"github.com/xplshn/tirc/pkg/ast"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/riscv"
	"github.com/xplshn/tirc/pkg/types"
)

func one(w riscv.Word, err error) ([]riscv.Word, error) {
	if err != nil {
		return nil, err
	}
	return []riscv.Word{w}, nil
}

func lookupPair(a, b string) (riscv.Register, riscv.Register, error) {
	ra, err := riscv.Lookup(a)
	if err != nil {
		return 0, 0, err
	}
	rb, err := riscv.Lookup(b)
	if err != nil {
		return 0, 0, err
	}
	return ra, rb, nil
}

// immediate checks v against the 12-bit addi field. With -Fwrap-imm an
// oversized value is truncated and reported instead of rejected.
func (ctx *Context) immediate(node *ast.Node, v int64) (int64, error) {
	if riscv.FitsImm(v) {
		return v, nil
	}
	if !ctx.cfg.IsFeatureEnabled(config.FeatWrapImm) {
		return 0, fmt.Errorf("%w: %d", riscv.ErrImmediateOutOfRange, v)
	}
	t := riscv.TruncateImm(v)
	ctx.rep.Warn(config.WarnTruncatedImm, node.Tok, "immediate %d truncated to %d", v, t)
	return t, nil
}

// codegenSum folds the literals into one addi and adds each remaining
// register in operand order.
func (ctx *Context) codegenSum(node *ast.Node) ([]riscv.Word, error) {
	d := node.Data.(ast.SumNode)
	acc, deferred, err := types.Fold(d.Kind, d.Operands)
	if err != nil {
		return nil, err
	}
	dist, err := riscv.Lookup(d.Dist)
	if err != nil {
		return nil, err
	}
	v, err := acc.Int64()
	if err != nil {
		return nil, err
	}
	imm, err := ctx.immediate(node, v)
	if err != nil {
		return nil, err
	}

	w, err := riscv.Addi(dist, riscv.Zero, imm)
	if err != nil {
		return nil, err
	}
	words := []riscv.Word{w}
	for _, name := range deferred {
		src, err := riscv.Lookup(name)
		if err != nil {
			return nil, err
		}
		if src == dist {
			ctx.rep.Warn(config.WarnClobberedOperand, node.Tok, "%%%s is overwritten before it is added", name)
		}
		w, err := riscv.Add(dist, dist, src)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}
