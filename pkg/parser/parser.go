package parser

import (
	"errors"
	"fmt"

	"github.com/xplshn/tirc/pkg/ast"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/token"
	"github.com/xplshn/tirc/pkg/types"
	"github.com/xplshn/tirc/pkg/util"
)

var (
	ErrNestedFunction    = errors.New("cannot have nested functions")
	ErrOutsideOfFunction = errors.New("instruction outside of a function")
	ErrFnNotClosed       = errors.New("function not closed")
	ErrEndFnWithoutFn    = errors.New("@endfn without a matching @fn")
	ErrTooFewOperands    = errors.New("@sum needs at least two operands")
	ErrDuplicateFunction = errors.New("function already defined")
)

// WordSize is the size of every encoded instruction.
const WordSize = 4

// Parser folds a token stream into functions while assigning addresses.
type Parser struct {
	tokens []token.Token
	cfg    *config.Config
	rep    *util.Reporter
}

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token, cfg *config.Config, rep *util.Reporter) *Parser {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if rep == nil {
		rep = util.NewReporter(nil, cfg)
	}
	return &Parser{tokens: tokens, cfg: cfg, rep: rep}
}

// parseState is everything that lives only for one Parse call, so a Parser
// can be run more than once.
type parseState struct {
	pos           int
	pc            uint64
	open          *ast.Node
	pendingGlobal *token.Token
	terminated    bool
	warnedDead    bool
}

// Parse runs the function state machine over the whole token stream. The
// returned table holds the entry address of every closed function.
func (p *Parser) Parse() ([]*ast.Node, ast.AddressTable, error) {
	var funcs []*ast.Node
	table := make(ast.AddressTable)
	st := parseState{}

	for ; st.pos < len(p.tokens); st.pos++ {
		tok := p.tokens[st.pos]
		switch {
		case tok.Type == token.Fn:
			if st.open != nil {
				outer := st.open.Data.(ast.FunctionNode).Name
				return nil, nil, token.Wrap(tok, fmt.Errorf("%w: '%s' opened inside '%s'", ErrNestedFunction, tok.Name, outer))
			}
			if _, exists := table[tok.Name]; exists {
				return nil, nil, token.Wrap(tok, fmt.Errorf("%w: '%s'", ErrDuplicateFunction, tok.Name))
			}
			st.open = ast.NewFunction(tok, tok.Name, st.pc)
			st.terminated, st.warnedDead = false, false

		case tok.Type == token.Global:
			if st.pendingGlobal != nil {
				p.rep.Warn(config.WarnRedundantGlobal, tok, "$global already given at line %d", st.pendingGlobal.Line)
			}
			t := tok
			st.pendingGlobal = &t

		case tok.Type == token.EndFn:
			if st.open == nil {
				return nil, nil, token.Wrap(tok, ErrEndFnWithoutFn)
			}
			fn := st.open
			d := fn.Data.(ast.FunctionNode)
			if len(d.Body) == 0 {
				p.rep.Warn(config.WarnEmptyFn, fn.Tok, "function '%s' has no instructions", d.Name)
			}
			if st.pendingGlobal != nil {
				ast.SetVisibility(fn, ast.Global)
				st.pendingGlobal = nil
			}
			table[d.Name] = d.Entry
			funcs = append(funcs, fn)
			st.open = nil

		case tok.Type.IsBody():
			if st.open == nil {
				return nil, nil, token.Wrap(tok, fmt.Errorf("%w: %s", ErrOutsideOfFunction, tok.Type))
			}
			node, err := p.parseInstruction(tok, st.pc)
			if err != nil {
				return nil, nil, err
			}
			if st.terminated && !st.warnedDead {
				p.rep.Warn(config.WarnUnreachable, tok, "unreachable instruction")
				st.warnedDead = true
			}
			if ast.IsTerminator(node) {
				st.terminated = true
			}
			ast.Append(st.open, node)
			st.pc += p.advance(node)

		default:
			return nil, nil, token.Wrap(tok, fmt.Errorf("unexpected %s", tok.Type))
		}
	}

	if st.open != nil {
		name := st.open.Data.(ast.FunctionNode).Name
		return nil, nil, token.Wrap(st.open.Tok, fmt.Errorf("%w: '%s'", ErrFnNotClosed, name))
	}
	if st.pendingGlobal != nil {
		p.rep.Warn(config.WarnDanglingGlobal, *st.pendingGlobal, "$global is not followed by a function")
	}
	return funcs, table, nil
}

func (p *Parser) parseInstruction(tok token.Token, pc uint64) (*ast.Node, error) {
	switch tok.Type {
	case token.Sum:
		if len(tok.Operands) < 2 {
			return nil, token.Wrap(tok, fmt.Errorf("%w, got %d", ErrTooFewOperands, len(tok.Operands)))
		}
		return ast.NewSum(tok, pc, tok.Kind, tok.Dist, tok.Operands), nil
	case token.Load:
		return ast.NewLoad(tok, pc, tok.Dist, tok.Literal), nil
	case token.Go:
		return ast.NewGo(tok, pc, tok.Name), nil
	case token.Radd:
		return ast.NewRadd(tok, pc, tok.Dist, tok.Src), nil
	case token.Rsub:
		return ast.NewRsub(tok, pc, tok.Dist, tok.Src), nil
	case token.Syscall:
		return ast.NewSyscall(tok, pc), nil
	case token.Ret:
		return ast.NewRet(tok, pc), nil
	case token.Nop:
		return ast.NewNop(tok, pc), nil
	}
	return nil, token.Wrap(tok, fmt.Errorf("unexpected %s", tok.Type))
}

// advance is the number of bytes the program counter moves past node. A Sum
// moves by one word plus one byte per deferred register, or one word per
// deferred register with -Fword-sum-advance.
func (p *Parser) advance(node *ast.Node) uint64 {
	if node.Type != ast.Sum {
		return WordSize
	}
	k := uint64(types.DeferredCount(node.Data.(ast.SumNode).Operands))
	if p.cfg.IsFeatureEnabled(config.FeatWordSumAdvance) {
		return WordSize + WordSize*k
	}
	return WordSize + k
}
