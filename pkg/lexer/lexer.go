package lexer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	plexer "github.com/alecthomas/participle/lexer"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/token"
	"github.com/xplshn/tirc/pkg/types"
	"github.com/xplshn/tirc/pkg/util"
)

// RE2's \s leaves out the vertical tab.
const (
	sp      = `[\s\v]`
	ident   = `[A-Za-z_]\w*`
	reg     = `%\w+`
	literal = `[-+]?\d+`
	operand = `(?:` + reg + `|` + literal + `)`
)

// Unnamed groups are skipped by the participle lexer. Invalid must stay
// last so that every other alternative gets the first chance to match.
const directiveRegex = `(?P<Fn>@fn` + sp + `+` + ident + `)|` +
	`(?P<Go>@go` + sp + `+` + ident + `)|` +
	`(?P<Load>@load` + sp + `+` + reg + sp + `*,` + sp + `*` + literal + `)|` +
	`(?P<Radd>@radd` + sp + `+` + reg + sp + `*,` + sp + `*` + reg + `)|` +
	`(?P<Rsub>@rsub` + sp + `+` + reg + sp + `*,` + sp + `*` + reg + `)|` +
	`(?P<Sum>@sum` + sp + `+\w+` + sp + `*,` + sp + `*` + reg + `(?:` + sp + `*,` + sp + `*` + operand + `)*(?:` + sp + `*,)?)|` +
	`(?P<Syscall>@syscall\b)|` +
	`(?P<Ret>@ret\b)|` +
	`(?P<EndFn>@endfn\b)|` +
	`(?P<Nop>@nop\b)|` +
	`(?P<Global>\$global\b)|` +
	`(?P<Invalid>[^\s\v]+)`

var (
	withComments    = plexer.Must(plexer.Regexp(`(` + sp + `+)|(//[^\n]*)|` + directiveRegex))
	withoutComments = plexer.Must(plexer.Regexp(`(` + sp + `+)|` + directiveRegex))
)

var symbolTypes = map[string]token.Type{
	"Fn": token.Fn, "Go": token.Go, "Load": token.Load, "Radd": token.Radd,
	"Rsub": token.Rsub, "Sum": token.Sum, "Syscall": token.Syscall, "Ret": token.Ret,
	"EndFn": token.EndFn, "Nop": token.Nop, "Global": token.Global, "Invalid": token.Invalid,
}

var (
	nameRe = regexp.MustCompile(`^@(?:fn|go)` + sp + `+(` + ident + `)$`)
	loadRe = regexp.MustCompile(`^@load` + sp + `+%(\w+)` + sp + `*,` + sp + `*(` + literal + `)$`)
	pairRe = regexp.MustCompile(`^@r(?:add|sub)` + sp + `+%(\w+)` + sp + `*,` + sp + `*%(\w+)$`)
	sumRe  = regexp.MustCompile(`^@sum` + sp + `+(\w+)` + sp + `*,` + sp + `*%(\w+)((?:` + sp + `*,` + sp + `*` + operand + `)*)(?:` + sp + `*,)?$`)
)

var ErrSyntax = errors.New("syntax error")

// SyntaxError is returned once the whole input has been scanned and at
// least one lexeme could not be turned into a token.
type SyntaxError struct {
	Diagnostics []util.Diagnostic
}

func (e *SyntaxError) Error() string {
	if len(e.Diagnostics) == 1 {
		return fmt.Sprintf("%v: %s", ErrSyntax, e.Diagnostics[0])
	}
	return fmt.Sprintf("%v: %d invalid lexemes", ErrSyntax, len(e.Diagnostics))
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

type Lexer struct {
	source    string
	fileIndex int
	cfg       *config.Config
	rep       *util.Reporter
	symbols   map[rune]token.Type
	def       plexer.Definition
}

func NewLexer(source string, fileIndex int, cfg *config.Config, rep *util.Reporter) *Lexer {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if rep == nil {
		rep = util.NewReporter(nil, cfg)
	}
	def := withoutComments
	if cfg.IsFeatureEnabled(config.FeatComments) {
		def = withComments
	}
	symbols := make(map[rune]token.Type)
	for name, r := range def.Symbols() {
		if typ, ok := symbolTypes[name]; ok {
			symbols[r] = typ
		}
	}
	return &Lexer{source: source, fileIndex: fileIndex, cfg: cfg, rep: rep, symbols: symbols, def: def}
}

// Lex is a shorthand for NewLexer(...).Tokenize().
func Lex(source string, fileIndex int, cfg *config.Config, rep *util.Reporter) ([]token.Token, error) {
	return NewLexer(source, fileIndex, cfg, rep).Tokenize()
}

// Tokenize scans the entire source. Every bad lexeme is reported; the
// returned error, if any, is a *SyntaxError covering all of them. The
// token slice never includes the trailing EOF.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	lex, err := l.def.Lex(strings.NewReader(l.source))
	if err != nil {
		return nil, err
	}

	var toks []token.Token
	var bad []util.Diagnostic
	for {
		ptok, err := lex.Next()
		if err != nil {
			// The Invalid group matches any non-space run, so this only
			// happens on malformed UTF-8 and similar.
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		if ptok.EOF() {
			break
		}
		tok := l.makeToken(ptok)
		if msg := l.capture(&tok); msg != "" {
			l.rep.Error(tok, "%s", msg)
			bad = append(bad, util.Diagnostic{Severity: util.SevError, Tok: tok, Message: msg})
			continue
		}
		toks = append(toks, tok)
	}

	if len(bad) > 0 {
		return nil, &SyntaxError{Diagnostics: bad}
	}
	return toks, nil
}

func (l *Lexer) makeToken(p plexer.Token) token.Token {
	typ, ok := l.symbols[p.Type]
	if !ok {
		typ = token.Invalid
	}
	firstLine := p.Value
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	return token.Token{
		Type:      typ,
		Value:     p.Value,
		FileIndex: l.fileIndex,
		Line:      p.Pos.Line,
		Column:    p.Pos.Column,
		Len:       utf8.RuneCountInString(strings.TrimRight(firstLine, " \t\r")),
		Offset:    p.Pos.Offset,
	}
}

// capture fills the payload fields of tok from its text. A non-empty result
// is the diagnostic for a lexeme that matched a directive's shape but
// carries an unusable payload.
func (l *Lexer) capture(tok *token.Token) string {
	switch tok.Type {
	case token.Invalid:
		return fmt.Sprintf("unrecognized lexeme '%s'", tok.Value)

	case token.Fn, token.Go:
		m := nameRe.FindStringSubmatch(tok.Value)
		if m == nil {
			return fmt.Sprintf("malformed %s directive", tok.Type)
		}
		tok.Name = m[1]

	case token.Load:
		m := loadRe.FindStringSubmatch(tok.Value)
		if m == nil {
			return "malformed @load directive"
		}
		v, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return fmt.Sprintf("@load literal '%s' does not fit in 64 bits", m[2])
		}
		tok.Dist, tok.Literal = m[1], v

	case token.Radd, token.Rsub:
		m := pairRe.FindStringSubmatch(tok.Value)
		if m == nil {
			return fmt.Sprintf("malformed %s directive", tok.Type)
		}
		tok.Dist, tok.Src = m[1], m[2]

	case token.Sum:
		return l.captureSum(tok)
	}
	return ""
}

func (l *Lexer) captureSum(tok *token.Token) string {
	m := sumRe.FindStringSubmatch(tok.Value)
	if m == nil {
		return "malformed @sum directive"
	}
	kind, ok := types.ParseKind(m[1])
	if !ok {
		return fmt.Sprintf("unknown type '%s' in @sum", m[1])
	}
	tok.Kind, tok.Dist = kind, m[2]

	for _, field := range strings.Split(m[3], ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.HasPrefix(field, "%") {
			tok.Operands = append(tok.Operands, types.Reg(field[1:]))
			continue
		}
		op, err := types.ParseLiteral(kind, field)
		if err != nil {
			return fmt.Sprintf("literal '%s' is not a valid %s: %v", field, kind, err)
		}
		tok.Operands = append(tok.Operands, op)
	}
	return ""
}
