package codegen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/tirc/pkg/ast"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/lexer"
	"github.com/xplshn/tirc/pkg/parser"
	"github.com/xplshn/tirc/pkg/riscv"
	"github.com/xplshn/tirc/pkg/token"
	"github.com/xplshn/tirc/pkg/types"
	"github.com/xplshn/tirc/pkg/util"
)

func generate(t *testing.T, src string, cfg *config.Config) ([]Symbol, *util.Reporter, error) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	rep := util.NewReporter(nil, cfg)
	toks, err := lexer.Lex(src, 0, cfg, rep)
	be.Err(t, err, nil)
	funcs, table, err := parser.NewParser(toks, cfg, rep).Parse()
	be.Err(t, err, nil)
	syms, err := NewContext(table, cfg, rep).Generate(funcs)
	return syms, rep, err
}

func TestSumFoldsLiteralsAndDefersRegisters(t *testing.T) {
	syms, _, err := generate(t, "@fn f\n@sum i32, %a0, 5, 7, %zero, %t0\n@endfn", nil)
	be.Err(t, err, nil)
	be.Equal(t, syms[0].Words(), []riscv.Word{0x00c00513, 0x00550533})

	ins := riscv.DecodeBytes(syms[0].Bytes)
	be.Equal(t, ins[0].String(), "addi a0, zero, 12")
	be.Equal(t, ins[1].String(), "add a0, a0, t0")
}

func TestProgram(t *testing.T) {
	src := `$global
@fn main
	@load %a0, 1
	@go exit
@endfn
@fn exit
	@load %a7, 93
	@syscall
	@radd %a0, %t0
	@rsub %a0, %t0
	@nop
	@ret
@endfn`
	syms, _, err := generate(t, src, nil)
	be.Err(t, err, nil)

	want := []Symbol{
		{Name: "main", Visibility: ast.Global, Addr: 0},
		{Name: "exit", Visibility: ast.Private, Addr: 8},
	}
	for i := range want {
		be.Equal(t, syms[i].Name, want[i].Name)
		be.Equal(t, syms[i].Visibility, want[i].Visibility)
		be.Equal(t, syms[i].Addr, want[i].Addr)
	}
	be.Equal(t, syms[0].Words(), []riscv.Word{0x00100513, 0x004000ef})
	be.Equal(t, syms[1].Words(), []riscv.Word{
		0x05d00893, 0x00000073, 0x00550533, 0x40550533, 0x00000013, 0x00008067,
	})
}

func TestBackwardJump(t *testing.T) {
	syms, _, err := generate(t, "@fn loop\n@nop\n@go loop\n@endfn", nil)
	be.Err(t, err, nil)
	be.Equal(t, syms[0].Words()[1], riscv.Word(0xffdff0ef))
	be.Equal(t, riscv.Decode(syms[0].Words()[1]).String(), "jal ra, -4")
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown function", "@fn f\n@go nowhere\n@endfn", ErrFnNotFound},
		{"unknown register", "@fn f\n@load %x9, 1\n@endfn", riscv.ErrInvalidRegister},
		{"unknown deferred register", "@fn f\n@sum i8, %a0, 1, %q1\n@endfn", riscv.ErrInvalidRegister},
		{"csr operand", "@fn f\n@radd %mepc, %a0\n@endfn", riscv.ErrNotGeneralPurpose},
		{"large immediate", "@fn f\n@load %a0, 5000\n@endfn", riscv.ErrImmediateOutOfRange},
		{"large sum", "@fn f\n@sum i64, %a0, 2000, 48\n@endfn", riscv.ErrImmediateOutOfRange},
		{"overflow", "@fn f\n@sum u8, %a0, 250, 10\n@endfn", types.ErrOverflow},
		{"cannot cast", "@fn f\n@sum u64, %a0, 9223372036854775807, 1\n@endfn", types.ErrCannotCast},
		{"odd target", "@fn a\n@sum i32, %a0, 1, %t0\n@endfn\n@fn b\n@go a\n@endfn", riscv.ErrNonAlignedAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syms, _, err := generate(t, "@fn ok\n@nop\n@endfn\n"+tt.src, nil)
			be.Err(t, err, tt.want)
			be.Equal(t, len(syms), 0)
		})
	}
}

func TestMismatchedOperandKinds(t *testing.T) {
	one, err := types.FromInt64(types.I16, 1)
	be.Err(t, err, nil)
	fn := ast.NewFunction(token.Token{}, "f", 0)
	ast.Append(fn, ast.NewSum(fn.Tok, 0, types.I32, "a0", []types.Operand{one, one}))

	_, err = NewContext(ast.AddressTable{"f": 0}, nil, nil).GenerateFunction(fn)
	be.Err(t, err, types.ErrMismatchedTypes)
}

func TestWrapImmediate(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatWrapImm, true)
	syms, rep, err := generate(t, "@fn f\n@load %a0, 4095\n@endfn", cfg)
	be.Err(t, err, nil)
	be.Equal(t, syms[0].Words(), []riscv.Word{0xfff00513})
	be.Equal(t, len(rep.Warnings()), 1)
	be.Equal(t, rep.Warnings()[0].Warning, config.WarnTruncatedImm)
}

func TestClobberedOperandWarning(t *testing.T) {
	syms, rep, err := generate(t, "@fn f\n@sum i64, %t0, 1, %t0\n@endfn", nil)
	be.Err(t, err, nil)
	be.Equal(t, syms[0].Words(), []riscv.Word{0x00100293, 0x005282b3})
	be.Equal(t, len(rep.Warnings()), 1)
	be.Equal(t, rep.Warnings()[0].Warning, config.WarnClobberedOperand)
}

func TestAddressTableIsReadOnly(t *testing.T) {
	cfg := config.NewConfig()
	rep := util.NewReporter(nil, cfg)
	toks, err := lexer.Lex("@fn a\n@go b\n@endfn\n@fn b\n@go a\n@endfn", 0, cfg, rep)
	be.Err(t, err, nil)
	funcs, table, err := parser.NewParser(toks, cfg, rep).Parse()
	be.Err(t, err, nil)

	before := make(ast.AddressTable)
	for k, v := range table {
		before[k] = v
	}
	_, err = NewContext(table, cfg, rep).Generate(funcs)
	be.Err(t, err, nil)
	if diff := cmp.Diff(before, table); diff != "" {
		t.Errorf("address table changed (-before +after):\n%s", diff)
	}
}
