package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
	"github.com/xplshn/tirc/pkg/cli"
	"github.com/xplshn/tirc/pkg/compiler"
	"github.com/xplshn/tirc/pkg/config"
	"github.com/xplshn/tirc/pkg/emit"
	"github.com/xplshn/tirc/pkg/util"
)

var outputExt = map[string]string{"elf": ".o", "bin": ".bin", "hex": ".hex"}

func main() {
	app := cli.NewApp("tirc")
	app.Synopsis = "[options] <input.tir>"
	app.Description = "Compiles TIR, a line-oriented instruction language, into RISC-V 64 machine code."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/tirc>"
	app.Since = 2025

	var (
		outFile string
		format  string
		dumpAST bool
		verbose bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&format, "format", "f", "elf", "Output format: "+strings.Join(emit.Formats(), ", ")+".", "format")
	fs.Bool(&dumpAST, "dump-ast", "d", false, "Dump the parsed functions and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Print each compilation stage.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	formats := cli.Section{Title: "Output Formats"}
	for _, name := range emit.Formats() {
		b, _ := emit.Select(name)
		formats.Rows = append(formats.Rows, [2]string{name, b.Describe()})
	}
	app.Sections = append(app.Sections, formats)

	app.Action = func(inputFiles []string) error {
		cfg.ApplyFlagGroups(fs, warningFlags, featureFlags)
		cfg.OutputFormat, cfg.Verbose, cfg.DumpAST = format, verbose, dumpAST

		if len(inputFiles) != 1 {
			return fail(fmt.Errorf("expected exactly one input file, got %d", len(inputFiles)))
		}
		input := inputFiles[0]

		backend, err := emit.Select(cfg.OutputFormat)
		if err != nil {
			return fail(err)
		}
		src, err := os.ReadFile(input)
		if err != nil {
			return fail(fmt.Errorf("could not read file '%s': %w", input, err))
		}

		rep := util.NewReporter(os.Stderr, cfg)
		opts := compiler.Options{Config: cfg, Reporter: rep, Filename: input}
		if cfg.Verbose {
			opts.Progress = os.Stdout
			fmt.Println("----------------------")
		}

		unit, err := compiler.Compile(string(src), opts)
		if err != nil {
			return report(rep, err)
		}
		if cfg.DumpAST {
			godump.Dump(unit.Functions, unit.Addresses)
			return nil
		}

		syms, err := compiler.Build(unit, opts)
		if err != nil {
			return report(rep, err)
		}

		if cfg.Verbose {
			fmt.Printf("Emitting '%s' output...\n", cfg.OutputFormat)
		}
		out, err := backend.Generate(syms, cfg)
		if err != nil {
			return fail(fmt.Errorf("%s backend failed: %w", cfg.OutputFormat, err))
		}

		if outFile == "" {
			outFile = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + outputExt[cfg.OutputFormat]
		}
		if outFile == "-" {
			_, err = os.Stdout.Write(out.Bytes())
		} else {
			err = os.WriteFile(outFile, out.Bytes(), 0o644)
		}
		if err != nil {
			return fail(fmt.Errorf("could not write '%s': %w", outFile, err))
		}

		if cfg.Verbose {
			var text uint64
			for _, s := range syms {
				text += uint64(len(s.Bytes))
			}
			fmt.Printf("Wrote %s: %d function(s), %s of code, %s total\n",
				outFile, len(syms), humanize.Bytes(text), humanize.Bytes(uint64(out.Len())))
			fmt.Println("----------------------")
			fmt.Println("Done!")
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

var errReported = errors.New("compilation failed")

func fail(err error) error {
	fmt.Fprintf(os.Stderr, "tirc: \033[31merror:\033[0m %v\n", err)
	return err
}

func report(rep *util.Reporter, err error) error {
	if msg := compiler.Report(rep, err); msg != "" {
		return fail(errors.New(msg))
	}
	return errReported
}
