// Package casefile extracts TIR test cases from Markdown documents.
//
// A case starts at a heading "Test: <name>" and is made of fenced blocks:
// one ```tir input, optional ```flags (one -W/-F flag per line) and at
// least one assertion fence (```words, ```asm, ```addresses, ```warnings
// or ```compile-error).
package casefile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	FenceInput = "tir"
	FenceFlags = "flags"
)

// AssertionType names an assertion fence.
type AssertionType string

const (
	AssertWords        AssertionType = "words"
	AssertAsm          AssertionType = "asm"
	AssertAddresses    AssertionType = "addresses"
	AssertWarnings     AssertionType = "warnings"
	AssertCompileError AssertionType = "compile-error"
)

type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

type Case struct {
	Name       string
	Input      string
	Flags      []string
	Assertions []Assertion
	Line       int
}

// Extract parses a Markdown document and returns its test cases in order.
func Extract(markdown []byte) ([]Case, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	var cases []Case
	var cur *Case
	flush := func() error {
		if cur == nil {
			return nil
		}
		if err := validate(cur); err != nil {
			return err
		}
		cases = append(cases, *cur)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, markdown)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			cur = &Case{Name: strings.TrimPrefix(heading, "Test: "), Line: lineOf(n, markdown)}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(markdown))
			line := lineOf(n, markdown)
			if lang == "" {
				return ast.WalkContinue, nil
			}
			if cur == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", line, lang)
			}
			content := strings.TrimRight(blockContent(n, markdown), "\n")

			switch {
			case lang == FenceInput:
				if cur.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences in test '%s'", line, cur.Name)
				}
				cur.Input = content
			case lang == FenceFlags:
				cur.Flags = append(cur.Flags, strings.Fields(content)...)
			case isAssertion(lang):
				cur.Assertions = append(cur.Assertions, Assertion{Type: AssertionType(lang), Content: content, Line: line})
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, lang, cur.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

func isAssertion(lang string) bool {
	switch AssertionType(lang) {
	case AssertWords, AssertAsm, AssertAddresses, AssertWarnings, AssertCompileError:
		return true
	}
	return false
}

func validate(c *Case) error {
	if c.Input == "" {
		return fmt.Errorf("test '%s' has no input fence", c.Name)
	}
	if len(c.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", c.Name)
	}
	return nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func blockContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:start], []byte("\n")) + 1
}
