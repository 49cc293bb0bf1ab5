package emit

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xplshn/tirc/pkg/codegen"
	"github.com/xplshn/tirc/pkg/config"
)

// Backend is the interface that all object emitters must implement.
type Backend interface {
	// Generate lays the symbols out contiguously, in order, and serializes
	// the result.
	Generate(syms []codegen.Symbol, cfg *config.Config) (*bytes.Buffer, error)
	// Describe is the one-line summary shown in the driver's help page.
	Describe() string
}

var backends = map[string]Backend{
	"elf": ELF{},
	"bin": Binary{},
	"hex": Hex{},
}

// Select returns the backend registered under name.
func Select(name string) (Backend, error) {
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format '%s' (available: %v)", name, Formats())
	}
	return b, nil
}

// Formats lists the registered backend names.
func Formats() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Offsets returns the byte offset of every symbol within the text section.
func Offsets(syms []codegen.Symbol) []uint64 {
	out := make([]uint64, len(syms))
	var off uint64
	for i, s := range syms {
		out[i] = off
		off += uint64(len(s.Bytes))
	}
	return out
}

func text(syms []codegen.Symbol) []byte {
	var buf []byte
	for _, s := range syms {
		buf = append(buf, s.Bytes...)
	}
	return buf
}
