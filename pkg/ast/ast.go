// Package ast defines the types used to represent a parsed TIR unit
package ast

import (
	"sort"

	"github.com/xplshn/tirc/pkg/token"
	"github.com/xplshn/tirc/pkg/types"
)

// NodeType defines the kind of a node in the AST
type NodeType int

const (
	Function NodeType = iota

	// Instructions
	Sum
	Load
	Syscall
	Go
	Radd
	Rsub
	Ret
	Nop
)

var nodeNames = [...]string{
	Function: "Function", Sum: "Sum", Load: "Load", Syscall: "Syscall",
	Go: "Go", Radd: "Radd", Rsub: "Rsub", Ret: "Ret", Nop: "Nop",
}

func (t NodeType) String() string {
	if int(t) < len(nodeNames) {
		return nodeNames[t]
	}
	return "Unknown"
}

type Visibility int

const (
	Private Visibility = iota
	Global
)

func (v Visibility) String() string {
	if v == Global {
		return "global"
	}
	return "private"
}

// Node represents a node in the AST. Addr is the program counter value the
// parser assigned to the node; for a Function it equals the entry address.
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Addr   uint64
	Data   interface{}
}

// --- Node Data Structs ---
type FunctionNode struct {
	Name       string
	Visibility Visibility
	Body       []*Node
	Entry      uint64
}
type SumNode struct {
	Dist     string
	Operands []types.Operand
	Kind     types.Kind
}
type LoadNode struct {
	Dist  string
	Value int64
}
type GoNode struct {
	Label  string
	Origin uint64
}
type RegPairNode struct{ Target, Src string }

// AddressTable maps a function name to its entry address.
type AddressTable map[string]uint64

// Names returns the table's keys ordered by address, then name.
func (t AddressTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if t[names[i]] != t[names[j]] {
			return t[names[i]] < t[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, addr uint64, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Addr: addr, Data: data}
}

func NewFunction(tok token.Token, name string, entry uint64) *Node {
	return newNode(tok, Function, entry, FunctionNode{Name: name, Entry: entry})
}
func NewSum(tok token.Token, addr uint64, kind types.Kind, dist string, operands []types.Operand) *Node {
	return newNode(tok, Sum, addr, SumNode{Dist: dist, Operands: operands, Kind: kind})
}
func NewLoad(tok token.Token, addr uint64, dist string, value int64) *Node {
	return newNode(tok, Load, addr, LoadNode{Dist: dist, Value: value})
}
func NewGo(tok token.Token, addr uint64, label string) *Node {
	return newNode(tok, Go, addr, GoNode{Label: label, Origin: addr})
}
func NewRadd(tok token.Token, addr uint64, target, src string) *Node {
	return newNode(tok, Radd, addr, RegPairNode{Target: target, Src: src})
}
func NewRsub(tok token.Token, addr uint64, target, src string) *Node {
	return newNode(tok, Rsub, addr, RegPairNode{Target: target, Src: src})
}
func NewSyscall(tok token.Token, addr uint64) *Node { return newNode(tok, Syscall, addr, nil) }
func NewRet(tok token.Token, addr uint64) *Node     { return newNode(tok, Ret, addr, nil) }
func NewNop(tok token.Token, addr uint64) *Node     { return newNode(tok, Nop, addr, nil) }

// Append adds child to the body of fn, a Function node.
func Append(fn, child *Node) {
	d := fn.Data.(FunctionNode)
	child.Parent = fn
	d.Body = append(d.Body, child)
	fn.Data = d
}

// SetVisibility updates the visibility of fn, a Function node.
func SetVisibility(fn *Node, v Visibility) {
	d := fn.Data.(FunctionNode)
	d.Visibility = v
	fn.Data = d
}

// IsTerminator reports whether control never falls through n. A Go is a
// call (jal ra) and returns to the next instruction, so only Ret qualifies.
func IsTerminator(n *Node) bool { return n.Type == Ret }
