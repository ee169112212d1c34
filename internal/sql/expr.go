package sql

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ExprType classifies an expression node.
type ExprType uint8

const (
	ExprLiteral      ExprType = iota // column reference or bare identifier
	ExprConstant                     // 1, 'abc', true, NULL
	ExprBindVariable                 // $1
	ExprFunction                     // f(args...)
)

// ExpressionNode is the parsed form of one expression. Only the structure the
// binding layer needs is modelled: a token, its kind, and child arguments.
type ExpressionNode struct {
	Type     ExprType
	Token    string
	Position int
	Args     []*ExpressionNode
}

// LiteralNode creates a column-reference node.
func LiteralNode(token string, position int) *ExpressionNode {
	return &ExpressionNode{Type: ExprLiteral, Token: token, Position: position}
}

// Equal compares two trees structurally. Position is ignored: the same
// expression typed at a different offset is the same expression.
func (n *ExpressionNode) Equal(o *ExpressionNode) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil {
		return false
	}
	if n.Type != o.Type || n.Token != o.Token || len(n.Args) != len(o.Args) {
		return false
	}
	for i := range n.Args {
		if !n.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Hash is consistent with Equal.
func (n *ExpressionNode) Hash() uint64 {
	d := xxhash.New()
	n.writeHash(d)
	return d.Sum64()
}

func (n *ExpressionNode) writeHash(d *xxhash.Digest) {
	if n == nil {
		_, _ = d.Write([]byte{0xff})
		return
	}
	var buf [9]byte
	buf[0] = byte(n.Type)
	binary.LittleEndian.PutUint64(buf[1:], uint64(len(n.Args)))
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(n.Token)
	_, _ = d.Write([]byte{0})
	for _, a := range n.Args {
		a.writeHash(d)
	}
}

func (n *ExpressionNode) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Type != ExprFunction {
		return n.Token
	}
	var sb strings.Builder
	sb.WriteString(n.Token)
	sb.WriteByte('(')
	for i, a := range n.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
