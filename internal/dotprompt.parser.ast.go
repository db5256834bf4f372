package internal

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is the interface implemented by all AST nodes
type Node interface {
	Type() NodeType
	Pos() Position
	String() string
}

// Expression is the interface implemented by everything that can appear
// in expression position: paths, literals and subexpressions.
type Expression interface {
	Pos() Position
	String() string
	exprNode()
}

// PathExpression references a value in the context chain.
// Depth counts leading ../ hops; Data marks @-prefixed names;
// Parts are the remaining dot/slash separated segments. An empty Parts
// with Depth 0 references the current context value itself.
type PathExpression struct {
	Position Position
	Data     bool
	Depth    int
	Parts    []string
	Original string
}

func (p *PathExpression) Pos() Position { return p.Position }
func (p *PathExpression) exprNode()     {}
func (p *PathExpression) String() string {
	return p.Original
}

// IsSimple reports whether the path is a bare single-segment name that
// could also be a helper name.
func (p *PathExpression) IsSimple() bool {
	return !p.Data && p.Depth == 0 && len(p.Parts) == 1
}

// StringLiteral is a quoted string parameter
type StringLiteral struct {
	Position Position
	Value    string
}

func (s *StringLiteral) Pos() Position  { return s.Position }
func (s *StringLiteral) exprNode()      {}
func (s *StringLiteral) String() string { return strconv.Quote(s.Value) }

// NumberLiteral is a numeric parameter. Integral values keep their
// integer identity so strict comparisons behave predictably.
type NumberLiteral struct {
	Position Position
	Value    float64
	Original string
}

func (n *NumberLiteral) Pos() Position  { return n.Position }
func (n *NumberLiteral) exprNode()      {}
func (n *NumberLiteral) String() string { return n.Original }

// IsInt reports whether the literal was written without a fraction
func (n *NumberLiteral) IsInt() bool {
	return !strings.Contains(n.Original, PathSelf)
}

// BooleanLiteral is a true/false parameter
type BooleanLiteral struct {
	Position Position
	Value    bool
}

func (b *BooleanLiteral) Pos() Position  { return b.Position }
func (b *BooleanLiteral) exprNode()      {}
func (b *BooleanLiteral) String() string { return strconv.FormatBool(b.Value) }

// NullLiteral is the null keyword
type NullLiteral struct {
	Position Position
}

func (n *NullLiteral) Pos() Position  { return n.Position }
func (n *NullLiteral) exprNode()      {}
func (n *NullLiteral) String() string { return KeywordNull }

// UndefinedLiteral is the undefined keyword
type UndefinedLiteral struct {
	Position Position
}

func (u *UndefinedLiteral) Pos() Position  { return u.Position }
func (u *UndefinedLiteral) exprNode()      {}
func (u *UndefinedLiteral) String() string { return KeywordUndefined }

// SubExpression is a nested helper invocation in parameter position
type SubExpression struct {
	Position Position
	Path     *PathExpression
	Params   []Expression
	Hash     *Hash
}

func (s *SubExpression) Pos() Position { return s.Position }
func (s *SubExpression) exprNode()     {}
func (s *SubExpression) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(s.Path.String())
	for _, p := range s.Params {
		sb.WriteString(" ")
		sb.WriteString(p.String())
	}
	if s.Hash != nil {
		sb.WriteString(" ")
		sb.WriteString(s.Hash.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// HashPair is a single name=value hash argument
type HashPair struct {
	Position Position
	Key      string
	Value    Expression
}

// Hash is an ordered set of name=value arguments
type Hash struct {
	Position Position
	Pairs    []HashPair
}

func (h *Hash) String() string {
	parts := make([]string, 0, len(h.Pairs))
	for _, pair := range h.Pairs {
		parts = append(parts, pair.Key+"="+pair.Value.String())
	}
	return strings.Join(parts, " ")
}

// Strip records the whitespace-control flags a node carries.
// Before/After refer to text adjacent to the node itself; OpenAfter,
// CloseBefore, ElseBefore and ElseAfter refer to the interior edges of
// a block's programs.
type Strip struct {
	Before bool
	After  bool
}

// ProgramNode is an ordered sequence of statements
type ProgramNode struct {
	Position    Position
	Body        []Node
	BlockParams []string
}

func (p *ProgramNode) Type() NodeType { return NodeTypeProgram }
func (p *ProgramNode) Pos() Position  { return p.Position }
func (p *ProgramNode) String() string {
	var sb strings.Builder
	for _, node := range p.Body {
		sb.WriteString(node.String())
	}
	return sb.String()
}

// TextNode is literal template text
type TextNode struct {
	Position Position
	Value    string
}

func (t *TextNode) Type() NodeType { return NodeTypeText }
func (t *TextNode) Pos() Position  { return t.Position }
func (t *TextNode) String() string { return t.Value }

// MustacheNode is a {{...}} value or helper expression
type MustacheNode struct {
	Position Position
	Path     Expression // *PathExpression or a literal
	Params   []Expression
	Hash     *Hash
	Escaped  bool
	Strip    Strip
}

func (m *MustacheNode) Type() NodeType { return NodeTypeMustache }
func (m *MustacheNode) Pos() Position  { return m.Position }
func (m *MustacheNode) String() string {
	openStr, closeStr := StrOpen, StrClose
	if !m.Escaped {
		openStr, closeStr = StrOpenUnescaped, StrCloseUnescaped
	}
	return openStr + exprCallString(m.Path, m.Params, m.Hash) + closeStr
}

// BlockNode is a {{#helper}}...{{/helper}} section, including inverse
// sections ({{^x}}), raw blocks ({{{{x}}}}) and inline-partial
// declarations ({{#*inline "name"}}).
type BlockNode struct {
	Position    Position
	Path        *PathExpression
	Params      []Expression
	Hash        *Hash
	Program     *ProgramNode
	Inverse     *ProgramNode
	BlockParams []string
	IsInverse   bool // opened with {{^
	IsRaw       bool // opened with {{{{
	IsDecorator bool // {{#*inline ...}}
	Chained     bool // produced by an {{else helper ...}} chain link

	Strip      Strip // outside edges: before open tag / after close tag
	OpenStrip  Strip // interior edge after the open tag
	ElseStrip  Strip // interior edges around {{else}}
	CloseStrip Strip // interior edge before the close tag
}

func (b *BlockNode) Type() NodeType { return NodeTypeBlock }
func (b *BlockNode) Pos() Position  { return b.Position }
func (b *BlockNode) String() string {
	sigil := "#"
	if b.IsInverse {
		sigil = "^"
	}
	var sb strings.Builder
	sb.WriteString(StrOpen + sigil)
	sb.WriteString(exprCallString(b.Path, b.Params, b.Hash))
	if len(b.BlockParams) > 0 {
		sb.WriteString(" as |" + strings.Join(b.BlockParams, " ") + "|")
	}
	sb.WriteString(StrClose)
	if b.Program != nil {
		sb.WriteString(b.Program.String())
	}
	if b.Inverse != nil {
		sb.WriteString(StrOpen + KeywordElse + StrClose)
		sb.WriteString(b.Inverse.String())
	}
	sb.WriteString(StrOpen + "/" + b.Path.Original + StrClose)
	return sb.String()
}

// PartialNode is a {{> name}} or {{#> name}}...{{/name}} reference
type PartialNode struct {
	Position Position
	Name     string
	Context  Expression
	Hash     *Hash
	Fallback *ProgramNode // only for partial blocks
	IsBlock  bool
	Strip    Strip
}

func (p *PartialNode) Type() NodeType { return NodeTypePartial }
func (p *PartialNode) Pos() Position  { return p.Position }
func (p *PartialNode) String() string {
	var sb strings.Builder
	sb.WriteString(StrOpen + ">" + " " + p.Name)
	if p.Context != nil {
		sb.WriteString(" " + p.Context.String())
	}
	if p.Hash != nil {
		sb.WriteString(" " + p.Hash.String())
	}
	sb.WriteString(StrClose)
	return sb.String()
}

// CommentNode is a {{! }} or {{!-- --}} comment; renders to nothing
type CommentNode struct {
	Position Position
	Value    string
	Strip    Strip
}

func (c *CommentNode) Type() NodeType { return NodeTypeComment }
func (c *CommentNode) Pos() Position  { return c.Position }
func (c *CommentNode) String() string {
	return fmt.Sprintf("{{!--%s--}}", c.Value)
}

// exprCallString formats a helper call form for debugging output
func exprCallString(path Expression, params []Expression, hash *Hash) string {
	var sb strings.Builder
	sb.WriteString(path.String())
	for _, p := range params {
		sb.WriteString(" ")
		sb.WriteString(p.String())
	}
	if hash != nil && len(hash.Pairs) > 0 {
		sb.WriteString(" ")
		sb.WriteString(hash.String())
	}
	return sb.String()
}

// nodeStrip returns the whitespace-control flags for a node's outer
// edges, used by the evaluator when trimming adjacent text nodes.
func nodeStrip(n Node) Strip {
	switch v := n.(type) {
	case *MustacheNode:
		return v.Strip
	case *BlockNode:
		return v.Strip
	case *PartialNode:
		return v.Strip
	case *CommentNode:
		return v.Strip
	default:
		return Strip{}
	}
}
