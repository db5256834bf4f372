package internal

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Parser builds an AST from a token stream using recursive descent.
// Grammar: program := statement*; statement := mustache | block |
// rawBlock | partial | partialBlock | content | comment. A bare else
// is only legal inside a block's inverse chain.
type Parser struct {
	tokens []Token
	pos    int
	logger *zap.Logger
}

// NewParser creates a parser for the given token stream
func NewParser(tokens []Token, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgParserCreated, zap.Int(LogFieldTokens, len(tokens)))
	return &Parser{tokens: tokens, logger: logger}
}

// Parse consumes the token stream and returns the root program
func (p *Parser) Parse() (*ProgramNode, error) {
	p.logger.Debug(LogMsgParserStart)
	program, err := p.parseProgram(false)
	if err != nil {
		return nil, err
	}
	if tok := p.current(); !tok.IsEOF() {
		if tok.Type == TokenTypeOpenEndBlock {
			return nil, newParserError(ErrMsgBlockMismatch, tok.Position)
		}
		if p.isElseMarker() {
			return nil, newParserError(ErrMsgElseOutsideBlock, tok.Position)
		}
		return nil, newParserError(ErrMsgUnexpectedToken, tok.Position)
	}
	p.logger.Debug(LogMsgParserEnd, zap.Int(LogFieldNodes, len(program.Body)))
	return program, nil
}

// parseProgram collects statements until EOF, a block close, or (inside
// a block) an else marker. The terminating token is left unconsumed.
func (p *Parser) parseProgram(insideBlock bool) (*ProgramNode, error) {
	program := &ProgramNode{Position: p.current().Position}
	for {
		tok := p.current()
		if tok.IsEOF() || tok.Type == TokenTypeOpenEndBlock {
			return program, nil
		}
		if p.isElseMarker() {
			if !insideBlock {
				return nil, newParserError(ErrMsgElseOutsideBlock, tok.Position)
			}
			return program, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		program.Body = append(program.Body, stmt)
	}
}

// parseStatement dispatches on the current token type
func (p *Parser) parseStatement() (Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokenTypeText:
		p.advance()
		return &TextNode{Position: tok.Position, Value: tok.Value}, nil
	case TokenTypeComment:
		p.advance()
		return &CommentNode{
			Position: tok.Position,
			Value:    tok.Value,
			Strip:    Strip{Before: tok.StripBefore, After: tok.StripAfter},
		}, nil
	case TokenTypeOpen, TokenTypeOpenUnescaped:
		return p.parseMustache()
	case TokenTypeOpenBlock:
		return p.parseBlock(false)
	case TokenTypeOpenInverse:
		return p.parseBlock(true)
	case TokenTypeOpenPartial:
		return p.parsePartial(false)
	case TokenTypeOpenPartialBlock:
		return p.parsePartial(true)
	case TokenTypeOpenRawBlock:
		return p.parseRawBlock()
	default:
		return nil, newParserError(ErrMsgUnexpectedToken, tok.Position)
	}
}

// parseMustache parses {{expr}}, {{{expr}}} and {{&expr}} forms
func (p *Parser) parseMustache() (Node, error) {
	openTok := p.advance()
	escaped := openTok.Type == TokenTypeOpen

	path, params, hash, blockParams, err := p.parseCallParts()
	if err != nil {
		return nil, err
	}
	if len(blockParams) > 0 {
		return nil, newParserError(ErrMsgUnexpectedToken, openTok.Position)
	}

	closeTok, err := p.expectCloser()
	if err != nil {
		return nil, err
	}

	return &MustacheNode{
		Position: openTok.Position,
		Path:     path,
		Params:   params,
		Hash:     hash,
		Escaped:  escaped,
		Strip:    Strip{Before: openTok.StripBefore, After: closeTok.StripAfter},
	}, nil
}

// parseBlock parses {{#helper ...}} and {{^helper ...}} sections
// including any {{else}} / {{else helper ...}} chain, and the inline
// partial declaration form {{#*inline "name"}}.
func (p *Parser) parseBlock(isInverse bool) (Node, error) {
	openTok := p.advance()

	if !isInverse && p.current().Type == TokenTypeID && p.current().Value == KeywordInline {
		return p.parseInlineDecorator(openTok)
	}

	pathExpr, params, hash, blockParams, err := p.parseCallParts()
	if err != nil {
		return nil, err
	}
	path, ok := pathExpr.(*PathExpression)
	if !ok {
		return nil, newParserError(ErrMsgExpectedPath, pathExpr.Pos())
	}

	openClose, err := p.expect(TokenTypeClose)
	if err != nil {
		return nil, err
	}

	node := &BlockNode{
		Position:    openTok.Position,
		Path:        path,
		Params:      params,
		Hash:        hash,
		BlockParams: blockParams,
		IsInverse:   isInverse,
	}
	node.Strip.Before = openTok.StripBefore
	node.OpenStrip.After = openClose.StripAfter

	chain := []*BlockNode{node}
	if err := p.parseBlockTail(node, &chain); err != nil {
		return nil, err
	}

	endOpen, err := p.expect(TokenTypeOpenEndBlock)
	if err != nil {
		return nil, err
	}
	closeName, err := p.parseCloseName()
	if err != nil {
		return nil, err
	}
	if closeName != path.Original {
		return nil, newMismatchError(path.Original, closeName, endOpen.Position)
	}
	endClose, err := p.expect(TokenTypeClose)
	if err != nil {
		return nil, err
	}

	innermost := chain[len(chain)-1]
	innermost.CloseStrip.Before = endOpen.StripBefore
	node.Strip.After = endClose.StripAfter
	return node, nil
}

// parseBlockTail parses a block's program and optional inverse chain.
// Chained {{else helper ...}} links become nested BlockNodes sharing
// the outer block's closing tag; the chain slice collects them so the
// caller can attach close-strip flags to the innermost link.
func (p *Parser) parseBlockTail(node *BlockNode, chain *[]*BlockNode) error {
	program, err := p.parseProgram(true)
	if err != nil {
		return err
	}
	node.Program = program

	if !p.isElseMarker() {
		return nil
	}

	// {{^}} used as else
	if p.current().Type == TokenTypeOpenInverse {
		invTok := p.advance()
		closeTok := p.advance()
		node.ElseStrip = Strip{Before: invTok.StripBefore, After: closeTok.StripAfter}
		return p.parsePlainElse(node)
	}

	elseOpen := p.advance() // {{
	p.advance()             // else

	if p.current().Type == TokenTypeClose {
		closeTok := p.advance()
		node.ElseStrip = Strip{Before: elseOpen.StripBefore, After: closeTok.StripAfter}
		return p.parsePlainElse(node)
	}

	// {{else helper ...}} chain link
	pathExpr, params, hash, blockParams, err := p.parseCallParts()
	if err != nil {
		return err
	}
	path, ok := pathExpr.(*PathExpression)
	if !ok {
		return newParserError(ErrMsgExpectedPath, pathExpr.Pos())
	}
	closeTok, err := p.expect(TokenTypeClose)
	if err != nil {
		return err
	}

	sub := &BlockNode{
		Position:    elseOpen.Position,
		Path:        path,
		Params:      params,
		Hash:        hash,
		BlockParams: blockParams,
		Chained:     true,
	}
	sub.OpenStrip.After = closeTok.StripAfter
	node.ElseStrip.Before = elseOpen.StripBefore
	node.Inverse = &ProgramNode{Position: elseOpen.Position, Body: []Node{sub}}

	*chain = append(*chain, sub)
	return p.parseBlockTail(sub, chain)
}

// parsePlainElse parses the inverse program after a terminal else
func (p *Parser) parsePlainElse(node *BlockNode) error {
	inverse, err := p.parseProgram(true)
	if err != nil {
		return err
	}
	node.Inverse = inverse
	if p.isElseMarker() {
		return newParserError(ErrMsgElseNotLast, p.current().Position)
	}
	return nil
}

// parseInlineDecorator parses {{#*inline "name"}}...{{/inline}}
func (p *Parser) parseInlineDecorator(openTok Token) (Node, error) {
	inlineTok := p.advance()
	nameExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	name, ok := nameExpr.(*StringLiteral)
	if !ok {
		return nil, newParserError(ErrMsgInlineNeedsName, nameExpr.Pos())
	}
	openClose, err := p.expect(TokenTypeClose)
	if err != nil {
		return nil, err
	}

	node := &BlockNode{
		Position: openTok.Position,
		Path: &PathExpression{
			Position: inlineTok.Position,
			Parts:    []string{KeywordInline},
			Original: KeywordInline,
		},
		Params:      []Expression{name},
		IsDecorator: true,
	}
	node.Strip.Before = openTok.StripBefore
	node.OpenStrip.After = openClose.StripAfter

	program, err := p.parseProgram(true)
	if err != nil {
		return nil, err
	}
	node.Program = program

	endOpen, err := p.expect(TokenTypeOpenEndBlock)
	if err != nil {
		return nil, err
	}
	closeName, err := p.parseCloseName()
	if err != nil {
		return nil, err
	}
	if closeName != "inline" && closeName != KeywordInline {
		return nil, newMismatchError("inline", closeName, endOpen.Position)
	}
	endClose, err := p.expect(TokenTypeClose)
	if err != nil {
		return nil, err
	}
	node.CloseStrip.Before = endOpen.StripBefore
	node.Strip.After = endClose.StripAfter
	return node, nil
}

// parseRawBlock parses {{{{name}}}}content{{{{/name}}}}
func (p *Parser) parseRawBlock() (Node, error) {
	openTok := p.advance()

	pathExpr, params, hash, _, err := p.parseCallParts()
	if err != nil {
		return nil, err
	}
	path, ok := pathExpr.(*PathExpression)
	if !ok {
		return nil, newParserError(ErrMsgExpectedPath, pathExpr.Pos())
	}
	if _, err := p.expect(TokenTypeCloseRawBlock); err != nil {
		return nil, err
	}

	contentTok, err := p.expect(TokenTypeText)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenTypeEndRawBlock); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokenTypeID)
	if err != nil {
		return nil, err
	}
	if nameTok.Value != path.Original {
		return nil, newMismatchError(path.Original, nameTok.Value, nameTok.Position)
	}
	if _, err := p.expect(TokenTypeCloseRawBlock); err != nil {
		return nil, err
	}

	return &BlockNode{
		Position: openTok.Position,
		Path:     path,
		Params:   params,
		Hash:     hash,
		IsRaw:    true,
		Program: &ProgramNode{
			Position: contentTok.Position,
			Body:     []Node{&TextNode{Position: contentTok.Position, Value: contentTok.Value}},
		},
	}, nil
}

// parsePartial parses {{> name ctx k=v}} and {{#> name}}...{{/name}}
func (p *Parser) parsePartial(isBlock bool) (Node, error) {
	openTok := p.advance()

	var name string
	if p.current().Type == TokenTypeString {
		name = p.advance().Value
	} else {
		namePath, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		name = namePath.Original
	}

	node := &PartialNode{
		Position: openTok.Position,
		Name:     name,
		IsBlock:  isBlock,
	}
	node.Strip.Before = openTok.StripBefore

	// optional context expression, then hash arguments
	if !p.currentIsCloser() && !p.isHashStart() {
		ctxExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.Context = ctxExpr
	}
	if p.isHashStart() {
		hash, err := p.parseHash()
		if err != nil {
			return nil, err
		}
		node.Hash = hash
	}

	closeTok, err := p.expect(TokenTypeClose)
	if err != nil {
		return nil, err
	}
	node.Strip.After = closeTok.StripAfter

	if !isBlock {
		return node, nil
	}

	fallback, err := p.parseProgram(true)
	if err != nil {
		return nil, err
	}
	node.Fallback = fallback

	if _, err := p.expect(TokenTypeOpenEndBlock); err != nil {
		return nil, err
	}
	closeName, err := p.parseCloseName()
	if err != nil {
		return nil, err
	}
	if closeName != name {
		return nil, newMismatchError(name, closeName, p.current().Position)
	}
	endClose, err := p.expect(TokenTypeClose)
	if err != nil {
		return nil, err
	}
	node.Strip.After = endClose.StripAfter
	return node, nil
}

// parseCallParts parses "path param* hash? blockParams?" up to (but not
// consuming) the closing delimiter.
func (p *Parser) parseCallParts() (Expression, []Expression, *Hash, []string, error) {
	path, err := p.parseExpression()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	var params []Expression
	var hash *Hash
	var blockParams []string

	for {
		tok := p.current()
		if tok.IsCloser() || tok.IsEOF() || tok.Type == TokenTypeCloseSexpr {
			break
		}
		if p.isHashStart() {
			hash, err = p.parseHash()
			if err != nil {
				return nil, nil, nil, nil, err
			}
			continue
		}
		if tok.Type == TokenTypeID && tok.Value == KeywordAs && p.peekNext().Type == TokenTypePipe {
			blockParams, err = p.parseBlockParams()
			if err != nil {
				return nil, nil, nil, nil, err
			}
			continue
		}
		if hash != nil {
			return nil, nil, nil, nil, newParserError(ErrMsgHashAfterParams, tok.Position)
		}
		param, err := p.parseExpression()
		if err != nil {
			return nil, nil, nil, nil, err
		}
		params = append(params, param)
	}

	return path, params, hash, blockParams, nil
}

// parseExpression parses a single path, literal, or subexpression
func (p *Parser) parseExpression() (Expression, error) {
	tok := p.current()
	switch tok.Type {
	case TokenTypeString:
		p.advance()
		return &StringLiteral{Position: tok.Position, Value: tok.Value}, nil
	case TokenTypeNumber:
		p.advance()
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, newParserError(ErrMsgUnexpectedToken, tok.Position)
		}
		return &NumberLiteral{Position: tok.Position, Value: value, Original: tok.Value}, nil
	case TokenTypeBoolean:
		p.advance()
		return &BooleanLiteral{Position: tok.Position, Value: tok.Value == KeywordTrue}, nil
	case TokenTypeNull:
		p.advance()
		return &NullLiteral{Position: tok.Position}, nil
	case TokenTypeUndefined:
		p.advance()
		return &UndefinedLiteral{Position: tok.Position}, nil
	case TokenTypeOpenSexpr:
		return p.parseSubExpression()
	case TokenTypeID, TokenTypeData:
		return p.parsePath()
	default:
		return nil, newParserError(ErrMsgExpectedPath, tok.Position)
	}
}

// parsePath parses dotted/slashed paths with optional @ prefix and ../
// parent hops: foo, foo.bar, ../name, @index, @root.user, this, .
func (p *Parser) parsePath() (*PathExpression, error) {
	startTok := p.current()
	path := &PathExpression{Position: startTok.Position}
	var original strings.Builder

	if startTok.Type == TokenTypeData {
		p.advance()
		path.Data = true
		original.WriteByte(CharAt)
	}

	for {
		idTok, err := p.expect(TokenTypeID)
		if err != nil {
			return nil, err
		}
		original.WriteString(idTok.Value)
		switch idTok.Value {
		case PathParent:
			path.Depth++
		case PathSelf, KeywordThis:
			// current context; contributes no part
		default:
			path.Parts = append(path.Parts, idTok.Value)
		}
		if p.current().Type != TokenTypeSep {
			break
		}
		sepTok := p.advance()
		original.WriteString(sepTok.Value)
	}

	path.Original = original.String()
	return path, nil
}

// parseSubExpression parses (helper param* hash?)
func (p *Parser) parseSubExpression() (Expression, error) {
	openTok, err := p.expect(TokenTypeOpenSexpr)
	if err != nil {
		return nil, err
	}
	pathExpr, params, hash, blockParams, err := p.parseCallParts()
	if err != nil {
		return nil, err
	}
	if len(blockParams) > 0 {
		return nil, newParserError(ErrMsgUnexpectedToken, openTok.Position)
	}
	path, ok := pathExpr.(*PathExpression)
	if !ok {
		return nil, newParserError(ErrMsgExpectedPath, pathExpr.Pos())
	}
	if _, err := p.expect(TokenTypeCloseSexpr); err != nil {
		return nil, err
	}
	return &SubExpression{
		Position: openTok.Position,
		Path:     path,
		Params:   params,
		Hash:     hash,
	}, nil
}

// parseHash parses one or more key=value pairs
func (p *Parser) parseHash() (*Hash, error) {
	hash := &Hash{Position: p.current().Position}
	for p.isHashStart() {
		keyTok := p.advance()
		if _, err := p.expect(TokenTypeEquals); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		hash.Pairs = append(hash.Pairs, HashPair{
			Position: keyTok.Position,
			Key:      keyTok.Value,
			Value:    value,
		})
	}
	return hash, nil
}

// parseBlockParams parses "as |name1 name2|"
func (p *Parser) parseBlockParams() ([]string, error) {
	p.advance() // as
	if _, err := p.expect(TokenTypePipe); err != nil {
		return nil, err
	}
	var names []string
	for p.current().Type == TokenTypeID {
		names = append(names, p.advance().Value)
	}
	if len(names) == 0 {
		return nil, newParserError(ErrMsgExpectedBlockParam, p.current().Position)
	}
	if _, err := p.expect(TokenTypePipe); err != nil {
		return nil, err
	}
	return names, nil
}

// parseCloseName parses the name in a {{/name}} tag, allowing dotted
// and slashed segments so the close matches the open's original form.
func (p *Parser) parseCloseName() (string, error) {
	var original strings.Builder
	for {
		idTok, err := p.expect(TokenTypeID)
		if err != nil {
			return "", err
		}
		original.WriteString(idTok.Value)
		if p.current().Type != TokenTypeSep {
			return original.String(), nil
		}
		original.WriteString(p.advance().Value)
	}
}

// Token cursor helpers

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return NewEOFToken(Position{})
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekNext() Token {
	if p.pos+1 >= len(p.tokens) {
		return NewEOFToken(Position{})
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tokenType TokenType) (Token, error) {
	tok := p.current()
	if tok.Type != tokenType {
		return Token{}, newExpectedTokenError(tokenType, tok)
	}
	return p.advance(), nil
}

// expectCloser accepts either close form for mustache expressions
func (p *Parser) expectCloser() (Token, error) {
	tok := p.current()
	if tok.Type != TokenTypeClose && tok.Type != TokenTypeCloseUnescaped {
		return Token{}, newExpectedTokenError(TokenTypeClose, tok)
	}
	return p.advance(), nil
}

func (p *Parser) currentIsCloser() bool {
	return p.current().IsCloser()
}

// isHashStart reports whether the cursor sits on "key=" of a hash pair
func (p *Parser) isHashStart() bool {
	return p.current().Type == TokenTypeID && p.peekNext().Type == TokenTypeEquals
}

// isElseMarker reports whether the cursor sits on {{else ...}} or {{^}}
func (p *Parser) isElseMarker() bool {
	tok := p.current()
	if tok.Type == TokenTypeOpen {
		next := p.peekNext()
		return next.Type == TokenTypeID && next.Value == KeywordElse
	}
	if tok.Type == TokenTypeOpenInverse {
		return p.peekNext().Type == TokenTypeClose
	}
	return false
}

// ParserError represents a parse error with position
type ParserError struct {
	Message  string
	Position Position
	Expected string
	Actual   string
}

func (e *ParserError) Error() string {
	if e.Expected != "" {
		return e.Message + " (expected " + e.Expected + ", got " + e.Actual + ") at " + e.Position.String()
	}
	return e.Message + " at " + e.Position.String()
}

func newParserError(msg string, pos Position) error {
	return &ParserError{Message: msg, Position: pos}
}

func newExpectedTokenError(expected TokenType, actual Token) error {
	return &ParserError{
		Message:  ErrMsgUnexpectedToken,
		Position: actual.Position,
		Expected: string(expected),
		Actual:   string(actual.Type),
	}
}

func newMismatchError(expected, actual string, pos Position) error {
	return &ParserError{
		Message:  ErrMsgBlockMismatch,
		Position: pos,
		Expected: expected,
		Actual:   actual,
	}
}
