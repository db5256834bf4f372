package internal

import (
	"strings"

	"go.uber.org/zap"
)

// Lexer tokenizes template source into a token stream. It tracks two
// lexical modes: plain text and inside-mustache. Mode transitions occur
// on the open/close delimiter families; whitespace-control markers (~)
// adjacent to a delimiter are captured as flags on the delimiter token.
type Lexer struct {
	source string
	pos    int // Current byte position
	line   int // Current line (1-indexed)
	column int // Current column (1-indexed)
	logger *zap.Logger
}

// NewLexer creates a new lexer for the given source
func NewLexer(source string, logger *zap.Logger) *Lexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgLexerCreated, zap.Int(LogFieldSource, len(source)))
	return &Lexer{
		source: source,
		pos:    0,
		line:   1,
		column: 1,
		logger: logger,
	}
}

// Tokenize processes the source and returns a token stream
func (l *Lexer) Tokenize() ([]Token, error) {
	l.logger.Debug(LogMsgTokenizerStart)
	var tokens []Token

	for !l.isAtEnd() {
		if l.matchStr(StrOpen) {
			mustacheTokens, err := l.scanMustache()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, mustacheTokens...)
			continue
		}

		textToken := l.scanText()
		if textToken.Value != "" {
			tokens = append(tokens, textToken)
		}
	}

	tokens = append(tokens, NewEOFToken(l.currentPosition()))
	l.logger.Debug(LogMsgTokenizerEnd, zap.Int(LogFieldTokens, len(tokens)))
	return tokens, nil
}

// scanText scans plain text until the next open delimiter
func (l *Lexer) scanText() Token {
	startPos := l.currentPosition()
	start := l.pos
	for !l.isAtEnd() && !l.matchStr(StrOpen) {
		l.advance()
	}
	return NewTextToken(l.source[start:l.pos], startPos)
}

// scanMustache scans one complete mustache expression: the opener, the
// expression tokens, and the closer. Raw blocks consume their raw body
// here as well since it is not expression content.
func (l *Lexer) scanMustache() ([]Token, error) {
	pos := l.currentPosition()

	if l.matchStr(StrOpenRawBlock) {
		return l.scanRawBlock(pos)
	}
	if l.matchStr(StrOpenUnescaped) {
		l.advanceN(len(StrOpenUnescaped))
		tokens := []Token{NewToken(TokenTypeOpenUnescaped, StrOpenUnescaped, pos)}
		exprTokens, err := l.scanExpression(StrCloseUnescaped, TokenTypeCloseUnescaped)
		if err != nil {
			return nil, err
		}
		return append(tokens, exprTokens...), nil
	}

	l.advanceN(len(StrOpen))
	strip := false
	if l.peek() == CharTilde {
		l.advance()
		strip = true
	}

	closeStr, closeType := StrClose, TokenTypeClose

	var open Token
	switch l.peek() {
	case CharOpenBrace:
		// strip-flagged unescaped form {{~{name}~}}
		l.advance()
		open = NewToken(TokenTypeOpenUnescaped, StrOpenUnescaped, pos)
		closeStr, closeType = StrCloseUnescaped, TokenTypeCloseUnescaped
	case CharHash:
		l.advance()
		if l.peek() == CharGreater {
			l.advance()
			open = NewToken(TokenTypeOpenPartialBlock, "{{#>", pos)
		} else {
			open = NewToken(TokenTypeOpenBlock, "{{#", pos)
		}
	case CharSlash:
		l.advance()
		open = NewToken(TokenTypeOpenEndBlock, "{{/", pos)
	case CharCaret:
		l.advance()
		open = NewToken(TokenTypeOpenInverse, "{{^", pos)
	case CharGreater:
		l.advance()
		open = NewToken(TokenTypeOpenPartial, "{{>", pos)
	case CharAmp:
		l.advance()
		open = NewToken(TokenTypeOpenUnescaped, "{{&", pos)
	case CharBang:
		l.advance()
		comment, err := l.scanComment(pos, strip)
		if err != nil {
			return nil, err
		}
		return []Token{comment}, nil
	default:
		open = NewToken(TokenTypeOpen, StrOpen, pos)
	}
	open.StripBefore = strip

	exprTokens, err := l.scanExpression(closeStr, closeType)
	if err != nil {
		return nil, err
	}
	return append([]Token{open}, exprTokens...), nil
}

// scanExpression scans tokens inside a mustache until the closing
// delimiter is found, which is emitted as the final token.
func (l *Lexer) scanExpression(closeStr string, closeType TokenType) ([]Token, error) {
	var tokens []Token
	for {
		l.skipWhitespace()
		if l.isAtEnd() {
			return nil, newLexerError(ErrMsgUnterminatedMustache, l.currentPosition())
		}

		pos := l.currentPosition()

		if l.peek() == CharTilde && l.matchStrAt(closeStr, l.pos+1) {
			l.advanceN(1 + len(closeStr))
			close := NewToken(closeType, closeStr, pos)
			close.StripAfter = true
			return append(tokens, close), nil
		}
		// the unescaped strip closer carries its tilde inside: }~}}
		if closeType == TokenTypeCloseUnescaped && l.matchStr(StrCloseUnescapedStrip) {
			l.advanceN(len(StrCloseUnescapedStrip))
			close := NewToken(closeType, StrCloseUnescaped, pos)
			close.StripAfter = true
			return append(tokens, close), nil
		}
		if l.matchStr(closeStr) {
			l.advanceN(len(closeStr))
			return append(tokens, NewToken(closeType, closeStr, pos)), nil
		}

		switch ch := l.peek(); {
		case ch == CharOpenParen:
			l.advance()
			tokens = append(tokens, NewToken(TokenTypeOpenSexpr, "(", pos))
		case ch == CharCloseParen:
			l.advance()
			tokens = append(tokens, NewToken(TokenTypeCloseSexpr, ")", pos))
		case ch == CharEquals:
			l.advance()
			tokens = append(tokens, NewToken(TokenTypeEquals, "=", pos))
		case ch == CharPipe:
			l.advance()
			tokens = append(tokens, NewToken(TokenTypePipe, "|", pos))
		case ch == CharAt:
			l.advance()
			tokens = append(tokens, NewToken(TokenTypeData, "@", pos))
		case ch == CharDoubleQuote || ch == CharSingleQuote:
			strToken, err := l.scanString(ch)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, strToken)
		case isDigit(ch) || (ch == CharMinus && isDigit(l.peekAt(l.pos+1))):
			tokens = append(tokens, l.scanNumber())
		case ch == CharSlash:
			l.advance()
			tokens = append(tokens, NewToken(TokenTypeSep, "/", pos))
		case ch == CharDot:
			tokens = append(tokens, l.scanDot(tokens, pos))
		default:
			idToken, err := l.scanIdentifier()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, idToken)
		}
	}
}

// scanDot disambiguates "." as path separator, parent reference ".." or
// self reference depending on its neighborhood.
func (l *Lexer) scanDot(prev []Token, pos Position) Token {
	if l.peekAt(l.pos+1) == CharDot {
		l.advanceN(2)
		return NewToken(TokenTypeID, PathParent, pos)
	}
	l.advance()
	if len(prev) > 0 && prev[len(prev)-1].Type == TokenTypeID {
		return NewToken(TokenTypeSep, PathSelf, pos)
	}
	return NewToken(TokenTypeID, PathSelf, pos)
}

// scanString scans a quoted string literal with backslash escapes
func (l *Lexer) scanString(quote byte) (Token, error) {
	startPos := l.currentPosition()
	l.advance() // opening quote
	var sb strings.Builder
	for !l.isAtEnd() {
		ch := l.peek()
		if ch == quote {
			l.advance()
			return NewToken(TokenTypeString, sb.String(), startPos), nil
		}
		if ch == CharBackslash {
			l.advance()
			if l.isAtEnd() {
				break
			}
			switch esc := l.peek(); esc {
			case 'n':
				sb.WriteByte(CharNewline)
			case 't':
				sb.WriteByte(CharTab)
			default:
				sb.WriteByte(esc)
			}
			l.advance()
			continue
		}
		sb.WriteByte(ch)
		l.advance()
	}
	return Token{}, newLexerError(ErrMsgUnterminatedStr, startPos)
}

// scanNumber scans an integer or decimal literal
func (l *Lexer) scanNumber() Token {
	startPos := l.currentPosition()
	start := l.pos
	if l.peek() == CharMinus {
		l.advance()
	}
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == CharDot && isDigit(l.peekAt(l.pos+1)) {
		l.advance()
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	return NewToken(TokenTypeNumber, l.source[start:l.pos], startPos)
}

// scanIdentifier scans an identifier or keyword
func (l *Lexer) scanIdentifier() (Token, error) {
	startPos := l.currentPosition()
	start := l.pos
	for !l.isAtEnd() && isIDChar(l.peek()) {
		l.advance()
	}
	value := l.source[start:l.pos]
	if value == "" {
		return Token{}, newLexerError(ErrMsgUnexpectedChar, startPos)
	}
	switch value {
	case KeywordTrue, KeywordFalse:
		return NewToken(TokenTypeBoolean, value, startPos), nil
	case KeywordNull:
		return NewToken(TokenTypeNull, value, startPos), nil
	case KeywordUndefined:
		return NewToken(TokenTypeUndefined, value, startPos), nil
	}
	return NewToken(TokenTypeID, value, startPos), nil
}

// scanComment scans a {{! }} or {{!-- --}} comment as a single token
func (l *Lexer) scanComment(pos Position, stripBefore bool) (Token, error) {
	long := l.matchStr("--")
	if long {
		l.advanceN(2)
	}

	closeStr := StrCommentClose
	stripAfter := false
	var idx int
	if long {
		closeStr = StrCommentLongClose
		idx = strings.Index(l.source[l.pos:], closeStr)
		stripIdx := strings.Index(l.source[l.pos:], StrCommentLongStripClose)
		if stripIdx >= 0 && (idx < 0 || stripIdx < idx) {
			closeStr = StrCommentLongStripClose
			idx = stripIdx
			stripAfter = true
		}
	} else {
		idx = strings.Index(l.source[l.pos:], closeStr)
	}
	if idx < 0 {
		return Token{}, newLexerError(ErrMsgUnterminatedComment, pos)
	}
	content := l.source[l.pos : l.pos+idx]
	l.advanceN(idx + len(closeStr))

	if !long && strings.HasSuffix(content, "~") {
		stripAfter = true
		content = strings.TrimSuffix(content, "~")
	}

	token := NewToken(TokenTypeComment, content, pos)
	token.StripBefore = stripBefore
	token.StripAfter = stripAfter
	return token, nil
}

// scanRawBlock scans {{{{name}}}}raw content{{{{/name}}}} entirely,
// emitting the raw content as a single text token.
func (l *Lexer) scanRawBlock(pos Position) ([]Token, error) {
	l.advanceN(len(StrOpenRawBlock))
	tokens := []Token{NewToken(TokenTypeOpenRawBlock, StrOpenRawBlock, pos)}

	exprTokens, err := l.scanExpression(StrCloseRawBlock, TokenTypeCloseRawBlock)
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, exprTokens...)

	contentPos := l.currentPosition()
	idx := strings.Index(l.source[l.pos:], StrEndRawBlock)
	if idx < 0 {
		return nil, newLexerError(ErrMsgUnterminatedRawBlock, pos)
	}
	content := l.source[l.pos : l.pos+idx]
	l.advanceN(idx)
	tokens = append(tokens, NewTextToken(content, contentPos))

	endPos := l.currentPosition()
	l.advanceN(len(StrEndRawBlock))
	tokens = append(tokens, NewToken(TokenTypeEndRawBlock, StrEndRawBlock, endPos))

	idToken, err := l.scanIdentifier()
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, idToken)

	l.skipWhitespace()
	closePos := l.currentPosition()
	if !l.matchStr(StrCloseRawBlock) {
		return nil, newLexerError(ErrMsgUnterminatedRawBlock, closePos)
	}
	l.advanceN(len(StrCloseRawBlock))
	tokens = append(tokens, NewToken(TokenTypeCloseRawBlock, StrCloseRawBlock, closePos))
	return tokens, nil
}

// Position and cursor helpers

func (l *Lexer) currentPosition() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.column}
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekAt(pos int) byte {
	if pos >= len(l.source) {
		return 0
	}
	return l.source[pos]
}

func (l *Lexer) advance() {
	if l.isAtEnd() {
		return
	}
	if l.source[l.pos] == CharNewline {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n && !l.isAtEnd(); i++ {
		l.advance()
	}
}

func (l *Lexer) matchStr(s string) bool {
	return l.matchStrAt(s, l.pos)
}

func (l *Lexer) matchStrAt(s string, pos int) bool {
	return strings.HasPrefix(l.source[min(pos, len(l.source)):], s)
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		ch := l.peek()
		if ch == CharSpace || ch == CharTab || ch == CharNewline || ch == CharCarriageRet {
			l.advance()
		} else {
			break
		}
	}
}

// Character classification helpers

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isIDChar reports whether ch may appear in a path segment or helper
// name. Delimiter, separator, and operator characters terminate an
// identifier; everything else (including unicode bytes) is allowed.
func isIDChar(ch byte) bool {
	switch ch {
	case CharSpace, CharTab, CharNewline, CharCarriageRet,
		CharOpenParen, CharCloseParen, CharEquals, CharPipe,
		CharDot, CharSlash, CharDoubleQuote, CharSingleQuote,
		CharTilde, CharAt, '{', '}', 0:
		return false
	}
	return true
}

// LexerError represents a lexer error with position
type LexerError struct {
	Message  string
	Position Position
}

func (e *LexerError) Error() string {
	return e.Message + " at " + e.Position.String()
}

func newLexerError(msg string, pos Position) error {
	return &LexerError{Message: msg, Position: pos}
}
