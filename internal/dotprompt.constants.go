package internal

// TokenType represents the type of a lexical token
type TokenType string

// Token type constants
const (
	TokenTypeText             TokenType = "TEXT"
	TokenTypeOpen             TokenType = "OPEN"               // {{
	TokenTypeOpenUnescaped    TokenType = "OPEN_UNESCAPED"     // {{{ or {{&
	TokenTypeOpenBlock        TokenType = "OPEN_BLOCK"         // {{#
	TokenTypeOpenInverse      TokenType = "OPEN_INVERSE"       // {{^
	TokenTypeOpenEndBlock     TokenType = "OPEN_END_BLOCK"     // {{/
	TokenTypeOpenPartial      TokenType = "OPEN_PARTIAL"       // {{>
	TokenTypeOpenPartialBlock TokenType = "OPEN_PARTIAL_BLOCK" // {{#>
	TokenTypeOpenRawBlock     TokenType = "OPEN_RAW_BLOCK"     // {{{{
	TokenTypeEndRawBlock      TokenType = "END_RAW_BLOCK"      // {{{{/
	TokenTypeClose            TokenType = "CLOSE"              // }}
	TokenTypeCloseUnescaped   TokenType = "CLOSE_UNESCAPED"    // }}}
	TokenTypeCloseRawBlock    TokenType = "CLOSE_RAW_BLOCK"    // }}}}
	TokenTypeComment          TokenType = "COMMENT"
	TokenTypeID               TokenType = "ID"
	TokenTypeString           TokenType = "STRING"
	TokenTypeNumber           TokenType = "NUMBER"
	TokenTypeBoolean          TokenType = "BOOLEAN"
	TokenTypeNull             TokenType = "NULL"
	TokenTypeUndefined        TokenType = "UNDEFINED"
	TokenTypeData             TokenType = "DATA"   // @
	TokenTypeSep              TokenType = "SEP"    // . or /
	TokenTypeEquals           TokenType = "EQUALS" // =
	TokenTypeOpenSexpr        TokenType = "OPEN_SEXPR"
	TokenTypeCloseSexpr       TokenType = "CLOSE_SEXPR"
	TokenTypePipe             TokenType = "PIPE" // | delimiting block params
	TokenTypeEOF              TokenType = "EOF"
)

// NodeType identifies AST node types
type NodeType int

// Node type constants
const (
	NodeTypeProgram NodeType = iota
	NodeTypeText
	NodeTypeMustache
	NodeTypeBlock
	NodeTypePartial
	NodeTypeComment
)

// Node type string names for debugging
const (
	NodeTypeNameProgram  = "PROGRAM"
	NodeTypeNameText     = "TEXT"
	NodeTypeNameMustache = "MUSTACHE"
	NodeTypeNameBlock    = "BLOCK"
	NodeTypeNamePartial  = "PARTIAL"
	NodeTypeNameComment  = "COMMENT"
)

// String returns the string representation of the node type
func (n NodeType) String() string {
	switch n {
	case NodeTypeProgram:
		return NodeTypeNameProgram
	case NodeTypeText:
		return NodeTypeNameText
	case NodeTypeMustache:
		return NodeTypeNameMustache
	case NodeTypeBlock:
		return NodeTypeNameBlock
	case NodeTypePartial:
		return NodeTypeNamePartial
	case NodeTypeComment:
		return NodeTypeNameComment
	default:
		return NodeTypeNameProgram
	}
}

// Character constants
const (
	CharHash        = '#'
	CharSlash       = '/'
	CharCaret       = '^'
	CharGreater     = '>'
	CharAmp         = '&'
	CharBang        = '!'
	CharTilde       = '~'
	CharOpenBrace   = '{'
	CharStar        = '*'
	CharAt          = '@'
	CharDot         = '.'
	CharEquals      = '='
	CharPipe        = '|'
	CharOpenParen   = '('
	CharCloseParen  = ')'
	CharDoubleQuote = '"'
	CharSingleQuote = '\''
	CharBackslash   = '\\'
	CharMinus       = '-'
	CharNewline     = '\n'
	CharSpace       = ' '
	CharTab         = '\t'
	CharCarriageRet = '\r'
)

// String constants for delimiter matching
const (
	StrOpen                  = "{{"
	StrClose                 = "}}"
	StrOpenUnescaped         = "{{{"
	StrCloseUnescaped        = "}}}"
	StrCloseUnescapedStrip   = "}~}}"
	StrOpenRawBlock          = "{{{{"
	StrCloseRawBlock         = "}}}}"
	StrEndRawBlock           = "{{{{/"
	StrCommentLongOpen       = "{{!--"
	StrCommentLongClose      = "--}}"
	StrCommentLongStripClose = "--~}}"
	StrCommentClose          = "}}"
)

// Keyword constants recognized inside mustache expressions
const (
	KeywordTrue      = "true"
	KeywordFalse     = "false"
	KeywordNull      = "null"
	KeywordUndefined = "undefined"
	KeywordThis      = "this"
	KeywordAs        = "as"
	KeywordElse      = "else"
	KeywordInline    = "*inline"
	PathParent       = ".."
	PathSelf         = "."
)

// Data variable names exposed by iteration helpers
const (
	DataVarRoot  = "root"
	DataVarIndex = "index"
	DataVarKey   = "key"
	DataVarFirst = "first"
	DataVarLast  = "last"
)

// Log message constants
const (
	LogMsgLexerCreated     = "lexer created"
	LogMsgTokenizerStart   = "starting tokenization"
	LogMsgTokenizerEnd     = "tokenization complete"
	LogMsgParserCreated    = "parser created"
	LogMsgParserStart      = "starting parse"
	LogMsgParserEnd        = "parse complete"
	LogMsgRenderStart      = "starting render"
	LogMsgRenderEnd        = "render complete"
	LogMsgPartialExpand    = "expanding partial"
	LogMsgPartialResolved  = "partial resolved"
	LogMsgInlineRegistered = "inline partial registered"
	LogMsgHelperInvoked    = "helper invoked"
)

// Log field names
const (
	LogFieldSource  = "source_length"
	LogFieldTokens  = "token_count"
	LogFieldNodes   = "node_count"
	LogFieldHelper  = "helper"
	LogFieldPartial = "partial"
	LogFieldDepth   = "depth"
	LogFieldLine    = "line"
	LogFieldColumn  = "column"
	LogFieldPath    = "path"
	LogFieldOutput  = "output_length"
	LogFieldMessage = "message"
)

// Error message constants for the lexer
const (
	ErrMsgUnterminatedMustache = "unterminated mustache expression"
	ErrMsgUnterminatedStr      = "unterminated string literal"
	ErrMsgUnterminatedComment  = "unterminated comment"
	ErrMsgUnterminatedRawBlock = "unterminated raw block"
	ErrMsgUnexpectedChar       = "unexpected character in expression"
)

// Error message constants for the parser
const (
	ErrMsgUnexpectedToken    = "unexpected token"
	ErrMsgBlockMismatch      = "mismatched block closing name"
	ErrMsgElseOutsideBlock   = "else is only valid inside a block"
	ErrMsgElseNotLast        = "else section must be last in block"
	ErrMsgExpectedPath       = "expected a path expression"
	ErrMsgExpectedClose      = "expected closing delimiter"
	ErrMsgExpectedBlockParam = "expected block parameter name"
	ErrMsgInlineNeedsName    = "inline partial requires a string literal name"
	ErrMsgHashAfterParams    = "positional parameter after hash argument"
)

// Error message constants for the evaluator
const (
	ErrMsgUnknownHelper       = "unknown helper"
	ErrMsgUndefinedVariable   = "undefined variable in strict mode"
	ErrMsgPartialNotFound     = "partial not found"
	ErrMsgCircularPartial     = "circular partial reference"
	ErrMsgPartialDepth        = "maximum partial expansion depth exceeded"
	ErrMsgHelperFailed        = "helper invocation failed"
	ErrMsgLookupArgs          = "lookup requires a container and a key"
	ErrMsgRenderCancelled     = "render cancelled"
	ErrMsgEachNotIterable     = "each target is not iterable"
	ErrMsgPartialNameDynamic  = "partial name must be static"
	ErrMsgSubexprNeedsHelper  = "subexpression target is not a helper"
	ErrMsgBlockParamsExceeded = "too many block params supplied"
)

// Default limits
const (
	DefaultMaxPartialDepth = 100
)
