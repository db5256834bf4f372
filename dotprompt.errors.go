package dotprompt

import (
	"errors"
	"strconv"

	"github.com/itsatony/go-cuserr"

	"github.com/itsatony/go-dotprompt/internal"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	// Parse errors
	ErrMsgParseFailed            = "template parsing failed"
	ErrMsgFrontmatterUnclosed    = "unterminated frontmatter block"
	ErrMsgFrontmatterInvalidYAML = "frontmatter is not valid YAML"

	// Render errors
	ErrMsgRenderFailed    = "template rendering failed"
	ErrMsgHelperExists    = "helper already defined"
	ErrMsgPartialExists   = "partial already defined"
	ErrMsgToolExists      = "tool already defined"
	ErrMsgSchemaExists    = "schema already defined"
	ErrMsgToolNotFound    = "tool not found"
	ErrMsgPartialNotFound = "partial not found"

	// Schema errors
	ErrMsgSchemaNotFound      = "named schema not found"
	ErrMsgSchemaUnsupported   = "unsupported scalar type"
	ErrMsgSchemaInvalidShape  = "picoschema consists only of objects and strings"
	ErrMsgSchemaInvalidParen  = "parenthetical types must be 'object' or 'array'"
	ErrMsgSchemaNoResolver    = "no schema resolver configured"
	ErrMsgSerializationFailed = "value cannot be serialized to JSON"

	// Store errors
	ErrMsgPromptNotFound    = "prompt not found"
	ErrMsgInvalidPromptName = "invalid prompt name"
	ErrMsgVersionMismatch   = "prompt version mismatch"
	ErrMsgStoreUnavailable  = "prompt store unavailable"
)

// Error code constants for categorization
const (
	ErrCodeParse         = "DOTPROMPT_PARSE"
	ErrCodeRender        = "DOTPROMPT_RENDER"
	ErrCodeSchema        = "DOTPROMPT_SCHEMA"
	ErrCodeSerialization = "DOTPROMPT_SERIALIZATION"
	ErrCodeRegistry      = "DOTPROMPT_REGISTRY"
	ErrCodeStore         = "DOTPROMPT_STORE"
)

// NewParseError creates a parse error, carrying position metadata when
// the cause is a positioned engine error.
func NewParseError(msg string, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeParse, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeParse, msg)
	}
	if pos, ok := positionOf(cause); ok {
		err = err.
			WithMetadata(MetaKeyLine, strconv.Itoa(pos.Line)).
			WithMetadata(MetaKeyColumn, strconv.Itoa(pos.Column)).
			WithMetadata(MetaKeyOffset, strconv.Itoa(pos.Offset))
	}
	return err
}

// NewRenderError creates a render error
func NewRenderError(msg string, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeRender, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeRender, msg)
	}
	if pos, ok := positionOf(cause); ok {
		err = err.
			WithMetadata(MetaKeyLine, strconv.Itoa(pos.Line)).
			WithMetadata(MetaKeyColumn, strconv.Itoa(pos.Column))
	}
	return err
}

// NewSchemaError creates a schema error with the offending name or token
func NewSchemaError(msg, name string, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeSchema, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeSchema, msg)
	}
	if name != "" {
		err = err.WithMetadata(MetaKeySchema, name)
	}
	return err
}

// NewSerializationError creates an error for values with no canonical
// JSON representation (cycles, channels, functions).
func NewSerializationError(cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeSerialization, ErrMsgSerializationFailed)
}

// NewToolNotFoundError creates an error for unresolvable tool names
func NewToolNotFoundError(name string) error {
	return cuserr.NewNotFoundError(MetaKeyTool, ErrMsgToolNotFound).
		WithMetadata(MetaKeyTool, name)
}

// NewRegistryExistsError creates a duplicate-registration error
func NewRegistryExistsError(msg, name string) error {
	return cuserr.NewValidationError(ErrCodeRegistry, msg).
		WithMetadata(MetaKeyName, name)
}

// NewStoreError creates a store error with the prompt name
func NewStoreError(msg, name string, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeStore, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeStore, msg)
	}
	if name != "" {
		err = err.WithMetadata(MetaKeyName, name)
	}
	return err
}

// NewPromptNotFoundError creates a not-found error for store lookups
func NewPromptNotFoundError(name string) error {
	return cuserr.NewNotFoundError(MetaKeyName, ErrMsgPromptNotFound).
		WithMetadata(MetaKeyName, name)
}

// positionOf extracts a source position from engine errors
func positionOf(err error) (Position, bool) {
	var lexErr *internal.LexerError
	if errors.As(err, &lexErr) {
		return lexErr.Position, true
	}
	var parseErr *internal.ParserError
	if errors.As(err, &parseErr) {
		return parseErr.Position, true
	}
	var renderErr *internal.RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Position, true
	}
	return Position{}, false
}
