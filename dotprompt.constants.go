package dotprompt

// Marker protocol strings. Domain helpers emit these into the rendered
// stream; the message assembler consumes them. They are reserved and
// must not collide with legitimate template output.
const (
	RoleMarkerPrefix    = "<<<dotprompt:role:"
	HistoryMarkerPrefix = "<<<dotprompt:history"
	SectionMarkerPrefix = "<<<dotprompt:section"
	MediaMarkerPrefix   = "<<<dotprompt:media:url"
	MarkerSuffix        = ">>>"
)

// Domain helper names
const (
	HelperNameJSON         = "json"
	HelperNameRole         = "role"
	HelperNameHistory      = "history"
	HelperNameSection      = "section"
	HelperNameMedia        = "media"
	HelperNameIfEquals     = "ifEquals"
	HelperNameUnlessEquals = "unlessEquals"
)

// Hash argument names used by domain helpers
const (
	HashKeyURL         = "url"
	HashKeyContentType = "contentType"
	HashKeyIndent      = "indent"
)

// Message metadata keys produced by the assembler
const (
	MetadataKeyPurpose = "purpose"
	MetadataKeyPending = "pending"
	PurposeHistory     = "history"
)

// Frontmatter keys with reserved meaning. Dotted keys become ext
// entries; anything else outside this list is ignored.
var reservedMetadataKeywords = []string{
	"config",
	"description",
	"ext",
	"input",
	"model",
	"name",
	"output",
	"raw",
	"toolDefs",
	"tools",
	"variant",
	"version",
}

// Frontmatter field names
const (
	FieldName        = "name"
	FieldVariant     = "variant"
	FieldVersion     = "version"
	FieldDescription = "description"
	FieldModel       = "model"
	FieldConfig      = "config"
	FieldInput       = "input"
	FieldOutput      = "output"
	FieldTools       = "tools"
	FieldDefault     = "default"
	FieldSchema      = "schema"
	FieldFormat      = "format"
)

// Metadata keys for error context
const (
	MetaKeyLine     = "line"
	MetaKeyColumn   = "column"
	MetaKeyOffset   = "offset"
	MetaKeyName     = "name"
	MetaKeyModel    = "model"
	MetaKeyHelper   = "helper"
	MetaKeyPartial  = "partial"
	MetaKeyTool     = "tool"
	MetaKeySchema   = "schema"
	MetaKeyVariant  = "variant"
	MetaKeyExpected = "expected"
	MetaKeyActual   = "actual"
	MetaKeyPath     = "path"
)

// Log message constants
const (
	LogMsgEngineCreated    = "dotprompt engine created"
	LogMsgDocumentParsed   = "document parsed"
	LogMsgTemplateCompiled = "template compiled"
	LogMsgRenderComplete   = "render complete"
	LogMsgMetadataResolved = "metadata resolved"
	LogMsgHelperDefined    = "helper defined"
	LogMsgPartialDefined   = "partial defined"
	LogMsgToolDefined      = "tool defined"
	LogMsgSchemaDefined    = "schema defined"
	LogMsgToolResolved     = "tool resolved"
	LogMsgSchemaResolved   = "schema resolved"
	LogMsgStoreAttached    = "prompt store attached"
	LogMsgPromptLoaded     = "prompt loaded from store"
	LogMsgPromptsListed    = "prompts listed"
	LogMsgPromptSaved      = "prompt saved to store"
	LogMsgPromptDeleted    = "prompt deleted from store"
)

// Log field names
const (
	LogFieldName     = "name"
	LogFieldModel    = "model"
	LogFieldVariant  = "variant"
	LogFieldMessages = "message_count"
	LogFieldTools    = "tool_count"
	LogFieldSource   = "source_length"
	LogFieldDir      = "directory"
	LogFieldCount    = "count"
)

// Default limits
const (
	DefaultMaxPartialDepth = 100
)
