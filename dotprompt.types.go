package dotprompt

import (
	"context"

	"github.com/itsatony/go-dotprompt/internal"
)

// Position re-exports the engine's source position type
type Position = internal.Position

// HelperFn is the signature of template helpers. See internal.HelperFn.
type HelperFn = internal.HelperFn

// HelperOptions carries hash arguments and block callbacks into a
// helper invocation. See internal.HelperOptions.
type HelperOptions = internal.HelperOptions

// SafeString marks helper output that must bypass HTML escaping
type SafeString = internal.SafeString

// Role identifies the author of a message
type Role string

// Message roles
const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
	RoleTool   Role = "tool"
)

// Part is one typed content element of a message. The variant set is
// closed: TextPart, MediaPart, DataPart, ToolRequestPart,
// ToolResponsePart and PendingPart.
type Part interface {
	isPart()
}

// TextPart is plain message text
type TextPart struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p *TextPart) isPart() {}

// MediaContent is the payload of a MediaPart
type MediaContent struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

// MediaPart references media by URL
type MediaPart struct {
	Media    MediaContent   `json:"media"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p *MediaPart) isPart() {}

// DataPart carries structured data
type DataPart struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p *DataPart) isPart() {}

// ToolRequestContent is the payload of a ToolRequestPart
type ToolRequestContent struct {
	Name  string `json:"name"`
	Ref   string `json:"ref,omitempty"`
	Input any    `json:"input,omitempty"`
}

// ToolRequestPart is a model-issued tool invocation
type ToolRequestPart struct {
	ToolRequest ToolRequestContent `json:"toolRequest"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

func (p *ToolRequestPart) isPart() {}

// ToolResponseContent is the payload of a ToolResponsePart
type ToolResponseContent struct {
	Name   string `json:"name"`
	Ref    string `json:"ref,omitempty"`
	Output any    `json:"output,omitempty"`
}

// ToolResponsePart is a tool's reply to a request
type ToolResponsePart struct {
	ToolResponse ToolResponseContent `json:"toolResponse"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
}

func (p *ToolResponsePart) isPart() {}

// PendingPart marks a named region to be filled in downstream
type PendingPart struct {
	Metadata map[string]any `json:"metadata"`
}

func (p *PendingPart) isPart() {}

// Message is one role-tagged element of a prompt
type Message struct {
	Role     Role           `json:"role"`
	Content  []Part         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolDefinition describes a tool available to the model
type ToolDefinition struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	InputSchema  map[string]any `json:"inputSchema,omitempty"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
}

// InputConfig declares a prompt's input schema and default values
type InputConfig struct {
	Default map[string]any `json:"default,omitempty" yaml:"default"`
	Schema  any            `json:"schema,omitempty" yaml:"schema"`
}

// OutputConfig declares a prompt's expected output
type OutputConfig struct {
	Format string `json:"format,omitempty" yaml:"format"`
	Schema any    `json:"schema,omitempty" yaml:"schema"`
}

// PromptMetadata is the structured form of a prompt's frontmatter,
// merged with registered model config and call-time overrides.
type PromptMetadata struct {
	Name        string                    `json:"name,omitempty"`
	Variant     string                    `json:"variant,omitempty"`
	Version     string                    `json:"version,omitempty"`
	Description string                    `json:"description,omitempty"`
	Model       string                    `json:"model,omitempty"`
	Tools       []string                  `json:"tools,omitempty"`
	ToolDefs    []ToolDefinition          `json:"toolDefs,omitempty"`
	Config      map[string]any            `json:"config,omitempty"`
	Input       *InputConfig              `json:"input,omitempty"`
	Output      *OutputConfig             `json:"output,omitempty"`
	Ext         map[string]map[string]any `json:"ext,omitempty"`
	Raw         map[string]any            `json:"raw,omitempty"`
}

// ParsedPrompt is the result of parsing a prompt document
type ParsedPrompt struct {
	PromptMetadata
	Template string `json:"template"`
}

// RenderedPrompt is the result of rendering a prompt against data
type RenderedPrompt struct {
	PromptMetadata
	Messages []Message `json:"messages"`
}

// DataArgument supplies per-call data: template input values, prior
// conversation messages (history), and context values exposed to the
// template as @-variables.
type DataArgument struct {
	Input    map[string]any `json:"input,omitempty"`
	Messages []Message      `json:"messages,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// PartialResolver looks up partial template source by name. The
// boolean reports whether the partial exists.
type PartialResolver func(ctx context.Context, name string) (string, bool, error)

// ToolResolver looks up a tool definition by name
type ToolResolver func(ctx context.Context, name string) (*ToolDefinition, bool, error)

// SchemaResolver looks up a named JSON schema
type SchemaResolver func(ctx context.Context, name string) (map[string]any, bool, error)

// PromptFunction renders a compiled prompt against per-call data
type PromptFunction func(ctx context.Context, data *DataArgument, options *PromptMetadata) (*RenderedPrompt, error)
