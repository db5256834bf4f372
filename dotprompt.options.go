package dotprompt

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Dotprompt engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an engine.
type engineConfig struct {
	logger          *zap.Logger
	defaultModel    string
	modelConfigs    map[string]map[string]any
	helpers         map[string]HelperFn
	partials        map[string]string
	tools           map[string]ToolDefinition
	toolResolver    ToolResolver
	schemas         map[string]map[string]any
	schemaResolver  SchemaResolver
	partialResolver PartialResolver
	store           PromptStore
	strict          bool
	maxPartialDepth int
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		modelConfigs:    make(map[string]map[string]any),
		helpers:         make(map[string]HelperFn),
		partials:        make(map[string]string),
		tools:           make(map[string]ToolDefinition),
		schemas:         make(map[string]map[string]any),
		maxPartialDepth: DefaultMaxPartialDepth,
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithDefaultModel sets the model used when neither frontmatter nor
// call-time options name one.
func WithDefaultModel(model string) Option {
	return func(c *engineConfig) {
		c.defaultModel = model
	}
}

// WithModelConfigs registers per-model default generation configs.
// The matching entry is merged beneath a prompt's own config.
func WithModelConfigs(configs map[string]map[string]any) Option {
	return func(c *engineConfig) {
		for model, config := range configs {
			c.modelConfigs[model] = config
		}
	}
}

// WithHelpers registers custom template helpers
func WithHelpers(helpers map[string]HelperFn) Option {
	return func(c *engineConfig) {
		for name, fn := range helpers {
			c.helpers[name] = fn
		}
	}
}

// WithPartials registers named partial template sources
func WithPartials(partials map[string]string) Option {
	return func(c *engineConfig) {
		for name, source := range partials {
			c.partials[name] = source
		}
	}
}

// WithPartialResolver sets a dynamic partial lookup consulted when a
// referenced partial has no static registration.
func WithPartialResolver(resolver PartialResolver) Option {
	return func(c *engineConfig) {
		c.partialResolver = resolver
	}
}

// WithTools registers tool definitions referenced by name in prompts
func WithTools(tools []ToolDefinition) Option {
	return func(c *engineConfig) {
		for _, tool := range tools {
			c.tools[tool.Name] = tool
		}
	}
}

// WithToolResolver sets a dynamic tool lookup consulted when a prompt
// names a tool with no static registration.
func WithToolResolver(resolver ToolResolver) Option {
	return func(c *engineConfig) {
		c.toolResolver = resolver
	}
}

// WithSchemas registers named JSON schemas referenced from picoschema
func WithSchemas(schemas map[string]map[string]any) Option {
	return func(c *engineConfig) {
		for name, schema := range schemas {
			c.schemas[name] = schema
		}
	}
}

// WithSchemaResolver sets a dynamic schema lookup consulted when a
// named schema has no static registration.
func WithSchemaResolver(resolver SchemaResolver) Option {
	return func(c *engineConfig) {
		c.schemaResolver = resolver
	}
}

// WithStore attaches a prompt store. Render and Compile fall back to
// it for prompts and partials not supplied directly.
func WithStore(store PromptStore) Option {
	return func(c *engineConfig) {
		c.store = store
	}
}

// WithStrictMode makes references to undefined variables a render
// error instead of empty output.
func WithStrictMode(strict bool) Option {
	return func(c *engineConfig) {
		c.strict = strict
	}
}

// WithMaxPartialDepth sets the maximum partial expansion depth.
// Default: 100
func WithMaxPartialDepth(depth int) Option {
	return func(c *engineConfig) {
		if depth > 0 {
			c.maxPartialDepth = depth
		}
	}
}
