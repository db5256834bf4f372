package dotprompt

import (
	"context"
	"errors"
	"sync"

	"github.com/itsatony/go-cuserr"
	"go.uber.org/zap"

	"github.com/itsatony/go-dotprompt/internal"
)

// Dotprompt is the main entry point for the executable prompt template
// system. It manages helper/partial/tool/schema registries, compiles
// templates with caching, and renders prompts into role-partitioned
// messages. Safe for concurrent use.
type Dotprompt struct {
	config *engineConfig
	logger *zap.Logger

	mu           sync.RWMutex
	helpers      map[string]HelperFn
	partials     map[string]string
	tools        map[string]ToolDefinition
	schemas      map[string]map[string]any
	modelConfigs map[string]map[string]any
	templates    map[string]*internal.Template // compiled cache keyed by source
}

// New creates a new Dotprompt engine with the given options.
func New(opts ...Option) (*Dotprompt, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	helpers := internal.BuiltinHelpers(logger)
	for name, fn := range DomainHelpers() {
		helpers[name] = fn
	}
	for name, fn := range config.helpers {
		helpers[name] = fn
	}

	partials := make(map[string]string, len(config.partials))
	for name, source := range config.partials {
		partials[name] = source
	}

	d := &Dotprompt{
		config:       config,
		logger:       logger,
		helpers:      helpers,
		partials:     partials,
		tools:        config.tools,
		schemas:      config.schemas,
		modelConfigs: config.modelConfigs,
		templates:    make(map[string]*internal.Template),
	}
	logger.Debug(LogMsgEngineCreated,
		zap.String(LogFieldModel, config.defaultModel),
		zap.Bool("strict", config.strict))
	return d, nil
}

// MustNew creates a new Dotprompt engine and panics on error.
func MustNew(opts ...Option) *Dotprompt {
	d, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// DefineHelper registers a custom template helper. Registering a name
// that already exists (including the builtin set) is an error.
func (d *Dotprompt) DefineHelper(name string, fn HelperFn) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.helpers[name]; exists {
		return NewRegistryExistsError(ErrMsgHelperExists, name)
	}
	d.helpers[name] = fn
	d.logger.Debug(LogMsgHelperDefined, zap.String(LogFieldName, name))
	return nil
}

// DefinePartial registers a named partial template source
func (d *Dotprompt) DefinePartial(name, source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.partials[name]; exists {
		return NewRegistryExistsError(ErrMsgPartialExists, name)
	}
	d.partials[name] = source
	d.logger.Debug(LogMsgPartialDefined, zap.String(LogFieldName, name))
	return nil
}

// DefineTool registers a tool definition referenced by name in prompts
func (d *Dotprompt) DefineTool(tool ToolDefinition) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tools[tool.Name]; exists {
		return NewRegistryExistsError(ErrMsgToolExists, tool.Name)
	}
	d.tools[tool.Name] = tool
	d.logger.Debug(LogMsgToolDefined, zap.String(LogFieldName, tool.Name))
	return nil
}

// DefineSchema registers a named JSON schema for picoschema references
func (d *Dotprompt) DefineSchema(name string, schema map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.schemas[name]; exists {
		return NewRegistryExistsError(ErrMsgSchemaExists, name)
	}
	d.schemas[name] = schema
	d.logger.Debug(LogMsgSchemaDefined, zap.String(LogFieldName, name))
	return nil
}

// RegisterModelConfig sets the default generation config merged beneath
// prompts that select the given model.
func (d *Dotprompt) RegisterModelConfig(model string, config map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modelConfigs[model] = config
}

// Parse splits a prompt document into frontmatter metadata and template
func (d *Dotprompt) Parse(source string) (*ParsedPrompt, error) {
	parsed, err := ParseDocument(source)
	if err != nil {
		return nil, err
	}
	d.logger.Debug(LogMsgDocumentParsed,
		zap.String(LogFieldName, parsed.Name),
		zap.Int(LogFieldSource, len(parsed.Template)))
	return parsed, nil
}

// Compile parses a prompt document and returns a reusable render
// function. The template is compiled once; each invocation merges
// per-call data and options.
func (d *Dotprompt) Compile(source string) (PromptFunction, error) {
	parsed, err := d.Parse(source)
	if err != nil {
		return nil, err
	}
	tpl, err := d.compileTemplate(parsed.Template)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, data *DataArgument, options *PromptMetadata) (*RenderedPrompt, error) {
		return d.renderCompiled(ctx, parsed, tpl, data, options)
	}, nil
}

// Render parses, compiles and renders a prompt document in one step.
// For repeated rendering of the same source, use Compile.
func (d *Dotprompt) Render(ctx context.Context, source string, data *DataArgument, options *PromptMetadata) (*RenderedPrompt, error) {
	fn, err := d.Compile(source)
	if err != nil {
		return nil, err
	}
	return fn(ctx, data, options)
}

// RenderMetadata resolves a document's effective metadata without
// rendering its template body.
func (d *Dotprompt) RenderMetadata(ctx context.Context, source string, options *PromptMetadata) (*PromptMetadata, error) {
	parsed, err := d.Parse(source)
	if err != nil {
		return nil, err
	}
	return d.RenderParsedMetadata(ctx, parsed, options)
}

// RenderParsedMetadata resolves effective metadata for an already
// parsed prompt: model config defaults beneath frontmatter beneath
// call-time options, then tool and schema resolution.
func (d *Dotprompt) RenderParsedMetadata(ctx context.Context, parsed *ParsedPrompt, options *PromptMetadata) (*PromptMetadata, error) {
	merged := mergeMetadata(parsed.PromptMetadata, options)

	if merged.Model == "" {
		merged.Model = d.config.defaultModel
	}
	d.mu.RLock()
	modelConfig := d.modelConfigs[merged.Model]
	d.mu.RUnlock()
	if modelConfig != nil {
		merged.Config = mergeConfigMaps(modelConfig, merged.Config)
	}

	if err := d.resolveTools(ctx, &merged); err != nil {
		return nil, err
	}
	if err := d.resolveSchemas(ctx, &merged); err != nil {
		return nil, err
	}

	d.logger.Debug(LogMsgMetadataResolved,
		zap.String(LogFieldName, merged.Name),
		zap.String(LogFieldModel, merged.Model),
		zap.Int(LogFieldTools, len(merged.ToolDefs)))
	return &merged, nil
}

// LoadPrompt reads and parses a prompt from the attached store
func (d *Dotprompt) LoadPrompt(ctx context.Context, name string, opts *LoadOptions) (*ParsedPrompt, error) {
	if d.config.store == nil {
		return nil, NewStoreError(ErrMsgStoreUnavailable, name, nil)
	}
	data, err := d.config.store.Load(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	parsed, err := d.Parse(data.Source)
	if err != nil {
		return nil, err
	}
	if parsed.Name == "" {
		parsed.Name = data.Name
	}
	if parsed.Variant == "" {
		parsed.Variant = data.Variant
	}
	if parsed.Version == "" {
		parsed.Version = data.Version
	}
	d.logger.Debug(LogMsgPromptLoaded,
		zap.String(LogFieldName, data.Name),
		zap.String(LogFieldVariant, data.Variant))
	return parsed, nil
}

// RenderNamed loads a prompt from the attached store by name and
// renders it against per-call data. A variant or version named in
// options selects the stored entry to load.
func (d *Dotprompt) RenderNamed(ctx context.Context, name string, data *DataArgument, options *PromptMetadata) (*RenderedPrompt, error) {
	var loadOpts *LoadOptions
	if options != nil && (options.Variant != "" || options.Version != "") {
		loadOpts = &LoadOptions{Variant: options.Variant, Version: options.Version}
	}
	parsed, err := d.LoadPrompt(ctx, name, loadOpts)
	if err != nil {
		return nil, err
	}
	tpl, err := d.compileTemplate(parsed.Template)
	if err != nil {
		return nil, err
	}
	return d.renderCompiled(ctx, parsed, tpl, data, options)
}

// renderCompiled renders a compiled template and assembles messages
func (d *Dotprompt) renderCompiled(ctx context.Context, parsed *ParsedPrompt, tpl *internal.Template, data *DataArgument, options *PromptMetadata) (*RenderedPrompt, error) {
	if data == nil {
		data = &DataArgument{}
	}

	metadata, err := d.RenderParsedMetadata(ctx, parsed, options)
	if err != nil {
		return nil, err
	}

	var defaults map[string]any
	if metadata.Input != nil {
		defaults = metadata.Input.Default
	}
	input := mergeConfigMaps(defaults, data.Input)

	rendered, err := tpl.Render(ctx, input, &internal.RenderOptions{
		Helpers:         d.snapshotHelpers(),
		Partials:        d.snapshotPartials(),
		PartialResolver: d.partialSource(),
		Data:            mergeConfigMaps(data.Context),
		Strict:          d.config.strict,
		MaxPartialDepth: d.config.maxPartialDepth,
		Logger:          d.logger,
	})
	if err != nil {
		return nil, NewRenderError(ErrMsgRenderFailed, err)
	}

	messages := ToMessages(rendered, data)
	d.logger.Debug(LogMsgRenderComplete,
		zap.String(LogFieldName, metadata.Name),
		zap.Int(LogFieldMessages, len(messages)))
	return &RenderedPrompt{PromptMetadata: *metadata, Messages: messages}, nil
}

// compileTemplate compiles template source with caching
func (d *Dotprompt) compileTemplate(source string) (*internal.Template, error) {
	d.mu.RLock()
	tpl, ok := d.templates[source]
	d.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := internal.DefaultCompile(source, d.logger)
	if err != nil {
		return nil, NewParseError(ErrMsgParseFailed, err)
	}

	d.mu.Lock()
	d.templates[source] = tpl
	d.mu.Unlock()
	d.logger.Debug(LogMsgTemplateCompiled, zap.Int(LogFieldSource, len(source)))
	return tpl, nil
}

// resolveTools turns tool names into definitions: static registrations
// first, then the resolver. Without a resolver, unregistered names stay
// in Tools for downstream resolution; with one, an unresolvable name is
// an error.
func (d *Dotprompt) resolveTools(ctx context.Context, metadata *PromptMetadata) error {
	if len(metadata.Tools) == 0 {
		return nil
	}

	defs := append([]ToolDefinition(nil), metadata.ToolDefs...)
	var unresolved []string
	for _, name := range metadata.Tools {
		d.mu.RLock()
		tool, ok := d.tools[name]
		d.mu.RUnlock()
		if ok {
			defs = append(defs, tool)
			continue
		}
		if d.config.toolResolver == nil {
			unresolved = append(unresolved, name)
			continue
		}
		resolved, found, err := d.config.toolResolver(ctx, name)
		if err != nil {
			return err
		}
		if !found || resolved == nil {
			return NewToolNotFoundError(name)
		}
		d.logger.Debug(LogMsgToolResolved, zap.String(LogFieldName, name))
		defs = append(defs, *resolved)
	}

	metadata.Tools = unresolved
	metadata.ToolDefs = defs
	return nil
}

// resolveSchemas expands picoschema input/output declarations
func (d *Dotprompt) resolveSchemas(ctx context.Context, metadata *PromptMetadata) error {
	opts := &PicoschemaOptions{SchemaResolver: d.schemaSource()}

	if metadata.Input != nil && metadata.Input.Schema != nil {
		schema, err := Picoschema(ctx, metadata.Input.Schema, opts)
		if err != nil {
			return err
		}
		input := *metadata.Input
		input.Schema = schema
		metadata.Input = &input
	}
	if metadata.Output != nil && metadata.Output.Schema != nil {
		schema, err := Picoschema(ctx, metadata.Output.Schema, opts)
		if err != nil {
			return err
		}
		output := *metadata.Output
		output.Schema = schema
		metadata.Output = &output
	}
	return nil
}

// schemaSource chains static schema registrations with the resolver
func (d *Dotprompt) schemaSource() SchemaResolver {
	return func(ctx context.Context, name string) (map[string]any, bool, error) {
		d.mu.RLock()
		schema, ok := d.schemas[name]
		d.mu.RUnlock()
		if ok {
			d.logger.Debug(LogMsgSchemaResolved, zap.String(LogFieldName, name))
			return schema, true, nil
		}
		if d.config.schemaResolver == nil {
			return nil, false, nil
		}
		return d.config.schemaResolver(ctx, name)
	}
}

// partialSource chains the configured partial resolver with the store
func (d *Dotprompt) partialSource() internal.PartialResolverFunc {
	if d.config.partialResolver == nil && d.config.store == nil {
		return nil
	}
	return func(ctx context.Context, name string) (string, bool, error) {
		if d.config.partialResolver != nil {
			source, found, err := d.config.partialResolver(ctx, name)
			if err != nil || found {
				return source, found, err
			}
		}
		if d.config.store != nil {
			partial, err := d.config.store.LoadPartial(ctx, name, nil)
			if err != nil {
				if errors.Is(err, cuserr.ErrNotFound) {
					return "", false, nil
				}
				return "", false, err
			}
			return partial.Source, true, nil
		}
		return "", false, nil
	}
}

func (d *Dotprompt) snapshotHelpers() map[string]HelperFn {
	d.mu.RLock()
	defer d.mu.RUnlock()
	helpers := make(map[string]HelperFn, len(d.helpers))
	for name, fn := range d.helpers {
		helpers[name] = fn
	}
	return helpers
}

func (d *Dotprompt) snapshotPartials() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	partials := make(map[string]string, len(d.partials))
	for name, source := range d.partials {
		partials[name] = source
	}
	return partials
}

// mergeMetadata overlays call-time options on frontmatter metadata.
// Scalar fields override when set; config maps merge key-wise with the
// overlay winning.
func mergeMetadata(base PromptMetadata, options *PromptMetadata) PromptMetadata {
	merged := base
	if options == nil {
		return merged
	}
	if options.Name != "" {
		merged.Name = options.Name
	}
	if options.Variant != "" {
		merged.Variant = options.Variant
	}
	if options.Version != "" {
		merged.Version = options.Version
	}
	if options.Description != "" {
		merged.Description = options.Description
	}
	if options.Model != "" {
		merged.Model = options.Model
	}
	if options.Tools != nil {
		merged.Tools = options.Tools
	}
	if options.ToolDefs != nil {
		merged.ToolDefs = options.ToolDefs
	}
	if options.Input != nil {
		merged.Input = options.Input
	}
	if options.Output != nil {
		merged.Output = options.Output
	}
	if options.Ext != nil {
		merged.Ext = options.Ext
	}
	if options.Config != nil {
		merged.Config = mergeConfigMaps(merged.Config, options.Config)
	}
	return merged
}

// mergeConfigMaps shallow-merges maps left to right, later keys winning
func mergeConfigMaps(maps ...map[string]any) map[string]any {
	var out map[string]any
	for _, m := range maps {
		if m == nil {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(m))
		}
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
