package internal

import (
	"context"

	"go.uber.org/zap"
)

// Template is a compiled template: one immutable program root plus the
// partial names statically discoverable in its body. Safe for
// concurrent reads across parallel renders.
type Template struct {
	Source       string
	Program      *ProgramNode
	PartialNames []string
}

// CompileFunc is the compile contract. It exists as an indirection so
// alternative parser implementations can be swapped in at
// configuration time; DefaultCompile is the recursive-descent one.
type CompileFunc func(source string, logger *zap.Logger) (*Template, error)

// DefaultCompile is the compile implementation used unless overridden
var DefaultCompile CompileFunc = Compile

// Compile tokenizes and parses template source into a Template
func Compile(source string, logger *zap.Logger) (*Template, error) {
	lexer := NewLexer(source, logger)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}
	parser := NewParser(tokens, logger)
	program, err := parser.Parse()
	if err != nil {
		return nil, err
	}
	return &Template{
		Source:       source,
		Program:      program,
		PartialNames: collectPartialNames(program),
	}, nil
}

// PartialResolverFunc resolves a partial name to template source. The
// boolean reports whether the partial exists; resolver errors abort
// the render.
type PartialResolverFunc func(ctx context.Context, name string) (string, bool, error)

// RenderOptions configures a single render call
type RenderOptions struct {
	Helpers         map[string]HelperFn
	Partials        map[string]string
	PartialResolver PartialResolverFunc
	Data            map[string]any // root @-variables
	Strict          bool           // undefined lookups become errors
	EscapeHTML      bool           // escape plain mustache output
	MaxPartialDepth int
	Logger          *zap.Logger
}

// Render evaluates the template against input data
func (t *Template) Render(ctx context.Context, input any, opts *RenderOptions) (string, error) {
	if opts == nil {
		opts = &RenderOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDepth := opts.MaxPartialDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxPartialDepth
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Debug(LogMsgRenderStart, zap.Int(LogFieldSource, len(t.Source)))

	ev := &evaluator{
		ctx:             ctx,
		helpers:         opts.Helpers,
		partials:        opts.Partials,
		partialResolver: opts.PartialResolver,
		inlinePartials:  make(map[string]*ProgramNode),
		compiled:        make(map[string]*Template),
		strict:          opts.Strict,
		escape:          opts.EscapeHTML,
		maxDepth:        maxDepth,
		logger:          logger,
	}

	dataVars := make(map[string]any, len(opts.Data))
	for k, v := range opts.Data {
		dataVars[k] = v
	}

	scope := NewScope(input)
	frame := NewDataFrame(nil, dataVars)

	out, err := ev.evalProgram(t.Program, scope, frame, false, false)
	if err != nil {
		return "", err
	}
	logger.Debug(LogMsgRenderEnd, zap.Int(LogFieldOutput, len(out)))
	return out, nil
}

// collectPartialNames walks the AST gathering static partial names
func collectPartialNames(program *ProgramNode) []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(p *ProgramNode)
	walk = func(p *ProgramNode) {
		if p == nil {
			return
		}
		for _, node := range p.Body {
			switch v := node.(type) {
			case *PartialNode:
				if !seen[v.Name] {
					seen[v.Name] = true
					names = append(names, v.Name)
				}
				walk(v.Fallback)
			case *BlockNode:
				walk(v.Program)
				walk(v.Inverse)
			}
		}
	}
	walk(program)
	return names
}
