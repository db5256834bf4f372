package internal

import (
	"context"
	"reflect"
	"strings"

	"go.uber.org/zap"
)

// HelperFn is the signature of all template helpers. Positional params
// and hash arguments are fully evaluated before invocation; block
// helpers re-enter evaluation through the options callbacks.
type HelperFn func(params []any, opts *HelperOptions) (any, error)

// HelperOptions carries the evaluated hash, the ambient context, and
// the re-entry callbacks available to a helper.
type HelperOptions struct {
	Name    string
	Hash    map[string]any
	Context any

	ev           *evaluator
	scope        *Scope
	frame        *DataFrame
	program      *ProgramNode
	inverse      *ProgramNode
	programStrip Strip
	inverseStrip Strip
	position     Position
}

// IsBlock reports whether the helper was invoked in block form
func (o *HelperOptions) IsBlock() bool {
	return o.program != nil || o.inverse != nil
}

// Fn renders the block's program against the current context
func (o *HelperOptions) Fn() (string, error) {
	return o.fnProgram(o.program, o.programStrip, o.scope, o.frame)
}

// FnWith renders the block's program against a helper-controlled
// context. data entries become @-variables for the nested program and
// blockParams bind the block's declared |names| in order.
func (o *HelperOptions) FnWith(context any, data map[string]any, blockParams ...any) (string, error) {
	frame := o.frame
	if data != nil {
		frame = NewDataFrame(o.frame, data)
	}
	scope := o.scope.ChildWithBlockParams(context, o.bindBlockParams(blockParams))
	return o.fnProgram(o.program, o.programStrip, scope, frame)
}

// Inverse renders the block's inverse program against the current context
func (o *HelperOptions) Inverse() (string, error) {
	return o.fnProgram(o.inverse, o.inverseStrip, o.scope, o.frame)
}

// Data resolves an @-variable visible at the invocation site
func (o *HelperOptions) Data(name string) any {
	val, _ := o.frame.Get(name)
	return val
}

func (o *HelperOptions) fnProgram(program *ProgramNode, strip Strip, scope *Scope, frame *DataFrame) (string, error) {
	if program == nil {
		return "", nil
	}
	return o.ev.evalProgram(program, scope, frame, strip.Before, strip.After)
}

// bindBlockParams zips declared block param names with supplied values
func (o *HelperOptions) bindBlockParams(values []any) map[string]any {
	if o.program == nil || len(o.program.BlockParams) == 0 || len(values) == 0 {
		return nil
	}
	bound := make(map[string]any, len(o.program.BlockParams))
	for i, name := range o.program.BlockParams {
		if i >= len(values) {
			break
		}
		bound[name] = values[i]
	}
	return bound
}

// evaluator walks the AST for a single render call. All fields are
// exclusively owned by that call; only the helper map and compiled
// template are shared (read-only) with other renders.
type evaluator struct {
	ctx             context.Context
	helpers         map[string]HelperFn
	partials        map[string]string
	partialResolver PartialResolverFunc
	inlinePartials  map[string]*ProgramNode
	compiled        map[string]*Template
	partialStack    []string
	strict          bool
	escape          bool
	maxDepth        int
	logger          *zap.Logger
}

// evalProgram renders a statement sequence. stripStart/stripEnd carry
// block-interior whitespace control into the program's edge text nodes;
// interior text nodes are trimmed according to their neighbors' flags.
func (e *evaluator) evalProgram(program *ProgramNode, scope *Scope, frame *DataFrame, stripStart, stripEnd bool) (string, error) {
	var sb strings.Builder
	body := program.Body
	for i, node := range body {
		if text, ok := node.(*TextNode); ok {
			value := text.Value
			if (i == 0 && stripStart) || (i > 0 && nodeStrip(body[i-1]).After) {
				value = strings.TrimLeft(value, " \t\r\n")
			}
			if (i == len(body)-1 && stripEnd) || (i < len(body)-1 && nodeStrip(body[i+1]).Before) {
				value = strings.TrimRight(value, " \t\r\n")
			}
			sb.WriteString(value)
			continue
		}
		out, err := e.evalStatement(node, scope, frame)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

func (e *evaluator) evalStatement(node Node, scope *Scope, frame *DataFrame) (string, error) {
	switch v := node.(type) {
	case *CommentNode:
		return "", nil
	case *MustacheNode:
		return e.evalMustache(v, scope, frame)
	case *BlockNode:
		return e.evalBlock(v, scope, frame)
	case *PartialNode:
		return e.evalPartial(v, scope, frame)
	default:
		return "", newRenderError(ErrMsgUnexpectedToken, "", node.Pos(), nil)
	}
}

// evalMustache renders {{expr}} output, applying HTML escaping unless
// the form is unescaped or the value is a SafeString.
func (e *evaluator) evalMustache(node *MustacheNode, scope *Scope, frame *DataFrame) (string, error) {
	value, err := e.evalMustacheValue(node, scope, frame)
	if err != nil {
		return "", err
	}
	out := Stringify(value)
	if e.escape && node.Escaped {
		if _, safe := value.(SafeString); !safe {
			out = EscapeHTML(out)
		}
	}
	return out, nil
}

func (e *evaluator) evalMustacheValue(node *MustacheNode, scope *Scope, frame *DataFrame) (any, error) {
	path, isPath := node.Path.(*PathExpression)
	if !isPath {
		// literal mustache target, e.g. {{"text"}}
		return e.evalExpression(node.Path, scope, frame)
	}

	if path.IsSimple() {
		if helper, ok := e.helpers[path.Parts[0]]; ok {
			return e.callHelper(path.Parts[0], helper, nil, node.Params, node.Hash, scope, frame, path.Position)
		}
	}

	if len(node.Params) > 0 || node.Hash != nil {
		return nil, newRenderError(ErrMsgUnknownHelper, path.Original, path.Position, nil)
	}

	value, found := ResolvePath(scope, frame, path)
	if !found && e.strict {
		return nil, newRenderError(ErrMsgUndefinedVariable, path.Original, path.Position, nil)
	}
	return value, nil
}

// evalExpression evaluates a parameter or hash value
func (e *evaluator) evalExpression(expr Expression, scope *Scope, frame *DataFrame) (any, error) {
	switch v := expr.(type) {
	case *StringLiteral:
		return v.Value, nil
	case *NumberLiteral:
		if v.IsInt() {
			return int(v.Value), nil
		}
		return v.Value, nil
	case *BooleanLiteral:
		return v.Value, nil
	case *NullLiteral, *UndefinedLiteral:
		return nil, nil
	case *PathExpression:
		value, found := ResolvePath(scope, frame, v)
		if !found && e.strict {
			return nil, newRenderError(ErrMsgUndefinedVariable, v.Original, v.Position, nil)
		}
		return value, nil
	case *SubExpression:
		return e.evalSubExpression(v, scope, frame)
	default:
		return nil, newRenderError(ErrMsgUnexpectedToken, expr.String(), expr.Pos(), nil)
	}
}

func (e *evaluator) evalSubExpression(sexpr *SubExpression, scope *Scope, frame *DataFrame) (any, error) {
	if sexpr.Path.IsSimple() {
		if helper, ok := e.helpers[sexpr.Path.Parts[0]]; ok {
			return e.callHelper(sexpr.Path.Parts[0], helper, nil, sexpr.Params, sexpr.Hash, scope, frame, sexpr.Position)
		}
	}
	if len(sexpr.Params) > 0 || sexpr.Hash != nil {
		return nil, newRenderError(ErrMsgSubexprNeedsHelper, sexpr.Path.Original, sexpr.Position, nil)
	}
	value, found := ResolvePath(scope, frame, sexpr.Path)
	if !found && e.strict {
		return nil, newRenderError(ErrMsgUndefinedVariable, sexpr.Path.Original, sexpr.Position, nil)
	}
	return value, nil
}

// callHelper evaluates params and hash, then invokes the helper.
// blockCall is nil for mustache/subexpression invocations.
func (e *evaluator) callHelper(name string, helper HelperFn, blockCall *BlockNode, params []Expression, hash *Hash, scope *Scope, frame *DataFrame, pos Position) (any, error) {
	evaluated := make([]any, 0, len(params))
	for _, param := range params {
		value, err := e.evalExpression(param, scope, frame)
		if err != nil {
			return nil, err
		}
		evaluated = append(evaluated, value)
	}
	hashValues, err := e.evalHash(hash, scope, frame)
	if err != nil {
		return nil, err
	}

	opts := &HelperOptions{
		Name:     name,
		Hash:     hashValues,
		Context:  scope.Value(),
		ev:       e,
		scope:    scope,
		frame:    frame,
		position: pos,
	}
	if blockCall != nil {
		opts.program = blockCall.Program
		opts.inverse = blockCall.Inverse
		opts.programStrip = programEdgeStrip(blockCall)
		opts.inverseStrip = inverseEdgeStrip(blockCall)
		if blockCall.IsInverse {
			opts.program, opts.inverse = opts.inverse, opts.program
			opts.programStrip, opts.inverseStrip = opts.inverseStrip, opts.programStrip
		}
	}

	e.logger.Debug(LogMsgHelperInvoked, zap.String(LogFieldHelper, name))
	result, err := helper(evaluated, opts)
	if err != nil {
		if isEngineError(err) {
			return nil, err
		}
		return nil, newRenderError(ErrMsgHelperFailed, name, pos, err)
	}
	return result, nil
}

func (e *evaluator) evalHash(hash *Hash, scope *Scope, frame *DataFrame) (map[string]any, error) {
	if hash == nil {
		return nil, nil
	}
	values := make(map[string]any, len(hash.Pairs))
	for _, pair := range hash.Pairs {
		value, err := e.evalExpression(pair.Value, scope, frame)
		if err != nil {
			return nil, err
		}
		values[pair.Key] = value
	}
	return values, nil
}

// programEdgeStrip computes the interior strip flags for a block's
// program: its leading edge follows the open tag, its trailing edge
// precedes either the else marker or the close tag.
func programEdgeStrip(node *BlockNode) Strip {
	strip := Strip{Before: node.OpenStrip.After}
	if node.Inverse != nil {
		strip.After = node.ElseStrip.Before
	} else {
		strip.After = node.CloseStrip.Before
	}
	return strip
}

// inverseEdgeStrip computes the interior strip flags for the inverse
// program between the else marker and the close tag.
func inverseEdgeStrip(node *BlockNode) Strip {
	return Strip{Before: node.ElseStrip.After, After: node.CloseStrip.Before}
}

// evalBlock renders {{#...}} and {{^...}} sections
func (e *evaluator) evalBlock(node *BlockNode, scope *Scope, frame *DataFrame) (string, error) {
	if node.IsDecorator {
		name := node.Params[0].(*StringLiteral).Value
		e.inlinePartials[name] = node.Program
		e.logger.Debug(LogMsgInlineRegistered, zap.String(LogFieldPartial, name))
		return "", nil
	}

	if node.IsRaw {
		return e.evalRawBlock(node, scope, frame)
	}

	if node.Path.IsSimple() {
		if helper, ok := e.helpers[node.Path.Parts[0]]; ok {
			result, err := e.callHelper(node.Path.Parts[0], helper, node, node.Params, node.Hash, scope, frame, node.Position)
			if err != nil {
				return "", err
			}
			return Stringify(result), nil
		}
	}

	if len(node.Params) > 0 || node.Hash != nil {
		return "", newRenderError(ErrMsgUnknownHelper, node.Path.Original, node.Position, nil)
	}

	return e.evalBareBlock(node, scope, frame)
}

// evalBareBlock implements blocks whose target is a context path, not
// a helper: falsy values render the inverse, collections iterate, and
// any other truthy value becomes the program's new context.
func (e *evaluator) evalBareBlock(node *BlockNode, scope *Scope, frame *DataFrame) (string, error) {
	value, found := ResolvePath(scope, frame, node.Path)
	if !found && e.strict {
		return "", newRenderError(ErrMsgUndefinedVariable, node.Path.Original, node.Position, nil)
	}

	program, programStrip := node.Program, programEdgeStrip(node)
	inverse, inverseStrip := node.Inverse, inverseEdgeStrip(node)
	if node.IsInverse {
		program, inverse = inverse, program
		programStrip, inverseStrip = inverseStrip, programStrip
	}

	renderProgram := func(p *ProgramNode, strip Strip, s *Scope, f *DataFrame) (string, error) {
		if p == nil {
			return "", nil
		}
		return e.evalProgram(p, s, f, strip.Before, strip.After)
	}

	if !IsTruthy(value) {
		return renderProgram(inverse, inverseStrip, scope, frame)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		var sb strings.Builder
		length := rv.Len()
		for i := 0; i < length; i++ {
			item := rv.Index(i).Interface()
			itemFrame := NewDataFrame(frame, map[string]any{
				DataVarIndex: i,
				DataVarFirst: i == 0,
				DataVarLast:  i == length-1,
			})
			itemScope := scope.ChildWithBlockParams(item, zipBlockParams(node.BlockParams, item, i))
			out, err := renderProgram(program, programStrip, itemScope, itemFrame)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
		}
		return sb.String(), nil
	}

	childScope := scope.ChildWithBlockParams(value, zipBlockParams(node.BlockParams, value))
	return renderProgram(program, programStrip, childScope, frame)
}

// evalRawBlock emits raw content verbatim, or routes it through a
// helper of the block's name when one is registered.
func (e *evaluator) evalRawBlock(node *BlockNode, scope *Scope, frame *DataFrame) (string, error) {
	if node.Path.IsSimple() {
		if helper, ok := e.helpers[node.Path.Parts[0]]; ok {
			result, err := e.callHelper(node.Path.Parts[0], helper, node, node.Params, node.Hash, scope, frame, node.Position)
			if err != nil {
				return "", err
			}
			return Stringify(result), nil
		}
	}
	return node.Program.String(), nil
}

// zipBlockParams binds declared block params positionally
func zipBlockParams(names []string, values ...any) map[string]any {
	if len(names) == 0 {
		return nil
	}
	bound := make(map[string]any, len(names))
	for i, name := range names {
		if i >= len(values) {
			break
		}
		bound[name] = values[i]
	}
	return bound
}

// evalPartial expands {{> name}} and {{#> name}} references. Partials
// resolve through inline declarations, the static partial map, then
// the async resolver; cycles and depth overruns fail the render.
func (e *evaluator) evalPartial(node *PartialNode, scope *Scope, frame *DataFrame) (string, error) {
	name := node.Name

	if len(e.partialStack) >= e.maxDepth {
		return "", newRenderError(ErrMsgPartialDepth, name, node.Position, nil)
	}
	for _, inFlight := range e.partialStack {
		if inFlight == name {
			return "", newRenderError(ErrMsgCircularPartial, name, node.Position, nil)
		}
	}

	program, found, err := e.resolvePartialProgram(name)
	if err != nil {
		return "", err
	}
	if !found {
		if node.Fallback != nil {
			return e.evalProgram(node.Fallback, scope, frame, false, false)
		}
		return "", newRenderError(ErrMsgPartialNotFound, name, node.Position, nil)
	}

	partialScope, err := e.partialScope(node, scope, frame)
	if err != nil {
		return "", err
	}

	e.partialStack = append(e.partialStack, name)
	defer func() { e.partialStack = e.partialStack[:len(e.partialStack)-1] }()

	e.logger.Debug(LogMsgPartialExpand,
		zap.String(LogFieldPartial, name),
		zap.Int(LogFieldDepth, len(e.partialStack)))
	return e.evalProgram(program, partialScope, frame, false, false)
}

// resolvePartialProgram finds and compiles a partial by name
func (e *evaluator) resolvePartialProgram(name string) (*ProgramNode, bool, error) {
	if program, ok := e.inlinePartials[name]; ok {
		return program, true, nil
	}
	if tpl, ok := e.compiled[name]; ok {
		return tpl.Program, true, nil
	}

	source, ok := e.partials[name]
	if !ok && e.partialResolver != nil {
		if err := e.ctx.Err(); err != nil {
			return nil, false, newRenderError(ErrMsgRenderCancelled, name, Position{}, err)
		}
		resolved, found, err := e.partialResolver(e.ctx, name)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return nil, false, nil
		}
		source, ok = resolved, true
		e.logger.Debug(LogMsgPartialResolved, zap.String(LogFieldPartial, name))
	}
	if !ok {
		return nil, false, nil
	}

	tpl, err := DefaultCompile(source, e.logger)
	if err != nil {
		return nil, false, err
	}
	e.compiled[name] = tpl
	return tpl.Program, true, nil
}

// partialScope builds the partial's context: an explicit context
// expression replaces the current value, and hash arguments overlay a
// map context (or stand alone as one).
func (e *evaluator) partialScope(node *PartialNode, scope *Scope, frame *DataFrame) (*Scope, error) {
	base := scope.Value()
	if node.Context != nil {
		value, err := e.evalExpression(node.Context, scope, frame)
		if err != nil {
			return nil, err
		}
		base = value
	}

	if node.Hash == nil {
		return scope.Child(base), nil
	}

	hashValues, err := e.evalHash(node.Hash, scope, frame)
	if err != nil {
		return nil, err
	}
	if baseMap, ok := base.(map[string]any); ok {
		merged := make(map[string]any, len(baseMap)+len(hashValues))
		for k, v := range baseMap {
			merged[k] = v
		}
		for k, v := range hashValues {
			merged[k] = v
		}
		return scope.Child(merged), nil
	}
	return scope.Child(base).Child(hashValues), nil
}

// RenderError represents an evaluation failure with position context
type RenderError struct {
	Message  string
	Name     string
	Position Position
	Cause    error
}

func (e *RenderError) Error() string {
	msg := e.Message
	if e.Name != "" {
		msg += ": " + e.Name
	}
	if e.Position.Line > 0 {
		msg += " at " + e.Position.String()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

func newRenderError(msg, name string, pos Position, cause error) error {
	return &RenderError{Message: msg, Name: name, Position: pos, Cause: cause}
}

// isEngineError reports whether err is already a typed engine error
// that should propagate unchanged.
func isEngineError(err error) bool {
	switch err.(type) {
	case *RenderError, *ParserError, *LexerError:
		return true
	}
	return false
}
