package internal

import (
	"reflect"
	"strconv"
)

// Scope is one link in the context chain. A new scope is created on
// every block entry or iteration and discarded at exit; parent links
// are lookup-only back-references, never owned.
type Scope struct {
	value       any
	parent      *Scope
	blockParams map[string]any
}

// NewScope creates a root scope over the given value
func NewScope(value any) *Scope {
	return &Scope{value: value}
}

// Child creates a child scope with a new current value
func (s *Scope) Child(value any) *Scope {
	return &Scope{value: value, parent: s}
}

// ChildWithBlockParams creates a child scope carrying block-local
// parameter bindings visible only within that block's program.
func (s *Scope) ChildWithBlockParams(value any, blockParams map[string]any) *Scope {
	return &Scope{value: value, parent: s, blockParams: blockParams}
}

// Value returns the scope's current context value
func (s *Scope) Value() any {
	return s.value
}

// Parent returns the enclosing scope, or nil at the root
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Root returns the top of the chain
func (s *Scope) Root() *Scope {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Hop walks up the chain by depth parent links; returns nil when the
// chain is shorter than the requested depth.
func (s *Scope) Hop(depth int) *Scope {
	target := s
	for i := 0; i < depth; i++ {
		if target == nil {
			return nil
		}
		target = target.parent
	}
	return target
}

// DataFrame holds @-prefixed data variables. Frames chain like scopes:
// iteration helpers push a frame exposing @index, @key, @first, @last
// without disturbing enclosing frames.
type DataFrame struct {
	vars   map[string]any
	parent *DataFrame
}

// NewDataFrame creates a frame with the given variables on top of an
// optional parent frame.
func NewDataFrame(parent *DataFrame, vars map[string]any) *DataFrame {
	return &DataFrame{vars: vars, parent: parent}
}

// Get resolves a data variable, walking parent frames
func (f *DataFrame) Get(name string) (any, bool) {
	for frame := f; frame != nil; frame = frame.parent {
		if frame.vars != nil {
			if val, ok := frame.vars[name]; ok {
				return val, true
			}
		}
	}
	return nil, false
}

// ResolvePath resolves a path expression against the scope chain and
// data frame. Plain names walk the chain from current to root; paths
// with ../ hops resolve only in the hopped-to scope; @-paths resolve
// through the data frame, with @root jumping to the root context.
func ResolvePath(scope *Scope, frame *DataFrame, path *PathExpression) (any, bool) {
	if path.Data {
		return resolveDataPath(scope, frame, path)
	}

	target := scope.Hop(path.Depth)
	if target == nil {
		return nil, false
	}
	if len(path.Parts) == 0 {
		return target.value, true
	}

	if path.Depth > 0 {
		return descendAll(target.value, path.Parts)
	}

	for s := target; s != nil; s = s.parent {
		if s.blockParams != nil {
			if val, ok := s.blockParams[path.Parts[0]]; ok {
				if len(path.Parts) == 1 {
					return val, true
				}
				return descendAll(val, path.Parts[1:])
			}
		}
		if val, ok := descendOne(s.value, path.Parts[0]); ok {
			if len(path.Parts) == 1 {
				return val, true
			}
			return descendAll(val, path.Parts[1:])
		}
	}
	return nil, false
}

func resolveDataPath(scope *Scope, frame *DataFrame, path *PathExpression) (any, bool) {
	if len(path.Parts) == 0 {
		return nil, false
	}
	name := path.Parts[0]
	rest := path.Parts[1:]

	if name == DataVarRoot {
		rootValue := scope.Root().value
		if len(rest) == 0 {
			return rootValue, true
		}
		return descendAll(rootValue, rest)
	}

	val, ok := frame.Get(name)
	if !ok {
		return nil, false
	}
	if len(rest) == 0 {
		return val, true
	}
	return descendAll(val, rest)
}

// descendAll follows a part sequence into a value
func descendAll(value any, parts []string) (any, bool) {
	current := value
	for _, part := range parts {
		next, ok := descendOne(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// descendOne resolves a single path segment against a container value
func descendOne(value any, part string) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case map[string]any:
		val, ok := v[part]
		return val, ok
	case map[string]string:
		val, ok := v[part]
		return val, ok
	case map[any]any:
		val, ok := v[part]
		return val, ok
	case []any:
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil, false
		}
		return v[idx], true
	}
	return descendReflect(value, part)
}

// descendReflect handles typed maps and slices via reflection
func descendReflect(value any, part string) (any, bool) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(part))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	}
	return nil, false
}
