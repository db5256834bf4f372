package internal

import (
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Builtin helper names
const (
	HelperNameIf     = "if"
	HelperNameUnless = "unless"
	HelperNameEach   = "each"
	HelperNameWith   = "with"
	HelperNameLog    = "log"
	HelperNameLookup = "lookup"
)

// Log levels accepted by the log helper
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const logHelperMessage = "template log"

// BuiltinHelpers returns the generic language-level helpers. The map
// is fresh per call so callers may overlay their own registrations.
func BuiltinHelpers(logger *zap.Logger) map[string]HelperFn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return map[string]HelperFn{
		HelperNameIf:     ifHelper,
		HelperNameUnless: unlessHelper,
		HelperNameEach:   eachHelper,
		HelperNameWith:   withHelper,
		HelperNameLog:    logHelper(logger),
		HelperNameLookup: lookupHelper,
	}
}

// blockResult adapts a block callback's rendered output to a helper
// return value, marking it safe so it is not escaped a second time.
func blockResult(out string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return SafeString(out), nil
}

func ifHelper(params []any, opts *HelperOptions) (any, error) {
	var condition any
	if len(params) > 0 {
		condition = params[0]
	}
	if IsTruthy(condition) {
		return blockResult(opts.Fn())
	}
	return blockResult(opts.Inverse())
}

func unlessHelper(params []any, opts *HelperOptions) (any, error) {
	var condition any
	if len(params) > 0 {
		condition = params[0]
	}
	if IsTruthy(condition) {
		return blockResult(opts.Inverse())
	}
	return blockResult(opts.Fn())
}

// eachHelper iterates arrays in order and maps in sorted key order,
// exposing @index, @first, @last and (for maps) @key, and binding the
// block params |item index| when declared.
func eachHelper(params []any, opts *HelperOptions) (any, error) {
	var target any
	if len(params) > 0 {
		target = params[0]
	}
	if !IsTruthy(target) {
		return blockResult(opts.Inverse())
	}

	rv := reflect.ValueOf(target)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var sb strings.Builder
		length := rv.Len()
		for i := 0; i < length; i++ {
			item := rv.Index(i).Interface()
			out, err := opts.FnWith(item, map[string]any{
				DataVarIndex: i,
				DataVarFirst: i == 0,
				DataVarLast:  i == length-1,
			}, item, i)
			if err != nil {
				return nil, err
			}
			sb.WriteString(out)
		}
		return SafeString(sb.String()), nil
	case reflect.Map:
		keys, ok := sortedMapKeys(rv)
		if !ok {
			return blockResult(opts.Inverse())
		}
		var sb strings.Builder
		for i, key := range keys {
			value := rv.MapIndex(reflect.ValueOf(key)).Interface()
			out, err := opts.FnWith(value, map[string]any{
				DataVarKey:   key,
				DataVarIndex: i,
				DataVarFirst: i == 0,
				DataVarLast:  i == len(keys)-1,
			}, value, key)
			if err != nil {
				return nil, err
			}
			sb.WriteString(out)
		}
		return SafeString(sb.String()), nil
	}
	return blockResult(opts.Inverse())
}

// sortedMapKeys returns a map's string keys in lexicographic order so
// iteration output is deterministic.
func sortedMapKeys(rv reflect.Value) ([]string, bool) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	keys := make([]string, 0, rv.Len())
	for _, key := range rv.MapKeys() {
		keys = append(keys, key.String())
	}
	sort.Strings(keys)
	return keys, true
}

func withHelper(params []any, opts *HelperOptions) (any, error) {
	var target any
	if len(params) > 0 {
		target = params[0]
	}
	if !IsTruthy(target) {
		return blockResult(opts.Inverse())
	}
	return blockResult(opts.FnWith(target, nil, target))
}

// logHelper writes its arguments to the engine logger; the level hash
// argument selects the log level.
func logHelper(logger *zap.Logger) HelperFn {
	return func(params []any, opts *HelperOptions) (any, error) {
		parts := make([]string, 0, len(params))
		for _, param := range params {
			parts = append(parts, Stringify(param))
		}
		message := strings.Join(parts, " ")

		level := LogLevelInfo
		if opts.Hash != nil {
			if l, ok := opts.Hash["level"].(string); ok {
				level = l
			}
		}
		field := zap.String(LogFieldMessage, message)
		switch level {
		case LogLevelDebug:
			logger.Debug(logHelperMessage, field)
		case LogLevelWarn:
			logger.Warn(logHelperMessage, field)
		case LogLevelError:
			logger.Error(logHelperMessage, field)
		default:
			logger.Info(logHelperMessage, field)
		}
		return "", nil
	}
}

// lookupHelper resolves a single dynamic segment in a container
func lookupHelper(params []any, opts *HelperOptions) (any, error) {
	if len(params) < 2 {
		return nil, newRenderError(ErrMsgLookupArgs, HelperNameLookup, opts.position, nil)
	}
	value, _ := descendOne(params[0], Stringify(params[1]))
	return value, nil
}
