package dotprompt

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/itsatony/go-dotprompt/internal"
)

// DomainHelpers returns the prompt-domain helper set: marker emitters
// consumed by the message assembler, JSON serialization, and strict
// equality conditionals. Returned fresh per call so engines can layer
// user helpers on top without sharing state.
func DomainHelpers() map[string]HelperFn {
	return map[string]HelperFn{
		HelperNameJSON:         jsonHelper,
		HelperNameRole:         roleHelper,
		HelperNameHistory:      historyHelper,
		HelperNameSection:      sectionHelper,
		HelperNameMedia:        mediaHelper,
		HelperNameIfEquals:     ifEqualsHelper,
		HelperNameUnlessEquals: unlessEqualsHelper,
	}
}

// jsonHelper serializes its argument to JSON. An integer indent hash
// argument pretty-prints; values with no JSON representation are an
// error rather than a placeholder string.
func jsonHelper(params []any, opts *HelperOptions) (any, error) {
	var value any
	if len(params) > 0 {
		value = params[0]
	}

	indent := 0
	if raw, ok := opts.Hash[HashKeyIndent]; ok {
		switch n := raw.(type) {
		case int:
			indent = n
		case float64:
			indent = int(n)
		}
	}

	var (
		out []byte
		err error
	)
	if indent > 0 {
		out, err = json.MarshalIndent(value, "", strings.Repeat(" ", indent))
	} else {
		out, err = json.Marshal(value)
	}
	if err != nil {
		return nil, NewSerializationError(err)
	}
	return SafeString(out), nil
}

// roleHelper emits a role marker: {{role "system"}}
func roleHelper(params []any, _ *HelperOptions) (any, error) {
	name := ""
	if len(params) > 0 {
		name = internal.Stringify(params[0])
	}
	return SafeString(RoleMarkerPrefix + name + MarkerSuffix), nil
}

// historyHelper emits the history splice marker
func historyHelper(_ []any, _ *HelperOptions) (any, error) {
	return SafeString(HistoryMarkerPrefix + MarkerSuffix), nil
}

// sectionHelper emits a named section marker: {{section "output"}}
func sectionHelper(params []any, _ *HelperOptions) (any, error) {
	name := ""
	if len(params) > 0 {
		name = internal.Stringify(params[0])
	}
	return SafeString(SectionMarkerPrefix + " " + name + MarkerSuffix), nil
}

// mediaHelper emits a media marker from url/contentType hash arguments:
// {{media url=photoUrl contentType="image/png"}}
func mediaHelper(_ []any, opts *HelperOptions) (any, error) {
	marker := MediaMarkerPrefix + " " + internal.Stringify(opts.Hash[HashKeyURL])
	if contentType, ok := opts.Hash[HashKeyContentType]; ok {
		marker += " " + internal.Stringify(contentType)
	}
	return SafeString(marker + MarkerSuffix), nil
}

// ifEqualsHelper renders its block when both arguments are strictly
// equal: same dynamic type and same value. 5 and "5" are not equal.
func ifEqualsHelper(params []any, opts *HelperOptions) (any, error) {
	if strictEquals(params) {
		return blockResult(opts.Fn())
	}
	return blockResult(opts.Inverse())
}

// unlessEqualsHelper is the negation of ifEquals
func unlessEqualsHelper(params []any, opts *HelperOptions) (any, error) {
	if strictEquals(params) {
		return blockResult(opts.Inverse())
	}
	return blockResult(opts.Fn())
}

// blockResult adapts a block callback's rendered output to a helper
// return value, marking it safe against re-escaping.
func blockResult(out string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return SafeString(out), nil
}

func strictEquals(params []any) bool {
	var a, b any
	if len(params) > 0 {
		a = params[0]
	}
	if len(params) > 1 {
		b = params[1]
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}
