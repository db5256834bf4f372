package dotprompt

import (
	"context"
	"sort"
	"strings"
)

// Scalar types recognized by Picoschema
var picoschemaScalarTypes = []string{
	"any",
	"boolean",
	"integer",
	"null",
	"number",
	"string",
}

// Picoschema structural tokens
const (
	wildcardPropertyName = "(*)"
	picoOptionalSuffix   = "?"
	picoTypeArray        = "array"
	picoTypeObject       = "object"
	picoTypeEnum         = "enum"
	picoTypeAny          = "any"
	picoTypeNull         = "null"
)

// JSON Schema field names
const (
	schemaFieldType       = "type"
	schemaFieldProperties = "properties"
	schemaFieldRequired   = "required"
	schemaFieldItems      = "items"
	schemaFieldEnum       = "enum"
	schemaFieldDesc       = "description"
	schemaFieldAdditional = "additionalProperties"
)

// PicoschemaOptions configures a conversion
type PicoschemaOptions struct {
	SchemaResolver SchemaResolver
}

// Picoschema expands the compact schema micro-syntax into JSON Schema.
// Inputs already shaped like JSON Schema pass through unchanged; a nil
// or empty input yields nil. Named references resolve through the
// configured resolver and fail hard when unresolvable.
func Picoschema(ctx context.Context, schema any, opts *PicoschemaOptions) (map[string]any, error) {
	if opts == nil {
		opts = &PicoschemaOptions{}
	}
	parser := &picoschemaParser{ctx: ctx, resolver: opts.SchemaResolver}
	return parser.parse(schema)
}

type picoschemaParser struct {
	ctx      context.Context
	resolver SchemaResolver
}

func (p *picoschemaParser) parse(schema any) (map[string]any, error) {
	if schema == nil {
		return nil, nil
	}

	if s, ok := schema.(string); ok {
		if s == "" {
			return nil, nil
		}
		typeName, description := extractDescription(s)
		if isScalarType(typeName) {
			out := map[string]any{schemaFieldType: typeName}
			if description != "" {
				out[schemaFieldDesc] = description
			}
			return out, nil
		}
		resolved, err := p.mustResolveSchema(typeName)
		if err != nil {
			return nil, err
		}
		return withDescription(resolved, description), nil
	}

	obj, ok := schemaMap(schema)
	if !ok {
		return nil, NewSchemaError(ErrMsgSchemaInvalidShape, "", nil)
	}
	if len(obj) == 0 {
		return nil, nil
	}

	if isJSONSchema(obj) {
		return obj, nil
	}
	if props, ok := obj[schemaFieldProperties].(map[string]any); ok && props != nil {
		out := make(map[string]any, len(obj)+1)
		for k, v := range obj {
			out[k] = v
		}
		out[schemaFieldType] = picoTypeObject
		return out, nil
	}

	return p.parsePico(obj)
}

// parsePico recursively parses a Picoschema fragment
func (p *picoschemaParser) parsePico(obj any) (map[string]any, error) {
	if s, ok := obj.(string); ok {
		typeName, description := extractDescription(s)
		if !isScalarType(typeName) {
			resolved, err := p.mustResolveSchema(typeName)
			if err != nil {
				return nil, err
			}
			return withDescription(resolved, description), nil
		}
		if typeName == picoTypeAny {
			if description != "" {
				return map[string]any{schemaFieldDesc: description}, nil
			}
			return map[string]any{}, nil
		}
		out := map[string]any{schemaFieldType: typeName}
		if description != "" {
			out[schemaFieldDesc] = description
		}
		return out, nil
	}

	fields, ok := schemaMap(obj)
	if !ok {
		return nil, NewSchemaError(ErrMsgSchemaInvalidShape, "", nil)
	}

	schema := map[string]any{
		schemaFieldType:       picoTypeObject,
		schemaFieldProperties: map[string]any{},
		schemaFieldAdditional: false,
	}
	properties := schema[schemaFieldProperties].(map[string]any)
	var required []string

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := fields[key]
		if key == wildcardPropertyName {
			additional, err := p.parsePico(value)
			if err != nil {
				return nil, err
			}
			schema[schemaFieldAdditional] = additional
			continue
		}

		name, typeInfo, _ := strings.Cut(key, "(")
		typeInfo = strings.TrimSuffix(typeInfo, ")")
		isOptional := strings.HasSuffix(name, picoOptionalSuffix)
		propertyName := strings.TrimSuffix(name, picoOptionalSuffix)

		if !isOptional {
			required = append(required, propertyName)
		}

		if typeInfo == "" {
			prop, err := p.parsePico(value)
			if err != nil {
				return nil, err
			}
			if isOptional {
				if typeName, ok := prop[schemaFieldType].(string); ok {
					prop[schemaFieldType] = []any{typeName, picoTypeNull}
				}
			}
			properties[propertyName] = prop
			continue
		}

		typeName, description := extractDescription(typeInfo)
		switch typeName {
		case picoTypeArray:
			items, err := p.parsePico(value)
			if err != nil {
				return nil, err
			}
			var arrayType any = picoTypeArray
			if isOptional {
				arrayType = []any{picoTypeArray, picoTypeNull}
			}
			properties[propertyName] = map[string]any{
				schemaFieldType:  arrayType,
				schemaFieldItems: items,
			}
		case picoTypeObject:
			prop, err := p.parsePico(value)
			if err != nil {
				return nil, err
			}
			if isOptional {
				prop[schemaFieldType] = []any{prop[schemaFieldType], picoTypeNull}
			}
			properties[propertyName] = prop
		case picoTypeEnum:
			values, _ := value.([]any)
			if isOptional && !containsNil(values) {
				values = append(values, nil)
			}
			properties[propertyName] = map[string]any{schemaFieldEnum: values}
		default:
			return nil, NewSchemaError(ErrMsgSchemaInvalidParen, typeName, nil)
		}

		if description != "" {
			prop := properties[propertyName].(map[string]any)
			prop[schemaFieldDesc] = description
		}
	}

	if len(required) > 0 {
		schema[schemaFieldRequired] = required
	}
	return schema, nil
}

// mustResolveSchema resolves a named schema reference or fails
func (p *picoschemaParser) mustResolveSchema(name string) (map[string]any, error) {
	if p.resolver == nil {
		return nil, NewSchemaError(ErrMsgSchemaUnsupported, name, nil)
	}
	resolved, found, err := p.resolver(p.ctx, name)
	if err != nil {
		return nil, NewSchemaError(ErrMsgSchemaNotFound, name, err)
	}
	if !found || resolved == nil {
		return nil, NewSchemaError(ErrMsgSchemaNotFound, name, nil)
	}
	return resolved, nil
}

// extractDescription splits "type, description" on the first comma
// only; later commas stay in the description.
func extractDescription(input string) (string, string) {
	typeName, description, found := strings.Cut(input, ",")
	if !found {
		return input, ""
	}
	return strings.TrimSpace(typeName), strings.TrimSpace(description)
}

// isJSONSchema reports whether the map already is JSON Schema: a
// string type naming a known schema type.
func isJSONSchema(schema map[string]any) bool {
	typeName, ok := schema[schemaFieldType].(string)
	if !ok {
		return false
	}
	if typeName == picoTypeObject || typeName == picoTypeArray {
		return true
	}
	return isScalarType(typeName)
}

func containsNil(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}

func isScalarType(name string) bool {
	for _, scalar := range picoschemaScalarTypes {
		if name == scalar {
			return true
		}
	}
	return false
}

// withDescription overlays a description onto a resolved schema copy
func withDescription(schema map[string]any, description string) map[string]any {
	if description == "" {
		return schema
	}
	out := make(map[string]any, len(schema)+1)
	for k, v := range schema {
		out[k] = v
	}
	out[schemaFieldDesc] = description
	return out
}

// schemaMap normalizes YAML map shapes to map[string]any
func schemaMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			name, ok := key.(string)
			if !ok {
				return nil, false
			}
			out[name] = val
		}
		return out, true
	}
	return nil, false
}
