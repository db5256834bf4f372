// Package dotprompt provides an executable prompt template system for
// LLM applications. A prompt is a single file: YAML frontmatter for
// model metadata plus a Handlebars-style template body that renders
// into role-partitioned messages.
//
// # Basic Usage
//
// Create an engine and render a prompt document:
//
//	dp := dotprompt.MustNew()
//	result, err := dp.Render(ctx, `---
//	model: gemini-1.5-pro
//	input:
//	  schema:
//	    name: string
//	---
//	{{role "system"}}You are a helpful assistant.
//	{{role "user"}}Hello, {{name}}!`, &dotprompt.DataArgument{
//	    Input: map[string]any{"name": "Alice"},
//	}, nil)
//	// result.Messages: [{system ...} {user "Hello, Alice!"}]
//
// # Template Syntax
//
// The template body supports variable interpolation {{name}}, raw
// output {{{html}}}, block helpers {{#if}}/{{#each}}/{{#with}} with
// {{else}} chains, partials {{> header}}, inline partials, block
// parameters (as |item index|), @-data variables (@index, @first,
// @last, @key, @root), parent scope hops (../), subexpressions, raw
// blocks {{{{raw}}}}...{{{{/raw}}}} and whitespace control with ~.
//
// Prompt-domain helpers structure the output: {{role "system"}} and
// {{history}} partition messages, {{media url=photo}} and
// {{section "output"}} emit typed content parts, {{json data}}
// serializes values, and {{#ifEquals a b}} compares strictly.
//
// # Frontmatter
//
// Reserved frontmatter keys (model, config, input, output, tools,
// name, variant, version, description) map to structured metadata.
// Input and output schemas may use the compact picoschema syntax,
// which expands to JSON Schema:
//
//	input:
//	  schema:
//	    name: string, the user's name
//	    age?: integer
//	    tags(array): string
//
// # Custom Helpers and Partials
//
//	dp.DefineHelper("shout", func(params []any, opts *dotprompt.HelperOptions) (any, error) {
//	    return strings.ToUpper(fmt.Sprint(params[0])), nil
//	})
//	dp.DefinePartial("signature", "-- sent by {{botName}}")
//
// # Prompt Stores
//
// Prompts can be loaded by name from a DirStore (a directory of
// .prompt files) or a PgStore (PostgreSQL) attached via WithStore:
//
//	store, _ := dotprompt.NewDirStore("./prompts", nil)
//	dp := dotprompt.MustNew(dotprompt.WithStore(store))
//	result, err := dp.RenderNamed(ctx, "greeting", data, nil)
package dotprompt
