package internal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func render(t *testing.T, source string, input any, opts *RenderOptions) string {
	t.Helper()
	out, err := renderErr(t, source, input, opts)
	require.NoError(t, err)
	return out
}

func renderErr(t *testing.T, source string, input any, opts *RenderOptions) (string, error) {
	t.Helper()
	tpl, err := Compile(source, zap.NewNop())
	require.NoError(t, err)
	if opts == nil {
		opts = &RenderOptions{}
	}
	if opts.Helpers == nil {
		opts.Helpers = BuiltinHelpers(zap.NewNop())
	}
	return tpl.Render(context.Background(), input, opts)
}

func TestTemplate_Render_Interpolation(t *testing.T) {
	tests := []struct {
		name   string
		source string
		input  any
		want   string
	}{
		{
			name:   "simple variable",
			source: "Hello {{name}}!",
			input:  map[string]any{"name": "Alice"},
			want:   "Hello Alice!",
		},
		{
			name:   "dotted path",
			source: "{{user.address.city}}",
			input:  map[string]any{"user": map[string]any{"address": map[string]any{"city": "Berlin"}}},
			want:   "Berlin",
		},
		{
			name:   "missing variable renders empty",
			source: "[{{missing}}]",
			input:  map[string]any{},
			want:   "[]",
		},
		{
			name:   "self reference",
			source: "{{.}}",
			input:  "bare",
			want:   "bare",
		},
		{
			name:   "this prefix",
			source: "{{this.name}}",
			input:  map[string]any{"name": "x"},
			want:   "x",
		},
		{
			name:   "array index segment",
			source: "{{items.1}}",
			input:  map[string]any{"items": []any{"a", "b"}},
			want:   "b",
		},
		{
			name:   "integral float without fraction",
			source: "{{n}}",
			input:  map[string]any{"n": 7.0},
			want:   "7",
		},
		{
			name:   "boolean",
			source: "{{ok}}",
			input:  map[string]any{"ok": true},
			want:   "true",
		},
		{
			name:   "comment skipped",
			source: "a{{! nothing }}b",
			input:  nil,
			want:   "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.source, tt.input, nil))
		})
	}
}

func TestTemplate_Render_Escaping(t *testing.T) {
	input := map[string]any{"html": `<b>"hi"</b>`}

	t.Run("disabled by default", func(t *testing.T) {
		assert.Equal(t, `<b>"hi"</b>`, render(t, "{{html}}", input, nil))
	})

	t.Run("escaped mustache", func(t *testing.T) {
		out := render(t, "{{html}}", input, &RenderOptions{EscapeHTML: true})
		assert.Equal(t, "&lt;b&gt;&quot;hi&quot;&lt;/b&gt;", out)
	})

	t.Run("triple stash bypasses", func(t *testing.T) {
		out := render(t, "{{{html}}}", input, &RenderOptions{EscapeHTML: true})
		assert.Equal(t, `<b>"hi"</b>`, out)
	})

	t.Run("tilde wrapped unescaped form bypasses and strips", func(t *testing.T) {
		out := render(t, "a {{~{html}~}} b", input, &RenderOptions{EscapeHTML: true})
		assert.Equal(t, `a<b>"hi"</b>b`, out)
	})

	t.Run("safe string bypasses", func(t *testing.T) {
		helpers := BuiltinHelpers(zap.NewNop())
		helpers["tag"] = func(params []any, opts *HelperOptions) (any, error) {
			return SafeString("<safe>"), nil
		}
		out := render(t, "{{tag}}", nil, &RenderOptions{EscapeHTML: true, Helpers: helpers})
		assert.Equal(t, "<safe>", out)
	})

	t.Run("block output not re-escaped", func(t *testing.T) {
		out := render(t, "{{#if ok}}{{{html}}}{{/if}}",
			map[string]any{"ok": true, "html": "<b>"},
			&RenderOptions{EscapeHTML: true})
		assert.Equal(t, "<b>", out)
	})
}

func TestTemplate_Render_StrictMode(t *testing.T) {
	_, err := renderErr(t, "{{missing}}", map[string]any{}, &RenderOptions{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgUndefinedVariable)

	out := render(t, "{{present}}", map[string]any{"present": "x"}, &RenderOptions{Strict: true})
	assert.Equal(t, "x", out)
}

func TestTemplate_Render_UnknownHelper(t *testing.T) {
	_, err := renderErr(t, "{{shout name}}", map[string]any{"name": "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgUnknownHelper)
}

func TestTemplate_Render_IfUnless(t *testing.T) {
	tests := []struct {
		name   string
		source string
		input  any
		want   string
	}{
		{
			name:   "if truthy",
			source: "{{#if ok}}yes{{else}}no{{/if}}",
			input:  map[string]any{"ok": true},
			want:   "yes",
		},
		{
			name:   "if falsy",
			source: "{{#if ok}}yes{{else}}no{{/if}}",
			input:  map[string]any{"ok": false},
			want:   "no",
		},
		{
			name:   "if empty string is falsy",
			source: "{{#if s}}yes{{else}}no{{/if}}",
			input:  map[string]any{"s": ""},
			want:   "no",
		},
		{
			name:   "if zero is falsy",
			source: "{{#if n}}yes{{else}}no{{/if}}",
			input:  map[string]any{"n": 0},
			want:   "no",
		},
		{
			name:   "if empty slice is falsy",
			source: "{{#if items}}yes{{else}}no{{/if}}",
			input:  map[string]any{"items": []any{}},
			want:   "no",
		},
		{
			name:   "if empty object is truthy",
			source: "{{#if obj}}yes{{else}}no{{/if}}",
			input:  map[string]any{"obj": map[string]any{}},
			want:   "yes",
		},
		{
			name:   "unless inverts",
			source: "{{#unless ok}}absent{{else}}present{{/unless}}",
			input:  map[string]any{"ok": true},
			want:   "present",
		},
		{
			name:   "else if chain middle",
			source: "{{#if a}}A{{else if b}}B{{else}}C{{/if}}",
			input:  map[string]any{"a": false, "b": true},
			want:   "B",
		},
		{
			name:   "else if chain final",
			source: "{{#if a}}A{{else if b}}B{{else}}C{{/if}}",
			input:  map[string]any{"a": false, "b": false},
			want:   "C",
		},
		{
			name:   "if without else renders empty",
			source: "[{{#if ok}}yes{{/if}}]",
			input:  map[string]any{"ok": false},
			want:   "[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.source, tt.input, nil))
		})
	}
}

func TestTemplate_Render_Each(t *testing.T) {
	t.Run("array with data variables", func(t *testing.T) {
		out := render(t,
			"{{#each items}}{{@index}}:{{this}}{{#unless @last}},{{/unless}}{{/each}}",
			map[string]any{"items": []any{"a", "b", "c"}}, nil)
		assert.Equal(t, "0:a,1:b,2:c", out)
	})

	t.Run("first flag", func(t *testing.T) {
		out := render(t,
			"{{#each items}}{{#if @first}}>{{/if}}{{this}}{{/each}}",
			map[string]any{"items": []any{"a", "b"}}, nil)
		assert.Equal(t, ">ab", out)
	})

	t.Run("map in sorted key order", func(t *testing.T) {
		out := render(t,
			"{{#each m}}{{@key}}={{this}};{{/each}}",
			map[string]any{"m": map[string]any{"b": 2, "a": 1, "c": 3}}, nil)
		assert.Equal(t, "a=1;b=2;c=3;", out)
	})

	t.Run("block params", func(t *testing.T) {
		out := render(t,
			"{{#each items as |item idx|}}{{idx}}-{{item}} {{/each}}",
			map[string]any{"items": []any{"x", "y"}}, nil)
		assert.Equal(t, "0-x 1-y ", out)
	})

	t.Run("empty renders else", func(t *testing.T) {
		out := render(t,
			"{{#each items}}{{this}}{{else}}empty{{/each}}",
			map[string]any{"items": []any{}}, nil)
		assert.Equal(t, "empty", out)
	})

	t.Run("parent hop inside iteration", func(t *testing.T) {
		out := render(t,
			"{{#each items}}{{../prefix}}{{this}} {{/each}}",
			map[string]any{"prefix": "#", "items": []any{"1", "2"}}, nil)
		assert.Equal(t, "#1 #2 ", out)
	})

	t.Run("root data variable", func(t *testing.T) {
		out := render(t,
			"{{#each items}}{{@root.title}}:{{this}};{{/each}}",
			map[string]any{"title": "T", "items": []any{"a"}}, nil)
		assert.Equal(t, "T:a;", out)
	})

	t.Run("nested each indexes", func(t *testing.T) {
		out := render(t,
			"{{#each rows}}{{#each this}}{{this}}{{/each}}|{{/each}}",
			map[string]any{"rows": []any{[]any{"a", "b"}, []any{"c"}}}, nil)
		assert.Equal(t, "ab|c|", out)
	})
}

func TestTemplate_Render_With(t *testing.T) {
	t.Run("context switch", func(t *testing.T) {
		out := render(t,
			"{{#with user}}{{name}} ({{../label}}){{/with}}",
			map[string]any{"label": "staff", "user": map[string]any{"name": "Bo"}}, nil)
		assert.Equal(t, "Bo (staff)", out)
	})

	t.Run("falsy renders else", func(t *testing.T) {
		out := render(t,
			"{{#with user}}{{name}}{{else}}anonymous{{/with}}",
			map[string]any{}, nil)
		assert.Equal(t, "anonymous", out)
	})

	t.Run("block param binding", func(t *testing.T) {
		out := render(t,
			"{{#with user as |u|}}{{u.name}}{{/with}}",
			map[string]any{"user": map[string]any{"name": "Bo"}}, nil)
		assert.Equal(t, "Bo", out)
	})
}

func TestTemplate_Render_BareBlocks(t *testing.T) {
	t.Run("truthy object becomes context", func(t *testing.T) {
		out := render(t,
			"{{#user}}{{name}}{{/user}}",
			map[string]any{"user": map[string]any{"name": "Bo"}}, nil)
		assert.Equal(t, "Bo", out)
	})

	t.Run("slice iterates", func(t *testing.T) {
		out := render(t,
			"{{#items}}{{this}} {{/items}}",
			map[string]any{"items": []any{"a", "b"}}, nil)
		assert.Equal(t, "a b ", out)
	})

	t.Run("falsy renders else", func(t *testing.T) {
		out := render(t,
			"{{#missing}}x{{else}}none{{/missing}}",
			map[string]any{}, nil)
		assert.Equal(t, "none", out)
	})

	t.Run("inverse section", func(t *testing.T) {
		out := render(t,
			"{{^missing}}fallback{{/missing}}",
			map[string]any{}, nil)
		assert.Equal(t, "fallback", out)
	})

	t.Run("inverse section with truthy value", func(t *testing.T) {
		out := render(t,
			"[{{^present}}fallback{{/present}}]",
			map[string]any{"present": "x"}, nil)
		assert.Equal(t, "[]", out)
	})
}

func TestTemplate_Render_SubExpressions(t *testing.T) {
	helpers := BuiltinHelpers(zap.NewNop())
	helpers["upper"] = func(params []any, opts *HelperOptions) (any, error) {
		return strings.ToUpper(Stringify(params[0])), nil
	}
	helpers["concat"] = func(params []any, opts *HelperOptions) (any, error) {
		var sb strings.Builder
		for _, p := range params {
			sb.WriteString(Stringify(p))
		}
		return sb.String(), nil
	}

	out := render(t, "{{upper (concat a b)}}",
		map[string]any{"a": "he", "b": "llo"},
		&RenderOptions{Helpers: helpers})
	assert.Equal(t, "HELLO", out)

	out = render(t, "{{#if (concat a)}}got{{/if}}",
		map[string]any{"a": "x"},
		&RenderOptions{Helpers: helpers})
	assert.Equal(t, "got", out)
}

func TestTemplate_Render_Lookup(t *testing.T) {
	out := render(t, "{{lookup m key}}",
		map[string]any{"m": map[string]any{"b": "bee"}, "key": "b"}, nil)
	assert.Equal(t, "bee", out)

	out = render(t, "{{#each items}}{{lookup ../names @index}} {{/each}}",
		map[string]any{
			"items": []any{1, 2},
			"names": []any{"one", "two"},
		}, nil)
	assert.Equal(t, "one two ", out)

	_, err := renderErr(t, "{{lookup m}}", map[string]any{"m": map[string]any{}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgLookupArgs)
}

func TestTemplate_Render_CustomHelpers(t *testing.T) {
	t.Run("literal params and hash", func(t *testing.T) {
		helpers := BuiltinHelpers(zap.NewNop())
		var gotParams []any
		var gotHash map[string]any
		helpers["probe"] = func(params []any, opts *HelperOptions) (any, error) {
			gotParams = params
			gotHash = opts.Hash
			return "ok", nil
		}
		out := render(t, `{{probe "s" 3 1.5 true null k=v}}`,
			map[string]any{"v": "hashval"},
			&RenderOptions{Helpers: helpers})
		assert.Equal(t, "ok", out)
		assert.Equal(t, []any{"s", 3, 1.5, true, nil}, gotParams)
		assert.Equal(t, map[string]any{"k": "hashval"}, gotHash)
	})

	t.Run("helper error is wrapped with name", func(t *testing.T) {
		helpers := BuiltinHelpers(zap.NewNop())
		helpers["boom"] = func(params []any, opts *HelperOptions) (any, error) {
			return nil, assert.AnError
		}
		_, err := renderErr(t, "{{boom}}", nil, &RenderOptions{Helpers: helpers})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgHelperFailed)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("custom block helper", func(t *testing.T) {
		helpers := BuiltinHelpers(zap.NewNop())
		helpers["repeat"] = func(params []any, opts *HelperOptions) (any, error) {
			count, _ := params[0].(int)
			var sb strings.Builder
			for i := 0; i < count; i++ {
				out, err := opts.FnWith(opts.Context, map[string]any{DataVarIndex: i})
				if err != nil {
					return nil, err
				}
				sb.WriteString(out)
			}
			return SafeString(sb.String()), nil
		}
		out := render(t, "{{#repeat 3}}{{@index}}{{/repeat}}", nil,
			&RenderOptions{Helpers: helpers})
		assert.Equal(t, "012", out)
	})
}

func TestTemplate_Render_Partials(t *testing.T) {
	t.Run("static map", func(t *testing.T) {
		out := render(t, "{{> greet}} bye",
			map[string]any{"name": "Bo"},
			&RenderOptions{Partials: map[string]string{"greet": "hi {{name}}"}})
		assert.Equal(t, "hi Bo bye", out)
	})

	t.Run("explicit context", func(t *testing.T) {
		out := render(t, "{{> card user}}",
			map[string]any{"user": map[string]any{"name": "Bo"}},
			&RenderOptions{Partials: map[string]string{"card": "[{{name}}]"}})
		assert.Equal(t, "[Bo]", out)
	})

	t.Run("hash overlays context", func(t *testing.T) {
		out := render(t, `{{> card label="admin"}}`,
			map[string]any{"name": "Bo"},
			&RenderOptions{Partials: map[string]string{"card": "{{name}}/{{label}}"}})
		assert.Equal(t, "Bo/admin", out)
	})

	t.Run("inline partial", func(t *testing.T) {
		out := render(t, `{{#*inline "sig"}}-- {{name}}{{/inline}}{{> sig}}`,
			map[string]any{"name": "Bo"}, nil)
		assert.Equal(t, "-- Bo", out)
	})

	t.Run("resolver", func(t *testing.T) {
		resolver := func(ctx context.Context, name string) (string, bool, error) {
			if name == "dyn" {
				return "resolved {{name}}", true, nil
			}
			return "", false, nil
		}
		out := render(t, "{{> dyn}}",
			map[string]any{"name": "Bo"},
			&RenderOptions{PartialResolver: resolver})
		assert.Equal(t, "resolved Bo", out)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := renderErr(t, "{{> nowhere}}", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgPartialNotFound)
	})

	t.Run("block fallback on missing", func(t *testing.T) {
		out := render(t, "{{#> sidebar}}default{{/sidebar}}", nil, nil)
		assert.Equal(t, "default", out)
	})

	t.Run("block ignored fallback when found", func(t *testing.T) {
		out := render(t, "{{#> sidebar}}default{{/sidebar}}", nil,
			&RenderOptions{Partials: map[string]string{"sidebar": "real"}})
		assert.Equal(t, "real", out)
	})

	t.Run("circular reference fails", func(t *testing.T) {
		_, err := renderErr(t, "{{> a}}", nil, &RenderOptions{
			Partials: map[string]string{"a": "{{> b}}", "b": "{{> a}}"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgCircularPartial)
	})

	t.Run("depth limit fails", func(t *testing.T) {
		_, err := renderErr(t, "{{> p1}}", nil, &RenderOptions{
			Partials: map[string]string{
				"p1": "{{> p2}}",
				"p2": "{{> p3}}",
				"p3": "deep",
			},
			MaxPartialDepth: 2,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgPartialDepth)
	})

	t.Run("cancelled context aborts resolver path", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tpl, err := Compile("{{> dyn}}", zap.NewNop())
		require.NoError(t, err)
		_, err = tpl.Render(ctx, nil, &RenderOptions{
			Helpers: BuiltinHelpers(zap.NewNop()),
			PartialResolver: func(ctx context.Context, name string) (string, bool, error) {
				return "never", true, nil
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgRenderCancelled)
	})
}

func TestTemplate_Render_WhitespaceControl(t *testing.T) {
	tests := []struct {
		name   string
		source string
		input  any
		want   string
	}{
		{
			name:   "strip both sides of mustache",
			source: "a {{~x~}} b",
			input:  map[string]any{"x": "X"},
			want:   "aXb",
		},
		{
			name:   "strip before only",
			source: "a {{~x}} b",
			input:  map[string]any{"x": "X"},
			want:   "aX b",
		},
		{
			name:   "block interior after open",
			source: "{{#if ok~}} inner {{/if}}",
			input:  map[string]any{"ok": true},
			want:   "inner ",
		},
		{
			name:   "block interior before close",
			source: "{{#if ok}} inner {{~/if}}",
			input:  map[string]any{"ok": true},
			want:   " inner",
		},
		{
			name:   "around else",
			source: "{{#if ok}} a {{~else~}} b {{/if}}",
			input:  map[string]any{"ok": false},
			want:   "b ",
		},
		{
			name:   "newlines stripped",
			source: "x\n{{~#if ok}}y{{/if~}}\nz",
			input:  map[string]any{"ok": true},
			want:   "xyz",
		},
		{
			name:   "long comment with right strip",
			source: "a {{!-- c --~}}   b",
			input:  nil,
			want:   "a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.source, tt.input, nil))
		})
	}
}

func TestTemplate_Render_RawBlock(t *testing.T) {
	out := render(t, "{{{{raw}}}}{{not a template}}{{{{/raw}}}}", nil, nil)
	assert.Equal(t, "{{not a template}}", out)
}

func TestTemplate_Render_DataVariables(t *testing.T) {
	out := render(t, "{{@env}}", nil,
		&RenderOptions{Data: map[string]any{"env": "prod"}})
	assert.Equal(t, "prod", out)

	out = render(t, "{{#each items}}{{@env}}{{/each}}",
		map[string]any{"items": []any{1}},
		&RenderOptions{Data: map[string]any{"env": "prod"}})
	assert.Equal(t, "prod", out)
}

func TestCompile_CollectsPartialNames(t *testing.T) {
	tpl, err := Compile("{{> a}}{{#if x}}{{> b}}{{/if}}{{> a}}", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tpl.PartialNames)
}
