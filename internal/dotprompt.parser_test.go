package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func parseSource(t *testing.T, source string) *ProgramNode {
	t.Helper()
	tokens, err := NewLexer(source, zap.NewNop()).Tokenize()
	require.NoError(t, err)
	program, err := NewParser(tokens, zap.NewNop()).Parse()
	require.NoError(t, err)
	return program
}

func parseError(t *testing.T, source string) error {
	t.Helper()
	tokens, err := NewLexer(source, zap.NewNop()).Tokenize()
	require.NoError(t, err)
	_, err = NewParser(tokens, zap.NewNop()).Parse()
	require.Error(t, err)
	return err
}

func TestParser_Parse_Mustache(t *testing.T) {
	program := parseSource(t, "Hello {{name}}!")
	require.Len(t, program.Body, 3)

	text, ok := program.Body[0].(*TextNode)
	require.True(t, ok)
	assert.Equal(t, "Hello ", text.Value)

	mustache, ok := program.Body[1].(*MustacheNode)
	require.True(t, ok)
	assert.True(t, mustache.Escaped)
	path, ok := mustache.Path.(*PathExpression)
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, path.Parts)
}

func TestParser_Parse_UnescapedForms(t *testing.T) {
	for _, source := range []string{"{{{html}}}", "{{& html}}"} {
		program := parseSource(t, source)
		require.Len(t, program.Body, 1)
		mustache, ok := program.Body[0].(*MustacheNode)
		require.True(t, ok, source)
		assert.False(t, mustache.Escaped, source)
	}
}

func TestParser_Parse_Paths(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		parts    []string
		depth    int
		data     bool
		original string
	}{
		{
			name:     "dotted",
			source:   "{{a.b.c}}",
			parts:    []string{"a", "b", "c"},
			original: "a.b.c",
		},
		{
			name:     "parent hop",
			source:   "{{../name}}",
			parts:    []string{"name"},
			depth:    1,
			original: "../name",
		},
		{
			name:     "double parent hop",
			source:   "{{../../name}}",
			parts:    []string{"name"},
			depth:    2,
			original: "../../name",
		},
		{
			name:     "data variable",
			source:   "{{@index}}",
			parts:    []string{"index"},
			data:     true,
			original: "@index",
		},
		{
			name:     "data root path",
			source:   "{{@root.user.name}}",
			parts:    []string{"root", "user", "name"},
			data:     true,
			original: "@root.user.name",
		},
		{
			name:     "this prefix",
			source:   "{{this.name}}",
			parts:    []string{"name"},
			original: "this.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := parseSource(t, tt.source)
			require.Len(t, program.Body, 1)
			mustache := program.Body[0].(*MustacheNode)
			path, ok := mustache.Path.(*PathExpression)
			require.True(t, ok)
			assert.Equal(t, tt.parts, path.Parts)
			assert.Equal(t, tt.depth, path.Depth)
			assert.Equal(t, tt.data, path.Data)
			assert.Equal(t, tt.original, path.Original)
		})
	}
}

func TestParser_Parse_ParamsAndHash(t *testing.T) {
	program := parseSource(t, `{{helper item "lit" 42 true key=val n=1}}`)
	require.Len(t, program.Body, 1)
	mustache := program.Body[0].(*MustacheNode)

	require.Len(t, mustache.Params, 4)
	assert.IsType(t, &PathExpression{}, mustache.Params[0])
	str, ok := mustache.Params[1].(*StringLiteral)
	require.True(t, ok)
	assert.Equal(t, "lit", str.Value)
	num, ok := mustache.Params[2].(*NumberLiteral)
	require.True(t, ok)
	assert.Equal(t, 42.0, num.Value)
	assert.True(t, num.IsInt())
	boolean, ok := mustache.Params[3].(*BooleanLiteral)
	require.True(t, ok)
	assert.True(t, boolean.Value)

	require.NotNil(t, mustache.Hash)
	require.Len(t, mustache.Hash.Pairs, 2)
	assert.Equal(t, "key", mustache.Hash.Pairs[0].Key)
	assert.Equal(t, "n", mustache.Hash.Pairs[1].Key)
}

func TestParser_Parse_PositionalAfterHashFails(t *testing.T) {
	err := parseError(t, "{{helper key=val extra}}")
	assert.Contains(t, err.Error(), ErrMsgHashAfterParams)
}

func TestParser_Parse_Block(t *testing.T) {
	program := parseSource(t, "{{#if ok}}yes{{else}}no{{/if}}")
	require.Len(t, program.Body, 1)

	block, ok := program.Body[0].(*BlockNode)
	require.True(t, ok)
	assert.Equal(t, "if", block.Path.Original)
	assert.False(t, block.IsInverse)

	require.NotNil(t, block.Program)
	require.Len(t, block.Program.Body, 1)
	assert.Equal(t, "yes", block.Program.Body[0].(*TextNode).Value)

	require.NotNil(t, block.Inverse)
	require.Len(t, block.Inverse.Body, 1)
	assert.Equal(t, "no", block.Inverse.Body[0].(*TextNode).Value)
}

func TestParser_Parse_ElseIfChain(t *testing.T) {
	program := parseSource(t, "{{#if a}}A{{else if b}}B{{else}}C{{/if}}")
	require.Len(t, program.Body, 1)

	outer := program.Body[0].(*BlockNode)
	require.NotNil(t, outer.Inverse)
	require.Len(t, outer.Inverse.Body, 1)

	chained, ok := outer.Inverse.Body[0].(*BlockNode)
	require.True(t, ok)
	assert.True(t, chained.Chained)
	assert.Equal(t, "if", chained.Path.Original)
	require.Len(t, chained.Program.Body, 1)
	assert.Equal(t, "B", chained.Program.Body[0].(*TextNode).Value)
	require.NotNil(t, chained.Inverse)
	assert.Equal(t, "C", chained.Inverse.Body[0].(*TextNode).Value)
}

func TestParser_Parse_CaretElse(t *testing.T) {
	program := parseSource(t, "{{#if a}}A{{^}}B{{/if}}")
	block := program.Body[0].(*BlockNode)
	require.NotNil(t, block.Inverse)
	assert.Equal(t, "B", block.Inverse.Body[0].(*TextNode).Value)
}

func TestParser_Parse_InverseBlock(t *testing.T) {
	program := parseSource(t, "{{^present}}missing{{/present}}")
	block := program.Body[0].(*BlockNode)
	assert.True(t, block.IsInverse)
	assert.Equal(t, "present", block.Path.Original)
}

func TestParser_Parse_BlockParams(t *testing.T) {
	program := parseSource(t, "{{#each items as |item idx|}}{{item}}{{/each}}")
	block := program.Body[0].(*BlockNode)
	assert.Equal(t, []string{"item", "idx"}, block.BlockParams)
}

func TestParser_Parse_BlockErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		errMsg string
	}{
		{
			name:   "mismatched close name",
			source: "{{#if a}}x{{/each}}",
			errMsg: ErrMsgBlockMismatch,
		},
		{
			name:   "unclosed block",
			source: "{{#if a}}x",
			errMsg: ErrMsgUnexpectedToken,
		},
		{
			name:   "stray close tag",
			source: "x{{/if}}",
			errMsg: ErrMsgBlockMismatch,
		},
		{
			name:   "else outside block",
			source: "a{{else}}b",
			errMsg: ErrMsgElseOutsideBlock,
		},
		{
			name:   "else after else",
			source: "{{#if a}}x{{else}}y{{else}}z{{/if}}",
			errMsg: ErrMsgElseNotLast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(t, tt.source)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParser_Parse_Partial(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		program := parseSource(t, "{{> header}}")
		partial := program.Body[0].(*PartialNode)
		assert.Equal(t, "header", partial.Name)
		assert.Nil(t, partial.Context)
		assert.False(t, partial.IsBlock)
	})

	t.Run("string name", func(t *testing.T) {
		program := parseSource(t, `{{> "shared/header"}}`)
		partial := program.Body[0].(*PartialNode)
		assert.Equal(t, "shared/header", partial.Name)
	})

	t.Run("context and hash", func(t *testing.T) {
		program := parseSource(t, "{{> userCard user label=title}}")
		partial := program.Body[0].(*PartialNode)
		require.NotNil(t, partial.Context)
		require.NotNil(t, partial.Hash)
		assert.Equal(t, "label", partial.Hash.Pairs[0].Key)
	})

	t.Run("partial block with fallback", func(t *testing.T) {
		program := parseSource(t, "{{#> sidebar}}default sidebar{{/sidebar}}")
		partial := program.Body[0].(*PartialNode)
		assert.True(t, partial.IsBlock)
		require.NotNil(t, partial.Fallback)
		assert.Equal(t, "default sidebar", partial.Fallback.Body[0].(*TextNode).Value)
	})
}

func TestParser_Parse_InlinePartial(t *testing.T) {
	program := parseSource(t, `{{#*inline "greeting"}}Hi {{name}}{{/inline}}`)
	block := program.Body[0].(*BlockNode)
	assert.True(t, block.IsDecorator)
	name := block.Params[0].(*StringLiteral)
	assert.Equal(t, "greeting", name.Value)
	require.Len(t, block.Program.Body, 2)
}

func TestParser_Parse_InlinePartialNeedsStringName(t *testing.T) {
	err := parseError(t, "{{#*inline greeting}}x{{/inline}}")
	assert.Contains(t, err.Error(), ErrMsgInlineNeedsName)
}

func TestParser_Parse_RawBlock(t *testing.T) {
	program := parseSource(t, "{{{{raw}}}}{{not parsed}}{{{{/raw}}}}")
	block := program.Body[0].(*BlockNode)
	assert.True(t, block.IsRaw)
	assert.Equal(t, "raw", block.Path.Original)
	assert.Equal(t, "{{not parsed}}", block.Program.Body[0].(*TextNode).Value)
}

func TestParser_Parse_SubExpression(t *testing.T) {
	program := parseSource(t, "{{outer (inner x) k=(deep y)}}")
	mustache := program.Body[0].(*MustacheNode)

	require.Len(t, mustache.Params, 1)
	sexpr, ok := mustache.Params[0].(*SubExpression)
	require.True(t, ok)
	assert.Equal(t, "inner", sexpr.Path.Original)
	require.Len(t, sexpr.Params, 1)

	require.NotNil(t, mustache.Hash)
	hashSexpr, ok := mustache.Hash.Pairs[0].Value.(*SubExpression)
	require.True(t, ok)
	assert.Equal(t, "deep", hashSexpr.Path.Original)
}

func TestParser_Parse_StripFlags(t *testing.T) {
	t.Run("mustache", func(t *testing.T) {
		program := parseSource(t, "a {{~x~}} b")
		mustache := program.Body[1].(*MustacheNode)
		assert.True(t, mustache.Strip.Before)
		assert.True(t, mustache.Strip.After)
	})

	t.Run("block interior", func(t *testing.T) {
		program := parseSource(t, "{{#if a~}} x {{~else~}} y {{~/if}}")
		block := program.Body[0].(*BlockNode)
		assert.True(t, block.OpenStrip.After)
		assert.True(t, block.ElseStrip.Before)
		assert.True(t, block.ElseStrip.After)
		assert.True(t, block.CloseStrip.Before)
	})
}

func TestParser_Parse_Comment(t *testing.T) {
	program := parseSource(t, "a{{! ignored }}b")
	require.Len(t, program.Body, 3)
	comment, ok := program.Body[1].(*CommentNode)
	require.True(t, ok)
	assert.Equal(t, " ignored ", comment.Value)
}
