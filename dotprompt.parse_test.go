package dotprompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument_Frontmatter(t *testing.T) {
	t.Run("reserved keys", func(t *testing.T) {
		parsed, err := ParseDocument(`---
name: greeting
variant: formal
version: "1.2"
description: says hello
model: gemini-1.5-pro
config:
  temperature: 0.7
tools:
  - search
  - calculator
---
Hello {{name}}!`)
		require.NoError(t, err)
		assert.Equal(t, "greeting", parsed.Name)
		assert.Equal(t, "formal", parsed.Variant)
		assert.Equal(t, "1.2", parsed.Version)
		assert.Equal(t, "says hello", parsed.Description)
		assert.Equal(t, "gemini-1.5-pro", parsed.Model)
		assert.Equal(t, map[string]any{"temperature": 0.7}, parsed.Config)
		assert.Equal(t, []string{"search", "calculator"}, parsed.Tools)
		assert.Equal(t, "Hello {{name}}!", parsed.Template)
	})

	t.Run("input and output", func(t *testing.T) {
		parsed, err := ParseDocument(`---
input:
  default:
    name: world
  schema:
    name: string
output:
  format: json
  schema:
    answer: string
---
body`)
		require.NoError(t, err)
		require.NotNil(t, parsed.Input)
		assert.Equal(t, map[string]any{"name": "world"}, parsed.Input.Default)
		assert.NotNil(t, parsed.Input.Schema)
		require.NotNil(t, parsed.Output)
		assert.Equal(t, "json", parsed.Output.Format)
		assert.NotNil(t, parsed.Output.Schema)
	})

	t.Run("no frontmatter is all template", func(t *testing.T) {
		parsed, err := ParseDocument("just a template {{x}}")
		require.NoError(t, err)
		assert.Equal(t, "just a template {{x}}", parsed.Template)
		assert.Empty(t, parsed.Model)
		assert.Nil(t, parsed.Raw)
	})

	t.Run("empty frontmatter", func(t *testing.T) {
		parsed, err := ParseDocument("---\n---\nbody")
		require.NoError(t, err)
		assert.Equal(t, "body", parsed.Template)
		assert.Nil(t, parsed.Raw)
	})

	t.Run("body directly after closing delimiter", func(t *testing.T) {
		parsed, err := ParseDocument("---\nname: n\n---body")
		require.NoError(t, err)
		assert.Equal(t, "n", parsed.Name)
		assert.Equal(t, "body", parsed.Template)
	})

	t.Run("leading comment lines tolerated", func(t *testing.T) {
		parsed, err := ParseDocument("# prompt file\n\n---\nmodel: m\n---\nbody")
		require.NoError(t, err)
		assert.Equal(t, "m", parsed.Model)
		assert.Equal(t, "body", parsed.Template)
	})

	t.Run("unterminated frontmatter fails", func(t *testing.T) {
		_, err := ParseDocument("---\nmodel: m\nno closing delimiter")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgFrontmatterUnclosed)
	})

	t.Run("invalid yaml fails", func(t *testing.T) {
		_, err := ParseDocument("---\nfoo: [unclosed\n---\nbody")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgFrontmatterInvalidYAML)
	})

	t.Run("dotted keys become ext entries", func(t *testing.T) {
		parsed, err := ParseDocument(`---
model: m
mynamespace.foo: bar
a.b.c: 7
---
body`)
		require.NoError(t, err)
		require.NotNil(t, parsed.Ext)
		assert.Equal(t, "bar", parsed.Ext["mynamespace"]["foo"])
		assert.Equal(t, 7, parsed.Ext["a.b"]["c"])
	})

	t.Run("unknown keys ignored but kept in raw", func(t *testing.T) {
		parsed, err := ParseDocument("---\nmodel: m\nbogus: value\n---\nbody")
		require.NoError(t, err)
		assert.Equal(t, "m", parsed.Model)
		assert.Equal(t, "value", parsed.Raw["bogus"])
		assert.Equal(t, "m", parsed.Raw["model"])
	})
}

func TestToMessages_RolePartitioning(t *testing.T) {
	t.Run("no markers defaults to user", func(t *testing.T) {
		messages := ToMessages("Hello there", nil)
		require.Len(t, messages, 1)
		assert.Equal(t, RoleUser, messages[0].Role)
		require.Len(t, messages[0].Content, 1)
		assert.Equal(t, "Hello there", messages[0].Content[0].(*TextPart).Text)
	})

	t.Run("role markers split messages", func(t *testing.T) {
		rendered := RoleMarkerPrefix + "system" + MarkerSuffix + "You are helpful." +
			RoleMarkerPrefix + "user" + MarkerSuffix + "Hi"
		messages := ToMessages(rendered, nil)
		require.Len(t, messages, 2)
		assert.Equal(t, RoleSystem, messages[0].Role)
		assert.Equal(t, "You are helpful.", messages[0].Content[0].(*TextPart).Text)
		assert.Equal(t, RoleUser, messages[1].Role)
	})

	t.Run("marker re-tags empty current message", func(t *testing.T) {
		rendered := RoleMarkerPrefix + "system" + MarkerSuffix + "sys only"
		messages := ToMessages(rendered, nil)
		require.Len(t, messages, 1)
		assert.Equal(t, RoleSystem, messages[0].Role)
	})

	t.Run("unknown role falls back to user", func(t *testing.T) {
		rendered := RoleMarkerPrefix + "alien" + MarkerSuffix + "hello"
		messages := ToMessages(rendered, nil)
		require.Len(t, messages, 1)
		assert.Equal(t, RoleUser, messages[0].Role)
	})

	t.Run("empty messages dropped", func(t *testing.T) {
		rendered := RoleMarkerPrefix + "system" + MarkerSuffix + "sys" +
			RoleMarkerPrefix + "user" + MarkerSuffix + "   "
		messages := ToMessages(rendered, nil)
		require.Len(t, messages, 1)
	})
}

func TestToMessages_History(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: []Part{&TextPart{Text: "earlier question"}}},
		{Role: RoleModel, Content: []Part{&TextPart{Text: "earlier answer"}}},
	}

	t.Run("history marker splices with purpose metadata", func(t *testing.T) {
		rendered := RoleMarkerPrefix + "system" + MarkerSuffix + "sys" +
			HistoryMarkerPrefix + MarkerSuffix + "now answer this"
		messages := ToMessages(rendered, &DataArgument{Messages: history})
		require.Len(t, messages, 4)
		assert.Equal(t, RoleSystem, messages[0].Role)
		assert.Equal(t, PurposeHistory, messages[1].Metadata[MetadataKeyPurpose])
		assert.Equal(t, PurposeHistory, messages[2].Metadata[MetadataKeyPurpose])
		assert.Equal(t, RoleModel, messages[3].Role)
		assert.Equal(t, "now answer this", messages[3].Content[0].(*TextPart).Text)
	})

	t.Run("implicit insertion before trailing user message", func(t *testing.T) {
		rendered := RoleMarkerPrefix + "system" + MarkerSuffix + "sys" +
			RoleMarkerPrefix + "user" + MarkerSuffix + "question"
		messages := ToMessages(rendered, &DataArgument{Messages: history})
		require.Len(t, messages, 4)
		assert.Equal(t, RoleSystem, messages[0].Role)
		assert.Equal(t, "earlier question", messages[1].Content[0].(*TextPart).Text)
		assert.Equal(t, "earlier answer", messages[2].Content[0].(*TextPart).Text)
		assert.Equal(t, RoleUser, messages[3].Role)
		assert.Nil(t, messages[1].Metadata)
	})

	t.Run("implicit insertion appends when last is not user", func(t *testing.T) {
		rendered := RoleMarkerPrefix + "system" + MarkerSuffix + "sys"
		messages := ToMessages(rendered, &DataArgument{Messages: history})
		require.Len(t, messages, 3)
		assert.Equal(t, RoleSystem, messages[0].Role)
		assert.Equal(t, RoleModel, messages[2].Role)
	})

	t.Run("no history leaves messages unchanged", func(t *testing.T) {
		messages := ToMessages("hello", &DataArgument{})
		require.Len(t, messages, 1)
	})
}

func TestToMessages_ContentParts(t *testing.T) {
	t.Run("media marker", func(t *testing.T) {
		rendered := "look at this " + MediaMarkerPrefix + " http://x/p.png image/png" + MarkerSuffix
		messages := ToMessages(rendered, nil)
		require.Len(t, messages, 1)
		require.Len(t, messages[0].Content, 2)
		assert.Equal(t, "look at this ", messages[0].Content[0].(*TextPart).Text)
		media := messages[0].Content[1].(*MediaPart)
		assert.Equal(t, "http://x/p.png", media.Media.URL)
		assert.Equal(t, "image/png", media.Media.ContentType)
	})

	t.Run("media marker without content type", func(t *testing.T) {
		rendered := MediaMarkerPrefix + " http://x/p.png" + MarkerSuffix
		messages := ToMessages(rendered, nil)
		media := messages[0].Content[0].(*MediaPart)
		assert.Equal(t, "http://x/p.png", media.Media.URL)
		assert.Empty(t, media.Media.ContentType)
	})

	t.Run("section marker", func(t *testing.T) {
		rendered := "intro " + SectionMarkerPrefix + " output" + MarkerSuffix
		messages := ToMessages(rendered, nil)
		require.Len(t, messages[0].Content, 2)
		pending := messages[0].Content[1].(*PendingPart)
		assert.Equal(t, "output", pending.Metadata[MetadataKeyPurpose])
		assert.Equal(t, true, pending.Metadata[MetadataKeyPending])
	})
}
