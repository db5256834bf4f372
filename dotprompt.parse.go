package dotprompt

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterRegex splits a document into frontmatter and body.
// Leading shebang/comment lines and blank lines before the opening
// --- are tolerated; the newline after the closing --- is optional so
// "---BODY" directly after the delimiter is accepted.
var frontmatterRegex = regexp.MustCompile(
	`(?ms)\A((?:(?:#[^\n]*|[ \t]*)\n)*)---[ \t]*\r?\n(.*?)\r?\n?^---[ \t]*\r?\n?(.*)\z`)

// frontmatterOpenRegex detects an opening delimiter so unterminated
// frontmatter can be reported instead of treated as template text.
var frontmatterOpenRegex = regexp.MustCompile(
	`(?m)\A(?:(?:#[^\n]*|[ \t]*)\n)*---[ \t]*\r?\n`)

// roleAndHistoryMarkerRegex matches role/history markers, capturing
// the marker without its closing suffix.
var roleAndHistoryMarkerRegex = regexp.MustCompile(`(<<<dotprompt:(?:role:[a-z]+|history))>>>`)

// mediaAndSectionMarkerRegex matches media/section markers
var mediaAndSectionMarkerRegex = regexp.MustCompile(`(<<<dotprompt:(?:media:url|section).*?)>>>`)

// ParseDocument splits a prompt document into structured frontmatter
// metadata and a template body. A document without an opening --- line
// is all template; one with an unterminated or non-YAML frontmatter
// block is a parse error.
func ParseDocument(source string) (*ParsedPrompt, error) {
	match := frontmatterRegex.FindStringSubmatch(source)
	if match == nil {
		if frontmatterOpenRegex.MatchString(source) {
			return nil, NewParseError(ErrMsgFrontmatterUnclosed, nil)
		}
		return &ParsedPrompt{Template: source}, nil
	}

	frontmatterSource := match[2]
	body := strings.TrimSpace(match[3])

	raw := make(map[string]any)
	if err := yaml.Unmarshal([]byte(frontmatterSource), &raw); err != nil {
		return nil, NewParseError(ErrMsgFrontmatterInvalidYAML, err)
	}

	metadata, err := metadataFromFrontmatter(raw)
	if err != nil {
		return nil, err
	}

	return &ParsedPrompt{PromptMetadata: *metadata, Template: body}, nil
}

// metadataFromFrontmatter maps a frontmatter document onto
// PromptMetadata. Reserved keys become fields, dotted keys become
// namespaced ext entries, everything else is ignored; the complete
// map is preserved in Raw.
func metadataFromFrontmatter(raw map[string]any) (*PromptMetadata, error) {
	metadata := &PromptMetadata{}
	if len(raw) == 0 {
		return metadata, nil
	}
	metadata.Raw = raw

	ext := make(map[string]map[string]any)
	for key, value := range raw {
		if strings.Contains(key, ".") {
			addNamespacedEntry(ext, key, value)
			continue
		}
		if !isReservedKeyword(key) {
			continue
		}
		switch key {
		case FieldName:
			metadata.Name = stringValue(value)
		case FieldVariant:
			metadata.Variant = stringValue(value)
		case FieldVersion:
			metadata.Version = stringValue(value)
		case FieldDescription:
			metadata.Description = stringValue(value)
		case FieldModel:
			metadata.Model = stringValue(value)
		case FieldConfig:
			metadata.Config = mapValue(value)
		case FieldTools:
			metadata.Tools = stringSliceValue(value)
		case FieldInput:
			metadata.Input = inputConfigValue(value)
		case FieldOutput:
			metadata.Output = outputConfigValue(value)
		}
	}
	if len(ext) > 0 {
		metadata.Ext = ext
	}
	return metadata, nil
}

// addNamespacedEntry stores a dotted top-level key as a nested ext
// entry: "ext1.foo: bar" becomes ext["ext1"]["foo"] = bar. The last
// dot splits namespace from field.
func addNamespacedEntry(ext map[string]map[string]any, key string, value any) {
	lastDot := strings.LastIndex(key, ".")
	namespace := key[:lastDot]
	field := key[lastDot+1:]
	if ext[namespace] == nil {
		ext[namespace] = make(map[string]any)
	}
	ext[namespace][field] = value
}

func isReservedKeyword(key string) bool {
	for _, reserved := range reservedMetadataKeywords {
		if key == reserved {
			return true
		}
	}
	return false
}

func stringValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func mapValue(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return nil
}

func stringSliceValue(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func inputConfigValue(value any) *InputConfig {
	m := mapValue(value)
	if m == nil {
		return nil
	}
	return &InputConfig{
		Default: mapValue(m[FieldDefault]),
		Schema:  m[FieldSchema],
	}
}

func outputConfigValue(value any) *OutputConfig {
	m := mapValue(value)
	if m == nil {
		return nil
	}
	return &OutputConfig{
		Format: stringValue(m[FieldFormat]),
		Schema: m[FieldSchema],
	}
}

// messageSource accumulates one message while scanning marker pieces
type messageSource struct {
	role     Role
	source   string
	content  []Part
	metadata map[string]any
}

func (m *messageSource) hasContent() bool {
	return strings.TrimSpace(m.source) != "" || m.content != nil
}

// ToMessages converts a fully rendered string (markers still embedded)
// into role-partitioned messages. A role marker starts or re-tags a
// message, a history marker splices in the caller's prior messages,
// and remaining text becomes typed content parts.
func ToMessages(rendered string, data *DataArgument) []Message {
	current := &messageSource{role: RoleUser}
	var sources []*messageSource

	for _, piece := range splitByRegex(rendered, roleAndHistoryMarkerRegex) {
		switch {
		case strings.HasPrefix(piece, RoleMarkerPrefix):
			role := roleFromMarker(strings.TrimPrefix(piece, RoleMarkerPrefix))
			if strings.TrimSpace(current.source) == "" {
				current.role = role
			} else {
				sources = append(sources, current)
				current = &messageSource{role: role}
			}
		case strings.HasPrefix(piece, HistoryMarkerPrefix):
			if strings.TrimSpace(current.source) != "" {
				sources = append(sources, current)
			}
			if data != nil {
				for _, msg := range transformMessagesToHistory(data.Messages) {
					sources = append(sources, &messageSource{
						role:     msg.Role,
						content:  msg.Content,
						metadata: msg.Metadata,
					})
				}
			}
			current = &messageSource{role: RoleModel}
		default:
			current.source += piece
		}
	}
	sources = append(sources, current)

	messages := make([]Message, 0, len(sources))
	for _, src := range sources {
		if !src.hasContent() {
			continue
		}
		content := src.content
		if content == nil {
			content = toParts(src.source)
		}
		messages = append(messages, Message{
			Role:     src.role,
			Content:  content,
			Metadata: src.metadata,
		})
	}

	var history []Message
	if data != nil {
		history = data.Messages
	}
	return insertHistory(messages, history)
}

func roleFromMarker(name string) Role {
	switch Role(name) {
	case RoleModel, RoleTool, RoleSystem:
		return Role(name)
	default:
		return RoleUser
	}
}

// transformMessagesToHistory stamps purpose=history on each message
func transformMessagesToHistory(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		metadata := make(map[string]any, len(msg.Metadata)+1)
		for k, v := range msg.Metadata {
			metadata[k] = v
		}
		metadata[MetadataKeyPurpose] = PurposeHistory
		out = append(out, Message{
			Role:     msg.Role,
			Content:  msg.Content,
			Metadata: metadata,
		})
	}
	return out
}

// messagesHaveHistory reports whether any message is already stamped
// as history.
func messagesHaveHistory(messages []Message) bool {
	for _, msg := range messages {
		if msg.Metadata != nil && msg.Metadata[MetadataKeyPurpose] == PurposeHistory {
			return true
		}
	}
	return false
}

// insertHistory places caller history when no history marker consumed
// it: before a trailing user message, otherwise at the end. Implicit
// insertion adds no purpose metadata.
func insertHistory(messages, history []Message) []Message {
	if len(history) == 0 || messagesHaveHistory(messages) {
		return messages
	}
	if len(messages) == 0 {
		return history
	}
	last := messages[len(messages)-1]
	if last.Role == RoleUser {
		out := make([]Message, 0, len(messages)+len(history))
		out = append(out, messages[:len(messages)-1]...)
		out = append(out, history...)
		out = append(out, last)
		return out
	}
	return append(messages, history...)
}

// toParts splits message text on media/section markers into parts
func toParts(source string) []Part {
	pieces := splitByRegex(source, mediaAndSectionMarkerRegex)
	parts := make([]Part, 0, len(pieces))
	for _, piece := range pieces {
		parts = append(parts, parsePart(piece))
	}
	return parts
}

// parsePart converts one piece into its typed part
func parsePart(piece string) Part {
	switch {
	case strings.HasPrefix(piece, MediaMarkerPrefix):
		fields := strings.Fields(strings.TrimPrefix(piece, MediaMarkerPrefix))
		media := MediaContent{}
		if len(fields) > 0 {
			media.URL = fields[0]
		}
		if len(fields) > 1 {
			media.ContentType = fields[1]
		}
		return &MediaPart{Media: media}
	case strings.HasPrefix(piece, SectionMarkerPrefix):
		purpose := strings.TrimSpace(strings.TrimPrefix(piece, SectionMarkerPrefix))
		return &PendingPart{Metadata: map[string]any{
			MetadataKeyPurpose: purpose,
			MetadataKeyPending: true,
		}}
	default:
		return &TextPart{Text: piece}
	}
}

// splitByRegex splits source on marker matches, keeping the captured
// marker (without its closing suffix) as its own piece and dropping
// whitespace-only interstitial text.
func splitByRegex(source string, re *regexp.Regexp) []string {
	var result []string
	lastEnd := 0
	for _, match := range re.FindAllStringSubmatchIndex(source, -1) {
		before := source[lastEnd:match[0]]
		if strings.TrimSpace(before) != "" {
			result = append(result, before)
		}
		result = append(result, source[match[2]:match[3]])
		lastEnd = match[1]
	}
	remaining := source[lastEnd:]
	if strings.TrimSpace(remaining) != "" {
		result = append(result, remaining)
	}
	return result
}
