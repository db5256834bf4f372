package dotprompt

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Prompt file layout conventions
const (
	promptExtension = ".prompt"
	partialPrefix   = "_"
)

// DirStore is a file-system backed prompt store. Prompts live in a
// directory tree as name.prompt files; _name.prompt files are partials
// and name.variant.prompt encodes a variant. Subdirectories contribute
// slash-separated prompt names. A prompt's version is derived from its
// content hash.
type DirStore struct {
	root   string
	logger *zap.Logger
}

// NewDirStore creates a DirStore rooted at the given directory. The
// root is resolved to an absolute path.
func NewDirStore(root string, logger *zap.Logger) (*DirStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, NewStoreError(ErrMsgStoreUnavailable, root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirStore{root: absRoot, logger: logger}, nil
}

// List enumerates all prompts in the store, sorted by name then variant
func (ds *DirStore) List(ctx context.Context) ([]PromptRef, error) {
	var prompts []PromptRef
	err := ds.walkPromptFiles(ctx, func(name string, isPartial bool) {
		if isPartial {
			return
		}
		base, variant := splitVariant(name)
		prompts = append(prompts, PromptRef{Name: base, Variant: variant})
	})
	if err != nil {
		return nil, err
	}
	sortRefs(prompts, func(r PromptRef) (string, string) { return r.Name, r.Variant })
	ds.logger.Debug(LogMsgPromptsListed,
		zap.String(LogFieldDir, ds.root),
		zap.Int(LogFieldCount, len(prompts)))
	return prompts, nil
}

// ListPartials enumerates all partials in the store
func (ds *DirStore) ListPartials(ctx context.Context) ([]PartialRef, error) {
	var partials []PartialRef
	err := ds.walkPromptFiles(ctx, func(name string, isPartial bool) {
		if !isPartial {
			return
		}
		base, variant := splitVariant(name)
		partials = append(partials, PartialRef{Name: base, Variant: variant})
	})
	if err != nil {
		return nil, err
	}
	sortRefs(partials, func(r PartialRef) (string, string) { return r.Name, r.Variant })
	return partials, nil
}

// Load reads a prompt by name. A requested variant is tried first,
// then the base file; a requested version must match the content hash.
func (ds *DirStore) Load(ctx context.Context, name string, opts *LoadOptions) (*PromptData, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}
	source, variant, err := ds.readFirst(ctx, name, "", opts.Variant)
	if err != nil {
		return nil, err
	}
	version := contentVersion(source)
	if opts.Version != "" && opts.Version != version {
		return nil, NewStoreError(ErrMsgVersionMismatch, name, nil)
	}
	return &PromptData{
		PromptRef: PromptRef{Name: name, Variant: variant, Version: version},
		Source:    source,
	}, nil
}

// LoadPartial reads a partial by name, applying the _ filename prefix
func (ds *DirStore) LoadPartial(ctx context.Context, name string, opts *LoadOptions) (*PartialData, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}
	source, variant, err := ds.readFirst(ctx, name, partialPrefix, opts.Variant)
	if err != nil {
		return nil, err
	}
	version := contentVersion(source)
	if opts.Version != "" && opts.Version != version {
		return nil, NewStoreError(ErrMsgVersionMismatch, name, nil)
	}
	return &PartialData{
		PartialRef: PartialRef{Name: name, Variant: variant, Version: version},
		Source:     source,
	}, nil
}

// Save writes a prompt file, creating parent directories as needed
func (ds *DirStore) Save(ctx context.Context, prompt *PromptData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pathName := prompt.Name
	if prompt.Variant != "" {
		pathName += "." + prompt.Variant
	}
	path, err := ds.resolvePath(pathName, "")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return NewStoreError(ErrMsgStoreUnavailable, prompt.Name, err)
	}
	if err := os.WriteFile(path, []byte(prompt.Source), 0o644); err != nil {
		return NewStoreError(ErrMsgStoreUnavailable, prompt.Name, err)
	}
	ds.logger.Debug(LogMsgPromptSaved, zap.String(LogFieldName, prompt.Name))
	return nil
}

// Delete removes a prompt file
func (ds *DirStore) Delete(ctx context.Context, name string, opts *DeleteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pathName := name
	if opts != nil && opts.Variant != "" {
		pathName += "." + opts.Variant
	}
	path, err := ds.resolvePath(pathName, "")
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return NewPromptNotFoundError(name)
		}
		return NewStoreError(ErrMsgStoreUnavailable, name, err)
	}
	ds.logger.Debug(LogMsgPromptDeleted, zap.String(LogFieldName, name))
	return nil
}

// readFirst tries the variant-specific file then the base file
func (ds *DirStore) readFirst(ctx context.Context, name, prefix, variant string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	candidates := make([][2]string, 0, 2)
	if variant != "" {
		candidates = append(candidates, [2]string{name + "." + variant, variant})
	}
	candidates = append(candidates, [2]string{name, ""})

	for _, candidate := range candidates {
		path, err := ds.resolvePath(candidate[0], prefix)
		if err != nil {
			return "", "", err
		}
		content, err := os.ReadFile(path)
		if err == nil {
			return string(content), candidate[1], nil
		}
		if !os.IsNotExist(err) {
			return "", "", NewStoreError(ErrMsgStoreUnavailable, name, err)
		}
	}
	return "", "", NewPromptNotFoundError(name)
}

// resolvePath maps a prompt name to its file path, rejecting names
// that would escape the store root.
func (ds *DirStore) resolvePath(name, prefix string) (string, error) {
	if err := validatePromptName(name); err != nil {
		return "", err
	}
	dir, base := filepath.Dir(name), filepath.Base(name)
	path := filepath.Clean(filepath.Join(ds.root, dir, prefix+base+promptExtension))
	if !strings.HasPrefix(path, ds.root+string(filepath.Separator)) {
		return "", NewStoreError(ErrMsgInvalidPromptName, name, nil)
	}
	return path, nil
}

// walkPromptFiles visits every .prompt file under the root, skipping
// hidden directories, and reports its store name and partial flag.
func (ds *DirStore) walkPromptFiles(ctx context.Context, visit func(name string, isPartial bool)) error {
	return filepath.WalkDir(ds.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return NewStoreError(ErrMsgStoreUnavailable, ds.root, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != ds.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), promptExtension) {
			return nil
		}

		rel, err := filepath.Rel(ds.root, path)
		if err != nil {
			return NewStoreError(ErrMsgStoreUnavailable, ds.root, err)
		}
		rel = filepath.ToSlash(strings.TrimSuffix(rel, promptExtension))

		dir, base := "", rel
		if idx := strings.LastIndex(rel, "/"); idx >= 0 {
			dir, base = rel[:idx+1], rel[idx+1:]
		}
		if isPartial := strings.HasPrefix(base, partialPrefix); isPartial {
			visit(dir+strings.TrimPrefix(base, partialPrefix), true)
		} else {
			visit(rel, false)
		}
		return nil
	})
}

// splitVariant separates a trailing .variant from a prompt name
func splitVariant(name string) (string, string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// contentVersion derives a stable short version from prompt content
func contentVersion(source string) string {
	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])[:8]
}

// validatePromptName rejects names that could address files outside
// the store: empty names, NUL bytes, absolute paths, parent references
// and percent-encoded traversal.
func validatePromptName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewStoreError(ErrMsgInvalidPromptName, name, nil)
	}
	if strings.ContainsRune(name, '\x00') || strings.Contains(name, "%") {
		return NewStoreError(ErrMsgInvalidPromptName, name, nil)
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return NewStoreError(ErrMsgInvalidPromptName, name, nil)
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return NewStoreError(ErrMsgInvalidPromptName, name, nil)
		}
	}
	return nil
}

// sortRefs orders refs by name then variant
func sortRefs[T any](refs []T, key func(T) (string, string)) {
	sort.Slice(refs, func(i, j int) bool {
		nameI, variantI := key(refs[i])
		nameJ, variantJ := key(refs[j])
		if nameI == nameJ {
			return variantI < variantJ
		}
		return nameI < nameJ
	})
}
