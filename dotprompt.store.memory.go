package dotprompt

import (
	"context"
	"sync"
)

// memKey addresses one stored entry
type memKey struct {
	name    string
	variant string
}

// MemStore is an in-memory prompt store implementing
// PromptStoreWritable. It is intended for tests and development; all
// data is lost when the process terminates. Safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	prompts  map[memKey]string
	partials map[memKey]string
	closed   bool
}

// NewMemStore creates an empty in-memory prompt store
func NewMemStore() *MemStore {
	return &MemStore{
		prompts:  make(map[memKey]string),
		partials: make(map[memKey]string),
	}
}

// List enumerates all prompts, sorted by name then variant
func (ms *MemStore) List(ctx context.Context) ([]PromptRef, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if err := ms.guard(ctx); err != nil {
		return nil, err
	}

	refs := make([]PromptRef, 0, len(ms.prompts))
	for key, source := range ms.prompts {
		refs = append(refs, PromptRef{
			Name:    key.name,
			Variant: key.variant,
			Version: contentVersion(source),
		})
	}
	sortRefs(refs, func(r PromptRef) (string, string) { return r.Name, r.Variant })
	return refs, nil
}

// ListPartials enumerates all partials, sorted by name then variant
func (ms *MemStore) ListPartials(ctx context.Context) ([]PartialRef, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if err := ms.guard(ctx); err != nil {
		return nil, err
	}

	refs := make([]PartialRef, 0, len(ms.partials))
	for key, source := range ms.partials {
		refs = append(refs, PartialRef{
			Name:    key.name,
			Variant: key.variant,
			Version: contentVersion(source),
		})
	}
	sortRefs(refs, func(r PartialRef) (string, string) { return r.Name, r.Variant })
	return refs, nil
}

// Load retrieves a prompt by name. A requested variant is tried first,
// then the variantless entry.
func (ms *MemStore) Load(ctx context.Context, name string, opts *LoadOptions) (*PromptData, error) {
	source, variant, version, err := ms.load(ctx, ms.prompts, name, opts)
	if err != nil {
		return nil, err
	}
	return &PromptData{
		PromptRef: PromptRef{Name: name, Variant: variant, Version: version},
		Source:    source,
	}, nil
}

// LoadPartial retrieves a partial by name
func (ms *MemStore) LoadPartial(ctx context.Context, name string, opts *LoadOptions) (*PartialData, error) {
	source, variant, version, err := ms.load(ctx, ms.partials, name, opts)
	if err != nil {
		return nil, err
	}
	return &PartialData{
		PartialRef: PartialRef{Name: name, Variant: variant, Version: version},
		Source:     source,
	}, nil
}

func (ms *MemStore) load(ctx context.Context, entries map[memKey]string, name string, opts *LoadOptions) (string, string, string, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if err := ms.guard(ctx); err != nil {
		return "", "", "", err
	}

	variants := []string{""}
	if opts.Variant != "" {
		variants = []string{opts.Variant, ""}
	}
	for _, variant := range variants {
		source, ok := entries[memKey{name: name, variant: variant}]
		if !ok {
			continue
		}
		version := contentVersion(source)
		if opts.Version != "" && opts.Version != version {
			return "", "", "", NewStoreError(ErrMsgVersionMismatch, name, nil)
		}
		return source, variant, version, nil
	}
	return "", "", "", NewPromptNotFoundError(name)
}

// Save stores a prompt, replacing any entry with the same name and
// variant; the version is recomputed from content.
func (ms *MemStore) Save(ctx context.Context, prompt *PromptData) error {
	if err := validatePromptName(prompt.Name); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.guard(ctx); err != nil {
		return err
	}

	ms.prompts[memKey{name: prompt.Name, variant: prompt.Variant}] = prompt.Source
	prompt.Version = contentVersion(prompt.Source)
	return nil
}

// SavePartial stores a partial
func (ms *MemStore) SavePartial(ctx context.Context, partial *PartialData) error {
	if err := validatePromptName(partial.Name); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.guard(ctx); err != nil {
		return err
	}

	ms.partials[memKey{name: partial.Name, variant: partial.Variant}] = partial.Source
	partial.Version = contentVersion(partial.Source)
	return nil
}

// Delete removes a prompt entry
func (ms *MemStore) Delete(ctx context.Context, name string, opts *DeleteOptions) error {
	variant := ""
	if opts != nil {
		variant = opts.Variant
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.guard(ctx); err != nil {
		return err
	}

	key := memKey{name: name, variant: variant}
	if _, ok := ms.prompts[key]; !ok {
		return NewPromptNotFoundError(name)
	}
	delete(ms.prompts, key)
	return nil
}

// Close marks the store as closed; further operations fail
func (ms *MemStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.closed = true
	ms.prompts = nil
	ms.partials = nil
	return nil
}

// guard is called under the lock before every operation
func (ms *MemStore) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ms.closed {
		return NewStoreError(ErrMsgStoreUnavailable, "", nil)
	}
	return nil
}
