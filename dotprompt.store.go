package dotprompt

import (
	"context"
)

// PromptRef identifies a prompt in a store
type PromptRef struct {
	Name    string `json:"name"`
	Variant string `json:"variant,omitempty"`
	Version string `json:"version,omitempty"`
}

// PromptData is a prompt's source plus its store identity
type PromptData struct {
	PromptRef
	Source string `json:"source"`
}

// PartialRef identifies a partial in a store
type PartialRef struct {
	Name    string `json:"name"`
	Variant string `json:"variant,omitempty"`
	Version string `json:"version,omitempty"`
}

// PartialData is a partial's source plus its store identity
type PartialData struct {
	PartialRef
	Source string `json:"source"`
}

// LoadOptions narrows a store load to a variant or exact version
type LoadOptions struct {
	Variant string
	Version string
}

// DeleteOptions narrows a store delete to a variant
type DeleteOptions struct {
	Variant string
}

// PromptStore is a read-only source of prompts and partials
type PromptStore interface {
	// List returns refs for all prompts in the store
	List(ctx context.Context) ([]PromptRef, error)

	// ListPartials returns refs for all partials in the store
	ListPartials(ctx context.Context) ([]PartialRef, error)

	// Load returns a prompt by name, narrowed by options. Loading a
	// missing prompt or mismatched version is an error.
	Load(ctx context.Context, name string, opts *LoadOptions) (*PromptData, error)

	// LoadPartial returns a partial by name, narrowed by options
	LoadPartial(ctx context.Context, name string, opts *LoadOptions) (*PartialData, error)
}

// PromptStoreWritable is a store that also accepts writes
type PromptStoreWritable interface {
	PromptStore

	// Save writes a prompt to the store, replacing any existing
	// prompt with the same name and variant.
	Save(ctx context.Context, prompt *PromptData) error

	// Delete removes a prompt or partial by name
	Delete(ctx context.Context, name string, opts *DeleteOptions) error
}
