package dotprompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirStore(t *testing.T) (*DirStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewDirStore(dir, nil)
	require.NoError(t, err)
	return store, dir
}

func TestDirStore_SaveLoad(t *testing.T) {
	store, _ := newTestDirStore(t)
	ctx := context.Background()

	prompt := &PromptData{
		PromptRef: PromptRef{Name: "greeting"},
		Source:    "hello {{name}}",
	}
	require.NoError(t, store.Save(ctx, prompt))

	loaded, err := store.Load(ctx, "greeting", nil)
	require.NoError(t, err)
	assert.Equal(t, "greeting", loaded.Name)
	assert.Equal(t, "hello {{name}}", loaded.Source)
	assert.Len(t, loaded.Version, 8)

	t.Run("version match", func(t *testing.T) {
		again, err := store.Load(ctx, "greeting", &LoadOptions{Version: loaded.Version})
		require.NoError(t, err)
		assert.Equal(t, loaded.Version, again.Version)
	})

	t.Run("version mismatch fails", func(t *testing.T) {
		_, err := store.Load(ctx, "greeting", &LoadOptions{Version: "00000000"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgVersionMismatch)
	})

	t.Run("version tracks content", func(t *testing.T) {
		changed := &PromptData{PromptRef: PromptRef{Name: "greeting"}, Source: "different"}
		require.NoError(t, store.Save(ctx, changed))
		reloaded, err := store.Load(ctx, "greeting", nil)
		require.NoError(t, err)
		assert.NotEqual(t, loaded.Version, reloaded.Version)
	})

	t.Run("missing prompt fails", func(t *testing.T) {
		_, err := store.Load(ctx, "absent", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgPromptNotFound)
	})
}

func TestDirStore_Variants(t *testing.T) {
	store, dir := newTestDirStore(t)
	ctx := context.Background()

	writePromptFile(t, dir, "greeting.prompt", "base")
	writePromptFile(t, dir, "greeting.formal.prompt", "formal")

	t.Run("variant file preferred", func(t *testing.T) {
		loaded, err := store.Load(ctx, "greeting", &LoadOptions{Variant: "formal"})
		require.NoError(t, err)
		assert.Equal(t, "formal", loaded.Variant)
		assert.Equal(t, "formal", loaded.Source)
	})

	t.Run("missing variant falls back to base", func(t *testing.T) {
		loaded, err := store.Load(ctx, "greeting", &LoadOptions{Variant: "casual"})
		require.NoError(t, err)
		assert.Empty(t, loaded.Variant)
		assert.Equal(t, "base", loaded.Source)
	})

	t.Run("save with variant", func(t *testing.T) {
		prompt := &PromptData{
			PromptRef: PromptRef{Name: "greeting", Variant: "terse"},
			Source:    "terse body",
		}
		require.NoError(t, store.Save(ctx, prompt))
		loaded, err := store.Load(ctx, "greeting", &LoadOptions{Variant: "terse"})
		require.NoError(t, err)
		assert.Equal(t, "terse body", loaded.Source)
	})
}

func TestDirStore_Partials(t *testing.T) {
	store, dir := newTestDirStore(t)
	ctx := context.Background()

	writePromptFile(t, dir, "_header.prompt", "== header ==")
	writePromptFile(t, dir, "regular.prompt", "not a partial")

	loaded, err := store.LoadPartial(ctx, "header", nil)
	require.NoError(t, err)
	assert.Equal(t, "== header ==", loaded.Source)

	_, err = store.LoadPartial(ctx, "regular", nil)
	require.Error(t, err)

	partials, err := store.ListPartials(ctx)
	require.NoError(t, err)
	require.Len(t, partials, 1)
	assert.Equal(t, "header", partials[0].Name)
}

func TestDirStore_List(t *testing.T) {
	store, dir := newTestDirStore(t)
	ctx := context.Background()

	writePromptFile(t, dir, "zeta.prompt", "z")
	writePromptFile(t, dir, "alpha.prompt", "a")
	writePromptFile(t, dir, "alpha.formal.prompt", "af")
	writePromptFile(t, dir, "nested/deep.prompt", "d")
	writePromptFile(t, dir, "_partial.prompt", "p")
	writePromptFile(t, dir, ".hidden/secret.prompt", "s")
	writePromptFile(t, dir, "notes.txt", "ignored")

	prompts, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 4)
	assert.Equal(t, PromptRef{Name: "alpha"}, prompts[0])
	assert.Equal(t, PromptRef{Name: "alpha", Variant: "formal"}, prompts[1])
	assert.Equal(t, PromptRef{Name: "nested/deep"}, prompts[2])
	assert.Equal(t, PromptRef{Name: "zeta"}, prompts[3])
}

func TestDirStore_NestedNames(t *testing.T) {
	store, _ := newTestDirStore(t)
	ctx := context.Background()

	prompt := &PromptData{
		PromptRef: PromptRef{Name: "team/onboarding"},
		Source:    "welcome",
	}
	require.NoError(t, store.Save(ctx, prompt))

	loaded, err := store.Load(ctx, "team/onboarding", nil)
	require.NoError(t, err)
	assert.Equal(t, "welcome", loaded.Source)
}

func TestDirStore_Delete(t *testing.T) {
	store, dir := newTestDirStore(t)
	ctx := context.Background()

	writePromptFile(t, dir, "doomed.prompt", "x")
	require.NoError(t, store.Delete(ctx, "doomed", nil))

	_, err := store.Load(ctx, "doomed", nil)
	require.Error(t, err)

	err = store.Delete(ctx, "doomed", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgPromptNotFound)
}

func TestDirStore_RejectsUnsafeNames(t *testing.T) {
	store, _ := newTestDirStore(t)
	ctx := context.Background()

	names := []string{
		"",
		"   ",
		"../outside",
		"a/../../outside",
		"/etc/passwd",
		"a//b",
		"a/./b",
		"nul\x00byte",
		"percent%2e%2e",
		`back\slash`,
	}
	for _, name := range names {
		_, err := store.Load(ctx, name, nil)
		require.Error(t, err, "name %q", name)
		assert.Contains(t, err.Error(), ErrMsgInvalidPromptName, "name %q", name)
	}
}
