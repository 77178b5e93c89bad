package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oran-nephio/docrag/model"
)

func newSource(url string, priority int) *model.DocumentSource {
	return &model.DocumentSource{
		URL:      url,
		Type:     model.SourceTypeCustom,
		Priority: priority,
		Enabled:  true,
	}
}

func TestRegistryAdd(t *testing.T) {
	t.Run("Add valid source", func(t *testing.T) {
		r := NewRegistry(nil)
		err := r.Add(newSource("https://docs.example.org/a", 1))
		require.NoError(t, err)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("Duplicate URL rejected", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.Add(newSource("https://docs.example.org/a", 1)))

		err := r.Add(newSource("https://docs.example.org/a", 2))
		assert.ErrorIs(t, err, ErrDuplicateURL)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("Invalid source rejected", func(t *testing.T) {
		r := NewRegistry(nil)
		assert.Error(t, r.Add(newSource("not-a-url", 1)))
		assert.Error(t, r.Add(newSource("https://docs.example.org/b", 9)))
		assert.Error(t, r.Add(nil))
		assert.Equal(t, 0, r.Len())
	})

	t.Run("Add copies the source", func(t *testing.T) {
		r := NewRegistry(nil)
		src := newSource("https://docs.example.org/a", 1)
		require.NoError(t, r.Add(src))

		src.Priority = 5
		got, err := r.Get(src.URL)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Priority)
	})
}

func TestRegistrySetEnabled(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add(newSource("https://docs.example.org/a", 1)))

	t.Run("Disable and re-enable", func(t *testing.T) {
		require.NoError(t, r.SetEnabled("https://docs.example.org/a", false))
		assert.Len(t, r.ListEnabled(), 0)

		require.NoError(t, r.SetEnabled("https://docs.example.org/a", true))
		assert.Len(t, r.ListEnabled(), 1)
	})

	t.Run("Unknown URL", func(t *testing.T) {
		err := r.SetEnabled("https://docs.example.org/missing", false)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRegistrySetPriority(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add(newSource("https://docs.example.org/a", 3)))

	t.Run("Change priority", func(t *testing.T) {
		require.NoError(t, r.SetPriority("https://docs.example.org/a", 1))
		got, err := r.Get("https://docs.example.org/a")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Priority)
	})

	t.Run("Out of range rejected", func(t *testing.T) {
		assert.Error(t, r.SetPriority("https://docs.example.org/a", 0))
		assert.Error(t, r.SetPriority("https://docs.example.org/a", 6))
	})

	t.Run("Unknown URL", func(t *testing.T) {
		err := r.SetPriority("https://docs.example.org/missing", 2)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRegistryListEnabled(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add(newSource("https://docs.example.org/low", 3)))
	require.NoError(t, r.Add(newSource("https://docs.example.org/high", 1)))
	require.NoError(t, r.Add(newSource("https://docs.example.org/mid-a", 2)))
	require.NoError(t, r.Add(newSource("https://docs.example.org/mid-b", 2)))
	require.NoError(t, r.SetEnabled("https://docs.example.org/low", false))

	enabled := r.ListEnabled()
	require.Len(t, enabled, 3)

	t.Run("Ordered by priority then insertion", func(t *testing.T) {
		assert.Equal(t, "https://docs.example.org/high", enabled[0].URL)
		assert.Equal(t, "https://docs.example.org/mid-a", enabled[1].URL)
		assert.Equal(t, "https://docs.example.org/mid-b", enabled[2].URL)
	})

	t.Run("Returned sources are copies", func(t *testing.T) {
		enabled[0].Priority = 5
		got, err := r.Get("https://docs.example.org/high")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Priority)
	})
}

func TestNewDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry(nil)
	require.NoError(t, err)

	assert.Equal(t, len(DefaultSources()), r.Len())
	for _, src := range r.ListAll() {
		assert.NoError(t, src.Validate())
		assert.True(t, src.Enabled)
	}
}
