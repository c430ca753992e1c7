package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/card-ledger/card"
)

func price(f float64) *float64 { return &f }

func TestStaticSource(t *testing.T) {
	ctx := context.Background()
	src := NewStatic([]Card{
		{ID: "sv1-25", Name: "Pikachu", SetName: "Scarlet & Violet", Rarity: "Common", Price: price(1.25)},
		{ID: "base1-4", Name: "Charizard", SetName: "Base Set", Price: price(350)},
		{ID: "base1-58", Name: "Pikachu"},
	}, map[string]string{"base1": "Base"})

	t.Run("cards for known ids only", func(t *testing.T) {
		cards, err := src.Cards(ctx, []card.ID{"sv1-25", "base1-58", "zz9-1"})
		require.NoError(t, err)
		assert.Len(t, cards, 2)
		assert.Equal(t, "Pikachu", cards["sv1-25"].Name)
		assert.Equal(t, 0.0, cards["base1-58"].Price, "missing price is zero")
	})

	t.Run("prices", func(t *testing.T) {
		prices, err := src.Prices(ctx, []card.ID{"sv1-25", "base1-4"})
		require.NoError(t, err)
		assert.Equal(t, 1.25, prices["sv1-25"])
		assert.Equal(t, 350.0, prices["base1-4"])
	})

	t.Run("explicit set names win", func(t *testing.T) {
		sets, err := src.SetNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Base", sets["base1"])
		assert.Equal(t, "Scarlet & Violet", sets["sv1"])
	})
}

func TestLoadStatic(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "catalog.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"sets": {"sv1": "Scarlet & Violet"},
			"cards": [{"id": "sv1-25", "name": "Pikachu", "price": 1.25}]
		}`), 0o600))

		src, err := LoadStatic(path)
		require.NoError(t, err)

		prices, err := src.Prices(context.Background(), []card.ID{"sv1-25"})
		require.NoError(t, err)
		assert.Equal(t, 1.25, prices["sv1-25"])
	})

	t.Run("bad card id", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"cards": [{"id": "nodash"}]}`), 0o600))

		_, err := LoadStatic(path)
		assert.ErrorIs(t, err, ErrInvalidCatalog)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadStatic(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})
}
