package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"cookieboy-api/internal/model"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	item, ok := c.Lookup("wooden_spoon")
	require.True(t, ok)
	require.Equal(t, int64(50), item.Cost)
	require.Equal(t, model.KindMultiplier, item.Kind)

	_, ok = c.Lookup("diamond_oven")
	require.False(t, ok)

	require.Len(t, c.Items(), 6)
	require.Len(t, c.ByKind(model.KindMultiplier), 3)
	require.Len(t, c.ByKind(model.KindAutoClicker), 3)
	require.Equal(t, "wooden_spoon", c.Items()[0].ID)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		item model.CatalogItem
	}{
		{"missing id", model.CatalogItem{Cost: 1, Value: 1, Kind: model.KindMultiplier}},
		{"zero cost", model.CatalogItem{ID: "a", Value: 1, Kind: model.KindMultiplier}},
		{"zero value", model.CatalogItem{ID: "a", Cost: 1, Kind: model.KindMultiplier}},
		{"bad kind", model.CatalogItem{ID: "a", Cost: 1, Value: 1, Kind: "booster"}},
		{"autoclicker without interval", model.CatalogItem{ID: "a", Cost: 1, Value: 1, Kind: model.KindAutoClicker}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]model.CatalogItem{tt.item})
			require.Error(t, err)
		})
	}

	item := model.CatalogItem{ID: "a", Cost: 1, Value: 1, Kind: model.KindMultiplier}
	_, err := New([]model.CatalogItem{item, item})
	require.Error(t, err)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
items:
  - id: rolling_pin
    name: Rolling Pin
    description: "+2 cookies per click"
    cost: 80
    kind: multiplier
    value: 2
  - id: oven
    name: Oven
    description: "Bakes 3 cookies every 20 seconds"
    cost: 300
    kind: autoclicker
    value: 3
    interval_ms: 20000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Items(), 2)

	oven, ok := c.Lookup("oven")
	require.True(t, ok)
	require.Equal(t, model.KindAutoClicker, oven.Kind)
	require.Equal(t, int64(20000), oven.IntervalMs)
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Len(t, c.Items(), 6)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items: []\n"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}
