package catalog

import (
	"fmt"
	"os"

	"cookieboy-api/internal/model"

	"gopkg.in/yaml.v3"
)

// Catalog is the immutable set of purchasable items. It is safe for
// concurrent use because nothing mutates it after construction.
type Catalog struct {
	items map[string]model.CatalogItem
	order []string
}

// file mirrors the YAML catalog layout.
type file struct {
	Items []model.CatalogItem `yaml:"items"`
}

// New builds a catalog from items, keeping their order for display.
func New(items []model.CatalogItem) (*Catalog, error) {
	c := &Catalog{
		items: make(map[string]model.CatalogItem, len(items)),
		order: make([]string, 0, len(items)),
	}
	for _, item := range items {
		if err := validate(item); err != nil {
			return nil, err
		}
		if _, dup := c.items[item.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog item %q", item.ID)
		}
		c.items[item.ID] = item
		c.order = append(c.order, item.ID)
	}
	return c, nil
}

// Load reads a YAML catalog from path. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("catalog %s has no items", path)
	}
	return New(f.Items)
}

// Default returns the built-in shop.
func Default() *Catalog {
	c, err := New(defaultItems)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup resolves an item ID.
func (c *Catalog) Lookup(id string) (model.CatalogItem, bool) {
	item, ok := c.items[id]
	return item, ok
}

// Items returns every item in display order.
func (c *Catalog) Items() []model.CatalogItem {
	out := make([]model.CatalogItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// ByKind returns the items of one kind in display order.
func (c *Catalog) ByKind(kind model.ItemKind) []model.CatalogItem {
	var out []model.CatalogItem
	for _, id := range c.order {
		if item := c.items[id]; item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

func validate(item model.CatalogItem) error {
	switch {
	case item.ID == "":
		return fmt.Errorf("catalog item without id")
	case item.Cost <= 0:
		return fmt.Errorf("catalog item %q: cost must be positive", item.ID)
	case item.Value <= 0:
		return fmt.Errorf("catalog item %q: value must be positive", item.ID)
	case !item.Kind.Valid():
		return fmt.Errorf("catalog item %q: unknown kind %q", item.ID, item.Kind)
	case item.Kind == model.KindAutoClicker && item.IntervalMs <= 0:
		return fmt.Errorf("catalog item %q: autoclicker needs a positive interval_ms", item.ID)
	}
	return nil
}
