package model

import "time"

// ItemKind distinguishes how a catalog item pays out.
type ItemKind string

const (
	// KindMultiplier adds Value cookies to every click per unit owned.
	KindMultiplier ItemKind = "multiplier"

	// KindAutoClicker credits Value cookies per unit owned on every passive interval.
	KindAutoClicker ItemKind = "autoclicker"
)

// Valid reports whether k is a known item kind.
func (k ItemKind) Valid() bool {
	return k == KindMultiplier || k == KindAutoClicker
}

// CatalogItem is an immutable shop entry.
type CatalogItem struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Cost        int64    `json:"cost" yaml:"cost"`
	Kind        ItemKind `json:"kind" yaml:"kind"`
	Value       int64    `json:"value" yaml:"value"`
	IntervalMs  int64    `json:"interval_ms,omitempty" yaml:"interval_ms,omitempty"`
	Emoji       string   `json:"emoji,omitempty" yaml:"emoji,omitempty"`
}

// Interval returns the passive payout period for autoclickers, zero otherwise.
func (i CatalogItem) Interval() time.Duration {
	if i.Kind != KindAutoClicker {
		return 0
	}
	return time.Duration(i.IntervalMs) * time.Millisecond
}
