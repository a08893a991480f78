// Package catalog holds the read-only product snapshot of a business and the
// matcher that decides which item a conversation is currently about.
package catalog

import (
	"fmt"
	"strings"
)

// Category groups catalog items for presentation.
type Category struct {
	Name  string `json:"name" yaml:"name"`
	Items []Item `json:"items" yaml:"items"`
}

// Item is a product or service. A nil Price means "quote on request".
type Item struct {
	Name                string         `json:"name" yaml:"name"`
	Price               *int64         `json:"price,omitempty" yaml:"price,omitempty"`
	RequiresReservation bool           `json:"requiresReservation" yaml:"requiresReservation"`
	DurationMinutes     int            `json:"durationMinutes,omitempty" yaml:"durationMinutes,omitempty"`
	Description         string         `json:"description,omitempty" yaml:"description,omitempty"`
	AIDetails           string         `json:"aiDetails,omitempty" yaml:"aiDetails,omitempty"`
	Photo               string         `json:"photo,omitempty" yaml:"photo,omitempty"`
	VariantGroups       []VariantGroup `json:"variantGroups,omitempty" yaml:"variantGroups,omitempty"`
}

// VariantGroup is an ordered set of options such as sizes or colours.
type VariantGroup struct {
	Name    string   `json:"name" yaml:"name"`
	Options []Option `json:"options" yaml:"options"`
}

// Option is one variant choice, optionally with its own photo.
type Option struct {
	Name  string `json:"name" yaml:"name"`
	Photo string `json:"photo,omitempty" yaml:"photo,omitempty"`
}

// PriceLabel renders the price for prompts and alerts.
func (it *Item) PriceLabel() string {
	if it.Price == nil {
		return "A cotizar"
	}
	return fmt.Sprintf("$%d", *it.Price)
}

// Photos lists every photo reference of the item, principal photo first and
// then variant options in configured order.
func (it *Item) Photos() []string {
	if it == nil {
		return nil
	}
	var photos []string
	if ref := strings.TrimSpace(it.Photo); ref != "" {
		photos = append(photos, ref)
	}
	for _, group := range it.VariantGroups {
		for _, opt := range group.Options {
			if ref := strings.TrimSpace(opt.Photo); ref != "" {
				photos = append(photos, ref)
			}
		}
	}
	return photos
}

// HasPhoto reports whether the item or any of its options carries a photo.
func HasPhoto(it *Item) bool {
	return len(it.Photos()) > 0
}

// FirstPhoto returns the preferred photo reference, or "" when there is none.
func FirstPhoto(it *Item) string {
	photos := it.Photos()
	if len(photos) == 0 {
		return ""
	}
	return photos[0]
}

// OwnsPhoto reports whether ref is one of the item's photo references.
func OwnsPhoto(it *Item, ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	for _, p := range it.Photos() {
		if p == ref {
			return true
		}
	}
	return false
}
