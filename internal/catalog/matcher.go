package catalog

import (
	"strings"

	"salesbot_backend/platform/textnorm"
)

type entry struct {
	key  string
	item *Item
}

// Index is a normalized view over a catalog snapshot.
type Index struct {
	entries []entry
}

// NewIndex builds an index in category/item order. Items with blank names are
// skipped.
func NewIndex(categories []Category) *Index {
	idx := &Index{}
	for ci := range categories {
		for ii := range categories[ci].Items {
			item := &categories[ci].Items[ii]
			key := textnorm.Normalize(item.Name)
			if key == "" {
				continue
			}
			idx.entries = append(idx.entries, entry{key: key, item: item})
		}
	}
	return idx
}

// Len returns the number of indexed items.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// InFocus returns the item whose name occurs last in the normalized text.
// When two names end up at the same offset the first one scanned wins.
func (ix *Index) InFocus(normalized string) *Item {
	var best *Item
	bestOffset := -1
	for _, e := range ix.entries {
		offset := strings.LastIndex(normalized, e.key)
		if offset > bestOffset {
			best = e.item
			bestOffset = offset
		}
	}
	return best
}

// Lookup finds an item by name, ignoring case and diacritics.
func (ix *Index) Lookup(name string) *Item {
	key := textnorm.Normalize(name)
	if key == "" {
		return nil
	}
	for _, e := range ix.entries {
		if e.key == key {
			return e.item
		}
	}
	return nil
}

// RecentText joins the last n history entries and the current message into
// the normalized text the matcher consumes.
func RecentText(history []string, n int, current string) string {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	parts := make([]string, 0, len(history)+1)
	for _, h := range history {
		if norm := textnorm.Normalize(h); norm != "" {
			parts = append(parts, norm)
		}
	}
	if norm := textnorm.Normalize(current); norm != "" {
		parts = append(parts, norm)
	}
	return strings.Join(parts, " ")
}
