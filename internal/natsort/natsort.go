// Package natsort orders display names the way people read them:
// case-insensitive, with embedded numbers compared by value ("Item2" < "Item10").
package natsort

import (
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	mu       sync.Mutex
	collator = collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
)

// Compare returns -1, 0 or 1. Ties under the collator fall back to byte order
// so the result is deterministic.
func Compare(a, b string) int {
	mu.Lock()
	c := collator.CompareString(a, b)
	mu.Unlock()
	if c != 0 {
		return c
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Strings sorts ss in place
func Strings(ss []string) {
	slices.SortStableFunc(ss, Compare)
}

// SortFunc sorts items in place by the name returned from key
func SortFunc[T any](items []T, key func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		return Compare(key(a), key(b))
	})
}
