package registry

import (
	"slices"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/natsort"
)

// sortConnections puts favorites first, then orders by name.
// Equal names are ordered by id so the list doesn't jump around.
func sortConnections(conns []models.Connection) {
	slices.SortFunc(conns, func(a, b models.Connection) int {
		if a.Favorite != b.Favorite {
			if a.Favorite {
				return -1
			}
			return 1
		}
		if c := natsort.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
