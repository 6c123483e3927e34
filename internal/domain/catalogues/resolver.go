// Package catalogues keeps an artwork's system catalogue membership in line
// with its status while leaving the other catalogues to the artist.
package catalogues

import (
	"sort"

	"artmarket/internal/domain/works"

	"github.com/pkg/errors"
)

var (
	// ErrForeignCatalogue means a caller passed a catalogue the artist does not own.
	ErrForeignCatalogue = errors.New("catalogue does not belong to the artist")
	// ErrSystemCatalogueManaged is returned when a request tries to change
	// the system catalogue by hand.
	ErrSystemCatalogueManaged = errors.New("the available-work catalogue is managed automatically")
)

// Resolve returns the final, sorted set of catalogue ids for an artwork.
// systemID may be empty when the artist has no system catalogue yet.
func Resolve(status works.Status, selected []string, systemID string, owned map[string]bool) ([]string, error) {
	set := make(map[string]struct{}, len(selected)+1)
	for _, id := range selected {
		if id == "" {
			continue
		}
		if !owned[id] {
			return nil, errors.Wrapf(ErrForeignCatalogue, "catalogue %s", id)
		}
		set[id] = struct{}{}
	}

	if systemID != "" {
		if status.Public() {
			set[systemID] = struct{}{}
		} else {
			delete(set, systemID)
		}
	}

	return sortedKeys(set), nil
}

// Diff computes the join rows to insert and delete to move from old to next.
func Diff(old, next []string) (toAdd, toRemove []string) {
	oldSet := toSet(old)
	nextSet := toSet(next)

	toAdd = []string{}
	toRemove = []string{}
	for id := range nextSet {
		if _, ok := oldSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for id := range oldSet {
		if _, ok := nextSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	sort.Strings(toAdd)
	sort.Strings(toRemove)
	return toAdd, toRemove
}

// RejectSystem guards request boundaries: user payloads must never name the
// system catalogue.
func RejectSystem(selected []string, systemID string) error {
	if systemID == "" {
		return nil
	}
	for _, id := range selected {
		if id == systemID {
			return ErrSystemCatalogueManaged
		}
	}
	return nil
}

// WithoutSystem strips the system catalogue from a membership list, giving the
// artist-controlled part.
func WithoutSystem(ids []string, systemID string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != systemID {
			out = append(out, id)
		}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
