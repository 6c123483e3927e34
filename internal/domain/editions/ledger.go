// Package editions computes the sellable identifiers of a limited edition and
// applies sale-state toggles to an edition descriptor.
package editions

import (
	"fmt"

	"artmarket/internal/domain/works"

	"github.com/pkg/errors"
)

var ErrInvalidIdentifier = errors.New("edition identifier does not exist")

// MaxSize bounds both the numbered run and the artist's proofs.
const MaxSize = 10000

// Enumerate lists "1/N".."N/N" followed by "AP 1/M".."AP M/M".
// Unique works (IsEdition false) have no identifiers.
func Enumerate(d works.EditionDescriptor) []string {
	if !d.IsEdition {
		return []string{}
	}
	n, m := max(d.NumericSize, 0), max(d.APSize, 0)

	out := make([]string, 0, n+m)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("%d/%d", i, n))
	}
	for i := 1; i <= m; i++ {
		out = append(out, fmt.Sprintf("AP %d/%d", i, m))
	}
	return out
}

// SetSaleState marks identifier sold or unsold. Repeating a toggle is a no-op.
// The returned descriptor keeps SoldEditions in enumeration order.
func SetSaleState(d works.EditionDescriptor, identifier string, sold bool) (works.EditionDescriptor, error) {
	all := Enumerate(d)
	if !contains(all, identifier) {
		return d, errors.Wrapf(ErrInvalidIdentifier, "%q", identifier)
	}

	current := toSet(d.SoldEditions)
	if sold {
		current[identifier] = struct{}{}
	} else {
		delete(current, identifier)
	}

	// orphaned identifiers are kept as-is; resizes that would orphan them are rejected upstream
	next := make([]string, 0, len(current))
	for _, id := range all {
		if _, ok := current[id]; ok {
			next = append(next, id)
			delete(current, id)
		}
	}
	for _, id := range d.SoldEditions {
		if _, ok := current[id]; ok {
			next = append(next, id)
			delete(current, id)
		}
	}

	d.SoldEditions = next
	return d, nil
}

func IsFullySold(d works.EditionDescriptor) bool {
	all := Enumerate(d)
	if len(all) == 0 {
		return false
	}
	sold := toSet(d.SoldEditions)
	for _, id := range all {
		if _, ok := sold[id]; !ok {
			return false
		}
	}
	return true
}

// Available lists the enumerated identifiers that are not sold yet.
func Available(d works.EditionDescriptor) []string {
	sold := toSet(d.SoldEditions)
	out := []string{}
	for _, id := range Enumerate(d) {
		if _, ok := sold[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// OrphanedSales returns sold identifiers that the current sizes no longer produce.
func OrphanedSales(d works.EditionDescriptor) []string {
	all := toSet(Enumerate(d))
	out := []string{}
	for _, id := range d.SoldEditions {
		if _, ok := all[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Validate checks sizes and that every sold identifier is still derivable.
func Validate(d works.EditionDescriptor) error {
	if d.NumericSize < 0 || d.APSize < 0 {
		return works.Invalid("edition", "edition sizes cannot be negative")
	}
	if d.NumericSize > MaxSize || d.APSize > MaxSize {
		return works.Invalid("edition", fmt.Sprintf("edition sizes cannot exceed %d", MaxSize))
	}
	if !d.IsEdition {
		if len(d.SoldEditions) > 0 {
			return works.Invalid("edition", "sold editions recorded on a unique work")
		}
		return nil
	}
	if orphans := OrphanedSales(d); len(orphans) > 0 {
		return works.Invalid("edition", fmt.Sprintf("edition size cannot drop below sold editions %v", orphans))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, v := range list {
		set[v] = struct{}{}
	}
	return set
}
