package inventory

import (
	"context"
	"strings"

	"artmarket/internal/domain/catalogues"
	"artmarket/internal/domain/derivatives"
	"artmarket/internal/domain/slugs"
	"artmarket/internal/domain/works"
	"artmarket/internal/infra/events"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type CatalogueInput struct {
	Title       *string
	Description *string
}

// Catalogues lists the owner's catalogues, creating the system one on first use.
func (s *Service) Catalogues(ctx context.Context, ownerID uint) ([]works.Catalogue, error) {
	if _, err := s.store.SystemCatalogue(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.store.Catalogues(ctx, ownerID)
}

func (s *Service) CreateCatalogue(ctx context.Context, ownerID uint, in CatalogueInput) (*works.Catalogue, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, works.Invalid("title", "title is required")
	}

	c := &works.Catalogue{
		ID:     uuid.NewString(),
		UserID: ownerID,
		Title:  strings.TrimSpace(*in.Title),
	}
	if in.Description != nil {
		c.Description = *in.Description
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		slug, err := s.catalogueSlug(ctx, c)
		if err != nil {
			return err
		}
		c.Slug = slug
		return s.store.CreateCatalogue(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateCatalogue(ctx context.Context, ownerID uint, id string, in CatalogueInput) (*works.Catalogue, error) {
	var c *works.Catalogue
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.store.Catalogue(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if c.IsSystem {
			return catalogues.ErrSystemCatalogueManaged
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return works.Invalid("title", "title is required")
			}
			if title != c.Title {
				c.Title = title
				if c.Slug, err = s.catalogueSlug(ctx, c); err != nil {
					return err
				}
			}
		}
		if in.Description != nil {
			c.Description = *in.Description
		}
		return s.store.UpdateCatalogue(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteCatalogue(ctx context.Context, ownerID uint, id string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.store.Catalogue(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if c.IsSystem {
			return catalogues.ErrSystemCatalogueManaged
		}
		return s.store.DeleteCatalogue(ctx, ownerID, id)
	})
}

func (s *Service) CatalogueArtworks(ctx context.Context, ownerID uint, id string) (*works.Catalogue, []works.Artwork, error) {
	c, err := s.store.Catalogue(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.CatalogueArtworks(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, items, nil
}

// ReorderCatalogue sets positions from the order of artworkIDs. Every id must
// already be a member.
func (s *Service) ReorderCatalogue(ctx context.Context, ownerID uint, id string, artworkIDs []string) error {
	if len(artworkIDs) == 0 {
		return works.Invalid("artwork_ids", "artwork_ids required")
	}
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.store.Catalogue(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if c.IsSystem {
			return catalogues.ErrSystemCatalogueManaged
		}

		members, err := s.store.CatalogueArtworks(ctx, c.ID)
		if err != nil {
			return err
		}
		in := make(map[string]bool, len(members))
		for _, a := range members {
			in[a.ID] = true
		}
		for _, artworkID := range artworkIDs {
			if !in[artworkID] {
				return works.Invalid("artwork_ids", "artwork "+artworkID+" is not in this catalogue")
			}
		}
		return s.store.ReorderCatalogue(ctx, c.ID, artworkIDs)
	})
}

// SetMembership adds or removes one artwork from one artist catalogue.
func (s *Service) SetMembership(ctx context.Context, ownerID uint, catalogueID, artworkID string, member bool) (*works.Artwork, error) {
	c, err := s.store.Catalogue(ctx, ownerID, catalogueID)
	if err != nil {
		return nil, err
	}
	if c.IsSystem {
		return nil, catalogues.ErrSystemCatalogueManaged
	}

	a, err := s.store.Artwork(ctx, ownerID, artworkID)
	if err != nil {
		return nil, err
	}
	sys, err := s.store.SystemCatalogue(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	selected := []string{}
	for _, id := range catalogues.WithoutSystem(a.CatalogueIDs(), sys.ID) {
		if id != catalogueID {
			selected = append(selected, id)
		}
	}
	if member {
		selected = append(selected, catalogueID)
	}

	version := a.Version
	return s.UpdateArtwork(ctx, ownerID, artworkID, ArtworkInput{CatalogueIDs: selected, Version: &version})
}

func (s *Service) catalogueSlug(ctx context.Context, c *works.Catalogue) (string, error) {
	return slugs.Unique(slugs.MakeSlug(c.Title, "catalogue"), func(candidate string) (bool, error) {
		return s.store.CatalogueSlugTaken(ctx, c.UserID, candidate, c.ID)
	})
}

// RenameArtist changes the name printed in watermarks and queues a watermark
// rebuild for every artwork with a primary image.
func (s *Service) RenameArtist(ctx context.Context, ownerID uint, displayName string) (int, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return 0, works.Invalid("display_name", "display name is required")
	}

	queued := 0
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		before, err := s.store.ArtistDisplayName(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := s.store.SetArtistDisplayName(ctx, ownerID, displayName); err != nil {
			return errors.Wrap(err, "set display name")
		}
		if before == displayName {
			return nil
		}

		items, err := s.store.Artworks(ctx, ownerID, ArtworkFilter{})
		if err != nil {
			return err
		}
		for i := range items {
			a := &items[i]
			if a.PrimaryImage() == nil {
				continue
			}
			if err := s.requestDerivatives(ctx, derivatives.SnapshotOf(a, before), a, displayName); err != nil {
				return err
			}
			queued++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.events.Dispatch(ctx, events.Event{Type: events.ArtistRenamed, OwnerID: ownerID})
	return queued, nil
}

// Reconcile re-resolves system catalogue membership for every artwork of the
// owner and returns how many artworks changed.
func (s *Service) Reconcile(ctx context.Context, ownerID uint) (int, error) {
	items, err := s.store.Artworks(ctx, ownerID, ArtworkFilter{})
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range items {
		a := &items[i]
		err := s.store.WithinTx(ctx, func(ctx context.Context) error {
			moved, err := s.syncMemberships(ctx, a, a.CatalogueIDs(), nil)
			if moved {
				changed++
			}
			return err
		})
		if err != nil {
			return changed, errors.Wrapf(err, "reconcile artwork %s", a.ID)
		}
	}
	return changed, nil
}

// ReconcileAll runs Reconcile for every artist.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.store.ArtistIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, id := range ids {
		n, err := s.Reconcile(ctx, id)
		total += n
		if err != nil {
			return total, err
		}
		if n > 0 {
			log.WithFields(log.Fields{"owner_id": id, "changed": n}).Info("reconciled available-work catalogue")
		}
	}
	return total, nil
}
