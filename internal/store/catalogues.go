package store

import (
	"context"

	"artmarket/internal/domain/slugs"
	"artmarket/internal/domain/works"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

// SystemCatalogue returns the owner's available-work catalogue, creating it
// on first use. A partial unique index keeps it one per owner.
func (s *Store) SystemCatalogue(ctx context.Context, ownerID uint) (*works.Catalogue, error) {
	db := s.conn(ctx)

	var c works.Catalogue
	err := db.Where("user_id = ? AND is_system", ownerID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if err = notFound(err); !errors.Is(err, works.ErrNotFound) {
		return nil, errors.Wrap(err, "load system catalogue")
	}

	c = works.Catalogue{
		ID:       uuid.NewString(),
		UserID:   ownerID,
		Title:    works.SystemCatalogueTitle,
		IsSystem: true,
	}
	c.Slug, err = slugs.Unique(slugs.MakeSlug(c.Title, "available-work"), func(candidate string) (bool, error) {
		return s.CatalogueSlugTaken(ctx, ownerID, candidate, c.ID)
	})
	if err != nil {
		return nil, err
	}
	if err := db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
		return nil, errors.Wrap(err, "create system catalogue")
	}

	// a concurrent request may have won the insert
	var created works.Catalogue
	if err := db.Where("user_id = ? AND is_system", ownerID).First(&created).Error; err != nil {
		return nil, errors.Wrap(err, "reload system catalogue")
	}
	return &created, nil
}

func (s *Store) OwnedCatalogueIDs(ctx context.Context, ownerID uint) (map[string]bool, error) {
	var ids []string
	if err := s.conn(ctx).Model(&works.Catalogue{}).Where("user_id = ?", ownerID).Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(err, "list catalogue ids")
	}
	owned := make(map[string]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

func (s *Store) Catalogues(ctx context.Context, ownerID uint) ([]works.Catalogue, error) {
	var items []works.Catalogue
	err := s.conn(ctx).
		Where("user_id = ?", ownerID).
		Order("is_system DESC, title ASC").
		Find(&items).Error
	return items, errors.Wrap(err, "list catalogues")
}

func (s *Store) Catalogue(ctx context.Context, ownerID uint, id string) (*works.Catalogue, error) {
	if !validID(id) {
		return nil, works.ErrNotFound
	}
	var c works.Catalogue
	if err := s.conn(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateCatalogue(ctx context.Context, c *works.Catalogue) error {
	return errors.Wrap(s.conn(ctx).Omit(clause.Associations).Create(c).Error, "create catalogue")
}

func (s *Store) UpdateCatalogue(ctx context.Context, c *works.Catalogue) error {
	err := s.conn(ctx).Model(c).
		Select("title", "slug", "description", "updated_at").
		Updates(c).Error
	return errors.Wrap(err, "update catalogue")
}

func (s *Store) DeleteCatalogue(ctx context.Context, ownerID uint, id string) error {
	if !validID(id) {
		return works.ErrNotFound
	}
	res := s.conn(ctx).Where("id = ? AND user_id = ? AND NOT is_system", id, ownerID).Delete(&works.Catalogue{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete catalogue")
	}
	if res.RowsAffected == 0 {
		return works.ErrNotFound
	}
	return nil
}

func (s *Store) CatalogueSlugTaken(ctx context.Context, ownerID uint, slug, exceptID string) (bool, error) {
	q := s.conn(ctx).Model(&works.Catalogue{}).Where("user_id = ? AND slug = ?", ownerID, slug)
	if validID(exceptID) {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, errors.Wrap(err, "check catalogue slug")
	}
	return n > 0, nil
}

// CatalogueArtworks lists members in catalogue order.
func (s *Store) CatalogueArtworks(ctx context.Context, catalogueID string) ([]works.Artwork, error) {
	var items []works.Artwork
	err := withRelations(s.conn(ctx)).
		Joins("JOIN artwork_catalogues ac ON ac.artwork_id = artworks.id").
		Where("ac.catalogue_id = ?", catalogueID).
		Order("ac.position ASC, artworks.created_at ASC").
		Find(&items).Error
	return items, errors.Wrap(err, "list catalogue artworks")
}

func (s *Store) ReorderCatalogue(ctx context.Context, catalogueID string, artworkIDs []string) error {
	db := s.conn(ctx)
	for i, id := range artworkIDs {
		err := db.Model(&works.ArtworkCatalogue{}).
			Where("catalogue_id = ? AND artwork_id = ?", catalogueID, id).
			Update("position", i).Error
		if err != nil {
			return errors.Wrapf(err, "reorder %s", id)
		}
	}
	return nil
}

// AddMemberships appends the artwork at the end of each catalogue.
func (s *Store) AddMemberships(ctx context.Context, artworkID string, catalogueIDs []string) error {
	db := s.conn(ctx)
	for _, id := range catalogueIDs {
		var next int
		err := db.Model(&works.ArtworkCatalogue{}).
			Where("catalogue_id = ?", id).
			Select("COALESCE(MAX(position), -1) + 1").
			Scan(&next).Error
		if err != nil {
			return errors.Wrapf(err, "next position in %s", id)
		}

		m := works.ArtworkCatalogue{ArtworkID: artworkID, CatalogueID: id, Position: next}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
			return errors.Wrapf(err, "add to %s", id)
		}
	}
	return nil
}

func (s *Store) RemoveMemberships(ctx context.Context, artworkID string, catalogueIDs []string) error {
	return s.conn(ctx).
		Where("artwork_id = ? AND catalogue_id IN ?", artworkID, catalogueIDs).
		Delete(&works.ArtworkCatalogue{}).Error
}
