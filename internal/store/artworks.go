package store

import (
	"context"
	"time"

	"artmarket/internal/app/inventory"
	"artmarket/internal/domain/collectors"
	"artmarket/internal/domain/derivatives"
	"artmarket/internal/domain/works"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Catalogues")
}

func (s *Store) Artwork(ctx context.Context, ownerID uint, id string) (*works.Artwork, error) {
	if !validID(id) {
		return nil, works.ErrNotFound
	}
	var a works.Artwork
	err := withRelations(s.conn(ctx)).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) PublicArtwork(ctx context.Context, id string) (*works.Artwork, error) {
	if !validID(id) {
		return nil, works.ErrNotFound
	}
	var a works.Artwork
	err := withRelations(s.conn(ctx)).
		Where("id = ? AND status IN ?", id, []works.Status{works.StatusAvailable, works.StatusSold}).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) LockArtwork(ctx context.Context, id string) (*works.Artwork, error) {
	if !validID(id) {
		return nil, works.ErrNotFound
	}
	db := s.conn(ctx)

	var a works.Artwork
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	if err := db.Where("artwork_id = ?", id).Order("position ASC").Find(&a.Images).Error; err != nil {
		return nil, errors.Wrap(err, "load images")
	}
	if err := db.Where("artwork_id = ?", id).Find(&a.Catalogues).Error; err != nil {
		return nil, errors.Wrap(err, "load memberships")
	}
	return &a, nil
}

func (s *Store) Artworks(ctx context.Context, ownerID uint, filter inventory.ArtworkFilter) ([]works.Artwork, error) {
	q := withRelations(s.conn(ctx)).Where("user_id = ?", ownerID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Tag != "" {
		q = q.Where("? = ANY(tags)", filter.Tag)
	}

	var items []works.Artwork
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "list artworks")
	}
	return items, nil
}

func (s *Store) CreateArtwork(ctx context.Context, a *works.Artwork) error {
	return s.conn(ctx).Omit(clause.Associations).Create(a).Error
}

func (s *Store) UpdateArtwork(ctx context.Context, a *works.Artwork, expected int) error {
	now := time.Now()
	res := s.conn(ctx).Model(&works.Artwork{}).
		Where("id = ? AND version = ?", a.ID, expected).
		Updates(map[string]any{
			"title":                 a.Title,
			"slug":                  a.Slug,
			"status":                a.Status,
			"year":                  a.Year,
			"medium":                a.Medium,
			"description":           a.Description,
			"tags":                  a.Tags,
			"price_mode":            a.Pricing.Mode,
			"price_amount":          a.Pricing.Amount,
			"price_min":             a.Pricing.Min,
			"price_max":             a.Pricing.Max,
			"price_currency":        a.Pricing.Currency,
			"width":                 a.Dimensions.Width,
			"height":                a.Dimensions.Height,
			"depth":                 a.Dimensions.Depth,
			"unit":                  a.Dimensions.Unit,
			"edition_is_edition":    a.Edition.IsEdition,
			"edition_numeric_size":  a.Edition.NumericSize,
			"edition_ap_size":       a.Edition.APSize,
			"edition_sold_editions": a.Edition.SoldEditions,
			"version":               expected + 1,
			"updated_at":            now,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update artwork")
	}
	if res.RowsAffected == 0 {
		return works.ErrConflict
	}
	a.Version = expected + 1
	a.UpdatedAt = now
	return nil
}

func (s *Store) DeleteArtwork(ctx context.Context, ownerID uint, id string) error {
	if !validID(id) {
		return works.ErrNotFound
	}
	return s.WithinTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		res := db.Where("id = ? AND user_id = ?", id, ownerID).Delete(&works.Artwork{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete artwork")
		}
		if res.RowsAffected == 0 {
			return works.ErrNotFound
		}
		if err := db.Where("artwork_id = ?", id).Delete(&derivatives.Task{}).Error; err != nil {
			return errors.Wrap(err, "delete regeneration tasks")
		}
		return db.Where("artwork_id = ?", id).Delete(&collectors.Favorite{}).Error
	})
}

func (s *Store) ArtworkSlugTaken(ctx context.Context, ownerID uint, slug, exceptID string) (bool, error) {
	q := s.conn(ctx).Model(&works.Artwork{}).Where("user_id = ? AND slug = ?", ownerID, slug)
	if validID(exceptID) {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, errors.Wrap(err, "check artwork slug")
	}
	return n > 0, nil
}

func (s *Store) ReplaceImages(ctx context.Context, artworkID string, images []works.ArtworkImage) error {
	db := s.conn(ctx)

	keep := make([]string, 0, len(images))
	for _, img := range images {
		keep = append(keep, img.ID)
	}
	del := db.Where("artwork_id = ?", artworkID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&works.ArtworkImage{}).Error; err != nil {
		return errors.Wrap(err, "delete images")
	}
	if len(images) == 0 {
		return nil
	}

	for i := range images {
		images[i].ArtworkID = artworkID
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&images).Error
}

func (s *Store) RecordSale(ctx context.Context, sale *works.EditionSale) (bool, error) {
	res := s.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "stripe_session_id"}}, DoNothing: true}).
		Create(sale)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "record sale")
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) Sales(ctx context.Context, ownerID uint) ([]works.EditionSale, error) {
	var sales []works.EditionSale
	err := s.conn(ctx).
		Joins("JOIN artworks ON artworks.id = edition_sales.artwork_id").
		Where("artworks.user_id = ?", ownerID).
		Order("edition_sales.created_at DESC").
		Find(&sales).Error
	return sales, errors.Wrap(err, "list sales")
}
