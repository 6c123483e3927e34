package store

import (
	"context"

	"artmarket/internal/domain/collectors"
	"artmarket/internal/domain/users"
	"artmarket/internal/domain/works"

	"github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

var publicStatuses = []works.Status{works.StatusAvailable, works.StatusSold}

func (s *Store) ArtistBySiteSlug(ctx context.Context, slug string) (*users.User, error) {
	var u users.User
	if err := s.conn(ctx).Where("site_slug = ?", slug).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// AvailableWork lists the artist's system catalogue in order.
func (s *Store) AvailableWork(ctx context.Context, artistID uint) ([]works.Artwork, error) {
	sys, err := s.SystemCatalogue(ctx, artistID)
	if err != nil {
		return nil, err
	}
	return s.CatalogueArtworks(ctx, sys.ID)
}

// PublicCatalogue returns a catalogue by slug with only its public members.
func (s *Store) PublicCatalogue(ctx context.Context, artistID uint, slug string) (*works.Catalogue, []works.Artwork, error) {
	var c works.Catalogue
	if err := s.conn(ctx).Where("user_id = ? AND slug = ?", artistID, slug).First(&c).Error; err != nil {
		return nil, nil, notFound(err)
	}

	var items []works.Artwork
	err := withRelations(s.conn(ctx)).
		Joins("JOIN artwork_catalogues ac ON ac.artwork_id = artworks.id").
		Where("ac.catalogue_id = ? AND artworks.status IN ?", c.ID, publicStatuses).
		Order("ac.position ASC").
		Find(&items).Error
	if err != nil {
		return nil, nil, errors.Wrap(err, "list public catalogue")
	}
	return &c, items, nil
}

func (s *Store) AddFavorite(ctx context.Context, userID uint, artworkID string) error {
	f := collectors.Favorite{UserID: userID, ArtworkID: artworkID}
	return errors.Wrap(s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&f).Error, "add favorite")
}

func (s *Store) RemoveFavorite(ctx context.Context, userID uint, artworkID string) error {
	if !validID(artworkID) {
		return nil
	}
	return s.conn(ctx).Where("user_id = ? AND artwork_id = ?", userID, artworkID).Delete(&collectors.Favorite{}).Error
}

func (s *Store) Favorites(ctx context.Context, userID uint) ([]works.Artwork, error) {
	var items []works.Artwork
	err := withRelations(s.conn(ctx)).
		Joins("JOIN favorites f ON f.artwork_id = artworks.id").
		Where("f.user_id = ? AND artworks.status IN ?", userID, publicStatuses).
		Order("f.created_at DESC").
		Find(&items).Error
	return items, errors.Wrap(err, "list favorites")
}

func (s *Store) CreateInquiry(ctx context.Context, q *collectors.Inquiry) error {
	return errors.Wrap(s.conn(ctx).Create(q).Error, "create inquiry")
}

func (s *Store) ArtistInquiries(ctx context.Context, artistID uint, status collectors.InquiryStatus) ([]collectors.Inquiry, error) {
	q := s.conn(ctx).Where("artist_id = ?", artistID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var items []collectors.Inquiry
	err := q.Order("created_at DESC").Find(&items).Error
	return items, errors.Wrap(err, "list inquiries")
}

func (s *Store) SetInquiryStatus(ctx context.Context, artistID uint, id string, status collectors.InquiryStatus) (*collectors.Inquiry, error) {
	if !validID(id) {
		return nil, works.ErrNotFound
	}
	res := s.conn(ctx).Model(&collectors.Inquiry{}).
		Where("id = ? AND artist_id = ?", id, artistID).
		Update("status", status)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update inquiry")
	}
	if res.RowsAffected == 0 {
		return nil, works.ErrNotFound
	}

	var q collectors.Inquiry
	if err := s.conn(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}
