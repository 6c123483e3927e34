package store

import (
	"context"

	"artmarket/internal/domain/slugs"
	"artmarket/internal/domain/users"
	"artmarket/internal/domain/works"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func (s *Store) User(ctx context.Context, id uint) (*users.User, error) {
	var u users.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) EnsureSiteSlug(ctx context.Context, u *users.User) (string, error) {
	return slugs.EnsureSiteSlug(s.conn(ctx), u)
}

// ArtistIDs lists every owner that has at least one artwork.
func (s *Store) ArtistIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.conn(ctx).Model(&works.Artwork{}).Distinct("user_id").Order("user_id").Pluck("user_id", &ids).Error
	return ids, errors.Wrap(err, "list artist ids")
}

// ArtistDisplayName is the name printed in watermarks. An owner without a
// user row gets an empty name.
func (s *Store) ArtistDisplayName(ctx context.Context, ownerID uint) (string, error) {
	var u users.User
	err := s.conn(ctx).Select("id", "name", "lastname", "display_name").First(&u, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "load artist")
	}
	return u.WatermarkName(), nil
}

func (s *Store) SetArtistDisplayName(ctx context.Context, ownerID uint, name string) error {
	res := s.conn(ctx).Model(&users.User{}).Where("id = ?", ownerID).Update("display_name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return works.ErrNotFound
	}
	return nil
}
