package works

import "time"

const SystemCatalogueTitle = "Available work"

type Catalogue struct {
	ID string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	UserID uint `gorm:"not null;index;uniqueIndex:idx_catalogues_owner_slug,priority:1" json:"-"`

	Title       string `gorm:"not null" json:"title"`
	Slug        string `gorm:"not null;uniqueIndex:idx_catalogues_owner_slug,priority:2" json:"slug"`
	Description string `json:"description,omitempty"`

	// IsSystem marks the one catalogue per owner that mirrors the owner's
	// available and sold work. It is never edited by hand.
	IsSystem bool `gorm:"not null;default:false;index" json:"is_system"`

	Items []ArtworkCatalogue `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ArtworkCatalogue struct {
	ArtworkID   string `gorm:"type:uuid;primaryKey"`
	CatalogueID string `gorm:"type:uuid;primaryKey;index:idx_artwork_catalogues_position,priority:1"`
	Position    int    `gorm:"not null;default:0;index:idx_artwork_catalogues_position,priority:2"`

	CreatedAt time.Time
}
