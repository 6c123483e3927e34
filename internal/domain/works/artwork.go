package works

import (
	"time"

	"github.com/lib/pq"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusAvailable Status = "available"
	StatusOnHold    Status = "on_hold"
	StatusSold      Status = "sold"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusAvailable, StatusOnHold, StatusSold:
		return true
	}
	return false
}

// Public reports whether artworks in this status are listed to collectors
// and kept in the owner's system catalogue.
func (s Status) Public() bool {
	return s == StatusAvailable || s == StatusSold
}

type Artwork struct {
	ID string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	UserID uint `gorm:"not null;index;uniqueIndex:idx_artworks_owner_slug,priority:1" json:"-"`

	Title  string `gorm:"not null" json:"title"`
	Slug   string `gorm:"not null;uniqueIndex:idx_artworks_owner_slug,priority:2" json:"slug"`
	Status Status `gorm:"type:text;not null;default:'draft';index" json:"status"`

	Year        string         `json:"year,omitempty"`
	Medium      string         `json:"medium,omitempty"`
	Description string         `json:"description,omitempty"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags,omitempty"`

	Pricing    Pricing           `gorm:"embedded;embeddedPrefix:price_" json:"pricing"`
	Dimensions Dimensions        `gorm:"embedded" json:"dimensions"`
	Edition    EditionDescriptor `gorm:"embedded;embeddedPrefix:edition_" json:"edition"`

	Images     []ArtworkImage     `gorm:"constraint:OnDelete:CASCADE;" json:"images,omitempty"`
	Catalogues []ArtworkCatalogue `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	// Version is bumped on every write; stale writers get ErrConflict.
	Version int `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PrimaryImage returns the image flagged primary, or nil when the artwork has no images.
func (a *Artwork) PrimaryImage() *ArtworkImage {
	for i := range a.Images {
		if a.Images[i].IsPrimary {
			return &a.Images[i]
		}
	}
	return nil
}

// CatalogueIDs lists the catalogues the artwork currently belongs to.
func (a *Artwork) CatalogueIDs() []string {
	ids := make([]string, 0, len(a.Catalogues))
	for _, m := range a.Catalogues {
		ids = append(ids, m.CatalogueID)
	}
	return ids
}

// CheckPublishable returns a ValidationError for the first required field
// that is missing before the artwork may be listed.
func (a *Artwork) CheckPublishable() error {
	if a.Title == "" {
		return Invalid("title", "title is required")
	}
	if a.Medium == "" {
		return Invalid("medium", "medium is required before the artwork can be listed")
	}
	if !a.Dimensions.Complete() {
		return Invalid("dimensions", "width, height and unit are required before the artwork can be listed")
	}
	return nil
}
