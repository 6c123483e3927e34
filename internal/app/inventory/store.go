package inventory

import (
	"context"

	"artmarket/internal/domain/derivatives"
	"artmarket/internal/domain/works"
)

// Store is the artwork record store. Methods called with the context handed
// to WithinTx run inside that transaction.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Artwork loads an owner's artwork with images (by position) and memberships.
	Artwork(ctx context.Context, ownerID uint, id string) (*works.Artwork, error)
	// LockArtwork loads an artwork by id for update, whoever owns it.
	LockArtwork(ctx context.Context, id string) (*works.Artwork, error)
	// PublicArtwork loads an available or sold artwork for collectors.
	PublicArtwork(ctx context.Context, id string) (*works.Artwork, error)
	Artworks(ctx context.Context, ownerID uint, filter ArtworkFilter) ([]works.Artwork, error)
	CreateArtwork(ctx context.Context, a *works.Artwork) error
	// UpdateArtwork writes the row only if its version still equals expected,
	// and stores expected+1. Otherwise it returns works.ErrConflict.
	UpdateArtwork(ctx context.Context, a *works.Artwork, expected int) error
	DeleteArtwork(ctx context.Context, ownerID uint, id string) error
	ArtworkSlugTaken(ctx context.Context, ownerID uint, slug, exceptID string) (bool, error)

	// ReplaceImages makes the artwork's image rows equal to images, keyed by id.
	ReplaceImages(ctx context.Context, artworkID string, images []works.ArtworkImage) error

	SystemCatalogue(ctx context.Context, ownerID uint) (*works.Catalogue, error)
	OwnedCatalogueIDs(ctx context.Context, ownerID uint) (map[string]bool, error)
	Catalogues(ctx context.Context, ownerID uint) ([]works.Catalogue, error)
	Catalogue(ctx context.Context, ownerID uint, id string) (*works.Catalogue, error)
	CreateCatalogue(ctx context.Context, c *works.Catalogue) error
	UpdateCatalogue(ctx context.Context, c *works.Catalogue) error
	DeleteCatalogue(ctx context.Context, ownerID uint, id string) error
	CatalogueSlugTaken(ctx context.Context, ownerID uint, slug, exceptID string) (bool, error)
	CatalogueArtworks(ctx context.Context, catalogueID string) ([]works.Artwork, error)
	ReorderCatalogue(ctx context.Context, catalogueID string, artworkIDs []string) error

	AddMemberships(ctx context.Context, artworkID string, catalogueIDs []string) error
	RemoveMemberships(ctx context.Context, artworkID string, catalogueIDs []string) error

	// EnqueueRegeneration merges req into the artwork's pending task, or
	// creates one, and flags the image's requested derivatives pending.
	EnqueueRegeneration(ctx context.Context, artworkID, imageID string, req derivatives.Request, maxAttempts int) error

	ArtistIDs(ctx context.Context) ([]uint, error)
	ArtistDisplayName(ctx context.Context, ownerID uint) (string, error)
	SetArtistDisplayName(ctx context.Context, ownerID uint, name string) error

	// RecordSale stores a completed checkout; created is false when the
	// session was already recorded.
	RecordSale(ctx context.Context, sale *works.EditionSale) (created bool, err error)
	Sales(ctx context.Context, ownerID uint) ([]works.EditionSale, error)
}

type ArtworkFilter struct {
	Status works.Status
	Tag    string
}
