// Package inventory orchestrates artwork saves: validation, the artwork row,
// catalogue membership and derived-image requests, one transaction per save.
package inventory

import (
	"context"
	"fmt"
	"strings"

	"artmarket/internal/domain/catalogues"
	"artmarket/internal/domain/derivatives"
	"artmarket/internal/domain/editions"
	"artmarket/internal/domain/slugs"
	"artmarket/internal/domain/works"
	"artmarket/internal/infra/events"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	store       Store
	events      events.Dispatcher
	maxAttempts int
}

func NewService(store Store, dispatcher events.Dispatcher, maxAttempts int) *Service {
	if dispatcher == nil {
		dispatcher = events.LogDispatcher{}
	}
	if maxAttempts <= 0 {
		maxAttempts = derivatives.DefaultMaxAttempts
	}
	return &Service{store: store, events: dispatcher, maxAttempts: maxAttempts}
}

type ImageInput struct {
	ID           string
	OriginalPath string
	IsPrimary    bool
}

type EditionInput struct {
	IsEdition   bool
	NumericSize int
	APSize      int
}

// ArtworkInput carries a partial update. Nil fields are left untouched;
// a non-nil empty Images removes every image.
type ArtworkInput struct {
	Title       *string
	Status      *works.Status
	Year        *string
	Medium      *string
	Description *string
	Tags        []string
	Pricing     *works.Pricing
	Dimensions  *works.Dimensions
	Edition     *EditionInput
	Images      []ImageInput

	// CatalogueIDs are the artist-chosen catalogues. The system catalogue
	// must not appear here.
	CatalogueIDs []string

	// Version is the version the client last read. Nil skips the check.
	Version *int
}

func (s *Service) Artwork(ctx context.Context, ownerID uint, id string) (*works.Artwork, error) {
	return s.store.Artwork(ctx, ownerID, id)
}

func (s *Service) Artworks(ctx context.Context, ownerID uint, filter ArtworkFilter) ([]works.Artwork, error) {
	return s.store.Artworks(ctx, ownerID, filter)
}

// SystemCatalogueID returns the owner's available-work catalogue id, creating it if needed.
func (s *Service) SystemCatalogueID(ctx context.Context, ownerID uint) (string, error) {
	sys, err := s.store.SystemCatalogue(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return sys.ID, nil
}

func (s *Service) CreateArtwork(ctx context.Context, ownerID uint, in ArtworkInput) (*works.Artwork, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, works.Invalid("title", "title is required")
	}

	a := &works.Artwork{
		ID:         uuid.NewString(),
		UserID:     ownerID,
		Status:     works.StatusDraft,
		Pricing:    works.Pricing{Mode: works.PricingOnRequest},
		Dimensions: works.Dimensions{Unit: works.UnitCM},
		Edition:    works.EditionDescriptor{SoldEditions: []string{}},
		Version:    1,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		return s.save(ctx, nil, a, in)
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, events.Event{Type: events.ArtworkSaved, OwnerID: ownerID, ArtworkID: a.ID, Status: string(a.Status)})
	return s.store.Artwork(ctx, ownerID, a.ID)
}

func (s *Service) UpdateArtwork(ctx context.Context, ownerID uint, id string, in ArtworkInput) (*works.Artwork, error) {
	var next *works.Artwork
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.store.Artwork(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if in.Version != nil && *in.Version != cur.Version {
			return works.ErrConflict
		}
		next = cloneArtwork(cur)
		return s.save(ctx, cur, next, in)
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, events.Event{Type: events.ArtworkSaved, OwnerID: ownerID, ArtworkID: id, Status: string(next.Status)})
	return s.store.Artwork(ctx, ownerID, id)
}

func (s *Service) DeleteArtwork(ctx context.Context, ownerID uint, id string) error {
	if err := s.store.DeleteArtwork(ctx, ownerID, id); err != nil {
		return err
	}
	s.events.Dispatch(ctx, events.Event{Type: events.ArtworkDeleted, OwnerID: ownerID, ArtworkID: id})
	return nil
}

// save runs inside a transaction. cur is nil for a new artwork; next already
// carries cur's state and receives the input.
func (s *Service) save(ctx context.Context, cur, next *works.Artwork, in ArtworkInput) error {
	display, err := s.store.ArtistDisplayName(ctx, next.UserID)
	if err != nil {
		return err
	}

	var before derivatives.Snapshot
	var membership []string
	if cur != nil {
		before = derivatives.SnapshotOf(cur, display)
		membership = cur.CatalogueIDs()
	}

	imagesChanged, err := applyInput(next, in)
	if err != nil {
		return err
	}
	if err := settleStatus(next, in.Status); err != nil {
		return err
	}
	if err := validate(next); err != nil {
		return err
	}

	if cur == nil || cur.Title != next.Title {
		slug, err := slugs.Unique(slugs.MakeSlug(next.Title, "artwork"), func(c string) (bool, error) {
			return s.store.ArtworkSlugTaken(ctx, next.UserID, c, next.ID)
		})
		if err != nil {
			return err
		}
		next.Slug = slug
	}

	if cur == nil {
		if err := s.store.CreateArtwork(ctx, next); err != nil {
			return errors.Wrap(err, "create artwork")
		}
	} else {
		if err := s.store.UpdateArtwork(ctx, next, cur.Version); err != nil {
			return err
		}
	}

	if imagesChanged {
		if err := s.store.ReplaceImages(ctx, next.ID, next.Images); err != nil {
			return errors.Wrap(err, "replace images")
		}
	}

	if _, err := s.syncMemberships(ctx, next, membership, in.CatalogueIDs); err != nil {
		return err
	}

	return s.requestDerivatives(ctx, before, next, display)
}

// syncMemberships resolves and persists the artwork's catalogue set.
// requested nil keeps the artist's current choice.
func (s *Service) syncMemberships(ctx context.Context, a *works.Artwork, current, requested []string) (bool, error) {
	sys, err := s.store.SystemCatalogue(ctx, a.UserID)
	if err != nil {
		return false, err
	}

	selected := requested
	if selected == nil {
		selected = catalogues.WithoutSystem(current, sys.ID)
	} else if err := catalogues.RejectSystem(selected, sys.ID); err != nil {
		return false, err
	}

	owned, err := s.store.OwnedCatalogueIDs(ctx, a.UserID)
	if err != nil {
		return false, err
	}

	final, err := catalogues.Resolve(a.Status, selected, sys.ID, owned)
	if err != nil {
		if errors.Is(err, catalogues.ErrForeignCatalogue) {
			log.WithError(err).WithFields(log.Fields{
				"artwork_id": a.ID,
				"owner_id":   a.UserID,
			}).Error("membership request names a catalogue the artist does not own")
		}
		return false, err
	}

	toAdd, toRemove := catalogues.Diff(current, final)
	if len(toAdd) > 0 {
		if err := s.store.AddMemberships(ctx, a.ID, toAdd); err != nil {
			return false, errors.Wrap(err, "add memberships")
		}
	}
	if len(toRemove) > 0 {
		if err := s.store.RemoveMemberships(ctx, a.ID, toRemove); err != nil {
			return false, errors.Wrap(err, "remove memberships")
		}
	}

	a.Catalogues = a.Catalogues[:0]
	for _, id := range final {
		a.Catalogues = append(a.Catalogues, works.ArtworkCatalogue{ArtworkID: a.ID, CatalogueID: id})
	}
	return len(toAdd) > 0 || len(toRemove) > 0, nil
}

func (s *Service) requestDerivatives(ctx context.Context, before derivatives.Snapshot, a *works.Artwork, display string) error {
	after := derivatives.SnapshotOf(a, display)
	req := derivatives.Plan(before, after)
	if req.Empty() {
		return nil
	}

	if err := s.store.EnqueueRegeneration(ctx, a.ID, after.PrimaryImageID, req, s.maxAttempts); err != nil {
		return errors.Wrap(err, "enqueue regeneration")
	}

	if img := a.PrimaryImage(); img != nil {
		if req.Watermark {
			img.WatermarkStatus = works.DerivativePending
		}
		if req.Visualization {
			img.VisualizationStatus = works.DerivativePending
		}
	}
	return nil
}

func applyInput(a *works.Artwork, in ArtworkInput) (imagesChanged bool, err error) {
	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Year != nil {
		a.Year = strings.TrimSpace(*in.Year)
	}
	if in.Medium != nil {
		a.Medium = strings.TrimSpace(*in.Medium)
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Tags != nil {
		a.Tags = normalizeTags(in.Tags)
	}
	if in.Pricing != nil {
		a.Pricing = *in.Pricing
	}
	if in.Dimensions != nil {
		a.Dimensions = *in.Dimensions
		if a.Dimensions.Unit == "" {
			a.Dimensions.Unit = works.UnitCM
		}
	}
	if in.Edition != nil {
		a.Edition.IsEdition = in.Edition.IsEdition
		a.Edition.NumericSize = in.Edition.NumericSize
		a.Edition.APSize = in.Edition.APSize
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.Images != nil {
		images, err := mergeImages(a.ID, a.Images, in.Images)
		if err != nil {
			return false, err
		}
		a.Images = images
		imagesChanged = true
	}
	return imagesChanged, nil
}

// mergeImages keeps derived variants of images whose source did not change.
// When no image is flagged primary the first one becomes primary.
func mergeImages(artworkID string, existing []works.ArtworkImage, inputs []ImageInput) ([]works.ArtworkImage, error) {
	byID := make(map[string]works.ArtworkImage, len(existing))
	for _, img := range existing {
		byID[img.ID] = img
	}

	out := make([]works.ArtworkImage, 0, len(inputs))
	primaries := 0
	for i, in := range inputs {
		path := strings.TrimSpace(in.OriginalPath)
		if path == "" {
			return nil, works.Invalid(fmt.Sprintf("images[%d].original_path", i), "path is required")
		}

		img, ok := byID[in.ID]
		switch {
		case in.ID == "":
			img = works.ArtworkImage{
				ID:                  uuid.NewString(),
				ArtworkID:           artworkID,
				WatermarkStatus:     works.DerivativeMissing,
				VisualizationStatus: works.DerivativeMissing,
			}
		case !ok:
			return nil, works.Invalid(fmt.Sprintf("images[%d].id", i), "unknown image id")
		default:
			delete(byID, in.ID)
		}

		if img.OriginalPath != "" && img.OriginalPath != path {
			img.WatermarkPath = nil
			img.WatermarkStatus = works.DerivativeMissing
			img.VisualizationPath = nil
			img.VisualizationStatus = works.DerivativeMissing
		}
		img.OriginalPath = path
		img.IsPrimary = in.IsPrimary
		img.Position = i
		if in.IsPrimary {
			primaries++
		}
		out = append(out, img)
	}

	if primaries > 1 {
		return nil, works.Invalid("images", "only one image can be primary")
	}
	if primaries == 0 && len(out) > 0 {
		out[0].IsPrimary = true
	}
	return out, nil
}

// settleStatus applies the edition rules: an edition is sold exactly when
// every print is sold.
func settleStatus(a *works.Artwork, requested *works.Status) error {
	if !a.Status.Valid() {
		return works.Invalid("status", fmt.Sprintf("unknown status %q", a.Status))
	}
	if !a.Edition.IsEdition {
		return nil
	}

	if err := editions.Validate(a.Edition); err != nil {
		return err
	}

	full := editions.IsFullySold(a.Edition)
	if !full && a.Status == works.StatusSold && requested != nil && *requested == works.StatusSold {
		return works.Invalid("status", "an edition becomes sold once every print is sold")
	}
	a.Status = saleStatus(a.Status, full)
	return nil
}

// saleStatus moves a listed edition (available or on hold) to sold once
// every print is sold, and back to available when a print is released.
// Drafts and pending work keep their status.
func saleStatus(status works.Status, fullySold bool) works.Status {
	switch {
	case fullySold && (status == works.StatusAvailable || status == works.StatusOnHold):
		return works.StatusSold
	case !fullySold && status == works.StatusSold:
		return works.StatusAvailable
	}
	return status
}

func validate(a *works.Artwork) error {
	if a.Title == "" {
		return works.Invalid("title", "title is required")
	}
	if err := a.Pricing.Validate(); err != nil {
		return err
	}
	if err := a.Dimensions.Validate(); err != nil {
		return err
	}
	if err := editions.Validate(a.Edition); err != nil {
		return err
	}
	if a.Status.Public() || a.Status == works.StatusOnHold {
		return a.CheckPublishable()
	}
	return nil
}

func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func cloneArtwork(a *works.Artwork) *works.Artwork {
	c := *a
	c.Tags = append([]string(nil), a.Tags...)
	c.Edition.SoldEditions = append([]string{}, a.Edition.SoldEditions...)
	c.Images = append([]works.ArtworkImage(nil), a.Images...)
	c.Catalogues = append([]works.ArtworkCatalogue(nil), a.Catalogues...)
	return &c
}
