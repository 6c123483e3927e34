package inventory

import (
	"context"

	"artmarket/internal/domain/editions"
	"artmarket/internal/domain/works"
	"artmarket/internal/infra/events"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SetEditionSale toggles one edition identifier. This is the only write path
// for sold editions: the row is locked, the toggle applied and the version
// bumped in one transaction. ownerID 0 skips the ownership check.
func (s *Service) SetEditionSale(ctx context.Context, ownerID uint, artworkID, identifier string, sold bool, expectedVersion *int) (*works.Artwork, error) {
	var (
		a       *works.Artwork
		changed bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		a, changed, err = s.applyEditionSale(ctx, ownerID, artworkID, identifier, sold, expectedVersion)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		typ := events.EditionUnsold
		if sold {
			typ = events.EditionSold
		}
		s.events.Dispatch(ctx, events.Event{Type: typ, OwnerID: a.UserID, ArtworkID: a.ID, Edition: identifier, Status: string(a.Status)})
	}
	return s.store.Artwork(ctx, a.UserID, a.ID)
}

func (s *Service) applyEditionSale(ctx context.Context, ownerID uint, artworkID, identifier string, sold bool, expected *int) (*works.Artwork, bool, error) {
	cur, err := s.store.LockArtwork(ctx, artworkID)
	if err != nil {
		return nil, false, err
	}
	if ownerID != 0 && cur.UserID != ownerID {
		return nil, false, works.ErrNotFound
	}
	if expected != nil && *expected != cur.Version {
		return nil, false, works.ErrConflict
	}

	d, err := editions.SetSaleState(cur.Edition, identifier, sold)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"artwork_id": artworkID,
			"edition":    identifier,
		}).Warn("edition toggle on an identifier that does not exist")
		return nil, false, err
	}
	if len(d.SoldEditions) == len(cur.Edition.SoldEditions) {
		// same size after an add-or-remove means nothing changed
		return cur, false, nil
	}

	next := cloneArtwork(cur)
	next.Edition = d
	next.Status = saleStatus(next.Status, editions.IsFullySold(d))

	if err := s.store.UpdateArtwork(ctx, next, cur.Version); err != nil {
		return nil, false, err
	}
	if next.Status != cur.Status {
		if _, err := s.syncMemberships(ctx, next, cur.CatalogueIDs(), nil); err != nil {
			return nil, false, err
		}
	}
	return next, true, nil
}

// PrepareCheckout checks that a collector can buy the artwork (or one of its
// editions) right now and returns it.
func (s *Service) PrepareCheckout(ctx context.Context, artworkID, edition string) (*works.Artwork, error) {
	a, err := s.store.PublicArtwork(ctx, artworkID)
	if err != nil {
		return nil, err
	}
	if a.Status != works.StatusAvailable {
		return nil, works.Invalid("status", "artwork is not available for sale")
	}
	if _, ok := a.Pricing.AmountMinor(); !ok {
		return nil, works.Invalid("pricing", "only fixed-price work can be bought online")
	}

	if !a.Edition.IsEdition {
		if edition != "" {
			return nil, errors.Wrapf(editions.ErrInvalidIdentifier, "%q on a unique work", edition)
		}
		return a, nil
	}
	if edition == "" {
		return nil, works.Invalid("edition", "choose an edition")
	}
	for _, id := range editions.Available(a.Edition) {
		if id == edition {
			return a, nil
		}
	}
	if _, err := editions.SetSaleState(a.Edition, edition, true); err != nil {
		return nil, err
	}
	return nil, works.Invalid("edition", "edition "+edition+" is already sold")
}

// RecordCheckout applies a paid checkout. Repeated deliveries of the same
// session are ignored. A session that paid for a print or unique work that was
// already sold is still recorded, flagged for refund.
func (s *Service) RecordCheckout(ctx context.Context, sale works.EditionSale) error {
	var (
		a        *works.Artwork
		applied  bool
		oversold bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.store.LockArtwork(ctx, sale.ArtworkID)
		if err != nil {
			return err
		}
		if sale.NeedsRefund, err = alreadySold(cur, sale.Edition); err != nil {
			return err
		}

		created, err := s.store.RecordSale(ctx, &sale)
		if err != nil || !created {
			return err
		}
		if sale.NeedsRefund {
			a, oversold = cur, true
			return nil
		}

		if sale.Edition != "" {
			a, applied, err = s.applyEditionSale(ctx, 0, cur.ID, sale.Edition, true, nil)
			return err
		}

		next := cloneArtwork(cur)
		next.Status = works.StatusSold
		if err := s.store.UpdateArtwork(ctx, next, cur.Version); err != nil {
			return err
		}
		if _, err := s.syncMemberships(ctx, next, cur.CatalogueIDs(), nil); err != nil {
			return err
		}
		a, applied = next, true
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case oversold:
		log.WithFields(log.Fields{
			"session_id": sale.StripeSessionID,
			"artwork_id": a.ID,
			"edition":    sale.Edition,
			"amount":     sale.Amount.String(),
			"currency":   sale.Currency,
		}).Error("checkout paid for work that was already sold, refund needed")
		s.events.Dispatch(ctx, events.Event{Type: events.EditionOversold, OwnerID: a.UserID, ArtworkID: a.ID, Edition: sale.Edition, Status: string(a.Status), SessionID: sale.StripeSessionID})
	case applied:
		s.events.Dispatch(ctx, events.Event{Type: events.EditionSold, OwnerID: a.UserID, ArtworkID: a.ID, Edition: sale.Edition, Status: string(a.Status), SessionID: sale.StripeSessionID})
	}
	return nil
}

// alreadySold reports whether what the checkout paid for was sold before it.
func alreadySold(a *works.Artwork, edition string) (bool, error) {
	if !a.Edition.IsEdition {
		if edition != "" {
			return false, errors.Wrapf(editions.ErrInvalidIdentifier, "%q on a unique work", edition)
		}
		return a.Status == works.StatusSold, nil
	}
	if edition == "" {
		return false, works.Invalid("edition", "checkout for an edition carries no edition identifier")
	}
	if _, err := editions.SetSaleState(a.Edition, edition, true); err != nil {
		return false, err
	}
	for _, id := range a.Edition.SoldEditions {
		if id == edition {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) Sales(ctx context.Context, ownerID uint) ([]works.EditionSale, error) {
	return s.store.Sales(ctx, ownerID)
}
