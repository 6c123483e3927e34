// Package collectors serves the public side of the marketplace: browsing an
// artist's work, favorites, inquiries and checkout.
package collectors

import (
	"context"
	"net/http"

	"artmarket/internal/api/apierr"
	"artmarket/internal/app/inventory"
	"artmarket/internal/domain/collectors"
	"artmarket/internal/domain/users"
	"artmarket/internal/domain/works"
	"artmarket/internal/infra/events"
	"artmarket/internal/infra/payments"

	"github.com/gin-gonic/gin"
)

type Store interface {
	ArtistBySiteSlug(ctx context.Context, slug string) (*users.User, error)
	PublicArtwork(ctx context.Context, id string) (*works.Artwork, error)
	AvailableWork(ctx context.Context, artistID uint) ([]works.Artwork, error)
	PublicCatalogue(ctx context.Context, artistID uint, slug string) (*works.Catalogue, []works.Artwork, error)

	AddFavorite(ctx context.Context, userID uint, artworkID string) error
	RemoveFavorite(ctx context.Context, userID uint, artworkID string) error
	Favorites(ctx context.Context, userID uint) ([]works.Artwork, error)

	CreateInquiry(ctx context.Context, q *collectors.Inquiry) error
	ArtistInquiries(ctx context.Context, artistID uint, status collectors.InquiryStatus) ([]collectors.Inquiry, error)
	SetInquiryStatus(ctx context.Context, artistID uint, id string, status collectors.InquiryStatus) (*collectors.Inquiry, error)
}

type CheckoutGateway interface {
	CreateCheckout(req payments.CheckoutRequest) (string, error)
}

type Handler struct {
	store     Store
	inventory *inventory.Service
	checkout  CheckoutGateway
	events    events.Dispatcher
}

func NewHandler(store Store, svc *inventory.Service, checkout CheckoutGateway, dispatcher events.Dispatcher) *Handler {
	if dispatcher == nil {
		dispatcher = events.LogDispatcher{}
	}
	return &Handler{store: store, inventory: svc, checkout: checkout, events: dispatcher}
}

// ------------------------------
// public browse
// ------------------------------

func (h *Handler) AvailableWork(c *gin.Context) {
	artist, err := h.store.ArtistBySiteSlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apierr.Respond(c, err, "Failed to load artist")
		return
	}
	items, err := h.store.AvailableWork(c.Request.Context(), artist.ID)
	if err != nil {
		apierr.Respond(c, err, "Failed to load artworks")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"artist":   artist.WatermarkName(),
		"artworks": toPublicArtworkDTOs(items),
	})
}

func (h *Handler) PublicCatalogue(c *gin.Context) {
	artist, err := h.store.ArtistBySiteSlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apierr.Respond(c, err, "Failed to load artist")
		return
	}
	cat, items, err := h.store.PublicCatalogue(c.Request.Context(), artist.ID, c.Param("catalogue"))
	if err != nil {
		apierr.Respond(c, err, "Failed to load catalogue")
		return
	}
	c.JSON(http.StatusOK, PublicCatalogueDTO{
		Title:       cat.Title,
		Slug:        cat.Slug,
		Description: cat.Description,
		Artworks:    toPublicArtworkDTOs(items),
	})
}

func (h *Handler) PublicArtwork(c *gin.Context) {
	a, err := h.store.PublicArtwork(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Respond(c, err, "Failed to load artwork")
		return
	}
	c.JSON(http.StatusOK, toPublicArtworkDTO(*a))
}

// ------------------------------
// favorites
// ------------------------------

func (h *Handler) ListFavorites(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	items, err := h.store.Favorites(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err, "Failed to load favorites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"artworks": toPublicArtworkDTOs(items)})
}

func (h *Handler) AddFavorite(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	a, err := h.store.PublicArtwork(c.Request.Context(), c.Param("artworkId"))
	if err != nil {
		apierr.Respond(c, err, "Failed to load artwork")
		return
	}
	if err := h.store.AddFavorite(c.Request.Context(), userID, a.ID); err != nil {
		apierr.Respond(c, err, "Failed to add favorite")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	if err := h.store.RemoveFavorite(c.Request.Context(), userID, c.Param("artworkId")); err != nil {
		apierr.Respond(c, err, "Failed to remove favorite")
		return
	}
	c.Status(http.StatusNoContent)
}

// ------------------------------
// inquiries
// ------------------------------

// CreateInquiry accepts anonymous inquiries; a signed-in collector is
// linked when the optional auth middleware found a token.
func (h *Handler) CreateInquiry(c *gin.Context) {
	var req InquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.store.PublicArtwork(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Respond(c, err, "Failed to load artwork")
		return
	}

	q := &collectors.Inquiry{
		ArtworkID: a.ID,
		ArtistID:  a.UserID,
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		Status:    collectors.InquiryOpen,
	}
	if userID := c.GetUint("user_id"); userID != 0 {
		q.CollectorID = &userID
	}
	if err := h.store.CreateInquiry(c.Request.Context(), q); err != nil {
		apierr.Respond(c, err, "Failed to send inquiry")
		return
	}

	h.events.Dispatch(c.Request.Context(), events.Event{Type: events.InquiryCreated, OwnerID: a.UserID, ArtworkID: a.ID})
	c.JSON(http.StatusCreated, q)
}

func (h *Handler) ListInquiries(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	status := collectors.InquiryStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}

	items, err := h.store.ArtistInquiries(c.Request.Context(), userID, status)
	if err != nil {
		apierr.Respond(c, err, "Failed to load inquiries")
		return
	}
	if items == nil {
		items = []collectors.Inquiry{}
	}
	c.JSON(http.StatusOK, gin.H{"inquiries": items})
}

func (h *Handler) UpdateInquiry(c *gin.Context) {
	var req InquiryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := collectors.InquiryStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	q, err := h.store.SetInquiryStatus(c.Request.Context(), userID, c.Param("id"), status)
	if err != nil {
		apierr.Respond(c, err, "Failed to update inquiry")
		return
	}
	c.JSON(http.StatusOK, q)
}

// ------------------------------
// POST /artworks/:id/checkout  {edition}
// ------------------------------
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	a, err := h.inventory.PrepareCheckout(c.Request.Context(), c.Param("id"), req.Edition)
	if err != nil {
		apierr.Respond(c, err, "Failed to start checkout")
		return
	}
	if a.UserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot buy your own work"})
		return
	}

	url, err := h.checkout.CreateCheckout(payments.CheckoutRequest{
		Artwork:     a,
		Edition:     req.Edition,
		BuyerUserID: userID,
		BuyerEmail:  c.GetString("email"),
	})
	if err != nil {
		apierr.Respond(c, err, "Failed to create checkout session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
