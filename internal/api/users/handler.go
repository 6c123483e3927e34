package users

import (
	"context"
	"net/http"

	"artmarket/internal/api/apierr"
	"artmarket/internal/app/inventory"
	"artmarket/internal/domain/users"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Store interface {
	User(ctx context.Context, id uint) (*users.User, error)
	EnsureSiteSlug(ctx context.Context, u *users.User) (string, error)
}

type Handler struct {
	store     Store
	inventory *inventory.Service
}

func NewHandler(store Store, svc *inventory.Service) *Handler {
	return &Handler{store: store, inventory: svc}
}

func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	user, err := h.store.User(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err, "Failed to load user")
		return
	}

	if user.Role == users.RoleArtist {
		if _, err := h.store.EnsureSiteSlug(c.Request.Context(), user); err != nil {
			log.WithError(err).WithField("user_id", user.ID).Warn("could not assign site slug")
		}
	}

	c.JSON(http.StatusOK, MeResponse{User: toUserDTO(*user)})
}

// PUT /me/profile: a new display name changes every watermark.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	queued, err := h.inventory.RenameArtist(c.Request.Context(), userID, req.DisplayName)
	if err != nil {
		apierr.Respond(c, err, "Failed to update profile")
		return
	}

	user, err := h.store.User(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, UpdateProfileResponse{User: toUserDTO(*user), QueuedRegenerations: queued})
}

func toUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Lastname:      u.Lastname,
		DisplayName:   u.DisplayName,
		WatermarkName: u.WatermarkName(),
		Role:          u.Role,
		SiteSlug:      u.SiteSlug,
	}
}
