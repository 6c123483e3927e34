package users

type MeResponse struct {
	User UserDTO `json:"user"`
}

type UserDTO struct {
	ID            uint    `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Lastname      string  `json:"lastname"`
	DisplayName   string  `json:"display_name"`
	WatermarkName string  `json:"watermark_name"`
	Role          string  `json:"role"`
	SiteSlug      *string `json:"site_slug"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

type UpdateProfileResponse struct {
	User UserDTO `json:"user"`
	// QueuedRegenerations counts artworks whose watermark will be rebuilt.
	QueuedRegenerations int `json:"queued_regenerations"`
}
