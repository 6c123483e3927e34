package collectors

import (
	"artmarket/internal/domain/editions"
	"artmarket/internal/domain/works"
)

type InquiryRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required,max=5000"`
}

type InquiryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CheckoutRequest struct {
	Edition string `json:"edition"`
}

// PublicImageDTO only exposes derived images; originals stay private.
type PublicImageDTO struct {
	ID                string `json:"id"`
	IsPrimary         bool   `json:"is_primary"`
	WatermarkPath     string `json:"watermark_path,omitempty"`
	VisualizationPath string `json:"visualization_path,omitempty"`
}

type PublicEditionDTO struct {
	IsEdition   bool     `json:"is_edition"`
	NumericSize int      `json:"numeric_size"`
	APSize      int      `json:"ap_size"`
	Available   []string `json:"available"`
}

type PublicArtworkDTO struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Status      string           `json:"status"`
	Year        string           `json:"year,omitempty"`
	Medium      string           `json:"medium"`
	Description string           `json:"description,omitempty"`
	Tags        []string         `json:"tags"`
	Pricing     works.Pricing    `json:"pricing"`
	Dimensions  works.Dimensions `json:"dimensions"`
	Edition     PublicEditionDTO `json:"edition"`
	Images      []PublicImageDTO `json:"images"`
}

type PublicCatalogueDTO struct {
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Description string             `json:"description,omitempty"`
	Artworks    []PublicArtworkDTO `json:"artworks"`
}

func toPublicArtworkDTO(a works.Artwork) PublicArtworkDTO {
	images := make([]PublicImageDTO, 0, len(a.Images))
	for _, img := range a.Images {
		dto := PublicImageDTO{ID: img.ID, IsPrimary: img.IsPrimary}
		if img.HasWatermark() && img.WatermarkStatus == works.DerivativeReady {
			dto.WatermarkPath = *img.WatermarkPath
		}
		if img.HasVisualization() && img.VisualizationStatus == works.DerivativeReady {
			dto.VisualizationPath = *img.VisualizationPath
		}
		images = append(images, dto)
	}

	available := editions.Available(a.Edition)
	if available == nil {
		available = []string{}
	}
	tags := []string(a.Tags)
	if tags == nil {
		tags = []string{}
	}

	return PublicArtworkDTO{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Status:      string(a.Status),
		Year:        a.Year,
		Medium:      a.Medium,
		Description: a.Description,
		Tags:        tags,
		Pricing:     a.Pricing,
		Dimensions:  a.Dimensions,
		Edition: PublicEditionDTO{
			IsEdition:   a.Edition.IsEdition,
			NumericSize: a.Edition.NumericSize,
			APSize:      a.Edition.APSize,
			Available:   available,
		},
		Images: images,
	}
}

func toPublicArtworkDTOs(items []works.Artwork) []PublicArtworkDTO {
	out := make([]PublicArtworkDTO, 0, len(items))
	for _, a := range items {
		out = append(out, toPublicArtworkDTO(a))
	}
	return out
}
