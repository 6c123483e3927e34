package works

import (
	"artmarket/internal/app/inventory"
	"artmarket/internal/domain/works"
)

// ---------- requests

type ImageInput struct {
	ID           string `json:"id"`
	OriginalPath string `json:"original_path" binding:"required"`
	IsPrimary    bool   `json:"is_primary"`
}

type EditionInput struct {
	IsEdition   bool `json:"is_edition"`
	NumericSize int  `json:"numeric_size" binding:"min=0"`
	APSize      int  `json:"ap_size" binding:"min=0"`
}

// ArtworkRequest is used for create and update. Omitted fields are left as
// they are; "images": [] removes every image.
type ArtworkRequest struct {
	Title       *string           `json:"title"`
	Status      *works.Status     `json:"status"`
	Year        *string           `json:"year"`
	Medium      *string           `json:"medium"`
	Description *string           `json:"description"`
	Tags        []string          `json:"tags"`
	Pricing     *works.Pricing    `json:"pricing"`
	Dimensions  *works.Dimensions `json:"dimensions"`
	Edition     *EditionInput     `json:"edition"`
	Images      []ImageInput      `json:"images" binding:"omitempty,dive"`

	// CatalogueIDs lists the artist's own catalogues; the available-work
	// catalogue follows the status and must not be sent.
	CatalogueIDs []string `json:"catalogue_ids"`

	Version *int `json:"version"`
}

func (r ArtworkRequest) toInput() inventory.ArtworkInput {
	in := inventory.ArtworkInput{
		Title:        r.Title,
		Status:       r.Status,
		Year:         r.Year,
		Medium:       r.Medium,
		Description:  r.Description,
		Tags:         r.Tags,
		Pricing:      r.Pricing,
		Dimensions:   r.Dimensions,
		CatalogueIDs: r.CatalogueIDs,
		Version:      r.Version,
	}
	if r.Edition != nil {
		in.Edition = &inventory.EditionInput{
			IsEdition:   r.Edition.IsEdition,
			NumericSize: r.Edition.NumericSize,
			APSize:      r.Edition.APSize,
		}
	}
	if r.Images != nil {
		in.Images = make([]inventory.ImageInput, 0, len(r.Images))
		for _, img := range r.Images {
			in.Images = append(in.Images, inventory.ImageInput{
				ID:           img.ID,
				OriginalPath: img.OriginalPath,
				IsPrimary:    img.IsPrimary,
			})
		}
	}
	return in
}

type EditionSaleRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Sold       *bool  `json:"sold" binding:"required"`
	Version    *int   `json:"version"`
}

type CatalogueRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type ReorderArtworksRequest struct {
	ArtworkIDs []string `json:"artwork_ids" binding:"required"` // ordered list
}
