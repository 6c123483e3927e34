package works

import (
	"time"

	"artmarket/internal/domain/catalogues"
	"artmarket/internal/domain/editions"
	"artmarket/internal/domain/works"
)

type EditionDTO struct {
	IsEdition   bool     `json:"is_edition"`
	NumericSize int      `json:"numeric_size"`
	APSize      int      `json:"ap_size"`
	Sold        []string `json:"sold"`
	Available   []string `json:"available"`
}

type ArtworkDTO struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Status      string   `json:"status"`
	Year        string   `json:"year"`
	Medium      string   `json:"medium"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`

	Pricing    works.Pricing        `json:"pricing"`
	Dimensions works.Dimensions     `json:"dimensions"`
	Edition    EditionDTO           `json:"edition"`
	Images     []works.ArtworkImage `json:"images"`

	// CatalogueIDs never contains the available-work catalogue; membership
	// there is reported by InAvailableCatalogue.
	CatalogueIDs         []string `json:"catalogue_ids"`
	InAvailableCatalogue bool     `json:"in_available_catalogue"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CatalogueDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	IsSystem    bool   `json:"is_system"`
}

type CatalogueWithArtworksDTO struct {
	CatalogueDTO
	Artworks []ArtworkDTO `json:"artworks"`
}

func toEditionDTO(d works.EditionDescriptor) EditionDTO {
	sold := []string(d.SoldEditions)
	if sold == nil {
		sold = []string{}
	}
	available := editions.Available(d)
	if available == nil {
		available = []string{}
	}
	return EditionDTO{
		IsEdition:   d.IsEdition,
		NumericSize: d.NumericSize,
		APSize:      d.APSize,
		Sold:        sold,
		Available:   available,
	}
}

func toArtworkDTO(a works.Artwork, systemID string) ArtworkDTO {
	ids := a.CatalogueIDs()
	inSystem := false
	for _, id := range ids {
		if id == systemID {
			inSystem = true
		}
	}

	tags := []string(a.Tags)
	if tags == nil {
		tags = []string{}
	}
	images := a.Images
	if images == nil {
		images = []works.ArtworkImage{}
	}

	return ArtworkDTO{
		ID:                   a.ID,
		Title:                a.Title,
		Slug:                 a.Slug,
		Status:               string(a.Status),
		Year:                 a.Year,
		Medium:               a.Medium,
		Description:          a.Description,
		Tags:                 tags,
		Pricing:              a.Pricing,
		Dimensions:           a.Dimensions,
		Edition:              toEditionDTO(a.Edition),
		Images:               images,
		CatalogueIDs:         catalogues.WithoutSystem(ids, systemID),
		InAvailableCatalogue: inSystem,
		Version:              a.Version,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

func toArtworkDTOs(items []works.Artwork, systemID string) []ArtworkDTO {
	out := make([]ArtworkDTO, 0, len(items))
	for _, a := range items {
		out = append(out, toArtworkDTO(a, systemID))
	}
	return out
}

func toCatalogueDTO(c works.Catalogue) CatalogueDTO {
	return CatalogueDTO{
		ID:          c.ID,
		Title:       c.Title,
		Slug:        c.Slug,
		Description: c.Description,
		IsSystem:    c.IsSystem,
	}
}
