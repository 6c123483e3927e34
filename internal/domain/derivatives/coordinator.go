// Package derivatives decides when the watermarked and in-room images of an
// artwork must be rebuilt, and describes the durable task that asks the
// compositor to rebuild them.
package derivatives

import "artmarket/internal/domain/works"

// Snapshot is the part of an artwork the derived images depend on.
type Snapshot struct {
	ArtistDisplayName string

	PrimaryImageID   string
	PrimaryImagePath string
	HasWatermark     bool
	HasVisualization bool

	Width  float64
	Height float64
	Unit   string
}

func SnapshotOf(a *works.Artwork, artistDisplayName string) Snapshot {
	s := Snapshot{
		ArtistDisplayName: artistDisplayName,
		Width:             a.Dimensions.Width,
		Height:            a.Dimensions.Height,
		Unit:              a.Dimensions.Unit,
	}
	if img := a.PrimaryImage(); img != nil {
		s.PrimaryImageID = img.ID
		s.PrimaryImagePath = img.OriginalPath
		s.HasWatermark = img.HasWatermark()
		s.HasVisualization = img.HasVisualization()
	}
	return s
}

func (s Snapshot) HasPrimary() bool {
	return s.PrimaryImagePath != ""
}

func primaryChanged(old, next Snapshot) bool {
	return old.PrimaryImageID != next.PrimaryImageID || old.PrimaryImagePath != next.PrimaryImagePath
}

// NeedsWatermark: the watermark text embeds the artist's display name.
func NeedsWatermark(old, next Snapshot) bool {
	if !next.HasPrimary() {
		return false
	}
	return !next.HasWatermark ||
		old.ArtistDisplayName != next.ArtistDisplayName ||
		primaryChanged(old, next)
}

func NeedsVisualization(old, next Snapshot) bool {
	if !next.HasPrimary() {
		return false
	}
	return !next.HasVisualization ||
		old.Width != next.Width ||
		old.Height != next.Height ||
		old.Unit != next.Unit ||
		primaryChanged(old, next)
}

type Request struct {
	Watermark     bool `json:"watermark"`
	Visualization bool `json:"visualization"`
}

func (r Request) Empty() bool {
	return !r.Watermark && !r.Visualization
}

func (r Request) Merge(o Request) Request {
	return Request{
		Watermark:     r.Watermark || o.Watermark,
		Visualization: r.Visualization || o.Visualization,
	}
}

// Plan compares two snapshots and returns what needs rebuilding.
func Plan(old, next Snapshot) Request {
	return Request{
		Watermark:     NeedsWatermark(old, next),
		Visualization: NeedsVisualization(old, next),
	}
}
