package works

import "time"

type DerivativeStatus string

const (
	DerivativeMissing DerivativeStatus = "missing"
	DerivativePending DerivativeStatus = "pending"
	DerivativeReady   DerivativeStatus = "ready"
	DerivativeFailed  DerivativeStatus = "failed"
)

type ArtworkImage struct {
	ID        string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ArtworkID string `gorm:"type:uuid;not null;index" json:"-"`

	OriginalPath string `gorm:"not null" json:"original_path"`
	IsPrimary    bool   `gorm:"not null;default:false" json:"is_primary"`
	Position     int    `gorm:"not null;default:0" json:"position"`

	WatermarkPath       *string          `json:"watermark_path,omitempty"`
	WatermarkStatus     DerivativeStatus `gorm:"type:text;not null;default:'missing'" json:"watermark_status"`
	VisualizationPath   *string          `json:"visualization_path,omitempty"`
	VisualizationStatus DerivativeStatus `gorm:"type:text;not null;default:'missing'" json:"visualization_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (img *ArtworkImage) HasWatermark() bool {
	return img != nil && img.WatermarkPath != nil && *img.WatermarkPath != ""
}

func (img *ArtworkImage) HasVisualization() bool {
	return img != nil && img.VisualizationPath != nil && *img.VisualizationPath != ""
}
