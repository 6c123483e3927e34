package works

const (
	UnitCM = "cm"
	UnitIN = "in"
)

type Dimensions struct {
	Width  float64  `gorm:"not null;default:0" json:"width"`
	Height float64  `gorm:"not null;default:0" json:"height"`
	Depth  *float64 `json:"depth,omitempty"`
	Unit   string   `gorm:"type:varchar(2);not null;default:'cm'" json:"unit"`
}

func (d Dimensions) Complete() bool {
	return d.Width > 0 && d.Height > 0 && d.Unit != ""
}

func (d Dimensions) Validate() error {
	if d.Width < 0 || d.Height < 0 {
		return Invalid("dimensions", "width and height cannot be negative")
	}
	if d.Depth != nil && *d.Depth < 0 {
		return Invalid("dimensions.depth", "depth cannot be negative")
	}
	if d.Unit != "" && d.Unit != UnitCM && d.Unit != UnitIN {
		return Invalid("dimensions.unit", "unit must be cm or in")
	}
	return nil
}
