package works

import "gorm.io/datatypes"

// EditionDescriptor describes a limited print run. Sale-state logic lives in
// the editions package; this is only the persisted shape.
type EditionDescriptor struct {
	IsEdition    bool                        `gorm:"not null;default:false" json:"is_edition"`
	NumericSize  int                         `gorm:"not null;default:0" json:"numeric_size"`
	APSize       int                         `gorm:"column:ap_size;not null;default:0" json:"ap_size"`
	SoldEditions datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'" json:"sold_editions"`
}
