package collectors

import "time"

type Favorite struct {
	UserID    uint   `gorm:"primaryKey" json:"-"`
	ArtworkID string `gorm:"type:uuid;primaryKey" json:"artwork_id"`

	CreatedAt time.Time `json:"created_at"`
}

type InquiryStatus string

const (
	InquiryOpen     InquiryStatus = "open"
	InquiryAnswered InquiryStatus = "answered"
	InquiryClosed   InquiryStatus = "closed"
)

func (s InquiryStatus) Valid() bool {
	return s == InquiryOpen || s == InquiryAnswered || s == InquiryClosed
}

type Inquiry struct {
	ID        string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ArtworkID string `gorm:"type:uuid;not null;index" json:"artwork_id"`
	ArtistID  uint   `gorm:"not null;index" json:"-"`

	// CollectorID is nil for anonymous inquiries.
	CollectorID *uint  `gorm:"index" json:"-"`
	Name        string `gorm:"not null" json:"name"`
	Email       string `gorm:"not null" json:"email"`
	Message     string `gorm:"not null" json:"message"`

	Status InquiryStatus `gorm:"type:text;not null;default:'open'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
