package users

import (
	"strings"
	"time"
)

const (
	RoleArtist    = "artist"
	RoleCollector = "collector"
	RoleAdmin     = "admin"
)

type User struct {
	ID       uint `gorm:"primaryKey"`
	Name     string
	Lastname string
	// DisplayName is printed into artwork watermarks. Empty falls back to Name + Lastname.
	DisplayName string
	Email       string `gorm:"not null;uniqueIndex:idx_users_email"`
	Role        string `gorm:"type:varchar(20);not null;default:'collector'"`

	SiteSlug *string `gorm:"column:site_slug;uniqueIndex:idx_users_site_slug"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) WatermarkName() string {
	if s := strings.TrimSpace(u.DisplayName); s != "" {
		return s
	}
	return strings.TrimSpace(u.Name + " " + u.Lastname)
}
