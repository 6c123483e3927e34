package slugs

import (
	"fmt"
	"regexp"
	"strings"

	"artmarket/internal/domain/users"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

/*
	Slug helpers
	------------
	- Responsible ONLY for:
	  • turning free text into URL-safe slugs
	  • making them unique inside a namespace (an artist's artworks, an artist's catalogues)
	  • persisting the artist's site slug
*/

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9\-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

const maxAttempts = 1000

// MakeSlug generates a URL-safe base slug.
// Example: "Blue Hour, No. 3" -> "blue-hour-no-3"
func MakeSlug(text, fallback string) string {
	base := strings.ToLower(strings.TrimSpace(text))
	base = strings.ReplaceAll(base, " ", "-")
	base = nonSlug.ReplaceAllString(base, "")
	base = multiDash.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if base == "" {
		base = fallback
	}
	if len(base) > 80 {
		base = strings.Trim(base[:80], "-")
	}
	return base
}

// Unique returns base, or base-2, base-3... the first candidate taken reports as free.
func Unique(base string, taken func(candidate string) (bool, error)) (string, error) {
	candidate := base
	for i := 2; i < maxAttempts; i++ {
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", errors.Errorf("no free slug for %q", base)
}

// EnsureSiteSlug ensures user.SiteSlug exists and is persisted.
// Must be called AFTER user has an ID.
func EnsureSiteSlug(db *gorm.DB, user *users.User) (string, error) {
	if user == nil {
		return "", errors.New("user is nil")
	}
	if db == nil {
		return "", errors.New("db is nil")
	}

	// Already exists
	if user.SiteSlug != nil && strings.TrimSpace(*user.SiteSlug) != "" {
		return strings.TrimSpace(*user.SiteSlug), nil
	}

	if user.ID == 0 {
		return "", errors.New("user ID missing (call EnsureSiteSlug after Create)")
	}

	base := MakeSlug(user.Name+" "+user.Lastname, "artist")
	slug := fmt.Sprintf("%s-%d", base, user.ID)

	user.SiteSlug = &slug

	// Persist ONLY the slug column
	if err := db.
		Model(&users.User{}).
		Where("id = ?", user.ID).
		Update("site_slug", slug).Error; err != nil {
		return "", errors.Wrap(err, "persist site slug")
	}

	return slug, nil
}
